// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package transport

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const msgHapticRequest = "haptic_request"

// HapticTrigger is the part of the haptic sender the receiver needs.
type HapticTrigger interface {
	Trigger(preset string) bool
}

type hostMessage struct {
	Type   string `json:"type"`
	Preset string `json:"preset"`
}

// HapticReceiver keeps its own WebSocket connection to the host and
// relays haptic_request messages to the haptic sender. It reconnects on
// its own schedule until stopped.
type HapticReceiver struct {
	url         string
	dialTimeout time.Duration
	retryDelay  time.Duration
	haptics     HapticTrigger
	log         *zap.Logger

	mu     sync.Mutex
	conn   *websocket.Conn
	cancel context.CancelFunc
	done   chan struct{}
}

func NewHapticReceiver(url string, dialTimeout, retryDelay time.Duration, haptics HapticTrigger, log *zap.Logger) *HapticReceiver {
	return &HapticReceiver{
		url:         url,
		dialTimeout: dialTimeout,
		retryDelay:  retryDelay,
		haptics:     haptics,
		log:         log,
	}
}

// Start launches the background goroutine. Calling Start twice is a no-op.
func (r *HapticReceiver) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done != nil {
		return
	}
	ctx, r.cancel = context.WithCancel(ctx)
	r.done = make(chan struct{})
	go r.run(ctx)
	r.log.Info("haptic receiver started", zap.String("url", r.url))
}

// Stop asks the goroutine to exit and waits up to timeout for it.
// It reports whether the goroutine finished in time.
func (r *HapticReceiver) Stop(timeout time.Duration) bool {
	r.mu.Lock()
	if r.done == nil {
		r.mu.Unlock()
		return true
	}
	r.cancel()
	if r.conn != nil {
		// unblocks the pending read
		r.conn.Close()
	}
	done := r.done
	r.mu.Unlock()

	select {
	case <-done:
		return true
	case <-time.After(timeout):
		r.log.Warn("haptic receiver did not stop in time", zap.Duration("timeout", timeout))
		return false
	}
}

func (r *HapticReceiver) run(ctx context.Context) {
	defer close(r.done)

	dialer := websocket.Dialer{HandshakeTimeout: r.dialTimeout}
	for ctx.Err() == nil {
		dialCtx, cancel := context.WithTimeout(ctx, r.dialTimeout)
		conn, _, err := dialer.DialContext(dialCtx, r.url, nil)
		cancel()
		if err != nil {
			if ctx.Err() == nil {
				r.log.Debug("haptic receiver connect failed",
					zap.Error(err),
					zap.Duration("retry_in", r.retryDelay))
			}
			if !sleepCtx(ctx, r.retryDelay) {
				return
			}
			continue
		}

		if !r.setConn(ctx, conn) {
			conn.Close()
			return
		}
		r.log.Info("haptic receiver connected", zap.String("url", r.url))
		r.serve(conn)
		r.setConn(ctx, nil)
		conn.Close()

		if ctx.Err() != nil {
			return
		}
		r.log.Info("haptic receiver disconnected, reconnecting", zap.Duration("retry_in", r.retryDelay))
		if !sleepCtx(ctx, r.retryDelay) {
			return
		}
	}
}

// setConn publishes the live connection so Stop can close it. It refuses
// a new connection once the context is done.
func (r *HapticReceiver) setConn(ctx context.Context, conn *websocket.Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if conn != nil && ctx.Err() != nil {
		return false
	}
	r.conn = conn
	return true
}

func (r *HapticReceiver) serve(conn *websocket.Conn) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				r.log.Debug("haptic receiver read error", zap.Error(err))
			}
			return
		}
		var msg hostMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			r.log.Debug("ignoring non-json host message", zap.Error(err))
			continue
		}
		if msg.Type != msgHapticRequest || msg.Preset == "" {
			continue
		}
		ok := r.haptics.Trigger(msg.Preset)
		r.log.Info("haptic request relayed", zap.String("preset", msg.Preset), zap.Bool("sent", ok))
	}
}

// sleepCtx waits for d or ctx, reporting false if ctx ended first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

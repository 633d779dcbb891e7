// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package transport

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/relabs-tech/imu_gesture/internal/event"
)

// Dispatcher delivers events to the host application over WebSocket.
// It is owned by the main loop and is not safe for concurrent use.
//
// Delivery is best effort: a missing connection is dialed on the next
// send, and a failed send drops both the event and the connection.
type Dispatcher struct {
	url          string
	dialTimeout  time.Duration
	writeTimeout time.Duration
	log          *zap.Logger

	dialer websocket.Dialer
	conn   *websocket.Conn
}

func NewDispatcher(url string, dialTimeout time.Duration, log *zap.Logger) *Dispatcher {
	return &Dispatcher{
		url:          url,
		dialTimeout:  dialTimeout,
		writeTimeout: dialTimeout,
		log:          log,
		dialer:       websocket.Dialer{HandshakeTimeout: dialTimeout},
	}
}

// Connected reports whether a connection is currently open.
func (d *Dispatcher) Connected() bool { return d.conn != nil }

// Connect dials the host if not already connected.
func (d *Dispatcher) Connect() error {
	if d.conn != nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), d.dialTimeout)
	defer cancel()
	conn, _, err := d.dialer.DialContext(ctx, d.url, nil)
	if err != nil {
		return err
	}
	d.conn = conn
	go drain(conn)
	d.log.Info("connected to host", zap.String("url", d.url))
	return nil
}

// drain consumes inbound frames so pings and closes are answered. It
// exits when the connection is closed.
func drain(conn *websocket.Conn) {
	for {
		if _, _, err := conn.NextReader(); err != nil {
			return
		}
	}
}

// Send writes one JSON record, connecting first when needed.
func (d *Dispatcher) Send(record any) bool {
	if err := d.Connect(); err != nil {
		d.log.Warn("host unreachable, dropping message", zap.String("url", d.url), zap.Error(err))
		return false
	}
	d.conn.SetWriteDeadline(time.Now().Add(d.writeTimeout))
	if err := d.conn.WriteJSON(record); err != nil {
		d.log.Warn("host send failed, dropping connection", zap.Error(err))
		d.conn.Close()
		d.conn = nil
		return false
	}
	return true
}

// Publish implements event.Sink.
func (d *Dispatcher) Publish(ev event.Event) {
	if d.Send(ev.HostRecord()) {
		d.log.Debug("sent to host", zap.String("type", string(ev.Kind)), zap.String("cycle_id", ev.CycleID))
	}
}

func (d *Dispatcher) Close() error {
	if d.conn == nil {
		return nil
	}
	d.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	err := d.conn.Close()
	d.conn = nil
	return err
}

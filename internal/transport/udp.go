// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package transport holds the network edges of the controller: the UDP
// sample listener, the haptic channel, the host WebSocket dispatcher and
// the optional MQTT event mirror.
package transport

import (
	"errors"
	"fmt"
	"net"
	"os"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/relabs-tech/imu_gesture/internal/imu"
)

// maxDatagram is large enough to notice oversized frames instead of
// having them truncated into a valid length.
const maxDatagram = 2048

// ListenerStats are the cumulative packet counters of a Listener.
type ListenerStats struct {
	Packets   uint64
	Malformed uint64
}

// Listener receives IMU frames over UDP and stamps them with receipt time.
type Listener struct {
	conn  *net.UDPConn
	clock func() float64
	log   *zap.Logger
	buf   []byte

	packets   atomic.Uint64
	malformed atomic.Uint64
}

// Listen binds a UDP socket on ip:port. clock returns the monotonic
// receipt time in seconds.
func Listen(ip string, port int, clock func() float64, log *zap.Logger) (*Listener, error) {
	addr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(ip, fmt.Sprint(port)))
	if err != nil {
		return nil, fmt.Errorf("resolve udp address: %w", err)
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen udp %s: %w", addr, err)
	}
	log.Info("listening for imu frames", zap.Stringer("addr", conn.LocalAddr()))
	return &Listener{
		conn:  conn,
		clock: clock,
		log:   log,
		buf:   make([]byte, maxDatagram),
	}, nil
}

// Addr is the bound local address.
func (l *Listener) Addr() net.Addr { return l.conn.LocalAddr() }

// Receive waits up to timeout for one frame. It returns ok=false with a
// nil error on timeout or when a malformed datagram was dropped.
func (l *Listener) Receive(timeout time.Duration) (imu.Sample, bool, error) {
	if err := l.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return imu.Sample{}, false, err
	}
	n, src, err := l.conn.ReadFromUDP(l.buf)
	if err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return imu.Sample{}, false, nil
		}
		return imu.Sample{}, false, err
	}
	l.packets.Add(1)

	frame, err := imu.DecodeFrame(l.buf[:n])
	if err != nil {
		l.malformed.Add(1)
		l.log.Debug("dropping datagram", zap.Int("bytes", n), zap.Stringer("from", src))
		return imu.Sample{}, false, nil
	}
	return imu.Sample{
		Time:   l.clock(),
		Values: frame,
		Source: src.IP.String(),
	}, true, nil
}

// Stats returns the counters since Listen.
func (l *Listener) Stats() ListenerStats {
	return ListenerStats{Packets: l.packets.Load(), Malformed: l.malformed.Load()}
}

func (l *Listener) Close() error {
	return l.conn.Close()
}

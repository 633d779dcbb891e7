// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package transport

import (
	"encoding/binary"
	"net"
	"strconv"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// HapticPacketSize is the wire size of one vibration request.
const HapticPacketSize = 12

// Pattern is one vibration request.
type Pattern struct {
	Intensity  int // 1-255
	Count      int // 1-10
	DurationMS int // 50-500
}

// Presets are the named patterns the watch understands.
var Presets = map[string]Pattern{
	"stage1_detected":   {100, 1, 80},
	"gesture_success":   {255, 2, 100},
	"gesture_fail":      {150, 3, 50},
	"mode_drawing":      {180, 1, 120},
	"mode_pointer":      {120, 1, 80},
	"selection_tick":    {80, 1, 50},
	"slide_change":      {150, 1, 80},
	"calibration_point": {200, 1, 60},
	"calibration_done":  {255, 2, 150},
	"recording_toggle":  {200, 1, 100},
	"ocr_start":         {150, 1, 80},
	"ocr_complete":      {220, 2, 80},
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Clamp forces every field into its valid range.
func (p Pattern) Clamp() Pattern {
	return Pattern{
		Intensity:  clampInt(p.Intensity, 1, 255),
		Count:      clampInt(p.Count, 1, 10),
		DurationMS: clampInt(p.DurationMS, 50, 500),
	}
}

// Encode clamps p and packs it as three little-endian int32 values.
func (p Pattern) Encode() []byte {
	c := p.Clamp()
	b := make([]byte, HapticPacketSize)
	binary.LittleEndian.PutUint32(b[0:], uint32(int32(c.Intensity)))
	binary.LittleEndian.PutUint32(b[4:], uint32(int32(c.Count)))
	binary.LittleEndian.PutUint32(b[8:], uint32(int32(c.DurationMS)))
	return b
}

// HapticSender sends vibration requests to the phone that most recently
// sent us IMU frames. It is safe for concurrent use.
type HapticSender struct {
	port int
	log  *zap.Logger

	peer atomic.Pointer[string]

	mu   sync.Mutex
	conn *net.UDPConn
}

func NewHapticSender(port int, log *zap.Logger) *HapticSender {
	return &HapticSender{port: port, log: log}
}

// SetPeer records the phone address. Empty strings are ignored.
func (s *HapticSender) SetPeer(ip string) {
	if ip == "" {
		return
	}
	if cur := s.peer.Load(); cur != nil && *cur == ip {
		return
	}
	s.peer.Store(&ip)
	s.log.Info("haptic peer learned", zap.String("peer", ip))
}

// Peer returns the current peer address, or "" if none is known.
func (s *HapticSender) Peer() string {
	if p := s.peer.Load(); p != nil {
		return *p
	}
	return ""
}

// Trigger sends a named preset. Unknown presets are rejected.
func (s *HapticSender) Trigger(preset string) bool {
	p, ok := Presets[preset]
	if !ok {
		s.log.Warn("unknown haptic preset", zap.String("preset", preset))
		return false
	}
	return s.Send(p)
}

// Send clamps and transmits p. A failed write is retried once on a fresh
// socket; the result reports whether a datagram left the host.
func (s *HapticSender) Send(p Pattern) bool {
	peer := s.Peer()
	if peer == "" {
		s.log.Debug("no haptic peer yet, skipping")
		return false
	}
	addr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(peer, strconv.Itoa(s.port)))
	if err != nil {
		s.log.Warn("bad haptic peer", zap.String("peer", peer), zap.Error(err))
		return false
	}
	payload := p.Encode()

	s.mu.Lock()
	defer s.mu.Unlock()

	for attempt := 0; attempt < 2; attempt++ {
		if s.conn == nil {
			conn, err := net.ListenUDP("udp", nil)
			if err != nil {
				s.log.Warn("haptic socket", zap.Error(err))
				continue
			}
			s.conn = conn
		}
		if _, err := s.conn.WriteToUDP(payload, addr); err != nil {
			s.log.Warn("haptic send failed",
				zap.Stringer("to", addr),
				zap.Int("attempt", attempt+1),
				zap.Error(err))
			s.conn.Close()
			s.conn = nil
			continue
		}
		c := p.Clamp()
		s.log.Debug("haptic sent",
			zap.Stringer("to", addr),
			zap.Int("intensity", c.Intensity),
			zap.Int("count", c.Count),
			zap.Int("duration_ms", c.DurationMS))
		return true
	}
	return false
}

func (s *HapticSender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}

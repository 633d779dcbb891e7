// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package imu

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// FrameSize is the datagram size: 30 big-endian float32 values.
const FrameSize = NumChannels * 4

var ErrFrameSize = errors.New("invalid frame size")

// DecodeFrame parses a 120-byte datagram.
func DecodeFrame(b []byte) (Frame, error) {
	var f Frame
	if len(b) != FrameSize {
		return f, fmt.Errorf("%w: got %d bytes, want %d", ErrFrameSize, len(b), FrameSize)
	}
	for i := range f {
		f[i] = math.Float32frombits(binary.BigEndian.Uint32(b[i*4:]))
	}
	return f, nil
}

// EncodeFrame is the inverse of DecodeFrame; used by the emulator and tests.
func EncodeFrame(f Frame) []byte {
	b := make([]byte, FrameSize)
	for i, v := range f {
		binary.BigEndian.PutUint32(b[i*4:], math.Float32bits(v))
	}
	return b
}

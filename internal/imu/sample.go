// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package imu

// NumChannels is the number of float values carried by one frame
// (15 watch channels followed by 15 phone channels).
const NumChannels = 30

// Frame holds the raw channel values of one sample, indexed by Channel.
type Frame [NumChannels]float32

// Sample is one instant of watch+phone sensor data as received.
type Sample struct {
	Time   float64 // local monotonic receipt time, seconds
	Values Frame
	Source string // sender IP
}

// At returns the value of a single channel.
func (f *Frame) At(c Channel) float32 {
	return f[c]
}

// Source is anything that can produce frames over time
// (mock generator, replay file, ...).
type Source interface {
	Next() (Frame, error)
}

// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package imu

import (
	"errors"
	"fmt"
)

// Channel is a position in the 30-element frame.
type Channel int

// Watch channels (0-14), phone channels (15-29). Layout follows the
// IMU streaming app v0.4.1 frame.
const (
	SWDt Channel = iota // seconds between samples
	SWHour
	SWMinute
	SWSecond
	SWNanos
	SWLaccX // linear acceleration, m/s²
	SWLaccY
	SWLaccZ
	SWGyroX // rad/s
	SWGyroY
	SWGyroZ
	SWRotvecW // rotation vector quaternion
	SWRotvecX
	SWRotvecY
	SWRotvecZ

	PHDt
	PHHour
	PHMinute
	PHSecond
	PHNanos
	PHLaccX
	PHLaccY
	PHLaccZ
	PHGyroX
	PHGyroY
	PHGyroZ
	PHRotvecW
	PHRotvecX
	PHRotvecY
	PHRotvecZ
)

var channelNames = [NumChannels]string{
	"sw_dt", "sw_h", "sw_m", "sw_s", "sw_ns",
	"sw_lacc_x", "sw_lacc_y", "sw_lacc_z",
	"sw_gyro_x", "sw_gyro_y", "sw_gyro_z",
	"sw_rotvec_w", "sw_rotvec_x", "sw_rotvec_y", "sw_rotvec_z",
	"ph_dt", "ph_h", "ph_m", "ph_s", "ph_ns",
	"ph_lacc_x", "ph_lacc_y", "ph_lacc_z",
	"ph_gyro_x", "ph_gyro_y", "ph_gyro_z",
	"ph_rotvec_w", "ph_rotvec_x", "ph_rotvec_y", "ph_rotvec_z",
}

var channelIndex = func() map[string]Channel {
	m := make(map[string]Channel, NumChannels)
	for i, name := range channelNames {
		m[name] = Channel(i)
	}
	return m
}()

// ErrUnknownChannel is returned when a model references a channel name
// that is not part of the frame layout.
var ErrUnknownChannel = errors.New("unknown channel")

// Accel and Gyro are the watch axes used for motion and detection.
var (
	WatchAccel = [3]Channel{SWLaccX, SWLaccY, SWLaccZ}
	WatchGyro  = [3]Channel{SWGyroX, SWGyroY, SWGyroZ}
)

// DetectionChannels is the default model input: watch accel + gyro.
var DetectionChannels = []Channel{SWLaccX, SWLaccY, SWLaccZ, SWGyroX, SWGyroY, SWGyroZ}

func (c Channel) String() string {
	if c < 0 || int(c) >= NumChannels {
		return fmt.Sprintf("channel(%d)", int(c))
	}
	return channelNames[c]
}

// ChannelByName looks up a symbolic channel name such as "sw_lacc_x".
func ChannelByName(name string) (Channel, bool) {
	c, ok := channelIndex[name]
	return c, ok
}

// ResolveChannels maps model channel names to frame positions. Every name
// must exist; the first unknown one is reported.
func ResolveChannels(names []string) ([]Channel, error) {
	if len(names) == 0 {
		return append([]Channel(nil), DetectionChannels...), nil
	}
	out := make([]Channel, 0, len(names))
	for _, name := range names {
		c, ok := ChannelByName(name)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownChannel, name)
		}
		out = append(out, c)
	}
	return out, nil
}

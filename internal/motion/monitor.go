// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package motion

import (
	"math"

	"github.com/relabs-tech/imu_gesture/internal/imu"
)

const (
	monitorMaxSamples = 50
	monitorMinSamples = 3
)

// Monitor measures how much the watch moved over a short trailing window.
type Monitor struct {
	buf       *Buffer
	windowSec float64
}

// NewMonitor creates a monitor over buf looking back windowSec seconds
// from the latest sample.
func NewMonitor(buf *Buffer, windowSec float64) *Monitor {
	return &Monitor{buf: buf, windowSec: windowSec}
}

// Magnitude returns the norm of the per-axis standard deviations of watch
// acceleration and gyro. With fewer than 3 samples in the window both
// values are +Inf, i.e. "moving".
func (m *Monitor) Magnitude() (accel, gyro float64) {
	return Spread(m.buf.Recent(monitorMaxSamples), m.windowSec)
}

// Spread is Magnitude over an explicit window.
func Spread(w Window, windowSec float64) (accel, gyro float64) {
	inf := math.Inf(1)
	if w.Len() < monitorMinSamples {
		return inf, inf
	}
	cutoff := w.Times[w.Len()-1] - windowSec

	var frames []imu.Frame
	for i, ts := range w.Times {
		if ts >= cutoff {
			frames = append(frames, w.Frames[i])
		}
	}
	if len(frames) < monitorMinSamples {
		return inf, inf
	}
	return axisSpread(frames, imu.WatchAccel), axisSpread(frames, imu.WatchGyro)
}

// axisSpread is ||(std_x, std_y, std_z)|| using the population std.
func axisSpread(frames []imu.Frame, axes [3]imu.Channel) float64 {
	n := float64(len(frames))
	var sumSq float64
	for _, c := range axes {
		var mean float64
		for i := range frames {
			mean += float64(frames[i][c])
		}
		mean /= n
		var variance float64
		for i := range frames {
			d := float64(frames[i][c]) - mean
			variance += d * d
		}
		sumSq += variance / n
	}
	return math.Sqrt(sumSq)
}

// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package imu

import (
	"math"
	"time"
)

type mockSource struct {
	start  time.Time
	last   time.Time
	period float64 // seconds between swing bursts
	burst  float64 // burst length, seconds
	now    func() time.Time
}

// NewMockSource creates a frame source that generates a small idle tremor
// on the watch channels and a strong swing burst every period.
// The phone half mirrors the watch at reduced amplitude.
func NewMockSource(period time.Duration) Source {
	return newMockSource(period, time.Now)
}

func newMockSource(period time.Duration, now func() time.Time) *mockSource {
	t := now()
	return &mockSource{
		start:  t,
		last:   t,
		period: period.Seconds(),
		burst:  0.4,
		now:    now,
	}
}

func (m *mockSource) Next() (Frame, error) {
	t := m.now()
	elapsed := t.Sub(m.start).Seconds()
	dt := t.Sub(m.last).Seconds()
	m.last = t

	var f Frame
	f[SWDt] = float32(dt)
	f[SWHour] = float32(t.Hour())
	f[SWMinute] = float32(t.Minute())
	f[SWSecond] = float32(t.Second())
	f[SWNanos] = float32(t.Nanosecond())

	// idle tremor
	ax := 0.05 * math.Sin(elapsed*7.1)
	ay := 0.05 * math.Cos(elapsed*5.3)
	az := 0.05 * math.Sin(elapsed*3.7)
	gx := 0.02 * math.Cos(elapsed*6.1)
	gy := 0.02 * math.Sin(elapsed*4.9)
	gz := 0.02 * math.Cos(elapsed*2.3)

	if m.period > 0 {
		phase := math.Mod(elapsed, m.period)
		if phase < m.burst {
			s := math.Sin(math.Pi * phase / m.burst)
			ax += 12 * s
			gz += 4 * s
		}
	}

	f[SWLaccX], f[SWLaccY], f[SWLaccZ] = float32(ax), float32(ay), float32(az)
	f[SWGyroX], f[SWGyroY], f[SWGyroZ] = float32(gx), float32(gy), float32(gz)
	f[SWRotvecW] = 1

	copy(f[PHDt:PHLaccX], f[SWDt:SWLaccX])
	for i := SWLaccX; i <= SWGyroZ; i++ {
		f[i+PHDt] = f[i] * 0.25
	}
	f[PHRotvecW] = 1
	return f, nil
}

// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package motion holds the sample history and the signal math run on it:
// time-indexed buffering, fixed-rate resampling, normalization and the
// stillness monitor used for hold detection.
package motion

import (
	"sync"

	"github.com/relabs-tech/imu_gesture/internal/imu"
)

// Window is a span of buffered samples as parallel sequences, oldest first.
type Window struct {
	Times  []float64
	Frames []imu.Frame
}

// Len returns the number of samples in the window.
func (w Window) Len() int { return len(w.Times) }

// Column extracts the given channels as an N×C float64 matrix.
func (w Window) Column(chans []imu.Channel) [][]float64 {
	out := make([][]float64, len(w.Frames))
	for i := range w.Frames {
		row := make([]float64, len(chans))
		for j, c := range chans {
			row[j] = float64(w.Frames[i].At(c))
		}
		out[i] = row
	}
	return out
}

// Buffer is a bounded ring of samples ordered by receipt time. Once full,
// each Add overwrites the oldest entry.
type Buffer struct {
	mu    sync.Mutex
	times []float64
	data  []imu.Frame
	head  int // index of the oldest entry
	size  int
}

// NewBuffer allocates a buffer holding at most capacity samples.
func NewBuffer(capacity int) *Buffer {
	if capacity < 1 {
		capacity = 1
	}
	return &Buffer{
		times: make([]float64, capacity),
		data:  make([]imu.Frame, capacity),
	}
}

// Add appends one sample, evicting the oldest when full.
func (b *Buffer) Add(s imu.Sample) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := len(b.times)
	idx := (b.head + b.size) % n
	b.times[idx] = s.Time
	b.data[idx] = s.Values
	if b.size < n {
		b.size++
	} else {
		b.head = (b.head + 1) % n
	}
}

// Len returns the number of buffered samples.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size
}

// Cap returns the maximum number of samples.
func (b *Buffer) Cap() int { return len(b.times) }

// Recent returns the last n samples (fewer if not available), most recent last.
func (b *Buffer) Recent(n int) Window {
	b.mu.Lock()
	defer b.mu.Unlock()

	if n > b.size {
		n = b.size
	}
	if n <= 0 {
		return Window{}
	}
	w := Window{Times: make([]float64, n), Frames: make([]imu.Frame, n)}
	start := b.size - n
	for i := 0; i < n; i++ {
		idx := (b.head + start + i) % len(b.times)
		w.Times[i] = b.times[idx]
		w.Frames[i] = b.data[idx]
	}
	return w
}

// Range returns every sample with start <= time <= end in arrival order.
func (b *Buffer) Range(start, end float64) Window {
	b.mu.Lock()
	defer b.mu.Unlock()

	var w Window
	for i := 0; i < b.size; i++ {
		idx := (b.head + i) % len(b.times)
		ts := b.times[idx]
		if ts < start || ts > end {
			continue
		}
		w.Times = append(w.Times, ts)
		w.Frames = append(w.Frames, b.data[idx])
	}
	return w
}

// Clear drops all samples.
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.head = 0
	b.size = 0
}

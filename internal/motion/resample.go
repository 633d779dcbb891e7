// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package motion

import (
	"math"
	"sort"
)

// DefaultClip bounds raw values before resampling and normalization.
const DefaultClip = 1e4

// Sanitize clips v to ±clip; NaN becomes 0 and ±Inf the matching bound.
func Sanitize(v, clip float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v > clip:
		return clip
	case v < -clip:
		return -clip
	}
	return v
}

// Resample linearly interpolates each column of values (N×C, aligned with
// times) onto the grid tStart + i/fs for i < length. Points outside the
// source range take the nearest boundary value. ok is false when fewer than
// two distinct timestamps are available or the request is empty.
func Resample(times []float64, values [][]float64, tStart, fs float64, length int, clip float64) ([][]float64, bool) {
	if len(times) < 2 || len(values) != len(times) || length < 1 || fs <= 0 {
		return nil, false
	}
	if times[len(times)-1] <= times[0] {
		return nil, false
	}
	channels := len(values[0])

	clean := make([][]float64, len(values))
	for i, row := range values {
		r := make([]float64, channels)
		for c := 0; c < channels && c < len(row); c++ {
			r[c] = Sanitize(row[c], clip)
		}
		clean[i] = r
	}

	out := make([][]float64, length)
	last := len(times) - 1
	for i := 0; i < length; i++ {
		t := tStart + float64(i)/fs
		row := make([]float64, channels)
		switch {
		case t <= times[0]:
			copy(row, clean[0])
		case t >= times[last]:
			copy(row, clean[last])
		default:
			// first index with times[j] > t; times[j-1] <= t < times[j]
			j := sort.Search(len(times), func(k int) bool { return times[k] > t })
			t0, t1 := times[j-1], times[j]
			frac := (t - t0) / (t1 - t0)
			for c := 0; c < channels; c++ {
				row[c] = clean[j-1][c] + frac*(clean[j][c]-clean[j-1][c])
			}
		}
		out[i] = row
	}
	return out, true
}

// SpanLength is the number of grid points covering [tStart, tEnd] at fs.
// Exact halves round to even.
func SpanLength(tStart, tEnd, fs float64) int {
	d := tEnd - tStart
	if d < 0 {
		d = 0
	}
	return int(math.RoundToEven(d * fs))
}

// MinSpanPoints is the shortest resampled span worth classifying.
const MinSpanPoints = 2

// ResampleSpan resamples over the actual elapsed span, producing
// round((tEnd - tStart) * fs) points. ok is false for spans shorter than
// MinSpanPoints.
func ResampleSpan(times []float64, values [][]float64, tStart, tEnd, fs, clip float64) ([][]float64, bool) {
	n := SpanLength(tStart, tEnd, fs)
	if n < MinSpanPoints {
		return nil, false
	}
	return Resample(times, values, tStart, fs, n, clip)
}

// CenterFit zero-pads or crops seq symmetrically to exactly length rows.
func CenterFit(seq [][]float64, length int) [][]float64 {
	n := len(seq)
	if n == length {
		return seq
	}
	if n > length {
		start := (n - length) / 2
		return seq[start : start+length]
	}
	channels := 0
	if n > 0 {
		channels = len(seq[0])
	}
	out := make([][]float64, length)
	start := (length - n) / 2
	for i := range out {
		if i >= start && i < start+n {
			out[i] = seq[i-start]
			continue
		}
		out[i] = make([]float64, channels)
	}
	return out
}

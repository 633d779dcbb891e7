// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package motion

import "math"

// Normalizer applies the per-channel z-score a model was trained with.
type Normalizer struct {
	Mean []float64
	Std  []float64
	Eps  float64 // std below this is treated as 1
	Clip float64
}

// Apply returns a normalized copy of x (L×C). Input is sanitized and
// clipped first; any non-finite result becomes 0.
func (n Normalizer) Apply(x [][]float64) [][]float64 {
	clip := n.Clip
	if clip <= 0 {
		clip = DefaultClip
	}
	out := make([][]float64, len(x))
	for i, row := range x {
		r := make([]float64, len(row))
		for c, v := range row {
			v = Sanitize(v, clip)
			mean, std := 0.0, 1.0
			if c < len(n.Mean) {
				mean = n.Mean[c]
			}
			if c < len(n.Std) && n.Std[c] >= n.Eps {
				std = n.Std[c]
			}
			v = (v - mean) / std
			if math.IsNaN(v) || math.IsInf(v, 0) {
				v = 0
			}
			r[c] = v
		}
		out[i] = r
	}
	return out
}

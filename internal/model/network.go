// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package model

import (
	"fmt"
	"math"
)

// Dense is a fully connected layer: out = W·in + b.
type Dense struct {
	Weights [][]float64 `json:"weights"` // [out][in]
	Bias    []float64   `json:"bias"`
}

// Network is a feed-forward MLP over the flattened input window with ReLU
// between layers. It satisfies both EntryModel (single sigmoid output)
// and GestureModel (softmax over NumClasses outputs).
type Network struct {
	meta   Meta
	layers []Dense
}

// NewNetwork validates layer dimensions against meta.
func NewNetwork(meta Meta, layers []Dense) (*Network, error) {
	if len(layers) == 0 {
		return nil, fmt.Errorf("network has no layers")
	}
	in := meta.WindowLen * len(meta.Channels)
	for i, l := range layers {
		if len(l.Weights) == 0 || len(l.Weights) != len(l.Bias) {
			return nil, fmt.Errorf("layer %d: %d weight rows, %d biases", i, len(l.Weights), len(l.Bias))
		}
		for r, row := range l.Weights {
			if len(row) != in {
				return nil, fmt.Errorf("layer %d row %d: %d inputs, want %d", i, r, len(row), in)
			}
		}
		in = len(l.Weights)
	}
	return &Network{meta: meta, layers: layers}, nil
}

func (n *Network) Meta() Meta { return n.meta }

// Outputs returns the width of the last layer.
func (n *Network) Outputs() int { return len(n.layers[len(n.layers)-1].Bias) }

func (n *Network) forward(x [][]float64) ([]float64, error) {
	if len(x) != n.meta.WindowLen {
		return nil, fmt.Errorf("%w: %d rows, want %d", ErrShapeMismatch, len(x), n.meta.WindowLen)
	}
	act := make([]float64, 0, n.meta.WindowLen*len(n.meta.Channels))
	for _, row := range x {
		if len(row) != len(n.meta.Channels) {
			return nil, fmt.Errorf("%w: %d channels, want %d", ErrShapeMismatch, len(row), len(n.meta.Channels))
		}
		act = append(act, row...)
	}

	for i, l := range n.layers {
		next := make([]float64, len(l.Bias))
		for o, w := range l.Weights {
			sum := l.Bias[o]
			for k, v := range act {
				sum += w[k] * v
			}
			if i < len(n.layers)-1 && sum < 0 {
				sum = 0
			}
			next[o] = sum
		}
		act = next
	}
	return act, nil
}

// Score returns sigmoid(logit) of a single-output network.
func (n *Network) Score(x [][]float64) (float64, error) {
	out, err := n.forward(x)
	if err != nil {
		return 0, err
	}
	return sigmoid(out[0]), nil
}

// Classify returns the softmax distribution over the output layer.
func (n *Network) Classify(x [][]float64) ([]float64, error) {
	out, err := n.forward(x)
	if err != nil {
		return nil, err
	}
	return softmax(out), nil
}

func sigmoid(v float64) float64 {
	return 1 / (1 + math.Exp(-v))
}

func softmax(logits []float64) []float64 {
	maxv := math.Inf(-1)
	for _, v := range logits {
		if v > maxv {
			maxv = v
		}
	}
	out := make([]float64, len(logits))
	var sum float64
	for i, v := range logits {
		out[i] = math.Exp(v - maxv)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

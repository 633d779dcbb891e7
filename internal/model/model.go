// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package model loads gesture model artifacts and exposes the two
// capabilities the pipeline needs: an entry scorer (stage 1) and a
// gesture classifier (stage 2).
package model

import (
	"errors"
	"fmt"

	"github.com/relabs-tech/imu_gesture/internal/imu"
	"github.com/relabs-tech/imu_gesture/internal/motion"
)

var ErrShapeMismatch = errors.New("input shape mismatch")

// Meta describes the input contract of a loaded model.
type Meta struct {
	Type       string
	WindowLen  int     // rows per model input
	SampleRate float64 // Hz the input must be resampled to
	Channels   []imu.Channel
	WindowSec  float64
	StepSec    float64
	Threshold  float64
	NumClasses int
	ClassNames map[int]string
	Norm       motion.Normalizer
}

// EntryModel scores a normalized window with the probability that an
// entry gesture is in progress.
type EntryModel interface {
	Meta() Meta
	Score(x [][]float64) (float64, error)
}

// GestureModel returns a probability distribution over gesture classes.
type GestureModel interface {
	Meta() Meta
	Classify(x [][]float64) ([]float64, error)
}

// GestureClass is one catalogue entry.
type GestureClass struct {
	ID      int
	Name    string
	Command string // empty when the gesture has no host command
}

// ClassName returns the artifact's name for id, or "class_<id>".
func (m Meta) ClassName(id int) string {
	if name, ok := m.ClassNames[id]; ok && name != "" {
		return name
	}
	return fmt.Sprintf("class_%d", id)
}

// Catalogue merges class names with the gesture->command map.
func Catalogue(meta Meta, commands map[int]string) []GestureClass {
	n := meta.NumClasses
	for id := range meta.ClassNames {
		if id+1 > n {
			n = id + 1
		}
	}
	out := make([]GestureClass, 0, n)
	for id := 0; id < n; id++ {
		out = append(out, GestureClass{ID: id, Name: meta.ClassName(id), Command: commands[id]})
	}
	return out
}

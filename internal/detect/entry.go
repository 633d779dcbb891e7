// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package detect adapts the loaded models to the live sample buffer:
// stage 1 entry scoring and stage 2 best-candidate classification.
package detect

import (
	"go.uber.org/zap"

	"github.com/relabs-tech/imu_gesture/internal/model"
	"github.com/relabs-tech/imu_gesture/internal/motion"
)

// EntryDetector runs the entry model over the trailing window at most
// once per step.
type EntryDetector struct {
	model model.EntryModel
	meta  model.Meta
	buf   *motion.Buffer
	log   *zap.Logger

	lastInfer float64
	haveInfer bool
}

// NewEntryDetector binds an entry model to the shared buffer.
func NewEntryDetector(m model.EntryModel, buf *motion.Buffer, log *zap.Logger) *EntryDetector {
	return &EntryDetector{
		model: m,
		meta:  m.Meta(),
		buf:   buf,
		log:   log,
	}
}

// Threshold is the decision threshold shipped with the model.
func (d *EntryDetector) Threshold() float64 { return d.meta.Threshold }

// WindowLen is the number of resampled rows the model consumes.
func (d *EntryDetector) WindowLen() int { return d.meta.WindowLen }

// MaybeScore returns the entry probability for the window ending at now.
// ok is false when rate-limited or when there is not enough data yet.
func (d *EntryDetector) MaybeScore(now float64) (prob float64, ok bool) {
	if d.haveInfer && now-d.lastInfer < d.meta.StepSec {
		return 0, false
	}
	if d.buf.Len() < d.meta.WindowLen {
		return 0, false
	}

	start := now - d.meta.WindowSec
	w := d.buf.Range(start, now)
	if w.Len() < 2 {
		return 0, false
	}

	x, ok := motion.Resample(w.Times, w.Column(d.meta.Channels), start, d.meta.SampleRate, d.meta.WindowLen, d.meta.Norm.Clip)
	if !ok {
		return 0, false
	}

	prob, err := d.model.Score(d.meta.Norm.Apply(x))
	if err != nil {
		d.log.Warn("entry model failed", zap.Error(err))
		return 0, false
	}
	d.lastInfer = now
	d.haveInfer = true
	return prob, true
}

// Reset clears the rate-limit clock so the next call scores immediately.
func (d *EntryDetector) Reset() {
	d.haveInfer = false
	d.lastInfer = 0
}

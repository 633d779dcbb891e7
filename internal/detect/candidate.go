// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package detect

import (
	"math"

	"go.uber.org/zap"

	"github.com/relabs-tech/imu_gesture/internal/model"
	"github.com/relabs-tech/imu_gesture/internal/motion"
)

// Result is the winning candidate of one collection window.
type Result struct {
	ClassID    int
	Name       string
	Confidence float64
	Candidates int // sub-windows scored
}

// CandidateClassifier scores every model-length alignment inside a
// collection window and keeps the most confident one.
type CandidateClassifier struct {
	model model.GestureModel
	meta  model.Meta
	buf   *motion.Buffer
	log   *zap.Logger
}

func NewCandidateClassifier(m model.GestureModel, buf *motion.Buffer, log *zap.Logger) *CandidateClassifier {
	return &CandidateClassifier{
		model: m,
		meta:  m.Meta(),
		buf:   buf,
		log:   log,
	}
}

// SeqLen is the model's required sequence length.
func (c *CandidateClassifier) SeqLen() int { return c.meta.WindowLen }

// Classify resamples [tStart, tEnd] at targetFS and returns the best
// candidate. ok is false when the span holds too little data.
func (c *CandidateClassifier) Classify(tStart, tEnd, stepSec, targetFS float64) (Result, bool) {
	w := c.buf.Range(tStart, tEnd)
	if w.Len() < 2 {
		return Result{}, false
	}
	seq, ok := motion.ResampleSpan(w.Times, w.Column(c.meta.Channels), tStart, tEnd, targetFS, c.meta.Norm.Clip)
	if !ok || len(seq) < 2 {
		return Result{}, false
	}

	winLen := c.meta.WindowLen
	if len(seq) < winLen {
		id, conf, ok := c.score(motion.CenterFit(seq, winLen))
		if !ok {
			return Result{}, false
		}
		return Result{ClassID: id, Name: c.meta.ClassName(id), Confidence: conf, Candidates: 1}, true
	}

	step := int(math.RoundToEven(stepSec * targetFS))
	if step < 1 {
		step = 1
	}

	best := Result{ClassID: -1, Confidence: -1}
	for start := 0; start+winLen <= len(seq); start += step {
		id, conf, ok := c.score(seq[start : start+winLen])
		if !ok {
			continue
		}
		best.Candidates++
		if conf > best.Confidence {
			best.ClassID = id
			best.Confidence = conf
		}
	}
	if best.ClassID < 0 {
		return Result{}, false
	}
	best.Name = c.meta.ClassName(best.ClassID)
	return best, true
}

// score returns the arg-max class and its probability for one window.
func (c *CandidateClassifier) score(window [][]float64) (int, float64, bool) {
	probs, err := c.model.Classify(c.meta.Norm.Apply(window))
	if err != nil {
		c.log.Warn("gesture model failed", zap.Error(err))
		return 0, 0, false
	}
	if len(probs) == 0 {
		return 0, 0, false
	}
	id := 0
	for i, p := range probs {
		if p > probs[id] {
			id = i
		}
	}
	return id, probs[id], true
}

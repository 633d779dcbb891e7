// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package model

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/relabs-tech/imu_gesture/internal/imu"
	"github.com/relabs-tech/imu_gesture/internal/motion"
)

const (
	defaultTargetFS = 50.0
	defaultNormEps  = 1e-6
)

// artifact is the on-disk JSON checkpoint.
type artifact struct {
	ModelType         string            `json:"model_type"`
	InputShape        []int             `json:"input_shape"` // [T, C]
	SeqLen            int               `json:"seq_len"`
	WindowSec         float64           `json:"window_sec"`
	StepSec           float64           `json:"step_sec"`
	Threshold         float64           `json:"threshold"`
	TargetFS          float64           `json:"target_fs"`
	DetectionChannels []string          `json:"detection_channels"`
	NormMean          []float64         `json:"norm_mean"`
	NormStd           []float64         `json:"norm_std"`
	NormEps           *float64          `json:"norm_eps"`
	NormClip          float64           `json:"norm_clip_value"`
	NumClasses        int               `json:"num_classes"`
	ClassIDToName     map[string]string `json:"class_id_to_name"`
	Layers            []Dense           `json:"layers"`
}

// Load reads a model artifact and builds the network. Any missing or
// inconsistent metadata is an error; callers treat it as fatal.
func Load(path string) (*Network, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model %s: %w", path, err)
	}
	return Parse(raw)
}

// Parse decodes an artifact from memory.
func Parse(raw []byte) (*Network, error) {
	var a artifact
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, fmt.Errorf("decode model: %w", err)
	}
	meta, err := a.meta()
	if err != nil {
		return nil, err
	}
	return NewNetwork(meta, a.Layers)
}

func (a *artifact) meta() (Meta, error) {
	if len(a.InputShape) != 2 || a.InputShape[0] < 1 || a.InputShape[1] < 1 {
		return Meta{}, fmt.Errorf("model input_shape must be [T, C], got %v", a.InputShape)
	}
	chans, err := imu.ResolveChannels(a.DetectionChannels)
	if err != nil {
		return Meta{}, fmt.Errorf("model detection_channels: %w", err)
	}
	if len(chans) != a.InputShape[1] {
		return Meta{}, fmt.Errorf("model has %d detection channels but input_shape C=%d", len(chans), a.InputShape[1])
	}
	if len(a.NormMean) != len(chans) || len(a.NormStd) != len(chans) {
		return Meta{}, fmt.Errorf("model norm_mean/norm_std must have %d entries", len(chans))
	}

	m := Meta{
		Type:       a.ModelType,
		WindowLen:  a.InputShape[0],
		SampleRate: a.TargetFS,
		Channels:   chans,
		WindowSec:  a.WindowSec,
		StepSec:    a.StepSec,
		Threshold:  a.Threshold,
		NumClasses: a.NumClasses,
		ClassNames: make(map[int]string, len(a.ClassIDToName)),
		Norm: motion.Normalizer{
			Mean: a.NormMean,
			Std:  a.NormStd,
			Eps:  defaultNormEps,
			Clip: a.NormClip,
		},
	}
	if a.SeqLen > 0 {
		m.WindowLen = a.SeqLen
	}
	if m.SampleRate <= 0 {
		m.SampleRate = defaultTargetFS
	}
	if a.NormEps != nil {
		m.Norm.Eps = *a.NormEps
	}
	if m.Norm.Clip <= 0 {
		m.Norm.Clip = motion.DefaultClip
	}
	if m.WindowSec <= 0 {
		m.WindowSec = float64(m.WindowLen) / m.SampleRate
	}
	for k, name := range a.ClassIDToName {
		id, err := strconv.Atoi(k)
		if err != nil {
			return Meta{}, fmt.Errorf("model class_id_to_name key %q: %w", k, err)
		}
		m.ClassNames[id] = name
	}
	return m, nil
}

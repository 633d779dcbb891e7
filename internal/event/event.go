// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package event defines the outbound notifications of a detection cycle
// and their wire records.
package event

import "time"

// Kind discriminates events; the value is the wire "type".
type Kind string

const (
	Stage1Detected    Kind = "stage1_detected"
	GestureRecognized Kind = "gesture_recognized"
	HoldExtended      Kind = "hold_extended"
	Stage2Cancelled   Kind = "stage2_cancelled"
	Command           Kind = "command" // wire record has no type, only "code"
)

// RemainingIndefinite is the hold_extended marker for "until motion resumes".
const RemainingIndefinite = -1.0

// Event is one notification. Only the fields relevant to Kind are set.
type Event struct {
	Kind       Kind
	CycleID    string
	Time       time.Time
	Duration   float64 // Stage1Detected: collection window seconds
	Gesture    string  // GestureRecognized
	ClassID    int
	Confidence float64
	Remaining  float64 // HoldExtended
	Code       string  // Command
}

// Sink receives events. Implementations must not block for long; the
// session calls them inline.
type Sink interface {
	Publish(ev Event)
}

// Fanout delivers every event to each sink in order.
type Fanout []Sink

func (f Fanout) Publish(ev Event) {
	for _, s := range f {
		if s != nil {
			s.Publish(ev)
		}
	}
}

// Wire records sent to the host application.

type stage1Record struct {
	Type     Kind    `json:"type"`
	Duration float64 `json:"duration"`
}

type recognizedRecord struct {
	Type       Kind    `json:"type"`
	Gesture    string  `json:"gesture"`
	Confidence float64 `json:"confidence"`
}

type holdRecord struct {
	Type      Kind    `json:"type"`
	Remaining float64 `json:"remaining"`
}

type cancelledRecord struct {
	Type Kind `json:"type"`
}

type commandRecord struct {
	Code string `json:"code"`
}

// HostRecord returns the value to JSON-encode for the host protocol.
func (ev Event) HostRecord() any {
	switch ev.Kind {
	case Stage1Detected:
		return stage1Record{Type: ev.Kind, Duration: ev.Duration}
	case GestureRecognized:
		return recognizedRecord{Type: ev.Kind, Gesture: ev.Gesture, Confidence: ev.Confidence}
	case HoldExtended:
		return holdRecord{Type: ev.Kind, Remaining: ev.Remaining}
	case Command:
		return commandRecord{Code: ev.Code}
	default:
		return cancelledRecord{Type: ev.Kind}
	}
}

// MirrorRecord is the richer record published on the MQTT mirror.
type MirrorRecord struct {
	Type       Kind     `json:"type"`
	CycleID    string   `json:"cycle_id"`
	Time       string   `json:"time"`
	Duration   *float64 `json:"duration,omitempty"`
	Gesture    string   `json:"gesture,omitempty"`
	ClassID    *int     `json:"class_id,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"`
	Remaining  *float64 `json:"remaining,omitempty"`
	Code       string   `json:"code,omitempty"`
}

// Mirror converts ev for the MQTT mirror.
func (ev Event) Mirror() MirrorRecord {
	r := MirrorRecord{
		Type:    ev.Kind,
		CycleID: ev.CycleID,
		Time:    ev.Time.UTC().Format(time.RFC3339Nano),
	}
	switch ev.Kind {
	case Stage1Detected:
		r.Duration = &ev.Duration
	case GestureRecognized:
		r.Gesture = ev.Gesture
		r.ClassID = &ev.ClassID
		r.Confidence = &ev.Confidence
	case HoldExtended:
		r.Remaining = &ev.Remaining
	case Command:
		r.Code = ev.Code
	}
	return r
}

// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package session implements the two-stage detection state machine:
// Idle -> (entry) -> Collecting -> (deadline) -> classify, dispatch -> Idle.
//
// A Machine is driven from a single goroutine. Every method takes the
// current monotonic time in seconds, so the machine never reads a clock
// itself.
package session

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/relabs-tech/imu_gesture/internal/detect"
	"github.com/relabs-tech/imu_gesture/internal/event"
)

// Haptic presets triggered by the machine.
const (
	PresetStage1Detected = "stage1_detected"
	PresetGestureSuccess = "gesture_success"
	PresetGestureFail    = "gesture_fail"
)

// stillChecksToHold is the number of consecutive still checks that
// confirm a deliberate hold.
const stillChecksToHold = 2

// Phase of the session.
type Phase int

const (
	Idle Phase = iota
	Collecting
)

func (p Phase) String() string {
	if p == Collecting {
		return "collecting"
	}
	return "idle"
}

// Collaborators.

type Buffer interface {
	Clear()
}

type EntryScorer interface {
	MaybeScore(now float64) (float64, bool)
	Reset()
}

type Classifier interface {
	Classify(tStart, tEnd, stepSec, targetFS float64) (detect.Result, bool)
}

type MotionMonitor interface {
	Magnitude() (accel, gyro float64)
}

type Haptics interface {
	Trigger(preset string) bool
}

// Params are the runtime parameters, fixed for the life of the machine.
type Params struct {
	Threshold   float64 // entry probability threshold
	CooldownSec float64
	CollectSec  float64 // base stage 2 window
	StepSec     float64 // stage 2 candidate stride
	TargetFS    float64

	HoldCheckInterval  float64
	HoldExtendSec      float64
	HoldAccelThreshold float64
	HoldGyroThreshold  float64

	Commands map[int]string // gesture id -> host command
}

// Deps bundles the collaborators handed to New.
type Deps struct {
	Buffer     Buffer
	Entry      EntryScorer
	Classifier Classifier
	Motion     MotionMonitor
	Events     event.Sink
	Haptics    Haptics
	Log        *zap.Logger
	NewID      func() string    // cycle ids; uuid when nil
	Wall       func() time.Time // event timestamps; time.Now when nil
}

// Machine owns the single Session of the process.
type Machine struct {
	p Params
	d Deps

	collecting    bool
	start         float64
	deadline      float64
	lastEntry     float64
	lastHoldCheck float64
	stillCount    int
	holding       bool
	cycleID       string
}

// New creates an idle machine.
func New(p Params, d Deps) *Machine {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.NewID == nil {
		d.NewID = uuid.NewString
	}
	if d.Wall == nil {
		d.Wall = time.Now
	}
	return &Machine{
		p:         p,
		d:         d,
		lastEntry: -1e9,
	}
}

func (m *Machine) Phase() Phase {
	if m.collecting {
		return Collecting
	}
	return Idle
}

// Deadline is the current collection deadline; zero when idle.
func (m *Machine) Deadline() float64 { return m.deadline }

// CollectionStart is when the current window opened; zero when idle.
func (m *Machine) CollectionStart() float64 { return m.start }

// CycleID identifies the open collection window.
func (m *Machine) CycleID() string { return m.cycleID }

// Holding reports whether a hold is currently confirmed.
func (m *Machine) Holding() bool { return m.holding }

// OnSample advances the machine after a sample received at now has been
// buffered.
func (m *Machine) OnSample(now float64) {
	if m.collecting && now-m.lastHoldCheck >= m.p.HoldCheckInterval {
		m.checkHold(now)
	}
	if m.collecting {
		m.checkDeadline(now)
		return
	}

	prob, ok := m.d.Entry.MaybeScore(now)
	if !ok || prob < m.p.Threshold {
		return
	}
	if now-m.lastEntry < m.p.CooldownSec {
		m.d.Log.Debug("entry ignored during cooldown",
			zap.Float64("prob", prob),
			zap.Float64("since_last", now-m.lastEntry))
		return
	}
	m.enter(now, prob)
}

// Poll re-checks the deadline when no sample arrived, so a stalled
// stream cannot hold a window open.
func (m *Machine) Poll(now float64) {
	if m.collecting {
		m.checkDeadline(now)
	}
}

// Cancel abandons an open window, e.g. on shutdown.
func (m *Machine) Cancel(now float64) {
	if !m.collecting {
		return
	}
	m.collecting = false
	m.d.Log.Info("stage 2 cancelled", zap.String("cycle_id", m.cycleID))
	m.publish(event.Event{Kind: event.Stage2Cancelled})
	m.finish(now)
}

func (m *Machine) enter(now, prob float64) {
	m.d.Buffer.Clear()
	m.d.Entry.Reset()

	m.collecting = true
	m.lastEntry = now
	m.start = now
	m.deadline = now + m.p.CollectSec
	m.resetHold()
	m.lastHoldCheck = now
	m.cycleID = m.d.NewID()

	m.d.Log.Info("entry gesture detected",
		zap.String("cycle_id", m.cycleID),
		zap.Float64("prob", prob),
		zap.Float64("collect_sec", m.p.CollectSec))

	m.publish(event.Event{Kind: event.Stage1Detected, Duration: m.p.CollectSec})
	m.d.Haptics.Trigger(PresetStage1Detected)
}

func (m *Machine) checkHold(now float64) {
	m.lastHoldCheck = now
	accel, gyro := m.d.Motion.Magnitude()
	still := accel < m.p.HoldAccelThreshold && gyro < m.p.HoldGyroThreshold
	if !still {
		m.stillCount = 0
		m.holding = false
		return
	}

	m.stillCount++
	if m.stillCount < stillChecksToHold {
		return
	}
	m.deadline = now + m.p.HoldExtendSec
	if m.holding {
		return
	}
	m.holding = true
	m.d.Log.Info("arm held still, extending window",
		zap.String("cycle_id", m.cycleID),
		zap.Float64("accel", accel),
		zap.Float64("gyro", gyro))
	m.publish(event.Event{Kind: event.HoldExtended, Remaining: event.RemainingIndefinite})
}

func (m *Machine) checkDeadline(now float64) {
	if now < m.deadline {
		return
	}
	// cleared before classifying so no other path can dispatch this window again
	m.collecting = false

	res, ok := m.d.Classifier.Classify(m.start, m.deadline, m.p.StepSec, m.p.TargetFS)
	if ok {
		m.d.Log.Info("gesture recognized",
			zap.String("cycle_id", m.cycleID),
			zap.Int("class_id", res.ClassID),
			zap.String("gesture", res.Name),
			zap.Float64("confidence", res.Confidence),
			zap.Int("candidates", res.Candidates))
		m.publish(event.Event{
			Kind:       event.GestureRecognized,
			Gesture:    res.Name,
			ClassID:    res.ClassID,
			Confidence: res.Confidence,
		})
		if cmd, mapped := m.p.Commands[res.ClassID]; mapped {
			m.publish(event.Event{Kind: event.Command, Code: cmd})
		}
		m.d.Haptics.Trigger(PresetGestureSuccess)
	} else {
		m.d.Log.Info("no valid candidate in window", zap.String("cycle_id", m.cycleID))
		m.d.Haptics.Trigger(PresetGestureFail)
	}
	m.finish(now)
}

// finish returns to Idle and starts the cooldown.
func (m *Machine) finish(now float64) {
	m.d.Buffer.Clear()
	m.d.Entry.Reset()
	m.lastEntry = now
	m.resetHold()
	m.start = 0
	m.deadline = 0
	m.cycleID = ""
}

func (m *Machine) resetHold() {
	m.stillCount = 0
	m.holding = false
}

func (m *Machine) publish(ev event.Event) {
	ev.CycleID = m.cycleID
	ev.Time = m.d.Wall()
	m.d.Events.Publish(ev)
}

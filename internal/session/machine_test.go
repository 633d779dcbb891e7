package session

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/imu_gesture/internal/detect"
	"github.com/relabs-tech/imu_gesture/internal/event"
	"github.com/relabs-tech/imu_gesture/internal/imu"
	"github.com/relabs-tech/imu_gesture/internal/motion"
)

// trace records events and haptic triggers in one ordered log.
type trace struct {
	entries []string
	events  []event.Event
}

func (t *trace) Publish(ev event.Event) {
	t.entries = append(t.entries, "event:"+string(ev.Kind))
	t.events = append(t.events, ev)
}

func (t *trace) Trigger(preset string) bool {
	t.entries = append(t.entries, "haptic:"+preset)
	return true
}

func (t *trace) count(kind event.Kind) int {
	n := 0
	for _, ev := range t.events {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

type scriptedEntry struct {
	prob   func(now float64) float64
	resets int
}

func (s *scriptedEntry) MaybeScore(now float64) (float64, bool) { return s.prob(now), true }
func (s *scriptedEntry) Reset()                                 { s.resets++ }

type classifyCall struct{ start, end, step, fs float64 }

type stubClassifier struct {
	res   detect.Result
	ok    bool
	calls []classifyCall
}

func (s *stubClassifier) Classify(tStart, tEnd, stepSec, targetFS float64) (detect.Result, bool) {
	s.calls = append(s.calls, classifyCall{tStart, tEnd, stepSec, targetFS})
	return s.res, s.ok
}

type stubMotion struct{ accel, gyro float64 }

func (s *stubMotion) Magnitude() (float64, float64) { return s.accel, s.gyro }

func (s *stubMotion) still()  { s.accel, s.gyro = 0.1, 0.05 }
func (s *stubMotion) moving() { s.accel, s.gyro = math.Inf(1), math.Inf(1) }

type rig struct {
	m      *Machine
	buf    *motion.Buffer
	entry  *scriptedEntry
	cls    *stubClassifier
	motion *stubMotion
	trace  *trace
}

func defaultParams() Params {
	return Params{
		Threshold:          0.8,
		CooldownSec:        2.0,
		CollectSec:         2.5,
		StepSec:            0.5,
		TargetFS:           50,
		HoldCheckInterval:  0.5,
		HoldExtendSec:      2.0,
		HoldAccelThreshold: 0.3,
		HoldGyroThreshold:  0.15,
		Commands:           map[int]string{3: "1", 6: "JUMP_BACK"},
	}
}

func newRig(p Params, prob func(float64) float64) *rig {
	r := &rig{
		buf:    motion.NewBuffer(256),
		entry:  &scriptedEntry{prob: prob},
		cls:    &stubClassifier{res: detect.Result{ClassID: 3, Name: "down", Confidence: 0.93, Candidates: 5}, ok: true},
		motion: &stubMotion{},
		trace:  &trace{},
	}
	r.motion.moving()
	ids := 0
	r.m = New(p, Deps{
		Buffer:     r.buf,
		Entry:      r.entry,
		Classifier: r.cls,
		Motion:     r.motion,
		Events:     r.trace,
		Haptics:    r.trace,
		NewID: func() string {
			ids++
			return fmt.Sprintf("cycle-%d", ids)
		},
		Wall: func() time.Time { return time.Unix(0, 0) },
	})
	return r
}

// feed buffers a sample at now and drives the machine with it.
func (r *rig) feed(now float64) {
	r.buf.Add(imu.Sample{Time: now})
	r.m.OnSample(now)
}

func always(p float64) func(float64) float64 { return func(float64) float64 { return p } }

func TestMachine_EntryAboveThresholdOpensWindow(t *testing.T) {
	r := newRig(defaultParams(), always(0.9))
	r.buf.Add(imu.Sample{Time: -0.1})
	r.buf.Add(imu.Sample{Time: -0.05})

	r.m.OnSample(0)

	require.Equal(t, Collecting, r.m.Phase())
	assert.Equal(t, 0, r.buf.Len(), "buffer is cleared on entry")
	assert.InDelta(t, 2.5, r.m.Deadline(), 1e-9)
	assert.Equal(t, 0.0, r.m.CollectionStart())
	assert.Equal(t, "cycle-1", r.m.CycleID())
	assert.Equal(t, []string{"event:stage1_detected", "haptic:stage1_detected"}, r.trace.entries)
	assert.InDelta(t, 2.5, r.trace.events[0].Duration, 1e-9)
	assert.Equal(t, "cycle-1", r.trace.events[0].CycleID)
}

func TestMachine_BelowThresholdStaysIdle(t *testing.T) {
	r := newRig(defaultParams(), always(0.79))
	for i := 0; i < 20; i++ {
		r.feed(float64(i) * 0.1)
	}
	assert.Equal(t, Idle, r.m.Phase())
	assert.Empty(t, r.trace.entries)
}

func TestMachine_CooldownSuppressesEntry(t *testing.T) {
	r := newRig(defaultParams(), always(0.9))

	r.feed(0)
	require.Equal(t, Collecting, r.m.Phase())
	r.m.Poll(2.5)
	require.Equal(t, Idle, r.m.Phase())

	// spikes within cooldown of the dispatch are ignored
	r.feed(3.0)
	r.feed(4.4)
	assert.Equal(t, Idle, r.m.Phase())
	assert.Equal(t, 1, r.trace.count(event.Stage1Detected))

	r.feed(4.5)
	assert.Equal(t, Collecting, r.m.Phase())
	assert.Equal(t, 4.5, r.m.CollectionStart())
	assert.InDelta(t, 7.0, r.m.Deadline(), 1e-9)
	assert.Equal(t, 2, r.trace.count(event.Stage1Detected))
}

func TestMachine_HoldExtendsRepeatedly(t *testing.T) {
	r := newRig(defaultParams(), always(0.9))
	r.feed(0)
	r.motion.still()

	r.feed(0.5)
	assert.InDelta(t, 2.5, r.m.Deadline(), 1e-9, "one still check is not a hold")
	assert.False(t, r.m.Holding())

	for now := 1.0; now <= 10.0; now += 0.5 {
		r.feed(now)
		require.Equal(t, Collecting, r.m.Phase(), "at %.1f", now)
		assert.InDelta(t, now+2.0, r.m.Deadline(), 1e-9, "deadline at %.1f", now)
	}
	assert.Equal(t, 1, r.trace.count(event.HoldExtended))
	assert.Empty(t, r.cls.calls)

	r.motion.moving()
	r.feed(10.5)
	assert.False(t, r.m.Holding())
	assert.InDelta(t, 12.0, r.m.Deadline(), 1e-9, "deadline keeps its last value")

	r.m.Poll(12.0)
	assert.Equal(t, Idle, r.m.Phase())
	require.Len(t, r.cls.calls, 1)
	assert.Equal(t, classifyCall{0, 12.0, 0.5, 50}, r.cls.calls[0])
}

func TestMachine_HoldCheckedOnlyEveryInterval(t *testing.T) {
	r := newRig(defaultParams(), always(0.9))
	r.feed(0)
	r.motion.still()

	// many samples but only one check interval elapsed
	for now := 0.02; now < 0.5; now += 0.02 {
		r.feed(now)
	}
	r.feed(0.5)
	assert.False(t, r.m.Holding())
	assert.InDelta(t, 2.5, r.m.Deadline(), 1e-9)
}

func TestMachine_MotionBreaksStillStreak(t *testing.T) {
	r := newRig(defaultParams(), always(0.9))
	r.feed(0)

	r.motion.still()
	r.feed(0.5)
	r.motion.moving()
	r.feed(1.0)
	r.motion.still()
	r.feed(1.5)
	assert.False(t, r.m.Holding())
	assert.InDelta(t, 2.5, r.m.Deadline(), 1e-9)

	r.feed(2.0)
	assert.True(t, r.m.Holding())
	assert.InDelta(t, 4.0, r.m.Deadline(), 1e-9)
}

func TestMachine_EndToEndRecognition(t *testing.T) {
	probs := map[float64]float64{0: 0.9}
	r := newRig(defaultParams(), func(now float64) float64 { return probs[now] })
	r.buf.Add(imu.Sample{Time: -0.02})

	r.feed(0)
	require.Equal(t, Collecting, r.m.Phase())

	r.motion.still()
	r.feed(0.5)
	r.feed(1.0)
	r.motion.moving()
	r.feed(1.5)
	r.feed(2.0)
	r.feed(2.5)
	require.Equal(t, Collecting, r.m.Phase(), "hold moved the deadline to 3.0")
	r.feed(3.0)

	assert.Equal(t, Idle, r.m.Phase())
	assert.Equal(t, 0, r.buf.Len())
	assert.Equal(t, []string{
		"event:stage1_detected",
		"haptic:stage1_detected",
		"event:hold_extended",
		"event:gesture_recognized",
		"event:command",
		"haptic:gesture_success",
	}, r.trace.entries)

	hold := r.trace.events[1]
	assert.Equal(t, event.RemainingIndefinite, hold.Remaining)

	rec := r.trace.events[2]
	assert.Equal(t, "down", rec.Gesture)
	assert.Equal(t, 3, rec.ClassID)
	assert.InDelta(t, 0.93, rec.Confidence, 1e-9)
	assert.Equal(t, "cycle-1", rec.CycleID)
	assert.Equal(t, "1", r.trace.events[3].Code)

	require.Len(t, r.cls.calls, 1)
	assert.Equal(t, classifyCall{0, 3.0, 0.5, 50}, r.cls.calls[0])
	assert.Equal(t, 2, r.entry.resets, "reset on entry and on dispatch")
	assert.Zero(t, r.m.CollectionStart())
	assert.Zero(t, r.m.Deadline())
	assert.Empty(t, r.m.CycleID())
}

func TestMachine_UnmappedGestureSendsNoCommand(t *testing.T) {
	r := newRig(defaultParams(), always(0.9))
	r.cls.res = detect.Result{ClassID: 4, Name: "circle_cw", Confidence: 0.7}

	r.feed(0)
	r.m.Poll(2.5)

	assert.Equal(t, 1, r.trace.count(event.GestureRecognized))
	assert.Zero(t, r.trace.count(event.Command))
	assert.Contains(t, r.trace.entries, "haptic:gesture_success")
}

func TestMachine_NoCandidateFails(t *testing.T) {
	r := newRig(defaultParams(), always(0.9))
	r.cls.ok = false

	r.feed(0)
	r.m.Poll(2.5)

	assert.Equal(t, Idle, r.m.Phase())
	assert.Zero(t, r.trace.count(event.GestureRecognized))
	assert.Equal(t, "haptic:gesture_fail", r.trace.entries[len(r.trace.entries)-1])
}

func TestMachine_DeadlineDispatchesExactlyOnce(t *testing.T) {
	r := newRig(defaultParams(), always(0.5))
	r.entry.prob = func(now float64) float64 {
		if now == 0 {
			return 0.9
		}
		return 0.5
	}
	r.feed(0)

	r.feed(2.5)
	r.m.Poll(2.5)
	r.m.Poll(2.6)
	r.feed(2.6)

	assert.Len(t, r.cls.calls, 1)
	assert.Equal(t, 1, r.trace.count(event.GestureRecognized))
}

func TestMachine_PollBeforeDeadlineIsNoop(t *testing.T) {
	r := newRig(defaultParams(), always(0.9))
	r.feed(0)
	r.m.Poll(2.49)
	assert.Equal(t, Collecting, r.m.Phase())
	assert.Empty(t, r.cls.calls)
}

func TestMachine_Cancel(t *testing.T) {
	r := newRig(defaultParams(), always(0.9))

	r.m.Cancel(0)
	assert.Empty(t, r.trace.entries, "cancel while idle does nothing")

	r.feed(0)
	r.feed(1.0)
	r.m.Cancel(1.2)

	assert.Equal(t, Idle, r.m.Phase())
	assert.Equal(t, 0, r.buf.Len())
	assert.Empty(t, r.cls.calls)
	require.Equal(t, 1, r.trace.count(event.Stage2Cancelled))
	last := r.trace.events[len(r.trace.events)-1]
	assert.Equal(t, event.Stage2Cancelled, last.Kind)
	assert.Equal(t, "cycle-1", last.CycleID)
}

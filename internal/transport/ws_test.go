package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/relabs-tech/imu_gesture/internal/event"
)

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// host is a fake host application. It records every text frame and runs
// onConnect for each new connection before reading.
type host struct {
	srv       *httptest.Server
	mu        sync.Mutex
	received  []string
	connects  int
	onConnect func(conn *websocket.Conn, n int)
}

func newHost(t *testing.T, onConnect func(conn *websocket.Conn, n int)) *host {
	h := &host{onConnect: onConnect}
	h.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		h.mu.Lock()
		h.connects++
		n := h.connects
		h.mu.Unlock()
		if h.onConnect != nil {
			h.onConnect(conn, n)
		}
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			h.mu.Lock()
			h.received = append(h.received, string(msg))
			h.mu.Unlock()
		}
	}))
	t.Cleanup(h.srv.Close)
	return h
}

func (h *host) url() string { return "ws" + strings.TrimPrefix(h.srv.URL, "http") }

func (h *host) messages() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.received...)
}

func (h *host) connections() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.connects
}

func TestDispatcher_WireRecords(t *testing.T) {
	h := newHost(t, nil)
	d := NewDispatcher(h.url(), time.Second, zap.NewNop())
	defer d.Close()

	d.Publish(event.Event{Kind: event.Stage1Detected, Duration: 2.5})
	d.Publish(event.Event{Kind: event.HoldExtended, Remaining: event.RemainingIndefinite})
	d.Publish(event.Event{Kind: event.GestureRecognized, Gesture: "down", ClassID: 3, Confidence: 0.5})
	d.Publish(event.Event{Kind: event.Command, Code: "1"})

	want := []string{
		`{"type":"stage1_detected","duration":2.5}`,
		`{"type":"hold_extended","remaining":-1}`,
		`{"type":"gesture_recognized","gesture":"down","confidence":0.5}`,
		`{"code":"1"}`,
	}
	require.Eventually(t, func() bool { return len(h.messages()) == len(want) }, 2*time.Second, 10*time.Millisecond)
	for i, msg := range h.messages() {
		assert.JSONEq(t, want[i], msg)
	}
	assert.Equal(t, 1, h.connections())
}

func TestDispatcher_HostDownDropsMessage(t *testing.T) {
	h := newHost(t, nil)
	url := h.url()
	h.srv.Close()

	d := NewDispatcher(url, 100*time.Millisecond, zap.NewNop())
	start := time.Now()
	assert.False(t, d.Send(map[string]string{"code": "1"}))
	assert.Less(t, time.Since(start), 500*time.Millisecond, "a dead host must not stall the caller")
	assert.False(t, d.Connected())
}

func TestDispatcher_ReconnectsAfterFailure(t *testing.T) {
	h := newHost(t, nil)
	d := NewDispatcher(h.url(), time.Second, zap.NewNop())
	defer d.Close()

	require.True(t, d.Send(map[string]string{"code": "a"}))

	// simulate the socket dying underneath us
	d.conn.Close()
	assert.False(t, d.Send(map[string]string{"code": "lost"}))
	assert.False(t, d.Connected())

	require.True(t, d.Send(map[string]string{"code": "b"}))
	require.Eventually(t, func() bool { return len(h.messages()) == 2 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 2, h.connections())
	assert.JSONEq(t, `{"code":"b"}`, h.messages()[1])
}

type triggerLog struct {
	mu      sync.Mutex
	presets []string
}

func (l *triggerLog) Trigger(preset string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.presets = append(l.presets, preset)
	return true
}

func (l *triggerLog) got() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.presets...)
}

func TestHapticReceiver_RelaysRequests(t *testing.T) {
	h := newHost(t, func(conn *websocket.Conn, n int) {
		conn.WriteMessage(websocket.TextMessage, []byte("not json"))
		conn.WriteJSON(map[string]string{"type": "slide_changed", "preset": "ocr_start"})
		conn.WriteJSON(map[string]string{"type": "haptic_request"})
		conn.WriteJSON(map[string]string{"type": "haptic_request", "preset": "calibration_done"})
	})
	rec := &triggerLog{}
	r := NewHapticReceiver(h.url(), time.Second, 50*time.Millisecond, rec, zap.NewNop())
	r.Start(testContext(t))

	require.Eventually(t, func() bool { return len(rec.got()) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"calibration_done"}, rec.got())
	assert.True(t, r.Stop(2*time.Second))
}

func TestHapticReceiver_ReconnectsAfterClose(t *testing.T) {
	h := newHost(t, func(conn *websocket.Conn, n int) {
		conn.WriteJSON(map[string]string{"type": "haptic_request", "preset": "gesture_fail"})
		if n == 1 {
			conn.Close()
		}
	})
	rec := &triggerLog{}
	r := NewHapticReceiver(h.url(), time.Second, 20*time.Millisecond, rec, zap.NewNop())
	r.Start(testContext(t))
	defer r.Stop(2 * time.Second)

	require.Eventually(t, func() bool { return h.connections() >= 2 && len(rec.got()) >= 2 }, 3*time.Second, 10*time.Millisecond)
}

func TestHapticReceiver_StopWhileHostDown(t *testing.T) {
	h := newHost(t, nil)
	url := h.url()
	h.srv.Close()

	r := NewHapticReceiver(url, 100*time.Millisecond, time.Hour, &triggerLog{}, zap.NewNop())
	r.Start(testContext(t))
	time.Sleep(50 * time.Millisecond)
	assert.True(t, r.Stop(2*time.Second))
}

// testContext stands in for testing.T.Context (Go 1.24+): it is canceled
// when the test finishes.
func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}

// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package app wires the internal packages into the runnable binaries.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/relabs-tech/imu_gesture/internal/config"
	"github.com/relabs-tech/imu_gesture/internal/detect"
	"github.com/relabs-tech/imu_gesture/internal/event"
	"github.com/relabs-tech/imu_gesture/internal/model"
	"github.com/relabs-tech/imu_gesture/internal/motion"
	"github.com/relabs-tech/imu_gesture/internal/session"
	"github.com/relabs-tech/imu_gesture/internal/transport"
)

// receiverStopTimeout bounds the wait for the haptic receiver on shutdown.
const receiverStopTimeout = 2 * time.Second

// controller owns every resource of the gesture pipeline. Only run's
// goroutine touches the session, buffer and dispatcher.
type controller struct {
	cfg *config.Config
	log *zap.Logger

	start time.Time

	listener   *transport.Listener
	buf        *motion.Buffer
	haptics    *transport.HapticSender
	receiver   *transport.HapticReceiver
	dispatcher *transport.Dispatcher
	mqtt       mqtt.Client
	machine    *session.Machine

	nextStats   time.Time
	lastPackets uint64
}

// RunGestureController runs the detection pipeline until ctx is done.
func RunGestureController(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	c, err := newController(cfg, log)
	if err != nil {
		return err
	}
	defer c.close()

	c.receiver.Start(ctx)
	return c.run(ctx)
}

func newController(cfg *config.Config, log *zap.Logger) (*controller, error) {
	entryNet, err := model.Load(cfg.Stage1Checkpoint)
	if err != nil {
		return nil, fmt.Errorf("load stage 1 model: %w", err)
	}
	if entryNet.Outputs() != 1 {
		return nil, fmt.Errorf("stage 1 model must have a single output, has %d", entryNet.Outputs())
	}
	gestureNet, err := model.Load(cfg.Stage2Checkpoint)
	if err != nil {
		return nil, fmt.Errorf("load stage 2 model: %w", err)
	}
	if gestureNet.Outputs() < 2 {
		return nil, fmt.Errorf("stage 2 model must have at least 2 outputs, has %d", gestureNet.Outputs())
	}
	entryMeta, gestureMeta := entryNet.Meta(), gestureNet.Meta()

	threshold := cfg.Stage1Threshold
	if threshold == 0 {
		threshold = entryMeta.Threshold
	}
	log.Info("models loaded",
		zap.String("stage1_type", entryMeta.Type),
		zap.Int("stage1_window", entryMeta.WindowLen),
		zap.Float64("stage1_threshold", threshold),
		zap.String("stage2_type", gestureMeta.Type),
		zap.Int("stage2_window", gestureMeta.WindowLen),
		zap.Int("stage2_classes", gestureNet.Outputs()),
		zap.Float64("sample_rate", gestureMeta.SampleRate))

	commands := cfg.GestureCommands()
	for _, gc := range model.Catalogue(gestureMeta, commands) {
		log.Debug("gesture", zap.Int("id", gc.ID), zap.String("name", gc.Name), zap.String("command", gc.Command))
	}

	c := &controller{cfg: cfg, log: log, start: time.Now()}

	c.listener, err = transport.Listen(cfg.UDPIP, cfg.UDPPort, c.clock, log.Named("udp"))
	if err != nil {
		return nil, err
	}

	c.buf = motion.NewBuffer(max(entryMeta.WindowLen, gestureMeta.WindowLen) * cfg.BufferHistoryFactor)
	c.haptics = transport.NewHapticSender(cfg.HapticPort, log.Named("haptic"))
	c.receiver = transport.NewHapticReceiver(cfg.WSURL, cfg.WSDialTimeout(), cfg.HapticRetryDelay(), c.haptics, log.Named("haptic_rx"))
	c.dispatcher = transport.NewDispatcher(cfg.WSURL, cfg.WSDialTimeout(), log.Named("dispatcher"))
	if err := c.dispatcher.Connect(); err != nil {
		log.Warn("host not reachable yet, will retry on first event", zap.String("url", cfg.WSURL), zap.Error(err))
	}

	sinks := event.Fanout{c.dispatcher}
	if cfg.MQTTBroker != "" {
		client, err := transport.ConnectMQTT(cfg.MQTTBroker, cfg.MQTTClientID)
		if err != nil {
			log.Warn("event mirror disabled", zap.Error(err))
		} else {
			log.Info("event mirror enabled", zap.String("broker", cfg.MQTTBroker), zap.String("topic", cfg.TopicGestureEvents))
			c.mqtt = client
			sinks = append(sinks, transport.NewMQTTMirror(client, cfg.TopicGestureEvents, log.Named("mirror")))
		}
	}

	c.machine = session.New(session.Params{
		Threshold:          threshold,
		CooldownSec:        cfg.CooldownSec,
		CollectSec:         cfg.CollectionSec,
		StepSec:            cfg.StepSec,
		TargetFS:           gestureMeta.SampleRate,
		HoldCheckInterval:  cfg.HoldCheckInterval,
		HoldExtendSec:      cfg.HoldExtendSec,
		HoldAccelThreshold: cfg.HoldAccelThreshold,
		HoldGyroThreshold:  cfg.HoldGyroThreshold,
		Commands:           commands,
	}, session.Deps{
		Buffer:     c.buf,
		Entry:      detect.NewEntryDetector(entryNet, c.buf, log.Named("stage1")),
		Classifier: detect.NewCandidateClassifier(gestureNet, c.buf, log.Named("stage2")),
		Motion:     motion.NewMonitor(c.buf, cfg.HoldWindowSec),
		Events:     sinks,
		Haptics:    c.haptics,
		Log:        log.Named("session"),
	})
	return c, nil
}

// clock is the monotonic receipt time in seconds since startup.
func (c *controller) clock() float64 {
	return time.Since(c.start).Seconds()
}

// run is the single-goroutine receive/poll loop. A panic is turned into
// an error so the deferred teardown still runs.
func (c *controller) run(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("main loop panic", zap.Any("panic", r), zap.Stack("stack"))
			err = fmt.Errorf("main loop panic: %v", r)
		}
	}()

	c.log.Info("gesture controller running",
		zap.Stringer("udp", c.listener.Addr()),
		zap.Int("haptic_port", c.cfg.HapticPort),
		zap.String("host", c.cfg.WSURL),
		zap.Int("buffer", c.buf.Cap()))
	c.nextStats = time.Now().Add(c.cfg.StatsInterval())

	timeout := c.cfg.PollTimeout()
	for {
		if ctx.Err() != nil {
			c.machine.Cancel(c.clock())
			c.log.Info("gesture controller stopping")
			return nil
		}

		s, ok, err := c.listener.Receive(timeout)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return fmt.Errorf("udp listener closed: %w", err)
			}
			c.log.Warn("udp receive error", zap.Error(err))
			continue
		}
		if !ok {
			c.machine.Poll(c.clock())
		} else {
			c.haptics.SetPeer(s.Source)
			c.buf.Add(s)
			c.machine.OnSample(s.Time)
		}
		c.logStats()
	}
}

func (c *controller) logStats() {
	now := time.Now()
	if now.Before(c.nextStats) {
		return
	}
	interval := c.cfg.StatsInterval()
	st := c.listener.Stats()
	c.log.Info("udp stats",
		zap.Uint64("packets", st.Packets),
		zap.Uint64("malformed", st.Malformed),
		zap.Float64("rate_hz", float64(st.Packets-c.lastPackets)/interval.Seconds()),
		zap.Int("buffered", c.buf.Len()),
		zap.Stringer("phase", c.machine.Phase()),
		zap.String("peer", c.haptics.Peer()))
	c.lastPackets = st.Packets
	c.nextStats = now.Add(interval)
}

// close stops sample input first, then the outbound channels.
func (c *controller) close() {
	if err := c.listener.Close(); err != nil {
		c.log.Debug("close udp listener", zap.Error(err))
	}
	c.receiver.Stop(receiverStopTimeout)
	if err := c.dispatcher.Close(); err != nil {
		c.log.Debug("close dispatcher", zap.Error(err))
	}
	if err := c.haptics.Close(); err != nil {
		c.log.Debug("close haptic socket", zap.Error(err))
	}
	if c.mqtt != nil {
		c.mqtt.Disconnect(250)
	}
}

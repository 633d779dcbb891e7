// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/relabs-tech/imu_gesture/internal/config"
	"github.com/relabs-tech/imu_gesture/internal/event"
	"github.com/relabs-tech/imu_gesture/internal/transport"
)

// RunConsoleMQTT prints every mirrored gesture event to out until ctx is done.
func RunConsoleMQTT(ctx context.Context, cfg *config.Config, log *zap.Logger, out io.Writer) error {
	if err := cfg.RequireMQTT(); err != nil {
		return err
	}
	client, err := transport.ConnectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDConsole)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)
	log.Info("connected to MQTT broker", zap.String("broker", cfg.MQTTBroker))

	token := client.Subscribe(cfg.TopicGestureEvents, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var rec event.MirrorRecord
		if err := json.Unmarshal(msg.Payload(), &rec); err != nil {
			log.Warn("event unmarshal error", zap.Error(err))
			return
		}
		fmt.Fprintln(out, formatEvent(rec))
	})
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	log.Info("subscribed", zap.String("topic", cfg.TopicGestureEvents))

	<-ctx.Done()
	log.Info("console shutting down")
	return nil
}

// formatEvent renders one console line per event.
func formatEvent(rec event.MirrorRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s ", rec.Time)
	switch rec.Type {
	case event.Stage1Detected:
		b.WriteString("[ENTRY]  collecting")
		if rec.Duration != nil {
			fmt.Fprintf(&b, " for %.1fs", *rec.Duration)
		}
	case event.HoldExtended:
		b.WriteString("[HOLD]   window extended while still")
	case event.GestureRecognized:
		fmt.Fprintf(&b, "[GESTURE] %s", rec.Gesture)
		if rec.ClassID != nil {
			fmt.Fprintf(&b, " (id=%d)", *rec.ClassID)
		}
		if rec.Confidence != nil {
			fmt.Fprintf(&b, " conf=%.2f", *rec.Confidence)
		}
	case event.Command:
		fmt.Fprintf(&b, "[CMD]    %s", rec.Code)
	case event.Stage2Cancelled:
		b.WriteString("[CANCEL] collection abandoned")
	default:
		fmt.Fprintf(&b, "[%s]", rec.Type)
	}
	if rec.CycleID != "" {
		fmt.Fprintf(&b, "  cycle=%s", rec.CycleID)
	}
	return b.String()
}

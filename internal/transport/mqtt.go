// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package transport

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/relabs-tech/imu_gesture/internal/event"
)

// ConnectMQTT connects a paho client and waits for the broker.
func ConnectMQTT(broker, clientID string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(5 * time.Second)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", broker, token.Error())
	}
	return client, nil
}

// Publisher is the part of mqtt.Client the mirror uses.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTTMirror republishes every event on an MQTT topic for operator tools.
type MQTTMirror struct {
	client Publisher
	topic  string
	log    *zap.Logger
}

func NewMQTTMirror(client Publisher, topic string, log *zap.Logger) *MQTTMirror {
	return &MQTTMirror{client: client, topic: topic, log: log}
}

// Publish implements event.Sink. It does not wait for the broker.
func (m *MQTTMirror) Publish(ev event.Event) {
	payload, err := json.Marshal(ev.Mirror())
	if err != nil {
		m.log.Warn("mirror marshal error", zap.Error(err))
		return
	}
	token := m.client.Publish(m.topic, 0, false, payload)
	go func() {
		if token.WaitTimeout(5*time.Second) && token.Error() != nil {
			m.log.Warn("mirror publish error", zap.String("topic", m.topic), zap.Error(token.Error()))
		}
	}()
}

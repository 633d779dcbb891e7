// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/relabs-tech/imu_gesture/internal/config"
	"github.com/relabs-tech/imu_gesture/internal/event"
	"github.com/relabs-tech/imu_gesture/internal/transport"
)

// gestureStatus keeps the latest mirrored events for the status API.
type gestureStatus struct {
	mu          sync.RWMutex
	lastEvent   *event.MirrorRecord
	lastGesture *event.MirrorRecord
	events      uint64
}

func (s *gestureStatus) update(rec event.MirrorRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events++
	s.lastEvent = &rec
	if rec.Type == event.GestureRecognized {
		s.lastGesture = &rec
	}
}

type statusResponse struct {
	Events      uint64              `json:"events"`
	LastEvent   *event.MirrorRecord `json:"last_event"`
	LastGesture *event.MirrorRecord `json:"last_gesture"`
}

func (s *gestureStatus) handler(log *zap.Logger) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/gesture", func(w http.ResponseWriter, r *http.Request) {
		s.mu.RLock()
		defer s.mu.RUnlock()

		if s.lastEvent == nil {
			http.Error(w, "no data yet", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		resp := statusResponse{Events: s.events, LastEvent: s.lastEvent, LastGesture: s.lastGesture}
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			log.Warn("json encode error", zap.Error(err))
		}
	})
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})
	return mux
}

// RunWeb serves the latest mirrored gesture events over HTTP.
func RunWeb(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	if err := cfg.RequireMQTT(); err != nil {
		return err
	}
	status := &gestureStatus{}

	client, err := transport.ConnectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDWeb)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)
	log.Info("connected to MQTT broker", zap.String("broker", cfg.MQTTBroker))

	token := client.Subscribe(cfg.TopicGestureEvents, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var rec event.MirrorRecord
		if err := json.Unmarshal(msg.Payload(), &rec); err != nil {
			log.Warn("MQTT payload unmarshal error", zap.Error(err))
			return
		}
		status.update(rec)
	})
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	log.Info("subscribed", zap.String("topic", cfg.TopicGestureEvents))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.WebServerPort),
		Handler:           status.handler(log),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Info("web server listening", zap.String("addr", srv.Addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/relabs-tech/imu_gesture/internal/app"
	"github.com/relabs-tech/imu_gesture/internal/config"
	"github.com/relabs-tech/imu_gesture/internal/logging"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to configuration file")
	flag.Parse()

	cfg, found, err := config.LoadOrDefault(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, "gesture_controller")
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	if !found {
		logger.Warn("config file not found, using defaults", zap.String("path", *configPath))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	logger.Info("starting imu gesture controller (UDP -> gestures -> host)")
	err = app.RunGestureController(ctx, cfg, logger)
	stop()
	if err != nil {
		logger.Error("fatal", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
	logger.Sync()
}

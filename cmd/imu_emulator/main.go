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
	"time"

	"go.uber.org/zap"

	"github.com/relabs-tech/imu_gesture/internal/app"
	"github.com/relabs-tech/imu_gesture/internal/logging"
)

func main() {
	target := flag.String("target", "127.0.0.1:65000", "controller UDP address")
	rate := flag.Float64("rate", 100, "frames per second")
	swing := flag.Duration("swing", 3*time.Second, "interval between synthetic swing bursts")
	level := flag.String("log-level", "info", "debug, info, warn or error")
	flag.Parse()

	if *rate <= 0 {
		log.Fatalf("rate must be positive, got %g", *rate)
	}
	logger, err := logging.New(*level, "console", "imu_emulator")
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	period := time.Duration(float64(time.Second) / *rate)
	if err := app.RunEmulator(ctx, *target, period, *swing, logger); err != nil {
		logger.Fatal("fatal", zap.Error(err))
	}
}

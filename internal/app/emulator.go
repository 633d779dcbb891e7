// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/relabs-tech/imu_gesture/internal/imu"
)

// RunEmulator streams synthetic IMU frames to target (host:port) every
// period until ctx is done, with a swing burst every swingEvery. It stands
// in for the watch on a bench.
func RunEmulator(ctx context.Context, target string, period, swingEvery time.Duration, log *zap.Logger) error {
	return runEmulator(ctx, target, period, imu.NewMockSource(swingEvery), log)
}

func runEmulator(ctx context.Context, target string, period time.Duration, src imu.Source, log *zap.Logger) error {
	addr, err := net.ResolveUDPAddr("udp", target)
	if err != nil {
		return fmt.Errorf("resolve target: %w", err)
	}
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return fmt.Errorf("dial target: %w", err)
	}
	defer conn.Close()
	log.Info("emulating imu stream", zap.Stringer("target", addr), zap.Duration("period", period))

	ticker := time.NewTicker(period)
	defer ticker.Stop()

	var sent uint64
	for {
		select {
		case <-ctx.Done():
			log.Info("emulator stopped", zap.Uint64("frames", sent))
			return nil
		case <-ticker.C:
		}

		frame, err := src.Next()
		if err != nil {
			return err
		}
		if _, err := conn.Write(imu.EncodeFrame(frame)); err != nil {
			// the controller may simply not be up yet
			log.Debug("send failed", zap.Error(err))
			continue
		}
		sent++
	}
}

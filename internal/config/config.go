// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultPath is where the binaries look for their configuration.
const DefaultPath = "gesture_config.txt"

const gestureMapPrefix = "GESTURE_MAP_"

// Config holds all application configuration values. It is built once at
// startup and passed explicitly to the components that need it.
type Config struct {
	// Sample transport
	UDPIP      string
	UDPPort    int
	HapticPort int

	// Models
	Stage1Checkpoint string
	Stage2Checkpoint string
	Stage1Threshold  float64 // 0 = use the threshold stored in the artifact

	// Session
	CooldownSec   float64
	CollectionSec float64
	StepSec       float64

	// Hold detection
	HoldAccelThreshold float64
	HoldGyroThreshold  float64
	HoldExtendSec      float64
	HoldCheckInterval  float64 // seconds between stillness checks
	HoldWindowSec      float64 // motion spread window

	// Main loop
	PollTimeoutMS       int
	BufferHistoryFactor int

	// Host application
	WSURL              string
	WSDialTimeoutMS    int
	HapticRetryDelayMS int

	// MQTT mirror; empty broker disables it
	MQTTBroker          string
	MQTTClientID        string
	MQTTClientIDConsole string
	MQTTClientIDWeb     string
	TopicGestureEvents  string

	// Web Server
	WebServerPort int

	// Logging
	StatsLogInterval int // milliseconds
	LogLevel         string
	LogFormat        string

	// GestureMap maps gesture class ids to host command codes.
	GestureMap map[int]string
}

// defaultGestureMap is the presentation-remote layout.
var defaultGestureMap = []string{
	"3", "4", "0", "1", "5", "8",
	"JUMP_BACK", "JUMP_FORWARD",
	"2", "6",
	"COLOR_PREV", "COLOR_NEXT",
	"TIMER_TOGGLE", "CALIBRATE", "BLACKOUT",
}

// Default returns the built-in configuration.
func Default() *Config {
	gm := make(map[int]string, len(defaultGestureMap))
	for id, cmd := range defaultGestureMap {
		gm[id] = cmd
	}
	return &Config{
		UDPIP:      "0.0.0.0",
		UDPPort:    65000,
		HapticPort: 65010,

		Stage1Checkpoint: "./models/stage1_best.json",
		Stage2Checkpoint: "./models/stage2_best.json",

		CooldownSec:   2.0,
		CollectionSec: 2.5,
		StepSec:       0.5,

		HoldAccelThreshold: 0.3,
		HoldGyroThreshold:  0.15,
		HoldExtendSec:      2.0,
		HoldCheckInterval:  0.5,
		HoldWindowSec:      0.3,

		PollTimeoutMS:       10,
		BufferHistoryFactor: 4,

		WSURL:              "ws://127.0.0.1:17890",
		WSDialTimeoutMS:    100,
		HapticRetryDelayMS: 2000,

		MQTTClientID:        "imu-gesture-controller",
		MQTTClientIDConsole: "imu-gesture-console",
		MQTTClientIDWeb:     "imu-gesture-web",
		TopicGestureEvents:  "gesture/events",

		WebServerPort: 8080,

		StatsLogInterval: 10000,
		LogLevel:         "info",
		LogFormat:        "console",

		GestureMap: gm,
	}
}

// Load reads the configuration file on top of the defaults.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()
	return Parse(file)
}

// LoadOrDefault behaves like Load but falls back to Default when the file
// does not exist. found reports whether the file was read.
func LoadOrDefault(configPath string) (cfg *Config, found bool, err error) {
	cfg, err = Load(configPath)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return cfg, true, nil
}

// Parse reads KEY=VALUE lines from r on top of the defaults.
func Parse(r io.Reader) (*Config, error) {
	cfg := Default()
	scanner := bufio.NewScanner(r)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parseInt(key, value string) (int, error) {
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return v, nil
}

func parseFloat(key, value string) (float64, error) {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return v, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	if strings.HasPrefix(key, gestureMapPrefix) {
		id, err := strconv.Atoi(strings.TrimPrefix(key, gestureMapPrefix))
		if err != nil || id < 0 {
			return fmt.Errorf("invalid gesture id in %q", key)
		}
		if value == "" {
			delete(c.GestureMap, id)
		} else {
			c.GestureMap[id] = value
		}
		return nil
	}

	var err error
	switch key {
	// Sample transport
	case "UDP_IP":
		c.UDPIP = value
	case "UDP_PORT":
		c.UDPPort, err = parseInt(key, value)
	case "HAPTIC_PORT":
		c.HapticPort, err = parseInt(key, value)

	// Models
	case "STAGE1_CHECKPOINT":
		c.Stage1Checkpoint = value
	case "STAGE2_CHECKPOINT":
		c.Stage2Checkpoint = value
	case "STAGE1_THRESHOLD":
		c.Stage1Threshold, err = parseFloat(key, value)

	// Session
	case "COOLDOWN_SEC":
		c.CooldownSec, err = parseFloat(key, value)
	case "STAGE2_COLLECTION_SEC":
		c.CollectionSec, err = parseFloat(key, value)
	case "STAGE2_STEP_SEC":
		c.StepSec, err = parseFloat(key, value)

	// Hold detection
	case "HOLD_ACCEL_THRESHOLD":
		c.HoldAccelThreshold, err = parseFloat(key, value)
	case "HOLD_GYRO_THRESHOLD":
		c.HoldGyroThreshold, err = parseFloat(key, value)
	case "HOLD_EXTEND_SEC":
		c.HoldExtendSec, err = parseFloat(key, value)
	case "HOLD_CHECK_INTERVAL":
		c.HoldCheckInterval, err = parseFloat(key, value)
	case "HOLD_WINDOW_SEC":
		c.HoldWindowSec, err = parseFloat(key, value)

	// Main loop
	case "POLL_TIMEOUT_MS":
		c.PollTimeoutMS, err = parseInt(key, value)
	case "BUFFER_HISTORY_FACTOR":
		c.BufferHistoryFactor, err = parseInt(key, value)

	// Host application
	case "WS_URL":
		c.WSURL = value
	case "WS_DIAL_TIMEOUT_MS":
		c.WSDialTimeoutMS, err = parseInt(key, value)
	case "HAPTIC_RETRY_DELAY_MS":
		c.HapticRetryDelayMS, err = parseInt(key, value)

	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID":
		c.MQTTClientID = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_WEB":
		c.MQTTClientIDWeb = value
	case "TOPIC_GESTURE_EVENTS":
		c.TopicGestureEvents = value

	// Web Server
	case "WEB_SERVER_PORT":
		c.WebServerPort, err = parseInt(key, value)

	// Logging
	case "STATS_LOG_INTERVAL":
		c.StatsLogInterval, err = parseInt(key, value)
	case "LOG_LEVEL":
		c.LogLevel = strings.ToLower(value)
	case "LOG_FORMAT":
		c.LogFormat = strings.ToLower(value)

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}
	return err
}

func validPort(p int) bool { return p > 0 && p <= 65535 }

// validate checks ranges and required fields.
func (c *Config) validate() error {
	if !validPort(c.UDPPort) {
		return fmt.Errorf("UDP_PORT must be 1-65535, got %d", c.UDPPort)
	}
	if !validPort(c.HapticPort) {
		return fmt.Errorf("HAPTIC_PORT must be 1-65535, got %d", c.HapticPort)
	}
	if !validPort(c.WebServerPort) {
		return fmt.Errorf("WEB_SERVER_PORT must be 1-65535, got %d", c.WebServerPort)
	}
	if c.Stage1Checkpoint == "" {
		return fmt.Errorf("STAGE1_CHECKPOINT is required")
	}
	if c.Stage2Checkpoint == "" {
		return fmt.Errorf("STAGE2_CHECKPOINT is required")
	}
	if c.Stage1Threshold < 0 || c.Stage1Threshold > 1 {
		return fmt.Errorf("STAGE1_THRESHOLD must be within 0-1, got %g", c.Stage1Threshold)
	}
	positive := []struct {
		key string
		v   float64
	}{
		{"STAGE2_COLLECTION_SEC", c.CollectionSec},
		{"STAGE2_STEP_SEC", c.StepSec},
		{"HOLD_ACCEL_THRESHOLD", c.HoldAccelThreshold},
		{"HOLD_GYRO_THRESHOLD", c.HoldGyroThreshold},
		{"HOLD_EXTEND_SEC", c.HoldExtendSec},
		{"HOLD_CHECK_INTERVAL", c.HoldCheckInterval},
		{"HOLD_WINDOW_SEC", c.HoldWindowSec},
		{"POLL_TIMEOUT_MS", float64(c.PollTimeoutMS)},
		{"WS_DIAL_TIMEOUT_MS", float64(c.WSDialTimeoutMS)},
		{"HAPTIC_RETRY_DELAY_MS", float64(c.HapticRetryDelayMS)},
		{"STATS_LOG_INTERVAL", float64(c.StatsLogInterval)},
	}
	for _, p := range positive {
		if p.v <= 0 {
			return fmt.Errorf("%s must be positive, got %g", p.key, p.v)
		}
	}
	if c.CooldownSec < 0 {
		return fmt.Errorf("COOLDOWN_SEC must not be negative, got %g", c.CooldownSec)
	}
	if c.BufferHistoryFactor < 1 {
		return fmt.Errorf("BUFFER_HISTORY_FACTOR must be at least 1, got %d", c.BufferHistoryFactor)
	}
	if c.WSURL == "" {
		return fmt.Errorf("WS_URL is required")
	}
	if c.TopicGestureEvents == "" {
		return fmt.Errorf("TOPIC_GESTURE_EVENTS is required")
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("LOG_FORMAT must be console or json, got %q", c.LogFormat)
	}
	return nil
}

// RequireMQTT reports an error when no broker is configured. The mirror is
// optional for the controller but mandatory for its subscribers.
func (c *Config) RequireMQTT() error {
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	return nil
}

// GestureCommands returns a copy of the gesture id to command map.
func (c *Config) GestureCommands() map[int]string {
	out := make(map[int]string, len(c.GestureMap))
	for id, cmd := range c.GestureMap {
		out[id] = cmd
	}
	return out
}

func ms(v int) time.Duration { return time.Duration(v) * time.Millisecond }

func (c *Config) PollTimeout() time.Duration      { return ms(c.PollTimeoutMS) }
func (c *Config) WSDialTimeout() time.Duration    { return ms(c.WSDialTimeoutMS) }
func (c *Config) HapticRetryDelay() time.Duration { return ms(c.HapticRetryDelayMS) }
func (c *Config) StatsInterval() time.Duration    { return ms(c.StatsLogInterval) }

// Package config provides configuration for the engagement tracking clients.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default endpoint configuration.
const (
	DefaultWSBaseURL = "ws://localhost:8000"
)

// Config holds the full client configuration.
type Config struct {
	WSBaseURL string `yaml:"ws_base_url"`

	Camera     CameraConfig     `yaml:"camera"`
	Stream     StreamConfig     `yaml:"stream"`
	Heartbeat  HeartbeatConfig  `yaml:"heartbeat"`
	Reconnect  ReconnectConfig  `yaml:"reconnect"`
	Engagement EngagementConfig `yaml:"engagement"`
}

// CameraConfig holds webcam capture settings.
type CameraConfig struct {
	Device  int `yaml:"device"`
	Width   int `yaml:"width"`
	Height  int `yaml:"height"`
	Quality int `yaml:"quality"` // JPEG quality 1-100
}

// StreamConfig holds frame pump settings.
type StreamConfig struct {
	FrameInterval time.Duration `yaml:"frame_interval"`
}

// HeartbeatConfig holds liveness probe settings.
type HeartbeatConfig struct {
	Interval    time.Duration `yaml:"interval"`
	PongTimeout time.Duration `yaml:"pong_timeout"`
}

// ReconnectConfig holds backoff settings.
type ReconnectConfig struct {
	BaseDelay   time.Duration `yaml:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay"`
	MaxAttempts int           `yaml:"max_attempts"`
}

// EngagementConfig holds evaluator settings. UnfocusThreshold drives the
// fine-grained per-result alerting; GazeCheckThreshold is the coarser
// variant used by the slow gaze-check mode.
type EngagementConfig struct {
	UnfocusThreshold   time.Duration `yaml:"unfocus_threshold"`
	GazeCheckThreshold time.Duration `yaml:"gaze_check_threshold"`
	ReportInterval     time.Duration `yaml:"report_interval"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		WSBaseURL: DefaultWSBaseURL,
		Camera: CameraConfig{
			Device:  0,
			Width:   640,
			Height:  480,
			Quality: 70,
		},
		Stream: StreamConfig{
			FrameInterval: 500 * time.Millisecond,
		},
		Heartbeat: HeartbeatConfig{
			Interval:    15 * time.Second,
			PongTimeout: 10 * time.Second,
		},
		Reconnect: ReconnectConfig{
			BaseDelay:   time.Second,
			MaxDelay:    30 * time.Second,
			MaxAttempts: 10,
		},
		Engagement: EngagementConfig{
			UnfocusThreshold:   5 * time.Second,
			GazeCheckThreshold: 8 * time.Minute,
			ReportInterval:     5 * time.Second,
		},
	}
}

// Load reads configuration from a YAML file, layered over defaults and
// finished with environment overrides. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromEnv returns the default configuration with environment overrides.
func FromEnv() *Config {
	cfg := Default()
	cfg.applyEnv()
	return cfg
}

func (c *Config) applyEnv() {
	if v := os.Getenv("WS_BASE_URL"); v != "" {
		c.WSBaseURL = v
	}
}

// Validate checks the configuration for impossible values.
func (c *Config) Validate() error {
	if c.WSBaseURL == "" {
		return fmt.Errorf("ws_base_url is required")
	}
	if c.Stream.FrameInterval <= 0 {
		return fmt.Errorf("frame_interval must be positive")
	}
	if c.Heartbeat.Interval <= 0 || c.Heartbeat.PongTimeout <= 0 {
		return fmt.Errorf("heartbeat interval and pong_timeout must be positive")
	}
	if c.Reconnect.BaseDelay <= 0 || c.Reconnect.MaxDelay < c.Reconnect.BaseDelay {
		return fmt.Errorf("reconnect delays must be positive and max >= base")
	}
	if c.Reconnect.MaxAttempts < 1 {
		return fmt.Errorf("reconnect max_attempts must be at least 1")
	}
	if c.Camera.Quality < 1 || c.Camera.Quality > 100 {
		return fmt.Errorf("camera quality must be within 1-100")
	}
	return nil
}

// SessionURL composes the WebSocket address for a (session, participant)
// pair. Trailing slashes on the base URL are normalized away first.
func (c *Config) SessionURL(sessionID, role, participantID string) string {
	base := strings.TrimRight(c.WSBaseURL, "/")
	return fmt.Sprintf("%s/ws/session/%s/%s/%s", base, sessionID, role, participantID)
}

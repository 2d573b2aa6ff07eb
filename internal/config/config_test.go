package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultValidates(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	raw := []byte(`
ws_base_url: ws://classroom.example:9000/
stream:
  frame_interval: 250ms
reconnect:
  base_delay: 2s
  max_delay: 20s
  max_attempts: 4
engagement:
  unfocus_threshold: 8m
`)
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Stream.FrameInterval != 250*time.Millisecond {
		t.Errorf("frame_interval = %v, want 250ms", cfg.Stream.FrameInterval)
	}
	if cfg.Reconnect.MaxAttempts != 4 {
		t.Errorf("max_attempts = %d, want 4", cfg.Reconnect.MaxAttempts)
	}
	if cfg.Engagement.UnfocusThreshold != 8*time.Minute {
		t.Errorf("unfocus_threshold = %v, want 8m", cfg.Engagement.UnfocusThreshold)
	}
	// Untouched keys keep their defaults.
	if cfg.Heartbeat.Interval != 15*time.Second {
		t.Errorf("heartbeat interval = %v, want 15s", cfg.Heartbeat.Interval)
	}
}

func TestLoadRejectsBadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("camera:\n  quality: 400\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Load() should reject quality > 100")
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("WS_BASE_URL", "wss://live.example")
	cfg := FromEnv()
	if cfg.WSBaseURL != "wss://live.example" {
		t.Errorf("WSBaseURL = %q, want env value", cfg.WSBaseURL)
	}
}

func TestSessionURL(t *testing.T) {
	tests := []struct {
		name string
		base string
		want string
	}{
		{"plain base", "ws://host:8000", "ws://host:8000/ws/session/s1/student/u1"},
		{"trailing slash", "ws://host:8000/", "ws://host:8000/ws/session/s1/student/u1"},
		{"double trailing slash", "ws://host:8000//", "ws://host:8000/ws/session/s1/student/u1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.WSBaseURL = tt.base
			if got := cfg.SessionURL("s1", "student", "u1"); got != tt.want {
				t.Errorf("SessionURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

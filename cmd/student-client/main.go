// student-client: streams webcam frames to a classroom session and
// tracks the student's own engagement from the returned classifications.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/Aafrith/learning-system-with-eye-and-emotion-tracking-sub000/internal/config"
	"github.com/Aafrith/learning-system-with-eye-and-emotion-tracking-sub000/internal/log"
	"github.com/Aafrith/learning-system-with-eye-and-emotion-tracking-sub000/pkg/capture"
	"github.com/Aafrith/learning-system-with-eye-and-emotion-tracking-sub000/pkg/channel"
	"github.com/Aafrith/learning-system-with-eye-and-emotion-tracking-sub000/pkg/engagement"
	"github.com/Aafrith/learning-system-with-eye-and-emotion-tracking-sub000/pkg/protocol"
	"github.com/Aafrith/learning-system-with-eye-and-emotion-tracking-sub000/pkg/pump"
)

var (
	configPath = flag.String("config", "", "Path to YAML config file")
	baseURL    = flag.String("url", "", "WebSocket base URL (overrides config)")
	sessionID  = flag.String("session", "", "Classroom session ID (required)")
	studentID  = flag.String("id", "", "Student participant ID (required)")
	device     = flag.Int("camera", -1, "Camera device index (overrides config)")
	gazeCheck  = flag.Bool("gaze-check", false, "Alert on the coarse gaze-check threshold instead of the fine one")
	logLevel   = flag.String("log-level", "", "Log level: debug, info, warn, error")
)

func main() {
	flag.Parse()
	log.Init(*logLevel)

	if *sessionID == "" || *studentID == "" {
		fmt.Fprintln(os.Stderr, "usage: student-client -session <id> -id <participant> [flags]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	cfg, err := loadConfig()
	if err != nil {
		log.Error("config error", "error", err)
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		log.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.Load(*configPath)
	} else {
		cfg = config.FromEnv()
	}
	if err != nil {
		return nil, err
	}
	if *baseURL != "" {
		cfg.WSBaseURL = *baseURL
	}
	if *device >= 0 {
		cfg.Camera.Device = *device
	}
	return cfg, cfg.Validate()
}

func run(cfg *config.Config) error {
	cam, err := capture.OpenWebcam(capture.Config{
		Device:  cfg.Camera.Device,
		Width:   cfg.Camera.Width,
		Height:  cfg.Camera.Height,
		Quality: cfg.Camera.Quality,
	})
	if err != nil {
		return fmt.Errorf("open camera: %w", err)
	}
	defer cam.Close()

	url := cfg.SessionURL(*sessionID, "student", *studentID)
	mgr := channel.NewManager(url,
		channel.WithHeartbeat(cfg.Heartbeat.Interval, cfg.Heartbeat.PongTimeout),
		channel.WithReconnectPolicy(channel.NewReconnectPolicy(
			cfg.Reconnect.BaseDelay, cfg.Reconnect.MaxDelay, cfg.Reconnect.MaxAttempts)),
	)

	threshold := cfg.Engagement.UnfocusThreshold
	if *gazeCheck {
		threshold = cfg.Engagement.GazeCheckThreshold
	}
	eval := engagement.New(
		engagement.WithThreshold(threshold),
		engagement.WithOnAlert(func(a engagement.Alert) {
			log.Warn("sustained loss of focus",
				"since", a.StartedAt.Format(time.RFC3339),
				"duration", a.Duration,
				"emotion", a.Result.Emotion,
				"focus_level", a.Result.FocusLevel)
		}),
	)

	done := make(chan struct{})
	var doneOnce sync.Once
	finish := func() { doneOnce.Do(func() { close(done) }) }

	mgr.On(protocol.TypeConnected, func(env *protocol.Envelope) {
		log.Info("session joined", "message", env.Message)
	})
	mgr.On(protocol.TypeEmotionResult, func(env *protocol.Envelope) {
		result, err := env.GetClassificationResult()
		if err != nil {
			log.Warn("bad classification result", "error", err)
			return
		}
		eval.Observe(result)
	})
	mgr.On(protocol.TypeSessionEnded, func(env *protocol.Envelope) {
		log.Info("session ended by teacher", "message", env.Message)
		finish()
	})
	mgr.OnStateChange(func(sc channel.StateChange) {
		if sc.State == channel.StateReconnecting {
			log.Warn("connection lost, reconnecting",
				"attempt", sc.Attempt, "max_attempts", sc.MaxAttempts)
			return
		}
		log.Info("connection state", "state", sc.State)
	})
	mgr.OnReconnectFailed(func(attempts int) {
		log.Error("gave up reconnecting", "attempts", attempts)
		finish()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	err = mgr.Connect(ctx)
	cancel()
	if err != nil {
		return fmt.Errorf("connect %s: %w", url, err)
	}

	p := pump.New(cam, mgr,
		pump.WithInterval(cfg.Stream.FrameInterval),
		pump.WithOnError(func(err error) {
			log.Error("camera failed, stopping", "error", err)
			finish()
		}),
	)
	p.Start()
	eval.Start()

	// Push engagement summaries upstream so the teacher view stays live.
	reportTicker := time.NewTicker(cfg.Engagement.ReportInterval)
	defer reportTicker.Stop()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	log.Info("streaming", "session", *sessionID, "student", *studentID,
		"interval", cfg.Stream.FrameInterval)

loop:
	for {
		select {
		case <-reportTicker.C:
			if env, ok := eval.Report(); ok {
				mgr.Send(env)
			}
		case <-sig:
			log.Info("shutting down")
			break loop
		case <-done:
			break loop
		}
	}

	p.Stop()
	eval.Stop()
	mgr.Disconnect()

	stats := eval.Snapshot()
	log.Info("session summary",
		"frames_sent", p.FramesSent(),
		"active_seconds", stats.Active,
		"passive_seconds", stats.Passive,
		"distracted_seconds", stats.Distracted)
	return nil
}

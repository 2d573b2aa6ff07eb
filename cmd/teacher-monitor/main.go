// teacher-monitor: terminal view of a classroom session. Joins as a
// teacher and prints the live student roster as updates arrive.
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
	"github.com/Aafrith/learning-system-with-eye-and-emotion-tracking-sub000/pkg/channel"
	"github.com/Aafrith/learning-system-with-eye-and-emotion-tracking-sub000/pkg/protocol"
	"github.com/Aafrith/learning-system-with-eye-and-emotion-tracking-sub000/pkg/roster"
)

var (
	configPath = flag.String("config", "", "Path to YAML config file")
	baseURL    = flag.String("url", "", "WebSocket base URL (overrides config)")
	sessionID  = flag.String("session", "", "Classroom session ID (required)")
	teacherID  = flag.String("id", "teacher", "Teacher participant ID")
	refresh    = flag.Duration("refresh", 2*time.Second, "Roster print interval")
	logLevel   = flag.String("log-level", "warn", "Log level: debug, info, warn, error")
)

func main() {
	flag.Parse()
	log.Init(*logLevel)

	if *sessionID == "" {
		fmt.Fprintln(os.Stderr, "usage: teacher-monitor -session <id> [flags]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.Load(*configPath)
	} else {
		cfg = config.FromEnv()
	}
	if err != nil {
		log.Error("config error", "error", err)
		os.Exit(1)
	}
	if *baseURL != "" {
		cfg.WSBaseURL = *baseURL
	}

	if err := run(cfg); err != nil {
		log.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	url := cfg.SessionURL(*sessionID, "teacher", *teacherID)
	mgr := channel.NewManager(url,
		channel.WithHeartbeat(cfg.Heartbeat.Interval, cfg.Heartbeat.PongTimeout),
		channel.WithReconnectPolicy(channel.NewReconnectPolicy(
			cfg.Reconnect.BaseDelay, cfg.Reconnect.MaxDelay, cfg.Reconnect.MaxAttempts)),
	)

	students := roster.New()
	detach := students.Attach(mgr)
	defer detach()

	done := make(chan struct{})
	var doneOnce sync.Once
	finish := func() { doneOnce.Do(func() { close(done) }) }
	mgr.On(protocol.TypeSessionEnded, func(_ *protocol.Envelope) {
		fmt.Println("\nSession ended.")
		finish()
	})
	mgr.OnReconnectFailed(func(attempts int) {
		log.Error("gave up reconnecting", "attempts", attempts)
		finish()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	err := mgr.Connect(ctx)
	cancel()
	if err != nil {
		return fmt.Errorf("connect %s: %w", url, err)
	}
	defer mgr.Disconnect()

	fmt.Printf("Monitoring session %s (Ctrl+C to quit)\n", *sessionID)

	ticker := time.NewTicker(*refresh)
	defer ticker.Stop()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-ticker.C:
			printRoster(students)
		case <-sig:
			fmt.Println()
			return nil
		case <-done:
			return nil
		}
	}
}

func printRoster(r *roster.Roster) {
	students := r.Students()
	fmt.Printf("\n=== %s  (%d students) ===\n", time.Now().Format("15:04:05"), len(students))
	if len(students) == 0 {
		fmt.Println("  (no students connected)")
		return
	}
	for _, s := range students {
		name := s.Name
		if name == "" {
			name = s.ID
		}
		marker := " "
		if s.Engagement == protocol.EngagementDistracted {
			marker = "!"
		}
		fmt.Printf("%s %-20s  %-10s  %-10s  focus %3d  seen %s\n",
			marker, name, s.Emotion, s.Engagement, s.FocusLevel,
			s.LastSeen.Format("15:04:05"))
	}
}

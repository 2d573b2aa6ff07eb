// Package engagement derives a continuously-updated engagement state
// from the stream of classification results. The engagement mapping is
// authoritative from the remote classifier; this package only
// aggregates, tracks sustained unfocus, and raises one-shot alerts.
package engagement

import (
	"sync"
	"time"

	"github.com/Aafrith/learning-system-with-eye-and-emotion-tracking-sub000/pkg/protocol"
)

const (
	// DefaultUnfocusThreshold is the fine-grained alerting window used
	// by the per-result student channel.
	DefaultUnfocusThreshold = 5 * time.Second

	// GazeCheckThreshold is the coarser variant used by the slow
	// gaze-check mode.
	GazeCheckThreshold = 8 * time.Minute

	// DefaultSampleInterval is the rolling-statistics cadence.
	DefaultSampleInterval = time.Second
)

// Alert describes one sustained-unfocus episode crossing the threshold.
// Exactly one alert fires per episode; focus must be regained before
// another can fire.
type Alert struct {
	StartedAt time.Time
	Duration  time.Duration
	Result    protocol.ClassificationResult // the triggering result
}

// GazeStats counts per-result gaze verdicts.
type GazeStats struct {
	Focused   int `json:"focused"`
	Unfocused int `json:"unfocused"`
}

// Stats is a point-in-time snapshot of the derived engagement state.
// The category counters are time-weighted: they advance once per
// sampling tick, not once per message, so bursts or gaps in message
// arrival cannot skew the distribution.
type Stats struct {
	Active     int       `json:"active"`
	Passive    int       `json:"passive"`
	Distracted int       `json:"distracted"`
	Gaze       GazeStats `json:"gaze"`

	Emotion    string              `json:"emotion,omitempty"`
	Engagement protocol.Engagement `json:"engagement,omitempty"`
	FocusLevel int                 `json:"focus_level"`
}

// Evaluator consumes classification results and maintains the rolling
// state. All methods are safe for concurrent use.
type Evaluator struct {
	threshold      time.Duration
	sampleInterval time.Duration
	now            func() time.Time
	onAlert        func(Alert)

	mu        sync.Mutex
	current   protocol.ClassificationResult
	hasResult bool

	active     int
	passive    int
	distracted int
	gaze       GazeStats

	unfocusStart time.Time // zero while the latest result is focused
	alertFired   bool

	running bool
	stop    chan struct{}
	done    chan struct{}
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithThreshold sets the sustained-unfocus alert threshold.
func WithThreshold(d time.Duration) Option {
	return func(e *Evaluator) { e.threshold = d }
}

// WithSampleInterval overrides the rolling-statistics cadence.
func WithSampleInterval(d time.Duration) Option {
	return func(e *Evaluator) { e.sampleInterval = d }
}

// WithOnAlert sets the sustained-unfocus alert callback.
func WithOnAlert(fn func(Alert)) Option {
	return func(e *Evaluator) { e.onAlert = fn }
}

// WithClock replaces the time source (used by tests).
func WithClock(now func() time.Time) Option {
	return func(e *Evaluator) { e.now = now }
}

// New creates an evaluator.
func New(opts ...Option) *Evaluator {
	e := &Evaluator{
		threshold:      DefaultUnfocusThreshold,
		sampleInterval: DefaultSampleInterval,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Observe folds one classification result into the state. Gaze counters
// advance per result; the category counters advance on the sampling
// tick instead.
func (e *Evaluator) Observe(res *protocol.ClassificationResult) {
	var fire *Alert

	e.mu.Lock()
	e.current = *res
	e.hasResult = true

	if gazeFocused(res) {
		e.gaze.Focused++
	} else {
		e.gaze.Unfocused++
	}

	now := e.now()
	if res.Unfocused() {
		if e.unfocusStart.IsZero() {
			e.unfocusStart = now
		} else if !e.alertFired {
			if elapsed := now.Sub(e.unfocusStart); elapsed >= e.threshold {
				e.alertFired = true
				fire = &Alert{
					StartedAt: e.unfocusStart,
					Duration:  elapsed,
					Result:    *res,
				}
			}
		}
	} else {
		// Focus regained: a fresh sustained episode is required before
		// the next alert.
		e.unfocusStart = time.Time{}
		e.alertFired = false
	}
	fn := e.onAlert
	e.mu.Unlock()

	if fire != nil && fn != nil {
		fn(*fire)
	}
}

// Sample advances the time-weighted counters by one tick using the
// current engagement label. Before the first result it is a no-op.
func (e *Evaluator) Sample() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.hasResult {
		return
	}
	switch e.current.Engagement {
	case protocol.EngagementActive:
		e.active++
	case protocol.EngagementDistracted:
		e.distracted++
	default:
		e.passive++
	}
}

// Start launches the per-second sampling ticker.
func (e *Evaluator) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return
	}
	e.running = true
	e.stop = make(chan struct{})
	e.done = make(chan struct{})
	go e.run(e.stop, e.done)
}

// Stop cancels the sampling ticker. Safe to call more than once.
func (e *Evaluator) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	stop, done := e.stop, e.done
	e.mu.Unlock()

	close(stop)
	<-done
}

func (e *Evaluator) run(stop, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(e.sampleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			e.Sample()
		}
	}
}

// Snapshot returns the current derived state.
func (e *Evaluator) Snapshot() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := Stats{
		Active:     e.active,
		Passive:    e.passive,
		Distracted: e.distracted,
		Gaze:       e.gaze,
		FocusLevel: e.current.FocusLevel,
	}
	if e.hasResult {
		s.Emotion = e.current.Emotion
		s.Engagement = e.current.Engagement
	}
	return s
}

// Report builds the engagement_update payload for the upstream channel.
func (e *Evaluator) Report() (*protocol.Envelope, bool) {
	e.mu.Lock()
	if !e.hasResult {
		e.mu.Unlock()
		return nil, false
	}
	emotion := e.current.Emotion
	category := e.current.Engagement
	focus := e.current.FocusLevel
	e.mu.Unlock()

	env, err := protocol.NewEngagementUpdateEnvelope(emotion, category, focus)
	if err != nil {
		return nil, false
	}
	return env, true
}

// gazeFocused decides the per-result gaze counter. The explicit gaze
// flag wins when the classifier provides it; otherwise the overall
// verdict stands in.
func gazeFocused(res *protocol.ClassificationResult) bool {
	if res.IsFocusedGaze != nil {
		return *res.IsFocusedGaze
	}
	return !res.Unfocused()
}

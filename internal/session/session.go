// Package session runs the permission → location → fetch → countdown
// pipeline and owns the one-second countdown task.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golden-hour/internal/geolocation"
	"golden-hour/internal/goldenhour"
	"golden-hour/internal/log"
	"golden-hour/internal/metrics"
	"golden-hour/internal/suntimes"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// State is the stage of the grant pipeline a session is in.
type State string

const (
	StateAwaitingPermission State = "awaiting_permission"
	StateAwaitingFix        State = "awaiting_fix"
	StateAwaitingRemoteData State = "awaiting_remote_data"
	StateDisplaying         State = "displaying"
	StateExpired            State = "expired"
)

// States lists every state in pipeline order.
var States = []string{
	string(StateAwaitingPermission),
	string(StateAwaitingFix),
	string(StateAwaitingRemoteData),
	string(StateDisplaying),
	string(StateExpired),
}

var (
	ErrClosed    = errors.New("session closed")
	ErrThrottled = errors.New("permission grants are arriving too fast")
)

// Snapshot is what renderers see. Pointer fields are never mutated
// once published.
type Snapshot struct {
	ID        string                   `json:"id,omitempty"`
	State     State                    `json:"state"`
	Location  *geolocation.Coordinates `json:"location,omitempty"`
	Provider  string                   `json:"provider,omitempty"`
	Window    *goldenhour.Window       `json:"window,omitempty"`
	Next      *time.Time               `json:"next_golden_hour,omitempty"`
	Countdown goldenhour.Countdown     `json:"countdown"`
	Solar     *goldenhour.SolarInfo    `json:"solar,omitempty"`
	Error     string                   `json:"error,omitempty"`
	UpdatedAt time.Time                `json:"updated_at"`
}

// Renderer receives every published snapshot, including each countdown tick.
type Renderer interface {
	Render(Snapshot)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(Snapshot)

func (f RendererFunc) Render(s Snapshot) { f(s) }

// Config wires a Session. Only Locator and Source are required.
type Config struct {
	Locator   geolocation.Locator
	Source    suntimes.Provider
	Renderers []Renderer
	Metrics   metrics.Recorder
	// Location is where window boundaries are expressed; the next-day
	// fallback keeps wall-clock time in this location.
	Location     *time.Location
	TickInterval time.Duration
	Now          func() time.Time
	// Limiter throttles grants, and with them remote fetches.
	Limiter *rate.Limiter
}

// Session owns one location grant at a time and the countdown task
// that follows it.
type Session struct {
	source    suntimes.Provider
	renderers []Renderer
	metrics   metrics.Recorder
	loc       *time.Location
	interval  time.Duration
	now       func() time.Time
	limiter   *rate.Limiter

	base     context.Context
	shutdown context.CancelFunc

	grantMu sync.Mutex

	mu         sync.RWMutex
	locator    geolocation.Locator
	snap       Snapshot
	stopTicker context.CancelFunc
	done       chan struct{}
	closed     bool
}

// New returns a session waiting for permission. Nothing runs until Grant.
func New(cfg Config) *Session {
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.Nop
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Limiter == nil {
		cfg.Limiter = rate.NewLimiter(rate.Every(5*time.Second), 3)
	}

	base, shutdown := context.WithCancel(context.Background())
	s := &Session{
		locator:   cfg.Locator,
		source:    cfg.Source,
		renderers: cfg.Renderers,
		metrics:   cfg.Metrics,
		loc:       cfg.Location,
		interval:  cfg.TickInterval,
		now:       cfg.Now,
		limiter:   cfg.Limiter,
		base:      base,
		shutdown:  shutdown,
		snap: Snapshot{
			State:     StateAwaitingPermission,
			UpdatedAt: cfg.Now(),
		},
	}
	s.metrics.RecordState(string(StateAwaitingPermission))
	return s
}

// Snapshot returns the latest published state.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Done is closed when the current cycle's countdown task has ended,
// either because the target was reached or the session was torn down.
// It is nil before the first successful fetch.
func (s *Session) Done() <-chan struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.done
}

// Grant records a location permission grant and runs the pipeline from
// the top, replacing any running countdown. Failures are terminal for
// the cycle: they are published on the snapshot and returned, never
// retried.
func (s *Session) Grant(ctx context.Context) error {
	s.grantMu.Lock()
	defer s.grantMu.Unlock()

	s.mu.RLock()
	closed := s.closed
	locator := s.locator
	s.mu.RUnlock()
	if closed {
		return ErrClosed
	}
	if !s.limiter.Allow() {
		return ErrThrottled
	}

	s.stopCountdown()
	s.metrics.RecordGrant()

	id := uuid.NewString()
	log.Infow("location permission granted", "session", id)
	s.publish(Snapshot{ID: id, State: StateAwaitingFix, UpdatedAt: s.now()})

	coords, err := locator.Locate(ctx)
	if err != nil {
		s.fail(StateAwaitingPermission, err)
		return err
	}

	snap := s.Snapshot()
	snap.State = StateAwaitingRemoteData
	snap.Location = &coords
	snap.UpdatedAt = s.now()
	s.publish(snap)

	started := time.Now()
	data, err := s.source.Get(ctx, coords)
	latency := time.Since(started)
	if err != nil {
		outcome := metrics.OutcomeNetwork
		if errors.Is(err, suntimes.ErrMalformedData) {
			outcome = metrics.OutcomeMalformed
		}
		s.metrics.RecordFetch(s.source.Name(), outcome, latency)
		s.fail(StateAwaitingRemoteData, err)
		return err
	}
	s.metrics.RecordFetch(s.source.Name(), metrics.OutcomeSuccess, latency)

	window := goldenhour.DeriveWindow(data.Sunrise.In(s.loc), data.Sunset.In(s.loc))
	if !window.Valid() {
		log.Warnf("sunrise %s is not before sunset %s", window.Sunrise, window.Sunset)
	}
	now := s.now().In(s.loc)
	next := goldenhour.SelectNextGoldenHour(window, now)
	if !next.After(now) {
		log.Warnf("sun times from %s are stale: next golden hour %s already passed", data.Provider, next)
	}
	solar := goldenhour.Solar(now, coords.Latitude, coords.Longitude)

	snap.State = StateDisplaying
	snap.Provider = data.Provider
	snap.Window = &window
	snap.Next = &next
	snap.Solar = &solar
	snap.UpdatedAt = now
	s.setSnapshot(snap)

	log.Infof("next golden hour at %s (morning ends %s, evening starts %s)",
		next.Format(time.RFC3339), window.MorningEnd.Format(time.RFC3339), window.EveningStart.Format(time.RFC3339))

	s.startCountdown(id)
	return nil
}

// SetLocator swaps the position source used by later grants. A grant
// already in flight keeps the locator it started with, and the running
// countdown is left alone.
func (s *Session) SetLocator(l geolocation.Locator) {
	s.mu.Lock()
	s.locator = l
	s.mu.Unlock()
}

// Close stops the countdown task and refuses further grants.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.shutdown()
	s.stopCountdown()
}

func (s *Session) startCountdown(id string) {
	done := make(chan struct{})

	if s.tick(id) {
		close(done)
		s.mu.Lock()
		s.done = done
		s.mu.Unlock()
		return
	}

	ctx, cancel := context.WithCancel(s.base)
	s.mu.Lock()
	s.stopTicker = cancel
	s.done = done
	s.mu.Unlock()

	go s.run(ctx, id, done)
}

// stopCountdown cancels the running task, if any, and waits for it.
func (s *Session) stopCountdown() {
	s.mu.Lock()
	cancel := s.stopTicker
	done := s.done
	s.stopTicker = nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (s *Session) run(ctx context.Context, id string, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Debugf("countdown %s stopped", id)
			return
		case <-ticker.C:
			if s.tick(id) {
				s.mu.Lock()
				if s.snap.ID == id {
					s.stopTicker = nil
				}
				s.mu.Unlock()
				log.Infof("golden hour reached")
				return
			}
		}
	}
}

// tick recomputes the countdown for cycle id and reports whether the
// task should stop.
func (s *Session) tick(id string) bool {
	now := s.now().In(s.loc)

	s.mu.Lock()
	if s.snap.ID != id || s.snap.State != StateDisplaying || s.snap.Next == nil {
		s.mu.Unlock()
		return true
	}
	countdown := goldenhour.ComputeCountdown(*s.snap.Next, now)
	s.snap.Countdown = countdown
	s.snap.UpdatedAt = now
	if countdown.Expired {
		s.snap.State = StateExpired
	}
	snap := s.snap
	s.mu.Unlock()

	if countdown.Expired {
		s.metrics.RecordExpired()
		s.metrics.RecordState(string(StateExpired))
	} else {
		s.metrics.RecordCountdown(countdown.Remaining)
		s.metrics.RecordState(string(StateDisplaying))
	}
	s.render(snap)
	return countdown.Expired
}

func (s *Session) fail(state State, err error) {
	log.Errorw("golden hour session failed", "state", state, "error", err)

	snap := s.Snapshot()
	snap.State = state
	snap.Error = err.Error()
	snap.UpdatedAt = s.now()
	s.publish(snap)
}

func (s *Session) setSnapshot(snap Snapshot) {
	s.mu.Lock()
	s.snap = snap
	s.mu.Unlock()
}

func (s *Session) publish(snap Snapshot) {
	s.setSnapshot(snap)
	s.metrics.RecordState(string(snap.State))
	s.render(snap)
}

func (s *Session) render(snap Snapshot) {
	for _, r := range s.renderers {
		r.Render(snap)
	}
}

// String implements fmt.Stringer.
func (s State) String() string {
	return string(s)
}

// Describe is a short human label for the state.
func (s State) Describe() string {
	switch s {
	case StateAwaitingPermission:
		return "waiting for location access"
	case StateAwaitingFix:
		return "fetching location"
	case StateAwaitingRemoteData:
		return "fetching sun times"
	case StateDisplaying:
		return "counting down"
	case StateExpired:
		return "golden hour reached"
	default:
		return fmt.Sprintf("unknown state %q", string(s))
	}
}

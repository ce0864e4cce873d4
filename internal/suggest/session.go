// Package suggest implements the per-field suggestion controller: it turns a
// keystroke stream into a debounced sequence of resolver queries and keeps
// only the response to the most recently issued query.
package suggest

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/accessible-nav/route-engine/internal/domain"
	"github.com/accessible-nav/route-engine/internal/observability"
	"github.com/jonboulle/clockwork"
)

const (
	// DefaultDebounce is how long input must stay quiet before a query fires.
	DefaultDebounce = 500 * time.Millisecond

	// DefaultTimeout bounds a single resolver call.
	DefaultTimeout = 10 * time.Second
)

// Session is the suggestion state for one editable location field.
//
// Every text change restarts the debounce timer; only timer expiry issues a
// resolver call. Each edit bumps a generation counter, and a response is
// dropped unless its generation is still current — last-issued wins, never
// last-returned. Selecting a candidate pins the field and suppresses further
// fetches until the text changes again.
type Session struct {
	resolver domain.LocationResolver
	clock    clockwork.Clock
	logger   *slog.Logger
	metrics  *observability.Metrics
	debounce time.Duration
	timeout  time.Duration

	mu         sync.Mutex
	text       string
	generation uint64
	timer      clockwork.Timer
	candidates []domain.Candidate
	selected   *domain.Candidate
}

// Option configures a Session.
type Option func(*Session)

// WithDebounce overrides the quiescence window.
func WithDebounce(d time.Duration) Option {
	return func(s *Session) { s.debounce = d }
}

// WithTimeout overrides the per-query resolver deadline.
func WithTimeout(d time.Duration) Option {
	return func(s *Session) { s.timeout = d }
}

// WithClock injects a clock, letting tests drive the debounce timer.
func WithClock(c clockwork.Clock) Option {
	return func(s *Session) { s.clock = c }
}

// New creates an empty suggestion session for one field.
func New(resolver domain.LocationResolver, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Session {
	s := &Session{
		resolver: resolver,
		clock:    clockwork.NewRealClock(),
		logger:   logger,
		metrics:  metrics,
		debounce: DefaultDebounce,
		timeout:  DefaultTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetText records a keystroke state and restarts the debounce timer. Clearing
// the field to empty is a valid "use default" state, not an error. Text below
// the minimum query length clears the candidate list and issues nothing.
func (s *Session) SetText(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.selected != nil && text == s.text {
		// Echo of the selected label, not an edit: keep suppressing fetches.
		return
	}

	s.text = text
	s.selected = nil
	s.generation++
	s.stopTimerLocked()

	if len(strings.TrimSpace(text)) < domain.MinQueryLength {
		s.candidates = nil
		return
	}

	gen := s.generation
	s.timer = s.clock.AfterFunc(s.debounce, func() {
		go s.fire(gen, text)
	})
}

// fire issues the resolver query for one debounce expiry. The generation
// check on completion discards responses that a newer edit superseded.
func (s *Session) fire(gen uint64, text string) {
	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.SuggestQueries.Inc()
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	candidates, err := s.resolver.Resolve(ctx, text)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		if s.metrics != nil {
			s.metrics.SuggestStaleDrops.Inc()
		}
		s.logger.Debug("dropping stale suggestion response", "query", text)
		return
	}
	if err != nil {
		// Timeouts and transport failures are non-fatal for suggestions: the
		// list just goes empty until the next edit.
		s.logger.Warn("suggestion query failed", "query", text, "error", err)
		s.candidates = nil
		return
	}
	s.candidates = candidates
}

// Select pins the field to a candidate: the coordinate is attached, the
// candidate list is cleared, and fetches stay suppressed until the next edit.
func (s *Session) Select(c domain.Candidate) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.text = c.Label
	s.selected = &c
	s.candidates = nil
	s.generation++
	s.stopTimerLocked()
}

// Candidates returns a copy of the visible suggestion list.
func (s *Session) Candidates() []domain.Candidate {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Candidate, len(s.candidates))
	copy(out, s.candidates)
	return out
}

// Query returns the field as a location query. When candidates are visible
// but none is selected, the query is returned alongside
// domain.ErrResolutionAmbiguous — a prompt state, not a failure.
func (s *Session) Query() (domain.LocationQuery, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := domain.LocationQuery{Text: s.text}
	if s.selected != nil {
		coord := s.selected.Coord
		q.Coord = &coord
		return q, nil
	}
	if len(s.candidates) > 0 {
		return q, domain.ErrResolutionAmbiguous
	}
	return q, nil
}

func (s *Session) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

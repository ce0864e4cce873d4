// Package session implements the navigation session state machine: profile
// capture, request composition, scoring and display, and the live hazard
// layer. A Session owns the active route set and its feed subscription
// exclusively; superseded work is discarded by generation, never applied.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/accessible-nav/route-engine/internal/domain"
	"github.com/accessible-nav/route-engine/internal/observability"
	"github.com/jonboulle/clockwork"
)

// State is a navigation session phase.
type State string

const (
	StateProfileSetup   State = "profile_setup"
	StateComposing      State = "composing"
	StateDisplayRoute   State = "display_route"
	StateDisplayHazards State = "display_hazards"
)

// RouteScorer produces a ranked route set for a fully resolved request.
type RouteScorer interface {
	Score(ctx context.Context, req domain.RouteRequest, profile domain.Profile) ([]domain.Route, error)
}

// HazardFeed streams live hazard events for the given route IDs. The channel
// closes when the feed is exhausted or the context is cancelled.
type HazardFeed interface {
	Subscribe(ctx context.Context, routeIDs []string) (<-chan domain.HazardEvent, error)
}

// HazardScanner performs a one-shot radius scan around a center point.
type HazardScanner interface {
	Scan(ctx context.Context, center domain.Coordinate, radiusMeters int) (domain.HazardScanResult, error)
}

// SavedRouteStore persists trip snapshots across sessions.
type SavedRouteStore interface {
	Save(ctx context.Context, route domain.SavedRoute) error
	List(ctx context.Context) ([]domain.SavedRoute, error)
}

const (
	defaultResolveTimeout = 10 * time.Second
	defaultScoreTimeout   = 10 * time.Second
	defaultScanRadius     = 1000
)

// Session is the state machine binding resolution, scoring, and the hazard
// layer. All exported methods are safe for concurrent use.
type Session struct {
	resolver domain.LocationResolver
	device   domain.DevicePositioner
	scorer   RouteScorer
	feed     HazardFeed
	scanner  HazardScanner
	store    SavedRouteStore
	logger   *slog.Logger
	metrics  *observability.Metrics
	clock    clockwork.Clock

	resolveTimeout time.Duration
	scoreTimeout   time.Duration
	scanRadius     int

	mu         sync.Mutex
	state      State
	profile    domain.Profile
	request    domain.RouteRequest
	generation uint64
	routes     []domain.Route
	path       []domain.Coordinate
	scan       *domain.HazardScanResult
	alert      *domain.Alert
	lastErr    error
	feedCancel context.CancelFunc
}

// Option configures a Session.
type Option func(*Session)

// WithClock replaces the wall clock, for tests.
func WithClock(c clockwork.Clock) Option {
	return func(s *Session) { s.clock = c }
}

// WithResolveTimeout bounds a location resolution round trip.
func WithResolveTimeout(d time.Duration) Option {
	return func(s *Session) { s.resolveTimeout = d }
}

// WithScoreTimeout bounds a scoring round trip.
func WithScoreTimeout(d time.Duration) Option {
	return func(s *Session) { s.scoreTimeout = d }
}

// WithScanRadius sets the hazard-scan radius in meters.
func WithScanRadius(meters int) Option {
	return func(s *Session) { s.scanRadius = meters }
}

// New builds a session in the ProfileSetup state. The feed and store may be
// nil, disabling live hazards and persistence respectively.
func New(resolver domain.LocationResolver, device domain.DevicePositioner, scorer RouteScorer, feed HazardFeed, scanner HazardScanner, store SavedRouteStore, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Session {
	s := &Session{
		resolver:       resolver,
		device:         device,
		scorer:         scorer,
		feed:           feed,
		scanner:        scanner,
		store:          store,
		logger:         logger,
		metrics:        metrics,
		clock:          clockwork.NewRealClock(),
		resolveTimeout: defaultResolveTimeout,
		scoreTimeout:   defaultScoreTimeout,
		scanRadius:     defaultScanRadius,
		state:          StateProfileSetup,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CompleteProfile records the rider's mobility profile and moves the session
// to request composition. An unset guidance mode defaults to visual.
func (s *Session) CompleteProfile(p domain.Profile) error {
	if !p.Guidance.Valid() {
		p.Guidance = domain.GuidanceVisual
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateProfileSetup {
		return fmt.Errorf("profile already confirmed: %w", domain.ErrInvalidRequest)
	}
	s.profile = p
	s.setStateLocked(StateComposing)
	return nil
}

// SetOrigin replaces the origin query, dropping any stale coordinate unless
// the caller pins one explicitly.
func (s *Session) SetOrigin(q domain.LocationQuery) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.request.Origin = q
}

// SetDestination replaces the destination query.
func (s *Session) SetDestination(q domain.LocationQuery) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.request.Destination = q
}

// Flip swaps origin and destination.
func (s *Session) Flip() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.request.Flip()
}

// AddStop appends an empty intermediate stop and returns its index.
func (s *Session) AddStop() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.request.AddStop()
}

// SetStop replaces the text of the stop at index i.
func (s *Session) SetStop(i int, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.request.SetStop(i, text)
}

// RemoveStop deletes the stop at index i.
func (s *Session) RemoveStop(i int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.request.RemoveStop(i)
}

// SetStops replaces the whole stop list with unresolved text entries.
func (s *Session) SetStops(texts []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.request.Stops = s.request.Stops[:0]
	for _, t := range texts {
		s.request.Stops = append(s.request.Stops, domain.LocationQuery{Text: t})
	}
}

// Submit resolves the composed request and scores it. On success the session
// enters DisplayRoute and, when a feed is configured, subscribes to live
// hazard events for the new route set. A scoring timeout also lands in
// DisplayRoute, with LastErr set, so the rider can retry in place. A failed
// origin resolution leaves the session composing with the text editable.
func (s *Session) Submit(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateComposing && s.state != StateDisplayRoute {
		s.mu.Unlock()
		return fmt.Errorf("submit from %s: %w", s.state, domain.ErrInvalidRequest)
	}
	req := cloneRequest(s.request)
	if strings.TrimSpace(req.Origin.Text) == "" && req.Origin.Coord == nil {
		req.Origin.Text = domain.CurrentLocationToken
	}
	if err := req.Validate(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.cancelFeedLocked()
	s.generation++
	gen := s.generation
	profile := s.profile
	s.mu.Unlock()

	resolved, path, err := s.resolveRequest(ctx, req)
	if err != nil {
		// The old route set was superseded the moment this submission was
		// accepted; the rider lands back in composition with the text intact.
		s.failToComposing(gen, err)
		return err
	}

	s.metrics.ScoreRequests.Inc()
	start := s.clock.Now()
	scoreCtx, cancel := context.WithTimeout(ctx, s.scoreTimeout)
	routes, err := s.scorer.Score(scoreCtx, resolved, profile)
	cancel()
	s.metrics.ScoreDuration.Observe(s.clock.Since(start).Seconds())

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		// Superseded by a newer submission or Back; discard quietly.
		return nil
	}
	if err != nil {
		s.metrics.ScoreFailures.Inc()
		s.lastErr = fmt.Errorf("score request: %w", err)
		if errors.Is(err, domain.ErrTimeout) {
			s.routes = nil
			s.path = nil
			s.alert = nil
			s.setStateLocked(StateDisplayRoute)
		}
		s.logger.Warn("scoring failed", "error", err)
		return s.lastErr
	}

	s.request = resolved
	s.routes = routes
	s.path = path
	s.scan = nil
	s.alert = nil
	s.lastErr = nil
	s.setStateLocked(StateDisplayRoute)
	s.subscribeFeedLocked(gen, routes)
	s.logger.Info("routes scored", "routes", len(routes), "origin", resolved.Origin.Text, "destination", resolved.Destination.Text)
	return nil
}

// EnterHazardScan runs a one-shot radius scan around the origin (the device
// position when no origin is set) and enters DisplayHazards. Reachable from
// any state; the destination is not required here.
func (s *Session) EnterHazardScan(ctx context.Context) error {
	s.mu.Lock()
	s.cancelFeedLocked()
	s.generation++
	gen := s.generation
	origin := s.request.Origin
	if strings.TrimSpace(origin.Text) == "" && origin.Coord == nil {
		origin.Text = domain.CurrentLocationToken
	}
	s.mu.Unlock()

	rctx, cancel := context.WithTimeout(ctx, s.resolveTimeout)
	center, err := domain.ResolvePoint(rctx, origin, s.resolver, s.device)
	cancel()
	if err != nil {
		err = fmt.Errorf("resolve scan center %q: %w", origin.Text, err)
		s.failToComposing(gen, err)
		return err
	}

	result, err := s.scanner.Scan(ctx, center, s.scanRadius)
	if err != nil {
		err = fmt.Errorf("hazard scan: %w", err)
		s.failToComposing(gen, err)
		return err
	}
	s.metrics.HazardScans.Inc()

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return nil
	}
	s.scan = &result
	s.routes = nil
	s.path = nil
	s.alert = nil
	s.lastErr = nil
	s.setStateLocked(StateDisplayHazards)
	s.logger.Info("hazard scan complete", "hazards", len(result.Hazards), "radius_m", result.RadiusMeters)
	return nil
}

// Back returns from either display state to request composition, destroying
// the route set and scan snapshot and cancelling any feed subscription. A
// no-op outside the display states.
func (s *Session) Back() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateDisplayRoute && s.state != StateDisplayHazards {
		return
	}
	s.cancelFeedLocked()
	s.generation++
	s.routes = nil
	s.path = nil
	s.scan = nil
	s.alert = nil
	s.lastErr = nil
	s.setStateLocked(StateComposing)
}

// SelectSaved replaces the composed request with a saved snapshot and returns
// to composition. Any active route set is destroyed; the rider resubmits to
// reach Display again.
func (s *Session) SelectSaved(sr domain.SavedRoute) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateProfileSetup {
		return fmt.Errorf("select saved route before profile confirmation: %w", domain.ErrInvalidRequest)
	}
	s.cancelFeedLocked()
	s.generation++
	s.request = sr.Request()
	s.routes = nil
	s.path = nil
	s.scan = nil
	s.alert = nil
	s.lastErr = nil
	s.setStateLocked(StateComposing)
	s.logger.Info("saved route selected", "id", sr.ID, "destination", sr.Destination)
	return nil
}

// Save snapshots the composed request and hands it to the store. The snapshot
// keeps location text only; coordinates are re-resolved on reuse.
func (s *Session) Save(ctx context.Context) (domain.SavedRoute, error) {
	s.mu.Lock()
	req := cloneRequest(s.request)
	s.mu.Unlock()

	if err := req.Validate(); err != nil {
		return domain.SavedRoute{}, err
	}
	sr := domain.NewSavedRoute(req)
	if s.store != nil {
		if err := s.store.Save(ctx, sr); err != nil {
			return domain.SavedRoute{}, fmt.Errorf("save route: %w", err)
		}
	}
	s.logger.Info("route saved", "id", sr.ID, "destination", sr.Destination)
	return sr, nil
}

// SavedRoutes lists persisted snapshots for display alongside suggestions.
func (s *Session) SavedRoutes(ctx context.Context) ([]domain.SavedRoute, error) {
	if s.store == nil {
		return nil, nil
	}
	return s.store.List(ctx)
}

// State returns the current phase.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Profile returns the confirmed mobility profile.
func (s *Session) Profile() domain.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profile
}

// Request returns a copy of the composed request.
func (s *Session) Request() domain.RouteRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneRequest(s.request)
}

// Routes returns a copy of the active route set, empty outside DisplayRoute.
func (s *Session) Routes() []domain.Route {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Route, len(s.routes))
	for i, r := range s.routes {
		out[i] = r
		out[i].Hazards = append([]string(nil), r.Hazards...)
	}
	return out
}

// Alert returns the most recent hazard alert, or nil.
func (s *Session) Alert() *domain.Alert {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.alert == nil {
		return nil
	}
	a := *s.alert
	return &a
}

// ScanResult returns the active radius-scan snapshot, or nil.
func (s *Session) ScanResult() *domain.HazardScanResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.scan == nil {
		return nil
	}
	r := *s.scan
	r.Hazards = append([]domain.Hazard(nil), s.scan.Hazards...)
	return &r
}

// LastErr returns the retryable error recorded by the most recent operation,
// or nil.
func (s *Session) LastErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// MapBundle is the render-ready payload for the map display.
type MapBundle struct {
	Origin           *domain.Coordinate  `json:"origin,omitempty"`
	Destination      *domain.Coordinate  `json:"destination,omitempty"`
	Path             []domain.Coordinate `json:"path,omitempty"`
	Hazards          []domain.Hazard     `json:"hazards,omitempty"`
	ScanRadiusMeters int                 `json:"scan_radius_m,omitempty"`
}

// MapBundle assembles the current display payload: the resolved polyline in
// route mode, or the scan center with hazard markers and radius in hazard
// mode. Every coordinate has been through resolution or the deterministic
// fallback, so the map always has a plottable point.
func (s *Session) MapBundle() MapBundle {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.scan != nil {
		center := s.scan.Center
		return MapBundle{
			Origin:           &center,
			Path:             []domain.Coordinate{center},
			Hazards:          append([]domain.Hazard(nil), s.scan.Hazards...),
			ScanRadiusMeters: s.scan.RadiusMeters,
		}
	}

	b := MapBundle{Path: append([]domain.Coordinate(nil), s.path...)}
	if len(b.Path) > 0 {
		origin := b.Path[0]
		dest := b.Path[len(b.Path)-1]
		b.Origin = &origin
		b.Destination = &dest
	}
	return b
}

// resolveRequest attaches a coordinate to every location in the request and
// returns the polyline path origin-stops-destination. Blank stops are
// skipped.
func (s *Session) resolveRequest(ctx context.Context, req domain.RouteRequest) (domain.RouteRequest, []domain.Coordinate, error) {
	rctx, cancel := context.WithTimeout(ctx, s.resolveTimeout)
	defer cancel()

	origin, err := domain.ResolvePoint(rctx, req.Origin, s.resolver, s.device)
	if err != nil {
		return req, nil, fmt.Errorf("resolve origin %q: %w", req.Origin.Text, err)
	}
	req.Origin.Coord = &origin

	dest, err := domain.ResolvePoint(rctx, req.Destination, s.resolver, s.device)
	if err != nil {
		return req, nil, fmt.Errorf("resolve destination %q: %w", req.Destination.Text, err)
	}
	req.Destination.Coord = &dest

	path := make([]domain.Coordinate, 0, len(req.Stops)+2)
	path = append(path, origin)
	for i := range req.Stops {
		if strings.TrimSpace(req.Stops[i].Text) == "" && req.Stops[i].Coord == nil {
			continue
		}
		c, err := domain.ResolvePoint(rctx, req.Stops[i], s.resolver, s.device)
		if err != nil {
			return req, nil, fmt.Errorf("resolve stop %q: %w", req.Stops[i].Text, err)
		}
		req.Stops[i].Coord = &c
		path = append(path, c)
	}
	path = append(path, dest)
	return req, path, nil
}

// subscribeFeedLocked opens a feed subscription for the route set and starts
// the apply loop. Caller holds s.mu.
func (s *Session) subscribeFeedLocked(gen uint64, routes []domain.Route) {
	if s.feed == nil {
		return
	}
	ids := make([]string, len(routes))
	for i, r := range routes {
		ids[i] = r.ID
	}

	feedCtx, cancel := context.WithCancel(context.Background())
	ch, err := s.feed.Subscribe(feedCtx, ids)
	if err != nil {
		cancel()
		s.logger.Warn("hazard feed unavailable", "error", err)
		return
	}
	s.feedCancel = cancel
	s.metrics.FeedActive.Set(1)

	go func() {
		for ev := range ch {
			s.applyEvent(gen, ev)
		}
		s.mu.Lock()
		if gen == s.generation {
			s.metrics.FeedActive.Set(0)
		}
		s.mu.Unlock()
	}()
}

// applyEvent folds one live event into the active route set, provided the
// set has not been superseded since the subscription opened.
func (s *Session) applyEvent(gen uint64, ev domain.HazardEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return
	}
	for i := range s.routes {
		if s.routes[i].ID != ev.TargetRouteID {
			continue
		}
		s.routes[i].ApplyEvent(ev)
		alert := domain.AlertFor(ev)
		s.alert = &alert
		s.metrics.HazardEventsApplied.Inc()
		s.metrics.AlertsEmitted.Inc()
		s.logger.Info("hazard event applied",
			"route_id", ev.TargetRouteID,
			"delta", ev.SeverityDelta,
			"label", ev.HazardLabel,
			"score", s.routes[i].SafetyScore)
		return
	}
	s.logger.Debug("hazard event for unknown route dropped", "route_id", ev.TargetRouteID)
}

// cancelFeedLocked tears down the active feed subscription. Caller holds s.mu.
func (s *Session) cancelFeedLocked() {
	if s.feedCancel == nil {
		return
	}
	s.feedCancel()
	s.feedCancel = nil
	s.metrics.FeedActive.Set(0)
}

// failToComposing records a user-visible error and clears any display
// belonging to the superseded request, unless a newer operation already took
// over. The profile-setup state is left alone.
func (s *Session) failToComposing(gen uint64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return
	}
	s.lastErr = err
	s.routes = nil
	s.path = nil
	s.scan = nil
	s.alert = nil
	if s.state == StateDisplayRoute || s.state == StateDisplayHazards {
		s.setStateLocked(StateComposing)
	}
}

func (s *Session) setStateLocked(st State) {
	if s.state == st {
		return
	}
	s.state = st
	s.metrics.SessionTransitions.WithLabelValues(string(st)).Inc()
}

func cloneRequest(req domain.RouteRequest) domain.RouteRequest {
	out := req
	out.Stops = append([]domain.LocationQuery(nil), req.Stops...)
	return out
}

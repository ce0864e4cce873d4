// Package score produces ranked candidate routes with safety scores and
// hazard lists for a resolved route request.
package score

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/accessible-nav/route-engine/internal/domain"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

const (
	// safeDetourFactor is how much longer the safest route is allowed to be
	// compared to the direct corridor.
	safeDetourFactor = 1.3

	// minCorridorMeters floors the corridor length so pseudo-geocoded
	// locations that hash near each other still produce a walkable route.
	minCorridorMeters = 400

	// hazardPenalty is the score cost of each hazard on a route.
	hazardPenalty = 15

	baseScore = 95
)

// hazardPool is the corridor hazard vocabulary. Selection is a deterministic
// function of the corridor, so rescoring the same request reproduces the same
// hazard list.
var hazardPool = []string{
	"Steep Slope (8%)",
	"Construction near corner",
	"Stairs at underpass",
	"Narrow Sidewalk",
	"High foot traffic",
}

// Planner is a deterministic route scorer. It stands in for a routing
// backend: results are a pure function of the request and profile, which is
// what the scoring tests rely on.
type Planner struct {
	clock   clockwork.Clock
	logger  *slog.Logger
	latency time.Duration
}

// Option configures a Planner.
type Option func(*Planner)

// WithClock injects a clock for the simulated round trip.
func WithClock(c clockwork.Clock) Option {
	return func(p *Planner) { p.clock = c }
}

// WithLatency adds a simulated backend round-trip delay to each Score call.
func WithLatency(d time.Duration) Option {
	return func(p *Planner) { p.latency = d }
}

// New creates a Planner.
func New(logger *slog.Logger, opts ...Option) *Planner {
	p := &Planner{
		clock:  clockwork.NewRealClock(),
		logger: logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Score produces the Safest and Fastest candidates for the request, in
// profile-biased rank order. The destination and origin must be resolved.
// A hazard-bearing route never outscores the hazard-free alternative.
func (p *Planner) Score(ctx context.Context, req domain.RouteRequest, profile domain.Profile) ([]domain.Route, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if !req.Origin.Resolved() || !req.Destination.Resolved() {
		return nil, fmt.Errorf("%w: request must be resolved before scoring", domain.ErrInvalidRequest)
	}

	if p.latency > 0 {
		select {
		case <-ctx.Done():
			if ctx.Err() == context.DeadlineExceeded {
				return nil, fmt.Errorf("%w: scoring", domain.ErrTimeout)
			}
			return nil, ctx.Err()
		case <-p.clock.After(p.latency):
		}
	}

	direct := p.corridorMeters(req)
	pace := walkingPace(profile)

	fastHazards := corridorHazards(req)
	fastScore := baseScore - hazardPenalty*len(fastHazards)
	if fastScore < 0 {
		fastScore = 0
	}
	safeScore := baseScore
	if len(fastHazards) > 0 && fastScore > safeScore {
		fastScore = safeScore
	}

	safest := domain.Route{
		ID:                uuid.NewString(),
		Class:             domain.ClassSafest,
		EstimatedDistance: direct * safeDetourFactor,
		EstimatedTime:     travelTime(direct*safeDetourFactor, pace),
		SafetyScore:       safeScore,
		Hazards:           []string{},
		Details:           safestDetails(profile),
	}
	fastest := domain.Route{
		ID:                uuid.NewString(),
		Class:             domain.ClassFastest,
		EstimatedDistance: direct,
		EstimatedTime:     travelTime(direct, pace),
		SafetyScore:       fastScore,
		Hazards:           fastHazards,
		Details:           "Direct path but has significant incline and road work.",
	}

	routes := rank([]domain.Route{safest, fastest}, profile)
	p.logger.Info("request scored",
		"destination", req.Destination.Text,
		"corridor_m", math.Round(direct),
		"top_class", routes[0].Class,
		"top_score", routes[0].SafetyScore,
	)
	return routes, nil
}

// corridorMeters is the direct path length through origin, stops, and
// destination. Unresolved stops are skipped; they were already reported
// upstream during resolution.
func (p *Planner) corridorMeters(req domain.RouteRequest) float64 {
	points := []domain.Coordinate{*req.Origin.Coord}
	for _, stop := range req.Stops {
		if stop.Resolved() {
			points = append(points, *stop.Coord)
		} else if strings.TrimSpace(stop.Text) != "" {
			p.logger.Debug("skipping unresolved stop", "stop", stop.Text)
		}
	}
	points = append(points, *req.Destination.Coord)

	var total float64
	for i := 1; i < len(points); i++ {
		total += haversineMeters(points[i-1], points[i])
	}
	if total < minCorridorMeters {
		total = minCorridorMeters
	}
	return total
}

// corridorHazards picks one or two hazards from the pool, keyed by a rolling
// hash of the corridor endpoints.
func corridorHazards(req domain.RouteRequest) []string {
	var h uint32
	for _, b := range []byte(req.Origin.Text + "\x00" + req.Destination.Text) {
		h = h*31 + uint32(b)
	}
	count := 1 + int(h)%2
	hazards := make([]string, 0, count)
	for i := 0; i < count; i++ {
		hazards = append(hazards, hazardPool[(int(h>>3)+i)%len(hazardPool)])
	}
	return hazards
}

// rank orders the candidates for display. Profile flags bias the order but
// never the scores: fatigue-sensitive riders see the shortest route first,
// and a wheelchair rider never sees a stair-access hazard route ranked above
// an alternative without one.
func rank(routes []domain.Route, profile domain.Profile) []domain.Route {
	if profile.Fatigue {
		for i, r := range routes {
			if r.Class == domain.ClassFastest && i != 0 {
				routes[0], routes[i] = routes[i], routes[0]
			}
		}
	}
	if profile.Wheelchair && hasStairHazard(routes[0]) {
		for i := 1; i < len(routes); i++ {
			if !hasStairHazard(routes[i]) {
				routes[0], routes[i] = routes[i], routes[0]
				break
			}
		}
	}
	return routes
}

func hasStairHazard(r domain.Route) bool {
	for _, h := range r.Hazards {
		if strings.Contains(strings.ToLower(h), "stair") {
			return true
		}
	}
	return false
}

func safestDetails(profile domain.Profile) string {
	switch {
	case profile.Wheelchair:
		return "Wide sidewalks, no stairs, ramp access confirmed."
	case profile.Walker:
		return "Smooth surfaces throughout, benches along the way."
	case profile.AvoidCrowds:
		return "Quieter side streets, low foot traffic at this hour."
	default:
		return "Well-lit path with gentle inclines and curb cuts."
	}
}

// walkingPace returns meters per minute for the profile.
func walkingPace(profile domain.Profile) float64 {
	if profile.Wheelchair || profile.Walker {
		return 55
	}
	if profile.Fatigue {
		return 65
	}
	return 80
}

func travelTime(meters, pacePerMinute float64) time.Duration {
	minutes := meters / pacePerMinute
	return time.Duration(minutes * float64(time.Minute))
}

// haversineMeters is the great-circle distance between two coordinates.
func haversineMeters(a, b domain.Coordinate) float64 {
	const earthRadiusM = 6371000

	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	sinLat := math.Sin(dLat / 2)
	sinLng := math.Sin(dLng / 2)
	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLng*sinLng
	return 2 * earthRadiusM * math.Asin(math.Sqrt(h))
}

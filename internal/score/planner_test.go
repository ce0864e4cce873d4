package score_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/accessible-nav/route-engine/internal/domain"
	"github.com/accessible-nav/route-engine/internal/score"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func resolvedRequest(origin, dest string) domain.RouteRequest {
	o := domain.FallbackCoordinate(origin)
	d := domain.FallbackCoordinate(dest)
	return domain.RouteRequest{
		Origin:      domain.LocationQuery{Text: origin, Coord: &o},
		Destination: domain.LocationQuery{Text: dest, Coord: &d},
	}
}

func classOf(t *testing.T, routes []domain.Route, class domain.RouteClass) domain.Route {
	t.Helper()
	for _, r := range routes {
		if r.Class == class {
			return r
		}
	}
	t.Fatalf("no %s route in %v", class, routes)
	return domain.Route{}
}

func TestPlanner_TwoClasses(t *testing.T) {
	p := score.New(discardLogger())
	routes, err := p.Score(context.Background(), resolvedRequest("Current Location", "Central Park"), domain.Profile{Wheelchair: true})
	require.NoError(t, err)
	require.Len(t, routes, 2)

	safest := classOf(t, routes, domain.ClassSafest)
	fastest := classOf(t, routes, domain.ClassFastest)

	assert.NotEmpty(t, safest.ID)
	assert.NotEmpty(t, fastest.ID)
	assert.NotEqual(t, safest.ID, fastest.ID)
	assert.Greater(t, safest.EstimatedDistance, fastest.EstimatedDistance)
	assert.Greater(t, safest.EstimatedTime, fastest.EstimatedTime)
	assert.GreaterOrEqual(t, safest.SafetyScore, fastest.SafetyScore)
}

func TestPlanner_ScoreInvariant(t *testing.T) {
	p := score.New(discardLogger())
	corridors := [][2]string{
		{"Current Location", "Central Park"},
		{"City Library", "Central Park"},
		{"Harbor Point", "Old Town"},
		{"Market Square", "Met General Hospital"},
		{"Alpha", "Beta"},
		{"Home", "Work"},
	}
	for _, c := range corridors {
		routes, err := p.Score(context.Background(), resolvedRequest(c[0], c[1]), domain.Profile{})
		require.NoError(t, err, "corridor %v", c)

		safest := classOf(t, routes, domain.ClassSafest)
		fastest := classOf(t, routes, domain.ClassFastest)
		if len(fastest.Hazards) > 0 {
			assert.GreaterOrEqual(t, safest.SafetyScore, fastest.SafetyScore, "corridor %v", c)
		}
		assert.Empty(t, safest.Hazards)
	}
}

func TestPlanner_Deterministic(t *testing.T) {
	p := score.New(discardLogger())
	req := resolvedRequest("City Library", "Central Park")

	first, err := p.Score(context.Background(), req, domain.Profile{})
	require.NoError(t, err)
	second, err := p.Score(context.Background(), req, domain.Profile{})
	require.NoError(t, err)

	// Route IDs are freshly minted each call; everything else repeats.
	ignoreIDs := cmpopts.IgnoreFields(domain.Route{}, "ID")
	if diff := cmp.Diff(first, second, ignoreIDs); diff != "" {
		t.Fatalf("scoring is not deterministic (-first +second):\n%s", diff)
	}
}

func TestPlanner_StopsExtendTheCorridor(t *testing.T) {
	p := score.New(discardLogger())

	direct, err := p.Score(context.Background(), resolvedRequest("Market Square", "Met General Hospital"), domain.Profile{})
	require.NoError(t, err)

	withStop := resolvedRequest("Market Square", "Met General Hospital")
	stop := domain.FallbackCoordinate("City Library")
	withStop.Stops = []domain.LocationQuery{{Text: "City Library", Coord: &stop}}
	detoured, err := p.Score(context.Background(), withStop, domain.Profile{})
	require.NoError(t, err)

	assert.GreaterOrEqual(t,
		classOf(t, detoured, domain.ClassFastest).EstimatedDistance,
		classOf(t, direct, domain.ClassFastest).EstimatedDistance)
}

func TestPlanner_InvalidRequest(t *testing.T) {
	p := score.New(discardLogger())

	_, err := p.Score(context.Background(), domain.RouteRequest{}, domain.Profile{})
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)

	// Non-empty but unresolved destination is also rejected.
	unresolved := domain.RouteRequest{
		Origin:      domain.LocationQuery{Text: "Current Location", Coord: &domain.Coordinate{Lat: 1, Lng: 1}},
		Destination: domain.LocationQuery{Text: "Central Park"},
	}
	_, err = p.Score(context.Background(), unresolved, domain.Profile{})
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
}

func TestPlanner_FatigueRanksFastestFirst(t *testing.T) {
	p := score.New(discardLogger())
	// This corridor's hazards carry no stair access problem.
	routes, err := p.Score(context.Background(), resolvedRequest("Riverside Promenade", "Community Center"), domain.Profile{Fatigue: true})
	require.NoError(t, err)
	assert.Equal(t, domain.ClassFastest, routes[0].Class)
}

func TestPlanner_WheelchairNeverRanksStairHazardFirst(t *testing.T) {
	p := score.New(discardLogger())
	// This corridor includes "Stairs at underpass" on the fastest route, and
	// fatigue alone would rank the fastest route first.
	req := resolvedRequest("City Library", "Central Park")

	routes, err := p.Score(context.Background(), req, domain.Profile{Fatigue: true, Wheelchair: true})
	require.NoError(t, err)
	require.NotEmpty(t, routes)
	for _, h := range routes[0].Hazards {
		assert.NotContains(t, h, "Stair")
	}
	assert.Equal(t, domain.ClassSafest, routes[0].Class)
}

func TestPlanner_ProfileShapesWording(t *testing.T) {
	p := score.New(discardLogger())
	req := resolvedRequest("Current Location", "Central Park")

	wheelchair, err := p.Score(context.Background(), req, domain.Profile{Wheelchair: true})
	require.NoError(t, err)
	assert.Contains(t, classOf(t, wheelchair, domain.ClassSafest).Details, "ramp access")

	standard, err := p.Score(context.Background(), req, domain.Profile{})
	require.NoError(t, err)
	assert.NotEqual(t,
		classOf(t, wheelchair, domain.ClassSafest).Details,
		classOf(t, standard, domain.ClassSafest).Details)
}

func TestPlanner_SimulatedLatency(t *testing.T) {
	fakeClock := clockwork.NewFakeClock()
	p := score.New(discardLogger(), score.WithClock(fakeClock), score.WithLatency(800*time.Millisecond))

	type result struct {
		routes []domain.Route
		err    error
	}
	done := make(chan result, 1)
	go func() {
		routes, err := p.Score(context.Background(), resolvedRequest("Home", "Work"), domain.Profile{})
		done <- result{routes, err}
	}()

	fakeClock.BlockUntil(1)
	select {
	case <-done:
		t.Fatal("score returned before the simulated round trip elapsed")
	case <-time.After(50 * time.Millisecond):
	}

	fakeClock.Advance(800 * time.Millisecond)
	res := <-done
	require.NoError(t, res.err)
	assert.Len(t, res.routes, 2)
}

func TestPlanner_LatencyTimeout(t *testing.T) {
	fakeClock := clockwork.NewFakeClock()
	p := score.New(discardLogger(), score.WithClock(fakeClock), score.WithLatency(time.Hour))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := p.Score(ctx, resolvedRequest("Home", "Work"), domain.Profile{})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTimeout)
}

package domain_test

import (
	"testing"
	"time"

	"github.com/accessible-nav/route-engine/internal/domain"
	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoute_ApplyEvent(t *testing.T) {
	r := domain.Route{ID: "r2", Class: domain.ClassFastest, SafetyScore: 65, Hazards: []string{"Steep Slope (8%)"}}

	r.ApplyEvent(domain.HazardEvent{TargetRouteID: "r2", SeverityDelta: -25, HazardLabel: "Blocked Sidewalk"})

	assert.Equal(t, 40, r.SafetyScore)
	assert.Equal(t, []string{"Steep Slope (8%)", "Blocked Sidewalk"}, r.Hazards)
}

func TestRoute_ApplyEvent_ClampsLow(t *testing.T) {
	r := domain.Route{SafetyScore: 40}
	r.ApplyEvent(domain.HazardEvent{SeverityDelta: -1000, HazardLabel: "Road Closed"})
	assert.Equal(t, 0, r.SafetyScore)
}

func TestRoute_ApplyEvent_ClampsHigh(t *testing.T) {
	r := domain.Route{SafetyScore: 95}
	r.ApplyEvent(domain.HazardEvent{SeverityDelta: 20, HazardLabel: "Hazard Cleared"})
	assert.Equal(t, 100, r.SafetyScore)
}

func TestRoute_ApplyEvent_DuplicateLabelsAccumulate(t *testing.T) {
	r := domain.Route{SafetyScore: 80}
	ev := domain.HazardEvent{SeverityDelta: -5, HazardLabel: "Crowding"}
	r.ApplyEvent(ev)
	r.ApplyEvent(ev)
	assert.Equal(t, []string{"Crowding", "Crowding"}, r.Hazards)
	assert.Equal(t, 70, r.SafetyScore)
}

func TestAlertFor(t *testing.T) {
	a := domain.AlertFor(domain.HazardEvent{
		TargetRouteID: "r2",
		Message:       "Live Cam: Construction barrier detected.",
	})
	assert.Equal(t, "r2", a.AffectedRouteID)
	assert.Equal(t, "Live Cam: Construction barrier detected.", a.Message)
	assert.NotEmpty(t, a.Type)
}

func TestNewSavedRoute_SnapshotsTextOnly(t *testing.T) {
	fakeClock := clockwork.NewFakeClockAt(time.Date(2026, time.August, 31, 9, 0, 0, 0, time.UTC))
	domain.SetClock(fakeClock)
	t.Cleanup(func() { domain.SetClock(nil) })

	coord := domain.Coordinate{Lat: 1, Lng: 2}
	req := domain.RouteRequest{
		Origin:      domain.LocationQuery{Text: "Current Location", Coord: &coord},
		Destination: domain.LocationQuery{Text: "Central Park", Coord: &coord},
		Stops:       []domain.LocationQuery{{Text: "City Library"}},
	}

	sr := domain.NewSavedRoute(req)
	require.NotEmpty(t, sr.ID)
	assert.Equal(t, fakeClock.Now(), sr.CreatedAt)

	rebuilt := sr.Request()
	want := domain.RouteRequest{
		Origin:      domain.LocationQuery{Text: "Current Location"},
		Destination: domain.LocationQuery{Text: "Central Park"},
		Stops:       []domain.LocationQuery{{Text: "City Library"}},
	}
	if diff := cmp.Diff(want, rebuilt); diff != "" {
		t.Fatalf("rebuilt request mismatch (-want +got):\n%s", diff)
	}
}

func TestRouteRequest_Validate(t *testing.T) {
	assert.ErrorIs(t, domain.RouteRequest{}.Validate(), domain.ErrInvalidRequest)
	assert.ErrorIs(t, domain.RouteRequest{Destination: domain.LocationQuery{Text: "   "}}.Validate(), domain.ErrInvalidRequest)
	assert.NoError(t, domain.RouteRequest{Destination: domain.LocationQuery{Text: "Central Park"}}.Validate())
}

func TestRouteRequest_Flip(t *testing.T) {
	req := domain.RouteRequest{
		Origin:      domain.LocationQuery{Text: "A"},
		Destination: domain.LocationQuery{Text: "B"},
	}
	req.Flip()
	assert.Equal(t, "B", req.Origin.Text)
	assert.Equal(t, "A", req.Destination.Text)
}

func TestRouteRequest_StopEditing(t *testing.T) {
	var req domain.RouteRequest

	i := req.AddStop()
	require.Equal(t, 0, i)
	req.SetStop(0, "City Library")
	req.AddStop()
	req.SetStop(1, "Met General Hospital")

	req.RemoveStop(0)
	require.Len(t, req.Stops, 1)
	assert.Equal(t, "Met General Hospital", req.Stops[0].Text)

	// Out-of-range edits are no-ops.
	req.SetStop(5, "x")
	req.RemoveStop(-1)
	assert.Len(t, req.Stops, 1)
}

package store_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/accessible-nav/route-engine/internal/domain"
	"github.com/accessible-nav/route-engine/internal/store"
	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *store.SQLite {
	t.Helper()
	s, err := store.Open(":memory:", slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLite_SaveAndList(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	base := time.Date(2026, time.August, 31, 9, 0, 0, 0, time.UTC)
	domain.SetClock(clockwork.NewFakeClockAt(base))
	defer domain.SetClock(nil)

	first := domain.NewSavedRoute(domain.RouteRequest{
		Origin:      domain.LocationQuery{Text: "City Library"},
		Destination: domain.LocationQuery{Text: "Central Park"},
		Stops:       []domain.LocationQuery{{Text: "Community Center"}},
	})
	require.NoError(t, s.Save(ctx, first))

	domain.SetClock(clockwork.NewFakeClockAt(base.Add(time.Hour)))
	second := domain.NewSavedRoute(domain.RouteRequest{
		Origin:      domain.LocationQuery{Text: "Current Location"},
		Destination: domain.LocationQuery{Text: "Met General Hospital"},
	})
	require.NoError(t, s.Save(ctx, second))

	listed, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 2)

	// Newest first.
	assert.Empty(t, cmp.Diff(second, listed[0]))
	assert.Empty(t, cmp.Diff(first, listed[1]))
}

func TestSQLite_SaveDuplicateIDFails(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	route := domain.NewSavedRoute(domain.RouteRequest{
		Destination: domain.LocationQuery{Text: "Central Park"},
	})
	require.NoError(t, s.Save(ctx, route))
	assert.Error(t, s.Save(ctx, route))
}

func TestSQLite_Delete(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	route := domain.NewSavedRoute(domain.RouteRequest{
		Destination: domain.LocationQuery{Text: "Central Park"},
	})
	require.NoError(t, s.Save(ctx, route))
	require.NoError(t, s.Delete(ctx, route.ID))

	listed, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, listed)

	// Unknown ID is a no-op.
	assert.NoError(t, s.Delete(ctx, "missing"))
}

func TestSQLite_RecentPlaces(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	require.NoError(t, s.RecordRecent(ctx, "Central Park"))
	time.Sleep(2 * time.Millisecond)
	require.NoError(t, s.RecordRecent(ctx, "City Library"))
	time.Sleep(2 * time.Millisecond)
	require.NoError(t, s.RecordRecent(ctx, "Central Park"))

	recents, err := s.RecentPlaces(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"Central Park", "City Library"}, recents)

	limited, err := s.RecentPlaces(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"Central Park"}, limited)

	// Blank labels are ignored.
	require.NoError(t, s.RecordRecent(ctx, ""))
	recents, err = s.RecentPlaces(ctx, 5)
	require.NoError(t, err)
	assert.Len(t, recents, 2)
}

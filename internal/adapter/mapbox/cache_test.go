package mapbox

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/accessible-nav/route-engine/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingResolver struct {
	calls   int
	results map[string][]domain.Candidate
	err     error
}

func (r *countingResolver) Resolve(_ context.Context, text string) ([]domain.Candidate, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	return r.results[text], nil
}

func oneCandidate(label string) []domain.Candidate {
	return []domain.Candidate{{Label: label, Coord: domain.Coordinate{Lat: 1, Lng: 2}}}
}

func TestCachedResolver_Hit(t *testing.T) {
	inner := &countingResolver{results: map[string][]domain.Candidate{
		"Central Park": oneCandidate("Central Park"),
	}}
	cached := NewCachedResolver(inner, 10)

	first, err := cached.Resolve(context.Background(), "Central Park")
	require.NoError(t, err)
	second, err := cached.Resolve(context.Background(), "Central Park")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.calls, "second lookup should be served from cache")
}

func TestCachedResolver_EmptyResultsNotCached(t *testing.T) {
	inner := &countingResolver{}
	cached := NewCachedResolver(inner, 10)

	_, err := cached.Resolve(context.Background(), "Nowhere")
	require.NoError(t, err)
	_, err = cached.Resolve(context.Background(), "Nowhere")
	require.NoError(t, err)

	assert.Equal(t, 2, inner.calls, "empty results should be retried")
}

func TestCachedResolver_ErrorsNotCached(t *testing.T) {
	inner := &countingResolver{err: errors.New("boom")}
	cached := NewCachedResolver(inner, 10)

	_, err := cached.Resolve(context.Background(), "Central Park")
	require.Error(t, err)
	_, err = cached.Resolve(context.Background(), "Central Park")
	require.Error(t, err)
	assert.Equal(t, 2, inner.calls)
}

func TestCachedResolver_EvictsLeastRecentlyUsed(t *testing.T) {
	inner := &countingResolver{results: map[string][]domain.Candidate{}}
	for i := 0; i < 3; i++ {
		key := fmt.Sprintf("place-%d", i)
		inner.results[key] = oneCandidate(key)
	}
	cached := NewCachedResolver(inner, 2)

	ctx := context.Background()
	_, _ = cached.Resolve(ctx, "place-0")
	_, _ = cached.Resolve(ctx, "place-1")
	_, _ = cached.Resolve(ctx, "place-0") // refresh place-0
	_, _ = cached.Resolve(ctx, "place-2") // evicts place-1

	calls := inner.calls
	_, _ = cached.Resolve(ctx, "place-0")
	assert.Equal(t, calls, inner.calls, "place-0 should still be cached")

	_, _ = cached.Resolve(ctx, "place-1")
	assert.Equal(t, calls+1, inner.calls, "place-1 should have been evicted")
}

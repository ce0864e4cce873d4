// Package geocode provides deterministic, network-free implementations of the
// location interfaces: a fixed in-memory place table and a stub device
// positioner. Used in tests and when no search provider is configured.
package geocode

import (
	"context"
	"sort"
	"strings"

	"github.com/accessible-nav/route-engine/internal/domain"
)

// Place is one entry in the static table.
type Place struct {
	Name     string
	Category string
	Coord    domain.Coordinate
}

// StaticResolver resolves against a fixed place table. Matching is
// case-insensitive substring; matches that begin with the query rank first,
// ties break alphabetically so results are stable.
type StaticResolver struct {
	places []Place
}

// NewStaticResolver creates a resolver over the given table.
func NewStaticResolver(places []Place) *StaticResolver {
	return &StaticResolver{places: places}
}

// DefaultPlaces is the built-in demo table. Coordinates come from the
// deterministic fallback hash so the map plots them at the same position a
// pseudo-geocoded query would land.
func DefaultPlaces() []Place {
	names := []struct {
		name, category string
	}{
		{"Central Park", "Park"},
		{"City Library", "Public"},
		{"Met General Hospital", "Medical"},
		{"Riverside Promenade", "Park"},
		{"Metro Station North", "Transit"},
		{"Community Center", "Public"},
		{"Market Square", "Shopping"},
	}
	places := make([]Place, 0, len(names))
	for _, n := range names {
		places = append(places, Place{
			Name:     n.name,
			Category: n.category,
			Coord:    domain.FallbackCoordinate(n.name),
		})
	}
	return places
}

func (r *StaticResolver) Resolve(_ context.Context, text string) ([]domain.Candidate, error) {
	query := strings.ToLower(strings.TrimSpace(text))
	if len(query) < domain.MinQueryLength {
		return nil, nil
	}

	type scored struct {
		place  Place
		prefix bool
	}
	var matches []scored
	for _, p := range r.places {
		name := strings.ToLower(p.Name)
		if !strings.Contains(name, query) {
			continue
		}
		matches = append(matches, scored{place: p, prefix: strings.HasPrefix(name, query)})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].prefix != matches[j].prefix {
			return matches[i].prefix
		}
		return matches[i].place.Name < matches[j].place.Name
	})

	candidates := make([]domain.Candidate, 0, len(matches))
	for _, m := range matches {
		candidates = append(candidates, domain.Candidate{
			Label:    m.place.Name,
			Coord:    m.place.Coord,
			Category: m.place.Category,
		})
		if len(candidates) == domain.MaxCandidates {
			break
		}
	}
	return candidates, nil
}

// FixedPositioner is a DevicePositioner pinned to one coordinate, or failing
// with a fixed error when Err is set.
type FixedPositioner struct {
	Pos domain.Coordinate
	Err error
}

func (p *FixedPositioner) CurrentPosition(_ context.Context) (domain.Coordinate, error) {
	if p.Err != nil {
		return domain.Coordinate{}, p.Err
	}
	return p.Pos, nil
}

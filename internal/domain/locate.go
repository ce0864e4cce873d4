package domain

import (
	"context"
	"fmt"
	"strings"
)

// CurrentLocationToken is the origin text that requests the live device
// position instead of an address search.
const CurrentLocationToken = "Current Location"

// MaxCandidates bounds how many suggestions a resolver returns.
const MaxCandidates = 10

// MinQueryLength is the shortest text a resolver will search for. Shorter
// input produces no candidates.
const MinQueryLength = 3

// LocationResolver turns a free-text place name into ranked coordinate
// candidates, best first. Implementations return at most MaxCandidates
// entries and an empty slice for text shorter than MinQueryLength.
// Resolve must be side-effect-free and idempotent for identical input
// within a short window, so callers may cache.
type LocationResolver interface {
	Resolve(ctx context.Context, text string) ([]Candidate, error)
}

// DevicePositioner reports the device's live position.
type DevicePositioner interface {
	CurrentPosition(ctx context.Context) (Coordinate, error)
}

// ResolvePoint produces a plottable coordinate for a location query:
//
//  1. An already attached coordinate is returned as-is.
//  2. The CurrentLocationToken goes to the device positioner. Failure is
//     ErrLocationUnavailable — never the hash fallback, which would plot a
//     fake "current" position.
//  3. Otherwise the top resolver candidate wins.
//  4. With no resolver result (or no resolver), FallbackCoordinate guarantees
//     a deterministic position so the map always has a point to plot.
func ResolvePoint(ctx context.Context, q LocationQuery, resolver LocationResolver, device DevicePositioner) (Coordinate, error) {
	if q.Coord != nil {
		return *q.Coord, nil
	}

	text := trimmed(q.Text)
	if text == CurrentLocationToken {
		if device == nil {
			return Coordinate{}, ErrLocationUnavailable
		}
		pos, err := device.CurrentPosition(ctx)
		if err != nil {
			return Coordinate{}, fmt.Errorf("%w: %v", ErrLocationUnavailable, err)
		}
		return pos, nil
	}

	if resolver != nil && len(text) >= MinQueryLength {
		candidates, err := resolver.Resolve(ctx, text)
		if err == nil && len(candidates) > 0 {
			return candidates[0].Coord, nil
		}
		// Resolver errors degrade to the deterministic fallback; the trip can
		// still be planned against a stable pseudo position.
	}

	return FallbackCoordinate(text), nil
}

func trimmed(s string) string {
	return strings.TrimSpace(s)
}

// Package hazard provides live-hazard sources: a deterministic radius
// scanner for "nearby hazards" mode and a scripted feed for demos and tests.
// The production feed is the Kafka adapter.
package hazard

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/accessible-nav/route-engine/internal/domain"
)

const (
	// scanHazardCount is how many markers one radius scan reports.
	scanHazardCount = 8

	// maxScanOffset bounds marker placement to roughly the 1 km scan circle.
	maxScanOffset = 0.0075
)

var scanTypes = []domain.HazardType{
	domain.HazardCrowd,
	domain.HazardConstruction,
	domain.HazardObstacle,
}

// Scanner produces one-shot hazard snapshots around a center point. The
// snapshot is a pure function of the center: scanning the same position twice
// reports the same hazards, which keeps the map stable across re-renders.
type Scanner struct{}

// NewScanner creates a Scanner.
func NewScanner() *Scanner {
	return &Scanner{}
}

// Scan reports hazards within the radius around center. The context is
// accepted for interface symmetry with network-backed scanners.
func (s *Scanner) Scan(_ context.Context, center domain.Coordinate, radiusMeters int) (domain.HazardScanResult, error) {
	rng := rand.New(rand.NewSource(scanSeed(center)))

	hazards := make([]domain.Hazard, 0, scanHazardCount)
	for i := 0; i < scanHazardCount; i++ {
		typ := scanTypes[rng.Intn(len(scanTypes))]
		h := domain.Hazard{
			Type:      typ,
			LatOffset: (rng.Float64() - 0.5) * 2 * maxScanOffset,
			LngOffset: (rng.Float64() - 0.5) * 2 * maxScanOffset,
			Details:   "Blocked path",
		}
		if typ == domain.HazardCrowd {
			h.Details = "High density"
		}
		hazards = append(hazards, h)
	}

	return domain.HazardScanResult{
		Center:       center,
		RadiusMeters: radiusMeters,
		Hazards:      hazards,
	}, nil
}

// scanSeed derives a stable seed from the center, quantized to ~11 m so tiny
// GPS jitter does not reshuffle the hazard layout.
func scanSeed(center domain.Coordinate) int64 {
	key := fmt.Sprintf("%.4f,%.4f", center.Lat, center.Lng)
	var h uint32
	for _, b := range []byte(key) {
		h = h*31 + uint32(b)
	}
	return int64(h)
}

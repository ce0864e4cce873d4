package domain

import (
	"time"
)

// Coordinate is a WGS-84 latitude/longitude pair.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// GuidanceMode selects how route guidance is delivered to the rider.
type GuidanceMode string

const (
	GuidanceVisual GuidanceMode = "visual"
	GuidanceAudio  GuidanceMode = "audio"
	GuidanceHaptic GuidanceMode = "haptic"
)

// Valid reports whether the mode is one of the supported guidance channels.
func (m GuidanceMode) Valid() bool {
	switch m {
	case GuidanceVisual, GuidanceAudio, GuidanceHaptic:
		return true
	}
	return false
}

// Profile captures a rider's mobility needs. It is confirmed once per
// navigation session and treated as read-only by the scorer.
type Profile struct {
	Wheelchair  bool         `json:"wheelchair"`
	Walker      bool         `json:"walker"`
	Fatigue     bool         `json:"fatigue"`
	AvoidCrowds bool         `json:"avoid_crowds"`
	AvoidSlopes bool         `json:"avoid_slopes"`
	Guidance    GuidanceMode `json:"guidance"`
}

// LocationQuery is a free-text place name, optionally pinned to a coordinate.
// A query is resolved once a coordinate is attached; unresolved queries go
// through ResolvePoint before scoring.
type LocationQuery struct {
	Text  string      `json:"text"`
	Coord *Coordinate `json:"coord,omitempty"`
}

// Resolved reports whether a coordinate is attached.
func (q LocationQuery) Resolved() bool {
	return q.Coord != nil
}

// Candidate is a ranked address-search result.
type Candidate struct {
	Label    string     `json:"label"`
	Coord    Coordinate `json:"coord"`
	Category string     `json:"category,omitempty"`
}

// RouteRequest is a trip search: origin, destination, and zero or more
// intermediate stops in rider-entered order.
type RouteRequest struct {
	Origin      LocationQuery   `json:"origin"`
	Destination LocationQuery   `json:"destination"`
	Stops       []LocationQuery `json:"stops,omitempty"`
}

// Validate checks that the request can be scored. The destination must carry
// non-empty text; the origin may be empty (it defaults to the device position).
func (r RouteRequest) Validate() error {
	if trimmed(r.Destination.Text) == "" {
		return ErrInvalidRequest
	}
	return nil
}

// Flip swaps origin and destination in place.
func (r *RouteRequest) Flip() {
	r.Origin, r.Destination = r.Destination, r.Origin
}

// AddStop appends an empty stop and returns its index.
func (r *RouteRequest) AddStop() int {
	r.Stops = append(r.Stops, LocationQuery{})
	return len(r.Stops) - 1
}

// SetStop replaces the stop at index i, dropping any previously attached
// coordinate. Out-of-range indexes are ignored.
func (r *RouteRequest) SetStop(i int, text string) {
	if i < 0 || i >= len(r.Stops) {
		return
	}
	r.Stops[i] = LocationQuery{Text: text}
}

// RemoveStop deletes the stop at index i, preserving the order of the rest.
// Out-of-range indexes are ignored.
func (r *RouteRequest) RemoveStop(i int) {
	if i < 0 || i >= len(r.Stops) {
		return
	}
	r.Stops = append(r.Stops[:i], r.Stops[i+1:]...)
}

// RouteClass labels a candidate route by what it optimizes for.
type RouteClass string

const (
	ClassSafest  RouteClass = "Safest"
	ClassFastest RouteClass = "Fastest"
)

// Route is one scored candidate for a request. ID and Class are fixed at
// scoring time; SafetyScore and Hazards change only through ApplyEvent.
type Route struct {
	ID                string        `json:"id"`
	Class             RouteClass    `json:"class"`
	EstimatedTime     time.Duration `json:"estimated_time"`
	EstimatedDistance float64       `json:"estimated_distance_m"`
	SafetyScore       int           `json:"safety_score"`
	Hazards           []string      `json:"hazards"`
	Details           string        `json:"details,omitempty"`
}

// HazardEvent is a live observation affecting one route. Each event is
// consumed exactly once; repeats are new observations, so duplicate labels
// may accumulate on a route.
type HazardEvent struct {
	TargetRouteID string `json:"target_route_id"`
	SeverityDelta int    `json:"severity_delta"`
	HazardLabel   string `json:"hazard_label"`
	Message       string `json:"message"`
}

// Alert is the user-facing notification derived from a hazard event.
type Alert struct {
	Type            string `json:"type"`
	Message         string `json:"message"`
	AffectedRouteID string `json:"affected_route_id"`
}

// HazardType classifies a radius-scan hazard marker.
type HazardType string

const (
	HazardCrowd        HazardType = "Crowd"
	HazardConstruction HazardType = "Construction"
	HazardObstacle     HazardType = "Obstacle"
)

// Hazard is a nearby obstruction found by a radius scan, positioned relative
// to the scan center.
type Hazard struct {
	Type      HazardType `json:"type"`
	LatOffset float64    `json:"lat_offset"`
	LngOffset float64    `json:"lng_offset"`
	Details   string     `json:"details,omitempty"`
}

// HazardScanResult is a one-shot snapshot of hazards around a center point.
// It is not tied to any route.
type HazardScanResult struct {
	Center       Coordinate `json:"center"`
	RadiusMeters int        `json:"radius_meters"`
	Hazards      []Hazard   `json:"hazards"`
}

// SavedRoute is a persisted trip snapshot. Only the text of each location is
// kept; coordinates are re-resolved when the route is reused.
type SavedRoute struct {
	ID          string    `json:"id"`
	Origin      string    `json:"origin"`
	Destination string    `json:"destination"`
	Stops       []string  `json:"stops,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

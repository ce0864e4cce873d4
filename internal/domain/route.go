package domain

import "github.com/google/uuid"

// ApplyEvent folds a live hazard event into the route: the severity delta is
// added to the safety score (clamped to [0,100]) and the hazard label is
// appended. Labels are not deduplicated — a repeated event is a new
// real-world observation.
func (r *Route) ApplyEvent(ev HazardEvent) {
	r.SafetyScore = clampScore(r.SafetyScore + ev.SeverityDelta)
	if ev.HazardLabel != "" {
		r.Hazards = append(r.Hazards, ev.HazardLabel)
	}
}

// AlertFor derives the user-facing alert for a hazard event.
func AlertFor(ev HazardEvent) Alert {
	return Alert{
		Type:            "Obstacle Detected",
		Message:         ev.Message,
		AffectedRouteID: ev.TargetRouteID,
	}
}

// NewSavedRoute snapshots a request for persistence. Coordinates are
// deliberately dropped: a reused route re-resolves its locations.
func NewSavedRoute(req RouteRequest) SavedRoute {
	stops := make([]string, 0, len(req.Stops))
	for _, s := range req.Stops {
		stops = append(stops, s.Text)
	}
	return SavedRoute{
		ID:          uuid.NewString(),
		Origin:      req.Origin.Text,
		Destination: req.Destination.Text,
		Stops:       stops,
		CreatedAt:   clock.Now(),
	}
}

// Request rebuilds an unresolved route request from the snapshot.
func (sr SavedRoute) Request() RouteRequest {
	req := RouteRequest{
		Origin:      LocationQuery{Text: sr.Origin},
		Destination: LocationQuery{Text: sr.Destination},
	}
	for _, s := range sr.Stops {
		req.Stops = append(req.Stops, LocationQuery{Text: s})
	}
	return req
}

func clampScore(s int) int {
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}

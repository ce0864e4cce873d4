// Package http exposes the navigation session over a JSON API, alongside
// health, readiness, and metrics endpoints.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/accessible-nav/route-engine/internal/domain"
	"github.com/accessible-nav/route-engine/internal/session"
	"github.com/accessible-nav/route-engine/internal/suggest"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// RecentRecorder persists recently used destination labels for suggestion
// display. Optional; a nil recorder disables the /v1/places/recent routes.
type RecentRecorder interface {
	RecordRecent(ctx context.Context, label string) error
	RecentPlaces(ctx context.Context, limit int) ([]string, error)
}

// Server exposes the session API plus operational endpoints.
type Server struct {
	httpServer *http.Server
	session    *session.Session
	suggest    map[string]*suggest.Session
	recents    RecentRecorder
	logger     *slog.Logger
}

// NewServer wires the session and the per-field suggestion sessions into the
// route tree. The suggest map is keyed by field name ("origin",
// "destination").
func NewServer(addr string, sess *session.Session, fields map[string]*suggest.Session, recents RecentRecorder, ready ReadinessChecker, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		session: sess,
		suggest: fields,
		recents: recents,
		logger:  logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("POST /v1/profile", s.handleProfile)
	mux.HandleFunc("GET /v1/state", s.handleState)

	mux.HandleFunc("PUT /v1/request", s.handleSetRequest)
	mux.HandleFunc("POST /v1/request/flip", s.handleFlip)

	mux.HandleFunc("POST /v1/suggest/{field}", s.handleSuggestText)
	mux.HandleFunc("GET /v1/suggest/{field}", s.handleSuggestCandidates)
	mux.HandleFunc("POST /v1/suggest/{field}/select", s.handleSuggestSelect)

	mux.HandleFunc("POST /v1/submit", s.handleSubmit)
	mux.HandleFunc("POST /v1/back", s.handleBack)
	mux.HandleFunc("GET /v1/routes", s.handleRoutes)
	mux.HandleFunc("GET /v1/map", s.handleMap)
	mux.HandleFunc("POST /v1/hazards/scan", s.handleScan)

	mux.HandleFunc("POST /v1/routes/save", s.handleSave)
	mux.HandleFunc("GET /v1/routes/saved", s.handleSavedList)
	mux.HandleFunc("POST /v1/routes/saved/{id}/select", s.handleSavedSelect)

	if recents != nil {
		mux.HandleFunc("GET /v1/places/recent", s.handleRecent)
	}

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	var profile domain.Profile
	if err := json.NewDecoder(r.Body).Decode(&profile); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.session.CompleteProfile(profile); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"state": string(s.session.State())})
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	resp := map[string]any{
		"state":   string(s.session.State()),
		"profile": s.session.Profile(),
		"request": s.session.Request(),
	}
	if err := s.session.LastErr(); err != nil {
		resp["last_error"] = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

type requestBody struct {
	Origin      string   `json:"origin"`
	Destination string   `json:"destination"`
	Stops       []string `json:"stops"`
}

func (s *Server) handleSetRequest(w http.ResponseWriter, r *http.Request) {
	var body requestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	// Per-field suggestion state supersedes raw text when a candidate was
	// pinned there.
	s.session.SetOrigin(s.fieldQuery("origin", body.Origin))
	s.session.SetDestination(s.fieldQuery("destination", body.Destination))
	s.session.SetStops(body.Stops)

	writeJSON(w, http.StatusOK, s.session.Request())
}

// fieldQuery prefers the pinned suggestion coordinate when the submitted text
// matches the field's selected candidate.
func (s *Server) fieldQuery(field, text string) domain.LocationQuery {
	if sg, ok := s.suggest[field]; ok {
		if q, err := sg.Query(); err == nil && q.Text == text && q.Resolved() {
			return q
		}
	}
	return domain.LocationQuery{Text: text}
}

func (s *Server) handleFlip(w http.ResponseWriter, _ *http.Request) {
	s.session.Flip()
	writeJSON(w, http.StatusOK, s.session.Request())
}

func (s *Server) suggestField(w http.ResponseWriter, r *http.Request) (*suggest.Session, bool) {
	field := r.PathValue("field")
	sg, ok := s.suggest[field]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown field " + field})
	}
	return sg, ok
}

func (s *Server) handleSuggestText(w http.ResponseWriter, r *http.Request) {
	sg, ok := s.suggestField(w, r)
	if !ok {
		return
	}
	var body struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	sg.SetText(body.Text)
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleSuggestCandidates(w http.ResponseWriter, r *http.Request) {
	sg, ok := s.suggestField(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"candidates": sg.Candidates()})
}

func (s *Server) handleSuggestSelect(w http.ResponseWriter, r *http.Request) {
	sg, ok := s.suggestField(w, r)
	if !ok {
		return
	}
	var candidate domain.Candidate
	if err := json.NewDecoder(r.Body).Decode(&candidate); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	sg.Select(candidate)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if err := s.session.Submit(r.Context()); err != nil {
		writeDomainError(w, err)
		return
	}
	if s.recents != nil {
		dest := s.session.Request().Destination.Text
		if err := s.recents.RecordRecent(r.Context(), dest); err != nil {
			s.logger.Warn("recent place not recorded", "error", err)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"state":  string(s.session.State()),
		"routes": s.session.Routes(),
		"map":    s.session.MapBundle(),
	})
}

func (s *Server) handleBack(w http.ResponseWriter, _ *http.Request) {
	s.session.Back()
	writeJSON(w, http.StatusOK, map[string]string{"state": string(s.session.State())})
}

func (s *Server) handleRoutes(w http.ResponseWriter, _ *http.Request) {
	resp := map[string]any{
		"state":  string(s.session.State()),
		"routes": s.session.Routes(),
	}
	if alert := s.session.Alert(); alert != nil {
		resp["alert"] = alert
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMap(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.session.MapBundle())
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	if err := s.session.EnterHazardScan(r.Context()); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"state": string(s.session.State()),
		"scan":  s.session.ScanResult(),
	})
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	saved, err := s.session.Save(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

func (s *Server) handleSavedList(w http.ResponseWriter, r *http.Request) {
	routes, err := s.session.SavedRoutes(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"saved": routes})
}

func (s *Server) handleSavedSelect(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	routes, err := s.session.SavedRoutes(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	for _, sr := range routes {
		if sr.ID != id {
			continue
		}
		if err := s.session.SelectSaved(sr); err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"state":   string(s.session.State()),
			"request": s.session.Request(),
		})
		return
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "no saved route " + id})
}

func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	places, err := s.recents.RecentPlaces(r.Context(), 5)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"recent": places})
}

// writeDomainError maps the error taxonomy onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, domain.ErrLocationUnavailable):
		writeError(w, http.StatusConflict, err)
	case errors.Is(err, domain.ErrTimeout):
		writeError(w, http.StatusGatewayTimeout, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}

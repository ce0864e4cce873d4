package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/accessible-nav/route-engine/internal/adapter/http"
	kafkaadapter "github.com/accessible-nav/route-engine/internal/adapter/kafka"
	"github.com/accessible-nav/route-engine/internal/adapter/mapbox"
	"github.com/accessible-nav/route-engine/internal/config"
	"github.com/accessible-nav/route-engine/internal/domain"
	"github.com/accessible-nav/route-engine/internal/geocode"
	"github.com/accessible-nav/route-engine/internal/hazard"
	"github.com/accessible-nav/route-engine/internal/observability"
	"github.com/accessible-nav/route-engine/internal/score"
	"github.com/accessible-nav/route-engine/internal/session"
	"github.com/accessible-nav/route-engine/internal/store"
	"github.com/accessible-nav/route-engine/internal/suggest"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
)

// readiness reports ready once the store answers a query.
type readiness struct {
	store *store.SQLite
}

func (r *readiness) CheckReadiness(ctx context.Context) error {
	_, err := r.store.List(ctx)
	return err
}

func main() {
	// Local development convenience; absence of a .env file is fine.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	// Geocoding (feature-flagged via MAPBOX_ENABLED / MAPBOX_TOKEN). Without
	// Mapbox the static table still answers suggestions, and unmatched text
	// falls back to deterministic coordinates.
	var resolver domain.LocationResolver
	if cfg.MapboxEnabled {
		client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, logger)
		resolver = mapbox.NewCachedResolver(client, cfg.MapboxCacheSize)
		logger.Info("mapbox geocoding enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
	} else {
		resolver = geocode.NewStaticResolver(geocode.DefaultPlaces())
		logger.Info("mapbox geocoding disabled, using static place table")
	}

	// There is no real positioning hardware behind the service; the fixed
	// positioner stands in for the device GPS.
	device := &geocode.FixedPositioner{Pos: domain.Coordinate{Lat: domain.ReferenceLat, Lng: domain.ReferenceLng}}

	db, err := store.Open(cfg.SQLitePath, logger)
	if err != nil {
		logger.Error("failed to open saved-route store", "error", err)
		os.Exit(1)
	}

	planner := score.New(logger, score.WithLatency(cfg.ScoreLatency))

	var feed session.HazardFeed
	if cfg.KafkaEnabled {
		feed = kafkaadapter.NewFeed(cfg, logger)
		logger.Info("kafka hazard feed enabled", "topic", cfg.KafkaHazardTopic, "brokers", cfg.KafkaBrokers)
	} else {
		feed = hazard.NewScriptedFeed(clockwork.NewRealClock(), 4*time.Second, hazard.DemoScript)
		logger.Info("kafka hazard feed disabled, using scripted demo feed")
	}

	sess := session.New(resolver, device, planner, feed, hazard.NewScanner(), db, logger, metrics,
		session.WithResolveTimeout(cfg.ResolveTimeout),
		session.WithScoreTimeout(cfg.ScoreTimeout),
		session.WithScanRadius(cfg.ScanRadiusM),
	)

	fields := map[string]*suggest.Session{
		"origin":      suggest.New(resolver, logger, metrics, suggest.WithDebounce(cfg.SuggestDebounce), suggest.WithTimeout(cfg.ResolveTimeout)),
		"destination": suggest.New(resolver, logger, metrics, suggest.WithDebounce(cfg.SuggestDebounce), suggest.WithTimeout(cfg.ResolveTimeout)),
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, sess, fields, db, &readiness{store: db}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := db.Close(); err != nil {
		logger.Error("store close error", "error", err)
	}

	logger.Info("shutdown complete")
}

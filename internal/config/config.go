package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Mapbox geocoding configuration.
	MapboxToken     string
	MapboxEnabled   bool
	MapboxTimeout   time.Duration
	MapboxCacheSize int

	// Live hazard feed configuration.
	KafkaBrokers     []string
	KafkaHazardTopic string
	KafkaGroupID     string
	KafkaEnabled     bool

	SuggestDebounce time.Duration
	ResolveTimeout  time.Duration
	ScoreTimeout    time.Duration
	ScoreLatency    time.Duration
	ScanRadiusM     int

	SQLitePath string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	mapboxTimeout, err := parseDuration("MAPBOX_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}
	suggestDebounce, err := parseDuration("SUGGEST_DEBOUNCE", "500ms")
	if err != nil {
		return nil, err
	}
	resolveTimeout, err := parseDuration("RESOLVE_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	scoreTimeout, err := parseDuration("SCORE_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	scoreLatency, err := parseDuration("SCORE_LATENCY", "0s")
	if err != nil {
		return nil, err
	}

	mapboxToken := os.Getenv("MAPBOX_TOKEN")
	mapboxEnabled := mapboxToken != ""
	if v := os.Getenv("MAPBOX_ENABLED"); v != "" {
		mapboxEnabled = v == "true"
	}

	kafkaEnabled := false
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		MapboxToken:     mapboxToken,
		MapboxEnabled:   mapboxEnabled,
		MapboxTimeout:   mapboxTimeout,
		MapboxCacheSize: parsePositiveInt("MAPBOX_CACHE_SIZE", 1000),

		KafkaBrokers:     parseBrokers(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaHazardTopic: envOrDefault("KAFKA_HAZARD_TOPIC", "live-hazard-events"),
		KafkaGroupID:     envOrDefault("KAFKA_GROUP_ID", "route-engine"),
		KafkaEnabled:     kafkaEnabled,

		SuggestDebounce: suggestDebounce,
		ResolveTimeout:  resolveTimeout,
		ScoreTimeout:    scoreTimeout,
		ScoreLatency:    scoreLatency,
		ScanRadiusM:     parsePositiveInt("SCAN_RADIUS_M", 1000),

		SQLitePath: envOrDefault("SQLITE_PATH", "route-engine.db"),
	}

	if cfg.MapboxEnabled && cfg.MapboxToken == "" {
		return nil, errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is empty")
	}
	if cfg.KafkaEnabled && cfg.KafkaHazardTopic == "" {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_HAZARD_TOPIC is empty")
	}

	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDuration(key, def string) (time.Duration, error) {
	s := envOrDefault(key, def)
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return 0, errors.New("invalid " + key)
	}
	return d, nil
}

func parsePositiveInt(key string, def int) int {
	if s := os.Getenv(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func parseBrokers(s string) []string {
	var out []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

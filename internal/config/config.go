package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config holds all tool settings, populated from environment variables.
type Config struct {
	STACBaseURL string
	STACTimeout time.Duration

	CacheDir     string
	FetchTimeout time.Duration

	OverpassURL     string
	OverpassTimeout time.Duration
	NominatimURL    string

	HTTPAddr        string // status server address, empty disables it
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Kafka feature export, disabled unless brokers are set.
	KafkaBrokers []string
	KafkaTopic   string

	SkipFailedTiles bool
}

// ExportEnabled reports whether computed features should be published to
// Kafka.
func (c *Config) ExportEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	stacTimeout, err := envDuration("STAC_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}
	fetchTimeout, err := envDuration("FETCH_TIMEOUT", 5*time.Minute)
	if err != nil {
		return nil, err
	}
	overpassTimeout, err := envDuration("OVERPASS_TIMEOUT", 180*time.Second)
	if err != nil {
		return nil, err
	}
	shutdownTimeout, err := envDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		STACBaseURL:     envOrDefault("STAC_BASE_URL", "https://data.geo.admin.ch/api/stac/v0.9"),
		STACTimeout:     stacTimeout,
		CacheDir:        envOrDefault("CACHE_DIR", defaultCacheDir()),
		FetchTimeout:    fetchTimeout,
		OverpassURL:     envOrDefault("OVERPASS_URL", "https://overpass-api.de/api/interpreter"),
		OverpassTimeout: overpassTimeout,
		NominatimURL:    envOrDefault("NOMINATIM_URL", "https://nominatim.openstreetmap.org"),
		HTTPAddr:        os.Getenv("HTTP_ADDR"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
		KafkaBrokers:    parseBrokers(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:      envOrDefault("KAFKA_TOPIC", "building-features"),
		SkipFailedTiles: os.Getenv("SKIP_FAILED_TILES") == "true",
	}

	if cfg.STACBaseURL == "" {
		return nil, errors.New("STAC_BASE_URL is required")
	}
	if cfg.CacheDir == "" {
		return nil, errors.New("CACHE_DIR is required")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseBrokers(s string) []string {
	if s == "" {
		return nil
	}
	var brokers []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

func defaultCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "swisstopopy")
	}
	return ".swisstopopy-cache"
}

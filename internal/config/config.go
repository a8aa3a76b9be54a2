package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration for the insight service.
type Config struct {
	Port string

	// Primary durable store (Postgres).
	DatabaseURL string

	// Blob store (S3-compatible).
	BlobEndpoint  string
	BlobAccessKey string
	BlobSecretKey string
	BlobBucket    string
	BlobUseSSL    bool

	// Model gateways.
	UnderstandingURL string
	EmbeddingURL     string
	TranscribeURL    string
	GatewayAPIKey    string
	GatewayModel     string

	// Embedding contract.
	EmbeddingDimension    int
	SegmentDurationSecond int

	// Async job polling.
	PollInterval time.Duration
	PollMaxWait  time.Duration

	// Cache-only entries older than this are treated as not-found.
	CacheFreshness time.Duration

	// Concurrent pipeline invocations during batch ingestion.
	PoolSize int

	ManifestPath string
}

// Load reads configuration from the environment. Callers load .env first.
func Load() (*Config, error) {
	cfg := &Config{
		Port:                  envOr("PORT", "8080"),
		DatabaseURL:           os.Getenv("DATABASE_URL"),
		BlobEndpoint:          os.Getenv("BLOB_ENDPOINT"),
		BlobAccessKey:         os.Getenv("BLOB_ACCESS_KEY"),
		BlobSecretKey:         os.Getenv("BLOB_SECRET_KEY"),
		BlobBucket:            envOr("BLOB_BUCKET", "media-insights"),
		BlobUseSSL:            os.Getenv("BLOB_USE_SSL") == "true",
		UnderstandingURL:      os.Getenv("UNDERSTANDING_URL"),
		EmbeddingURL:          os.Getenv("EMBEDDING_URL"),
		TranscribeURL:         os.Getenv("TRANSCRIBE_URL"),
		GatewayAPIKey:         os.Getenv("GATEWAY_API_KEY"),
		GatewayModel:          envOr("GATEWAY_MODEL", "default"),
		EmbeddingDimension:    envInt("EMBEDDING_DIMENSION", 1024),
		SegmentDurationSecond: envInt("SEGMENT_DURATION_SECONDS", 6),
		PollInterval:          envDuration("POLL_INTERVAL", 2*time.Second),
		PollMaxWait:           envDuration("POLL_MAX_WAIT", 5*time.Minute),
		CacheFreshness:        envDuration("CACHE_FRESHNESS_WINDOW", 5*time.Minute),
		PoolSize:              envInt("POOL_SIZE", 4),
		ManifestPath:          envOr("MANIFEST_PATH", "media_manifest.xlsx"),
	}
	if cfg.EmbeddingDimension <= 0 {
		return nil, fmt.Errorf("EMBEDDING_DIMENSION must be positive")
	}
	if cfg.PollInterval <= 0 || cfg.PollMaxWait <= 0 {
		return nil, fmt.Errorf("poll interval and max wait must be positive")
	}
	return cfg, nil
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envDuration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

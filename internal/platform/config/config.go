package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures process-level configuration for the audit service.
type Config struct {
	Addr        string
	PostgresDSN string
	RedisURL    string

	// Evidence retrieval
	EvidenceAPIBase  string
	EvidenceAPIKey   string
	EvidenceCacheTTL time.Duration

	// Risk scorer (NLI inference endpoint)
	ScorerEndpoint string

	// Audit trail
	KafkaBrokers []string
	AuditTopic   string

	// API security
	APIKeyHash    string
	JWTSigningKey string

	// Pipeline tuning
	AdjudicationWorkers int
}

const defaultEvidenceCacheTTL = 15 * time.Minute

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	cfg := Config{
		Addr:                envOr("DEBRIEF_ADDR", ":8080"),
		PostgresDSN:         os.Getenv("DEBRIEF_POSTGRES_DSN"),
		RedisURL:            os.Getenv("DEBRIEF_REDIS_URL"),
		EvidenceAPIBase:     envOr("EVIDENCE_API_BASE", "https://api.scite.ai"),
		EvidenceAPIKey:      os.Getenv("EVIDENCE_API_KEY"),
		EvidenceCacheTTL:    defaultEvidenceCacheTTL,
		ScorerEndpoint:      os.Getenv("SCORER_ENDPOINT"),
		AuditTopic:          envOr("AUDIT_TOPIC", "debrief.audit"),
		APIKeyHash:          os.Getenv("API_KEY_HASH"),
		JWTSigningKey:       os.Getenv("JWT_SIGNING_KEY"),
		AdjudicationWorkers: envIntOr("ADJUDICATION_WORKERS", 4),
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}

	if ttl := os.Getenv("EVIDENCE_CACHE_TTL"); ttl != "" {
		if d, err := time.ParseDuration(ttl); err == nil {
			cfg.EvidenceCacheTTL = d
		}
	}

	if cfg.JWTSigningKey == "" {
		// Use a default for development - should be overridden in production
		cfg.JWTSigningKey = "dev-secret-key-change-in-production"
	}

	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

// RedisConfig carries connection tuning for the shared Redis client.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// RedisFromEnv derives Redis settings with production-safe defaults.
func RedisFromEnv() RedisConfig {
	return RedisConfig{
		URL:          os.Getenv("DEBRIEF_REDIS_URL"),
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

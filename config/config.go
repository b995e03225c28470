// Package config loads service configuration from DIALOG_* environment
// variables with sensible defaults.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds every tunable the service exposes.
type Config struct {
	ListenAddr string

	// Store selects the session store driver: "redis" or "memory". The
	// memory driver does not survive restarts and is only meant for
	// single-instance deployments.
	Store         string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	SessionTTL         time.Duration
	CredentialLifetime time.Duration
	SigningKey         string

	HistoryDepth   int
	MaxStoredTurns int

	OutputReserve     int
	SafetyBuffer      int
	MinAvailable      int
	MinPassageTokens  int
	ShrinkStepPercent int

	RetrievalLimit    int
	RetrievalTimeout  time.Duration
	GenerationTimeout time.Duration

	QdrantURL        string
	QdrantCollection string
	QdrantAPIKey     string
	EmbedURL         string

	SupabaseURL    string
	SupabaseAPIKey string
	RulesetFile    string

	Guidance   string
	Disclaimer string
}

// Load reads the environment and validates the result.
func Load() (*Config, error) {
	cfg := &Config{
		ListenAddr: getEnv("DIALOG_LISTEN_ADDR", ":8080"),

		Store:         getEnv("DIALOG_STORE", "redis"),
		RedisAddr:     getEnv("DIALOG_REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("DIALOG_REDIS_PASSWORD", ""),
		RedisDB:       getIntEnv("DIALOG_REDIS_DB", 0),

		SessionTTL:         getDurationEnv("DIALOG_SESSION_TTL", 24*time.Hour),
		CredentialLifetime: getDurationEnv("DIALOG_CREDENTIAL_LIFETIME", 7*24*time.Hour),
		SigningKey:         getEnv("DIALOG_SIGNING_KEY", ""),

		HistoryDepth:   getIntEnv("DIALOG_HISTORY_DEPTH", 6),
		MaxStoredTurns: getIntEnv("DIALOG_MAX_STORED_TURNS", 50),

		OutputReserve:     getIntEnv("DIALOG_OUTPUT_RESERVE", 768),
		SafetyBuffer:      getIntEnv("DIALOG_SAFETY_BUFFER", 50),
		MinAvailable:      getIntEnv("DIALOG_MIN_AVAILABLE", 100),
		MinPassageTokens:  getIntEnv("DIALOG_MIN_PASSAGE_TOKENS", 25),
		ShrinkStepPercent: getIntEnv("DIALOG_SHRINK_STEP_PERCENT", 10),

		RetrievalLimit:    getIntEnv("DIALOG_RETRIEVAL_LIMIT", 3),
		RetrievalTimeout:  getDurationEnv("DIALOG_RETRIEVAL_TIMEOUT", 10*time.Second),
		GenerationTimeout: getDurationEnv("DIALOG_GENERATION_TIMEOUT", 60*time.Second),

		QdrantURL:        getEnv("DIALOG_QDRANT_URL", ""),
		QdrantCollection: getEnv("DIALOG_QDRANT_COLLECTION", "documents"),
		QdrantAPIKey:     getEnv("DIALOG_QDRANT_API_KEY", ""),
		EmbedURL:         getEnv("DIALOG_EMBED_URL", ""),

		SupabaseURL:    getEnv("DIALOG_SUPABASE_URL", ""),
		SupabaseAPIKey: getEnv("DIALOG_SUPABASE_API_KEY", ""),
		RulesetFile:    getEnv("DIALOG_RULESET_FILE", ""),

		Guidance:   getEnv("DIALOG_GUIDANCE", ""),
		Disclaimer: getEnv("DIALOG_DISCLAIMER", ""),
	}

	if cfg.SigningKey == "" {
		return nil, fmt.Errorf("DIALOG_SIGNING_KEY must be set")
	}
	if cfg.Store != "redis" && cfg.Store != "memory" {
		return nil, fmt.Errorf("DIALOG_STORE must be redis or memory, got %q", cfg.Store)
	}
	if cfg.QdrantURL != "" && cfg.EmbedURL == "" {
		return nil, fmt.Errorf("DIALOG_EMBED_URL must be set when DIALOG_QDRANT_URL is set")
	}
	if cfg.SupabaseURL == "" && cfg.RulesetFile == "" {
		return nil, fmt.Errorf("one of DIALOG_SUPABASE_URL or DIALOG_RULESET_FILE must be set")
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getIntEnv(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getDurationEnv(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

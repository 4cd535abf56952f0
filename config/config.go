package config

import (
	"os"
	"strconv"
	"time"
)

/* =========================
   DEFAULTS
========================= */

const (
	// Server settings
	DefaultServerAddr = "0.0.0.0:8080"

	// Bet processing
	DefaultNumEngines = 4
	MaxNumGames       = 100 // rounds per bet request

	// WebSocket settings
	WSReadDeadline  = 60 * time.Second
	WSWriteDeadline = 10 * time.Second
	WSPingInterval  = 20 * time.Second

	// Buffer sizes
	WSReadBufferSize  = 1024
	WSWriteBufferSize = 1024

	// Rate limiting
	BetRateLimit       = 30
	BetRateLimitWindow = time.Minute
)

// Config holds the runtime configuration, read once at startup.
type Config struct {
	ServerAddr    string
	DatabaseURL   string
	RedisURL      string
	RedisPassword string
	RedisDB       int
	JWTSecret     string
	NumEngines    int
}

// Load reads the configuration from environment variables. Call after
// godotenv has populated the environment.
func Load() Config {
	cfg := Config{
		ServerAddr:    getEnv("SERVER_ADDR", DefaultServerAddr),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		NumEngines:    DefaultNumEngines,
	}

	if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
		if db, err := strconv.Atoi(dbStr); err == nil {
			cfg.RedisDB = db
		}
	}
	if engStr := os.Getenv("NUM_ENGINES"); engStr != "" {
		if engines, err := strconv.Atoi(engStr); err == nil && engines > 0 {
			cfg.NumEngines = engines
		}
	}

	return cfg
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

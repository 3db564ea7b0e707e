package app

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	UpstreamURL   string // Required: base URL of the portal, e.g. https://portal.example.com
	DatabaseFile  string // Optional: path to the SQLite snapshot file (default: ./gateway.db)
	MasterKeyPath string // Optional: path to the master key file for sealing credentials at rest

	RefreshInterval time.Duration // Optional: background refresh sweep interval (default: 2h)
	FlushInterval   time.Duration // Optional: snapshot flush interval (default: 5m)
	ChallengeTTL    time.Duration // Optional: pending second-factor lifetime (default: 10m)
	UpstreamTimeout time.Duration // Optional: per-call timeout against the portal (default: 20s)

	Env                 string        // Environment (dev, staging, prod) (default: dev)
	LogLevel            string        // Log level (debug, info, warn, error) (default: info)
	LogFormat           string        // Log format (json, text) (default: json)
	Port                int           // HTTP server port (default: 8080)
	ShutdownGracePeriod time.Duration // Graceful shutdown timeout (default: 10s)
}

func LoadConfig() Config {
	return Config{
		UpstreamURL:   os.Getenv("GATEWAY_UPSTREAM_URL"),
		DatabaseFile:  getEnvOrDefault("GATEWAY_DATABASE_FILE", "gateway.db"),
		MasterKeyPath: os.Getenv("GATEWAY_MASTER_KEY_PATH"), // Optional

		RefreshInterval: getEnvDurationOrDefault("GATEWAY_REFRESH_INTERVAL", 2*time.Hour),
		FlushInterval:   getEnvDurationOrDefault("GATEWAY_FLUSH_INTERVAL", 5*time.Minute),
		ChallengeTTL:    getEnvDurationOrDefault("GATEWAY_CHALLENGE_TTL", 10*time.Minute),
		UpstreamTimeout: getEnvDurationOrDefault("GATEWAY_UPSTREAM_TIMEOUT", 20*time.Second),

		Env:                 getEnvOrDefault("ENV", "dev"),
		LogLevel:            getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:           getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod: getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Plain integers are taken as minutes
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}

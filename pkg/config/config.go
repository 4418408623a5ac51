// Package config loads engine configuration from environment variables.
package config

import (
	"os"
	"strconv"
)

// Config holds process configuration for embedding the engine.
type Config struct {
	LogLevel     string
	PackDir      string // directory of rule pack YAML files
	RedisAddr    string // empty disables the shared IR cache
	OTLPEndpoint string
	CacheSize    int
	Parallelism  int
}

// Load reads configuration from the environment, falling back to local
// development defaults.
func Load() *Config {
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "INFO"
	}

	packDir := os.Getenv("RULE_PACK_DIR")
	if packDir == "" {
		packDir = "./packs"
	}

	otlpEndpoint := os.Getenv("OTLP_ENDPOINT")
	if otlpEndpoint == "" {
		otlpEndpoint = "localhost:4317"
	}

	cacheSize := intEnv("IR_CACHE_SIZE", 1024)
	parallelism := intEnv("BATCH_PARALLELISM", 8)

	return &Config{
		LogLevel:     logLevel,
		PackDir:      packDir,
		RedisAddr:    os.Getenv("REDIS_ADDR"),
		OTLPEndpoint: otlpEndpoint,
		CacheSize:    cacheSize,
		Parallelism:  parallelism,
	}
}

func intEnv(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

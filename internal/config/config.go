// Package config provides the environment/default loading helpers the
// core uses for its own tunables, adapted from the host platform's
// infrastructure/config loader (trimmed to the env/secret-less subset
// that fits a library with no Marble/TEE runtime of its own).
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

var getenv = os.Getenv

// LoadDotEnvIfPresent loads a .env file into the process environment if
// one exists at path. Missing files are not an error — this mirrors the
// host platform's local-development convenience loader.
func LoadDotEnvIfPresent(path string) {
	_ = godotenv.Load(path)
}

// GetEnv retrieves an environment variable with a default fallback.
func GetEnv(key, defaultValue string) string {
	if v := strings.TrimSpace(getenv(key)); v != "" {
		return v
	}
	return defaultValue
}

// GetEnvInt retrieves an integer environment variable, falling back to
// defaultValue on absence or parse failure.
func GetEnvInt(key string, defaultValue int) int {
	v := strings.TrimSpace(getenv(key))
	if v == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue
	}
	return n
}

// GetEnvFloat retrieves a float environment variable, falling back to
// defaultValue on absence or parse failure.
func GetEnvFloat(key string, defaultValue float64) float64 {
	v := strings.TrimSpace(getenv(key))
	if v == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultValue
	}
	return f
}

// Config holds agentcore's own runtime tunables, loaded once at startup
// by the host process.
type Config struct {
	TickIntervalMS    int
	LogLevel          string
	LogFormat         string
	ModelRatePerSec   float64
	EconomyInitReserve int
	EconomyInitArena   int
	EconomyFeeBps      int
}

// FromEnv loads Config from the environment, applying the documented
// defaults (spec §6 and the ambient-stack additions in SPEC_FULL §6).
func FromEnv() Config {
	return Config{
		TickIntervalMS:     GetEnvInt("AGENTCORE_TICK_INTERVAL_MS", 30000),
		LogLevel:           GetEnv("AGENTCORE_LOG_LEVEL", "info"),
		LogFormat:          GetEnv("AGENTCORE_LOG_FORMAT", "json"),
		ModelRatePerSec:    GetEnvFloat("AGENTCORE_MODEL_RATE_PER_SEC", 2),
		EconomyInitReserve: clampMin(GetEnvInt("ECONOMY_INIT_RESERVE", 10000), 1000),
		EconomyInitArena:   clampMin(GetEnvInt("ECONOMY_INIT_ARENA", 10000), 0),
		EconomyFeeBps:      clampRange(GetEnvInt("ECONOMY_FEE_BPS", 100), 0, 1000),
	}
}

func clampMin(v, min int) int {
	if v < min {
		return min
	}
	return v
}

func clampRange(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

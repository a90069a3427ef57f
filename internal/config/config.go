package config

import (
	"os"
	"strconv"
)

type Config struct {
	LogLevel          string
	DefaultModel      string
	MaxRetries        int
	MaxRowsMultiplier int
	MinValidFraction  float64
}

func Load() *Config {
	return &Config{
		LogLevel:          getEnv("SDV_LOG_LEVEL", "info"),
		DefaultModel:      getEnv("SDV_DEFAULT_MODEL", "copula"),
		MaxRetries:        getEnvInt("SDV_MAX_RETRIES", 100),
		MaxRowsMultiplier: getEnvInt("SDV_MAX_ROWS_MULTIPLIER", 10),
		MinValidFraction:  getEnvFloat("SDV_MIN_VALID_FRACTION", 0.01),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

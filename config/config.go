package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// SetupEnvFile loads .env into the process environment when present.
func SetupEnvFile() {
	envFile := Config("ENV_FILE", ".env")
	if err := godotenv.Load(envFile); err != nil {
		log.Printf("No env file loaded from %s: %v", envFile, err)
	}
}

// Config returns the environment value for key, or fallback when unset.
func Config(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func ConfigInt(key string, fallback int) int {
	raw := Config(key, "")
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("Invalid integer for %s=%q, using %d", key, raw, fallback)
		return fallback
	}
	return value
}

func ConfigFloat(key string, fallback float64) float64 {
	raw := Config(key, "")
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		log.Printf("Invalid number for %s=%q, using %v", key, raw, fallback)
		return fallback
	}
	return value
}

func ConfigDuration(key string, unit time.Duration, fallback time.Duration) time.Duration {
	raw := Config(key, "")
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("Invalid duration for %s=%q, using %s", key, raw, fallback)
		return fallback
	}
	return time.Duration(value) * unit
}

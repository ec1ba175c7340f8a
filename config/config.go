// Package config loads server configuration from the environment.
package config

import (
	"os"
	"strconv"

	"github.com/apex/log"
	"github.com/joho/godotenv"
)

type Config struct {
	Port             string
	DBPath           string
	JWTSecret        string
	SkipAuth         bool // dev mode: inject a fixed principal
	DefaultPageSize  int
	MaxPageSize      int
	StrictVisibility bool // hide forbidden reads behind not-found
	AllowedOrigins   []string
}

// Load reads .env (when present) and the environment, applying defaults.
func Load() *Config {
	if err := godotenv.Load(); err == nil {
		log.Info("loaded .env file")
	}

	return &Config{
		Port:             getEnv("PORT", "8080"),
		DBPath:           getEnv("DB_PATH", "reports.db"),
		JWTSecret:        getEnv("JWT_SECRET", "secret"),
		SkipAuth:         getEnv("SKIP_AUTH", "false") == "true",
		DefaultPageSize:  getEnvInt("DEFAULT_PAGE_SIZE", 100),
		MaxPageSize:      getEnvInt("MAX_PAGE_SIZE", 1000),
		StrictVisibility: getEnv("STRICT_VISIBILITY", "false") == "true",
		AllowedOrigins:   []string{getEnv("CORS_ORIGIN", "http://localhost:5173")},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// DefaultRevalidateSeconds is the cache window applied when
// LITE_TECH_REVALIDATE_SECONDS is unset or unparseable.
const DefaultRevalidateSeconds = 300

type Config struct {
	Port string

	// APIBaseURL resolves relative asset paths (cover images) returned
	// by the content API.
	APIBaseURL string

	// APIHost is the origin content API requests are issued against.
	APIHost string

	// RevalidateSeconds is how long a fetched posts window may be
	// served from cache. Zero disables caching entirely.
	RevalidateSeconds int

	RabbitMQURL string
}

// Load reads configuration from the environment. The API base URL and
// host are required; a missing value is a fatal startup error for the
// caller, so Load reports it instead of falling back.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Default().Warn("loading .env failed", "error", err)
	}

	baseURL := os.Getenv("LITE_TECH_API_BASE_URL")
	if baseURL == "" {
		return nil, fmt.Errorf("LITE_TECH_API_BASE_URL is not defined")
	}

	host := os.Getenv("LITE_TECH_API_HOST")
	if host == "" {
		return nil, fmt.Errorf("LITE_TECH_API_HOST is not defined")
	}

	return &Config{
		Port:              getEnv("PORT", "8080"),
		APIBaseURL:        strings.TrimSuffix(baseURL, "/"),
		APIHost:           strings.TrimSuffix(host, "/"),
		RevalidateSeconds: revalidateSeconds(os.Getenv("LITE_TECH_REVALIDATE_SECONDS")),
		RabbitMQURL:       getEnv("RABBITMQ_URL", ""),
	}, nil
}

func revalidateSeconds(raw string) int {
	if raw == "" {
		return DefaultRevalidateSeconds
	}
	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds < 0 {
		return DefaultRevalidateSeconds
	}
	return seconds
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// Package config reads server settings from the environment, with an
// optional .env file for local development.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr string

	// DBPath is the sqlite file location; Ephemeral switches to the
	// in-memory store and ignores DBPath.
	DBPath       string
	Ephemeral    bool
	SettingsPath string

	LogLevel string

	AuthMode    string // none | apikey | bearer
	APIKey      string
	BearerToken string

	RateRPS   float64
	RateBurst int

	AllowedOrigins []string

	TraceExporter string // none | stdout | otlp
	OTLPEndpoint  string
}

// Load reads the environment. A missing .env file is fine; explicit env
// vars always win because godotenv does not override them.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Addr:           getenv("ADDR", ":8080"),
		DBPath:         getenv("DB_PATH", "data/taskmaster.db"),
		Ephemeral:      getbool("EPHEMERAL", false),
		SettingsPath:   getenv("SETTINGS_PATH", "data/settings.json"),
		LogLevel:       getenv("LOG_LEVEL", "info"),
		AuthMode:       getenv("AUTH_MODE", "none"),
		APIKey:         os.Getenv("API_KEY"),
		BearerToken:    os.Getenv("BEARER_TOKEN"),
		RateRPS:        getfloat("RATE_LIMIT_RPS", 0),
		RateBurst:      getint("RATE_LIMIT_BURST", 10),
		AllowedOrigins: getlist("CORS_ORIGINS", []string{"*"}),
		TraceExporter:  getenv("TRACE_EXPORTER", "none"),
		OTLPEndpoint:   getenv("OTLP_ENDPOINT", "localhost:4318"),
	}
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getbool(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getint(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getfloat(key string, fallback float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func getlist(key string, fallback []string) []string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

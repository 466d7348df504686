package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/devapeu/aomstats-crawler/internal/models"
)

type Config struct {
	// Server
	Port int
	Env  string

	// CORS
	AllowedOrigins []string

	// Storage
	PostgresURL string
	RedisURL    string

	// Auth
	APIKey string

	// Upstream crawl
	AomstatsBaseURL string
	CrawlThrottle   time.Duration

	// Tracked player pool, profile id -> display name.
	Roster map[int64]string

	// Notifications
	DiscordWebhookURL string

	// Exports
	ExportDir string

	// Rating ledger overrides
	EloDefault       float64
	EloK             float64
	EloDivisor       float64
	EloSizeAdvantage float64
	HistSizeBase     float64
}

// Load loads configuration from environment variables.
// It returns an error if critical configuration is missing.
func Load() (*Config, error) {
	cfg := &Config{
		Port: getEnvInt("PORT", 8080),
		Env:  getEnv("ENV", "development"),

		RedisURL: getEnv("REDIS_URL", ""),

		APIKey: getEnv("API_KEY", ""),

		AomstatsBaseURL: getEnv("AOMSTATS_BASE_URL", "https://aomstats.io"),
		CrawlThrottle:   getEnvDuration("CRAWL_THROTTLE", 500*time.Millisecond),

		DiscordWebhookURL: getEnv("DISCORD_WEBHOOK_URL", ""),

		ExportDir: getEnv("EXPORT_DIR", "exports"),

		EloDefault:       getEnvFloat("ELO_DEFAULT", models.EloDefaultRating),
		EloK:             getEnvFloat("ELO_K", 32),
		EloDivisor:       getEnvFloat("ELO_DIVISOR", 400),
		EloSizeAdvantage: getEnvFloat("ELO_SIZE_ADVANTAGE", 250),
		HistSizeBase:     getEnvFloat("WIN_PROB_SIZE_MULTIPLIER_BASE", 1.2),
	}

	// CORS
	origins := getEnv("ALLOWED_ORIGINS", "http://localhost:3000")
	for _, o := range strings.Split(origins, ",") {
		if trimmed := strings.TrimSpace(o); trimmed != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, trimmed)
		}
	}

	// Critical configuration - fail if missing
	var err error
	if cfg.PostgresURL, err = getEnvRequired("POSTGRES_URL"); err != nil {
		return nil, err
	}

	players, err := getEnvRequired("PLAYERS")
	if err != nil {
		return nil, err
	}
	if cfg.Roster, err = ParseRoster(players); err != nil {
		return nil, err
	}

	return cfg, nil
}

// EloParams returns the rating ledger parameters with any env overrides
// applied.
func (c *Config) EloParams() models.EloParams {
	params := models.DefaultEloParams()
	params.DefaultRating = c.EloDefault
	params.KFactor = c.EloK
	params.Divisor = c.EloDivisor
	params.SizeBonusPerPlayer = c.EloSizeAdvantage
	params.HistSizeMultiplierBase = c.HistSizeBase
	return params
}

// ParseRoster parses the PLAYERS value: comma-separated id=name entries,
// e.g. "1234=Alice,5678=Bob". The name may be omitted.
func ParseRoster(raw string) (map[int64]string, error) {
	roster := make(map[int64]string)
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		idPart, name, _ := strings.Cut(entry, "=")
		id, err := strconv.ParseInt(strings.TrimSpace(idPart), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid PLAYERS entry %q: %w", entry, err)
		}
		roster[id] = strings.TrimSpace(name)
	}
	if len(roster) == 0 {
		return nil, fmt.Errorf("PLAYERS defines no players")
	}
	return roster, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvRequired(key string) (string, error) {
	if value := os.Getenv(key); value != "" {
		return value, nil
	}
	return "", fmt.Errorf("missing required environment variable: %s", key)
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

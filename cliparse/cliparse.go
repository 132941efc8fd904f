package cliparse

import (
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Port               int
	DatabaseURL        string
	DatabaseType       string
	SessionSecret      string
	SessionTTL         time.Duration
	GoogleClientID     string
	GoogleTokenInfoURL string
	AllowedOrigins     []string
}

// envConfig holds raw env values; flags override them
type envConfig struct {
	Port               int           `env:"PORT" envDefault:"3318"`
	DatabaseURL        string        `env:"DATABASE_URL"`
	DatabaseType       string        `env:"DATABASE_TYPE" envDefault:"sqlite"`
	SessionSecret      string        `env:"SESSION_SECRET"`
	SessionTTL         time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	GoogleClientID     string        `env:"GOOGLE_CLIENT_ID"`
	GoogleTokenInfoURL string        `env:"GOOGLE_TOKENINFO_URL"`
	AllowedOrigins     []string      `env:"ALLOWED_ORIGINS" envSeparator:","`
}

// ParseFlags reads the environment, then applies CLI flags on top
func ParseFlags(args []string) (Config, error) {
	var raw envConfig
	if err := env.Parse(&raw); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	cfg := Config{AllowedOrigins: raw.AllowedOrigins}
	var origins string

	fs := flag.NewFlagSet("stashkeep", flag.ContinueOnError)

	// Network config (can be CLI args or env)
	fs.IntVar(&cfg.Port, "p", raw.Port, "Server port")
	fs.StringVar(&cfg.DatabaseURL, "d", raw.DatabaseURL, "Database URL (file path for sqlite)")
	fs.StringVar(&cfg.DatabaseType, "t", raw.DatabaseType, "Database type (sqlite or postgres)")
	fs.StringVar(&origins, "origins", "", "Comma-separated allowed CORS origins")

	// Secrets (prefer env variables, but allow CLI for dev)
	fs.StringVar(&cfg.SessionSecret, "session-secret", raw.SessionSecret, "Session token signing secret (prefer env)")
	fs.DurationVar(&cfg.SessionTTL, "session-ttl", raw.SessionTTL, "Session token lifetime")
	fs.StringVar(&cfg.GoogleClientID, "google-client-id", raw.GoogleClientID, "Google OAuth client ID")
	fs.StringVar(&cfg.GoogleTokenInfoURL, "google-tokeninfo-url", raw.GoogleTokenInfoURL, "Google tokeninfo endpoint override")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if origins != "" {
		cfg.AllowedOrigins = nil
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
			}
		}
	}

	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("database URL required (use -d or DATABASE_URL env)")
	}
	if cfg.DatabaseType != "sqlite" && cfg.DatabaseType != "postgres" {
		return Config{}, fmt.Errorf("unsupported database type %q", cfg.DatabaseType)
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return Config{}, fmt.Errorf("invalid port %d", cfg.Port)
	}

	// Secrets - MUST be provided
	if cfg.SessionSecret == "" {
		return Config{}, errors.New("SESSION_SECRET required")
	}
	if cfg.SessionTTL <= 0 {
		return Config{}, errors.New("session TTL must be positive")
	}

	return cfg, nil
}

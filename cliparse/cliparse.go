package cliparse

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Port         int    `env:"PORT" envDefault:"3318"`
	DatabaseURL  string `env:"DATABASE_URL"`
	DatabaseType string `env:"DATABASE_TYPE" envDefault:"sqlite"`

	SessionSecret string        `env:"SESSION_SECRET"`
	SessionTTL    time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	IPHashSalt    string        `env:"IP_HASH_SALT"`

	LogLevel     string `env:"LOG_LEVEL" envDefault:"info"`
	OTelEndpoint string `env:"OTEL_ENDPOINT"`

	VoteMaxAttempts int           `env:"VOTE_MAX_ATTEMPTS" envDefault:"3"`
	VoteTimeout     time.Duration `env:"VOTE_TIMEOUT" envDefault:"5s"`

	ObserverQueueSize         int           `env:"OBSERVER_QUEUE_SIZE" envDefault:"64"`
	OrderGapTimeout           time.Duration `env:"ORDER_GAP_TIMEOUT" envDefault:"250ms"`
	SessionRevalidateInterval time.Duration `env:"SESSION_REVALIDATE_INTERVAL" envDefault:"1m"`
	WSPingInterval            time.Duration `env:"WS_PING_INTERVAL" envDefault:"30s"`
	ExpirySweepInterval       time.Duration `env:"EXPIRY_SWEEP_INTERVAL" envDefault:"30s"`
}

// LoadDotEnv loads a .env file from the working directory when one exists
func LoadDotEnv() error {
	err := godotenv.Load()
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

// ParseFlags reads env variables, then lets CLI flags override them
func ParseFlags(args []string) (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	fs := flag.NewFlagSet("quota-vote", flag.ContinueOnError)

	// Network config (can be CLI args or env)
	fs.IntVar(&cfg.Port, "p", cfg.Port, "Server port")
	fs.StringVar(&cfg.DatabaseURL, "d", cfg.DatabaseURL, "Database URL")
	fs.StringVar(&cfg.DatabaseType, "t", cfg.DatabaseType, "Database type (sqlite or postgres)")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")

	// Secrets (prefer env variables, but allow CLI for dev)
	fs.StringVar(&cfg.SessionSecret, "session-secret", cfg.SessionSecret, "Session signing secret (prefer env)")
	fs.StringVar(&cfg.IPHashSalt, "ip-salt", cfg.IPHashSalt, "IP hash salt (prefer env)")

	// Vote transaction tuning
	fs.IntVar(&cfg.VoteMaxAttempts, "vote-attempts", cfg.VoteMaxAttempts, "Max transaction attempts per vote")
	fs.DurationVar(&cfg.VoteTimeout, "vote-timeout", cfg.VoteTimeout, "Store timeout per vote")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("database URL required (use -d or DATABASE_URL env)")
	}
	if cfg.DatabaseType != "sqlite" && cfg.DatabaseType != "postgres" {
		return Config{}, fmt.Errorf("unsupported database type %q", cfg.DatabaseType)
	}

	// Secrets - MUST be provided
	if cfg.SessionSecret == "" {
		return Config{}, errors.New("SESSION_SECRET required")
	}
	if cfg.IPHashSalt == "" {
		return Config{}, errors.New("IP_HASH_SALT required")
	}

	if cfg.VoteMaxAttempts < 1 {
		return Config{}, errors.New("vote attempts must be at least 1")
	}
	if cfg.SessionTTL <= 0 {
		return Config{}, errors.New("SESSION_TTL must be positive")
	}
	if cfg.ObserverQueueSize < 1 {
		return Config{}, errors.New("OBSERVER_QUEUE_SIZE must be at least 1")
	}

	return cfg, nil
}

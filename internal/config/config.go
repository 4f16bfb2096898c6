package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App struct {
		Name     string     `envconfig:"APP_NAME" default:"bnpl"`
		Port     int        `envconfig:"PORT" default:"8080"`
		LogLevel slog.Level `envconfig:"LOG_LEVEL" default:"INFO"`
	}

	DB struct {
		Host     string `envconfig:"DB_HOST" default:"localhost"`
		Port     int    `envconfig:"DB_PORT" default:"5432"`
		User     string `envconfig:"DB_USER" default:"postgres"`
		Password string `envconfig:"DB_PASSWORD" default:""`
		Name     string `envconfig:"DB_NAME" default:"bnpl"`
		MaxConns int    `envconfig:"DB_MAX_CONNS" default:"25"`
	}

	Store struct {
		// postgres or memory
		Backend string `envconfig:"STORE_BACKEND" default:"postgres"`
	}

	Server struct {
		Timeout time.Duration `envconfig:"SERVER_TIMEOUT" default:"30s"`
	}

	Underwriting struct {
		PolicyVersion    string  `envconfig:"UNDERWRITING_POLICY_VERSION"`
		DTIEstimator     string  `envconfig:"UNDERWRITING_DTI_ESTIMATOR" default:"flat_rate"`
		ManualReviewRate float64 `envconfig:"UNDERWRITING_MANUAL_REVIEW_RATE" default:"0"`
		Seed             uint64  `envconfig:"UNDERWRITING_SEED" default:"1"`
	}

	Ledger struct {
		RetryAttempts uint          `envconfig:"LEDGER_RETRY_ATTEMPTS" default:"3"`
		RetryInterval time.Duration `envconfig:"LEDGER_RETRY_INTERVAL" default:"20ms"`
		LockTimeout   time.Duration `envconfig:"LEDGER_LOCK_TIMEOUT" default:"5s"`
		MinDraw       int64         `envconfig:"LEDGER_MIN_DRAW" default:"10000"`
	}

	Partner struct {
		Name    string        `envconfig:"PARTNER_NAME"`
		URL     string        `envconfig:"PARTNER_API_URL"`
		Token   string        `envconfig:"PARTNER_API_TOKEN"`
		Timeout time.Duration `envconfig:"PARTNER_API_TIMEOUT" default:"5s"`
	}

	Sweep struct {
		Schedule string        `envconfig:"SWEEP_SCHEDULE" default:"@every 1h"`
		Timeout  time.Duration `envconfig:"SWEEP_TIMEOUT" default:"10m"`
	}

	CORS struct {
		AllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS"`
	}
}

func (c *Config) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DB.User, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.Name)
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	switch cfg.Store.Backend {
	case "postgres", "memory":
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}

	if cfg.Partner.URL != "" && cfg.Partner.Name == "" {
		return nil, fmt.Errorf("PARTNER_NAME is required when PARTNER_API_URL is set")
	}

	return &cfg, nil
}

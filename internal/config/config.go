// Package config loads the service configuration from the environment.
//
// A .env file is read first when present (godotenv); values are then mapped
// onto Config through go-simpler/env struct tags and validated.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

type Config struct {
	Port      string `env:"PORT" default:"8080"`
	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`

	RabbitMQURL string `env:"RABBITMQ_URL"`

	R2AccountID string `env:"R2_ACCOUNT_ID"`
	R2Bucket    string `env:"R2_BUCKET"`
	R2AccessKey string `env:"R2_ACCESS_KEY"`
	R2SecretKey string `env:"R2_SECRET_KEY"`

	IntakeMaxFiles  int  `env:"INTAKE_MAX_FILES" default:"10"`
	IntakeVerifyPDF bool `env:"INTAKE_VERIFY_PDF" default:"true"`

	AnalysisTimeout     time.Duration `env:"ANALYSIS_TIMEOUT" default:"2m"`
	AnalysisConcurrency int           `env:"ANALYSIS_CONCURRENCY" default:"3"`

	SessionIdleTimeout time.Duration `env:"SESSION_IDLE_TIMEOUT" default:"2h"`
	SessionSweepSpec   string        `env:"SESSION_SWEEP_SPEC" default:"@every 10m"`
}

// R2Enabled reports whether résumé import from object storage is configured.
func (c *Config) R2Enabled() bool {
	return c.R2AccountID != ""
}

// BrokerEnabled reports whether session events go to RabbitMQ.
func (c *Config) BrokerEnabled() bool {
	return c.RabbitMQURL != ""
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	if cfg.Port == "" {
		return errors.New("PORT must not be empty")
	}

	switch strings.ToLower(cfg.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("LOG_FORMAT must be text or json, got %q", cfg.LogFormat)
	}

	// R2 settings: all four or none
	r2 := map[string]string{
		"R2_ACCOUNT_ID": cfg.R2AccountID,
		"R2_BUCKET":     cfg.R2Bucket,
		"R2_ACCESS_KEY": cfg.R2AccessKey,
		"R2_SECRET_KEY": cfg.R2SecretKey,
	}
	set := 0
	for _, v := range r2 {
		if v != "" {
			set++
		}
	}
	if set > 0 && set < len(r2) {
		for _, name := range []string{"R2_ACCOUNT_ID", "R2_BUCKET", "R2_ACCESS_KEY", "R2_SECRET_KEY"} {
			if r2[name] == "" {
				return fmt.Errorf("%s is required when R2 storage is configured", name)
			}
		}
	}

	if cfg.IntakeMaxFiles < 1 {
		return fmt.Errorf("INTAKE_MAX_FILES must be at least 1, got %d", cfg.IntakeMaxFiles)
	}
	if cfg.AnalysisConcurrency < 1 {
		return fmt.Errorf("ANALYSIS_CONCURRENCY must be at least 1, got %d", cfg.AnalysisConcurrency)
	}
	if cfg.AnalysisTimeout < 0 {
		return errors.New("ANALYSIS_TIMEOUT must not be negative")
	}
	if cfg.SessionIdleTimeout < 0 {
		return errors.New("SESSION_IDLE_TIMEOUT must not be negative")
	}

	return nil
}

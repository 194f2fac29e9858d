package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Port            int    `env:"PORT" envDefault:"5000"`
	DBDriver        string `env:"DB_DRIVER" envDefault:"postgres"`
	DatabaseURL     string `env:"DATABASE_URL" envDefault:"host=localhost port=5432 user=postgres password=postgres dbname=expenses sslmode=disable"`
	LogLevel        string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat       string `env:"LOG_FORMAT" envDefault:"text"`
	AuditBufferSize int    `env:"AUDIT_BUFFER_SIZE" envDefault:"100"`
	SecureCookies   bool   `env:"SECURE_COOKIES" envDefault:"false"`
}

var (
	ErrUnknownDriver    = errors.New("unknown database driver")
	ErrEmptyDatabaseURL = errors.New("database url can't be empty")
	ErrUnknownLogLevel  = errors.New("unknown log level")
	ErrUnknownLogFormat = errors.New("unknown log format")
	ErrInvalidPort      = errors.New("port must be between 1 and 65535")
	ErrInvalidBuffer    = errors.New("audit buffer size must be positive")
)

// Load reads a .env file when present and then the process environment.
// Variables already set in the environment win over the file.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	cfg.DBDriver = strings.ToLower(strings.TrimSpace(cfg.DBDriver))
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	cfg.LogFormat = strings.ToLower(strings.TrimSpace(cfg.LogFormat))

	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	var errs []error

	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("%w: %d", ErrInvalidPort, c.Port))
	}
	switch c.DBDriver {
	case "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("%w: %q", ErrUnknownDriver, c.DBDriver))
	}
	if strings.TrimSpace(c.DatabaseURL) == "" {
		errs = append(errs, ErrEmptyDatabaseURL)
	}
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("%w: %q", ErrUnknownLogFormat, c.LogFormat))
	}
	if c.AuditBufferSize <= 0 {
		errs = append(errs, ErrInvalidBuffer)
	}

	return errors.Join(errs...)
}

// Level maps LOG_LEVEL onto a slog level.
func (c Config) Level() (slog.Level, error) {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("%w: %q", ErrUnknownLogLevel, c.LogLevel)
}

func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

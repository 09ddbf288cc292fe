// Package config parses and validates process configuration from the
// environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/go-playground/validator/v10"
)

// Config holds all process configuration, parsed from environment
// variables and validated before use.
type Config struct {
	NodeEnv string `env:"NODE_ENV" envDefault:"development"`
	Port    int    `env:"PORT" envDefault:"8081" validate:"min=1,max=65535"`

	DatabaseURL string `env:"DATABASE_URL,required" validate:"required"`

	JobConcurrency int `env:"JOB_CONCURRENCY" envDefault:"1" validate:"min=1,max=20"`
	PollIntervalMs int `env:"POLL_INTERVAL_MS" envDefault:"1000" validate:"min=100"`

	TigrisEndpoint        string `env:"TIGRIS_ENDPOINT,required" validate:"required"`
	TigrisRegion          string `env:"TIGRIS_REGION" envDefault:"auto"`
	TigrisBucket          string `env:"TIGRIS_BUCKET,required" validate:"required"`
	TigrisAccessKeyID     string `env:"TIGRIS_ACCESS_KEY_ID,required" validate:"required"`
	TigrisSecretAccessKey string `env:"TIGRIS_SECRET_ACCESS_KEY,required" validate:"required"`

	OpenRouterAPIKey string `env:"OPENROUTER_API_KEY,required" validate:"required"`
	OpenRouterModel  string `env:"OPENROUTER_MODEL" envDefault:"openai/gpt-4o"`

	FFmpegBinary  string `env:"FFMPEG_BINARY" envDefault:"ffmpeg"`
	WhisperBinary string `env:"WHISPER_BINARY" envDefault:"whisper"`
}

// Load parses and validates Config from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// PollInterval is PollIntervalMs as a time.Duration.
func (c Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

// IsProd reports whether the process is running in production mode.
func (c Config) IsProd() bool {
	return strings.ToLower(c.NodeEnv) == "production" || strings.ToLower(c.NodeEnv) == "prod"
}

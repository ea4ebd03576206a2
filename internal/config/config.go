package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	CacheByName    = "name"
	CacheByContent = "content"
)

type Config struct {
	S3EndpointURL     string `env:"S3_ENDPOINT_URL"`
	S3AccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	S3SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
	S3Region          string `env:"AWS_REGION" envDefault:"us-east-1"`
	DefaultBucket     string `env:"DEFAULT_BUCKET"`
	InputKeyPrefix    string `env:"INPUT_KEY_PREFIX" envDefault:"musicgen_large/input_payload"`
	PayloadDir        string `env:"PAYLOAD_DIR" envDefault:"."`

	PollInterval    time.Duration `env:"POLL_INTERVAL" envDefault:"2s"`
	PollMaxInterval time.Duration `env:"POLL_MAX_INTERVAL" envDefault:"30s"`
	PollMultiplier  float64       `env:"POLL_MULTIPLIER" envDefault:"1"`
	PollMaxWait     time.Duration `env:"POLL_MAX_WAIT" envDefault:"0s"`
	PollMaxAttempts uint64        `env:"POLL_MAX_ATTEMPTS" envDefault:"0"`

	DownloadDir       string `env:"DOWNLOAD_DIR" envDefault:"."`
	DownloadCacheMode string `env:"DOWNLOAD_CACHE_MODE" envDefault:"name"`
	PlayerCommand     string `env:"PLAYER_COMMAND" envDefault:"ffplay"`
}

func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	if cfg.DownloadCacheMode != CacheByName && cfg.DownloadCacheMode != CacheByContent {
		return nil, fmt.Errorf("invalid DOWNLOAD_CACHE_MODE '%s', expected '%s' or '%s'", cfg.DownloadCacheMode, CacheByName, CacheByContent)
	}

	if cfg.PollInterval <= 0 {
		return nil, fmt.Errorf("POLL_INTERVAL must be positive, got %s", cfg.PollInterval)
	}

	if cfg.PollMultiplier < 1 {
		return nil, fmt.Errorf("POLL_MULTIPLIER must be >= 1, got %v", cfg.PollMultiplier)
	}

	return &cfg, nil
}

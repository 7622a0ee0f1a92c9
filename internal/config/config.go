package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config keeps runtime settings for the bot.
type Config struct {
	TelegramToken string        `env:"TELEGRAM_TOKEN,notEmpty"`
	DatabaseURL   string        `env:"DATABASE_URL" envDefault:"chorebot.db"`
	Timezone      string        `env:"TIMEZONE" envDefault:""`
	TickInterval  time.Duration `env:"TICK_INTERVAL" envDefault:"30s"`
	// CutoffHour gates materialization: no instances are generated before
	// this local hour, so chores never appear outside business hours.
	CutoffHour int    `env:"MATERIALIZE_CUTOFF_HOUR" envDefault:"9"`
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load reads configuration from environment variables.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	if cfg.TickInterval <= 0 {
		return cfg, fmt.Errorf("TICK_INTERVAL must be positive")
	}
	if cfg.CutoffHour < 0 || cfg.CutoffHour > 23 {
		return cfg, fmt.Errorf("MATERIALIZE_CUTOFF_HOUR must be in 0..23")
	}
	return cfg, nil
}

// Location resolves the configured timezone, defaulting to the host zone.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Package config loads the service configuration from REACTIX_* environment
// variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/jfapp/reactix/internal/game"
)

// Prefix is prepended to every variable name.
const Prefix = "REACTIX_"

// Config is the full service configuration.
type Config struct {
	Addr            string        `env:"ADDR" envDefault:"127.0.0.1:8077"`
	DBPath          string        `env:"DB_PATH" envDefault:"reactix.db"`
	PlayerID        string        `env:"PLAYER_ID" envDefault:"local"`
	TickInterval    time.Duration `env:"TICK_INTERVAL" envDefault:"16ms"`
	ReviveTimeout   time.Duration `env:"REVIVE_TIMEOUT" envDefault:"10s"`
	RunRetention    time.Duration `env:"RUN_RETENTION" envDefault:"2m"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	TZ              string        `env:"TZ"`

	// LeaderboardURL is the score service root. Empty disables submission.
	LeaderboardURL   string `env:"LEADERBOARD_URL"`
	LeaderboardToken string `env:"LEADERBOARD_TOKEN"`
	KeyringService   string `env:"KEYRING_SERVICE" envDefault:"reactix"`
	TokenFile        string `env:"TOKEN_FILE"`

	Game game.Config `envPrefix:"GAME_"`
}

// Load parses the configuration from the environment and validates it.
func Load() (Config, error) {
	return load(env.Options{Prefix: Prefix})
}

func load(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the service cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.Addr == "" {
		errs = append(errs, errors.New("config: addr is required"))
	}
	if c.DBPath == "" {
		errs = append(errs, errors.New("config: db path is required"))
	}
	if c.PlayerID == "" {
		errs = append(errs, errors.New("config: player id is required"))
	}
	if c.TickInterval <= 0 {
		errs = append(errs, fmt.Errorf("config: tick interval must be positive, got %s", c.TickInterval))
	}
	if c.ReviveTimeout <= 0 {
		errs = append(errs, fmt.Errorf("config: revive timeout must be positive, got %s", c.ReviveTimeout))
	}
	if c.RunRetention <= 0 {
		errs = append(errs, fmt.Errorf("config: run retention must be positive, got %s", c.RunRetention))
	}
	if c.LeaderboardURL != "" {
		if u, err := url.Parse(c.LeaderboardURL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("config: invalid leaderboard url %q", c.LeaderboardURL))
		}
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Game.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("config: %w", err))
	}
	return errors.Join(errs...)
}

// Location resolves TZ. Empty means the host's local zone.
func (c Config) Location() (*time.Location, error) {
	if c.TZ == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.TZ)
	if err != nil {
		return nil, fmt.Errorf("config: load timezone %q: %w", c.TZ, err)
	}
	return loc, nil
}

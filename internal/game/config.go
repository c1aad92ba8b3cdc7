package game

import (
	"fmt"
	"time"
)

// Config holds the gameplay tuning. Fields carry env tags so the service
// can override them under a prefix.
type Config struct {
	// Challenge window for every variant except DontTap; shrinks with score.
	InitialWindow time.Duration `env:"INITIAL_WINDOW" envDefault:"2400ms"`
	MinWindow     time.Duration `env:"MIN_WINDOW" envDefault:"1100ms"`
	SpeedupEvery  int           `env:"SPEEDUP_EVERY" envDefault:"6"`
	SpeedupStep   time.Duration `env:"SPEEDUP_STEP" envDefault:"120ms"`

	// DontTap lasts DontTapBase plus a uniform jitter in [0, DontTapJitter).
	DontTapBase   time.Duration `env:"DONT_TAP_BASE" envDefault:"900ms"`
	DontTapJitter time.Duration `env:"DONT_TAP_JITTER" envDefault:"700ms"`

	CoinsPerPoint int `env:"COINS_PER_POINT" envDefault:"1"`
	XPPerPoint    int `env:"XP_PER_POINT" envDefault:"2"`

	DailySalt string `env:"DAILY_SALT" envDefault:"REACTIX_DAILY"`
}

// DefaultConfig returns the stock tuning.
func DefaultConfig() Config {
	return Config{
		InitialWindow: 2400 * time.Millisecond,
		MinWindow:     1100 * time.Millisecond,
		SpeedupEvery:  6,
		SpeedupStep:   120 * time.Millisecond,
		DontTapBase:   900 * time.Millisecond,
		DontTapJitter: 700 * time.Millisecond,
		CoinsPerPoint: 1,
		XPPerPoint:    2,
		DailySalt:     "REACTIX_DAILY",
	}
}

// Validate rejects tunings the ramp cannot honor.
func (c Config) Validate() error {
	switch {
	case c.MinWindow <= 0:
		return fmt.Errorf("game: min window must be positive, got %s", c.MinWindow)
	case c.InitialWindow < c.MinWindow:
		return fmt.Errorf("game: initial window %s below min window %s", c.InitialWindow, c.MinWindow)
	case c.SpeedupEvery <= 0:
		return fmt.Errorf("game: speedup interval must be positive, got %d", c.SpeedupEvery)
	case c.SpeedupStep < 0:
		return fmt.Errorf("game: speedup step must not be negative, got %s", c.SpeedupStep)
	case c.DontTapBase <= 0 || c.DontTapJitter < time.Millisecond:
		return fmt.Errorf("game: dont-tap duration %s+[0,%s) is invalid", c.DontTapBase, c.DontTapJitter)
	case c.CoinsPerPoint < 0 || c.XPPerPoint < 0:
		return fmt.Errorf("game: per-point rewards must not be negative")
	}
	return nil
}

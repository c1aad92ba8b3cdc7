package main

import (
	"errors"
	"time"

	"github.com/jfapp/reactix/internal/engine"
	"github.com/jfapp/reactix/internal/game"
)

// drawDump is the -draws output.
type drawDump struct {
	Seed       string    `json:"seed"`
	Cursor     uint64    `json:"cursor"`
	NextCursor uint64    `json:"next_cursor"`
	Floats     []float64 `json:"floats"`
}

// dumpDraws reads n floats of seed's stream starting at byte cursor. Each
// float consumes four bytes.
func dumpDraws(seed string, cursor uint64, n int) drawDump {
	return drawDump{
		Seed:       seed,
		Cursor:     cursor,
		NextCursor: cursor + 4*uint64(n),
		Floats:     engine.Floats(seed, 0, cursor, n),
	}
}

// resolveSeed fills in the daily seed for an unseeded daily dump. Classic
// streams have no canonical seed, so one must be given.
func resolveSeed(mode game.Mode, seed string, now time.Time, loc *time.Location, salt string) (string, error) {
	if seed != "" {
		return seed, nil
	}
	if mode == game.ModeDaily {
		return engine.DailySeed(now, loc, salt), nil
	}
	return "", errors.New("-seed is required with -draws for classic")
}

package engine

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// EpochDay returns the number of days between 1970-01-01 and the calendar
// date of t in loc. A nil loc means time.Local.
func EpochDay(t time.Time, loc *time.Location) int64 {
	if loc == nil {
		loc = time.Local
	}
	local := t.In(loc)
	y, m, d := local.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return midnight.Unix() / 86400
}

// DailySeed derives the shared seed for the daily run on t's calendar date.
func DailySeed(t time.Time, loc *time.Location, salt string) string {
	return fmt.Sprintf("%d%s", EpochDay(t, loc), salt)
}

// EntropySeed returns a fresh nondeterministic seed.
func EntropySeed() string {
	var b [32]byte
	if _, err := rand.Read(b[:]); err != nil {
		// crypto/rand only fails on a broken platform; fall back to the clock.
		return fmt.Sprintf("%x", time.Now().UnixNano())
	}
	return hex.EncodeToString(b[:])
}

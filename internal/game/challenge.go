package game

import (
	"fmt"
	"time"

	"github.com/jfapp/reactix/internal/engine"
)

// Color is a tap target color. ColorNone means the tap hit no colored target.
type Color string

const (
	ColorNone   Color = ""
	ColorBlue   Color = "blue"
	ColorGreen  Color = "green"
	ColorYellow Color = "yellow"
)

// Colors lists the target colors in generator order.
var Colors = []Color{ColorBlue, ColorGreen, ColorYellow}

// Direction is a swipe direction.
type Direction string

const (
	DirectionNone  Direction = ""
	DirectionUp    Direction = "up"
	DirectionDown  Direction = "down"
	DirectionLeft  Direction = "left"
	DirectionRight Direction = "right"
)

// Directions lists the swipe directions in generator order.
var Directions = []Direction{DirectionUp, DirectionDown, DirectionLeft, DirectionRight}

// ChallengeKind tags the Challenge variant.
type ChallengeKind string

const (
	KindNone     ChallengeKind = ""
	KindTapColor ChallengeKind = "tap_color"
	KindDontTap  ChallengeKind = "dont_tap"
	KindSwipe    ChallengeKind = "swipe"
	KindTapTimes ChallengeKind = "tap_times"
)

// Challenge is one timed micro-task. Only the fields belonging to Kind are set.
type Challenge struct {
	Kind      ChallengeKind `json:"kind"`
	Color     Color         `json:"color,omitempty"`
	Direction Direction     `json:"direction,omitempty"`
	Count     int           `json:"count,omitempty"`
	Duration  time.Duration `json:"duration,omitempty"`
}

// TapColor asks for a tap on c.
func TapColor(c Color) Challenge { return Challenge{Kind: KindTapColor, Color: c} }

// DontTap asks the player to hold off for d.
func DontTap(d time.Duration) Challenge { return Challenge{Kind: KindDontTap, Duration: d} }

// Swipe asks for a swipe toward d.
func Swipe(d Direction) Challenge { return Challenge{Kind: KindSwipe, Direction: d} }

// TapTimes asks for n taps before the deadline.
func TapTimes(n int) Challenge { return Challenge{Kind: KindTapTimes, Count: n} }

// IsZero reports whether no challenge is installed.
func (c Challenge) IsZero() bool { return c.Kind == KindNone }

func (c Challenge) String() string {
	switch c.Kind {
	case KindTapColor:
		return fmt.Sprintf("tap %s", c.Color)
	case KindDontTap:
		return fmt.Sprintf("don't tap for %s", c.Duration)
	case KindSwipe:
		return fmt.Sprintf("swipe %s", c.Direction)
	case KindTapTimes:
		return fmt.Sprintf("tap %d times", c.Count)
	default:
		return "none"
	}
}

// RandomChallenge draws the next challenge from src: a uniform variant,
// then its parameters.
func RandomChallenge(src engine.Source, cfg Config) Challenge {
	switch src.Intn(4) {
	case 0:
		return TapColor(Colors[src.Intn(len(Colors))])
	case 1:
		jitter := time.Duration(src.Intn(int(cfg.DontTapJitter/time.Millisecond))) * time.Millisecond
		return DontTap(cfg.DontTapBase + jitter)
	case 2:
		return Swipe(Directions[src.Intn(len(Directions))])
	default:
		if src.Intn(2) == 0 {
			return TapTimes(2)
		}
		return TapTimes(3)
	}
}

// ParseColor accepts a color name; unknown names map to ColorNone.
func ParseColor(s string) Color {
	for _, c := range Colors {
		if string(c) == s {
			return c
		}
	}
	return ColorNone
}

// ParseDirection returns the named direction or an error.
func ParseDirection(s string) (Direction, error) {
	for _, d := range Directions {
		if string(d) == s {
			return d, nil
		}
	}
	return DirectionNone, fmt.Errorf("unknown direction %q", s)
}

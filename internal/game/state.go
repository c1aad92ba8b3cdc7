package game

import (
	"errors"
	"fmt"
	"time"
)

// Mode selects how a run is seeded.
type Mode string

const (
	ModeClassic Mode = "classic"
	ModeDaily   Mode = "daily"
)

// ParseMode returns the named mode or an error.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeClassic, ModeDaily:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown mode %q", s)
}

// Expectation is the response the active challenge asks for. Its Kind
// always equals the kind of the installed challenge.
type Expectation struct {
	Kind      ChallengeKind `json:"kind"`
	Color     Color         `json:"color,omitempty"`
	Direction Direction     `json:"direction,omitempty"`
	Taps      int           `json:"taps,omitempty"`
	Progress  int           `json:"progress,omitempty"`
}

func expectationFor(ch Challenge) Expectation {
	switch ch.Kind {
	case KindTapColor:
		return Expectation{Kind: KindTapColor, Color: ch.Color}
	case KindDontTap:
		return Expectation{Kind: KindDontTap}
	case KindSwipe:
		return Expectation{Kind: KindSwipe, Direction: ch.Direction}
	case KindTapTimes:
		return Expectation{Kind: KindTapTimes, Taps: ch.Count}
	}
	return Expectation{}
}

// ExpectsNoTap reports whether any input fails the active challenge.
func (e Expectation) ExpectsNoTap() bool { return e.Kind == KindDontTap }

// State is one snapshot of a run. It is a plain value: every engine call
// returns a new State and never modifies the one passed in.
type State struct {
	Mode       Mode   `json:"mode"`
	Seed       string `json:"seed"`
	IsRunning  bool   `json:"is_running"`
	IsGameOver bool   `json:"is_game_over"`

	Score       int `json:"score"`
	Combo       int `json:"combo"`
	CoinsEarned int `json:"coins_earned"`
	XPEarned    int `json:"xp_earned"`

	Challenge Challenge   `json:"challenge"`
	Deadline  time.Time   `json:"deadline"`
	Expect    Expectation `json:"expect"`

	UsedBoostInRun  bool `json:"used_boost_in_run"`
	ReviveAvailable bool `json:"revive_available"`
	DidRevive       bool `json:"did_revive"`
	DoubleCoins     bool `json:"double_coins"`
	ShieldArmed     bool `json:"shield_armed"`
}

// Active reports whether the run accepts input.
func (s State) Active() bool { return s.IsRunning && !s.IsGameOver }

// CanRevive reports whether TryRevive would bring the run back.
func (s State) CanRevive() bool {
	return !s.IsRunning && s.IsGameOver && s.ReviveAvailable && !s.DidRevive
}

// Remaining is the time left on the active challenge at now.
func (s State) Remaining(now time.Time) time.Duration {
	if !s.Active() {
		return 0
	}
	if d := s.Deadline.Sub(now); d > 0 {
		return d
	}
	return 0
}

// RunResult is what a finished run reports to the progress collaborator.
type RunResult struct {
	Mode        Mode   `json:"mode"`
	Seed        string `json:"seed"`
	Score       int    `json:"score"`
	CoinsEarned int    `json:"coins_earned"`
	XPEarned    int    `json:"xp_earned"`
	UsedBoost   bool   `json:"used_boost"`
	DoubleCoins bool   `json:"double_coins"`
	// CustomSeed marks a run played on a seed the player chose.
	CustomSeed bool `json:"custom_seed,omitempty"`
}

// Result extracts the run-completion report.
func (s State) Result() RunResult {
	return RunResult{
		Mode:        s.Mode,
		Seed:        s.Seed,
		Score:       s.Score,
		CoinsEarned: s.CoinsEarned,
		XPEarned:    s.XPEarned,
		UsedBoost:   s.UsedBoostInRun,
		DoubleCoins: s.DoubleCoins,
	}
}

// Validate checks the structural invariants of a snapshot.
func (s State) Validate() error {
	var errs []error
	if s.IsGameOver && s.IsRunning {
		errs = append(errs, errors.New("running and game over at once"))
	}
	if s.Score < 0 || s.Combo < 0 || s.CoinsEarned < 0 || s.XPEarned < 0 {
		errs = append(errs, errors.New("negative counter"))
	}
	if s.Combo > s.Score {
		errs = append(errs, fmt.Errorf("combo %d exceeds score %d", s.Combo, s.Score))
	}
	if s.Expect.Kind != s.Challenge.Kind {
		errs = append(errs, fmt.Errorf("expectation %q does not match challenge %q", s.Expect.Kind, s.Challenge.Kind))
	}
	if s.Expect.Kind == KindTapTimes && s.Expect.Progress > s.Expect.Taps {
		errs = append(errs, fmt.Errorf("tap progress %d exceeds %d", s.Expect.Progress, s.Expect.Taps))
	}
	if s.IsRunning && s.Challenge.IsZero() {
		errs = append(errs, errors.New("running without a challenge"))
	}
	return errors.Join(errs...)
}

package scripting

import (
	"fmt"
	"time"

	"github.com/jfapp/reactix/internal/game"
)

// SimOptions tunes a simulated run.
type SimOptions struct {
	// ReactionDelay is how long after a challenge appears the bot acts.
	// Defaults to 250ms.
	ReactionDelay time.Duration

	// TapGap separates the taps of a multi-tap move. Defaults to 80ms.
	TapGap time.Duration

	// MaxChallenges stops the simulation after this many challenges.
	// Defaults to 500.
	MaxChallenges int

	// Boosts are activated right after the run starts.
	Boosts []game.Boost

	// Revive spends an available revive when the run is lost.
	Revive bool
}

func (o *SimOptions) setDefaults() {
	if o.ReactionDelay <= 0 {
		o.ReactionDelay = 250 * time.Millisecond
	}
	if o.TapGap <= 0 {
		o.TapGap = 80 * time.Millisecond
	}
	if o.MaxChallenges <= 0 {
		o.MaxChallenges = 500
	}
}

// Step outcomes.
const (
	OutcomeSuccess  = "success"
	OutcomeFail     = "fail"
	OutcomeShielded = "shielded"
	OutcomeRevived  = "revived"
	OutcomePartial  = "partial"
)

// Step is one resolved challenge in a simulation transcript.
type Step struct {
	Index     int            `json:"index"`
	Challenge game.Challenge `json:"challenge"`
	Move      Move           `json:"move"`
	AtMS      int64          `json:"at_ms"`
	Outcome   string         `json:"outcome"`
	Score     int            `json:"score"`
	Combo     int            `json:"combo"`
}

// SimResult is the outcome of a simulated run.
type SimResult struct {
	Mode       game.Mode      `json:"mode"`
	Seed       string         `json:"seed"`
	Result     game.RunResult `json:"result"`
	Steps      []Step         `json:"steps"`
	Truncated  bool           `json:"truncated"`
	DurationMS int64          `json:"duration_ms"`
	Final      game.State     `json:"-"`
}

// Simulate plays a run on eng with bot choosing every move. Time is
// simulated: each challenge is answered ReactionDelay after it appeared,
// so a run takes no wall time beyond the bot's own calls.
func Simulate(eng *game.Engine, bot Responder, mode game.Mode, seed string, opts SimOptions) (SimResult, error) {
	opts.setDefaults()

	s := eng.Start(mode, seed)
	for _, b := range opts.Boosts {
		s = eng.UseBoost(s, b)
	}

	res := SimResult{Mode: mode, Seed: s.Seed}
	var elapsed time.Duration
	// partialAt is set while the active challenge has been partly answered.
	var partialAt time.Time
	finish := func() SimResult {
		res.Final = s
		res.Result = s.Result()
		res.DurationMS = elapsed.Milliseconds()
		return res
	}

	for {
		if !s.Active() {
			if !opts.Revive || !s.CanRevive() {
				return finish(), nil
			}
			s = eng.TryRevive(s)
			res.Steps = append(res.Steps, Step{
				Index:   len(res.Steps),
				AtMS:    elapsed.Milliseconds(),
				Outcome: OutcomeRevived,
				Score:   s.Score,
			})
			continue
		}
		if len(res.Steps) >= opts.MaxChallenges {
			res.Truncated = true
			return finish(), nil
		}

		ch := s.Challenge
		from := installedAt(eng, s)
		now := from.Add(opts.ReactionDelay)
		if !partialAt.IsZero() {
			from = partialAt
			now = partialAt.Add(opts.TapGap)
		}

		move, err := bot.Respond(View{
			Challenge:   ch,
			Score:       s.Score,
			Combo:       s.Combo,
			RemainingMS: s.Remaining(now).Milliseconds(),
			Progress:    s.Expect.Progress,
		})
		if err != nil {
			return finish(), fmt.Errorf("challenge %d (%s): %w", len(res.Steps), ch, err)
		}

		prev := s
		var resolved time.Time
		s, resolved = play(eng, s, move, now, opts.TapGap)
		elapsed += resolved.Sub(from)

		outcome := outcomeOf(prev, s)
		partialAt = time.Time{}
		if outcome == OutcomePartial {
			partialAt = resolved
		}

		res.Steps = append(res.Steps, Step{
			Index:     len(res.Steps),
			Challenge: ch,
			Move:      move,
			AtMS:      elapsed.Milliseconds(),
			Outcome:   outcome,
			Score:     s.Score,
			Combo:     s.Combo,
		})
	}
}

// play applies move at now and returns the state once the challenge has
// been resolved, along with the time of resolution. A move made after the
// deadline loses to the clock first.
func play(eng *game.Engine, s game.State, move Move, now time.Time, gap time.Duration) (game.State, time.Time) {
	if !now.Before(s.Deadline) {
		return eng.Tick(s, s.Deadline), s.Deadline
	}

	switch move.Action {
	case ActionTap:
		return eng.Tap(s, now, move.Color), now
	case ActionSwipe:
		return eng.Swipe(s, now, move.Direction), now
	case ActionTaps:
		ch := s.Challenge
		for i := 0; i < move.Count; i++ {
			at := now.Add(time.Duration(i) * gap)
			if !at.Before(s.Deadline) {
				return eng.Tick(s, s.Deadline), s.Deadline
			}
			s = eng.Tap(s, at, game.ColorNone)
			if !s.Active() || s.Challenge != ch || s.Expect.Progress == 0 {
				return s, at
			}
		}
		// Not enough taps: the challenge runs out.
		return eng.Tick(s, s.Deadline), s.Deadline
	}
	return eng.Tick(s, s.Deadline), s.Deadline
}

// installedAt recovers when the active challenge appeared from its
// deadline and duration.
func installedAt(eng *game.Engine, s game.State) time.Time {
	d := eng.Window()
	if s.Challenge.Kind == game.KindDontTap {
		d = s.Challenge.Duration
	}
	return s.Deadline.Add(-d)
}

func outcomeOf(prev, next game.State) string {
	switch {
	case next.Score > prev.Score:
		return OutcomeSuccess
	case next.IsGameOver:
		return OutcomeFail
	case next.Challenge == prev.Challenge && next.Deadline.Equal(prev.Deadline):
		return OutcomePartial
	case prev.ShieldArmed && !next.ShieldArmed:
		return OutcomeShielded
	}
	return OutcomeFail
}

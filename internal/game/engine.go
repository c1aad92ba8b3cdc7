// Package game implements the reaction-challenge run: challenge generation,
// the difficulty ramp and the state machine that resolves player input.
//
// Every Engine method is a transformation (state, event, time) -> state.
// The engine performs no I/O and keeps only the run's random source and
// ramp window between calls. An Engine serves one run lineage at a time
// and is not safe for concurrent use.
package game

import (
	"time"

	"github.com/jfapp/reactix/internal/engine"
)

// Engine drives a single run.
type Engine struct {
	cfg       Config
	clock     func() time.Time
	newSource func(seed string) engine.Source
	entropy   func() string
	loc       *time.Location

	src  engine.Source
	ramp ramp
}

// Option customizes an Engine.
type Option func(*Engine)

// WithClock sets the clock Start and TryRevive anchor deadlines to.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) { e.clock = clock }
}

// WithSourceFactory replaces the seeded random source constructor.
func WithSourceFactory(fn func(seed string) engine.Source) Option {
	return func(e *Engine) { e.newSource = fn }
}

// WithEntropy replaces the seed generator used for unseeded Classic runs.
func WithEntropy(fn func() string) Option {
	return func(e *Engine) { e.entropy = fn }
}

// WithLocation sets the timezone whose calendar date keys the daily seed.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) { e.loc = loc }
}

// NewEngine creates an engine with the given tuning.
func NewEngine(cfg Config, opts ...Option) *Engine {
	e := &Engine{
		cfg:       cfg,
		clock:     time.Now,
		newSource: func(seed string) engine.Source { return engine.NewSource(seed) },
		entropy:   engine.EntropySeed,
		loc:       time.Local,
		ramp:      newRamp(cfg),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.src = e.newSource(e.entropy())
	return e
}

// Config returns the engine's tuning.
func (e *Engine) Config() Config { return e.cfg }

// Window is the current challenge window for non-DontTap challenges.
func (e *Engine) Window() time.Duration { return e.ramp.window }

// Start begins a new run. An empty seed means a fresh entropy seed for
// Classic and today's date-derived seed for Daily.
func (e *Engine) Start(mode Mode, seed string) State {
	if seed == "" {
		if mode == ModeDaily {
			seed = engine.DailySeed(e.clock(), e.loc, e.cfg.DailySalt)
		} else {
			seed = e.entropy()
		}
	}
	e.src = e.newSource(seed)
	e.ramp.reset()

	s := State{Mode: mode, Seed: seed, IsRunning: true}
	return e.install(s, e.clock())
}

// Tick resolves the active challenge once now reaches its deadline:
// surviving a DontTap succeeds, running out of time on anything else fails.
// At most one challenge is resolved per call.
func (e *Engine) Tick(s State, now time.Time) State {
	if !s.Active() || now.Before(s.Deadline) {
		return s
	}
	if s.Expect.Kind == KindDontTap {
		return e.succeed(s, now)
	}
	return e.fail(s, now)
}

// Tap applies a tap. color is ColorNone when no colored target was hit.
func (e *Engine) Tap(s State, now time.Time, color Color) State {
	if !s.Active() {
		return s
	}
	switch s.Expect.Kind {
	case KindTapTimes:
		s.Expect.Progress++
		if s.Expect.Progress >= s.Expect.Taps {
			return e.succeed(s, now)
		}
		return s
	case KindTapColor:
		if color != ColorNone && color == s.Expect.Color {
			return e.succeed(s, now)
		}
	}
	return e.fail(s, now)
}

// Swipe applies a swipe in direction dir.
func (e *Engine) Swipe(s State, now time.Time, dir Direction) State {
	if !s.Active() {
		return s
	}
	if s.Expect.Kind == KindSwipe && dir == s.Expect.Direction {
		return e.succeed(s, now)
	}
	return e.fail(s, now)
}

// UseBoost records b on an active run.
func (e *Engine) UseBoost(s State, b Boost) State {
	if !s.Active() {
		return s
	}
	return applyBoost(s, b)
}

// TryRevive continues a lost run once, when a revive has been earned.
func (e *Engine) TryRevive(s State) State {
	if !s.CanRevive() {
		return s
	}
	s.IsGameOver = false
	s.IsRunning = true
	s.DidRevive = true
	return e.install(s, e.clock())
}

func (e *Engine) succeed(s State, at time.Time) State {
	s.Score++
	s.Combo++
	s.CoinsEarned += e.cfg.CoinsPerPoint
	s.XPEarned += e.cfg.XPPerPoint
	e.ramp.advance(s.Score)
	return e.install(s, at)
}

// fail ends the run, unless an armed shield absorbs the failure.
// Earnings are kept either way.
func (e *Engine) fail(s State, at time.Time) State {
	s.Combo = 0
	if s.ShieldArmed {
		s.ShieldArmed = false
		return e.install(s, at)
	}
	s.IsRunning = false
	s.IsGameOver = true
	return s
}

func (e *Engine) install(s State, at time.Time) State {
	ch := RandomChallenge(e.src, e.cfg)
	s.Challenge = ch
	s.Expect = expectationFor(ch)
	s.Deadline = at.Add(e.ramp.duration(ch))
	return s
}

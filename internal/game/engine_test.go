package game

import (
	"testing"
	"time"

	"github.com/jfapp/reactix/internal/engine"
)

// scriptedSource replays fixed draws, then returns 0 forever.
type scriptedSource struct {
	draws []int
}

func (s *scriptedSource) Intn(n int) int {
	if len(s.draws) == 0 || n <= 0 {
		return 0
	}
	v := s.draws[0]
	s.draws = s.draws[1:]
	return v % n
}

var t0 = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

// newScriptedEngine returns an engine whose clock is frozen at t0 and whose
// every run draws from draws. With no draws every challenge is TapColor(blue).
func newScriptedEngine(draws ...int) *Engine {
	src := &scriptedSource{draws: draws}
	return NewEngine(DefaultConfig(),
		WithClock(func() time.Time { return t0 }),
		WithSourceFactory(func(string) engine.Source { return src }),
		WithEntropy(func() string { return "entropy" }),
	)
}

func mustValid(t *testing.T, s State) {
	t.Helper()
	if err := s.Validate(); err != nil {
		t.Fatalf("invalid state: %v\n%+v", err, s)
	}
}

func TestStartInstallsFirstChallenge(t *testing.T) {
	e := newScriptedEngine(0, 0)
	s := e.Start(ModeClassic, "42")

	if !s.IsRunning || s.IsGameOver {
		t.Fatalf("run not started: %+v", s)
	}
	if s.Challenge != TapColor(ColorBlue) {
		t.Fatalf("first challenge = %v, want tap blue", s.Challenge)
	}
	if want := t0.Add(ms(2400)); !s.Deadline.Equal(want) {
		t.Errorf("deadline = %v, want %v", s.Deadline, want)
	}
	if s.Score != 0 || s.Combo != 0 || s.CoinsEarned != 0 || s.XPEarned != 0 {
		t.Errorf("counters not reset: %+v", s)
	}
	if s.ReviveAvailable || s.DidRevive || s.UsedBoostInRun {
		t.Errorf("boost flags not reset: %+v", s)
	}
	mustValid(t, s)
}

func TestTapColorSuccess(t *testing.T) {
	e := newScriptedEngine(0, 0, 2, 1)
	s := e.Start(ModeClassic, "42")

	at := t0.Add(ms(50))
	s = e.Tap(s, at, ColorBlue)

	if s.Score != 1 || s.Combo != 1 || s.CoinsEarned != 1 || s.XPEarned != 2 {
		t.Fatalf("after success: score=%d combo=%d coins=%d xp=%d", s.Score, s.Combo, s.CoinsEarned, s.XPEarned)
	}
	if s.Challenge != Swipe(DirectionDown) {
		t.Errorf("next challenge = %v, want swipe down", s.Challenge)
	}
	if want := at.Add(ms(2400)); !s.Deadline.Equal(want) {
		t.Errorf("deadline = %v, want anchored at tap time %v", s.Deadline, want)
	}
	mustValid(t, s)
}

func TestTapTimesCountsUp(t *testing.T) {
	e := newScriptedEngine(3, 1)
	s := e.Start(ModeClassic, "seed")
	if s.Challenge != TapTimes(3) {
		t.Fatalf("challenge = %v, want tap 3 times", s.Challenge)
	}

	for i := 1; i <= 2; i++ {
		s = e.Tap(s, t0.Add(ms(100*i)), ColorNone)
		if s.Expect.Progress != i {
			t.Fatalf("after tap %d progress = %d", i, s.Expect.Progress)
		}
		if s.Score != 0 || !s.Active() {
			t.Fatalf("resolved early after tap %d: %+v", i, s)
		}
		mustValid(t, s)
	}

	s = e.Tap(s, t0.Add(ms(300)), ColorNone)
	if s.Score != 1 || !s.Active() {
		t.Fatalf("third tap did not succeed: %+v", s)
	}
	if s.Expect.Progress != 0 {
		t.Errorf("progress carried into next challenge: %d", s.Expect.Progress)
	}
	mustValid(t, s)
}

func TestTickBeforeDeadlineIsNoop(t *testing.T) {
	e := newScriptedEngine(0, 1)
	s := e.Start(ModeClassic, "seed")

	for _, offset := range []int{0, 1, 1200, 2399} {
		if got := e.Tick(s, t0.Add(ms(offset))); got != s {
			t.Errorf("Tick at +%dms changed state", offset)
		}
	}
}

func TestTickExpiryFailsActiveChallenge(t *testing.T) {
	tests := []struct {
		name  string
		draws []int
	}{
		{"tap color", []int{0, 2}},
		{"swipe", []int{2, 3}},
		{"tap times", []int{3, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newScriptedEngine(tt.draws...)
			s := e.Start(ModeClassic, "seed")
			s = e.Tick(s, s.Deadline)
			if !s.IsGameOver || s.IsRunning {
				t.Fatalf("expiry did not end the run: %+v", s)
			}
			mustValid(t, s)
		})
	}
}

func TestDontTapSurvivalSucceeds(t *testing.T) {
	e := newScriptedEngine(1, 100)
	s := e.Start(ModeClassic, "seed")

	if s.Challenge != DontTap(ms(1000)) {
		t.Fatalf("challenge = %v, want don't tap 1s", s.Challenge)
	}
	if want := t0.Add(ms(1000)); !s.Deadline.Equal(want) {
		t.Fatalf("deadline = %v, want %v (ramp must not apply)", s.Deadline, want)
	}

	if got := e.Tick(s, t0.Add(ms(999))); got != s {
		t.Fatal("tick before deadline resolved DontTap")
	}

	s = e.Tick(s, t0.Add(ms(1000)))
	if s.Score != 1 || s.Combo != 1 || !s.Active() {
		t.Fatalf("surviving DontTap did not succeed: %+v", s)
	}
	mustValid(t, s)
}

func TestDontTapAnyInputFails(t *testing.T) {
	inputs := map[string]func(e *Engine, s State) State{
		"tap without color": func(e *Engine, s State) State { return e.Tap(s, t0.Add(ms(10)), ColorNone) },
		"tap with color":    func(e *Engine, s State) State { return e.Tap(s, t0.Add(ms(10)), ColorGreen) },
		"swipe":             func(e *Engine, s State) State { return e.Swipe(s, t0.Add(ms(10)), DirectionLeft) },
	}
	for name, input := range inputs {
		t.Run(name, func(t *testing.T) {
			e := newScriptedEngine(1, 0)
			s := e.Start(ModeClassic, "seed")
			s = input(e, s)
			if !s.IsGameOver || s.IsRunning || s.Combo != 0 {
				t.Fatalf("input during DontTap did not fail: %+v", s)
			}
		})
	}
}

func TestWrongInputFails(t *testing.T) {
	tests := []struct {
		name  string
		draws []int
		input func(e *Engine, s State) State
	}{
		{"wrong color", []int{0, 0}, func(e *Engine, s State) State { return e.Tap(s, t0, ColorYellow) }},
		{"no color on tap color", []int{0, 0}, func(e *Engine, s State) State { return e.Tap(s, t0, ColorNone) }},
		{"tap during swipe", []int{2, 0}, func(e *Engine, s State) State { return e.Tap(s, t0, ColorBlue) }},
		{"wrong direction", []int{2, 0}, func(e *Engine, s State) State { return e.Swipe(s, t0, DirectionDown) }},
		{"swipe during tap color", []int{0, 0}, func(e *Engine, s State) State { return e.Swipe(s, t0, DirectionUp) }},
		{"swipe during tap times", []int{3, 0}, func(e *Engine, s State) State { return e.Swipe(s, t0, DirectionUp) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newScriptedEngine(tt.draws...)
			s := e.Start(ModeClassic, "seed")
			s = tt.input(e, s)
			if !s.IsGameOver || s.IsRunning || s.Combo != 0 {
				t.Fatalf("wrong input did not fail: %+v", s)
			}
			mustValid(t, s)
		})
	}
}

func TestFailureKeepsEarnings(t *testing.T) {
	e := newScriptedEngine()
	s := e.Start(ModeClassic, "seed")
	for i := 0; i < 4; i++ {
		s = e.Tap(s, t0, ColorBlue)
	}
	before := s

	s = e.Tap(s, t0, ColorGreen)

	if s.Combo != 0 || s.IsRunning || !s.IsGameOver {
		t.Fatalf("failure flags wrong: %+v", s)
	}
	if s.Score != before.Score || s.CoinsEarned != before.CoinsEarned || s.XPEarned != before.XPEarned {
		t.Errorf("earnings changed on failure: before %+v after %+v", before, s)
	}
}

func TestInputsIgnoredWhenOver(t *testing.T) {
	e := newScriptedEngine()
	s := e.Start(ModeClassic, "seed")
	s = e.Tap(s, t0, ColorGreen)

	if got := e.Tap(s, t0, ColorBlue); got != s {
		t.Error("tap after game over changed state")
	}
	if got := e.Swipe(s, t0, DirectionUp); got != s {
		t.Error("swipe after game over changed state")
	}
	if got := e.Tick(s, t0.Add(time.Hour)); got != s {
		t.Error("tick after game over changed state")
	}
	if got := e.UseBoost(s, BoostExtraRevive); got != s {
		t.Error("boost after game over changed state")
	}
	if got := e.Tap(State{}, t0, ColorBlue); got != (State{}) {
		t.Error("tap on idle state changed it")
	}
}

func TestTickResolvesOneChallengePerCall(t *testing.T) {
	e := newScriptedEngine(1, 0, 1, 0)
	s := e.Start(ModeClassic, "seed")

	s = e.Tick(s, t0.Add(time.Minute))
	if s.Score != 1 {
		t.Fatalf("score = %d, want 1", s.Score)
	}
	if s.Challenge.Kind != KindDontTap || !s.Deadline.Equal(t0.Add(time.Minute+ms(900))) {
		t.Fatalf("second challenge not anchored at tick time: %+v", s)
	}
}

func TestRampShrinksEverySixPoints(t *testing.T) {
	e := newScriptedEngine()
	s := e.Start(ModeClassic, "seed")

	for i := 1; i <= 5; i++ {
		s = e.Tap(s, t0, ColorBlue)
	}
	if e.Window() != ms(2400) {
		t.Fatalf("window at score 5 = %v, want 2400ms", e.Window())
	}

	s = e.Tap(s, t0, ColorBlue)
	if e.Window() != ms(2280) {
		t.Fatalf("window at score 6 = %v, want 2280ms", e.Window())
	}
	if want := t0.Add(ms(2280)); !s.Deadline.Equal(want) {
		t.Errorf("deadline after 6th success = %v, want %v", s.Deadline, want)
	}

	for i := 7; i <= 12; i++ {
		s = e.Tap(s, t0, ColorBlue)
	}
	if e.Window() != ms(2160) {
		t.Errorf("window at score 12 = %v, want 2160ms", e.Window())
	}
}

func TestRampMonotonicAndFloored(t *testing.T) {
	e := newScriptedEngine()
	s := e.Start(ModeClassic, "seed")
	prev := e.Window()

	for i := 1; i <= 200; i++ {
		s = e.Tap(s, t0, ColorBlue)
		w := e.Window()
		if w > prev {
			t.Fatalf("window grew at score %d: %v -> %v", i, prev, w)
		}
		if w < ms(1100) {
			t.Fatalf("window %v below floor at score %d", w, i)
		}
		if i%6 == 0 && prev > ms(1100) && prev-w != ms(120) && w != ms(1100) {
			t.Fatalf("window stepped by %v at score %d", prev-w, i)
		}
		prev = w
	}
	if e.Window() != ms(1100) {
		t.Errorf("window after 200 points = %v, want floor", e.Window())
	}

	e.Start(ModeClassic, "seed")
	if e.Window() != ms(2400) {
		t.Errorf("Start did not reset the window: %v", e.Window())
	}
}

func TestUseBoost(t *testing.T) {
	tests := []struct {
		boost      Boost
		wantRevive bool
		wantDouble bool
		wantShield bool
	}{
		{BoostExtraRevive, true, false, false},
		{BoostDoubleCoins, false, true, false},
		{BoostShieldOneFail, false, false, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.boost), func(t *testing.T) {
			e := newScriptedEngine()
			s := e.Start(ModeClassic, "seed")
			s = e.UseBoost(s, tt.boost)

			if !s.UsedBoostInRun {
				t.Error("boost not recorded as used")
			}
			if s.ReviveAvailable != tt.wantRevive || s.DoubleCoins != tt.wantDouble || s.ShieldArmed != tt.wantShield {
				t.Errorf("boost effects = revive:%v double:%v shield:%v", s.ReviveAvailable, s.DoubleCoins, s.ShieldArmed)
			}
			if !s.Result().UsedBoost {
				t.Error("run result lost the boost flag")
			}
		})
	}
}

func TestShieldAbsorbsOneFailure(t *testing.T) {
	e := newScriptedEngine()
	s := e.Start(ModeClassic, "seed")
	s = e.Tap(s, t0, ColorBlue)
	s = e.UseBoost(s, BoostShieldOneFail)

	at := t0.Add(ms(500))
	s = e.Tap(s, at, ColorGreen)
	if !s.Active() {
		t.Fatalf("shielded failure ended the run: %+v", s)
	}
	if s.ShieldArmed || s.Combo != 0 || s.Score != 1 {
		t.Errorf("shield state after absorb: %+v", s)
	}
	if want := at.Add(ms(2400)); !s.Deadline.Equal(want) {
		t.Errorf("deadline after absorb = %v, want %v", s.Deadline, want)
	}

	s = e.Tap(s, at, ColorGreen)
	if !s.IsGameOver {
		t.Error("second failure did not end the run")
	}
}

func TestTryRevive(t *testing.T) {
	t.Run("not earned", func(t *testing.T) {
		e := newScriptedEngine()
		s := e.Start(ModeClassic, "seed")
		s = e.Tap(s, t0, ColorGreen)
		if got := e.TryRevive(s); got != s {
			t.Error("revive without extra_revive changed state")
		}
	})

	t.Run("while running", func(t *testing.T) {
		e := newScriptedEngine()
		s := e.Start(ModeClassic, "seed")
		s = e.UseBoost(s, BoostExtraRevive)
		if got := e.TryRevive(s); got != s {
			t.Error("revive of a running run changed state")
		}
	})

	t.Run("once per run", func(t *testing.T) {
		now := t0
		src := &scriptedSource{}
		e := NewEngine(DefaultConfig(),
			WithClock(func() time.Time { return now }),
			WithSourceFactory(func(string) engine.Source { return src }),
		)
		s := e.Start(ModeClassic, "seed")
		s = e.Tap(s, now, ColorBlue)
		s = e.UseBoost(s, BoostExtraRevive)
		s = e.Tap(s, now, ColorGreen)

		now = t0.Add(5 * time.Second)
		revived := e.TryRevive(s)
		if !revived.Active() || !revived.DidRevive {
			t.Fatalf("revive failed: %+v", revived)
		}
		if revived.Score != 1 || revived.CoinsEarned != 1 {
			t.Errorf("revive lost earnings: %+v", revived)
		}
		if want := now.Add(ms(2400)); !revived.Deadline.Equal(want) {
			t.Errorf("revived deadline = %v, want %v", revived.Deadline, want)
		}
		mustValid(t, revived)

		if again := e.TryRevive(revived); again != revived {
			t.Error("second TryRevive on a running run changed state")
		}

		lost := e.Tap(revived, now, ColorGreen)
		if got := e.TryRevive(lost); got != lost {
			t.Error("run revived twice")
		}
	})
}

func TestSnapshotsDoNotAlias(t *testing.T) {
	e := newScriptedEngine(3, 1)
	s0 := e.Start(ModeClassic, "seed")
	s1 := e.Tap(s0, t0, ColorNone)

	if s0.Expect.Progress != 0 {
		t.Errorf("earlier snapshot mutated: progress %d", s0.Expect.Progress)
	}
	if s1.Expect.Progress != 1 {
		t.Errorf("new snapshot progress = %d, want 1", s1.Expect.Progress)
	}
}

func TestSeeding(t *testing.T) {
	t.Run("classic without seed uses entropy", func(t *testing.T) {
		e := newScriptedEngine()
		if s := e.Start(ModeClassic, ""); s.Seed != "entropy" {
			t.Errorf("seed = %q, want entropy", s.Seed)
		}
	})

	t.Run("daily without seed uses calendar date", func(t *testing.T) {
		e := NewEngine(DefaultConfig(),
			WithClock(func() time.Time { return t0 }),
			WithLocation(time.UTC),
		)
		s := e.Start(ModeDaily, "")
		if want := engine.DailySeed(t0, time.UTC, "REACTIX_DAILY"); s.Seed != want {
			t.Errorf("seed = %q, want %q", s.Seed, want)
		}
	})

	t.Run("explicit seed wins", func(t *testing.T) {
		e := newScriptedEngine()
		if s := e.Start(ModeDaily, "custom"); s.Seed != "custom" {
			t.Errorf("seed = %q, want custom", s.Seed)
		}
	})
}

func TestDailyDeterminism(t *testing.T) {
	clock := func() time.Time { return t0 }
	a := NewEngine(DefaultConfig(), WithClock(clock))
	b := NewEngine(DefaultConfig(), WithClock(clock))

	sa := a.Start(ModeDaily, "19792REACTIX_DAILY")
	sb := b.Start(ModeDaily, "19792REACTIX_DAILY")
	if sa != sb {
		t.Fatalf("first snapshots differ:\n%+v\n%+v", sa, sb)
	}

	// Play both with the same perfect inputs and compare every snapshot.
	now := t0
	for i := 0; i < 50 && sa.Active(); i++ {
		now = now.Add(ms(200))
		sa = perfectMove(a, sa, now)
		sb = perfectMove(b, sb, now)
		if sa != sb {
			t.Fatalf("snapshots diverged at step %d:\n%+v\n%+v", i, sa, sb)
		}
		mustValid(t, sa)
	}
	if sa.Score == 0 {
		t.Error("perfect play scored nothing")
	}
}

// perfectMove answers the active challenge correctly.
func perfectMove(e *Engine, s State, now time.Time) State {
	switch s.Expect.Kind {
	case KindTapColor:
		return e.Tap(s, now, s.Expect.Color)
	case KindSwipe:
		return e.Swipe(s, now, s.Expect.Direction)
	case KindTapTimes:
		return e.Tap(s, now, ColorNone)
	case KindDontTap:
		return e.Tick(s, s.Deadline)
	}
	return s
}

package session

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/jfapp/reactix/internal/game"
	"github.com/jfapp/reactix/internal/progress"
)

// Snapshot is the published view of a run at one instant.
type Snapshot struct {
	ID          string            `json:"id"`
	State       game.State        `json:"state"`
	RemainingMS int64             `json:"remaining_ms"`
	WindowMS    int64             `json:"window_ms"`
	CanRevive   bool              `json:"can_revive"`
	Settling    bool              `json:"settling,omitempty"`
	Done        bool              `json:"done"`
	Abandoned   bool              `json:"abandoned,omitempty"`
	Outcome     *progress.Outcome `json:"outcome,omitempty"`
	CompleteErr string            `json:"complete_error,omitempty"`
	At          time.Time         `json:"at"`
}

// Session owns one run: its engine, its current state and the subscribers
// watching it. All methods are safe for concurrent use.
type Session struct {
	id        string
	eng       *game.Engine
	clock     func() time.Time
	completer Completer
	logger    *log.Logger

	customSeed    bool
	reviveTimeout time.Duration

	mu             sync.Mutex
	state          game.State
	reviveDeadline time.Time
	settling       bool
	done           bool
	abandoned      bool
	outcome        *progress.Outcome
	completeErr    string
	subs           map[int]chan Snapshot
	nextSub        int
	doneCh         chan struct{}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Done is closed once the run has completed or been abandoned.
func (s *Session) Done() <-chan struct{} { return s.doneCh }

// Snapshot returns the current view without changing the run.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked(s.clock())
}

// Tick resolves the active challenge if its deadline has passed.
func (s *Session) Tick(ctx context.Context) Snapshot {
	return s.apply(ctx, func(st game.State, now time.Time) game.State {
		return s.eng.Tick(st, now)
	})
}

// Tap applies a tap on color; ColorNone is a tap that hit no colored target.
func (s *Session) Tap(ctx context.Context, color game.Color) Snapshot {
	return s.apply(ctx, func(st game.State, now time.Time) game.State {
		return s.eng.Tap(st, now, color)
	})
}

// Swipe applies a swipe in dir.
func (s *Session) Swipe(ctx context.Context, dir game.Direction) Snapshot {
	return s.apply(ctx, func(st game.State, now time.Time) game.State {
		return s.eng.Swipe(st, now, dir)
	})
}

// UseBoost activates b for the rest of the run.
func (s *Session) UseBoost(ctx context.Context, b game.Boost) Snapshot {
	return s.apply(ctx, func(st game.State, _ time.Time) game.State {
		return s.eng.UseBoost(st, b)
	})
}

// Revive continues a lost run when a revive is available.
func (s *Session) Revive(ctx context.Context) Snapshot {
	return s.apply(ctx, func(st game.State, _ time.Time) game.State {
		return s.eng.TryRevive(st)
	})
}

// Finish closes the run. A run that is over is completed, giving up any
// pending revive. A run still in play is abandoned and never settled.
func (s *Session) Finish(ctx context.Context) Snapshot {
	s.mu.Lock()

	now := s.clock()
	switch {
	case s.done || s.settling:
		defer s.mu.Unlock()
		return s.snapshotLocked(now)
	case s.state.IsGameOver:
		return s.settle(ctx)
	}

	defer s.mu.Unlock()
	s.abandoned = true
	s.state.IsRunning = false
	s.closeLocked()
	s.logger.Printf("run %s abandoned at score %d", s.id, s.state.Score)
	snap := s.snapshotLocked(now)
	s.publishLocked(snap)
	return snap
}

// Subscribe returns a channel receiving every published snapshot, starting
// with the current one. The channel is closed when the run is done or
// cancel is called. Slow readers lose intermediate snapshots, never the
// latest one.
func (s *Session) Subscribe() (<-chan Snapshot, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan Snapshot, 8)
	ch <- s.snapshotLocked(s.clock())
	if s.done {
		close(ch)
		return ch, func() {}
	}

	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if c, ok := s.subs[id]; ok {
				delete(s.subs, id)
				close(c)
			}
		})
	}
	return ch, cancel
}

// Run ticks the session every interval until the run is done or ctx is
// cancelled.
func (s *Session) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.doneCh:
			return nil
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

func (s *Session) apply(ctx context.Context, fn func(game.State, time.Time) game.State) Snapshot {
	s.mu.Lock()

	now := s.clock()
	if s.done || s.settling {
		defer s.mu.Unlock()
		return s.snapshotLocked(now)
	}
	if s.revivePendingLocked() && !now.Before(s.reviveDeadline) {
		s.logger.Printf("run %s: revive offer expired", s.id)
		return s.settle(ctx)
	}

	prev := s.state
	s.state = fn(s.state, now)
	if s.state.IsGameOver && !s.state.CanRevive() && s.state != prev {
		return s.settle(ctx)
	}
	defer s.mu.Unlock()

	if s.state == prev {
		return s.snapshotLocked(now)
	}
	if s.state.CanRevive() && !prev.IsGameOver {
		s.reviveDeadline = now.Add(s.reviveTimeout)
		// Nobody may tick an idle run; wake it once the offer lapses.
		time.AfterFunc(s.reviveTimeout, func() { s.Tick(context.WithoutCancel(ctx)) })
	}
	snap := s.snapshotLocked(now)
	s.publishLocked(snap)
	return snap
}

func (s *Session) revivePendingLocked() bool {
	return s.state.IsGameOver && s.state.CanRevive() && !s.reviveDeadline.IsZero()
}

// settle completes the run exactly once. It is entered with s.mu held and
// returns with it released. The completer runs without the lock.
func (s *Session) settle(ctx context.Context) Snapshot {
	s.settling = true
	result := s.state.Result()
	result.CustomSeed = s.customSeed
	s.mu.Unlock()

	var (
		outcome     *progress.Outcome
		completeErr string
	)
	if s.completer != nil {
		out, err := s.completer.Complete(context.WithoutCancel(ctx), result)
		if err != nil {
			s.logger.Printf("run %s: completion failed: %v", s.id, err)
			completeErr = err.Error()
		} else {
			outcome = &out
		}
	}
	s.logger.Printf("run %s over: mode=%s score=%d boosted=%v custom_seed=%v",
		s.id, result.Mode, result.Score, result.UsedBoost, result.CustomSeed)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.settling = false
	s.outcome, s.completeErr = outcome, completeErr
	s.closeLocked()
	snap := s.snapshotLocked(s.clock())
	s.publishLocked(snap)
	return snap
}

func (s *Session) closeLocked() {
	s.done = true
	select {
	case <-s.doneCh:
	default:
		close(s.doneCh)
	}
}

func (s *Session) snapshotLocked(now time.Time) Snapshot {
	return Snapshot{
		ID:          s.id,
		State:       s.state,
		RemainingMS: s.state.Remaining(now).Milliseconds(),
		WindowMS:    s.eng.Window().Milliseconds(),
		CanRevive:   !s.done && !s.settling && s.state.CanRevive(),
		Settling:    s.settling,
		Done:        s.done,
		Abandoned:   s.abandoned,
		Outcome:     s.outcome,
		CompleteErr: s.completeErr,
		At:          now,
	}
}

// publishLocked fans snap out to subscribers, dropping the oldest queued
// snapshot of any subscriber that has fallen behind. Once the run is done
// every subscriber channel is closed.
func (s *Session) publishLocked(snap Snapshot) {
	for id, ch := range s.subs {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
		if s.done {
			delete(s.subs, id)
			close(ch)
		}
	}
}

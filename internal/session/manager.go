// Package session hosts live runs for the service: each Session wraps one
// game engine, serializes input against it, settles the run when it ends
// and publishes snapshots to subscribers.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jfapp/reactix/internal/engine"
	"github.com/jfapp/reactix/internal/game"
	"github.com/jfapp/reactix/internal/progress"
)

var (
	// ErrNotFound is returned for an unknown session id.
	ErrNotFound = errors.New("session: not found")
	// ErrSeedNotAllowed rejects a caller seed for a mode that fixes its own.
	ErrSeedNotAllowed = errors.New("session: seed not allowed")
)

const (
	defaultReviveTimeout = 10 * time.Second
	defaultRetention     = 2 * time.Minute
)

// Completer settles a finished run.
type Completer interface {
	Complete(ctx context.Context, r game.RunResult) (progress.Outcome, error)
}

// Options configures a Manager.
type Options struct {
	Config    game.Config
	Clock     func() time.Time
	Location  *time.Location
	Completer Completer
	Logger    *log.Logger

	// TickInterval, when positive, drives every new session from a
	// background loop. Zero leaves ticking to the caller.
	TickInterval time.Duration

	// ReviveTimeout bounds how long a lost run waits for a revive before
	// it is settled without one. Defaults to 10s.
	ReviveTimeout time.Duration

	// Retention is how long a finished run stays fetchable before the
	// manager forgets it. Defaults to 2m.
	Retention time.Duration

	// EngineOptions are appended to the options every engine is built with.
	EngineOptions []game.Option
}

// Manager creates and tracks sessions.
type Manager struct {
	opts   Options
	logger *log.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates a session manager.
func NewManager(opts Options) *Manager {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Logger == nil {
		opts.Logger = log.New(os.Stdout, "[SESSION] ", log.LstdFlags|log.Lshortfile)
	}
	if opts.ReviveTimeout <= 0 {
		opts.ReviveTimeout = defaultReviveTimeout
	}
	if opts.Retention <= 0 {
		opts.Retention = defaultRetention
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		opts:     opts,
		logger:   opts.Logger,
		ctx:      ctx,
		cancel:   cancel,
		sessions: make(map[string]*Session),
	}
}

// Start begins a new run. An empty seed lets the engine pick one. Daily runs
// always play the day's seed; a classic run on a caller seed is a practice
// run that settles unranked.
func (m *Manager) Start(mode game.Mode, seed string) (*Session, error) {
	if _, err := game.ParseMode(string(mode)); err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}
	if err := m.opts.Config.Validate(); err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}
	if mode == game.ModeDaily && seed != "" {
		if seed != engine.DailySeed(m.opts.Clock(), m.opts.Location, m.opts.Config.DailySalt) {
			return nil, fmt.Errorf("%w: daily runs use the day's seed", ErrSeedNotAllowed)
		}
		seed = ""
	}

	engineOpts := append([]game.Option{
		game.WithClock(m.opts.Clock),
		game.WithLocation(m.opts.Location),
	}, m.opts.EngineOptions...)
	eng := game.NewEngine(m.opts.Config, engineOpts...)

	s := &Session{
		id:        uuid.NewString(),
		eng:       eng,
		clock:     m.opts.Clock,
		completer: m.opts.Completer,
		logger:    m.logger,

		customSeed:    seed != "",
		reviveTimeout: m.opts.ReviveTimeout,

		state:  eng.Start(mode, seed),
		subs:   make(map[int]chan Snapshot),
		doneCh: make(chan struct{}),
	}

	m.mu.Lock()
	m.sessions[s.id] = s
	m.mu.Unlock()

	m.logger.Printf("run %s started: mode=%s seed=%s custom_seed=%v", s.id, mode, s.state.Seed, s.customSeed)

	m.wg.Add(1)
	go m.release(s)

	if m.opts.TickInterval > 0 {
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			_ = s.Run(m.ctx, m.opts.TickInterval)
		}()
	}
	return s, nil
}

// release forgets s once it has been done for the retention period.
func (m *Manager) release(s *Session) {
	defer m.wg.Done()

	select {
	case <-s.Done():
	case <-m.ctx.Done():
		return
	}

	timer := time.NewTimer(m.opts.Retention)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-m.ctx.Done():
		return
	}

	m.mu.Lock()
	if m.sessions[s.id] == s {
		delete(m.sessions, s.id)
	}
	m.mu.Unlock()
	m.logger.Printf("run %s released", s.id)
}

// Get returns the session with id.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// Remove forgets the session with id after finishing it.
func (m *Manager) Remove(ctx context.Context, id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	s.Finish(ctx)
	return nil
}

// Len returns the number of tracked sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Close stops every background loop.
func (m *Manager) Close() {
	m.cancel()
	m.wg.Wait()
}

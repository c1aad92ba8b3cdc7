package progress

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/jfapp/reactix/internal/engine"
	"github.com/jfapp/reactix/internal/game"
	"github.com/jfapp/reactix/internal/store"
)

// Submitter posts ranked scores to a remote leaderboard.
type Submitter interface {
	Submit(ctx context.Context, board string, score int) error
}

// Options configures a Service.
type Options struct {
	PlayerID string
	Rules    Rules
	Location *time.Location
	Clock    func() time.Time
	Logger   *log.Logger
}

// Service settles runs for one player and persists the result.
type Service struct {
	db        store.DB
	submitter Submitter
	playerID  string
	rules     Rules
	loc       *time.Location
	clock     func() time.Time
	logger    *log.Logger

	mu sync.Mutex // serializes profile read-modify-write
}

// NewService creates a settlement service. submitter may be nil to disable
// leaderboard submission.
func NewService(db store.DB, submitter Submitter, opts Options) *Service {
	if opts.PlayerID == "" {
		opts.PlayerID = "local"
	}
	if opts.Rules.XPPerLevel == 0 {
		opts.Rules = DefaultRules()
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = log.New(os.Stdout, "[PROGRESS] ", log.LstdFlags|log.Lshortfile)
	}
	return &Service{
		db:        db,
		submitter: submitter,
		playerID:  opts.PlayerID,
		rules:     opts.Rules,
		loc:       opts.Location,
		clock:     opts.Clock,
		logger:    opts.Logger,
	}
}

// Complete settles a finished run. Persistence errors are returned;
// leaderboard failures are logged and reported in the Outcome only.
func (s *Service) Complete(ctx context.Context, r game.RunResult) (Outcome, error) {
	out, err := s.record(ctx, r)
	if err != nil {
		return Outcome{}, err
	}

	// Submission talks to the network; the profile lock is not held for it.
	if out.CountsForRanking && s.submitter != nil {
		if err := s.submitter.Submit(ctx, out.Board, r.Score); err != nil {
			s.logger.Printf("run %s: leaderboard %s submission failed: %v", out.RunID, out.Board, err)
			out.SubmitError = err.Error()
		} else {
			out.Submitted = true
			if err := s.db.MarkSubmitted(ctx, out.RunID); err != nil {
				s.logger.Printf("run %s: mark submitted: %v", out.RunID, err)
			}
		}
	}

	return out, nil
}

// record settles r against the stored profile and persists both.
func (s *Service) record(ctx context.Context, r game.RunResult) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	profile, err := s.loadProfile(ctx)
	if err != nil {
		return Outcome{}, err
	}

	now := s.clock()
	day := engine.EpochDay(now, s.loc)
	next, out := Settle(*profile, r, day, s.rules)

	run := &store.RunRecord{
		PlayerID:         s.playerID,
		Mode:             string(r.Mode),
		Seed:             r.Seed,
		EpochDay:         day,
		Score:            r.Score,
		CoinsEarned:      r.CoinsEarned,
		XPEarned:         r.XPEarned,
		CoinsCredited:    out.CoinsCredited,
		XPCredited:       out.XPCredited,
		UsedBoost:        r.UsedBoost,
		CountsForRanking: out.CountsForRanking,
		CreatedAt:        now.UTC(),
	}
	if err := s.db.ApplyRun(ctx, &next, run); err != nil {
		return Outcome{}, fmt.Errorf("progress: persist run: %w", err)
	}
	out.RunID = run.ID

	s.logger.Printf("run %s settled: mode=%s score=%d coins=+%d xp=+%d level=%d ranked=%v",
		run.ID, r.Mode, r.Score, out.CoinsCredited, out.XPCredited, out.Level, out.CountsForRanking)
	return out, nil
}

// Profile returns the player's current profile.
func (s *Service) Profile(ctx context.Context) (*store.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadProfile(ctx)
}

// History lists the player's settled runs, newest first.
func (s *Service) History(ctx context.Context, mode string, page, perPage int) (*store.RunsList, error) {
	return s.db.ListRuns(ctx, store.RunsQuery{
		PlayerID: s.playerID,
		Mode:     mode,
		Page:     page,
		PerPage:  perPage,
	})
}

func (s *Service) loadProfile(ctx context.Context) (*store.Profile, error) {
	p, err := s.db.LoadProfile(ctx, s.playerID)
	if errors.Is(err, store.ErrNotFound) {
		return store.NewProfile(s.playerID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("progress: load profile: %w", err)
	}
	return p, nil
}

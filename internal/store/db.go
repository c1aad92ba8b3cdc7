package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("store: not found")

// DB represents the database interface
type DB interface {
	Close() error
	Migrate() error
	LoadProfile(ctx context.Context, playerID string) (*Profile, error)
	SaveProfile(ctx context.Context, profile *Profile) error
	SaveRun(ctx context.Context, run *RunRecord) error
	// ApplyRun stores the settled profile and the run record atomically.
	ApplyRun(ctx context.Context, profile *Profile, run *RunRecord) error
	MarkSubmitted(ctx context.Context, runID string) error
	ListRuns(ctx context.Context, query RunsQuery) (*RunsList, error)
}

// Profile is a player's persisted progression.
type Profile struct {
	PlayerID          string    `json:"player_id" db:"player_id"`
	BestGlobal        int       `json:"best_global" db:"best_global"`
	DailyBest         int       `json:"daily_best" db:"daily_best"`
	LastDailyEpochDay int64     `json:"last_daily_epoch_day" db:"last_daily_epoch_day"`
	Coins             int       `json:"coins" db:"coins"`
	XP                int       `json:"xp" db:"xp"`
	Level             int       `json:"level" db:"level"`
	UpdatedAt         time.Time `json:"updated_at" db:"updated_at"`
}

// NewProfile returns the starting profile for a player.
func NewProfile(playerID string) *Profile {
	return &Profile{PlayerID: playerID, Level: 1}
}

// RunRecord is one settled run.
type RunRecord struct {
	ID               string    `json:"id" db:"id"`
	PlayerID         string    `json:"player_id" db:"player_id"`
	Mode             string    `json:"mode" db:"mode"`
	Seed             string    `json:"seed" db:"seed"`
	EpochDay         int64     `json:"epoch_day" db:"epoch_day"`
	Score            int       `json:"score" db:"score"`
	CoinsEarned      int       `json:"coins_earned" db:"coins_earned"`
	XPEarned         int       `json:"xp_earned" db:"xp_earned"`
	CoinsCredited    int       `json:"coins_credited" db:"coins_credited"`
	XPCredited       int       `json:"xp_credited" db:"xp_credited"`
	UsedBoost        bool      `json:"used_boost" db:"used_boost"`
	CountsForRanking bool      `json:"counts_for_ranking" db:"counts_for_ranking"`
	Submitted        bool      `json:"submitted" db:"submitted"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
}

// RunsQuery represents query parameters for listing runs
type RunsQuery struct {
	PlayerID string `json:"playerId,omitempty"`
	Mode     string `json:"mode,omitempty"`
	Page     int    `json:"page"`
	PerPage  int    `json:"perPage"`
}

// RunsList represents paginated runs response
type RunsList struct {
	Runs       []RunRecord `json:"runs"`
	TotalCount int         `json:"totalCount"`
	Page       int         `json:"page"`
	PerPage    int         `json:"perPage"`
	TotalPages int         `json:"totalPages"`
}

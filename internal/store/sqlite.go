package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteDB implements the DB interface using SQLite
type SQLiteDB struct {
	db *sql.DB
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// NewSQLiteDB creates a new SQLite database connection
func NewSQLiteDB(path string) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}
	db.SetMaxOpenConns(1) // single writer; also keeps :memory: on one connection

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: set busy timeout: %w", err)
	}

	return &SQLiteDB{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

// Migrate runs database migrations
func (s *SQLiteDB) Migrate() error {
	baseMigrations := []string{
		`CREATE TABLE IF NOT EXISTS profiles (
			player_id TEXT PRIMARY KEY,
			best_global INTEGER NOT NULL DEFAULT 0,
			daily_best INTEGER NOT NULL DEFAULT 0,
			last_daily_epoch_day INTEGER NOT NULL DEFAULT 0,
			coins INTEGER NOT NULL DEFAULT 0,
			xp INTEGER NOT NULL DEFAULT 0,
			level INTEGER NOT NULL DEFAULT 1,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			player_id TEXT NOT NULL,
			mode TEXT NOT NULL,
			seed TEXT NOT NULL,
			epoch_day INTEGER NOT NULL,
			score INTEGER NOT NULL,
			coins_earned INTEGER NOT NULL,
			xp_earned INTEGER NOT NULL,
			coins_credited INTEGER NOT NULL,
			xp_credited INTEGER NOT NULL,
			used_boost INTEGER NOT NULL DEFAULT 0,
			counts_for_ranking INTEGER NOT NULL DEFAULT 0,
			submitted INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_player_created ON runs(player_id, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_mode ON runs(mode)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_epoch_day ON runs(epoch_day, score DESC)`,
	}

	for _, migration := range baseMigrations {
		if _, err := s.db.Exec(migration); err != nil {
			return fmt.Errorf("store: base migration failed: %w", err)
		}
	}

	return nil
}

// LoadProfile returns the stored profile for playerID, or ErrNotFound.
func (s *SQLiteDB) LoadProfile(ctx context.Context, playerID string) (*Profile, error) {
	query := `SELECT player_id, best_global, daily_best, last_daily_epoch_day, coins, xp, level, updated_at
		FROM profiles WHERE player_id = ?`

	var p Profile
	err := s.db.QueryRowContext(ctx, query, playerID).Scan(
		&p.PlayerID, &p.BestGlobal, &p.DailyBest, &p.LastDailyEpochDay,
		&p.Coins, &p.XP, &p.Level, &p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: load profile %s: %w", playerID, err)
	}
	return &p, nil
}

// SaveProfile inserts or replaces a profile.
func (s *SQLiteDB) SaveProfile(ctx context.Context, profile *Profile) error {
	return saveProfile(ctx, s.db, profile)
}

// SaveRun saves a settled run to the database
func (s *SQLiteDB) SaveRun(ctx context.Context, run *RunRecord) error {
	return saveRun(ctx, s.db, run)
}

// ApplyRun writes the settled profile and its run in one transaction.
func (s *SQLiteDB) ApplyRun(ctx context.Context, profile *Profile, run *RunRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback()

	if err := saveProfile(ctx, tx, profile); err != nil {
		return err
	}
	if err := saveRun(ctx, tx, run); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	return nil
}

// MarkSubmitted flags a run as accepted by the leaderboard.
func (s *SQLiteDB) MarkSubmitted(ctx context.Context, runID string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE runs SET submitted = 1 WHERE id = ?`, runID)
	if err != nil {
		return fmt.Errorf("store: mark submitted %s: %w", runID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func saveProfile(ctx context.Context, db execer, p *Profile) error {
	if strings.TrimSpace(p.PlayerID) == "" {
		return fmt.Errorf("store: profile player id is required")
	}
	p.UpdatedAt = time.Now().UTC()

	query := `INSERT INTO profiles (
		player_id, best_global, daily_best, last_daily_epoch_day, coins, xp, level, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(player_id) DO UPDATE SET
		best_global = excluded.best_global,
		daily_best = excluded.daily_best,
		last_daily_epoch_day = excluded.last_daily_epoch_day,
		coins = excluded.coins,
		xp = excluded.xp,
		level = excluded.level,
		updated_at = excluded.updated_at`

	_, err := db.ExecContext(ctx, query,
		p.PlayerID, p.BestGlobal, p.DailyBest, p.LastDailyEpochDay,
		p.Coins, p.XP, p.Level, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("store: save profile %s: %w", p.PlayerID, err)
	}
	return nil
}

func saveRun(ctx context.Context, db execer, run *RunRecord) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	query := `INSERT INTO runs (
		id, player_id, mode, seed, epoch_day, score, coins_earned, xp_earned,
		coins_credited, xp_credited, used_boost, counts_for_ranking, submitted, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := db.ExecContext(ctx, query,
		run.ID, run.PlayerID, run.Mode, run.Seed, run.EpochDay, run.Score,
		run.CoinsEarned, run.XPEarned, run.CoinsCredited, run.XPCredited,
		boolToInt(run.UsedBoost), boolToInt(run.CountsForRanking), boolToInt(run.Submitted),
		run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("store: save run %s: %w", run.ID, err)
	}
	return nil
}

// ListRuns retrieves runs with pagination and filtering
func (s *SQLiteDB) ListRuns(ctx context.Context, query RunsQuery) (*RunsList, error) {
	var where []string
	args := []any{}

	if query.PlayerID != "" {
		where = append(where, "player_id = ?")
		args = append(args, query.PlayerID)
	}
	if query.Mode != "" {
		where = append(where, "mode = ?")
		args = append(args, query.Mode)
	}
	whereClause := ""
	if len(where) > 0 {
		whereClause = "WHERE " + strings.Join(where, " AND ")
	}

	var totalCount int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM runs "+whereClause, args...).Scan(&totalCount)
	if err != nil {
		return nil, fmt.Errorf("store: count runs: %w", err)
	}

	if query.PerPage <= 0 {
		query.PerPage = 50
	}
	if query.Page <= 0 {
		query.Page = 1
	}

	totalPages := (totalCount + query.PerPage - 1) / query.PerPage
	offset := (query.Page - 1) * query.PerPage

	mainQuery := `SELECT
		id, player_id, mode, seed, epoch_day, score, coins_earned, xp_earned,
		coins_credited, xp_credited, used_boost, counts_for_ranking, submitted, created_at
		FROM runs ` + whereClause + `
		ORDER BY created_at DESC, rowid DESC
		LIMIT ? OFFSET ?`

	args = append(args, query.PerPage, offset)

	rows, err := s.db.QueryContext(ctx, mainQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("store: query runs: %w", err)
	}
	defer rows.Close()

	runs := []RunRecord{}
	for rows.Next() {
		var run RunRecord
		var usedBoost, counts, submitted int

		err := rows.Scan(
			&run.ID, &run.PlayerID, &run.Mode, &run.Seed, &run.EpochDay, &run.Score,
			&run.CoinsEarned, &run.XPEarned, &run.CoinsCredited, &run.XPCredited,
			&usedBoost, &counts, &submitted, &run.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("store: scan run: %w", err)
		}
		run.UsedBoost = usedBoost == 1
		run.CountsForRanking = counts == 1
		run.Submitted = submitted == 1

		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate runs: %w", err)
	}

	return &RunsList{
		Runs:       runs,
		TotalCount: totalCount,
		Page:       query.Page,
		PerPage:    query.PerPage,
		TotalPages: totalPages,
	}, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

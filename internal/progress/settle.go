// Package progress settles finished runs into a player's profile: it credits
// currency and XP, tracks best scores and the daily epoch, and decides
// whether a run may be ranked.
package progress

import (
	"github.com/shopspring/decimal"

	"github.com/jfapp/reactix/internal/game"
	"github.com/jfapp/reactix/internal/store"
)

// Leaderboard names.
const (
	BoardGlobal = "global"
	BoardDaily  = "daily"
)

// Rules are the crediting constants applied at settlement.
type Rules struct {
	DailyXPBonus          int
	XPPerLevel            int
	DoubleCoinsMultiplier decimal.Decimal
}

// DefaultRules returns the stock crediting rules.
func DefaultRules() Rules {
	return Rules{
		DailyXPBonus:          50,
		XPPerLevel:            250,
		DoubleCoinsMultiplier: decimal.NewFromInt(2),
	}
}

// Outcome describes what settling a run did.
type Outcome struct {
	RunID            string          `json:"run_id,omitempty"`
	Board            string          `json:"board"`
	CoinsCredited    int             `json:"coins_credited"`
	XPCredited       int             `json:"xp_credited"`
	NewBest          bool            `json:"new_best"`
	Level            int             `json:"level"`
	LevelProgress    decimal.Decimal `json:"level_progress"`
	CountsForRanking bool            `json:"counts_for_ranking"`
	Submitted        bool            `json:"submitted"`
	SubmitError      string          `json:"submit_error,omitempty"`
}

// Settle applies a run result to profile p on calendar day epochDay and
// returns the updated profile. A run that used any boost, or was played on a
// seed the player chose, never counts for ranking. Custom-seed runs are still
// credited but leave best scores and the daily bonus alone.
func Settle(p store.Profile, r game.RunResult, epochDay int64, rules Rules) (store.Profile, Outcome) {
	multiplier := decimal.NewFromInt(1)
	if r.DoubleCoins {
		multiplier = rules.DoubleCoinsMultiplier
	}
	coins := int(decimal.NewFromInt(int64(r.CoinsEarned)).Mul(multiplier).Floor().IntPart())

	xp := r.XPEarned
	if r.Mode == game.ModeDaily && !r.CustomSeed {
		xp += rules.DailyXPBonus
	}

	p.Coins += coins
	p.XP += xp

	out := Outcome{
		CoinsCredited:    coins,
		XPCredited:       xp,
		CountsForRanking: !r.UsedBoost && !r.CustomSeed,
	}

	switch r.Mode {
	case game.ModeDaily:
		out.Board = BoardDaily
		if r.CustomSeed {
			break
		}
		if p.LastDailyEpochDay != epochDay {
			p.DailyBest = 0
			p.LastDailyEpochDay = epochDay
		}
		if r.Score > p.DailyBest {
			p.DailyBest = r.Score
			out.NewBest = true
		}
	default:
		out.Board = BoardGlobal
		if r.CustomSeed {
			break
		}
		if r.Score > p.BestGlobal {
			p.BestGlobal = r.Score
			out.NewBest = true
		}
	}

	p.Level, out.LevelProgress = level(p.XP, rules.XPPerLevel)
	out.Level = p.Level
	return p, out
}

// level returns the level for total xp and the fraction of the way to the
// next level, rounded to two places.
func level(xp, perLevel int) (int, decimal.Decimal) {
	if perLevel <= 0 || xp < 0 {
		return 1, decimal.Zero
	}
	lvl := xp/perLevel + 1
	progress := decimal.NewFromInt(int64(xp % perLevel)).
		Div(decimal.NewFromInt(int64(perLevel))).
		Round(2)
	return lvl, progress
}

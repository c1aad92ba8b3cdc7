package game

import "fmt"

// Boost is a player-invoked run modifier. Using any boost excludes the run
// from ranking.
type Boost string

const (
	BoostExtraRevive   Boost = "extra_revive"
	BoostDoubleCoins   Boost = "double_coins"
	BoostShieldOneFail Boost = "shield_one_fail"
)

// Boosts lists every boost type.
var Boosts = []Boost{BoostExtraRevive, BoostDoubleCoins, BoostShieldOneFail}

// ParseBoost returns the named boost or an error.
func ParseBoost(s string) (Boost, error) {
	for _, b := range Boosts {
		if string(b) == s {
			return b, nil
		}
	}
	return "", fmt.Errorf("unknown boost %q", s)
}

// applyBoost records b on s. DoubleCoins only flags the run: the multiplier
// is applied when the run is settled.
func applyBoost(s State, b Boost) State {
	s.UsedBoostInRun = true
	switch b {
	case BoostExtraRevive:
		s.ReviveAvailable = true
	case BoostDoubleCoins:
		s.DoubleCoins = true
	case BoostShieldOneFail:
		s.ShieldArmed = true
	}
	return s
}

// Package ratings implements the Elo arithmetic used for seeding and
// post-match rating updates. It performs no I/O.
package ratings

import "math"

const (
	// DefaultRating seeds a player who has never played a rated match.
	DefaultRating = 1000

	// ProvisionalCap is the ceiling of the provisional-game counter.
	ProvisionalCap = 10

	// GlobalSeedHandicap is subtracted from a player's cross-mode global
	// rating when seeding a fresh per-mode rating from it.
	GlobalSeedHandicap = 200

	// MinSeedRating floors a rating seeded from the global rating.
	MinSeedRating = 800

	// SmurfSeedingBonus is added to a suspected smurf's effective rating
	// for bracket seeding only. The stored rating is never touched.
	SmurfSeedingBonus = 200
)

// ExpectedScore returns the probability of A beating B under the Elo model.
func ExpectedScore(ratingA, ratingB int) float64 {
	return 1.0 / (1.0 + math.Pow(10, float64(ratingB-ratingA)/400.0))
}

// KFactor picks the adjustment magnitude by experience: new players move
// fast, established ratings settle.
func KFactor(gamesPlayed int) int {
	switch {
	case gamesPlayed < 10:
		return 80
	case gamesPlayed < 30:
		return 40
	default:
		return 20
	}
}

// NewRating computes the updated rating for one side of a decided match.
// actual is 1 for the winner and 0 for the loser; draws are rejected
// upstream and never reach the engine.
func NewRating(rating, opponentRating, gamesPlayed int, actual float64) int {
	expected := ExpectedScore(rating, opponentRating)
	k := float64(KFactor(gamesPlayed))
	return rating + int(math.Round(k*(actual-expected)))
}

// SeedFromGlobal derives a starting per-mode rating from a cross-mode
// global rating.
func SeedFromGlobal(globalRating int) int {
	seeded := globalRating - GlobalSeedHandicap
	if seeded < MinSeedRating {
		return MinSeedRating
	}
	return seeded
}

// BumpProvisional advances the provisional-game counter, capped. The counter
// only ever grows.
func BumpProvisional(games int) int {
	if games >= ProvisionalCap {
		return ProvisionalCap
	}
	return games + 1
}

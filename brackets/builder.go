// Package brackets builds and advances single-elimination bracket
// structures. It is pure computation over models; persistence belongs to
// the services layer.
package brackets

import (
	"errors"
	"fmt"
	"log"

	"github.com/bracketforge/bracketforge/models"
)

var (
	ErrInvalidCapacity   = errors.New("bracket capacity must be one of 4, 8, 16, 32, 64")
	ErrNotEnoughEntrants = errors.New("not enough entrants to build a bracket (minimum 2)")
	ErrTooManyEntrants   = errors.New("entrant count exceeds bracket capacity")
)

// MaxAdvanceIterations bounds the advancer's cascade loop for a given
// capacity: one pass per round plus one for the finalization check.
func MaxAdvanceIterations(capacity int) int {
	rounds := 0
	for c := capacity; c > 1; c /= 2 {
		rounds++
	}
	return rounds + 1
}

// BuildRoundOne lays the seeded entries into a slot array of the declared
// capacity, padding the tail with byes, and pairs consecutive slots into
// round-1 matches. Single-sided pairs are resolved immediately as byes;
// this is the only automatic resolution performed at build time.
func BuildRoundOne(tournamentID, capacity int, seeded []*models.Entry) ([]*models.Match, error) {
	if !models.IsAllowedCapacity(capacity) {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidCapacity, capacity)
	}
	if len(seeded) < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrNotEnoughEntrants, len(seeded))
	}
	if len(seeded) > capacity {
		return nil, fmt.Errorf("%w: %d entrants for capacity %d", ErrTooManyEntrants, len(seeded), capacity)
	}

	slots := make([]*models.Entry, capacity)
	copy(slots, seeded)

	matches := make([]*models.Match, 0, capacity/2)
	for i := 0; i < capacity/2; i++ {
		matches = append(matches, pairToMatch(tournamentID, 1, i, slots[2*i], slots[2*i+1]))
	}
	return matches, nil
}

// NextRound pairs the winners of a finished round in position order into
// the following round's matches, applying the same bye rule as round one.
// An odd trailing winner advances as a completed bye match.
func NextRound(tournamentID, round int, winnerEntryIDs []int) []*models.Match {
	matches := make([]*models.Match, 0, (len(winnerEntryIDs)+1)/2)
	for i := 0; i*2 < len(winnerEntryIDs); i++ {
		e1 := &models.Entry{ID: winnerEntryIDs[i*2]}
		var e2 *models.Entry
		if i*2+1 < len(winnerEntryIDs) {
			e2 = &models.Entry{ID: winnerEntryIDs[i*2+1]}
		}
		matches = append(matches, pairToMatch(tournamentID, round, i, e1, e2))
	}
	return matches
}

func pairToMatch(tournamentID, round, position int, e1, e2 *models.Entry) *models.Match {
	m := &models.Match{
		TournamentID: tournamentID,
		Round:        round,
		Position:     position,
		Status:       models.MatchStatusPending,
	}
	if e1 != nil {
		id := e1.ID
		m.Entry1ID = &id
	}
	if e2 != nil {
		id := e2.ID
		m.Entry2ID = &id
	}

	switch {
	case e1 != nil && e2 != nil:
		// Regular pairing, waits for a result.
	case e1 != nil || e2 != nil:
		winner := m.Entry1ID
		if winner == nil {
			winner = m.Entry2ID
		}
		score := models.ByeScore
		m.WinnerEntryID = winner
		m.Score = &score
		m.Status = models.MatchStatusCompleted
	default:
		// Guarded against by capacity/entrant validation; resolve as a
		// completed no-winner match so the bracket cannot stall on it.
		log.Printf("Warning: both slots empty for tournament %d round %d position %d", tournamentID, round, position)
		m.Status = models.MatchStatusCompleted
	}
	return m
}

package brackets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bracketforge/bracketforge/models"
)

func makeEntries(n int) []*models.Entry {
	entries := make([]*models.Entry, n)
	for i := range entries {
		entries[i] = &models.Entry{ID: i + 1, Kind: models.EntryKindPlayer}
	}
	return entries
}

func TestBuildRoundOneValidation(t *testing.T) {
	testCases := []struct {
		name     string
		capacity int
		entrants int
		wantErr  error
	}{
		{name: "capacity not a power of two", capacity: 6, entrants: 4, wantErr: ErrInvalidCapacity},
		{name: "capacity too large", capacity: 128, entrants: 4, wantErr: ErrInvalidCapacity},
		{name: "single entrant", capacity: 8, entrants: 1, wantErr: ErrNotEnoughEntrants},
		{name: "no entrants", capacity: 8, entrants: 0, wantErr: ErrNotEnoughEntrants},
		{name: "overflow", capacity: 4, entrants: 5, wantErr: ErrTooManyEntrants},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := BuildRoundOne(1, tc.capacity, makeEntries(tc.entrants))
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestBuildRoundOneFullField(t *testing.T) {
	matches, err := BuildRoundOne(7, 8, makeEntries(8))
	require.NoError(t, err)
	require.Len(t, matches, 4)

	for i, m := range matches {
		assert.Equal(t, 7, m.TournamentID)
		assert.Equal(t, 1, m.Round)
		assert.Equal(t, i, m.Position)
		assert.Equal(t, models.MatchStatusPending, m.Status)
		require.NotNil(t, m.Entry1ID)
		require.NotNil(t, m.Entry2ID)
		assert.Nil(t, m.WinnerEntryID)
	}
}

func TestBuildRoundOnePadsWithByes(t *testing.T) {
	// Five entrants in a bracket of eight leaves three byes, all at the
	// tail of the slot array.
	matches, err := BuildRoundOne(1, 8, makeEntries(5))
	require.NoError(t, err)
	require.Len(t, matches, 4)

	byes := 0
	for _, m := range matches {
		if m.IsBye() {
			byes++
			assert.Equal(t, models.MatchStatusCompleted, m.Status)
			require.NotNil(t, m.WinnerEntryID)
			require.NotNil(t, m.Score)
			assert.Equal(t, models.ByeScore, *m.Score)
		}
	}
	assert.Equal(t, 3, byes)

	// The sole occupant of a bye pair is its winner.
	last := matches[3]
	require.NotNil(t, last.WinnerEntryID)
	assert.True(t, last.HasEntry(*last.WinnerEntryID))
}

func TestNextRoundPairsWinnersInOrder(t *testing.T) {
	matches := NextRound(1, 2, []int{10, 20, 30, 40})
	require.Len(t, matches, 2)

	assert.Equal(t, 10, *matches[0].Entry1ID)
	assert.Equal(t, 20, *matches[0].Entry2ID)
	assert.Equal(t, 30, *matches[1].Entry1ID)
	assert.Equal(t, 40, *matches[1].Entry2ID)
	for i, m := range matches {
		assert.Equal(t, 2, m.Round)
		assert.Equal(t, i, m.Position)
		assert.Equal(t, models.MatchStatusPending, m.Status)
	}
}

func TestNextRoundOddWinnerGetsBye(t *testing.T) {
	matches := NextRound(1, 3, []int{10, 20, 30})
	require.Len(t, matches, 2)

	bye := matches[1]
	assert.True(t, bye.IsBye())
	assert.Equal(t, models.MatchStatusCompleted, bye.Status)
	require.NotNil(t, bye.WinnerEntryID)
	assert.Equal(t, 30, *bye.WinnerEntryID)
}

func TestMaxAdvanceIterations(t *testing.T) {
	assert.Equal(t, 3, MaxAdvanceIterations(4))
	assert.Equal(t, 4, MaxAdvanceIterations(8))
	assert.Equal(t, 7, MaxAdvanceIterations(64))
}

package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bracketforge/bracketforge/models"
)

func TestGenerateCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code, err := generateCode()
		require.NoError(t, err)
		assert.Len(t, code, codeLength)
		for _, r := range code {
			assert.True(t, strings.ContainsRune(codeAlphabet, r), "unexpected character %q", r)
		}
		seen[code] = true
	}
	// Collisions over 100 draws from a 31^8 space would indicate a broken
	// generator.
	assert.Len(t, seen, 100)
}

func TestValidateScore(t *testing.T) {
	testCases := []struct {
		name    string
		score   *string
		wantErr error
	}{
		{name: "nil score", score: nil},
		{name: "decisive score", score: strPtr("3-1")},
		{name: "spaced score", score: strPtr("10 - 7")},
		{name: "free-form score", score: strPtr("forfeit")},
		{name: "draw", score: strPtr("2-2"), wantErr: ErrDrawNotAllowed},
		{name: "spaced draw", score: strPtr("0 - 0"), wantErr: ErrDrawNotAllowed},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := validateScore(tc.score)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestModeForFormat(t *testing.T) {
	assert.Equal(t, models.Mode1v1, modeForFormat(models.Format1v1))
	assert.Equal(t, models.Mode2v2, modeForFormat(models.Format2v2))
}

func TestIsValidStatusTransition(t *testing.T) {
	allowed := []struct{ from, to models.TournamentStatus }{
		{models.StatusDraft, models.StatusRegOpen},
		{models.StatusRegOpen, models.StatusRegClosed},
		{models.StatusRegClosed, models.StatusInProgress},
		{models.StatusInProgress, models.StatusCompleted},
		{models.StatusCompleted, models.StatusArchived},
		{models.StatusRegOpen, models.StatusCanceled},
		{models.StatusCanceled, models.StatusArchived},
	}
	for _, tr := range allowed {
		assert.True(t, isValidStatusTransition(tr.from, tr.to), "%s -> %s", tr.from, tr.to)
	}

	denied := []struct{ from, to models.TournamentStatus }{
		{models.StatusDraft, models.StatusRegClosed},
		{models.StatusDraft, models.StatusInProgress},
		{models.StatusRegClosed, models.StatusRegOpen},
		{models.StatusCompleted, models.StatusInProgress},
		{models.StatusArchived, models.StatusDraft},
		{models.StatusCanceled, models.StatusRegOpen},
	}
	for _, tr := range denied {
		assert.False(t, isValidStatusTransition(tr.from, tr.to), "%s -> %s", tr.from, tr.to)
	}
}

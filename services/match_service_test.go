package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bracketforge/bracketforge/models"
	"github.com/bracketforge/bracketforge/repositories"
)

// Four unrated players seed in registration order and fold into
// entry1-vs-entry4 and entry2-vs-entry3 pairings.
func startFourPlayerMatch(t *testing.T, env *testEnv) (*models.Tournament, *models.Match) {
	t.Helper()
	tournament, matches := start1v1Tournament(t, env, 4, "p1", "p2", "p3", "p4")
	require.Len(t, matches, 2)
	first := matches[0]
	require.Equal(t, 1, *first.Entry1ID)
	require.Equal(t, 4, *first.Entry2ID)
	return tournament, first
}

func TestReportResultFirstClaimAwaitsConfirmation(t *testing.T) {
	env := newTestEnv()
	_, match := startFourPlayerMatch(t, env)
	ctx := context.Background()

	report, err := env.matchService.ReportResult(ctx, match.ID, 1, "p1", strPtr("3-1"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeAwaitingConfirmation, report.Outcome)

	stored, err := env.matches.GetByID(ctx, match.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusPending, stored.Status)
	require.NotNil(t, stored.PendingWinnerEntryID)
	assert.Equal(t, 1, *stored.PendingWinnerEntryID)
	require.NotNil(t, stored.PendingReportedBy)
	assert.Equal(t, "p1", *stored.PendingReportedBy)
}

func TestReportResultRepeatByReporterRejected(t *testing.T) {
	env := newTestEnv()
	_, match := startFourPlayerMatch(t, env)
	ctx := context.Background()

	_, err := env.matchService.ReportResult(ctx, match.ID, 1, "p1", nil)
	require.NoError(t, err)

	// Re-reporting, even with a different claimed winner, changes nothing.
	_, err = env.matchService.ReportResult(ctx, match.ID, 1, "p1", nil)
	assert.ErrorIs(t, err, ErrAlreadyReported)
	_, err = env.matchService.ReportResult(ctx, match.ID, 4, "p1", nil)
	assert.ErrorIs(t, err, ErrAlreadyReported)
}

func TestReportResultOpponentConfirmationCompletes(t *testing.T) {
	env := newTestEnv()
	tournament, match := startFourPlayerMatch(t, env)
	ctx := context.Background()

	_, err := env.matchService.ReportResult(ctx, match.ID, 1, "p1", strPtr("3-1"))
	require.NoError(t, err)

	report, err := env.matchService.ReportResult(ctx, match.ID, 1, "p4", strPtr("3-2"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeCompleted, report.Outcome)

	stored, err := env.matches.GetByID(ctx, match.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusCompleted, stored.Status)
	assert.Equal(t, 1, *stored.WinnerEntryID)
	// The confirming report's score is the one recorded.
	assert.Equal(t, "3-2", *stored.Score)
	assert.Nil(t, stored.PendingWinnerEntryID)

	// Ratings move by half the newcomer K-factor and the result lands in
	// the global history.
	winnerRating, err := env.ratings.Get(ctx, "p1", models.Mode1v1)
	require.NoError(t, err)
	assert.Equal(t, 1040, winnerRating.Rating)
	assert.Equal(t, 1, winnerRating.ProvisionalGames)

	loserRating, err := env.ratings.Get(ctx, "p4", models.Mode1v1)
	require.NoError(t, err)
	assert.Equal(t, 960, loserRating.Rating)

	history, err := env.logs.ListByPlayer(ctx, "p1", 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, tournament.GuildID, history[0].GuildID)
	assert.Equal(t, "p1", history[0].WinnerPlayerID)
	assert.Equal(t, "p4", history[0].LoserPlayerID)
}

// claimRaceMatchRepo lands a rival claim and confirms it inside the claim
// attempt, so the caller loses the race to a match that is already decided
// by the time it reloads.
type claimRaceMatchRepo struct {
	*fakeMatchRepo
	rivalWinnerEntryID int
	rivalReporter      string
}

func (r *claimRaceMatchRepo) SetPendingClaim(ctx context.Context, id int, winnerEntryID int, reportedBy string) error {
	if err := r.fakeMatchRepo.SetPendingClaim(ctx, id, r.rivalWinnerEntryID, r.rivalReporter); err != nil {
		return err
	}
	if err := r.fakeMatchRepo.Complete(ctx, id, &r.rivalWinnerEntryID, nil); err != nil {
		return err
	}
	return repositories.ErrMatchClaimOccupied
}

func TestReportResultLostClaimRaceToDecidedMatch(t *testing.T) {
	env := newTestEnv()
	_, match := startFourPlayerMatch(t, env)
	ctx := context.Background()

	racing := &claimRaceMatchRepo{
		fakeMatchRepo:      env.matches,
		rivalWinnerEntryID: 4,
		rivalReporter:      "p4",
	}
	svc := NewMatchService(
		env.tournaments, env.entries, racing, env.logs,
		env.ratingService, env.bracketService, env.hub, testLogger())

	_, err := svc.ReportResult(ctx, match.ID, 1, "p1", nil)
	assert.ErrorIs(t, err, ErrMatchAlreadyCompleted)

	// The rival's result stands untouched.
	stored, err := env.matches.GetByID(ctx, match.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusCompleted, stored.Status)
	assert.Equal(t, 4, *stored.WinnerEntryID)
	assert.Nil(t, stored.PendingWinnerEntryID)
}

func TestReportResultConflictFreezesMatch(t *testing.T) {
	env := newTestEnv()
	_, match := startFourPlayerMatch(t, env)
	ctx := context.Background()

	_, err := env.matchService.ReportResult(ctx, match.ID, 1, "p1", nil)
	require.NoError(t, err)

	report, err := env.matchService.ReportResult(ctx, match.ID, 4, "p4", nil)
	require.NoError(t, err)
	assert.Equal(t, OutcomeConflict, report.Outcome)

	// The first claim survives untouched and the match stays pending, no
	// matter how many times the conflict is re-reported.
	for i := 0; i < 3; i++ {
		report, err = env.matchService.ReportResult(ctx, match.ID, 4, "p4", nil)
		require.NoError(t, err)
		assert.Equal(t, OutcomeConflict, report.Outcome)
	}
	stored, err := env.matches.GetByID(ctx, match.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusPending, stored.Status)
	assert.Equal(t, 1, *stored.PendingWinnerEntryID)

	// Only an admin decision resolves it.
	decided, err := env.matchService.AdminOverride(ctx, match.ID, 4, strPtr("2-1"))
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusCompleted, decided.Status)
	assert.Equal(t, 4, *decided.WinnerEntryID)
	assert.Nil(t, decided.PendingWinnerEntryID)
}

func TestReportResultDummyOpponentTrusted(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	tournament, err := env.tournamentService.Create(ctx, "guild-1", models.Format1v1, 4)
	require.NoError(t, err)
	require.NoError(t, env.tournamentService.OpenRegistration(ctx, tournament.ID))
	for _, p := range []string{"p1", "p2", "p3"} {
		_, err := env.tournamentService.RegisterEntry(ctx, tournament.ID, RegisterEntryInput{Player1ID: p})
		require.NoError(t, err)
	}
	_, err = env.tournamentService.AddDummyEntries(ctx, tournament.ID, 1)
	require.NoError(t, err)
	require.NoError(t, env.tournamentService.CloseRegistration(ctx, tournament.ID))
	matches, err := env.tournamentService.Start(ctx, tournament.ID)
	require.NoError(t, err)

	// All effective ratings are equal, so the dummy folds in as the
	// fourth seed and meets the first entry.
	first := matches[0]
	require.Equal(t, 1, *first.Entry1ID)
	require.Equal(t, 4, *first.Entry2ID)

	report, err := env.matchService.ReportResult(ctx, first.ID, 1, "p1", strPtr("2-0"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeCompleted, report.Outcome)

	// A win over a dummy is never rated.
	_, err = env.ratings.Get(ctx, "p1", models.Mode1v1)
	assert.Error(t, err)
	history, err := env.logs.ListByPlayer(ctx, "p1", 10)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestReportResultGuards(t *testing.T) {
	env := newTestEnv()
	_, match := startFourPlayerMatch(t, env)
	ctx := context.Background()

	t.Run("draw score rejected", func(t *testing.T) {
		_, err := env.matchService.ReportResult(ctx, match.ID, 1, "p1", strPtr("2-2"))
		assert.ErrorIs(t, err, ErrDrawNotAllowed)
	})

	t.Run("winner must be in the match", func(t *testing.T) {
		_, err := env.matchService.ReportResult(ctx, match.ID, 2, "p1", nil)
		assert.ErrorIs(t, err, ErrWinnerNotInMatch)
	})

	t.Run("reporter must be a participant", func(t *testing.T) {
		_, err := env.matchService.ReportResult(ctx, match.ID, 1, "p2", nil)
		assert.ErrorIs(t, err, ErrNotAParticipant)
		_, err = env.matchService.ReportResult(ctx, match.ID, 1, "stranger", nil)
		assert.ErrorIs(t, err, ErrNotAParticipant)
	})

	t.Run("unknown match", func(t *testing.T) {
		_, err := env.matchService.ReportResult(ctx, 999, 1, "p1", nil)
		assert.ErrorIs(t, err, ErrMatchNotFound)
	})

	t.Run("completed match rejects further reports", func(t *testing.T) {
		_, err := env.matchService.AdminOverride(ctx, match.ID, 1, nil)
		require.NoError(t, err)
		_, err = env.matchService.ReportResult(ctx, match.ID, 1, "p4", nil)
		assert.ErrorIs(t, err, ErrMatchAlreadyCompleted)
		_, err = env.matchService.AdminOverride(ctx, match.ID, 4, nil)
		assert.ErrorIs(t, err, ErrMatchAlreadyCompleted)
	})
}

func strPtr(s string) *string {
	return &s
}

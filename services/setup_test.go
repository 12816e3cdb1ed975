package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bracketforge/bracketforge/brackets"
	"github.com/bracketforge/bracketforge/models"
)

type testEnv struct {
	tournaments *fakeTournamentRepo
	entries     *fakeEntryRepo
	matches     *fakeMatchRepo
	ratings     *fakeRatingRepo
	logs        *fakeMatchLogRepo
	uploader    *fakeUploader
	hub         *brackets.Hub

	ratingService     RatingService
	seeding           *SeedingService
	bracketService    BracketService
	matchService      MatchService
	tournamentService TournamentService
}

func newTestEnv() *testEnv {
	env := &testEnv{
		tournaments: newFakeTournamentRepo(),
		entries:     newFakeEntryRepo(),
		matches:     newFakeMatchRepo(),
		ratings:     newFakeRatingRepo(),
		logs:        newFakeMatchLogRepo(),
		uploader:    newFakeUploader(),
		hub:         brackets.NewHub(),
	}
	logger := testLogger()

	env.ratingService = NewRatingService(env.ratings)
	env.seeding = NewSeedingService(env.ratingService)
	env.bracketService = NewBracketService(
		nil, env.tournaments, env.entries, env.matches, env.seeding, env.hub, logger)
	env.matchService = NewMatchService(
		env.tournaments, env.entries, env.matches, env.logs,
		env.ratingService, env.bracketService, env.hub, logger)
	env.tournamentService = NewTournamentService(
		nil, env.tournaments, env.entries, env.matches, env.ratings,
		env.bracketService, env.uploader, logger)
	return env
}

// start1v1Tournament drives the full lifecycle up to in_progress for the
// given players, registering them in order.
func start1v1Tournament(t *testing.T, env *testEnv, capacity int, playerIDs ...string) (*models.Tournament, []*models.Match) {
	t.Helper()
	ctx := context.Background()

	tournament, err := env.tournamentService.Create(ctx, "guild-1", models.Format1v1, capacity)
	require.NoError(t, err)
	require.NoError(t, env.tournamentService.OpenRegistration(ctx, tournament.ID))

	for _, playerID := range playerIDs {
		_, err := env.tournamentService.RegisterEntry(ctx, tournament.ID, RegisterEntryInput{
			Player1ID:   playerID,
			Player1Name: fmt.Sprintf("Player %s", playerID),
		})
		require.NoError(t, err)
	}

	require.NoError(t, env.tournamentService.CloseRegistration(ctx, tournament.ID))
	matches, err := env.tournamentService.Start(ctx, tournament.ID)
	require.NoError(t, err)
	return tournament, matches
}

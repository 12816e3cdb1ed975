package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bracketforge/bracketforge/brackets"
	"github.com/bracketforge/bracketforge/models"
	"github.com/bracketforge/bracketforge/repositories"
)

type BracketService interface {
	// BuildBracket seeds the registered entries and instantiates round 1,
	// moving the tournament to in_progress. Invoked once, after
	// registration closes.
	BuildBracket(ctx context.Context, tournamentID int) ([]*models.Match, error)
	// Advance checks the current round for completeness and, when done,
	// creates the next round or finalizes the tournament. Invoked after
	// every match completion; safe to call at any time.
	Advance(ctx context.Context, tournamentID int) error
}

type bracketService struct {
	db             *sql.DB
	tournamentRepo repositories.TournamentRepository
	entryRepo      repositories.EntryRepository
	matchRepo      repositories.MatchRepository
	seeding        *SeedingService
	hub            *brackets.Hub
	logger         *slog.Logger
}

func NewBracketService(
	db *sql.DB,
	tournamentRepo repositories.TournamentRepository,
	entryRepo repositories.EntryRepository,
	matchRepo repositories.MatchRepository,
	seeding *SeedingService,
	hub *brackets.Hub,
	logger *slog.Logger,
) BracketService {
	return &bracketService{
		db:             db,
		tournamentRepo: tournamentRepo,
		entryRepo:      entryRepo,
		matchRepo:      matchRepo,
		seeding:        seeding,
		hub:            hub,
		logger:         logger,
	}
}

func (s *bracketService) BuildBracket(ctx context.Context, tournamentID int) ([]*models.Match, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	if tournament.Status != models.StatusRegClosed {
		return nil, fmt.Errorf("%w: bracket can only be built from reg_closed, tournament is %s",
			ErrInvalidStatusTransition, tournament.Status)
	}

	entries, err := s.entryRepo.ListByTournament(ctx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries for tournament %d: %w", tournamentID, err)
	}

	seeded, err := s.seeding.Seed(ctx, entries, modeForFormat(tournament.Format))
	if err != nil {
		return nil, fmt.Errorf("failed to seed entries for tournament %d: %w", tournamentID, err)
	}

	matches, err := brackets.BuildRoundOne(tournamentID, tournament.Capacity, seeded)
	if err != nil {
		return nil, err
	}

	err = runInTx(ctx, s.db, func(tx *sql.Tx) error {
		for _, match := range matches {
			if err := s.matchRepo.Create(ctx, tx, match); err != nil {
				return fmt.Errorf("failed to create round-1 match at position %d: %w", match.Position, err)
			}
		}
		return s.tournamentRepo.UpdateStatus(ctx, tx, tournamentID, models.StatusInProgress)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("bracket built",
		slog.Int("tournament_id", tournamentID),
		slog.Int("capacity", tournament.Capacity),
		slog.Int("entries", len(entries)),
		slog.Int("matches", len(matches)))

	s.hub.BroadcastToRoom(tournament.Code, brackets.Event{
		Type:    brackets.EventBracketCreated,
		Code:    tournament.Code,
		Payload: matches,
	})

	// Byes may have resolved the whole round already; drain any cascade.
	if err := s.Advance(ctx, tournamentID); err != nil {
		s.logger.Error("post-build advancement failed",
			slog.Int("tournament_id", tournamentID), slog.Any("error", err))
	}

	return matches, nil
}

// Advance is housekeeping downstream of a completed match: failures here are
// logged by callers and never undo the completion that triggered them. The
// loop is capped so corrupted data cannot spin it forever.
func (s *bracketService) Advance(ctx context.Context, tournamentID int) error {
	tournament, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		return fmt.Errorf("advance: failed to load tournament %d: %w", tournamentID, err)
	}
	if tournament.Status != models.StatusInProgress {
		return nil
	}

	for iteration := 0; iteration < brackets.MaxAdvanceIterations(tournament.Capacity); iteration++ {
		advanced, err := s.advanceOnce(ctx, tournament)
		if err != nil {
			return err
		}
		if !advanced {
			return nil
		}
	}
	s.logger.Warn("advance iteration cap reached, bracket data may be inconsistent",
		slog.Int("tournament_id", tournamentID))
	return nil
}

// advanceOnce performs one completeness check. It reports whether it changed
// anything, so the caller knows to re-check the newly created round.
func (s *bracketService) advanceOnce(ctx context.Context, tournament *models.Tournament) (bool, error) {
	matches, err := s.matchRepo.ListByTournament(ctx, tournament.ID)
	if err != nil {
		return false, fmt.Errorf("advance: failed to list matches for tournament %d: %w", tournament.ID, err)
	}
	if len(matches) == 0 {
		return false, nil
	}

	// Matches arrive ordered by round then position.
	currentRound := matches[len(matches)-1].Round

	var winners []int
	var lastDecided *models.Match
	for _, m := range matches {
		if m.Round != currentRound {
			continue
		}
		if m.Status == models.MatchStatusPending {
			return false, nil
		}
		if m.WinnerEntryID != nil {
			winners = append(winners, *m.WinnerEntryID)
			lastDecided = m
		}
	}

	switch len(winners) {
	case 0:
		s.logger.Warn("completed round produced no winners",
			slog.Int("tournament_id", tournament.ID), slog.Int("round", currentRound))
		return false, nil
	case 1:
		// lastDecided is the match the champion won; its opponent is the
		// runner-up.
		return false, s.finalize(ctx, tournament, lastDecided, winners[0])
	}

	// Idempotency guard against two resolutions observing the same
	// completed round.
	exists, err := s.matchRepo.HasRound(ctx, tournament.ID, currentRound+1)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	nextMatches := brackets.NextRound(tournament.ID, currentRound+1, winners)
	err = runInTx(ctx, s.db, func(tx *sql.Tx) error {
		for _, match := range nextMatches {
			if err := s.matchRepo.Create(ctx, tx, match); err != nil {
				return fmt.Errorf("advance: failed to create round-%d match at position %d: %w",
					match.Round, match.Position, err)
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}

	s.logger.Info("round created",
		slog.Int("tournament_id", tournament.ID),
		slog.Int("round", currentRound+1),
		slog.Int("matches", len(nextMatches)))

	s.hub.BroadcastToRoom(tournament.Code, brackets.Event{
		Type:    brackets.EventRoundCreated,
		Code:    tournament.Code,
		Payload: nextMatches,
	})
	return true, nil
}

func (s *bracketService) finalize(ctx context.Context, tournament *models.Tournament, finalMatch *models.Match, championEntryID int) error {
	var runnerUp *int
	if finalMatch != nil {
		runnerUp = finalMatch.OpponentEntryID(championEntryID)
	}

	champion := championEntryID
	err := s.tournamentRepo.SetResult(ctx, nil, tournament.ID, &champion, runnerUp, time.Now().UTC())
	if err != nil {
		// Status-guarded update: zero rows means another resolution
		// already finalized, which is fine.
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil
		}
		return fmt.Errorf("advance: failed to finalize tournament %d: %w", tournament.ID, err)
	}

	s.logger.Info("tournament completed",
		slog.Int("tournament_id", tournament.ID),
		slog.Int("champion_entry_id", championEntryID))

	s.hub.BroadcastToRoom(tournament.Code, brackets.Event{
		Type: brackets.EventTournamentCompleted,
		Code: tournament.Code,
		Payload: map[string]interface{}{
			"winner_entry_id":    championEntryID,
			"runner_up_entry_id": runnerUp,
		},
	})
	return nil
}

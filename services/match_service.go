package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bracketforge/bracketforge/brackets"
	"github.com/bracketforge/bracketforge/models"
	"github.com/bracketforge/bracketforge/repositories"
)

// ReportOutcome tells the caller what a self-report achieved.
type ReportOutcome string

const (
	// OutcomeCompleted means the match is decided and the bracket advanced.
	OutcomeCompleted ReportOutcome = "completed"
	// OutcomeAwaitingConfirmation means the report is stored and the
	// opponent must confirm it.
	OutcomeAwaitingConfirmation ReportOutcome = "awaiting_confirmation"
	// OutcomeConflict means the two sides claimed different winners. The
	// stored claim stands untouched until an admin overrides.
	OutcomeConflict ReportOutcome = "conflict"
)

// MatchReport is the result surface of one report attempt.
type MatchReport struct {
	Outcome ReportOutcome `json:"outcome"`
	Match   *models.Match `json:"match"`
}

type MatchService interface {
	GetByID(ctx context.Context, matchID int) (*models.Match, error)
	// ReportResult runs the self-report protocol: first report against a
	// dummy completes immediately, first report against a real opponent
	// records a claim, the opponent's matching report completes, a
	// contradicting report surfaces a conflict without mutating state.
	ReportResult(ctx context.Context, matchID int, claimedWinnerEntryID int, reporterPlayerID string, score *string) (*MatchReport, error)
	// AdminOverride decides a pending match directly, discarding any
	// stored claim. It is the only way out of a conflict.
	AdminOverride(ctx context.Context, matchID int, winnerEntryID int, score *string) (*models.Match, error)
}

type matchService struct {
	tournamentRepo repositories.TournamentRepository
	entryRepo      repositories.EntryRepository
	matchRepo      repositories.MatchRepository
	matchLogRepo   repositories.MatchLogRepository
	ratingService  RatingService
	bracketService BracketService
	hub            *brackets.Hub
	logger         *slog.Logger
}

func NewMatchService(
	tournamentRepo repositories.TournamentRepository,
	entryRepo repositories.EntryRepository,
	matchRepo repositories.MatchRepository,
	matchLogRepo repositories.MatchLogRepository,
	ratingService RatingService,
	bracketService BracketService,
	hub *brackets.Hub,
	logger *slog.Logger,
) MatchService {
	return &matchService{
		tournamentRepo: tournamentRepo,
		entryRepo:      entryRepo,
		matchRepo:      matchRepo,
		matchLogRepo:   matchLogRepo,
		ratingService:  ratingService,
		bracketService: bracketService,
		hub:            hub,
		logger:         logger,
	}
}

func (s *matchService) GetByID(ctx context.Context, matchID int) (*models.Match, error) {
	match, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	return match, nil
}

func (s *matchService) ReportResult(ctx context.Context, matchID int, claimedWinnerEntryID int, reporterPlayerID string, score *string) (*MatchReport, error) {
	if err := validateScore(score); err != nil {
		return nil, err
	}

	match, tournament, err := s.loadReportableMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if !match.HasEntry(claimedWinnerEntryID) {
		return nil, ErrWinnerNotInMatch
	}

	reporterEntry, err := s.entryRepo.FindByPlayer(ctx, tournament.ID, reporterPlayerID)
	if err != nil {
		if errors.Is(err, repositories.ErrEntryNotFound) {
			return nil, ErrNotAParticipant
		}
		return nil, err
	}
	if !match.HasEntry(reporterEntry.ID) {
		return nil, ErrNotAParticipant
	}

	// A dummy cannot confirm anything, so the real side's word is final.
	opponentID := match.OpponentEntryID(reporterEntry.ID)
	if opponentID != nil {
		opponent, err := s.entryRepo.GetByID(ctx, *opponentID)
		if err != nil {
			return nil, fmt.Errorf("failed to load opponent entry %d: %w", *opponentID, err)
		}
		if opponent.IsDummy() {
			completed, err := s.completeMatch(ctx, tournament, match, claimedWinnerEntryID, score)
			if err != nil {
				return nil, err
			}
			return &MatchReport{Outcome: OutcomeCompleted, Match: completed}, nil
		}
	}

	if match.PendingWinnerEntryID == nil {
		err := s.matchRepo.SetPendingClaim(ctx, match.ID, claimedWinnerEntryID, reporterPlayerID)
		switch {
		case err == nil:
			match.PendingWinnerEntryID = &claimedWinnerEntryID
			match.PendingReportedBy = &reporterPlayerID
			return &MatchReport{Outcome: OutcomeAwaitingConfirmation, Match: match}, nil
		case errors.Is(err, repositories.ErrMatchClaimOccupied):
			// Lost the race to another reporter; reload and treat this
			// report as the second one. The rival claim may already have
			// been confirmed or overridden by the time the reload lands.
			match, err = s.matchRepo.GetByID(ctx, match.ID)
			if err != nil {
				return nil, err
			}
			if match.Status != models.MatchStatusPending || match.PendingWinnerEntryID == nil {
				return nil, ErrMatchAlreadyCompleted
			}
		case errors.Is(err, repositories.ErrMatchNotPending):
			return nil, ErrMatchAlreadyCompleted
		default:
			return nil, err
		}
	}

	firstEntry, err := s.entryRepo.FindByPlayer(ctx, tournament.ID, *match.PendingReportedBy)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve first reporter %q: %w", *match.PendingReportedBy, err)
	}
	if firstEntry.ID == reporterEntry.ID {
		return nil, ErrAlreadyReported
	}

	if *match.PendingWinnerEntryID != claimedWinnerEntryID {
		// Distinct claims from the two sides. Nothing is mutated; an
		// admin has to settle it.
		s.logger.Warn("conflicting match reports",
			slog.Int("match_id", match.ID),
			slog.Int("claimed_by_first", *match.PendingWinnerEntryID),
			slog.Int("claimed_by_second", claimedWinnerEntryID))
		return &MatchReport{Outcome: OutcomeConflict, Match: match}, nil
	}

	// The opponent confirmed the stored claim; the confirming report's
	// score is the one recorded.
	completed, err := s.completeMatch(ctx, tournament, match, claimedWinnerEntryID, score)
	if err != nil {
		return nil, err
	}
	return &MatchReport{Outcome: OutcomeCompleted, Match: completed}, nil
}

func (s *matchService) AdminOverride(ctx context.Context, matchID int, winnerEntryID int, score *string) (*models.Match, error) {
	if err := validateScore(score); err != nil {
		return nil, err
	}

	match, tournament, err := s.loadReportableMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if !match.HasEntry(winnerEntryID) {
		return nil, ErrWinnerNotInMatch
	}

	completed, err := s.completeMatch(ctx, tournament, match, winnerEntryID, score)
	if err != nil {
		return nil, err
	}
	s.logger.Info("match decided by admin override",
		slog.Int("match_id", matchID), slog.Int("winner_entry_id", winnerEntryID))
	return completed, nil
}

// loadReportableMatch fetches the match and its tournament and verifies the
// match can still accept a result.
func (s *matchService) loadReportableMatch(ctx context.Context, matchID int) (*models.Match, *models.Tournament, error) {
	match, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, nil, ErrMatchNotFound
		}
		return nil, nil, err
	}
	if match.Status != models.MatchStatusPending {
		return nil, nil, ErrMatchAlreadyCompleted
	}

	tournament, err := s.tournamentRepo.GetByID(ctx, match.TournamentID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load tournament %d for match %d: %w", match.TournamentID, matchID, err)
	}
	if tournament.Status != models.StatusInProgress {
		return nil, nil, ErrTournamentNotInProgress
	}
	return match, tournament, nil
}

// completeMatch flips the match to completed and runs the downstream side
// effects. The completion itself is the transaction boundary: once the
// compare-and-swap lands, rating updates, history logging and advancement
// may individually fail and are only logged, never rolled back.
func (s *matchService) completeMatch(ctx context.Context, tournament *models.Tournament, match *models.Match, winnerEntryID int, score *string) (*models.Match, error) {
	if err := s.matchRepo.Complete(ctx, match.ID, &winnerEntryID, score); err != nil {
		if errors.Is(err, repositories.ErrMatchNotPending) {
			return nil, ErrMatchAlreadyCompleted
		}
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}

	completed, err := s.matchRepo.GetByID(ctx, match.ID)
	if err != nil {
		return nil, err
	}

	s.applyRatings(ctx, tournament, completed, winnerEntryID)

	s.hub.BroadcastToRoom(tournament.Code, brackets.Event{
		Type:    brackets.EventMatchUpdated,
		Code:    tournament.Code,
		Payload: completed,
	})

	if err := s.bracketService.Advance(ctx, tournament.ID); err != nil {
		s.logger.Error("bracket advancement failed after match completion",
			slog.Int("tournament_id", tournament.ID),
			slog.Int("match_id", match.ID),
			slog.Any("error", err))
	}
	return completed, nil
}

// applyRatings updates Elo and the global match history for decided 1v1
// matches between two real players. Byes, dummy opponents and team formats
// leave ratings untouched.
func (s *matchService) applyRatings(ctx context.Context, tournament *models.Tournament, match *models.Match, winnerEntryID int) {
	if tournament.Format != models.Format1v1 {
		return
	}
	loserEntryID := match.OpponentEntryID(winnerEntryID)
	if loserEntryID == nil {
		return
	}

	winner, err := s.entryRepo.GetByID(ctx, winnerEntryID)
	if err != nil {
		s.logger.Error("rating update skipped, winner entry unavailable",
			slog.Int("match_id", match.ID), slog.Any("error", err))
		return
	}
	loser, err := s.entryRepo.GetByID(ctx, *loserEntryID)
	if err != nil {
		s.logger.Error("rating update skipped, loser entry unavailable",
			slog.Int("match_id", match.ID), slog.Any("error", err))
		return
	}
	if winner.IsDummy() || loser.IsDummy() {
		return
	}

	mode := modeForFormat(tournament.Format)
	newWinner, newLoser, err := s.ratingService.ApplyResult(ctx, mode, winner.Player1ID, loser.Player1ID)
	if err != nil {
		s.logger.Error("rating update failed",
			slog.Int("match_id", match.ID), slog.Any("error", err))
		return
	}

	tournamentID := tournament.ID
	logEntry := &models.MatchLog{
		GuildID:        tournament.GuildID,
		TournamentID:   &tournamentID,
		Mode:           mode,
		WinnerPlayerID: winner.Player1ID,
		LoserPlayerID:  loser.Player1ID,
		Score:          match.Score,
	}
	if err := s.matchLogRepo.Create(ctx, logEntry); err != nil {
		s.logger.Error("match history write failed",
			slog.Int("match_id", match.ID), slog.Any("error", err))
	}

	s.logger.Info("ratings applied",
		slog.Int("match_id", match.ID),
		slog.String("winner", winner.Player1ID),
		slog.Int("winner_rating", newWinner),
		slog.String("loser", loser.Player1ID),
		slog.Int("loser_rating", newLoser))
}

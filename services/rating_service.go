package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/bracketforge/bracketforge/models"
	"github.com/bracketforge/bracketforge/ratings"
	"github.com/bracketforge/bracketforge/repositories"
)

// SkillSource is the rating-lookup capability consumed by seeding.
// Implementations must never mutate stored ratings.
type SkillSource interface {
	SkillRating(ctx context.Context, entry *models.Entry, mode models.RatingMode) (int, error)
	IsSmurfFlagged(ctx context.Context, entry *models.Entry) (bool, error)
}

type RatingService interface {
	SkillSource
	// ApplyResult computes and persists the Elo deltas for one decided
	// 1v1-style result between two real players.
	ApplyResult(ctx context.Context, mode models.RatingMode, winnerPlayerID, loserPlayerID string) (winnerRating, loserRating int, err error)
	GetPlayerRatings(ctx context.Context, playerID string) ([]*models.PlayerRating, error)
}

type ratingService struct {
	ratingRepo repositories.RatingRepository
}

func NewRatingService(ratingRepo repositories.RatingRepository) RatingService {
	return &ratingService{ratingRepo: ratingRepo}
}

// currentRating resolves a player's rating record for a mode, seeding a
// fresh one when the player has never played the mode: from the cross-mode
// global rating (minus handicap, floored) when available, otherwise the
// default. The seeded record is not persisted until a result is applied.
func (s *ratingService) currentRating(ctx context.Context, playerID string, mode models.RatingMode) (*models.PlayerRating, error) {
	pr, err := s.ratingRepo.Get(ctx, playerID, mode)
	if err == nil {
		return pr, nil
	}
	if !errors.Is(err, repositories.ErrRatingNotFound) {
		return nil, err
	}

	seed := ratings.DefaultRating
	player, err := s.ratingRepo.GetPlayer(ctx, playerID)
	if err == nil && player.GlobalRating != nil {
		seed = ratings.SeedFromGlobal(*player.GlobalRating)
	} else if err != nil && !errors.Is(err, repositories.ErrPlayerNotFound) {
		return nil, err
	}

	return &models.PlayerRating{
		PlayerID:         playerID,
		Mode:             mode,
		Rating:           seed,
		ProvisionalGames: 0,
	}, nil
}

func (s *ratingService) ApplyResult(ctx context.Context, mode models.RatingMode, winnerPlayerID, loserPlayerID string) (int, int, error) {
	winner, err := s.currentRating(ctx, winnerPlayerID, mode)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to load winner rating (player %s, mode %s): %w", winnerPlayerID, mode, err)
	}
	loser, err := s.currentRating(ctx, loserPlayerID, mode)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to load loser rating (player %s, mode %s): %w", loserPlayerID, mode, err)
	}

	newWinner := ratings.NewRating(winner.Rating, loser.Rating, winner.ProvisionalGames, 1)
	newLoser := ratings.NewRating(loser.Rating, winner.Rating, loser.ProvisionalGames, 0)

	winner.Rating = newWinner
	winner.ProvisionalGames = ratings.BumpProvisional(winner.ProvisionalGames)
	loser.Rating = newLoser
	loser.ProvisionalGames = ratings.BumpProvisional(loser.ProvisionalGames)

	if err := s.ratingRepo.Upsert(ctx, winner); err != nil {
		return 0, 0, fmt.Errorf("failed to persist winner rating (player %s): %w", winnerPlayerID, err)
	}
	if err := s.ratingRepo.Upsert(ctx, loser); err != nil {
		return 0, 0, fmt.Errorf("failed to persist loser rating (player %s): %w", loserPlayerID, err)
	}
	return newWinner, newLoser, nil
}

// SkillRating returns the rating used for seeding: a dummy is pinned to the
// neutral default so it can never distort real seeding; a team entry is the
// mean of its members' ratings.
func (s *ratingService) SkillRating(ctx context.Context, entry *models.Entry, mode models.RatingMode) (int, error) {
	if entry.IsDummy() {
		return ratings.DefaultRating, nil
	}
	players := entry.Players()
	if len(players) == 0 {
		return ratings.DefaultRating, nil
	}
	sum := 0
	for _, playerID := range players {
		pr, err := s.currentRating(ctx, playerID, mode)
		if err != nil {
			return 0, err
		}
		sum += pr.Rating
	}
	return sum / len(players), nil
}

// IsSmurfFlagged reports whether any player behind the entry is a suspected
// smurf. Dummies are never flagged.
func (s *ratingService) IsSmurfFlagged(ctx context.Context, entry *models.Entry) (bool, error) {
	if entry.IsDummy() {
		return false, nil
	}
	for _, playerID := range entry.Players() {
		player, err := s.ratingRepo.GetPlayer(ctx, playerID)
		if errors.Is(err, repositories.ErrPlayerNotFound) {
			continue
		}
		if err != nil {
			return false, err
		}
		if player.SmurfFlagged {
			return true, nil
		}
	}
	return false, nil
}

func (s *ratingService) GetPlayerRatings(ctx context.Context, playerID string) ([]*models.PlayerRating, error) {
	ratingsList, err := s.ratingRepo.ListByPlayer(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list ratings for player %s: %w", playerID, err)
	}
	return ratingsList, nil
}

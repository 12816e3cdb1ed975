package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/bracketforge/bracketforge/models"
)

var (
	ErrPlayerNotFound = errors.New("player not found")
	ErrRatingNotFound = errors.New("rating not found")
)

type RatingRepository interface {
	GetPlayer(ctx context.Context, discordID string) (*models.Player, error)
	UpsertPlayer(ctx context.Context, player *models.Player) error
	Get(ctx context.Context, playerID string, mode models.RatingMode) (*models.PlayerRating, error)
	ListByPlayer(ctx context.Context, playerID string) ([]*models.PlayerRating, error)
	// Upsert writes the rating and provisional counter for one player/mode.
	Upsert(ctx context.Context, rating *models.PlayerRating) error
}

type postgresRatingRepository struct {
	db *sql.DB
}

func NewPostgresRatingRepository(db *sql.DB) RatingRepository {
	return &postgresRatingRepository{db: db}
}

func (r *postgresRatingRepository) GetPlayer(ctx context.Context, discordID string) (*models.Player, error) {
	query := `
		SELECT discord_id, display_name, global_rating, smurf_flagged, created_at
		FROM players
		WHERE discord_id = $1`

	p := &models.Player{}
	err := r.db.QueryRowContext(ctx, query, discordID).Scan(
		&p.DiscordID, &p.DisplayName, &p.GlobalRating, &p.SmurfFlagged, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to scan player %s: %w", discordID, err)
	}
	return p, nil
}

func (r *postgresRatingRepository) UpsertPlayer(ctx context.Context, player *models.Player) error {
	query := `
		INSERT INTO players (discord_id, display_name, global_rating, smurf_flagged)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (discord_id) DO UPDATE
		SET display_name = EXCLUDED.display_name,
		    global_rating = EXCLUDED.global_rating,
		    smurf_flagged = EXCLUDED.smurf_flagged`

	if _, err := r.db.ExecContext(ctx, query,
		player.DiscordID, player.DisplayName, player.GlobalRating, player.SmurfFlagged,
	); err != nil {
		return fmt.Errorf("failed to upsert player %s: %w", player.DiscordID, err)
	}
	return nil
}

func (r *postgresRatingRepository) Get(ctx context.Context, playerID string, mode models.RatingMode) (*models.PlayerRating, error) {
	query := `
		SELECT player_id, mode, rating, provisional_games, updated_at
		FROM player_ratings
		WHERE player_id = $1 AND mode = $2`

	pr := &models.PlayerRating{}
	err := r.db.QueryRowContext(ctx, query, playerID, mode).Scan(
		&pr.PlayerID, &pr.Mode, &pr.Rating, &pr.ProvisionalGames, &pr.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRatingNotFound
		}
		return nil, fmt.Errorf("failed to scan rating for player %s mode %s: %w", playerID, mode, err)
	}
	return pr, nil
}

func (r *postgresRatingRepository) ListByPlayer(ctx context.Context, playerID string) ([]*models.PlayerRating, error) {
	query := `
		SELECT player_id, mode, rating, provisional_games, updated_at
		FROM player_ratings
		WHERE player_id = $1
		ORDER BY mode ASC`

	rows, err := r.db.QueryContext(ctx, query, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list ratings for player %s: %w", playerID, err)
	}
	defer rows.Close()

	ratings := make([]*models.PlayerRating, 0)
	for rows.Next() {
		var pr models.PlayerRating
		if err := rows.Scan(&pr.PlayerID, &pr.Mode, &pr.Rating, &pr.ProvisionalGames, &pr.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan rating row: %w", err)
		}
		ratings = append(ratings, &pr)
	}
	return ratings, rows.Err()
}

func (r *postgresRatingRepository) Upsert(ctx context.Context, rating *models.PlayerRating) error {
	query := `
		INSERT INTO player_ratings (player_id, mode, rating, provisional_games, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (player_id, mode) DO UPDATE
		SET rating = EXCLUDED.rating,
		    provisional_games = EXCLUDED.provisional_games,
		    updated_at = NOW()`

	if _, err := r.db.ExecContext(ctx, query,
		rating.PlayerID, rating.Mode, rating.Rating, rating.ProvisionalGames,
	); err != nil {
		return fmt.Errorf("failed to upsert rating for player %s mode %s: %w", rating.PlayerID, rating.Mode, err)
	}
	return nil
}

package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/bracketforge/bracketforge/models"
	"github.com/google/uuid"
)

type MatchLogRepository interface {
	// Create appends a completed rated match to the global history.
	Create(ctx context.Context, entry *models.MatchLog) error
	ListByPlayer(ctx context.Context, playerID string, limit int) ([]*models.MatchLog, error)
}

type postgresMatchLogRepository struct {
	db *sql.DB
}

func NewPostgresMatchLogRepository(db *sql.DB) MatchLogRepository {
	return &postgresMatchLogRepository{db: db}
}

func (r *postgresMatchLogRepository) Create(ctx context.Context, entry *models.MatchLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	query := `
		INSERT INTO match_log (id, guild_id, tournament_id, mode, winner_player_id, loser_player_id, score)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING played_at`

	err := r.db.QueryRowContext(ctx, query,
		entry.ID, entry.GuildID, entry.TournamentID, entry.Mode,
		entry.WinnerPlayerID, entry.LoserPlayerID, entry.Score,
	).Scan(&entry.PlayedAt)
	if err != nil {
		return fmt.Errorf("failed to insert match log %s: %w", entry.ID, err)
	}
	return nil
}

func (r *postgresMatchLogRepository) ListByPlayer(ctx context.Context, playerID string, limit int) ([]*models.MatchLog, error) {
	query := `
		SELECT id, guild_id, tournament_id, mode, winner_player_id, loser_player_id, score, played_at
		FROM match_log
		WHERE winner_player_id = $1 OR loser_player_id = $1
		ORDER BY played_at DESC
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, playerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list match log for player %s: %w", playerID, err)
	}
	defer rows.Close()

	logs := make([]*models.MatchLog, 0)
	for rows.Next() {
		var l models.MatchLog
		if err := rows.Scan(&l.ID, &l.GuildID, &l.TournamentID, &l.Mode, &l.WinnerPlayerID, &l.LoserPlayerID, &l.Score, &l.PlayedAt); err != nil {
			return nil, fmt.Errorf("failed to scan match log row: %w", err)
		}
		logs = append(logs, &l)
	}
	return logs, rows.Err()
}

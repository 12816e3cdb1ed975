package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/bracketforge/bracketforge/models"
	"github.com/lib/pq"
)

var (
	ErrMatchNotFound      = errors.New("match not found")
	ErrMatchNotPending    = errors.New("match is not pending")
	ErrMatchClaimOccupied = errors.New("match already has a pending claim")
	ErrMatchEntryInvalid  = errors.New("match references an invalid entry")
)

type MatchRepository interface {
	Create(ctx context.Context, exec SQLExecutor, match *models.Match) error
	GetByID(ctx context.Context, id int) (*models.Match, error)
	// ListByTournament returns all matches ordered by round then position.
	ListByTournament(ctx context.Context, tournamentID int) ([]*models.Match, error)
	HasRound(ctx context.Context, tournamentID, round int) (bool, error)
	// SetPendingClaim records the first self-report on a pending match.
	// It fails with ErrMatchClaimOccupied when a claim is already stored
	// and with ErrMatchNotPending when the match has completed, keeping
	// the read-modify-write race on the claim fields closed.
	SetPendingClaim(ctx context.Context, id int, winnerEntryID int, reportedBy string) error
	// Complete atomically sets the winner, score and completed status,
	// clearing any pending claim. The status guard makes the transition
	// a compare-and-swap: a second completion attempt observes zero
	// affected rows and gets ErrMatchNotPending.
	Complete(ctx context.Context, id int, winnerEntryID *int, score *string) error
	DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) error
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

func (r *postgresMatchRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const matchColumns = `
	id, tournament_id, round, position, entry1_id, entry2_id,
	winner_entry_id, score, status, pending_winner_entry_id, pending_reported_by, created_at`

func scanMatch(row interface{ Scan(...interface{}) error }, m *models.Match) error {
	return row.Scan(
		&m.ID, &m.TournamentID, &m.Round, &m.Position, &m.Entry1ID, &m.Entry2ID,
		&m.WinnerEntryID, &m.Score, &m.Status, &m.PendingWinnerEntryID, &m.PendingReportedBy, &m.CreatedAt,
	)
}

func (r *postgresMatchRepository) Create(ctx context.Context, exec SQLExecutor, match *models.Match) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO matches
			(tournament_id, round, position, entry1_id, entry2_id, winner_entry_id, score, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`

	err := executor.QueryRowContext(ctx, query,
		match.TournamentID, match.Round, match.Position,
		match.Entry1ID, match.Entry2ID, match.WinnerEntryID, match.Score, match.Status,
	).Scan(&match.ID, &match.CreatedAt)

	return r.handleMatchError(err)
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, id int) (*models.Match, error) {
	query := `SELECT` + matchColumns + ` FROM matches WHERE id = $1`

	m := &models.Match{}
	if err := scanMatch(r.db.QueryRowContext(ctx, query, id), m); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to scan match %d: %w", id, err)
	}
	return m, nil
}

func (r *postgresMatchRepository) ListByTournament(ctx context.Context, tournamentID int) ([]*models.Match, error) {
	query := `SELECT` + matchColumns + `
		FROM matches
		WHERE tournament_id = $1
		ORDER BY round ASC, position ASC`

	rows, err := r.db.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		var m models.Match
		if err := scanMatch(rows, &m); err != nil {
			return nil, fmt.Errorf("failed to scan match row: %w", err)
		}
		matches = append(matches, &m)
	}
	return matches, rows.Err()
}

func (r *postgresMatchRepository) HasRound(ctx context.Context, tournamentID, round int) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM matches WHERE tournament_id = $1 AND round = $2)`,
		tournamentID, round,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check round %d for tournament %d: %w", round, tournamentID, err)
	}
	return exists, nil
}

func (r *postgresMatchRepository) SetPendingClaim(ctx context.Context, id int, winnerEntryID int, reportedBy string) error {
	query := `
		UPDATE matches
		SET pending_winner_entry_id = $1, pending_reported_by = $2
		WHERE id = $3 AND status = $4 AND pending_winner_entry_id IS NULL`

	result, err := r.db.ExecContext(ctx, query, winnerEntryID, reportedBy, id, models.MatchStatusPending)
	if err != nil {
		return r.handleMatchError(err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if rowsAffected == 0 {
		// Distinguish a lost race on the claim from a completed match.
		current, getErr := r.GetByID(ctx, id)
		if getErr != nil {
			return getErr
		}
		if current.Status != models.MatchStatusPending {
			return ErrMatchNotPending
		}
		return ErrMatchClaimOccupied
	}
	return nil
}

func (r *postgresMatchRepository) Complete(ctx context.Context, id int, winnerEntryID *int, score *string) error {
	query := `
		UPDATE matches
		SET winner_entry_id = $1, score = $2, status = $3,
		    pending_winner_entry_id = NULL, pending_reported_by = NULL
		WHERE id = $4 AND status = $5`

	result, err := r.db.ExecContext(ctx, query,
		winnerEntryID, score, models.MatchStatusCompleted, id, models.MatchStatusPending,
	)
	if err != nil {
		return r.handleMatchError(err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if rowsAffected == 0 {
		if _, getErr := r.GetByID(ctx, id); getErr != nil {
			return getErr
		}
		return ErrMatchNotPending
	}
	return nil
}

func (r *postgresMatchRepository) DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) error {
	executor := r.getExecutor(exec)
	if _, err := executor.ExecContext(ctx, `DELETE FROM matches WHERE tournament_id = $1`, tournamentID); err != nil {
		return fmt.Errorf("failed to delete matches for tournament %d: %w", tournamentID, err)
	}
	return nil
}

func (r *postgresMatchRepository) handleMatchError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		if pqErr.Code == "23503" {
			switch pqErr.Constraint {
			case "matches_entry1_id_fkey", "matches_entry2_id_fkey", "matches_winner_entry_id_fkey":
				return ErrMatchEntryInvalid
			}
		}
	}
	return err
}

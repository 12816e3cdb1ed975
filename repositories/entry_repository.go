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
	ErrEntryNotFound          = errors.New("entry not found")
	ErrEntryTournamentInvalid = errors.New("entry references an invalid tournament")
	ErrEntryPlayerConflict    = errors.New("player is already registered for this tournament")
)

type EntryRepository interface {
	Create(ctx context.Context, exec SQLExecutor, entry *models.Entry) error
	GetByID(ctx context.Context, id int) (*models.Entry, error)
	ListByTournament(ctx context.Context, tournamentID int) ([]*models.Entry, error)
	CountByTournament(ctx context.Context, tournamentID int) (int, error)
	// FindByPlayer locates the entry a player belongs to within a
	// tournament, checking both team slots.
	FindByPlayer(ctx context.Context, tournamentID int, playerID string) (*models.Entry, error)
	DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) error
}

type postgresEntryRepository struct {
	db *sql.DB
}

func NewPostgresEntryRepository(db *sql.DB) EntryRepository {
	return &postgresEntryRepository{db: db}
}

func (r *postgresEntryRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresEntryRepository) Create(ctx context.Context, exec SQLExecutor, entry *models.Entry) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO entries (tournament_id, kind, player1_id, player2_id, display_name)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	err := executor.QueryRowContext(ctx, query,
		entry.TournamentID, entry.Kind, entry.Player1ID, entry.Player2ID, entry.DisplayName,
	).Scan(&entry.ID, &entry.CreatedAt)

	return r.handleEntryError(err)
}

func (r *postgresEntryRepository) GetByID(ctx context.Context, id int) (*models.Entry, error) {
	query := `
		SELECT id, tournament_id, kind, player1_id, player2_id, display_name, created_at
		FROM entries
		WHERE id = $1`

	e := &models.Entry{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&e.ID, &e.TournamentID, &e.Kind, &e.Player1ID, &e.Player2ID, &e.DisplayName, &e.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEntryNotFound
		}
		return nil, fmt.Errorf("failed to scan entry %d: %w", id, err)
	}
	return e, nil
}

func (r *postgresEntryRepository) ListByTournament(ctx context.Context, tournamentID int) ([]*models.Entry, error) {
	query := `
		SELECT id, tournament_id, kind, player1_id, player2_id, display_name, created_at
		FROM entries
		WHERE tournament_id = $1
		ORDER BY id ASC`

	rows, err := r.db.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	entries := make([]*models.Entry, 0)
	for rows.Next() {
		var e models.Entry
		if err := rows.Scan(&e.ID, &e.TournamentID, &e.Kind, &e.Player1ID, &e.Player2ID, &e.DisplayName, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan entry row: %w", err)
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

func (r *postgresEntryRepository) CountByTournament(ctx context.Context, tournamentID int) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM entries WHERE tournament_id = $1`, tournamentID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count entries for tournament %d: %w", tournamentID, err)
	}
	return count, nil
}

func (r *postgresEntryRepository) FindByPlayer(ctx context.Context, tournamentID int, playerID string) (*models.Entry, error) {
	query := `
		SELECT id, tournament_id, kind, player1_id, player2_id, display_name, created_at
		FROM entries
		WHERE tournament_id = $1 AND (player1_id = $2 OR player2_id = $2)`

	e := &models.Entry{}
	err := r.db.QueryRowContext(ctx, query, tournamentID, playerID).Scan(
		&e.ID, &e.TournamentID, &e.Kind, &e.Player1ID, &e.Player2ID, &e.DisplayName, &e.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEntryNotFound
		}
		return nil, fmt.Errorf("failed to find entry for player %s in tournament %d: %w", playerID, tournamentID, err)
	}
	return e, nil
}

func (r *postgresEntryRepository) DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) error {
	executor := r.getExecutor(exec)
	if _, err := executor.ExecContext(ctx, `DELETE FROM entries WHERE tournament_id = $1`, tournamentID); err != nil {
		return fmt.Errorf("failed to delete entries for tournament %d: %w", tournamentID, err)
	}
	return nil
}

func (r *postgresEntryRepository) handleEntryError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Code {
		case "23505":
			// entries_tournament_player1_key / entries_tournament_player2_key
			return ErrEntryPlayerConflict
		case "23503":
			if pqErr.Constraint == "entries_tournament_id_fkey" {
				return ErrEntryTournamentInvalid
			}
		}
	}
	return err
}

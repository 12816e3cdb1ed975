package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/bracketforge/bracketforge/models"
	"github.com/lib/pq"
)

var (
	ErrTournamentNotFound     = errors.New("tournament not found")
	ErrTournamentCodeConflict = errors.New("tournament code already in use")
)

type TournamentRepository interface {
	Create(ctx context.Context, t *models.Tournament) error
	GetByID(ctx context.Context, id int) (*models.Tournament, error)
	GetByCode(ctx context.Context, code string) (*models.Tournament, error)
	// GetActiveByGuild returns the guild's single active tournament, or
	// ErrTournamentNotFound when the guild has none.
	GetActiveByGuild(ctx context.Context, guildID string) (*models.Tournament, error)
	ListByGuild(ctx context.Context, guildID string, limit, offset int) ([]models.Tournament, error)
	ListCompletedBefore(ctx context.Context, cutoff time.Time) ([]*models.Tournament, error)
	UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.TournamentStatus) error
	// SetResult records the trophy summary and flips the status to completed.
	SetResult(ctx context.Context, exec SQLExecutor, id int, winnerEntryID, runnerUpEntryID *int, completedAt time.Time) error
	SetArchived(ctx context.Context, exec SQLExecutor, id int, snapshotKey *string, archivedAt time.Time) error
}

type postgresTournamentRepository struct {
	db *sql.DB
}

func NewPostgresTournamentRepository(db *sql.DB) TournamentRepository {
	return &postgresTournamentRepository{db: db}
}

func (r *postgresTournamentRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const tournamentColumns = `
	id, guild_id, code, format, capacity, status,
	winner_entry_id, runner_up_entry_id, completed_at,
	snapshot_key, archived_at, created_at`

func scanTournament(row interface{ Scan(...interface{}) error }, t *models.Tournament) error {
	return row.Scan(
		&t.ID, &t.GuildID, &t.Code, &t.Format, &t.Capacity, &t.Status,
		&t.WinnerEntryID, &t.RunnerUpEntryID, &t.CompletedAt,
		&t.SnapshotKey, &t.ArchivedAt, &t.CreatedAt,
	)
}

func (r *postgresTournamentRepository) Create(ctx context.Context, t *models.Tournament) error {
	query := `
		INSERT INTO tournaments (guild_id, code, format, capacity, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		t.GuildID, t.Code, t.Format, t.Capacity, t.Status,
	).Scan(&t.ID, &t.CreatedAt)

	return r.handleTournamentError(err)
}

func (r *postgresTournamentRepository) GetByID(ctx context.Context, id int) (*models.Tournament, error) {
	query := `SELECT` + tournamentColumns + ` FROM tournaments WHERE id = $1`

	t := &models.Tournament{}
	if err := scanTournament(r.db.QueryRowContext(ctx, query, id), t); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to scan tournament %d: %w", id, err)
	}
	return t, nil
}

func (r *postgresTournamentRepository) GetByCode(ctx context.Context, code string) (*models.Tournament, error) {
	query := `SELECT` + tournamentColumns + ` FROM tournaments WHERE code = $1`

	t := &models.Tournament{}
	if err := scanTournament(r.db.QueryRowContext(ctx, query, code), t); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to scan tournament %q: %w", code, err)
	}
	return t, nil
}

func (r *postgresTournamentRepository) GetActiveByGuild(ctx context.Context, guildID string) (*models.Tournament, error) {
	query := `SELECT` + tournamentColumns + `
		FROM tournaments
		WHERE guild_id = $1 AND status = ANY($2)
		ORDER BY created_at DESC
		LIMIT 1`

	statuses := make([]string, len(models.ActiveStatuses))
	for i, s := range models.ActiveStatuses {
		statuses[i] = string(s)
	}

	t := &models.Tournament{}
	if err := scanTournament(r.db.QueryRowContext(ctx, query, guildID, pq.Array(statuses)), t); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to scan active tournament for guild %s: %w", guildID, err)
	}
	return t, nil
}

func (r *postgresTournamentRepository) ListByGuild(ctx context.Context, guildID string, limit, offset int) ([]models.Tournament, error) {
	query := `SELECT` + tournamentColumns + `
		FROM tournaments
		WHERE guild_id = $1
		ORDER BY created_at DESC`

	args := []interface{}{guildID}
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", len(args)+1)
		args = append(args, limit)
	}
	if offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", len(args)+1)
		args = append(args, offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tournaments for guild %s: %w", guildID, err)
	}
	defer rows.Close()

	tournaments := make([]models.Tournament, 0)
	for rows.Next() {
		var t models.Tournament
		if err := scanTournament(rows, &t); err != nil {
			return nil, fmt.Errorf("failed to scan tournament row: %w", err)
		}
		tournaments = append(tournaments, t)
	}
	return tournaments, rows.Err()
}

func (r *postgresTournamentRepository) ListCompletedBefore(ctx context.Context, cutoff time.Time) ([]*models.Tournament, error) {
	query := `SELECT` + tournamentColumns + `
		FROM tournaments
		WHERE status = $1 AND completed_at <= $2
		ORDER BY completed_at ASC`

	rows, err := r.db.QueryContext(ctx, query, models.StatusCompleted, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list completed tournaments before %v: %w", cutoff, err)
	}
	defer rows.Close()

	var tournaments []*models.Tournament
	for rows.Next() {
		var t models.Tournament
		if err := scanTournament(rows, &t); err != nil {
			return nil, fmt.Errorf("failed to scan tournament row: %w", err)
		}
		tournaments = append(tournaments, &t)
	}
	return tournaments, rows.Err()
}

func (r *postgresTournamentRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.TournamentStatus) error {
	executor := r.getExecutor(exec)
	query := `UPDATE tournaments SET status = $1 WHERE id = $2`
	result, err := executor.ExecContext(ctx, query, status, id)
	if err != nil {
		return r.handleTournamentError(err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) SetResult(ctx context.Context, exec SQLExecutor, id int, winnerEntryID, runnerUpEntryID *int, completedAt time.Time) error {
	executor := r.getExecutor(exec)
	query := `
		UPDATE tournaments
		SET status = $1, winner_entry_id = $2, runner_up_entry_id = $3, completed_at = $4
		WHERE id = $5 AND status = $6`
	result, err := executor.ExecContext(ctx, query,
		models.StatusCompleted, winnerEntryID, runnerUpEntryID, completedAt,
		id, models.StatusInProgress,
	)
	if err != nil {
		return r.handleTournamentError(err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) SetArchived(ctx context.Context, exec SQLExecutor, id int, snapshotKey *string, archivedAt time.Time) error {
	executor := r.getExecutor(exec)
	query := `
		UPDATE tournaments
		SET status = $1, snapshot_key = $2, archived_at = $3
		WHERE id = $4`
	result, err := executor.ExecContext(ctx, query, models.StatusArchived, snapshotKey, archivedAt, id)
	if err != nil {
		return r.handleTournamentError(err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) handleTournamentError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		if pqErr.Code == "23505" && pqErr.Constraint == "tournaments_code_key" {
			return ErrTournamentCodeConflict
		}
	}
	return err
}

package services

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/bracketforge/bracketforge/models"
)

// codeAlphabet omits ambiguous characters (0/O, 1/I/L) so codes survive
// being read aloud in voice chat.
const (
	codeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"
	codeLength   = 8
)

func generateCode() (string, error) {
	buf := make([]byte, codeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes for code: %w", err)
	}
	var sb strings.Builder
	for _, b := range buf {
		sb.WriteByte(codeAlphabet[int(b)%len(codeAlphabet)])
	}
	return sb.String(), nil
}

var scorePattern = regexp.MustCompile(`^(\d+)\s*-\s*(\d+)$`)

// validateScore rejects drawn score lines before they reach the resolution
// protocol. Free-form scores that don't parse as "N-M" pass through
// untouched.
func validateScore(score *string) error {
	if score == nil {
		return nil
	}
	m := scorePattern.FindStringSubmatch(strings.TrimSpace(*score))
	if m == nil {
		return nil
	}
	left, _ := strconv.Atoi(m[1])
	right, _ := strconv.Atoi(m[2])
	if left == right {
		return ErrDrawNotAllowed
	}
	return nil
}

// modeForFormat maps a tournament format onto the rating mode its matches
// are recorded under.
func modeForFormat(format models.TournamentFormat) models.RatingMode {
	if format == models.Format2v2 {
		return models.Mode2v2
	}
	return models.Mode1v1
}

// isValidStatusTransition guards explicit lifecycle moves. Completion is
// written by the advancer through the repository's status-guarded update,
// so it does not appear here.
func isValidStatusTransition(current, next models.TournamentStatus) bool {
	if current == next {
		return true
	}
	allowed := map[models.TournamentStatus][]models.TournamentStatus{
		models.StatusDraft:      {models.StatusRegOpen, models.StatusCanceled},
		models.StatusRegOpen:    {models.StatusRegClosed, models.StatusCanceled},
		models.StatusRegClosed:  {models.StatusInProgress, models.StatusCanceled},
		models.StatusInProgress: {models.StatusCompleted, models.StatusCanceled},
		models.StatusCompleted:  {models.StatusArchived},
		models.StatusCanceled:   {models.StatusArchived},
		models.StatusArchived:   {},
	}
	for _, s := range allowed[current] {
		if next == s {
			return true
		}
	}
	return false
}

// runInTx wraps fn in a transaction, rolling back on error or panic. With no
// database handle fn runs directly, outside any transaction.
func runInTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	if db == nil {
		return fn(nil)
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback also failed: %v)", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

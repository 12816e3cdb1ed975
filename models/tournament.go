package models

import "time"

// TournamentStatus mirrors the tournament_status ENUM in the database.
type TournamentStatus string

const (
	StatusDraft      TournamentStatus = "draft"
	StatusRegOpen    TournamentStatus = "reg_open"
	StatusRegClosed  TournamentStatus = "reg_closed"
	StatusInProgress TournamentStatus = "in_progress"
	StatusCompleted  TournamentStatus = "completed"
	StatusCanceled   TournamentStatus = "canceled"
	StatusArchived   TournamentStatus = "archived"
)

// ActiveStatuses are the statuses that count against the
// one-active-tournament-per-guild constraint.
var ActiveStatuses = []TournamentStatus{
	StatusDraft,
	StatusRegOpen,
	StatusRegClosed,
	StatusInProgress,
}

// TournamentFormat is the declared game mode of a tournament.
type TournamentFormat string

const (
	Format1v1 TournamentFormat = "1v1"
	Format2v2 TournamentFormat = "2v2"
)

// AllowedCapacities are the declared bracket sizes a tournament may use.
// 4 is admitted for small guilds, the rest follow the classic 8..64 ladder.
var AllowedCapacities = []int{4, 8, 16, 32, 64}

func IsAllowedCapacity(c int) bool {
	for _, v := range AllowedCapacities {
		if v == c {
			return true
		}
	}
	return false
}

type Tournament struct {
	ID       int              `json:"id"`
	GuildID  string           `json:"guild_id"`
	Code     string           `json:"code"`
	Format   TournamentFormat `json:"format"`
	Capacity int              `json:"capacity"`
	Status   TournamentStatus `json:"status"`

	// Trophy summary, survives archival.
	WinnerEntryID   *int       `json:"winner_entry_id,omitempty"`
	RunnerUpEntryID *int       `json:"runner_up_entry_id,omitempty"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`

	SnapshotKey *string    `json:"snapshot_key,omitempty"`
	ArchivedAt  *time.Time `json:"archived_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// IsActive reports whether the tournament holds its guild's active slot.
func (t *Tournament) IsActive() bool {
	for _, s := range ActiveStatuses {
		if t.Status == s {
			return true
		}
	}
	return false
}

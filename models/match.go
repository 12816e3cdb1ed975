package models

import "time"

type MatchStatus string

const (
	MatchStatusPending   MatchStatus = "pending"
	MatchStatusCompleted MatchStatus = "completed"
)

// ByeScore is the score marker written on matches resolved automatically
// because one side had no opponent.
const ByeScore = "bye"

// Match is a single bracket node. Entry2ID may be empty (a bye slot).
// PendingWinnerEntryID and PendingReportedBy carry the self-report protocol's
// unconfirmed claim while the match is still pending.
type Match struct {
	ID            int         `json:"id"`
	TournamentID  int         `json:"tournament_id"`
	Round         int         `json:"round"`
	Position      int         `json:"position"`
	Entry1ID      *int        `json:"entry1_id,omitempty"`
	Entry2ID      *int        `json:"entry2_id,omitempty"`
	WinnerEntryID *int        `json:"winner_entry_id,omitempty"`
	Score         *string     `json:"score,omitempty"`
	Status        MatchStatus `json:"status"`

	PendingWinnerEntryID *int    `json:"pending_winner_entry_id,omitempty"`
	PendingReportedBy    *string `json:"pending_reported_by,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// HasEntry reports whether the given entry occupies one of the match slots.
func (m *Match) HasEntry(entryID int) bool {
	return (m.Entry1ID != nil && *m.Entry1ID == entryID) ||
		(m.Entry2ID != nil && *m.Entry2ID == entryID)
}

// OpponentEntryID returns the other slot's entry for the given entry,
// or nil when the slot is a bye.
func (m *Match) OpponentEntryID(entryID int) *int {
	if m.Entry1ID != nil && *m.Entry1ID == entryID {
		return m.Entry2ID
	}
	if m.Entry2ID != nil && *m.Entry2ID == entryID {
		return m.Entry1ID
	}
	return nil
}

func (m *Match) IsBye() bool {
	return m.Entry1ID == nil || m.Entry2ID == nil
}

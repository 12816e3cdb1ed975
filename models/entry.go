package models

import (
	"fmt"
	"time"
)

// EntryKind tags the identifier space of an entry. Real players and teams
// come from Discord; dummies are synthetic fillers used to pad brackets.
type EntryKind string

const (
	EntryKindPlayer EntryKind = "player"
	EntryKindTeam   EntryKind = "team"
	EntryKindDummy  EntryKind = "dummy"
)

// Entry is a registered participant unit within one tournament: a single
// player for 1v1, a pair of players for 2v2, or a synthetic dummy.
type Entry struct {
	ID           int       `json:"id"`
	TournamentID int       `json:"tournament_id"`
	Kind         EntryKind `json:"kind"`
	Player1ID    string    `json:"player1_id"`
	Player2ID    *string   `json:"player2_id,omitempty"`
	DisplayName  *string   `json:"display_name,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

func (e *Entry) IsDummy() bool {
	return e.Kind == EntryKindDummy
}

// Players returns the real player identifiers behind this entry.
// Dummies have none.
func (e *Entry) Players() []string {
	if e.IsDummy() {
		return nil
	}
	players := []string{e.Player1ID}
	if e.Player2ID != nil && *e.Player2ID != "" {
		players = append(players, *e.Player2ID)
	}
	return players
}

// HasPlayer reports whether the given player identifier belongs to this entry.
func (e *Entry) HasPlayer(playerID string) bool {
	for _, p := range e.Players() {
		if p == playerID {
			return true
		}
	}
	return false
}

func (e *Entry) DisplayLabel() string {
	if e.DisplayName != nil && *e.DisplayName != "" {
		return *e.DisplayName
	}
	if e.IsDummy() {
		return fmt.Sprintf("Dummy %d", e.ID)
	}
	return e.Player1ID
}

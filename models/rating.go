package models

import "time"

// RatingMode is the game mode a rating is tracked under.
type RatingMode string

const (
	Mode1v1 RatingMode = "1v1"
	Mode2v2 RatingMode = "2v2"
	Mode3v3 RatingMode = "3v3"
)

// PlayerRating is the per-player, per-mode Elo record.
type PlayerRating struct {
	PlayerID         string     `json:"player_id"`
	Mode             RatingMode `json:"mode"`
	Rating           int        `json:"rating"`
	ProvisionalGames int        `json:"provisional_games"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// Player carries per-player attributes that are not mode-specific.
// GlobalRating, when present, seeds new per-mode ratings.
type Player struct {
	DiscordID    string    `json:"discord_id"`
	DisplayName  *string   `json:"display_name,omitempty"`
	GlobalRating *int      `json:"global_rating,omitempty"`
	SmurfFlagged bool      `json:"smurf_flagged"`
	CreatedAt    time.Time `json:"created_at"`
}

// MatchLog is a row in the global match history, written once per completed
// rated match.
type MatchLog struct {
	ID             string     `json:"id"`
	GuildID        string     `json:"guild_id"`
	TournamentID   *int       `json:"tournament_id,omitempty"`
	Mode           RatingMode `json:"mode"`
	WinnerPlayerID string     `json:"winner_player_id"`
	LoserPlayerID  string     `json:"loser_player_id"`
	Score          *string    `json:"score,omitempty"`
	PlayedAt       time.Time  `json:"played_at"`
}

package services

import "errors"

// Shared error taxonomy for the service layer. Handlers map these onto HTTP
// statuses; every message here is shown to a Discord user verbatim, so keep
// them specific and actionable.
var (
	// Not-found conditions.
	ErrTournamentNotFound = errors.New("tournament not found")
	ErrEntryNotFound      = errors.New("entry not found")
	ErrMatchNotFound      = errors.New("match not found")
	ErrPlayerNotFound     = errors.New("player not found")

	// Tournament lifecycle.
	ErrGuildHasActiveTournament = errors.New("guild already has an active tournament")
	ErrInvalidFormat            = errors.New("format must be 1v1 or 2v2")
	ErrInvalidCapacity          = errors.New("capacity must be one of 4, 8, 16, 32 or 64")
	ErrInvalidStatusTransition  = errors.New("invalid tournament status transition")
	ErrTournamentNotCompleted   = errors.New("tournament is not completed")
	ErrCodeGenerationFailed     = errors.New("could not generate a unique tournament code")

	// Registration.
	ErrRegistrationNotOpen   = errors.New("tournament registration is not open")
	ErrTournamentFull        = errors.New("tournament registration is full")
	ErrDuplicateRegistration = errors.New("player is already registered for this tournament")
	ErrTeammateRequired      = errors.New("2v2 entries require two distinct players")

	// Match resolution.
	ErrTournamentNotInProgress = errors.New("tournament is not in progress")
	ErrMatchAlreadyCompleted   = errors.New("match already completed")
	ErrNotAParticipant         = errors.New("reporter is not a participant in this match")
	ErrWinnerNotInMatch        = errors.New("winner is not a participant in this match")
	ErrAlreadyReported         = errors.New("already reported, awaiting opponent confirmation")
	ErrDrawNotAllowed          = errors.New("draws are not allowed, report a distinct winner")
)

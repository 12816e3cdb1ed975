package services

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/bracketforge/bracketforge/models"
	"github.com/bracketforge/bracketforge/repositories"
	"github.com/bracketforge/bracketforge/storage"
)

// maxCodeAttempts bounds the retry loop on the unique-code constraint.
const maxCodeAttempts = 5

// TournamentSnapshot is the full read model of one tournament: the record
// plus every entry and match. It is also the document archived to object
// storage.
type TournamentSnapshot struct {
	Tournament *models.Tournament `json:"tournament"`
	Entries    []*models.Entry    `json:"entries"`
	Matches    []*models.Match    `json:"matches"`
}

// RegisterEntryInput carries one registration. Player2ID is required for
// 2v2 tournaments and rejected for 1v1.
type RegisterEntryInput struct {
	Player1ID   string
	Player1Name string
	Player2ID   *string
	Player2Name *string
	DisplayName *string
}

type TournamentService interface {
	Create(ctx context.Context, guildID string, format models.TournamentFormat, capacity int) (*models.Tournament, error)
	GetByID(ctx context.Context, id int) (*models.Tournament, error)
	GetByCode(ctx context.Context, code string) (*models.Tournament, error)
	GetActiveByGuild(ctx context.Context, guildID string) (*models.Tournament, error)
	ListByGuild(ctx context.Context, guildID string, limit, offset int) ([]models.Tournament, error)
	GetSnapshot(ctx context.Context, id int) (*TournamentSnapshot, error)

	OpenRegistration(ctx context.Context, id int) error
	CloseRegistration(ctx context.Context, id int) error
	Cancel(ctx context.Context, id int) error
	// Start seeds and builds the bracket, moving the tournament to
	// in_progress.
	Start(ctx context.Context, id int) ([]*models.Match, error)

	RegisterEntry(ctx context.Context, tournamentID int, input RegisterEntryInput) (*models.Entry, error)
	// AddDummyEntries pads the field with placeholder entrants so a
	// bracket can be tested or filled out.
	AddDummyEntries(ctx context.Context, tournamentID int, count int) ([]*models.Entry, error)
	ListEntries(ctx context.Context, tournamentID int) ([]*models.Entry, error)

	// Archive snapshots a completed tournament to object storage, then
	// deletes its entries and matches. The trophy summary stays on the
	// tournament row.
	Archive(ctx context.Context, id int) (*models.Tournament, error)
	// ArchiveCompletedBefore archives every tournament completed before
	// the cutoff. Used by the background scheduler.
	ArchiveCompletedBefore(ctx context.Context, cutoff time.Time) (int, error)
}

type tournamentService struct {
	db             *sql.DB
	tournamentRepo repositories.TournamentRepository
	entryRepo      repositories.EntryRepository
	matchRepo      repositories.MatchRepository
	ratingRepo     repositories.RatingRepository
	bracketService BracketService
	uploader       storage.FileUploader
	logger         *slog.Logger
}

func NewTournamentService(
	db *sql.DB,
	tournamentRepo repositories.TournamentRepository,
	entryRepo repositories.EntryRepository,
	matchRepo repositories.MatchRepository,
	ratingRepo repositories.RatingRepository,
	bracketService BracketService,
	uploader storage.FileUploader,
	logger *slog.Logger,
) TournamentService {
	return &tournamentService{
		db:             db,
		tournamentRepo: tournamentRepo,
		entryRepo:      entryRepo,
		matchRepo:      matchRepo,
		ratingRepo:     ratingRepo,
		bracketService: bracketService,
		uploader:       uploader,
		logger:         logger,
	}
}

func (s *tournamentService) Create(ctx context.Context, guildID string, format models.TournamentFormat, capacity int) (*models.Tournament, error) {
	if format != models.Format1v1 && format != models.Format2v2 {
		return nil, ErrInvalidFormat
	}
	if !models.IsAllowedCapacity(capacity) {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidCapacity, capacity)
	}

	if _, err := s.tournamentRepo.GetActiveByGuild(ctx, guildID); err == nil {
		return nil, ErrGuildHasActiveTournament
	} else if !errors.Is(err, repositories.ErrTournamentNotFound) {
		return nil, err
	}

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := generateCode()
		if err != nil {
			return nil, err
		}

		tournament := &models.Tournament{
			GuildID:  guildID,
			Code:     code,
			Format:   format,
			Capacity: capacity,
			Status:   models.StatusDraft,
		}
		err = s.tournamentRepo.Create(ctx, tournament)
		if err == nil {
			s.logger.Info("tournament created",
				slog.Int("tournament_id", tournament.ID),
				slog.String("guild_id", guildID),
				slog.String("code", code))
			return tournament, nil
		}
		if errors.Is(err, repositories.ErrTournamentCodeConflict) {
			continue
		}
		return nil, err
	}
	return nil, ErrCodeGenerationFailed
}

func (s *tournamentService) GetByID(ctx context.Context, id int) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	return tournament, nil
}

func (s *tournamentService) GetByCode(ctx context.Context, code string) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	return tournament, nil
}

func (s *tournamentService) GetActiveByGuild(ctx context.Context, guildID string) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetActiveByGuild(ctx, guildID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	return tournament, nil
}

func (s *tournamentService) ListByGuild(ctx context.Context, guildID string, limit, offset int) ([]models.Tournament, error) {
	return s.tournamentRepo.ListByGuild(ctx, guildID, limit, offset)
}

func (s *tournamentService) GetSnapshot(ctx context.Context, id int) (*TournamentSnapshot, error) {
	tournament, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	snapshot := &TournamentSnapshot{Tournament: tournament}
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		entries, err := s.entryRepo.ListByTournament(gCtx, id)
		if err != nil {
			return fmt.Errorf("failed to load entries: %w", err)
		}
		snapshot.Entries = entries
		return nil
	})
	g.Go(func() error {
		matches, err := s.matchRepo.ListByTournament(gCtx, id)
		if err != nil {
			return fmt.Errorf("failed to load matches: %w", err)
		}
		snapshot.Matches = matches
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return snapshot, nil
}

func (s *tournamentService) OpenRegistration(ctx context.Context, id int) error {
	return s.transition(ctx, id, models.StatusRegOpen)
}

func (s *tournamentService) CloseRegistration(ctx context.Context, id int) error {
	return s.transition(ctx, id, models.StatusRegClosed)
}

func (s *tournamentService) Cancel(ctx context.Context, id int) error {
	return s.transition(ctx, id, models.StatusCanceled)
}

func (s *tournamentService) transition(ctx context.Context, id int, next models.TournamentStatus) error {
	tournament, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !isValidStatusTransition(tournament.Status, next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, tournament.Status, next)
	}
	if tournament.Status == next {
		return nil
	}
	if err := s.tournamentRepo.UpdateStatus(ctx, nil, id, next); err != nil {
		return err
	}
	s.logger.Info("tournament status changed",
		slog.Int("tournament_id", id),
		slog.String("from", string(tournament.Status)),
		slog.String("to", string(next)))
	return nil
}

func (s *tournamentService) Start(ctx context.Context, id int) ([]*models.Match, error) {
	return s.bracketService.BuildBracket(ctx, id)
}

func (s *tournamentService) RegisterEntry(ctx context.Context, tournamentID int, input RegisterEntryInput) (*models.Entry, error) {
	tournament, err := s.GetByID(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	if tournament.Status != models.StatusRegOpen {
		return nil, ErrRegistrationNotOpen
	}

	kind := models.EntryKindPlayer
	if tournament.Format == models.Format2v2 {
		kind = models.EntryKindTeam
		if input.Player2ID == nil || *input.Player2ID == "" || *input.Player2ID == input.Player1ID {
			return nil, ErrTeammateRequired
		}
	} else if input.Player2ID != nil {
		return nil, fmt.Errorf("%w: 1v1 entries take a single player", ErrInvalidFormat)
	}

	count, err := s.entryRepo.CountByTournament(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	if count >= tournament.Capacity {
		return nil, ErrTournamentFull
	}

	for _, playerID := range playersOf(input) {
		if _, err := s.entryRepo.FindByPlayer(ctx, tournamentID, playerID); err == nil {
			return nil, ErrDuplicateRegistration
		} else if !errors.Is(err, repositories.ErrEntryNotFound) {
			return nil, err
		}
	}

	if err := s.upsertPlayers(ctx, input); err != nil {
		return nil, err
	}

	entry := &models.Entry{
		TournamentID: tournamentID,
		Kind:         kind,
		Player1ID:    input.Player1ID,
		Player2ID:    input.Player2ID,
		DisplayName:  input.DisplayName,
	}
	if err := s.entryRepo.Create(ctx, nil, entry); err != nil {
		if errors.Is(err, repositories.ErrEntryPlayerConflict) {
			return nil, ErrDuplicateRegistration
		}
		return nil, err
	}

	s.logger.Info("entry registered",
		slog.Int("tournament_id", tournamentID),
		slog.Int("entry_id", entry.ID),
		slog.String("player1_id", input.Player1ID))
	return entry, nil
}

// upsertPlayers makes sure a player row exists for every registrant so
// rating rows always have a player to hang off. Existing rows are left
// alone: registration must not clobber flags or global ratings.
func (s *tournamentService) upsertPlayers(ctx context.Context, input RegisterEntryInput) error {
	if err := s.ensurePlayer(ctx, input.Player1ID, optionalString(input.Player1Name)); err != nil {
		return err
	}
	if input.Player2ID != nil {
		return s.ensurePlayer(ctx, *input.Player2ID, input.Player2Name)
	}
	return nil
}

func (s *tournamentService) ensurePlayer(ctx context.Context, playerID string, displayName *string) error {
	_, err := s.ratingRepo.GetPlayer(ctx, playerID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repositories.ErrPlayerNotFound) {
		return err
	}
	if err := s.ratingRepo.UpsertPlayer(ctx, &models.Player{
		DiscordID:   playerID,
		DisplayName: displayName,
	}); err != nil {
		return fmt.Errorf("failed to create player %s: %w", playerID, err)
	}
	return nil
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func playersOf(input RegisterEntryInput) []string {
	players := []string{input.Player1ID}
	if input.Player2ID != nil {
		players = append(players, *input.Player2ID)
	}
	return players
}

func (s *tournamentService) AddDummyEntries(ctx context.Context, tournamentID int, count int) ([]*models.Entry, error) {
	tournament, err := s.GetByID(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	if tournament.Status != models.StatusRegOpen {
		return nil, ErrRegistrationNotOpen
	}

	existing, err := s.entryRepo.CountByTournament(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	if existing+count > tournament.Capacity {
		return nil, ErrTournamentFull
	}

	entries := make([]*models.Entry, 0, count)
	err = runInTx(ctx, s.db, func(tx *sql.Tx) error {
		for i := 0; i < count; i++ {
			// Dummy player ids are synthetic and never resolve to a
			// player row; ratings treat them as neutral.
			name := fmt.Sprintf("Dummy %d", existing+i+1)
			entry := &models.Entry{
				TournamentID: tournamentID,
				Kind:         models.EntryKindDummy,
				Player1ID:    "dummy-" + uuid.NewString()[:8],
				DisplayName:  &name,
			}
			if err := s.entryRepo.Create(ctx, tx, entry); err != nil {
				return err
			}
			entries = append(entries, entry)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("dummy entries added",
		slog.Int("tournament_id", tournamentID), slog.Int("count", count))
	return entries, nil
}

func (s *tournamentService) ListEntries(ctx context.Context, tournamentID int) ([]*models.Entry, error) {
	if _, err := s.GetByID(ctx, tournamentID); err != nil {
		return nil, err
	}
	return s.entryRepo.ListByTournament(ctx, tournamentID)
}

func (s *tournamentService) Archive(ctx context.Context, id int) (*models.Tournament, error) {
	if s.uploader == nil {
		return nil, errors.New("archive storage is not configured")
	}
	tournament, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if tournament.Status != models.StatusCompleted && tournament.Status != models.StatusCanceled {
		return nil, ErrTournamentNotCompleted
	}

	snapshot, err := s.GetSnapshot(ctx, id)
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot for tournament %d: %w", id, err)
	}

	key := fmt.Sprintf("archives/%s-%s.json", tournament.Code, uuid.NewString())
	// Upload before deleting anything. A failed upload aborts the archive
	// with all bracket data intact.
	if _, err := s.uploader.Upload(ctx, key, "application/json", bytes.NewReader(payload)); err != nil {
		return nil, fmt.Errorf("failed to upload snapshot for tournament %d: %w", id, err)
	}

	archivedAt := time.Now().UTC()
	err = runInTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := s.matchRepo.DeleteByTournament(ctx, tx, id); err != nil {
			return err
		}
		if err := s.entryRepo.DeleteByTournament(ctx, tx, id); err != nil {
			return err
		}
		return s.tournamentRepo.SetArchived(ctx, tx, id, &key, archivedAt)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("tournament archived",
		slog.Int("tournament_id", id),
		slog.String("snapshot_key", key))

	tournament.Status = models.StatusArchived
	tournament.SnapshotKey = &key
	tournament.ArchivedAt = &archivedAt
	return tournament, nil
}

func (s *tournamentService) ArchiveCompletedBefore(ctx context.Context, cutoff time.Time) (int, error) {
	candidates, err := s.tournamentRepo.ListCompletedBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	archived := 0
	for _, tournament := range candidates {
		if _, err := s.Archive(ctx, tournament.ID); err != nil {
			// One stuck tournament must not block the rest of the sweep.
			s.logger.Error("scheduled archive failed",
				slog.Int("tournament_id", tournament.ID),
				slog.Any("error", err))
			continue
		}
		archived++
	}
	return archived, nil
}

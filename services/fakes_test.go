package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/bracketforge/bracketforge/models"
	"github.com/bracketforge/bracketforge/repositories"
	"github.com/bracketforge/bracketforge/storage"
)

// In-memory repository fakes mirroring the postgres implementations'
// documented semantics, including the compare-and-swap behavior of the
// match repository.

type fakeTournamentRepo struct {
	mu          sync.Mutex
	seq         int
	tournaments map[int]*models.Tournament
}

func newFakeTournamentRepo() *fakeTournamentRepo {
	return &fakeTournamentRepo{tournaments: make(map[int]*models.Tournament)}
}

func (r *fakeTournamentRepo) Create(ctx context.Context, t *models.Tournament) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.tournaments {
		if existing.Code == t.Code {
			return repositories.ErrTournamentCodeConflict
		}
	}
	r.seq++
	t.ID = r.seq
	t.CreatedAt = time.Now().UTC()
	r.tournaments[t.ID] = t
	return nil
}

func (r *fakeTournamentRepo) GetByID(ctx context.Context, id int) (*models.Tournament, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tournaments[id]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	copied := *t
	return &copied, nil
}

func (r *fakeTournamentRepo) GetByCode(ctx context.Context, code string) (*models.Tournament, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tournaments {
		if t.Code == code {
			copied := *t
			return &copied, nil
		}
	}
	return nil, repositories.ErrTournamentNotFound
}

func (r *fakeTournamentRepo) GetActiveByGuild(ctx context.Context, guildID string) (*models.Tournament, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tournaments {
		if t.GuildID == guildID && t.IsActive() {
			copied := *t
			return &copied, nil
		}
	}
	return nil, repositories.ErrTournamentNotFound
}

func (r *fakeTournamentRepo) ListByGuild(ctx context.Context, guildID string, limit, offset int) ([]models.Tournament, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Tournament
	for _, t := range r.tournaments {
		if t.GuildID == guildID {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeTournamentRepo) ListCompletedBefore(ctx context.Context, cutoff time.Time) ([]*models.Tournament, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Tournament
	for _, t := range r.tournaments {
		if t.Status == models.StatusCompleted && t.CompletedAt != nil && t.CompletedAt.Before(cutoff) {
			copied := *t
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeTournamentRepo) UpdateStatus(ctx context.Context, exec repositories.SQLExecutor, id int, status models.TournamentStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.Status = status
	return nil
}

func (r *fakeTournamentRepo) SetResult(ctx context.Context, exec repositories.SQLExecutor, id int, winnerEntryID, runnerUpEntryID *int, completedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tournaments[id]
	if !ok || t.Status != models.StatusInProgress {
		return repositories.ErrTournamentNotFound
	}
	t.Status = models.StatusCompleted
	t.WinnerEntryID = winnerEntryID
	t.RunnerUpEntryID = runnerUpEntryID
	t.CompletedAt = &completedAt
	return nil
}

func (r *fakeTournamentRepo) SetArchived(ctx context.Context, exec repositories.SQLExecutor, id int, snapshotKey *string, archivedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.Status = models.StatusArchived
	t.SnapshotKey = snapshotKey
	t.ArchivedAt = &archivedAt
	return nil
}

type fakeEntryRepo struct {
	mu      sync.Mutex
	seq     int
	entries map[int]*models.Entry
}

func newFakeEntryRepo() *fakeEntryRepo {
	return &fakeEntryRepo{entries: make(map[int]*models.Entry)}
}

func (r *fakeEntryRepo) Create(ctx context.Context, exec repositories.SQLExecutor, entry *models.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.entries {
		if existing.TournamentID != entry.TournamentID {
			continue
		}
		if existing.Player1ID == entry.Player1ID {
			return repositories.ErrEntryPlayerConflict
		}
		if entry.Player2ID != nil && existing.Player2ID != nil && *existing.Player2ID == *entry.Player2ID {
			return repositories.ErrEntryPlayerConflict
		}
	}
	r.seq++
	entry.ID = r.seq
	entry.CreatedAt = time.Now().UTC()
	r.entries[entry.ID] = entry
	return nil
}

func (r *fakeEntryRepo) GetByID(ctx context.Context, id int) (*models.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return nil, repositories.ErrEntryNotFound
	}
	copied := *e
	return &copied, nil
}

func (r *fakeEntryRepo) ListByTournament(ctx context.Context, tournamentID int) ([]*models.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Entry
	for _, e := range r.entries {
		if e.TournamentID == tournamentID {
			copied := *e
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeEntryRepo) CountByTournament(ctx context.Context, tournamentID int) (int, error) {
	entries, _ := r.ListByTournament(ctx, tournamentID)
	return len(entries), nil
}

func (r *fakeEntryRepo) FindByPlayer(ctx context.Context, tournamentID int, playerID string) (*models.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.TournamentID == tournamentID && e.HasPlayer(playerID) {
			copied := *e
			return &copied, nil
		}
	}
	return nil, repositories.ErrEntryNotFound
}

func (r *fakeEntryRepo) DeleteByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, e := range r.entries {
		if e.TournamentID == tournamentID {
			delete(r.entries, id)
		}
	}
	return nil
}

type fakeMatchRepo struct {
	mu      sync.Mutex
	seq     int
	matches map[int]*models.Match
}

func newFakeMatchRepo() *fakeMatchRepo {
	return &fakeMatchRepo{matches: make(map[int]*models.Match)}
}

func (r *fakeMatchRepo) Create(ctx context.Context, exec repositories.SQLExecutor, match *models.Match) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	match.ID = r.seq
	match.CreatedAt = time.Now().UTC()
	copied := *match
	r.matches[match.ID] = &copied
	return nil
}

func (r *fakeMatchRepo) GetByID(ctx context.Context, id int) (*models.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.matches[id]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}
	copied := *m
	return &copied, nil
}

func (r *fakeMatchRepo) ListByTournament(ctx context.Context, tournamentID int) ([]*models.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Match
	for _, m := range r.matches {
		if m.TournamentID == tournamentID {
			copied := *m
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Round != out[j].Round {
			return out[i].Round < out[j].Round
		}
		return out[i].Position < out[j].Position
	})
	return out, nil
}

func (r *fakeMatchRepo) HasRound(ctx context.Context, tournamentID, round int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.matches {
		if m.TournamentID == tournamentID && m.Round == round {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeMatchRepo) SetPendingClaim(ctx context.Context, id int, winnerEntryID int, reportedBy string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.matches[id]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	if m.Status != models.MatchStatusPending {
		return repositories.ErrMatchNotPending
	}
	if m.PendingWinnerEntryID != nil {
		return repositories.ErrMatchClaimOccupied
	}
	m.PendingWinnerEntryID = &winnerEntryID
	m.PendingReportedBy = &reportedBy
	return nil
}

func (r *fakeMatchRepo) Complete(ctx context.Context, id int, winnerEntryID *int, score *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.matches[id]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	if m.Status != models.MatchStatusPending {
		return repositories.ErrMatchNotPending
	}
	m.WinnerEntryID = winnerEntryID
	m.Score = score
	m.Status = models.MatchStatusCompleted
	m.PendingWinnerEntryID = nil
	m.PendingReportedBy = nil
	return nil
}

func (r *fakeMatchRepo) DeleteByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, m := range r.matches {
		if m.TournamentID == tournamentID {
			delete(r.matches, id)
		}
	}
	return nil
}

type fakeRatingRepo struct {
	mu      sync.Mutex
	players map[string]*models.Player
	ratings map[string]*models.PlayerRating
}

func newFakeRatingRepo() *fakeRatingRepo {
	return &fakeRatingRepo{
		players: make(map[string]*models.Player),
		ratings: make(map[string]*models.PlayerRating),
	}
}

func ratingKey(playerID string, mode models.RatingMode) string {
	return playerID + "|" + string(mode)
}

func (r *fakeRatingRepo) GetPlayer(ctx context.Context, discordID string) (*models.Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.players[discordID]
	if !ok {
		return nil, repositories.ErrPlayerNotFound
	}
	copied := *p
	return &copied, nil
}

func (r *fakeRatingRepo) UpsertPlayer(ctx context.Context, player *models.Player) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *player
	r.players[player.DiscordID] = &copied
	return nil
}

func (r *fakeRatingRepo) Get(ctx context.Context, playerID string, mode models.RatingMode) (*models.PlayerRating, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pr, ok := r.ratings[ratingKey(playerID, mode)]
	if !ok {
		return nil, repositories.ErrRatingNotFound
	}
	copied := *pr
	return &copied, nil
}

func (r *fakeRatingRepo) ListByPlayer(ctx context.Context, playerID string) ([]*models.PlayerRating, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.PlayerRating
	for _, pr := range r.ratings {
		if pr.PlayerID == playerID {
			copied := *pr
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeRatingRepo) Upsert(ctx context.Context, rating *models.PlayerRating) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *rating
	copied.UpdatedAt = time.Now().UTC()
	r.ratings[ratingKey(rating.PlayerID, rating.Mode)] = &copied
	return nil
}

type fakeMatchLogRepo struct {
	mu   sync.Mutex
	logs []*models.MatchLog
}

func newFakeMatchLogRepo() *fakeMatchLogRepo {
	return &fakeMatchLogRepo{}
}

func (r *fakeMatchLogRepo) Create(ctx context.Context, entry *models.MatchLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry.PlayedAt = time.Now().UTC()
	r.logs = append(r.logs, entry)
	return nil
}

func (r *fakeMatchLogRepo) ListByPlayer(ctx context.Context, playerID string, limit int) ([]*models.MatchLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.MatchLog
	for _, l := range r.logs {
		if l.WinnerPlayerID == playerID || l.LoserPlayerID == playerID {
			out = append(out, l)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

type fakeUploader struct {
	mu      sync.Mutex
	uploads map[string][]byte
	failAll bool
}

func newFakeUploader() *fakeUploader {
	return &fakeUploader{uploads: make(map[string][]byte)}
}

func (u *fakeUploader) Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*storage.UploadResult, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.failAll {
		return nil, errors.New("upload failed")
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(reader); err != nil {
		return nil, err
	}
	u.uploads[key] = buf.Bytes()
	return &storage.UploadResult{Key: key, Location: "https://cdn.test/" + key}, nil
}

func (u *fakeUploader) Delete(ctx context.Context, key string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	delete(u.uploads, key)
	return nil
}

func (u *fakeUploader) GetPublicURL(key string) string {
	return "https://cdn.test/" + key
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

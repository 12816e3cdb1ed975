package services

import (
	"context"
	"math/rand"
	"sort"

	"github.com/bracketforge/bracketforge/brackets"
	"github.com/bracketforge/bracketforge/models"
	"github.com/bracketforge/bracketforge/ratings"
)

// SeedingService orders entrants so the strongest meet the weakest first:
// resolve an effective rating per entry, sort descending, fold into the
// classic 1-vs-n order. With no skill source it degrades to an unbiased
// shuffle.
type SeedingService struct {
	skills SkillSource
}

func NewSeedingService(skills SkillSource) *SeedingService {
	return &SeedingService{skills: skills}
}

// Seed never fails on empty or single-entry input; those come back as-is.
func (s *SeedingService) Seed(ctx context.Context, entries []*models.Entry, mode models.RatingMode) ([]*models.Entry, error) {
	if len(entries) < 2 {
		return entries, nil
	}

	if s.skills == nil {
		shuffled := make([]*models.Entry, len(entries))
		copy(shuffled, entries)
		rand.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})
		return shuffled, nil
	}

	type rated struct {
		entry     *models.Entry
		effective int
	}
	ratedEntries := make([]rated, 0, len(entries))
	for _, entry := range entries {
		effective, err := s.effectiveRating(ctx, entry, mode)
		if err != nil {
			return nil, err
		}
		ratedEntries = append(ratedEntries, rated{entry: entry, effective: effective})
	}

	sort.SliceStable(ratedEntries, func(i, j int) bool {
		return ratedEntries[i].effective > ratedEntries[j].effective
	})

	sorted := make([]*models.Entry, len(ratedEntries))
	for i, re := range ratedEntries {
		sorted[i] = re.entry
	}
	return brackets.FoldOrder(sorted), nil
}

// effectiveRating is the seeding-only view of an entry's skill: dummies are
// pinned neutral, suspected smurfs carry a bonus on top of their stored
// rating. Stored ratings are never modified here.
func (s *SeedingService) effectiveRating(ctx context.Context, entry *models.Entry, mode models.RatingMode) (int, error) {
	if entry.IsDummy() {
		return ratings.DefaultRating, nil
	}
	effective, err := s.skills.SkillRating(ctx, entry, mode)
	if err != nil {
		return 0, err
	}
	flagged, err := s.skills.IsSmurfFlagged(ctx, entry)
	if err != nil {
		return 0, err
	}
	if flagged {
		effective += ratings.SmurfSeedingBonus
	}
	return effective, nil
}

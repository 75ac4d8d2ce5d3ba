package repository

import (
	"context"
	"sort"

	"github.com/Jay160412/jay-website/internal/model"
	"github.com/Jay160412/jay-website/internal/pkg/kv"
	"github.com/Jay160412/jay-website/internal/pkg/lock"
)

// highscoreTable is the layout of the gameHighscores document.
type highscoreTable = map[string][]model.HighscoreEntry

// HighscoreRepository handles the local highscore track.
// Each game keeps at most one entry per username, sorted by score descending.
type HighscoreRepository struct {
	scores document[highscoreTable]
}

// NewHighscoreRepository creates a new HighscoreRepository instance.
func NewHighscoreRepository(store kv.Store, locks *lock.KeyLock) *HighscoreRepository {
	return &HighscoreRepository{
		scores: document[highscoreTable]{store: store, locks: locks, key: HighscoresKey},
	}
}

// Save records a score. An existing entry for the user is replaced only when
// score is strictly greater; a user without an entry is appended. The list is
// re-sorted after every write, ties keeping insertion order.
// It returns whether the stored entry changed.
func (r *HighscoreRepository) Save(ctx context.Context, gameID, username string, score int64) (bool, error) {
	improved := false
	err := r.scores.update(ctx, func(t *highscoreTable) (bool, error) {
		if *t == nil {
			*t = make(highscoreTable)
		}
		entries := (*t)[gameID]

		found := false
		for i := range entries {
			if entries[i].Username != username {
				continue
			}
			found = true
			if score > entries[i].Score {
				entries[i].Score = score
				improved = true
			}
			break
		}
		if !found {
			entries = append(entries, model.HighscoreEntry{Username: username, Score: score})
			improved = true
		}

		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].Score > entries[j].Score
		})
		(*t)[gameID] = entries
		return true, nil
	})
	if err != nil {
		return false, err
	}
	return improved, nil
}

// Top returns the first limit entries of a game. A game without scores
// yields an empty slice.
func (r *HighscoreRepository) Top(ctx context.Context, gameID string, limit int) ([]model.HighscoreEntry, error) {
	t, err := r.scores.load(ctx)
	if err != nil {
		return nil, err
	}

	entries := t[gameID]
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	out := make([]model.HighscoreEntry, len(entries))
	copy(out, entries)
	return out, nil
}

// All returns every game's highscore list.
func (r *HighscoreRepository) All(ctx context.Context) (map[string][]model.HighscoreEntry, error) {
	t, err := r.scores.load(ctx)
	if err != nil {
		return nil, err
	}
	if t == nil {
		t = make(highscoreTable)
	}
	return t, nil
}

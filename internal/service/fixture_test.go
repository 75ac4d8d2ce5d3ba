package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Jay160412/jay-website/internal/game"
	"github.com/Jay160412/jay-website/internal/model"
	"github.com/Jay160412/jay-website/internal/pkg/auth"
	"github.com/Jay160412/jay-website/internal/pkg/kv"
	"github.com/Jay160412/jay-website/internal/pkg/lock"
	"github.com/Jay160412/jay-website/internal/repository"
	"github.com/Jay160412/jay-website/internal/shop"
)

// recorder collects published coin events.
type recorder struct {
	mu     sync.Mutex
	events []model.CoinEvent
}

func (r *recorder) Publish(ev model.CoinEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) all() []model.CoinEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.CoinEvent(nil), r.events...)
}

// fakeTrack is an in-memory remote highscore track.
type fakeTrack struct {
	mu      sync.Mutex
	scores  []model.GlobalHighscore
	failing bool
	release chan struct{}
}

func (f *fakeTrack) Submit(ctx context.Context, g, username string, score int64) error {
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return errors.New("network unreachable")
	}
	f.scores = append(f.scores, model.GlobalHighscore{Username: username, Score: score, Game: g})
	return nil
}

func (f *fakeTrack) List(_ context.Context, g string) ([]model.GlobalHighscore, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return nil, errors.New("network unreachable")
	}
	var out []model.GlobalHighscore
	for _, hs := range f.scores {
		if g == "" || hs.Game == g {
			out = append(out, hs)
		}
	}
	return out, nil
}

func (f *fakeTrack) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.scores)
}

// tb is the part of testing.TB that rapid.T also provides.
type tb interface {
	Helper()
	Fatalf(format string, args ...any)
}

// fixture wires every service over one store.
type fixture struct {
	store       kv.Store
	users       *repository.UserRepository
	skins       *repository.SkinRepository
	events      *recorder
	remote      *fakeTrack
	accounts    *AccountService
	economy     *EconomyService
	highscores  *HighscoreService
	missions    *MissionService
	leaderboard *LeaderboardService
}

func newFixtureWithStore(t tb, store kv.Store) *fixture {
	t.Helper()

	tableLocks := lock.New()
	userLocks := lock.New()
	games := game.NewDefaultRegistry()

	f := &fixture{
		store:  store,
		users:  repository.NewUserRepository(store, tableLocks),
		skins:  repository.NewSkinRepository(store, tableLocks, shop.SkinFamilies(), shop.DefaultSkin),
		events: &recorder{},
		remote: &fakeTrack{},
	}

	tokens, err := auth.NewTokens("test-secret", "arcade", time.Hour)
	if err != nil {
		t.Fatalf("tokens: %v", err)
	}

	f.accounts = NewAccountService(f.users, auth.Plaintext{}, tokens, userLocks, 100)
	f.economy = NewEconomyService(f.users, f.skins, f.events, userLocks)
	f.highscores = NewHighscoreService(repository.NewHighscoreRepository(store, tableLocks), f.remote, games, 10)
	f.missions = NewMissionService(f.economy, games, 10)
	f.leaderboard = NewLeaderboardService(f.highscores, f.users)
	return f
}

func newFixture(t tb) *fixture {
	return newFixtureWithStore(t, kv.NewMemory())
}

func (f *fixture) register(t tb, username string) *model.User {
	t.Helper()
	u, err := f.accounts.Register(context.Background(), username, "pw")
	if err != nil {
		t.Fatalf("register %s: %v", username, err)
	}
	return u
}

// failingSkinStore fails writes to skin-data keys.
type failingSkinStore struct {
	kv.Store
}

func (s failingSkinStore) Set(ctx context.Context, key, value string) error {
	if len(key) > 5 && key[:5] == "user_" {
		return errors.New("quota exceeded")
	}
	return s.Store.Set(ctx, key, value)
}

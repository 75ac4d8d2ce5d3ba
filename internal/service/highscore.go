package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Jay160412/jay-website/internal/game"
	"github.com/Jay160412/jay-website/internal/model"
	"github.com/Jay160412/jay-website/internal/repository"
)

// defaultSubmitTimeout bounds a background submission to the remote track.
const defaultSubmitTimeout = 10 * time.Second

// GlobalTrack is the remote highscore list shared across devices.
type GlobalTrack interface {
	Submit(ctx context.Context, game, username string, score int64) error
	List(ctx context.Context, game string) ([]model.GlobalHighscore, error)
}

// HighscoreService keeps the two highscore tracks. The local track is written
// synchronously and is authoritative for this process; the remote track is a
// best-effort replica written in the background and may lag behind.
type HighscoreService struct {
	scores        *repository.HighscoreRepository
	remote        GlobalTrack
	games         *game.Registry
	defaultLimit  int
	submitTimeout time.Duration

	mu      sync.Mutex
	closed  bool
	pending sync.WaitGroup
}

// NewHighscoreService creates a new HighscoreService instance.
// remote may be nil, which disables the remote track.
func NewHighscoreService(
	scores *repository.HighscoreRepository,
	remote GlobalTrack,
	games *game.Registry,
	defaultLimit int,
) *HighscoreService {
	if defaultLimit <= 0 {
		defaultLimit = 10
	}
	return &HighscoreService{
		scores:        scores,
		remote:        remote,
		games:         games,
		defaultLimit:  defaultLimit,
		submitTimeout: defaultSubmitTimeout,
	}
}

func (s *HighscoreService) checkGame(gameID string) error {
	if !s.games.Has(gameID) {
		return fmt.Errorf("%w: %q", ErrUnknownGame, gameID)
	}
	return nil
}

// SaveLocalHighscore records a score on the local track and reports whether
// the user's stored best changed.
func (s *HighscoreService) SaveLocalHighscore(ctx context.Context, gameID, username string, score int64) (bool, error) {
	if err := s.checkGame(gameID); err != nil {
		return false, err
	}
	if score < 0 {
		return false, ErrInvalidScore
	}
	return s.scores.Save(ctx, gameID, username, score)
}

// SaveGlobalHighscore submits a score to the remote track without waiting.
// Failures are logged and otherwise ignored.
func (s *HighscoreService) SaveGlobalHighscore(gameID, username string, score int64) {
	if s.remote == nil {
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		log.Warn().Str("game", gameID).Str("username", username).Msg("Remote highscore dropped during shutdown")
		return
	}
	s.pending.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.pending.Done()

		ctx, cancel := context.WithTimeout(context.Background(), s.submitTimeout)
		defer cancel()

		if err := s.remote.Submit(ctx, gameID, username, score); err != nil {
			log.Warn().
				Err(err).
				Str("game", gameID).
				Str("username", username).
				Int64("score", score).
				Msg("Failed to submit global highscore")
			return
		}
		log.Debug().
			Str("game", gameID).
			Str("username", username).
			Int64("score", score).
			Msg("Global highscore submitted")
	}()
}

// SaveHighscore writes the local track and dispatches the remote submission.
// The local write has completed when it returns.
func (s *HighscoreService) SaveHighscore(ctx context.Context, gameID, username string, score int64) (bool, error) {
	improved, err := s.SaveLocalHighscore(ctx, gameID, username, score)
	if err != nil {
		return false, err
	}
	s.SaveGlobalHighscore(gameID, username, score)
	return improved, nil
}

// GetTopHighscores returns the best local entries of a game. A limit of
// zero or less selects the configured default.
func (s *HighscoreService) GetTopHighscores(ctx context.Context, gameID string, limit int) ([]model.HighscoreEntry, error) {
	if err := s.checkGame(gameID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = s.defaultLimit
	}
	return s.scores.Top(ctx, gameID, limit)
}

// GetAllHighscores returns the local track of every game.
func (s *HighscoreService) GetAllHighscores(ctx context.Context) (map[string][]model.HighscoreEntry, error) {
	return s.scores.All(ctx)
}

// GetGlobalHighscores reads the remote track, of one game or of all games
// when gameID is empty. On any failure it returns an empty list together with
// ErrRemoteUnavailable.
func (s *HighscoreService) GetGlobalHighscores(ctx context.Context, gameID string) ([]model.GlobalHighscore, error) {
	if gameID != "" {
		if err := s.checkGame(gameID); err != nil {
			return []model.GlobalHighscore{}, err
		}
	}
	if s.remote == nil {
		return []model.GlobalHighscore{}, ErrRemoteUnavailable
	}

	list, err := s.remote.List(ctx, gameID)
	if err != nil {
		log.Warn().Err(err).Str("game", gameID).Msg("Global highscores could not be loaded")
		return []model.GlobalHighscore{}, fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
	}
	if list == nil {
		list = []model.GlobalHighscore{}
	}
	return list, nil
}

// CompareTracks reports each user's best score on both tracks of a game.
// Users are listed in local rank order, followed by users only the remote
// track knows, by remote score.
func (s *HighscoreService) CompareTracks(ctx context.Context, gameID string) (*model.TrackReport, error) {
	if err := s.checkGame(gameID); err != nil {
		return nil, err
	}
	local, err := s.scores.Top(ctx, gameID, 0)
	if err != nil {
		return nil, err
	}

	report := &model.TrackReport{Game: gameID, Entries: make([]model.TrackComparison, 0, len(local))}

	remoteBest := make(map[string]int64)
	remote, err := s.GetGlobalHighscores(ctx, gameID)
	if err == nil {
		report.RemoteAvailable = true
		for _, hs := range remote {
			if cur, ok := remoteBest[hs.Username]; !ok || hs.Score > cur {
				remoteBest[hs.Username] = hs.Score
			}
		}
	}

	seen := make(map[string]bool, len(local))
	for _, e := range local {
		seen[e.Username] = true
		localScore := e.Score
		c := model.TrackComparison{Username: e.Username, LocalScore: &localScore}
		if r, ok := remoteBest[e.Username]; ok {
			c.RemoteScore = &r
			c.InSync = r == localScore
		}
		report.Entries = append(report.Entries, c)
	}

	var remoteOnly []model.TrackComparison
	for name, score := range remoteBest {
		if seen[name] {
			continue
		}
		r := score
		remoteOnly = append(remoteOnly, model.TrackComparison{Username: name, RemoteScore: &r})
	}
	sort.Slice(remoteOnly, func(i, j int) bool {
		if *remoteOnly[i].RemoteScore != *remoteOnly[j].RemoteScore {
			return *remoteOnly[i].RemoteScore > *remoteOnly[j].RemoteScore
		}
		return remoteOnly[i].Username < remoteOnly[j].Username
	})
	report.Entries = append(report.Entries, remoteOnly...)

	return report, nil
}

// Close stops accepting remote submissions and waits for the in-flight ones
// until ctx expires.
func (s *HighscoreService) Close(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.pending.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("remote highscore submissions still pending: %w", ctx.Err())
	}
}

package service

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/Jay160412/jay-website/internal/model"
	"github.com/Jay160412/jay-website/internal/repository"
	"github.com/Jay160412/jay-website/internal/shop"
)

// LeaderboardService builds styled leaderboards from the local track.
type LeaderboardService struct {
	highscores *HighscoreService
	users      *repository.UserRepository
}

// NewLeaderboardService creates a new LeaderboardService instance.
func NewLeaderboardService(highscores *HighscoreService, users *repository.UserRepository) *LeaderboardService {
	return &LeaderboardService{highscores: highscores, users: users}
}

// BuildLeaderboard ranks the top entries of a game starting at 1 and attaches
// each player's active cosmetic style. Entries of users without a readable
// account keep their score and carry no style.
func (s *LeaderboardService) BuildLeaderboard(ctx context.Context, gameID string, limit int) ([]model.LeaderboardEntry, error) {
	top, err := s.highscores.GetTopHighscores(ctx, gameID, limit)
	if err != nil {
		return nil, err
	}

	names := make([]string, len(top))
	for i, e := range top {
		names[i] = e.Username
	}
	users, err := s.users.Lookup(ctx, names)
	if err != nil {
		return nil, err
	}

	board := make([]model.LeaderboardEntry, 0, len(top))
	for i, e := range top {
		entry := model.LeaderboardEntry{
			Rank:     i + 1,
			Username: e.Username,
			Score:    e.Score,
		}
		if u, ok := users[e.Username]; ok {
			entry.Style = shop.StyleFor(u.ActiveCosmetic)
		} else {
			log.Ctx(ctx).Debug().Str("game", gameID).Str("username", e.Username).Msg("Leaderboard entry has no account")
		}
		board = append(board, entry)
	}
	return board, nil
}

package service

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/Jay160412/jay-website/internal/game"
	"github.com/Jay160412/jay-website/internal/model"
)

// dailyMissions is the mission template handed to every player.
// Progress is not tracked; every fetch starts from zero.
var dailyMissions = []model.Mission{
	{ID: "mission1", Description: "Play 3 different games", Target: 3, Reward: 50},
	{ID: "mission2", Description: "Score 100 points in one game", Target: 100, Reward: 30},
	{ID: "mission3", Description: "Collect 20 coins", Target: 20, Reward: 25},
}

// MissionService turns game results into coin rewards and lists daily missions.
type MissionService struct {
	economy       *EconomyService
	games         *game.Registry
	pointsPerCoin int64
}

// NewMissionService creates a new MissionService instance.
func NewMissionService(economy *EconomyService, games *game.Registry, pointsPerCoin int64) *MissionService {
	if pointsPerCoin <= 0 {
		pointsPerCoin = 10
	}
	return &MissionService{economy: economy, games: games, pointsPerCoin: pointsPerCoin}
}

// UpdateMissionProgress rewards one coin per pointsPerCoin points of value
// and returns the number of coins granted.
func (s *MissionService) UpdateMissionProgress(ctx context.Context, username, gameID string, value int64) (int64, error) {
	if !s.games.Has(gameID) {
		return 0, ErrUnknownGame
	}

	log.Debug().
		Str("username", username).
		Str("game", gameID).
		Int64("value", value).
		Msg("Mission progress")

	if value <= 0 {
		return 0, nil
	}
	bonus := value / s.pointsPerCoin
	if bonus <= 0 {
		return 0, nil
	}

	if _, err := s.economy.UpdateCoins(ctx, username, bonus); err != nil {
		return 0, err
	}
	return bonus, nil
}

// GetDailyMissions returns the daily mission template.
func (s *MissionService) GetDailyMissions(_ context.Context, _ string) []model.Mission {
	out := make([]model.Mission, len(dailyMissions))
	copy(out, dailyMissions)
	return out
}

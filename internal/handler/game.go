package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/Jay160412/jay-website/internal/game"
	"github.com/Jay160412/jay-website/internal/model"
	"github.com/Jay160412/jay-website/internal/service"
)

// GameHandler handles game results, highscores, leaderboards and missions.
type GameHandler struct {
	gameRegistry       *game.Registry
	accountService     *service.AccountService
	highscoreService   *service.HighscoreService
	missionService     *service.MissionService
	leaderboardService *service.LeaderboardService
}

// NewGameHandler creates a new GameHandler.
func NewGameHandler(
	gameRegistry *game.Registry,
	accountService *service.AccountService,
	highscoreService *service.HighscoreService,
	missionService *service.MissionService,
	leaderboardService *service.LeaderboardService,
) *GameHandler {
	return &GameHandler{
		gameRegistry:       gameRegistry,
		accountService:     accountService,
		highscoreService:   highscoreService,
		missionService:     missionService,
		leaderboardService: leaderboardService,
	}
}

type scoreRequest struct {
	Username string `json:"username"`
	Score    int64  `json:"score"`
}

type scoreResponse struct {
	Improved bool  `json:"improved"`
	Reward   int64 `json:"reward"`
}

type progressRequest struct {
	Username string `json:"username"`
	Value    int64  `json:"value"`
}

type progressResponse struct {
	Reward int64 `json:"reward"`
}

type globalHighscoresResponse struct {
	Available  bool                    `json:"available"`
	Highscores []model.GlobalHighscore `json:"highscores"`
}

// queryLimit parses the optional limit parameter. Missing or invalid values
// yield zero, which selects the default.
func queryLimit(r *http.Request) int {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit < 0 {
		return 0
	}
	return limit
}

// HandleGames lists the game catalog.
func (h *GameHandler) HandleGames(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, map[string][]game.Info{"games": h.gameRegistry.List()})
}

// HandleSubmitScore records a finished game: the score goes to both highscore
// tracks and is converted into a coin reward. Nothing is stored for a user
// without an account.
func (h *GameHandler) HandleSubmitScore(w http.ResponseWriter, r *http.Request) {
	var req scoreRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, r, err)
		return
	}
	username := AuthenticatedUser(r.Context())
	if req.Username != "" && req.Username != username {
		WriteError(w, r, ErrForbidden)
		return
	}

	if _, err := h.accountService.GetUser(r.Context(), username); err != nil {
		WriteError(w, r, err)
		return
	}

	gameID := chi.URLParam(r, "game")
	improved, err := h.highscoreService.SaveHighscore(r.Context(), gameID, username, req.Score)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	reward, err := h.missionService.UpdateMissionProgress(r.Context(), username, gameID, req.Score)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	log.Ctx(r.Context()).Info().
		Str("game", gameID).
		Str("username", username).
		Int64("score", req.Score).
		Bool("improved", improved).
		Int64("reward", reward).
		Msg("Score submitted")

	WriteJSON(w, http.StatusOK, scoreResponse{Improved: improved, Reward: reward})
}

// HandleProgress converts a game value into a coin reward.
func (h *GameHandler) HandleProgress(w http.ResponseWriter, r *http.Request) {
	var req progressRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, r, err)
		return
	}
	username := AuthenticatedUser(r.Context())
	if req.Username != "" && req.Username != username {
		WriteError(w, r, ErrForbidden)
		return
	}

	reward, err := h.missionService.UpdateMissionProgress(r.Context(), username, chi.URLParam(r, "game"), req.Value)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, progressResponse{Reward: reward})
}

// HandleTopHighscores returns the local top list of a game.
func (h *GameHandler) HandleTopHighscores(w http.ResponseWriter, r *http.Request) {
	top, err := h.highscoreService.GetTopHighscores(r.Context(), chi.URLParam(r, "game"), queryLimit(r))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string][]model.HighscoreEntry{"highscores": top})
}

// HandleAllHighscores returns the local track of every game.
func (h *GameHandler) HandleAllHighscores(w http.ResponseWriter, r *http.Request) {
	all, err := h.highscoreService.GetAllHighscores(r.Context())
	if err != nil {
		WriteError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, all)
}

// HandleLeaderboard returns the styled leaderboard of a game.
func (h *GameHandler) HandleLeaderboard(w http.ResponseWriter, r *http.Request) {
	board, err := h.leaderboardService.BuildLeaderboard(r.Context(), chi.URLParam(r, "game"), queryLimit(r))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string][]model.LeaderboardEntry{"leaderboard": board})
}

// HandleCompareTracks reports how far the remote track lags the local one.
func (h *GameHandler) HandleCompareTracks(w http.ResponseWriter, r *http.Request) {
	report, err := h.highscoreService.CompareTracks(r.Context(), chi.URLParam(r, "game"))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, report)
}

// HandleGlobalHighscores proxies the remote track. An unreachable remote
// yields an empty list with available set to false.
func (h *GameHandler) HandleGlobalHighscores(w http.ResponseWriter, r *http.Request) {
	list, err := h.highscoreService.GetGlobalHighscores(r.Context(), r.URL.Query().Get("game"))
	switch {
	case err == nil:
		WriteJSON(w, http.StatusOK, globalHighscoresResponse{Available: true, Highscores: list})
	case errors.Is(err, service.ErrRemoteUnavailable):
		WriteJSON(w, http.StatusOK, globalHighscoresResponse{Available: false, Highscores: list})
	default:
		WriteError(w, r, err)
	}
}

// HandleDailyMissions lists the daily missions of a user.
func (h *GameHandler) HandleDailyMissions(w http.ResponseWriter, r *http.Request) {
	missions := h.missionService.GetDailyMissions(r.Context(), chi.URLParam(r, "username"))
	WriteJSON(w, http.StatusOK, map[string][]model.Mission{"missions": missions})
}

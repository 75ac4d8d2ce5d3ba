package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/Jay160412/jay-website/internal/model"
	"github.com/Jay160412/jay-website/internal/remote"
)

// Global highscore validation errors.
var (
	ErrMissingGame     = errors.New("game is required")
	ErrMissingUsername = errors.New("username is required")
	ErrNegativeScore   = errors.New("score must not be negative")
)

// GlobalHighscoreStore keeps the best score per game and username.
type GlobalHighscoreStore interface {
	Submit(ctx context.Context, game, username string, score int64) (*model.GlobalHighscore, bool, error)
	List(ctx context.Context, game string, limit int) ([]model.GlobalHighscore, error)
}

// GlobalHandler serves /api/highscores of the global highscore server.
type GlobalHandler struct {
	store      GlobalHighscoreStore
	maxResults int
}

// NewGlobalHandler creates a new GlobalHandler. Listings return at most
// maxResults rows.
func NewGlobalHandler(store GlobalHighscoreStore, maxResults int) *GlobalHandler {
	if maxResults <= 0 {
		maxResults = 100
	}
	return &GlobalHandler{store: store, maxResults: maxResults}
}

// HandleSubmit records a score.
func (h *GlobalHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	var req remote.SubmitRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteJSON(w, http.StatusBadRequest, errorResponse{Error: ErrBadRequest.Error()})
		return
	}

	req.Game = strings.TrimSpace(req.Game)
	req.Username = strings.TrimSpace(req.Username)
	switch {
	case req.Game == "":
		WriteJSON(w, http.StatusBadRequest, errorResponse{Error: ErrMissingGame.Error()})
		return
	case req.Username == "":
		WriteJSON(w, http.StatusBadRequest, errorResponse{Error: ErrMissingUsername.Error()})
		return
	case req.Score < 0:
		WriteJSON(w, http.StatusBadRequest, errorResponse{Error: ErrNegativeScore.Error()})
		return
	}

	hs, improved, err := h.store.Submit(r.Context(), req.Game, req.Username, req.Score)
	if err != nil {
		log.Ctx(r.Context()).Error().Err(err).Str("game", req.Game).Msg("Failed to store highscore")
		WriteJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to store highscore"})
		return
	}

	log.Ctx(r.Context()).Info().
		Str("game", req.Game).
		Str("username", req.Username).
		Int64("score", req.Score).
		Bool("improved", improved).
		Msg("Global highscore received")

	WriteJSON(w, http.StatusOK, remote.SubmitResponse{Success: true, Highscore: hs})
}

// HandleList lists the best scores, optionally of one game.
func (h *GlobalHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit := queryLimit(r)
	if limit == 0 || limit > h.maxResults {
		limit = h.maxResults
	}

	list, err := h.store.List(r.Context(), strings.TrimSpace(r.URL.Query().Get("game")), limit)
	if err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to list highscores")
		WriteJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to load highscores"})
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	WriteJSON(w, http.StatusOK, remote.ListResponse{Highscores: list})
}

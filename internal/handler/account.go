package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/Jay160412/jay-website/internal/service"
)

// AccountHandler handles registration, login and account lookups.
type AccountHandler struct {
	accountService *service.AccountService
	economyService *service.EconomyService
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accountService *service.AccountService, economyService *service.EconomyService) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
		economyService: economyService,
	}
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// HandleRegister creates an account and logs it in.
func (h *AccountHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, r, err)
		return
	}

	if _, err := h.accountService.Register(r.Context(), req.Username, req.Password); err != nil {
		WriteError(w, r, err)
		return
	}

	session, err := h.accountService.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, session)
}

// HandleLogin verifies the credentials and returns a session.
func (h *AccountHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, r, err)
		return
	}

	session, err := h.accountService.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		log.Ctx(r.Context()).Debug().Err(err).Str("username", req.Username).Msg("Login failed")
		WriteError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, session)
}

// HandleGetUser returns the public account record.
func (h *AccountHandler) HandleGetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.accountService.GetUser(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, user.Public())
}

// HandleGetUserData returns the balance with owned and active skins.
func (h *AccountHandler) HandleGetUserData(w http.ResponseWriter, r *http.Request) {
	data, err := h.economyService.GetUserData(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, data)
}

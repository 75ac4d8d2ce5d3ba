package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Jay160412/jay-website/internal/service"
	"github.com/Jay160412/jay-website/internal/shop"
)

// ShopHandler handles coins, cosmetics and skins.
type ShopHandler struct {
	economyService *service.EconomyService
}

// NewShopHandler creates a new ShopHandler.
func NewShopHandler(economyService *service.EconomyService) *ShopHandler {
	return &ShopHandler{economyService: economyService}
}

type coinsRequest struct {
	Delta int64 `json:"delta"`
}

type activeCosmeticRequest struct {
	CosmeticID *string `json:"cosmeticId"`
}

type activeCosmeticResponse struct {
	Updated        bool    `json:"updated"`
	ActiveCosmetic *string `json:"activeCosmetic"`
}

type selectSkinRequest struct {
	Skin string `json:"skin"`
}

// HandleCatalog lists every cosmetic and skin for sale.
func (h *ShopHandler) HandleCatalog(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, shop.GetCatalog())
}

// HandleUpdateCoins applies a signed delta to the balance.
func (h *ShopHandler) HandleUpdateCoins(w http.ResponseWriter, r *http.Request) {
	var req coinsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, r, err)
		return
	}

	user, err := h.economyService.UpdateCoins(r.Context(), chi.URLParam(r, "username"), req.Delta)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, user.Public())
}

// HandlePurchaseCosmetic buys the cosmetic named in the path.
func (h *ShopHandler) HandlePurchaseCosmetic(w http.ResponseWriter, r *http.Request) {
	user, err := h.economyService.PurchaseCosmetic(r.Context(), chi.URLParam(r, "username"), chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, user.Public())
}

// HandleSetActiveCosmetic activates an owned cosmetic, or clears the active
// one when cosmeticId is null.
func (h *ShopHandler) HandleSetActiveCosmetic(w http.ResponseWriter, r *http.Request) {
	var req activeCosmeticRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, r, err)
		return
	}

	username := chi.URLParam(r, "username")
	updated, err := h.economyService.UpdateActiveCosmetic(r.Context(), username, req.CosmeticID)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	active, err := h.economyService.GetActiveCosmetic(r.Context(), username)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, activeCosmeticResponse{Updated: updated, ActiveCosmetic: active})
}

// HandlePurchaseSkin buys a skin and makes it active.
func (h *ShopHandler) HandlePurchaseSkin(w http.ResponseWriter, r *http.Request) {
	data, err := h.economyService.PurchaseSkin(r.Context(),
		chi.URLParam(r, "username"), chi.URLParam(r, "game"), chi.URLParam(r, "skin"))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, data)
}

// HandleSelectSkin activates an owned skin.
func (h *ShopHandler) HandleSelectSkin(w http.ResponseWriter, r *http.Request) {
	var req selectSkinRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, r, err)
		return
	}

	data, err := h.economyService.SelectSkin(r.Context(), chi.URLParam(r, "username"), chi.URLParam(r, "game"), req.Skin)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, data)
}

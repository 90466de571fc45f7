package handler

import (
	"net/http"

	"potd_engine/internal/app/service"
	"potd_engine/internal/common"

	"github.com/go-chi/chi/v5"
)

// BotSecretHeader carries the chat bot's shared secret.
const BotSecretHeader = "X-Bot-Secret"

type AuthHandler struct {
	authService *service.AuthService
}

func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/token", h.token)
}

func (h *AuthHandler) token(w http.ResponseWriter, r *http.Request) {
	var req service.TokenRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := h.authService.IssueToken(r.Context(), r.Header.Get(BotSecretHeader), req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, resp)
}

package handler

import (
	"net/http"

	"potd_engine/internal/app/service"
	"potd_engine/internal/common"
	"potd_engine/internal/domain/model"

	"github.com/go-chi/chi/v5"
)

type UserHandler struct {
	userService *service.UserService
}

func NewUserHandler(us *service.UserService) *UserHandler {
	return &UserHandler{userService: us}
}

func (h *UserHandler) RegisterRoutes(r chi.Router) {
	r.Get("/me", h.me)
	r.Patch("/me", h.updateSettings)
}

func (h *UserHandler) me(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	u, err := h.userService.Me(r.Context(), uid)
	if err != nil {
		respondError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, u)
}

func (h *UserHandler) updateSettings(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var req model.UserSettings
	if !decodeJSON(w, r, &req) {
		return
	}
	u, err := h.userService.UpdateSettings(r.Context(), uid, req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, u)
}

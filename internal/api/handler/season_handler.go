package handler

import (
	"net/http"

	"potd_engine/internal/app/service"
	"potd_engine/internal/common"

	"github.com/go-chi/chi/v5"
)

type SeasonHandler struct {
	leaderboardService *service.LeaderboardService
}

func NewSeasonHandler(ls *service.LeaderboardService) *SeasonHandler {
	return &SeasonHandler{leaderboardService: ls}
}

func (h *SeasonHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.listSeasons)
	r.Get("/{seasonID}/leaderboard", h.leaderboard)
}

func (h *SeasonHandler) listSeasons(w http.ResponseWriter, r *http.Request) {
	seasons, err := h.leaderboardService.ListSeasons(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, seasons)
}

func (h *SeasonHandler) leaderboard(w http.ResponseWriter, r *http.Request) {
	seasonID, ok := int64Param(w, r, "seasonID")
	if !ok {
		return
	}
	board, err := h.leaderboardService.Leaderboard(r.Context(), seasonID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, board)
}

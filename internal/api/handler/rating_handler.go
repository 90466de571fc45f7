package handler

import (
	"net/http"

	"potd_engine/internal/app/service"
	"potd_engine/internal/common"
	"potd_engine/internal/domain/model"

	"github.com/go-chi/chi/v5"
)

type RatingHandler struct {
	ratingService *service.RatingService
}

func NewRatingHandler(rs *service.RatingService) *RatingHandler {
	return &RatingHandler{ratingService: rs}
}

func (h *RatingHandler) RegisterRoutes(r chi.Router) {
	r.Post("/pair", h.pickPair)
	r.Delete("/pair", h.cancelPair)
	r.Post("/judgment", h.judge)
}

type pairRequest struct {
	Type model.RatingType `json:"type"`
}

type judgmentRequest struct {
	Choice model.Choice `json:"choice"`
}

func (h *RatingHandler) pickPair(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var req pairRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	pair, err := h.ratingService.PickPair(r.Context(), uid, req.Type)
	if err != nil {
		respondError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, pair)
}

func (h *RatingHandler) cancelPair(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	if err := h.ratingService.CancelPair(r.Context(), uid); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *RatingHandler) judge(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var req judgmentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	delta, err := h.ratingService.SubmitJudgment(r.Context(), uid, req.Choice)
	if err != nil {
		respondError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, delta)
}

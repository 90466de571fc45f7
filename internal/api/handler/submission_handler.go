package handler

import (
	"net/http"

	"potd_engine/internal/app/service"
	"potd_engine/internal/common"
	"potd_engine/internal/domain/model"

	"github.com/go-chi/chi/v5"
)

type SubmissionHandler struct {
	submissionService *service.SubmissionService
}

func NewSubmissionHandler(ss *service.SubmissionService) *SubmissionHandler {
	return &SubmissionHandler{submissionService: ss}
}

func (h *SubmissionHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.submit)
	r.Post("/check", h.check)
}

type submitRequest struct {
	Answer string `json:"answer"`
}

type checkRequest struct {
	Problem string `json:"problem"` // id or YYYY-MM-DD
	Answer  string `json:"answer"`
}

func (h *SubmissionHandler) submit(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var req submitRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.submissionService.Submit(r.Context(), uid, req.Answer)
	if err != nil {
		respondError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, res)
}

func (h *SubmissionHandler) check(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var req checkRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	ref, err := model.ParseProblemRef(req.Problem)
	if err != nil {
		respondError(w, r, err)
		return
	}
	res, err := h.submissionService.CheckUnofficial(r.Context(), uid, ref, req.Answer)
	if err != nil {
		respondError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, res)
}

package handler

import (
	"net/http"

	"potd_engine/internal/api/middleware"
	"potd_engine/internal/app/service"
	"potd_engine/internal/common"
	"potd_engine/internal/domain/model"

	"github.com/go-chi/chi/v5"
)

type ProblemHandler struct {
	problemService *service.ProblemService
}

func NewProblemHandler(ps *service.ProblemService) *ProblemHandler {
	return &ProblemHandler{problemService: ps}
}

func (h *ProblemHandler) RegisterRoutes(r chi.Router) {
	r.Get("/{ref}", h.getProblem)                     // GET /api/v1/problems/12 or /2024-03-01
	r.Get("/{problemID}/images/{imageID}", h.getImage) // raw image bytes
}

func (h *ProblemHandler) getProblem(w http.ResponseWriter, r *http.Request) {
	ref, err := model.ParseProblemRef(chi.URLParam(r, "ref"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	// Admins can look at problems before they are made public.
	p, err := h.problemService.Resolve(r.Context(), ref, !middleware.IsAdmin(r.Context()))
	if err != nil {
		respondError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, p)
}

func (h *ProblemHandler) getImage(w http.ResponseWriter, r *http.Request) {
	problemID, ok := int64Param(w, r, "problemID")
	if !ok {
		return
	}
	imageID, ok := int64Param(w, r, "imageID")
	if !ok {
		return
	}
	img, err := h.problemService.GetImage(r.Context(), problemID, imageID, middleware.IsAdmin(r.Context()))
	if err != nil {
		respondError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", img.ContentType)
	w.WriteHeader(http.StatusOK)
	w.Write(img.Data)
}

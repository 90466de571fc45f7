package handler

import (
	"io"
	"net/http"

	"potd_engine/internal/app/service"
	"potd_engine/internal/common"
	"potd_engine/internal/domain/model"

	"github.com/go-chi/chi/v5"
)

const maxImageBytes = 8 << 20

type AdminHandler struct {
	adminService   *service.AdminService
	advanceService *service.AdvanceService
}

func NewAdminHandler(as *service.AdminService, adv *service.AdvanceService) *AdminHandler {
	return &AdminHandler{adminService: as, advanceService: adv}
}

// RegisterRoutes expects the caller to have applied Authenticator and AdminOnly.
func (h *AdminHandler) RegisterRoutes(r chi.Router) {
	r.Post("/seasons", h.newSeason)
	r.Post("/seasons/{seasonID}/start", h.startSeason)
	r.Post("/seasons/{seasonID}/end", h.endSeason)
	r.Put("/seasons/{seasonID}/cutoffs", h.setCutoffs)
	r.Post("/seasons/{seasonID}/recompute", h.recompute)

	r.Post("/problems", h.addProblem)
	r.Patch("/problems/{problemID}", h.updateProblem)
	r.Post("/problems/{problemID}/images", h.addImage)

	r.Post("/advance", h.advance)
}

// RegisterStatusRoute exposes whether an advancement is running. It needs no auth.
func (h *AdminHandler) RegisterStatusRoute(r chi.Router) {
	r.Get("/status", h.status)
}

func (h *AdminHandler) status(w http.ResponseWriter, r *http.Request) {
	common.RespondWithJSON(w, http.StatusOK, map[string]bool{"running": h.advanceService.Status()})
}

func (h *AdminHandler) newSeason(w http.ResponseWriter, r *http.Request) {
	var req service.NewSeasonRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	season, err := h.adminService.NewSeason(r.Context(), req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, season)
}

func (h *AdminHandler) startSeason(w http.ResponseWriter, r *http.Request) {
	seasonID, ok := int64Param(w, r, "seasonID")
	if !ok {
		return
	}
	season, err := h.adminService.StartSeason(r.Context(), seasonID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, season)
}

func (h *AdminHandler) endSeason(w http.ResponseWriter, r *http.Request) {
	seasonID, ok := int64Param(w, r, "seasonID")
	if !ok {
		return
	}
	season, err := h.adminService.EndSeason(r.Context(), seasonID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, season)
}

func (h *AdminHandler) setCutoffs(w http.ResponseWriter, r *http.Request) {
	seasonID, ok := int64Param(w, r, "seasonID")
	if !ok {
		return
	}
	var req model.Cutoffs
	if !decodeJSON(w, r, &req) {
		return
	}
	season, err := h.adminService.SetCutoffs(r.Context(), seasonID, req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, season)
}

func (h *AdminHandler) recompute(w http.ResponseWriter, r *http.Request) {
	seasonID, ok := int64Param(w, r, "seasonID")
	if !ok {
		return
	}
	if err := h.adminService.Recompute(r.Context(), seasonID); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) addProblem(w http.ResponseWriter, r *http.Request) {
	var req service.AddProblemRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	p, err := h.adminService.AddProblem(r.Context(), req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, p)
}

type updateProblemRequest struct {
	SeasonID  *int64  `json:"season_id"`
	Date      *string `json:"date"`
	Statement *string `json:"statement"`
	Answer    *int64  `json:"answer"`
	Public    *bool   `json:"public"`
}

func (h *AdminHandler) updateProblem(w http.ResponseWriter, r *http.Request) {
	problemID, ok := int64Param(w, r, "problemID")
	if !ok {
		return
	}
	var req updateProblemRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	date, err := service.ParseDateUpdate(req.Date)
	if err != nil {
		respondError(w, r, err)
		return
	}
	p, err := h.adminService.UpdateProblem(r.Context(), problemID, model.ProblemUpdate{
		SeasonID:  req.SeasonID,
		Date:      date,
		Statement: req.Statement,
		Answer:    req.Answer,
		Public:    req.Public,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, p)
}

// addImage takes the raw image as the request body.
func (h *AdminHandler) addImage(w http.ResponseWriter, r *http.Request) {
	problemID, ok := int64Param(w, r, "problemID")
	if !ok {
		return
	}
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxImageBytes))
	if err != nil {
		common.RespondWithError(w, http.StatusRequestEntityTooLarge, "Image too large or unreadable")
		return
	}
	img, err := h.adminService.AddImage(r.Context(), problemID, r.Header.Get("Content-Type"), data)
	if err != nil {
		respondError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, img)
}

func (h *AdminHandler) advance(w http.ResponseWriter, r *http.Request) {
	res, err := h.advanceService.Advance(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, res)
}

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/Dosada05/contest-hub/services"
)

type APIHandler struct {
	contestService services.ContestService
	*Responder
}

func NewAPIHandler(cs services.ContestService, resp *Responder) *APIHandler {
	return &APIHandler{contestService: cs, Responder: resp}
}

// Countdown godoc
// @Summary      Contest countdown
// @Description  Time left until the contest deadline, broken into days, hours, minutes and seconds. Ended contests report zeros.
// @Tags         contests
// @Produce      json
// @Param        id   path      string  true  "contest id"
// @Success      200  {object}  services.CountdownView
// @Failure      404  {object}  map[string]string
// @Failure      502  {object}  map[string]string
// @Router       /api/contests/{id}/countdown [get]
func (h *APIHandler) Countdown(w http.ResponseWriter, r *http.Request) {
	view, err := h.contestService.Countdown(r.Context(), idParam(r, "id"))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrContestNotFound), errors.Is(err, services.ErrNotFound):
			h.notFoundResponse(w, r)
		case errors.Is(err, services.ErrUpstream):
			h.logger.Warn("countdown api failed", slog.Any("error", err))
			h.errorResponse(w, r, http.StatusBadGateway, services.ErrUpstream.Error())
		default:
			h.serverErrorResponse(w, r, err)
		}
		return
	}
	if err := writeJSON(w, http.StatusOK, view, nil); err != nil {
		h.serverErrorResponse(w, r, err)
	}
}

// Health godoc
// @Summary  Liveness check
// @Tags     system
// @Produce  json
// @Success  200  {object}  map[string]string
// @Router   /healthz [get]
func (h *APIHandler) Health(w http.ResponseWriter, r *http.Request) {
	if err := writeJSON(w, http.StatusOK, jsonResponse{"status": "ok"}, nil); err != nil {
		h.serverErrorResponse(w, r, err)
	}
}

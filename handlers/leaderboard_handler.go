package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/Dosada05/contest-hub/models"
	"github.com/Dosada05/contest-hub/services"
	"github.com/Dosada05/contest-hub/views"
)

type LeaderboardHandler struct {
	leaderboardService services.LeaderboardService
	*Responder
}

func NewLeaderboardHandler(ls services.LeaderboardService, resp *Responder) *LeaderboardHandler {
	return &LeaderboardHandler{leaderboardService: ls, Responder: resp}
}

// Page обрабатывает GET /leaderboard?search=&page=
func (h *LeaderboardHandler) Page(w http.ResponseWriter, r *http.Request) {
	search := strings.TrimSpace(r.URL.Query().Get("search"))
	data := views.LeaderboardData{Search: search}

	page, err := h.leaderboardService.Leaderboard(r.Context(), search, pageParam(r))
	if err != nil {
		h.logger.Warn("leaderboard unavailable", slog.Any("error", err))
		h.renderToast(w, r, http.StatusOK, views.PageLeaderboard, "Leaderboard", data,
			&views.Flash{Kind: views.FlashError, Message: userMessage(err)})
		return
	}
	data.Entries = page.Items
	data.Pager = views.NewPager(page, "/leaderboard", r.URL.Query())
	h.render(w, r, http.StatusOK, views.PageLeaderboard, "Leaderboard", data)
}

// LeaderboardResponse is one page of the ranked winners list.
type LeaderboardResponse struct {
	Entries    []models.LeaderboardEntry `json:"entries"`
	Page       int                       `json:"page"`
	TotalPages int                       `json:"total_pages"`
	TotalItems int                       `json:"total_items"`
}

// API godoc
// @Summary      Leaderboard
// @Description  Users ranked by win count. Search filters by display name without changing ranks.
// @Tags         leaderboard
// @Produce      json
// @Param        search  query     string  false  "display name substring"
// @Param        page    query     int     false  "1-based page"
// @Success      200     {object}  LeaderboardResponse
// @Failure      502     {object}  map[string]string
// @Router       /api/leaderboard [get]
func (h *LeaderboardHandler) API(w http.ResponseWriter, r *http.Request) {
	search := strings.TrimSpace(r.URL.Query().Get("search"))
	page, err := h.leaderboardService.Leaderboard(r.Context(), search, pageParam(r))
	if err != nil {
		h.logger.Warn("leaderboard api failed", slog.Any("error", err))
		h.errorResponse(w, r, http.StatusBadGateway, userMessage(err))
		return
	}
	resp := LeaderboardResponse{
		Entries:    page.Items,
		Page:       page.Page,
		TotalPages: page.TotalPages,
		TotalItems: page.TotalItems,
	}
	if resp.Entries == nil {
		resp.Entries = []models.LeaderboardEntry{}
	}
	if err := writeJSON(w, http.StatusOK, resp, nil); err != nil {
		h.serverErrorResponse(w, r, err)
	}
}

package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/Dosada05/contest-hub/middleware"
	"github.com/Dosada05/contest-hub/models"
	"github.com/Dosada05/contest-hub/services"
	"github.com/Dosada05/contest-hub/views"
)

const (
	manageUsersPath    = "/dashboard/users"
	manageContestsPath = "/dashboard/contests"
)

type AdminHandler struct {
	adminService services.AdminService
	*Responder
}

func NewAdminHandler(as services.AdminService, resp *Responder) *AdminHandler {
	return &AdminHandler{adminService: as, Responder: resp}
}

// backToPage возвращает страницу списка, с которой отправили форму.
func backToPage(base string, r *http.Request) string {
	page := toInt(r.PostFormValue("page"), 1)
	if page <= 1 {
		return base
	}
	return base + "?page=" + strconv.Itoa(page)
}

// Users обрабатывает GET /dashboard/users?page=
func (h *AdminHandler) Users(w http.ResponseWriter, r *http.Request) {
	data := views.ManageUsersData{Roles: models.Roles}
	page, err := h.adminService.Users(r.Context(), middleware.PrincipalFromContext(r.Context()), pageParam(r))
	if err != nil {
		h.logger.Warn("user list unavailable", slog.Any("error", err))
		h.renderToast(w, r, http.StatusOK, views.PageManageUsers, "Manage Users", data,
			&views.Flash{Kind: views.FlashError, Message: userMessage(err)})
		return
	}
	data.Rows = page.Items
	data.Pager = views.NewPager(page, manageUsersPath, r.URL.Query())
	h.render(w, r, http.StatusOK, views.PageManageUsers, "Manage Users", data)
}

// ChangeRole обрабатывает POST /dashboard/users/{id}/role
func (h *AdminHandler) ChangeRole(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.redirectWithFlash(w, r, views.FlashError, "The request could not be read.", manageUsersPath)
		return
	}
	back := backToPage(manageUsersPath, r)
	role := strings.TrimSpace(r.PostFormValue("role"))

	err := h.adminService.ChangeUserRole(r.Context(), middleware.PrincipalFromContext(r.Context()), idParam(r, "id"), role)
	if err != nil {
		h.mutationFailed(w, r, err, back)
		return
	}
	h.redirectWithFlash(w, r, views.FlashSuccess, "Role updated to "+role+".", back)
}

// Contests обрабатывает GET /dashboard/contests?page=
func (h *AdminHandler) Contests(w http.ResponseWriter, r *http.Request) {
	data := views.ManageContestsData{Statuses: models.ContestStatuses}
	page, err := h.adminService.Contests(r.Context(), pageParam(r))
	if err != nil {
		h.logger.Warn("admin contest list unavailable", slog.Any("error", err))
		h.renderToast(w, r, http.StatusOK, views.PageManageContests, "Manage Contests", data,
			&views.Flash{Kind: views.FlashError, Message: userMessage(err)})
		return
	}
	data.Contests = page.Items
	data.Pager = views.NewPager(page, manageContestsPath, r.URL.Query())
	h.render(w, r, http.StatusOK, views.PageManageContests, "Manage Contests", data)
}

// ChangeStatus обрабатывает POST /dashboard/contests/{id}/status
func (h *AdminHandler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.redirectWithFlash(w, r, views.FlashError, "The request could not be read.", manageContestsPath)
		return
	}
	back := backToPage(manageContestsPath, r)
	status := models.ContestStatus(strings.TrimSpace(r.PostFormValue("status")))

	if err := h.adminService.ChangeContestStatus(r.Context(), idParam(r, "id"), status); err != nil {
		h.mutationFailed(w, r, err, back)
		return
	}
	h.redirectWithFlash(w, r, views.FlashSuccess, "Contest is now "+views.StatusLabel(status)+".", back)
}

// DeleteContest обрабатывает POST /dashboard/contests/{id}/delete (требует confirm=yes).
func (h *AdminHandler) DeleteContest(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.redirectWithFlash(w, r, views.FlashError, "The request could not be read.", manageContestsPath)
		return
	}
	back := backToPage(manageContestsPath, r)
	confirmed := r.PostFormValue("confirm") == "yes"

	if err := h.adminService.DeleteContest(r.Context(), idParam(r, "id"), confirmed); err != nil {
		h.mutationFailed(w, r, err, back)
		return
	}
	h.redirectWithFlash(w, r, views.FlashSuccess, "Contest deleted.", back)
}

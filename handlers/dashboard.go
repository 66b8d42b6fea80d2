package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Dosada05/contest-hub/middleware"
	"github.com/Dosada05/contest-hub/models"
	"github.com/Dosada05/contest-hub/services"
	"github.com/Dosada05/contest-hub/views"
	"golang.org/x/sync/errgroup"
)

// SessionIssuer re-signs the session cookie after the principal changes.
type SessionIssuer interface {
	IssueSession(session *services.Session) (string, error)
}

type DashboardHandler struct {
	userService    services.UserService
	creatorService services.CreatorService
	adminService   services.AdminService
	sessions       SessionIssuer
	uploadsEnabled bool
	*Responder
}

func NewDashboardHandler(
	us services.UserService,
	cs services.CreatorService,
	as services.AdminService,
	sessions SessionIssuer,
	uploadsEnabled bool,
	resp *Responder,
) *DashboardHandler {
	return &DashboardHandler{
		userService:    us,
		creatorService: cs,
		adminService:   as,
		sessions:       sessions,
		uploadsEnabled: uploadsEnabled,
		Responder:      resp,
	}
}

// Overview обрабатывает GET /dashboard. Набор карточек зависит от роли.
func (h *DashboardHandler) Overview(w http.ResponseWriter, r *http.Request) {
	viewer := middleware.PrincipalFromContext(r.Context())
	role, ok := middleware.RoleFromContext(r.Context())
	if !ok {
		h.renderToast(w, r, http.StatusOK, views.PageDashboard, "Dashboard", views.DashboardData{},
			&views.Flash{Kind: views.FlashError, Message: "Your account role could not be loaded."})
		return
	}

	var (
		data       views.DashboardData
		profileErr error
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		data.Profile, profileErr = h.userService.Profile(ctx, viewer)
		return nil
	})
	g.Go(func() error {
		return h.loadStats(ctx, role, viewer, &data)
	})
	statsErr := g.Wait()

	var toast *views.Flash
	if statsErr != nil || profileErr != nil {
		h.logger.Warn("dashboard overview incomplete", slog.String("role", role.String()),
			slog.Any("stats_error", statsErr), slog.Any("profile_error", profileErr))
		toast = &views.Flash{Kind: views.FlashError, Message: "Some dashboard data could not be loaded."}
	}
	h.renderToast(w, r, http.StatusOK, views.PageDashboard, "Dashboard", data, toast)
}

func (h *DashboardHandler) loadStats(ctx context.Context, role models.Role, viewer *models.Principal, data *views.DashboardData) error {
	switch role {
	case models.RoleUser:
		stats, err := h.userService.Overview(ctx, viewer)
		if err != nil {
			return err
		}
		data.User = &stats
	case models.RoleCreator:
		stats, err := h.creatorService.Overview(ctx, viewer)
		if err != nil {
			return err
		}
		data.Creator = &stats
	case models.RoleAdmin:
		stats, err := h.adminService.Stats(ctx)
		if err != nil {
			return err
		}
		data.Admin = &stats
	}
	return nil
}

// Participated обрабатывает GET /dashboard/participated-contests
func (h *DashboardHandler) Participated(w http.ResponseWriter, r *http.Request) {
	regs, err := h.userService.Participations(r.Context(), middleware.PrincipalFromContext(r.Context()))
	if err != nil {
		h.logger.Warn("participations unavailable", slog.Any("error", err))
		h.renderToast(w, r, http.StatusOK, views.PageParticipated, "Participated Contests", views.ParticipatedData{},
			&views.Flash{Kind: views.FlashError, Message: userMessage(err)})
		return
	}
	h.render(w, r, http.StatusOK, views.PageParticipated, "Participated Contests", views.ParticipatedData{Registrations: regs})
}

// Winning обрабатывает GET /dashboard/winning
func (h *DashboardHandler) Winning(w http.ResponseWriter, r *http.Request) {
	contests, err := h.userService.Winnings(r.Context(), middleware.PrincipalFromContext(r.Context()))
	if err != nil {
		h.logger.Warn("winnings unavailable", slog.Any("error", err))
		h.renderToast(w, r, http.StatusOK, views.PageWinning, "Winning Contests", views.WinningData{},
			&views.Flash{Kind: views.FlashError, Message: userMessage(err)})
		return
	}
	h.render(w, r, http.StatusOK, views.PageWinning, "Winning Contests", views.WinningData{Contests: contests})
}

// Profile обрабатывает GET /dashboard/profile
func (h *DashboardHandler) Profile(w http.ResponseWriter, r *http.Request) {
	viewer := middleware.PrincipalFromContext(r.Context())
	data := views.ProfileData{
		UploadsEnabled: h.uploadsEnabled,
		Input:          models.ProfileInput{DisplayName: viewer.DisplayName, PhotoURL: viewer.PhotoURL},
	}

	user, err := h.userService.Profile(r.Context(), viewer)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) || errors.Is(err, services.ErrNotFound) {
			h.mapServiceErrorToView(w, r, err)
			return
		}
		h.logger.Warn("profile unavailable", slog.Any("error", err))
		h.renderToast(w, r, http.StatusOK, views.PageProfile, "Profile", data,
			&views.Flash{Kind: views.FlashError, Message: userMessage(err)})
		return
	}
	data.User = user
	data.Input = models.ProfileInput{
		DisplayName: user.DisplayName,
		PhotoURL:    user.PhotoURL,
		PhoneNumber: user.PhoneNumber,
		Address:     user.Address,
	}
	h.render(w, r, http.StatusOK, views.PageProfile, "Profile", data)
}

// UpdateProfile обрабатывает POST /dashboard/profile
func (h *DashboardHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	const back = "/dashboard/profile"
	session, _ := middleware.SessionFromContext(r.Context())

	if err := parseForm(r); err != nil {
		h.redirectWithFlash(w, r, views.FlashError, "The profile form could not be read.", back)
		return
	}
	input := models.ProfileInput{
		DisplayName: r.PostFormValue("displayName"),
		PhotoURL:    r.PostFormValue("photoURL"),
		PhoneNumber: r.PostFormValue("phoneNumber"),
		Address:     r.PostFormValue("address"),
	}
	photo, closer, err := formImage(r, "photo")
	if err != nil {
		h.redirectWithFlash(w, r, views.FlashError, "The uploaded photo could not be read.", back)
		return
	}
	if closer != nil {
		defer closer.Close()
	}

	updated, err := h.userService.UpdateProfile(r.Context(), session, input, photo)
	if err != nil {
		if errors.Is(err, services.ErrValidationFailed) {
			h.render(w, r, http.StatusUnprocessableEntity, views.PageProfile, "Profile", views.ProfileData{
				Input:          input,
				UploadsEnabled: h.uploadsEnabled,
				Errors:         formErrors(err),
			})
			return
		}
		h.mutationFailed(w, r, err, back)
		return
	}

	token, err := h.sessions.IssueSession(updated)
	if err != nil {
		h.logger.Error("failed to reissue session after profile update", slog.Any("error", err))
	} else {
		middleware.SetSessionCookie(w, r, token, updated)
	}
	h.redirectWithFlash(w, r, views.FlashSuccess, "Profile updated.", back)
}

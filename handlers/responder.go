package handlers

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Dosada05/contest-hub/middleware"
	"github.com/Dosada05/contest-hub/models"
	"github.com/Dosada05/contest-hub/services"
	"github.com/Dosada05/contest-hub/views"
)

const flashCookieName = "contesthub_flash"

// Renderer is satisfied by *views.Renderer.
type Renderer interface {
	Render(w io.Writer, name string, page views.Page) error
}

// Responder рендерит страницы и переводит ошибки сервисов в представления. Один на все обработчики.
type Responder struct {
	views  Renderer
	logger *slog.Logger
}

func NewResponder(renderer Renderer, logger *slog.Logger) *Responder {
	return &Responder{views: renderer, logger: logger}
}

func (h *Responder) render(w http.ResponseWriter, r *http.Request, status int, name, title string, data any) {
	h.renderToast(w, r, status, name, title, data, nil)
}

// renderToast рендерит страницу. toast, если задан, важнее flash от предыдущего запроса.
func (h *Responder) renderToast(w http.ResponseWriter, r *http.Request, status int, name, title string, data any, toast *views.Flash) {
	role, _ := middleware.RoleFromContext(r.Context())
	page := views.Page{
		Title:       title,
		Principal:   middleware.PrincipalFromContext(r.Context()),
		Role:        role,
		Flash:       popFlash(w, r),
		CurrentPath: r.URL.Path,
		Data:        data,
	}
	if toast != nil {
		page.Flash = toast
	}
	if page.Principal != nil && isDashboardPath(r.URL.Path) {
		page.Nav = DashboardNav(role, r.URL.Path)
	}

	var buf bytes.Buffer
	if err := h.views.Render(&buf, name, page); err != nil {
		h.logger.Error("failed to render view", slog.String("view", name), slog.String("path", r.URL.Path), slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.Debug("failed to write page", slog.String("path", r.URL.Path), slog.Any("error", err))
	}
}

func isDashboardPath(path string) bool {
	return path == "/dashboard" || strings.HasPrefix(path, "/dashboard/")
}

// DashboardNav is the sidebar for a role. Without a resolved role only the shared entries are shown.
func DashboardNav(role models.Role, current string) []views.NavItem {
	items := []views.NavItem{{Label: "Dashboard", Href: "/dashboard"}}
	switch role {
	case models.RoleUser:
		items = append(items,
			views.NavItem{Label: "Participated Contests", Href: "/dashboard/participated-contests"},
			views.NavItem{Label: "Winning Contests", Href: "/dashboard/winning"},
		)
	case models.RoleCreator:
		items = append(items,
			views.NavItem{Label: "Add Contest", Href: "/dashboard/add-contest"},
			views.NavItem{Label: "My Contests", Href: "/dashboard/my-contests"},
		)
	case models.RoleAdmin:
		items = append(items,
			views.NavItem{Label: "Manage Users", Href: "/dashboard/users"},
			views.NavItem{Label: "Manage Contests", Href: "/dashboard/contests"},
		)
	}
	items = append(items, views.NavItem{Label: "Profile", Href: "/dashboard/profile"})

	for i := range items {
		href := items[i].Href
		items[i].Active = current == href || (href != "/dashboard" && strings.HasPrefix(current, href+"/"))
	}
	return items
}

// Forbidden рендерит 403. Его напрямую используют проверки ролей.
func (h *Responder) Forbidden(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusForbidden, views.PageForbidden, "Forbidden", nil)
}

func (h *Responder) NotFound(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusNotFound, views.PageNotFound, "Not Found", nil)
}

func (h *Responder) errorPage(w http.ResponseWriter, r *http.Request, status int, message string) {
	h.render(w, r, status, views.PageError, "Error", views.ErrorData{Status: status, Message: message})
}

func (h *Responder) redirect(w http.ResponseWriter, r *http.Request, to string) {
	http.Redirect(w, r, to, http.StatusSeeOther)
}

// redirectWithFlash сохраняет toast для следующей страницы и перенаправляет на неё.
func (h *Responder) redirectWithFlash(w http.ResponseWriter, r *http.Request, kind, message, to string) {
	setFlash(w, r, views.Flash{Kind: kind, Message: message})
	h.redirect(w, r, to)
}

// mapServiceErrorToView обрабатывает ошибки чтения страницы, когда вместо ресурса
// показать нечего.
func (h *Responder) mapServiceErrorToView(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound),
		errors.Is(err, services.ErrContestNotFound),
		errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrSubmissionNotFound):
		h.NotFound(w, r)

	case errors.Is(err, services.ErrAuthenticationRequired),
		errors.Is(err, services.ErrInvalidSession):
		middleware.ClearSessionCookie(w, r)
		h.redirect(w, r, middleware.LoginURL(r.URL.RequestURI()))

	case errors.Is(err, services.ErrForbiddenOperation),
		errors.Is(err, services.ErrRoleUnresolved):
		h.Forbidden(w, r)

	case errors.Is(err, services.ErrContestNotEditable):
		h.errorPage(w, r, http.StatusConflict, err.Error())

	case errors.Is(err, services.ErrUpstream):
		h.logger.Warn("upstream read failed", slog.String("path", r.URL.Path), slog.Any("error", err))
		h.errorPage(w, r, http.StatusBadGateway, services.ErrUpstream.Error())

	default:
		h.logger.Error("unhandled page error", slog.String("method", r.Method), slog.String("path", r.URL.Path), slog.Any("error", err))
		h.errorPage(w, r, http.StatusInternalServerError, "Something went wrong.")
	}
}

// mutationFailed сообщает о неудачном действии toast-ом на исходной странице.
// Кэш не сброшен, страница покажет то, что всё ещё хранит API.
func (h *Responder) mutationFailed(w http.ResponseWriter, r *http.Request, err error, back string) {
	switch {
	case errors.Is(err, services.ErrAuthenticationRequired),
		errors.Is(err, services.ErrInvalidSession):
		middleware.ClearSessionCookie(w, r)
		h.redirect(w, r, middleware.LoginURL(back))
		return
	case errors.Is(err, services.ErrForbiddenOperation):
		h.Forbidden(w, r)
		return
	}

	kind := views.FlashError
	if errors.Is(err, services.ErrRequestInFlight) || errors.Is(err, services.ErrWinCountNotUpdated) {
		kind = views.FlashWarning
	}
	level := slog.LevelWarn
	if userMessage(err) == genericFailureMessage {
		level = slog.LevelError
	}
	h.logger.Log(r.Context(), level, "action failed", slog.String("method", r.Method), slog.String("path", r.URL.Path), slog.Any("error", err))
	h.redirectWithFlash(w, r, kind, userMessage(err), back)
}

const genericFailureMessage = "Something went wrong, please try again."

// publicErrors ошибки сервисов, текст которых показывается пользователю как есть.
var publicErrors = []error{
	services.ErrContestEnded,
	services.ErrWinnerAlreadyDeclared,
	services.ErrAlreadyRegistered,
	services.ErrPaymentNotConfirmed,
	services.ErrAlreadySubmitted,
	services.ErrSubmissionLinkRequired,
	services.ErrSubmissionNotFound,
	services.ErrContestNotEditable,
	services.ErrInvalidContestStatus,
	services.ErrInvalidRole,
	services.ErrConfirmationRequired,
	services.ErrRequestInFlight,
	services.ErrMissingSessionID,
	services.ErrInvalidCredentials,
	services.ErrEmailTaken,
	services.ErrWeakPassword,
	services.ErrSelfRoleChange,
	services.ErrAdminRoleLocked,
	services.ErrWinCountNotUpdated,
	services.ErrUploadsUnavailable,
	services.ErrFederatedUnavailable,
	services.ErrContestNotFound,
	services.ErrUserNotFound,
	services.ErrNotFound,
	services.ErrUpstream,
}

func userMessage(err error) string {
	var verr *services.ValidationError
	if errors.As(err, &verr) {
		return firstFieldMessage(verr)
	}
	for _, known := range publicErrors {
		if errors.Is(err, known) {
			return capitalize(known.Error())
		}
	}
	return genericFailureMessage
}

func firstFieldMessage(verr *services.ValidationError) string {
	best := ""
	for field := range verr.Fields {
		if best == "" || field < best {
			best = field
		}
	}
	if best == "" {
		return "Please check the form."
	}
	return capitalize(verr.Fields[best])
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// formErrors splits an error into per-field messages and a form-level alert.
func formErrors(err error) views.FormErrors {
	var verr *services.ValidationError
	if errors.As(err, &verr) {
		return views.FormErrors{Fields: verr.Fields}
	}
	return views.FormErrors{Alert: userMessage(err)}
}

func setFlash(w http.ResponseWriter, r *http.Request, f views.Flash) {
	raw, err := json.Marshal(f)
	if err != nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    base64.RawURLEncoding.EncodeToString(raw),
		Path:     "/",
		MaxAge:   60,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

// popFlash читает одноразовый toast и удаляет его. Битая кука отбрасывается.
func popFlash(w http.ResponseWriter, r *http.Request) *views.Flash {
	cookie, err := r.Cookie(flashCookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}
	http.SetCookie(w, &http.Cookie{Name: flashCookieName, Value: "", Path: "/", MaxAge: -1, HttpOnly: true, SameSite: http.SameSiteLaxMode})

	raw, err := base64.RawURLEncoding.DecodeString(cookie.Value)
	if err != nil {
		return nil
	}
	var f views.Flash
	if err := json.Unmarshal(raw, &f); err != nil || f.Message == "" {
		return nil
	}
	switch f.Kind {
	case views.FlashSuccess, views.FlashError, views.FlashWarning:
	default:
		f.Kind = views.FlashError
	}
	return &f
}

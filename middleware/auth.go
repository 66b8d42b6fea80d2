package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Dosada05/contest-hub/models"
	"github.com/Dosada05/contest-hub/repositories"
	"github.com/Dosada05/contest-hub/services"
)

const SessionCookieName = "contesthub_session"

// SessionParser validates the session cookie value and keeps its ID token fresh.
type SessionParser interface {
	ParseSession(token string) (*services.Session, error)
	RefreshSession(ctx context.Context, session *services.Session) (*services.Session, string, error)
}

// LoadSession кладёт в запрос контекст пользователя. Без куки запрос анонимный,
// невалидная кука к тому же удаляется.
// ID-токен сессии уходит во все вызовы API этого запроса как bearer.
func LoadSession(parser SessionParser, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				next.ServeHTTP(w, r)
				return
			}
			session, err := parser.ParseSession(cookie.Value)
			if err != nil {
				logger.Debug("discarding invalid session cookie", slog.Any("error", err))
				ClearSessionCookie(w, r)
				next.ServeHTTP(w, r)
				return
			}

			refreshed, token, err := parser.RefreshSession(r.Context(), session)
			switch {
			case errors.Is(err, services.ErrInvalidSession):
				logger.Info("session dropped: identity token could not be refreshed",
					slog.String("email", session.Principal.Email), slog.Any("error", err))
				ClearSessionCookie(w, r)
				next.ServeHTTP(w, r)
				return
			case err != nil:
				// провайдер недоступен: идём со старым токеном, API сам решит
				logger.Warn("identity token refresh failed", slog.String("email", session.Principal.Email), slog.Any("error", err))
			default:
				session = refreshed
				if token != "" {
					SetSessionCookie(w, r, token, session)
				}
			}

			ctx := WithSession(r.Context(), session)
			ctx = repositories.WithBearer(ctx, session.IDToken)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func SetSessionCookie(w http.ResponseWriter, r *http.Request, token string, session *services.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

func ClearSessionCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

// PrivateRoute отправляет анонимов на страницу входа. Для GET запоминает, куда
// они шли.
func PrivateRoute(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := SessionFromContext(r.Context()); !ok {
			from := "/"
			if r.Method == http.MethodGet || r.Method == http.MethodHead {
				from = r.URL.RequestURI()
			}
			http.Redirect(w, r, LoginURL(from), http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RoleResolver is satisfied by services.RoleResolver.
type RoleResolver = services.RoleResolver

// Guards закрывают поддеревья маршрутов по роли пользователя.
type Guards struct {
	resolver  RoleResolver
	forbidden http.Handler
	logger    *slog.Logger
}

func NewGuards(resolver RoleResolver, forbidden http.Handler, logger *slog.Logger) *Guards {
	return &Guards{resolver: resolver, forbidden: forbidden, logger: logger}
}

func (g *Guards) UserRoute(next http.Handler) http.Handler {
	return g.require(models.RoleUser)(next)
}

func (g *Guards) CreatorRoute(next http.Handler) http.Handler {
	return g.require(models.RoleCreator)(next)
}

func (g *Guards) AdminRoute(next http.Handler) http.Handler {
	return g.require(models.RoleAdmin)(next)
}

// ResolveRole кладёт роль в контекст, если её удалось определить, и никогда не
// блокирует запрос. Нужен там, где от роли зависит навигация.
func (g *Guards) ResolveRole(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal := PrincipalFromContext(r.Context())
		if principal == nil {
			next.ServeHTTP(w, r)
			return
		}
		role, err := g.resolver.Resolve(r.Context(), *principal)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithRole(r.Context(), role)))
	})
}

// require пропускает запрос только при роли want. Неопределённая роль значит
// отказ в доступе.
func (g *Guards) require(want models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return PrivateRoute(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := PrincipalFromContext(r.Context())
			role, ok := RoleFromContext(r.Context())
			if !ok {
				resolved, err := g.resolver.Resolve(r.Context(), *principal)
				if err != nil {
					g.logger.Warn("role guard denied access: role unresolved",
						slog.String("path", r.URL.Path), slog.String("email", principal.Email), slog.Any("error", err))
					g.forbidden.ServeHTTP(w, r)
					return
				}
				role = resolved
			}
			if role != want {
				g.logger.Info("role guard denied access",
					slog.String("path", r.URL.Path), slog.String("role", role.String()), slog.String("required", want.String()))
				g.forbidden.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithRole(r.Context(), role)))
		}))
	}
}

package middleware

import (
	"context"
	"net/url"
	"strings"

	"github.com/Dosada05/contest-hub/models"
	"github.com/Dosada05/contest-hub/services"
)

type contextKey string

const (
	sessionContextKey contextKey = "session"
	roleContextKey    contextKey = "role"
)

func WithSession(ctx context.Context, session *services.Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, session)
}

func SessionFromContext(ctx context.Context) (*services.Session, bool) {
	session, ok := ctx.Value(sessionContextKey).(*services.Session)
	return session, ok && session != nil
}

// PrincipalFromContext возвращает вошедшего пользователя или nil для анонима.
func PrincipalFromContext(ctx context.Context) *models.Principal {
	session, ok := SessionFromContext(ctx)
	if !ok {
		return nil
	}
	p := session.Principal
	return &p
}

func WithRole(ctx context.Context, role models.Role) context.Context {
	return context.WithValue(ctx, roleContextKey, role)
}

func RoleFromContext(ctx context.Context) (models.Role, bool) {
	role, ok := ctx.Value(roleContextKey).(models.Role)
	return role, ok
}

// SafeRedirectPath принимает только относительные пути своего сайта, иначе "/".
func SafeRedirectPath(raw string) string {
	if raw == "" || !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || strings.HasPrefix(raw, "/\\") {
		return "/"
	}
	u, err := url.Parse(raw)
	if err != nil || u.IsAbs() || u.Host != "" {
		return "/"
	}
	return raw
}

// LoginURL builds the login link that brings the user back to from after signing in.
func LoginURL(from string) string {
	from = SafeRedirectPath(from)
	if from == "/" {
		return "/auth/login"
	}
	return "/auth/login?redirect=" + url.QueryEscape(from)
}

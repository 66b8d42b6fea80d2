package handlers

import (
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/Dosada05/contest-hub/middleware"
	"github.com/Dosada05/contest-hub/services"
	"github.com/Dosada05/contest-hub/views"
	"github.com/google/uuid"
)

const (
	oauthStateCookieName = "contesthub_oauth_state"
	oauthStateMaxAge     = 10 * 60
)

type AuthHandler struct {
	authService services.AuthService
	*Responder
}

func NewAuthHandler(authService services.AuthService, resp *Responder) *AuthHandler {
	return &AuthHandler{authService: authService, Responder: resp}
}

// redirectTarget куда вести браузер после входа. Пустое значение значит главная.
func redirectTarget(raw string) string {
	target := middleware.SafeRedirectPath(strings.TrimSpace(raw))
	if strings.HasPrefix(target, "/auth/") {
		return "/"
	}
	return target
}

func (h *AuthHandler) signedIn(w http.ResponseWriter, r *http.Request, to string) bool {
	if _, ok := middleware.SessionFromContext(r.Context()); ok {
		h.redirect(w, r, redirectTarget(to))
		return true
	}
	return false
}

func (h *AuthHandler) googleEnabled() bool {
	return h.authService != nil && h.authService.GoogleEnabled()
}

func authStatus(err error) int {
	switch {
	case errors.Is(err, services.ErrValidationFailed):
		return http.StatusUnprocessableEntity
	case errors.Is(err, services.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, services.ErrEmailTaken):
		return http.StatusConflict
	case errors.Is(err, services.ErrWeakPassword):
		return http.StatusUnprocessableEntity
	}
	return http.StatusBadGateway
}

// LoginForm обрабатывает GET /auth/login
func (h *AuthHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	redirect := r.URL.Query().Get("redirect")
	if h.signedIn(w, r, redirect) {
		return
	}
	h.render(w, r, http.StatusOK, views.PageLogin, "Login", views.LoginData{
		Redirect: redirectTarget(redirect),
		Google:   h.googleEnabled(),
	})
}

// Login обрабатывает POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.render(w, r, http.StatusBadRequest, views.PageLogin, "Login", views.LoginData{Errors: views.FormErrors{Alert: "The form could not be read."}})
		return
	}
	input := services.LoginInput{
		Email:    strings.TrimSpace(r.PostFormValue("email")),
		Password: r.PostFormValue("password"),
	}
	redirect := redirectTarget(r.PostFormValue("redirect"))

	session, token, err := h.authService.SignIn(r.Context(), input)
	if err != nil {
		h.logger.Info("sign in failed", slog.String("email", input.Email), slog.Any("error", err))
		h.render(w, r, authStatus(err), views.PageLogin, "Login", views.LoginData{
			Email:    input.Email,
			Redirect: redirect,
			Google:   h.googleEnabled(),
			Errors:   formErrors(err),
		})
		return
	}

	middleware.SetSessionCookie(w, r, token, session)
	h.logger.Info("user signed in", slog.String("email", session.Principal.Email))
	h.redirectWithFlash(w, r, views.FlashSuccess, "Welcome back, "+session.Principal.DisplayName+"!", redirect)
}

// RegisterForm обрабатывает GET /auth/register
func (h *AuthHandler) RegisterForm(w http.ResponseWriter, r *http.Request) {
	redirect := r.URL.Query().Get("redirect")
	if h.signedIn(w, r, redirect) {
		return
	}
	h.render(w, r, http.StatusOK, views.PageRegister, "Register", views.RegisterData{
		Redirect: redirectTarget(redirect),
		Google:   h.googleEnabled(),
	})
}

// Register обрабатывает POST /auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.render(w, r, http.StatusBadRequest, views.PageRegister, "Register", views.RegisterData{Errors: views.FormErrors{Alert: "The form could not be read."}})
		return
	}
	input := services.RegisterInput{
		Name:     r.PostFormValue("name"),
		Email:    r.PostFormValue("email"),
		Password: r.PostFormValue("password"),
		PhotoURL: r.PostFormValue("photo"),
	}
	redirect := redirectTarget(r.PostFormValue("redirect"))

	session, token, err := h.authService.Register(r.Context(), input)
	if err != nil {
		h.logger.Info("registration failed", slog.String("email", input.Email), slog.Any("error", err))
		h.render(w, r, authStatus(err), views.PageRegister, "Register", views.RegisterData{
			Name:     input.Name,
			Email:    input.Email,
			PhotoURL: input.PhotoURL,
			Redirect: redirect,
			Google:   h.googleEnabled(),
			Errors:   formErrors(err),
		})
		return
	}

	middleware.SetSessionCookie(w, r, token, session)
	h.logger.Info("user registered", slog.String("email", session.Principal.Email))
	h.redirectWithFlash(w, r, views.FlashSuccess, "Your account is ready. Welcome to ContestHub!", redirect)
}

// GoogleStart обрабатывает GET /auth/google
func (h *AuthHandler) GoogleStart(w http.ResponseWriter, r *http.Request) {
	redirect := r.URL.Query().Get("redirect")
	if h.signedIn(w, r, redirect) {
		return
	}
	if !h.googleEnabled() {
		h.NotFound(w, r)
		return
	}
	state := uuid.NewString()
	authURL, err := h.authService.GoogleAuthURL(state)
	if err != nil {
		h.NotFound(w, r)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookieName,
		Value:    url.Values{"s": {state}, "r": {redirectTarget(redirect)}}.Encode(),
		Path:     "/auth/google",
		MaxAge:   oauthStateMaxAge,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, authURL, http.StatusFound)
}

// popOAuthState читает и сразу удаляет куку со state, один state на одну попытку.
func popOAuthState(w http.ResponseWriter, r *http.Request) url.Values {
	c, err := r.Cookie(oauthStateCookieName)
	if err != nil {
		return nil
	}
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookieName,
		Value:    "",
		Path:     "/auth/google",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	saved, err := url.ParseQuery(c.Value)
	if err != nil {
		return nil
	}
	return saved
}

// GoogleCallback обрабатывает GET /auth/google/callback
func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	saved := popOAuthState(w, r)
	redirect := redirectTarget(saved.Get("r"))
	back := middleware.LoginURL(redirect)

	if reason := q.Get("error"); reason != "" {
		h.logger.Info("google sign-in cancelled", slog.String("reason", reason))
		h.redirectWithFlash(w, r, views.FlashWarning, "Google sign-in was cancelled.", back)
		return
	}
	state, want := q.Get("state"), saved.Get("s")
	if state == "" || want == "" || subtle.ConstantTimeCompare([]byte(state), []byte(want)) != 1 {
		h.logger.Warn("google sign-in state mismatch", slog.String("remote_addr", r.RemoteAddr))
		h.redirectWithFlash(w, r, views.FlashError, "Google sign-in could not be verified, please try again.", back)
		return
	}

	session, token, err := h.authService.SignInWithGoogle(r.Context(), q.Get("code"))
	if err != nil {
		h.logger.Info("google sign-in failed", slog.Any("error", err))
		h.redirectWithFlash(w, r, views.FlashError, userMessage(err), back)
		return
	}

	middleware.SetSessionCookie(w, r, token, session)
	h.logger.Info("user signed in with google", slog.String("email", session.Principal.Email))
	h.redirectWithFlash(w, r, views.FlashSuccess, "Welcome, "+session.Principal.DisplayName+"!", redirect)
}

// ForgotPasswordForm обрабатывает GET /auth/forgot-password
func (h *AuthHandler) ForgotPasswordForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, views.PageForgotPassword, "Reset password", views.ForgotPasswordData{})
}

// ForgotPassword обрабатывает POST /auth/forgot-password
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.render(w, r, http.StatusBadRequest, views.PageForgotPassword, "Reset password",
			views.ForgotPasswordData{Errors: views.FormErrors{Alert: "The form could not be read."}})
		return
	}
	email := strings.TrimSpace(r.PostFormValue("email"))

	if err := h.authService.SendPasswordReset(r.Context(), email); err != nil {
		h.logger.Info("password reset failed", slog.String("email", email), slog.Any("error", err))
		h.render(w, r, authStatus(err), views.PageForgotPassword, "Reset password",
			views.ForgotPasswordData{Email: email, Errors: formErrors(err)})
		return
	}
	h.render(w, r, http.StatusOK, views.PageForgotPassword, "Reset password", views.ForgotPasswordData{Email: email, Sent: true})
}

// Logout обрабатывает POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if p := middleware.PrincipalFromContext(r.Context()); p != nil {
		h.logger.Info("user signed out", slog.String("email", p.Email))
	}
	middleware.ClearSessionCookie(w, r)
	h.redirectWithFlash(w, r, views.FlashSuccess, "You have been signed out.", "/")
}

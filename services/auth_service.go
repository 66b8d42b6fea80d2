package services

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/Dosada05/contest-hub/models"
	"github.com/Dosada05/contest-hub/repositories"
	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/hkdf"
)

const (
	sessionIssuer    = "contest-hub"
	minPasswordChars = 6

	// ID-токен обновляется заранее, чтобы не истёк посреди запроса к API.
	tokenRefreshWindow = 5 * time.Minute
)

// Session is the identity context carried by the session cookie.
// ExpiresAt ограничивает саму сессию, TokenExpiresAt только IDToken.
type Session struct {
	Principal      models.Principal
	IDToken        string
	RefreshToken   string
	TokenExpiresAt time.Time
	ExpiresAt      time.Time
}

type AuthService interface {
	SignIn(ctx context.Context, input LoginInput) (*Session, string, error)
	Register(ctx context.Context, input RegisterInput) (*Session, string, error)
	SendPasswordReset(ctx context.Context, email string) error
	ParseSession(token string) (*Session, error)
	IssueSession(session *Session) (string, error)
	// RefreshSession returns the session unchanged and an empty token while the ID token
	// is fresh. Otherwise it refreshes the token and returns a new cookie value.
	RefreshSession(ctx context.Context, session *Session) (*Session, string, error)

	GoogleEnabled() bool
	GoogleAuthURL(state string) (string, error)
	SignInWithGoogle(ctx context.Context, code string) (*Session, string, error)
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
	PhotoURL string
}

type LoginInput struct {
	Email    string
	Password string
}

type sessionClaims struct {
	jwt.RegisteredClaims
	Email    string `json:"email"`
	Name     string `json:"name"`
	Photo    string `json:"photo,omitempty"`
	IDToken  string `json:"idt,omitempty"`
	Refresh  string `json:"rt,omitempty"`
	TokenExp int64  `json:"texp,omitempty"`
}

type authService struct {
	identity   repositories.IdentityProvider
	userRepo   repositories.UserRepository
	google     repositories.FederatedProvider
	signingKey []byte
	ttl        time.Duration
	now        func() time.Time
	logger     *slog.Logger
}

// NewAuthService builds the auth service. google may be nil when federated sign-in
// is not configured.
func NewAuthService(
	identity repositories.IdentityProvider,
	userRepo repositories.UserRepository,
	google repositories.FederatedProvider,
	secret string,
	ttl time.Duration,
	logger *slog.Logger,
) (AuthService, error) {
	key, err := deriveKey(secret, "session-signing")
	if err != nil {
		return nil, err
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &authService{
		identity:   identity,
		userRepo:   userRepo,
		google:     google,
		signingKey: key,
		ttl:        ttl,
		now:        time.Now,
		logger:     logger,
	}, nil
}

// deriveKey выводит из секрета 32-байтный ключ под конкретное назначение.
func deriveKey(secret, purpose string) ([]byte, error) {
	if secret == "" {
		return nil, errors.New("session secret is required")
	}
	key := make([]byte, 32)
	r := hkdf.New(sha256.New, []byte(secret), []byte(sessionIssuer), []byte(purpose))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("failed to derive %s key: %w", purpose, err)
	}
	return key, nil
}

func (s *authService) SignIn(ctx context.Context, input LoginInput) (*Session, string, error) {
	email := strings.TrimSpace(input.Email)
	if email == "" || input.Password == "" {
		return nil, "", &ValidationError{Fields: map[string]string{"email": "email and password are required"}}
	}

	identity, err := s.identity.SignIn(ctx, email, input.Password)
	if err != nil {
		return nil, "", mapIdentityError(err)
	}
	return s.startSession(identity)
}

func (s *authService) Register(ctx context.Context, input RegisterInput) (*Session, string, error) {
	v := validator{}
	input.Name = strings.TrimSpace(input.Name)
	input.Email = strings.TrimSpace(input.Email)
	input.PhotoURL = strings.TrimSpace(input.PhotoURL)
	v.check(input.Name != "", "name", "name is required")
	_, mailErr := mail.ParseAddress(input.Email)
	v.check(input.Email != "" && mailErr == nil, "email", "a valid email is required")
	v.check(len(input.Password) >= minPasswordChars, "password", fmt.Sprintf("password must be at least %d characters", minPasswordChars))
	if err := v.err(); err != nil {
		return nil, "", err
	}

	identity, err := s.identity.SignUp(ctx, input.Email, input.Password, input.Name, input.PhotoURL)
	if err != nil {
		return nil, "", mapIdentityError(err)
	}

	if err := s.createProfile(ctx, identity, models.NewUserInput{
		DisplayName: input.Name,
		Email:       input.Email,
		PhotoURL:    input.PhotoURL,
	}); err != nil {
		return nil, "", err
	}
	return s.startSession(identity)
}

// createProfile записывает пользователя в API. Сессии ещё нет, поэтому
// токен только что созданного аккаунта кладётся в контекст здесь.
func (s *authService) createProfile(ctx context.Context, identity *repositories.IdentitySession, input models.NewUserInput) error {
	apiCtx := repositories.WithBearer(ctx, identity.IDToken)
	if err := s.userRepo.Create(apiCtx, input); err != nil {
		// аккаунт у провайдера уже есть, запись профиля создастся при следующей попытке
		s.logger.Error("failed to create user profile record", slog.String("email", input.Email), slog.Any("error", err))
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	return nil
}

func (s *authService) GoogleEnabled() bool {
	return s.google != nil
}

func (s *authService) GoogleAuthURL(state string) (string, error) {
	if s.google == nil {
		return "", ErrFederatedUnavailable
	}
	return s.google.AuthCodeURL(state), nil
}

// SignInWithGoogle завершает OAuth: code -> Google ID-токен -> сессия провайдера
// идентификации -> запись пользователя в API (повторный вход допустим).
func (s *authService) SignInWithGoogle(ctx context.Context, code string) (*Session, string, error) {
	if s.google == nil {
		return nil, "", ErrFederatedUnavailable
	}
	if strings.TrimSpace(code) == "" {
		return nil, "", ErrInvalidCredentials
	}
	googleToken, err := s.google.Exchange(ctx, code)
	if err != nil {
		return nil, "", mapIdentityError(err)
	}
	identity, err := s.identity.SignInWithIDP(ctx, s.google.ProviderID(), googleToken, s.google.RedirectURL())
	if err != nil {
		return nil, "", mapIdentityError(err)
	}
	if err := s.createProfile(ctx, identity, models.NewUserInput{
		DisplayName: identity.Principal.DisplayName,
		Email:       identity.Principal.Email,
		PhotoURL:    identity.Principal.PhotoURL,
	}); err != nil {
		return nil, "", err
	}
	s.logger.Info("federated sign-in", slog.String("provider", s.google.ProviderID()), slog.String("email", identity.Principal.Email))
	return s.startSession(identity)
}

func (s *authService) RefreshSession(ctx context.Context, session *Session) (*Session, string, error) {
	if session.TokenExpiresAt.IsZero() || s.now().Add(tokenRefreshWindow).Before(session.TokenExpiresAt) {
		return session, "", nil
	}
	if session.RefreshToken == "" {
		return nil, "", ErrInvalidSession
	}
	identity, err := s.identity.Refresh(ctx, session.RefreshToken)
	if err != nil {
		if errors.Is(err, repositories.ErrIdentityTokenRevoked) {
			return nil, "", fmt.Errorf("%w: %v", ErrInvalidSession, err)
		}
		return nil, "", mapIdentityError(err)
	}

	refreshed := *session
	refreshed.IDToken = identity.IDToken
	refreshed.TokenExpiresAt = identity.ExpiresAt
	if identity.RefreshToken != "" {
		refreshed.RefreshToken = identity.RefreshToken
	}
	token, err := s.IssueSession(&refreshed)
	if err != nil {
		return nil, "", err
	}
	s.logger.Debug("identity token refreshed", slog.String("email", session.Principal.Email))
	return &refreshed, token, nil
}

func (s *authService) SendPasswordReset(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return &ValidationError{Fields: map[string]string{"email": "a valid email is required"}}
	}
	if err := s.identity.SendPasswordReset(ctx, email); err != nil {
		return mapIdentityError(err)
	}
	return nil
}

func (s *authService) startSession(identity *repositories.IdentitySession) (*Session, string, error) {
	session := &Session{
		Principal:      identity.Principal,
		IDToken:        identity.IDToken,
		RefreshToken:   identity.RefreshToken,
		TokenExpiresAt: identity.ExpiresAt,
		ExpiresAt:      s.now().Add(s.ttl),
	}
	token, err := s.IssueSession(session)
	if err != nil {
		return nil, "", err
	}
	return session, token, nil
}

func (s *authService) IssueSession(session *Session) (string, error) {
	now := s.now()
	expires := session.ExpiresAt
	if expires.IsZero() {
		expires = now.Add(s.ttl)
	}
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    sessionIssuer,
			Subject:   session.Principal.UID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
		Email:   session.Principal.Email,
		Name:    session.Principal.DisplayName,
		Photo:   session.Principal.PhotoURL,
		IDToken: session.IDToken,
		Refresh: session.RefreshToken,
	}
	if !session.TokenExpiresAt.IsZero() {
		claims.TokenExp = session.TokenExpiresAt.Unix()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

func (s *authService) ParseSession(tokenString string) (*Session, error) {
	if tokenString == "" {
		return nil, ErrInvalidSession
	}
	var claims sessionClaims
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	_, err := parser.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (interface{}, error) {
		return s.signingKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	if claims.Issuer != sessionIssuer || claims.Email == "" || claims.ExpiresAt == nil {
		return nil, ErrInvalidSession
	}
	if !claims.ExpiresAt.Time.After(s.now()) {
		return nil, ErrInvalidSession
	}

	session := &Session{
		Principal: models.Principal{
			UID:         claims.Subject,
			Email:       claims.Email,
			DisplayName: claims.Name,
			PhotoURL:    claims.Photo,
		},
		IDToken:      claims.IDToken,
		RefreshToken: claims.Refresh,
		ExpiresAt:    claims.ExpiresAt.Time,
	}
	if claims.TokenExp > 0 {
		session.TokenExpiresAt = time.Unix(claims.TokenExp, 0)
	}
	return session, nil
}

func mapIdentityError(err error) error {
	switch {
	case errors.Is(err, repositories.ErrIdentityInvalidCredentials):
		return ErrInvalidCredentials
	case errors.Is(err, repositories.ErrIdentityEmailTaken):
		return ErrEmailTaken
	case errors.Is(err, repositories.ErrIdentityWeakPassword):
		return ErrWeakPassword
	default:
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
}

package repositories

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Dosada05/contest-hub/models"
	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
	identitytoolkit "google.golang.org/api/identitytoolkit/v3"
	"google.golang.org/api/option"
)

var (
	ErrIdentityInvalidCredentials = errors.New("invalid email or password")
	ErrIdentityEmailTaken         = errors.New("email is already registered")
	ErrIdentityWeakPassword       = errors.New("password is too weak")
	ErrIdentityUnavailable        = errors.New("identity provider is unavailable")
	ErrIdentityTokenRevoked       = errors.New("refresh token is expired or revoked")
)

const secureTokenURL = "https://securetoken.googleapis.com/v1/token"

// IdentitySession is what the identity provider returns after a successful sign-in.
// ExpiresAt относится к ID-токену, а не к сессии приложения.
type IdentitySession struct {
	Principal    models.Principal
	IDToken      string
	RefreshToken string
	ExpiresAt    time.Time
}

// IdentityProvider covers the account operations the front end uses.
type IdentityProvider interface {
	SignIn(ctx context.Context, email, password string) (*IdentitySession, error)
	SignUp(ctx context.Context, email, password, displayName, photoURL string) (*IdentitySession, error)
	SendPasswordReset(ctx context.Context, email string) error
	UpdateProfile(ctx context.Context, idToken, displayName, photoURL string) (*IdentitySession, error)
	// Refresh обменивает refresh-токен на свежий ID-токен. Principal в ответе не заполняется.
	Refresh(ctx context.Context, refreshToken string) (*IdentitySession, error)
	// SignInWithIDP входит по ID-токену внешнего провайдера (например google.com).
	SignInWithIDP(ctx context.Context, providerID, providerIDToken, requestURI string) (*IdentitySession, error)
}

type identityToolkitProvider struct {
	relyingParty *identitytoolkit.RelyingpartyService
	apiKey       string
	tokenURL     string
	httpClient   *http.Client
	now          func() time.Time
}

// NewIdentityToolkitProvider работает с REST API Google Identity Toolkit по web API key.
func NewIdentityToolkitProvider(ctx context.Context, apiKey string, opts ...option.ClientOption) (IdentityProvider, error) {
	if apiKey == "" {
		return nil, errors.New("identity provider api key is required")
	}
	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	svc, err := identitytoolkit.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create identity toolkit service: %w", err)
	}
	return &identityToolkitProvider{
		relyingParty: svc.Relyingparty,
		apiKey:       apiKey,
		tokenURL:     secureTokenURL,
		now:          time.Now,
	}, nil
}

func (p *identityToolkitProvider) expiry(expiresIn int64) time.Time {
	if expiresIn <= 0 {
		return time.Time{}
	}
	return p.now().Add(time.Duration(expiresIn) * time.Second)
}

func (p *identityToolkitProvider) SignIn(ctx context.Context, email, password string) (*IdentitySession, error) {
	resp, err := p.relyingParty.VerifyPassword(&identitytoolkit.IdentitytoolkitRelyingpartyVerifyPasswordRequest{
		Email:             email,
		Password:          password,
		ReturnSecureToken: true,
	}).Context(ctx).Do()
	if err != nil {
		return nil, mapIdentityError(err)
	}
	return &IdentitySession{
		Principal: models.Principal{
			UID:         resp.LocalId,
			Email:       resp.Email,
			DisplayName: resp.DisplayName,
			PhotoURL:    resp.PhotoUrl,
		},
		IDToken:      resp.IdToken,
		RefreshToken: resp.RefreshToken,
		ExpiresAt:    p.expiry(resp.ExpiresIn),
	}, nil
}

func (p *identityToolkitProvider) SignUp(ctx context.Context, email, password, displayName, photoURL string) (*IdentitySession, error) {
	resp, err := p.relyingParty.SignupNewUser(&identitytoolkit.IdentitytoolkitRelyingpartySignupNewUserRequest{
		Email:       email,
		Password:    password,
		DisplayName: displayName,
		PhotoUrl:    photoURL,
	}).Context(ctx).Do()
	if err != nil {
		return nil, mapIdentityError(err)
	}
	return &IdentitySession{
		Principal: models.Principal{
			UID:         resp.LocalId,
			Email:       resp.Email,
			DisplayName: displayName,
			PhotoURL:    photoURL,
		},
		IDToken:      resp.IdToken,
		RefreshToken: resp.RefreshToken,
		ExpiresAt:    p.expiry(resp.ExpiresIn),
	}, nil
}

func (p *identityToolkitProvider) SendPasswordReset(ctx context.Context, email string) error {
	_, err := p.relyingParty.GetOobConfirmationCode(&identitytoolkit.Relyingparty{
		Email:       email,
		RequestType: "PASSWORD_RESET",
	}).Context(ctx).Do()
	if err != nil {
		mapped := mapIdentityError(err)
		// Не раскрываем, зарегистрирован ли email.
		if errors.Is(mapped, ErrIdentityInvalidCredentials) {
			return nil
		}
		return mapped
	}
	return nil
}

func (p *identityToolkitProvider) UpdateProfile(ctx context.Context, idToken, displayName, photoURL string) (*IdentitySession, error) {
	resp, err := p.relyingParty.SetAccountInfo(&identitytoolkit.IdentitytoolkitRelyingpartySetAccountInfoRequest{
		IdToken:           idToken,
		DisplayName:       displayName,
		PhotoUrl:          photoURL,
		ReturnSecureToken: true,
	}).Context(ctx).Do()
	if err != nil {
		return nil, mapIdentityError(err)
	}
	session := &IdentitySession{
		Principal: models.Principal{
			UID:         resp.LocalId,
			Email:       resp.Email,
			DisplayName: resp.DisplayName,
			PhotoURL:    resp.PhotoUrl,
		},
		IDToken:      resp.IdToken,
		RefreshToken: resp.RefreshToken,
		ExpiresAt:    p.expiry(resp.ExpiresIn),
	}
	if session.IDToken == "" {
		session.IDToken = idToken
	}
	return session, nil
}

func (p *identityToolkitProvider) SignInWithIDP(ctx context.Context, providerID, providerIDToken, requestURI string) (*IdentitySession, error) {
	postBody := url.Values{"id_token": {providerIDToken}, "providerId": {providerID}}.Encode()
	resp, err := p.relyingParty.VerifyAssertion(&identitytoolkit.IdentitytoolkitRelyingpartyVerifyAssertionRequest{
		PostBody:          postBody,
		RequestUri:        requestURI,
		ReturnSecureToken: true,
	}).Context(ctx).Do()
	if err != nil {
		return nil, mapIdentityError(err)
	}
	if resp.ErrorMessage != "" {
		return nil, fmt.Errorf("%w: %s", ErrIdentityInvalidCredentials, resp.ErrorMessage)
	}
	if resp.Email == "" {
		// без email не связать аккаунт с записью пользователя в API
		return nil, fmt.Errorf("%w: %s account has no email", ErrIdentityInvalidCredentials, providerID)
	}
	return &IdentitySession{
		Principal: models.Principal{
			UID:         resp.LocalId,
			Email:       resp.Email,
			DisplayName: resp.DisplayName,
			PhotoURL:    resp.PhotoUrl,
		},
		IDToken:      resp.IdToken,
		RefreshToken: resp.RefreshToken,
		ExpiresAt:    p.expiry(resp.ExpiresIn),
	}, nil
}

// Refresh ходит в securetoken по стандартному refresh_token grant.
func (p *identityToolkitProvider) Refresh(ctx context.Context, refreshToken string) (*IdentitySession, error) {
	if refreshToken == "" {
		return nil, ErrIdentityTokenRevoked
	}
	cfg := oauth2.Config{
		Endpoint: oauth2.Endpoint{
			TokenURL:  p.tokenURL + "?" + url.Values{"key": {p.apiKey}}.Encode(),
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
	if p.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	}
	tok, err := cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil &&
			retrieveErr.Response.StatusCode >= 400 && retrieveErr.Response.StatusCode < 500 {
			return nil, fmt.Errorf("%w: %s", ErrIdentityTokenRevoked, retrieveErr.Body)
		}
		return nil, fmt.Errorf("%w: %v", ErrIdentityUnavailable, err)
	}
	idToken, _ := tok.Extra("id_token").(string)
	if idToken == "" {
		idToken = tok.AccessToken
	}
	if idToken == "" {
		return nil, fmt.Errorf("%w: token response without id_token", ErrIdentityUnavailable)
	}
	session := &IdentitySession{
		IDToken:      idToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    tok.Expiry,
	}
	if session.RefreshToken == "" {
		session.RefreshToken = refreshToken
	}
	return session, nil
}

func mapIdentityError(err error) error {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("%w: %v", ErrIdentityUnavailable, err)
	}
	code := strings.ToUpper(apiErr.Message)
	switch {
	case strings.HasPrefix(code, "EMAIL_NOT_FOUND"),
		strings.HasPrefix(code, "INVALID_PASSWORD"),
		strings.HasPrefix(code, "INVALID_LOGIN_CREDENTIALS"),
		strings.HasPrefix(code, "USER_DISABLED"),
		strings.HasPrefix(code, "INVALID_EMAIL"):
		return ErrIdentityInvalidCredentials
	case strings.HasPrefix(code, "EMAIL_EXISTS"):
		return ErrIdentityEmailTaken
	case strings.HasPrefix(code, "WEAK_PASSWORD"):
		return ErrIdentityWeakPassword
	}
	if apiErr.Code >= 500 {
		return fmt.Errorf("%w: %s", ErrIdentityUnavailable, apiErr.Message)
	}
	return fmt.Errorf("identity provider rejected the request: %s", apiErr.Message)
}

package repositories

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const GoogleProviderID = "google.com"

// FederatedProvider проводит authorization code flow у внешнего провайдера
// и отдаёт его ID-токен для входа через IdentityProvider.SignInWithIDP.
type FederatedProvider interface {
	ProviderID() string
	RedirectURL() string
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (string, error)
}

type googleOAuth struct {
	config *oauth2.Config
}

func NewGoogleOAuth(clientID, clientSecret, redirectURL string) (FederatedProvider, error) {
	if clientID == "" || clientSecret == "" {
		return nil, errors.New("google client id and secret are required")
	}
	if redirectURL == "" {
		return nil, errors.New("google redirect url is required")
	}
	return &googleOAuth{config: &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Endpoint:     google.Endpoint,
		Scopes:       []string{"openid", "email", "profile"},
	}}, nil
}

func (g *googleOAuth) ProviderID() string { return GoogleProviderID }

func (g *googleOAuth) RedirectURL() string { return g.config.RedirectURL }

func (g *googleOAuth) AuthCodeURL(state string) string {
	return g.config.AuthCodeURL(state, oauth2.SetAuthURLParam("prompt", "select_account"))
}

func (g *googleOAuth) Exchange(ctx context.Context, code string) (string, error) {
	tok, err := g.config.Exchange(ctx, code)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil &&
			retrieveErr.Response.StatusCode >= 400 && retrieveErr.Response.StatusCode < 500 {
			return "", fmt.Errorf("%w: %s", ErrIdentityInvalidCredentials, retrieveErr.Body)
		}
		return "", fmt.Errorf("%w: %v", ErrIdentityUnavailable, err)
	}
	idToken, _ := tok.Extra("id_token").(string)
	if idToken == "" {
		return "", fmt.Errorf("%w: google token response without id_token", ErrIdentityUnavailable)
	}
	return idToken, nil
}

package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/option"
)

var providerNow = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

func newTokenServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func TestRefreshExchangesRefreshToken(t *testing.T) {
	var form url.Values
	var key string
	srv := newTokenServer(t, func(w http.ResponseWriter, r *http.Request) {
		key = r.URL.Query().Get("key")
		_ = r.ParseForm()
		form = r.PostForm
		writeJSON(w, http.StatusOK, `{"access_token":"id-2","id_token":"id-2","refresh_token":"rt-2","expires_in":"3600","token_type":"Bearer"}`)
	})
	p := &identityToolkitProvider{apiKey: "web-key", tokenURL: srv.URL, now: time.Now}

	got, err := p.Refresh(context.Background(), "rt-1")
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if key != "web-key" || form.Get("grant_type") != "refresh_token" || form.Get("refresh_token") != "rt-1" {
		t.Errorf("request key=%q form=%v", key, form)
	}
	if got.IDToken != "id-2" || got.RefreshToken != "rt-2" {
		t.Errorf("session = %+v", got)
	}
	if left := time.Until(got.ExpiresAt); left < 50*time.Minute || left > time.Hour {
		t.Errorf("expires in %v, want about an hour", left)
	}
}

func TestRefreshErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"revoked", http.StatusBadRequest, ErrIdentityTokenRevoked},
		{"provider down", http.StatusServiceUnavailable, ErrIdentityUnavailable},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := newTokenServer(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tc.status, `{"error":{"message":"TOKEN_EXPIRED"}}`)
			})
			p := &identityToolkitProvider{apiKey: "k", tokenURL: srv.URL, now: time.Now}
			if _, err := p.Refresh(context.Background(), "rt-1"); !errors.Is(err, tc.want) {
				t.Errorf("Refresh() error = %v, want %v", err, tc.want)
			}
		})
	}

	p := &identityToolkitProvider{apiKey: "k", tokenURL: "http://127.0.0.1:1", now: time.Now}
	if _, err := p.Refresh(context.Background(), ""); !errors.Is(err, ErrIdentityTokenRevoked) {
		t.Errorf("empty refresh token error = %v", err)
	}
}

func TestSignInWithIDP(t *testing.T) {
	var body map[string]any
	srv := newTokenServer(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "verifyAssertion") {
			http.NotFound(w, r)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		writeJSON(w, http.StatusOK, `{"localId":"uid-g","email":"ann@example.com","displayName":"Ann","photoUrl":"https://img.example.com/a.png","idToken":"id-g","refreshToken":"rt-g","expiresIn":"3600"}`)
	})
	provider, err := NewIdentityToolkitProvider(context.Background(), "web-key", option.WithEndpoint(srv.URL+"/"))
	if err != nil {
		t.Fatalf("NewIdentityToolkitProvider() error = %v", err)
	}
	provider.(*identityToolkitProvider).now = func() time.Time { return providerNow }

	got, err := provider.SignInWithIDP(context.Background(), GoogleProviderID, "google-id-token", "https://contesthub.example.com/auth/google/callback")
	if err != nil {
		t.Fatalf("SignInWithIDP() error = %v", err)
	}
	if got.Principal.Email != "ann@example.com" || got.IDToken != "id-g" || got.RefreshToken != "rt-g" {
		t.Errorf("session = %+v", got)
	}
	if !got.ExpiresAt.Equal(providerNow.Add(time.Hour)) {
		t.Errorf("expires at %v", got.ExpiresAt)
	}
	postBody, _ := body["postBody"].(string)
	values, _ := url.ParseQuery(postBody)
	if values.Get("id_token") != "google-id-token" || values.Get("providerId") != GoogleProviderID {
		t.Errorf("postBody = %q", postBody)
	}
	if body["returnSecureToken"] != true {
		t.Errorf("returnSecureToken not requested: %v", body)
	}
}

func TestSignInWithIDPRequiresEmail(t *testing.T) {
	srv := newTokenServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"localId":"uid-g","idToken":"id-g"}`)
	})
	provider, err := NewIdentityToolkitProvider(context.Background(), "web-key", option.WithEndpoint(srv.URL+"/"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := provider.SignInWithIDP(context.Background(), GoogleProviderID, "t", "http://localhost"); !errors.Is(err, ErrIdentityInvalidCredentials) {
		t.Errorf("error = %v, want ErrIdentityInvalidCredentials", err)
	}
}

func newTestGoogleOAuth(tokenURL string) *googleOAuth {
	return &googleOAuth{config: &oauth2.Config{
		ClientID:     "client-1",
		ClientSecret: "secret-1",
		RedirectURL:  "https://contesthub.example.com/auth/google/callback",
		Endpoint:     oauth2.Endpoint{TokenURL: tokenURL, AuthStyle: oauth2.AuthStyleInParams},
	}}
}

func TestGoogleOAuthExchange(t *testing.T) {
	var form url.Values
	srv := newTokenServer(t, func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		form = r.PostForm
		switch form.Get("code") {
		case "good":
			writeJSON(w, http.StatusOK, `{"access_token":"at","id_token":"google-id","token_type":"Bearer","expires_in":3599}`)
		case "no-id":
			writeJSON(w, http.StatusOK, `{"access_token":"at","token_type":"Bearer"}`)
		default:
			writeJSON(w, http.StatusBadRequest, `{"error":"invalid_grant"}`)
		}
	})
	g := newTestGoogleOAuth(srv.URL)

	idToken, err := g.Exchange(context.Background(), "good")
	if err != nil || idToken != "google-id" {
		t.Fatalf("Exchange() = %q, %v", idToken, err)
	}
	if form.Get("client_id") != "client-1" || form.Get("redirect_uri") != g.RedirectURL() {
		t.Errorf("form = %v", form)
	}
	if _, err := g.Exchange(context.Background(), "no-id"); !errors.Is(err, ErrIdentityUnavailable) {
		t.Errorf("missing id_token error = %v", err)
	}
	if _, err := g.Exchange(context.Background(), "reused"); !errors.Is(err, ErrIdentityInvalidCredentials) {
		t.Errorf("rejected code error = %v", err)
	}
}

func TestGoogleAuthCodeURL(t *testing.T) {
	if _, err := NewGoogleOAuth("", "s", "http://localhost/cb"); err == nil {
		t.Error("missing client id accepted")
	}
	g, err := NewGoogleOAuth("client-1", "secret-1", "https://contesthub.example.com/auth/google/callback")
	if err != nil {
		t.Fatal(err)
	}
	u, err := url.Parse(g.AuthCodeURL("state-1"))
	if err != nil {
		t.Fatal(err)
	}
	q := u.Query()
	if u.Host != "accounts.google.com" || q.Get("state") != "state-1" || q.Get("client_id") != "client-1" {
		t.Errorf("auth url = %s", u)
	}
	if !strings.Contains(q.Get("scope"), "email") || q.Get("redirect_uri") != g.RedirectURL() {
		t.Errorf("auth url query = %v", q)
	}
}

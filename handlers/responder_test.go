package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Dosada05/contest-hub/middleware"
	"github.com/Dosada05/contest-hub/models"
	"github.com/Dosada05/contest-hub/services"
	"github.com/Dosada05/contest-hub/views"
)

func navLabels(items []views.NavItem) []string {
	labels := make([]string, len(items))
	for i, it := range items {
		labels[i] = it.Label
	}
	return labels
}

func TestDashboardNav(t *testing.T) {
	tests := []struct {
		role   models.Role
		want   string
		active string
	}{
		{models.RoleUser, "Dashboard,Participated Contests,Winning Contests,Profile", "Winning Contests"},
		{models.RoleCreator, "Dashboard,Add Contest,My Contests,Profile", "My Contests"},
		{models.RoleAdmin, "Dashboard,Manage Users,Manage Contests,Profile", "Manage Users"},
		{"", "Dashboard,Profile", ""},
	}
	current := map[models.Role]string{
		models.RoleUser:    "/dashboard/winning",
		models.RoleCreator: "/dashboard/my-contests/c1/submissions",
		models.RoleAdmin:   "/dashboard/users",
		"":                 "/dashboard/participated-contests",
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			items := DashboardNav(tt.role, current[tt.role])
			if got := strings.Join(navLabels(items), ","); got != tt.want {
				t.Fatalf("nav = %q, want %q", got, tt.want)
			}
			active := ""
			for _, it := range items {
				if it.Active {
					if active != "" {
						t.Fatalf("more than one active item: %q and %q", active, it.Label)
					}
					active = it.Label
				}
			}
			if active != tt.active {
				t.Errorf("active = %q, want %q", active, tt.active)
			}
		})
	}
}

func TestDashboardNavRootActive(t *testing.T) {
	items := DashboardNav(models.RoleUser, "/dashboard")
	if !items[0].Active {
		t.Fatal("Dashboard should be active on /dashboard")
	}
	for _, it := range items[1:] {
		if it.Active {
			t.Errorf("%s should not be active", it.Label)
		}
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"public error", services.ErrAlreadyRegistered, "You are already registered for this contest"},
		{"wrapped public error", fmt.Errorf("register: %w", services.ErrContestEnded), "Contest has ended"},
		{"validation picks first field", &services.ValidationError{Fields: map[string]string{
			"name":  "contest name is required",
			"image": "an image URL or upload is required",
		}}, "An image URL or upload is required"},
		{"upstream", fmt.Errorf("GET /contests: %w", services.ErrUpstream), "The service is temporarily unavailable, please try again"},
		{"unknown error", errors.New("dial tcp: refused"), genericFailureMessage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := userMessage(tt.err); got != tt.want {
				t.Errorf("userMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormErrors(t *testing.T) {
	fe := formErrors(&services.ValidationError{Fields: map[string]string{"email": "enter a valid email"}})
	if fe.Alert != "" || fe.Field("email") != "enter a valid email" {
		t.Errorf("validation error = %+v", fe)
	}
	fe = formErrors(services.ErrInvalidCredentials)
	if fe.Alert != "Invalid email or password" || len(fe.Fields) != 0 {
		t.Errorf("credential error = %+v", fe)
	}
}

func flashCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == flashCookieName {
			return c
		}
	}
	return nil
}

func TestFlashRoundTrip(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/dashboard/users/1/role", nil)
	rec := httptest.NewRecorder()
	setFlash(rec, req, views.Flash{Kind: views.FlashSuccess, Message: "Role updated."})

	cookie := flashCookie(rec)
	if cookie == nil {
		t.Fatal("flash cookie not set")
	}

	next := httptest.NewRequest(http.MethodGet, "/dashboard/users", nil)
	next.AddCookie(cookie)
	rec = httptest.NewRecorder()
	f := popFlash(rec, next)
	if f == nil || f.Kind != views.FlashSuccess || f.Message != "Role updated." {
		t.Fatalf("popFlash() = %+v", f)
	}
	if cleared := flashCookie(rec); cleared == nil || cleared.MaxAge >= 0 {
		t.Errorf("flash cookie should be cleared after reading, got %+v", cleared)
	}
}

func TestPopFlashDropsGarbage(t *testing.T) {
	for _, value := range []string{"%%%", "bm90IGpzb24", "e30"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: flashCookieName, Value: value})
		if f := popFlash(httptest.NewRecorder(), req); f != nil {
			t.Errorf("popFlash(%q) = %+v, want nil", value, f)
		}
	}
}

func TestRenderBuildsPage(t *testing.T) {
	resp, rr := newTestResponder()
	req := signedIn(httptest.NewRequest(http.MethodGet, "/dashboard/my-contests", nil), "ann@example.com", models.RoleCreator)
	req.AddCookie(&http.Cookie{Name: flashCookieName, Value: encodeFlash(t, views.Flash{Kind: views.FlashWarning, Message: "Heads up"})})
	rec := httptest.NewRecorder()

	resp.render(rec, req, http.StatusOK, views.PageMyContests, "My Contests", views.MyContestsData{})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Errorf("content type = %q", ct)
	}
	name, page := rr.last()
	if name != views.PageMyContests || page.Title != "My Contests" {
		t.Errorf("rendered %q with title %q", name, page.Title)
	}
	if page.Principal == nil || page.Principal.Email != "ann@example.com" || page.Role != models.RoleCreator {
		t.Errorf("identity not passed to the page: %+v / %q", page.Principal, page.Role)
	}
	if page.Flash == nil || page.Flash.Message != "Heads up" {
		t.Errorf("flash = %+v", page.Flash)
	}
	if len(page.Nav) != 4 {
		t.Errorf("dashboard nav missing: %+v", page.Nav)
	}
}

func TestRenderToastWinsOverFlash(t *testing.T) {
	resp, rr := newTestResponder()
	req := httptest.NewRequest(http.MethodGet, "/all-contests", nil)
	req.AddCookie(&http.Cookie{Name: flashCookieName, Value: encodeFlash(t, views.Flash{Kind: views.FlashSuccess, Message: "old"})})

	resp.renderToast(httptest.NewRecorder(), req, http.StatusOK, views.PageAllContests, "All", nil,
		&views.Flash{Kind: views.FlashError, Message: "new"})

	_, page := rr.last()
	if page.Flash == nil || page.Flash.Message != "new" {
		t.Errorf("flash = %+v, want the toast", page.Flash)
	}
	if page.Nav != nil {
		t.Errorf("public page should have no dashboard nav")
	}
}

func TestRenderFailureIs500(t *testing.T) {
	resp, rr := newTestResponder()
	rr.err = errors.New("template exploded")
	rec := httptest.NewRecorder()
	resp.render(rec, httptest.NewRequest(http.MethodGet, "/", nil), http.StatusOK, views.PageHome, "", nil)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "<html>") {
		t.Error("partial page written")
	}
}

func TestMapServiceErrorToView(t *testing.T) {
	tests := []struct {
		err      error
		status   int
		view     string
		location string
	}{
		{services.ErrContestNotFound, http.StatusNotFound, views.PageNotFound, ""},
		{services.ErrForbiddenOperation, http.StatusForbidden, views.PageForbidden, ""},
		{fmt.Errorf("read: %w", services.ErrUpstream), http.StatusBadGateway, views.PageError, ""},
		{services.ErrInvalidSession, http.StatusSeeOther, "", "/auth/login?redirect=%2Fdashboard%2Fwinning"},
		{errors.New("boom"), http.StatusInternalServerError, views.PageError, ""},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			resp, rr := newTestResponder()
			rec := httptest.NewRecorder()
			resp.mapServiceErrorToView(rec, httptest.NewRequest(http.MethodGet, "/dashboard/winning", nil), tt.err)

			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			if tt.location != "" {
				if loc := rec.Header().Get("Location"); loc != tt.location {
					t.Errorf("location = %q, want %q", loc, tt.location)
				}
				return
			}
			if name, _ := rr.last(); name != tt.view {
				t.Errorf("view = %q, want %q", name, tt.view)
			}
		})
	}
}

func TestMutationFailedRedirectsWithToast(t *testing.T) {
	resp, _ := newTestResponder()
	req := signedIn(httptest.NewRequest(http.MethodPost, "/contest/c1/submit", nil), "ann@example.com", "")
	rec := httptest.NewRecorder()

	resp.mutationFailed(rec, req, fmt.Errorf("submit: %w", services.ErrRequestInFlight), "/contest/c1")

	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/contest/c1" {
		t.Fatalf("got %d to %q", rec.Code, rec.Header().Get("Location"))
	}
	f := readFlash(t, rec)
	if f.Kind != views.FlashWarning || f.Message != "The same request is already being processed" {
		t.Errorf("flash = %+v", f)
	}
}

func TestMutationFailedSessionExpired(t *testing.T) {
	resp, _ := newTestResponder()
	rec := httptest.NewRecorder()
	resp.mutationFailed(rec, httptest.NewRequest(http.MethodPost, "/contest/c1/register", nil), services.ErrInvalidSession, "/contest/c1")

	if loc := rec.Header().Get("Location"); loc != "/auth/login?redirect=%2Fcontest%2Fc1" {
		t.Errorf("location = %q", loc)
	}
	var cleared bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.SessionCookieName && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Error("session cookie should be cleared")
	}
}

// helpers shared by handler tests

func encodeFlash(t *testing.T, f views.Flash) string {
	t.Helper()
	rec := httptest.NewRecorder()
	setFlash(rec, httptest.NewRequest(http.MethodGet, "/", nil), f)
	c := flashCookie(rec)
	if c == nil {
		t.Fatal("flash cookie not set")
	}
	return c.Value
}

func readFlash(t *testing.T, rec *httptest.ResponseRecorder) views.Flash {
	t.Helper()
	c := flashCookie(rec)
	if c == nil {
		t.Fatal("no flash cookie on response")
	}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(c)
	f := popFlash(httptest.NewRecorder(), req)
	if f == nil {
		t.Fatal("flash cookie could not be decoded")
	}
	return *f
}

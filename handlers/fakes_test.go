package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/Dosada05/contest-hub/middleware"
	"github.com/Dosada05/contest-hub/models"
	"github.com/Dosada05/contest-hub/services"
	"github.com/Dosada05/contest-hub/views"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// recordingRenderer keeps the last page instead of executing templates.
type recordingRenderer struct {
	mu   sync.Mutex
	name string
	page views.Page
	err  error
}

func (r *recordingRenderer) Render(w io.Writer, name string, page views.Page) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.name = name
	r.page = page
	_, err := io.WriteString(w, "<html>"+name+"</html>")
	return err
}

func (r *recordingRenderer) last() (string, views.Page) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.name, r.page
}

func newTestResponder() (*Responder, *recordingRenderer) {
	rr := &recordingRenderer{}
	return NewResponder(rr, testLogger), rr
}

func signedIn(req *http.Request, email string, role models.Role) *http.Request {
	ctx := middleware.WithSession(req.Context(), &services.Session{
		Principal: models.Principal{UID: "uid-" + email, Email: email, DisplayName: "Ann"},
		ExpiresAt: time.Now().Add(time.Hour),
	})
	if role != "" {
		ctx = middleware.WithRole(ctx, role)
	}
	return req.WithContext(ctx)
}

type fakeContestService struct {
	detail      *services.ContestDetail
	countdown   *services.CountdownView
	checkoutURL string
	err         error
	submitted   string
	winners     []models.Contest
	winnersErr  error
}

func (f *fakeContestService) GetDetail(context.Context, string, *models.Principal) (*services.ContestDetail, error) {
	return f.detail, f.err
}

func (f *fakeContestService) Countdown(_ context.Context, id string) (*services.CountdownView, error) {
	if f.countdown == nil || f.countdown.ContestID != id {
		return nil, services.ErrContestNotFound
	}
	cp := *f.countdown
	return &cp, nil
}

func (f *fakeContestService) Register(_ context.Context, _ string, viewer *models.Principal) (string, error) {
	if viewer == nil {
		return "", services.ErrAuthenticationRequired
	}
	return f.checkoutURL, f.err
}

func (f *fakeContestService) Submit(_ context.Context, _ string, _ *models.Principal, link string) error {
	if f.err != nil {
		return f.err
	}
	f.submitted = link
	return nil
}

func (f *fakeContestService) ListConfirmed(context.Context, services.ContestFilter) ([]models.Contest, error) {
	return nil, f.err
}

func (f *fakeContestService) Popular(context.Context) ([]models.Contest, error) {
	return nil, f.err
}

func (f *fakeContestService) RecentWinners(context.Context) ([]models.Contest, error) {
	return f.winners, f.winnersErr
}

type fakeAdminService struct {
	err       error
	confirmed bool
	status    models.ContestStatus
	role      string
}

func (f *fakeAdminService) Contests(context.Context, int) (models.Page[models.Contest], error) {
	return models.Page[models.Contest]{}, f.err
}

func (f *fakeAdminService) ChangeContestStatus(_ context.Context, _ string, status models.ContestStatus) error {
	f.status = status
	return f.err
}

func (f *fakeAdminService) DeleteContest(_ context.Context, _ string, confirmed bool) error {
	f.confirmed = confirmed
	if !confirmed {
		return services.ErrConfirmationRequired
	}
	return f.err
}

func (f *fakeAdminService) Users(context.Context, *models.Principal, int) (models.Page[services.UserRow], error) {
	return models.Page[services.UserRow]{}, f.err
}

func (f *fakeAdminService) ChangeUserRole(_ context.Context, _ *models.Principal, _ string, role string) error {
	f.role = role
	return f.err
}

func (f *fakeAdminService) Stats(context.Context) (models.AdminStats, error) {
	return models.AdminStats{}, f.err
}

type fakeAuthService struct {
	err         error
	google      bool
	googleCodes []string
}

func (f *fakeAuthService) SignIn(_ context.Context, in services.LoginInput) (*services.Session, string, error) {
	if f.err != nil {
		return nil, "", f.err
	}
	return &services.Session{
		Principal: models.Principal{Email: in.Email, DisplayName: "Ann"},
		ExpiresAt: time.Now().Add(time.Hour),
	}, "signed-token", nil
}

func (f *fakeAuthService) Register(_ context.Context, in services.RegisterInput) (*services.Session, string, error) {
	if f.err != nil {
		return nil, "", f.err
	}
	return &services.Session{
		Principal: models.Principal{Email: in.Email, DisplayName: in.Name},
		ExpiresAt: time.Now().Add(time.Hour),
	}, "signed-token", nil
}

func (f *fakeAuthService) SendPasswordReset(context.Context, string) error { return f.err }

func (f *fakeAuthService) ParseSession(string) (*services.Session, error) {
	return nil, services.ErrInvalidSession
}

func (f *fakeAuthService) IssueSession(*services.Session) (string, error) { return "signed-token", nil }

func (f *fakeAuthService) RefreshSession(_ context.Context, s *services.Session) (*services.Session, string, error) {
	return s, "", nil
}

func (f *fakeAuthService) GoogleEnabled() bool { return f.google }

func (f *fakeAuthService) GoogleAuthURL(state string) (string, error) {
	if !f.google {
		return "", services.ErrFederatedUnavailable
	}
	return "https://accounts.example.com/o/auth?state=" + state, nil
}

func (f *fakeAuthService) SignInWithGoogle(_ context.Context, code string) (*services.Session, string, error) {
	f.googleCodes = append(f.googleCodes, code)
	if f.err != nil {
		return nil, "", f.err
	}
	return &services.Session{
		Principal: models.Principal{Email: "gia@example.com", DisplayName: "Gia"},
		ExpiresAt: time.Now().Add(time.Hour),
	}, "google-signed-token", nil
}

type fakeCreatorService struct {
	created  []models.ContestInput
	uploaded int
	err      error
}

func (f *fakeCreatorService) CreateContest(_ context.Context, _ *models.Principal, in models.ContestInput) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.created = append(f.created, in)
	return "new-id", nil
}

func (f *fakeCreatorService) UploadContestImage(context.Context, *models.Principal, services.ImageUpload) (string, error) {
	f.uploaded++
	return "https://cdn.example.com/contest.png", nil
}

func (f *fakeCreatorService) MyContests(context.Context, *models.Principal) ([]models.Contest, error) {
	return nil, f.err
}

func (f *fakeCreatorService) GetEditable(context.Context, string, *models.Principal) (*models.Contest, error) {
	return nil, errors.New("not used")
}

func (f *fakeCreatorService) UpdateContest(context.Context, string, *models.Principal, models.ContestInput) error {
	return f.err
}

func (f *fakeCreatorService) DeleteContest(context.Context, string, *models.Principal) error {
	return f.err
}

func (f *fakeCreatorService) Overview(context.Context, *models.Principal) (models.CreatorStats, error) {
	return models.CreatorStats{}, f.err
}

type fakeSubmissionService struct {
	err error
}

func (f *fakeSubmissionService) Review(context.Context, string, *models.Principal) (*services.SubmissionReview, error) {
	return nil, f.err
}

func (f *fakeSubmissionService) DeclareWinner(context.Context, string, string, *models.Principal) error {
	return f.err
}

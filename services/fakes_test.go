package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Dosada05/contest-hub/countdown"
	"github.com/Dosada05/contest-hub/models"
	"github.com/Dosada05/contest-hub/query"
	"github.com/Dosada05/contest-hub/repositories"
	"github.com/Dosada05/contest-hub/storage"
)

var errNetwork = errors.New("connection reset by peer")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newCache() *query.Client {
	return query.NewClient(time.Minute, discardLogger())
}

type fakeContestRepo struct {
	mu        sync.Mutex
	contests  map[string]*models.Contest
	calls     []string
	getCalls  int
	failWith  map[string]error
	createdID string
}

func newFakeContestRepo(contests ...models.Contest) *fakeContestRepo {
	r := &fakeContestRepo{contests: map[string]*models.Contest{}, failWith: map[string]error{}}
	for i := range contests {
		c := contests[i]
		r.contests[c.ID] = &c
	}
	return r
}

func (r *fakeContestRepo) record(call string) error {
	r.calls = append(r.calls, call)
	return r.failWith[call]
}

func (r *fakeContestRepo) GetByID(_ context.Context, id string) (*models.Contest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.getCalls++
	if err := r.failWith["GetByID"]; err != nil {
		return nil, err
	}
	c, ok := r.contests[id]
	if !ok {
		return nil, repositories.ErrContestNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *fakeContestRepo) filter(keep func(models.Contest) bool) []models.Contest {
	out := []models.Contest{}
	for _, c := range r.contests {
		if keep(*c) {
			out = append(out, *c)
		}
	}
	return out
}

func (r *fakeContestRepo) ListAll(context.Context) ([]models.Contest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record("ListAll"); err != nil {
		return nil, err
	}
	return r.filter(func(models.Contest) bool { return true }), nil
}

func (r *fakeContestRepo) ListByStatus(_ context.Context, status models.ContestStatus) ([]models.Contest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record("ListByStatus"); err != nil {
		return nil, err
	}
	return r.filter(func(c models.Contest) bool { return c.Status == status }), nil
}

func (r *fakeContestRepo) ListPopular(context.Context) ([]models.Contest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record("ListPopular"); err != nil {
		return nil, err
	}
	return r.filter(func(c models.Contest) bool { return c.Status == models.ContestConfirmed }), nil
}

func (r *fakeContestRepo) ListByCreator(_ context.Context, email string) ([]models.Contest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record("ListByCreator"); err != nil {
		return nil, err
	}
	return r.filter(func(c models.Contest) bool { return strings.EqualFold(c.CreatorEmail, email) }), nil
}

func (r *fakeContestRepo) ListWonBy(_ context.Context, email string) ([]models.Contest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record("ListWonBy"); err != nil {
		return nil, err
	}
	return r.filter(func(c models.Contest) bool { return c.HasWinner() && strings.EqualFold(c.Winner.Email, email) }), nil
}

func (r *fakeContestRepo) Create(_ context.Context, input models.ContestInput) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record("Create"); err != nil {
		return "", err
	}
	id := r.createdID
	if id == "" {
		id = "new-contest"
	}
	r.contests[id] = &models.Contest{
		ID: id, Name: input.Name, Type: input.Type, Deadline: input.Deadline,
		CreatorEmail: input.CreatorEmail, CreatorName: input.CreatorName, Status: models.ContestPending,
	}
	return id, nil
}

func (r *fakeContestRepo) UpdateStatus(_ context.Context, id string, status models.ContestStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record("UpdateStatus"); err != nil {
		return err
	}
	c, ok := r.contests[id]
	if !ok {
		return repositories.ErrContestNotFound
	}
	c.Status = status
	return nil
}

func (r *fakeContestRepo) DeclareWinner(_ context.Context, id string, winner models.Winner) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record("DeclareWinner"); err != nil {
		return err
	}
	c, ok := r.contests[id]
	if !ok {
		return repositories.ErrContestNotFound
	}
	if c.HasWinner() {
		return repositories.ErrContestNotModified
	}
	w := winner
	c.Winner = &w
	return nil
}

func (r *fakeContestRepo) UpdateByCreator(_ context.Context, id string, input models.ContestInput) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record("UpdateByCreator"); err != nil {
		return err
	}
	c, ok := r.contests[id]
	if !ok {
		return repositories.ErrContestNotFound
	}
	c.Name = input.Name
	c.Deadline = input.Deadline
	return nil
}

func (r *fakeContestRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record("Delete"); err != nil {
		return err
	}
	delete(r.contests, id)
	return nil
}

func (r *fakeContestRepo) DeleteByCreator(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record("DeleteByCreator"); err != nil {
		return err
	}
	delete(r.contests, id)
	return nil
}

func (r *fakeContestRepo) callsTo(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		if c == name {
			n++
		}
	}
	return n
}

type fakePaymentRepo struct {
	mu            sync.Mutex
	registrations []models.Registration
	checkoutURL   string
	checkouts     []models.CheckoutRequest
	confirmation  *models.PaymentConfirmation
	submitErr     error
	statusErr     error
	checkoutErr   error
	statusCalls   int
}

func (r *fakePaymentRepo) CreateCheckoutSession(_ context.Context, req models.CheckoutRequest) (*models.CheckoutSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.checkoutErr != nil {
		return nil, r.checkoutErr
	}
	r.checkouts = append(r.checkouts, req)
	return &models.CheckoutSession{URL: r.checkoutURL}, nil
}

func (r *fakePaymentRepo) ConfirmPayment(_ context.Context, sessionID string) (*models.PaymentConfirmation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.confirmation == nil {
		return nil, repositories.ErrRegistrationNotFound
	}
	c := *r.confirmation
	for i := range r.registrations {
		if r.registrations[i].ContestID == c.ContestID {
			r.registrations[i].PaymentStatus = models.PaymentStatusPaid
		}
	}
	return &c, nil
}

func (r *fakePaymentRepo) GetStatus(_ context.Context, contestID, email string) (*models.Registration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statusCalls++
	if r.statusErr != nil {
		return nil, r.statusErr
	}
	for _, reg := range r.registrations {
		if reg.ContestID == contestID && strings.EqualFold(reg.ParticipantEmail, email) {
			cp := reg
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakePaymentRepo) ListByParticipant(_ context.Context, email string) ([]models.Registration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.Registration{}
	for _, reg := range r.registrations {
		if strings.EqualFold(reg.ParticipantEmail, email) {
			out = append(out, reg)
		}
	}
	return out, nil
}

func (r *fakePaymentRepo) ListSubmissions(_ context.Context, contestID string) ([]models.Registration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.Registration{}
	for _, reg := range r.registrations {
		if reg.ContestID == contestID && reg.Submitted {
			out = append(out, reg)
		}
	}
	return out, nil
}

func (r *fakePaymentRepo) Submit(_ context.Context, registrationID, _ string, input models.SubmissionInput) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.submitErr != nil {
		return r.submitErr
	}
	for i := range r.registrations {
		if r.registrations[i].ID == registrationID {
			r.registrations[i].Submitted = true
			r.registrations[i].SubmissionLink = input.SubmissionLink
			return nil
		}
	}
	return repositories.ErrRegistrationNotFound
}

type fakeUserRepo struct {
	mu          sync.Mutex
	users       []models.User
	roleUpdates int
	winCounts   []string
	winErr      error
	listErr     error
	infoUpdates []models.ProfileInput
	created     []models.NewUserInput
	bearers     []string
	createErr   error
}

func (r *fakeUserRepo) List(context.Context) ([]models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	out := make([]models.User, len(r.users))
	copy(out, r.users)
	return out, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			cp := u
			return &cp, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func (r *fakeUserRepo) Create(ctx context.Context, input models.NewUserInput) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	r.created = append(r.created, input)
	r.bearers = append(r.bearers, repositories.BearerFromContext(ctx))
	return nil
}

func (r *fakeUserRepo) UpdateRole(_ context.Context, id string, role models.Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.roleUpdates++
	for i := range r.users {
		if r.users[i].ID == id {
			r.users[i].Role = role
			return nil
		}
	}
	return repositories.ErrUserNotFound
}

func (r *fakeUserRepo) UpdateInfo(_ context.Context, id string, input models.ProfileInput) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.infoUpdates = append(r.infoUpdates, input)
	for i := range r.users {
		if r.users[i].ID == id {
			r.users[i].DisplayName = input.DisplayName
			r.users[i].PhotoURL = input.PhotoURL
			return nil
		}
	}
	return repositories.ErrUserNotFound
}

func (r *fakeUserRepo) IncrementWinCount(_ context.Context, email string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.winErr != nil {
		return r.winErr
	}
	r.winCounts = append(r.winCounts, email)
	return nil
}

type fakeIdentity struct {
	signInErr  error
	signUpErr  error
	updateErr  error
	refreshErr error
	idpErr     error
	resets     []string
	updates    int
	refreshes  []string
	assertions []string
}

func (f *fakeIdentity) SignIn(_ context.Context, email, password string) (*repositories.IdentitySession, error) {
	if f.signInErr != nil {
		return nil, f.signInErr
	}
	return &repositories.IdentitySession{
		Principal:    models.Principal{UID: "uid-1", Email: email, DisplayName: "Ann"},
		IDToken:      "id-token",
		RefreshToken: "refresh-token",
		ExpiresAt:    fixedNow().Add(time.Hour),
	}, nil
}

func (f *fakeIdentity) Refresh(_ context.Context, refreshToken string) (*repositories.IdentitySession, error) {
	f.refreshes = append(f.refreshes, refreshToken)
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	return &repositories.IdentitySession{
		IDToken:      "id-token-2",
		RefreshToken: "refresh-token-2",
		ExpiresAt:    fixedNow().Add(2 * time.Hour),
	}, nil
}

func (f *fakeIdentity) SignInWithIDP(_ context.Context, providerID, providerIDToken, requestURI string) (*repositories.IdentitySession, error) {
	f.assertions = append(f.assertions, providerID+":"+providerIDToken+"@"+requestURI)
	if f.idpErr != nil {
		return nil, f.idpErr
	}
	return &repositories.IdentitySession{
		Principal:    models.Principal{UID: "uid-g", Email: "gia@example.com", DisplayName: "Gia", PhotoURL: "https://img.example.com/gia.png"},
		IDToken:      "google-session-token",
		RefreshToken: "google-refresh",
		ExpiresAt:    fixedNow().Add(time.Hour),
	}, nil
}

type fakeFederated struct {
	exchangeErr error
	codes       []string
}

func (f *fakeFederated) ProviderID() string { return repositories.GoogleProviderID }
func (f *fakeFederated) RedirectURL() string {
	return "https://contesthub.example.com/auth/google/callback"
}

func (f *fakeFederated) AuthCodeURL(state string) string {
	return "https://accounts.example.com/o/auth?state=" + state
}

func (f *fakeFederated) Exchange(_ context.Context, code string) (string, error) {
	f.codes = append(f.codes, code)
	if f.exchangeErr != nil {
		return "", f.exchangeErr
	}
	return "google-id-for-" + code, nil
}

func (f *fakeIdentity) SignUp(_ context.Context, email, password, name, photo string) (*repositories.IdentitySession, error) {
	if f.signUpErr != nil {
		return nil, f.signUpErr
	}
	return &repositories.IdentitySession{
		Principal: models.Principal{UID: "uid-2", Email: email, DisplayName: name, PhotoURL: photo},
		IDToken:   "new-token",
	}, nil
}

func (f *fakeIdentity) SendPasswordReset(_ context.Context, email string) error {
	f.resets = append(f.resets, email)
	return nil
}

func (f *fakeIdentity) UpdateProfile(_ context.Context, idToken, name, photo string) (*repositories.IdentitySession, error) {
	f.updates++
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	return &repositories.IdentitySession{IDToken: idToken + "-refreshed"}, nil
}

type fakeUploader struct {
	keys []string
}

func (u *fakeUploader) Upload(_ context.Context, key, _ string, r io.Reader) (*storage.UploadResult, error) {
	if _, err := io.Copy(io.Discard, r); err != nil {
		return nil, err
	}
	u.keys = append(u.keys, key)
	return &storage.UploadResult{Key: key}, nil
}

func (u *fakeUploader) Delete(context.Context, string) error { return nil }

func (u *fakeUploader) GetPublicURL(key string) string { return "https://cdn.example.com/" + key }

type recordingNotifier struct {
	mu      sync.Mutex
	updates []string
}

func (n *recordingNotifier) ContestUpdated(contestID, reason string) {
	n.mu.Lock()
	n.updates = append(n.updates, contestID+":"+reason)
	n.mu.Unlock()
}

func fixedNow() time.Time {
	return time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
}

func newTestContestService(contests *fakeContestRepo, payments *fakePaymentRepo, notifier ContestNotifier) *contestService {
	svc := NewContestService(contests, payments, newCache(), countdown.NewRegistry(), NewInFlight(), notifier, discardLogger()).(*contestService)
	svc.now = fixedNow
	return svc
}

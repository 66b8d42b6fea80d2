package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/Dosada05/contest-hub/countdown"
	"github.com/Dosada05/contest-hub/models"
	"github.com/Dosada05/contest-hub/query"
	"github.com/Dosada05/contest-hub/repositories"
)

const recentWinnersLimit = 6

type ContestService interface {
	GetDetail(ctx context.Context, id string, viewer *models.Principal) (*ContestDetail, error)
	Countdown(ctx context.Context, id string) (*CountdownView, error)
	Register(ctx context.Context, id string, viewer *models.Principal) (string, error)
	Submit(ctx context.Context, id string, viewer *models.Principal, link string) error
	ListConfirmed(ctx context.Context, filter ContestFilter) ([]models.Contest, error)
	Popular(ctx context.Context) ([]models.Contest, error)
	RecentWinners(ctx context.Context) ([]models.Contest, error)
}

// ContestDetail данные страницы конкурса.
type ContestDetail struct {
	Contest      *models.Contest
	Registration *models.Registration
	Remaining    countdown.TimeRemaining
	State        DetailState
	// PaymentStatusErr is set when the contest loaded but the viewer's registration could not.
	PaymentStatusErr error
}

type CountdownView struct {
	ContestID string                  `json:"contest_id"`
	Deadline  time.Time               `json:"deadline"`
	Remaining countdown.TimeRemaining `json:"remaining"`
	Ended     bool                    `json:"ended"`
}

// ContestFilter фильтр списка всех конкурсов.
type ContestFilter struct {
	Search string
	Type   string
}

type contestService struct {
	contestRepo repositories.ContestRepository
	paymentRepo repositories.PaymentRepository
	cache       *query.Client
	trackers    *countdown.Registry
	inflight    *InFlight
	notifier    ContestNotifier
	now         func() time.Time
	logger      *slog.Logger
}

func NewContestService(
	contestRepo repositories.ContestRepository,
	paymentRepo repositories.PaymentRepository,
	cache *query.Client,
	trackers *countdown.Registry,
	inflight *InFlight,
	notifier ContestNotifier,
	logger *slog.Logger,
) ContestService {
	return &contestService{
		contestRepo: contestRepo,
		paymentRepo: paymentRepo,
		cache:       cache,
		trackers:    trackers,
		inflight:    inflight,
		notifier:    notifierOrNoop(notifier),
		now:         time.Now,
		logger:      logger,
	}
}

func registerKey(contestID, email string) string {
	return "register:" + contestID + ":" + normalizeEmail(email)
}

func submitKey(contestID, email string) string {
	return "submit:" + contestID + ":" + normalizeEmail(email)
}

func (s *contestService) contest(ctx context.Context, id string) (*models.Contest, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrContestNotFound
	}
	contest, err := query.Get(ctx, s.cache, keyContest(id), func(ctx context.Context) (*models.Contest, error) {
		return s.contestRepo.GetByID(ctx, id)
	})
	if err != nil {
		return nil, mapRepoError(err)
	}
	return contest, nil
}

func (s *contestService) registration(ctx context.Context, contestID, email string) (*models.Registration, error) {
	return query.Get(ctx, s.cache, keyPayment(contestID, email), func(ctx context.Context) (*models.Registration, error) {
		return s.paymentRepo.GetStatus(ctx, contestID, email)
	})
}

func (s *contestService) tick(contest *models.Contest) (countdown.TimeRemaining, bool) {
	tracker := s.trackers.Tracker(contest.ID, contest.Deadline)
	if contest.HasWinner() {
		tracker.MarkEnded()
	}
	return tracker.Tick(s.now())
}

func (s *contestService) GetDetail(ctx context.Context, id string, viewer *models.Principal) (*ContestDetail, error) {
	contest, err := s.contest(ctx, id)
	if err != nil {
		return nil, err
	}

	detail := &ContestDetail{Contest: contest}
	remaining, ended := s.tick(contest)
	detail.Remaining = remaining

	in := DetailInput{
		Authenticated:  viewer != nil,
		HasWinner:      contest.HasWinner(),
		DeadlinePassed: ended,
	}
	if viewer != nil {
		in.Registering = s.inflight.Active(registerKey(id, viewer.Email))
		reg, err := s.registration(ctx, id, viewer.Email)
		if err != nil {
			s.logger.Warn("payment status unavailable",
				slog.String("contest_id", id), slog.String("email", viewer.Email), slog.Any("error", err))
			detail.PaymentStatusErr = mapRepoError(err)
		}
		in.Registration = reg
		detail.Registration = reg
	}
	detail.State = DeriveDetailState(in)
	return detail, nil
}

func (s *contestService) Countdown(ctx context.Context, id string) (*CountdownView, error) {
	contest, err := s.contest(ctx, id)
	if err != nil {
		return nil, err
	}
	remaining, ended := s.tick(contest)
	return &CountdownView{ContestID: contest.ID, Deadline: contest.Deadline, Remaining: remaining, Ended: ended}, nil
}

// Register открывает checkout-сессию и возвращает URL платёжной страницы.
func (s *contestService) Register(ctx context.Context, id string, viewer *models.Principal) (string, error) {
	if viewer == nil {
		return "", ErrAuthenticationRequired
	}
	release, err := s.inflight.Begin(registerKey(id, viewer.Email))
	if err != nil {
		return "", err
	}
	defer release()

	contest, err := s.contest(ctx, id)
	if err != nil {
		return "", err
	}
	if contest.HasWinner() {
		return "", ErrWinnerAlreadyDeclared
	}
	if _, ended := s.tick(contest); ended {
		return "", ErrContestEnded
	}

	session, err := s.paymentRepo.CreateCheckoutSession(ctx, models.CheckoutRequest{
		ContestID:          contest.ID,
		ContestName:        contest.Name,
		ContestPrice:       contest.Price,
		ContestImage:       contest.Image,
		ContestType:        contest.Type,
		ContestCreatorName: contest.CreatorName,
		ContestDescription: contest.Description,
		ContestDeadline:    contest.Deadline,
		Participant: models.CheckoutParticipant{
			Name:  viewer.DisplayName,
			Image: viewer.PhotoURL,
			Email: viewer.Email,
		},
	})
	if err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			return "", ErrAlreadyRegistered
		}
		s.logger.Error("checkout session failed", slog.String("contest_id", id), slog.Any("error", err))
		return "", mapRepoError(err)
	}

	s.logger.Info("checkout session created", slog.String("contest_id", id), slog.String("email", viewer.Email))
	return session.URL, nil
}

func (s *contestService) Submit(ctx context.Context, id string, viewer *models.Principal, link string) error {
	if viewer == nil {
		return ErrAuthenticationRequired
	}
	link = strings.TrimSpace(link)
	if link == "" {
		return ErrSubmissionLinkRequired
	}

	release, err := s.inflight.Begin(submitKey(id, viewer.Email))
	if err != nil {
		return err
	}
	defer release()

	detail, err := s.GetDetail(ctx, id, viewer)
	if err != nil {
		return err
	}
	if detail.PaymentStatusErr != nil {
		return detail.PaymentStatusErr
	}
	switch {
	case !detail.State.Paid:
		return ErrPaymentNotConfirmed
	case detail.State.Submitted:
		return ErrAlreadySubmitted
	case detail.State.Ended:
		return ErrContestEnded
	}

	reg := detail.Registration
	input := models.SubmissionInput{
		Submitted:        true,
		SubmissionLink:   link,
		ParticipantName:  viewer.DisplayName,
		ParticipantImage: viewer.PhotoURL,
		SubmittedAt:      s.now().UTC(),
	}
	err = s.cache.Mutate(ctx, func(ctx context.Context) error {
		return s.paymentRepo.Submit(ctx, reg.ID, viewer.Email, input)
	}, keyPayment(id, viewer.Email), keySubmissions(id), keyParticipations(viewer.Email))
	if err != nil {
		s.logger.Error("task submission failed", slog.String("contest_id", id), slog.Any("error", err))
		return mapRepoError(err)
	}

	s.notifier.ContestUpdated(id, "submission")
	return nil
}

func (s *contestService) confirmed(ctx context.Context) ([]models.Contest, error) {
	contests, err := query.Get(ctx, s.cache, keyContestsConfirmed, func(ctx context.Context) ([]models.Contest, error) {
		return s.contestRepo.ListByStatus(ctx, models.ContestConfirmed)
	})
	if err != nil {
		return nil, mapRepoError(err)
	}
	return contests, nil
}

func (s *contestService) ListConfirmed(ctx context.Context, filter ContestFilter) ([]models.Contest, error) {
	contests, err := s.confirmed(ctx)
	if err != nil {
		return nil, err
	}
	return FilterContests(contests, filter), nil
}

func (s *contestService) Popular(ctx context.Context) ([]models.Contest, error) {
	contests, err := query.Get(ctx, s.cache, keyContestsPopular, func(ctx context.Context) ([]models.Contest, error) {
		return s.contestRepo.ListPopular(ctx)
	})
	if err != nil {
		return nil, mapRepoError(err)
	}
	return contests, nil
}

func (s *contestService) RecentWinners(ctx context.Context) ([]models.Contest, error) {
	contests, err := s.confirmed(ctx)
	if err != nil {
		return nil, err
	}
	return RecentWinners(contests, recentWinnersLimit), nil
}

// FilterContests keeps contests whose name contains the search term (case-insensitive)
// and, when set, whose type matches. The input order is preserved.
func FilterContests(contests []models.Contest, filter ContestFilter) []models.Contest {
	term := strings.ToLower(strings.TrimSpace(filter.Search))
	kind := strings.TrimSpace(filter.Type)
	out := make([]models.Contest, 0, len(contests))
	for _, c := range contests {
		if term != "" && !strings.Contains(strings.ToLower(c.Name), term) {
			continue
		}
		if kind != "" && !strings.EqualFold(c.Type, kind) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// RecentWinners returns up to limit contests with a declared winner, newest win first.
func RecentWinners(contests []models.Contest, limit int) []models.Contest {
	out := make([]models.Contest, 0, limit)
	for _, c := range contests {
		if c.HasWinner() {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Winner.WinningDate.After(out[j].Winner.WinningDate)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// mapRepoError переводит ошибки репозиториев в ошибки сервисов.
func mapRepoError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repositories.ErrContestNotFound):
		return ErrContestNotFound
	case errors.Is(err, repositories.ErrUserNotFound):
		return ErrUserNotFound
	case errors.Is(err, repositories.ErrRegistrationNotFound):
		return ErrSubmissionNotFound
	case errors.Is(err, repositories.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, repositories.ErrUnauthorized):
		return ErrAuthenticationRequired
	case errors.Is(err, repositories.ErrForbidden):
		return ErrForbiddenOperation
	case errors.Is(err, repositories.ErrBadRequest):
		return fmt.Errorf("%w: %v", ErrValidationFailed, err)
	default:
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
}

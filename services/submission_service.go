package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Dosada05/contest-hub/countdown"
	"github.com/Dosada05/contest-hub/models"
	"github.com/Dosada05/contest-hub/query"
	"github.com/Dosada05/contest-hub/repositories"
)

// CardState вид одной работы на странице проверки.
type CardState string

const (
	CardPending CardState = "pending"
	CardWinner  CardState = "winner"
	CardPassed  CardState = "passed"
)

type SubmissionCard struct {
	Submission models.Registration
	State      CardState
	CanDeclare bool
}

type SubmissionReview struct {
	Contest   *models.Contest
	Cards     []SubmissionCard
	Declaring bool
}

type SubmissionService interface {
	Review(ctx context.Context, contestID string, viewer *models.Principal) (*SubmissionReview, error)
	DeclareWinner(ctx context.Context, contestID, registrationID string, viewer *models.Principal) error
}

type submissionService struct {
	contestRepo repositories.ContestRepository
	paymentRepo repositories.PaymentRepository
	userRepo    repositories.UserRepository
	cache       *query.Client
	trackers    *countdown.Registry
	inflight    *InFlight
	notifier    ContestNotifier
	now         func() time.Time
	logger      *slog.Logger
}

func NewSubmissionService(
	contestRepo repositories.ContestRepository,
	paymentRepo repositories.PaymentRepository,
	userRepo repositories.UserRepository,
	cache *query.Client,
	trackers *countdown.Registry,
	inflight *InFlight,
	notifier ContestNotifier,
	logger *slog.Logger,
) SubmissionService {
	return &submissionService{
		contestRepo: contestRepo,
		paymentRepo: paymentRepo,
		userRepo:    userRepo,
		cache:       cache,
		trackers:    trackers,
		inflight:    inflight,
		notifier:    notifierOrNoop(notifier),
		now:         time.Now,
		logger:      logger,
	}
}

func declareKey(contestID string) string { return "declare:" + contestID }

// IsWinner matches a submission against the contest's winner record. Email is the
// identity when the record carries one; older records only have name and photo.
func IsWinner(winner *models.Winner, sub models.Registration) bool {
	if winner == nil {
		return false
	}
	if winner.Email != "" {
		return strings.EqualFold(strings.TrimSpace(winner.Email), strings.TrimSpace(sub.ParticipantEmail))
	}
	return winner.Name != "" && winner.Name == sub.ParticipantName && winner.Photo == sub.ParticipantImage
}

// BuildSubmissionCards assigns a render state to each submission. Once the contest has a
// winner at most one card is marked winning and every other card is passed.
func BuildSubmissionCards(contest *models.Contest, submissions []models.Registration, declaring bool) []SubmissionCard {
	cards := make([]SubmissionCard, 0, len(submissions))
	hasWinner := contest.HasWinner()
	winnerShown := false
	for _, sub := range submissions {
		card := SubmissionCard{Submission: sub, State: CardPending}
		switch {
		case hasWinner && !winnerShown && IsWinner(contest.Winner, sub):
			card.State = CardWinner
			winnerShown = true
		case hasWinner:
			card.State = CardPassed
		default:
			card.CanDeclare = !declaring
		}
		cards = append(cards, card)
	}
	return cards
}

func (s *submissionService) ownedContest(ctx context.Context, contestID string, viewer *models.Principal) (*models.Contest, error) {
	if viewer == nil {
		return nil, ErrAuthenticationRequired
	}
	contest, err := query.Get(ctx, s.cache, keyContest(contestID), func(ctx context.Context) (*models.Contest, error) {
		return s.contestRepo.GetByID(ctx, contestID)
	})
	if err != nil {
		return nil, mapRepoError(err)
	}
	if !strings.EqualFold(contest.CreatorEmail, viewer.Email) {
		return nil, ErrForbiddenOperation
	}
	return contest, nil
}

func (s *submissionService) submissions(ctx context.Context, contestID string) ([]models.Registration, error) {
	subs, err := query.Get(ctx, s.cache, keySubmissions(contestID), func(ctx context.Context) ([]models.Registration, error) {
		return s.paymentRepo.ListSubmissions(ctx, contestID)
	})
	if err != nil {
		return nil, mapRepoError(err)
	}
	return subs, nil
}

func (s *submissionService) Review(ctx context.Context, contestID string, viewer *models.Principal) (*SubmissionReview, error) {
	contest, err := s.ownedContest(ctx, contestID, viewer)
	if err != nil {
		return nil, err
	}
	subs, err := s.submissions(ctx, contestID)
	if err != nil {
		return nil, err
	}
	declaring := s.inflight.Active(declareKey(contestID))
	return &SubmissionReview{
		Contest:   contest,
		Cards:     BuildSubmissionCards(contest, subs, declaring),
		Declaring: declaring,
	}, nil
}

// DeclareWinner записывает победителя в конкурс и только после подтверждения этой
// записи увеличивает счётчик побед участника. Ошибка первой записи ничего не меняет,
// ошибка второй возвращается как ErrWinCountNotUpdated.
func (s *submissionService) DeclareWinner(ctx context.Context, contestID, registrationID string, viewer *models.Principal) error {
	release, err := s.inflight.Begin(declareKey(contestID))
	if err != nil {
		return err
	}
	defer release()

	contest, err := s.ownedContest(ctx, contestID, viewer)
	if err != nil {
		return err
	}
	if contest.HasWinner() {
		return ErrWinnerAlreadyDeclared
	}
	subs, err := s.submissions(ctx, contestID)
	if err != nil {
		return err
	}

	var chosen *models.Registration
	for i := range subs {
		if subs[i].ID == registrationID {
			chosen = &subs[i]
			break
		}
	}
	if chosen == nil || !chosen.Submitted {
		return ErrSubmissionNotFound
	}

	winner := models.Winner{
		Name:        chosen.ParticipantName,
		Photo:       chosen.ParticipantImage,
		Email:       chosen.ParticipantEmail,
		WinningDate: s.now().UTC(),
	}
	err = s.cache.Mutate(ctx, func(ctx context.Context) error {
		return s.contestRepo.DeclareWinner(ctx, contestID, winner)
	}, keyContest(contestID), keySubmissions(contestID), keyContestsPrefix)
	if err != nil {
		if errors.Is(err, repositories.ErrContestNotModified) {
			// кто-то успел раньше: сбрасываем кэш, чтобы показать актуального победителя
			s.cache.Invalidate(keyContest(contestID), keySubmissions(contestID))
			return ErrWinnerAlreadyDeclared
		}
		s.logger.Error("declare winner failed", slog.String("contest_id", contestID), slog.Any("error", err))
		return mapRepoError(err)
	}

	s.trackers.Tracker(contest.ID, contest.Deadline).MarkEnded()
	s.notifier.ContestUpdated(contestID, "winner")
	s.logger.Info("winner declared", slog.String("contest_id", contestID), slog.String("winner", winner.Email))

	err = s.cache.Mutate(ctx, func(ctx context.Context) error {
		return s.userRepo.IncrementWinCount(ctx, winner.Email)
	}, keyUsersPrefix)
	if err != nil {
		s.logger.Error("win count update failed", slog.String("contest_id", contestID), slog.String("email", winner.Email), slog.Any("error", err))
		return fmt.Errorf("%w: %v", ErrWinCountNotUpdated, err)
	}
	return nil
}

package services

import (
	"context"
	"log/slog"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/Dosada05/contest-hub/countdown"
	"github.com/Dosada05/contest-hub/models"
	"github.com/Dosada05/contest-hub/query"
	"github.com/Dosada05/contest-hub/repositories"
	"github.com/Dosada05/contest-hub/storage"
	"github.com/shopspring/decimal"
)

type CreatorService interface {
	CreateContest(ctx context.Context, viewer *models.Principal, input models.ContestInput) (string, error)
	UploadContestImage(ctx context.Context, viewer *models.Principal, file ImageUpload) (string, error)
	MyContests(ctx context.Context, viewer *models.Principal) ([]models.Contest, error)
	GetEditable(ctx context.Context, id string, viewer *models.Principal) (*models.Contest, error)
	UpdateContest(ctx context.Context, id string, viewer *models.Principal, input models.ContestInput) error
	DeleteContest(ctx context.Context, id string, viewer *models.Principal) error
	Overview(ctx context.Context, viewer *models.Principal) (models.CreatorStats, error)
}

type creatorService struct {
	contestRepo repositories.ContestRepository
	cache       *query.Client
	uploader    storage.FileUploader
	inflight    *InFlight
	trackers    *countdown.Registry
	notifier    ContestNotifier
	now         func() time.Time
	logger      *slog.Logger
}

func NewCreatorService(
	contestRepo repositories.ContestRepository,
	cache *query.Client,
	uploader storage.FileUploader,
	inflight *InFlight,
	trackers *countdown.Registry,
	notifier ContestNotifier,
	logger *slog.Logger,
) CreatorService {
	return &creatorService{
		contestRepo: contestRepo,
		cache:       cache,
		uploader:    uploader,
		inflight:    inflight,
		trackers:    trackers,
		notifier:    notifierOrNoop(notifier),
		now:         time.Now,
		logger:      logger,
	}
}

// ValidateContestInput checks the contest form. Money may not be negative and the
// deadline must lie in the future.
func ValidateContestInput(in models.ContestInput, now time.Time) error {
	v := validator{}
	v.check(strings.TrimSpace(in.Name) != "", "name", "contest name is required")
	v.check(strings.TrimSpace(in.Description) != "", "description", "description is required")
	v.check(strings.TrimSpace(in.Instructions) != "", "instructions", "task instructions are required")
	v.check(isKnownType(in.Type), "type", "choose a contest type")
	v.check(!in.Price.IsNegative(), "price", "price cannot be negative")
	v.check(!in.PrizeMoney.IsNegative(), "prizeMoney", "prize money cannot be negative")
	v.check(!in.Deadline.IsZero(), "deadline", "deadline is required")
	v.check(in.Deadline.IsZero() || in.Deadline.After(now), "deadline", "deadline must be in the future")
	v.check(strings.TrimSpace(in.Image) != "", "image", "an image URL or upload is required")
	if img := strings.TrimSpace(in.Image); img != "" {
		u, err := url.Parse(img)
		v.check(err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != "", "image", "image must be an http(s) URL")
	}
	return v.err()
}

func isKnownType(t string) bool {
	for _, known := range models.ContestTypes {
		if t == known {
			return true
		}
	}
	return false
}

func normalizeContestInput(in models.ContestInput) models.ContestInput {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.Instructions = strings.TrimSpace(in.Instructions)
	in.Image = strings.TrimSpace(in.Image)
	in.Price = in.Price.Round(2)
	in.PrizeMoney = in.PrizeMoney.Round(2)
	in.Deadline = in.Deadline.UTC()
	return in
}

func (s *creatorService) CreateContest(ctx context.Context, viewer *models.Principal, input models.ContestInput) (string, error) {
	if viewer == nil {
		return "", ErrAuthenticationRequired
	}
	input = normalizeContestInput(input)
	if err := ValidateContestInput(input, s.now()); err != nil {
		return "", err
	}
	input.CreatorEmail = viewer.Email
	input.CreatorName = viewer.DisplayName

	release, err := s.inflight.Begin("create-contest:" + normalizeEmail(viewer.Email))
	if err != nil {
		return "", err
	}
	defer release()

	var id string
	err = s.cache.Mutate(ctx, func(ctx context.Context) error {
		var err error
		id, err = s.contestRepo.Create(ctx, input)
		return err
	}, keyContestsPrefix)
	if err != nil {
		s.logger.Error("contest creation failed", slog.String("creator", viewer.Email), slog.Any("error", err))
		return "", mapRepoError(err)
	}
	s.logger.Info("contest created", slog.String("contest_id", id), slog.String("creator", viewer.Email))
	return id, nil
}

func (s *creatorService) UploadContestImage(ctx context.Context, viewer *models.Principal, file ImageUpload) (string, error) {
	if viewer == nil {
		return "", ErrAuthenticationRequired
	}
	return uploadImage(ctx, s.uploader, "contests", file)
}

func (s *creatorService) MyContests(ctx context.Context, viewer *models.Principal) ([]models.Contest, error) {
	if viewer == nil {
		return nil, ErrAuthenticationRequired
	}
	contests, err := query.Get(ctx, s.cache, keyContestsByCreator(viewer.Email), func(ctx context.Context) ([]models.Contest, error) {
		return s.contestRepo.ListByCreator(ctx, viewer.Email)
	})
	if err != nil {
		return nil, mapRepoError(err)
	}
	return SortCreatorContests(contests), nil
}

// SortCreatorContests ставит pending первыми, внутри групп новые выше.
func SortCreatorContests(contests []models.Contest) []models.Contest {
	out := make([]models.Contest, len(contests))
	copy(out, contests)
	sort.SliceStable(out, func(i, j int) bool {
		pi, pj := out[i].Status == models.ContestPending, out[j].Status == models.ContestPending
		if pi != pj {
			return pi
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (s *creatorService) GetEditable(ctx context.Context, id string, viewer *models.Principal) (*models.Contest, error) {
	if viewer == nil {
		return nil, ErrAuthenticationRequired
	}
	contest, err := query.Get(ctx, s.cache, keyContest(id), func(ctx context.Context) (*models.Contest, error) {
		return s.contestRepo.GetByID(ctx, id)
	})
	if err != nil {
		return nil, mapRepoError(err)
	}
	if !strings.EqualFold(contest.CreatorEmail, viewer.Email) {
		return nil, ErrForbiddenOperation
	}
	if !contest.Editable() {
		return nil, ErrContestNotEditable
	}
	return contest, nil
}

func (s *creatorService) UpdateContest(ctx context.Context, id string, viewer *models.Principal, input models.ContestInput) error {
	if _, err := s.GetEditable(ctx, id, viewer); err != nil {
		return err
	}
	input = normalizeContestInput(input)
	if err := ValidateContestInput(input, s.now()); err != nil {
		return err
	}
	input.CreatorEmail = ""
	input.CreatorName = ""

	release, err := s.inflight.Begin("edit-contest:" + id)
	if err != nil {
		return err
	}
	defer release()

	err = s.cache.Mutate(ctx, func(ctx context.Context) error {
		return s.contestRepo.UpdateByCreator(ctx, id, input)
	}, keyContest(id), keyContestsPrefix)
	if err != nil {
		s.logger.Error("contest update failed", slog.String("contest_id", id), slog.Any("error", err))
		return mapRepoError(err)
	}
	s.notifier.ContestUpdated(id, "edited")
	return nil
}

func (s *creatorService) DeleteContest(ctx context.Context, id string, viewer *models.Principal) error {
	if _, err := s.GetEditable(ctx, id, viewer); err != nil {
		return err
	}
	release, err := s.inflight.Begin("delete-contest:" + id)
	if err != nil {
		return err
	}
	defer release()

	err = s.cache.Mutate(ctx, func(ctx context.Context) error {
		return s.contestRepo.DeleteByCreator(ctx, id)
	}, keyContest(id), keyContestsPrefix)
	if err != nil {
		s.logger.Error("contest deletion failed", slog.String("contest_id", id), slog.Any("error", err))
		return mapRepoError(err)
	}
	s.logger.Info("contest deleted by creator", slog.String("contest_id", id), slog.String("creator", viewer.Email))
	s.trackers.Forget(id)
	s.notifier.ContestUpdated(id, "deleted")
	return nil
}

func (s *creatorService) Overview(ctx context.Context, viewer *models.Principal) (models.CreatorStats, error) {
	contests, err := s.MyContests(ctx, viewer)
	if err != nil {
		return models.CreatorStats{}, err
	}
	return CreatorStatsFor(contests), nil
}

func CreatorStatsFor(contests []models.Contest) models.CreatorStats {
	stats := models.CreatorStats{ContestsTotal: len(contests), PrizePool: decimal.Zero}
	for _, c := range contests {
		switch c.Status {
		case models.ContestPending:
			stats.Pending++
		case models.ContestConfirmed:
			stats.Confirmed++
		case models.ContestRejected:
			stats.Rejected++
		}
		stats.ParticipantsTotal += c.Participants
		stats.PrizePool = stats.PrizePool.Add(c.PrizeMoney)
	}
	return stats
}

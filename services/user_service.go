package services

import (
	"context"
	"log/slog"
	"math"
	"strings"

	"github.com/Dosada05/contest-hub/models"
	"github.com/Dosada05/contest-hub/query"
	"github.com/Dosada05/contest-hub/repositories"
	"github.com/Dosada05/contest-hub/storage"
	"golang.org/x/sync/errgroup"
)

type UserService interface {
	Participations(ctx context.Context, viewer *models.Principal) ([]models.Registration, error)
	Winnings(ctx context.Context, viewer *models.Principal) ([]models.Contest, error)
	Overview(ctx context.Context, viewer *models.Principal) (models.UserStats, error)
	Profile(ctx context.Context, viewer *models.Principal) (*models.User, error)
	UpdateProfile(ctx context.Context, session *Session, input models.ProfileInput, photo *ImageUpload) (*Session, error)
}

type userService struct {
	userRepo    repositories.UserRepository
	contestRepo repositories.ContestRepository
	paymentRepo repositories.PaymentRepository
	identity    repositories.IdentityProvider
	cache       *query.Client
	uploader    storage.FileUploader
	logger      *slog.Logger
}

func NewUserService(
	userRepo repositories.UserRepository,
	contestRepo repositories.ContestRepository,
	paymentRepo repositories.PaymentRepository,
	identity repositories.IdentityProvider,
	cache *query.Client,
	uploader storage.FileUploader,
	logger *slog.Logger,
) UserService {
	return &userService{
		userRepo:    userRepo,
		contestRepo: contestRepo,
		paymentRepo: paymentRepo,
		identity:    identity,
		cache:       cache,
		uploader:    uploader,
		logger:      logger,
	}
}

func (s *userService) Participations(ctx context.Context, viewer *models.Principal) ([]models.Registration, error) {
	if viewer == nil {
		return nil, ErrAuthenticationRequired
	}
	regs, err := query.Get(ctx, s.cache, keyParticipations(viewer.Email), func(ctx context.Context) ([]models.Registration, error) {
		return s.paymentRepo.ListByParticipant(ctx, viewer.Email)
	})
	if err != nil {
		return nil, mapRepoError(err)
	}
	return regs, nil
}

func (s *userService) Winnings(ctx context.Context, viewer *models.Principal) ([]models.Contest, error) {
	if viewer == nil {
		return nil, ErrAuthenticationRequired
	}
	contests, err := query.Get(ctx, s.cache, keyContestsWonBy(viewer.Email), func(ctx context.Context) ([]models.Contest, error) {
		return s.contestRepo.ListWonBy(ctx, viewer.Email)
	})
	if err != nil {
		return nil, mapRepoError(err)
	}
	return contests, nil
}

func (s *userService) Overview(ctx context.Context, viewer *models.Principal) (models.UserStats, error) {
	var (
		regs []models.Registration
		won  []models.Contest
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		regs, err = s.Participations(gctx, viewer)
		return err
	})
	g.Go(func() error {
		var err error
		won, err = s.Winnings(gctx, viewer)
		return err
	})
	if err := g.Wait(); err != nil {
		return models.UserStats{}, err
	}
	return UserStatsFor(len(regs), len(won)), nil
}

// UserStatsFor: active = participated - won, процент побед округляется до целого.
func UserStatsFor(participated, won int) models.UserStats {
	stats := models.UserStats{Participated: participated, Won: won}
	if active := participated - won; active > 0 {
		stats.Active = active
	}
	if participated > 0 {
		stats.WinPercentage = int(math.Round(float64(won) / float64(participated) * 100))
	}
	return stats
}

func (s *userService) Profile(ctx context.Context, viewer *models.Principal) (*models.User, error) {
	if viewer == nil {
		return nil, ErrAuthenticationRequired
	}
	user, err := query.Get(ctx, s.cache, keyUser(viewer.Email), func(ctx context.Context) (*models.User, error) {
		return s.userRepo.GetByEmail(ctx, viewer.Email)
	})
	if err != nil {
		return nil, mapRepoError(err)
	}
	return user, nil
}

// UpdateProfile сохраняет профиль и затем повторяет имя и фото у провайдера
// идентификации. Возвращённая сессия несёт обновлённого пользователя.
func (s *userService) UpdateProfile(ctx context.Context, session *Session, input models.ProfileInput, photo *ImageUpload) (*Session, error) {
	if session == nil {
		return nil, ErrAuthenticationRequired
	}
	input.DisplayName = strings.TrimSpace(input.DisplayName)
	input.PhotoURL = strings.TrimSpace(input.PhotoURL)
	input.PhoneNumber = strings.TrimSpace(input.PhoneNumber)
	input.Address = strings.TrimSpace(input.Address)

	v := validator{}
	v.check(input.DisplayName != "", "displayName", "name is required")
	if err := v.err(); err != nil {
		return nil, err
	}

	user, err := s.Profile(ctx, &session.Principal)
	if err != nil {
		return nil, err
	}
	if photo != nil {
		url, err := uploadImage(ctx, s.uploader, "avatars", *photo)
		if err != nil {
			return nil, err
		}
		input.PhotoURL = url
	}
	if input.PhotoURL == "" {
		input.PhotoURL = user.PhotoURL
	}

	err = s.cache.Mutate(ctx, func(ctx context.Context) error {
		return s.userRepo.UpdateInfo(ctx, user.ID, input)
	}, keyUser(session.Principal.Email), keyUsersAll)
	if err != nil {
		s.logger.Error("profile update failed", slog.String("email", session.Principal.Email), slog.Any("error", err))
		return nil, mapRepoError(err)
	}

	updated := *session
	updated.Principal.DisplayName = input.DisplayName
	updated.Principal.PhotoURL = input.PhotoURL

	if session.IDToken == "" {
		return &updated, nil
	}
	identity, err := s.identity.UpdateProfile(ctx, session.IDToken, input.DisplayName, input.PhotoURL)
	if err != nil {
		// запись профиля уже обновлена, провайдер догонит при следующем входе
		s.logger.Warn("identity profile sync failed", slog.String("email", session.Principal.Email), slog.Any("error", err))
		return &updated, nil
	}
	updated.IDToken = identity.IDToken
	if identity.RefreshToken != "" {
		updated.RefreshToken = identity.RefreshToken
	}
	if !identity.ExpiresAt.IsZero() {
		updated.TokenExpiresAt = identity.ExpiresAt
	}
	return &updated, nil
}

package services

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/Dosada05/contest-hub/countdown"
	"github.com/Dosada05/contest-hub/models"
	"github.com/Dosada05/contest-hub/query"
	"github.com/Dosada05/contest-hub/repositories"
	"golang.org/x/sync/errgroup"
)

const AdminPageSize = 10

// UserRow строка таблицы пользователей в админке.
type UserRow struct {
	User       models.User
	IsSelf     bool
	RoleLocked bool
}

// CanChangeRole повторяет правило API в интерфейсе: свою роль менять нельзя,
// админ остаётся админом.
func (r UserRow) CanChangeRole() bool {
	return !r.IsSelf && !r.RoleLocked
}

type AdminService interface {
	Contests(ctx context.Context, page int) (models.Page[models.Contest], error)
	ChangeContestStatus(ctx context.Context, id string, status models.ContestStatus) error
	DeleteContest(ctx context.Context, id string, confirmed bool) error
	Users(ctx context.Context, viewer *models.Principal, page int) (models.Page[UserRow], error)
	ChangeUserRole(ctx context.Context, viewer *models.Principal, userID string, role string) error
	Stats(ctx context.Context) (models.AdminStats, error)
}

type adminService struct {
	contestRepo repositories.ContestRepository
	userRepo    repositories.UserRepository
	cache       *query.Client
	inflight    *InFlight
	trackers    *countdown.Registry
	notifier    ContestNotifier
	logger      *slog.Logger
}

func NewAdminService(
	contestRepo repositories.ContestRepository,
	userRepo repositories.UserRepository,
	cache *query.Client,
	inflight *InFlight,
	trackers *countdown.Registry,
	notifier ContestNotifier,
	logger *slog.Logger,
) AdminService {
	return &adminService{
		contestRepo: contestRepo,
		userRepo:    userRepo,
		cache:       cache,
		inflight:    inflight,
		trackers:    trackers,
		notifier:    notifierOrNoop(notifier),
		logger:      logger,
	}
}

func (s *adminService) allContests(ctx context.Context) ([]models.Contest, error) {
	contests, err := query.Get(ctx, s.cache, keyContestsAll, func(ctx context.Context) ([]models.Contest, error) {
		return s.contestRepo.ListAll(ctx)
	})
	if err != nil {
		return nil, mapRepoError(err)
	}
	return contests, nil
}

func (s *adminService) allUsers(ctx context.Context) ([]models.User, error) {
	users, err := query.Get(ctx, s.cache, keyUsersAll, func(ctx context.Context) ([]models.User, error) {
		return s.userRepo.List(ctx)
	})
	if err != nil {
		return nil, mapRepoError(err)
	}
	return users, nil
}

// SortNewestFirst orders contests by createdAt, newest first; equal timestamps keep input order.
func SortNewestFirst(contests []models.Contest) []models.Contest {
	out := make([]models.Contest, len(contests))
	copy(out, contests)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (s *adminService) Contests(ctx context.Context, page int) (models.Page[models.Contest], error) {
	contests, err := s.allContests(ctx)
	if err != nil {
		return models.Page[models.Contest]{}, err
	}
	return models.Paginate(SortNewestFirst(contests), page, AdminPageSize), nil
}

func (s *adminService) ChangeContestStatus(ctx context.Context, id string, status models.ContestStatus) error {
	if !status.Valid() {
		return ErrInvalidContestStatus
	}
	release, err := s.inflight.Begin("contest-status:" + id)
	if err != nil {
		return err
	}
	defer release()

	err = s.cache.Mutate(ctx, func(ctx context.Context) error {
		return s.contestRepo.UpdateStatus(ctx, id, status)
	}, keyContest(id), keyContestsPrefix)
	if err != nil {
		s.logger.Error("contest status change failed", slog.String("contest_id", id), slog.String("status", string(status)), slog.Any("error", err))
		return mapRepoError(err)
	}
	s.logger.Info("contest status changed", slog.String("contest_id", id), slog.String("status", string(status)))
	s.notifier.ContestUpdated(id, "status")
	return nil
}

func (s *adminService) DeleteContest(ctx context.Context, id string, confirmed bool) error {
	if !confirmed {
		return ErrConfirmationRequired
	}
	release, err := s.inflight.Begin("contest-delete:" + id)
	if err != nil {
		return err
	}
	defer release()

	err = s.cache.Mutate(ctx, func(ctx context.Context) error {
		return s.contestRepo.Delete(ctx, id)
	}, keyContest(id), keyContestsPrefix)
	if err != nil {
		s.logger.Error("contest deletion failed", slog.String("contest_id", id), slog.Any("error", err))
		return mapRepoError(err)
	}
	s.logger.Info("contest deleted by admin", slog.String("contest_id", id))
	s.trackers.Forget(id)
	s.notifier.ContestUpdated(id, "deleted")
	return nil
}

// BuildUserRows sorts users newest first (email breaks ties) and flags rows the viewer
// may not edit.
func BuildUserRows(users []models.User, viewerEmail string) []UserRow {
	sorted := make([]models.User, len(users))
	copy(sorted, users)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
			return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
		}
		return normalizeEmail(sorted[i].Email) < normalizeEmail(sorted[j].Email)
	})
	rows := make([]UserRow, len(sorted))
	for i, u := range sorted {
		rows[i] = UserRow{
			User:       u,
			IsSelf:     viewerEmail != "" && normalizeEmail(u.Email) == normalizeEmail(viewerEmail),
			RoleLocked: u.Role == models.RoleAdmin,
		}
	}
	return rows
}

func (s *adminService) Users(ctx context.Context, viewer *models.Principal, page int) (models.Page[UserRow], error) {
	users, err := s.allUsers(ctx)
	if err != nil {
		return models.Page[UserRow]{}, err
	}
	email := ""
	if viewer != nil {
		email = viewer.Email
	}
	return models.Paginate(BuildUserRows(users, email), page, AdminPageSize), nil
}

// ChangeUserRole ничего не делает, если роль у пользователя уже такая.
func (s *adminService) ChangeUserRole(ctx context.Context, viewer *models.Principal, userID string, rawRole string) error {
	if viewer == nil {
		return ErrAuthenticationRequired
	}
	role, err := models.ParseRole(strings.TrimSpace(rawRole))
	if err != nil {
		return ErrInvalidRole
	}

	release, err := s.inflight.Begin("user-role:" + userID)
	if err != nil {
		return err
	}
	defer release()

	users, err := s.allUsers(ctx)
	if err != nil {
		return err
	}
	var target *models.User
	for i := range users {
		if users[i].ID == userID {
			target = &users[i]
			break
		}
	}
	if target == nil {
		return ErrUserNotFound
	}

	switch {
	case normalizeEmail(target.Email) == normalizeEmail(viewer.Email):
		return ErrSelfRoleChange
	case target.Role == models.RoleAdmin:
		return ErrAdminRoleLocked
	case target.Role == role:
		return nil
	}

	err = s.cache.Mutate(ctx, func(ctx context.Context) error {
		return s.userRepo.UpdateRole(ctx, userID, role)
	}, keyUsersPrefix)
	if err != nil {
		s.logger.Error("role change failed", slog.String("user_id", userID), slog.String("role", role.String()), slog.Any("error", err))
		return mapRepoError(err)
	}
	s.logger.Info("role changed", slog.String("user_id", userID), slog.String("from", target.Role.String()), slog.String("to", role.String()))
	return nil
}

func (s *adminService) Stats(ctx context.Context) (models.AdminStats, error) {
	var (
		users    []models.User
		contests []models.Contest
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		users, err = s.allUsers(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		contests, err = s.allContests(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return models.AdminStats{}, err
	}
	return AdminStatsFor(users, contests), nil
}

func AdminStatsFor(users []models.User, contests []models.Contest) models.AdminStats {
	stats := models.AdminStats{UsersTotal: len(users), ContestsTotal: len(contests)}
	for _, u := range users {
		switch u.Role {
		case models.RoleCreator:
			stats.Creators++
		case models.RoleAdmin:
			stats.Admins++
		}
	}
	for _, c := range contests {
		switch c.Status {
		case models.ContestPending:
			stats.Pending++
		case models.ContestConfirmed:
			stats.Confirmed++
		case models.ContestRejected:
			stats.Rejected++
		}
	}
	return stats
}

package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Dosada05/contest-hub/models"
	"github.com/Dosada05/contest-hub/query"
	"github.com/Dosada05/contest-hub/repositories"
)

// RoleResolver берёт роль пользователя из его записи в API.
type RoleResolver interface {
	Resolve(ctx context.Context, principal models.Principal) (models.Role, error)
}

type roleResolver struct {
	userRepo repositories.UserRepository
	cache    *query.Client
	logger   *slog.Logger
}

func NewRoleResolver(userRepo repositories.UserRepository, cache *query.Client, logger *slog.Logger) RoleResolver {
	return &roleResolver{userRepo: userRepo, cache: cache, logger: logger}
}

// Resolve не повторяет запрос: любая ошибка это ErrRoleUnresolved, а вызывающие
// считают её отказом в доступе.
func (r *roleResolver) Resolve(ctx context.Context, principal models.Principal) (models.Role, error) {
	if principal.Email == "" {
		return "", ErrAuthenticationRequired
	}
	user, err := query.Get(ctx, r.cache, keyUser(principal.Email), func(ctx context.Context) (*models.User, error) {
		return r.userRepo.GetByEmail(ctx, principal.Email)
	})
	if err != nil {
		if !errors.Is(err, repositories.ErrUserNotFound) {
			r.logger.Warn("role resolution failed", slog.String("email", principal.Email), slog.Any("error", err))
		}
		return "", fmt.Errorf("%w: %v", ErrRoleUnresolved, err)
	}
	role, err := models.ParseRole(string(user.Role))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRoleUnresolved, err)
	}
	return role, nil
}

package repositories

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/Dosada05/contest-hub/models"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserEmailConflict = errors.New("user email conflict")
)

type UserRepository interface {
	List(ctx context.Context) ([]models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, input models.NewUserInput) error
	UpdateRole(ctx context.Context, id string, role models.Role) error
	UpdateInfo(ctx context.Context, id string, input models.ProfileInput) error
	IncrementWinCount(ctx context.Context, email string) error
}

type apiUserRepository struct {
	client *Client
}

func NewAPIUserRepository(client *Client) UserRepository {
	return &apiUserRepository{client: client}
}

func (r *apiUserRepository) List(ctx context.Context) ([]models.User, error) {
	users := []models.User{}
	if err := r.client.get(ctx, "/users", nil, &users); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

func (r *apiUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.client.get(ctx, "/users/one", params("email", email), &user); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user %s: %w", email, err)
	}
	if user.Email == "" {
		return nil, ErrUserNotFound
	}
	return &user, nil
}

// Create заводит запись профиля. Существующая запись с тем же email не ошибка:
// вход через Google и повторная регистрация присылают пользователя снова.
func (r *apiUserRepository) Create(ctx context.Context, input models.NewUserInput) error {
	if err := r.client.do(ctx, http.MethodPost, "/users", nil, input, nil); err != nil {
		if errors.Is(err, ErrConflict) {
			return nil
		}
		return fmt.Errorf("failed to create user %s: %w", input.Email, err)
	}
	return nil
}

func (r *apiUserRepository) UpdateRole(ctx context.Context, id string, role models.Role) error {
	body := struct {
		Role models.Role `json:"role"`
	}{Role: role}

	var result WriteResult
	if err := r.client.do(ctx, http.MethodPatch, "/users/"+url.PathEscape(id), nil, body, &result); err != nil {
		return r.wrap(err, "change role of", id)
	}
	return checkModified(result, ErrUserNotFound)
}

func (r *apiUserRepository) UpdateInfo(ctx context.Context, id string, input models.ProfileInput) error {
	var result WriteResult
	if err := r.client.do(ctx, http.MethodPatch, "/users/"+url.PathEscape(id)+"/info", nil, input, &result); err != nil {
		return r.wrap(err, "update profile of", id)
	}
	return checkModified(result, ErrUserNotFound)
}

func (r *apiUserRepository) IncrementWinCount(ctx context.Context, email string) error {
	var result WriteResult
	if err := r.client.do(ctx, http.MethodPatch, "/users/win-count/"+url.PathEscape(email), nil, nil, &result); err != nil {
		return r.wrap(err, "increment win count of", email)
	}
	return nil
}

func (r *apiUserRepository) wrap(err error, action, id string) error {
	if errors.Is(err, ErrNotFound) {
		return ErrUserNotFound
	}
	return fmt.Errorf("failed to %s user %s: %w", action, id, err)
}

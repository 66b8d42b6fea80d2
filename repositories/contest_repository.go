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
	ErrContestNotFound    = errors.New("contest not found")
	ErrContestNotModified = errors.New("contest was not modified")
)

type ContestRepository interface {
	GetByID(ctx context.Context, id string) (*models.Contest, error)
	ListAll(ctx context.Context) ([]models.Contest, error)
	ListByStatus(ctx context.Context, status models.ContestStatus) ([]models.Contest, error)
	ListPopular(ctx context.Context) ([]models.Contest, error)
	ListByCreator(ctx context.Context, email string) ([]models.Contest, error)
	ListWonBy(ctx context.Context, email string) ([]models.Contest, error)
	Create(ctx context.Context, input models.ContestInput) (string, error)
	UpdateStatus(ctx context.Context, id string, status models.ContestStatus) error
	DeclareWinner(ctx context.Context, id string, winner models.Winner) error
	UpdateByCreator(ctx context.Context, id string, input models.ContestInput) error
	Delete(ctx context.Context, id string) error
	DeleteByCreator(ctx context.Context, id string) error
}

type apiContestRepository struct {
	client *Client
}

func NewAPIContestRepository(client *Client) ContestRepository {
	return &apiContestRepository{client: client}
}

func (r *apiContestRepository) GetByID(ctx context.Context, id string) (*models.Contest, error) {
	var contest models.Contest
	if err := r.client.get(ctx, "/contests/"+url.PathEscape(id), nil, &contest); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrContestNotFound
		}
		return nil, fmt.Errorf("failed to get contest %s: %w", id, err)
	}
	if contest.ID == "" {
		return nil, ErrContestNotFound
	}
	return &contest, nil
}

func (r *apiContestRepository) ListAll(ctx context.Context) ([]models.Contest, error) {
	return r.list(ctx, "/contests", nil)
}

func (r *apiContestRepository) ListByStatus(ctx context.Context, status models.ContestStatus) ([]models.Contest, error) {
	return r.list(ctx, "/contests/all-users", params("status", string(status)))
}

func (r *apiContestRepository) ListPopular(ctx context.Context) ([]models.Contest, error) {
	return r.list(ctx, "/contests/popular-contests", nil)
}

func (r *apiContestRepository) ListByCreator(ctx context.Context, email string) ([]models.Contest, error) {
	return r.list(ctx, "/contests/creator", params("email", email))
}

func (r *apiContestRepository) ListWonBy(ctx context.Context, email string) ([]models.Contest, error) {
	return r.list(ctx, "/contests/winner/contests", params("email", email))
}

func (r *apiContestRepository) list(ctx context.Context, path string, query url.Values) ([]models.Contest, error) {
	contests := []models.Contest{}
	if err := r.client.get(ctx, path, query, &contests); err != nil {
		return nil, fmt.Errorf("failed to list contests (%s): %w", path, err)
	}
	return contests, nil
}

func (r *apiContestRepository) Create(ctx context.Context, input models.ContestInput) (string, error) {
	var result WriteResult
	if err := r.client.do(ctx, http.MethodPost, "/contests", nil, input, &result); err != nil {
		return "", fmt.Errorf("failed to create contest: %w", err)
	}
	if result.InsertedID == "" {
		return "", fmt.Errorf("failed to create contest: %w", ErrContestNotModified)
	}
	return result.InsertedID, nil
}

func (r *apiContestRepository) UpdateStatus(ctx context.Context, id string, status models.ContestStatus) error {
	body := struct {
		NewStatus models.ContestStatus `json:"newStatus"`
	}{NewStatus: status}

	var result WriteResult
	if err := r.client.do(ctx, http.MethodPatch, "/contests/"+url.PathEscape(id)+"/admin", nil, body, &result); err != nil {
		return r.wrap(err, "update status of", id)
	}
	return checkModified(result, ErrContestNotFound)
}

func (r *apiContestRepository) DeclareWinner(ctx context.Context, id string, winner models.Winner) error {
	var result WriteResult
	if err := r.client.do(ctx, http.MethodPatch, "/contests/"+url.PathEscape(id)+"/creator", nil, winner, &result); err != nil {
		return r.wrap(err, "declare winner of", id)
	}
	if result.ModifiedCount == 0 {
		return ErrContestNotModified
	}
	return nil
}

func (r *apiContestRepository) UpdateByCreator(ctx context.Context, id string, input models.ContestInput) error {
	var result WriteResult
	if err := r.client.do(ctx, http.MethodPatch, "/contests/creator/"+url.PathEscape(id), nil, input, &result); err != nil {
		return r.wrap(err, "edit", id)
	}
	return checkModified(result, ErrContestNotFound)
}

func (r *apiContestRepository) Delete(ctx context.Context, id string) error {
	var result WriteResult
	if err := r.client.do(ctx, http.MethodDelete, "/contests/"+url.PathEscape(id), nil, nil, &result); err != nil {
		return r.wrap(err, "delete", id)
	}
	return checkDeleted(result, ErrContestNotFound)
}

func (r *apiContestRepository) DeleteByCreator(ctx context.Context, id string) error {
	var result WriteResult
	if err := r.client.do(ctx, http.MethodDelete, "/contests/creator/"+url.PathEscape(id), nil, nil, &result); err != nil {
		return r.wrap(err, "delete", id)
	}
	return checkDeleted(result, ErrContestNotFound)
}

func (r *apiContestRepository) wrap(err error, action, id string) error {
	if errors.Is(err, ErrNotFound) {
		return ErrContestNotFound
	}
	return fmt.Errorf("failed to %s contest %s: %w", action, id, err)
}

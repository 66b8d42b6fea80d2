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
	ErrRegistrationNotFound = errors.New("registration not found")
	ErrCheckoutFailed       = errors.New("checkout session has no redirect url")
)

type PaymentRepository interface {
	CreateCheckoutSession(ctx context.Context, req models.CheckoutRequest) (*models.CheckoutSession, error)
	ConfirmPayment(ctx context.Context, sessionID string) (*models.PaymentConfirmation, error)
	// GetStatus returns the participant's registration for a contest, or nil when there is none.
	GetStatus(ctx context.Context, contestID, email string) (*models.Registration, error)
	ListByParticipant(ctx context.Context, email string) ([]models.Registration, error)
	ListSubmissions(ctx context.Context, contestID string) ([]models.Registration, error)
	Submit(ctx context.Context, registrationID, email string, input models.SubmissionInput) error
}

type apiPaymentRepository struct {
	client *Client
}

func NewAPIPaymentRepository(client *Client) PaymentRepository {
	return &apiPaymentRepository{client: client}
}

func (r *apiPaymentRepository) CreateCheckoutSession(ctx context.Context, req models.CheckoutRequest) (*models.CheckoutSession, error) {
	var session models.CheckoutSession
	if err := r.client.do(ctx, http.MethodPost, "/create-checkout-session", nil, req, &session); err != nil {
		return nil, fmt.Errorf("failed to create checkout session for contest %s: %w", req.ContestID, err)
	}
	if session.URL == "" {
		return nil, ErrCheckoutFailed
	}
	return &session, nil
}

func (r *apiPaymentRepository) ConfirmPayment(ctx context.Context, sessionID string) (*models.PaymentConfirmation, error) {
	body := struct {
		SessionID string `json:"sessionId"`
	}{SessionID: sessionID}

	var confirmation models.PaymentConfirmation
	if err := r.client.do(ctx, http.MethodPost, "/payment-success", nil, body, &confirmation); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrRegistrationNotFound
		}
		return nil, fmt.Errorf("failed to confirm payment: %w", err)
	}
	return &confirmation, nil
}

func (r *apiPaymentRepository) GetStatus(ctx context.Context, contestID, email string) (*models.Registration, error) {
	var registration models.Registration
	err := r.client.get(ctx, "/payments/payment-status",
		params("contestId", contestID, "contestParticipantEmail", email), &registration)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get payment status for contest %s: %w", contestID, err)
	}
	if registration.ID == "" {
		return nil, nil
	}
	return &registration, nil
}

func (r *apiPaymentRepository) ListByParticipant(ctx context.Context, email string) ([]models.Registration, error) {
	registrations := []models.Registration{}
	if err := r.client.get(ctx, "/payments/all-contests", params("contestParticipantEmail", email), &registrations); err != nil {
		return nil, fmt.Errorf("failed to list registrations: %w", err)
	}
	return registrations, nil
}

func (r *apiPaymentRepository) ListSubmissions(ctx context.Context, contestID string) ([]models.Registration, error) {
	submissions := []models.Registration{}
	if err := r.client.get(ctx, "/payments/task-submitted", params("contestId", contestID), &submissions); err != nil {
		return nil, fmt.Errorf("failed to list submissions for contest %s: %w", contestID, err)
	}
	return submissions, nil
}

func (r *apiPaymentRepository) Submit(ctx context.Context, registrationID, email string, input models.SubmissionInput) error {
	var result WriteResult
	path := "/payments/" + url.PathEscape(registrationID)
	if err := r.client.do(ctx, http.MethodPatch, path, params("contestParticipantEmail", email), input, &result); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrRegistrationNotFound
		}
		return fmt.Errorf("failed to submit task for registration %s: %w", registrationID, err)
	}
	return checkModified(result, ErrRegistrationNotFound)
}

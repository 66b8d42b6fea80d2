package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/Dosada05/contest-hub/models"
	"github.com/Dosada05/contest-hub/query"
	"github.com/Dosada05/contest-hub/repositories"
)

type PaymentService interface {
	Confirm(ctx context.Context, viewer *models.Principal, sessionID string) (*models.PaymentConfirmation, error)
}

type paymentService struct {
	paymentRepo repositories.PaymentRepository
	cache       *query.Client
	notifier    ContestNotifier
	logger      *slog.Logger
}

func NewPaymentService(paymentRepo repositories.PaymentRepository, cache *query.Client, notifier ContestNotifier, logger *slog.Logger) PaymentService {
	return &paymentService{
		paymentRepo: paymentRepo,
		cache:       cache,
		notifier:    notifierOrNoop(notifier),
		logger:      logger,
	}
}

// Confirm exchanges the processor's session id for the payment record. Registration
// reads and participant counts are refreshed only after the API acknowledged it.
func (s *paymentService) Confirm(ctx context.Context, viewer *models.Principal, sessionID string) (*models.PaymentConfirmation, error) {
	if viewer == nil {
		return nil, ErrAuthenticationRequired
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, ErrMissingSessionID
	}

	var confirmation *models.PaymentConfirmation
	err := s.cache.Mutate(ctx, func(ctx context.Context) error {
		var err error
		confirmation, err = s.paymentRepo.ConfirmPayment(ctx, sessionID)
		return err
	}, keyPaymentPrefix, keyParticipations(viewer.Email), keyContestPrefix, keyContestsPrefix)
	if err != nil {
		if errors.Is(err, repositories.ErrRegistrationNotFound) {
			return nil, ErrNotFound
		}
		s.logger.Error("payment confirmation failed", slog.String("email", viewer.Email), slog.Any("error", err))
		return nil, mapRepoError(err)
	}

	s.logger.Info("payment confirmed",
		slog.String("contest_id", confirmation.ContestID),
		slog.String("transaction_id", confirmation.TransactionID),
		slog.String("email", viewer.Email))
	if confirmation.ContestID != "" {
		s.notifier.ContestUpdated(confirmation.ContestID, "registration")
	}
	return confirmation, nil
}

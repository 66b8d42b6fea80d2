package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/Dosada05/contest-hub/middleware"
	"github.com/Dosada05/contest-hub/services"
	"github.com/Dosada05/contest-hub/views"
)

type PaymentHandler struct {
	paymentService services.PaymentService
	*Responder
}

func NewPaymentHandler(ps services.PaymentService, resp *Responder) *PaymentHandler {
	return &PaymentHandler{paymentService: ps, Responder: resp}
}

// Success обрабатывает GET /payment/success?session_id= (сюда возвращает платёжный провайдер).
func (h *PaymentHandler) Success(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	viewer := middleware.PrincipalFromContext(r.Context())

	confirmation, err := h.paymentService.Confirm(r.Context(), viewer, sessionID)
	if err != nil {
		status := http.StatusBadGateway
		switch {
		case errors.Is(err, services.ErrMissingSessionID):
			status = http.StatusBadRequest
		case errors.Is(err, services.ErrNotFound):
			status = http.StatusNotFound
		case errors.Is(err, services.ErrAuthenticationRequired):
			h.redirect(w, r, middleware.LoginURL(r.URL.RequestURI()))
			return
		}
		h.logger.Warn("payment confirmation failed", slog.String("session_id", sessionID), slog.Any("error", err))
		h.render(w, r, status, views.PagePaymentSuccess, "Payment", views.PaymentSuccessData{Error: userMessage(err)})
		return
	}
	h.render(w, r, http.StatusOK, views.PagePaymentSuccess, "Payment Successful", views.PaymentSuccessData{Confirmation: confirmation})
}

// Cancel обрабатывает GET /payment/cancel
func (h *PaymentHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, views.PagePaymentCancel, "Payment Cancelled", nil)
}

package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const PaymentStatusPaid = "Paid"

// Registration links a participant to a contest after checkout. Submission fields are
// filled once the participant delivers their work.
type Registration struct {
	ID               string          `json:"_id"`
	ContestID        string          `json:"contestId"`
	ContestName      string          `json:"contestName,omitempty"`
	ContestImage     string          `json:"contestImage,omitempty"`
	ContestType      string          `json:"contestType,omitempty"`
	ContestDeadline  *time.Time      `json:"contestDeadline,omitempty"`
	ParticipantEmail string          `json:"contestParticipantEmail"`
	ParticipantName  string          `json:"participantName,omitempty"`
	ParticipantImage string          `json:"participantImage,omitempty"`
	PaymentStatus    string          `json:"paymentStatus,omitempty"`
	TransactionID    string          `json:"transactionId,omitempty"`
	Amount           decimal.Decimal `json:"amount"`
	Submitted        bool            `json:"submitted"`
	SubmissionLink   string          `json:"submissionLink,omitempty"`
	SubmittedAt      *time.Time      `json:"submittedAt,omitempty"`
}

func (r Registration) Paid() bool {
	return strings.EqualFold(r.PaymentStatus, PaymentStatusPaid)
}

// SubmissionInput is sent when a participant delivers their work.
type SubmissionInput struct {
	Submitted        bool      `json:"submitted"`
	SubmissionLink   string    `json:"submissionLink"`
	ParticipantName  string    `json:"participantName"`
	ParticipantImage string    `json:"participantImage"`
	SubmittedAt      time.Time `json:"submittedAt"`
}

// CheckoutParticipant identifies who is paying for an entry.
type CheckoutParticipant struct {
	Name  string `json:"name"`
	Image string `json:"image"`
	Email string `json:"email"`
}

// CheckoutRequest тело POST /create-checkout-session.
type CheckoutRequest struct {
	ContestID          string              `json:"contestId"`
	ContestName        string              `json:"contestName"`
	ContestPrice       decimal.Decimal     `json:"contestPrice"`
	ContestImage       string              `json:"contestImage"`
	ContestType        string              `json:"contestType"`
	ContestCreatorName string              `json:"contestCreatorName"`
	ContestDescription string              `json:"contestDescription"`
	ContestDeadline    time.Time           `json:"contestDeadline"`
	Participant        CheckoutParticipant `json:"participant"`
}

type CheckoutSession struct {
	URL string `json:"url"`
}

// PaymentConfirmation ответ POST /payment-success.
type PaymentConfirmation struct {
	TransactionID string          `json:"transactionId"`
	ContestID     string          `json:"contestId"`
	ContestName   string          `json:"contestName,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentStatus string          `json:"paymentStatus,omitempty"`
}

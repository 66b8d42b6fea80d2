package services

import "github.com/Dosada05/contest-hub/models"

// DetailPhase состояние страницы конкурса для конкретного зрителя.
type DetailPhase string

const (
	PhaseViewing          DetailPhase = "viewing"
	PhaseRegistering      DetailPhase = "registering"
	PhaseAwaitingPayment  DetailPhase = "awaiting_payment"
	PhasePaymentConfirmed DetailPhase = "payment_confirmed"
	PhaseSubmitted        DetailPhase = "submitted"
	PhaseContestEnded     DetailPhase = "contest_ended"
)

// DetailInput всё, из чего на каждом рендере выводится состояние страницы.
type DetailInput struct {
	Authenticated  bool
	HasWinner      bool
	DeadlinePassed bool
	Registering    bool
	Registration   *models.Registration
}

type DetailState struct {
	Phase       DetailPhase
	Ended       bool
	Paid        bool
	Submitted   bool
	CanRegister bool
	ShowSubmit  bool
	CanSubmit   bool
}

// DeriveDetailState is a pure function of its input; nothing about the flow is stored
// between requests except the registration record kept by the API.
func DeriveDetailState(in DetailInput) DetailState {
	st := DetailState{Ended: in.DeadlinePassed || in.HasWinner}
	if in.Registration != nil {
		st.Paid = in.Registration.Paid()
		st.Submitted = st.Paid && in.Registration.Submitted
	}

	st.CanRegister = in.Authenticated && !in.HasWinner && !in.Registering && !st.Ended && !st.Paid
	st.ShowSubmit = st.Paid
	st.CanSubmit = st.Paid && !st.Submitted && !st.Ended

	switch {
	case st.Ended:
		st.Phase = PhaseContestEnded
	case in.Registering:
		st.Phase = PhaseRegistering
	case in.Registration == nil:
		st.Phase = PhaseViewing
	case !st.Paid:
		st.Phase = PhaseAwaitingPayment
	case st.Submitted:
		st.Phase = PhaseSubmitted
	default:
		st.Phase = PhasePaymentConfirmed
	}
	return st
}

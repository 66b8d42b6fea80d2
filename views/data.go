package views

import (
	"github.com/Dosada05/contest-hub/models"
	"github.com/Dosada05/contest-hub/services"
)

type HomeData struct {
	Popular []models.Contest
	Winners []models.Contest
	Search  string
}

type AllContestsData struct {
	Contests []models.Contest
	Search   string
	Type     string
	Types    []string
}

type LeaderboardData struct {
	Entries []models.LeaderboardEntry
	Search  string
	Pager   Pager
}

type ContestDetailData struct {
	Detail *services.ContestDetail
	// SubmitFieldError is shown under the submission link input.
	SubmitFieldError string
	SubmissionLink   string
}

// FormErrors carries a form-level alert plus per-field messages.
type FormErrors struct {
	Alert  string
	Fields map[string]string
}

func (f FormErrors) Field(name string) string {
	return f.Fields[name]
}

// Google показывает кнопку входа через Google.
type LoginData struct {
	Email    string
	Redirect string
	Google   bool
	Errors   FormErrors
}

type RegisterData struct {
	Name     string
	Email    string
	PhotoURL string
	Redirect string
	Google   bool
	Errors   FormErrors
}

type ForgotPasswordData struct {
	Email  string
	Sent   bool
	Errors FormErrors
}

type PaymentSuccessData struct {
	Confirmation *models.PaymentConfirmation
	Error        string
}

// DashboardData is the overview for whichever role the viewer holds. Exactly one of the
// stats pointers is set; none when the role could not be resolved.
type DashboardData struct {
	User    *models.UserStats
	Creator *models.CreatorStats
	Admin   *models.AdminStats
	Profile *models.User
}

type ParticipatedData struct {
	Registrations []models.Registration
}

type WinningData struct {
	Contests []models.Contest
}

type ProfileData struct {
	User           *models.User
	Input          models.ProfileInput
	UploadsEnabled bool
	Errors         FormErrors
}

type ContestFormData struct {
	// ID is empty when creating.
	ID             string
	Input          models.ContestInput
	Deadline       string
	Price          string
	PrizeMoney     string
	Types          []string
	UploadsEnabled bool
	Errors         FormErrors
}

func (d ContestFormData) Editing() bool {
	return d.ID != ""
}

type MyContestsData struct {
	Contests []models.Contest
}

type SubmissionsData struct {
	Review *services.SubmissionReview
}

type ManageUsersData struct {
	Rows  []services.UserRow
	Roles []models.Role
	Pager Pager
}

type ManageContestsData struct {
	Contests []models.Contest
	Statuses []models.ContestStatus
	Pager    Pager
}

type ErrorData struct {
	Status  int
	Message string
}

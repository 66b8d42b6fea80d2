package services

import (
	"errors"
	"sort"
	"strings"
)

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	ErrNotFound        = errors.New("requested resource not found")
	ErrContestNotFound = errors.New("contest not found")
	ErrUserNotFound    = errors.New("user not found")

	// Ошибки валидации и бизнес-правил
	ErrValidationFailed       = errors.New("validation failed")
	ErrContestEnded           = errors.New("contest has ended")
	ErrWinnerAlreadyDeclared  = errors.New("a winner has already been declared for this contest")
	ErrAlreadyRegistered      = errors.New("you are already registered for this contest")
	ErrPaymentNotConfirmed    = errors.New("payment for this contest is not confirmed")
	ErrAlreadySubmitted       = errors.New("task has already been submitted")
	ErrSubmissionLinkRequired = errors.New("submission link is required")
	ErrSubmissionNotFound     = errors.New("submission not found")
	ErrContestNotEditable     = errors.New("only pending contests can be edited or deleted")
	ErrInvalidContestStatus   = errors.New("invalid contest status")
	ErrInvalidRole            = errors.New("invalid role")
	ErrConfirmationRequired   = errors.New("this action requires explicit confirmation")
	ErrRequestInFlight        = errors.New("the same request is already being processed")
	ErrMissingSessionID       = errors.New("payment session id is required")

	// Ошибки аутентификации и авторизации
	ErrAuthenticationRequired = errors.New("please login to continue")
	ErrInvalidCredentials     = errors.New("invalid email or password")
	ErrEmailTaken             = errors.New("email is already registered")
	ErrWeakPassword           = errors.New("password is too weak")
	ErrInvalidSession         = errors.New("session is invalid or expired")
	ErrForbiddenOperation     = errors.New("operation not allowed for the current user")
	ErrRoleUnresolved         = errors.New("user role could not be resolved")
	ErrSelfRoleChange         = errors.New("you cannot change your own role")
	ErrAdminRoleLocked        = errors.New("admin role cannot be changed")
	ErrFederatedUnavailable   = errors.New("google sign-in is not available")

	// Ошибки внешних сервисов
	ErrUpstream           = errors.New("the service is temporarily unavailable, please try again")
	ErrWinCountNotUpdated = errors.New("winner declared, but the participant's win counter could not be updated")
	ErrUploadsUnavailable = errors.New("image uploads are not available, paste an image URL instead")
)

// ValidationError carries per-field messages for a rejected form.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrValidationFailed }

type validator map[string]string

func (v validator) check(ok bool, field, message string) {
	if !ok {
		if _, exists := v[field]; !exists {
			v[field] = message
		}
	}
}

func (v validator) err() error {
	if len(v) == 0 {
		return nil
	}
	return &ValidationError{Fields: map[string]string(v)}
}

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ContestStatus соответствует статусам модерации конкурса в API.
type ContestStatus string

const (
	ContestPending   ContestStatus = "Pending"
	ContestConfirmed ContestStatus = "Confirmed"
	ContestRejected  ContestStatus = "Rejected"
)

// ContestStatuses статусы, между которыми админ переводит конкурс.
var ContestStatuses = []ContestStatus{ContestPending, ContestConfirmed, ContestRejected}

func (s ContestStatus) Valid() bool {
	switch s {
	case ContestPending, ContestConfirmed, ContestRejected:
		return true
	}
	return false
}

// Winner записывается в конкурс, когда создатель объявляет победителя.
type Winner struct {
	Name        string    `json:"name"`
	Photo       string    `json:"photo,omitempty"`
	Email       string    `json:"email,omitempty"`
	WinningDate time.Time `json:"winningDate"`
}

type Contest struct {
	ID           string          `json:"_id"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	Instructions string          `json:"instructions,omitempty"`
	Image        string          `json:"image,omitempty"`
	Type         string          `json:"type"`
	Price        decimal.Decimal `json:"price"`
	PrizeMoney   decimal.Decimal `json:"prizeMoney"`
	Deadline     time.Time       `json:"deadline"`
	CreatorEmail string          `json:"email"`
	CreatorName  string          `json:"creatorName"`
	Participants int             `json:"participants"`
	Status       ContestStatus   `json:"status"`
	Winner       *Winner         `json:"winner,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
}

func (c Contest) HasWinner() bool {
	return c.Winner != nil && (c.Winner.Name != "" || c.Winner.Email != "")
}

// Editable можно ли создателю ещё править или удалять конкурс.
func (c Contest) Editable() bool {
	return c.Status == ContestPending
}

// ContestInput is the payload for creating or editing a contest.
type ContestInput struct {
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	Instructions string          `json:"instructions"`
	Image        string          `json:"image"`
	Type         string          `json:"type"`
	Price        decimal.Decimal `json:"price"`
	PrizeMoney   decimal.Decimal `json:"prizeMoney"`
	Deadline     time.Time       `json:"deadline"`
	CreatorEmail string          `json:"email,omitempty"`
	CreatorName  string          `json:"creatorName,omitempty"`
}

// ContestTypes категории для формы конкурса и вкладок списка.
var ContestTypes = []string{
	"Image Design",
	"Article Writing",
	"Business Idea",
	"Gaming Review",
	"Photography",
	"Video Editing",
}

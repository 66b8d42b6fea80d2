package models

import "time"

type User struct {
	ID          string    `json:"_id"`
	DisplayName string    `json:"displayName"`
	Email       string    `json:"email"`
	PhotoURL    string    `json:"photoURL,omitempty"`
	Role        Role      `json:"role"`
	WinCount    int       `json:"winCount"`
	PhoneNumber string    `json:"phoneNumber,omitempty"`
	Address     string    `json:"address,omitempty"`
	CreatedAt   time.Time `json:"createdAt,omitempty"`
}

// NewUserInput is posted to the API once the identity provider account exists.
type NewUserInput struct {
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
	PhotoURL    string `json:"photoURL"`
}

type ProfileInput struct {
	DisplayName string `json:"displayName"`
	PhotoURL    string `json:"photoURL"`
	PhoneNumber string `json:"phoneNumber"`
	Address     string `json:"address"`
}

// LeaderboardEntry is a ranked user with at least one win.
type LeaderboardEntry struct {
	Rank int  `json:"rank"`
	User User `json:"user"`
}

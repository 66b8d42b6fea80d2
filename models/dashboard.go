package models

import "github.com/shopspring/decimal"

type UserStats struct {
	Participated  int `json:"participated"`
	Won           int `json:"won"`
	Active        int `json:"active"`
	WinPercentage int `json:"win_percentage"`
}

type CreatorStats struct {
	ContestsTotal     int             `json:"contests_total"`
	Pending           int             `json:"pending"`
	Confirmed         int             `json:"confirmed"`
	Rejected          int             `json:"rejected"`
	ParticipantsTotal int             `json:"participants_total"`
	PrizePool         decimal.Decimal `json:"prize_pool"`
}

type AdminStats struct {
	UsersTotal    int `json:"users_total"`
	Creators      int `json:"creators"`
	Admins        int `json:"admins"`
	ContestsTotal int `json:"contests_total"`
	Pending       int `json:"pending"`
	Confirmed     int `json:"confirmed"`
	Rejected      int `json:"rejected"`
}

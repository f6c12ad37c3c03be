package model

import "github.com/shopspring/decimal"

type Profile struct {
	Name         string          `json:"name"`
	Tier         string          `json:"tier"`
	MemberSince  int             `json:"member_since"`
	Points       int             `json:"points"`
	Orders       int             `json:"orders"`
	Favorites    int             `json:"favorites"`
	CardBalance  decimal.Decimal `json:"card_balance"`
	QuickActions []string        `json:"quick_actions"`
	Settings     []Setting       `json:"settings"`
}

type Setting struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

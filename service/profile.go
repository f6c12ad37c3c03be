package service

import (
	"github.com/shopspring/decimal"

	"github.com/sbuxapp/storefront/model"
)

// DefaultProfile is the static member card shown on the account screen.
func DefaultProfile() model.Profile {
	return model.Profile{
		Name:        "Irfan Ridhana",
		Tier:        "Premium Member ⭐",
		MemberSince: 2020,
		Points:      2521,
		Orders:      47,
		Favorites:   12,
		// 100 thousand, same unit as catalog prices
		CardBalance:  decimal.NewFromInt(100),
		QuickActions: []string{"Edit Profile", "Order History", "Settings", "Sign Out"},
		Settings: []model.Setting{
			{Title: "Notifications", Description: "Manage your notification preferences"},
			{Title: "Privacy", Description: "Control your privacy settings"},
			{Title: "Payment Methods", Description: "Manage your payment options"},
			{Title: "Help & Support", Description: "Get help when you need it"},
		},
	}
}

package service

import (
	"github.com/shopspring/decimal"

	"github.com/sbuxapp/storefront/model"
)

// Amount pairs an unrounded value with its display string.
type Amount struct {
	Value decimal.Decimal `json:"value"`
	Text  string          `json:"text"`
}

type ItemView struct {
	model.Item
	Price string `json:"price"`
	// Quantity is the session's cart quantity; menu cards show it as a badge.
	Quantity int `json:"quantity,omitempty"`
}

type HomeView struct {
	Greeting    string     `json:"greeting"`
	Subtitle    string     `json:"subtitle"`
	CardBalance Amount     `json:"card_balance"`
	Favourites  []ItemView `json:"favourites"`
	Popular     []ItemView `json:"popular"`
}

type CategoryView struct {
	Name     model.Category `json:"name"`
	Selected bool           `json:"selected"`
}

type SectionView struct {
	Category model.Category `json:"category"`
	Items    []ItemView     `json:"items"`
}

type MenuView struct {
	Categories []CategoryView `json:"categories"`
	Selected   model.Category `json:"selected"`
	Sections   []SectionView  `json:"sections"`
}

type SearchView struct {
	Query   string     `json:"query"`
	Scope   Scope      `json:"scope"`
	Count   int        `json:"count"`
	Results []ItemView `json:"results"`
}

type LineView struct {
	ItemID    int    `json:"item_id"`
	Name      string `json:"name"`
	ImageRef  string `json:"image_ref"`
	Quantity  int    `json:"quantity"`
	UnitPrice Amount `json:"unit_price"`
	LineTotal Amount `json:"line_total"`
}

// SummaryView is the order screen: lines plus the checkout summary.
type SummaryView struct {
	Lines          []LineView `json:"lines"`
	ItemCount      int        `json:"item_count"`
	ItemCountLabel string     `json:"item_count_label"`
	Subtotal       Amount     `json:"subtotal"`
	TaxRate        string     `json:"tax_rate"`
	Tax            Amount     `json:"tax"`
	Total          Amount     `json:"total"`
}

// Badges maps item id to cart quantity.
type Badges map[int]int

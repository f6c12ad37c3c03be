package model

import "github.com/shopspring/decimal"

type Category string

const (
	CategoryAll         Category = "All"
	CategoryCoffee      Category = "Coffee"
	CategoryTea         Category = "Tea"
	CategoryFrappuccino Category = "Frappuccino"
	CategoryFood        Category = "Food"
	// CategoryLabel is shown as a menu chip but has no items behind it.
	CategoryLabel Category = "Label"
)

// Item is a purchasable catalog entry. UnitPrice is in thousands of the
// display currency; see money.Formatter.
type Item struct {
	ID        int             `json:"id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	ImageRef  string          `json:"image_ref"`
	Category  Category        `json:"category"`
}

// CartItem is the stored form of a cart line.
type CartItem struct {
	ItemID   int `json:"item_id"`
	Quantity int `json:"quantity"`
}

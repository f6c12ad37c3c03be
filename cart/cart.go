// Package cart is the per-session order: an ordered list of (item, quantity)
// lines with at most one line per item id and every quantity at least one.
// A Cart is not safe for concurrent use; the repository serializes a session.
package cart

import (
	"github.com/shopspring/decimal"

	"github.com/sbuxapp/storefront/model"
)

// DefaultTaxRate is the "Tax & Fees" share of the subtotal.
var DefaultTaxRate = decimal.NewFromFloat(0.10)

type Line struct {
	Item     model.Item
	Quantity int
}

// Total is the unit price times the quantity.
func (l Line) Total() decimal.Decimal {
	return l.Item.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart is usable as its zero value.
type Cart struct {
	lines []Line
}

// Restore rebuilds a cart from stored lines. Entries whose item lookup fails
// or whose quantity is below one are skipped and their ids returned; repeated
// ids are merged into the first line.
func Restore(stored []model.CartItem, lookup func(id int) (model.Item, bool)) (*Cart, []int) {
	c := &Cart{}
	var skipped []int
	for _, s := range stored {
		if s.Quantity < 1 {
			skipped = append(skipped, s.ItemID)
			continue
		}
		if i := c.index(s.ItemID); i >= 0 {
			c.lines[i].Quantity += s.Quantity
			continue
		}
		it, ok := lookup(s.ItemID)
		if !ok {
			skipped = append(skipped, s.ItemID)
			continue
		}
		c.lines = append(c.lines, Line{Item: it, Quantity: s.Quantity})
	}
	return c, skipped
}

// AddOne increments the line for item, appending a new line with quantity 1
// when the item is not in the cart yet. It returns the new quantity.
func (c *Cart) AddOne(item model.Item) int {
	if i := c.index(item.ID); i >= 0 {
		c.lines[i].Quantity++
		return c.lines[i].Quantity
	}
	c.lines = append(c.lines, Line{Item: item, Quantity: 1})
	return 1
}

// RemoveOne decrements the line for id and drops it when it reaches zero.
// It returns the remaining quantity; unknown ids are a no-op.
func (c *Cart) RemoveOne(id int) int {
	i := c.index(id)
	if i < 0 {
		return 0
	}
	if c.lines[i].Quantity > 1 {
		c.lines[i].Quantity--
		return c.lines[i].Quantity
	}
	c.lines = append(c.lines[:i], c.lines[i+1:]...)
	return 0
}

func (c *Cart) Empty() {
	c.lines = nil
}

// QuantityOf returns the quantity for id, or 0 when absent.
func (c *Cart) QuantityOf(id int) int {
	if i := c.index(id); i >= 0 {
		return c.lines[i].Quantity
	}
	return 0
}

// Lines returns a snapshot in insertion order.
func (c *Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

// Items returns the stored form of the cart.
func (c *Cart) Items() []model.CartItem {
	out := make([]model.CartItem, len(c.lines))
	for i, l := range c.lines {
		out[i] = model.CartItem{ItemID: l.Item.ID, Quantity: l.Quantity}
	}
	return out
}

func (c *Cart) Len() int {
	return len(c.lines)
}

func (c *Cart) IsEmpty() bool {
	return len(c.lines) == 0
}

// ItemCount is the sum of quantities.
func (c *Cart) ItemCount() int {
	n := 0
	for _, l := range c.lines {
		n += l.Quantity
	}
	return n
}

func (c *Cart) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, l := range c.lines {
		sum = sum.Add(l.Total())
	}
	return sum
}

func (c *Cart) Tax(rate decimal.Decimal) decimal.Decimal {
	return c.Subtotal().Mul(rate)
}

// Total is subtotal plus tax. Nothing is rounded here; rounding happens when
// the amount is formatted.
func (c *Cart) Total(rate decimal.Decimal) decimal.Decimal {
	sub := c.Subtotal()
	return sub.Add(sub.Mul(rate))
}

func (c *Cart) index(id int) int {
	for i, l := range c.lines {
		if l.Item.ID == id {
			return i
		}
	}
	return -1
}

// Package catalog holds the static, read-only product list and its category
// partitioning. A Catalog is built once at startup and shared by reference.
package catalog

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/sbuxapp/storefront/model"
)

var (
	ErrDuplicateItem     = errors.New("catalog: duplicate item id")
	ErrDuplicateCategory = errors.New("catalog: duplicate category")
	ErrInvalidItem       = errors.New("catalog: invalid item")
)

// favouriteCount is how many coffee items the home screen features.
const favouriteCount = 3

// Group is one category and its items in display order.
type Group struct {
	Category model.Category
	Items    []model.Item
}

type Catalog struct {
	groups     []Group
	byID       map[int]model.Item
	byCategory map[model.Category][]model.Item
}

// New validates the groups and copies them into an immutable Catalog. Each
// item's Category is set from the group that holds it.
func New(groups ...Group) (*Catalog, error) {
	c := &Catalog{
		groups:     make([]Group, 0, len(groups)),
		byID:       make(map[int]model.Item),
		byCategory: make(map[model.Category][]model.Item, len(groups)),
	}
	for _, g := range groups {
		if g.Category == "" || g.Category == model.CategoryAll {
			return nil, errors.Wrapf(ErrInvalidItem, "group name %q is reserved", g.Category)
		}
		if _, ok := c.byCategory[g.Category]; ok {
			return nil, errors.Wrapf(ErrDuplicateCategory, "%s", g.Category)
		}
		items := make([]model.Item, 0, len(g.Items))
		for _, it := range g.Items {
			if strings.TrimSpace(it.Name) == "" {
				return nil, errors.Wrapf(ErrInvalidItem, "item %d has no name", it.ID)
			}
			if it.UnitPrice.IsNegative() {
				return nil, errors.Wrapf(ErrInvalidItem, "item %d has negative price %s", it.ID, it.UnitPrice)
			}
			if _, ok := c.byID[it.ID]; ok {
				return nil, errors.Wrapf(ErrDuplicateItem, "id %d", it.ID)
			}
			it.Category = g.Category
			c.byID[it.ID] = it
			items = append(items, it)
		}
		c.byCategory[g.Category] = items
		c.groups = append(c.groups, Group{Category: g.Category, Items: items})
	}
	return c, nil
}

// Default returns the built-in menu.
func Default() *Catalog {
	c, err := New(defaultGroups()...)
	if err != nil {
		panic(errors.Wrap(err, "built-in catalog is invalid"))
	}
	return c
}

func defaultGroups() []Group {
	item := func(id int, name string, price int64, image string) model.Item {
		return model.Item{ID: id, Name: name, UnitPrice: decimal.NewFromInt(price), ImageRef: image}
	}
	return []Group{
		{Category: model.CategoryCoffee, Items: []model.Item{
			item(1, "Coffee 1", 50, "caramel_macchiato"),
			item(2, "Coffee 2", 32, "caffe_latte"),
			item(3, "Coffee 3", 28, "americano"),
			item(4, "Coffee 4", 40, "caffe_mocha"),
		}},
		{Category: model.CategoryTea, Items: []model.Item{
			item(5, "Tea 1", 25, "caramel_macchiato"),
			item(6, "Tea 2", 30, "caffe_latte"),
			item(7, "Tea 3", 28, "americano"),
		}},
		{Category: model.CategoryFrappuccino, Items: []model.Item{
			item(8, "Frappuccino 1", 45, "caramel_macchiato"),
			item(9, "Frappuccino 2", 48, "caffe_mocha"),
			item(10, "Frappuccino 3", 42, "caffe_latte"),
			item(11, "Frappuccino 4", 46, "americano"),
		}},
		{Category: model.CategoryFood, Items: []model.Item{
			item(12, "Food 1", 35, "caramel_macchiato"),
			item(13, "Food 2", 25, "caffe_latte"),
			item(14, "Food 3", 30, "americano"),
		}},
	}
}

// Categories lists the menu chips: All first, then every group, then Label.
func (c *Catalog) Categories() []model.Category {
	out := make([]model.Category, 0, len(c.groups)+2)
	out = append(out, model.CategoryAll)
	for _, g := range c.groups {
		out = append(out, g.Category)
	}
	if _, ok := c.byCategory[model.CategoryLabel]; !ok {
		out = append(out, model.CategoryLabel)
	}
	return out
}

// Groups returns the category partitioning in display order.
func (c *Catalog) Groups() []Group {
	out := make([]Group, len(c.groups))
	for i, g := range c.groups {
		out[i] = Group{Category: g.Category, Items: clone(g.Items)}
	}
	return out
}

// ItemsByCategory returns the items of one category in their defined order.
// All (or no category) is the union of every group. Unknown categories yield
// an empty slice.
func (c *Catalog) ItemsByCategory(category model.Category) []model.Item {
	if category == "" || category == model.CategoryAll {
		return c.Items()
	}
	return clone(c.byCategory[category])
}

// Items returns every item, grouped by category.
func (c *Catalog) Items() []model.Item {
	out := make([]model.Item, 0, len(c.byID))
	for _, g := range c.groups {
		out = append(out, g.Items...)
	}
	return out
}

func (c *Catalog) Item(id int) (model.Item, bool) {
	it, ok := c.byID[id]
	return it, ok
}

// HomeScope is what the home screen lists and searches: coffee only.
func (c *Catalog) HomeScope() []model.Item {
	return c.ItemsByCategory(model.CategoryCoffee)
}

// MenuScope is what the menu screen searches: the whole catalog.
func (c *Catalog) MenuScope() []model.Item {
	return c.Items()
}

func (c *Catalog) Favourites() []model.Item {
	coffee := c.HomeScope()
	if len(coffee) > favouriteCount {
		coffee = coffee[:favouriteCount]
	}
	return coffee
}

func (c *Catalog) Popular() []model.Item {
	return c.HomeScope()
}

func clone(items []model.Item) []model.Item {
	out := make([]model.Item, len(items))
	copy(out, items)
	return out
}

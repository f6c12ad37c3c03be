package catalog

import (
	"strings"

	"github.com/sbuxapp/storefront/model"
)

// EmptyQueryPolicy decides what a blank search returns. The home and menu
// screens disagree, so every caller picks one.
type EmptyQueryPolicy int

const (
	// EmptyQueryNone returns nothing for a blank query (menu screen).
	EmptyQueryNone EmptyQueryPolicy = iota
	// EmptyQueryAll returns the scope unfiltered for a blank query (home screen).
	EmptyQueryAll
)

func (p EmptyQueryPolicy) String() string {
	switch p {
	case EmptyQueryAll:
		return "all"
	case EmptyQueryNone:
		return "none"
	}
	return "unknown"
}

// Search returns the items of scope whose name contains query, ignoring case,
// in scope order. A query that is empty or only whitespace is resolved by
// policy.
func Search(query string, scope []model.Item, policy EmptyQueryPolicy) []model.Item {
	if strings.TrimSpace(query) == "" {
		if policy == EmptyQueryAll {
			return clone(scope)
		}
		return []model.Item{}
	}
	q := strings.ToLower(query)
	out := make([]model.Item, 0)
	for _, it := range scope {
		if strings.Contains(strings.ToLower(it.Name), q) {
			out = append(out, it)
		}
	}
	return out
}

// SearchHome searches the coffee list; a blank query shows all of it.
func (c *Catalog) SearchHome(query string) []model.Item {
	return Search(query, c.HomeScope(), EmptyQueryAll)
}

// SearchMenu searches the whole catalog; a blank query shows nothing.
func (c *Catalog) SearchMenu(query string) []model.Item {
	return Search(query, c.MenuScope(), EmptyQueryNone)
}

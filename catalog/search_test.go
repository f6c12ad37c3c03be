package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSearch_CaseInsensitive(t *testing.T) {
	c := Default()

	got := Search("COFFEE", c.MenuScope(), EmptyQueryNone)
	assert.Equal(t, []string{"Coffee 1", "Coffee 2", "Coffee 3", "Coffee 4"}, names(got))

	got = Search("frappuccino 2", c.MenuScope(), EmptyQueryNone)
	assert.Equal(t, []string{"Frappuccino 2"}, names(got))
}

func TestSearch_EmptyQueryPolicies(t *testing.T) {
	c := Default()

	for _, q := range []string{"", "   ", "\t"} {
		assert.Empty(t, c.SearchMenu(q), "menu query %q", q)
		assert.Equal(t, names(c.HomeScope()), names(c.SearchHome(q)), "home query %q", q)
	}
}

func TestSearch_ScopeLimitsResults(t *testing.T) {
	c := Default()

	assert.Empty(t, c.SearchHome("tea"))
	assert.Equal(t, []string{"Tea 1", "Tea 2", "Tea 3"}, names(c.SearchMenu("tea")))
}

func TestSearch_SubstringKeepsScopeOrder(t *testing.T) {
	c := Default()

	got := c.SearchMenu(" 3")
	assert.Equal(t, []string{"Coffee 3", "Tea 3", "Frappuccino 3", "Food 3"}, names(got))
}

func TestSearch_NoMatch(t *testing.T) {
	c := Default()

	got := c.SearchMenu("latte")
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestEmptyQueryPolicy_String(t *testing.T) {
	assert.Equal(t, "all", EmptyQueryAll.String())
	assert.Equal(t, "none", EmptyQueryNone.String())
	assert.Equal(t, "unknown", EmptyQueryPolicy(9).String())
}

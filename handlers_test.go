package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sbuxapp/storefront/catalog"
	"github.com/sbuxapp/storefront/repository"
	"github.com/sbuxapp/storefront/service"
)

func testConfig() config {
	return config{
		globalRate:  10000,
		globalBurst: 10000,
		ipRate:      10000,
		ipBurst:     10000,
	}
}

func newTestServer(t *testing.T, cfg config) *httptest.Server {
	t.Helper()
	log.SetOutput(io.Discard)
	sf := service.New(catalog.Default(), repository.NewMemoryRepo(), log)
	ts := httptest.NewServer(newHandler(sf, nil, cfg))
	t.Cleanup(ts.Close)
	return ts
}

func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar}
}

func doJSON(t *testing.T, c *http.Client, method, url string, body interface{}, out interface{}) *http.Response {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, url, rd)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

type errorBody struct {
	Error      string `json:"error"`
	StatusCode int    `json:"status_code"`
	Status     string `json:"status"`
	RequestID  string `json:"request_id"`
}

func TestAddAndViewCart(t *testing.T) {
	ts := newTestServer(t, testConfig())
	c := newClient(t)

	var update cartUpdateView
	resp := doJSON(t, c, http.MethodPost, ts.URL+"/api/cart/items", addToCartRequest{ItemID: 1}, &update)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, update.Quantity)

	resp = doJSON(t, c, http.MethodPost, ts.URL+"/api/cart/items", addToCartRequest{ItemID: 1}, &update)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2, update.Quantity)
	assert.Equal(t, "Rp110.000", update.Cart.Total.Text)

	var sum service.SummaryView
	resp = doJSON(t, c, http.MethodGet, ts.URL+"/api/cart", nil, &sum)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, sum.Lines, 1)
	assert.Equal(t, 2, sum.ItemCount)
	assert.Equal(t, "Rp100.000", sum.Subtotal.Text)
	assert.Equal(t, "Rp10.000", sum.Tax.Text)

	var badges map[string]int
	doJSON(t, c, http.MethodGet, ts.URL+"/api/cart/badges", nil, &badges)
	assert.Equal(t, map[string]int{"1": 2}, badges)
}

func TestSessionsAreIsolated(t *testing.T) {
	ts := newTestServer(t, testConfig())
	alice, bob := newClient(t), newClient(t)

	doJSON(t, alice, http.MethodPost, ts.URL+"/api/cart/items", addToCartRequest{ItemID: 3}, nil)

	var sum service.SummaryView
	doJSON(t, bob, http.MethodGet, ts.URL+"/api/cart", nil, &sum)
	assert.Empty(t, sum.Lines)
	doJSON(t, alice, http.MethodGet, ts.URL+"/api/cart", nil, &sum)
	assert.Len(t, sum.Lines, 1)
}

func TestSharedSession(t *testing.T) {
	cfg := testConfig()
	cfg.sharedSession = true
	ts := newTestServer(t, cfg)
	alice, bob := newClient(t), newClient(t)

	doJSON(t, alice, http.MethodPost, ts.URL+"/api/cart/items", addToCartRequest{ItemID: 3}, nil)

	var sum service.SummaryView
	doJSON(t, bob, http.MethodGet, ts.URL+"/api/cart", nil, &sum)
	assert.Len(t, sum.Lines, 1)
}

func TestRemoveAndEmptyCart(t *testing.T) {
	ts := newTestServer(t, testConfig())
	c := newClient(t)
	for _, id := range []int{2, 2, 11} {
		doJSON(t, c, http.MethodPost, ts.URL+"/api/cart/items", addToCartRequest{ItemID: id}, nil)
	}

	var update cartUpdateView
	resp := doJSON(t, c, http.MethodDelete, ts.URL+"/api/cart/items/11", nil, &update)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 0, update.Quantity)
	require.Len(t, update.Cart.Lines, 1)
	assert.Equal(t, 2, update.Cart.Lines[0].ItemID)

	resp = doJSON(t, c, http.MethodDelete, ts.URL+"/api/cart", nil, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	var sum service.SummaryView
	doJSON(t, c, http.MethodGet, ts.URL+"/api/cart", nil, &sum)
	assert.Empty(t, sum.Lines)
	assert.Equal(t, "Rp0", sum.Total.Text)
}

func TestAddToCart_Rejects(t *testing.T) {
	ts := newTestServer(t, testConfig())
	c := newClient(t)

	var eb errorBody
	resp := doJSON(t, c, http.MethodPost, ts.URL+"/api/cart/items", addToCartRequest{ItemID: 0}, &eb)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, eb.Error, "ItemID")
	assert.NotEmpty(t, eb.RequestID)

	resp = doJSON(t, c, http.MethodPost, ts.URL+"/api/cart/items", addToCartRequest{ItemID: 42}, &eb)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Not Found", eb.Status)

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/cart/items", bytes.NewBufferString("{"))
	require.NoError(t, err)
	raw, err := c.Do(req)
	require.NoError(t, err)
	raw.Body.Close()
	assert.Equal(t, http.StatusBadRequest, raw.StatusCode)
}

func TestMenuAndSearch(t *testing.T) {
	ts := newTestServer(t, testConfig())
	c := newClient(t)

	var menu service.MenuView
	resp := doJSON(t, c, http.MethodGet, ts.URL+"/api/menu?category=Food", nil, &menu)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, menu.Sections, 1)
	assert.Len(t, menu.Sections[0].Items, 3)

	doJSON(t, c, http.MethodGet, ts.URL+"/api/menu?category=Nope", nil, &menu)
	assert.Empty(t, menu.Sections)

	var search service.SearchView
	doJSON(t, c, http.MethodGet, ts.URL+"/api/search?scope=home&q=", nil, &search)
	assert.Equal(t, 4, search.Count)
	doJSON(t, c, http.MethodGet, ts.URL+"/api/search?scope=menu&q=", nil, &search)
	assert.Equal(t, 0, search.Count)
	doJSON(t, c, http.MethodGet, ts.URL+"/api/search?scope=menu&q=tea", nil, &search)
	assert.Equal(t, 3, search.Count)

	var eb errorBody
	resp = doJSON(t, c, http.MethodGet, ts.URL+"/api/search?scope=x&q=tea", nil, &eb)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestItemAndStaticRoutes(t *testing.T) {
	ts := newTestServer(t, testConfig())
	c := newClient(t)

	var item service.ItemView
	resp := doJSON(t, c, http.MethodGet, ts.URL+"/api/items/14", nil, &item)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Food 3", item.Name)
	assert.Equal(t, "Rp30.000", item.Price)

	var eb errorBody
	resp = doJSON(t, c, http.MethodGet, ts.URL+"/api/items/abc", nil, &eb)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp = doJSON(t, c, http.MethodGet, ts.URL+"/api/items/15", nil, &eb)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp = doJSON(t, c, http.MethodGet, ts.URL+"/api/nowhere", nil, &eb)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	var cats []string
	doJSON(t, c, http.MethodGet, ts.URL+"/api/categories", nil, &cats)
	assert.Equal(t, []string{"All", "Coffee", "Tea", "Frappuccino", "Food", "Label"}, cats)

	var home service.HomeView
	doJSON(t, c, http.MethodGet, ts.URL+"/api/home", nil, &home)
	assert.Len(t, home.Favourites, 3)

	var profile map[string]interface{}
	doJSON(t, c, http.MethodGet, ts.URL+"/api/profile", nil, &profile)
	assert.NotEmpty(t, profile)

	health, err := c.Get(ts.URL + "/_healthz")
	require.NoError(t, err)
	body, _ := io.ReadAll(health.Body)
	health.Body.Close()
	assert.Equal(t, "ok", string(body))
}

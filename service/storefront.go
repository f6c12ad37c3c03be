package service

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/sbuxapp/storefront/cart"
	"github.com/sbuxapp/storefront/catalog"
	"github.com/sbuxapp/storefront/model"
	"github.com/sbuxapp/storefront/money"
	"github.com/sbuxapp/storefront/repository"
)

const defaultRepoTimeout = 500 * time.Millisecond

var (
	ErrUnknownItem  = errors.New("unknown item")
	ErrUnknownScope = errors.New("unknown search scope")
)

// Scope names a search call site; each has its own blank-query policy.
type Scope string

const (
	ScopeHome Scope = "home"
	ScopeMenu Scope = "menu"
)

type Storefront struct {
	catalog   *catalog.Catalog
	repo      repository.ICartRepository
	formatter money.Formatter
	taxRate   decimal.Decimal
	timeout   time.Duration
	profile   model.Profile
	log       logrus.FieldLogger

	cartAdds    metric.Int64Counter
	cartRemoves metric.Int64Counter
	searches    metric.Int64Counter
}

type Option func(*Storefront)

func WithTaxRate(rate decimal.Decimal) Option {
	return func(s *Storefront) { s.taxRate = rate }
}

func WithFormatter(f money.Formatter) Option {
	return func(s *Storefront) { s.formatter = f }
}

// WithRepoTimeout bounds every repository call.
func WithRepoTimeout(d time.Duration) Option {
	return func(s *Storefront) { s.timeout = d }
}

func WithProfile(p model.Profile) Option {
	return func(s *Storefront) { s.profile = p }
}

func New(c *catalog.Catalog, repo repository.ICartRepository, log logrus.FieldLogger, opts ...Option) *Storefront {
	s := &Storefront{
		catalog:   c,
		repo:      repo,
		formatter: money.Default(),
		taxRate:   cart.DefaultTaxRate,
		timeout:   defaultRepoTimeout,
		profile:   DefaultProfile(),
		log:       log,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerMetrics()
	return s
}

func (s *Storefront) registerMetrics() {
	meter := otel.GetMeterProvider().Meter("storefront.service")
	var err error
	if s.cartAdds, err = meter.Int64Counter("storefront_cart_add_total", metric.WithUnit("{items}")); err != nil {
		s.log.Warnf("failed to register cart add metric: %v", err)
	}
	if s.cartRemoves, err = meter.Int64Counter("storefront_cart_remove_total", metric.WithUnit("{items}")); err != nil {
		s.log.Warnf("failed to register cart remove metric: %v", err)
	}
	if s.searches, err = meter.Int64Counter("storefront_search_total", metric.WithUnit("{requests}")); err != nil {
		s.log.Warnf("failed to register search metric: %v", err)
	}
}

func (s *Storefront) Catalog() *catalog.Catalog {
	return s.catalog
}

func (s *Storefront) TaxRate() decimal.Decimal {
	return s.taxRate
}

func (s *Storefront) amount(v decimal.Decimal) Amount {
	return Amount{Value: v, Text: s.formatter.Format(v)}
}

func (s *Storefront) itemViews(items []model.Item, badges Badges) []ItemView {
	out := make([]ItemView, len(items))
	for i, it := range items {
		out[i] = ItemView{Item: it, Price: s.formatter.Format(it.UnitPrice), Quantity: badges[it.ID]}
	}
	return out
}

// Home is the landing screen: balance, today's favourites and popular coffee.
func (s *Storefront) Home() HomeView {
	return HomeView{
		Greeting:    "Good Morning",
		Subtitle:    "How about a coffee break today?",
		CardBalance: s.amount(s.profile.CardBalance),
		Favourites:  s.itemViews(s.catalog.Favourites(), nil),
		Popular:     s.itemViews(s.catalog.Popular(), nil),
	}
}

// Menu lists the category chips and the sections for the selected category.
// All shows one section per group; unknown categories show none.
func (s *Storefront) Menu(ctx context.Context, sessionID string, selected model.Category) (MenuView, error) {
	if selected == "" {
		selected = model.CategoryAll
	}
	badges, err := s.Badges(ctx, sessionID)
	if err != nil {
		return MenuView{}, err
	}

	view := MenuView{Selected: selected, Sections: []SectionView{}}
	for _, c := range s.catalog.Categories() {
		view.Categories = append(view.Categories, CategoryView{Name: c, Selected: c == selected})
	}
	for _, g := range s.catalog.Groups() {
		if selected != model.CategoryAll && selected != g.Category {
			continue
		}
		view.Sections = append(view.Sections, SectionView{
			Category: g.Category,
			Items:    s.itemViews(g.Items, badges),
		})
	}
	return view, nil
}

// Search runs the query against the scope's item list. A blank query lists
// the whole scope on the home screen and nothing on the menu screen. Menu
// results carry cart badges.
func (s *Storefront) Search(ctx context.Context, sessionID string, scope Scope, query string) (SearchView, error) {
	var (
		results []model.Item
		badges  Badges
	)
	switch scope {
	case ScopeHome:
		results = s.catalog.SearchHome(query)
	case ScopeMenu:
		results = s.catalog.SearchMenu(query)
		var err error
		if badges, err = s.Badges(ctx, sessionID); err != nil {
			return SearchView{}, err
		}
	default:
		return SearchView{}, errors.Wrapf(ErrUnknownScope, "%q", scope)
	}
	if s.searches != nil {
		s.searches.Add(ctx, 1, metric.WithAttributes(attribute.String("scope", string(scope))))
	}
	return SearchView{
		Query:   query,
		Scope:   scope,
		Count:   len(results),
		Results: s.itemViews(results, badges),
	}, nil
}

func (s *Storefront) Item(id int) (ItemView, error) {
	it, ok := s.catalog.Item(id)
	if !ok {
		return ItemView{}, errors.Wrapf(ErrUnknownItem, "id %d", id)
	}
	return s.itemViews([]model.Item{it}, nil)[0], nil
}

// AddOne adds one unit of the item to the session's cart and returns the new
// quantity.
func (s *Storefront) AddOne(ctx context.Context, sessionID string, itemID int) (int, error) {
	if _, ok := s.catalog.Item(itemID); !ok {
		return 0, errors.Wrapf(ErrUnknownItem, "id %d", itemID)
	}
	childCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	qty, err := s.repo.AddItem(childCtx, sessionID, itemID)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to add item %d", itemID)
	}
	if s.cartAdds != nil {
		s.cartAdds.Add(ctx, 1)
	}
	return qty, nil
}

// RemoveOne takes one unit of the item out of the cart; the line disappears
// at zero.
func (s *Storefront) RemoveOne(ctx context.Context, sessionID string, itemID int) (int, error) {
	if _, ok := s.catalog.Item(itemID); !ok {
		return 0, errors.Wrapf(ErrUnknownItem, "id %d", itemID)
	}
	childCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	qty, err := s.repo.RemoveItem(childCtx, sessionID, itemID)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to remove item %d", itemID)
	}
	if s.cartRemoves != nil {
		s.cartRemoves.Add(ctx, 1)
	}
	return qty, nil
}

func (s *Storefront) EmptyCart(ctx context.Context, sessionID string) error {
	childCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.repo.EmptyCart(childCtx, sessionID); err != nil {
		return errors.Wrap(err, "failed to empty cart")
	}
	return nil
}

// Cart rebuilds the session's cart against the catalog. Stored ids the
// catalog no longer knows are dropped with a warning.
func (s *Storefront) Cart(ctx context.Context, sessionID string) (*cart.Cart, error) {
	childCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	stored, err := s.repo.GetCart(childCtx, sessionID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get cart")
	}
	c, skipped := cart.Restore(stored, s.catalog.Item)
	if len(skipped) > 0 {
		s.log.WithField("session", sessionID).WithField("items", skipped).
			Warn("dropping cart lines not in catalog")
	}
	return c, nil
}

func (s *Storefront) Badges(ctx context.Context, sessionID string) (Badges, error) {
	c, err := s.Cart(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	badges := make(Badges, c.Len())
	for _, l := range c.Lines() {
		badges[l.Item.ID] = l.Quantity
	}
	return badges, nil
}

// Summary is the order screen: lines, "N items", subtotal, tax and total.
func (s *Storefront) Summary(ctx context.Context, sessionID string) (SummaryView, error) {
	c, err := s.Cart(ctx, sessionID)
	if err != nil {
		return SummaryView{}, err
	}
	return s.summarize(c), nil
}

func (s *Storefront) summarize(c *cart.Cart) SummaryView {
	lines := c.Lines()
	view := SummaryView{
		Lines:          make([]LineView, len(lines)),
		ItemCount:      c.ItemCount(),
		ItemCountLabel: itemCountLabel(c.ItemCount()),
		Subtotal:       s.amount(c.Subtotal()),
		TaxRate:        s.taxRate.String(),
		Tax:            s.amount(c.Tax(s.taxRate)),
		Total:          s.amount(c.Total(s.taxRate)),
	}
	for i, l := range lines {
		view.Lines[i] = LineView{
			ItemID:    l.Item.ID,
			Name:      l.Item.Name,
			ImageRef:  l.Item.ImageRef,
			Quantity:  l.Quantity,
			UnitPrice: s.amount(l.Item.UnitPrice),
			LineTotal: s.amount(l.Total()),
		}
	}
	return view
}

func itemCountLabel(n int) string {
	if n == 1 {
		return "1 item"
	}
	return fmt.Sprintf("%d items", n)
}

func (s *Storefront) Profile() model.Profile {
	return s.profile
}

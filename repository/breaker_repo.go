package repository

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/sbuxapp/storefront/model"
)

// BreakerSettings tunes the circuit breaker around a cart store.
type BreakerSettings struct {
	Name         string
	MaxRequests  uint32
	Interval     time.Duration
	Timeout      time.Duration
	MinRequests  uint32
	FailureRatio float64
}

func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		Name:         "CartStoreCircuitBreaker",
		MaxRequests:  1,
		Interval:     10 * time.Second,
		Timeout:      30 * time.Second,
		MinRequests:  5,
		FailureRatio: 0.5,
	}
}

// BreakerRepo fails fast with ErrUnavailable while the store behind it keeps
// erroring. Caller mistakes (no session, cancelled context) do not count as
// failures.
type BreakerRepo struct {
	next ICartRepository
	cb   *gobreaker.CircuitBreaker
	log  logrus.FieldLogger
}

func NewBreakerRepo(next ICartRepository, s BreakerSettings, log logrus.FieldLogger) *BreakerRepo {
	st := gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: s.MaxRequests,
		Interval:    s.Interval,
		Timeout:     s.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= s.MinRequests && failureRatio >= s.FailureRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warnf("CircuitBreaker %s state changed from %s to %s", name, from, to)
		},
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, ErrNoSession) ||
				errors.Is(err, context.Canceled)
		},
	}
	return &BreakerRepo{next: next, cb: gobreaker.NewCircuitBreaker(st), log: log}
}

func (b *BreakerRepo) State() gobreaker.State {
	return b.cb.State()
}

func (b *BreakerRepo) execute(op string, fn func() (interface{}, error)) (interface{}, error) {
	val, err := b.cb.Execute(fn)
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		b.log.Errorf("[%s] circuit breaker rejected call: %v", op, err)
		return nil, errors.Wrap(ErrUnavailable, err.Error())
	}
	return val, err
}

func (b *BreakerRepo) AddItem(ctx context.Context, sessionID string, itemID int) (int, error) {
	val, err := b.execute("AddItem", func() (interface{}, error) {
		return b.next.AddItem(ctx, sessionID, itemID)
	})
	if err != nil {
		return 0, err
	}
	return val.(int), nil
}

func (b *BreakerRepo) RemoveItem(ctx context.Context, sessionID string, itemID int) (int, error) {
	val, err := b.execute("RemoveItem", func() (interface{}, error) {
		return b.next.RemoveItem(ctx, sessionID, itemID)
	})
	if err != nil {
		return 0, err
	}
	return val.(int), nil
}

func (b *BreakerRepo) GetCart(ctx context.Context, sessionID string) ([]model.CartItem, error) {
	val, err := b.execute("GetCart", func() (interface{}, error) {
		return b.next.GetCart(ctx, sessionID)
	})
	if err != nil {
		return nil, err
	}
	return val.([]model.CartItem), nil
}

func (b *BreakerRepo) EmptyCart(ctx context.Context, sessionID string) error {
	_, err := b.execute("EmptyCart", func() (interface{}, error) {
		return nil, b.next.EmptyCart(ctx, sessionID)
	})
	return err
}

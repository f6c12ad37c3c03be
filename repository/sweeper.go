package repository

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// IdleExpirer is a cart store that cannot expire sessions on its own.
type IdleExpirer interface {
	ExpireIdle(before time.Time) int
}

// CartSweeper periodically drops carts whose session has been idle longer
// than ttl. Redis carts expire by key TTL and do not need it.
type CartSweeper struct {
	store    IdleExpirer
	ttl      time.Duration
	interval time.Duration
	logger   logrus.FieldLogger

	evictedTotal uint64
}

func NewCartSweeper(store IdleExpirer, ttl, interval time.Duration, log logrus.FieldLogger) *CartSweeper {
	w := &CartSweeper{
		store:    store,
		ttl:      ttl,
		interval: interval,
		logger:   log,
	}
	w.registerMetrics()
	return w
}

func (w *CartSweeper) registerMetrics() {
	meter := otel.GetMeterProvider().Meter("storefront.sweeper")
	_, err := meter.Int64ObservableCounter("storefront_cart_evicted_total",
		metric.WithInt64Callback(func(_ context.Context, obs metric.Int64Observer) error {
			obs.Observe(int64(atomic.LoadUint64(&w.evictedTotal)))
			return nil
		}),
	)
	if err != nil {
		w.logger.Warnf("failed to register sweeper metric: %v", err)
	}
}

// Run blocks until ctx is done.
func (w *CartSweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Infof("[CartSweeper] Started, evicting carts idle for %v (every %v)", w.ttl, w.interval)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("[CartSweeper] Stopping...")
			return nil
		case now := <-ticker.C:
			w.Sweep(now)
		}
	}
}

// Sweep evicts carts idle since before now-ttl.
func (w *CartSweeper) Sweep(now time.Time) int {
	n := w.store.ExpireIdle(now.Add(-w.ttl))
	if n > 0 {
		atomic.AddUint64(&w.evictedTotal, uint64(n))
		w.logger.Infof("[CartSweeper] Evicted %d idle carts", n)
	}
	return n
}

func (w *CartSweeper) Evicted() uint64 {
	return atomic.LoadUint64(&w.evictedTotal)
}

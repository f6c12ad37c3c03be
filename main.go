// Copyright 2018 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	redis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/sbuxapp/storefront/catalog"
	"github.com/sbuxapp/storefront/repository"
	"github.com/sbuxapp/storefront/service"
)

var log *logrus.Logger

func init() {
	log = logrus.New()
	log.Formatter = &logrus.JSONFormatter{
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "severity",
			logrus.FieldKeyMsg:   "message",
		},
		TimestampFormat: time.RFC3339Nano,
	}
	log.Out = os.Stdout
}

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("invalid configuration: %+v", err)
	}
	log.SetLevel(cfg.logLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.tracing {
		shutdownTelemetry := initTelemetry(ctx)
		defer shutdownTelemetry(context.Background())
	}

	if cfg.profiler {
		log.Info("Profiling enabled.")
		go initProfiling(serviceName, serviceVersion)
	} else {
		log.Info("Profiling disabled.")
	}

	repo, rdb, sweeper := initCartRepo(ctx, cfg)
	if rdb != nil {
		defer rdb.Close()
	}

	sf := service.New(catalog.Default(), repo, log,
		service.WithTaxRate(cfg.taxRate),
		service.WithRepoTimeout(cfg.repoTimeout))

	srv := &http.Server{
		Addr:              ":" + cfg.port,
		Handler:           newHandler(sf, rdb, cfg),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	if sweeper != nil {
		g.Go(func() error { return sweeper.Run(gctx) })
	}
	g.Go(func() error {
		log.Infof("starting http server at :%s (cart backend %s, tax rate %s)", cfg.port, cfg.cartBackend, cfg.taxRate)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "http server")
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Gracefully shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Errorf("server stopped: %+v", err)
	}
}

// newHandler wraps the router so that every request is rate limited, carries
// a session and gets a request-scoped logger, in that order.
func newHandler(sf *service.Storefront, rdb *redis.Client, cfg config) http.Handler {
	var handler http.Handler = newRouter(&storefrontServer{sf: sf})
	handler = &logHandler{log: log, next: handler}
	handler = ensureSessionID(cfg.sharedSession, handler)
	handler = NewLimiter(rdb, cfg, log).GlobalAndIPLimiter(handler)
	return handler
}

// initCartRepo falls back to in-process carts when Redis cannot be reached.
// In-process carts come with a sweeper that expires idle sessions.
func initCartRepo(ctx context.Context, cfg config) (repository.ICartRepository, *redis.Client, *repository.CartSweeper) {
	if cfg.cartBackend == backendRedis {
		rdb, err := repository.NewRedisClient(ctx, cfg.redis, log)
		if err == nil {
			base := repository.NewCartRedis(rdb, cfg.sessionTTL)
			return repository.NewBreakerRepo(base, repository.DefaultBreakerSettings(), log), rdb, nil
		}
		log.Warnf("%v, using in-memory cart repository", err)
	} else {
		log.Info("using in-memory cart repository")
	}

	mem := repository.NewMemoryRepo()
	if cfg.sessionTTL <= 0 {
		return mem, nil, nil
	}
	return mem, nil, repository.NewCartSweeper(mem, cfg.sessionTTL, cfg.sweepInterval, log)
}

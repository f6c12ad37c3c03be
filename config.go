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
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/sbuxapp/storefront/cart"
	"github.com/sbuxapp/storefront/repository"
)

const (
	backendMemory = "memory"
	backendRedis  = "redis"
)

type config struct {
	port     string
	logLevel logrus.Level
	taxRate  decimal.Decimal

	cartBackend   string
	redis         repository.RedisOptions
	sessionTTL    time.Duration
	sweepInterval time.Duration
	repoTimeout   time.Duration

	globalRate  float64
	globalBurst int
	ipRate      float64
	ipBurst     int

	tracing         bool
	profiler        bool
	sharedSession   bool
	shutdownTimeout time.Duration
}

func loadConfig() (config, error) {
	cfg := config{
		port:            getEnv("PORT", "8080"),
		cartBackend:     strings.ToLower(getEnv("CART_BACKEND", backendMemory)),
		sessionTTL:      getEnvDuration("SESSION_TTL", 24*time.Hour),
		sweepInterval:   getEnvDuration("CART_SWEEP_INTERVAL", time.Minute),
		repoTimeout:     getEnvDuration("CART_TIMEOUT", 500*time.Millisecond),
		globalRate:      getEnvFloat("RATELIMIT_GLOBAL_RPS", 1000.0),
		globalBurst:     getEnvInt("RATELIMIT_GLOBAL_BURST", 1000),
		ipRate:          getEnvFloat("RATELIMIT_IP_RPS", 5.0),
		ipBurst:         getEnvInt("RATELIMIT_IP_BURST", 10),
		tracing:         os.Getenv("ENABLE_TRACING") == "1",
		profiler:        os.Getenv("DISABLE_PROFILER") == "",
		sharedSession:   os.Getenv("ENABLE_SINGLE_SHARED_SESSION") == "true",
		shutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
	}

	if cfg.sweepInterval <= 0 {
		cfg.sweepInterval = time.Minute
	}

	lvl, err := logrus.ParseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return cfg, errors.Wrap(err, "LOG_LEVEL")
	}
	cfg.logLevel = lvl

	cfg.taxRate = cart.DefaultTaxRate
	if s := os.Getenv("TAX_RATE"); s != "" {
		rate, err := decimal.NewFromString(s)
		if err != nil {
			return cfg, errors.Wrapf(err, "TAX_RATE %q", s)
		}
		if rate.IsNegative() {
			return cfg, fmt.Errorf("TAX_RATE must not be negative, got %s", s)
		}
		cfg.taxRate = rate
	}

	switch cfg.cartBackend {
	case backendMemory:
	case backendRedis:
		cfg.redis = repository.RedisOptions{
			Addr:       getEnv("REDIS_ADDR", "localhost:6379"),
			MasterName: getEnv("REDIS_MASTER_NAME", "mymaster"),
			DB:         getEnvInt("REDIS_DB", 0),
			MaxRetries: getEnvInt("REDIS_MAX_RETRIES", 10),
			Tracing:    cfg.tracing,
		}
		if s := os.Getenv("REDIS_SENTINEL_ADDRS"); s != "" {
			cfg.redis.SentinelAddrs = strings.Split(s, ",")
		}
	default:
		return cfg, fmt.Errorf("CART_BACKEND must be %q or %q, got %q", backendMemory, backendRedis, cfg.cartBackend)
	}
	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

func mustMapEnv(target *string, envKey string) {
	v := os.Getenv(envKey)
	if v == "" {
		panic(fmt.Sprintf("environment variable %q not set", envKey))
	}
	*target = v
}

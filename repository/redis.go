package repository

import (
	"context"
	"fmt"
	"time"

	redisotel "github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// RedisOptions selects sentinel mode when SentinelAddrs is set, single node
// mode otherwise.
type RedisOptions struct {
	Addr          string
	SentinelAddrs []string
	MasterName    string
	DB            int
	MaxRetries    int
	Tracing       bool
}

// NewRedisClient connects and pings with exponential backoff (capped at 30s).
func NewRedisClient(ctx context.Context, opts RedisOptions, log logrus.FieldLogger) (*redis.Client, error) {
	var rdb *redis.Client

	if len(opts.SentinelAddrs) > 0 {
		masterName := opts.MasterName
		if masterName == "" {
			masterName = "mymaster"
		}
		log.Infof("Initializing Redis in Sentinel Mode. Master: %s, DB: %d", masterName, opts.DB)

		rdb = redis.NewFailoverClient(&redis.FailoverOptions{
			MasterName:    masterName,
			SentinelAddrs: opts.SentinelAddrs,
			DB:            opts.DB,
		})
	} else {
		addr := opts.Addr
		if addr == "" {
			addr = "localhost:6379"
		}
		log.Infof("Initializing Redis in Single Node Mode. Addr: %s, DB: %d", addr, opts.DB)

		rdb = redis.NewClient(&redis.Options{
			Addr: addr,
			DB:   opts.DB,
		})
	}

	if opts.Tracing {
		if err := redisotel.InstrumentTracing(rdb); err != nil {
			log.Warnf("failed to instrument redis tracing: %v", err)
		}
	}

	maxRetries := opts.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 1
	}
	for i := 0; i < maxRetries; i++ {
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()

		if err == nil {
			log.Info("connected to redis")
			return rdb, nil
		}

		if i == maxRetries-1 {
			rdb.Close()
			return nil, fmt.Errorf("failed to connect to redis after %d retries: %w", maxRetries, err)
		}

		backoff := time.Duration(1<<i) * time.Second
		if backoff > 30*time.Second {
			backoff = 30 * time.Second
		}
		log.Warnf("redis not ready, retry in %v... (%d/%d)", backoff, i+1, maxRetries)
		select {
		case <-ctx.Done():
			rdb.Close()
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
	return rdb, nil
}

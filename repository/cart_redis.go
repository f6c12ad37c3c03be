package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/sbuxapp/storefront/model"
)

// KEYS: [qtyKey, orderKey]  ARGV: [itemID, ttlMillis]
const luaAddItem = `
	local qty = redis.call('HINCRBY', KEYS[1], ARGV[1], 1)
	if qty == 1 then
		redis.call('RPUSH', KEYS[2], ARGV[1])
	end
	local ttl = tonumber(ARGV[2])
	if ttl > 0 then
		redis.call('PEXPIRE', KEYS[1], ttl)
		redis.call('PEXPIRE', KEYS[2], ttl)
	end
	return qty
`

// KEYS: [qtyKey, orderKey]  ARGV: [itemID, ttlMillis]
const luaRemoveItem = `
	local qty = tonumber(redis.call('HGET', KEYS[1], ARGV[1]))
	if qty == nil then
		return 0
	end
	if qty <= 1 then
		redis.call('HDEL', KEYS[1], ARGV[1])
		redis.call('LREM', KEYS[2], 0, ARGV[1])
		return 0
	end
	qty = redis.call('HINCRBY', KEYS[1], ARGV[1], -1)
	local ttl = tonumber(ARGV[2])
	if ttl > 0 then
		redis.call('PEXPIRE', KEYS[1], ttl)
		redis.call('PEXPIRE', KEYS[2], ttl)
	end
	return qty
`

// CartRedis keeps quantities in a hash and first-add order in a list, both
// expiring with the session.
type CartRedis struct {
	rdb          *redis.Client
	ttl          time.Duration
	addScript    *redis.Script
	removeScript *redis.Script
}

func NewCartRedis(rdb *redis.Client, ttl time.Duration) *CartRedis {
	return &CartRedis{
		rdb:          rdb,
		ttl:          ttl,
		addScript:    redis.NewScript(luaAddItem),
		removeScript: redis.NewScript(luaRemoveItem),
	}
}

func cartKeys(sessionID string) []string {
	key := fmt.Sprintf("cart:%s", sessionID)
	return []string{key, key + ":order"}
}

func (r *CartRedis) AddItem(ctx context.Context, sessionID string, itemID int) (int, error) {
	if sessionID == "" {
		return 0, ErrNoSession
	}
	qty, err := r.addScript.Run(ctx, r.rdb, cartKeys(sessionID), strconv.Itoa(itemID), r.ttl.Milliseconds()).Int()
	if err != nil {
		return 0, fmt.Errorf("add item %d: %w", itemID, err)
	}
	return qty, nil
}

func (r *CartRedis) RemoveItem(ctx context.Context, sessionID string, itemID int) (int, error) {
	if sessionID == "" {
		return 0, ErrNoSession
	}
	qty, err := r.removeScript.Run(ctx, r.rdb, cartKeys(sessionID), strconv.Itoa(itemID), r.ttl.Milliseconds()).Int()
	if err != nil {
		return 0, fmt.Errorf("remove item %d: %w", itemID, err)
	}
	return qty, nil
}

func (r *CartRedis) GetCart(ctx context.Context, sessionID string) ([]model.CartItem, error) {
	if sessionID == "" {
		return nil, ErrNoSession
	}
	keys := cartKeys(sessionID)

	var (
		qtyCmd   *redis.MapStringStringCmd
		orderCmd *redis.StringSliceCmd
	)
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		qtyCmd = pipe.HGetAll(ctx, keys[0])
		orderCmd = pipe.LRange(ctx, keys[1], 0, -1)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}

	quantities := qtyCmd.Val()
	order := orderCmd.Val()
	items := make([]model.CartItem, 0, len(order))
	for _, field := range order {
		id, err := strconv.Atoi(field)
		if err != nil {
			continue
		}
		q, _ := strconv.Atoi(quantities[field])
		if q < 1 {
			continue
		}
		items = append(items, model.CartItem{ItemID: id, Quantity: q})
	}
	return items, nil
}

func (r *CartRedis) EmptyCart(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return ErrNoSession
	}
	return r.rdb.Del(ctx, cartKeys(sessionID)...).Err()
}

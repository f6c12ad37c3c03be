package repository

import (
	"context"
	"sync"
	"time"

	"github.com/sbuxapp/storefront/model"
)

// MemoryRepo keeps carts in process until their session goes idle; see
// ExpireIdle.
type MemoryRepo struct {
	mu       sync.Mutex
	carts    map[string][]model.CartItem
	lastSeen map[string]time.Time
	now      func() time.Time
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		carts:    make(map[string][]model.CartItem),
		lastSeen: make(map[string]time.Time),
		now:      time.Now,
	}
}

// touch must be called with mu held.
func (m *MemoryRepo) touch(sessionID string) {
	if _, ok := m.carts[sessionID]; ok {
		m.lastSeen[sessionID] = m.now()
	}
}

// ExpireIdle drops every cart not used since before and reports how many
// went.
func (m *MemoryRepo) ExpireIdle(before time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for sid, seen := range m.lastSeen {
		if seen.Before(before) {
			delete(m.carts, sid)
			delete(m.lastSeen, sid)
			n++
		}
	}
	return n
}

func (m *MemoryRepo) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.carts)
}

func (m *MemoryRepo) AddItem(ctx context.Context, sessionID string, itemID int) (int, error) {
	if sessionID == "" {
		return 0, ErrNoSession
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	defer m.touch(sessionID)

	items := m.carts[sessionID]
	for i := range items {
		if items[i].ItemID == itemID {
			items[i].Quantity++
			return items[i].Quantity, nil
		}
	}
	m.carts[sessionID] = append(items, model.CartItem{ItemID: itemID, Quantity: 1})
	return 1, nil
}

func (m *MemoryRepo) RemoveItem(ctx context.Context, sessionID string, itemID int) (int, error) {
	if sessionID == "" {
		return 0, ErrNoSession
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	defer m.touch(sessionID)

	items := m.carts[sessionID]
	for i := range items {
		if items[i].ItemID != itemID {
			continue
		}
		if items[i].Quantity > 1 {
			items[i].Quantity--
			return items[i].Quantity, nil
		}
		items = append(items[:i], items[i+1:]...)
		if len(items) == 0 {
			delete(m.carts, sessionID)
			delete(m.lastSeen, sessionID)
		} else {
			m.carts[sessionID] = items
		}
		return 0, nil
	}
	return 0, nil
}

func (m *MemoryRepo) GetCart(ctx context.Context, sessionID string) ([]model.CartItem, error) {
	if sessionID == "" {
		return nil, ErrNoSession
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.touch(sessionID)
	out := make([]model.CartItem, len(m.carts[sessionID]))
	copy(out, m.carts[sessionID])
	return out, nil
}

func (m *MemoryRepo) EmptyCart(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return ErrNoSession
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.carts, sessionID)
	delete(m.lastSeen, sessionID)
	return nil
}

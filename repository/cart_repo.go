package repository

import (
	"context"

	"github.com/pkg/errors"

	"github.com/sbuxapp/storefront/model"
)

var (
	ErrNoSession   = errors.New("repository: empty session id")
	ErrUnavailable = errors.New("repository: cart storage unavailable")
)

// ICartRepository stores one cart per session. Lines come back in the order
// their items were first added.
type ICartRepository interface {
	AddItem(ctx context.Context, sessionID string, itemID int) (int, error)
	RemoveItem(ctx context.Context, sessionID string, itemID int) (int, error)
	GetCart(ctx context.Context, sessionID string) ([]model.CartItem, error)
	EmptyCart(ctx context.Context, sessionID string) error
}

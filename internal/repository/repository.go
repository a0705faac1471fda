package repository

import (
	"context"
	"errors"

	"github.com/fjod/storefront/internal/domain"
)

var (
	ErrCartNotFound    = errors.New("cart not found")
	ErrVersionConflict = errors.New("cart was modified concurrently")
)

// CartRepository stores cart aggregates under optimistic concurrency.
// Consumers define this interface, not the MongoDB implementation.
type CartRepository interface {
	// GetCart returns ErrCartNotFound when no cart with cartID exists.
	GetCart(ctx context.Context, cartID string) (*domain.Cart, error)

	// GetOrCreateCart returns the cart, inserting an empty one at version 0
	// if it does not exist. Concurrent first calls create a single cart.
	GetOrCreateCart(ctx context.Context, cartID string) (*domain.Cart, error)

	// SaveIfVersion replaces the stored cart only if its version still equals
	// expectedVersion, and returns ErrVersionConflict otherwise. On success
	// cart.Version is set to expectedVersion+1.
	SaveIfVersion(ctx context.Context, cart *domain.Cart, expectedVersion int64) error

	Ping(ctx context.Context) error
}

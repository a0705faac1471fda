package cache

import (
	"context"
	"errors"

	"github.com/fjod/storefront/internal/domain"
)

// CartCache holds read copies of cart documents. Writes are version
// monotonic: a cart is only stored if it is newer than the cached copy, so
// a slow reader cannot overwrite the result of a later mutation.
type CartCache interface {
	Get(ctx context.Context, cartID string) (*domain.Cart, error)
	SetIfNewer(ctx context.Context, cart *domain.Cart) error
	Delete(ctx context.Context, cartID string) error
}

var ErrCacheMiss = errors.New("cache miss")

// NopCache is used when no Redis address is configured.
type NopCache struct{}

func (NopCache) Get(context.Context, string) (*domain.Cart, error) { return nil, ErrCacheMiss }

func (NopCache) SetIfNewer(context.Context, *domain.Cart) error { return nil }

func (NopCache) Delete(context.Context, string) error { return nil }

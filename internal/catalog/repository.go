package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/fjod/storefront/internal/domain"
)

var (
	ErrProductNotFound = fmt.Errorf("%w: product not found", domain.ErrNotFound)
	ErrProductExists   = fmt.Errorf("%w: product already exists", domain.ErrInvalidArgument)
	errUnknownDriver   = errors.New("unknown catalog driver")
)

// Repository is the read/write surface of the product catalog.
type Repository interface {
	ListProducts(ctx context.Context, filter Filter) ([]domain.Product, error)
	Categories(ctx context.Context) ([]string, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	// GetProducts resolves ids in one query. Ids with no product are absent
	// from the result.
	GetProducts(ctx context.Context, ids []string) (map[string]domain.Product, error)
	CreateProduct(ctx context.Context, p *domain.Product) error
	Count(ctx context.Context) (int, error)
	Ping(ctx context.Context) error
	Close() error
}

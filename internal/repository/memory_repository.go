package repository

import (
	"context"
	"sync"
	"time"

	"github.com/fjod/storefront/internal/domain"
)

// MemoryRepository implements CartRepository in process memory with the
// same version semantics as MongoRepository. Stored carts are copied on the
// way in and out so callers never alias repository state.
type MemoryRepository struct {
	mu    sync.RWMutex
	carts map[string]*domain.Cart
	now   func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		carts: make(map[string]*domain.Cart),
		now:   time.Now,
	}
}

func (s *MemoryRepository) GetCart(_ context.Context, cartID string) (*domain.Cart, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cart, ok := s.carts[cartID]
	if !ok {
		return nil, ErrCartNotFound
	}
	return cart.Clone(), nil
}

func (s *MemoryRepository) GetOrCreateCart(ctx context.Context, cartID string) (*domain.Cart, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cart, ok := s.carts[cartID]
	if !ok {
		cart = domain.NewCart(cartID, s.now())
		s.carts[cartID] = cart
	}
	return cart.Clone(), nil
}

func (s *MemoryRepository) SaveIfVersion(ctx context.Context, cart *domain.Cart, expectedVersion int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.carts[cart.ID]
	if !ok || stored.Version != expectedVersion {
		return ErrVersionConflict
	}

	next := cart.Clone()
	next.Version = expectedVersion + 1
	next.CreatedAt = stored.CreatedAt
	next.UpdatedAt = s.now()
	s.carts[cart.ID] = next

	cart.Version = next.Version
	cart.UpdatedAt = next.UpdatedAt
	return nil
}

func (s *MemoryRepository) Ping(context.Context) error {
	return nil
}

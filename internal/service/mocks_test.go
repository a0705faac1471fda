package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/fjod/storefront/internal/cache"
	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/repository"
)

const (
	headphonesID = "507f1f77bcf86cd799439011"
	walletID     = "507f1f77bcf86cd799439013"
)

type fakeCatalog struct {
	m        sync.RWMutex
	products map[string]domain.Product
	err      error
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{products: map[string]domain.Product{
		headphonesID: {ID: headphonesID, Name: "Wireless Headphones", Price: 199.99, Category: "electronics"},
		walletID:     {ID: walletID, Name: "Premium Leather Wallet", Price: 49.99, Category: "accessories"},
	}}
}

func (f *fakeCatalog) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	f.m.RLock()
	defer f.m.RUnlock()
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.products[id]
	if !ok {
		return nil, domain.NotFound("product not found")
	}
	return &p, nil
}

func (f *fakeCatalog) GetProducts(_ context.Context, ids []string) (map[string]domain.Product, error) {
	f.m.RLock()
	defer f.m.RUnlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[string]domain.Product, len(ids))
	for _, id := range ids {
		if p, ok := f.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (f *fakeCatalog) setPrice(id string, price float64) {
	f.m.Lock()
	defer f.m.Unlock()
	p := f.products[id]
	p.Price = price
	f.products[id] = p
}

func (f *fakeCatalog) remove(id string) {
	f.m.Lock()
	defer f.m.Unlock()
	delete(f.products, id)
}

// hookRepository runs beforeSave ahead of every SaveIfVersion so tests can
// inject a competing write between a load and its conditional save.
type hookRepository struct {
	*repository.MemoryRepository
	beforeSave func(ctx context.Context, attempt int)

	m     sync.Mutex
	saves int
}

func (h *hookRepository) SaveIfVersion(ctx context.Context, c *domain.Cart, expectedVersion int64) error {
	h.m.Lock()
	h.saves++
	attempt := h.saves
	h.m.Unlock()

	if h.beforeSave != nil {
		h.beforeSave(ctx, attempt)
	}
	return h.MemoryRepository.SaveIfVersion(ctx, c, expectedVersion)
}

// conflictRepository never accepts a write.
type conflictRepository struct {
	*repository.MemoryRepository
}

func (conflictRepository) SaveIfVersion(context.Context, *domain.Cart, int64) error {
	return repository.ErrVersionConflict
}

type failingRepository struct {
	err error
}

func (f failingRepository) GetCart(context.Context, string) (*domain.Cart, error) { return nil, f.err }

func (f failingRepository) GetOrCreateCart(context.Context, string) (*domain.Cart, error) {
	return nil, f.err
}

func (f failingRepository) SaveIfVersion(context.Context, *domain.Cart, int64) error { return f.err }

func (f failingRepository) Ping(context.Context) error { return f.err }

type recordingCache struct {
	m       sync.Mutex
	carts   map[string]*domain.Cart
	sets    []int64
	deletes int
	setErr  error
}

func newRecordingCache() *recordingCache {
	return &recordingCache{carts: map[string]*domain.Cart{}}
}

func (r *recordingCache) Get(_ context.Context, cartID string) (*domain.Cart, error) {
	r.m.Lock()
	defer r.m.Unlock()
	c, ok := r.carts[cartID]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return c.Clone(), nil
}

func (r *recordingCache) SetIfNewer(_ context.Context, c *domain.Cart) error {
	r.m.Lock()
	defer r.m.Unlock()
	if r.setErr != nil {
		return r.setErr
	}
	r.sets = append(r.sets, c.Version)
	if cur, ok := r.carts[c.ID]; !ok || cur.Version < c.Version {
		r.carts[c.ID] = c.Clone()
	}
	return nil
}

func (r *recordingCache) Delete(_ context.Context, cartID string) error {
	r.m.Lock()
	defer r.m.Unlock()
	r.deletes++
	delete(r.carts, cartID)
	return nil
}

// blockingRepository parks the first GetOrCreateCart after it has read the
// cart, until release is closed.
type blockingRepository struct {
	*repository.MemoryRepository
	loaded  chan struct{}
	release chan struct{}

	once     sync.Once
	released sync.Once
}

func newBlockingRepository() *blockingRepository {
	return &blockingRepository{
		MemoryRepository: repository.NewMemoryRepository(),
		loaded:           make(chan struct{}),
		release:          make(chan struct{}),
	}
}

func (b *blockingRepository) GetOrCreateCart(ctx context.Context, cartID string) (*domain.Cart, error) {
	cart, err := b.MemoryRepository.GetOrCreateCart(ctx, cartID)
	first := false
	b.once.Do(func() { first = true })
	if first {
		close(b.loaded)
		<-b.release
	}
	return cart, err
}

func (b *blockingRepository) unblock() {
	b.released.Do(func() { close(b.release) })
}

// timeoutRepository makes every save outlive its context. With apply set the
// write still reaches the store before the deadline error is returned.
type timeoutRepository struct {
	*repository.MemoryRepository
	apply bool
}

func (r timeoutRepository) SaveIfVersion(ctx context.Context, c *domain.Cart, expectedVersion int64) error {
	if r.apply {
		if err := r.MemoryRepository.SaveIfVersion(context.Background(), c, expectedVersion); err != nil {
			return err
		}
	}
	<-ctx.Done()
	return fmt.Errorf("failed to save cart: %w", ctx.Err())
}

package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/fjod/storefront/internal/cache"
	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultLockTimeout = 2 * time.Second

	// MaxLineQuantity bounds a single line so quantities cannot overflow.
	MaxLineQuantity = 10000

	// OutboxWarnThreshold is the pending receipt count above which every
	// checkout logs a backlog warning. Receipts are never dropped.
	OutboxWarnThreshold = 100

	saveTimeout  = 5 * time.Second
	cacheTimeout = time.Second
)

// ProductCatalog is the read side of the catalog the cart needs.
type ProductCatalog interface {
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	GetProducts(ctx context.Context, ids []string) (map[string]domain.Product, error)
}

type Options struct {
	// LockTimeout bounds how long a mutation keeps retrying after version
	// conflicts before failing with domain.ErrBusy.
	LockTimeout time.Duration
	// ReceiptOutbox makes Checkout append the receipt to the cart's outbox
	// in the same write that clears the lines.
	ReceiptOutbox bool
	Logger        *zap.Logger
}

// CartService owns every read-modify-write of the shared cart. All
// mutations go through mutate, which retries the whole cycle on a version
// conflict.
type CartService struct {
	repo    repository.CartRepository
	cache   cache.CartCache
	catalog ProductCatalog
	sfg     singleflight.Group // Prevents cache stampede

	cartID       string
	lockTimeout  time.Duration
	saveTimeout  time.Duration
	outbox       bool
	outboxWarnAt int
	log          *zap.Logger
	now          func() time.Time
	newID        func() string

	// committed is the highest cart version this process has written.
	// Cached copies older than it are never served or written back.
	committed atomic.Int64
}

func NewCartService(repo repository.CartRepository, cartCache cache.CartCache, catalog ProductCatalog, opts Options) *CartService {
	if cartCache == nil {
		cartCache = cache.NopCache{}
	}
	if opts.LockTimeout <= 0 {
		opts.LockTimeout = DefaultLockTimeout
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	return &CartService{
		repo:         repo,
		cache:        cartCache,
		catalog:      catalog,
		cartID:       domain.SharedCartID,
		lockTimeout:  opts.LockTimeout,
		saveTimeout:  saveTimeout,
		outbox:       opts.ReceiptOutbox,
		outboxWarnAt: OutboxWarnThreshold,
		log:          opts.Logger.Named("cart"),
		now:          func() time.Time { return time.Now().UTC() },
		newID:        uuid.NewString,
	}
}

// GetCart returns the shared cart, creating it on first access, with lines
// resolved against current prices. Concurrent misses share one load.
func (s *CartService) GetCart(ctx context.Context) (*domain.CartView, error) {
	v, err, _ := s.sfg.Do(s.cartID, func() (interface{}, error) {
		cart, err := s.cache.Get(ctx, s.cartID)
		switch {
		case err == nil && cart.Version >= s.committed.Load():
			return cart, nil // cart is in cache
		case err == nil:
			s.log.Debug("ignoring stale cached cart", zap.Int64("version", cart.Version))
		case !errors.Is(err, cache.ErrCacheMiss):
			s.log.Warn("cache get failed", zap.Error(err)) // log cache error but continue
		}

		cart, err = s.repo.GetOrCreateCart(ctx, s.cartID)
		if err != nil {
			return nil, s.storageError(ctx, "load cart", err)
		}

		go func(c *domain.Cart) {
			if c.Version < s.committed.Load() {
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), cacheTimeout)
			defer cancel()
			if err := s.cache.SetIfNewer(ctx, c); err != nil {
				s.log.Warn("cache set failed", zap.Error(err))
			}
		}(cart.Clone())

		return cart, nil
	})
	if err != nil {
		return nil, err
	}

	cart := v.(*domain.Cart)
	products, err := s.catalog.GetProducts(ctx, cart.ProductIDs())
	if err != nil {
		return nil, s.storageError(ctx, "resolve products", err)
	}
	return domain.NewCartView(cart, products), nil
}

// AddItem adds quantity of productID, merging with an existing line.
func (s *CartService) AddItem(ctx context.Context, productID string, quantity int) (*domain.CartView, error) {
	if err := domain.ValidateProductID(productID); err != nil {
		return nil, err
	}
	if quantity <= 0 {
		return nil, domain.InvalidArgument("quantity must be a positive integer, got %d", quantity)
	}
	if quantity > MaxLineQuantity {
		return nil, domain.InvalidArgument("quantity must be at most %d", MaxLineQuantity)
	}

	if _, err := s.catalog.GetProduct(ctx, productID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NotFound("product %s not found", productID)
		}
		return nil, s.storageError(ctx, "get product", err)
	}

	cart, products, err := s.mutate(ctx, "add item", nil, func(c *domain.Cart, products map[string]domain.Product) (bool, error) {
		if _, ok := products[productID]; !ok {
			return false, domain.NotFound("product %s not found", productID)
		}
		if line, ok := c.Line(productID); ok && line.Quantity+quantity > MaxLineQuantity {
			return false, domain.InvalidArgument("quantity for product %s would exceed %d", productID, MaxLineQuantity)
		}
		c.Add(productID, quantity, s.now())
		return true, nil
	}, productID)
	if err != nil {
		return nil, err
	}
	return domain.NewCartView(cart, products), nil
}

// RemoveItem drops the line for productID. Removing an absent line is a
// no-op; the product itself does not have to exist.
func (s *CartService) RemoveItem(ctx context.Context, productID string) (*domain.CartView, error) {
	if err := domain.ValidateProductID(productID); err != nil {
		return nil, err
	}

	cart, products, err := s.mutate(ctx, "remove item", domain.NotFound("cart not found"), func(c *domain.Cart, _ map[string]domain.Product) (bool, error) {
		return c.Remove(productID), nil
	})
	if err != nil {
		return nil, err
	}
	return domain.NewCartView(cart, products), nil
}

// UpdateQuantity sets the line for productID to exactly quantity. A
// quantity of zero or less removes the line in the same write.
func (s *CartService) UpdateQuantity(ctx context.Context, productID string, quantity int) (*domain.CartView, error) {
	if err := domain.ValidateProductID(productID); err != nil {
		return nil, err
	}
	if quantity > MaxLineQuantity {
		return nil, domain.InvalidArgument("quantity must be at most %d", MaxLineQuantity)
	}

	cart, products, err := s.mutate(ctx, "update quantity", domain.NotFound("cart not found"), func(c *domain.Cart, _ map[string]domain.Product) (bool, error) {
		if c.SetQuantity(productID, quantity) {
			return true, nil
		}
		if quantity <= 0 {
			return false, nil
		}
		return false, domain.NotFound("product %s is not in the cart", productID)
	})
	if err != nil {
		return nil, err
	}
	return domain.NewCartView(cart, products), nil
}

// Checkout snapshots the cart into a receipt and clears it in one
// conditional write. The receipt is only returned once that write commits.
func (s *CartService) Checkout(ctx context.Context, customer *domain.Customer) (*domain.Receipt, error) {
	customer, err := customer.Normalize()
	if err != nil {
		return nil, err
	}

	var (
		receipt domain.Receipt
		pending int
	)
	_, _, err = s.mutate(ctx, "checkout", domain.ErrEmptyCart, func(c *domain.Cart, products map[string]domain.Product) (bool, error) {
		r := BuildReceipt(s.newID(), c.Lines, products, customer, s.now())
		if len(r.Items) == 0 {
			return false, domain.ErrEmptyCart
		}

		c.Clear()
		if s.outbox {
			c.Outbox = append(c.Outbox, r.Clone())
		}
		receipt, pending = r, len(c.Outbox)
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("checkout completed",
		zap.String("receipt_id", receipt.ID),
		zap.Int("items", len(receipt.Items)),
		zap.Float64("total", receipt.Total))
	if s.outbox && pending > s.outboxWarnAt {
		s.log.Warn("receipt outbox backlog growing, is the publisher running?",
			zap.Int("pending", pending),
			zap.Int("threshold", s.outboxWarnAt))
	}
	return &receipt, nil
}

// PendingReceipts returns receipts committed to the outbox and not yet
// acknowledged, oldest first.
func (s *CartService) PendingReceipts(ctx context.Context) ([]domain.Receipt, error) {
	cart, err := s.repo.GetCart(ctx, s.cartID)
	if errors.Is(err, repository.ErrCartNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, s.storageError(ctx, "load outbox", err)
	}
	return cart.Clone().Outbox, nil
}

// AckReceipts removes published receipts from the outbox.
func (s *CartService) AckReceipts(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	errNoCart := errors.New("no cart")
	_, _, err := s.mutate(ctx, "ack receipts", errNoCart, func(c *domain.Cart, _ map[string]domain.Product) (bool, error) {
		return c.RemoveReceipts(ids) > 0, nil
	})
	if errors.Is(err, errNoCart) {
		return nil
	}
	return err
}

// applyFunc changes c in place and reports whether it changed anything.
// products holds the current catalog entry for every line in c.
type applyFunc func(c *domain.Cart, products map[string]domain.Product) (bool, error)

// mutate runs load, apply and a conditional save as one unit, retrying it
// with exponential backoff while the save hits a version conflict. When
// missing is nil the cart is created if absent; otherwise an absent cart
// fails with missing. Lines whose product no longer resolves are pruned
// before apply runs. extraIDs are resolved along with the cart's products.
func (s *CartService) mutate(ctx context.Context, op string, missing error, apply applyFunc, extraIDs ...string) (*domain.Cart, map[string]domain.Product, error) {
	var (
		result   *domain.Cart
		products map[string]domain.Product
		written  bool
	)

	operation := func() error {
		current, err := s.load(ctx, missing)
		if err != nil {
			return backoff.Permanent(err)
		}

		prods, err := s.catalog.GetProducts(ctx, append(current.ProductIDs(), extraIDs...))
		if err != nil {
			return backoff.Permanent(s.storageError(ctx, "resolve products", err))
		}

		next := current.Clone()
		pruned := next.Prune(prods)
		changed, err := apply(next, prods)
		if err != nil {
			return backoff.Permanent(err)
		}

		if !changed && pruned == 0 {
			result, products, written = current, prods, false
			return nil
		}

		next.WriteID = s.newID()
		if pruned > 0 {
			s.log.Info("pruned lines for missing products", zap.Int("count", pruned))
		}

		if err := s.save(ctx, next, current.Version); err != nil {
			if errors.Is(err, repository.ErrVersionConflict) {
				return err
			}
			return backoff.Permanent(s.storageError(ctx, op, err))
		}

		result, products, written = next, prods, true
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 5 * time.Millisecond
	b.MaxInterval = 100 * time.Millisecond
	b.MaxElapsedTime = s.lockTimeout

	notify := func(err error, wait time.Duration) {
		s.log.Debug("cart version conflict, retrying",
			zap.String("op", op),
			zap.Duration("wait", wait))
	}

	if err := backoff.RetryNotify(operation, backoff.WithContext(b, ctx), notify); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			s.log.Warn("cart mutation gave up after conflicts",
				zap.String("op", op),
				zap.Duration("lock_timeout", s.lockTimeout))
			return nil, nil, fmt.Errorf("%w: %s", domain.ErrBusy, op)
		}
		return nil, nil, err
	}

	if written {
		s.noteCommitted(result.Version)
		s.writeThrough(result)
		// readers arriving after this point must not join a load that
		// started before the write
		s.sfg.Forget(s.cartID)
	}
	return result, products, nil
}

func (s *CartService) load(ctx context.Context, missing error) (*domain.Cart, error) {
	if missing == nil {
		cart, err := s.repo.GetOrCreateCart(ctx, s.cartID)
		if err != nil {
			return nil, s.storageError(ctx, "load cart", err)
		}
		return cart, nil
	}

	cart, err := s.repo.GetCart(ctx, s.cartID)
	if errors.Is(err, repository.ErrCartNotFound) {
		return nil, missing
	}
	if err != nil {
		return nil, s.storageError(ctx, "load cart", err)
	}
	return cart, nil
}

// save commits next even if the caller goes away mid-request, so a
// disconnect cannot leave the outcome of the write undecided on our side.
// When the save itself times out the store is read back, since the write
// may have been applied before the deadline.
func (s *CartService) save(ctx context.Context, next *domain.Cart, expectedVersion int64) error {
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.saveTimeout)
	defer cancel()

	err := s.repo.SaveIfVersion(saveCtx, next, expectedVersion)
	if err == nil || saveCtx.Err() == nil {
		return err
	}
	if s.landed(ctx, next, expectedVersion) {
		s.log.Warn("cart save timed out but the write was applied",
			zap.Int64("version", next.Version))
		return nil
	}
	return err
}

// landed reports whether the stored cart is exactly the write of next,
// identified by its write id.
func (s *CartService) landed(ctx context.Context, next *domain.Cart, expectedVersion int64) bool {
	checkCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.saveTimeout)
	defer cancel()

	stored, err := s.repo.GetCart(checkCtx, next.ID)
	if err != nil {
		s.log.Warn("cannot verify timed out cart save", zap.Error(err))
		return false
	}
	if stored.Version != expectedVersion+1 || stored.WriteID == "" || stored.WriteID != next.WriteID {
		return false
	}
	next.Version = stored.Version
	next.UpdatedAt = stored.UpdatedAt
	return true
}

func (s *CartService) noteCommitted(version int64) {
	for {
		cur := s.committed.Load()
		if version <= cur || s.committed.CompareAndSwap(cur, version) {
			return
		}
	}
}

func (s *CartService) writeThrough(cart *domain.Cart) {
	ctx, cancel := context.WithTimeout(context.Background(), cacheTimeout)
	defer cancel()

	if err := s.cache.SetIfNewer(ctx, cart); err != nil {
		s.log.Warn("cache write-through failed, invalidating", zap.Error(err))
		if err := s.cache.Delete(ctx, cart.ID); err != nil {
			s.log.Error("cache invalidate failed", zap.Error(err))
		}
	}
}

// storageError keeps context errors as they are and wraps everything else
// as a storage failure.
func (s *CartService) storageError(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	s.log.Error("storage operation failed", zap.String("op", op), zap.Error(err))
	return domain.StorageFailure(op, err)
}

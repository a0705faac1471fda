package publisher

import (
	"context"
	"testing"

	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/repository"
	"github.com/fjod/storefront/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type staticCatalog map[string]domain.Product

func (c staticCatalog) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	p, ok := c[id]
	if !ok {
		return nil, domain.NotFound("product %s not found", id)
	}
	return &p, nil
}

func (c staticCatalog) GetProducts(_ context.Context, ids []string) (map[string]domain.Product, error) {
	out := map[string]domain.Product{}
	for _, id := range ids {
		if p, ok := c[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func TestOutboxPoller_WithCartService(t *testing.T) {
	catalog := staticCatalog{"p1": {ID: "p1", Name: "Notebook", Price: 6.99}}
	svc := service.NewCartService(repository.NewMemoryRepository(), nil, catalog, service.Options{ReceiptOutbox: true})
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "p1", 3)
	require.NoError(t, err)
	r, err := svc.Checkout(ctx, nil)
	require.NoError(t, err)

	writer := &fakeWriter{}
	poller := NewOutboxPoller(svc, writer, zap.NewNop())
	assert.Equal(t, 1, poller.processPendingReceipts(ctx))

	require.Len(t, writer.messages, 1)
	assert.Equal(t, r.ID, string(writer.messages[0].Key))

	pending, err := svc.PendingReceipts(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

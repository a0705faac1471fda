package catalog

import (
	"context"
	"testing"

	"github.com/fjod/storefront/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *SQLRepository {
	repo, err := NewSQLRepository(DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	require.NoError(t, repo.RunMigrations())

	n, err := SeedIfEmpty(context.Background(), repo, SampleProducts())
	require.NoError(t, err)
	require.Equal(t, 10, n)

	return repo
}

func ptr(f float64) *float64 { return &f }

func names(products []domain.Product) []string {
	out := make([]string, len(products))
	for i, p := range products {
		out[i] = p.Name
	}
	return out
}

func TestRunMigrations_Idempotent(t *testing.T) {
	repo := setupTestDB(t)
	assert.NoError(t, repo.RunMigrations())
}

func TestNewSQLRepository_UnknownDriver(t *testing.T) {
	_, err := NewSQLRepository("mysql", "")
	assert.ErrorIs(t, err, errUnknownDriver)
}

func TestListProducts_DefaultSortByName(t *testing.T) {
	repo := setupTestDB(t)

	products, err := repo.ListProducts(context.Background(), Filter{})
	require.NoError(t, err)
	require.Len(t, products, 10)
	assert.Equal(t, "Classic Watch", products[0].Name)
	assert.Equal(t, "Wireless Headphones", products[9].Name)
	assert.False(t, products[0].CreatedAt.IsZero())
}

func TestListProducts_Filters(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{
			name:   "category",
			filter: Filter{Category: "footwear"},
			want:   []string{"Running Shoes"},
		},
		{
			name:   "search is case-insensitive over name and description",
			filter: Filter{Search: "WIRELESS"},
			want:   []string{"Wireless Earbuds", "Wireless Headphones"},
		},
		{
			name:   "search matches description",
			filter: Filter{Search: "rfid"},
			want:   []string{"Premium Leather Wallet"},
		},
		{
			name:   "search treats wildcards literally",
			filter: Filter{Search: "%"},
			want:   []string{},
		},
		{
			name:   "price range is inclusive",
			filter: Filter{MinPrice: ptr(129.99), MaxPrice: ptr(199.99), Sort: SortPrice},
			want:   []string{"Running Shoes", "Sunglasses", "Wireless Earbuds", "Wireless Headphones", "Classic Watch"},
		},
		{
			name:   "price descending",
			filter: Filter{Category: "electronics", Sort: SortPrice, Order: OrderDesc},
			want:   []string{"Smartphone", "Smart Watch", "Wireless Headphones", "Wireless Earbuds", "Gaming Mouse"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			products, err := repo.ListProducts(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, names(products))
		})
	}
}

func TestListProducts_InvalidFilter(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	_, err := repo.ListProducts(ctx, Filter{Sort: "price; DROP TABLE products"})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = repo.ListProducts(ctx, Filter{Order: "sideways"})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = repo.ListProducts(ctx, Filter{MinPrice: ptr(10), MaxPrice: ptr(5)})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestCategories(t *testing.T) {
	repo := setupTestDB(t)

	categories, err := repo.Categories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"accessories", "electronics", "footwear"}, categories)
}

func TestGetProduct(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	p, err := repo.GetProduct(ctx, "507f1f77bcf86cd799439011")
	require.NoError(t, err)
	assert.Equal(t, "Wireless Headphones", p.Name)
	assert.InDelta(t, 199.99, p.Price, 1e-9)

	_, err = repo.GetProduct(ctx, "missing")
	assert.ErrorIs(t, err, ErrProductNotFound)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGetProducts_OmitsMissing(t *testing.T) {
	repo := setupTestDB(t)

	products, err := repo.GetProducts(context.Background(),
		[]string{"507f1f77bcf86cd799439011", "missing", "507f1f77bcf86cd799439013"})
	require.NoError(t, err)
	assert.Len(t, products, 2)
	assert.Equal(t, "Premium Leather Wallet", products["507f1f77bcf86cd799439013"].Name)

	empty, err := repo.GetProducts(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestCreateProduct(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	p := &domain.Product{
		Name:        "Desk Lamp",
		Price:       24.5,
		Description: "LED desk lamp",
		Image:       "https://example.com/lamp.jpg",
		Category:    "home",
	}
	require.NoError(t, repo.CreateProduct(ctx, p))
	assert.NotEmpty(t, p.ID)
	assert.False(t, p.CreatedAt.IsZero())

	stored, err := repo.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Desk Lamp", stored.Name)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 11, count)

	dup := *p
	assert.ErrorIs(t, repo.CreateProduct(ctx, &dup), ErrProductExists)

	assert.ErrorIs(t, repo.CreateProduct(ctx, &domain.Product{Name: "No price fields"}), domain.ErrInvalidArgument)
}

func TestSeedIfEmpty_SkipsNonEmptyCatalog(t *testing.T) {
	repo := setupTestDB(t)

	n, err := SeedIfEmpty(context.Background(), repo, SampleProducts())
	require.NoError(t, err)
	assert.Zero(t, n)
}

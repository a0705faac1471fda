package catalog

import (
	"context"
	"fmt"

	"github.com/fjod/storefront/internal/domain"
)

// SampleProducts is the built-in catalog used by `storefront seed`.
func SampleProducts() []domain.Product {
	return []domain.Product{
		{
			ID:          "507f1f77bcf86cd799439011",
			Name:        "Wireless Headphones",
			Price:       199.99,
			Description: "Premium noise-cancelling wireless headphones with 30-hour battery life",
			Category:    "electronics",
			Image:       "https://images.unsplash.com/photo-1505740420928-5e560c06d30e?auto=format&fit=crop&w=800&h=800",
		},
		{
			ID:          "507f1f77bcf86cd799439012",
			Name:        "Smart Watch",
			Price:       299.99,
			Description: "Advanced smartwatch with health monitoring and GPS",
			Category:    "electronics",
			Image:       "https://images.unsplash.com/photo-1546868871-7041f2a55e12?auto=format&fit=crop&w=800&h=800",
		},
		{
			ID:          "507f1f77bcf86cd799439013",
			Name:        "Premium Leather Wallet",
			Price:       49.99,
			Description: "Handcrafted genuine leather wallet with RFID protection",
			Category:    "accessories",
			Image:       "https://images.unsplash.com/photo-1627123424574-724758594e93?auto=format&fit=crop&w=800&h=800",
		},
		{
			ID:          "507f1f77bcf86cd799439014",
			Name:        "Running Shoes",
			Price:       129.99,
			Description: "Lightweight performance running shoes with responsive cushioning",
			Category:    "footwear",
			Image:       "https://images.unsplash.com/photo-1542291026-7eec264c27ff?auto=format&fit=crop&w=800&h=800",
		},
		{
			ID:          "507f1f77bcf86cd799439015",
			Name:        "Smartphone",
			Price:       799.99,
			Description: "5G smartphone with pro-grade camera system",
			Category:    "electronics",
			Image:       "https://images.unsplash.com/photo-1511707171634-5f897ff02aa9?auto=format&fit=crop&w=800&h=800",
		},
		{
			ID:          "507f1f77bcf86cd799439016",
			Name:        "Classic Watch",
			Price:       199.99,
			Description: "Timeless analog watch with genuine leather strap",
			Category:    "accessories",
			Image:       "https://images.unsplash.com/photo-1523275335684-37898b6baf30?auto=format&fit=crop&w=800&h=800",
		},
		{
			ID:          "507f1f77bcf86cd799439017",
			Name:        "Laptop Backpack",
			Price:       79.99,
			Description: "Water-resistant laptop backpack with anti-theft features",
			Category:    "accessories",
			Image:       "https://images.unsplash.com/photo-1553062407-98eeb64c6a62?auto=format&fit=crop&w=800&h=800",
		},
		{
			ID:          "507f1f77bcf86cd799439018",
			Name:        "Wireless Earbuds",
			Price:       159.99,
			Description: "True wireless earbuds with active noise cancellation",
			Category:    "electronics",
			Image:       "https://images.unsplash.com/photo-1588423771073-b8903fbb85b5?auto=format&fit=crop&w=800&h=800",
		},
		{
			ID:          "507f1f77bcf86cd799439019",
			Name:        "Sunglasses",
			Price:       129.99,
			Description: "Polarized sunglasses with UV protection",
			Category:    "accessories",
			Image:       "https://images.unsplash.com/photo-1572635196237-14b3f281503f?auto=format&fit=crop&w=800&h=800",
		},
		{
			ID:          "507f1f77bcf86cd799439020",
			Name:        "Gaming Mouse",
			Price:       69.99,
			Description: "High-precision gaming mouse with RGB lighting",
			Category:    "electronics",
			Image:       "https://images.unsplash.com/photo-1527814050087-3793815479db?auto=format&fit=crop&w=800&h=800",
		},
	}
}

// SeedIfEmpty inserts products when the catalog has none and reports how
// many were inserted. A non-empty catalog is left as is.
func SeedIfEmpty(ctx context.Context, repo Repository, products []domain.Product) (int, error) {
	count, err := repo.Count(ctx)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		return 0, nil
	}

	for i := range products {
		p := products[i]
		if err := repo.CreateProduct(ctx, &p); err != nil {
			return i, fmt.Errorf("seed product %q: %w", p.Name, err)
		}
	}
	return len(products), nil
}

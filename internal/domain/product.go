package domain

import (
	"strings"
	"time"
)

const maxProductIDLength = 64

type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Price       float64   `json:"price"`
	Description string    `json:"description"`
	Image       string    `json:"image"`
	Category    string    `json:"category"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ValidateProductID checks that id is a well-formed product reference:
// 1 to 64 characters drawn from letters, digits, '-' and '_'.
func ValidateProductID(id string) error {
	if id == "" {
		return InvalidArgument("productId is required")
	}
	if len(id) > maxProductIDLength {
		return InvalidArgument("productId must be at most %d characters", maxProductIDLength)
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return InvalidArgument("productId %q contains invalid character %q", id, r)
		}
	}
	return nil
}

// Validate enforces the catalog schema for a new product. The id may be
// empty, in which case the catalog assigns one.
func (p *Product) Validate() error {
	if p.ID != "" {
		if err := ValidateProductID(p.ID); err != nil {
			return err
		}
	}
	if strings.TrimSpace(p.Name) == "" {
		return InvalidArgument("name is required")
	}
	if p.Price < 0 {
		return InvalidArgument("price must not be negative")
	}
	if strings.TrimSpace(p.Description) == "" {
		return InvalidArgument("description is required")
	}
	if strings.TrimSpace(p.Image) == "" {
		return InvalidArgument("image is required")
	}
	if strings.TrimSpace(p.Category) == "" {
		return InvalidArgument("category is required")
	}
	return nil
}

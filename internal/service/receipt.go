package service

import (
	"time"

	"github.com/fjod/storefront/internal/domain"
)

// BuildReceipt snapshots lines at the given prices. Lines whose product is
// missing from products are skipped. The receipt copies every value it
// needs, so later changes to the cart or the catalog do not reach it.
func BuildReceipt(id string, lines []domain.CartLine, products map[string]domain.Product, customer *domain.Customer, now time.Time) domain.Receipt {
	receipt := domain.Receipt{
		ID:        id,
		Items:     make([]domain.ReceiptItem, 0, len(lines)),
		Timestamp: now,
	}
	if customer != nil {
		c := *customer
		receipt.Customer = &c
	}

	var total float64
	for _, line := range lines {
		p, ok := products[line.ProductID]
		if !ok {
			continue
		}

		subtotal := domain.Subtotal(line.Quantity, p.Price)
		receipt.Items = append(receipt.Items, domain.ReceiptItem{
			ProductID: p.ID,
			Product:   p.Name,
			Quantity:  line.Quantity,
			Price:     p.Price,
			Subtotal:  subtotal,
		})

		total += subtotal
	}

	receipt.Total = total
	return receipt
}

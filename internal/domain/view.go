package domain

import "time"

// CartView is the cart as returned to clients: lines joined with their
// products and a total computed from current prices.
type CartView struct {
	ID        string         `json:"id"`
	Items     []CartViewItem `json:"items"`
	Total     float64        `json:"total"`
	Version   int64          `json:"version"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

type CartViewItem struct {
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
	Subtotal float64 `json:"subtotal"`
}

// NewCartView resolves c against products. Lines whose product cannot be
// resolved are left out of both the items and the total.
func NewCartView(c *Cart, products map[string]Product) *CartView {
	view := &CartView{
		ID:        c.ID,
		Items:     make([]CartViewItem, 0, len(c.Lines)),
		Version:   c.Version,
		UpdatedAt: c.UpdatedAt,
	}
	for _, l := range c.Lines {
		p, ok := products[l.ProductID]
		if !ok {
			continue
		}
		view.Items = append(view.Items, CartViewItem{
			Product:  p,
			Quantity: l.Quantity,
			Subtotal: Subtotal(l.Quantity, p.Price),
		})
	}
	view.Total = Total(c.Lines, products)
	return view
}

package domain

import "time"

// SharedCartID identifies the single cart every request operates on.
const SharedCartID = "shared"

// Cart is the stored aggregate. It holds product references and quantities
// only; prices are resolved from the catalog whenever a total is needed.
//
// Version increases by one on every committed write and is the token the
// repository compares before accepting a new state.
type Cart struct {
	ID        string     `bson:"_id" json:"id"`
	Lines     []CartLine `bson:"lines" json:"lines"`
	Outbox    []Receipt  `bson:"outbox" json:"outbox,omitempty"`
	Version   int64      `bson:"version" json:"version"`
	CreatedAt time.Time  `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time  `bson:"updated_at" json:"updatedAt"`
	// WriteID identifies the save that produced this state.
	WriteID string `bson:"write_id,omitempty" json:"-"`
}

type CartLine struct {
	ProductID string    `bson:"product_id" json:"productId"`
	Quantity  int       `bson:"quantity" json:"quantity"`
	AddedAt   time.Time `bson:"added_at" json:"addedAt"`
}

func NewCart(id string, now time.Time) *Cart {
	return &Cart{
		ID:        id,
		Lines:     []CartLine{},
		Outbox:    []Receipt{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Clone returns a deep copy that shares no slices with c.
func (c *Cart) Clone() *Cart {
	out := *c
	out.Lines = append(make([]CartLine, 0, len(c.Lines)), c.Lines...)
	out.Outbox = make([]Receipt, 0, len(c.Outbox))
	for _, r := range c.Outbox {
		out.Outbox = append(out.Outbox, r.Clone())
	}
	return &out
}

func (c *Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

func (c *Cart) indexOf(productID string) int {
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// Line returns the line for productID, if present.
func (c *Cart) Line(productID string) (CartLine, bool) {
	if i := c.indexOf(productID); i >= 0 {
		return c.Lines[i], true
	}
	return CartLine{}, false
}

// Add increments the quantity of an existing line or appends a new one.
// quantity must be positive; the service validates it before calling.
func (c *Cart) Add(productID string, quantity int, now time.Time) {
	if i := c.indexOf(productID); i >= 0 {
		c.Lines[i].Quantity += quantity
		return
	}
	c.Lines = append(c.Lines, CartLine{ProductID: productID, Quantity: quantity, AddedAt: now})
}

// SetQuantity sets an existing line to exactly quantity. A quantity of zero
// or less removes the line. It reports whether a line for productID existed.
func (c *Cart) SetQuantity(productID string, quantity int) bool {
	i := c.indexOf(productID)
	if i < 0 {
		return false
	}
	if quantity <= 0 {
		c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
		return true
	}
	c.Lines[i].Quantity = quantity
	return true
}

// Remove deletes the line for productID and reports whether one existed.
func (c *Cart) Remove(productID string) bool {
	i := c.indexOf(productID)
	if i < 0 {
		return false
	}
	c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
	return true
}

func (c *Cart) Clear() {
	c.Lines = []CartLine{}
}

func (c *Cart) ProductIDs() []string {
	ids := make([]string, 0, len(c.Lines))
	for _, l := range c.Lines {
		ids = append(ids, l.ProductID)
	}
	return ids
}

// Prune drops lines whose product is missing from products and returns how
// many were dropped.
func (c *Cart) Prune(products map[string]Product) int {
	kept := c.Lines[:0]
	for _, l := range c.Lines {
		if _, ok := products[l.ProductID]; ok {
			kept = append(kept, l)
		}
	}
	dropped := len(c.Lines) - len(kept)
	c.Lines = kept
	return dropped
}

// RemoveReceipts drops outbox entries whose id is in ids and returns how
// many were dropped.
func (c *Cart) RemoveReceipts(ids []string) int {
	ack := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		ack[id] = struct{}{}
	}
	kept := c.Outbox[:0]
	for _, r := range c.Outbox {
		if _, ok := ack[r.ID]; !ok {
			kept = append(kept, r)
		}
	}
	dropped := len(c.Outbox) - len(kept)
	c.Outbox = kept
	return dropped
}

// Subtotal is quantity times unit price.
func Subtotal(quantity int, price float64) float64 {
	return float64(quantity) * price
}

// Total sums line subtotals against the given prices in line order. Lines
// without a resolved product contribute nothing.
func Total(lines []CartLine, products map[string]Product) float64 {
	var total float64
	for _, l := range lines {
		if p, ok := products[l.ProductID]; ok {
			total += Subtotal(l.Quantity, p.Price)
		}
	}
	return total
}

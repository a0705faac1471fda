package domain

import (
	"net/mail"
	"strings"
	"time"
)

// ReceiptItem captures a cart line with the name and price it had at
// checkout time.
type ReceiptItem struct {
	ProductID string  `bson:"product_id" json:"productId"`
	Product   string  `bson:"product" json:"product"`
	Quantity  int     `bson:"quantity" json:"quantity"`
	Price     float64 `bson:"price" json:"price"`
	Subtotal  float64 `bson:"subtotal" json:"subtotal"`
}

// Receipt is the value snapshot returned by a successful checkout.
type Receipt struct {
	ID        string        `bson:"id" json:"id"`
	Items     []ReceiptItem `bson:"items" json:"items"`
	Total     float64       `bson:"total" json:"total"`
	Customer  *Customer     `bson:"customer,omitempty" json:"customer,omitempty"`
	Timestamp time.Time     `bson:"timestamp" json:"timestamp"`
}

type Customer struct {
	Name  string `bson:"name" json:"name"`
	Email string `bson:"email" json:"email"`
}

func (r Receipt) Clone() Receipt {
	out := r
	out.Items = append(make([]ReceiptItem, 0, len(r.Items)), r.Items...)
	if r.Customer != nil {
		c := *r.Customer
		out.Customer = &c
	}
	return out
}

// Normalize trims the customer fields and validates the email when one is
// given. A customer with no name and no email normalizes to nil.
func (c *Customer) Normalize() (*Customer, error) {
	if c == nil {
		return nil, nil
	}
	out := Customer{Name: strings.TrimSpace(c.Name), Email: strings.TrimSpace(c.Email)}
	if out.Name == "" && out.Email == "" {
		return nil, nil
	}
	if out.Email != "" {
		if _, err := mail.ParseAddress(out.Email); err != nil {
			return nil, InvalidArgument("customer email %q is not a valid address", out.Email)
		}
	}
	return &out, nil
}

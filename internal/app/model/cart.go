package model

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// LineKey identifies a cart line. A cart holds at most one line per key.
type LineKey struct {
	ProductID string
	Size      string
}

func (k LineKey) String() string {
	return fmt.Sprintf("%s/%s", k.ProductID, k.Size)
}

// CartLine is one (product, size) entry of a cart.
type CartLine struct {
	Product  ProductSnapshot `json:"product"`
	Size     string          `json:"size"`
	Quantity int             `json:"quantity"`
	MaxStock int             `json:"maxStock"`
}

func (l CartLine) Key() LineKey {
	return LineKey{ProductID: l.Product.ID, Size: l.Size}
}

// Subtotal is unit price times quantity, using the price captured at add time.
func (l CartLine) Subtotal() decimal.Decimal {
	return l.Product.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// OverLimit reports a line whose quantity exceeds the last known stock.
func (l CartLine) OverLimit() bool {
	return l.Quantity > l.MaxStock
}

// CartSnapshot is the ordered list of lines; it is the unit of persistence.
type CartSnapshot []CartLine

// Clone returns a deep enough copy that callers cannot mutate store state.
func (s CartSnapshot) Clone() CartSnapshot {
	if s == nil {
		return CartSnapshot{}
	}
	out := make(CartSnapshot, len(s))
	for i, line := range s {
		line.Product.Images = append([]string(nil), line.Product.Images...)
		line.Product.Sizes = append([]SizeStock(nil), line.Product.Sizes...)
		out[i] = line
	}
	return out
}

func (s CartSnapshot) Total() decimal.Decimal {
	total := decimal.Zero
	for _, line := range s {
		total = total.Add(line.Subtotal())
	}
	return total
}

func (s CartSnapshot) ItemCount() int {
	count := 0
	for _, line := range s {
		count += line.Quantity
	}
	return count
}

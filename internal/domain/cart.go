package domain

import (
	"maps"

	"github.com/shopspring/decimal"
)

// CartLine is one distinct purchasable configuration in a cart. Product is a
// snapshot of the catalog entry as it was when the line was added.
type CartLine struct {
	ID        string            `json:"id,omitempty"`
	Product   Product           `json:"product"`
	Quantity  int               `json:"quantity"`
	Variation map[string]string `json:"selected_variation,omitempty"`
	Weight    *float64          `json:"selected_weight,omitempty"`
}

func (l CartLine) ProductID() ProductID {
	return l.Product.ID
}

// LineTotal is unit price times quantity.
func (l CartLine) LineTotal() decimal.Decimal {
	return l.Product.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

func (l CartLine) Clone() CartLine {
	c := l
	c.Product = l.Product.Clone()
	c.Variation = CloneVariation(l.Variation)
	c.Weight = CloneWeight(l.Weight)
	return c
}

type WishlistEntry struct {
	Product Product `json:"product"`
}

func (e WishlistEntry) ProductID() ProductID {
	return e.Product.ID
}

func (e WishlistEntry) Clone() WishlistEntry {
	return WishlistEntry{Product: e.Product.Clone()}
}

func CloneWishlist(entries []WishlistEntry) []WishlistEntry {
	if entries == nil {
		return nil
	}
	out := make([]WishlistEntry, len(entries))
	for i, e := range entries {
		out[i] = e.Clone()
	}
	return out
}

// CloneVariation copies a selection map. An empty selection is the same as no
// selection and comes back as nil.
func CloneVariation(v map[string]string) map[string]string {
	if len(v) == 0 {
		return nil
	}
	return maps.Clone(v)
}

func CloneWeight(w *float64) *float64 {
	if w == nil {
		return nil
	}
	v := *w
	return &v
}

func CloneLines(lines []CartLine) []CartLine {
	if lines == nil {
		return nil
	}
	out := make([]CartLine, len(lines))
	for i, l := range lines {
		out[i] = l.Clone()
	}
	return out
}

// Subtotal sums price times quantity over lines.
func Subtotal(lines []CartLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.LineTotal())
	}
	return total
}

// ItemCount sums quantities over lines.
func ItemCount(lines []CartLine) int {
	n := 0
	for _, l := range lines {
		n += l.Quantity
	}
	return n
}

// Weight is a convenience for building an optional weight.
func Weight(w float64) *float64 {
	return &w
}

// Package matcher decides whether two cart additions describe the same
// configured product. Everything here is pure.
package matcher

import (
	"encoding/json"
	"strconv"

	"github.com/mosaicgrove/storefront/internal/domain"
)

// SameVariation reports whether two selections are equal as sets of
// key/value pairs. A nil and an empty selection are both "absent".
func SameVariation(a, b map[string]string) bool {
	if len(a) == 0 && len(b) == 0 {
		return true
	}
	if len(a) != len(b) {
		return false
	}
	for k, va := range a {
		vb, ok := b[k]
		if !ok || va != vb {
			return false
		}
	}
	return true
}

// SameWeight is strict equality where absent is its own value, distinct from 0.
func SameWeight(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func SameConfiguration(a, b domain.CartLine) bool {
	return Matches(a, b.ProductID(), b.Variation, b.Weight)
}

// Matches reports whether line has the given configuration.
func Matches(line domain.CartLine, id domain.ProductID, variation map[string]string, weight *float64) bool {
	return domain.CanonicalID(line.ProductID()) == domain.CanonicalID(id) &&
		SameVariation(line.Variation, variation) &&
		SameWeight(line.Weight, weight)
}

// Key renders a selection as a stable string so remote stores can use it in a
// unique index. Two configurations have equal keys iff they match.
func Key(variation map[string]string, weight *float64) string {
	v := "{}"
	if len(variation) > 0 {
		// map keys are marshalled in sorted order
		b, _ := json.Marshal(variation)
		v = string(b)
	}
	w := "-"
	if weight != nil {
		w = strconv.FormatFloat(*weight, 'g', -1, 64)
	}
	return v + "|" + w
}

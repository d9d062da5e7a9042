package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrIncompleteSelection = errors.New("please select all options before adding to cart")
	ErrUnknownOption       = errors.New("selected option is not offered for this product")
	ErrUnknownWeight       = errors.New("selected weight is not offered for this product")
)

// ProductID is the canonical string form of a product identifier. Catalog
// rows carry numeric ids while persisted cart rows carry strings, so every
// id entering the domain goes through CanonicalID.
type ProductID string

// CanonicalID normalizes numeric and string identifiers to one form:
// 7, int64(7), 7.0 and "7" all become "7".
func CanonicalID(v any) ProductID {
	switch id := v.(type) {
	case ProductID:
		return id
	case string:
		return ProductID(strings.TrimSpace(id))
	case int:
		return ProductID(strconv.Itoa(id))
	case int32:
		return ProductID(strconv.FormatInt(int64(id), 10))
	case int64:
		return ProductID(strconv.FormatInt(id, 10))
	case uint:
		return ProductID(strconv.FormatUint(uint64(id), 10))
	case uint64:
		return ProductID(strconv.FormatUint(id, 10))
	case float64:
		if id == math.Trunc(id) && math.Abs(id) < 1<<63 {
			return ProductID(strconv.FormatInt(int64(id), 10))
		}
		return ProductID(strconv.FormatFloat(id, 'f', -1, 64))
	case json.Number:
		if n, err := id.Int64(); err == nil {
			return CanonicalID(n)
		}
		// integers past int64 keep their digits; 7.0 and 7e0 collapse to 7
		if strings.ContainsAny(id.String(), ".eE") {
			if f, err := id.Float64(); err == nil {
				return CanonicalID(f)
			}
		}
		return CanonicalID(id.String())
	case fmt.Stringer:
		return ProductID(id.String())
	case nil:
		return ""
	default:
		return ProductID(fmt.Sprint(id))
	}
}

func (id ProductID) String() string {
	return string(id)
}

// UnmarshalJSON accepts both `"12"` and `12`.
func (id *ProductID) UnmarshalJSON(b []byte) error {
	var raw any
	dec := json.NewDecoder(strings.NewReader(string(b)))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("invalid product id: %w", err)
	}
	*id = CanonicalID(raw)
	return nil
}

type VariationGroup struct {
	Name    string   `json:"name"`
	Options []string `json:"options"`
}

type Product struct {
	ID             ProductID        `json:"id"`
	Name           string           `json:"name"`
	Description    string           `json:"description,omitempty"`
	Price          decimal.Decimal  `json:"price"`
	ImageURL       string           `json:"image_url,omitempty"`
	CategoryID     string           `json:"category_id,omitempty"`
	InventoryCount int              `json:"inventory_count"`
	IsFeatured     bool             `json:"is_featured"`
	WeightOptions  []float64        `json:"weight_options,omitempty"`
	WeightUnit     string           `json:"weight_unit,omitempty"`
	Variations     []VariationGroup `json:"variations,omitempty"`
}

// PriceForWeight scales the base price, which is quoted for the first weight
// option, to the selected weight. Products without weight options, or a nil
// weight, keep their base price.
func (p Product) PriceForWeight(weight *float64) decimal.Decimal {
	if weight == nil || len(p.WeightOptions) == 0 || p.WeightOptions[0] == 0 {
		return p.Price
	}
	ratio := decimal.NewFromFloat(*weight).Div(decimal.NewFromFloat(p.WeightOptions[0]))
	return p.Price.Mul(ratio).Round(2)
}

// ValidateSelection checks a configuration against what the product offers.
// Every declared variation group needs a chosen option.
func (p Product) ValidateSelection(variation map[string]string, weight *float64) error {
	for _, group := range p.Variations {
		chosen, ok := variation[group.Name]
		if !ok || chosen == "" {
			return fmt.Errorf("%w: %s", ErrIncompleteSelection, group.Name)
		}
		if len(group.Options) > 0 && !slices.Contains(group.Options, chosen) {
			return fmt.Errorf("%w: %s=%s", ErrUnknownOption, group.Name, chosen)
		}
	}
	if weight != nil && len(p.WeightOptions) > 0 && !slices.Contains(p.WeightOptions, *weight) {
		return fmt.Errorf("%w: %v", ErrUnknownWeight, *weight)
	}
	return nil
}

func (p Product) Clone() Product {
	c := p
	c.WeightOptions = slices.Clone(p.WeightOptions)
	if p.Variations != nil {
		c.Variations = make([]VariationGroup, len(p.Variations))
		for i, g := range p.Variations {
			c.Variations[i] = VariationGroup{Name: g.Name, Options: slices.Clone(g.Options)}
		}
	}
	return c
}

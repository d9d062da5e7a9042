package cart

import (
	"slices"

	"github.com/mosaicgrove/storefront/internal/domain"
	"github.com/mosaicgrove/storefront/internal/matcher"
)

// State is the in-memory cart and wishlist of one session.
type State struct {
	Lines    []domain.CartLine      `json:"lines"`
	Wishlist []domain.WishlistEntry `json:"wishlist"`
}

// Action is a named mutation. Reduce is the only place state changes.
type Action interface {
	isAction()
}

type SetCart struct{ Lines []domain.CartLine }

type SetWishlist struct{ Entries []domain.WishlistEntry }

// AddToCart carries a fully built line. When a line with the same
// configuration exists its quantity grows instead and Line.ID is unused.
type AddToCart struct{ Line domain.CartLine }

// RemoveFromCart removes the line with LineID, or every line of ProductID
// when LineID is empty.
type RemoveFromCart struct {
	ProductID domain.ProductID
	LineID    string
}

// UpdateQuantity sets an absolute quantity. Quantity <= 0 removes, exactly
// like RemoveFromCart with the same ProductID and LineID.
type UpdateQuantity struct {
	ProductID domain.ProductID
	Quantity  int
	LineID    string
	Variation map[string]string
	Weight    *float64
}

type ClearCart struct{}

type AddToWishlist struct{ Product domain.Product }

type RemoveFromWishlist struct{ ProductID domain.ProductID }

func (SetCart) isAction()            {}
func (SetWishlist) isAction()        {}
func (AddToCart) isAction()          {}
func (RemoveFromCart) isAction()     {}
func (UpdateQuantity) isAction()     {}
func (ClearCart) isAction()          {}
func (AddToWishlist) isAction()      {}
func (RemoveFromWishlist) isAction() {}

// Reduce returns the state after applying a. The input state is never
// modified, so a caller may keep handing out old snapshots.
func Reduce(s State, a Action) State {
	switch a := a.(type) {
	case SetCart:
		s.Lines = domain.CloneLines(a.Lines)

	case SetWishlist:
		s.Wishlist = domain.CloneWishlist(a.Entries)

	case AddToCart:
		lines := slices.Clone(s.Lines)
		if i := indexOfConfiguration(lines, a.Line); i >= 0 {
			lines[i].Quantity += a.Line.Quantity
		} else {
			lines = append(lines, a.Line.Clone())
		}
		s.Lines = lines

	case RemoveFromCart:
		s.Lines = removeLines(s.Lines, a.ProductID, a.LineID)

	case UpdateQuantity:
		if a.Quantity <= 0 {
			s.Lines = removeLines(s.Lines, a.ProductID, a.LineID)
			break
		}
		lines := slices.Clone(s.Lines)
		for i := range lines {
			if matchesTarget(lines[i], a.ProductID, a.LineID, a.Variation, a.Weight) {
				lines[i].Quantity = a.Quantity
			}
		}
		s.Lines = lines

	case ClearCart:
		s.Lines = nil

	case AddToWishlist:
		if indexOfWishlist(s.Wishlist, a.Product.ID) >= 0 {
			break
		}
		s.Wishlist = append(slices.Clone(s.Wishlist), domain.WishlistEntry{Product: a.Product.Clone()})

	case RemoveFromWishlist:
		s.Wishlist = slices.DeleteFunc(slices.Clone(s.Wishlist), func(e domain.WishlistEntry) bool {
			return domain.CanonicalID(e.ProductID()) == domain.CanonicalID(a.ProductID)
		})
	}
	return s
}

func indexOfConfiguration(lines []domain.CartLine, line domain.CartLine) int {
	return slices.IndexFunc(lines, func(l domain.CartLine) bool {
		return matcher.SameConfiguration(l, line)
	})
}

func indexOfWishlist(entries []domain.WishlistEntry, id domain.ProductID) int {
	return slices.IndexFunc(entries, func(e domain.WishlistEntry) bool {
		return domain.CanonicalID(e.ProductID()) == domain.CanonicalID(id)
	})
}

func removeLines(lines []domain.CartLine, productID domain.ProductID, lineID string) []domain.CartLine {
	return slices.DeleteFunc(slices.Clone(lines), func(l domain.CartLine) bool {
		if lineID != "" {
			return l.ID == lineID
		}
		return domain.CanonicalID(l.ProductID()) == domain.CanonicalID(productID)
	})
}

func matchesTarget(l domain.CartLine, productID domain.ProductID, lineID string, variation map[string]string, weight *float64) bool {
	if lineID != "" {
		return l.ID == lineID
	}
	return matcher.Matches(l, productID, variation, weight)
}

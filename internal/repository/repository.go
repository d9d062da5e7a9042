package repository

import (
	"context"

	"github.com/mosaicgrove/storefront/internal/domain"
)

// CartRepository is the remote persistence provider for cart lines and
// wishlist entries. Cart rows are keyed by user + product + configuration,
// wishlist rows by user + product. Deletes of missing rows are not errors.
type CartRepository interface {
	LoadCart(ctx context.Context, userID string) ([]domain.CartLine, error)
	LoadWishlist(ctx context.Context, userID string) ([]domain.WishlistEntry, error)
	// UpsertLine writes the line's absolute quantity. The line id is used as
	// the row id when the configuration has no row yet.
	UpsertLine(ctx context.Context, userID string, line domain.CartLine) error
	// DeleteLine removes the row holding the line's configuration. Row ids
	// can differ from local line ids when another session created the row.
	DeleteLine(ctx context.Context, userID string, line domain.CartLine) error
	DeleteProductLines(ctx context.Context, userID string, productID domain.ProductID) error
	DeleteCart(ctx context.Context, userID string) error
	AddWishlistEntry(ctx context.Context, userID string, entry domain.WishlistEntry) error
	RemoveWishlistEntry(ctx context.Context, userID string, productID domain.ProductID) error
}

package repository

import (
	"context"

	"github.com/mosaicgrove/storefront/internal/domain"
	"github.com/sony/gobreaker/v2"
)

// BreakerRepository guards a CartRepository with a circuit breaker so a dead
// backend fails remote writes fast instead of holding sync workers for the
// full timeout.
type BreakerRepository struct {
	next CartRepository
	cb   *gobreaker.CircuitBreaker[any]
}

func NewBreakerRepository(next CartRepository, cb *gobreaker.CircuitBreaker[any]) *BreakerRepository {
	return &BreakerRepository{next: next, cb: cb}
}

func (b *BreakerRepository) exec(fn func() error) error {
	_, err := b.cb.Execute(func() (any, error) {
		return nil, fn()
	})
	return err
}

func (b *BreakerRepository) LoadCart(ctx context.Context, userID string) ([]domain.CartLine, error) {
	v, err := b.cb.Execute(func() (any, error) {
		return b.next.LoadCart(ctx, userID)
	})
	if err != nil {
		return nil, err
	}
	lines, _ := v.([]domain.CartLine)
	return lines, nil
}

func (b *BreakerRepository) LoadWishlist(ctx context.Context, userID string) ([]domain.WishlistEntry, error) {
	v, err := b.cb.Execute(func() (any, error) {
		return b.next.LoadWishlist(ctx, userID)
	})
	if err != nil {
		return nil, err
	}
	entries, _ := v.([]domain.WishlistEntry)
	return entries, nil
}

func (b *BreakerRepository) UpsertLine(ctx context.Context, userID string, line domain.CartLine) error {
	return b.exec(func() error { return b.next.UpsertLine(ctx, userID, line) })
}

func (b *BreakerRepository) DeleteLine(ctx context.Context, userID string, line domain.CartLine) error {
	return b.exec(func() error { return b.next.DeleteLine(ctx, userID, line) })
}

func (b *BreakerRepository) DeleteProductLines(ctx context.Context, userID string, productID domain.ProductID) error {
	return b.exec(func() error { return b.next.DeleteProductLines(ctx, userID, productID) })
}

func (b *BreakerRepository) DeleteCart(ctx context.Context, userID string) error {
	return b.exec(func() error { return b.next.DeleteCart(ctx, userID) })
}

func (b *BreakerRepository) AddWishlistEntry(ctx context.Context, userID string, entry domain.WishlistEntry) error {
	return b.exec(func() error { return b.next.AddWishlistEntry(ctx, userID, entry) })
}

func (b *BreakerRepository) RemoveWishlistEntry(ctx context.Context, userID string, productID domain.ProductID) error {
	return b.exec(func() error { return b.next.RemoveWishlistEntry(ctx, userID, productID) })
}

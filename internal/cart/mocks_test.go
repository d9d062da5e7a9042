package cart

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/mosaicgrove/storefront/internal/domain"
	"github.com/mosaicgrove/storefront/internal/matcher"
)

var errRemoteDown = errors.New("remote down")

type mockRepository struct {
	m        sync.RWMutex
	lines    map[string][]domain.CartLine
	wishlist map[string][]domain.WishlistEntry
	calls    []string
	loadErr  error
	wishErr  error
	writeErr error
	loads    int
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		lines:    make(map[string][]domain.CartLine),
		wishlist: make(map[string][]domain.WishlistEntry),
	}
}

func (m *mockRepository) LoadCart(ctx context.Context, userID string) ([]domain.CartLine, error) {
	m.m.Lock()
	defer m.m.Unlock()
	m.loads++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return domain.CloneLines(m.lines[userID]), nil
}

func (m *mockRepository) LoadWishlist(_ context.Context, userID string) ([]domain.WishlistEntry, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.wishErr != nil {
		return nil, m.wishErr
	}
	return domain.CloneWishlist(m.wishlist[userID]), nil
}

func (m *mockRepository) UpsertLine(_ context.Context, userID string, line domain.CartLine) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.calls = append(m.calls, "upsert")
	if m.writeErr != nil {
		return m.writeErr
	}
	for i, l := range m.lines[userID] {
		if l.ID == line.ID || matcher.SameConfiguration(l, line) {
			kept := line.Clone()
			kept.ID = l.ID
			m.lines[userID][i] = kept
			return nil
		}
	}
	m.lines[userID] = append(m.lines[userID], line.Clone())
	return nil
}

func (m *mockRepository) DeleteLine(_ context.Context, userID string, line domain.CartLine) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.calls = append(m.calls, "delete_line")
	if m.writeErr != nil {
		return m.writeErr
	}
	m.lines[userID] = slices.DeleteFunc(m.lines[userID], func(l domain.CartLine) bool {
		return matcher.SameConfiguration(l, line)
	})
	return nil
}

func (m *mockRepository) DeleteProductLines(_ context.Context, userID string, productID domain.ProductID) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.calls = append(m.calls, "delete_product")
	if m.writeErr != nil {
		return m.writeErr
	}
	m.lines[userID] = slices.DeleteFunc(m.lines[userID], func(l domain.CartLine) bool {
		return l.ProductID() == productID
	})
	return nil
}

func (m *mockRepository) DeleteCart(_ context.Context, userID string) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.calls = append(m.calls, "delete_cart")
	if m.writeErr != nil {
		return m.writeErr
	}
	delete(m.lines, userID)
	return nil
}

func (m *mockRepository) AddWishlistEntry(_ context.Context, userID string, entry domain.WishlistEntry) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.calls = append(m.calls, "add_wishlist")
	if m.writeErr != nil {
		return m.writeErr
	}
	m.wishlist[userID] = append(m.wishlist[userID], entry)
	return nil
}

func (m *mockRepository) RemoveWishlistEntry(_ context.Context, userID string, productID domain.ProductID) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.calls = append(m.calls, "remove_wishlist")
	if m.writeErr != nil {
		return m.writeErr
	}
	m.wishlist[userID] = slices.DeleteFunc(m.wishlist[userID], func(e domain.WishlistEntry) bool {
		return e.ProductID() == productID
	})
	return nil
}

func (m *mockRepository) Calls() []string {
	m.m.RLock()
	defer m.m.RUnlock()
	return slices.Clone(m.calls)
}

func (m *mockRepository) Lines(userID string) []domain.CartLine {
	m.m.RLock()
	defer m.m.RUnlock()
	return domain.CloneLines(m.lines[userID])
}

func (m *mockRepository) Wishlist(userID string) []domain.WishlistEntry {
	m.m.RLock()
	defer m.m.RUnlock()
	return slices.Clone(m.wishlist[userID])
}

func (m *mockRepository) Loads() int {
	m.m.RLock()
	defer m.m.RUnlock()
	return m.loads
}

func (m *mockRepository) setLines(userID string, lines ...domain.CartLine) {
	m.m.Lock()
	defer m.m.Unlock()
	m.lines[userID] = lines
}

func (m *mockRepository) setLoadErr(err error) {
	m.m.Lock()
	defer m.m.Unlock()
	m.loadErr = err
}

func (m *mockRepository) setWriteErr(err error) {
	m.m.Lock()
	defer m.m.Unlock()
	m.writeErr = err
}

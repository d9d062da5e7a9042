package cart

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mosaicgrove/storefront/internal/domain"
	"github.com/mosaicgrove/storefront/internal/matcher"
	"github.com/mosaicgrove/storefront/internal/metrics"
	"github.com/mosaicgrove/storefront/internal/repository"
	"github.com/shopspring/decimal"
)

type Mode int

const (
	Guest Mode = iota
	Authenticated
)

func (m Mode) String() string {
	if m == Authenticated {
		return "authenticated"
	}
	return "guest"
}

type Options struct {
	QueueSize   int
	SyncTimeout time.Duration
	Logger      *slog.Logger
}

// Store is the cart and wishlist of one browser session. Every mutation runs
// the reducer under the lock, then queues the matching remote write when the
// session is authenticated. Remote outcomes never touch local state.
type Store struct {
	mu      sync.RWMutex
	state   State
	userID  string
	notices []Notice

	repo        repository.CartRepository
	effects     *syncQueue
	log         *slog.Logger
	newID       func() string
	loadTimeout time.Duration
}

// NewStore builds a guest store. repo may be nil, in which case the store
// stays memory-only even after Login.
func NewStore(repo repository.CartRepository, opts Options) *Store {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	loadTimeout := opts.SyncTimeout
	if loadTimeout <= 0 {
		loadTimeout = 5 * time.Second
	}
	s := &Store{
		repo:        repo,
		log:         log,
		newID:       uuid.NewString,
		loadTimeout: loadTimeout,
	}
	s.effects = newSyncQueue(opts.QueueSize, opts.SyncTimeout, s.syncApplied, s.syncFailed)
	return s
}

func (s *Store) syncApplied(e effect) {
	metrics.SyncApplied.WithLabelValues(e.op).Inc()
}

func (s *Store) syncFailed(e effect, err error) {
	metrics.SyncFailures.WithLabelValues(e.op).Inc()
	s.log.Warn("remote cart sync failed", "operation", e.op, "user_id", e.userID, "error", err)
}

// Close drains pending remote writes.
func (s *Store) Close() {
	s.effects.close()
}

func (s *Store) Mode() Mode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.userID != "" {
		return Authenticated
	}
	return Guest
}

func (s *Store) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID
}

// Login switches to authenticated mode and replaces the in-memory cart and
// wishlist with the remote rows. Remote wins outright; a guest cart is not
// merged.
//
// The load runs detached from ctx's cancellation under its own timeout. When
// the cart cannot be loaded the store stays a guest, keeping its memory, so
// the next Login for the user retries. A wishlist that fails to load keeps
// its in-memory value.
func (s *Store) Login(ctx context.Context, userID string) {
	prev := s.UserID()
	if userID == "" || prev == userID {
		return
	}

	var (
		lines            []domain.CartLine
		entries          []domain.WishlistEntry
		cartErr, wishErr error
	)
	if s.repo != nil {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.loadTimeout)
		defer cancel()

		lines, cartErr = s.repo.LoadCart(loadCtx, userID)
		if cartErr != nil {
			metrics.SyncFailures.WithLabelValues("load_cart").Inc()
			s.log.WarnContext(ctx, "error fetching cart, login will be retried", "user_id", userID, "error", cartErr)
		} else {
			entries, wishErr = s.repo.LoadWishlist(loadCtx, userID)
			if wishErr != nil {
				metrics.SyncFailures.WithLabelValues("load_wishlist").Inc()
				s.log.WarnContext(ctx, "error fetching wishlist", "user_id", userID, "error", wishErr)
			}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.userID != prev {
		// a concurrent Login or Logout won
		return
	}
	if prev != "" {
		s.state = State{}
		s.notices = nil
	}
	if cartErr != nil {
		s.userID = ""
		return
	}
	s.userID = userID
	if s.repo == nil {
		return
	}
	s.state = Reduce(s.state, SetCart{Lines: lines})
	if wishErr == nil {
		s.state = Reduce(s.state, SetWishlist{Entries: entries})
	}
}

// Logout returns to guest mode with an empty cart and wishlist.
func (s *Store) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userID = ""
	s.state = State{}
	s.notices = nil
}

// dispatch applies a under the lock and, for authenticated sessions, queues
// the remote write built from the post-reduce state. Queueing under the lock
// keeps remote writes in dispatch order.
func (s *Store) dispatch(a Action, op string, write func(prev, next State) func(ctx context.Context) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.state
	s.state = Reduce(s.state, a)
	if s.userID == "" || s.repo == nil || write == nil {
		return
	}
	run := write(prev, s.state)
	if run == nil {
		return
	}
	s.effects.enqueue(effect{op: op, userID: s.userID, run: run})
}

func (s *Store) notify(n Notice) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notices = append(s.notices, n)
	if len(s.notices) > maxNotices {
		s.notices = s.notices[len(s.notices)-maxNotices:]
	}
}

// AddToCart adds quantity of a configured product, merging into an existing
// line with the same configuration. A quantity below 1 is clamped to 1. An
// incomplete or unknown selection is rejected and nothing changes.
func (s *Store) AddToCart(product domain.Product, quantity int, variation map[string]string, weight *float64) error {
	if err := product.ValidateSelection(variation, weight); err != nil {
		return err
	}
	if quantity <= 0 {
		quantity = 1
	}
	product.ID = domain.CanonicalID(product.ID)
	line := domain.CartLine{
		ID:        s.newID(),
		Product:   product.Clone(),
		Quantity:  quantity,
		Variation: domain.CloneVariation(variation),
		Weight:    domain.CloneWeight(weight),
	}

	s.dispatch(AddToCart{Line: line}, "add_to_cart", func(_, next State) func(context.Context) error {
		i := indexOfConfiguration(next.Lines, line)
		if i < 0 {
			return nil
		}
		merged := next.Lines[i].Clone()
		userID := s.userID
		return func(ctx context.Context) error {
			return s.repo.UpsertLine(ctx, userID, merged)
		}
	})

	s.notify(Notice{
		Title:       "Added to Cart",
		Description: fmt.Sprintf("%s has been added to your cart.", product.Name),
	})
	return nil
}

// RemoveFromCart removes the line lineID, or all lines of productID when
// lineID is empty. Nothing matching is a no-op.
func (s *Store) RemoveFromCart(productID domain.ProductID, lineID string) {
	productID = domain.CanonicalID(productID)
	s.dispatch(RemoveFromCart{ProductID: productID, LineID: lineID}, "remove_from_cart", s.removeWrite(productID, lineID))
}

func (s *Store) removeWrite(productID domain.ProductID, lineID string) func(State, State) func(context.Context) error {
	return func(prev, _ State) func(context.Context) error {
		userID := s.userID
		if lineID != "" {
			i := slices.IndexFunc(prev.Lines, func(l domain.CartLine) bool { return l.ID == lineID })
			if i < 0 {
				return nil
			}
			removed := prev.Lines[i].Clone()
			return func(ctx context.Context) error {
				return s.repo.DeleteLine(ctx, userID, removed)
			}
		}
		return func(ctx context.Context) error {
			return s.repo.DeleteProductLines(ctx, userID, productID)
		}
	}
}

// UpdateQuantity sets the quantity of the matching line. The line is found by
// lineID when given, else by product and configuration. quantity <= 0 is
// RemoveFromCart(productID, lineID).
func (s *Store) UpdateQuantity(productID domain.ProductID, quantity int, lineID string, variation map[string]string, weight *float64) {
	productID = domain.CanonicalID(productID)
	if quantity <= 0 {
		s.RemoveFromCart(productID, lineID)
		return
	}
	a := UpdateQuantity{
		ProductID: productID,
		Quantity:  quantity,
		LineID:    lineID,
		Variation: domain.CloneVariation(variation),
		Weight:    domain.CloneWeight(weight),
	}
	s.dispatch(a, "update_quantity", func(_, next State) func(context.Context) error {
		var updated []domain.CartLine
		for _, l := range next.Lines {
			if matchesTarget(l, a.ProductID, a.LineID, a.Variation, a.Weight) {
				updated = append(updated, l.Clone())
			}
		}
		if len(updated) == 0 {
			return nil
		}
		userID := s.userID
		return func(ctx context.Context) error {
			for _, l := range updated {
				if err := s.repo.UpsertLine(ctx, userID, l); err != nil {
					return err
				}
			}
			return nil
		}
	})
}

// ClearCart empties the cart locally and, when authenticated, remotely.
func (s *Store) ClearCart() {
	s.dispatch(ClearCart{}, "clear_cart", func(State, State) func(context.Context) error {
		userID := s.userID
		return func(ctx context.Context) error {
			return s.repo.DeleteCart(ctx, userID)
		}
	})
}

// AddToWishlist is idempotent by product id.
func (s *Store) AddToWishlist(product domain.Product) {
	product.ID = domain.CanonicalID(product.ID)
	entry := domain.WishlistEntry{Product: product.Clone()}

	s.mu.Lock()
	if indexOfWishlist(s.state.Wishlist, product.ID) >= 0 {
		s.mu.Unlock()
		return
	}
	s.state = Reduce(s.state, AddToWishlist{Product: product})
	if s.userID != "" && s.repo != nil {
		userID := s.userID
		s.effects.enqueue(effect{op: "add_to_wishlist", userID: userID, run: func(ctx context.Context) error {
			return s.repo.AddWishlistEntry(ctx, userID, entry)
		}})
	}
	s.mu.Unlock()

	s.notify(Notice{
		Title:       "Added to Wishlist",
		Description: fmt.Sprintf("%s has been added to your wishlist.", product.Name),
	})
}

func (s *Store) RemoveFromWishlist(productID domain.ProductID) {
	productID = domain.CanonicalID(productID)
	s.dispatch(RemoveFromWishlist{ProductID: productID}, "remove_from_wishlist", func(State, State) func(context.Context) error {
		userID := s.userID
		return func(ctx context.Context) error {
			return s.repo.RemoveWishlistEntry(ctx, userID, productID)
		}
	})
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return State{
		Lines:    domain.CloneLines(s.state.Lines),
		Wishlist: domain.CloneWishlist(s.state.Wishlist),
	}
}

func (s *Store) Lines() []domain.CartLine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.CloneLines(s.state.Lines)
}

func (s *Store) Wishlist() []domain.WishlistEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.CloneWishlist(s.state.Wishlist)
}

func (s *Store) IsInWishlist(productID domain.ProductID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return indexOfWishlist(s.state.Wishlist, productID) >= 0
}

func (s *Store) WishlistEntry(productID domain.ProductID) (domain.WishlistEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := indexOfWishlist(s.state.Wishlist, productID); i >= 0 {
		return s.state.Wishlist[i].Clone(), true
	}
	return domain.WishlistEntry{}, false
}

func (s *Store) IsInCart(productID domain.ProductID) bool {
	_, ok := s.CartLine(productID)
	return ok
}

// CartLine returns the first line of productID, whatever its configuration.
func (s *Store) CartLine(productID domain.ProductID) (domain.CartLine, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, l := range s.state.Lines {
		if domain.CanonicalID(l.ProductID()) == domain.CanonicalID(productID) {
			return l.Clone(), true
		}
	}
	return domain.CartLine{}, false
}

// FindLine returns the line with exactly this configuration.
func (s *Store) FindLine(productID domain.ProductID, variation map[string]string, weight *float64) (domain.CartLine, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, l := range s.state.Lines {
		if matcher.Matches(l, productID, variation, weight) {
			return l.Clone(), true
		}
	}
	return domain.CartLine{}, false
}

func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.ItemCount(s.state.Lines)
}

func (s *Store) Subtotal() decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.Subtotal(s.state.Lines)
}

// Notices drains pending toasts.
func (s *Store) Notices() []Notice {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.notices
	s.notices = nil
	return n
}

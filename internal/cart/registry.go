package cart

import (
	"context"
	"sync"
	"time"

	"github.com/mosaicgrove/storefront/internal/metrics"
	"golang.org/x/sync/singleflight"
)

const CleanupInterval = 30 * time.Second

type entry struct {
	store    *Store
	lastSeen time.Time
}

// Registry owns one Store per browser session. A store is built on the first
// request of a session and torn down after idleTTL without requests.
type Registry struct {
	mu      sync.Mutex
	stores  map[string]*entry
	factory func() *Store
	idleTTL time.Duration
	sfg     singleflight.Group // one login reconciliation per session and user
	now     func() time.Time

	stopCleanup chan struct{}
	stopOnce    sync.Once
	wg          sync.WaitGroup
}

func NewRegistry(factory func() *Store, idleTTL time.Duration) *Registry {
	r := &Registry{
		stores:      make(map[string]*entry),
		factory:     factory,
		idleTTL:     idleTTL,
		now:         time.Now,
		stopCleanup: make(chan struct{}),
	}
	if idleTTL > 0 {
		r.wg.Add(1)
		go r.cleanupLoop()
	}
	return r
}

func (r *Registry) cleanupLoop() {
	defer r.wg.Done()

	ticker := time.NewTicker(min(CleanupInterval, r.idleTTL))
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.evictIdle()
		case <-r.stopCleanup:
			return
		}
	}
}

func (r *Registry) evictIdle() {
	cutoff := r.now().Add(-r.idleTTL)

	r.mu.Lock()
	var idle []*Store
	for id, e := range r.stores {
		if e.lastSeen.Before(cutoff) {
			idle = append(idle, e.store)
			delete(r.stores, id)
		}
	}
	metrics.ActiveSessions.Set(float64(len(r.stores)))
	r.mu.Unlock()

	for _, s := range idle {
		s.Close()
	}
}

// Acquire returns the store of sessionID, aligned with the identity of the
// current request: an authenticated userID triggers the login reconciliation
// when the store is not already logged in as that user, and an empty userID
// logs a previously authenticated store out.
func (r *Registry) Acquire(ctx context.Context, sessionID, userID string) *Store {
	r.mu.Lock()
	e, ok := r.stores[sessionID]
	if !ok {
		e = &entry{store: r.factory()}
		r.stores[sessionID] = e
		metrics.ActiveSessions.Set(float64(len(r.stores)))
	}
	e.lastSeen = r.now()
	store := e.store
	r.mu.Unlock()

	current := store.UserID()
	switch {
	case userID == current:
	case userID == "":
		store.Logout()
	default:
		_, _, _ = r.sfg.Do(sessionID+"/"+userID, func() (interface{}, error) {
			store.Login(ctx, userID)
			return nil, nil
		})
	}
	return store
}

// Release tears down the store of sessionID.
func (r *Registry) Release(sessionID string) {
	r.mu.Lock()
	e, ok := r.stores[sessionID]
	delete(r.stores, sessionID)
	metrics.ActiveSessions.Set(float64(len(r.stores)))
	r.mu.Unlock()
	if ok {
		e.store.Close()
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stores)
}

// Close stops the cleanup loop and drains every store.
func (r *Registry) Close() {
	r.stopOnce.Do(func() { close(r.stopCleanup) })
	r.wg.Wait()

	r.mu.Lock()
	stores := r.stores
	r.stores = make(map[string]*entry)
	r.mu.Unlock()

	for _, e := range stores {
		e.store.Close()
	}
	metrics.ActiveSessions.Set(0)
}

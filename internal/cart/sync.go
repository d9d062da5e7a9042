package cart

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	ErrQueueFull   = errors.New("sync queue full, remote write dropped")
	ErrQueueClosed = errors.New("sync queue closed, remote write dropped")
)

// effect is a remote write attached to an already committed reducer step.
type effect struct {
	op     string
	userID string
	run    func(ctx context.Context) error
}

// syncQueue runs effects one at a time in enqueue order. Enqueue never
// blocks; failures go to onError and nothing is reported back to the Store.
type syncQueue struct {
	mu      sync.Mutex
	closed  bool
	jobs    chan effect
	timeout time.Duration
	onError func(e effect, err error)
	onApply func(e effect)
	wg      sync.WaitGroup
}

func newSyncQueue(size int, timeout time.Duration, onApply func(effect), onError func(effect, error)) *syncQueue {
	if size <= 0 {
		size = 64
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	q := &syncQueue{
		jobs:    make(chan effect, size),
		timeout: timeout,
		onError: onError,
		onApply: onApply,
	}
	q.wg.Add(1)
	go q.loop()
	return q
}

func (q *syncQueue) loop() {
	defer q.wg.Done()
	for e := range q.jobs {
		q.apply(e)
	}
}

func (q *syncQueue) apply(e effect) {
	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			q.onError(e, errors.New("remote write panicked"))
		}
	}()

	if err := e.run(ctx); err != nil {
		q.onError(e, err)
		return
	}
	q.onApply(e)
}

func (q *syncQueue) enqueue(e effect) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.onError(e, ErrQueueClosed)
		return
	}
	select {
	case q.jobs <- e:
	default:
		q.onError(e, ErrQueueFull)
	}
}

// close stops intake and waits for queued effects to finish.
func (q *syncQueue) close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		q.wg.Wait()
		return
	}
	q.closed = true
	close(q.jobs)
	q.mu.Unlock()
	q.wg.Wait()
}

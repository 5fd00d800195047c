// Package pool recycles expensive reader objects behind a lease protocol.
//
// A Pool hands out Leases. Each Lease must be released exactly once; releasing
// returns the object to the pool, which keeps it open for the next Acquire. The
// objects themselves are only closed when the pool is closed.
//
// Closing a pool never waits for outstanding leases. Idle objects are closed
// immediately; leased objects are closed when their lease is released, and
// Lease.Get reports ErrPoolClosed from that point on.
package pool

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Sentinel errors for pool operations.
var (
	// ErrPoolClosed indicates the pool was closed.
	ErrPoolClosed = errors.New("pool is closed")
	// ErrLeaseReleased indicates a lease was used after Release.
	ErrLeaseReleased = errors.New("lease already released")
)

// Pool is a bounded pool of reusable objects.
// It is safe for concurrent use.
type Pool[T io.Closer] struct {
	factory func() (T, error)
	sem     *semaphore.Weighted // nil when unbounded

	done chan struct{} // closed by Close

	mu          sync.Mutex
	idle        []T
	closed      bool
	outstanding int
	created     int
}

// New creates a pool that creates objects with factory on demand.
// At most capacity objects are leased at once; capacity <= 0 means unbounded.
func New[T io.Closer](capacity int, factory func() (T, error)) *Pool[T] {
	p := &Pool[T]{factory: factory, done: make(chan struct{})}
	if capacity > 0 {
		p.sem = semaphore.NewWeighted(int64(capacity))
	}
	return p
}

// Acquire leases an object, reusing an idle one when available.
// It blocks while the pool is at capacity, until ctx is done or the pool is
// closed, in which case it returns ErrPoolClosed.
func (p *Pool[T]) Acquire(ctx context.Context) (*Lease[T], error) {
	if p.Closed() {
		return nil, ErrPoolClosed
	}
	if err := p.acquireSlot(ctx); err != nil {
		return nil, err
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.releaseSlot()
		return nil, ErrPoolClosed
	}
	p.outstanding++
	if n := len(p.idle); n > 0 {
		v := p.idle[n-1]
		var zero T
		p.idle[n-1] = zero
		p.idle = p.idle[:n-1]
		p.mu.Unlock()
		return &Lease[T]{pool: p, value: v}, nil
	}
	p.mu.Unlock()

	v, err := p.factory()
	if err != nil {
		p.mu.Lock()
		p.outstanding--
		p.mu.Unlock()
		p.releaseSlot()
		return nil, err
	}

	p.mu.Lock()
	p.created++
	p.mu.Unlock()
	return &Lease[T]{pool: p, value: v}, nil
}

// Close closes every idle object and marks the pool closed.
// It is idempotent and does not wait for outstanding leases.
func (p *Pool[T]) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.done)
	idle := p.idle
	p.idle = nil
	p.mu.Unlock()

	var errs []error
	for _, v := range idle {
		if err := v.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Closed reports whether Close has been called
func (p *Pool[T]) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Outstanding returns the number of leases not yet released
func (p *Pool[T]) Outstanding() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.outstanding
}

// Idle returns the number of objects waiting for reuse
func (p *Pool[T]) Idle() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.idle)
}

// Created returns the number of objects the factory has produced
func (p *Pool[T]) Created() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.created
}

// put returns a released object, closing it if the pool is already closed
func (p *Pool[T]) put(v T) {
	p.mu.Lock()
	p.outstanding--
	if p.closed {
		p.mu.Unlock()
		v.Close()
		p.releaseSlot()
		return
	}
	p.idle = append(p.idle, v)
	p.mu.Unlock()
	p.releaseSlot()
}

// acquireSlot waits for capacity. Waiters are woken when the pool closes.
func (p *Pool[T]) acquireSlot(ctx context.Context) error {
	if p.sem == nil || p.sem.TryAcquire(1) {
		return nil
	}

	wctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-p.done:
			cancel()
		case <-wctx.Done():
		}
	}()

	if err := p.sem.Acquire(wctx, 1); err != nil {
		if ctx.Err() == nil && p.Closed() {
			return ErrPoolClosed
		}
		return err
	}
	return nil
}

func (p *Pool[T]) releaseSlot() {
	if p.sem != nil {
		p.sem.Release(1)
	}
}

// Lease is a scoped borrow of one pooled object
type Lease[T io.Closer] struct {
	pool     *Pool[T]
	value    T
	released atomic.Bool
}

// Get returns the leased object. It fails once the lease is released or the
// pool is closed; the object must not be used after that.
func (l *Lease[T]) Get() (T, error) {
	var zero T
	if l.released.Load() {
		return zero, ErrLeaseReleased
	}
	if l.pool.Closed() {
		return zero, ErrPoolClosed
	}
	return l.value, nil
}

// Release hands the object back to the pool. Only the first call has an effect.
func (l *Lease[T]) Release() {
	if l.released.Swap(true) {
		return
	}
	l.pool.put(l.value)
}

package pool

import (
	"context"
	"fmt"
	"sync"

	"github.com/harrison/resscan/internal/container"
	"github.com/harrison/resscan/internal/models"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// ReaderPool is a pool of container readers
type ReaderPool = Pool[container.Reader]

// Opener creates a reader for a container
type Opener func(ref models.ContainerRef) (container.Reader, error)

// Registry shares one reader pool per container identity.
//
// Every PoolFor takes a hold on the returned pool and every Release drops
// one. A pool is closed when its last hold is released. Pools that fall out
// of the LRU while still held stay open until their holders are done.
type Registry struct {
	mu       sync.Mutex
	pools    *lru.Cache[string, *ReaderPool]
	holds    map[*ReaderPool]int
	group    singleflight.Group
	capacity int
	open     Opener
}

// NewRegistry creates a registry keeping at most size pools, each leasing at
// most capacity readers at once (capacity <= 0 means unbounded).
func NewRegistry(size, capacity int, open Opener) (*Registry, error) {
	if size <= 0 {
		size = 1
	}
	r := &Registry{
		holds:    make(map[*ReaderPool]int),
		capacity: capacity,
		open:     open,
	}
	// runs with r.mu held
	pools, err := lru.NewWithEvict[string, *ReaderPool](size, func(_ string, p *ReaderPool) {
		if r.holds[p] == 0 {
			p.Close()
		}
	})
	if err != nil {
		return nil, fmt.Errorf("create pool registry: %w", err)
	}
	r.pools = pools
	return r, nil
}

// PoolFor returns the pool for ref, creating it if needed, and takes a hold
// on it that the caller must give back with Release. A new pool opens one
// reader up front and keeps it idle, so a container that cannot be opened at
// all fails here rather than at first use.
func (r *Registry) PoolFor(ref models.ContainerRef) (*ReaderPool, error) {
	key := ref.Identity()
	for {
		if p, ok := r.hold(key); ok {
			return p, nil
		}

		v, err, _ := r.group.Do(key, func() (interface{}, error) {
			if p, ok := r.lookup(key); ok {
				return p, nil
			}
			p := New(r.capacity, func() (container.Reader, error) {
				return r.open(ref)
			})
			lease, err := p.Acquire(context.Background())
			if err != nil {
				p.Close()
				return nil, err
			}
			lease.Release()

			r.mu.Lock()
			r.pools.Add(key, p)
			r.mu.Unlock()
			return p, nil
		})
		if err != nil {
			return nil, err
		}

		p := v.(*ReaderPool)
		r.mu.Lock()
		if !p.Closed() {
			r.holds[p]++
			r.mu.Unlock()
			return p, nil
		}
		// evicted before we could hold it
		r.mu.Unlock()
	}
}

// Release drops a hold taken by PoolFor. The last release closes the pool.
func (r *Registry) Release(ref models.ContainerRef, p *ReaderPool) error {
	r.mu.Lock()
	n := r.holds[p]
	if n > 1 {
		r.holds[p] = n - 1
		r.mu.Unlock()
		return nil
	}
	key := ref.Identity()
	if cur, ok := r.pools.Peek(key); ok && cur == p {
		// still held here, so the evict hook leaves it open
		r.pools.Remove(key)
	}
	delete(r.holds, p)
	r.mu.Unlock()
	return p.Close()
}

// Remove closes and forgets the pool for ref, whoever holds it
func (r *Registry) Remove(ref models.ContainerRef) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := ref.Identity()
	if p, ok := r.pools.Peek(key); ok {
		delete(r.holds, p)
		r.pools.Remove(key)
	}
}

// Len returns the number of pools held in the LRU
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pools.Len()
}

// Close closes every pool the registry knows about, held or not
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for p := range r.holds {
		p.Close()
	}
	clear(r.holds)
	r.pools.Purge()
}

// hold returns the cached pool for key with a hold taken on it
func (r *Registry) hold(key string) (*ReaderPool, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.lookupLocked(key)
	if ok {
		r.holds[p]++
	}
	return p, ok
}

// lookup returns a cached pool that is still open
func (r *Registry) lookup(key string) (*ReaderPool, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lookupLocked(key)
}

func (r *Registry) lookupLocked(key string) (*ReaderPool, bool) {
	p, ok := r.pools.Get(key)
	if !ok {
		return nil, false
	}
	if p.Closed() {
		delete(r.holds, p)
		r.pools.Remove(key)
		return nil, false
	}
	return p, true
}

package pool

import (
	"sync"

	"github.com/rs/zerolog"
)

// ThreadSafePoolAllocator is a PoolAllocator guarded by a single mutex. Every public method takes the
// lock, so throughput under contention is bounded by the allocator itself.
type ThreadSafePoolAllocator[T any] struct {
	mu   sync.Mutex
	pool PoolAllocator[T]
}

// NewThreadSafePoolAllocator returns an allocator that reports fatal conditions through logger.
func NewThreadSafePoolAllocator[T any](logger zerolog.Logger) *ThreadSafePoolAllocator[T] {
	return &ThreadSafePoolAllocator[T]{pool: PoolAllocator[T]{logger: &logger}}
}

func (p *ThreadSafePoolAllocator[T]) AllocateNewPool(objectsCount int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pool.AllocateNewPool(objectsCount)
}

func (p *ThreadSafePoolAllocator[T]) Allocate(value T) *T {
	p.mu.Lock()
	ptr := p.pool.AllocateZeroed()
	p.mu.Unlock()

	// The slot is exclusively owned by this caller once it leaves the free list.
	*ptr = value
	return ptr
}

func (p *ThreadSafePoolAllocator[T]) AllocateZeroed() *T {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pool.AllocateZeroed()
}

func (p *ThreadSafePoolAllocator[T]) Free(ptr *T) {
	if ptr == nil {
		return
	}
	// Reset outside the lock, the slot is not reachable by other goroutines until it is pushed back.
	var zero T
	*ptr = zero

	p.mu.Lock()
	defer p.mu.Unlock()
	p.pool.free = append(p.pool.free, ptr)
	p.pool.allocated--
}

func (p *ThreadSafePoolAllocator[T]) Cleanup() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pool.Cleanup()
}

func (p *ThreadSafePoolAllocator[T]) PoolSize() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pool.PoolSize()
}

func (p *ThreadSafePoolAllocator[T]) AllocatedObjectsCount() uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pool.AllocatedObjectsCount()
}

func (p *ThreadSafePoolAllocator[T]) BlockCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pool.BlockCount()
}

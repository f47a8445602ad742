// Package pool provides fixed-size object allocators with a free list and geometric block growth.
// Blocks are never shrunk; freed slots are reused before a new block is requested.
package pool

import (
	"slices"
	"unsafe"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// firstBlockObjects is the object count of the first block. Block n holds firstBlockObjects << n.
	firstBlockObjects = 64
	// maxBlocks bounds the shift used for growth. Reaching it means no further block can be addressed.
	maxBlocks = 32
)

// PoolAllocator hands out pointers to T from contiguous blocks. The zero value is ready to use and
// reports fatal conditions through the global zerolog logger. A PoolAllocator must not be copied
// after first use and is not safe for concurrent use, see ThreadSafePoolAllocator.
type PoolAllocator[T any] struct {
	logger    *zerolog.Logger
	blocks    [][]T  // Backing blocks, block i holds firstBlockObjects << i objects unless preallocated
	free      []*T   // Free list, popped from the back
	objects   uint64 // Total object capacity across all blocks
	allocated uint32 // Net allocate minus free count
}

// NewPoolAllocator returns an allocator that reports fatal conditions through logger.
func NewPoolAllocator[T any](logger zerolog.Logger) *PoolAllocator[T] {
	return &PoolAllocator[T]{logger: &logger}
}

// AllocateNewPool adds a block with room for objectsCount objects regardless of the growth policy.
func (p *PoolAllocator[T]) AllocateNewPool(objectsCount int) {
	if objectsCount <= 0 {
		return
	}
	p.allocateBlock(objectsCount)
}

// Allocate stores value in a free slot and returns its address. The pointer stays valid until it is
// passed to Free or Cleanup is called.
func (p *PoolAllocator[T]) Allocate(value T) *T {
	ptr := p.AllocateZeroed()
	*ptr = value
	return ptr
}

// AllocateZeroed returns a slot holding the zero value of T.
func (p *PoolAllocator[T]) AllocateZeroed() *T {
	if len(p.free) == 0 {
		if len(p.blocks) >= maxBlocks {
			p.fatal().Int("blocks", len(p.blocks)).Msg("pool allocator cannot grow any further")
			return nil
		}
		p.allocateBlock(firstBlockObjects << len(p.blocks))
	}

	last := len(p.free) - 1
	ptr := p.free[last]
	p.free = p.free[:last]
	p.allocated++
	return ptr
}

// Free resets the object to its zero value and returns its slot to the free list. The backing
// memory is kept for reuse.
func (p *PoolAllocator[T]) Free(ptr *T) {
	if ptr == nil {
		return
	}
	var zero T
	*ptr = zero
	p.free = append(p.free, ptr)
	p.allocated--
}

// Cleanup releases every block. All outstanding pointers become invalid; the caller is responsible
// for not using them afterwards.
func (p *PoolAllocator[T]) Cleanup() {
	p.blocks = nil
	p.free = nil
	p.objects = 0
	p.allocated = 0
}

// PoolSize returns the total capacity of all blocks in bytes.
func (p *PoolAllocator[T]) PoolSize() uint64 {
	var zero T
	return p.objects * uint64(unsafe.Sizeof(zero))
}

// AllocatedObjectsCount returns the number of live objects.
func (p *PoolAllocator[T]) AllocatedObjectsCount() uint32 {
	return p.allocated
}

// BlockCount returns the number of blocks that were allocated since the last Cleanup.
func (p *PoolAllocator[T]) BlockCount() int {
	return len(p.blocks)
}

func (p *PoolAllocator[T]) allocateBlock(objectsCount int) {
	// The runtime aborts the process when it cannot satisfy make, which is the fatal path for a
	// block that cannot be backed by memory.
	block := make([]T, objectsCount)

	// Push in reverse so the first Allocate after growth hands out the lowest address of the block.
	p.free = slices.Grow(p.free, objectsCount)
	for i := objectsCount - 1; i >= 0; i-- {
		p.free = append(p.free, &block[i])
	}

	p.blocks = append(p.blocks, block)
	p.objects += uint64(objectsCount)
}

// fatal returns an event that terminates the process once sent.
func (p *PoolAllocator[T]) fatal() *zerolog.Event {
	if p.logger == nil {
		return log.Fatal() //nolint:zerologlint // the caller sends the event
	}
	return p.logger.Fatal() //nolint:zerologlint // the caller sends the event
}

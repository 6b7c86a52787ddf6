package kern

import (
	"sync"
)

// Allocator supplies the byte arenas backing work-group storage and staged
// payloads. The engine never assumes a default allocator: callers choose
// the memory strategy (plain heap, pooled, pinned-equivalent) by passing an
// Allocator into the components that need one.
type Allocator interface {
	// Allocate returns a buffer of at least size bytes
	Allocate(size int) ([]byte, error)
	// Deallocate releases a buffer previously returned by Allocate
	Deallocate(buf []byte)
}

// HeapAllocator allocates plain garbage-collected buffers.
type HeapAllocator struct{}

// Allocate returns a fresh buffer of exactly size bytes
func (HeapAllocator) Allocate(size int) ([]byte, error) {
	if size <= 0 {
		return nil, ErrInvalidSize
	}
	return make([]byte, size), nil
}

// Deallocate is a no-op; the collector reclaims the buffer
func (HeapAllocator) Deallocate(buf []byte) {}

// PoolAllocator recycles buffers through a free list to reduce allocation
// churn for work pools that are instantiated every cycle. Buffers are
// rounded up to size classes so a reused arena fits later requests of
// similar size.
type PoolAllocator struct {
	mu         sync.Mutex
	freeList   [][]byte
	totalAlloc int64
	peakAlloc  int64
	inUse      int64
}

// NewPoolAllocator creates an empty pooled allocator
func NewPoolAllocator() *PoolAllocator {
	return &PoolAllocator{}
}

// Allocate returns a buffer of at least size bytes, reusing a free-listed
// buffer when one is large enough.
func (p *PoolAllocator) Allocate(size int) ([]byte, error) {
	if size <= 0 {
		return nil, ErrInvalidSize
	}
	want := roundArenaSize(size)

	p.mu.Lock()
	defer p.mu.Unlock()

	for i, buf := range p.freeList {
		if cap(buf) >= want {
			last := len(p.freeList) - 1
			p.freeList[i] = p.freeList[last]
			p.freeList = p.freeList[:last]
			p.inUse += int64(cap(buf))
			return buf[:size], nil
		}
	}

	buf := make([]byte, size, want)
	p.totalAlloc += int64(want)
	p.inUse += int64(want)
	if p.inUse > p.peakAlloc {
		p.peakAlloc = p.inUse
	}
	return buf, nil
}

// Deallocate returns a buffer to the free list
func (p *PoolAllocator) Deallocate(buf []byte) {
	if cap(buf) == 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.inUse -= int64(cap(buf))
	if len(p.freeList) < FreeListThreshold {
		p.freeList = append(p.freeList, buf[:0])
	}
}

// Stats reports total bytes ever allocated and the peak bytes in use
func (p *PoolAllocator) Stats() (total, peak int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.totalAlloc, p.peakAlloc
}

// roundArenaSize rounds a request up to its size class: at least
// MinArenaSize, then the next power of two.
func roundArenaSize(size int) int {
	if size < MinArenaSize {
		return MinArenaSize
	}
	n := MinArenaSize
	for n < size {
		n <<= 1
	}
	return n
}

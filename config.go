// Package kern configuration constants
package kern

// Emulated hardware hierarchy limits. These mirror common GPU limits so a
// kernel description tuned for a real device maps onto the CPU emulation
// without resizing.
const (
	// WarpSize is the number of lanes in an emulated warp
	WarpSize = 32

	// DefaultBlockSize is the default number of threads per block
	DefaultBlockSize = 256

	// MaxThreadsPerBlock bounds the product of block thread dimensions
	MaxThreadsPerBlock = 1024

	// MaxBlocksPerDim bounds a single grid dimension
	MaxBlocksPerDim = 1 << 30
)

// Memory arena parameters
const (
	// ArenaAlignment is the alignment of work-storage records in bytes
	ArenaAlignment = 64

	// MinArenaSize is the smallest arena handed out by the pooled allocator,
	// to prevent fragmentation from many tiny work groups
	MinArenaSize = 256

	// FreeListThreshold caps the pooled allocator's free list
	FreeListThreshold = 100
)

// Stream parameters
const (
	// StreamQueueDepth is the task buffer of a stream before Submit blocks
	StreamQueueDepth = 1000
)

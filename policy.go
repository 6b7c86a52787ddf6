package kern

import (
	"fmt"
)

// Dim selects one of the three hardware dimensions of the thread/block
// hierarchy.
type Dim int

const (
	DimX Dim = iota
	DimY
	DimZ
)

// PolicyKind identifies how a loop level maps onto hardware parallelism.
type PolicyKind int

const (
	// PolicySeq iterates sequentially on whatever lane reaches the loop
	PolicySeq PolicyKind = iota
	// PolicySIMD iterates sequentially with a vectorization hint
	PolicySIMD
	// PolicyThreadDirect maps iterations 1:1 onto thread indices in a dim
	PolicyThreadDirect
	// PolicyThreadLoop strides iterations by the block's size in a dim
	PolicyThreadLoop
	// PolicyBlockDirect maps iterations 1:1 onto block indices in a dim
	PolicyBlockDirect
	// PolicyBlockLoop strides iterations by the grid's size in a dim
	PolicyBlockLoop
	// PolicyWarpDirect maps iterations 1:1 onto warp lanes
	PolicyWarpDirect
	// PolicyWarpLoop strides iterations by the warp width
	PolicyWarpLoop
	// PolicyWarpMaskedDirect maps masked warp lane values to iterations
	PolicyWarpMaskedDirect
	// PolicyWarpMaskedLoop strides masked warp lane values by the mask width
	PolicyWarpMaskedLoop
	// PolicyThreadMaskedDirect maps masked thread values to iterations
	PolicyThreadMaskedDirect
	// PolicyThreadMaskedLoop strides masked thread values by the mask width
	PolicyThreadMaskedLoop
)

// String returns the policy kind name
func (k PolicyKind) String() string {
	switch k {
	case PolicySeq:
		return "Seq"
	case PolicySIMD:
		return "SIMD"
	case PolicyThreadDirect:
		return "ThreadDirect"
	case PolicyThreadLoop:
		return "ThreadLoop"
	case PolicyBlockDirect:
		return "BlockDirect"
	case PolicyBlockLoop:
		return "BlockLoop"
	case PolicyWarpDirect:
		return "WarpDirect"
	case PolicyWarpLoop:
		return "WarpLoop"
	case PolicyWarpMaskedDirect:
		return "WarpMaskedDirect"
	case PolicyWarpMaskedLoop:
		return "WarpMaskedLoop"
	case PolicyThreadMaskedDirect:
		return "ThreadMaskedDirect"
	case PolicyThreadMaskedLoop:
		return "ThreadMaskedLoop"
	default:
		return "Unknown"
	}
}

// BitMask extracts a bit field from a physical lane index. It is the static
// parameter of the masked policies: the loop iterate of a masked loop is the
// masked value of the executing lane, which partitions the lanes of a warp
// (or block dimension) into independent index groups.
type BitMask struct {
	bits  int
	shift int
}

// NewBitMask creates a mask selecting bits [shift, shift+bits) of a lane
// index. The mask's addressable width (1<<bits shifted group count) must fit
// in a warp; a wider mask is a configuration contract failure, reported here
// at construction and never at kernel run time.
func NewBitMask(bits, shift int) (BitMask, error) {
	if bits <= 0 {
		return BitMask{}, NewConfigError("NewBitMask", "mask must select at least one bit")
	}
	if shift < 0 {
		return BitMask{}, NewConfigError("NewBitMask", "mask shift must be non-negative")
	}
	if 1<<uint(bits) > WarpSize {
		return BitMask{}, NewConfigError("NewBitMask",
			fmt.Sprintf("mask width %d exceeds warp size %d", 1<<uint(bits), WarpSize))
	}
	if 1<<uint(bits+shift) > WarpSize {
		return BitMask{}, NewConfigError("NewBitMask",
			fmt.Sprintf("mask bits [%d,%d) extend past warp size %d", shift, shift+bits, WarpSize))
	}
	return BitMask{bits: bits, shift: shift}, nil
}

// MaskValue extracts the masked value of a lane index
func (m BitMask) MaskValue(lane int) int {
	return (lane >> uint(m.shift)) & ((1 << uint(m.bits)) - 1)
}

// MaxSize returns the number of distinct masked values
func (m BitMask) MaxSize() int {
	return 1 << uint(m.bits)
}

// Policy binds a loop level to a hardware mapping. Construct policies with
// the constructor functions below; the zero value is PolicySeq with DimX.
type Policy struct {
	Kind       PolicyKind
	Dim        Dim
	MinThreads int
	Mask       BitMask
}

// Seq returns the sequential fallback policy
func Seq() Policy {
	return Policy{Kind: PolicySeq}
}

// SIMD returns the vectorization-hinted sequential policy
func SIMD() Policy {
	return Policy{Kind: PolicySIMD}
}

// ThreadDirect maps the loop directly onto thread indices in dim
func ThreadDirect(dim Dim) Policy {
	return Policy{Kind: PolicyThreadDirect, Dim: dim}
}

// ThreadLoop makes the loop a block-stride loop over thread indices in dim.
// minThreads is the smallest thread count the dimension calculator may pick
// for the dim; zero means no floor.
func ThreadLoop(dim Dim, minThreads int) Policy {
	return Policy{Kind: PolicyThreadLoop, Dim: dim, MinThreads: minThreads}
}

// BlockDirect maps the loop directly onto block indices in dim
func BlockDirect(dim Dim) Policy {
	return Policy{Kind: PolicyBlockDirect, Dim: dim}
}

// BlockLoop makes the loop a grid-stride loop over block indices in dim
func BlockLoop(dim Dim) Policy {
	return Policy{Kind: PolicyBlockLoop, Dim: dim}
}

// WarpDirect maps the loop directly onto warp lanes
func WarpDirect() Policy {
	return Policy{Kind: PolicyWarpDirect}
}

// WarpLoop makes the loop a warp-stride loop over warp lanes
func WarpLoop() Policy {
	return Policy{Kind: PolicyWarpLoop}
}

// WarpMaskedDirect maps the loop directly onto masked warp lane values
func WarpMaskedDirect(mask BitMask) Policy {
	return Policy{Kind: PolicyWarpMaskedDirect, Mask: mask}
}

// WarpMaskedLoop makes the loop a mask-width-stride loop over masked warp
// lane values
func WarpMaskedLoop(mask BitMask) Policy {
	return Policy{Kind: PolicyWarpMaskedLoop, Mask: mask}
}

// ThreadMaskedDirect maps the loop directly onto masked thread values
func ThreadMaskedDirect(mask BitMask) Policy {
	return Policy{Kind: PolicyThreadMaskedDirect, Mask: mask}
}

// ThreadMaskedLoop makes the loop a mask-width-stride loop over masked
// thread values
func ThreadMaskedLoop(mask BitMask) Policy {
	return Policy{Kind: PolicyThreadMaskedLoop, Mask: mask}
}

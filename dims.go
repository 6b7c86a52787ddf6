package kern

import (
	"fmt"
)

// Dim3 represents 3D dimensions for grid and block configurations.
type Dim3 struct {
	X, Y, Z int
}

// Size returns the total number of elements
func (d Dim3) Size() int {
	return d.X * d.Y * d.Z
}

// Get returns the extent of one dimension
func (d Dim3) Get(dim Dim) int {
	switch dim {
	case DimX:
		return d.X
	case DimY:
		return d.Y
	default:
		return d.Z
	}
}

// set grows one dimension to at least n
func (d *Dim3) set(dim Dim, n int) {
	switch dim {
	case DimX:
		if n > d.X {
			d.X = n
		}
	case DimY:
		if n > d.Y {
			d.Y = n
		}
	default:
		if n > d.Z {
			d.Z = n
		}
	}
}

// linearTo3D converts a linear index to 3D coordinates
func linearTo3D(linear int, dim Dim3) Dim3 {
	z := linear / (dim.X * dim.Y)
	y := (linear % (dim.X * dim.Y)) / dim.X
	x := linear % dim.X
	return Dim3{X: x, Y: y, Z: z}
}

// Lane identifies a physical lane's position within the launch hierarchy,
// matching the CUDA-style blockIdx/threadIdx/blockDim/gridDim quartet.
type Lane struct {
	BlockIdx  Dim3
	ThreadIdx Dim3
	BlockDim  Dim3
	GridDim   Dim3
}

// WarpLane returns the lane's index within its warp
func (l Lane) WarpLane() int {
	return l.ThreadIdx.X % WarpSize
}

// LaunchDims holds the computed physical dimensions for one launch.
type LaunchDims struct {
	Grid      Dim3
	Block     Dim3
	SharedMem int
}

// dimRequest accumulates per-dimension requirements while walking a
// statement tree. Direct policies demand an exact fit; loop policies only
// express a preference that may be clipped to hardware maxima.
type dimRequest struct {
	blockRequired Dim3 // direct thread/warp mappings, must fit
	blockPrefer   Dim3 // strided thread/warp mappings, clippable
	gridRequired  Dim3
	gridPrefer    Dim3
}

// CalculateDims walks the statement tree against the current segment
// lengths in data and computes the launch dimensions. It is invoked before
// every launch rather than cached: the lengths bound in data may differ
// call to call. The tree may carry a top-level kernel wrapper; only nested
// wrappers are rejected.
func CalculateDims(stmt Statement, data *Data, dev *Device) (LaunchDims, error) {
	stmts := []Statement{stmt}
	if stmt.Kind == StmtKernel {
		stmts = stmt.Children
	}

	var req dimRequest
	for _, s := range stmts {
		if err := gatherDims(s, data, dev, &req); err != nil {
			return LaunchDims{}, err
		}
	}

	block := req.blockRequired
	block.set(DimX, req.blockPrefer.X)
	block.set(DimY, req.blockPrefer.Y)
	block.set(DimZ, req.blockPrefer.Z)
	block.set(DimX, 1)
	block.set(DimY, 1)
	block.set(DimZ, 1)

	// unused dimensions count as extent 1 when sizing the required block
	required := req.blockRequired
	required.set(DimX, 1)
	required.set(DimY, 1)
	required.set(DimZ, 1)
	if required.Size() > MaxThreadsPerBlock {
		return LaunchDims{}, NewConfigError("CalculateDims",
			fmt.Sprintf("direct-mapped loops require %d threads per block, max is %d",
				required.Size(), MaxThreadsPerBlock))
	}
	// Preferences from strided loops are clippable; shrink X first since the
	// strided executors cover any remainder.
	for block.Size() > MaxThreadsPerBlock && block.X > max(req.blockRequired.X, 1) {
		block.X = (block.X + 1) / 2
	}
	for block.Size() > MaxThreadsPerBlock && block.Y > max(req.blockRequired.Y, 1) {
		block.Y = (block.Y + 1) / 2
	}
	for block.Size() > MaxThreadsPerBlock && block.Z > max(req.blockRequired.Z, 1) {
		block.Z = (block.Z + 1) / 2
	}

	grid := req.gridRequired
	grid.set(DimX, req.gridPrefer.X)
	grid.set(DimY, req.gridPrefer.Y)
	grid.set(DimZ, req.gridPrefer.Z)
	grid.set(DimX, 1)
	grid.set(DimY, 1)
	grid.set(DimZ, 1)

	return LaunchDims{Grid: grid, Block: block}, nil
}

func gatherDims(stmt Statement, data *Data, dev *Device, req *dimRequest) error {
	switch stmt.Kind {
	case StmtFor, StmtForICount:
		if err := gatherForDims(stmt, data, dev, req); err != nil {
			return err
		}
	case StmtLambda:
		return nil
	case StmtKernel:
		// launch boundaries do not nest
		return NewConfigError("CalculateDims", "nested kernel launch statement")
	}
	for _, child := range stmt.Children {
		if err := gatherDims(child, data, dev, req); err != nil {
			return err
		}
	}
	return nil
}

func gatherForDims(stmt Statement, data *Data, dev *Device, req *dimRequest) error {
	length := data.segmentLen(stmt.Arg)
	pol := stmt.Policy

	switch pol.Kind {
	case PolicySeq, PolicySIMD:
		// runs in-lane, no physical dimension request

	case PolicyThreadDirect:
		if length > MaxThreadsPerBlock {
			return NewConfigError("CalculateDims",
				fmt.Sprintf("thread-direct loop of length %d exceeds max block size %d",
					length, MaxThreadsPerBlock))
		}
		req.blockRequired.set(pol.Dim, length)

	case PolicyThreadLoop:
		want := min(length, DefaultBlockSize)
		want = max(want, pol.MinThreads)
		req.blockPrefer.set(pol.Dim, want)

	case PolicyBlockDirect:
		if length > MaxBlocksPerDim {
			return NewConfigError("CalculateDims",
				fmt.Sprintf("block-direct loop of length %d exceeds max grid size %d",
					length, MaxBlocksPerDim))
		}
		req.gridRequired.set(pol.Dim, length)

	case PolicyBlockLoop:
		req.gridPrefer.set(pol.Dim, min(length, dev.DefaultGridSize()))

	case PolicyWarpDirect:
		if length > WarpSize {
			return NewConfigError("CalculateDims",
				fmt.Sprintf("warp-direct loop of length %d exceeds warp size %d",
					length, WarpSize))
		}
		req.blockRequired.set(DimX, WarpSize)

	case PolicyWarpLoop:
		req.blockRequired.set(DimX, WarpSize)

	case PolicyWarpMaskedDirect, PolicyThreadMaskedDirect:
		if length > pol.Mask.MaxSize() {
			return NewConfigError("CalculateDims",
				fmt.Sprintf("masked-direct loop of length %d exceeds mask width %d",
					length, pol.Mask.MaxSize()))
		}
		req.blockRequired.set(DimX, WarpSize)

	case PolicyWarpMaskedLoop, PolicyThreadMaskedLoop:
		req.blockRequired.set(DimX, WarpSize)
	}
	return nil
}

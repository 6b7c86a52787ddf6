package kern

import (
	"runtime"

	"golang.org/x/sys/cpu"
)

// Device describes the compute device a Context schedules onto. The engine
// emulates a GPU-shaped machine on the host CPU: blocks are distributed over
// cores, threads within a block run on one core, and the SIMD width informs
// vector-hinted policies.
type Device struct {
	ID        int    // Unique device identifier
	Name      string // Human-readable device name
	NumCores  int    // Number of CPU cores
	SIMDWidth int    // float32 lanes of the widest available vector unit
}

// NewDevice probes the host and returns its device description.
func NewDevice() *Device {
	return &Device{
		ID:        0,
		Name:      "CPU",
		NumCores:  runtime.NumCPU(),
		SIMDWidth: simdWidth(),
	}
}

// DefaultGridSize returns the block count the dimension calculator prefers
// for grid-stride loops with no explicit request. Oversubscribing the cores
// keeps them busy when blocks finish unevenly.
func (d *Device) DefaultGridSize() int {
	return d.NumCores * 4
}

// simdWidth detects the float32 lane count of the widest vector extension
func simdWidth() int {
	switch {
	case cpu.X86.HasAVX512F:
		return 16
	case cpu.X86.HasAVX2:
		return 8
	case cpu.X86.HasSSE41 || cpu.X86.HasSSE42:
		return 4
	case cpu.ARM64.HasASIMD:
		return 4
	default:
		return 1
	}
}

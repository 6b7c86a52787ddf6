package kern

import (
	"math"
	"sync/atomic"
)

// Reducers accumulate a value across concurrently executing loop bodies.
// Several independent reducers may be folded into from the same loop at
// once; each reducer's final value is as if the loop had run sequentially.
//
// Combining is lock-free: the running value is kept as float64 bits in an
// atomic word and updated with a compare-and-swap loop. The combine
// operator must be associative and commutative.

// Reducer accumulates float64 values with an associative, commutative
// combine operator starting from its identity.
type Reducer struct {
	bits     atomic.Uint64
	identity float64
	combine  func(a, b float64) float64
}

// NewReduceSum creates a sum reducer
func NewReduceSum() *Reducer {
	return newReducer(0, func(a, b float64) float64 { return a + b })
}

// NewReduceMax creates a max reducer
func NewReduceMax() *Reducer {
	return newReducer(math.Inf(-1), math.Max)
}

// NewReduceMin creates a min reducer
func NewReduceMin() *Reducer {
	return newReducer(math.Inf(1), math.Min)
}

func newReducer(identity float64, combine func(a, b float64) float64) *Reducer {
	r := &Reducer{identity: identity, combine: combine}
	r.bits.Store(math.Float64bits(identity))
	return r
}

// Reduce folds v into the running value. Safe to call from any number of
// lanes concurrently.
func (r *Reducer) Reduce(v float64) {
	for {
		old := r.bits.Load()
		next := math.Float64bits(r.combine(math.Float64frombits(old), v))
		if next == old || r.bits.CompareAndSwap(old, next) {
			return
		}
	}
}

// Value returns the current accumulated value. Only meaningful once the
// loops folding into the reducer have completed or synchronized.
func (r *Reducer) Value() float64 {
	return math.Float64frombits(r.bits.Load())
}

// Reset restores the reducer to its identity for reuse in a later launch
func (r *Reducer) Reset() {
	r.bits.Store(math.Float64bits(r.identity))
}

package kern

import (
	"golang.org/x/exp/constraints"
)

// Segment describes an iteration domain: a fixed-length ordered set of
// indices. Segments are immutable once constructed. Executors reference a
// segment for the duration of a single kernel invocation; they never take
// ownership.
type Segment interface {
	// Len returns the number of indices in the domain
	Len() int
	// At returns the i-th index of the domain, 0 <= i < Len()
	At(i int) int
}

// RangeSegment is a contiguous [begin, end) index range.
type RangeSegment struct {
	begin int
	end   int
}

// NewRangeSegment creates a segment over [begin, end). An empty or inverted
// range has length zero.
func NewRangeSegment(begin, end int) RangeSegment {
	if end < begin {
		end = begin
	}
	return RangeSegment{begin: begin, end: end}
}

// NewTypedRangeSegment creates a range segment from any integer index type.
func NewTypedRangeSegment[T constraints.Integer](begin, end T) RangeSegment {
	return NewRangeSegment(int(begin), int(end))
}

// Len returns the number of indices in the range
func (s RangeSegment) Len() int {
	return s.end - s.begin
}

// At returns begin+i
func (s RangeSegment) At(i int) int {
	return s.begin + i
}

// Begin returns the first index of the range
func (s RangeSegment) Begin() int {
	return s.begin
}

// End returns one past the last index of the range
func (s RangeSegment) End() int {
	return s.end
}

// ListSegment is an arbitrary ordered index list.
type ListSegment struct {
	indices []int
}

// NewListSegment creates a segment over an explicit index list. The list is
// copied so later mutation of the caller's slice cannot change the domain.
func NewListSegment(indices []int) ListSegment {
	own := make([]int, len(indices))
	copy(own, indices)
	return ListSegment{indices: own}
}

// NewTypedListSegment creates a list segment from any integer index type.
func NewTypedListSegment[T constraints.Integer](indices []T) ListSegment {
	own := make([]int, len(indices))
	for i, v := range indices {
		own[i] = int(v)
	}
	return ListSegment{indices: own}
}

// Len returns the number of indices in the list
func (s ListSegment) Len() int {
	return len(s.indices)
}

// At returns the i-th index of the list
func (s ListSegment) At(i int) int {
	return s.indices[i]
}

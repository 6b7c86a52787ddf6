package kern

import (
	"testing"
)

func TestRangeSegment(t *testing.T) {
	cases := []struct {
		begin, end int
		length     int
	}{
		{0, 0, 0},
		{0, 10, 10},
		{5, 12, 7},
		{-3, 3, 6},
		{10, 5, 0}, // inverted clamps to empty
	}

	for _, tc := range cases {
		seg := NewRangeSegment(tc.begin, tc.end)
		if seg.Len() != tc.length {
			t.Errorf("NewRangeSegment(%d, %d).Len() = %d, want %d",
				tc.begin, tc.end, seg.Len(), tc.length)
		}
		for i := 0; i < seg.Len(); i++ {
			if seg.At(i) != tc.begin+i {
				t.Errorf("range [%d,%d) At(%d) = %d, want %d",
					tc.begin, tc.end, i, seg.At(i), tc.begin+i)
			}
		}
	}
}

func TestListSegment(t *testing.T) {
	indices := []int{42, 7, 7, 0, 1000}
	seg := NewListSegment(indices)

	if seg.Len() != len(indices) {
		t.Fatalf("Len() = %d, want %d", seg.Len(), len(indices))
	}
	for i, want := range indices {
		if seg.At(i) != want {
			t.Errorf("At(%d) = %d, want %d", i, seg.At(i), want)
		}
	}

	// the segment must own its indices
	indices[0] = -1
	if seg.At(0) != 42 {
		t.Errorf("segment aliases caller slice: At(0) = %d after mutation", seg.At(0))
	}
}

func TestTypedSegments(t *testing.T) {
	rs := NewTypedRangeSegment(int32(3), int32(8))
	if rs.Len() != 5 || rs.At(0) != 3 {
		t.Errorf("typed range: Len=%d At(0)=%d", rs.Len(), rs.At(0))
	}

	ls := NewTypedListSegment([]uint16{9, 4, 2})
	if ls.Len() != 3 || ls.At(1) != 4 {
		t.Errorf("typed list: Len=%d At(1)=%d", ls.Len(), ls.At(1))
	}
}

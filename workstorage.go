package kern

import (
	"encoding/binary"
)

// Work-group dispatch-table storage. An instantiated group owns a byte
// arena obtained from the caller's Allocator; each enqueued entry's segment
// is serialized into the arena as a record, and the run phase reads the
// iteration domains back through arena-backed segment views. Lambda bodies
// live in an ordinary slice alongside the arena since function values
// cannot be serialized.

// WorkStorage selects the physical layout of the dispatch table.
type WorkStorage int

const (
	// ArrayOfEntries keeps per-entry objects separately and stores only the
	// entry order; suited to ordered per-entry launches
	ArrayOfEntries WorkStorage = iota
	// RaggedArrayOfObjects packs variable-size records contiguously with an
	// offset table; suited to host back-ends
	RaggedArrayOfObjects
	// ConstantStrideArrayOfObjects packs records at a fixed stride sized to
	// the largest entry, enabling uniform indexed dispatch from within one
	// fused launch
	ConstantStrideArrayOfObjects
)

// record header words, little endian int64
const (
	recKindRange = 0
	recKindList  = 1
	recWordSize  = 8
)

// workEntry is the host-side staging form of one enqueued loop
type workEntry struct {
	seg  Segment
	body func(i int)
}

// recordSize returns the serialized byte size of an entry's segment
func recordSize(seg Segment) int {
	switch s := seg.(type) {
	case RangeSegment:
		return 3 * recWordSize // kind, begin, len
	case ListSegment:
		return (2 + s.Len()) * recWordSize // kind, len, indices
	default:
		// unknown segment types degrade to a list record
		return (2 + seg.Len()) * recWordSize
	}
}

// encodeRecord serializes an entry's segment at buf and returns the bytes
// written
func encodeRecord(buf []byte, seg Segment) int {
	switch s := seg.(type) {
	case RangeSegment:
		binary.LittleEndian.PutUint64(buf[0:], recKindRange)
		binary.LittleEndian.PutUint64(buf[recWordSize:], uint64(int64(s.Begin())))
		binary.LittleEndian.PutUint64(buf[2*recWordSize:], uint64(int64(s.Len())))
		return 3 * recWordSize
	default:
		binary.LittleEndian.PutUint64(buf[0:], recKindList)
		n := seg.Len()
		binary.LittleEndian.PutUint64(buf[recWordSize:], uint64(int64(n)))
		for i := 0; i < n; i++ {
			binary.LittleEndian.PutUint64(buf[(2+i)*recWordSize:], uint64(int64(seg.At(i))))
		}
		return (2 + n) * recWordSize
	}
}

// arenaSegment is a Segment view reading its domain out of an arena record
type arenaSegment struct {
	rec []byte
}

// Len returns the record's domain length
func (a arenaSegment) Len() int {
	kind := binary.LittleEndian.Uint64(a.rec[0:])
	if kind == recKindRange {
		return int(int64(binary.LittleEndian.Uint64(a.rec[2*recWordSize:])))
	}
	return int(int64(binary.LittleEndian.Uint64(a.rec[recWordSize:])))
}

// At returns the record's i-th index
func (a arenaSegment) At(i int) int {
	kind := binary.LittleEndian.Uint64(a.rec[0:])
	if kind == recKindRange {
		begin := int(int64(binary.LittleEndian.Uint64(a.rec[recWordSize:])))
		return begin + i
	}
	return int(int64(binary.LittleEndian.Uint64(a.rec[(2+i)*recWordSize:])))
}

// storageTable is the immutable dispatch table of an instantiated group
type storageTable struct {
	layout WorkStorage
	count  int
	bodies []func(i int)

	// ArrayOfEntries keeps the staged segments directly
	segs []Segment

	// arena-backed layouts
	arena   []byte
	offsets []int // per-record byte offsets (ragged)
	stride  int   // fixed record stride (constant stride)
}

// packStorage builds the dispatch table for the chosen layout, drawing the
// arena from alloc. The entries slice is consumed.
func packStorage(entries []workEntry, layout WorkStorage, alloc Allocator) (*storageTable, error) {
	t := &storageTable{layout: layout, count: len(entries)}
	t.bodies = make([]func(i int), len(entries))
	for i := range entries {
		t.bodies[i] = entries[i].body
	}

	switch layout {
	case ArrayOfEntries:
		t.segs = make([]Segment, len(entries))
		for i := range entries {
			t.segs[i] = entries[i].seg
		}
		return t, nil

	case RaggedArrayOfObjects:
		total := 0
		t.offsets = make([]int, len(entries))
		for i := range entries {
			t.offsets[i] = total
			total += alignUp(recordSize(entries[i].seg), ArenaAlignment)
		}
		if total == 0 {
			return t, nil
		}
		arena, err := alloc.Allocate(total)
		if err != nil {
			return nil, NewResourceError("Instantiate", "work storage arena allocation failed", err)
		}
		t.arena = arena
		for i := range entries {
			encodeRecord(arena[t.offsets[i]:], entries[i].seg)
		}
		return t, nil

	case ConstantStrideArrayOfObjects:
		stride := 0
		for i := range entries {
			stride = max(stride, recordSize(entries[i].seg))
		}
		stride = alignUp(stride, ArenaAlignment)
		t.stride = stride
		if stride == 0 || len(entries) == 0 {
			return t, nil
		}
		arena, err := alloc.Allocate(stride * len(entries))
		if err != nil {
			return nil, NewResourceError("Instantiate", "work storage arena allocation failed", err)
		}
		t.arena = arena
		for i := range entries {
			encodeRecord(arena[i*stride:], entries[i].seg)
		}
		return t, nil

	default:
		return nil, NewConfigError("Instantiate", "unknown work storage layout")
	}
}

// segment returns the i-th entry's iteration domain, reading arena-backed
// layouts through a view
func (t *storageTable) segment(i int) Segment {
	switch t.layout {
	case ArrayOfEntries:
		return t.segs[i]
	case RaggedArrayOfObjects:
		return arenaSegment{rec: t.arena[t.offsets[i]:]}
	default:
		return arenaSegment{rec: t.arena[i*t.stride:]}
	}
}

// release returns the arena to alloc and drops the table's references
func (t *storageTable) release(alloc Allocator) {
	if t.arena != nil {
		alloc.Deallocate(t.arena)
		t.arena = nil
	}
	t.bodies = nil
	t.segs = nil
	t.offsets = nil
	t.count = 0
}

// alignUp rounds n up to a multiple of align
func alignUp(n, align int) int {
	return (n + align - 1) / align * align
}

package kern

import (
	"fmt"
	"sort"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"
)

// The deferred-execution pipeline: many independent loop bodies over
// segments of differing lengths are enqueued into a WorkPool, instantiated
// into an immutable WorkGroup dispatch table, and run as a fused launch (or
// an ordered sequence of launches) yielding a WorkSite whose Wait is the
// synchronization boundary.
//
//	pool := kern.NewWorkPool(policy, alloc)
//	pool.Enqueue(seg1, body1)
//	pool.Enqueue(seg2, body2)
//	group, _ := pool.Instantiate() // pool is empty and reusable
//	site, _ := group.Run(ctx, nil)
//	err := site.Wait()             // bodies' effects visible after this
//	group.Free()

// WorkOrder selects the run semantics of a group.
type WorkOrder int

const (
	// Ordered issues one launch per entry, strictly in enqueue order. Needed
	// when call order matters for correctness.
	Ordered WorkOrder = iota
	// Unordered issues a single fused launch dispatching internally to every
	// entry; relative entry order is unspecified.
	Unordered
)

// WorkGroupPolicy selects run ordering and dispatch-table layout.
type WorkGroupPolicy struct {
	Order   WorkOrder
	Storage WorkStorage
}

// WorkPool accumulates enqueued loops. It is a single-writer staging
// buffer: concurrent Enqueue calls, or an Enqueue concurrent with
// Instantiate, require external locking.
type WorkPool struct {
	policy  WorkGroupPolicy
	alloc   Allocator
	entries []workEntry
}

// NewWorkPool creates a pool using alloc for all dispatch-table storage.
// The allocator is required; the engine never assumes a default memory
// strategy.
func NewWorkPool(policy WorkGroupPolicy, alloc Allocator) (*WorkPool, error) {
	if alloc == nil {
		return nil, NewConfigError("NewWorkPool", "allocator is required")
	}
	return &WorkPool{policy: policy, alloc: alloc}, nil
}

// Enqueue stores a dispatch-table entry binding the segment's iteration
// domain and a loop body. Pure host-side operation; nothing executes until
// the instantiated group is run.
func (p *WorkPool) Enqueue(seg Segment, body func(i int)) {
	p.entries = append(p.entries, workEntry{seg: seg, body: body})
}

// Len returns the number of enqueued entries
func (p *WorkPool) Len() int {
	return len(p.entries)
}

// Instantiate moves the pool's entries into an immutable WorkGroup dispatch
// table. The pool is left empty and may be reused for the next cycle
// immediately.
func (p *WorkPool) Instantiate() (*WorkGroup, error) {
	entries := p.entries
	p.entries = nil

	table, err := packStorage(entries, p.policy.Storage, p.alloc)
	if err != nil {
		return nil, err
	}
	klog.V(3).Infof("work group instantiated: %d entries, layout %d", table.count, p.policy.Storage)
	return &WorkGroup{policy: p.policy, alloc: p.alloc, table: table}, nil
}

// WorkGroup is an instantiated, fixed dispatch table ready to run. A group
// may be run repeatedly; Free releases its arena once the last site has
// been waited on.
type WorkGroup struct {
	policy WorkGroupPolicy
	alloc  Allocator
	table  *storageTable
	freed  bool
}

// Len returns the number of entries in the dispatch table
func (g *WorkGroup) Len() int {
	return g.table.count
}

// Run executes every entry and returns a WorkSite tracking completion. If
// stream is nil the context's default stream is used.
func (g *WorkGroup) Run(ctx *Context, stream *Stream) (*WorkSite, error) {
	if g.freed {
		return nil, NewExecutionError("Run", "work group storage already freed", nil)
	}
	if stream == nil {
		stream = ctx.DefaultStream()
	}
	if g.table.count == 0 {
		return &WorkSite{ev: completedEvent(nil)}, nil
	}

	switch g.policy.Order {
	case Ordered:
		return g.runOrdered(ctx, stream)
	default:
		return g.runFused(ctx, stream)
	}
}

// runOrdered issues one launch per entry; stream serialization preserves
// strict enqueue order between the launches.
func (g *WorkGroup) runOrdered(ctx *Context, stream *Stream) (*WorkSite, error) {
	table := g.table
	ev := newEvent()

	err := stream.Submit(func() {
		var firstErr error
		for i := 0; i < table.count; i++ {
			seg := table.segment(i)
			body := table.bodies[i]
			if err := Forall(ctx, ThreadLoop(DimX, 0), seg, body); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		ev.signal(firstErr)
	})
	if err != nil {
		return nil, err
	}
	return &WorkSite{ev: ev}, nil
}

// runFused issues a single launch over the flattened (entry, iteration)
// space. Workers locate their entry through the iteration prefix table, so
// many small loops cost one launch.
func (g *WorkGroup) runFused(ctx *Context, stream *Stream) (*WorkSite, error) {
	table := g.table

	// prefix[i] is the flat offset of entry i's first iteration
	prefix := make([]int, table.count+1)
	for i := 0; i < table.count; i++ {
		prefix[i+1] = prefix[i] + table.segment(i).Len()
	}
	total := prefix[table.count]

	ev := newEvent()
	err := stream.Submit(func() {
		if total == 0 {
			ev.signal(nil)
			return
		}
		numWorkers := min(ctx.device.NumCores, total)
		chunk := (total + numWorkers - 1) / numWorkers

		var eg errgroup.Group
		for w := 0; w < numWorkers; w++ {
			start := w * chunk
			end := min(start+chunk, total)
			if start >= end {
				continue
			}

			eg.Go(func() (err error) {
				defer func() {
					if r := recover(); r != nil {
						err = NewExecutionError("Run",
							fmt.Sprintf("work group body panicked: %v", r),
							errors.Errorf("%v", r))
					}
				}()

				// entry containing the first flat index of this chunk
				e := sort.SearchInts(prefix, start+1) - 1
				for flat := start; flat < end; {
					for prefix[e+1] <= flat {
						e++
					}
					seg := table.segment(e)
					body := table.bodies[e]
					stop := min(end, prefix[e+1])
					for ; flat < stop; flat++ {
						body(seg.At(flat - prefix[e]))
					}
				}
				return nil
			})
		}
		ev.signal(eg.Wait())
	})
	if err != nil {
		return nil, err
	}
	return &WorkSite{ev: ev}, nil
}

// Free releases the group's dispatch-table arena back to its allocator.
// Callers must wait on every site produced by Run first.
func (g *WorkGroup) Free() {
	if g.freed {
		return
	}
	g.freed = true
	g.table.release(g.alloc)
}

// WorkSite is the execution handle of one Run. Wait is the mandatory
// synchronization boundary: after it returns, every enqueued body's side
// effects are visible and it is safe to mutate or free the buffers the
// bodies touched, including the group's arena.
type WorkSite struct {
	ev *Event
}

// Wait blocks until every entry of the run has completed
func (s *WorkSite) Wait() error {
	return s.ev.Wait()
}

// Done returns a channel closed when the run has completed
func (s *WorkSite) Done() <-chan struct{} {
	return s.ev.Done()
}

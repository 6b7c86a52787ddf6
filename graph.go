package kern

import (
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// DAG is an explicit dependency-graph executor for task ordering the nested
// loop statement model cannot express. Nodes own callables; directed edges
// order them: a node runs only after every predecessor has completed, and
// nodes with no path between them may run in any relative order (or in
// parallel under GraphParallel).
//
// Nodes are addressed by NodeHandle, an index into the DAG's node arena;
// handles stay valid as the graph grows. A DAG may be executed repeatedly:
// structure is idempotent and completion state is private to each run.

// GraphPolicy selects how eligible nodes are scheduled.
type GraphPolicy int

const (
	// GraphSeq runs nodes one at a time in a valid topological order
	GraphSeq GraphPolicy = iota
	// GraphParallel runs eligible nodes concurrently
	GraphParallel
)

// NodeHandle addresses a node within its owning DAG.
type NodeHandle int

type graphNode struct {
	fn    func() error
	succs []NodeHandle
	preds int
}

// DAG owns its nodes for its lifetime. It is not safe for concurrent
// structural mutation; build the graph from one goroutine, then Exec.
type DAG struct {
	policy GraphPolicy
	nodes  []graphNode
}

// NewDAG creates an empty graph with the given scheduling policy
func NewDAG(policy GraphPolicy) *DAG {
	return &DAG{policy: policy}
}

// Empty reports whether the graph has no nodes. Execution state does not
// affect it.
func (d *DAG) Empty() bool {
	return len(d.nodes) == 0
}

// Len returns the node count
func (d *DAG) Len() int {
	return len(d.nodes)
}

// AddNode adds a callable as a new disconnected node and returns its handle
func (d *DAG) AddNode(fn func() error) NodeHandle {
	d.nodes = append(d.nodes, graphNode{fn: fn})
	return NodeHandle(len(d.nodes) - 1)
}

// AddFunction adds a callable that cannot fail
func (d *DAG) AddFunction(fn func()) NodeHandle {
	return d.AddNode(func() error {
		fn()
		return nil
	})
}

// AddEdge orders from before to. Cycle creation is not detected here; a
// cycle surfaces as a graph error at Exec.
func (d *DAG) AddEdge(from, to NodeHandle) error {
	if !d.valid(from) || !d.valid(to) {
		return NewGraphError("AddEdge", "node handle out of range")
	}
	if from == to {
		return NewGraphError("AddEdge", "self edge")
	}
	d.nodes[from].succs = append(d.nodes[from].succs, to)
	d.nodes[to].preds++
	return nil
}

// AddDependentNode adds a node ordered after every node in deps
func (d *DAG) AddDependentNode(fn func() error, deps ...NodeHandle) (NodeHandle, error) {
	h := d.AddNode(fn)
	for _, dep := range deps {
		if err := d.AddEdge(dep, h); err != nil {
			return h, err
		}
	}
	return h, nil
}

func (d *DAG) valid(h NodeHandle) bool {
	return h >= 0 && int(h) < len(d.nodes)
}

// Exec submits a topological traversal of the graph onto the stream and
// returns an Event signaled when every node has completed. An empty graph
// completes immediately. If stream is nil the context's default stream is
// used.
//
// A dependency cycle is detected by exhausted traversal progress and
// reported as a graph error on the event, never as a deadlock.
func (d *DAG) Exec(ctx *Context, stream *Stream) (*Event, error) {
	if stream == nil {
		stream = ctx.DefaultStream()
	}
	if len(d.nodes) == 0 {
		return completedEvent(nil), nil
	}

	ev := newEvent()
	err := stream.Submit(func() {
		if d.policy == GraphParallel {
			ev.signal(d.execParallel())
		} else {
			ev.signal(d.execSequential())
		}
	})
	if err != nil {
		return nil, err
	}
	return ev, nil
}

// execSequential runs a Kahn traversal in the submitting task
func (d *DAG) execSequential() error {
	n := len(d.nodes)
	indeg := make([]int, n)
	queue := make([]NodeHandle, 0, n)
	for i := range d.nodes {
		indeg[i] = d.nodes[i].preds
		if indeg[i] == 0 {
			queue = append(queue, NodeHandle(i))
		}
	}

	processed := 0
	for len(queue) > 0 {
		h := queue[0]
		queue = queue[1:]
		if err := d.nodes[h].fn(); err != nil {
			return err
		}
		processed++
		for _, s := range d.nodes[h].succs {
			indeg[s]--
			if indeg[s] == 0 {
				queue = append(queue, s)
			}
		}
	}

	if processed != n {
		return NewGraphError("Exec",
			fmt.Sprintf("dependency cycle: only %d of %d nodes runnable", processed, n))
	}
	return nil
}

// execParallel schedules each node as soon as its last predecessor
// completes. Sibling interleaving is unspecified; only the edge ordering is
// guaranteed.
func (d *DAG) execParallel() error {
	n := len(d.nodes)
	indeg := make([]atomic.Int32, n)
	for i := range d.nodes {
		indeg[i].Store(int32(d.nodes[i].preds))
	}

	var processed atomic.Int32
	var eg errgroup.Group

	// spawning a successor happens inside a still-running node goroutine,
	// so the group's counter never reaches zero while work remains and
	// eg.Wait cannot return early
	var schedule func(h NodeHandle)
	schedule = func(h NodeHandle) {
		eg.Go(func() error {
			if err := d.nodes[h].fn(); err != nil {
				return err
			}
			processed.Add(1)
			for _, s := range d.nodes[h].succs {
				if indeg[s].Add(-1) == 0 {
					schedule(s)
				}
			}
			return nil
		})
	}

	for i := range d.nodes {
		if d.nodes[i].preds == 0 {
			schedule(NodeHandle(i))
		}
	}

	if err := eg.Wait(); err != nil {
		return err
	}
	if int(processed.Load()) != n {
		return NewGraphError("Exec",
			fmt.Sprintf("dependency cycle: only %d of %d nodes runnable", processed.Load(), n))
	}
	return nil
}

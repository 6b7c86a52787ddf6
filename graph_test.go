package kern

import (
	"fmt"
	"math/rand"
	"sync/atomic"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var graphPolicies = []struct {
	name string
	pol  GraphPolicy
}{
	{"Seq", GraphSeq},
	{"Parallel", GraphParallel},
}

// execAndWait runs the graph on the default stream and waits
func execAndWait(t *testing.T, ctx *Context, d *DAG) error {
	t.Helper()
	ev, err := d.Exec(ctx, nil)
	require.NoError(t, err)
	return ev.Wait()
}

func TestDAGEmpty(t *testing.T) {
	ctx := NewContext()
	defer ctx.Destroy()

	for _, gp := range graphPolicies {
		t.Run(gp.name, func(t *testing.T) {
			d := NewDAG(gp.pol)
			assert.True(t, d.Empty())
			assert.Equal(t, 0, d.Len())
			assert.NoError(t, execAndWait(t, ctx, d))
		})
	}
}

func TestDAGSingleNode(t *testing.T) {
	ctx := NewContext()
	defer ctx.Destroy()

	for _, gp := range graphPolicies {
		t.Run(gp.name, func(t *testing.T) {
			d := NewDAG(gp.pol)
			ran := 0
			d.AddFunction(func() { ran++ })
			assert.False(t, d.Empty())

			require.NoError(t, execAndWait(t, ctx, d))
			assert.Equal(t, 1, ran)
		})
	}
}

// finishOrder instruments every node of a graph with a completion stamp
// so edge ordering can be asserted after a parallel run.
type finishOrder struct {
	clock atomic.Int64
	stamp []int64
}

func newFinishOrder(n int) *finishOrder {
	return &finishOrder{stamp: make([]int64, n)}
}

func (f *finishOrder) node(d *DAG, i int) NodeHandle {
	return d.AddFunction(func() {
		f.stamp[i] = f.clock.Add(1)
	})
}

func (f *finishOrder) assertEdges(t *testing.T, edges [][2]int) {
	t.Helper()
	for _, e := range edges {
		assert.Less(t, f.stamp[e[0]], f.stamp[e[1]],
			"node %d must finish before node %d", e[0], e[1])
	}
	for i, s := range f.stamp {
		assert.Positive(t, s, "node %d never ran", i)
	}
}

func TestDAGDiamond(t *testing.T) {
	ctx := NewContext()
	defer ctx.Destroy()

	edges := [][2]int{{0, 1}, {0, 2}, {1, 3}, {2, 3}}
	for _, gp := range graphPolicies {
		t.Run(gp.name, func(t *testing.T) {
			d := NewDAG(gp.pol)
			f := newFinishOrder(4)
			handles := make([]NodeHandle, 4)
			for i := range handles {
				handles[i] = f.node(d, i)
			}
			for _, e := range edges {
				require.NoError(t, d.AddEdge(handles[e[0]], handles[e[1]]))
			}

			require.NoError(t, execAndWait(t, ctx, d))
			f.assertEdges(t, edges)
		})
	}
}

func TestDAGChainedDiamonds(t *testing.T) {
	ctx := NewContext()
	defer ctx.Destroy()

	// six diamonds joined head to tail, plus a final sink: 20 nodes
	var edges [][2]int
	n := 1
	for k := 0; k < 6; k++ {
		top := n - 1
		l, r, bottom := n, n+1, n+2
		if k == 0 {
			top, l, r, bottom = 0, 1, 2, 3
			n = 4
		} else {
			n += 3
		}
		edges = append(edges, [2]int{top, l}, [2]int{top, r}, [2]int{l, bottom}, [2]int{r, bottom})
	}
	edges = append(edges, [2]int{n - 1, n})
	n++

	for _, gp := range graphPolicies {
		t.Run(gp.name, func(t *testing.T) {
			d := NewDAG(gp.pol)
			f := newFinishOrder(n)
			for i := 0; i < n; i++ {
				f.node(d, i)
			}
			for _, e := range edges {
				require.NoError(t, d.AddEdge(NodeHandle(e[0]), NodeHandle(e[1])))
			}

			require.NoError(t, execAndWait(t, ctx, d))
			f.assertEdges(t, edges)
		})
	}
}

func TestDAGRandomAcyclic(t *testing.T) {
	ctx := NewContext()
	defer ctx.Destroy()

	rng := rand.New(rand.NewSource(1009))
	for _, gp := range graphPolicies {
		for _, n := range []int{16, 128, 1024} {
			t.Run(fmt.Sprintf("%s-%d", gp.name, n), func(t *testing.T) {
				// edges only go from lower to higher index, so the graph
				// is acyclic by construction
				var edges [][2]int
				for u := 0; u < n-1; u++ {
					for k := 0; k < 3; k++ {
						v := u + 1 + rng.Intn(n-u-1)
						edges = append(edges, [2]int{u, v})
					}
				}

				d := NewDAG(gp.pol)
				f := newFinishOrder(n)
				for i := 0; i < n; i++ {
					f.node(d, i)
				}
				for _, e := range edges {
					require.NoError(t, d.AddEdge(NodeHandle(e[0]), NodeHandle(e[1])))
				}

				require.NoError(t, execAndWait(t, ctx, d))
				f.assertEdges(t, edges)
			})
		}
	}
}

func TestDAGCycleDetected(t *testing.T) {
	ctx := NewContext()
	defer ctx.Destroy()

	for _, gp := range graphPolicies {
		t.Run(gp.name, func(t *testing.T) {
			d := NewDAG(gp.pol)
			ran := make([]bool, 4)
			for i := 0; i < 4; i++ {
				i := i
				d.AddFunction(func() { ran[i] = true })
			}
			// 0 → 1 → 2 → 1 traps nodes 1 and 2; node 3 stays free
			require.NoError(t, d.AddEdge(0, 1))
			require.NoError(t, d.AddEdge(1, 2))
			require.NoError(t, d.AddEdge(2, 1))

			err := execAndWait(t, ctx, d)
			require.Error(t, err)
			assert.True(t, IsGraphError(err), "got %v", err)
			assert.False(t, ran[1])
			assert.False(t, ran[2])
		})
	}
}

func TestDAGReExecution(t *testing.T) {
	ctx := NewContext()
	defer ctx.Destroy()

	for _, gp := range graphPolicies {
		t.Run(gp.name, func(t *testing.T) {
			d := NewDAG(gp.pol)
			var runs [3]atomic.Int64
			a := d.AddFunction(func() { runs[0].Add(1) })
			b := d.AddFunction(func() { runs[1].Add(1) })
			c, err := d.AddDependentNode(func() error {
				runs[2].Add(1)
				return nil
			}, a, b)
			require.NoError(t, err)
			_ = c

			for round := 0; round < 4; round++ {
				require.NoError(t, execAndWait(t, ctx, d))
			}
			for i := range runs {
				assert.Equal(t, int64(4), runs[i].Load(), "node %d", i)
			}
		})
	}
}

func TestDAGNodeErrorPropagates(t *testing.T) {
	ctx := NewContext()
	defer ctx.Destroy()

	boom := errors.New("boom")
	for _, gp := range graphPolicies {
		t.Run(gp.name, func(t *testing.T) {
			d := NewDAG(gp.pol)
			a := d.AddNode(func() error { return boom })
			downstream := false
			_, err := d.AddDependentNode(func() error {
				downstream = true
				return nil
			}, a)
			require.NoError(t, err)

			err = execAndWait(t, ctx, d)
			require.ErrorIs(t, err, boom)
			assert.False(t, downstream, "successor of failed node must not run")
		})
	}
}

func TestDAGAddEdgeValidation(t *testing.T) {
	d := NewDAG(GraphSeq)
	a := d.AddFunction(func() {})
	b := d.AddFunction(func() {})

	require.NoError(t, d.AddEdge(a, b))
	assert.Error(t, d.AddEdge(a, a))
	assert.Error(t, d.AddEdge(a, NodeHandle(99)))
	assert.Error(t, d.AddEdge(NodeHandle(-1), b))
}

package kern

import (
	"fmt"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Forall applies body to every index of seg under the given policy. It is
// the flat-loop entry point for kernels with no interesting nesting
// structure; the statement-tree machinery is bypassed in favor of a direct
// mapping.
//
// Seq and SIMD policies iterate in the calling goroutine. Any other policy
// runs the loop as a host-parallel sweep chunked over the device's cores.
// Forall blocks until every index has been visited.
func Forall(ctx *Context, pol Policy, seg Segment, body func(i int)) error {
	n := seg.Len()
	if n == 0 {
		return nil
	}

	switch pol.Kind {
	case PolicySeq, PolicySIMD:
		// SIMD is an optimization hint only; iteration order is identical
		for i := 0; i < n; i++ {
			body(seg.At(i))
		}
		return nil
	}

	numWorkers := min(ctx.device.NumCores, n)
	chunk := (n + numWorkers - 1) / numWorkers

	var g errgroup.Group
	for w := 0; w < numWorkers; w++ {
		start := w * chunk
		end := min(start+chunk, n)

		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = NewExecutionError("Forall",
						fmt.Sprintf("loop body panicked: %v", r),
						errors.Errorf("%v", r))
				}
			}()
			for i := start; i < end; i++ {
				body(seg.At(i))
			}
			return nil
		})
	}
	return g.Wait()
}

// ForallAsync submits the loop onto a stream and returns an Event signaled
// when every index has been visited. If stream is nil the context's default
// stream is used.
func ForallAsync(ctx *Context, stream *Stream, pol Policy, seg Segment, body func(i int)) (*Event, error) {
	if stream == nil {
		stream = ctx.DefaultStream()
	}
	ev := newEvent()
	err := stream.Submit(func() {
		ev.signal(Forall(ctx, pol, seg, body))
	})
	if err != nil {
		return nil, err
	}
	return ev, nil
}

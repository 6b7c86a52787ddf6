package kern

import (
	"fmt"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"
)

// Run executes a kernel statement tree bound to data on the given stream.
// The tree's launch dimensions are recomputed from the current segment
// lengths on every call. If stream is nil the context's default stream is
// used.
//
// For a synchronous launch config Run blocks until the kernel has completed
// and returns its execution error. For an async config Run returns once the
// launch is submitted; use RunAsync to observe completion and errors.
func Run(ctx *Context, stream *Stream, stmt Statement, data *Data) error {
	ev, err := RunAsync(ctx, stream, stmt, data)
	if err != nil {
		return err
	}
	if launchConfig(stmt).Async {
		return nil
	}
	return ev.Wait()
}

// RunAsync submits the kernel launch and returns an Event signaled when the
// kernel completes. Submission-time failures (invalid configuration, closed
// stream) are returned immediately; execution failures travel on the event.
//
// A launch with a NonTrivial config stages the payload through a private
// buffer and synchronizes internally before releasing it, so RunAsync does
// not return until the kernel has completed even when the config is async.
func RunAsync(ctx *Context, stream *Stream, stmt Statement, data *Data) (*Event, error) {
	if stream == nil {
		stream = ctx.DefaultStream()
	}
	cfg := launchConfig(stmt)
	body := launchBody(stmt)

	dims, err := CalculateDims(stmt, data, ctx.device)
	if err != nil {
		return nil, err
	}

	if cfg.NonTrivial {
		return launchNonTrivial(ctx, stream, body, dims, data)
	}
	return launchTrivial(ctx, stream, body, dims, data)
}

// launchConfig extracts the launch config of a tree's kernel wrapper; a
// bare statement defaults to a synchronous trivial launch
func launchConfig(stmt Statement) LaunchConfig {
	if stmt.Kind == StmtKernel {
		return stmt.Config
	}
	return Sync
}

// launchBody strips the kernel wrapper from a tree
func launchBody(stmt Statement) []Statement {
	if stmt.Kind == StmtKernel {
		return stmt.Children
	}
	return []Statement{stmt}
}

// launchTrivial captures the payload by value into the launch task. No
// allocation beyond the closure itself.
func launchTrivial(ctx *Context, stream *Stream, body []Statement, dims LaunchDims, data *Data) (*Event, error) {
	payload := *data
	ev := newEvent()
	err := stream.Submit(func() {
		ev.signal(sweepGrid(ctx.device, body, dims, &payload))
	})
	if err != nil {
		return nil, err
	}
	return ev, nil
}

// launchNonTrivial stages the payload in freshly allocated storage, runs the
// kernel against it, and synchronizes before the storage is dropped. The
// forced synchronization is what makes a dangling payload structurally
// impossible on this path; it collapses the async distinction for memory
// management.
func launchNonTrivial(ctx *Context, stream *Stream, body []Statement, dims LaunchDims, data *Data) (*Event, error) {
	staged := new(Data)
	*staged = *data

	ev := newEvent()
	err := stream.Submit(func() {
		ev.signal(sweepGrid(ctx.device, body, dims, staged))
	})
	if err != nil {
		return nil, err
	}
	// wait here so the staged buffer cannot outlive-or-dangle past launch
	werr := ev.Wait()
	*staged = Data{}
	return completedEvent(werr), nil
}

// sweepGrid executes one launch: blocks are distributed over worker
// goroutines, threads within a block run sequentially on one worker to keep
// a block's cache footprint on one core, and every thread walks the
// statement tree with its own payload copy.
func sweepGrid(dev *Device, body []Statement, dims LaunchDims, payload *Data) error {
	gridSize := dims.Grid.Size()
	blockSize := dims.Block.Size()
	if gridSize == 0 || blockSize == 0 {
		return nil
	}

	klog.V(3).Infof("launch grid=%v block=%v", dims.Grid, dims.Block)

	numWorkers := min(dev.NumCores, gridSize)
	blocksPerWorker := (gridSize + numWorkers - 1) / numWorkers

	var g errgroup.Group
	for workerID := 0; workerID < numWorkers; workerID++ {
		startBlock := workerID * blocksPerWorker
		endBlock := min(startBlock+blocksPerWorker, gridSize)

		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = NewExecutionError("Run",
						fmt.Sprintf("kernel body panicked: %v", r),
						errors.Errorf("%v", r))
				}
			}()

			for blockID := startBlock; blockID < endBlock; blockID++ {
				blockIdx := linearTo3D(blockID, dims.Grid)

				for threadID := 0; threadID < blockSize; threadID++ {
					private := *payload
					private.lane = Lane{
						BlockIdx:  blockIdx,
						ThreadIdx: linearTo3D(threadID, dims.Block),
						BlockDim:  dims.Block,
						GridDim:   dims.Grid,
					}
					execStatements(body, &private, true)
				}
			}
			return nil
		})
	}
	return g.Wait()
}

// Package kern is a retargetable nested-loop kernel engine. A kernel is
// described once as a statement tree (nested For loops over segments with
// lambda bodies) and retargeted across execution back-ends by swapping the
// execution policies bound to each loop level: plain sequential iteration,
// SIMD-hinted iteration, or the emulated GPU hierarchy of blocks, threads
// and warps scheduled onto CPU cores.
//
// Example usage:
//
//	ctx := kern.NewContext()
//	defer ctx.Destroy()
//
//	seg := kern.NewRangeSegment(0, n)
//	stmt := kern.KernelLaunch(kern.Sync,
//		kern.For(0, kern.ThreadLoop(kern.DimX, 0),
//			kern.Lambda(0)))
//
//	data, err := kern.NewData([]kern.Segment{seg},
//		func(d *kern.Data) {
//			out[d.Offset(0)] = in[d.Offset(0)] * 2
//		})
//	if err != nil {
//		return err
//	}
//
//	err = kern.Run(ctx, ctx.DefaultStream(), stmt, data)
//
// Many small loops can be deferred and fused into a single launch through
// the WorkPool/WorkGroup/WorkSite pipeline, and non-loop-shaped task
// ordering is handled by the DAG executor.
package kern

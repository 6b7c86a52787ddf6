package kern

// Statement executors. Every physical lane of a launch walks the whole
// statement tree with its own Data copy. A lane whose computed index falls
// past the segment length still recurses into enclosed statements with
// active=false: inactivity suppresses only the effects (lambda invocation),
// never the control flow, so collective constructs nested below a loop see
// uniform participation from all lanes.

// execStatements runs an ordered statement list against d
func execStatements(stmts []Statement, d *Data, active bool) {
	for i := range stmts {
		execStatement(&stmts[i], d, active)
	}
}

// execStatement dispatches on the (node kind, policy kind) pair
func execStatement(st *Statement, d *Data, active bool) {
	switch st.Kind {
	case StmtLambda:
		if active {
			d.invoke(st.Body)
		}
	case StmtFor, StmtForICount:
		execFor(st, d, active)
	case StmtKernel:
		// launch wrappers are peeled off by Run; treat a stray one as a
		// plain statement list
		execStatements(st.Children, d, active)
	}
}

// assignIterate binds the loop iterate to the statement's offset slot and,
// for ForICount, to its param slot as well
func assignIterate(st *Statement, d *Data, i int) {
	d.assignOffset(st.Arg, i)
	if st.Kind == StmtForICount {
		d.assignParam(st.Param, i)
	}
}

func execFor(st *Statement, d *Data, active bool) {
	length := d.segmentLen(st.Arg)

	switch st.Policy.Kind {
	case PolicySeq, PolicySIMD:
		// plain iteration on whatever lane reached the loop; sequential
		// cannot gate, so active passes through unchanged
		for i := 0; i < length; i++ {
			assignIterate(st, d, i)
			execStatements(st.Children, d, active)
		}

	case PolicyThreadDirect:
		i := d.lane.ThreadIdx.Get(st.Policy.Dim)
		assignIterate(st, d, i)
		execStatements(st.Children, d, active && i < length)

	case PolicyThreadLoop:
		i0 := d.lane.ThreadIdx.Get(st.Policy.Dim)
		stride := d.lane.BlockDim.Get(st.Policy.Dim)
		execStrided(st, d, active, i0, stride, length)

	case PolicyBlockDirect:
		i := d.lane.BlockIdx.Get(st.Policy.Dim)
		if i < length {
			assignIterate(st, d, i)
			execStatements(st.Children, d, active)
		}

	case PolicyBlockLoop:
		i0 := d.lane.BlockIdx.Get(st.Policy.Dim)
		stride := d.lane.GridDim.Get(st.Policy.Dim)
		for i := i0; i < length; i += stride {
			assignIterate(st, d, i)
			execStatements(st.Children, d, active)
		}

	case PolicyWarpDirect:
		i := d.lane.WarpLane()
		assignIterate(st, d, i)
		execStatements(st.Children, d, active && i < length)

	case PolicyWarpLoop:
		execStrided(st, d, active, d.lane.WarpLane(), WarpSize, length)

	case PolicyWarpMaskedDirect:
		i := st.Policy.Mask.MaskValue(d.lane.WarpLane())
		assignIterate(st, d, i)
		execStatements(st.Children, d, active && i < length)

	case PolicyWarpMaskedLoop:
		i0 := st.Policy.Mask.MaskValue(d.lane.WarpLane())
		execStrided(st, d, active, i0, st.Policy.Mask.MaxSize(), length)

	case PolicyThreadMaskedDirect:
		i := st.Policy.Mask.MaskValue(d.lane.ThreadIdx.X)
		assignIterate(st, d, i)
		execStatements(st.Children, d, active && i < length)

	case PolicyThreadMaskedLoop:
		i0 := st.Policy.Mask.MaskValue(d.lane.ThreadIdx.X)
		execStrided(st, d, active, i0, st.Policy.Mask.MaxSize(), length)
	}
}

// execStrided runs the shared strided-loop shape: every lane takes every
// strided step, masking off the steps where its index has no work so that
// all lanes stay in step for the enclosed statements.
func execStrided(st *Statement, d *Data, active bool, i0, stride, length int) {
	for ii := 0; ii < length; ii += stride {
		i := ii + i0
		haveWork := i < length
		assignIterate(st, d, i)
		execStatements(st.Children, d, active && haveWork)
	}
}

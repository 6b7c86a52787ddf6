package kern

import (
	"math"
	"math/rand"
	"testing"
)

func TestConcurrentReducers(t *testing.T) {
	ctx := NewContext()
	defer ctx.Destroy()

	const n = 200000
	rng := rand.New(rand.NewSource(7))
	values := make([]float64, n)
	for i := range values {
		values[i] = rng.Float64()*2000 - 1000
	}

	// reference results computed sequentially
	refMax := math.Inf(-1)
	refMin := math.Inf(1)
	refSum := 0.0
	for _, v := range values {
		refMax = math.Max(refMax, v)
		refMin = math.Min(refMin, v)
		refSum += v
	}

	// several independent reducers fed from the same parallel loop
	rmax := NewReduceMax()
	rmin := NewReduceMin()
	rsum := NewReduceSum()

	err := Forall(ctx, ThreadLoop(DimX, 0), NewRangeSegment(0, n), func(i int) {
		rmax.Reduce(values[i])
		rmin.Reduce(values[i])
		rsum.Reduce(values[i])
	})
	if err != nil {
		t.Fatalf("Forall: %v", err)
	}

	if rmax.Value() != refMax {
		t.Errorf("max = %v, want %v", rmax.Value(), refMax)
	}
	if rmin.Value() != refMin {
		t.Errorf("min = %v, want %v", rmin.Value(), refMin)
	}
	// float addition order differs across lanes; allow rounding slack
	if diff := math.Abs(rsum.Value() - refSum); diff > 1e-6*math.Abs(refSum) {
		t.Errorf("sum = %v, want %v (diff %v)", rsum.Value(), refSum, diff)
	}
}

func TestReducerIdentity(t *testing.T) {
	if v := NewReduceSum().Value(); v != 0 {
		t.Errorf("sum identity = %v, want 0", v)
	}
	if v := NewReduceMax().Value(); !math.IsInf(v, -1) {
		t.Errorf("max identity = %v, want -Inf", v)
	}
	if v := NewReduceMin().Value(); !math.IsInf(v, 1) {
		t.Errorf("min identity = %v, want +Inf", v)
	}
}

func TestReducerReset(t *testing.T) {
	r := NewReduceMax()
	r.Reduce(42)
	if r.Value() != 42 {
		t.Fatalf("Value() = %v, want 42", r.Value())
	}
	r.Reset()
	if !math.IsInf(r.Value(), -1) {
		t.Errorf("after Reset, Value() = %v, want -Inf", r.Value())
	}
	r.Reduce(-5)
	if r.Value() != -5 {
		t.Errorf("after reuse, Value() = %v, want -5", r.Value())
	}
}

func TestReducerInsideKernel(t *testing.T) {
	ctx := NewContext()
	defer ctx.Destroy()

	const n = 4096
	values := make([]float64, n)
	rng := rand.New(rand.NewSource(13))
	for i := range values {
		values[i] = rng.NormFloat64()
	}
	refMax := math.Inf(-1)
	for _, v := range values {
		refMax = math.Max(refMax, v)
	}

	r := NewReduceMax()
	seg := NewRangeSegment(0, n)
	data, _ := NewData([]Segment{seg}, func(d *Data) {
		r.Reduce(values[d.Offset(0)])
	})

	stmt := KernelLaunch(Sync,
		For(0, BlockLoop(DimX),
			Lambda(0)))
	if err := Run(ctx, nil, stmt, data); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if r.Value() != refMax {
		t.Errorf("max = %v, want %v", r.Value(), refMax)
	}
}

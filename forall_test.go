package kern

import (
	"sync/atomic"
	"testing"
)

func TestForallCoverage(t *testing.T) {
	ctx := NewContext()
	defer ctx.Destroy()

	policies := []struct {
		name string
		pol  Policy
	}{
		{"Seq", Seq()},
		{"SIMD", SIMD()},
		{"Parallel", ThreadLoop(DimX, 0)},
	}

	for _, pc := range policies {
		t.Run(pc.name, func(t *testing.T) {
			for _, n := range coverageSizes {
				flags := make([]int32, n)
				err := Forall(ctx, pc.pol, NewRangeSegment(0, n), func(i int) {
					atomic.AddInt32(&flags[i], 1)
				})
				if err != nil {
					t.Fatalf("Forall n=%d: %v", n, err)
				}
				checkVisitedOnce(t, flags, pc.name)
			}
		})
	}
}

func TestForallListSegment(t *testing.T) {
	ctx := NewContext()
	defer ctx.Destroy()

	indices := []int{4, 9, 0, 13, 2}
	visited := make([]int32, 16)

	err := Forall(ctx, ThreadLoop(DimX, 0), NewListSegment(indices), func(i int) {
		atomic.AddInt32(&visited[i], 1)
	})
	if err != nil {
		t.Fatalf("Forall: %v", err)
	}
	for _, i := range indices {
		if visited[i] != 1 {
			t.Errorf("listed index %d visited %d times", i, visited[i])
		}
	}
}

func TestForallAsync(t *testing.T) {
	ctx := NewContext()
	defer ctx.Destroy()

	const n = 50000
	var sum atomic.Int64

	ev, err := ForallAsync(ctx, nil, ThreadLoop(DimX, 0), NewRangeSegment(0, n), func(i int) {
		sum.Add(int64(i))
	})
	if err != nil {
		t.Fatalf("ForallAsync: %v", err)
	}
	if err := ev.Wait(); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	want := int64(n) * int64(n-1) / 2
	if sum.Load() != want {
		t.Errorf("sum = %d, want %d", sum.Load(), want)
	}
}

func TestForallPanicIsError(t *testing.T) {
	ctx := NewContext()
	defer ctx.Destroy()

	err := Forall(ctx, ThreadLoop(DimX, 0), NewRangeSegment(0, 100), func(i int) {
		if i == 57 {
			panic("boom")
		}
	})
	if err == nil {
		t.Fatal("panicking body reported no error")
	}
}

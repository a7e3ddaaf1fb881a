package lagrangian

import (
	"testing"

	"github.com/ctessum/sparse"
)

// newDenseGrid builds an [nx,ny] dense array by sampling f at the integer
// grid coordinates (x,y) = (ix, iy), matching the axes constructed by the
// tests in this file.
func newDenseGrid(nx, ny int, f func(x, y float64) float64) *sparse.DenseArray {
	g := sparse.ZerosDense(nx, ny)
	for ix := 0; ix < nx; ix++ {
		for iy := 0; iy < ny; iy++ {
			g.Set(f(float64(ix), float64(iy)), ix, iy)
		}
	}
	return g
}

func TestCellHintValid(t *testing.T) {
	h := &CellHint{x0: 0, x1: 1, y0: 0, y1: 1}
	if !h.valid(0.5, 0.5) {
		t.Fatalf("expected point inside the cached cell to be valid")
	}
	if h.valid(1.5, 0.5) {
		t.Fatalf("expected point outside the cached cell to be invalid")
	}
}

func TestGridSnapshotInterpolateBilinearExactOnAffine(t *testing.T) {
	xAxis, err := NewAxis([]float64{0, 1, 2}, KindX, "m")
	if err != nil {
		t.Fatalf("NewAxis: %v", err)
	}
	yAxis, err := NewAxis([]float64{0, 1, 2}, KindY, "m")
	if err != nil {
		t.Fatalf("NewAxis: %v", err)
	}
	// f(x,y) = 2x + 3y + 1, exact under bilinear interpolation.
	values := newDenseGrid(3, 3, func(x, y float64) float64 { return 2*x + 3*y + 1 })
	snap := &GridSnapshot{XAxis: xAxis, YAxis: yAxis, Values: values, FillValue: -999}

	got, _ := snap.Interpolate(0.5, 0.5, -1, nil)
	want := 2*0.5 + 3*0.5 + 1
	if diff := got - want; diff > 1e-12 || diff < -1e-12 {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestGridSnapshotInterpolateOutsideReturnsFillValue(t *testing.T) {
	xAxis, _ := NewAxis([]float64{0, 1, 2}, KindX, "m")
	yAxis, _ := NewAxis([]float64{0, 1, 2}, KindY, "m")
	values := newDenseGrid(3, 3, func(x, y float64) float64 { return x + y })
	snap := &GridSnapshot{XAxis: xAxis, YAxis: yAxis, Values: values, FillValue: -999}

	got, _ := snap.Interpolate(10, 10, -1, nil)
	if got != -1 {
		t.Fatalf("got %v, want the supplied fill value -1", got)
	}
}

func TestGridSnapshotInterpolateReusesHint(t *testing.T) {
	xAxis, _ := NewAxis([]float64{0, 1, 2, 3}, KindX, "m")
	yAxis, _ := NewAxis([]float64{0, 1, 2, 3}, KindY, "m")
	values := newDenseGrid(4, 4, func(x, y float64) float64 { return x + y })
	snap := &GridSnapshot{XAxis: xAxis, YAxis: yAxis, Values: values, FillValue: -999}

	_, hint := snap.Interpolate(0.1, 0.1, -1, nil)
	if hint == nil {
		t.Fatalf("expected a non-nil hint")
	}
	got, hint2 := snap.Interpolate(0.9, 0.9, -1, hint)
	if hint2 != hint {
		t.Fatalf("expected the hint to be reused within the same cell")
	}
	if diff := got - 1.8; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("got %v", got)
	}
}

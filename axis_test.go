package lagrangian

import (
	"math"
	"testing"
)

func TestNewAxisRegular(t *testing.T) {
	a, err := NewAxis([]float64{0, 1, 2, 3, 4}, KindX, "m")
	if err != nil {
		t.Fatalf("NewAxis: %v", err)
	}
	if !a.Regular() {
		t.Fatalf("expected regular axis")
	}
	if a.Start() != 0 || a.Increment() != 1 {
		t.Fatalf("got start=%v increment=%v", a.Start(), a.Increment())
	}
	if a.Len() != 5 {
		t.Fatalf("got len %d", a.Len())
	}
}

func TestNewAxisIrregular(t *testing.T) {
	a, err := NewAxis([]float64{0, 1, 1.5, 4}, KindX, "m")
	if err != nil {
		t.Fatalf("NewAxis: %v", err)
	}
	if a.Regular() {
		t.Fatalf("expected irregular axis")
	}
}

func TestNewAxisRejectsNonMonotone(t *testing.T) {
	_, err := NewAxis([]float64{0, 2, 1}, KindX, "m")
	if err == nil {
		t.Fatalf("expected an error for non-monotone values")
	}
	if e, ok := err.(*Error); !ok || e.Kind != KindAxis {
		t.Fatalf("expected a KindAxis error, got %v", err)
	}
}

func TestNewAxisRejectsEmpty(t *testing.T) {
	if _, err := NewAxis(nil, KindX, "m"); err == nil {
		t.Fatalf("expected an error for an empty axis")
	}
}

func TestNormalizeLongitudeWraps180(t *testing.T) {
	a, err := NewAxis([]float64{170, 175, -179, -170}, KindLongitude, "degrees_east")
	if err != nil {
		t.Fatalf("NewAxis: %v", err)
	}
	// -179 and -170 should have been folded to 181 and 190, giving a
	// contiguous, sorted sequence starting at 170.
	want := []float64{170, 175, 181, 190}
	got := a.Values()
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Fatalf("index %d: want %v got %v (full=%v)", i, want[i], got[i], got)
		}
	}
}

func TestNormalizeLongitudePrefersZeroOrigin(t *testing.T) {
	a, err := NewAxis([]float64{0, 90, 180, 270}, KindLongitude, "degrees_east")
	if err != nil {
		t.Fatalf("NewAxis: %v", err)
	}
	got := a.Values()
	want := []float64{0, 90, 180, 270}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Fatalf("index %d: want %v got %v", i, want[i], got[i])
		}
	}
}

func TestAxisIndexOfRegular(t *testing.T) {
	a, _ := NewAxis([]float64{0, 2, 4, 6, 8}, KindX, "m")
	i, ok := a.IndexOf(4)
	if !ok || i != 2 {
		t.Fatalf("got i=%d ok=%v", i, ok)
	}
	if _, ok := a.IndexOf(5); ok {
		t.Fatalf("expected 5 to not be an exact index")
	}
}

func TestAxisIndexOfIrregular(t *testing.T) {
	a, _ := NewAxis([]float64{0, 1, 1.5, 4}, KindX, "m")
	i, ok := a.IndexOf(1.5)
	if !ok || i != 2 {
		t.Fatalf("got i=%d ok=%v", i, ok)
	}
}

func TestAxisBracketRegular(t *testing.T) {
	a, _ := NewAxis([]float64{0, 2, 4, 6, 8}, KindX, "m")
	i0, i1, ok := a.Bracket(3)
	if !ok || i0 != 1 || i1 != 2 {
		t.Fatalf("got i0=%d i1=%d ok=%v", i0, i1, ok)
	}
}

func TestAxisBracketOutOfRange(t *testing.T) {
	a, _ := NewAxis([]float64{0, 2, 4}, KindX, "m")
	if _, _, ok := a.Bracket(-1); ok {
		t.Fatalf("expected out-of-range bracket to fail")
	}
	if _, _, ok := a.Bracket(5); ok {
		t.Fatalf("expected out-of-range bracket to fail")
	}
}

func TestAxisIndexBoundedClamps(t *testing.T) {
	a, _ := NewAxis([]float64{0, 2, 4}, KindX, "m")
	if got := a.IndexBounded(-5); got != 0 {
		t.Fatalf("got %d", got)
	}
	if got := a.IndexBounded(100); got != 2 {
		t.Fatalf("got %d", got)
	}
	if got := a.IndexBounded(2.9); got != 1 {
		t.Fatalf("got %d", got)
	}
}

func TestAxisConvert(t *testing.T) {
	r := NewUnitRegistry()
	a, _ := NewAxis([]float64{0, 1000, 2000}, KindX, "km")
	if err := a.Convert(r, "m"); err != nil {
		t.Fatalf("Convert: %v", err)
	}
	want := []float64{0, 1e6, 2e6}
	got := a.Values()
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-6 {
			t.Fatalf("index %d: want %v got %v", i, want[i], got[i])
		}
	}
	if a.Unit() != "m" {
		t.Fatalf("unit not updated: %s", a.Unit())
	}
}

func TestAxisConvertIncompatibleUnits(t *testing.T) {
	r := NewUnitRegistry()
	a, _ := NewAxis([]float64{0, 1, 2}, KindX, "m")
	if err := a.Convert(r, "s"); err == nil {
		t.Fatalf("expected incompatible-unit conversion to fail")
	}
}

package lagrangian

import (
	"math"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func newTestSnapshot(value float64, fillValue float64) *GridSnapshot {
	xAxis, _ := NewAxis([]float64{0, 1, 2}, KindX, "m")
	yAxis, _ := NewAxis([]float64{0, 1, 2}, KindY, "m")
	values := newDenseGrid(3, 3, func(x, y float64) float64 { return value })
	return &GridSnapshot{XAxis: xAxis, YAxis: yAxis, Values: values, FillValue: fillValue, NativeUnit: "m/s"}
}

func newTestFieldProvider(t *testing.T) *FieldProvider {
	t.Helper()
	files := []TimestampedFile{
		{Time: time.Unix(0, 0), Path: "a.nc"},
		{Time: time.Unix(3600, 0), Path: "b.nc"},
	}
	fp := &FieldProvider{
		cfg:            VelocityConfig{Units: MetricVelocity, FillValue: -999},
		model:          NewCoordinateModel(Cartesian, MetricVelocity),
		log:            logrus.StandardLogger(),
		cadence:        time.Hour,
		nativeVelocity: MetricVelocity,
	}
	_ = files
	return fp
}

func TestFieldProviderBracketSnapshotsInterior(t *testing.T) {
	fp := newTestFieldProvider(t)
	window := []*snapshotPair{
		{t: time.Unix(0, 0)},
		{t: time.Unix(3600, 0)},
		{t: time.Unix(7200, 0)},
	}
	prev, next, ok := fp.bracketSnapshots(window, time.Unix(1800, 0))
	if !ok || prev != window[0] || next != window[1] {
		t.Fatalf("got prev=%v next=%v ok=%v", prev, next, ok)
	}
}

func TestFieldProviderBracketSnapshotsExact(t *testing.T) {
	fp := newTestFieldProvider(t)
	window := []*snapshotPair{{t: time.Unix(0, 0)}, {t: time.Unix(3600, 0)}}
	prev, next, ok := fp.bracketSnapshots(window, time.Unix(3600, 0))
	if !ok || prev != next || prev != window[1] {
		t.Fatalf("got prev=%v next=%v ok=%v", prev, next, ok)
	}
}

func TestFieldProviderBracketSnapshotsNearestNeighborAtEnd(t *testing.T) {
	fp := newTestFieldProvider(t)
	window := []*snapshotPair{{t: time.Unix(0, 0)}, {t: time.Unix(3600, 0)}}
	// 3600 + 1800s is within one cadence (3600s) past the last snapshot.
	prev, next, ok := fp.bracketSnapshots(window, time.Unix(5400, 0))
	if !ok || prev != next || prev != window[1] {
		t.Fatalf("got prev=%v next=%v ok=%v", prev, next, ok)
	}
}

func TestFieldProviderBracketSnapshotsOutsideToleranceFails(t *testing.T) {
	fp := newTestFieldProvider(t)
	window := []*snapshotPair{{t: time.Unix(0, 0)}, {t: time.Unix(3600, 0)}}
	if _, _, ok := fp.bracketSnapshots(window, time.Unix(100000, 0)); ok {
		t.Fatalf("expected time far past the window to fail")
	}
}

func TestFieldProviderComputeTemporalInterpolation(t *testing.T) {
	fp := newTestFieldProvider(t)
	fp.window = []*snapshotPair{
		{t: time.Unix(0, 0), u: newTestSnapshot(0, -999), v: newTestSnapshot(0, -999)},
		{t: time.Unix(3600, 0), u: newTestSnapshot(10, -999), v: newTestSnapshot(20, -999)},
	}
	u, v, defined, err := fp.Compute(time.Unix(1800, 0), 1, 1)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if !defined {
		t.Fatalf("expected defined=true")
	}
	if math.Abs(u-5) > 1e-9 || math.Abs(v-10) > 1e-9 {
		t.Fatalf("got u=%v v=%v, want u=5 v=10 (midpoint)", u, v)
	}
}

func TestFieldProviderComputeOutsideWindowIsFatal(t *testing.T) {
	fp := newTestFieldProvider(t)
	fp.window = []*snapshotPair{
		{t: time.Unix(0, 0), u: newTestSnapshot(0, -999), v: newTestSnapshot(0, -999)},
		{t: time.Unix(3600, 0), u: newTestSnapshot(10, -999), v: newTestSnapshot(10, -999)},
	}
	_, _, _, err := fp.Compute(time.Unix(100000, 0), 1, 1)
	if err == nil {
		t.Fatalf("expected an IntervalNotCovered error")
	}
	if e, ok := err.(*Error); !ok || e.Kind != KindIntervalNotCovered {
		t.Fatalf("got %v", err)
	}
}

func TestFieldProviderComputeFillValueIsDomainError(t *testing.T) {
	fp := newTestFieldProvider(t)
	fp.window = []*snapshotPair{
		{t: time.Unix(0, 0), u: newTestSnapshot(-999, -999), v: newTestSnapshot(0, -999)},
	}
	_, _, defined, err := fp.Compute(time.Unix(0, 0), 1, 1)
	if err != nil {
		t.Fatalf("a fill-value hit must not be a fatal error: %v", err)
	}
	if defined {
		t.Fatalf("expected defined=false at a fill-value cell")
	}
}

func TestTimeSecondsRoundTrip(t *testing.T) {
	want := time.Unix(1234567, 500000000).UTC()
	got := secondsToTime(timeToSeconds(want))
	if math.Abs(got.Sub(want).Seconds()) > 1e-6 {
		t.Fatalf("got %v want %v", got, want)
	}
}

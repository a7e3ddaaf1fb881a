package lagrangian

import (
	"math"
	"testing"

	"github.com/sirupsen/logrus"
)

// zeroFieldSampler implements FieldSampler as a field that's everywhere 0.
type zeroFieldSampler struct{}

func (zeroFieldSampler) Sample(t, x, y float64) (u, v float64, defined bool) { return 0, 0, true }

func TestDriverFSLETrivialZeroFieldNeverCompletes(t *testing.T) {
	// Spec scenario 1: a zero velocity field can never separate a
	// stencil's particles, so every node runs to the end of the window
	// and is finalized without having reached DeltaFinal.
	model := NewCoordinateModel(Cartesian, MetricVelocity)
	sampler := zeroFieldSampler{}

	nodes := make([]*Node, 0, 100)
	for i := 0; i < 10; i++ {
		for j := 0; j < 10; j++ {
			st := NewStencil(Triplet, float64(i), float64(j), 0.1, 0)
			nodes = append(nodes, &Node{Stencil: st})
		}
	}

	it := NewIterator(0, 30*86400, 86400)
	for {
		for _, n := range nodes {
			n.Stencil.Advance(sampler, model, 86400)
			if n.Stencil.MaxDistance(model) >= 0.2 {
				n.Stencil.Completed = true
			}
		}
		if it.Done() {
			break
		}
		it.Next()
	}
	Finalize(nodes)

	for _, n := range nodes {
		if !n.Stencil.Completed {
			t.Fatalf("expected every node finalized")
		}
		if n.hasDeltaT {
			t.Fatalf("a stationary field must never reach DeltaFinal")
		}
		sample := Reduce(n, model)
		if !sample.Defined {
			t.Fatalf("expected a defined sample for a non-missing, non-masked node")
		}
		if math.Abs(sample.Lambda1) > 1e-9 || math.Abs(sample.Lambda2) > 1e-9 {
			t.Fatalf("a stationary field must have zero exponents, got %+v", sample)
		}
	}
}

// TestFSLEThresholdCheckCompletesDivergingStencil runs the FSLE termination
// check inline, mirroring advanceNode's FSLE branch, since advanceNode
// samples through the Driver's concrete *FieldProvider.
func TestFSLEThresholdCheckCompletesDivergingStencil(t *testing.T) {
	model := NewCoordinateModel(Cartesian, MetricVelocity)
	// A divergent field (u = x, v = -y) separates the +x and +y
	// neighbours from the centre, so MaxDistance grows every step.
	field := FieldSamplerFunc(func(t, x, y float64) (float64, float64, bool) {
		return x, -y, true
	})
	d := &Driver{
		cfg: DriverConfig{TStart: 0, TEnd: 100, H: 1, Mode: FSLE, DeltaFinal: 0.5},
		model: model,
		log:   logrus.StandardLogger(),
	}
	n := &Node{Stencil: NewStencil(Triplet, 0, 0, 0.1, 0)}

	tCurr := 0.0
	for step := 0; step < 100 && !n.Stencil.Completed; step++ {
		n.Stencil.Advance(field, model, 1)
		if n.Stencil.MaxDistance(model) >= d.cfg.DeltaFinal {
			n.Stencil.Completed = true
			n.DeltaT = tCurr + 1 - d.cfg.TStart
			n.hasDeltaT = true
		}
		tCurr++
	}

	if !n.Stencil.Completed {
		t.Fatalf("expected the stencil to complete once separation reached DeltaFinal")
	}
	if !n.hasDeltaT || n.DeltaT <= 0 {
		t.Fatalf("expected a recorded positive DeltaT, got %+v", n)
	}
}

func TestDriverMaskedNodeNeverAdvances(t *testing.T) {
	model := NewCoordinateModel(Cartesian, MetricVelocity)
	d := &Driver{
		cfg:   DriverConfig{TStart: 0, TEnd: 10, H: 1, Mode: FTLE},
		model: model,
		log:   logrus.StandardLogger(),
	}
	st := NewStencil(Triplet, 5, 5, 0.1, 0)
	n := &Node{Stencil: st, Masked: true}

	d.advanceNode(n, 0, 1)

	if st.Time != 0 {
		t.Fatalf("a masked node's stencil must never advance, got Time=%v", st.Time)
	}
	sample := Reduce(n, model)
	if sample.Defined {
		t.Fatalf("expected an undefined sample for a masked node")
	}
}

func TestDriverRunCancelMarksRemainingMissing(t *testing.T) {
	nodes := []*Node{
		{Stencil: NewStencil(Triplet, 0, 0, 0.1, 0)},
		{Stencil: NewStencil(Triplet, 1, 1, 0.1, 0), Masked: true},
	}
	markRemainingMissing(nodes)

	if !nodes[0].Stencil.Missing || !nodes[0].Stencil.Completed {
		t.Fatalf("expected the non-masked node to be marked missing and completed")
	}
	if nodes[1].Stencil.Missing {
		t.Fatalf("a masked node must never be marked missing")
	}
}

func TestReduceMaskedAndMissingAreUndefined(t *testing.T) {
	model := NewCoordinateModel(Cartesian, MetricVelocity)

	masked := &Node{Stencil: NewStencil(Triplet, 0, 0, 0.1, 0), Masked: true}
	if s := Reduce(masked, model); s.Defined {
		t.Fatalf("expected masked node to reduce to an undefined sample")
	}

	missing := &Node{Stencil: NewStencil(Triplet, 0, 0, 0.1, 0)}
	missing.Stencil.Missing = true
	if s := Reduce(missing, model); s.Defined {
		t.Fatalf("expected missing node to reduce to an undefined sample")
	}
}

package lagrangian

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestMapSweepZeroFieldEveryNodeDefinedAndStationary(t *testing.T) {
	model := NewCoordinateModel(Cartesian, MetricVelocity)
	cfg := SweepConfig{
		Nx: 4, Ny: 4,
		XMin: 0, XMax: 3, YMin: 0, YMax: 3,
		FillValue: -999,
		Driver: DriverConfig{
			TStart: 0, TEnd: 10, H: 1,
			Mode: FTLE, Delta0: 0.1, StencilKind: Triplet,
			Threads: 1,
		},
	}
	sweep := &MapSweep{cfg: cfg, model: model, log: logrus.StandardLogger()}

	nodes := make([]*Node, cfg.Nx*cfg.Ny)
	lon := linspace(cfg.XMin, cfg.XMax, cfg.Nx)
	lat := linspace(cfg.YMin, cfg.YMax, cfg.Ny)
	sampler := zeroFieldSampler{}
	for j := 0; j < cfg.Ny; j++ {
		for i := 0; i < cfg.Nx; i++ {
			idx := j*cfg.Nx + i
			st := NewStencil(Triplet, lon[i], lat[j], cfg.Driver.Delta0, cfg.Driver.TStart)
			for !st.Completed {
				st.Advance(sampler, model, cfg.Driver.H)
				if st.Time >= cfg.Driver.TEnd {
					st.Completed = true
				}
			}
			nodes[idx] = &Node{Stencil: st}
		}
	}

	result := &MapResult{Nx: cfg.Nx, Ny: cfg.Ny,
		Theta1: make([]float64, cfg.Nx*cfg.Ny), Theta2: make([]float64, cfg.Nx*cfg.Ny),
		Lambda1: make([]float64, cfg.Nx*cfg.Ny), Lambda2: make([]float64, cfg.Nx*cfg.Ny)}
	sweep.reduce(nodes, result)

	for idx := range nodes {
		if result.Lambda1[idx] != 0 || result.Lambda2[idx] != 0 {
			t.Fatalf("node %d: expected zero exponents for a stationary field, got lambda1=%v lambda2=%v", idx, result.Lambda1[idx], result.Lambda2[idx])
		}
	}
}

func TestMapSweepMaskedNodesGetFillValue(t *testing.T) {
	model := NewCoordinateModel(Cartesian, MetricVelocity)
	cfg := SweepConfig{FillValue: -999}
	sweep := &MapSweep{cfg: cfg, model: model, log: logrus.StandardLogger()}

	nodes := []*Node{{Masked: true}}
	result := &MapResult{Nx: 1, Ny: 1,
		Theta1: make([]float64, 1), Theta2: make([]float64, 1),
		Lambda1: make([]float64, 1), Lambda2: make([]float64, 1)}
	sweep.reduce(nodes, result)

	if result.Lambda1[0] != -999 || result.Theta1[0] != -999 {
		t.Fatalf("expected fill value at a masked node, got %+v", result)
	}
}

func TestMapSweepRunRejectsInvalidGrid(t *testing.T) {
	model := NewCoordinateModel(Cartesian, MetricVelocity)
	sweep := NewMapSweep(SweepConfig{Nx: 0, Ny: 4, XMin: 0, XMax: 1, YMin: 0, YMax: 1}, nil, model, nil, nil)
	if _, err := sweep.Run(context.Background()); err == nil {
		t.Fatalf("expected a ValueError for a non-positive grid dimension")
	}

	sweep2 := NewMapSweep(SweepConfig{Nx: 4, Ny: 4, XMin: 1, XMax: 0, YMin: 0, YMax: 1}, nil, model, nil, nil)
	if _, err := sweep2.Run(context.Background()); err == nil {
		t.Fatalf("expected a ValueError for x_min >= x_max")
	}
}

func TestMapSweepMaskAppliedBeforeStencilConstruction(t *testing.T) {
	// Spec resolution: a masked node is never even given a stencil,
	// rather than being given one that is discarded on the first advance.
	model := NewCoordinateModel(Cartesian, MetricVelocity)
	mask := MaskReaderFunc(func(x, y float64) bool { return x == 0 && y == 0 })
	sweep := NewMapSweep(SweepConfig{
		Nx: 2, Ny: 2, XMin: 0, XMax: 1, YMin: 0, YMax: 1,
		FillValue: -999,
		Driver:    DriverConfig{TStart: 0, TEnd: 1, H: 1, Mode: FTLE, Delta0: 0.1, StencilKind: Triplet, Threads: 1},
	}, nil, model, mask, logrus.StandardLogger())

	lon := linspace(0, 1, 2)
	lat := linspace(0, 1, 2)
	nodes := make([]*Node, 4)
	for j := 0; j < 2; j++ {
		for i := 0; i < 2; i++ {
			idx := j*2 + i
			masked := sweep.mask.Masked(lon[i], lat[j])
			n := &Node{Masked: masked}
			if !masked {
				n.Stencil = NewStencil(sweep.cfg.Driver.StencilKind, lon[i], lat[j], sweep.cfg.Driver.Delta0, sweep.cfg.Driver.TStart)
			}
			nodes[idx] = n
		}
	}

	if nodes[0].Stencil != nil {
		t.Fatalf("a masked node must never have a stencil constructed")
	}
	for idx := 1; idx < 4; idx++ {
		if nodes[idx].Stencil == nil {
			t.Fatalf("node %d: expected a non-masked node to have a stencil", idx)
		}
	}
}

/*
Copyright © 2013 the aviso-lagrangian authors.
This file is part of aviso-lagrangian.

aviso-lagrangian is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

aviso-lagrangian is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with aviso-lagrangian.  If not, see <http://www.gnu.org/licenses/>.
*/

package lagrangian

import (
	"context"
	"math"
	"runtime"
	"sync"

	"github.com/sirupsen/logrus"
)

// Mode selects the Lyapunov exponent family an FLE Driver computes.
type Mode int

// FLE Driver modes.
const (
	// FSLE completes a stencil early once it reaches DeltaFinal.
	FSLE Mode = iota
	// FTLE never completes early; every stencil runs the full iterator.
	FTLE
)

// Node is one grid-node stencil managed by the driver, together with its
// outcome once the run finishes.
type Node struct {
	Stencil *Stencil
	Masked  bool
	DeltaT  float64 // time elapsed from TStart to the end of the step at which FSLE termination fired
	hasDeltaT bool
}

// DriverConfig holds the integration parameters for one FLE Driver run
// (spec.md §4.I's (t_start, t_end, h, mode, delta_final, delta0,
// field_provider, stencil_kind) input tuple).
type DriverConfig struct {
	TStart, TEnd, H float64
	Mode            Mode
	Delta0          float64
	DeltaFinal      float64 // only meaningful for FSLE
	StencilKind     StencilKind
	Threads         int // 0 = hardware concurrency, 1 = serial
}

// Driver runs the main per-timestep loop over a set of stencils, following
// the teacher's Calculations() sync.WaitGroup fan-out in run.go: the node
// slice is striped across a worker pool that joins at the end of every
// iteration step, exactly the "parallel loops over stencils join at the
// end of every iteration step" concurrency rule (§5).
type Driver struct {
	cfg   DriverConfig
	field *FieldProvider
	model CoordinateModel
	log   *logrus.Logger
}

// NewDriver builds a Driver.
func NewDriver(cfg DriverConfig, field *FieldProvider, model CoordinateModel, log *logrus.Logger) *Driver {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Driver{cfg: cfg, field: field, model: model, log: log}
}

// Run advances every non-masked node's stencil until it completes (by
// FSLE threshold or iterator exhaustion), or until ctx is cancelled. A
// cancelled run marks every not-yet-completed node missing, with partial
// results, per the cooperative-cancellation rule in §5.
func (d *Driver) Run(ctx context.Context, nodes []*Node) error {
	nprocs := d.cfg.Threads
	if nprocs == 0 {
		nprocs = runtime.GOMAXPROCS(0)
	}

	// The Iterator always steps with magnitude |h|; its own sign(t1-t0)
	// decides direction (§4.H). RK4Step/Advance and the Fetch lookahead
	// need that same signed step, not the bare config magnitude, or
	// backward integration (TEnd < TStart) would advance stencils the
	// wrong way and Fetch an empty (lo > hi) window.
	signedH := math.Copysign(d.cfg.H, d.cfg.TEnd-d.cfg.TStart)

	it := NewIterator(d.cfg.TStart, d.cfg.TEnd, d.cfg.H)
	for !it.Done() {
		select {
		case <-ctx.Done():
			markRemainingMissing(nodes)
			return ctx.Err()
		default:
		}

		tCurr := it.Current()
		tNext := tCurr + signedH
		if (signedH > 0 && tNext > d.cfg.TEnd) || (signedH < 0 && tNext < d.cfg.TEnd) {
			tNext = d.cfg.TEnd // the terminal step is clamped, as the Iterator's is
		}
		step := tNext - tCurr
		lo, hi := tCurr, tNext
		if step < 0 {
			lo, hi = tNext, tCurr
		}
		if err := d.field.FetchSeconds(ctx, lo, hi); err != nil {
			return err
		}

		var wg sync.WaitGroup
		wg.Add(nprocs)
		for p := 0; p < nprocs; p++ {
			go func(p int) {
				defer wg.Done()
				for i := p; i < len(nodes); i += nprocs {
					d.advanceNode(nodes[i], tCurr, step)
				}
			}(p)
		}
		wg.Wait()

		it.Next()
	}
	return nil
}

// advanceNode advances one node's stencil by one signed step and applies
// the mode-specific termination check.
func (d *Driver) advanceNode(n *Node, tCurr, signedH float64) {
	if n.Masked || n.Stencil.Completed || n.Stencil.Missing {
		return
	}
	n.Stencil.Advance(d.field, d.model, signedH)
	if n.Stencil.Missing {
		n.Stencil.Completed = true
		return
	}
	switch d.cfg.Mode {
	case FSLE:
		if n.Stencil.MaxDistance(d.model) >= d.cfg.DeltaFinal {
			n.Stencil.Completed = true
			n.DeltaT = tCurr + signedH - d.cfg.TStart
			n.hasDeltaT = true
		}
	case FTLE:
		// Never completes early; falls out when the iterator is exhausted
		// (MapSweep.Run marks every node completed via Finalize after
		// Driver.Run returns).
	}
}

// Finalize marks every still-running node completed once the iterator has
// been exhausted (the FTLE case, and any FSLE node that never reached
// DeltaFinal).
func Finalize(nodes []*Node) {
	for _, n := range nodes {
		if !n.Masked && !n.Stencil.Completed {
			n.Stencil.Completed = true
		}
	}
}

func markRemainingMissing(nodes []*Node) {
	for _, n := range nodes {
		if !n.Masked && !n.Stencil.Completed {
			n.Stencil.Missing = true
			n.Stencil.Completed = true
		}
	}
}

// FLESample is one grid node's reduced result: lambda1 >= lambda2 in SI
// (1/s), theta1/theta2 in degrees, finalSeparation in the Coordinate
// Model's distance unit and deltaT in seconds. Masked and missing nodes
// reduce to Defined=false; a node that never reached its FSLE threshold
// is still Defined, with deltaT covering the whole run.
type FLESample struct {
	Lambda1, Lambda2           float64
	Theta1, Theta2             float64
	FinalSeparation, DeltaT    float64
	Defined                    bool
}

// Reduce calls Eigen on every non-missing completed node and returns its
// FLESample; masked and missing nodes get a sample with Defined=false, and
// the caller substitutes the run's fill value.
func Reduce(n *Node, model CoordinateModel) FLESample {
	if n.Masked || n.Stencil.Missing {
		return FLESample{}
	}
	l1, l2, t1, t2, sep := n.Stencil.Eigen(model)
	deltaT := n.DeltaT
	if !n.hasDeltaT {
		deltaT = n.Stencil.Time - n.Stencil.T0
	}
	return FLESample{
		Lambda1: l1, Lambda2: l2,
		Theta1: t1, Theta2: t2,
		FinalSeparation: sep, DeltaT: deltaT,
		Defined: true,
	}
}

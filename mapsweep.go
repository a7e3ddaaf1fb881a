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
	"fmt"

	"github.com/sirupsen/logrus"
)

// MaskReader reports whether a grid node should be excluded from
// integration (a land cell, say). A nil MaskReader masks nothing.
type MaskReader interface {
	Masked(x, y float64) bool
}

// MaskReaderFunc adapts a plain function to MaskReader.
type MaskReaderFunc func(x, y float64) bool

// Masked implements MaskReader.
func (f MaskReaderFunc) Masked(x, y float64) bool { return f(x, y) }

// SweepConfig describes one map_of_fle run: the output grid geometry
// plus the FLE Driver parameters shared by every node.
type SweepConfig struct {
	Nx, Ny                     int
	XMin, XMax, YMin, YMax     float64
	Driver                     DriverConfig
	FillValue                  float64
	Diagnostics                bool // when true, also populate FinalSeparation/DeltaT
}

// MapSweep drives every node of an output grid through one FLE Driver,
// whose worker pool takes the flattened node list in a modulo stripe,
// following the teacher's modulo-striped Calculations() partition (§4.J).
// The grid is not split into row-strips; driving every node through the
// same Driver.Run call makes its single per-iteration-step
// field.FetchSeconds call the union fetch for all workers.
type MapSweep struct {
	cfg   SweepConfig
	field *FieldProvider
	model CoordinateModel
	mask  MaskReader
	log   *logrus.Logger
}

// NewMapSweep builds a MapSweep. mask may be nil.
func NewMapSweep(cfg SweepConfig, field *FieldProvider, model CoordinateModel, mask MaskReader, log *logrus.Logger) *MapSweep {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &MapSweep{cfg: cfg, field: field, model: model, mask: mask, log: log}
}

// MapResult holds the dense [nx*ny] output arrays of one sweep, row-major
// with x (longitude) varying fastest, i.e. index(i,j) = j*Nx + i.
type MapResult struct {
	Nx, Ny                     int
	Lon, Lat                   []float64
	Theta1, Theta2             []float64
	Lambda1, Lambda2           []float64
	FinalSeparation, DeltaT    []float64 // nil unless cfg.Diagnostics
}

// Index returns the flat array index for grid node (i, j).
func (r *MapResult) Index(i, j int) int { return j*r.Nx + i }

// Run allocates the output arrays, constructs one stencil per
// non-masked node, advances every node through a single Driver.Run call,
// and reduces the result into dense arrays, filling masked and missing
// nodes with cfg.FillValue.
func (m *MapSweep) Run(ctx context.Context) (*MapResult, error) {
	if m.cfg.Nx < 1 || m.cfg.Ny < 1 {
		return nil, newError(KindValue, "MapSweep.Run", fmt.Errorf("grid dimensions must be positive, got nx=%d ny=%d", m.cfg.Nx, m.cfg.Ny))
	}
	if m.cfg.XMax <= m.cfg.XMin || m.cfg.YMax <= m.cfg.YMin {
		return nil, newError(KindValue, "MapSweep.Run", fmt.Errorf("x_min must be < x_max and y_min < y_max"))
	}

	lon := linspace(m.cfg.XMin, m.cfg.XMax, m.cfg.Nx)
	lat := linspace(m.cfg.YMin, m.cfg.YMax, m.cfg.Ny)

	result := &MapResult{
		Nx: m.cfg.Nx, Ny: m.cfg.Ny,
		Lon: lon, Lat: lat,
		Theta1:  make([]float64, m.cfg.Nx*m.cfg.Ny),
		Theta2:  make([]float64, m.cfg.Nx*m.cfg.Ny),
		Lambda1: make([]float64, m.cfg.Nx*m.cfg.Ny),
		Lambda2: make([]float64, m.cfg.Nx*m.cfg.Ny),
	}
	if m.cfg.Diagnostics {
		result.FinalSeparation = make([]float64, m.cfg.Nx*m.cfg.Ny)
		result.DeltaT = make([]float64, m.cfg.Nx*m.cfg.Ny)
	}

	nodes := make([]*Node, m.cfg.Nx*m.cfg.Ny)
	for j := 0; j < m.cfg.Ny; j++ {
		for i := 0; i < m.cfg.Nx; i++ {
			idx := result.Index(i, j)
			masked := m.mask != nil && m.mask.Masked(lon[i], lat[j])
			n := &Node{Masked: masked}
			if !masked {
				n.Stencil = NewStencil(m.cfg.Driver.StencilKind, lon[i], lat[j], m.cfg.Driver.Delta0, m.cfg.Driver.TStart)
			}
			nodes[idx] = n
		}
	}

	driver := NewDriver(m.cfg.Driver, m.field, m.model, m.log)
	if err := driver.Run(ctx, nodes); err != nil {
		return nil, err
	}
	Finalize(nodes)

	m.reduce(nodes, result)
	return result, nil
}

func (m *MapSweep) reduce(nodes []*Node, result *MapResult) {
	fill := m.cfg.FillValue
	for idx, n := range nodes {
		if n.Masked || n.Stencil.Missing {
			result.Theta1[idx] = fill
			result.Theta2[idx] = fill
			result.Lambda1[idx] = fill
			result.Lambda2[idx] = fill
			if m.cfg.Diagnostics {
				result.FinalSeparation[idx] = fill
				result.DeltaT[idx] = fill
			}
			continue
		}
		sample := Reduce(n, m.model)
		if !sample.Defined {
			result.Theta1[idx] = fill
			result.Theta2[idx] = fill
			result.Lambda1[idx] = fill
			result.Lambda2[idx] = fill
			if m.cfg.Diagnostics {
				result.FinalSeparation[idx] = fill
				result.DeltaT[idx] = fill
			}
			continue
		}
		result.Theta1[idx] = sample.Theta1
		result.Theta2[idx] = sample.Theta2
		result.Lambda1[idx] = sample.Lambda1
		result.Lambda2[idx] = sample.Lambda2
		if m.cfg.Diagnostics {
			result.FinalSeparation[idx] = sample.FinalSeparation
			result.DeltaT[idx] = sample.DeltaT
		}
	}
}

// linspace returns n evenly spaced samples from lo to hi, inclusive.
func linspace(lo, hi float64, n int) []float64 {
	out := make([]float64, n)
	if n == 1 {
		out[0] = lo
		return out
	}
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	return out
}

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
	"math"

	"github.com/ctessum/geom"
	"gonum.org/v1/gonum/mat"
)

// StencilKind selects the particle layout of a Stencil.
type StencilKind int

// Stencil kinds.
const (
	// Triplet places 3 particles: centre, +x neighbour, +y neighbour.
	Triplet StencilKind = iota
	// Quintuplet adds -x and -y neighbours to Triplet for a centered
	// finite-difference strain estimate.
	Quintuplet
)

// Stencil is a small cluster of particles co-located at a grid node, used
// to approximate the flow map's Jacobian by finite differences. Particle
// 0 is the centre; 1/3 are the +x/-x neighbours; 2/4 are the +y/-y
// neighbours.
type Stencil struct {
	Kind             StencilKind
	Positions        []geom.Point
	InitialPositions []geom.Point
	Delta0           float64
	T0               float64
	Time             float64
	Completed        bool
	Missing          bool
}

// NewStencil builds a Stencil centred at (x, y) with neighbours offset by
// delta0, at initial time t0.
func NewStencil(kind StencilKind, x, y, delta0, t0 float64) *Stencil {
	pos := []geom.Point{
		{X: x, Y: y},
		{X: x + delta0, Y: y},
		{X: x, Y: y + delta0},
	}
	if kind == Quintuplet {
		pos = append(pos, geom.Point{X: x - delta0, Y: y}, geom.Point{X: x, Y: y - delta0})
	}
	return &Stencil{
		Kind:             kind,
		Positions:        pos,
		InitialPositions: append([]geom.Point(nil), pos...),
		Delta0:           delta0,
		T0:               t0,
		Time:             t0,
	}
}

// Advance performs one RK4 step on every member of s through field, using
// model for the per-stage displacement arithmetic. If any member's step
// is undefined, s is marked Missing and no position is changed.
// Otherwise every position is updated and Time advances by h.
func (s *Stencil) Advance(field FieldSampler, model CoordinateModel, h float64) {
	if s.Completed || s.Missing {
		return
	}
	next := make([]geom.Point, len(s.Positions))
	for i, p := range s.Positions {
		nx, ny, ok := RK4Step(field, model, s.Time, p.X, p.Y, h)
		if !ok {
			s.Missing = true
			return
		}
		next[i] = geom.Point{X: nx, Y: ny}
	}
	s.Positions = next
	s.Time += h
}

// MaxDistance returns the largest distance between the centre and any of
// its neighbours, using model's distance metric. Neighbour-to-neighbour
// pairs are not considered: a unit stencil's own separation is defined as
// how far its arms have spread from the centre, not the span across arms.
func (s *Stencil) MaxDistance(model CoordinateModel) float64 {
	c := s.Positions[0]
	max := 0.0
	for _, p := range s.Positions[1:] {
		if d := model.Distance(c, p); d > max {
			max = d
		}
	}
	return max
}

// StrainTensor returns the 2x2 matrix whose columns are the current
// displacements of the +x/+y neighbours (Triplet) - or the centered
// difference of +/- neighbours (Quintuplet) - from the centre. At
// construction these displacements equal Delta0 (Triplet) or 2*Delta0
// (Quintuplet), so the tensor starts as that multiple of the identity; it
// is not normalized here (Eigen does that).
func (s *Stencil) StrainTensor() [2][2]float64 {
	c := s.Positions[0]
	var a [2][2]float64 // a[row][col]; columns are d(centre->+x), d(centre->+y)

	if s.Kind == Triplet {
		px, py := s.Positions[1], s.Positions[2]
		a[0][0] = px.X - c.X
		a[1][0] = px.Y - c.Y
		a[0][1] = py.X - c.X
		a[1][1] = py.Y - c.Y
		return a
	}

	// Quintuplet: centered difference halves truncation error.
	px, nx := s.Positions[1], s.Positions[3]
	py, ny := s.Positions[2], s.Positions[4]
	a[0][0] = px.X - nx.X
	a[1][0] = px.Y - nx.Y
	a[0][1] = py.X - ny.X
	a[1][1] = py.Y - ny.Y
	return a
}

// Eigen forms the Cauchy-Green tensor C = A^T*A from StrainTensor, with
// each column divided by that arm's initial length (so an undeformed
// stencil has C = identity and zero exponents), solves its 2x2
// eigenproblem, and converts eigenvalues to Lyapunov exponents.
// lambda1 >= lambda2; theta1/theta2 are the corresponding eigenvector
// angles in degrees in (-180, 180]. finalSeparation is MaxDistance at the
// call site's current positions.
func (s *Stencil) Eigen(model CoordinateModel) (lambda1, lambda2, theta1, theta2, finalSeparation float64) {
	a := s.StrainTensor()
	ip := s.InitialPositions
	normX, normY := ip[1].X-ip[0].X, ip[2].Y-ip[0].Y
	if s.Kind == Quintuplet {
		normX, normY = ip[1].X-ip[3].X, ip[2].Y-ip[4].Y
	}
	if normX != 0 && normY != 0 {
		a[0][0], a[1][0] = a[0][0]/normX, a[1][0]/normX
		a[0][1], a[1][1] = a[0][1]/normY, a[1][1]/normY
	}

	// C = A^T A, symmetric 2x2.
	c00 := a[0][0]*a[0][0] + a[1][0]*a[1][0]
	c01 := a[0][0]*a[0][1] + a[1][0]*a[1][1]
	c11 := a[0][1]*a[0][1] + a[1][1]*a[1][1]

	sym := mat.NewSymDense(2, []float64{c00, c01, c01, c11})
	var eig mat.EigenSym
	ok := eig.Factorize(sym, true)
	if !ok {
		return 0, 0, 0, 0, s.MaxDistance(model)
	}
	values := eig.Values(nil)
	var vectors mat.Dense
	eig.VectorsTo(&vectors)

	// gonum returns eigenvalues ascending; we want lambda1 >= lambda2 by
	// eigenvalue magnitude of C (sigma1 >= sigma2).
	sigma1, sigma2 := values[1], values[0]
	v1x, v1y := vectors.At(0, 1), vectors.At(1, 1)
	v2x, v2y := vectors.At(0, 0), vectors.At(1, 0)

	dt := s.Time - s.T0
	lambda1 = lyapunovExponent(sigma1, dt)
	lambda2 = lyapunovExponent(sigma2, dt)
	theta1 = eigenvectorAngleDegrees(v1x, v1y)
	theta2 = eigenvectorAngleDegrees(v2x, v2y)
	finalSeparation = s.MaxDistance(model)
	return lambda1, lambda2, theta1, theta2, finalSeparation
}

// lyapunovExponent converts a Cauchy-Green eigenvalue to an exponent:
// lambda = (1/(2*dt))*ln(sigma). Returns 0 when dt is 0 (degenerate,
// e.g. a stencil evaluated at its own initial time) to avoid a NaN.
func lyapunovExponent(sigma, dt float64) float64 {
	if dt == 0 || sigma <= 0 {
		return 0
	}
	return math.Log(sigma) / (2 * dt)
}

// eigenvectorAngleDegrees reports the angle of (x, y) in degrees, mapped
// into (-180, 180].
func eigenvectorAngleDegrees(x, y float64) float64 {
	deg := math.Atan2(y, x) * 180 / math.Pi
	if deg <= -180 {
		deg += 360
	}
	if deg > 180 {
		deg -= 360
	}
	return deg
}

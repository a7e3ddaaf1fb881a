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

// FieldSampler evaluates a velocity field at a time and position,
// reporting whether the sample is defined. The Field Provider (field.go)
// is the production implementation; tests and the Vonkarman analytic
// scenario supply their own.
type FieldSampler interface {
	Sample(t float64, x, y float64) (u, v float64, defined bool)
}

// FieldSamplerFunc adapts a plain function to FieldSampler.
type FieldSamplerFunc func(t, x, y float64) (u, v float64, defined bool)

// Sample implements FieldSampler.
func (f FieldSamplerFunc) Sample(t, x, y float64) (u, v float64, defined bool) {
	return f(t, x, y)
}

// RK4Step advances (x, y) from time t by step h through field, following
// the classical four-stage Runge-Kutta formula. It returns ok=false
// without partially advancing the position if the field is undefined at
// any of the four stages.
func RK4Step(field FieldSampler, model CoordinateModel, t, x, y, h float64) (nx, ny float64, ok bool) {
	k1u, k1v, def := field.Sample(t, x, y)
	if !def {
		return x, y, false
	}
	p2x, p2y := model.Advance(x, y, k1u, k1v, h/2)
	k2u, k2v, def := field.Sample(t+h/2, p2x, p2y)
	if !def {
		return x, y, false
	}
	p3x, p3y := model.Advance(x, y, k2u, k2v, h/2)
	k3u, k3v, def := field.Sample(t+h/2, p3x, p3y)
	if !def {
		return x, y, false
	}
	p4x, p4y := model.Advance(x, y, k3u, k3v, h)
	k4u, k4v, def := field.Sample(t+h, p4x, p4y)
	if !def {
		return x, y, false
	}

	// Weighted-average the four stage velocities (k1 + 2k2 + 2k3 + k4)/6
	// and apply a single displacement over the full step, rather than
	// summing four independent Advance calls, so the spherical-equatorial
	// longitude correction (which depends on the starting position's
	// latitude) is applied once with the blended velocity.
	uAvg := (k1u + 2*k2u + 2*k3u + k4u) / 6
	vAvg := (k1v + 2*k2v + 2*k3v + k4v) / 6
	nx, ny = model.Advance(x, y, uAvg, vAvg, h)
	return nx, ny, true
}

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
)

// VelocityUnit selects how a Coordinate Model interprets U/V samples.
type VelocityUnit int

// Velocity unit modes.
const (
	// MetricVelocity means U/V are in m/s.
	MetricVelocity VelocityUnit = iota
	// AngularVelocity means U/V are already in degree/s.
	AngularVelocity
)

// earthRadius is R in meters, used by the spherical-equatorial advance
// and velocity-conversion formulas.
const earthRadius = 6_371_000.0

// CoordinateKind selects a Coordinate Model variant, following the
// teacher's tagged-enum style (see aqm.go's mechanism selection) instead
// of a subclass hierarchy, per the redesign guidance for coordinate modes.
type CoordinateKind int

// Coordinate Model kinds.
const (
	// SphericalEquatorial works in degrees of longitude/latitude, with
	// U/V in either m/s or degree/s.
	SphericalEquatorial CoordinateKind = iota
	// Cartesian works in a planar unit; U/V are in that unit per second.
	Cartesian
)

// CoordinateModel encapsulates the distance and displacement arithmetic
// that differs between a geographic and a planar coordinate system.
type CoordinateModel struct {
	Kind     CoordinateKind
	Velocity VelocityUnit
}

// NewCoordinateModel builds a CoordinateModel. Velocity is ignored when
// kind is Cartesian.
func NewCoordinateModel(kind CoordinateKind, velocity VelocityUnit) CoordinateModel {
	return CoordinateModel{Kind: kind, Velocity: velocity}
}

// Advance applies one RK stage increment to (x, y) given a velocity
// sample (u, v) held constant over dt, returning the displaced point.
func (m CoordinateModel) Advance(x, y, u, v, dt float64) (nx, ny float64) {
	if m.Kind == Cartesian {
		return x + u*dt, y + v*dt
	}
	if m.Velocity == AngularVelocity {
		return x + u*dt, y + v*dt
	}
	// m/s on a spherical-equatorial grid: convert the metric displacement
	// to degrees, correcting the longitude step for the convergence of
	// meridians away from the equator.
	dx := u * dt / (earthRadius * math.Cos(y*math.Pi/180)) * 180 / math.Pi
	dy := v * dt / earthRadius * 180 / math.Pi
	return x + dx, y + dy
}

// ConvertVelocity transforms a velocity sample (u, v) at point (x, y) from
// one VelocityUnit to another. Used by the Field Provider when a
// snapshot's native velocity unit differs from the mode the run was
// configured with (§4.D): a m/s<->degree/s conversion is not linear, so
// it is not offered by the Unit Registry and is instead applied here,
// at the point where the sample is taken.
func (m CoordinateModel) ConvertVelocity(x, y, u, v float64, from, to VelocityUnit) (float64, float64) {
	if from == to || m.Kind == Cartesian {
		return u, v
	}
	cosLat := math.Cos(y * math.Pi / 180)
	if from == MetricVelocity && to == AngularVelocity {
		// Same factor Advance applies to a m/s displacement over 1 second.
		return u / (earthRadius * cosLat) * 180 / math.Pi, v / earthRadius * 180 / math.Pi
	}
	// AngularVelocity -> MetricVelocity: invert the same factor.
	return u * earthRadius * cosLat * math.Pi / 180, v * earthRadius * math.Pi / 180
}

// Distance returns the separation between p and q: great-circle distance
// in degrees for SphericalEquatorial, Euclidean distance for Cartesian.
func (m CoordinateModel) Distance(p, q geom.Point) float64 {
	if m.Kind == Cartesian {
		dx, dy := p.X-q.X, p.Y-q.Y
		return math.Hypot(dx, dy)
	}
	return greatCircleDegrees(p, q)
}

// greatCircleDegrees returns the angular great-circle separation between
// two points given in degrees of longitude/latitude, expressed in degrees.
func greatCircleDegrees(p, q geom.Point) float64 {
	lat1, lat2 := p.Y*math.Pi/180, q.Y*math.Pi/180
	dLon := (q.X - p.X) * math.Pi / 180
	// Haversine formula, numerically stable for small separations.
	sinDLat := math.Sin((lat2 - lat1) / 2)
	sinDLon := math.Sin(dLon / 2)
	a := sinDLat*sinDLat + math.Cos(lat1)*math.Cos(lat2)*sinDLon*sinDLon
	a = math.Min(1, math.Max(0, a))
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return c * 180 / math.Pi
}

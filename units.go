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
	"fmt"
	"strings"

	"github.com/ctessum/unit"
)

// canonicalUnit describes one recognized spelling of a unit: its
// dimensions (for compatibility checking, following the teacher's
// dimensional-analysis dependency) and its linear factor relative to the
// dimension's SI base unit.
type canonicalUnit struct {
	dims       unit.Dimensions
	toSI       float64 // multiply a value in this unit by toSI to get SI
	offsetToSI float64 // added after scaling, for non-ratio scales (none needed today)
}

// UnitRegistry resolves (from, to) unit string pairs into a linear
// (scale, offset) converter, following the teacher's emisConversionFactor
// switch-table pattern generalized into a lookup keyed by unit string,
// plus github.com/ctessum/unit for the dimensional bookkeeping that
// guards against nonsensical conversions (e.g. length to time).
type UnitRegistry struct {
	units map[string]canonicalUnit
}

// NewUnitRegistry returns a registry pre-populated with the units this
// engine's grids and velocity fields are known to arrive in.
func NewUnitRegistry() *UnitRegistry {
	r := &UnitRegistry{units: make(map[string]canonicalUnit)}

	// Longitude/latitude units.
	r.register([]string{"degrees_east", "degree_east", "degrees_E", "degree_E", "degreeE"}, unit.Dimensions{unit.AngleDim: 1}, 1)
	r.register([]string{"degrees_north", "degree_north", "degrees_N", "degree_N", "degreeN"}, unit.Dimensions{unit.AngleDim: 1}, 1)
	r.register([]string{"degree", "degrees"}, unit.Dimensions{unit.AngleDim: 1}, 1)
	r.register([]string{"radian", "radians", "rad"}, unit.Dimensions{unit.AngleDim: 1}, 180 / piConst)

	// Length units.
	r.register([]string{"m", "meter", "meters", "metre", "metres"}, unit.Dimensions{unit.LengthDim: 1}, 1)
	r.register([]string{"km", "kilometer", "kilometers", "kilometre"}, unit.Dimensions{unit.LengthDim: 1}, 1000)
	r.register([]string{"cm"}, unit.Dimensions{unit.LengthDim: 1}, 0.01)

	// Time units.
	r.register([]string{"s", "sec", "second", "seconds"}, unit.Dimensions{unit.TimeDim: 1}, 1)
	r.register([]string{"min", "minute", "minutes"}, unit.Dimensions{unit.TimeDim: 1}, 60)
	r.register([]string{"h", "hr", "hour", "hours"}, unit.Dimensions{unit.TimeDim: 1}, 3600)
	r.register([]string{"day", "days"}, unit.Dimensions{unit.TimeDim: 1}, 86400)

	// Velocity units. degree/s is kept as its own unit (not derived from
	// degree and 1/s independently) because angular velocity conversion to
	// and from m/s is position-dependent and is the Field Provider's job
	// (§4.D/§4.E), not a linear unit conversion; see Convert below, which
	// explicitly rejects the m/s<->degree/s pair.
	r.register([]string{"m/s", "m s-1", "m.s-1", "meter/second", "meters per second"}, unit.Dimensions{unit.LengthDim: 1, unit.TimeDim: -1}, 1)
	r.register([]string{"cm/s"}, unit.Dimensions{unit.LengthDim: 1, unit.TimeDim: -1}, 0.01)
	r.register([]string{"degree/s", "degrees/s", "degree.s-1", "deg/s"}, angularVelocityDims, 1)

	return r
}

// angularVelocityDims is a distinct pseudo-dimension for degree/s so the
// registry never tries to offer a linear conversion between it and m/s:
// that conversion depends on latitude and is handled by the Coordinate
// Model at sample time (§4.E), not here.
var angularVelocityDims = unit.Dimensions{unit.AngleDim: 1, unit.TimeDim: -1}

const piConst = 3.14159265358979323846

func (r *UnitRegistry) register(names []string, dims unit.Dimensions, toSI float64) {
	for _, n := range names {
		r.units[n] = canonicalUnit{dims: dims, toSI: toSI}
	}
}

// recognize reports the registry entry (dimensions and SI factor) for a
// unit string. Axis-kind detection does not use it: IsLongitudeUnit and
// IsLatitudeUnit keep their own lists of spellings.
func (r *UnitRegistry) recognize(u string) (canonicalUnit, bool) {
	cu, ok := r.units[strings.TrimSpace(u)]
	return cu, ok
}

// Convert returns the (scale, offset) such that value_to = scale*value_from
// + offset, converting a quantity expressed in fromUnit into toUnit. It
// fails with a KindUnit error when either unit is unrecognized or the two
// units do not share dimensions - including the special m/s<->degree/s
// pair, whose conversion is not linear (it depends on latitude) and is
// therefore the Field Provider's responsibility, not the registry's.
func (r *UnitRegistry) Convert(fromUnit, toUnit string) (scale, offset float64, err error) {
	if strings.TrimSpace(fromUnit) == strings.TrimSpace(toUnit) {
		return 1, 0, nil
	}
	from, ok := r.recognize(fromUnit)
	if !ok {
		return 0, 0, newError(KindUnit, "UnitRegistry.Convert", fmt.Errorf("unrecognized unit %q", fromUnit))
	}
	to, ok := r.recognize(toUnit)
	if !ok {
		return 0, 0, newError(KindUnit, "UnitRegistry.Convert", fmt.Errorf("unrecognized unit %q", toUnit))
	}
	if !from.dims.Matches(to.dims) {
		return 0, 0, newError(KindUnit, "UnitRegistry.Convert", fmt.Errorf("incompatible units %q (%s) -> %q (%s)", fromUnit, from.dims, toUnit, to.dims))
	}
	// value_SI = value_from * from.toSI; value_to = value_SI / to.toSI.
	return from.toSI / to.toSI, 0, nil
}

// IsLongitudeUnit reports whether u names one of the canonical
// degrees_east spellings used by §4.B to identify a Longitude axis.
func IsLongitudeUnit(u string) bool {
	switch strings.TrimSpace(u) {
	case "degrees_east", "degree_east", "degrees_E", "degree_E", "degreeE":
		return true
	default:
		return false
	}
}

// IsLatitudeUnit reports whether u names one of the canonical
// degrees_north spellings used by §4.B to identify a Latitude axis.
func IsLatitudeUnit(u string) bool {
	switch strings.TrimSpace(u) {
	case "degrees_north", "degree_north", "degrees_N", "degree_N", "degreeN":
		return true
	default:
		return false
	}
}

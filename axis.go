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
	"math"
	"sort"
)

// AxisKind identifies what a 1-D coordinate axis represents.
type AxisKind int

// Axis kinds.
const (
	KindUnknown AxisKind = iota
	KindX
	KindY
	KindLongitude
	KindLatitude
	KindTime
)

func (k AxisKind) String() string {
	switch k {
	case KindX:
		return "X"
	case KindY:
		return "Y"
	case KindLongitude:
		return "Longitude"
	case KindLatitude:
		return "Latitude"
	case KindTime:
		return "Time"
	default:
		return "Unknown"
	}
}

// regularTolerance is the absolute tolerance used to decide whether an
// axis' spacing is regular, and whether a longitude axis covers a full
// circle.
const regularTolerance = 1e-9

// Axis is an ordered, strictly monotone sequence of coordinates along one
// dimension of a grid snapshot.
type Axis struct {
	kind AxisKind
	unit string

	values    []float64
	regular   bool
	start     float64
	increment float64
}

// NewAxis builds an Axis from raw coordinate values. Longitude axes are
// normalized into a contiguous [start, start+360) interval as part of
// construction; values must already be strictly monotone once normalized.
// Callers that also hold a data matrix indexed against the raw, pre-
// normalization order (the Snapshot Reader's variable data) must use
// NewAxisWithPermutation instead, so they can reorder that matrix to match.
func NewAxis(values []float64, kind AxisKind, unit string) (*Axis, error) {
	a, _, err := NewAxisWithPermutation(values, kind, unit)
	return a, err
}

// NewAxisWithPermutation builds an Axis exactly as NewAxis does, additionally
// returning perm such that the axis' i'th (sorted) value is the raw input's
// values[perm[i]]. For any non-longitude axis perm is the identity
// permutation, since only longitude normalization can reorder values.
func NewAxisWithPermutation(values []float64, kind AxisKind, unit string) (*Axis, []int, error) {
	if len(values) == 0 {
		return nil, nil, newError(KindAxis, "NewAxis", fmt.Errorf("axis has no values"))
	}
	a := &Axis{kind: kind, unit: unit, values: append([]float64(nil), values...)}
	perm := make([]int, len(a.values))
	for i := range perm {
		perm[i] = i
	}
	if kind == KindLongitude {
		perm = a.normalizeLongitude()
	}
	if err := a.checkMonotone(); err != nil {
		return nil, nil, err
	}
	a.detectRegular()
	return a, perm, nil
}

func (a *Axis) checkMonotone() error {
	for i := 1; i < len(a.values); i++ {
		if a.values[i] <= a.values[i-1] {
			return newError(KindAxis, "NewAxis", fmt.Errorf("values are not strictly monotone at index %d", i))
		}
	}
	return nil
}

// normalizeLongitude canonicalizes the axis values into [start, start+360)
// with start chosen from {-180, 0} so the covered arc stays contiguous, and
// returns the permutation it applied (see NewAxisWithPermutation) so a
// caller holding a matrix indexed against the raw order can follow suit.
func (a *Axis) normalizeLongitude() []int {
	origin := -180.0
	// If every raw value already falls in [0, 360), prefer the [0,360)
	// origin so a standard 0-360 source grid is left untouched.
	allNonNegative := true
	for _, v := range a.values {
		if v < 0 {
			allNonNegative = false
			break
		}
	}
	if allNonNegative {
		origin = 0
	}
	// Switch to the other origin when it gives a strictly narrower covered
	// arc, so an axis crossing that origin's seam stays contiguous.
	span := func(o float64) float64 {
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, v := range a.values {
			n := NormalizeLongitude(v, o, 360)
			lo, hi = math.Min(lo, n), math.Max(hi, n)
		}
		return hi - lo
	}
	if other := -180 - origin; span(other) < span(origin) {
		origin = other
	}
	for i, v := range a.values {
		a.values[i] = NormalizeLongitude(v, origin, 360)
	}

	perm := make([]int, len(a.values))
	for i := range perm {
		perm[i] = i
	}
	sort.Slice(perm, func(i, j int) bool { return a.values[perm[i]] < a.values[perm[j]] })
	sorted := make([]float64, len(a.values))
	for i, p := range perm {
		sorted[i] = a.values[p]
	}
	a.values = sorted
	return perm
}

// NormalizeLongitude maps v into [origin, origin+circle) by subtracting
// whole multiples of circle.
func NormalizeLongitude(v, origin, circle float64) float64 {
	return v - circle*math.Floor((v-origin)/circle)
}

func (a *Axis) detectRegular() {
	if len(a.values) < 2 {
		a.regular = true
		a.start = a.values[0]
		a.increment = 0
		return
	}
	first := a.values[1] - a.values[0]
	regular := true
	for i := 2; i < len(a.values); i++ {
		d := a.values[i] - a.values[i-1]
		if math.Abs(d-first) > regularTolerance {
			regular = false
			break
		}
	}
	if regular && a.kind == KindLongitude {
		span := a.values[len(a.values)-1] - a.values[0] + first
		if span > 360+regularTolerance {
			regular = false
		}
	}
	a.regular = regular
	a.start = a.values[0]
	if regular {
		a.increment = first
	}
}

// Kind returns the axis' semantic role.
func (a *Axis) Kind() AxisKind { return a.kind }

// Unit returns the axis' unit string.
func (a *Axis) Unit() string { return a.unit }

// Regular reports whether consecutive values are equally spaced.
func (a *Axis) Regular() bool { return a.regular }

// Len returns the number of coordinate values on the axis.
func (a *Axis) Len() int { return len(a.values) }

// Value returns the i'th coordinate value.
func (a *Axis) Value(i int) float64 { return a.values[i] }

// Values returns a copy of the axis' coordinate values.
func (a *Axis) Values() []float64 { return append([]float64(nil), a.values...) }

// Start returns the first coordinate value, valid for any axis.
func (a *Axis) Start() float64 { return a.start }

// Increment returns the spacing between consecutive values. Only
// meaningful when Regular() is true.
func (a *Axis) Increment() float64 { return a.increment }

// IndexOf returns the exact index of v, or (-1, false) if v is not one of
// the axis' coordinate values (within regularTolerance).
func (a *Axis) IndexOf(v float64) (int, bool) {
	if a.regular {
		if a.increment == 0 {
			if math.Abs(v-a.start) <= regularTolerance {
				return 0, true
			}
			return -1, false
		}
		fi := (v - a.start) / a.increment
		i := int(math.Round(fi))
		if i < 0 || i >= len(a.values) {
			return -1, false
		}
		if math.Abs(a.values[i]-v) <= regularTolerance {
			return i, true
		}
		return -1, false
	}
	i := sort.SearchFloat64s(a.values, v)
	if i < len(a.values) && math.Abs(a.values[i]-v) <= regularTolerance {
		return i, true
	}
	if i > 0 && math.Abs(a.values[i-1]-v) <= regularTolerance {
		return i - 1, true
	}
	return -1, false
}

// Bracket returns the pair of indices (i, i+1) whose values bracket v, or
// ok=false if v is outside the axis' covered range.
func (a *Axis) Bracket(v float64) (i0, i1 int, ok bool) {
	n := len(a.values)
	if n < 2 || v < a.values[0] || v > a.values[n-1] {
		return 0, 0, false
	}
	if a.regular && a.increment > 0 {
		i0 = int(math.Floor((v - a.start) / a.increment))
		if i0 < 0 {
			i0 = 0
		}
		if i0 >= n-1 {
			i0 = n - 2
		}
		return i0, i0 + 1, true
	}
	// Binary search for the rightmost value <= v.
	i0 = sort.Search(n, func(k int) bool { return a.values[k] > v }) - 1
	if i0 < 0 {
		i0 = 0
	}
	if i0 >= n-1 {
		i0 = n - 2
	}
	return i0, i0 + 1, true
}

// IndexBounded returns the index of the value closest to v, clamped to
// [0, Len()-1].
func (a *Axis) IndexBounded(v float64) int {
	n := len(a.values)
	if v <= a.values[0] {
		return 0
	}
	if v >= a.values[n-1] {
		return n - 1
	}
	i0, i1, _ := a.Bracket(v)
	if v-a.values[i0] <= a.values[i1]-v {
		return i0
	}
	return i1
}

// Convert applies the Unit Registry's linear conversion from the axis'
// current unit to toUnit, rewriting every coordinate value in place and
// updating Unit(). It fails with a KindUnit error if no linear conversion
// exists between the two units.
func (a *Axis) Convert(registry *UnitRegistry, toUnit string) error {
	scale, offset, err := registry.Convert(a.unit, toUnit)
	if err != nil {
		return err
	}
	for i := range a.values {
		a.values[i] = a.values[i]*scale + offset
	}
	a.unit = toUnit
	a.detectRegular()
	return nil
}

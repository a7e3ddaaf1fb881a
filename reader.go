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
	"os"
	"time"

	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"
)

// GridSnapshot is a single grid of values sampled at one instant: an axis
// pair, the values matrix stored [ix, iy], a timestamp, the unit the
// values are stored in, and the file's fill value.
type GridSnapshot struct {
	XAxis      *Axis
	YAxis      *Axis
	Values     *sparse.DenseArray // shape [nx, ny]
	Timestamp  time.Time
	NativeUnit string
	FillValue  float64
}

// SnapshotReader opens one grid-snapshot file and serves variables out of
// it, following the teacher's LoadCTMData pattern of inspecting a
// cdf.File's Header before reading variable data into a sparse.DenseArray.
type SnapshotReader struct {
	path     string
	file     *os.File
	cdf      *cdf.File
	registry *UnitRegistry
}

// OpenSnapshot opens path as a classic NetCDF file.
func OpenSnapshot(path string, registry *UnitRegistry) (*SnapshotReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, newError(KindIO, "OpenSnapshot", err)
	}
	cf, err := cdf.Open(f)
	if err != nil {
		f.Close()
		return nil, newError(KindIO, "OpenSnapshot", err)
	}
	return &SnapshotReader{path: path, file: f, cdf: cf, registry: registry}, nil
}

// Close releases the underlying file handle.
func (r *SnapshotReader) Close() error {
	return r.file.Close()
}

// attrString returns a variable or global (varName="") string attribute,
// or "" if it is absent or not a string.
func (r *SnapshotReader) attrString(varName, attName string) string {
	defer func() { recover() }() // GetAttribute panics on an unknown name
	v := r.cdf.Header.GetAttribute(varName, attName)
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// attrFloat returns the first element of a variable's float64 attribute,
// or (0, false) if it is absent.
func (r *SnapshotReader) attrFloat(varName, attName string) (v float64, ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	raw := r.cdf.Header.GetAttribute(varName, attName)
	switch t := raw.(type) {
	case []float64:
		if len(t) > 0 {
			return t[0], true
		}
	case []float32:
		if len(t) > 0 {
			return float64(t[0]), true
		}
	}
	return 0, false
}

// Load reads variable and its two coordinate axes, normalizing longitude
// and converting to desiredUnit if it is non-empty. Returns a KindAxis
// error if the Longitude/Latitude axes cannot be distinguished by unit,
// and a KindUnit error if desiredUnit requires a non-linear conversion.
func (r *SnapshotReader) Load(variable, desiredUnit string) (*GridSnapshot, error) {
	dims := r.cdf.Header.Dimensions(variable)
	if len(dims) == 0 {
		return nil, newError(KindIO, "SnapshotReader.Load", fmt.Errorf("variable %q not found", variable))
	}
	if len(dims) != 2 {
		return nil, newError(KindAxis, "SnapshotReader.Load", fmt.Errorf("variable %q has %d dimensions, want 2", variable, len(dims)))
	}

	// dims is ordered [dim0, dim1] matching on-disk storage [i0, i1]; the
	// coordinate variable sharing a dimension's name supplies its values.
	// invPermByDim maps a raw (on-disk) coordinate index to its position in
	// the axis' normalized, sorted values, so the data matrix built below
	// can be permuted to match whatever reordering NewAxisWithPermutation
	// applied (longitude normalization can resort a non-monotone input).
	axisByDim := make(map[string]*Axis, 2)
	invPermByDim := make(map[string][]int, 2)
	var lonDim, latDim string
	for _, d := range dims {
		values, err := r.readCoordinateVariable(d)
		if err != nil {
			return nil, err
		}
		unit := r.attrString(d, "units")
		kind := KindUnknown
		switch {
		case IsLongitudeUnit(unit):
			kind = KindLongitude
			lonDim = d
		case IsLatitudeUnit(unit):
			kind = KindLatitude
			latDim = d
		}
		if kind == KindUnknown {
			return nil, newError(KindAxis, "SnapshotReader.Load", fmt.Errorf("dimension %q (unit %q) is neither Longitude nor Latitude", d, unit))
		}
		a, perm, err := NewAxisWithPermutation(values, kind, unit)
		if err != nil {
			return nil, err
		}
		axisByDim[d] = a
		invPermByDim[d] = invertPermutation(perm)
	}
	if lonDim == "" || latDim == "" {
		return nil, newError(KindAxis, "SnapshotReader.Load", fmt.Errorf("variable %q is missing a Longitude or Latitude axis", variable))
	}

	nx, ny := axisByDim[lonDim].Len(), axisByDim[latDim].Len()
	diskShape := r.cdf.Header.Lengths(variable)
	raw := make([]float32, diskShape[0]*diskShape[1])
	rdr := r.cdf.Reader(variable, nil, nil)
	if _, err := rdr.Read(raw); err != nil {
		return nil, newError(KindIO, "SnapshotReader.Load", err)
	}

	invLon, invLat := invPermByDim[lonDim], invPermByDim[latDim]
	values := sparse.ZerosDense(nx, ny)
	lonFirst := dims[0] == lonDim
	for i0 := 0; i0 < diskShape[0]; i0++ {
		for i1 := 0; i1 < diskShape[1]; i1++ {
			v := float64(raw[i0*diskShape[1]+i1])
			if lonFirst {
				values.Set(v, invLon[i0], invLat[i1])
			} else {
				values.Set(v, invLon[i1], invLat[i0])
			}
		}
	}

	fillValue, _ := r.attrFloat(variable, "_FillValue")
	nativeUnit := r.attrString(variable, "units")

	snap := &GridSnapshot{
		XAxis:      axisByDim[lonDim],
		YAxis:      axisByDim[latDim],
		Values:     values,
		NativeUnit: nativeUnit,
		FillValue:  fillValue,
	}
	if ts, err := r.Date(variable); err == nil {
		snap.Timestamp = ts
	}

	if desiredUnit != "" && desiredUnit != nativeUnit {
		scale, offset, err := r.registry.Convert(nativeUnit, desiredUnit)
		if err != nil {
			return nil, err
		}
		for i, v := range values.Elements {
			if v == fillValue {
				continue
			}
			values.Elements[i] = v*scale + offset
		}
		snap.NativeUnit = desiredUnit
	}
	return snap, nil
}

// invertPermutation returns inv such that inv[perm[i]] == i for all i: given
// a raw-index-to-sorted-index permutation it returns the sorted-index-to-
// raw-index inverse, which is what mapping a raw disk index into the
// reordered axis requires.
func invertPermutation(perm []int) []int {
	inv := make([]int, len(perm))
	for sorted, raw := range perm {
		inv[raw] = sorted
	}
	return inv
}

// readCoordinateVariable reads a 1-D coordinate variable named dimName.
func (r *SnapshotReader) readCoordinateVariable(dimName string) ([]float64, error) {
	n := r.cdf.Header.Lengths(dimName)
	if len(n) == 0 {
		return nil, newError(KindAxis, "SnapshotReader.Load", fmt.Errorf("no coordinate variable for dimension %q", dimName))
	}
	buf := make([]float32, n[0])
	rdr := r.cdf.Reader(dimName, nil, nil)
	if _, err := rdr.Read(buf); err != nil {
		return nil, newError(KindIO, "SnapshotReader.Load", err)
	}
	out := make([]float64, len(buf))
	for i, v := range buf {
		out[i] = float64(v)
	}
	return out, nil
}

// Date reports the timestamp associated with variable: the "date"
// attribute on the variable (ISO8601 or "2006-01-02"), falling back to
// the global attribute of the same name.
func (r *SnapshotReader) Date(variable string) (time.Time, error) {
	for _, name := range []string{variable, ""} {
		s := r.attrString(name, "date")
		if s == "" {
			continue
		}
		for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, s); err == nil {
				return t, nil
			}
		}
	}
	return time.Time{}, newError(KindIO, "SnapshotReader.Date", fmt.Errorf("no parseable date attribute for variable %q", variable))
}

// Interpolate bilinearly interpolates snap at (x, y), returning fillValue
// if (x, y) is outside the axes or any enclosing corner equals the
// snapshot's native fill value. hint, if non-nil and still valid, is
// reused to skip axis lookups; the (possibly updated) hint is returned for
// reuse on the next call.
func (snap *GridSnapshot) Interpolate(x, y, fillValue float64, hint *CellHint) (float64, *CellHint) {
	if hint == nil || !hint.valid(x, y) {
		ix0, ix1, okx := snap.XAxis.Bracket(x)
		iy0, iy1, oky := snap.YAxis.Bracket(y)
		if !okx || !oky {
			return fillValue, hint
		}
		hint = &CellHint{
			x0: snap.XAxis.Value(ix0), x1: snap.XAxis.Value(ix1),
			y0: snap.YAxis.Value(iy0), y1: snap.YAxis.Value(iy1),
			ix0: ix0, ix1: ix1, iy0: iy0, iy1: iy1,
		}
	}

	v00 := snap.Values.Get(hint.ix0, hint.iy0)
	v10 := snap.Values.Get(hint.ix1, hint.iy0)
	v01 := snap.Values.Get(hint.ix0, hint.iy1)
	v11 := snap.Values.Get(hint.ix1, hint.iy1)
	if v00 == snap.FillValue || v10 == snap.FillValue || v01 == snap.FillValue || v11 == snap.FillValue {
		return fillValue, hint
	}

	tx := (x - hint.x0) / (hint.x1 - hint.x0)
	ty := (y - hint.y0) / (hint.y1 - hint.y0)
	v0 := v00 + tx*(v10-v00)
	v1 := v01 + tx*(v11-v01)
	return v0 + ty*(v1-v0), hint
}

// CellHint caches the enclosing grid cell of the last interpolated point
// so a particle that has not crossed a cell boundary skips axis lookups.
type CellHint struct {
	x0, x1, y0, y1         float64
	ix0, ix1, iy0, iy1 int
}

func (h *CellHint) valid(x, y float64) bool {
	return h != nil && x >= h.x0 && x <= h.x1 && y >= h.y0 && y <= h.y1
}

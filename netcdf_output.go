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

	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"
)

// secondsPerDay converts the driver's SI exponent unit (1/s) to the
// output convention (1/day): lambda_day = 86400 * lambda_s.
const secondsPerDay = 86400.0

// defaultFillValue mirrors NetCDF's classic default_fillvals["f8"].
const defaultFillValue = 9.969209968386869e+36

// WriteOptions configures one map_of_fle NetCDF output: whether to carry
// final_separation/advection_time, the fill value, and the global
// attributes recorded for reproducibility (one per integration parameter,
// per spec.md §6).
type WriteOptions struct {
	FillValue    float64
	HasFillValue bool
	Diagnostics  bool
	Attributes   map[string]string
}

// WriteMap writes result to a classic NetCDF file at path, following the
// teacher's CTMData.Write pattern in vargrid.go: build a cdf.Header with
// every dimension and variable declared up front, Define it, Create the
// file, then stream each variable's data in. lambda1/lambda2 are stored
// in 1/day (the driver computes 1/s; spec.md §6 requires multiplying by
// 86400 on write, not dividing).
func WriteMap(path string, result *MapResult, opts WriteOptions) (err error) {
	fill := opts.FillValue
	if !opts.HasFillValue {
		fill = defaultFillValue
	}

	h := cdf.NewHeader([]string{"lon", "lat"}, []int{result.Nx, result.Ny})
	for k, v := range opts.Attributes {
		h.AddAttribute("", k, v)
	}

	h.AddVariable("lon", []string{"lon"}, []float64{0})
	h.AddAttribute("lon", "units", "degrees_east")
	h.AddVariable("lat", []string{"lat"}, []float64{0})
	h.AddAttribute("lat", "units", "degrees_north")

	addField := func(name, units, description string) {
		h.AddVariable(name, []string{"lon", "lat"}, []float64{0})
		h.AddAttribute(name, "units", units)
		h.AddAttribute(name, "description", description)
		h.AddAttribute(name, "_FillValue", []float64{fill})
	}
	addField("theta1", "degrees", "major eigenvector orientation")
	addField("theta2", "degrees", "minor eigenvector orientation")
	addField("lambda1", "1/day", "major Lyapunov exponent")
	addField("lambda2", "1/day", "minor Lyapunov exponent")
	if opts.Diagnostics {
		addField("separation_distance", "degrees", "final particle separation")
		addField("advection_time", "days", "elapsed time since t_start")
	}
	h.Define()

	f, createErr := os.Create(path)
	if createErr != nil {
		return newError(KindIO, "WriteMap", createErr)
	}
	defer func() {
		closeErr := f.Close()
		if err == nil {
			err = closeErr
		}
		if err != nil {
			os.Remove(path) // §7: output files opened before a fatal error must be removed
		}
	}()

	cf, createErr := cdf.Create(f, h)
	if createErr != nil {
		return newError(KindIO, "WriteMap", createErr)
	}

	if err := writeVariable(cf, "lon", toDenseVector(result.Lon)); err != nil {
		return err
	}
	if err := writeVariable(cf, "lat", toDenseVector(result.Lat)); err != nil {
		return err
	}
	if err := writeVariable(cf, "theta1", transposeToLatLon(result.Theta1, result.Nx, result.Ny)); err != nil {
		return err
	}
	if err := writeVariable(cf, "theta2", transposeToLatLon(result.Theta2, result.Nx, result.Ny)); err != nil {
		return err
	}
	if err := writeVariable(cf, "lambda1", scaleThenTranspose(result.Lambda1, result.Nx, result.Ny, secondsPerDay, fill)); err != nil {
		return err
	}
	if err := writeVariable(cf, "lambda2", scaleThenTranspose(result.Lambda2, result.Nx, result.Ny, secondsPerDay, fill)); err != nil {
		return err
	}
	if opts.Diagnostics {
		if err := writeVariable(cf, "separation_distance", transposeToLatLon(result.FinalSeparation, result.Nx, result.Ny)); err != nil {
			return err
		}
		if err := writeVariable(cf, "advection_time", scaleThenTranspose(result.DeltaT, result.Nx, result.Ny, 1.0/secondsPerDay, fill)); err != nil {
			return err
		}
	}

	if err := cdf.UpdateNumRecs(f); err != nil {
		return newError(KindIO, "WriteMap", err)
	}
	return nil
}

// toDenseVector wraps a 1-D slice as a sparse.DenseArray for writeVariable.
func toDenseVector(v []float64) *sparse.DenseArray {
	out := sparse.ZerosDense(len(v))
	for i, x := range v {
		out.Set(x, i)
	}
	return out
}

// transposeToLatLon reorders a row-major [nx*ny] array (x fastest, as
// MapResult.Index stores it) into the on-disk [lon][lat] layout.
func transposeToLatLon(flat []float64, nx, ny int) *sparse.DenseArray {
	out := sparse.ZerosDense(nx, ny)
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			out.Set(flat[j*nx+i], i, j)
		}
	}
	return out
}

// scaleThenTranspose applies factor to every element not equal to fill
// before transposing, used for the 1/s->1/day and s->day unit conversions.
func scaleThenTranspose(flat []float64, nx, ny int, factor, fill float64) *sparse.DenseArray {
	out := sparse.ZerosDense(nx, ny)
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			v := flat[j*nx+i]
			if v != fill {
				v *= factor
			}
			out.Set(v, i, j)
		}
	}
	return out
}

func writeVariable(f *cdf.File, name string, data *sparse.DenseArray) error {
	n := 1
	for _, v := range data.Shape {
		n *= v
	}
	if len(data.Elements) != n {
		return newError(KindIO, "writeVariable", fmt.Errorf("variable %q: dims want %d elements, got %d", name, n, len(data.Elements)))
	}
	data64 := make([]float64, len(data.Elements))
	copy(data64, data.Elements)

	end := f.Header.Lengths(name)
	start := make([]int, len(end))
	w := f.Writer(name, start, end)
	if _, err := w.Write(data64); err != nil {
		return newError(KindIO, "writeVariable", fmt.Errorf("writing variable %s: %w", name, err))
	}
	return nil
}

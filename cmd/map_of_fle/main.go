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

// Command map_of_fle computes a Lagrangian coherent structure map (FSLE or
// FTLE) over a rectilinear grid and writes it to a NetCDF file.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/CNES/aviso-lagrangian"
	"github.com/spf13/cobra"
)

var (
	mode            string
	resolution      float64
	nx, ny          int
	xMin, xMax      float64
	yMin, yMax      float64
	stencilFlag     string
	initialSep      float64
	finalSep        float64
	advectionDays   float64
	stepHours       float64
	timeDirection   string
	unitFlag        string
	maskPath        string
	maskVar         string
	diagnostic      bool
	threads         int
	verbose         bool
)

func init() {
	flags := rootCmd.Flags()
	flags.StringVar(&mode, "mode", "fsle", "fsle or ftle")
	flags.Float64Var(&resolution, "resolution", 0, "grid step in degrees (overrides --nx/--ny when > 0)")
	flags.IntVar(&nx, "nx", 0, "grid point count in X")
	flags.IntVar(&ny, "ny", 0, "grid point count in Y")
	flags.Float64Var(&xMin, "x_min", 0, "grid lower X bound")
	flags.Float64Var(&xMax, "x_max", 0, "grid upper X bound")
	flags.Float64Var(&yMin, "y_min", 0, "grid lower Y bound")
	flags.Float64Var(&yMax, "y_max", 0, "grid upper Y bound")
	flags.StringVar(&stencilFlag, "stencil", "triplet", "triplet or quintuplet")
	flags.Float64Var(&initialSep, "initial_separation", 0.02, "initial stencil separation, in the grid's unit")
	flags.Float64Var(&finalSep, "final_separation", 0, "FSLE termination separation (required in fsle mode)")
	flags.Float64Var(&advectionDays, "advection_time", 0, "advection window, in days (required in ftle mode)")
	flags.Float64Var(&stepHours, "integration_time_step", 6, "RK4 step, in hours")
	flags.StringVar(&timeDirection, "time_direction", "forward", "forward or backward")
	flags.StringVar(&unitFlag, "unit", "metric", "metric or angular")
	flags.StringVar(&maskPath, "mask", "", "optional mask file path")
	flags.StringVar(&maskVar, "mask_var", "", "mask variable name (with --mask)")
	flags.BoolVar(&diagnostic, "diagnostic", false, "also write separation_distance/advection_time")
	flags.IntVar(&threads, "threads", 0, "worker count; 0 = hardware concurrency, 1 = serial")
	flags.BoolVar(&verbose, "verbose", false, "enable debug logging")
}

var rootCmd = &cobra.Command{
	Use:   "map_of_fle CONFIG OUTPUT T_START",
	Short: "Compute a Lagrangian coherent structure map.",
	Args:  cobra.ExactArgs(3),
	RunE:  runMapOfFLE,
}

func runMapOfFLE(cmd *cobra.Command, args []string) error {
	configPath, outputPath, tStartArg := args[0], args[1], args[2]

	var driverMode lagrangian.Mode
	switch mode {
	case "fsle":
		driverMode = lagrangian.FSLE
	case "ftle":
		driverMode = lagrangian.FTLE
	default:
		return usageError(fmt.Errorf("--mode must be fsle or ftle, got %q", mode))
	}
	if driverMode == lagrangian.FSLE && finalSep <= 0 {
		return usageError(fmt.Errorf("--final_separation is required in fsle mode"))
	}
	if driverMode == lagrangian.FTLE && advectionDays <= 0 {
		return usageError(fmt.Errorf("--advection_time is required in ftle mode"))
	}
	if xMax <= xMin || yMax <= yMin {
		return usageError(fmt.Errorf("--x_min must be < --x_max and --y_min < --y_max"))
	}

	stencilKind := lagrangian.Triplet
	if stencilFlag == "quintuplet" {
		stencilKind = lagrangian.Quintuplet
	} else if stencilFlag != "triplet" {
		return usageError(fmt.Errorf("--stencil must be triplet or quintuplet, got %q", stencilFlag))
	}

	velocityUnit := lagrangian.MetricVelocity
	if unitFlag == "angular" {
		velocityUnit = lagrangian.AngularVelocity
	} else if unitFlag != "metric" {
		return usageError(fmt.Errorf("--unit must be metric or angular, got %q", unitFlag))
	}

	gridNx, gridNy := nx, ny
	if resolution > 0 {
		gridNx = int((xMax-xMin)/resolution) + 1
		gridNy = int((yMax-yMin)/resolution) + 1
	}
	if gridNx < 1 || gridNy < 1 {
		return usageError(fmt.Errorf("grid has no points: set --resolution or --nx/--ny"))
	}

	tStart, err := time.Parse(time.RFC3339, tStartArg)
	if err != nil {
		if tStart, err = time.Parse("2006-01-02", tStartArg); err != nil {
			return usageError(fmt.Errorf("parsing T_START %q: %w", tStartArg, err))
		}
	}

	log := lagrangian.NewLogger(verbose)

	velocityCfg, err := lagrangian.LoadVelocityConfig(configPath)
	if err != nil {
		return err
	}
	registry := lagrangian.NewUnitRegistry()
	model := lagrangian.NewCoordinateModel(lagrangian.SphericalEquatorial, velocityUnit)
	field, err := lagrangian.NewFieldProvider(velocityCfg, model, registry, log, 8)
	if err != nil {
		return err
	}

	tStartSec := float64(tStart.Unix())
	var tEndSec float64
	signedDirection := 1.0
	if timeDirection == "backward" {
		signedDirection = -1.0
	} else if timeDirection != "forward" {
		return usageError(fmt.Errorf("--time_direction must be forward or backward, got %q", timeDirection))
	}
	if driverMode == lagrangian.FTLE {
		tEndSec = tStartSec + signedDirection*advectionDays*86400
	} else {
		// FSLE mode may complete before the series ends; cap at the field's
		// own coverage so the driver never requests an unfetchable time.
		if signedDirection > 0 {
			tEndSec = float64(field.EndTime().Unix())
		} else {
			tEndSec = float64(field.StartTime().Unix())
		}
	}

	var mask lagrangian.MaskReader
	if maskPath != "" {
		maskReader, err := loadMask(maskPath, maskVar, registry)
		if err != nil {
			return err
		}
		mask = maskReader
	}

	sweep := lagrangian.NewMapSweep(lagrangian.SweepConfig{
		Nx: gridNx, Ny: gridNy,
		XMin: xMin, XMax: xMax, YMin: yMin, YMax: yMax,
		FillValue:   9.969209968386869e+36,
		Diagnostics: diagnostic,
		Driver: lagrangian.DriverConfig{
			TStart: tStartSec, TEnd: tEndSec, H: stepHours * 3600,
			Mode: driverMode, Delta0: initialSep, DeltaFinal: finalSep,
			StencilKind: stencilKind, Threads: threads,
		},
	}, field, model, mask, log)

	result, err := sweep.Run(context.Background())
	if err != nil {
		return err
	}

	opts := lagrangian.WriteOptions{
		Diagnostics: diagnostic,
		Attributes: map[string]string{
			"mode":                   mode,
			"resolution":             fmt.Sprintf("%g", resolution),
			"stencil":                stencilFlag,
			"initial_separation":     fmt.Sprintf("%g", initialSep),
			"final_separation":       fmt.Sprintf("%g", finalSep),
			"advection_time_days":    fmt.Sprintf("%g", advectionDays),
			"integration_time_step":  fmt.Sprintf("%gh", stepHours),
			"time_direction":         timeDirection,
			"unit":                   unitFlag,
			"t_start":                tStart.Format(time.RFC3339),
		},
	}
	if err := lagrangian.WriteMap(outputPath, result, opts); err != nil {
		return err
	}
	return nil
}

// loadMask opens a grid snapshot and adapts it to a MaskReader: a node is
// masked when the snapshot's value there is its fill value (land, say).
func loadMask(path, variable string, registry *lagrangian.UnitRegistry) (lagrangian.MaskReader, error) {
	reader, err := lagrangian.OpenSnapshot(path, registry)
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	snap, err := reader.Load(variable, "")
	if err != nil {
		return nil, err
	}
	return lagrangian.MaskReaderFunc(func(x, y float64) bool {
		v, _ := snap.Interpolate(x, y, snap.FillValue, nil)
		return v == snap.FillValue
	}), nil
}

// usageErr reports a bad-argument failure (exit code 2, spec.md §6).
type usageErr struct{ err error }

func (e *usageErr) Error() string { return e.err.Error() }

func usageError(err error) error { return &usageErr{err} }

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if _, ok := err.(*usageErr); ok {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

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

// Command path advects a set of particles from a position file through a
// velocity field and writes their trajectories as ASCII rows.
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
	stepHours float64
	unitFlag  string
	outPath   string
	threads   int
	verbose   bool
)

func init() {
	flags := rootCmd.Flags()
	flags.Float64Var(&stepHours, "integration_time_step", 6, "RK4 step, in hours")
	flags.StringVar(&unitFlag, "unit", "metric", "metric or angular")
	flags.StringVar(&outPath, "output", "", "output file (default: stdout)")
	flags.IntVar(&threads, "threads", 0, "accepted for symmetry with map_of_fle; particles are always advanced serially")
	flags.BoolVar(&verbose, "verbose", false, "enable debug logging")
}

var rootCmd = &cobra.Command{
	Use:   "path CONFIG POSITIONS_FILE T_START T_END",
	Short: "Advect a set of particles through a velocity field.",
	Args:  cobra.ExactArgs(4),
	RunE:  runPathCmd,
}

func parseTimeArg(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

func runPathCmd(cmd *cobra.Command, args []string) error {
	configPath, positionsPath, tStartArg, tEndArg := args[0], args[1], args[2], args[3]

	if unitFlag != "metric" && unitFlag != "angular" {
		return usageError(fmt.Errorf("--unit must be metric or angular, got %q", unitFlag))
	}
	velocityUnit := lagrangian.MetricVelocity
	if unitFlag == "angular" {
		velocityUnit = lagrangian.AngularVelocity
	}

	tStart, err := parseTimeArg(tStartArg)
	if err != nil {
		return usageError(fmt.Errorf("parsing T_START %q: %w", tStartArg, err))
	}
	tEnd, err := parseTimeArg(tEndArg)
	if err != nil {
		return usageError(fmt.Errorf("parsing T_END %q: %w", tEndArg, err))
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

	particles, err := lagrangian.ReadPositions(positionsPath)
	if err != nil {
		return err
	}

	out := os.Stdout
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	cfg := lagrangian.PathConfig{
		TStart:  float64(tStart.Unix()),
		TEnd:    float64(tEnd.Unix()),
		H:       stepHours * 3600,
		Threads: threads,
	}

	return lagrangian.RunPath(context.Background(), cfg, field, model, particles, out)
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

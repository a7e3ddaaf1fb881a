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
	"bufio"
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"
)

// Particle is one tracked point of a path run.
type Particle struct {
	ID      int
	X, Y    float64
	Missing bool
}

// ReadPositions parses a whitespace-separated "lon lat" position file,
// one particle per line; a "#" marks the rest of the line a comment.
// Blank lines are skipped.
func ReadPositions(path string) ([]Particle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, newError(KindIO, "ReadPositions", err)
	}
	defer f.Close()

	var particles []Particle
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if len(fields) != 2 {
			return nil, newError(KindConfig, "ReadPositions", fmt.Errorf("malformed position line %q: want \"lon lat\"", line))
		}
		lon, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return nil, newError(KindConfig, "ReadPositions", fmt.Errorf("parsing longitude %q: %w", fields[0], err))
		}
		lat, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, newError(KindConfig, "ReadPositions", fmt.Errorf("parsing latitude %q: %w", fields[1], err))
		}
		particles = append(particles, Particle{ID: len(particles), X: lon, Y: lat})
	}
	if err := scanner.Err(); err != nil {
		return nil, newError(KindIO, "ReadPositions", err)
	}
	return particles, nil
}

// PathConfig holds the integration parameters for one path run: the
// interval over which each particle is advected and the fixed RK4 step.
type PathConfig struct {
	TStart, TEnd, H float64
	Threads         int
}

// PathField is the subset of FieldProvider's surface RunPath needs: a
// step-end union fetch and a FieldSampler. *FieldProvider satisfies it.
type PathField interface {
	FieldSampler
	FetchSeconds(ctx context.Context, tLo, tHi float64) error
}

// RunPath advects every particle from TStart to TEnd, writing one
// tab-separated "id\tlon\tlat\tISO8601" line per particle per timestamp
// while it is not missing (spec.md §6), following the teacher's
// direct-to-writer Log(w io.Writer) style rather than building an
// in-memory result first.
func RunPath(ctx context.Context, cfg PathConfig, field PathField, model CoordinateModel, particles []Particle, w io.Writer) error {
	it := NewIterator(cfg.TStart, cfg.TEnd, cfg.H)
	signedH := math.Copysign(cfg.H, cfg.TEnd-cfg.TStart)

	if err := writeParticleRow(w, particles, it.Current()); err != nil {
		return err
	}

	for !it.Done() {
		select {
		case <-ctx.Done():
			for i := range particles {
				particles[i].Missing = true
			}
			return ctx.Err()
		default:
		}

		tCurr := it.Current()
		tNext := tCurr + signedH
		if (signedH > 0 && tNext > cfg.TEnd) || (signedH < 0 && tNext < cfg.TEnd) {
			tNext = cfg.TEnd // the terminal step is clamped, as the Iterator's is
		}
		step := tNext - tCurr
		lo, hi := tCurr, tNext
		if step < 0 {
			lo, hi = tNext, tCurr
		}
		if err := field.FetchSeconds(ctx, lo, hi); err != nil {
			return err
		}

		for i := range particles {
			if particles[i].Missing {
				continue
			}
			nx, ny, ok := RK4Step(field, model, tCurr, particles[i].X, particles[i].Y, step)
			if !ok {
				particles[i].Missing = true
				continue
			}
			particles[i].X, particles[i].Y = nx, ny
		}

		it.Next()
		if err := writeParticleRow(w, particles, it.Current()); err != nil {
			return err
		}
	}
	return nil
}

func writeParticleRow(w io.Writer, particles []Particle, t float64) error {
	stamp := secondsToTime(t).Format(time.RFC3339)
	for _, p := range particles {
		if p.Missing {
			continue
		}
		if _, err := fmt.Fprintf(w, "%d\t%.6f\t%.6f\t%s\n", p.ID, p.X, p.Y, stamp); err != nil {
			return newError(KindIO, "RunPath", err)
		}
	}
	return nil
}

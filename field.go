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
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/ctessum/requestcache"
	"github.com/sirupsen/logrus"
)

// TimestampedFile is one resolved entry of a VelocityConfig's snapshot
// series: a file path and the instant it represents.
type TimestampedFile struct {
	Time time.Time
	Path string
}

// VelocityConfig is the resolved [VELOCITY] section of a run's INI
// configuration (see config.go for parsing).
type VelocityConfig struct {
	UVar, VVar string
	Units      VelocityUnit
	FillValue  float64
	HasFillValue bool
	Files      []TimestampedFile // in resolved order; NewFieldProvider sorts its own copy by Time
}

type snapshotPair struct {
	t    time.Time
	u, v *GridSnapshot
}

// FieldProvider evaluates a velocity field at (t, x, y) by temporally
// interpolating between the two snapshots bracketing t, lazily loading
// snapshots through a sliding window. Grounded on two teacher patterns:
// github.com/ctessum/requestcache serializes and deduplicates concurrent
// loads behind a single generating worker, and github.com/cenkalti/backoff
// retries a transient snapshot-open failure the way sr/sr.go retries a
// cloud job submission.
type FieldProvider struct {
	cfg      VelocityConfig
	model    CoordinateModel
	registry *UnitRegistry
	log      *logrus.Logger
	cadence  time.Duration

	cache *requestcache.Cache

	nativeOnce     sync.Once
	nativeVelocity VelocityUnit

	mu     sync.RWMutex
	window []*snapshotPair // ascending by t, currently resident
}

// NewFieldProvider builds a FieldProvider over cfg's resolved file series.
// cacheSize bounds the number of resident snapshot files.
func NewFieldProvider(cfg VelocityConfig, model CoordinateModel, registry *UnitRegistry, log *logrus.Logger, cacheSize int) (*FieldProvider, error) {
	if len(cfg.Files) < 2 {
		return nil, newError(KindConfig, "NewFieldProvider", fmt.Errorf("velocity series needs at least 2 files, got %d", len(cfg.Files)))
	}
	sorted := append([]TimestampedFile(nil), cfg.Files...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Time.Before(sorted[j].Time) })
	cfg.Files = sorted
	if log == nil {
		log = logrus.StandardLogger()
	}

	fp := &FieldProvider{
		cfg:      cfg,
		model:    model,
		registry: registry,
		log:      log,
		cadence:  sorted[1].Time.Sub(sorted[0].Time),
	}
	fp.cache = requestcache.NewCache(fp.process, 1, requestcache.Deduplicate(), requestcache.Memory(cacheSize))
	return fp, nil
}

// StartTime and EndTime report the series' covered interval.
func (fp *FieldProvider) StartTime() time.Time { return fp.cfg.Files[0].Time }
func (fp *FieldProvider) EndTime() time.Time   { return fp.cfg.Files[len(fp.cfg.Files)-1].Time }

// Unit reports the velocity mode this provider normalizes samples to.
func (fp *FieldProvider) Unit() VelocityUnit { return fp.cfg.Units }

// process loads one file's U and V grids, retrying transient I/O failures
// with an exponential backoff before giving up.
func (fp *FieldProvider) process(ctx context.Context, payload interface{}) (interface{}, error) {
	path := payload.(string)
	var pair *snapshotPair
	err := backoff.RetryNotify(
		func() error {
			p, err := fp.loadFile(path)
			if err != nil {
				return err
			}
			pair = p
			return nil
		},
		backoff.NewExponentialBackOff(),
		func(err error, d time.Duration) {
			fp.log.WithError(err).Warnf("retrying snapshot load for %s in %v", path, d)
		},
	)
	return pair, err
}

func (fp *FieldProvider) loadFile(path string) (*snapshotPair, error) {
	r, err := OpenSnapshot(path, fp.registry)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	u, err := r.Load(fp.cfg.UVar, "")
	if err != nil {
		return nil, err
	}
	v, err := r.Load(fp.cfg.VVar, "")
	if err != nil {
		return nil, err
	}
	if fp.cfg.HasFillValue {
		u.FillValue = fp.cfg.FillValue
		v.FillValue = fp.cfg.FillValue
	}
	t, err := r.Date(fp.cfg.UVar)
	if err != nil {
		return nil, err
	}
	fp.nativeOnce.Do(func() {
		fp.nativeVelocity = MetricVelocity
		if isAngularVelocityUnit(u.NativeUnit) {
			fp.nativeVelocity = AngularVelocity
		}
	})
	return &snapshotPair{t: t, u: u, v: v}, nil
}

// isAngularVelocityUnit reports whether a velocity unit string names an
// angular rate (degree/s and its spellings) rather than a metric one.
func isAngularVelocityUnit(u string) bool {
	switch u {
	case "degree/s", "degrees/s", "degree.s-1", "deg/s":
		return true
	default:
		return false
	}
}

// Fetch guarantees that snapshots covering [tLo, tHi] are resident,
// loading any missing ones in timestamp order and evicting any snapshot
// with t < tLo-cadence or t > tHi+cadence. Concurrent Fetch calls are
// serialized by the caller (the Map Sweep's fetch coordinator, §5); Fetch
// itself takes the write lock only while swapping in the new window.
func (fp *FieldProvider) Fetch(ctx context.Context, tLo, tHi time.Time) error {
	lo, hi := tLo.Add(-fp.cadence), tHi.Add(fp.cadence)

	var needed []TimestampedFile
	for _, f := range fp.cfg.Files {
		if !f.Time.Before(lo) && !f.Time.After(hi) {
			needed = append(needed, f)
		}
	}
	if len(needed) == 0 {
		return newError(KindIntervalNotCovered, "FieldProvider.Fetch", fmt.Errorf("no snapshot covers [%v, %v]", tLo, tHi))
	}

	next := make([]*snapshotPair, 0, len(needed))
	for _, f := range needed {
		req := fp.cache.NewRequest(ctx, f.Path, f.Path)
		result, err := req.Result()
		if err != nil {
			return newError(KindIO, "FieldProvider.Fetch", err)
		}
		next = append(next, result.(*snapshotPair))
	}

	fp.mu.Lock()
	fp.window = next
	fp.mu.Unlock()
	return nil
}

// FetchSeconds is Fetch with its interval expressed as Unix-second
// timestamps, the representation the Iterator and FLE Driver use.
func (fp *FieldProvider) FetchSeconds(ctx context.Context, tLo, tHi float64) error {
	return fp.Fetch(ctx, secondsToTime(tLo), secondsToTime(tHi))
}

// Compute temporally and spatially interpolates the field at (t, x, y).
// A KindIntervalNotCovered error means t falls outside the resident
// window (the caller forgot to Fetch, or the series doesn't cover t) and
// is fatal. defined=false (err=nil) is the recoverable case: the point
// fell outside the grid, or hit the snapshots' fill value.
func (fp *FieldProvider) Compute(t time.Time, x, y float64) (u, v float64, defined bool, err error) {
	fp.mu.RLock()
	window := fp.window
	fp.mu.RUnlock()

	prev, next, ok := fp.bracketSnapshots(window, t)
	if !ok {
		return 0, 0, false, newError(KindIntervalNotCovered, "FieldProvider.Compute", fmt.Errorf("time %v not covered by the resident window", t))
	}

	uPrev, vPrev, defPrev := sampleSnapshotPair(prev, x, y, fp.cfg.FillValue)
	if prev == next {
		if !defPrev {
			return 0, 0, false, nil
		}
		u, v = fp.normalize(x, y, uPrev, vPrev)
		return u, v, true, nil
	}
	uNext, vNext, defNext := sampleSnapshotPair(next, x, y, fp.cfg.FillValue)
	if !defPrev || !defNext {
		return 0, 0, false, nil
	}

	span := next.t.Sub(prev.t).Seconds()
	frac := t.Sub(prev.t).Seconds() / span
	u = uPrev + frac*(uNext-uPrev)
	v = vPrev + frac*(vNext-vPrev)
	u, v = fp.normalize(x, y, u, v)
	return u, v, true, nil
}

func (fp *FieldProvider) normalize(x, y, u, v float64) (float64, float64) {
	return fp.model.ConvertVelocity(x, y, u, v, fp.nativeVelocity, fp.cfg.Units)
}

// Sample implements FieldSampler for use by RK4Step/Stencil.Advance. A
// fatal Compute error (the driver failed to Fetch first) is logged and
// reported as undefined rather than panicking mid-sweep.
func (fp *FieldProvider) Sample(t float64, x, y float64) (u, v float64, defined bool) {
	u, v, defined, err := fp.Compute(secondsToTime(t), x, y)
	if err != nil {
		fp.log.WithError(err).Error("field provider sampled outside its fetched window")
		return 0, 0, false
	}
	return u, v, defined
}

// secondsToTime and timeToSeconds convert between the float64 Unix-second
// timestamps the Iterator/RK4 integrator operate on and the time.Time
// values snapshot files are keyed by.
func secondsToTime(s float64) time.Time {
	whole := int64(s)
	frac := s - float64(whole)
	return time.Unix(whole, int64(frac*1e9)).UTC()
}

func timeToSeconds(t time.Time) float64 {
	return float64(t.Unix()) + float64(t.Nanosecond())/1e9
}

// bracketSnapshots finds the pair of resident snapshots bracketing t.
// At either end of the series, where only one side is resident, it
// falls back to nearest-neighbor within one cadence, per §4.D.
func (fp *FieldProvider) bracketSnapshots(window []*snapshotPair, t time.Time) (prev, next *snapshotPair, ok bool) {
	if len(window) == 0 {
		return nil, nil, false
	}
	for i := 0; i < len(window); i++ {
		if window[i].t.Equal(t) {
			return window[i], window[i], true
		}
		if window[i].t.After(t) {
			if i == 0 {
				if window[0].t.Sub(t) <= fp.cadence {
					return window[0], window[0], true
				}
				return nil, nil, false
			}
			return window[i-1], window[i], true
		}
	}
	last := window[len(window)-1]
	if t.Sub(last.t) <= fp.cadence {
		return last, last, true
	}
	return nil, nil, false
}

func sampleSnapshotPair(p *snapshotPair, x, y, fillValue float64) (u, v float64, defined bool) {
	uVal, _ := p.u.Interpolate(x, y, fillValue, nil)
	vVal, _ := p.v.Interpolate(x, y, fillValue, nil)
	if uVal == fillValue || vVal == fillValue {
		return 0, 0, false
	}
	return uVal, vVal, true
}

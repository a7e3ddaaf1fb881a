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
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/go-ini/ini"
)

// LoadVelocityConfig parses the [VELOCITY] section of an INI configuration
// file (spec.md §6) into a VelocityConfig. Either FILES (a ";"-separated
// list) or DIR+PATTERN must be given to resolve the snapshot series. Each
// resolved path's timestamp is then decoded one of two ways: an explicit
// ";"-separated TIMESTAMPS list (one entry per resolved file, in order,
// RFC3339 or "2006-01-02"), or - when TIMESTAMPS is absent - DATE_REGEX (a
// regular expression with one capture group) plus DATE_FORMAT (a
// time.Parse reference layout applied to that capture).
func LoadVelocityConfig(path string) (VelocityConfig, error) {
	// Inline-comment stripping is off: ";" separates FILES and TIMESTAMPS
	// entries.
	cfg, err := ini.LoadSources(ini.LoadOptions{IgnoreInlineComment: true}, path)
	if err != nil {
		return VelocityConfig{}, newError(KindConfig, "LoadVelocityConfig", err)
	}
	sec, err := cfg.GetSection("VELOCITY")
	if err != nil {
		return VelocityConfig{}, newError(KindConfig, "LoadVelocityConfig", fmt.Errorf("missing [VELOCITY] section: %w", err))
	}

	var vc VelocityConfig
	vc.UVar = sec.Key("U").String()
	vc.VVar = sec.Key("V").String()
	if vc.UVar == "" || vc.VVar == "" {
		return VelocityConfig{}, newError(KindConfig, "LoadVelocityConfig", fmt.Errorf("U and V must both be set"))
	}

	switch strings.ToLower(sec.Key("UNITS").String()) {
	case "metric", "":
		vc.Units = MetricVelocity
	case "angular":
		vc.Units = AngularVelocity
	default:
		return VelocityConfig{}, newError(KindConfig, "LoadVelocityConfig", fmt.Errorf("UNITS must be metric or angular, got %q", sec.Key("UNITS").String()))
	}

	if sec.HasKey("FILL_VALUE") {
		v, err := sec.Key("FILL_VALUE").Float64()
		if err != nil {
			return VelocityConfig{}, newError(KindConfig, "LoadVelocityConfig", fmt.Errorf("parsing FILL_VALUE: %w", err))
		}
		vc.FillValue = v
		vc.HasFillValue = true
	}

	timestampsRaw := sec.Key("TIMESTAMPS").String()
	dateFormat := sec.Key("DATE_FORMAT").String()
	dateRegex := sec.Key("DATE_REGEX").String()
	explicitTimestamps := timestampsRaw != ""
	if !explicitTimestamps && (dateFormat == "" || dateRegex == "") {
		return VelocityConfig{}, newError(KindConfig, "LoadVelocityConfig", fmt.Errorf("either TIMESTAMPS, or both DATE_FORMAT and DATE_REGEX, are required to decode snapshot timestamps"))
	}
	var re *regexp.Regexp
	if !explicitTimestamps {
		var err error
		re, err = regexp.Compile(dateRegex)
		if err != nil {
			return VelocityConfig{}, newError(KindConfig, "LoadVelocityConfig", fmt.Errorf("compiling DATE_REGEX: %w", err))
		}
	}

	var paths []string
	if filesRaw := sec.Key("FILES").String(); filesRaw != "" {
		for _, p := range strings.Split(filesRaw, ";") {
			if p = strings.TrimSpace(p); p != "" {
				paths = append(paths, p)
			}
		}
	} else if dir := sec.Key("DIR").String(); dir != "" {
		pattern := sec.Key("PATTERN").String()
		if pattern == "" {
			pattern = "*"
		}
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return VelocityConfig{}, newError(KindConfig, "LoadVelocityConfig", fmt.Errorf("globbing DIR+PATTERN: %w", err))
		}
		paths = matches
	} else {
		return VelocityConfig{}, newError(KindConfig, "LoadVelocityConfig", fmt.Errorf("either FILES or DIR+PATTERN must be set"))
	}
	if len(paths) == 0 {
		return VelocityConfig{}, newError(KindConfig, "LoadVelocityConfig", fmt.Errorf("no snapshot files resolved"))
	}

	if explicitTimestamps {
		var stamps []string
		for _, s := range strings.Split(timestampsRaw, ";") {
			if s = strings.TrimSpace(s); s != "" {
				stamps = append(stamps, s)
			}
		}
		if len(stamps) != len(paths) {
			return VelocityConfig{}, newError(KindConfig, "LoadVelocityConfig", fmt.Errorf("TIMESTAMPS has %d entries, want %d (one per resolved file)", len(stamps), len(paths)))
		}
		for i, s := range stamps {
			t, err := parseExplicitTimestamp(s)
			if err != nil {
				return VelocityConfig{}, newError(KindConfig, "LoadVelocityConfig", fmt.Errorf("parsing TIMESTAMPS entry %q: %w", s, err))
			}
			vc.Files = append(vc.Files, TimestampedFile{Time: t, Path: paths[i]})
		}
		return vc, nil
	}

	for _, p := range paths {
		m := re.FindStringSubmatch(filepath.Base(p))
		if len(m) < 2 {
			return VelocityConfig{}, newError(KindConfig, "LoadVelocityConfig", fmt.Errorf("DATE_REGEX did not match %q", p))
		}
		t, err := time.Parse(dateFormat, m[1])
		if err != nil {
			return VelocityConfig{}, newError(KindConfig, "LoadVelocityConfig", fmt.Errorf("parsing date %q from %q: %w", m[1], p, err))
		}
		vc.Files = append(vc.Files, TimestampedFile{Time: t, Path: p})
	}
	return vc, nil
}

// parseExplicitTimestamp parses a TIMESTAMPS entry as RFC3339, falling back
// to a bare calendar date.
func parseExplicitTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

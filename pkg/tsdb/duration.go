/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package tsdb

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

//nolint:gochecknoglobals // unit table
var fluxUnits = []struct {
	suffix string
	unit   time.Duration
}{
	// Longer suffixes first so "ms" is not read as "m".
	{"ns", time.Nanosecond},
	{"us", time.Microsecond},
	{"µs", time.Microsecond},
	{"ms", time.Millisecond},
	{"s", time.Second},
	{"m", time.Minute},
	{"h", time.Hour},
	{"d", 24 * time.Hour},
	{"w", 7 * 24 * time.Hour},
}

// ParseFluxDuration parses a Flux duration literal such as "-24h", "-7d"
// or "1h30m". Calendar units (mo, y) are not supported.
func ParseFluxDuration(s string) (time.Duration, error) {
	in := strings.TrimSpace(s)

	neg := false
	if strings.HasPrefix(in, "-") {
		neg = true
		in = in[1:]
	}

	if in == "" {
		return 0, fmt.Errorf("%w: %q", ErrInvalidRange, s)
	}

	var total time.Duration

	for in != "" {
		i := 0
		for i < len(in) && in[i] >= '0' && in[i] <= '9' {
			i++
		}

		if i == 0 {
			return 0, fmt.Errorf("%w: %q: expected a number", ErrInvalidRange, s)
		}

		n, err := strconv.ParseInt(in[:i], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q: %w", ErrInvalidRange, s, err)
		}

		in = in[i:]

		unit, rest, ok := cutUnit(in)
		if !ok {
			return 0, fmt.Errorf("%w: %q: unknown unit", ErrInvalidRange, s)
		}

		total += time.Duration(n) * unit
		in = rest
	}

	if neg {
		total = -total
	}

	return total, nil
}

func cutUnit(s string) (time.Duration, string, bool) {
	for _, u := range fluxUnits {
		if !strings.HasPrefix(s, u.suffix) {
			continue
		}

		rest := s[len(u.suffix):]
		// "mo" is a calendar unit; refuse it rather than read it as minutes.
		if u.suffix == "m" && strings.HasPrefix(rest, "o") {
			return 0, "", false
		}

		return u.unit, rest, true
	}

	return 0, "", false
}

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

// Package query builds and runs the counter-to-rate pipelines behind the
// traffic charts.
package query

import (
	"strings"
	"time"

	"github.com/carverauto/smon/pkg/tsdb"
)

const (
	// DefaultRange is used for an empty or unusable time range.
	DefaultRange = "-24h"
	// FilterAll disables the interface or direction filter.
	FilterAll = "all"

	customPrefix = "custom:"
	dateOnlyLen  = len("2006-01-02")

	bitsPerOctet   = 8
	bitsPerMegabit = 1_000_000
)

//nolint:gochecknoglobals // accepted custom range layouts without an offset
var localLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
}

// Builder renders rate pipelines. Custom range endpoints without an explicit
// offset are read in Location.
type Builder struct {
	Location *time.Location
}

// NewBuilder returns a Builder reading offset-less times in time.Local.
func NewBuilder() Builder {
	return Builder{Location: time.Local}
}

// BuildRateQuery is NewBuilder().BuildRateQuery.
func BuildRateQuery(deviceID, iface, direction, timeRange string) tsdb.Pipeline {
	return NewBuilder().BuildRateQuery(deviceID, iface, direction, timeRange)
}

// BuildRateQuery returns the megabit-per-second pipeline for one device.
// Interface and direction are only filtered when neither empty nor "all".
func (b Builder) BuildRateQuery(deviceID, iface, direction, timeRange string) tsdb.Pipeline {
	p := tsdb.NewPipeline(b.Range(timeRange)).
		Filter(tsdb.KeyMeasurement, tsdb.MeasurementSNMP).
		Filter(tsdb.KeyField, tsdb.FieldValue).
		Filter(tsdb.TagDevice, deviceID)

	if filtered(iface) {
		p.Filter(tsdb.TagInterface, iface)
	}

	if filtered(direction) {
		p.Filter(tsdb.TagDirection, direction)
	}

	p.Derivative(time.Second, true).Scale(bitsPerOctet, bitsPerMegabit)

	return *p
}

func filtered(v string) bool {
	return v != "" && v != FilterAll
}

// Range resolves timeRange to a range stage. Relative tokens pass through
// unchanged; a custom range that cannot be used falls back to DefaultRange.
func (b Builder) Range(timeRange string) tsdb.RangeStage {
	timeRange = strings.TrimSpace(timeRange)

	if timeRange == "" {
		return tsdb.RangeStage{Relative: DefaultRange}
	}

	if !strings.HasPrefix(timeRange, customPrefix) {
		return tsdb.RangeStage{Relative: timeRange}
	}

	start, stop, ok := b.parseCustom(strings.TrimPrefix(timeRange, customPrefix))
	if !ok {
		return tsdb.RangeStage{Relative: DefaultRange}
	}

	return tsdb.RangeStage{Start: start, Stop: stop}
}

func (b Builder) parseCustom(body string) (time.Time, time.Time, bool) {
	parts := strings.Split(body, ",")
	if len(parts) != 2 {
		return time.Time{}, time.Time{}, false
	}

	startRaw := strings.TrimSpace(parts[0])
	stopRaw := strings.TrimSpace(parts[1])

	if startRaw == "" || stopRaw == "" {
		return time.Time{}, time.Time{}, false
	}

	if len(startRaw) == dateOnlyLen {
		startRaw += "T00:00:00"
	}

	if len(stopRaw) == dateOnlyLen {
		stopRaw += "T23:59:59"
	}

	start, err := b.parseTime(startRaw)
	if err != nil {
		return time.Time{}, time.Time{}, false
	}

	stop, err := b.parseTime(stopRaw)
	if err != nil {
		return time.Time{}, time.Time{}, false
	}

	if !start.Before(stop) {
		return time.Time{}, time.Time{}, false
	}

	return start.UTC(), stop.UTC(), true
}

func (b Builder) parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err == nil {
		return t, nil
	}

	loc := b.Location
	if loc == nil {
		loc = time.Local
	}

	for _, layout := range localLayouts {
		if lt, lerr := time.ParseInLocation(layout, s, loc); lerr == nil {
			return lt, nil
		}
	}

	return time.Time{}, err
}

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

// Package ingest turns counter reads into time-series points.
package ingest

import (
	"context"
	"time"

	"github.com/carverauto/smon/pkg/clock"
	"github.com/carverauto/smon/pkg/logger"
	"github.com/carverauto/smon/pkg/metrics"
	"github.com/carverauto/smon/pkg/models"
	"github.com/carverauto/smon/pkg/tsdb"
)

// Writer submits one point per successful counter read. Failed writes are
// logged and dropped; the next polling cycle supersedes them.
type Writer struct {
	store   tsdb.Store
	logger  logger.Logger
	metrics *metrics.Instruments
	now     func() time.Time
}

// NewWriter returns a Writer for store. in may be nil.
func NewWriter(store tsdb.Store, log logger.Logger, in *metrics.Instruments) *Writer {
	return &Writer{
		store:   store,
		logger:  log,
		metrics: in,
		now:     time.Now,
	}
}

// WithClock stamps points with clk instead of the wall clock.
func (w *Writer) WithClock(clk clock.Clock) *Writer {
	if clk != nil {
		w.now = clk.Now
	}

	return w
}

// NewPoint builds the point for one counter sample.
func NewPoint(deviceID, deviceName, iface string, dir models.Direction, counter uint64, at time.Time) tsdb.Point {
	return tsdb.Point{
		Measurement: tsdb.MeasurementSNMP,
		Field:       tsdb.FieldValue,
		Tags: map[string]string{
			tsdb.TagDevice:     deviceID,
			tsdb.TagDeviceName: deviceName,
			tsdb.TagInterface:  iface,
			tsdb.TagDirection:  string(dir),
		},
		Value: float64(counter),
		Time:  at,
	}
}

// Write stores the sample and reports whether it was accepted.
func (w *Writer) Write(ctx context.Context, deviceID, deviceName, iface string, dir models.Direction, counter uint64) bool {
	point := NewPoint(deviceID, deviceName, iface, dir, counter, w.now())

	err := w.store.Write(ctx, point)
	w.metrics.RecordPointWrite(ctx, err)

	if err != nil {
		w.logger.Error().
			Err(err).
			Str("device_id", deviceID).
			Str("interface", iface).
			Str("direction", string(dir)).
			Msg("Dropping point after store write failure")

		return false
	}

	w.logger.Debug().
		Str("device_id", deviceID).
		Str("interface", iface).
		Str("direction", string(dir)).
		Uint64("value", counter).
		Msg("Wrote counter point")

	return true
}

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

// Package metrics exposes the monitor's OpenTelemetry instruments.
package metrics

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName = "smon"

	metricPollCycles      = "smon.poll.cycles"
	metricPollDuration    = "smon.poll.cycle.duration"
	metricSNMPReads       = "smon.snmp.reads"
	metricPointsWritten   = "smon.points.written"
	metricQueryErrors     = "smon.query.errors"
	metricRetentionSweeps = "smon.retention.sweeps"

	ResultOK    = "ok"
	ResultError = "error"
)

// Instruments groups the counters recorded by the poller, the writer, the
// query path and the retention job. A nil *Instruments records nothing.
type Instruments struct {
	pollCycles      metric.Int64Counter
	pollDuration    metric.Float64Histogram
	snmpReads       metric.Int64Counter
	pointsWritten   metric.Int64Counter
	queryErrors     metric.Int64Counter
	retentionSweeps metric.Int64Counter
}

// New registers the instruments on provider.
func New(provider metric.MeterProvider) *Instruments {
	meter := provider.Meter(meterName)
	in := &Instruments{}

	var err error

	if in.pollCycles, err = meter.Int64Counter(metricPollCycles,
		metric.WithDescription("Polling cycles started")); err != nil {
		otel.Handle(err)
	}

	if in.pollDuration, err = meter.Float64Histogram(metricPollDuration,
		metric.WithDescription("Time from the first read of a cycle to the last completion"),
		metric.WithUnit("s")); err != nil {
		otel.Handle(err)
	}

	if in.snmpReads, err = meter.Int64Counter(metricSNMPReads,
		metric.WithDescription("SNMP counter reads by result")); err != nil {
		otel.Handle(err)
	}

	if in.pointsWritten, err = meter.Int64Counter(metricPointsWritten,
		metric.WithDescription("Points submitted to the time-series store by result")); err != nil {
		otel.Handle(err)
	}

	if in.queryErrors, err = meter.Int64Counter(metricQueryErrors,
		metric.WithDescription("Rate queries that failed and returned an empty series")); err != nil {
		otel.Handle(err)
	}

	if in.retentionSweeps, err = meter.Int64Counter(metricRetentionSweeps,
		metric.WithDescription("Retention sweeps by result")); err != nil {
		otel.Handle(err)
	}

	return in
}

var (
	//nolint:gochecknoglobals // process-wide instruments
	globalOnce sync.Once
	//nolint:gochecknoglobals // process-wide instruments
	global *Instruments
)

// Global returns instruments bound to the global MeterProvider. Instruments
// created before InitializeProvider are delegated once it runs.
func Global() *Instruments {
	globalOnce.Do(func() {
		global = New(otel.GetMeterProvider())
	})

	return global
}

func result(err error) metric.AddOption {
	if err != nil {
		return metric.WithAttributes(attribute.String("result", ResultError))
	}

	return metric.WithAttributes(attribute.String("result", ResultOK))
}

func (in *Instruments) RecordPollCycle(ctx context.Context, elapsed time.Duration) {
	if in == nil {
		return
	}

	if in.pollCycles != nil {
		in.pollCycles.Add(ctx, 1)
	}

	if in.pollDuration != nil {
		in.pollDuration.Record(ctx, elapsed.Seconds())
	}
}

func (in *Instruments) RecordSNMPRead(ctx context.Context, err error) {
	if in == nil || in.snmpReads == nil {
		return
	}

	in.snmpReads.Add(ctx, 1, result(err))
}

func (in *Instruments) RecordPointWrite(ctx context.Context, err error) {
	if in == nil || in.pointsWritten == nil {
		return
	}

	in.pointsWritten.Add(ctx, 1, result(err))
}

func (in *Instruments) RecordQueryError(ctx context.Context) {
	if in == nil || in.queryErrors == nil {
		return
	}

	in.queryErrors.Add(ctx, 1)
}

func (in *Instruments) RecordRetentionSweep(ctx context.Context, err error) {
	if in == nil || in.retentionSweeps == nil {
		return
	}

	in.retentionSweeps.Add(ctx, 1, result(err))
}

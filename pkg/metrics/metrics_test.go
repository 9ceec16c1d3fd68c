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

package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

var errRead = errors.New("read failed")

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Aggregation)

	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}

	return out
}

func sumByResult(t *testing.T, agg metricdata.Aggregation) map[string]int64 {
	t.Helper()

	sum, ok := agg.(metricdata.Sum[int64])
	require.True(t, ok)

	out := make(map[string]int64)

	for _, dp := range sum.DataPoints {
		v, _ := dp.Attributes.Value(attribute.Key("result"))
		out[v.AsString()] += dp.Value
	}

	return out
}

func TestInstrumentsRecord(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	in := New(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)))
	ctx := context.Background()

	in.RecordPollCycle(ctx, 250*time.Millisecond)
	in.RecordSNMPRead(ctx, nil)
	in.RecordSNMPRead(ctx, nil)
	in.RecordSNMPRead(ctx, errRead)
	in.RecordPointWrite(ctx, nil)
	in.RecordQueryError(ctx)
	in.RecordRetentionSweep(ctx, nil)

	data := collect(t, reader)

	assert.Equal(t, map[string]int64{ResultOK: 2, ResultError: 1}, sumByResult(t, data[metricSNMPReads]))
	assert.Equal(t, map[string]int64{ResultOK: 1}, sumByResult(t, data[metricPointsWritten]))
	assert.Equal(t, map[string]int64{ResultOK: 1}, sumByResult(t, data[metricRetentionSweeps]))

	cycles, ok := data[metricPollCycles].(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, cycles.DataPoints, 1)
	assert.Equal(t, int64(1), cycles.DataPoints[0].Value)

	hist, ok := data[metricPollDuration].(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(1), hist.DataPoints[0].Count)
}

func TestNilInstrumentsAreNoops(t *testing.T) {
	var in *Instruments

	ctx := context.Background()

	assert.NotPanics(t, func() {
		in.RecordPollCycle(ctx, time.Second)
		in.RecordSNMPRead(ctx, nil)
		in.RecordPointWrite(ctx, errRead)
		in.RecordQueryError(ctx)
		in.RecordRetentionSweep(ctx, nil)
	})
}

func TestInitializeProviderDisabled(t *testing.T) {
	_, err := InitializeProvider(context.Background(), nil)
	require.ErrorIs(t, err, ErrMetricsDisabled)

	_, err = InitializeProvider(context.Background(), &Config{Enabled: true})
	require.ErrorIs(t, err, ErrMetricsDisabled)

	_, err = InitializeProvider(context.Background(), &Config{Endpoint: "collector:4317"})
	require.ErrorIs(t, err, ErrMetricsDisabled)

	require.NoError(t, Shutdown(context.Background()))
}

func TestGlobalIsStable(t *testing.T) {
	assert.Same(t, Global(), Global())
}

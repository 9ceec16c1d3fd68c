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

package query

import (
	"context"
	"sort"

	"github.com/carverauto/smon/pkg/logger"
	"github.com/carverauto/smon/pkg/metrics"
	"github.com/carverauto/smon/pkg/models"
	"github.com/carverauto/smon/pkg/tsdb"
)

// Runner executes rate pipelines against the store.
type Runner struct {
	store   tsdb.Store
	builder Builder
	logger  logger.Logger
	metrics *metrics.Instruments
}

// NewRunner returns a Runner over store. in may be nil.
func NewRunner(store tsdb.Store, builder Builder, log logger.Logger, in *metrics.Instruments) *Runner {
	return &Runner{
		store:   store,
		builder: builder,
		logger:  log,
		metrics: in,
	}
}

// GetTimeSeries returns the rate series ordered by time. Any store failure
// is logged and yields an empty, non-nil series.
func (r *Runner) GetTimeSeries(ctx context.Context, deviceID, iface, direction, timeRange string) []models.TimePoint {
	pipeline := r.builder.BuildRateQuery(deviceID, iface, direction, timeRange)

	points := make([]models.TimePoint, 0)

	err := r.store.Query(ctx, pipeline, func(row tsdb.Row) error {
		points = append(points, models.TimePoint{Time: row.Time, Value: row.Value})

		return nil
	})
	if err != nil {
		r.metrics.RecordQueryError(ctx)
		r.logger.Error().
			Err(err).
			Str("device_id", deviceID).
			Str("pipeline", pipeline.String()).
			Msg("Rate query failed, returning empty series")

		return make([]models.TimePoint, 0)
	}

	sort.SliceStable(points, func(i, j int) bool { return points[i].Time.Before(points[j].Time) })

	r.logger.Debug().
		Str("device_id", deviceID).
		Str("time_range", timeRange).
		Int("points", len(points)).
		Msg("Rate query completed")

	return points
}

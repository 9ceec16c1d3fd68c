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
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carverauto/smon/pkg/logger"
)

const pointsTable = "snmp_points"

//nolint:gochecknoglobals // predicate key to column whitelist
var predicateColumns = map[string]string{
	KeyMeasurement: "measurement",
	KeyField:       "field",
	TagDevice:      "device",
	TagDeviceName:  "device_name",
	TagInterface:   "interface",
	TagDirection:   "direction",
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// TimescaleStore keeps points in the snmp_points hypertable and renders
// pipelines to SQL window queries.
type TimescaleStore struct {
	db     querier
	pool   *pgxpool.Pool
	logger logger.Logger
	now    func() time.Time
}

// NewTimescaleStore wraps an initialised pool. Run RunMigrations first.
func NewTimescaleStore(pool *pgxpool.Pool, log logger.Logger) *TimescaleStore {
	return &TimescaleStore{db: pool, pool: pool, logger: log, now: time.Now}
}

func (s *TimescaleStore) Write(ctx context.Context, point Point) error {
	_, err := s.db.Exec(ctx, `INSERT INTO snmp_points
		(time, measurement, field, device, device_name, interface, direction, value)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		point.Time.UTC(),
		point.Measurement,
		point.Field,
		point.Tags[TagDevice],
		point.Tags[TagDeviceName],
		point.Tags[TagInterface],
		point.Tags[TagDirection],
		point.Value,
	)
	if err != nil {
		return fmt.Errorf("timescale: insert point: %w", err)
	}

	return nil
}

func (s *TimescaleStore) Query(ctx context.Context, pipeline Pipeline, fn RowFunc) error {
	pl, err := compile(pipeline, s.now())
	if err != nil {
		return err
	}

	query, args, err := buildQuerySQL(pl)
	if err != nil {
		return err
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("timescale: query: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			ts                                   time.Time
			device, deviceName, iface, direction string
			value                                float64
		)

		if err := rows.Scan(&ts, &device, &deviceName, &iface, &direction, &value); err != nil {
			return fmt.Errorf("timescale: scan row: %w", err)
		}

		row := Row{
			Time:  ts,
			Value: value,
			Tags: map[string]string{
				TagDevice:     device,
				TagDeviceName: deviceName,
				TagInterface:  iface,
				TagDirection:  direction,
			},
		}

		if err := fn(row); err != nil {
			return err
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("timescale: iterate rows: %w", err)
	}

	return nil
}

func (s *TimescaleStore) Delete(ctx context.Context, start, stop time.Time, predicates ...Predicate) error {
	query, args, err := buildDeleteSQL(start, stop, predicates)
	if err != nil {
		return err
	}

	tag, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("timescale: delete: %w", err)
	}

	s.logger.Debug().Int64("rows", tag.RowsAffected()).Msg("Deleted points")

	return nil
}

func (s *TimescaleStore) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}

	return nil
}

var _ Store = (*TimescaleStore)(nil)

type sqlArgs struct {
	values []any
}

func (a *sqlArgs) add(v any) string {
	a.values = append(a.values, v)

	return "$" + strconv.Itoa(len(a.values))
}

func whereClause(args *sqlArgs, start, stop time.Time, stopInclusive bool, preds []Predicate) (string, error) {
	stopOp := "<"
	if stopInclusive {
		stopOp = "<="
	}

	conds := []string{
		"time >= " + args.add(start.UTC()),
		"time " + stopOp + " " + args.add(stop.UTC()),
	}

	for _, p := range preds {
		col, ok := predicateColumns[p.Key]
		if !ok {
			return "", fmt.Errorf("%w: %s", ErrUnknownKey, p.Key)
		}

		conds = append(conds, col+" = "+args.add(p.Value))
	}

	return strings.Join(conds, " AND "), nil
}

const seriesColumns = "device, device_name, interface, direction"

func buildQuerySQL(pl *plan) (string, []any, error) {
	args := &sqlArgs{}

	where, err := whereClause(args, pl.start, pl.stop, false, pl.filters)
	if err != nil {
		return "", nil, err
	}

	var b strings.Builder

	if pl.derivative == nil {
		b.WriteString("SELECT time, " + seriesColumns + ", " + scaled("value", pl, args) +
			" AS value FROM " + pointsTable + " WHERE " + where)
	} else {
		delta := "value - prev_value"
		if pl.derivative.NonNegative {
			delta = "CASE WHEN value < prev_value THEN value ELSE value - prev_value END"
		}

		unit := args.add(pl.derivative.Unit.Seconds())
		rate := "(" + delta + ") / (EXTRACT(EPOCH FROM (time - prev_time))::double precision / " +
			unit + "::double precision)"

		b.WriteString("WITH filtered AS (SELECT time, " + seriesColumns + ", value FROM " + pointsTable +
			" WHERE " + where + "), ")
		b.WriteString("deltas AS (SELECT time, " + seriesColumns + ", value, " +
			"LAG(value) OVER w AS prev_value, LAG(time) OVER w AS prev_time FROM filtered " +
			"WINDOW w AS (PARTITION BY " + seriesColumns + " ORDER BY time)) ")
		b.WriteString("SELECT time, " + seriesColumns + ", " + scaled(rate, pl, args) +
			" AS value FROM deltas WHERE prev_time IS NOT NULL AND time > prev_time")
	}

	b.WriteString(" ORDER BY time, " + seriesColumns)

	return b.String(), args.values, nil
}

func scaled(expr string, pl *plan, args *sqlArgs) string {
	if pl.scale == nil {
		return expr
	}

	return "(" + expr + ") * " + args.add(pl.scale.Multiplier) + "::double precision / " +
		args.add(pl.scale.Divisor) + "::double precision"
}

// buildDeleteSQL deletes start <= time <= stop.
func buildDeleteSQL(start, stop time.Time, preds []Predicate) (string, []any, error) {
	args := &sqlArgs{}

	where, err := whereClause(args, start, stop, true, preds)
	if err != nil {
		return "", nil, err
	}

	return "DELETE FROM " + pointsTable + " WHERE " + where, args.values, nil
}

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

// Package tsdb defines the time-series store the monitor writes counter
// points to and runs rate pipelines against, with a TimescaleDB backend and
// an in-process backend.
package tsdb

//go:generate mockgen -destination=mock_tsdb.go -package=tsdb github.com/carverauto/smon/pkg/tsdb Store

import (
	"context"
	"errors"
	"time"
)

const (
	// MeasurementSNMP is the measurement every interface counter is written to.
	MeasurementSNMP = "snmp_metric"
	// FieldValue is the single field carried by counter points.
	FieldValue = "value"

	// KeyMeasurement and KeyField address the point's measurement and field
	// in predicates; any other key is a tag.
	KeyMeasurement = "_measurement"
	KeyField       = "_field"

	TagDevice     = "device"
	TagDeviceName = "device_name"
	TagInterface  = "interface"
	TagDirection  = "direction"
)

var (
	// ErrInvalidPipeline marks a pipeline whose stages cannot be executed.
	ErrInvalidPipeline = errors.New("invalid pipeline")
	// ErrInvalidRange marks a range token or bound pair that cannot be resolved.
	ErrInvalidRange = errors.New("invalid range")
	// ErrUnknownKey marks a predicate key the store cannot filter on.
	ErrUnknownKey = errors.New("unknown predicate key")
)

// Point is one immutable sample.
type Point struct {
	Measurement string
	Tags        map[string]string
	Field       string
	Value       float64
	Time        time.Time
}

// Row is one output record of a pipeline.
type Row struct {
	Time  time.Time
	Value float64
	Tags  map[string]string
}

// Predicate is an equality test on a tag, the measurement or the field.
type Predicate struct {
	Key   string
	Value string
}

// RowFunc receives pipeline rows as they are produced. Returning an error
// stops the query and the error is returned from Query.
type RowFunc func(Row) error

// Store is the time-series backend.
type Store interface {
	Write(ctx context.Context, point Point) error
	Query(ctx context.Context, pipeline Pipeline, fn RowFunc) error
	Delete(ctx context.Context, start, stop time.Time, predicates ...Predicate) error
	Close() error
}

func matches(p *Point, preds []Predicate) bool {
	for _, pred := range preds {
		var got string

		switch pred.Key {
		case KeyMeasurement:
			got = p.Measurement
		case KeyField:
			got = p.Field
		default:
			got = p.Tags[pred.Key]
		}

		if got != pred.Value {
			return false
		}
	}

	return true
}

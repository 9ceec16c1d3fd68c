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

// Stage is one step of a Pipeline.
type Stage interface {
	flux() string
}

// RangeStage bounds the query in time. Either Relative is set (a duration
// token such as "-24h" resolved against the store's clock) or both Start
// and Stop are. Start is inclusive and Stop exclusive.
type RangeStage struct {
	Relative string
	Start    time.Time
	Stop     time.Time
}

// FilterStage keeps rows matching the predicate.
type FilterStage struct {
	Predicate
}

// DerivativeStage turns each series into a per-Unit rate of change. With
// NonNegative, a sample lower than its predecessor is treated as a counter
// reset: the predecessor is taken as zero.
type DerivativeStage struct {
	Unit        time.Duration
	NonNegative bool
}

// ScaleStage maps every value to value * Multiplier / Divisor.
type ScaleStage struct {
	Multiplier float64
	Divisor    float64
}

// Pipeline is a store-neutral description of a query.
type Pipeline struct {
	Stages []Stage
}

// NewPipeline starts a pipeline with its range stage.
func NewPipeline(r RangeStage) *Pipeline {
	return &Pipeline{Stages: []Stage{r}}
}

// Filter appends an equality filter.
func (p *Pipeline) Filter(key, value string) *Pipeline {
	p.Stages = append(p.Stages, FilterStage{Predicate{Key: key, Value: value}})

	return p
}

// Derivative appends a derivative stage.
func (p *Pipeline) Derivative(unit time.Duration, nonNegative bool) *Pipeline {
	p.Stages = append(p.Stages, DerivativeStage{Unit: unit, NonNegative: nonNegative})

	return p
}

// Scale appends a scale stage.
func (p *Pipeline) Scale(multiplier, divisor float64) *Pipeline {
	p.Stages = append(p.Stages, ScaleStage{Multiplier: multiplier, Divisor: divisor})

	return p
}

// String renders the pipeline in Flux syntax for logging.
func (p Pipeline) String() string {
	parts := make([]string, 0, len(p.Stages))
	for _, s := range p.Stages {
		parts = append(parts, s.flux())
	}

	return strings.Join(parts, " |> ")
}

func (r RangeStage) flux() string {
	if r.Relative != "" {
		return "range(start: " + r.Relative + ")"
	}

	return fmt.Sprintf("range(start: time(v: %q), stop: time(v: %q))",
		r.Start.UTC().Format(time.RFC3339), r.Stop.UTC().Format(time.RFC3339))
}

func (f FilterStage) flux() string {
	return fmt.Sprintf("filter(fn: (r) => r.%s == %q)", f.Key, f.Value)
}

func (d DerivativeStage) flux() string {
	return fmt.Sprintf("derivative(unit: %s, nonNegative: %t)", d.Unit, d.NonNegative)
}

func (s ScaleStage) flux() string {
	return fmt.Sprintf("map(fn: (r) => ({ r with _value: r._value * %s / %s }))",
		strconv.FormatFloat(s.Multiplier, 'f', -1, 64), strconv.FormatFloat(s.Divisor, 'f', -1, 64))
}

// plan is the validated, executable form of a Pipeline. Both backends
// support the shape range, filters, optional derivative, optional scale.
type plan struct {
	start      time.Time
	stop       time.Time
	filters    []Predicate
	derivative *DerivativeStage
	scale      *ScaleStage
}

// compile checks stage order and resolves the range against now.
func compile(p Pipeline, now time.Time) (*plan, error) {
	if len(p.Stages) == 0 {
		return nil, fmt.Errorf("%w: empty pipeline", ErrInvalidPipeline)
	}

	r, ok := p.Stages[0].(RangeStage)
	if !ok {
		return nil, fmt.Errorf("%w: first stage must be a range", ErrInvalidPipeline)
	}

	start, stop, err := r.resolve(now)
	if err != nil {
		return nil, err
	}

	pl := &plan{start: start, stop: stop}

	for i, stage := range p.Stages[1:] {
		switch s := stage.(type) {
		case FilterStage:
			if pl.derivative != nil || pl.scale != nil {
				return nil, fmt.Errorf("%w: filter at stage %d follows a transform", ErrInvalidPipeline, i+1)
			}

			pl.filters = append(pl.filters, s.Predicate)
		case DerivativeStage:
			if pl.derivative != nil || pl.scale != nil {
				return nil, fmt.Errorf("%w: derivative at stage %d must directly follow filters", ErrInvalidPipeline, i+1)
			}

			if s.Unit <= 0 {
				return nil, fmt.Errorf("%w: derivative unit must be positive", ErrInvalidPipeline)
			}

			d := s
			pl.derivative = &d
		case ScaleStage:
			if pl.scale != nil {
				return nil, fmt.Errorf("%w: more than one scale stage", ErrInvalidPipeline)
			}

			if s.Divisor == 0 {
				return nil, fmt.Errorf("%w: scale divisor is zero", ErrInvalidPipeline)
			}

			sc := s
			pl.scale = &sc
		default:
			return nil, fmt.Errorf("%w: unexpected stage %T at %d", ErrInvalidPipeline, stage, i+1)
		}
	}

	return pl, nil
}

func (r RangeStage) resolve(now time.Time) (time.Time, time.Time, error) {
	if r.Relative != "" {
		d, err := ParseFluxDuration(r.Relative)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}

		start := now.Add(d)
		if !start.Before(now) {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: %q does not reach into the past", ErrInvalidRange, r.Relative)
		}

		return start, now, nil
	}

	if r.Start.IsZero() || r.Stop.IsZero() || !r.Start.Before(r.Stop) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: start must be before stop", ErrInvalidRange)
	}

	return r.Start, r.Stop, nil
}

func (pl *plan) apply(value float64) float64 {
	if pl.scale == nil {
		return value
	}

	return value * pl.scale.Multiplier / pl.scale.Divisor
}

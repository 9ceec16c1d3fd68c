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
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore keeps points in process. It executes pipelines with the same
// semantics as TimescaleStore and backs development mode and tests.
type MemoryStore struct {
	mu     sync.RWMutex
	points []Point
	now    func() time.Time
}

// NewMemoryStore returns an empty store. A nil now uses time.Now.
func NewMemoryStore(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}

	return &MemoryStore{now: now}
}

func (m *MemoryStore) Write(ctx context.Context, point Point) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tags := make(map[string]string, len(point.Tags))
	for k, v := range point.Tags {
		tags[k] = v
	}

	point.Tags = tags

	m.mu.Lock()
	m.points = append(m.points, point)
	m.mu.Unlock()

	return nil
}

// Len reports the number of stored points.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.points)
}

type series struct {
	key    string
	tags   map[string]string
	points []Point
}

func (m *MemoryStore) Query(ctx context.Context, pipeline Pipeline, fn RowFunc) error {
	pl, err := compile(pipeline, m.now())
	if err != nil {
		return err
	}

	groups := m.selectSeries(pl)

	for _, s := range groups {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := emitSeries(pl, s, fn); err != nil {
			return err
		}
	}

	return nil
}

func (m *MemoryStore) selectSeries(pl *plan) []*series {
	m.mu.RLock()
	defer m.mu.RUnlock()

	byKey := make(map[string]*series)

	for i := range m.points {
		p := &m.points[i]

		if p.Time.Before(pl.start) || !p.Time.Before(pl.stop) || !matches(p, pl.filters) {
			continue
		}

		key := seriesKey(p)

		s, ok := byKey[key]
		if !ok {
			s = &series{key: key, tags: p.Tags}
			byKey[key] = s
		}

		s.points = append(s.points, *p)
	}

	out := make([]*series, 0, len(byKey))
	for _, s := range byKey {
		sort.SliceStable(s.points, func(i, j int) bool { return s.points[i].Time.Before(s.points[j].Time) })
		out = append(out, s)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].key < out[j].key })

	return out
}

func emitSeries(pl *plan, s *series, fn RowFunc) error {
	if pl.derivative == nil {
		for _, p := range s.points {
			if err := fn(Row{Time: p.Time, Value: pl.apply(p.Value), Tags: s.tags}); err != nil {
				return err
			}
		}

		return nil
	}

	for i := 1; i < len(s.points); i++ {
		prev, cur := s.points[i-1], s.points[i]

		elapsed := cur.Time.Sub(prev.Time)
		if elapsed <= 0 {
			continue
		}

		delta := cur.Value - prev.Value
		if pl.derivative.NonNegative && delta < 0 {
			delta = cur.Value
		}

		rate := delta / (float64(elapsed) / float64(pl.derivative.Unit))

		if err := fn(Row{Time: cur.Time, Value: pl.apply(rate), Tags: s.tags}); err != nil {
			return err
		}
	}

	return nil
}

func seriesKey(p *Point) string {
	keys := make([]string, 0, len(p.Tags))
	for k := range p.Tags {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	var b strings.Builder

	b.WriteString(p.Measurement)
	b.WriteByte(',')
	b.WriteString(p.Field)

	for _, k := range keys {
		b.WriteByte(',')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(p.Tags[k])
	}

	return b.String()
}

// Delete removes points with start <= time <= stop matching every predicate.
func (m *MemoryStore) Delete(ctx context.Context, start, stop time.Time, predicates ...Predicate) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.points[:0]

	for i := range m.points {
		p := &m.points[i]
		if !p.Time.Before(start) && !p.Time.After(stop) && matches(p, predicates) {
			continue
		}

		kept = append(kept, *p)
	}

	for i := len(kept); i < len(m.points); i++ {
		m.points[i] = Point{}
	}

	m.points = kept

	return nil
}

func (*MemoryStore) Close() error {
	return nil
}

var _ Store = (*MemoryStore)(nil)

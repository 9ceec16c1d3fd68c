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

// Package retention deletes time-series points older than the configured
// horizon once a day.
package retention

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/carverauto/smon/pkg/clock"
	"github.com/carverauto/smon/pkg/logger"
	"github.com/carverauto/smon/pkg/metrics"
	"github.com/carverauto/smon/pkg/models"
	"github.com/carverauto/smon/pkg/tsdb"
)

const (
	// DefaultHour is the local wall-clock hour of the daily sweep.
	DefaultHour = 2

	sweepPeriod = 24 * time.Hour
)

var errInvalidHour = errors.New("retention hour must be within 0-23")

// Deleter is the delete path of the time-series store.
type Deleter interface {
	Delete(ctx context.Context, start, stop time.Time, predicates ...tsdb.Predicate) error
}

// DaysFunc reports the current retention horizon in days.
type DaysFunc func() int

// Scheduler runs the daily sweep. Rescheduling is stop-then-start.
type Scheduler struct {
	store   Deleter
	days    DaysFunc
	clock   clock.Clock
	logger  logger.Logger
	metrics *metrics.Instruments

	mu   sync.Mutex
	done chan struct{}
	wg   sync.WaitGroup
}

// New builds a Scheduler. A nil clk uses the wall clock; in may be nil.
func New(store Deleter, days DaysFunc, clk clock.Clock, log logger.Logger, in *metrics.Instruments) *Scheduler {
	if clk == nil {
		clk = clock.Real()
	}

	return &Scheduler{
		store:   store,
		days:    days,
		clock:   clk,
		logger:  log,
		metrics: in,
	}
}

// NextRun returns the next occurrence of hour:00 in now's location: today
// when still ahead, otherwise tomorrow.
func NextRun(now time.Time, hour int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}

	return next
}

// ScheduleDaily (re)installs the daily job: wait for the next hour:00,
// sweep, then sweep every 24 hours from that point.
func (s *Scheduler) ScheduleDaily(ctx context.Context, hour int) error {
	if hour < 0 || hour > 23 {
		return fmt.Errorf("%w: %d", errInvalidHour, hour)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()

	now := s.clock.Now()
	next := NextRun(now, hour)
	timer := s.clock.Timer(next.Sub(now))
	done := make(chan struct{})

	s.done = done
	s.wg.Add(1)

	go s.run(ctx, timer, done)

	s.logger.Info().Time("next_run", next).Msg("Retention sweep scheduled")

	return nil
}

// Stop cancels the schedule and waits for a running sweep.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()
}

func (s *Scheduler) stopLocked() {
	if s.done == nil {
		return
	}

	close(s.done)
	s.done = nil

	s.wg.Wait()
}

func (s *Scheduler) run(ctx context.Context, timer clock.Timer, done <-chan struct{}) {
	defer s.wg.Done()

	select {
	case <-ctx.Done():
		timer.Stop()

		return
	case <-done:
		timer.Stop()

		return
	case <-timer.Chan():
	}

	s.sweepLogged(ctx)

	ticker := s.clock.Ticker(sweepPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case <-ticker.Chan():
			s.sweepLogged(ctx)
		}
	}
}

func (s *Scheduler) sweepLogged(ctx context.Context) {
	if err := s.SweepNow(ctx); err != nil {
		s.logger.Error().Err(err).Msg("Scheduled retention sweep failed")
	}
}

// SweepNow deletes every point of the SNMP measurement from the Unix epoch
// up to now minus the retention horizon.
func (s *Scheduler) SweepNow(ctx context.Context) error {
	days := s.days()
	if days < models.MinRetentionDays {
		days = models.DefaultRetentionDays
	}

	start := time.Unix(0, 0).UTC()
	stop := s.clock.Now().Add(-time.Duration(days) * 24 * time.Hour).UTC()

	err := s.store.Delete(ctx, start, stop, tsdb.Predicate{Key: tsdb.KeyMeasurement, Value: tsdb.MeasurementSNMP})
	s.metrics.RecordRetentionSweep(ctx, err)

	if err != nil {
		return fmt.Errorf("retention sweep: %w", err)
	}

	s.logger.Info().
		Int("retention_days", days).
		Time("cutoff", stop).
		Msg("Retention sweep completed")

	return nil
}

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

// Package poller runs the fixed-interval SNMP counter polling cycle.
package poller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/carverauto/smon/pkg/clock"
	"github.com/carverauto/smon/pkg/logger"
	"github.com/carverauto/smon/pkg/metrics"
	"github.com/carverauto/smon/pkg/models"
	"github.com/carverauto/smon/pkg/snmp"
)

var (
	errAlreadyRunning  = errors.New("poller already running")
	errInvalidInterval = errors.New("polling interval must be positive")
)

//nolint:gochecknoglobals // both counter directions, in read order
var directions = []models.Direction{models.DirectionRx, models.DirectionTx}

// Summary reports the outcome of one polling cycle. Issued counts counter
// reads, Succeeded and Failed split them by read result, and Written counts
// the points the writer accepted.
type Summary struct {
	CycleID   string
	Devices   int
	Issued    int
	Succeeded int
	Failed    int
	Written   int
	Skipped   int
}

// Poller owns the polling ticker. At most one ticker is active; Restart
// replaces it.
type Poller struct {
	devices  DeviceSource
	sessions SessionSource
	writer   PointWriter
	clock    clock.Clock
	logger   logger.Logger
	metrics  *metrics.Instruments

	mu       sync.Mutex
	done     chan struct{}
	interval time.Duration
	loopWg   sync.WaitGroup
	cycleWg  sync.WaitGroup
}

// New wires a poller. A nil clk uses the wall clock; in may be nil.
func New(
	devices DeviceSource, sessions SessionSource, writer PointWriter,
	clk clock.Clock, log logger.Logger, in *metrics.Instruments,
) *Poller {
	if clk == nil {
		clk = clock.Real()
	}

	return &Poller{
		devices:  devices,
		sessions: sessions,
		writer:   writer,
		clock:    clk,
		logger:   log,
		metrics:  in,
	}
}

// Start installs a ticker with interval and returns. Every tick runs one
// cycle in its own goroutine; the first tick comes after one full interval.
func (p *Poller) Start(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("%w: %s", errInvalidInterval, interval)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.done != nil {
		return errAlreadyRunning
	}

	p.startLocked(ctx, interval)

	return nil
}

// Restart stops the current ticker and installs a new one with interval.
// Cycles already in flight are left to finish.
func (p *Poller) Restart(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("%w: %s", errInvalidInterval, interval)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopLoopLocked()
	p.startLocked(ctx, interval)

	p.logger.Info().Dur("interval", interval).Msg("Polling restarted")

	return nil
}

// Stop removes the ticker and waits for in-flight cycles.
func (p *Poller) Stop() {
	p.mu.Lock()
	p.stopLoopLocked()
	p.mu.Unlock()

	p.cycleWg.Wait()
}

// Running reports whether a ticker is installed.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.done != nil
}

// Interval returns the period of the installed ticker, or zero.
func (p *Poller) Interval() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.interval
}

func (p *Poller) startLocked(ctx context.Context, interval time.Duration) {
	ticker := p.clock.Ticker(interval)
	done := make(chan struct{})

	p.done = done
	p.interval = interval

	p.loopWg.Add(1)

	go p.run(ctx, ticker, done)

	p.logger.Info().Dur("interval", interval).Msg("Polling started")
}

func (p *Poller) stopLoopLocked() {
	if p.done == nil {
		return
	}

	close(p.done)
	p.done = nil
	p.interval = 0

	p.loopWg.Wait()
}

func (p *Poller) run(ctx context.Context, ticker clock.Ticker, done <-chan struct{}) {
	defer p.loopWg.Done()
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case <-ticker.Chan():
			p.cycleWg.Add(1)

			go func() {
				defer p.cycleWg.Done()

				p.RunCycle(ctx)
			}()
		}
	}
}

type cycleCounters struct {
	succeeded atomic.Int64
	failed    atomic.Int64
	written   atomic.Int64
}

// RunCycle polls every resolved selection of every pollable device once.
// All reads are issued before any is awaited; a failed read affects only
// itself.
func (p *Poller) RunCycle(ctx context.Context) Summary {
	summary := Summary{CycleID: uuid.NewString()}
	started := p.clock.Now()

	log := p.logger.With().Str("cycle_id", summary.CycleID).Logger()

	devices := p.devices.Pollable()
	summary.Devices = len(devices)

	var (
		wg       sync.WaitGroup
		counters cycleCounters
	)

	for _, device := range devices {
		sess, ok := p.sessions.Session(device.ID)
		if !ok {
			log.Warn().Str("device_id", device.ID).Msg("No SNMP session for device, skipping")

			summary.Skipped += len(device.SelectedInterfaces)

			continue
		}

		for _, sel := range device.SelectedInterfaces {
			if !sel.Resolved() {
				log.Warn().
					Str("device_id", device.ID).
					Str("interface", sel.Name).
					Msg("Interface has no ifIndex, run migration; skipping")

				summary.Skipped++

				continue
			}

			for _, dir := range directions {
				summary.Issued++

				wg.Add(1)

				go func(device *models.Device, sel models.InterfaceSelection, dir models.Direction) {
					defer wg.Done()

					p.read(ctx, &log, sess, device, sel, dir, &counters)
				}(device, sel, dir)
			}
		}
	}

	wg.Wait()

	summary.Succeeded = int(counters.succeeded.Load())
	summary.Failed = int(counters.failed.Load())
	summary.Written = int(counters.written.Load())

	elapsed := p.clock.Now().Sub(started)
	p.metrics.RecordPollCycle(ctx, elapsed)

	log.Info().
		Int("devices", summary.Devices).
		Int("issued", summary.Issued).
		Int("succeeded", summary.Succeeded).
		Int("failed", summary.Failed).
		Int("written", summary.Written).
		Int("skipped", summary.Skipped).
		Dur("elapsed", elapsed).
		Msg("Polling cycle completed")

	return summary
}

func (p *Poller) read(
	ctx context.Context, log *zerolog.Logger, sess snmp.Session,
	device *models.Device, sel models.InterfaceSelection, dir models.Direction, counters *cycleCounters,
) {
	oid := snmp.CounterOID(dir, sel.Index)

	value, err := snmp.ReadCounter(sess, oid)
	p.metrics.RecordSNMPRead(ctx, err)

	if err != nil {
		counters.failed.Add(1)

		log.Warn().
			Err(err).
			Str("device_id", device.ID).
			Str("interface", sel.Name).
			Str("direction", string(dir)).
			Str("oid", oid).
			Msg("Counter read failed")

		return
	}

	counters.succeeded.Add(1)

	if p.writer.Write(ctx, device.ID, device.Name, sel.Name, dir, value) {
		counters.written.Add(1)
	}
}

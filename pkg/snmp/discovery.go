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

package snmp

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gosnmp/gosnmp"

	"github.com/carverauto/smon/pkg/logger"
	"github.com/carverauto/smon/pkg/models"
)

var errWalkFinalized = errors.New("walk already finalized")

// DiscoveryOptions bounds a single ifDescr walk.
type DiscoveryOptions struct {
	Timeout  time.Duration
	Retries  int
	Deadline time.Duration
}

// InteractiveDiscovery is used when a user asks for a device's interfaces.
func InteractiveDiscovery() DiscoveryOptions {
	return DiscoveryOptions{Timeout: 3 * time.Second, Retries: 0, Deadline: 5 * time.Second}
}

// MigrationDiscovery is used when resolving legacy selections.
func MigrationDiscovery() DiscoveryOptions {
	return DiscoveryOptions{Timeout: 5 * time.Second, Retries: 2, Deadline: 6 * time.Second}
}

// Discoverer walks ifDescr on short-lived sessions of its own.
type Discoverer struct {
	factory SessionFactory
	logger  logger.Logger
}

// NewDiscoverer builds a Discoverer that opens sessions through factory.
func NewDiscoverer(factory SessionFactory, log logger.Logger) *Discoverer {
	if factory == nil {
		factory = GoSNMPFactory{}
	}

	return &Discoverer{factory: factory, logger: log}
}

// walkCollector accumulates ifDescr rows until it is finalized. Rows that
// arrive after finalization abort the walk instead of being recorded.
type walkCollector struct {
	mu        sync.Mutex
	finalized bool
	rows      []models.Interface
}

func (c *walkCollector) add(pdu gosnmp.SnmpPDU) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.finalized {
		return errWalkFinalized
	}

	if isVarbindError(pdu) {
		return nil
	}

	idx, ok := columnIndex(pdu.Name, OIDIfDescr)
	if !ok {
		return nil
	}

	c.rows = append(c.rows, models.Interface{Index: idx, Name: pduString(pdu)})

	return nil
}

func (c *walkCollector) finalize() []models.Interface {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.finalized = true

	out := make([]models.Interface, len(c.rows))
	copy(out, c.rows)

	return out
}

// Discover walks ifDescr on host and returns every interface found before
// the walk completed or the deadline fired, whichever came first. Errors
// are logged; the result is never nil.
func (d *Discoverer) Discover(ctx context.Context, host, community string, opts DiscoveryOptions) []models.Interface {
	if opts.Deadline <= 0 {
		opts = InteractiveDiscovery()
	}

	ctx, cancel := context.WithTimeout(ctx, opts.Deadline)
	defer cancel()

	sess := d.factory.Open(SessionConfig{
		Host:           host,
		Community:      community,
		Timeout:        opts.Timeout,
		Retries:        opts.Retries,
		MaxRepetitions: defaultMaxRepetitions,
	})

	collector := &walkCollector{}
	done := make(chan error, 1)

	go func() {
		done <- sess.BulkWalk(OIDIfDescr, collector.add)
	}()

	select {
	case err := <-done:
		if err != nil {
			d.logger.Warn().Err(err).Str("host", host).Msg("ifDescr walk failed")
		}
	case <-ctx.Done():
		d.logger.Warn().Str("host", host).Dur("deadline", opts.Deadline).Msg("ifDescr walk deadline reached")
	}

	interfaces := collector.finalize()

	if err := sess.Close(); err != nil {
		d.logger.Debug().Err(err).Str("host", host).Msg("Error closing discovery session")
	}

	d.logger.Info().Str("host", host).Int("interfaces", len(interfaces)).Msg("Interface discovery finished")

	return interfaces
}

func pduString(pdu gosnmp.SnmpPDU) string {
	switch v := pdu.Value.(type) {
	case []byte:
		return string(v)
	case string:
		return v
	default:
		return ""
	}
}

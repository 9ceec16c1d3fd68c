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

package monitor

import (
	"errors"
	"fmt"

	"github.com/carverauto/smon/pkg/configstore"
	"github.com/carverauto/smon/pkg/logger"
	"github.com/carverauto/smon/pkg/metrics"
	"github.com/carverauto/smon/pkg/models"
	"github.com/carverauto/smon/pkg/retention"
	"github.com/carverauto/smon/pkg/snmp"
	"github.com/carverauto/smon/pkg/tsdb"
)

var (
	errInvalidRetentionHour = errors.New("retention_hour must be within 0-23")
	errNegativeDuration     = errors.New("discovery durations must not be negative")
)

// DiscoveryConfig overrides the ifDescr walk bounds. Zero values keep the
// built-in interactive and migration defaults.
type DiscoveryConfig struct {
	Timeout           models.Duration `json:"timeout"`
	Deadline          models.Duration `json:"deadline"`
	MigrationTimeout  models.Duration `json:"migration_timeout"`
	MigrationDeadline models.Duration `json:"migration_deadline"`
}

// Interactive returns the bounds for user-triggered discovery.
func (c DiscoveryConfig) Interactive() snmp.DiscoveryOptions {
	opts := snmp.InteractiveDiscovery()
	opts.Timeout = c.Timeout.OrDefault(opts.Timeout)
	opts.Deadline = c.Deadline.OrDefault(opts.Deadline)

	return opts
}

// Migration returns the bounds for legacy selection migration.
func (c DiscoveryConfig) Migration() snmp.DiscoveryOptions {
	opts := snmp.MigrationDiscovery()
	opts.Timeout = c.MigrationTimeout.OrDefault(opts.Timeout)
	opts.Deadline = c.MigrationDeadline.OrDefault(opts.Deadline)

	return opts
}

func (c DiscoveryConfig) validate() error {
	for _, d := range []models.Duration{c.Timeout, c.Deadline, c.MigrationTimeout, c.MigrationDeadline} {
		if d < 0 {
			return errNegativeDuration
		}
	}

	return nil
}

// Config is the service configuration loaded by cmd/smon.
type Config struct {
	Logging       *logger.Config        `json:"logging"`
	Timescale     *tsdb.TimescaleConfig `json:"timescale,omitempty"`
	Persistence   configstore.Config    `json:"persistence"`
	Metrics       *metrics.Config       `json:"metrics,omitempty"`
	RetentionHour *int                  `json:"retention_hour,omitempty"`
	Discovery     DiscoveryConfig       `json:"discovery"`
}

// Validate implements config.Validator.
func (c *Config) Validate() error {
	if err := c.Persistence.Validate(); err != nil {
		return fmt.Errorf("persistence: %w", err)
	}

	if c.RetentionHour != nil && (*c.RetentionHour < 0 || *c.RetentionHour > 23) {
		return fmt.Errorf("%w: %d", errInvalidRetentionHour, *c.RetentionHour)
	}

	return c.Discovery.validate()
}

// UseTimescale reports whether a TimescaleDB connection is configured.
// Without one the service keeps points in memory.
func (c *Config) UseTimescale() bool {
	return c.Timescale != nil && c.Timescale.Host != ""
}

// Hour returns the wall-clock hour of the daily retention sweep.
func (c *Config) Hour() int {
	if c.RetentionHour == nil {
		return retention.DefaultHour
	}

	return *c.RetentionHour
}

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

	"github.com/carverauto/smon/pkg/logger"
	"github.com/carverauto/smon/pkg/models"
)

// MigrationStatus describes what happened to one device.
type MigrationStatus string

const (
	MigrationSkippedDisabled MigrationStatus = "skipped_disabled"
	MigrationSkippedEmpty    MigrationStatus = "skipped_empty"
	MigrationAlreadyDone     MigrationStatus = "already_migrated"
	MigrationMigrated        MigrationStatus = "migrated"
	MigrationFailed          MigrationStatus = "failed"
)

// MigrationResult reports the outcome for one device. Selections holds the
// new selection list when Status is MigrationMigrated.
type MigrationResult struct {
	DeviceID   string                      `json:"device_id"`
	Status     MigrationStatus             `json:"status"`
	Selections []models.InterfaceSelection `json:"selections,omitempty"`
	Missing    []string                    `json:"missing,omitempty"`
}

// Changed reports whether the device's selections should be replaced.
func (r MigrationResult) Changed() bool {
	return r.Status == MigrationMigrated
}

// NameIndex maps ifDescr names to ifIndex. When a name repeats, the first
// (lowest) index seen wins.
func NameIndex(interfaces []models.Interface) map[string]int {
	out := make(map[string]int, len(interfaces))

	for _, iface := range interfaces {
		if _, seen := out[iface.Name]; seen {
			continue
		}

		out[iface.Name] = iface.Index
	}

	return out
}

// ResolveNames walks host and resolves each name to its ifIndex. Names the
// device does not report are returned in missing; no index is invented.
// found is the number of interfaces the walk produced.
func (d *Discoverer) ResolveNames(
	ctx context.Context, host, community string, names []string,
) (resolved []models.InterfaceSelection, missing []string, found int) {
	return d.resolveNames(ctx, host, community, names, MigrationDiscovery())
}

func (d *Discoverer) resolveNames(
	ctx context.Context, host, community string, names []string, opts DiscoveryOptions,
) (resolved []models.InterfaceSelection, missing []string, found int) {
	interfaces := d.Discover(ctx, host, community, opts)
	index := NameIndex(interfaces)

	for _, name := range names {
		idx, ok := index[name]
		if !ok {
			missing = append(missing, name)

			continue
		}

		resolved = append(resolved, models.InterfaceSelection{Index: idx, Name: name})
	}

	return resolved, missing, len(interfaces)
}

// Migrator upgrades legacy name-only selections to (index, name) pairs.
type Migrator struct {
	discoverer *Discoverer
	opts       DiscoveryOptions
	logger     logger.Logger
}

// NewMigrator builds a Migrator on top of discoverer using the migration
// walk bounds.
func NewMigrator(discoverer *Discoverer, log logger.Logger) *Migrator {
	return &Migrator{discoverer: discoverer, opts: MigrationDiscovery(), logger: log}
}

// WithOptions replaces the walk bounds used for each device.
func (m *Migrator) WithOptions(opts DiscoveryOptions) *Migrator {
	m.opts = opts

	return m
}

// Migrate resolves the unresolved selections of device. Disabled devices,
// devices without selections and fully resolved devices are skipped. A
// walk that yields nothing leaves the device untouched.
func (m *Migrator) Migrate(ctx context.Context, device *models.Device) MigrationResult {
	result := MigrationResult{DeviceID: device.ID}

	switch {
	case !device.Enabled:
		result.Status = MigrationSkippedDisabled
	case len(device.SelectedInterfaces) == 0:
		result.Status = MigrationSkippedEmpty
	case device.FullyResolved():
		result.Status = MigrationAlreadyDone
	}

	if result.Status != "" {
		m.logger.Debug().Str("device_id", device.ID).Str("status", string(result.Status)).Msg("Migration skipped")

		return result
	}

	var legacy []string

	for _, sel := range device.SelectedInterfaces {
		if !sel.Resolved() {
			legacy = append(legacy, sel.Name)
		}
	}

	resolved, missing, found := m.discoverer.resolveNames(ctx, device.Host, device.Community, legacy, m.opts)
	if found == 0 {
		m.logger.Warn().
			Str("device_id", device.ID).
			Str("host", device.Host).
			Msg("No interfaces discovered, keeping legacy selection")

		result.Status = MigrationFailed
		result.Missing = legacy

		return result
	}

	for _, name := range missing {
		m.logger.Warn().Str("device_id", device.ID).Str("interface", name).Msg("Interface not found on device")
	}

	byName := make(map[string]models.InterfaceSelection, len(resolved))
	for _, sel := range resolved {
		byName[sel.Name] = sel
	}

	selections := make([]models.InterfaceSelection, 0, len(device.SelectedInterfaces))

	for _, sel := range device.SelectedInterfaces {
		if sel.Resolved() {
			selections = append(selections, sel)

			continue
		}

		if r, ok := byName[sel.Name]; ok {
			selections = append(selections, r)
		}
	}

	result.Status = MigrationMigrated
	result.Selections = selections
	result.Missing = missing

	m.logger.Info().
		Str("device_id", device.ID).
		Int("resolved", len(resolved)).
		Int("missing", len(missing)).
		Msg("Migrated legacy interface selection")

	return result
}

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
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/carverauto/smon/pkg/models"
	"github.com/carverauto/smon/pkg/snmp"
)

// migrationConcurrency bounds the parallel ifDescr walks of a migration.
const migrationConcurrency = 4

// CreateDevice registers a new, enabled device and opens its session.
func (s *Service) CreateDevice(ctx context.Context, in models.DeviceInput) (*models.Device, error) {
	if err := in.ValidateCreate(); err != nil {
		return nil, err
	}

	device := &models.Device{
		ID:                 in.ID,
		Name:               in.Name,
		Host:               in.Host,
		Community:          in.Community,
		Enabled:            true,
		SelectedInterfaces: selections(in.SelectedInterfaces),
	}

	if err := s.registry.Add(device); err != nil {
		return nil, err
	}

	s.sessions.Sync(device)
	s.saveDevices(ctx)

	s.logger.Info().Str("device_id", device.ID).Str("host", device.Host).Msg("Device created")

	return device.Clone(), nil
}

// GetDevice returns the device with id.
func (s *Service) GetDevice(id string) (*models.Device, error) {
	return s.registry.Get(id)
}

// ListDevices returns every device in registration order.
func (s *Service) ListDevices() []*models.Device {
	return s.registry.List()
}

// UpdateDevice replaces the mutable fields of a device. Enabled is left
// unchanged when the input omits it. The session is recreated when the
// host, the community or the enabled flag changed.
func (s *Service) UpdateDevice(ctx context.Context, id string, in models.DeviceInput) (*models.Device, error) {
	_, next, err := s.registry.Update(id, func(d *models.Device) error {
		if err := in.ValidateUpdate(); err != nil {
			return err
		}

		d.Name = in.Name
		d.Host = in.Host
		d.Community = in.Community
		d.SelectedInterfaces = selections(in.SelectedInterfaces)

		if in.Enabled != nil {
			d.Enabled = *in.Enabled
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.sessions.Sync(next)
	s.saveDevices(ctx)

	s.logger.Info().Str("device_id", id).Bool("enabled", next.Enabled).Msg("Device updated")

	return next, nil
}

// DeleteDevice removes the device and closes its session.
func (s *Service) DeleteDevice(ctx context.Context, id string) error {
	if _, err := s.registry.Delete(id); err != nil {
		return err
	}

	s.sessions.Close(id)
	s.saveDevices(ctx)

	s.logger.Info().Str("device_id", id).Msg("Device deleted")

	return nil
}

// SelectInterfaces replaces the interface selection of a device.
func (s *Service) SelectInterfaces(
	ctx context.Context, id string, selected []models.InterfaceSelection,
) (*models.Device, error) {
	_, next, err := s.registry.Update(id, func(d *models.Device) error {
		d.SelectedInterfaces = selections(selected)

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.saveDevices(ctx)

	s.logger.Info().Str("device_id", id).Int("interfaces", len(next.SelectedInterfaces)).Msg("Interface selection updated")

	return next, nil
}

// GetInterfaces returns the selection of a device. Legacy entries keep
// index 0; no index is derived from list position.
func (s *Service) GetInterfaces(id string) ([]models.InterfaceSelection, error) {
	device, err := s.registry.Get(id)
	if err != nil {
		return nil, err
	}

	return device.SelectedInterfaces, nil
}

// DiscoverInterfaces walks ifDescr on host. An unreachable host yields an
// empty list, not an error.
func (s *Service) DiscoverInterfaces(ctx context.Context, host, community string) ([]models.Interface, error) {
	if strings.TrimSpace(host) == "" || strings.TrimSpace(community) == "" {
		return nil, fmt.Errorf("%w: host and community are required", models.ErrValidation)
	}

	return s.discoverer.Discover(ctx, host, community, s.config.Discovery.Interactive()), nil
}

// GetTimeSeries returns the rate series of one device in megabits per
// second. Store failures yield an empty series.
func (s *Service) GetTimeSeries(
	ctx context.Context, deviceID, iface, direction, timeRange string,
) ([]models.TimePoint, error) {
	if _, err := s.registry.Get(deviceID); err != nil {
		return nil, err
	}

	return s.runner.GetTimeSeries(ctx, deviceID, iface, direction, timeRange), nil
}

// MigrateLegacySelections resolves the name-only selections of every
// device to ifIndex values and persists the devices that changed. Results
// are returned in registration order.
func (s *Service) MigrateLegacySelections(ctx context.Context) []snmp.MigrationResult {
	devices := s.registry.List()
	results := make([]snmp.MigrationResult, len(devices))

	var g errgroup.Group

	g.SetLimit(migrationConcurrency)

	for i, d := range devices {
		g.Go(func() error {
			results[i] = s.migrator.Migrate(ctx, d)

			return nil
		})
	}

	_ = g.Wait()

	changed := 0

	for _, r := range results {
		if !r.Changed() {
			continue
		}

		_, _, err := s.registry.Update(r.DeviceID, func(d *models.Device) error {
			d.SelectedInterfaces = r.Selections

			return nil
		})
		if err != nil {
			s.logger.Warn().Err(err).Str("device_id", r.DeviceID).Msg("Device vanished during migration")

			continue
		}

		changed++
	}

	if changed > 0 {
		s.saveDevices(ctx)
	}

	s.logger.Info().Int("devices", len(devices)).Int("migrated", changed).Msg("Legacy selection migration finished")

	return results
}

func selections(in []models.InterfaceSelection) []models.InterfaceSelection {
	if in == nil {
		return []models.InterfaceSelection{}
	}

	out := make([]models.InterfaceSelection, len(in))
	copy(out, in)

	return out
}

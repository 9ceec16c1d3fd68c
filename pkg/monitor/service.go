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

// Package monitor holds the monitor state and is the surface the HTTP layer
// calls into: device CRUD, interface discovery, rate queries, settings and
// the polling and retention triggers.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/carverauto/smon/pkg/clock"
	"github.com/carverauto/smon/pkg/configstore"
	"github.com/carverauto/smon/pkg/ingest"
	"github.com/carverauto/smon/pkg/logger"
	"github.com/carverauto/smon/pkg/metrics"
	"github.com/carverauto/smon/pkg/models"
	"github.com/carverauto/smon/pkg/poller"
	"github.com/carverauto/smon/pkg/query"
	"github.com/carverauto/smon/pkg/registry"
	"github.com/carverauto/smon/pkg/retention"
	"github.com/carverauto/smon/pkg/snmp"
	"github.com/carverauto/smon/pkg/tsdb"
)

var (
	errStoreRequired       = errors.New("time-series store is required")
	errConfigStoreRequired = errors.New("config store is required")
	errLoggerRequired      = errors.New("logger is required")
	errAlreadyStarted      = errors.New("monitor already started")
	errNotStarted          = errors.New("monitor not started")
)

// Options carries the collaborators of a Service. Store, ConfigStore and
// Logger are required; the rest default to the real implementations.
type Options struct {
	Store       tsdb.Store
	ConfigStore configstore.Store
	Factory     snmp.SessionFactory
	Clock       clock.Clock
	Metrics     *metrics.Instruments
	Logger      logger.Logger
}

// Service is the monitor state container. The registry and the settings
// are the only mutable state; every mutation persists through the config
// store and triggers its scheduler side effects.
type Service struct {
	config      *Config
	registry    *registry.Registry
	sessions    *snmp.Manager
	discoverer  *snmp.Discoverer
	migrator    *snmp.Migrator
	poller      *poller.Poller
	runner      *query.Runner
	retention   *retention.Scheduler
	configStore configstore.Store
	logger      logger.Logger

	settingsMu sync.RWMutex
	settings   models.Settings

	// saveMu orders snapshot-and-save so the last save carries the latest state.
	saveMu sync.Mutex

	runMu  sync.Mutex
	runCtx context.Context
	cancel context.CancelFunc
}

// NewService wires the components. Nothing runs until Start.
func NewService(cfg *Config, opts Options) (*Service, error) {
	if opts.Store == nil {
		return nil, errStoreRequired
	}

	if opts.ConfigStore == nil {
		return nil, errConfigStoreRequired
	}

	if opts.Logger == nil {
		return nil, errLoggerRequired
	}

	if cfg == nil {
		cfg = &Config{}
	}

	log := opts.Logger

	clk := opts.Clock
	if clk == nil {
		clk = clock.Real()
	}

	s := &Service{
		config:      cfg,
		registry:    registry.New(),
		sessions:    snmp.NewManager(opts.Factory, log),
		discoverer:  snmp.NewDiscoverer(opts.Factory, log),
		configStore: opts.ConfigStore,
		logger:      log,
		settings:    models.DefaultSettings(),
	}

	s.migrator = snmp.NewMigrator(s.discoverer, log).WithOptions(cfg.Discovery.Migration())

	writer := ingest.NewWriter(opts.Store, log, opts.Metrics).WithClock(clk)
	s.poller = poller.New(s.registry, s.sessions, writer, clk, log, opts.Metrics)
	s.runner = query.NewRunner(opts.Store, query.NewBuilder(), log, opts.Metrics)
	s.retention = retention.New(opts.Store, s.retentionDays, clk, log, opts.Metrics)

	return s, nil
}

// Load replaces the registry and the settings with the persisted state.
// It starts nothing; one-shot commands use it on its own.
func (s *Service) Load(ctx context.Context) error {
	devices, err := s.configStore.LoadDevices(ctx)
	if err != nil {
		return fmt.Errorf("failed to load devices: %w", err)
	}

	settings, err := s.configStore.LoadSettings(ctx)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	s.registry.Load(devices)

	s.settingsMu.Lock()
	s.settings = settings.Normalize()
	s.settingsMu.Unlock()

	s.logger.Debug().Int("devices", s.registry.Len()).Msg("Loaded persisted state")

	return nil
}

// Start loads the persisted state, opens a session per enabled device,
// starts polling and schedules the daily retention sweep. The schedulers
// run until Stop or until ctx is canceled.
func (s *Service) Start(ctx context.Context) error {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	if s.runCtx != nil {
		return errAlreadyStarted
	}

	if err := s.Load(ctx); err != nil {
		return err
	}

	s.settingsMu.RLock()
	settings := s.settings
	s.settingsMu.RUnlock()

	for _, d := range s.registry.List() {
		s.sessions.Sync(d)
	}

	runCtx, cancel := context.WithCancel(ctx)

	if err := s.poller.Start(runCtx, settings.Interval()); err != nil {
		cancel()
		s.sessions.CloseAll()

		return fmt.Errorf("failed to start polling: %w", err)
	}

	if err := s.retention.ScheduleDaily(runCtx, s.config.Hour()); err != nil {
		cancel()
		s.poller.Stop()
		s.sessions.CloseAll()

		return fmt.Errorf("failed to schedule retention: %w", err)
	}

	s.runCtx = runCtx
	s.cancel = cancel

	s.logger.Info().
		Int("devices", s.registry.Len()).
		Int("sessions", s.sessions.Len()).
		Dur("interval", settings.Interval()).
		Int("retention_days", settings.DataRetention).
		Msg("Monitor started")

	return nil
}

// Stop halts both schedulers, waits for in-flight polling cycles and
// closes every session. Stopping a stopped service is a no-op.
func (s *Service) Stop(_ context.Context) error {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	if s.runCtx == nil {
		return nil
	}

	s.poller.Stop()
	s.retention.Stop()
	s.cancel()
	s.sessions.CloseAll()

	s.runCtx = nil
	s.cancel = nil

	s.logger.Info().Msg("Monitor stopped")

	return nil
}

// GetSettings returns the current settings.
func (s *Service) GetSettings() models.SettingsView {
	s.settingsMu.RLock()
	defer s.settingsMu.RUnlock()

	return s.settings.View()
}

// UpdateSettings validates the whole update before applying any of it. A
// changed interval restarts polling and a changed retention runs a sweep;
// an update that changes nothing has no side effect.
func (s *Service) UpdateSettings(ctx context.Context, update models.SettingsUpdate) (models.SettingsView, error) {
	if err := update.Validate(); err != nil {
		return models.SettingsView{}, err
	}

	s.settingsMu.Lock()
	next, intervalChanged, retentionChanged := update.Apply(s.settings)
	s.settings = next
	s.settingsMu.Unlock()

	if !intervalChanged && !retentionChanged {
		return next.View(), nil
	}

	s.saveSettings(ctx)

	s.logger.Info().
		Int64("polling_interval_ms", next.PollingInterval).
		Int("retention_days", next.DataRetention).
		Msg("Settings updated")

	if intervalChanged {
		if err := s.RestartPolling(ctx); err != nil && !errors.Is(err, errNotStarted) {
			s.logger.Error().Err(err).Msg("Failed to restart polling after settings change")
		}
	}

	if retentionChanged {
		if err := s.RunRetentionSweepNow(ctx); err != nil {
			s.logger.Error().Err(err).Msg("Retention sweep after settings change failed")
		}
	}

	return next.View(), nil
}

// RestartPolling reinstalls the polling ticker with the current interval.
// It holds runMu so a concurrent Stop cannot interleave with the restart.
func (s *Service) RestartPolling(_ context.Context) error {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	if s.runCtx == nil {
		return errNotStarted
	}

	s.settingsMu.RLock()
	interval := s.settings.Interval()
	s.settingsMu.RUnlock()

	return s.poller.Restart(s.runCtx, interval)
}

// RunRetentionSweepNow deletes every point older than the retention horizon.
func (s *Service) RunRetentionSweepNow(ctx context.Context) error {
	return s.retention.SweepNow(ctx)
}

// PollNow runs one polling cycle immediately and returns its summary.
func (s *Service) PollNow(ctx context.Context) poller.Summary {
	return s.poller.RunCycle(ctx)
}

// Polling reports whether the polling ticker is installed and its period.
func (s *Service) Polling() (running bool, interval time.Duration) {
	return s.poller.Running(), s.poller.Interval()
}

func (s *Service) retentionDays() int {
	s.settingsMu.RLock()
	defer s.settingsMu.RUnlock()

	return s.settings.DataRetention
}

func (s *Service) saveDevices(ctx context.Context) {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	if err := s.configStore.SaveDevices(ctx, s.registry.List()); err != nil {
		s.logger.Error().Err(err).Msg("Failed to persist devices")
	}
}

func (s *Service) saveSettings(ctx context.Context) {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.settingsMu.RLock()
	settings := s.settings
	s.settingsMu.RUnlock()

	if err := s.configStore.SaveSettings(ctx, settings); err != nil {
		s.logger.Error().Err(err).Msg("Failed to persist settings")
	}
}

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

package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/carverauto/smon/pkg/configstore"
	"github.com/carverauto/smon/pkg/lifecycle"
	"github.com/carverauto/smon/pkg/logger"
	"github.com/carverauto/smon/pkg/metrics"
	"github.com/carverauto/smon/pkg/monitor"
	"github.com/carverauto/smon/pkg/tsdb"
	"github.com/carverauto/smon/pkg/version"
)

//nolint:gochecknoglobals // cobra command tree
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the poller and the retention scheduler until interrupted",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	RootCmd.AddCommand(serveCmd)
}

func runServe(ctx context.Context) error {
	cfg, log, err := loadConfig(ctx, "smon")
	if err != nil {
		return err
	}

	if cfg.Metrics != nil && cfg.Metrics.ServiceVersion == "" {
		cfg.Metrics.ServiceVersion = version.GetVersion()
	}

	if _, err := metrics.InitializeProvider(ctx, cfg.Metrics); err != nil {
		if !errors.Is(err, metrics.ErrMetricsDisabled) {
			return fmt.Errorf("failed to initialize metrics: %w", err)
		}

		log.Debug().Msg("OTel metrics exporter disabled")
	}

	store, err := openTimeSeriesStore(ctx, cfg, log)
	if err != nil {
		return err
	}

	configStore, err := configstore.Open(ctx, &cfg.Persistence, log)
	if err != nil {
		_ = store.Close()

		return fmt.Errorf("failed to open config store: %w", err)
	}

	svc, err := monitor.NewService(cfg, monitor.Options{
		Store:       store,
		ConfigStore: configStore,
		Metrics:     metrics.Global(),
		Logger:      log,
	})
	if err != nil {
		_ = store.Close()
		_ = configStore.Close()

		return err
	}

	return lifecycle.RunService(ctx, &lifecycle.ServiceOptions{
		ServiceName: "smon",
		Service:     svc,
		Logger:      log,
		OnShutdown: []func(context.Context) error{
			func(context.Context) error { return store.Close() },
			func(context.Context) error { return configStore.Close() },
			metrics.Shutdown,
		},
	})
}

// openTimeSeriesStore connects to TimescaleDB and applies the schema, or
// falls back to the in-memory store when no database is configured.
func openTimeSeriesStore(ctx context.Context, cfg *monitor.Config, log logger.Logger) (tsdb.Store, error) {
	if !cfg.UseTimescale() {
		log.Warn().Msg("No timescale host configured, keeping points in memory")

		return tsdb.NewMemoryStore(nil), nil
	}

	pool, err := tsdb.NewPool(ctx, cfg.Timescale, log)
	if err != nil {
		return nil, err
	}

	if err := tsdb.RunMigrations(ctx, pool, log); err != nil {
		pool.Close()

		return nil, fmt.Errorf("failed to apply timescale migrations: %w", err)
	}

	return tsdb.NewTimescaleStore(pool, log), nil
}

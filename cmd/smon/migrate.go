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
	"os"

	"github.com/spf13/cobra"

	"github.com/carverauto/smon/pkg/configstore"
	"github.com/carverauto/smon/pkg/monitor"
	"github.com/carverauto/smon/pkg/tsdb"
)

var errNoTimescale = errors.New("no timescale host configured")

//nolint:gochecknoglobals // bound to the --schema flag
var migrateSchema bool

//nolint:gochecknoglobals // cobra command tree
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Resolve legacy name-only interface selections to ifIndex values",
	Long: "migrate walks ifDescr on every enabled device whose selection still holds bare\n" +
		"interface names, rewrites the selection as {index, name} pairs and saves the\n" +
		"devices. With --schema it also applies the TimescaleDB schema migrations.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runMigrate(cmd.Context())
	},
}

func init() {
	migrateCmd.Flags().BoolVar(&migrateSchema, "schema", false, "also apply the TimescaleDB schema migrations")
	RootCmd.AddCommand(migrateCmd)
}

func runMigrate(ctx context.Context) error {
	cfg, log, err := loadConfig(ctx, "smon-migrate")
	if err != nil {
		return err
	}

	if migrateSchema {
		if !cfg.UseTimescale() {
			return fmt.Errorf("--schema: %w", errNoTimescale)
		}

		pool, err := tsdb.NewPool(ctx, cfg.Timescale, log)
		if err != nil {
			return err
		}

		err = tsdb.RunMigrations(ctx, pool, log)
		pool.Close()

		if err != nil {
			return fmt.Errorf("failed to apply timescale migrations: %w", err)
		}
	}

	configStore, err := configstore.Open(ctx, &cfg.Persistence, log)
	if err != nil {
		return fmt.Errorf("failed to open config store: %w", err)
	}
	defer func() { _ = configStore.Close() }()

	svc, err := monitor.NewService(cfg, monitor.Options{
		Store:       tsdb.NewMemoryStore(nil),
		ConfigStore: configStore,
		Logger:      log,
	})
	if err != nil {
		return err
	}

	if err := svc.Load(ctx); err != nil {
		return err
	}

	return printJSON(os.Stdout, svc.MigrateLegacySelections(ctx))
}

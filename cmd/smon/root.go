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
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/carverauto/smon/pkg/config"
	"github.com/carverauto/smon/pkg/lifecycle"
	"github.com/carverauto/smon/pkg/logger"
	"github.com/carverauto/smon/pkg/monitor"
	"github.com/carverauto/smon/pkg/version"
)

const defaultConfigPath = "/etc/smon/smon.json"

//nolint:gochecknoglobals // bound to the persistent --config flag
var cfgFile string

// RootCmd is the base command when called without any subcommands.
//
//nolint:gochecknoglobals // cobra command tree
var RootCmd = &cobra.Command{
	Use:           "smon",
	Short:         "SNMP interface traffic monitor",
	Version:       version.GetFullVersion(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the command tree and is called by main.main().
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", defaultConfigPath, "path to the smon config file")
}

// loadConfig reads the service configuration and builds the component
// logger it asks for.
func loadConfig(ctx context.Context, component string) (*monitor.Config, logger.Logger, error) {
	var cfg monitor.Config

	if err := config.NewConfig(nil).LoadAndValidate(ctx, cfgFile, &cfg); err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := lifecycle.InitializeLogger(cfg.Logging); err != nil {
		return nil, nil, err
	}

	log, err := lifecycle.CreateComponentLogger(component, cfg.Logging)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return &cfg, log, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}

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
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/carverauto/smon/pkg/lifecycle"
	"github.com/carverauto/smon/pkg/logger"
	"github.com/carverauto/smon/pkg/snmp"
)

var errHostRequired = errors.New("--host is required")

//nolint:gochecknoglobals // bound to the discover flags
var (
	discoverHost      string
	discoverCommunity string
	discoverDeadline  time.Duration
)

//nolint:gochecknoglobals // cobra command tree
var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Walk ifDescr on a device and print its interfaces as JSON",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runDiscover(cmd.Context())
	},
}

func init() {
	discoverCmd.Flags().StringVar(&discoverHost, "host", "", "device address")
	discoverCmd.Flags().StringVar(&discoverCommunity, "community", "public", "SNMPv2c community")
	discoverCmd.Flags().DurationVar(&discoverDeadline, "deadline", 0, "overall walk deadline (default 5s)")
	RootCmd.AddCommand(discoverCmd)
}

func runDiscover(ctx context.Context) error {
	if discoverHost == "" {
		return errHostRequired
	}

	log, err := lifecycle.CreateComponentLogger("smon-discover", &logger.Config{Level: "warn", Output: "stderr"})
	if err != nil {
		return err
	}

	opts := snmp.InteractiveDiscovery()
	if discoverDeadline > 0 {
		opts.Deadline = discoverDeadline
	}

	interfaces := snmp.NewDiscoverer(nil, log).Discover(ctx, discoverHost, discoverCommunity, opts)

	return printJSON(os.Stdout, interfaces)
}

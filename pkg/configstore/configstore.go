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

// Package configstore persists the device table and the runtime settings.
package configstore

//go:generate mockgen -destination=mock_configstore.go -package=configstore github.com/carverauto/smon/pkg/configstore Store

import (
	"context"
	"errors"
	"fmt"

	"github.com/carverauto/smon/pkg/logger"
	"github.com/carverauto/smon/pkg/models"
)

const (
	BackendFile = "file"
	BackendNATS = "nats"
)

var (
	errUnknownBackend  = errors.New("unknown persistence backend")
	errNATSURLRequired = errors.New("nats persistence requires a url")
)

// Store loads and saves the persisted state. Missing state is not an
// error: devices load empty and settings load as defaults.
type Store interface {
	LoadDevices(ctx context.Context) ([]*models.Device, error)
	SaveDevices(ctx context.Context, devices []*models.Device) error
	LoadSettings(ctx context.Context) (models.Settings, error)
	SaveSettings(ctx context.Context, settings models.Settings) error
	Close() error
}

// Config selects and configures the persistence backend.
type Config struct {
	Backend      string      `json:"backend"`
	ConfigFile   string      `json:"config_file"`
	SettingsFile string      `json:"settings_file"`
	NATS         *NATSConfig `json:"nats,omitempty"`
}

// Validate checks the backend selection.
func (c *Config) Validate() error {
	switch c.Backend {
	case "", BackendFile:
		return nil
	case BackendNATS:
		if c.NATS == nil || c.NATS.URL == "" {
			return errNATSURLRequired
		}

		return c.NATS.TLS.validate()
	default:
		return fmt.Errorf("%w: %q", errUnknownBackend, c.Backend)
	}
}

// Open returns the configured backend.
func Open(ctx context.Context, cfg *Config, log logger.Logger) (Store, error) {
	if cfg == nil {
		cfg = &Config{}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.Backend == BackendNATS {
		return NewNATSStore(ctx, cfg.NATS, log)
	}

	return NewFileStore(cfg.ConfigFile, cfg.SettingsFile, log), nil
}

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

// Package config loads service configuration from a JSON file or the environment.
package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/carverauto/smon/pkg/logger"
)

var (
	errInvalidConfigSource = errors.New("invalid CONFIG_SOURCE value")
	errInvalidConfigPtr    = errors.New("config must be a non-nil pointer")
)

const (
	configSourceFile = "file"
	configSourceEnv  = "env"

	// DefaultEnvPrefix is prepended to every variable read by the env loader.
	DefaultEnvPrefix = "SMON_"
)

// ConfigLoader fills dst from some configuration source.
type ConfigLoader interface {
	Load(ctx context.Context, path string, dst interface{}) error
}

// Validator is implemented by configuration structs that can check themselves.
type Validator interface {
	Validate() error
}

// Config holds the configuration loading dependencies.
type Config struct {
	defaultLoader ConfigLoader
	logger        logger.Logger
}

// NewConfig initializes a new Config instance with a default file loader.
// If log is nil, a warn-level stderr logger is used.
func NewConfig(log logger.Logger) *Config {
	if log == nil {
		log = createBasicLogger(os.Stderr)
	}

	return &Config{
		defaultLoader: &FileConfigLoader{},
		logger:        log,
	}
}

type basicLogger struct {
	zerolog.Logger
}

func createBasicLogger(w io.Writer) logger.Logger {
	return &basicLogger{
		Logger: zerolog.New(w).Level(zerolog.WarnLevel).With().Timestamp().Logger(),
	}
}

func (b *basicLogger) WithComponent(component string) zerolog.Logger {
	return b.Logger.With().Str("component", component).Logger()
}

func (b *basicLogger) WithFields(fields map[string]interface{}) zerolog.Logger {
	return b.Logger.With().Fields(fields).Logger()
}

func (b *basicLogger) SetLevel(level zerolog.Level) {
	b.Logger = b.Logger.Level(level)
}

func (b *basicLogger) SetDebug(debug bool) {
	if debug {
		b.SetLevel(zerolog.DebugLevel)
	} else {
		b.SetLevel(zerolog.InfoLevel)
	}
}

// ValidateConfig validates a configuration if it implements Validator.
func ValidateConfig(cfg interface{}) error {
	v, ok := cfg.(Validator)
	if !ok {
		return nil
	}

	return v.Validate()
}

// LoadAndValidate loads a configuration from the source selected by
// CONFIG_SOURCE and validates it.
func (c *Config) LoadAndValidate(ctx context.Context, path string, cfg interface{}) error {
	if cfg == nil {
		return errInvalidConfigPtr
	}

	loader, err := c.selectLoader()
	if err != nil {
		return err
	}

	if err := loader.Load(ctx, path, cfg); err != nil {
		return err
	}

	return ValidateConfig(cfg)
}

func (c *Config) selectLoader() (ConfigLoader, error) {
	source := strings.ToLower(os.Getenv("CONFIG_SOURCE"))

	switch source {
	case configSourceEnv:
		prefix := os.Getenv("CONFIG_ENV_PREFIX")
		if prefix == "" {
			prefix = DefaultEnvPrefix
		}

		return NewEnvConfigLoader(c.logger, prefix), nil
	case configSourceFile, "":
		return c.defaultLoader, nil
	default:
		return nil, fmt.Errorf("%w: %s (expected '%s' or '%s')",
			errInvalidConfigSource, source, configSourceFile, configSourceEnv)
	}
}

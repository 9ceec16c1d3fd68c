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

// Package lifecycle builds injectable loggers and runs long-lived services.
package lifecycle

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/carverauto/smon/pkg/logger"
)

// InitializeLogger initializes the global logger with the provided configuration.
// If config is nil, it uses the default configuration.
func InitializeLogger(config *logger.Config) error {
	if config == nil {
		config = logger.DefaultConfig()
	}

	if err := logger.Init(config); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	return nil
}

// LoggerImpl implements the logger.Logger interface without using global state
type LoggerImpl struct {
	logger zerolog.Logger
}

// NewLoggerImpl creates a new logger implementation
func NewLoggerImpl(config *logger.Config) (*LoggerImpl, error) {
	zlog, err := logger.New(config)
	if err != nil {
		return nil, err
	}

	return &LoggerImpl{logger: zlog}, nil
}

func (l *LoggerImpl) Trace() *zerolog.Event {
	return l.logger.Trace()
}

func (l *LoggerImpl) Debug() *zerolog.Event {
	return l.logger.Debug()
}

func (l *LoggerImpl) Info() *zerolog.Event {
	return l.logger.Info()
}

func (l *LoggerImpl) Warn() *zerolog.Event {
	return l.logger.Warn()
}

func (l *LoggerImpl) Error() *zerolog.Event {
	return l.logger.Error()
}

func (l *LoggerImpl) Fatal() *zerolog.Event {
	return l.logger.Fatal()
}

func (l *LoggerImpl) Panic() *zerolog.Event {
	return l.logger.Panic()
}

func (l *LoggerImpl) With() zerolog.Context {
	return l.logger.With()
}

func (l *LoggerImpl) WithComponent(component string) zerolog.Logger {
	return l.logger.With().Str("component", component).Logger()
}

func (l *LoggerImpl) WithFields(fields map[string]interface{}) zerolog.Logger {
	ctx := l.logger.With()
	for key, value := range fields {
		ctx = ctx.Interface(key, value)
	}

	return ctx.Logger()
}

func (l *LoggerImpl) SetLevel(level zerolog.Level) {
	l.logger = l.logger.Level(level)
}

func (l *LoggerImpl) SetDebug(debug bool) {
	if debug {
		l.SetLevel(zerolog.DebugLevel)
	} else {
		l.SetLevel(zerolog.InfoLevel)
	}
}

// CreateComponentLogger creates a logger for a specific component.
func CreateComponentLogger(component string, config *logger.Config) (logger.Logger, error) {
	loggerImpl, err := NewLoggerImpl(config)
	if err != nil {
		return nil, err
	}

	return &LoggerImpl{
		logger: loggerImpl.logger.With().Str("component", component).Logger(),
	}, nil
}

var _ logger.Logger = (*LoggerImpl)(nil)

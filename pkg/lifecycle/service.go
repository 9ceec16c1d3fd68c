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

package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/carverauto/smon/pkg/logger"
)

const defaultShutdownTimeout = 10 * time.Second

var (
	errServiceRequired = errors.New("service is required")
	errServiceStart    = errors.New("failed to start service")
	errServiceStop     = errors.New("failed to stop service")
)

// Service is a long-running component with an explicit start and stop.
type Service interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// ServiceOptions configures RunService.
type ServiceOptions struct {
	ServiceName     string
	Service         Service
	Logger          logger.Logger
	ShutdownTimeout time.Duration
	// OnShutdown runs after the service stopped, e.g. to flush exporters.
	OnShutdown []func(ctx context.Context) error
}

// RunService starts the service and blocks until ctx is canceled or the
// process receives SIGINT or SIGTERM, then stops it within the shutdown
// timeout.
func RunService(ctx context.Context, opts *ServiceOptions) error {
	if opts == nil || opts.Service == nil {
		return errServiceRequired
	}

	log := opts.Logger
	if log == nil {
		log = logger.NewTestLogger()
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := opts.Service.Start(ctx); err != nil {
		return fmt.Errorf("%w %s: %w", errServiceStart, opts.ServiceName, err)
	}

	log.Info().Str("service", opts.ServiceName).Msg("Service started")

	<-ctx.Done()

	log.Info().Str("service", opts.ServiceName).Msg("Shutting down")

	timeout := opts.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var errs []error

	if err := opts.Service.Stop(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("%w %s: %w", errServiceStop, opts.ServiceName, err))
	}

	for _, fn := range opts.OnShutdown {
		if err := fn(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
	}

	if err := errors.Join(errs...); err != nil {
		return err
	}

	log.Info().Str("service", opts.ServiceName).Msg("Service stopped")

	return nil
}

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

package metrics

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.31.0"

	"github.com/carverauto/smon/pkg/models"
)

// ErrMetricsDisabled is returned by InitializeProvider when no exporter is configured.
var ErrMetricsDisabled = errors.New("OTel metrics exporter disabled")

const (
	defaultServiceName    = "smon"
	defaultServiceVersion = "1.0.0"
	defaultExportInterval = 15 * time.Second
)

// Config selects the OTLP collector the metrics are pushed to.
type Config struct {
	Enabled        bool              `json:"enabled"`
	Endpoint       string            `json:"endpoint"`
	Insecure       bool              `json:"insecure"`
	Headers        map[string]string `json:"headers,omitempty"`
	ServiceName    string            `json:"service_name"`
	ServiceVersion string            `json:"service_version"`
	ExportInterval models.Duration   `json:"export_interval"`
}

var (
	//nolint:gochecknoglobals // provider is shut down by the process owner
	meterProvider *sdkmetric.MeterProvider
	//nolint:gochecknoglobals // guards meterProvider
	meterMu sync.Mutex
)

// InitializeProvider installs the global MeterProvider with a periodic OTLP
// gRPC exporter. Repeated calls return the installed provider.
func InitializeProvider(ctx context.Context, cfg *Config) (*sdkmetric.MeterProvider, error) {
	if cfg == nil || !cfg.Enabled || cfg.Endpoint == "" {
		return nil, ErrMetricsDisabled
	}

	meterMu.Lock()
	defer meterMu.Unlock()

	if meterProvider != nil {
		return meterProvider, nil
	}

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = defaultServiceName
	}

	serviceVersion := cfg.ServiceVersion
	if serviceVersion == "" {
		serviceVersion = defaultServiceVersion
	}

	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}

	if len(cfg.Headers) > 0 {
		opts = append(opts, otlpmetricgrpc.WithHeaders(cfg.Headers))
	}

	exporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP metric exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(serviceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics resource: %w", err)
	}

	reader := sdkmetric.NewPeriodicReader(exporter,
		sdkmetric.WithInterval(cfg.ExportInterval.OrDefault(defaultExportInterval)))

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)

	otel.SetMeterProvider(provider)
	meterProvider = provider

	return meterProvider, nil
}

// Shutdown flushes and stops the installed provider, if any.
func Shutdown(ctx context.Context) error {
	meterMu.Lock()
	defer meterMu.Unlock()

	if meterProvider == nil {
		return nil
	}

	if err := meterProvider.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shut down meter provider: %w", err)
	}

	meterProvider = nil

	return nil
}

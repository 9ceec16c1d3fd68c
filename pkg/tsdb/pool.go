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

package tsdb

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carverauto/smon/pkg/logger"
	"github.com/carverauto/smon/pkg/models"
)

var errTimescaleHostRequired = errors.New("timescale: host is required")

// TimescaleConfig describes the TimescaleDB (PostgreSQL) connection.
type TimescaleConfig struct {
	Host               string            `json:"host"`
	Port               int               `json:"port"`
	Database           string            `json:"database"`
	Username           string            `json:"username"`
	Password           string            `json:"password"`
	SSLMode            string            `json:"ssl_mode"`
	ApplicationName    string            `json:"application_name"`
	MaxConnections     int32             `json:"max_connections"`
	MinConnections     int32             `json:"min_connections"`
	MaxConnLifetime    models.Duration   `json:"max_conn_lifetime"`
	HealthCheckPeriod  models.Duration   `json:"health_check_period"`
	StatementTimeout   models.Duration   `json:"statement_timeout"`
	ExtraRuntimeParams map[string]string `json:"extra_runtime_params"`
}

// ConnString renders cfg as a postgres:// URL.
func (cfg *TimescaleConfig) ConnString() string {
	port := cfg.Port
	if port == 0 {
		port = 5432
	}

	connURL := url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", cfg.Host, port),
		Path:   "/" + cfg.Database,
	}

	if cfg.Username != "" {
		if cfg.Password != "" {
			connURL.User = url.UserPassword(cfg.Username, cfg.Password)
		} else {
			connURL.User = url.User(cfg.Username)
		}
	}

	query := connURL.Query()

	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	query.Set("sslmode", sslMode)

	if cfg.ApplicationName != "" {
		query.Set("application_name", cfg.ApplicationName)
	}

	connURL.RawQuery = query.Encode()

	return connURL.String()
}

// NewPool dials the configured cluster and returns a pgx pool.
func NewPool(ctx context.Context, cfg *TimescaleConfig, log logger.Logger) (*pgxpool.Pool, error) {
	if cfg == nil || cfg.Host == "" {
		return nil, errTimescaleHostRequired
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.ConnString())
	if err != nil {
		return nil, fmt.Errorf("timescale: failed to parse connection string: %w", err)
	}

	if cfg.MaxConnections > 0 {
		poolConfig.MaxConns = cfg.MaxConnections
	}

	if cfg.MinConnections > 0 {
		poolConfig.MinConns = cfg.MinConnections
	}

	if cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = time.Duration(cfg.MaxConnLifetime)
	}

	if cfg.HealthCheckPeriod > 0 {
		poolConfig.HealthCheckPeriod = time.Duration(cfg.HealthCheckPeriod)
	}

	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = make(map[string]string)
	}

	for k, v := range cfg.ExtraRuntimeParams {
		if k == "" {
			continue
		}

		poolConfig.ConnConfig.RuntimeParams[k] = v
	}

	if cfg.StatementTimeout > 0 {
		ms := time.Duration(cfg.StatementTimeout).Milliseconds()
		poolConfig.ConnConfig.RuntimeParams["statement_timeout"] = strconv.FormatInt(ms, 10)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("timescale: failed to initialize pool: %w", err)
	}

	log.Info().
		Str("host", cfg.Host).
		Str("database", cfg.Database).
		Int32("max_conns", poolConfig.MaxConns).
		Msg("Connected to Timescale")

	return pool, nil
}

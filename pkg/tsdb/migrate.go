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
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carverauto/smon/pkg/logger"
)

const migrationsTable = "smon_schema_migrations"

//go:embed migrations/*.sql
var migrationsFS embed.FS

// RunMigrations applies every embedded *.up.sql file not yet recorded in
// the tracking table, in filename order.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool, log logger.Logger) error {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("timescale migrations: acquire connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		version     TEXT PRIMARY KEY,
		applied_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`, migrationsTable)); err != nil {
		return fmt.Errorf("timescale migrations: create tracking table: %w", err)
	}

	applied := make(map[string]struct{})

	rows, err := conn.Query(ctx, fmt.Sprintf(`SELECT version FROM %s`, migrationsTable))
	if err != nil {
		return fmt.Errorf("timescale migrations: list applied versions: %w", err)
	}

	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			rows.Close()

			return fmt.Errorf("timescale migrations: scan applied version: %w", err)
		}

		applied[version] = struct{}{}
	}

	rows.Close()

	if err := rows.Err(); err != nil {
		return fmt.Errorf("timescale migrations: iterate applied versions: %w", err)
	}

	filenames, err := pendingMigrations(applied)
	if err != nil {
		return err
	}

	for _, name := range filenames {
		log.Info().Str("migration", name).Msg("Applying Timescale migration")

		content, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("timescale migrations: read %s: %w", name, err)
		}

		for idx, stmt := range splitSQLStatements(string(content)) {
			if _, err := conn.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("timescale migrations: statement %d in %s failed: %w", idx+1, name, err)
			}
		}

		if _, err := conn.Exec(ctx,
			fmt.Sprintf(`INSERT INTO %s (version) VALUES ($1)`, migrationsTable), extractVersion(name)); err != nil {
			return fmt.Errorf("timescale migrations: record %s: %w", name, err)
		}
	}

	return nil
}

func pendingMigrations(applied map[string]struct{}) ([]string, error) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("timescale migrations: read embedded migrations: %w", err)
	}

	filenames := make([]string, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".up.sql") {
			continue
		}

		if _, ok := applied[extractVersion(entry.Name())]; ok {
			continue
		}

		filenames = append(filenames, entry.Name())
	}

	sort.Strings(filenames)

	return filenames, nil
}

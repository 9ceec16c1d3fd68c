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

package models

import (
	"fmt"
	"math"
	"time"
)

const (
	DefaultPollingIntervalMs = 300_000
	MinPollingIntervalMs     = 10_000
	DefaultRetentionDays     = 30
	MinRetentionDays         = 1
	MaxRetentionDays         = 365
)

// MaxPollingIntervalMs is the longest interval a time.Duration can hold.
const MaxPollingIntervalMs = math.MaxInt64 / int64(time.Millisecond)

// Settings is the persisted runtime configuration. PollingInterval is in
// milliseconds and DataRetention in days, matching settings.json.
type Settings struct {
	PollingInterval int64 `json:"pollingInterval"`
	DataRetention   int   `json:"dataRetention"`
}

// DefaultSettings returns the settings used when nothing is persisted.
func DefaultSettings() Settings {
	return Settings{
		PollingInterval: DefaultPollingIntervalMs,
		DataRetention:   DefaultRetentionDays,
	}
}

// Normalize replaces zero values with defaults and clamps an interval too
// long to schedule.
func (s Settings) Normalize() Settings {
	if s.PollingInterval <= 0 {
		s.PollingInterval = DefaultPollingIntervalMs
	}

	if s.PollingInterval > MaxPollingIntervalMs {
		s.PollingInterval = MaxPollingIntervalMs
	}

	if s.DataRetention <= 0 {
		s.DataRetention = DefaultRetentionDays
	}

	return s
}

func (s Settings) Interval() time.Duration {
	return time.Duration(s.PollingInterval) * time.Millisecond
}

func (s Settings) Retention() time.Duration {
	return time.Duration(s.DataRetention) * 24 * time.Hour
}

// View renders settings the way the API reports them.
func (s Settings) View() SettingsView {
	return SettingsView{
		PollingInterval:        s.PollingInterval,
		PollingIntervalSeconds: float64(s.PollingInterval) / 1000,
		DataRetention:          s.DataRetention,
	}
}

// SettingsView exposes the interval in both milliseconds and seconds.
type SettingsView struct {
	PollingInterval        int64   `json:"pollingInterval"`
	PollingIntervalSeconds float64 `json:"pollingIntervalSeconds"`
	DataRetention          int     `json:"dataRetention"`
}

// SettingsUpdate is a partial update. Nil fields are left unchanged.
type SettingsUpdate struct {
	PollingIntervalSeconds *int64 `json:"pollingIntervalSeconds,omitempty"`
	DataRetentionDays      *int   `json:"dataRetentionDays,omitempty"`
}

// Validate checks every supplied field before anything is applied.
func (u SettingsUpdate) Validate() error {
	if u.PollingIntervalSeconds != nil {
		secs := *u.PollingIntervalSeconds
		if secs < MinPollingIntervalMs/1000 {
			return fmt.Errorf("%w: polling interval must be at least %d seconds",
				ErrValidation, MinPollingIntervalMs/1000)
		}

		if secs > MaxPollingIntervalMs/1000 {
			return fmt.Errorf("%w: polling interval must be at most %d seconds",
				ErrValidation, MaxPollingIntervalMs/1000)
		}
	}

	if u.DataRetentionDays != nil &&
		(*u.DataRetentionDays < MinRetentionDays || *u.DataRetentionDays > MaxRetentionDays) {
		return fmt.Errorf("%w: data retention must be between %d and %d days",
			ErrValidation, MinRetentionDays, MaxRetentionDays)
	}

	return nil
}

// Apply returns s with the update applied and which fields actually changed.
func (u SettingsUpdate) Apply(s Settings) (next Settings, intervalChanged, retentionChanged bool) {
	next = s

	if u.PollingIntervalSeconds != nil {
		next.PollingInterval = *u.PollingIntervalSeconds * 1000
		intervalChanged = next.PollingInterval != s.PollingInterval
	}

	if u.DataRetentionDays != nil {
		next.DataRetention = *u.DataRetentionDays
		retentionChanged = next.DataRetention != s.DataRetention
	}

	return next, intervalChanged, retentionChanged
}

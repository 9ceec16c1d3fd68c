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

package configstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/carverauto/smon/pkg/logger"
	"github.com/carverauto/smon/pkg/models"
)

const (
	DefaultConfigFile   = "config.json"
	DefaultSettingsFile = "settings.json"

	devicesKey = "snmpDevices"
	filePerm   = 0o600
)

// FileStore keeps devices in config.json under "snmpDevices" and settings
// in settings.json. Other top-level keys of config.json are preserved.
type FileStore struct {
	configPath   string
	settingsPath string
	logger       logger.Logger
	mu           sync.Mutex
}

// NewFileStore returns a store over the two files. Empty paths use the
// defaults in the working directory.
func NewFileStore(configPath, settingsPath string, log logger.Logger) *FileStore {
	if configPath == "" {
		configPath = DefaultConfigFile
	}

	if settingsPath == "" {
		settingsPath = DefaultSettingsFile
	}

	return &FileStore{
		configPath:   configPath,
		settingsPath: settingsPath,
		logger:       log,
	}
}

func (f *FileStore) LoadDevices(_ context.Context) ([]*models.Device, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.readConfigDoc()
	if err != nil {
		return nil, err
	}

	raw, ok := doc[devicesKey]
	if !ok {
		return []*models.Device{}, nil
	}

	var devices []*models.Device
	if err := json.Unmarshal(raw, &devices); err != nil {
		return nil, fmt.Errorf("failed to decode %s in %s: %w", devicesKey, f.configPath, err)
	}

	if devices == nil {
		devices = []*models.Device{}
	}

	return devices, nil
}

func (f *FileStore) SaveDevices(_ context.Context, devices []*models.Device) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.readConfigDoc()
	if err != nil {
		return err
	}

	if devices == nil {
		devices = []*models.Device{}
	}

	raw, err := json.Marshal(devices)
	if err != nil {
		return fmt.Errorf("failed to encode devices: %w", err)
	}

	doc[devicesKey] = raw

	return writeJSON(f.configPath, doc)
}

func (f *FileStore) LoadSettings(_ context.Context) (models.Settings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.settingsPath)
	if errors.Is(err, fs.ErrNotExist) {
		f.logger.Info().Str("path", f.settingsPath).Msg("No settings file, using defaults")

		return models.DefaultSettings(), nil
	}

	if err != nil {
		return models.Settings{}, fmt.Errorf("failed to read %s: %w", f.settingsPath, err)
	}

	var s models.Settings
	if err := json.Unmarshal(data, &s); err != nil {
		return models.Settings{}, fmt.Errorf("failed to decode %s: %w", f.settingsPath, err)
	}

	return s.Normalize(), nil
}

func (f *FileStore) SaveSettings(_ context.Context, settings models.Settings) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	return writeJSON(f.settingsPath, settings)
}

func (*FileStore) Close() error {
	return nil
}

func (f *FileStore) readConfigDoc() (map[string]json.RawMessage, error) {
	doc := make(map[string]json.RawMessage)

	data, err := os.ReadFile(f.configPath)
	if errors.Is(err, fs.ErrNotExist) {
		return doc, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", f.configPath, err)
	}

	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", f.configPath, err)
	}

	if doc == nil {
		doc = make(map[string]json.RawMessage)
	}

	return doc, nil
}

// writeJSON replaces path with the indented encoding of v via a temporary
// file in the same directory.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", path, err)
	}

	tmpName := tmp.Name()

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)

		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)

		return fmt.Errorf("failed to close %s: %w", tmpName, err)
	}

	if err := os.Chmod(tmpName, filePerm); err != nil {
		_ = os.Remove(tmpName)

		return fmt.Errorf("failed to chmod %s: %w", tmpName, err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)

		return fmt.Errorf("failed to replace %s: %w", path, err)
	}

	return nil
}

var _ Store = (*FileStore)(nil)

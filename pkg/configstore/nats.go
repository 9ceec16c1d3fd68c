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

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/carverauto/smon/pkg/logger"
	"github.com/carverauto/smon/pkg/models"
)

const (
	DefaultBucket = "smon"

	keyDevices  = "devices"
	keySettings = "settings"
)

// NATSConfig points at a JetStream-enabled NATS server.
type NATSConfig struct {
	URL       string     `json:"url"`
	Bucket    string     `json:"bucket"`
	CredsFile string     `json:"creds_file,omitempty"`
	TLS       *TLSConfig `json:"tls,omitempty"`
}

// NATSStore keeps devices and settings as two JSON values in a JetStream
// key-value bucket.
type NATSStore struct {
	nc     *nats.Conn
	kv     jetstream.KeyValue
	logger logger.Logger
}

// NewNATSStore connects and creates the bucket when it does not exist.
func NewNATSStore(ctx context.Context, cfg *NATSConfig, log logger.Logger) (*NATSStore, error) {
	if cfg == nil || cfg.URL == "" {
		return nil, errNATSURLRequired
	}

	opts := []nats.Option{nats.Name("smon-configstore")}
	if cfg.CredsFile != "" {
		opts = append(opts, nats.UserCredentials(cfg.CredsFile))
	}

	if cfg.TLS.enabled() {
		tlsConfig, err := cfg.TLS.build()
		if err != nil {
			return nil, err
		}

		opts = append(opts, nats.Secure(tlsConfig))
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()

		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	bucket := cfg.Bucket
	if bucket == "" {
		bucket = DefaultBucket
	}

	kv, err := js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "SNMP monitor devices and settings",
		History:     5,
	})
	if err != nil {
		nc.Close()

		return nil, fmt.Errorf("failed to create KV bucket: %w", err)
	}

	log.Info().Str("bucket", bucket).Msg("Using NATS KV persistence")

	return &NATSStore{nc: nc, kv: kv, logger: log}, nil
}

func (n *NATSStore) get(ctx context.Context, key string) ([]byte, bool, error) {
	entry, err := n.kv.Get(ctx, key)
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return nil, false, nil
	}

	if err != nil {
		return nil, false, fmt.Errorf("failed to get key %s: %w", key, err)
	}

	return entry.Value(), true, nil
}

func (n *NATSStore) put(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}

	if _, err := n.kv.Put(ctx, key, data); err != nil {
		return fmt.Errorf("failed to put key %s: %w", key, err)
	}

	return nil
}

func (n *NATSStore) LoadDevices(ctx context.Context) ([]*models.Device, error) {
	data, found, err := n.get(ctx, keyDevices)
	if err != nil {
		return nil, err
	}

	devices := []*models.Device{}
	if !found {
		return devices, nil
	}

	if err := json.Unmarshal(data, &devices); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", keyDevices, err)
	}

	return devices, nil
}

func (n *NATSStore) SaveDevices(ctx context.Context, devices []*models.Device) error {
	if devices == nil {
		devices = []*models.Device{}
	}

	return n.put(ctx, keyDevices, devices)
}

func (n *NATSStore) LoadSettings(ctx context.Context) (models.Settings, error) {
	data, found, err := n.get(ctx, keySettings)
	if err != nil {
		return models.Settings{}, err
	}

	if !found {
		return models.DefaultSettings(), nil
	}

	var s models.Settings
	if err := json.Unmarshal(data, &s); err != nil {
		return models.Settings{}, fmt.Errorf("failed to decode %s: %w", keySettings, err)
	}

	return s.Normalize(), nil
}

func (n *NATSStore) SaveSettings(ctx context.Context, settings models.Settings) error {
	return n.put(ctx, keySettings, settings)
}

func (n *NATSStore) Close() error {
	n.nc.Close()

	return nil
}

var _ Store = (*NATSStore)(nil)

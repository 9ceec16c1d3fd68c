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

// Package registry holds the in-memory table of monitored devices.
package registry

import (
	"fmt"
	"strings"
	"sync"

	"github.com/carverauto/smon/pkg/models"
)

// Registry is the single-writer, many-reader device table. Every record
// crossing its boundary is cloned, so callers never share selection slices
// with the table.
type Registry struct {
	mu      sync.RWMutex
	devices map[string]*models.Device
	order   []string
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{devices: make(map[string]*models.Device)}
}

// Load replaces the table with devices, keeping their order. Later
// duplicates of an id are ignored.
func (r *Registry) Load(devices []*models.Device) {
	table := make(map[string]*models.Device, len(devices))
	order := make([]string, 0, len(devices))

	for _, d := range devices {
		if d == nil || strings.TrimSpace(d.ID) == "" {
			continue
		}

		if _, dup := table[d.ID]; dup {
			continue
		}

		table[d.ID] = d.Clone()
		order = append(order, d.ID)
	}

	r.mu.Lock()
	r.devices = table
	r.order = order
	r.mu.Unlock()
}

// Add inserts a new device.
func (r *Registry) Add(device *models.Device) error {
	if device == nil || strings.TrimSpace(device.ID) == "" {
		return fmt.Errorf("%w: id is required", models.ErrValidation)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.devices[device.ID]; ok {
		return fmt.Errorf("%w: %s", models.ErrDeviceExists, device.ID)
	}

	r.devices[device.ID] = device.Clone()
	r.order = append(r.order, device.ID)

	return nil
}

// Get returns a copy of the device with id.
func (r *Registry) Get(id string) (*models.Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.devices[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrNotFound, id)
	}

	return d.Clone(), nil
}

// List returns copies of every device in insertion order.
func (r *Registry) List() []*models.Device {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*models.Device, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.devices[id].Clone())
	}

	return out
}

// Update applies fn to a copy of the device and commits the copy only when
// fn succeeds. It returns the previous and the committed record.
func (r *Registry) Update(id string, fn func(*models.Device) error) (prev, next *models.Device, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.devices[id]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", models.ErrNotFound, id)
	}

	candidate := current.Clone()
	if err := fn(candidate); err != nil {
		return nil, nil, err
	}

	// The id is the table key; fn cannot move a record.
	candidate.ID = id
	r.devices[id] = candidate

	return current.Clone(), candidate.Clone(), nil
}

// Delete removes and returns the device with id.
func (r *Registry) Delete(id string) (*models.Device, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.devices[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrNotFound, id)
	}

	delete(r.devices, id)

	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)

			break
		}
	}

	return d, nil
}

// Pollable returns copies of the enabled devices that have at least one
// selected interface.
func (r *Registry) Pollable() []*models.Device {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*models.Device

	for _, id := range r.order {
		d := r.devices[id]
		if !d.Enabled || len(d.SelectedInterfaces) == 0 {
			continue
		}

		out = append(out, d.Clone())
	}

	return out
}

// Len reports the number of devices.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.devices)
}

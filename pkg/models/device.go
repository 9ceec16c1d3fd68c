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

// Package models holds the data types shared across the SNMP monitor.
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Device is one monitored SNMP agent.
type Device struct {
	ID                 string               `json:"id"`
	Name               string               `json:"name"`
	Host               string               `json:"host"`
	Community          string               `json:"community"`
	Enabled            bool                 `json:"enabled"`
	SelectedInterfaces []InterfaceSelection `json:"selectedInterfaces"`
}

// Clone returns a deep copy so registry snapshots never share selection slices.
func (d *Device) Clone() *Device {
	if d == nil {
		return nil
	}

	c := *d
	if d.SelectedInterfaces != nil {
		c.SelectedInterfaces = make([]InterfaceSelection, len(d.SelectedInterfaces))
		copy(c.SelectedInterfaces, d.SelectedInterfaces)
	}

	return &c
}

// TransportKey identifies the SNMP endpoint a session is bound to.
func (d *Device) TransportKey() string {
	return d.Host + "|" + d.Community
}

// ResolvedSelections returns the selections that carry a usable ifIndex.
func (d *Device) ResolvedSelections() []InterfaceSelection {
	out := make([]InterfaceSelection, 0, len(d.SelectedInterfaces))

	for _, sel := range d.SelectedInterfaces {
		if sel.Resolved() {
			out = append(out, sel)
		}
	}

	return out
}

// FullyResolved reports whether every selection has an index.
func (d *Device) FullyResolved() bool {
	for _, sel := range d.SelectedInterfaces {
		if !sel.Resolved() {
			return false
		}
	}

	return true
}

// InterfaceSelection is an interface chosen for polling. Entries written by
// older releases are bare names and decode with Index 0.
type InterfaceSelection struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
}

// Resolved reports whether the selection carries a trusted ifIndex.
func (s InterfaceSelection) Resolved() bool {
	return s.Index > 0
}

type interfaceSelectionObject InterfaceSelection

// UnmarshalJSON accepts both the legacy string form and the object form.
func (s *InterfaceSelection) UnmarshalJSON(b []byte) error {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) == 0 {
		return errInvalidSelection
	}

	switch trimmed[0] {
	case '"':
		var name string
		if err := json.Unmarshal(trimmed, &name); err != nil {
			return err
		}

		*s = InterfaceSelection{Name: name}

		return nil
	case '{':
		var obj interfaceSelectionObject
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return err
		}

		*s = InterfaceSelection(obj)

		return nil
	default:
		return fmt.Errorf("%w: %s", errInvalidSelection, string(trimmed))
	}
}

// Interface is one row of an ifDescr walk.
type Interface struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
}

// DeviceInput carries the caller-supplied fields for create and update.
type DeviceInput struct {
	ID                 string               `json:"id"`
	Name               string               `json:"name"`
	Host               string               `json:"host"`
	Community          string               `json:"community"`
	Enabled            *bool                `json:"enabled,omitempty"`
	SelectedInterfaces []InterfaceSelection `json:"selectedInterfaces"`
}

// ValidateCreate requires id, name, host and community.
func (in *DeviceInput) ValidateCreate() error {
	if strings.TrimSpace(in.ID) == "" {
		return fmt.Errorf("%w: id is required", ErrValidation)
	}

	return in.ValidateUpdate()
}

// ValidateUpdate requires name, host and community.
func (in *DeviceInput) ValidateUpdate() error {
	var missing []string

	if strings.TrimSpace(in.Name) == "" {
		missing = append(missing, "name")
	}

	if strings.TrimSpace(in.Host) == "" {
		missing = append(missing, "host")
	}

	if strings.TrimSpace(in.Community) == "" {
		missing = append(missing, "community")
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrValidation, strings.Join(missing, ", "))
	}

	return nil
}

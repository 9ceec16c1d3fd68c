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

package poller

//go:generate mockgen -destination=mock_poller.go -package=poller github.com/carverauto/smon/pkg/poller DeviceSource,SessionSource,PointWriter

import (
	"context"

	"github.com/carverauto/smon/pkg/models"
	"github.com/carverauto/smon/pkg/snmp"
)

// DeviceSource yields the devices a cycle should poll. Implementations
// return copies; the poller never mutates them.
type DeviceSource interface {
	Pollable() []*models.Device
}

// SessionSource hands out the live session of a device.
type SessionSource interface {
	Session(deviceID string) (snmp.Session, bool)
}

// PointWriter persists one counter sample and reports whether it was accepted.
type PointWriter interface {
	Write(ctx context.Context, deviceID, deviceName, iface string, dir models.Direction, counter uint64) bool
}

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

package snmp

import (
	"sync"

	"github.com/carverauto/smon/pkg/logger"
	"github.com/carverauto/smon/pkg/models"
)

type managedSession struct {
	key     string
	session Session
}

// Manager keeps exactly one live polling session per enabled device. It is
// the only component that opens or closes those sessions.
type Manager struct {
	mu       sync.RWMutex
	factory  SessionFactory
	sessions map[string]*managedSession
	logger   logger.Logger
}

// NewManager builds a Manager that opens sessions through factory.
func NewManager(factory SessionFactory, log logger.Logger) *Manager {
	if factory == nil {
		factory = GoSNMPFactory{}
	}

	return &Manager{
		factory:  factory,
		sessions: make(map[string]*managedSession),
		logger:   log,
	}
}

// Open creates a session for device, replacing any previous one.
func (m *Manager) Open(device *models.Device) Session {
	sess := m.factory.Open(SessionConfig{
		Host:      device.Host,
		Community: device.Community,
		Timeout:   PollTimeout,
		Retries:   PollRetries,
	})

	m.mu.Lock()
	prev := m.sessions[device.ID]
	m.sessions[device.ID] = &managedSession{key: device.TransportKey(), session: sess}
	m.mu.Unlock()

	if prev != nil {
		m.closeSession(device.ID, prev.session)
	}

	m.logger.Debug().
		Str("device_id", device.ID).
		Str("host", device.Host).
		Msg("Opened SNMP session")

	return sess
}

// Close releases the session for deviceID, if any.
func (m *Manager) Close(deviceID string) {
	m.mu.Lock()
	prev := m.sessions[deviceID]
	delete(m.sessions, deviceID)
	m.mu.Unlock()

	if prev != nil {
		m.closeSession(deviceID, prev.session)
	}
}

// Sync brings the session for device in line with its current state: a
// disabled device has none, an enabled one has a session bound to its
// current host and community.
func (m *Manager) Sync(device *models.Device) {
	if !device.Enabled {
		m.Close(device.ID)

		return
	}

	m.mu.RLock()
	current, ok := m.sessions[device.ID]
	m.mu.RUnlock()

	if ok && current.key == device.TransportKey() {
		return
	}

	m.Open(device)
}

// Session returns the live session for deviceID.
func (m *Manager) Session(deviceID string) (Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[deviceID]
	if !ok {
		return nil, false
	}

	return s.session, true
}

// Len reports the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.sessions)
}

// CloseAll releases every session.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*managedSession)
	m.mu.Unlock()

	for id, s := range sessions {
		m.closeSession(id, s.session)
	}
}

func (m *Manager) closeSession(deviceID string, sess Session) {
	if err := sess.Close(); err != nil {
		m.logger.Warn().Err(err).Str("device_id", deviceID).Msg("Error closing SNMP session")
	}
}

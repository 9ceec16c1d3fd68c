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

//go:generate mockgen -destination=mock_snmp.go -package=snmp github.com/carverauto/smon/pkg/snmp Session,SessionFactory

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gosnmp/gosnmp"
)

var (
	// ErrSessionClosed is returned by requests issued after Close.
	ErrSessionClosed = errors.New("snmp session closed")
	errConnect       = errors.New("snmp connect failed")
)

const (
	defaultPort           = 161
	defaultMaxRepetitions = 30

	// PollTimeout and PollRetries bind every read of a per-device session.
	PollTimeout = 1000 * time.Millisecond
	PollRetries = 0
)

// Session is an SNMP binding to one (host, community) pair. Requests may be
// issued concurrently.
type Session interface {
	Get(oids []string) (*gosnmp.SnmpPacket, error)
	BulkWalk(rootOid string, walkFn gosnmp.WalkFunc) error
	Close() error
}

// SessionFactory creates sessions. Open never fails; connection errors
// surface on the first request.
type SessionFactory interface {
	Open(cfg SessionConfig) Session
}

// SessionConfig describes how a session talks to its agent.
type SessionConfig struct {
	Host           string
	Community      string
	Port           uint16
	Timeout        time.Duration
	Retries        int
	MaxRepetitions uint32
}

// GoSNMPFactory opens SNMPv2c sessions backed by gosnmp.
type GoSNMPFactory struct{}

// Open implements SessionFactory.
func (GoSNMPFactory) Open(cfg SessionConfig) Session {
	if cfg.Port == 0 {
		cfg.Port = defaultPort
	}

	if cfg.MaxRepetitions == 0 {
		cfg.MaxRepetitions = defaultMaxRepetitions
	}

	return &gosnmpSession{
		cfg:    cfg,
		active: make(map[*gosnmp.GoSNMP]struct{}),
	}
}

// gosnmpSession is the binding of one device to its agent. Each request
// runs on its own short-lived gosnmp handle, so a silent agent costs every
// read one timeout instead of queueing reads behind each other. Close
// aborts the requests still in flight.
type gosnmpSession struct {
	cfg SessionConfig

	mu     sync.Mutex
	active map[*gosnmp.GoSNMP]struct{}
	closed bool
}

func (s *gosnmpSession) newClient() *gosnmp.GoSNMP {
	return &gosnmp.GoSNMP{
		Target:         s.cfg.Host,
		Port:           s.cfg.Port,
		Community:      s.cfg.Community,
		Version:        gosnmp.Version2c,
		Timeout:        s.cfg.Timeout,
		Retries:        s.cfg.Retries,
		MaxOids:        gosnmp.MaxOids,
		MaxRepetitions: s.cfg.MaxRepetitions,
	}
}

// acquire connects a fresh handle and registers it so Close can abort it.
// Connect may resolve the host name, so it runs outside mu.
func (s *gosnmpSession) acquire() (*gosnmp.GoSNMP, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()

	if closed {
		return nil, ErrSessionClosed
	}

	client := s.newClient()

	if err := client.Connect(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", errConnect, s.cfg.Host, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		_ = client.Conn.Close()

		return nil, ErrSessionClosed
	}

	s.active[client] = struct{}{}

	return client, nil
}

// release closes client unless Close already did.
func (s *gosnmpSession) release(client *gosnmp.GoSNMP) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.active[client]; !ok {
		return
	}

	delete(s.active, client)

	_ = client.Conn.Close()
}

func (s *gosnmpSession) Get(oids []string) (*gosnmp.SnmpPacket, error) {
	client, err := s.acquire()
	if err != nil {
		return nil, err
	}
	defer s.release(client)

	return client.Get(oids)
}

func (s *gosnmpSession) BulkWalk(rootOid string, walkFn gosnmp.WalkFunc) error {
	client, err := s.acquire()
	if err != nil {
		return err
	}
	defer s.release(client)

	return client.BulkWalk(rootOid, walkFn)
}

func (s *gosnmpSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true

	var errs []error

	for client := range s.active {
		delete(s.active, client)

		if err := client.Conn.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

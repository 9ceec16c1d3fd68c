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
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gosnmp/gosnmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/carverauto/smon/pkg/logger"
	"github.com/carverauto/smon/pkg/models"
)

func descr(oid, name string) gosnmp.SnmpPDU {
	return gosnmp.SnmpPDU{Name: oid, Type: gosnmp.OctetString, Value: []byte(name)}
}

func walkOf(pdus ...gosnmp.SnmpPDU) func(string, gosnmp.WalkFunc) error {
	return func(_ string, fn gosnmp.WalkFunc) error {
		for _, pdu := range pdus {
			if err := fn(pdu); err != nil {
				return err
			}
		}

		return nil
	}
}

func TestDiscoverFiltersNameColumn(t *testing.T) {
	ctrl := gomock.NewController(t)
	factory := NewMockSessionFactory(ctrl)
	sess := NewMockSession(ctrl)

	factory.EXPECT().Open(SessionConfig{
		Host:           "10.0.0.1",
		Community:      "public",
		Timeout:        3 * time.Second,
		Retries:        0,
		MaxRepetitions: 30,
	}).Return(sess)

	sess.EXPECT().BulkWalk(OIDIfDescr, gomock.Any()).DoAndReturn(walkOf(
		descr(".1.3.6.1.2.1.2.2.1.2.1", "ether1"),
		descr(".1.3.6.1.2.1.2.2.1.2.2", "ether2"),
		descr(".1.3.6.1.2.1.2.2.1.20.1", "sibling"),
		descr(".1.3.6.1.2.1.2.2.1.2.3.1", "too-deep"),
		gosnmp.SnmpPDU{Name: ".1.3.6.1.2.1.2.2.1.2.4", Type: gosnmp.NoSuchInstance},
		descr(".1.3.6.1.2.1.2.2.1.2.10", "bridge"),
	))
	sess.EXPECT().Close().Return(nil)

	d := NewDiscoverer(factory, logger.NewTestLogger())
	got := d.Discover(context.Background(), "10.0.0.1", "public", InteractiveDiscovery())

	assert.Equal(t, []models.Interface{
		{Index: 1, Name: "ether1"},
		{Index: 2, Name: "ether2"},
		{Index: 10, Name: "bridge"},
	}, got)
}

func TestDiscoverDeadlineReturnsPartialResult(t *testing.T) {
	ctrl := gomock.NewController(t)
	factory := NewMockSessionFactory(ctrl)
	sess := NewMockSession(ctrl)

	closed := make(chan struct{})
	lateErr := make(chan error, 1)

	factory.EXPECT().Open(gomock.Any()).Return(sess)
	sess.EXPECT().BulkWalk(OIDIfDescr, gomock.Any()).DoAndReturn(func(_ string, fn gosnmp.WalkFunc) error {
		if err := fn(descr("1.3.6.1.2.1.2.2.1.2.1", "ether1")); err != nil {
			return err
		}

		<-closed

		err := fn(descr("1.3.6.1.2.1.2.2.1.2.2", "ether2"))
		lateErr <- err

		return err
	})
	sess.EXPECT().Close().DoAndReturn(func() error {
		close(closed)

		return nil
	})

	d := NewDiscoverer(factory, logger.NewTestLogger())
	got := d.Discover(context.Background(), "10.0.0.9", "public", DiscoveryOptions{
		Timeout:  time.Second,
		Deadline: 50 * time.Millisecond,
	})

	assert.Equal(t, []models.Interface{{Index: 1, Name: "ether1"}}, got)

	select {
	case err := <-lateErr:
		require.ErrorIs(t, err, errWalkFinalized)
	case <-time.After(2 * time.Second):
		t.Fatal("walk was not aborted")
	}
}

func TestDiscoverWalkErrorKeepsPartialResult(t *testing.T) {
	ctrl := gomock.NewController(t)
	factory := NewMockSessionFactory(ctrl)
	sess := NewMockSession(ctrl)

	factory.EXPECT().Open(gomock.Any()).Return(sess)
	sess.EXPECT().BulkWalk(OIDIfDescr, gomock.Any()).DoAndReturn(func(_ string, fn gosnmp.WalkFunc) error {
		_ = fn(descr("1.3.6.1.2.1.2.2.1.2.5", "wan"))

		return errors.New("request timeout (after 0 retries)")
	})
	sess.EXPECT().Close().Return(nil)

	d := NewDiscoverer(factory, logger.NewTestLogger())
	got := d.Discover(context.Background(), "10.0.0.9", "public", InteractiveDiscovery())

	assert.Equal(t, []models.Interface{{Index: 5, Name: "wan"}}, got)
}

func TestDiscoverUnreachableReturnsEmpty(t *testing.T) {
	ctrl := gomock.NewController(t)
	factory := NewMockSessionFactory(ctrl)
	sess := NewMockSession(ctrl)

	factory.EXPECT().Open(gomock.Any()).Return(sess)
	sess.EXPECT().BulkWalk(OIDIfDescr, gomock.Any()).Return(errTimeout)
	sess.EXPECT().Close().Return(nil)

	d := NewDiscoverer(factory, logger.NewTestLogger())
	got := d.Discover(context.Background(), "192.0.2.1", "public", InteractiveDiscovery())

	require.NotNil(t, got)
	assert.Empty(t, got)
}

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

package monitor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gosnmp/gosnmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/carverauto/smon/pkg/models"
	"github.com/carverauto/smon/pkg/snmp"
)

var errRequestTimeout = errors.New("request timeout")

func boolPtr(b bool) *bool {
	return &b
}

func validInput(id string) models.DeviceInput {
	return models.DeviceInput{ID: id, Name: "Switch " + id, Host: "192.0.2.10", Community: "public"}
}

func TestCreateDevice(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	f.factory.EXPECT().Open(gomock.Any()).Return(snmp.NewMockSession(f.ctrl))
	f.configs.EXPECT().SaveDevices(gomock.Any(), gomock.Len(1)).Return(nil)

	in := validInput("sw1")
	in.Enabled = boolPtr(false)

	got, err := f.svc.CreateDevice(ctx, in)
	require.NoError(t, err)
	assert.True(t, got.Enabled)
	assert.NotNil(t, got.SelectedInterfaces)
	assert.Empty(t, got.SelectedInterfaces)

	// Neither failure reaches the session manager or the config store.
	_, err = f.svc.CreateDevice(ctx, validInput("sw1"))
	require.ErrorIs(t, err, models.ErrDeviceExists)
	require.ErrorIs(t, err, models.ErrValidation)

	_, err = f.svc.CreateDevice(ctx, models.DeviceInput{ID: "sw2", Name: "no host", Community: "public"})
	require.ErrorIs(t, err, models.ErrValidation)

	assert.Len(t, f.svc.ListDevices(), 1)

	stored, err := f.svc.GetDevice("sw1")
	require.NoError(t, err)
	assert.Equal(t, got, stored)
}

func TestUpdateDevice(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	first := snmp.NewMockSession(f.ctrl)
	second := snmp.NewMockSession(f.ctrl)

	gomock.InOrder(
		f.factory.EXPECT().Open(gomock.Any()).Return(first),
		f.factory.EXPECT().Open(gomock.Any()).Return(second),
		first.EXPECT().Close().Return(nil),
		second.EXPECT().Close().Return(nil),
	)

	f.configs.EXPECT().SaveDevices(gomock.Any(), gomock.Any()).Return(nil).Times(4)

	_, err := f.svc.CreateDevice(ctx, validInput("sw1"))
	require.NoError(t, err)

	// Unknown id wins over invalid input.
	_, err = f.svc.UpdateDevice(ctx, "nope", models.DeviceInput{})
	require.ErrorIs(t, err, models.ErrNotFound)

	_, err = f.svc.UpdateDevice(ctx, "sw1", models.DeviceInput{Name: "x"})
	require.ErrorIs(t, err, models.ErrValidation)

	// Renaming keeps the session.
	in := validInput("ignored")
	in.Name = "Renamed"
	in.SelectedInterfaces = []models.InterfaceSelection{{Index: 4, Name: "ge-0/0/4"}}

	got, err := f.svc.UpdateDevice(ctx, "sw1", in)
	require.NoError(t, err)
	assert.Equal(t, "sw1", got.ID)
	assert.Equal(t, "Renamed", got.Name)
	assert.True(t, got.Enabled)
	assert.Equal(t, in.SelectedInterfaces, got.SelectedInterfaces)

	// A new host replaces the session.
	in.Host = "192.0.2.99"
	_, err = f.svc.UpdateDevice(ctx, "sw1", in)
	require.NoError(t, err)

	// Disabling closes it.
	in.Enabled = boolPtr(false)
	got, err = f.svc.UpdateDevice(ctx, "sw1", in)
	require.NoError(t, err)
	assert.False(t, got.Enabled)
}

func TestDeleteDeviceClosesSession(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	sess := snmp.NewMockSession(f.ctrl)
	f.factory.EXPECT().Open(gomock.Any()).Return(sess)
	sess.EXPECT().Close().Return(nil)

	f.configs.EXPECT().SaveDevices(gomock.Any(), gomock.Len(1)).Return(nil)
	f.configs.EXPECT().SaveDevices(gomock.Any(), gomock.Len(0)).Return(nil)

	_, err := f.svc.CreateDevice(ctx, validInput("sw1"))
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteDevice(ctx, "sw1"))
	require.ErrorIs(t, f.svc.DeleteDevice(ctx, "sw1"), models.ErrNotFound)

	_, err = f.svc.GetDevice("sw1")
	require.ErrorIs(t, err, models.ErrNotFound)
}

func TestSelectAndGetInterfaces(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	f.factory.EXPECT().Open(gomock.Any()).Return(snmp.NewMockSession(f.ctrl))
	f.configs.EXPECT().SaveDevices(gomock.Any(), gomock.Any()).Return(nil).Times(3)

	in := validInput("sw1")
	in.SelectedInterfaces = []models.InterfaceSelection{{Name: "legacy0"}}

	_, err := f.svc.CreateDevice(ctx, in)
	require.NoError(t, err)

	got, err := f.svc.GetInterfaces("sw1")
	require.NoError(t, err)
	assert.Equal(t, []models.InterfaceSelection{{Index: 0, Name: "legacy0"}}, got)

	selection := []models.InterfaceSelection{{Index: 1, Name: "eth0"}, {Index: 2, Name: "eth1"}}

	dev, err := f.svc.SelectInterfaces(ctx, "sw1", selection)
	require.NoError(t, err)
	assert.Equal(t, selection, dev.SelectedInterfaces)

	got, err = f.svc.GetInterfaces("sw1")
	require.NoError(t, err)
	assert.Equal(t, selection, got)

	dev, err = f.svc.SelectInterfaces(ctx, "sw1", nil)
	require.NoError(t, err)
	assert.NotNil(t, dev.SelectedInterfaces)
	assert.Empty(t, dev.SelectedInterfaces)

	_, err = f.svc.SelectInterfaces(ctx, "nope", selection)
	require.ErrorIs(t, err, models.ErrNotFound)

	_, err = f.svc.GetInterfaces("nope")
	require.ErrorIs(t, err, models.ErrNotFound)
}

func ifDescr(index, name string) gosnmp.SnmpPDU {
	return gosnmp.SnmpPDU{Name: "." + snmp.OIDIfDescr + "." + index, Type: gosnmp.OctetString, Value: []byte(name)}
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

func TestDiscoverInterfaces(t *testing.T) {
	f := newFixture(t, &Config{Discovery: DiscoveryConfig{Timeout: models.Duration(2 * time.Second)}})
	ctx := context.Background()

	_, err := f.svc.DiscoverInterfaces(ctx, "", "public")
	require.ErrorIs(t, err, models.ErrValidation)

	_, err = f.svc.DiscoverInterfaces(ctx, "192.0.2.1", " ")
	require.ErrorIs(t, err, models.ErrValidation)

	sess := snmp.NewMockSession(f.ctrl)
	f.factory.EXPECT().Open(snmp.SessionConfig{
		Host:           "192.0.2.1",
		Community:      "public",
		Timeout:        2 * time.Second,
		Retries:        0,
		MaxRepetitions: 30,
	}).Return(sess)
	sess.EXPECT().BulkWalk(snmp.OIDIfDescr, gomock.Any()).DoAndReturn(walkOf(
		ifDescr("1", "lo"),
		ifDescr("2", "eth0"),
	))
	sess.EXPECT().Close().Return(nil)

	got, err := f.svc.DiscoverInterfaces(ctx, "192.0.2.1", "public")
	require.NoError(t, err)
	assert.Equal(t, []models.Interface{{Index: 1, Name: "lo"}, {Index: 2, Name: "eth0"}}, got)
}

func TestMigrateLegacySelections(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	devices := []*models.Device{
		{
			ID: "legacy", Name: "Legacy", Host: "192.0.2.1", Community: "public", Enabled: true,
			SelectedInterfaces: []models.InterfaceSelection{{Name: "eth0"}, {Name: "gone"}, {Index: 9, Name: "eth9"}},
		},
		{
			ID: "disabled", Name: "Disabled", Host: "192.0.2.2", Community: "public",
			SelectedInterfaces: []models.InterfaceSelection{{Name: "eth0"}},
		},
		{
			ID: "done", Name: "Done", Host: "192.0.2.3", Community: "public", Enabled: true,
			SelectedInterfaces: []models.InterfaceSelection{{Index: 1, Name: "eth0"}},
		},
	}

	f.configs.EXPECT().LoadDevices(gomock.Any()).Return(devices, nil)
	f.configs.EXPECT().LoadSettings(gomock.Any()).Return(models.DefaultSettings(), nil)
	require.NoError(t, f.svc.Load(ctx))

	sess := snmp.NewMockSession(f.ctrl)
	f.factory.EXPECT().Open(snmp.SessionConfig{
		Host:           "192.0.2.1",
		Community:      "public",
		Timeout:        5 * time.Second,
		Retries:        2,
		MaxRepetitions: 30,
	}).Return(sess)
	sess.EXPECT().BulkWalk(snmp.OIDIfDescr, gomock.Any()).DoAndReturn(walkOf(
		ifDescr("3", "eth0"),
		ifDescr("9", "eth9"),
	))
	sess.EXPECT().Close().Return(nil)

	var saved []*models.Device

	f.configs.EXPECT().SaveDevices(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, d []*models.Device) error {
			saved = d

			return nil
		})

	results := f.svc.MigrateLegacySelections(ctx)
	require.Len(t, results, 3)

	assert.Equal(t, snmp.MigrationMigrated, results[0].Status)
	assert.Equal(t, []string{"gone"}, results[0].Missing)
	assert.Equal(t, snmp.MigrationSkippedDisabled, results[1].Status)
	assert.Equal(t, snmp.MigrationAlreadyDone, results[2].Status)

	migrated := []models.InterfaceSelection{{Index: 3, Name: "eth0"}, {Index: 9, Name: "eth9"}}

	got, err := f.svc.GetInterfaces("legacy")
	require.NoError(t, err)
	assert.Equal(t, migrated, got)

	require.Len(t, saved, 3)
	assert.Equal(t, migrated, saved[0].SelectedInterfaces)
}

func TestMigrateUnreachableKeepsLegacySelection(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	legacy := []models.InterfaceSelection{{Name: "eth0"}}

	f.configs.EXPECT().LoadDevices(gomock.Any()).Return([]*models.Device{{
		ID: "far", Name: "Far", Host: "192.0.2.50", Community: "public", Enabled: true,
		SelectedInterfaces: legacy,
	}}, nil)
	f.configs.EXPECT().LoadSettings(gomock.Any()).Return(models.DefaultSettings(), nil)
	require.NoError(t, f.svc.Load(ctx))

	sess := snmp.NewMockSession(f.ctrl)
	f.factory.EXPECT().Open(gomock.Any()).Return(sess)
	sess.EXPECT().BulkWalk(snmp.OIDIfDescr, gomock.Any()).Return(errRequestTimeout)
	sess.EXPECT().Close().Return(nil)

	results := f.svc.MigrateLegacySelections(ctx)
	require.Len(t, results, 1)
	assert.Equal(t, snmp.MigrationFailed, results[0].Status)

	got, err := f.svc.GetInterfaces("far")
	require.NoError(t, err)
	assert.Equal(t, legacy, got)
}

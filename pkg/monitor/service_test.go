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
	"sync"
	"testing"
	"time"

	"github.com/gosnmp/gosnmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/carverauto/smon/pkg/clock"
	"github.com/carverauto/smon/pkg/configstore"
	"github.com/carverauto/smon/pkg/logger"
	"github.com/carverauto/smon/pkg/models"
	"github.com/carverauto/smon/pkg/snmp"
	"github.com/carverauto/smon/pkg/tsdb"
)

// manualTime is a settable wall clock shared by the mock clock and the
// memory store.
type manualTime struct {
	mu  sync.Mutex
	now time.Time
}

func newManualTime() *manualTime {
	return &manualTime{now: time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)}
}

func (m *manualTime) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.now
}

func (m *manualTime) Advance(d time.Duration) {
	m.mu.Lock()
	m.now = m.now.Add(d)
	m.mu.Unlock()
}

// idleClock returns a clock whose tickers and timers never fire.
func idleClock(ctrl *gomock.Controller, mt *manualTime) *clock.MockClock {
	var never <-chan time.Time

	ticker := clock.NewMockTicker(ctrl)
	ticker.EXPECT().Chan().Return(never).AnyTimes()
	ticker.EXPECT().Stop().AnyTimes()

	timer := clock.NewMockTimer(ctrl)
	timer.EXPECT().Chan().Return(never).AnyTimes()
	timer.EXPECT().Stop().Return(true).AnyTimes()

	clk := clock.NewMockClock(ctrl)
	clk.EXPECT().Now().DoAndReturn(mt.Now).AnyTimes()
	clk.EXPECT().Ticker(gomock.Any()).Return(ticker).AnyTimes()
	clk.EXPECT().Timer(gomock.Any()).Return(timer).AnyTimes()

	return clk
}

func counterPacket(oid string, v uint) *gosnmp.SnmpPacket {
	return &gosnmp.SnmpPacket{Variables: []gosnmp.SnmpPDU{{Name: oid, Type: gosnmp.Counter32, Value: v}}}
}

type fixture struct {
	ctrl    *gomock.Controller
	time    *manualTime
	factory *snmp.MockSessionFactory
	configs *configstore.MockStore
	store   *tsdb.MemoryStore
	svc     *Service
}

func newFixture(t *testing.T, cfg *Config) *fixture {
	t.Helper()

	ctrl := gomock.NewController(t)
	mt := newManualTime()

	f := &fixture{
		ctrl:    ctrl,
		time:    mt,
		factory: snmp.NewMockSessionFactory(ctrl),
		configs: configstore.NewMockStore(ctrl),
		store:   tsdb.NewMemoryStore(mt.Now),
	}

	svc, err := NewService(cfg, Options{
		Store:       f.store,
		ConfigStore: f.configs,
		Factory:     f.factory,
		Clock:       idleClock(ctrl, mt),
		Logger:      logger.NewTestLogger(),
	})
	require.NoError(t, err)

	f.svc = svc

	return f
}

func (f *fixture) start(t *testing.T, devices []*models.Device, settings models.Settings) {
	t.Helper()

	f.configs.EXPECT().LoadDevices(gomock.Any()).Return(devices, nil)
	f.configs.EXPECT().LoadSettings(gomock.Any()).Return(settings, nil)

	require.NoError(t, f.svc.Start(context.Background()))

	t.Cleanup(func() { _ = f.svc.Stop(context.Background()) })
}

func TestNewServiceRequiresCollaborators(t *testing.T) {
	log := logger.NewTestLogger()
	store := tsdb.NewMemoryStore(nil)
	configs := configstore.NewFileStore("", "", log)

	_, err := NewService(nil, Options{ConfigStore: configs, Logger: log})
	require.ErrorIs(t, err, errStoreRequired)

	_, err = NewService(nil, Options{Store: store, Logger: log})
	require.ErrorIs(t, err, errConfigStoreRequired)

	_, err = NewService(nil, Options{Store: store, ConfigStore: configs})
	require.ErrorIs(t, err, errLoggerRequired)

	svc, err := NewService(nil, Options{Store: store, ConfigStore: configs, Logger: log})
	require.NoError(t, err)
	assert.Equal(t, models.DefaultSettings().View(), svc.GetSettings())
}

func TestPollCycleToRateSeries(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	sess := snmp.NewMockSession(f.ctrl)
	f.factory.EXPECT().Open(gomock.Any()).Return(sess)
	f.configs.EXPECT().SaveDevices(gomock.Any(), gomock.Any()).Return(nil)

	_, err := f.svc.CreateDevice(ctx, models.DeviceInput{
		ID:                 "D",
		Name:               "Edge router",
		Host:               "192.0.2.1",
		Community:          "public",
		SelectedInterfaces: []models.InterfaceSelection{{Index: 1, Name: "eth0"}},
	})
	require.NoError(t, err)

	rx := snmp.CounterOID(models.DirectionRx, 1)
	tx := snmp.CounterOID(models.DirectionTx, 1)

	sess.EXPECT().Get([]string{rx}).Return(counterPacket(rx, 1_000), nil)
	sess.EXPECT().Get([]string{tx}).Return(counterPacket(tx, 5_000), nil)
	sess.EXPECT().Get([]string{rx}).Return(counterPacket(rx, 126_000), nil)
	sess.EXPECT().Get([]string{tx}).Return(counterPacket(tx, 4_000), nil)

	summary := f.svc.PollNow(ctx)
	assert.Equal(t, 2, summary.Issued)
	assert.Equal(t, 2, summary.Written)
	assert.Equal(t, 2, f.store.Len())

	f.time.Advance(time.Second)

	var directions []string

	err = f.store.Query(ctx, *tsdb.NewPipeline(tsdb.RangeStage{Relative: "-1h"}), func(row tsdb.Row) error {
		assert.Equal(t, "D", row.Tags[tsdb.TagDevice])
		directions = append(directions, row.Tags[tsdb.TagDirection])

		return nil
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"rx", "tx"}, directions)

	f.time.Advance(9 * time.Second)
	f.svc.PollNow(ctx)
	f.time.Advance(time.Second)

	rxSeries, err := f.svc.GetTimeSeries(ctx, "D", "eth0", "rx", "-1h")
	require.NoError(t, err)
	require.Len(t, rxSeries, 1)
	// 125000 octets over 10s is 0.1 Mbit/s.
	assert.InDelta(t, 0.1, rxSeries[0].Value, 1e-9)

	txSeries, err := f.svc.GetTimeSeries(ctx, "D", "eth0", "tx", "-1h")
	require.NoError(t, err)
	require.Len(t, txSeries, 1)
	assert.GreaterOrEqual(t, txSeries[0].Value, 0.0)

	_, err = f.svc.GetTimeSeries(ctx, "missing", "all", "all", "-1h")
	require.ErrorIs(t, err, models.ErrNotFound)
}

func TestStartAndStop(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	require.ErrorIs(t, f.svc.RestartPolling(ctx), errNotStarted)

	sess := snmp.NewMockSession(f.ctrl)
	f.factory.EXPECT().Open(snmp.SessionConfig{
		Host:      "192.0.2.1",
		Community: "public",
		Timeout:   snmp.PollTimeout,
		Retries:   snmp.PollRetries,
	}).Return(sess)
	sess.EXPECT().Close().Return(nil)

	devices := []*models.Device{
		{ID: "on", Name: "On", Host: "192.0.2.1", Community: "public", Enabled: true},
		{ID: "off", Name: "Off", Host: "192.0.2.2", Community: "public"},
	}

	f.configs.EXPECT().LoadDevices(gomock.Any()).Return(devices, nil)
	f.configs.EXPECT().LoadSettings(gomock.Any()).Return(models.Settings{PollingInterval: 20_000}, nil)

	require.NoError(t, f.svc.Start(ctx))
	require.ErrorIs(t, f.svc.Start(ctx), errAlreadyStarted)

	running, interval := f.svc.Polling()
	assert.True(t, running)
	assert.Equal(t, 20*time.Second, interval)
	assert.Equal(t, models.DefaultRetentionDays, f.svc.GetSettings().DataRetention)
	assert.Len(t, f.svc.ListDevices(), 2)

	require.NoError(t, f.svc.RestartPolling(ctx))

	require.NoError(t, f.svc.Stop(ctx))
	require.NoError(t, f.svc.Stop(ctx))

	running, _ = f.svc.Polling()
	assert.False(t, running)
}

func TestRestartPollingConcurrentWithStop(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	f.start(t, nil, models.DefaultSettings())

	var wg sync.WaitGroup

	wg.Add(2)

	go func() {
		defer wg.Done()

		for i := 0; i < 50; i++ {
			err := f.svc.RestartPolling(ctx)
			if err != nil {
				assert.ErrorIs(t, err, errNotStarted)
			}
		}
	}()

	go func() {
		defer wg.Done()

		assert.NoError(t, f.svc.Stop(ctx))
	}()

	wg.Wait()

	running, _ := f.svc.Polling()
	assert.False(t, running)

	f.configs.EXPECT().LoadDevices(gomock.Any()).Return(nil, nil)
	f.configs.EXPECT().LoadSettings(gomock.Any()).Return(models.DefaultSettings(), nil)

	require.NoError(t, f.svc.Start(ctx))

	running, _ = f.svc.Polling()
	assert.True(t, running)
}

func TestUpdateSettings(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	f.start(t, nil, models.DefaultSettings())

	tooFast := int64(5)
	tooLong := 400

	_, err := f.svc.UpdateSettings(ctx, models.SettingsUpdate{PollingIntervalSeconds: &tooFast})
	require.ErrorIs(t, err, models.ErrValidation)

	overflow := int64(9_300_000_000)
	_, err = f.svc.UpdateSettings(ctx, models.SettingsUpdate{PollingIntervalSeconds: &overflow})
	require.ErrorIs(t, err, models.ErrValidation)

	valid := int64(60)
	_, err = f.svc.UpdateSettings(ctx, models.SettingsUpdate{PollingIntervalSeconds: &valid, DataRetentionDays: &tooLong})
	require.ErrorIs(t, err, models.ErrValidation)
	assert.Equal(t, models.DefaultSettings().View(), f.svc.GetSettings())

	f.configs.EXPECT().SaveSettings(gomock.Any(), models.Settings{PollingInterval: 60_000, DataRetention: 30}).Return(nil)

	view, err := f.svc.UpdateSettings(ctx, models.SettingsUpdate{PollingIntervalSeconds: &valid})
	require.NoError(t, err)
	assert.Equal(t, models.SettingsView{PollingInterval: 60_000, PollingIntervalSeconds: 60, DataRetention: 30}, view)

	_, interval := f.svc.Polling()
	assert.Equal(t, time.Minute, interval)

	// Identical update: nothing is saved or restarted.
	_, err = f.svc.UpdateSettings(ctx, models.SettingsUpdate{PollingIntervalSeconds: &valid})
	require.NoError(t, err)
}

func TestUpdateRetentionSweepsOnce(t *testing.T) {
	ctrl := gomock.NewController(t)
	mt := newManualTime()

	store := tsdb.NewMockStore(ctrl)
	configs := configstore.NewMockStore(ctrl)

	svc, err := NewService(nil, Options{
		Store:       store,
		ConfigStore: configs,
		Factory:     snmp.NewMockSessionFactory(ctrl),
		Clock:       idleClock(ctrl, mt),
		Logger:      logger.NewTestLogger(),
	})
	require.NoError(t, err)

	days := 7
	cutoff := mt.Now().Add(-7 * 24 * time.Hour).UTC()

	configs.EXPECT().SaveSettings(gomock.Any(), models.Settings{PollingInterval: 300_000, DataRetention: 7}).Return(nil)
	store.EXPECT().
		Delete(gomock.Any(), time.Unix(0, 0).UTC(), cutoff,
			tsdb.Predicate{Key: tsdb.KeyMeasurement, Value: tsdb.MeasurementSNMP}).
		Return(nil)

	ctx := context.Background()

	_, err = svc.UpdateSettings(ctx, models.SettingsUpdate{DataRetentionDays: &days})
	require.NoError(t, err)

	_, err = svc.UpdateSettings(ctx, models.SettingsUpdate{DataRetentionDays: &days})
	require.NoError(t, err)
}

func TestDiscoveryConfigOverrides(t *testing.T) {
	cfg := DiscoveryConfig{Deadline: models.Duration(2 * time.Second), MigrationTimeout: models.Duration(time.Second)}

	assert.Equal(t, snmp.DiscoveryOptions{Timeout: 3 * time.Second, Deadline: 2 * time.Second}, cfg.Interactive())
	assert.Equal(t, snmp.DiscoveryOptions{Timeout: time.Second, Retries: 2, Deadline: 6 * time.Second}, cfg.Migration())
}

func TestConfigValidate(t *testing.T) {
	hour := 24
	bad := &Config{RetentionHour: &hour}
	require.ErrorIs(t, bad.Validate(), errInvalidRetentionHour)

	neg := &Config{Discovery: DiscoveryConfig{Timeout: -1}}
	require.ErrorIs(t, neg.Validate(), errNegativeDuration)

	nats := &Config{Persistence: configstore.Config{Backend: configstore.BackendNATS}}
	require.Error(t, nats.Validate())

	ok := &Config{}
	require.NoError(t, ok.Validate())
	assert.Equal(t, 2, ok.Hour())
	assert.False(t, ok.UseTimescale())

	ok.Timescale = &tsdb.TimescaleConfig{}
	assert.False(t, ok.UseTimescale())

	ok.Timescale.Host = "timescale"
	assert.True(t, ok.UseTimescale())
}

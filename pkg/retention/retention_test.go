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

package retention

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/carverauto/smon/pkg/clock"
	"github.com/carverauto/smon/pkg/logger"
	"github.com/carverauto/smon/pkg/tsdb"
)

var errDeleteFailed = errors.New("delete failed")

func timeChan() (chan<- time.Time, <-chan time.Time) {
	ch := make(chan time.Time)

	return ch, ch
}

func fixedDays(n int) DaysFunc {
	return func() int { return n }
}

func TestNextRun(t *testing.T) {
	loc := time.FixedZone("UTC-3", -3*60*60)

	tests := []struct {
		name string
		now  time.Time
		hour int
		want time.Time
	}{
		{
			name: "later today",
			now:  time.Date(2024, 3, 10, 1, 30, 0, 0, time.UTC),
			hour: 2,
			want: time.Date(2024, 3, 10, 2, 0, 0, 0, time.UTC),
		},
		{
			name: "already passed",
			now:  time.Date(2024, 3, 10, 2, 0, 1, 0, time.UTC),
			hour: 2,
			want: time.Date(2024, 3, 11, 2, 0, 0, 0, time.UTC),
		},
		{
			name: "exactly on the hour",
			now:  time.Date(2024, 3, 10, 2, 0, 0, 0, time.UTC),
			hour: 2,
			want: time.Date(2024, 3, 11, 2, 0, 0, 0, time.UTC),
		},
		{
			name: "month rollover",
			now:  time.Date(2024, 2, 29, 23, 0, 0, 0, time.UTC),
			hour: 2,
			want: time.Date(2024, 3, 1, 2, 0, 0, 0, time.UTC),
		},
		{
			name: "local zone",
			now:  time.Date(2024, 3, 10, 0, 15, 0, 0, loc),
			hour: 2,
			want: time.Date(2024, 3, 10, 2, 0, 0, 0, loc),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.want.Equal(NextRun(tt.now, tt.hour)), "got %s", NextRun(tt.now, tt.hour))
		})
	}
}

func TestSweepNowDeletesUpToHorizon(t *testing.T) {
	ctrl := gomock.NewController(t)

	now := time.Date(2024, 3, 31, 2, 0, 0, 0, time.UTC)
	clk := clock.NewMockClock(ctrl)
	clk.EXPECT().Now().Return(now).AnyTimes()

	store := tsdb.NewMockStore(ctrl)
	store.EXPECT().Delete(gomock.Any(),
		time.Unix(0, 0).UTC(),
		time.Date(2024, 3, 1, 2, 0, 0, 0, time.UTC),
		tsdb.Predicate{Key: tsdb.KeyMeasurement, Value: tsdb.MeasurementSNMP},
	).Return(nil)

	s := New(store, fixedDays(30), clk, logger.NewTestLogger(), nil)

	require.NoError(t, s.SweepNow(context.Background()))
}

func TestSweepNowFallsBackToDefaultDays(t *testing.T) {
	ctrl := gomock.NewController(t)

	now := time.Date(2024, 3, 31, 2, 0, 0, 0, time.UTC)
	clk := clock.NewMockClock(ctrl)
	clk.EXPECT().Now().Return(now).AnyTimes()

	store := tsdb.NewMockStore(ctrl)
	store.EXPECT().Delete(gomock.Any(), gomock.Any(), now.AddDate(0, 0, -30), gomock.Any()).Return(nil)

	s := New(store, fixedDays(0), clk, logger.NewTestLogger(), nil)

	require.NoError(t, s.SweepNow(context.Background()))
}

func TestSweepNowReportsStoreError(t *testing.T) {
	ctrl := gomock.NewController(t)

	clk := clock.NewMockClock(ctrl)
	clk.EXPECT().Now().Return(time.Now()).AnyTimes()

	store := tsdb.NewMockStore(ctrl)
	store.EXPECT().Delete(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(errDeleteFailed)

	s := New(store, fixedDays(7), clk, logger.NewTestLogger(), nil)

	require.ErrorIs(t, s.SweepNow(context.Background()), errDeleteFailed)
}

func TestSweepNowOnMemoryStore(t *testing.T) {
	ctrl := gomock.NewController(t)

	now := time.Date(2024, 3, 31, 2, 0, 0, 0, time.UTC)
	clk := clock.NewMockClock(ctrl)
	clk.EXPECT().Now().Return(now).AnyTimes()

	store := tsdb.NewMemoryStore(func() time.Time { return now })
	ctx := context.Background()

	for _, age := range []time.Duration{48 * time.Hour, 10 * 24 * time.Hour, 40 * 24 * time.Hour} {
		require.NoError(t, store.Write(ctx, tsdb.Point{
			Measurement: tsdb.MeasurementSNMP,
			Field:       tsdb.FieldValue,
			Tags:        map[string]string{tsdb.TagDevice: "d"},
			Time:        now.Add(-age),
		}))
	}

	s := New(store, fixedDays(7), clk, logger.NewTestLogger(), nil)
	require.NoError(t, s.SweepNow(ctx))

	assert.Equal(t, 1, store.Len())
}

func TestScheduleDailyFiresThenRepeats(t *testing.T) {
	ctrl := gomock.NewController(t)

	now := time.Date(2024, 3, 10, 1, 30, 0, 0, time.UTC)
	clk := clock.NewMockClock(ctrl)
	timer := clock.NewMockTimer(ctrl)
	ticker := clock.NewMockTicker(ctrl)

	timerSend, timerRecv := timeChan()
	tickSend, tickRecv := timeChan()

	clk.EXPECT().Now().Return(now).AnyTimes()
	clk.EXPECT().Timer(30 * time.Minute).Return(timer)
	timer.EXPECT().Chan().Return(timerRecv).AnyTimes()
	clk.EXPECT().Ticker(24 * time.Hour).Return(ticker)
	ticker.EXPECT().Chan().Return(tickRecv).AnyTimes()
	ticker.EXPECT().Stop()

	swept := make(chan struct{}, 4)

	store := tsdb.NewMockStore(ctrl)
	store.EXPECT().Delete(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, time.Time, time.Time, ...tsdb.Predicate) error {
			swept <- struct{}{}

			return nil
		}).Times(2)

	s := New(store, fixedDays(30), clk, logger.NewTestLogger(), nil)

	require.NoError(t, s.ScheduleDaily(context.Background(), DefaultHour))

	timerSend <- now
	waitSweep(t, swept)

	tickSend <- now
	waitSweep(t, swept)

	s.Stop()
}

func TestScheduleDailyRescheduleStopsPending(t *testing.T) {
	ctrl := gomock.NewController(t)

	now := time.Date(2024, 3, 10, 5, 0, 0, 0, time.UTC)
	clk := clock.NewMockClock(ctrl)
	first := clock.NewMockTimer(ctrl)
	second := clock.NewMockTimer(ctrl)

	_, firstCh := timeChan()
	_, secondCh := timeChan()

	clk.EXPECT().Now().Return(now).AnyTimes()
	first.EXPECT().Chan().Return(firstCh).AnyTimes()
	second.EXPECT().Chan().Return(secondCh).AnyTimes()

	gomock.InOrder(
		clk.EXPECT().Timer(21*time.Hour).Return(first),
		first.EXPECT().Stop().Return(true),
		clk.EXPECT().Timer(time.Hour).Return(second),
		second.EXPECT().Stop().Return(true),
	)

	s := New(tsdb.NewMockStore(ctrl), fixedDays(30), clk, logger.NewTestLogger(), nil)

	require.NoError(t, s.ScheduleDaily(context.Background(), 2))
	require.NoError(t, s.ScheduleDaily(context.Background(), 6))

	s.Stop()
}

func TestScheduleDailyRejectsBadHour(t *testing.T) {
	ctrl := gomock.NewController(t)

	s := New(tsdb.NewMockStore(ctrl), fixedDays(30), clock.NewMockClock(ctrl), logger.NewTestLogger(), nil)

	require.ErrorIs(t, s.ScheduleDaily(context.Background(), 24), errInvalidHour)
	require.ErrorIs(t, s.ScheduleDaily(context.Background(), -1), errInvalidHour)
}

func waitSweep(t *testing.T, swept <-chan struct{}) {
	t.Helper()

	select {
	case <-swept:
	case <-time.After(2 * time.Second):
		t.Fatal("sweep did not run")
	}
}

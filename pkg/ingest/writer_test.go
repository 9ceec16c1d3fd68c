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

package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/carverauto/smon/pkg/logger"
	"github.com/carverauto/smon/pkg/models"
	"github.com/carverauto/smon/pkg/tsdb"
)

var errStoreDown = errors.New("store unavailable")

func TestWriteBuildsTaggedPoint(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := tsdb.NewMockStore(ctrl)

	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	var got tsdb.Point

	store.EXPECT().Write(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, p tsdb.Point) error {
		got = p

		return nil
	})

	w := NewWriter(store, logger.NewTestLogger(), nil)
	w.now = func() time.Time { return at }

	ok := w.Write(context.Background(), "core-1", "Core Switch", "GigabitEthernet0/1", models.DirectionTx, 4_294_967_295)
	require.True(t, ok)

	assert.Equal(t, tsdb.Point{
		Measurement: tsdb.MeasurementSNMP,
		Field:       tsdb.FieldValue,
		Tags: map[string]string{
			tsdb.TagDevice:     "core-1",
			tsdb.TagDeviceName: "Core Switch",
			tsdb.TagInterface:  "GigabitEthernet0/1",
			tsdb.TagDirection:  "tx",
		},
		Value: 4_294_967_295,
		Time:  at,
	}, got)
}

func TestWriteDropsOnStoreError(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := tsdb.NewMockStore(ctrl)

	store.EXPECT().Write(gomock.Any(), gomock.Any()).Return(errStoreDown).Times(1)

	w := NewWriter(store, logger.NewTestLogger(), nil)

	assert.False(t, w.Write(context.Background(), "d", "D", "eth0", models.DirectionRx, 1))
}

func TestWriteToMemoryStore(t *testing.T) {
	store := tsdb.NewMemoryStore(nil)
	w := NewWriter(store, logger.NewTestLogger(), nil)

	require.True(t, w.Write(context.Background(), "d", "D", "eth0", models.DirectionRx, 10))
	require.True(t, w.Write(context.Background(), "d", "D", "eth0", models.DirectionTx, 20))

	assert.Equal(t, 2, store.Len())
}

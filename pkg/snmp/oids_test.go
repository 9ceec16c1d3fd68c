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
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/carverauto/smon/pkg/models"
)

func TestCounterOID(t *testing.T) {
	assert.Equal(t, "1.3.6.1.2.1.2.2.1.10.7", CounterOID(models.DirectionRx, 7))
	assert.Equal(t, "1.3.6.1.2.1.2.2.1.16.7", CounterOID(models.DirectionTx, 7))
}

func TestColumnIndex(t *testing.T) {
	tests := []struct {
		name string
		oid  string
		want int
		ok   bool
	}{
		{name: "plain", oid: "1.3.6.1.2.1.2.2.1.2.3", want: 3, ok: true},
		{name: "leading dot", oid: ".1.3.6.1.2.1.2.2.1.2.12", want: 12, ok: true},
		{name: "sibling column", oid: "1.3.6.1.2.1.2.2.1.20.3"},
		{name: "deeper instance", oid: "1.3.6.1.2.1.2.2.1.2.3.1"},
		{name: "column itself", oid: "1.3.6.1.2.1.2.2.1.2"},
		{name: "non numeric", oid: "1.3.6.1.2.1.2.2.1.2.x"},
		{name: "zero index", oid: "1.3.6.1.2.1.2.2.1.2.0"},
		{name: "other table", oid: "1.3.6.1.2.1.31.1.1.1.1.3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := columnIndex(tt.oid, OIDIfDescr)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMatchesOIDPrefix(t *testing.T) {
	assert.True(t, matchesOIDPrefix(".1.3.6.1.2.1.2.2.1.2.1", "1.3.6.1.2.1.2.2.1.2"))
	assert.True(t, matchesOIDPrefix("1.3.6.1.2.1.2.2.1.2", "1.3.6.1.2.1.2.2.1.2"))
	assert.False(t, matchesOIDPrefix("1.3.6.1.2.1.2.2.1.21.1", "1.3.6.1.2.1.2.2.1.2"))
}

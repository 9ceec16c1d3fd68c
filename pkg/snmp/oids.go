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

// Package snmp owns the SNMP transport: per-device sessions, interface
// discovery over ifDescr and ifIndex resolution for legacy selections.
package snmp

import (
	"strconv"
	"strings"

	"github.com/carverauto/smon/pkg/models"
)

const (
	// OIDIfDescr is the ifTable name column walked during discovery.
	OIDIfDescr = "1.3.6.1.2.1.2.2.1.2"
	// OIDIfInOctets is the received-octets counter column.
	OIDIfInOctets = "1.3.6.1.2.1.2.2.1.10"
	// OIDIfOutOctets is the transmitted-octets counter column.
	OIDIfOutOctets = "1.3.6.1.2.1.2.2.1.16"
)

// CounterOID returns the instance OID for the given direction and ifIndex.
func CounterOID(dir models.Direction, ifIndex int) string {
	column := OIDIfInOctets
	if dir == models.DirectionTx {
		column = OIDIfOutOctets
	}

	return column + "." + strconv.Itoa(ifIndex)
}

// matchesOIDPrefix reports whether fullOID sits under prefixOID on a
// component boundary (1.3.6.1.2.1.2.2.1.20 is not under 1.3.6.1.2.1.2.2.1.2).
func matchesOIDPrefix(fullOID, prefixOID string) bool {
	fullOID = strings.TrimPrefix(fullOID, ".")
	prefixOID = strings.TrimPrefix(prefixOID, ".")

	if !strings.HasPrefix(fullOID, prefixOID) {
		return false
	}

	if len(fullOID) > len(prefixOID) && fullOID[len(prefixOID)] != '.' {
		return false
	}

	return true
}

// columnIndex extracts n from <column>.<n>. Deeper instance paths and
// sibling columns are rejected.
func columnIndex(oid, column string) (int, bool) {
	oid = strings.TrimPrefix(oid, ".")
	column = strings.TrimPrefix(column, ".")

	if !matchesOIDPrefix(oid, column) || len(oid) <= len(column)+1 {
		return 0, false
	}

	rest := oid[len(column)+1:]
	if strings.Contains(rest, ".") {
		return 0, false
	}

	idx, err := strconv.Atoi(rest)
	if err != nil || idx <= 0 {
		return 0, false
	}

	return idx, true
}

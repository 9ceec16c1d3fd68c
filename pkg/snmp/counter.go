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
	"errors"
	"fmt"

	"github.com/gosnmp/gosnmp"
)

var (
	errSNMPStatus    = errors.New("snmp error status")
	errVarbind       = errors.New("snmp varbind error")
	errNotCounter    = errors.New("value is not a counter")
	errEmptyResponse = errors.New("empty snmp response")
)

// ReadCounter fetches a single Counter32/Counter64 instance.
func ReadCounter(sess Session, oid string) (uint64, error) {
	packet, err := sess.Get([]string{oid})
	if err != nil {
		return 0, err
	}

	if packet == nil || len(packet.Variables) == 0 {
		return 0, fmt.Errorf("%w: %s", errEmptyResponse, oid)
	}

	if packet.Error != gosnmp.NoError {
		return 0, fmt.Errorf("%w: %s: %s", errSNMPStatus, oid, packet.Error)
	}

	return counterValue(packet.Variables[0])
}

func counterValue(pdu gosnmp.SnmpPDU) (uint64, error) {
	if isVarbindError(pdu) {
		return 0, fmt.Errorf("%w: %s: %s", errVarbind, pdu.Name, pdu.Type)
	}

	switch pdu.Type {
	case gosnmp.Counter32, gosnmp.Counter64:
		return gosnmp.ToBigInt(pdu.Value).Uint64(), nil
	default:
		return 0, fmt.Errorf("%w: %s has type %s", errNotCounter, pdu.Name, pdu.Type)
	}
}

func isVarbindError(pdu gosnmp.SnmpPDU) bool {
	switch pdu.Type {
	case gosnmp.NoSuchObject, gosnmp.NoSuchInstance, gosnmp.EndOfMibView:
		return true
	default:
		return false
	}
}

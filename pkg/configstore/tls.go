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

package configstore

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
)

var (
	errTLSFilesIncomplete = errors.New("nats tls: ca_file, cert_file and key_file must be provided together")
	errCAParsingFailed    = errors.New("failed to parse CA certificate")
)

// TLSConfig holds the mTLS material for the NATS connection.
type TLSConfig struct {
	CAFile     string `json:"ca_file"`
	CertFile   string `json:"cert_file"`
	KeyFile    string `json:"key_file"`
	ServerName string `json:"server_name,omitempty"`
}

func (t *TLSConfig) enabled() bool {
	return t != nil && (t.CAFile != "" || t.CertFile != "" || t.KeyFile != "")
}

func (t *TLSConfig) validate() error {
	if !t.enabled() {
		return nil
	}

	if t.CAFile == "" || t.CertFile == "" || t.KeyFile == "" {
		return errTLSFilesIncomplete
	}

	return nil
}

// build loads the client certificate and CA bundle.
func (t *TLSConfig) build() (*tls.Config, error) {
	if err := t.validate(); err != nil {
		return nil, err
	}

	cert, err := tls.LoadX509KeyPair(t.CertFile, t.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load client certificate: %w", err)
	}

	caCert, err := os.ReadFile(t.CAFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA certificate: %w", err)
	}

	caPool := x509.NewCertPool()
	if !caPool.AppendCertsFromPEM(caCert) {
		return nil, errCAParsingFailed
	}

	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		RootCAs:      caPool,
		ServerName:   t.ServerName,
		MinVersion:   tls.VersionTLS13,
	}, nil
}

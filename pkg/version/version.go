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

// Package version reports the build identity of the smon binary.
package version

// Set with -ldflags "-X github.com/carverauto/smon/pkg/version.version=...".
//
//nolint:gochecknoglobals // ldflags injection
var (
	version   = "dev"
	buildTime = "undefined"
	gitHash   = "undefined"
)

// GetVersion returns the release version.
func GetVersion() string {
	return version
}

// GetFullVersion returns the version with build time and commit.
func GetFullVersion() string {
	return version + " (built " + buildTime + ", commit " + gitHash + ")"
}

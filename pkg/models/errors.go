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

package models

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks bad input to a CRUD or settings operation.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound is returned for an unknown device id.
	ErrNotFound = errors.New("device not found")
	// ErrDeviceExists is a validation failure for a duplicate device id.
	ErrDeviceExists = fmt.Errorf("%w: device already exists", ErrValidation)

	errInvalidDuration  = errors.New("invalid duration")
	errInvalidSelection = errors.New("interface selection must be a string or an object")
)

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

package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/carverauto/smon/pkg/logger"
)

var (
	// ErrDstMustBeNonNilPointer indicates that the destination must be a non-nil pointer.
	ErrDstMustBeNonNilPointer = errors.New("dst must be a non-nil pointer")
	// ErrDstMustBePointerToStruct indicates that the destination must be a pointer to a struct.
	ErrDstMustBePointerToStruct = errors.New("dst must be a pointer to a struct")
)

//nolint:gochecknoglobals // reflect type used for duration detection
var durationType = reflect.TypeOf(time.Duration(0))

// EnvConfigLoader loads configuration from environment variables.
// Nested struct fields are joined with underscores, so SMON_TIMESCALE_HOST
// maps to cfg.Timescale.Host.
type EnvConfigLoader struct {
	logger logger.Logger
	prefix string
}

// NewEnvConfigLoader creates a new environment variable config loader.
func NewEnvConfigLoader(log logger.Logger, prefix string) *EnvConfigLoader {
	return &EnvConfigLoader{
		logger: log,
		prefix: prefix,
	}
}

// Load implements ConfigLoader. A complete JSON document in <prefix>CONFIG_JSON
// wins over individual variables.
func (e *EnvConfigLoader) Load(_ context.Context, _ string, dst interface{}) error {
	if jsonConfig := os.Getenv(e.prefix + "CONFIG_JSON"); jsonConfig != "" {
		if err := json.Unmarshal([]byte(jsonConfig), dst); err != nil {
			return fmt.Errorf("failed to unmarshal CONFIG_JSON: %w", err)
		}

		e.logger.Info().Msg("Loaded configuration from CONFIG_JSON environment variable")

		return nil
	}

	v := reflect.ValueOf(dst)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return ErrDstMustBeNonNilPointer
	}

	v = v.Elem()
	if v.Kind() != reflect.Struct {
		return ErrDstMustBePointerToStruct
	}

	e.loadStruct(v, e.prefix)

	return nil
}

func (e *EnvConfigLoader) loadStruct(v reflect.Value, prefix string) {
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		if !field.CanSet() {
			continue
		}

		jsonTag := fieldType.Tag.Get("json")
		if jsonTag == "" || jsonTag == "-" {
			continue
		}

		fieldName := strings.Split(jsonTag, ",")[0]
		envName := prefix + strings.ToUpper(strings.ReplaceAll(fieldName, ".", "_"))

		if err := e.setFieldValue(field, envName); err != nil {
			e.logger.Warn().
				Str("env", envName).
				Err(err).
				Msg("Ignoring invalid environment variable")
		}
	}
}

func (e *EnvConfigLoader) setFieldValue(field reflect.Value, envName string) error {
	if field.Kind() == reflect.Ptr && field.Type().Elem().Kind() == reflect.Struct {
		if field.IsNil() {
			field.Set(reflect.New(field.Type().Elem()))
		}

		e.loadStruct(field.Elem(), envName+"_")

		return nil
	}

	if field.Kind() == reflect.Struct {
		e.loadStruct(field, envName+"_")

		return nil
	}

	envValue, ok := os.LookupEnv(envName)
	if !ok || envValue == "" {
		return nil
	}

	return setFieldByKind(field, envValue)
}

func setFieldByKind(field reflect.Value, envValue string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(envValue)
	case reflect.Bool:
		b, err := strconv.ParseBool(envValue)
		if err != nil {
			return fmt.Errorf("invalid boolean: %w", err)
		}

		field.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return setIntField(field, envValue)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, err := strconv.ParseUint(envValue, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid unsigned integer: %w", err)
		}

		field.SetUint(u)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(envValue, 64)
		if err != nil {
			return fmt.Errorf("invalid float: %w", err)
		}

		field.SetFloat(f)
	case reflect.Slice:
		if field.Type().Elem().Kind() == reflect.String {
			values := strings.Split(envValue, ",")
			slice := reflect.MakeSlice(field.Type(), len(values), len(values))

			for i, v := range values {
				slice.Index(i).SetString(strings.TrimSpace(v))
			}

			field.Set(slice)

			return nil
		}

		return json.Unmarshal([]byte(envValue), field.Addr().Interface())
	default:
		return json.Unmarshal([]byte(envValue), field.Addr().Interface())
	}

	return nil
}

// setIntField accepts Go duration strings for any integer type convertible
// to time.Duration (including models.Duration).
func setIntField(field reflect.Value, envValue string) error {
	if field.Type().ConvertibleTo(durationType) && strings.HasSuffix(field.Type().Name(), "Duration") {
		d, err := time.ParseDuration(envValue)
		if err != nil {
			return fmt.Errorf("invalid duration: %w", err)
		}

		field.SetInt(int64(d))

		return nil
	}

	i, err := strconv.ParseInt(envValue, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid integer: %w", err)
	}

	field.SetInt(i)

	return nil
}

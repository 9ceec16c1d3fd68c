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

// Package clock abstracts wall-clock time so schedulers can be driven from tests.
package clock

//go:generate mockgen -destination=mock_clock.go -package=clock github.com/carverauto/smon/pkg/clock Clock,Ticker,Timer

import "time"

// Clock abstracts time-related operations.
type Clock interface {
	Now() time.Time
	Ticker(d time.Duration) Ticker
	Timer(d time.Duration) Timer
}

// Ticker abstracts the ticker behavior.
type Ticker interface {
	Chan() <-chan time.Time
	Stop()
}

// Timer abstracts a one-shot timer.
type Timer interface {
	Chan() <-chan time.Time
	Stop() bool
}

// Real returns a Clock backed by the time package.
func Real() Clock {
	return realClock{}
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) Ticker(d time.Duration) Ticker {
	return &realTicker{t: time.NewTicker(d)}
}

func (realClock) Timer(d time.Duration) Timer {
	return &realTimer{t: time.NewTimer(d)}
}

type realTicker struct {
	t *time.Ticker
}

func (r *realTicker) Chan() <-chan time.Time {
	return r.t.C
}

func (r *realTicker) Stop() {
	r.t.Stop()
}

type realTimer struct {
	t *time.Timer
}

func (r *realTimer) Chan() <-chan time.Time {
	return r.t.C
}

func (r *realTimer) Stop() bool {
	return r.t.Stop()
}

/*
 * Copyright (c) 2019 OysterPack, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 * http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package health_test

import (
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/storebrand/healthcheck/pkg/health"
)

// fakeClock is a manually-advanced Clock for deterministic timing tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{now: start}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// newRunningRegistry returns a started Registry with a silent logger. Callers
// are responsible for calling Shutdown.
func newRunningRegistry(t *testing.T) *health.Registry {
	t.Helper()
	reg := health.NewRegistry(nil, zerolog.Nop(), health.SystemClock)
	if err := reg.StartHealthChecks(); err != nil {
		t.Fatalf("*** unexpected error starting registry: %v", err)
	}
	return reg
}

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
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/storebrand/healthcheck/pkg/health"
)

func registerOK(t *testing.T, reg *health.Registry, name string, axes ...health.Axis) {
	t.Helper()
	err := reg.RegisterCheck(health.CheckMetadata{Name: name, IntervalInSeconds: 3600}, func(spec *health.CheckSpecification) {
		spec.Check(nil, axes, func(ctx *health.CheckContext) *health.CheckResultBuilder {
			return ctx.OK("fine")
		})
	})
	if err != nil {
		t.Fatalf("*** unexpected error registering %q: %v", name, err)
	}
}

// Registering the same name twice fails with ErrDuplicate.
func TestRegisterDuplicateNameFails(t *testing.T) {
	reg := newRunningRegistry(t)
	defer reg.Shutdown()

	registerOK(t, reg, "dup", health.DegradedMinor)
	err := reg.RegisterCheck(health.CheckMetadata{Name: "dup"}, func(spec *health.CheckSpecification) {
		spec.Check(nil, []health.Axis{health.DegradedMinor}, func(ctx *health.CheckContext) *health.CheckResultBuilder {
			return ctx.OK("fine")
		})
	})
	if err != health.ErrDuplicate {
		t.Errorf("*** expected ErrDuplicate, got %v", err)
	}
}

// TriggerUpdateForHealthCheck returns ErrNoSuchCheck for an unknown name.
func TestTriggerUpdateUnknownCheck(t *testing.T) {
	reg := newRunningRegistry(t)
	defer reg.Shutdown()

	if err := reg.TriggerUpdateForHealthCheck("does-not-exist"); err != health.ErrNoSuchCheck {
		t.Errorf("*** expected ErrNoSuchCheck, got %v", err)
	}
}

// CreateReport fails with ErrNotRunning before StartHealthChecks is called.
func TestCreateReportBeforeStartFails(t *testing.T) {
	reg := health.NewRegistry(nil, zerolog.Nop(), health.SystemClock)
	_, err := reg.CreateReport(health.CreateReportRequest{})
	if err != health.ErrNotRunning {
		t.Errorf("*** expected ErrNotRunning, got %v", err)
	}
}

// Unsubscribe stops further notifications, and may be called more than once
// safely.
func TestUnsubscribeStopsNotifications(t *testing.T) {
	reg := newRunningRegistry(t)
	defer reg.Shutdown()

	var notifications int32
	sub := reg.SubscribeToStatusChanges(func(report health.HealthCheckDTO) {
		atomic.AddInt32(&notifications, 1)
	})

	registerOK(t, reg, "observed", health.DegradedMinor)
	waitForCondition(t, func() bool { return atomic.LoadInt32(&notifications) >= 1 })

	sub.Unsubscribe()
	sub.Unsubscribe() // must be a no-op, not a panic

	after := atomic.LoadInt32(&notifications)
	if err := reg.TriggerUpdateForHealthCheck("observed"); err != nil {
		t.Fatalf("*** unexpected error: %v", err)
	}
	time.Sleep(100 * time.Millisecond)
	if atomic.LoadInt32(&notifications) != after {
		t.Error("*** expected no further notifications after Unsubscribe")
	}
}

// ExecuteTransientCheck leaves no goroutine running and is not reflected in
// GetRegisteredHealthChecks.
func TestExecuteTransientCheckIsNotRegistered(t *testing.T) {
	reg := newRunningRegistry(t)
	defer reg.Shutdown()

	before := len(reg.GetRegisteredHealthChecks())
	_, err := health.ExecuteTransientCheck(health.CheckMetadata{Name: "transient"}, func(spec *health.CheckSpecification) {
		spec.Check(nil, []health.Axis{health.DegradedMinor}, func(ctx *health.CheckContext) *health.CheckResultBuilder {
			return ctx.OK("fine")
		})
	}, nil)
	if err != nil {
		t.Fatalf("*** unexpected error: %v", err)
	}
	after := len(reg.GetRegisteredHealthChecks())
	if before != after {
		t.Errorf("*** expected ExecuteTransientCheck to leave the registry untouched, before=%d after=%d", before, after)
	}
}

func waitForCondition(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("*** condition not met within deadline")
}

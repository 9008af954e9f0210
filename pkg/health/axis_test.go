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
	"testing"

	"github.com/storebrand/healthcheck/pkg/health"
)

// P5: degraded lattice expansion at declaration time.
func TestDegradedLatticeDeclaration(t *testing.T) {
	result, err := health.ExecuteTransientCheck(
		health.CheckMetadata{Name: "degraded"},
		func(spec *health.CheckSpecification) {
			spec.Check(nil, []health.Axis{health.DegradedComplete}, func(ctx *health.CheckContext) *health.CheckResultBuilder {
				return ctx.OK("fine for now")
			})
		},
		nil,
	)
	if err != nil {
		t.Fatalf("*** unexpected error: %v", err)
	}
	// an OK terminator records every declared axis as inactive, so the
	// declaration-time expansion shows up in the keys of the axis map.
	axes := result.AggregatedAxes()
	for _, a := range []health.Axis{health.DegradedComplete, health.DegradedPartial, health.DegradedMinor} {
		if _, declared := axes[a]; !declared {
			t.Errorf("*** expected %s to be declared", a)
		}
	}
	if !result.Ok {
		t.Error("*** expected an ok result")
	}
}

// P6: inconsistency sibling auto-add.
func TestInconsistencySiblingAutoAdd(t *testing.T) {
	reg := newRunningRegistry(t)
	defer reg.Shutdown()

	err := reg.RegisterCheck(health.CheckMetadata{Name: "legacy-inconsistency"}, func(spec *health.CheckSpecification) {
		spec.Check(nil, []health.Axis{health.InternalInconsistency}, func(ctx *health.CheckContext) *health.CheckResultBuilder {
			return ctx.OK("fine")
		})
	})
	if err != nil {
		t.Fatalf("*** unexpected error: %v", err)
	}

	var declared []health.Axis
	for _, c := range reg.GetRegisteredHealthChecks() {
		if c.Metadata.Name == "legacy-inconsistency" {
			declared = c.DeclaredAxes
		}
	}

	hasInconsistency, hasInternal := false, false
	for _, a := range declared {
		if a == health.Inconsistency {
			hasInconsistency = true
		}
		if a == health.InternalInconsistency {
			hasInternal = true
		}
	}
	if hasInconsistency != hasInternal {
		t.Errorf("*** INCONSISTENCY (%v) and INTERNAL_INCONSISTENCY (%v) must always be declared together", hasInconsistency, hasInternal)
	}
	if !hasInconsistency {
		t.Error("*** expected both inconsistency axes to be declared")
	}
}

// Rejecting a declared system axis.
func TestSystemAxisCannotBeDeclared(t *testing.T) {
	_, err := health.ExecuteTransientCheck(
		health.CheckMetadata{Name: "bad"},
		func(spec *health.CheckSpecification) {
			spec.Check(nil, []health.Axis{health.SysCrashed}, func(ctx *health.CheckContext) *health.CheckResultBuilder {
				return ctx.OK("fine")
			})
		},
		nil,
	)
	if err == nil {
		t.Fatal("*** expected InvalidSpecification error for a declared system axis")
	}
}

// A check step declaring zero axes is invalid.
func TestCheckStepRequiresAtLeastOneAxis(t *testing.T) {
	_, err := health.ExecuteTransientCheck(
		health.CheckMetadata{Name: "bad"},
		func(spec *health.CheckSpecification) {
			spec.Check(nil, nil, func(ctx *health.CheckContext) *health.CheckResultBuilder {
				return ctx.OK("fine")
			})
		},
		nil,
	)
	if err == nil {
		t.Fatal("*** expected InvalidSpecification error for a check step with no axes")
	}
}

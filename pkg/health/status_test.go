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
	"errors"
	"testing"
	"time"

	"github.com/storebrand/healthcheck/pkg/health"
)

func runOnce(t *testing.T, build func(spec *health.CheckSpecification)) *health.CheckResult {
	t.Helper()
	res, err := health.ExecuteTransientCheck(health.CheckMetadata{Name: "t"}, build, nil)
	if err != nil {
		t.Fatalf("*** unexpected error: %v", err)
	}
	return res
}

// P1: OK leaves every declared axis inactive; Fault activates them all.
func TestOkVersusFaultActivation(t *testing.T) {
	ok := runOnce(t, func(spec *health.CheckSpecification) {
		spec.Check(nil, []health.Axis{health.DegradedMinor}, func(ctx *health.CheckContext) *health.CheckResultBuilder {
			return ctx.OK("all good")
		})
	})
	if !ok.Ok {
		t.Error("*** expected Ok result")
	}
	for a, active := range ok.AggregatedAxes() {
		if active {
			t.Errorf("*** axis %s unexpectedly active in an OK result", a)
		}
	}

	faulted := runOnce(t, func(spec *health.CheckSpecification) {
		spec.Check(nil, []health.Axis{health.DegradedMinor}, func(ctx *health.CheckContext) *health.CheckResultBuilder {
			return ctx.Fault("broken")
		})
	})
	if faulted.Ok {
		t.Error("*** expected non-Ok result")
	}
	if !faulted.AggregatedAxes()[health.DegradedMinor] {
		t.Error("*** expected DEGRADED_MINOR to be activated")
	}
}

// TurnOffAxes can deactivate a subset of a multi-axis Fault.
func TestTurnOffAxes(t *testing.T) {
	res := runOnce(t, func(spec *health.CheckSpecification) {
		spec.Check(nil, []health.Axis{health.DegradedMinor, health.External}, func(ctx *health.CheckContext) *health.CheckResultBuilder {
			return ctx.Fault("partial").TurnOffAxes(health.External)
		})
	})
	axes := res.AggregatedAxes()
	if !axes[health.DegradedMinor] {
		t.Error("*** expected DEGRADED_MINOR to remain activated")
	}
	if axes[health.External] {
		t.Error("*** expected EXTERNAL to be turned off")
	}
}

// An unhandled panic inside a check step is captured, not propagated, and
// activates every declared axis plus SYS_CRASHED.
func TestUnhandledPanicAssumesWorst(t *testing.T) {
	res := runOnce(t, func(spec *health.CheckSpecification) {
		spec.Check(nil, []health.Axis{health.DegradedComplete}, func(ctx *health.CheckContext) *health.CheckResultBuilder {
			panic("boom")
		})
	})
	if res.Ok {
		t.Error("*** expected a crashed result to not be Ok")
	}
	if !res.Crashed {
		t.Error("*** expected Crashed to be true")
	}
	axes := res.AggregatedAxes()
	if !axes[health.DegradedComplete] || !axes[health.DegradedPartial] || !axes[health.DegradedMinor] {
		t.Error("*** expected the whole degraded lattice to be activated by assume-worst")
	}
}

// Exception records a handled error without marking the result crashed.
func TestHandledExceptionDoesNotCrash(t *testing.T) {
	res := runOnce(t, func(spec *health.CheckSpecification) {
		spec.Check(nil, []health.Axis{health.External}, func(ctx *health.CheckContext) *health.CheckResultBuilder {
			return ctx.Exception("downstream hiccup", errors.New("connection reset")).OK("recovered")
		})
	})
	if res.Crashed {
		t.Error("*** a handled Exception must not mark the result crashed")
	}
	if !res.Ok {
		t.Error("*** expected Ok since the declared axis was never activated")
	}
}

// A check whose running time exceeds its expected maximum is marked Slow and
// gains SYS_SLOW.
func TestSlowCheckMarksSysSlow(t *testing.T) {
	clock := newFakeClock(time.Now())
	md := health.CheckMetadata{Name: "slow", ExpectedMaximumRunTimeInSeconds: 1}
	res, err := health.ExecuteTransientCheck(md, func(spec *health.CheckSpecification) {
		spec.Check(nil, []health.Axis{health.DegradedMinor}, func(ctx *health.CheckContext) *health.CheckResultBuilder {
			clock.Advance(2 * time.Second)
			return ctx.OK("slow but fine")
		})
	}, clock)
	if err != nil {
		t.Fatalf("*** unexpected error: %v", err)
	}
	if !res.Slow {
		t.Error("*** expected Slow to be true")
	}
	if res.Ok {
		t.Error("*** a slow result must not be Ok")
	}
	if !res.AggregatedAxes()[health.SysSlow] {
		t.Error("*** expected SYS_SLOW to be activated")
	}
}

// IsEqual: two OK results with identical declared axes are structurally
// equal even if their Description text differs, so flapping descriptive text
// on an otherwise-unchanged OK result does not trigger a spurious publish.
func TestIsEqualIgnoresDescriptionWhenBothOk(t *testing.T) {
	a := runOnce(t, func(spec *health.CheckSpecification) {
		spec.Check(nil, []health.Axis{health.DegradedMinor}, func(ctx *health.CheckContext) *health.CheckResultBuilder {
			return ctx.OK("checked at 10:00")
		})
	})
	b := runOnce(t, func(spec *health.CheckSpecification) {
		spec.Check(nil, []health.Axis{health.DegradedMinor}, func(ctx *health.CheckContext) *health.CheckResultBuilder {
			return ctx.OK("checked at 10:05")
		})
	})
	if !health.IsEqual(a, b) {
		t.Error("*** expected two differently-worded OK results to compare equal")
	}
}

// IsEqual: a WithCompareString option stabilises change detection across a
// varying Description.
func TestIsEqualUsesCompareString(t *testing.T) {
	build := func(desc string) func(spec *health.CheckSpecification) {
		return func(spec *health.CheckSpecification) {
			spec.Check(nil, []health.Axis{health.External}, func(ctx *health.CheckContext) *health.CheckResultBuilder {
				return ctx.Fault(desc, health.WithCompareString("same-root-cause"))
			})
		}
	}
	a := runOnce(t, build("timed out at 10:00:01"))
	b := runOnce(t, build("timed out at 10:00:02"))
	if !health.IsEqual(a, b) {
		t.Error("*** expected results sharing a compare string to compare equal despite differing descriptions")
	}
}

// IsEqual: differing affected-entity sets make otherwise-identical faults
// unequal, regardless of set order.
func TestIsEqualComparesEntitiesOrderInsensitively(t *testing.T) {
	build := func(entities ...health.EntityRef) func(spec *health.CheckSpecification) {
		return func(spec *health.CheckSpecification) {
			spec.Check(nil, []health.Axis{health.External}, func(ctx *health.CheckContext) *health.CheckResultBuilder {
				return ctx.Fault("broken", health.WithEntities(entities...))
			})
		}
	}
	a := runOnce(t, build(health.EntityRef{Type: "order", ID: "1"}, health.EntityRef{Type: "order", ID: "2"}))
	b := runOnce(t, build(health.EntityRef{Type: "order", ID: "2"}, health.EntityRef{Type: "order", ID: "1"}))
	c := runOnce(t, build(health.EntityRef{Type: "order", ID: "3"}))

	if !health.IsEqual(a, b) {
		t.Error("*** expected identical entity sets in different order to compare equal")
	}
	if health.IsEqual(a, c) {
		t.Error("*** expected different entity sets to compare unequal")
	}
}

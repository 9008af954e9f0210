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

// A CheckSpecification composes StaticText/DynamicText/Link/StructuredData
// steps alongside one or more Check steps; all contribute parts/data to the
// same CheckResult.
func TestSpecificationComposesAllStepKinds(t *testing.T) {
	res, err := health.ExecuteTransientCheck(
		health.CheckMetadata{Name: "composed"},
		func(spec *health.CheckSpecification) {
			spec.StaticText("static line").
				DynamicText(func(ctx *health.SharedContext) string {
					return "dynamic line"
				}).
				Link("dashboard", "https://example.invalid/dashboard").
				StructuredData(func(ctx *health.SharedContext) string {
					return `{"queueDepth":3}`
				}).
				Check(nil, []health.Axis{health.DegradedMinor}, func(ctx *health.CheckContext) *health.CheckResultBuilder {
					return ctx.OK("queue depth nominal")
				})
		},
		nil,
	)
	if err != nil {
		t.Fatalf("*** unexpected error: %v", err)
	}
	if res.StructuredData != `{"queueDepth":3}` {
		t.Errorf("*** expected structured data to survive, got %q", res.StructuredData)
	}
	if len(res.Parts) != 4 {
		t.Errorf("*** expected 4 parts (static, dynamic, link, check), got %d", len(res.Parts))
	}
}

// DynamicText can read a value an earlier Check step stashed in the shared
// context.
func TestSharedContextPassesDataBetweenSteps(t *testing.T) {
	res, err := health.ExecuteTransientCheck(
		health.CheckMetadata{Name: "shared"},
		func(spec *health.CheckSpecification) {
			spec.Check(nil, []health.Axis{health.DegradedMinor}, func(ctx *health.CheckContext) *health.CheckResultBuilder {
				ctx.Put("computed", "42")
				return ctx.OK("computed value stashed")
			}).DynamicText(func(ctx *health.SharedContext) string {
				v, _ := ctx.Get("computed")
				s, _ := v.(string)
				return "computed=" + s
			})
		},
		nil,
	)
	if err != nil {
		t.Fatalf("*** unexpected error: %v", err)
	}
	found := false
	for _, p := range res.Parts {
		if info, ok := p.(health.InfoPart); ok && info.Text == "computed=42" {
			found = true
		}
	}
	if !found {
		t.Error("*** expected the dynamic text step to observe the value stashed by the check step")
	}
}

// Recommitting a specification replaces the prior one entirely.
func TestRecommitReplacesSteps(t *testing.T) {
	instance := health.NewCheckInstance(health.CheckMetadata{Name: "recommit"}, nil)

	spec1 := instance.NewSpecification()
	spec1.Check(nil, []health.Axis{health.DegradedMinor}, func(ctx *health.CheckContext) *health.CheckResultBuilder {
		return ctx.Fault("first version")
	})
	if err := spec1.Commit(); err != nil {
		t.Fatalf("*** unexpected error: %v", err)
	}
	first := instance.Execute()
	if first.Ok {
		t.Error("*** expected the first committed specification to fault")
	}

	spec2 := instance.NewSpecification()
	spec2.Check(nil, []health.Axis{health.DegradedMinor}, func(ctx *health.CheckContext) *health.CheckResultBuilder {
		return ctx.OK("second version")
	})
	if err := spec2.Commit(); err != nil {
		t.Fatalf("*** unexpected error: %v", err)
	}
	second := instance.Execute()
	if !second.Ok {
		t.Error("*** expected the recommitted specification to replace the first entirely")
	}
}

// DeclaredAxes reflects the union of every Check step's axes, expanded.
func TestDeclaredAxesUnionsAcrossSteps(t *testing.T) {
	instance := health.NewCheckInstance(health.CheckMetadata{Name: "union"}, nil)
	spec := instance.NewSpecification()
	spec.Check(nil, []health.Axis{health.External}, func(ctx *health.CheckContext) *health.CheckResultBuilder {
		return ctx.OK("a")
	})
	spec.Check(nil, []health.Axis{health.DegradedComplete}, func(ctx *health.CheckContext) *health.CheckResultBuilder {
		return ctx.OK("b")
	})
	if err := spec.Commit(); err != nil {
		t.Fatalf("*** unexpected error: %v", err)
	}

	declared := instance.DeclaredAxes()
	want := map[health.Axis]bool{
		health.External:        true,
		health.DegradedComplete: true,
		health.DegradedPartial:  true,
		health.DegradedMinor:    true,
	}
	got := make(map[health.Axis]bool, len(declared))
	for _, a := range declared {
		got[a] = true
	}
	for a := range want {
		if !got[a] {
			t.Errorf("*** expected declared axes to include %s", a)
		}
	}
}

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

package health

import (
	"fmt"
	"sync"

	"github.com/storebrand/healthcheck/pkg/ulids"
)

// newTraceID generates the per-execution trace identifier attached to every
// CheckResult, so a single run can be correlated across the result cache, the
// published DTO, and any log line the runner emits about it.
var newTraceID = ulids.MonotonicULIDGenerator()

// CheckInstance holds a committed CheckSpecification plus its metadata and
// clock, and knows how to execute that specification producing a CheckResult.
// A specification may be recommitted at any time; Execute always runs
// against the most recently committed steps.
type CheckInstance struct {
	metadata CheckMetadata
	clock    Clock

	mu            sync.Mutex
	committed     []step
	declaredAxes  axisSet
}

// NewCheckInstance constructs an instance with an empty (uncommitted)
// specification. Callers build the specification via NewSpecification and
// call Commit before the first Execute.
func NewCheckInstance(metadata CheckMetadata, clock Clock) *CheckInstance {
	if clock == nil {
		clock = SystemClock
	}
	return &CheckInstance{metadata: metadata.normalized(), clock: clock}
}

// NewSpecification returns a fresh builder for this instance's specification.
func (ci *CheckInstance) NewSpecification() *CheckSpecification {
	return newCheckSpecification(ci)
}

func (ci *CheckInstance) commit(steps []step, declared axisSet) {
	ci.mu.Lock()
	defer ci.mu.Unlock()
	ci.committed = steps
	ci.declaredAxes = declared
}

// DeclaredAxes returns the axes the currently committed specification may
// ever activate.
func (ci *CheckInstance) DeclaredAxes() []Axis {
	ci.mu.Lock()
	defer ci.mu.Unlock()
	return ci.declaredAxes.slice()
}

// Metadata returns the instance's (normalized) metadata.
func (ci *CheckInstance) Metadata() CheckMetadata {
	return ci.metadata
}

// Execute runs every committed step in order and returns a well-formed
// CheckResult. It never propagates a panic to the caller: an unhandled
// failure inside a step is captured as a WithThrowablePart plus a synthetic
// part activating every declared axis (the engine can no longer attest to
// the check's own state, so it assumes the worst).
func (ci *CheckInstance) Execute() *CheckResult {
	ci.mu.Lock()
	steps := ci.committed
	declared := ci.declaredAxes
	ci.mu.Unlock()

	started := ci.clock.Now()
	ctx := newSharedContext()

	var parts []StatusPart
	func() {
		defer func() {
			if r := recover(); r != nil {
				err := panicToError(r)
				parts = append(parts, WithThrowablePart{
					Description: "health check step panicked",
					Err:         err,
					Unhandled:   true,
				})
				axisMap := make(map[Axis]bool, len(declared))
				for a := range declared {
					axisMap[a] = true
				}
				parts = append(parts, WithAxesPart{
					Description: "assuming worst: check could not attest to its own state",
					AxisMap:     expandAxisSet(axisMap),
				})
			}
		}()
		for _, st := range steps {
			parts = append(parts, st.run(ctx)...)
		}
	}()

	structuredData, hasStructuredData := ctx.Get(structuredDataKey)
	var sd string
	if hasStructuredData {
		sd, _ = structuredData.(string)
	}

	completed := ci.clock.Now()
	result := newCheckResult(ci.metadata, parts, sd, hasStructuredData, started, completed)
	result.TraceID = newTraceID().String()
	return result
}

func panicToError(r interface{}) error {
	if err, isErr := r.(error); isErr {
		return err
	}
	return fmt.Errorf("%v", r)
}

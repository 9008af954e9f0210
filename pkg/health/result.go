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
	"time"

	"github.com/rs/zerolog"
)

// CheckResult is the immutable output of one CheckInstance.Execute call.
type CheckResult struct {
	Metadata CheckMetadata
	// TraceID identifies this particular execution (a monotonic ULID),
	// correlating the cached result, its published DTO, and any log line
	// the runner emits about it.
	TraceID           string
	Parts             []StatusPart
	StructuredData    string
	hasStructuredData bool

	RunningTimeInNs int64
	CheckStarted    time.Time
	CheckCompleted  time.Time

	Ok      bool
	Slow    bool
	Crashed bool
}

// StaleAfter is the instant after which a report should consider this result
// stale, surfaced only at report-generation time (see Registry.CreateReport)
// and never stored on the result itself.
func (r *CheckResult) StaleAfter() time.Time {
	window := 3 * (r.Metadata.interval() + r.Metadata.expectedMaximumRunTime())
	return r.CheckCompleted.Add(window)
}

// AggregatedAxes unions the axis-activation maps of every part: an axis is
// activated if any part activates it.
func (r *CheckResult) AggregatedAxes() map[Axis]bool {
	out := make(map[Axis]bool)
	for _, p := range r.Parts {
		for a, active := range p.axes() {
			if active {
				out[a] = true
			} else if _, exists := out[a]; !exists {
				out[a] = false
			}
		}
	}
	return out
}

// DeclaredAxes returns the axes the check's committed specification may ever
// activate, independent of this particular result.
func (r *CheckResult) DeclaredAxes(declared []Axis) []Axis {
	return declared
}

// MarshalZerologObject renders a short structured event dict for the
// not-ok-result log line the CheckRunner emits, following the teacher's
// event-dict idiom (see pkg/fxapp/events.go / pkg/eventlog).
func (r *CheckResult) MarshalZerologObject(e *zerolog.Event) {
	e.Str("check", r.Metadata.Name)
	e.Str("traceId", r.TraceID)
	e.Bool("ok", r.Ok)
	e.Bool("slow", r.Slow)
	e.Bool("crashed", r.Crashed)
	e.Int64("runningTimeNs", r.RunningTimeInNs)
	axes := zerolog.Arr()
	for a, active := range r.AggregatedAxes() {
		if active {
			axes.Str(string(a))
		}
	}
	e.Array("activatedAxes", axes)
}

func newCheckResult(metadata CheckMetadata, parts []StatusPart, structuredData string, hasStructuredData bool, started, completed time.Time) *CheckResult {
	r := &CheckResult{
		Metadata:          metadata,
		Parts:             parts,
		StructuredData:    structuredData,
		hasStructuredData: hasStructuredData,
		CheckStarted:      started,
		CheckCompleted:    completed,
		RunningTimeInNs:   completed.Sub(started).Nanoseconds(),
	}

	r.Crashed = r.hasUnhandledThrowable()

	if r.RunningTimeInNs > metadata.expectedMaximumRunTime().Nanoseconds() {
		r.Slow = true
		r.Parts = append(r.Parts, WithAxesPart{
			Description: "check exceeded its expected maximum running time",
			AxisMap:     map[Axis]bool{SysSlow: true},
		})
	}

	r.Ok = !r.Slow && !r.Crashed && r.allPartsOk()
	return r
}

func (r *CheckResult) hasUnhandledThrowable() bool {
	for _, p := range r.Parts {
		if t, isThrowable := p.(WithThrowablePart); isThrowable && t.Unhandled {
			return true
		}
	}
	return false
}

func (r *CheckResult) allPartsOk() bool {
	for _, p := range r.Parts {
		if !p.ok() {
			return false
		}
	}
	return true
}

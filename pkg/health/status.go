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

	pkgerrors "github.com/pkg/errors"
)

// Responsible identifies the team that should be first to investigate a
// failing check. The four predefined identifiers are provided as constants;
// application code may also use any other string value.
type Responsible string

// Predefined responsible teams.
const (
	Developers Responsible = "DEVELOPERS"
	Operations Responsible = "OPERATIONS"
	BackOffice Responsible = "BACK_OFFICE"
	FrontOffice Responsible = "FRONT_OFFICE"
)

func (r Responsible) String() string {
	return string(r)
}

// Teams is a small convenience for building a []Responsible literal inline,
// e.g. health.Teams(health.Operations, "payments-team").
func Teams(teams ...Responsible) []Responsible {
	return teams
}

// EntityRef identifies an entity affected by a fault, e.g. {"order", "4711"}.
// Two refs are equal iff both fields match; affected-entity sets are compared
// order-insensitively.
type EntityRef struct {
	Type string
	ID   string
}

func entityRefSetEqual(a, b []EntityRef) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[EntityRef]int, len(a))
	for _, e := range a {
		set[e]++
	}
	for _, e := range b {
		set[e]--
	}
	for _, n := range set {
		if n != 0 {
			return false
		}
	}
	return true
}

// StatusPart is one element of a CheckResult's output. It is a closed sum
// type; every variant type below implements StatusPart, and only this package
// may add new variants.
type StatusPart interface {
	// ok reports whether this part, on its own, represents a healthy state.
	ok() bool
	// axes returns the axis-activation map this part contributes to a
	// CheckResult's aggregation. Parts with no axes (Info, Link) return nil.
	axes() map[Axis]bool
	isEqual(other StatusPart) bool
}

// InfoPart is a pure informational text line: no axes, always ok.
type InfoPart struct {
	Text string
}

func (InfoPart) ok() bool                { return true }
func (InfoPart) axes() map[Axis]bool     { return nil }
func (p InfoPart) isEqual(o StatusPart) bool {
	op, isInfo := o.(InfoPart)
	return isInfo && op.Text == p.Text
}

// LinkPart is a navigational link included in a report for convenience.
type LinkPart struct {
	DisplayText string
	URL         string
}

func (LinkPart) ok() bool            { return true }
func (LinkPart) axes() map[Axis]bool { return nil }
func (p LinkPart) isEqual(o StatusPart) bool {
	op, isLink := o.(LinkPart)
	return isLink && op.DisplayText == p.DisplayText && op.URL == p.URL
}

// WithAxesPart is the principal status variant: it declares the axes the
// check step may trigger and records, via AxisMap, which of those axes are
// actually activated in this result.
type WithAxesPart struct {
	ResponsibleTeams    []Responsible
	Description         string
	AxisMap             map[Axis]bool
	AffectedEntities    []EntityRef
	StaticCompareString string
	hasEntities          bool
	hasCompareString     bool
}

func (p WithAxesPart) ok() bool {
	for _, activated := range p.AxisMap {
		if activated {
			return false
		}
	}
	return true
}

func (p WithAxesPart) axes() map[Axis]bool {
	return p.AxisMap
}

func (p WithAxesPart) isEqual(o StatusPart) bool {
	op, isWithAxes := o.(WithAxesPart)
	if !isWithAxes {
		return false
	}
	if !responsibleListEqual(p.ResponsibleTeams, op.ResponsibleTeams) {
		return false
	}
	if p.ok() && op.ok() {
		return axisMapKeysEqual(p.AxisMap, op.AxisMap)
	}
	if !axisMapEqual(p.AxisMap, op.AxisMap) {
		return false
	}
	switch {
	case p.hasEntities && op.hasEntities:
		return entityRefSetEqual(p.AffectedEntities, op.AffectedEntities)
	case p.hasCompareString && op.hasCompareString:
		return p.StaticCompareString == op.StaticCompareString
	case !p.hasEntities && !p.hasCompareString && !op.hasEntities && !op.hasCompareString:
		return p.Description == op.Description
	default:
		return false
	}
}

func responsibleListEqual(a, b []Responsible) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func axisMapEqual(a, b map[Axis]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}

func axisMapKeysEqual(a, b map[Axis]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}

// WithThrowablePart records a caught error. If Unhandled is true, the part
// always activates SysCrashed.
type WithThrowablePart struct {
	Description string
	Err         error
	Unhandled   bool
}

func (p WithThrowablePart) ok() bool {
	return !p.Unhandled
}

func (p WithThrowablePart) axes() map[Axis]bool {
	if !p.Unhandled {
		return nil
	}
	return map[Axis]bool{SysCrashed: true}
}

func (p WithThrowablePart) isEqual(o StatusPart) bool {
	op, isThrowable := o.(WithThrowablePart)
	if !isThrowable {
		return false
	}
	if p.Unhandled != op.Unhandled || p.Description != op.Description {
		return false
	}
	return throwableEqual(p.Err, op.Err)
}

// throwableEqual compares two errors the way the original Java runtime
// compared Throwables for change detection: same type, same message, same
// stack-trace text. A stack-trace hash would survive process restarts better,
// but bit-for-bit fidelity with the ported behaviour is preferred here (see
// the open question in SPEC_FULL.md).
func throwableEqual(a, b error) bool {
	if a == nil || b == nil {
		return a == b
	}
	return fmt.Sprintf("%T", a) == fmt.Sprintf("%T", b) &&
		a.Error() == b.Error() &&
		stackTrace(a) == stackTrace(b)
}

func stackTrace(err error) string {
	type stackTracer interface {
		StackTrace() pkgerrors.StackTrace
	}
	if st, ok := err.(stackTracer); ok {
		return fmt.Sprintf("%+v", st.StackTrace())
	}
	return ""
}

// IsEqual implements the structural-equality rule used to decide whether the
// registry publishes a change to observers: the set of responsible teams
// (pairwise, by index, per WithAxesPart), the aggregated axis map, and the
// ordered WithAxesPart/WithThrowablePart sequences must all match.
func IsEqual(a, b *CheckResult) bool {
	if a == nil || b == nil {
		return a == b
	}
	if !axisMapEqual(a.AggregatedAxes(), b.AggregatedAxes()) {
		return false
	}
	aAxesParts, aThrowParts := splitParts(a.Parts)
	bAxesParts, bThrowParts := splitParts(b.Parts)
	if len(aAxesParts) != len(bAxesParts) || len(aThrowParts) != len(bThrowParts) {
		return false
	}
	for i := range aAxesParts {
		if !aAxesParts[i].isEqual(bAxesParts[i]) {
			return false
		}
	}
	for i := range aThrowParts {
		if !aThrowParts[i].isEqual(bThrowParts[i]) {
			return false
		}
	}
	return true
}

func splitParts(parts []StatusPart) (withAxes []StatusPart, withThrowable []StatusPart) {
	for _, p := range parts {
		switch p.(type) {
		case WithAxesPart:
			withAxes = append(withAxes, p)
		case WithThrowablePart:
			withThrowable = append(withThrowable, p)
		}
	}
	return
}

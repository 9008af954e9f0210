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

// Axis is a named operational dimension a health check may trigger, such as
// readiness or degradation. A check declares the axes it may ever trigger at
// registration time, then activates a subset of them on each run.
type Axis string

// Declarable axes. These may be named by a check's CheckSpecification.
const (
	ManualInterventionRequired Axis = "MANUAL_INTERVENTION_REQUIRED"
	DegradedComplete           Axis = "DEGRADED_COMPLETE"
	DegradedPartial            Axis = "DEGRADED_PARTIAL"
	DegradedMinor              Axis = "DEGRADED_MINOR"
	CriticalWakePeopleUp       Axis = "CRITICAL_WAKE_PEOPLE_UP"
	Inconsistency              Axis = "INCONSISTENCY"
	// InternalInconsistency is a legacy alias for Inconsistency, kept for wire
	// compatibility. Declaring either axis declares both (see Axis.siblings).
	InternalInconsistency Axis = "INTERNAL_INCONSISTENCY"
	External              Axis = "EXTERNAL"
	AffectsCustomers      Axis = "AFFECTS_CUSTOMERS"
	ProcessError          Axis = "PROCESS_ERROR"
	NotReady              Axis = "NOT_READY"
	RequiresReboot        Axis = "REQUIRES_REBOOT"
)

// System axes. Only the engine may set these; a CheckSpecification that
// declares one fails validation with InvalidSpecification.
const (
	SysCrashed Axis = "SYS_CRASHED"
	SysSlow    Axis = "SYS_SLOW"
	SysStale   Axis = "SYS_STALE"
)

var systemAxes = map[Axis]bool{
	SysCrashed: true,
	SysSlow:    true,
	SysStale:   true,
}

// IsSystem reports whether a is reserved for engine use.
func (a Axis) IsSystem() bool {
	return systemAxes[a]
}

// siblings returns axes that must always be declared (or activated) alongside a,
// per the inconsistency-alias and degraded-lattice rules.
func (a Axis) siblings() []Axis {
	switch a {
	case Inconsistency:
		return []Axis{InternalInconsistency}
	case InternalInconsistency:
		return []Axis{Inconsistency}
	case DegradedComplete:
		return []Axis{DegradedPartial, DegradedMinor}
	case DegradedPartial:
		return []Axis{DegradedMinor}
	default:
		return nil
	}
}

// expandAxisSet returns axes with every sibling implied by the invariants in
// §3 added transitively. Used both when a CheckSpecification declares its
// axes and when a status part activates them.
func expandAxisSet(axes map[Axis]bool) map[Axis]bool {
	out := make(map[Axis]bool, len(axes))
	for a, v := range axes {
		out[a] = out[a] || v
	}
	changed := true
	for changed {
		changed = false
		for a, v := range out {
			if !v {
				continue
			}
			for _, sib := range a.siblings() {
				if !out[sib] {
					out[sib] = true
					changed = true
				}
			}
		}
	}
	return out
}

// axisSet is a small set helper used for declared-axes bookkeeping; slice
// returns its members in no particular order.
type axisSet map[Axis]bool

func newAxisSet(axes ...Axis) axisSet {
	s := make(axisSet, len(axes))
	for _, a := range axes {
		s[a] = true
	}
	return axisSet(expandAxisSet(s))
}

func (s axisSet) union(other axisSet) axisSet {
	out := make(axisSet, len(s)+len(other))
	for a := range s {
		out[a] = true
	}
	for a := range other {
		out[a] = true
	}
	return out
}

func (s axisSet) intersects(other axisSet) bool {
	if len(other) == 0 {
		return true
	}
	for a := range other {
		if s[a] {
			return true
		}
	}
	return false
}

func (s axisSet) slice() []Axis {
	out := make([]Axis, 0, len(s))
	for a := range s {
		out = append(out, a)
	}
	return out
}

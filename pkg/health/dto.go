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
	"time"
)

// ReportDTOVersion is the current wire schema version of ReportDTO. It is
// not tied to the module's own version; changing the DTO shape is a breaking
// change independent of the module's semver.
const ReportDTOVersion = "0.3"

// ReportDTO is the top-level JSON-serialisable report produced by
// Registry.CreateReport and its probe convenience methods.
type ReportDTO struct {
	Version       string           `json:"version"`
	Service       ServiceInfoDTO   `json:"service"`
	HealthChecks  []HealthCheckDTO `json:"healthChecks"`
	Axes          AxesDTO          `json:"axes"`
	Ready         bool             `json:"ready"`
	Live          bool             `json:"live"`
	CriticalFault bool             `json:"criticalFault"`
	Synchronous   bool             `json:"synchronous"`
}

// AxesDTO pairs the axes a check (or report) may ever trigger with the ones
// it has actually triggered.
type AxesDTO struct {
	Specified []Axis `json:"specified"`
	Activated []Axis `json:"activated"`
}

// HealthCheckDTO is the per-check section of a ReportDTO.
type HealthCheckDTO struct {
	Name           string       `json:"name"`
	TraceID        string       `json:"traceId,omitempty"`
	Description    string       `json:"description,omitempty"`
	Type           string       `json:"type,omitempty"`
	OnBehalfOf     string       `json:"onBehalfOf,omitempty"`
	Axes           AxesDTO      `json:"axes"`
	Statuses       []StatusDTO  `json:"statuses"`
	StructuredData string       `json:"structuredData,omitempty"`
	RunStatus      RunStatusDTO `json:"runStatus"`
}

// RunStatusDTO carries timing and health-of-the-check-itself fields.
type RunStatusDTO struct {
	RunningTimeInNs int64     `json:"runningTimeInNs"`
	CheckStarted    time.Time `json:"checkStarted"`
	CheckCompleted  time.Time `json:"checkCompleted"`
	StaleAfter      time.Time `json:"staleAfter"`
	Crashed         bool      `json:"crashed"`
	Slow            bool      `json:"slow"`
	Stale           bool      `json:"stale"`
}

// StatusDTO is one StatusPart rendered for the wire.
type StatusDTO struct {
	Description      string              `json:"description"`
	Axes             *AxesDTO            `json:"axes,omitempty"`
	AffectedEntities []EntityRefDTO      `json:"affectedEntities,omitempty"`
	Exception        *ThrowableHolderDTO `json:"exception,omitempty"`
	Link             *LinkDTO            `json:"link,omitempty"`
	// Responsible is deprecated: use ResponsibleTeams. It carries only the
	// first team, kept for wire back-compatibility with older consumers.
	Responsible      string   `json:"responsible,omitempty"`
	ResponsibleTeams []string `json:"responsibleTeams,omitempty"`
}

// ThrowableHolderDTO renders a captured error for JSON, since errors don't
// marshal meaningfully on their own.
type ThrowableHolderDTO struct {
	ClassName  string `json:"className"`
	Message    string `json:"message"`
	StackTrace string `json:"stackTrace"`
}

// EntityRefDTO is the wire form of EntityRef.
type EntityRefDTO struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// LinkDTO is the wire form of LinkPart.
type LinkDTO struct {
	URL         string `json:"url"`
	DisplayText string `json:"displayText"`
}

// ServiceInfoDTO describes the service and host the report was generated on.
// Populated by a ServiceInfoProvider (see pkg/healthinfo for the production
// implementation).
type ServiceInfoDTO struct {
	Host            HostDTO       `json:"host"`
	Project         ProjectDTO    `json:"project"`
	CPUs            int           `json:"cpus"`
	OperatingSystem string        `json:"operatingSystem"`
	RunningUser     string        `json:"runningUser"`
	Memory          MemoryDTO     `json:"memory"`
	Load            LoadDTO       `json:"load"`
	RunningSince    time.Time     `json:"runningSince"`
	TimeNow         time.Time     `json:"timeNow"`
	Properties      []PropertyDTO `json:"properties"`
}

// HostDTO identifies the host the service is running on.
type HostDTO struct {
	Name           string `json:"name"`
	PrimaryAddress string `json:"primaryAddress"`
}

// ProjectDTO identifies the running service/project.
type ProjectDTO struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// MemoryDTO reports process/host memory figures. SystemTotal is zero and
// SystemFree is nil (omitted) when the host collaborator cannot determine
// OS-level memory (Go's
// runtime, unlike the JVM, does not expose this without an OS-specific
// library — see SPEC_FULL.md's Ambient Stack note on pkg/healthinfo).
type MemoryDTO struct {
	SystemTotal    int64  `json:"systemTotal"`
	SystemFree     *int64 `json:"systemFree,omitempty"`
	HeapMaxAllowed *int64 `json:"heapMaxAllowed,omitempty"`
	HeapAllocated  int64  `json:"heapAllocated"`
	HeapUsed       int64  `json:"heapUsed"`
}

// LoadDTO reports system/process load averages, when available.
type LoadDTO struct {
	System  *float64 `json:"system,omitempty"`
	Process *float64 `json:"process,omitempty"`
}

// PropertyDTO is one arbitrary, user-supplied service property.
type PropertyDTO struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName,omitempty"`
	Value       string `json:"value"`
}

func axesDTO(specified, activated map[Axis]bool) AxesDTO {
	return AxesDTO{
		Specified: sortedNonSystemAxes(specified),
		Activated: sortedActivatedAxes(activated),
	}
}

func sortedNonSystemAxes(axes map[Axis]bool) []Axis {
	out := make([]Axis, 0, len(axes))
	for a := range axes {
		if !a.IsSystem() {
			out = append(out, a)
		}
	}
	return sortAxes(out)
}

func sortedActivatedAxes(axes map[Axis]bool) []Axis {
	out := make([]Axis, 0, len(axes))
	for a, active := range axes {
		if active {
			out = append(out, a)
		}
	}
	return sortAxes(out)
}

func sortAxes(axes []Axis) []Axis {
	for i := 1; i < len(axes); i++ {
		for j := i; j > 0 && axes[j-1] > axes[j]; j-- {
			axes[j-1], axes[j] = axes[j], axes[j-1]
		}
	}
	return axes
}

// healthCheckResultToDTO converts a cached CheckResult into its wire form.
// Staleness (and the SYS_STALE axis) is computed here, at conversion time,
// from `now` — never stored on the CheckResult itself.
func healthCheckResultToDTO(name string, declared []Axis, result *CheckResult, now time.Time) HealthCheckDTO {
	declaredSet := make(map[Axis]bool, len(declared))
	for _, a := range declared {
		declaredSet[a] = false
	}

	activated := result.AggregatedAxes()
	staleAfter := result.StaleAfter()
	stale := now.After(staleAfter)
	if stale {
		activated[SysStale] = true
	}

	statuses := make([]StatusDTO, 0, len(result.Parts))
	for _, p := range result.Parts {
		statuses = append(statuses, statusPartToDTO(p))
	}

	dto := HealthCheckDTO{
		Name:        name,
		TraceID:     result.TraceID,
		Description: result.Metadata.Description,
		Type:        result.Metadata.Type,
		OnBehalfOf:  result.Metadata.OnBehalfOf,
		Axes:        axesDTO(declaredSet, activated),
		Statuses:    statuses,
		RunStatus: RunStatusDTO{
			RunningTimeInNs: result.RunningTimeInNs,
			CheckStarted:    result.CheckStarted,
			CheckCompleted:  result.CheckCompleted,
			StaleAfter:      staleAfter,
			Crashed:         result.Crashed,
			Slow:            result.Slow,
			Stale:           stale,
		},
	}
	if result.hasStructuredData {
		dto.StructuredData = result.StructuredData
	}
	return dto
}

func statusPartToDTO(part StatusPart) StatusDTO {
	switch p := part.(type) {
	case InfoPart:
		return StatusDTO{Description: p.Text}
	case LinkPart:
		return StatusDTO{
			Description: p.DisplayText,
			Link:        &LinkDTO{URL: p.URL, DisplayText: p.DisplayText},
		}
	case WithAxesPart:
		dto := StatusDTO{Description: p.Description}
		axesVal := axesDTO(p.AxisMap, p.AxisMap)
		dto.Axes = &axesVal
		if p.hasEntities {
			dto.AffectedEntities = make([]EntityRefDTO, 0, len(p.AffectedEntities))
			for _, e := range p.AffectedEntities {
				dto.AffectedEntities = append(dto.AffectedEntities, EntityRefDTO{Type: e.Type, ID: e.ID})
			}
		}
		if len(p.ResponsibleTeams) > 0 {
			dto.Responsible = string(p.ResponsibleTeams[0])
			dto.ResponsibleTeams = make([]string, len(p.ResponsibleTeams))
			for i, r := range p.ResponsibleTeams {
				dto.ResponsibleTeams[i] = string(r)
			}
		}
		return dto
	case WithThrowablePart:
		return StatusDTO{
			Description: p.Description,
			Exception:   throwableToDTO(p.Err),
		}
	default:
		return StatusDTO{Description: fmt.Sprintf("%v", part)}
	}
}

func throwableToDTO(err error) *ThrowableHolderDTO {
	if err == nil {
		return nil
	}
	return &ThrowableHolderDTO{
		ClassName:  fmt.Sprintf("%T", err),
		Message:    err.Error(),
		StackTrace: stackTrace(err),
	}
}

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

// CreateReportRequest parametrises Registry.CreateReport: which checks to
// include, and whether to force a fresh execution rather than use the cache.
type CreateReportRequest struct {
	// Axes, if non-empty, restricts the report to checks whose declared axis
	// set intersects it. An empty/nil slice includes every check.
	Axes []Axis
	// ExcludeChecks names checks to skip regardless of Axes/Filters.
	ExcludeChecks []string
	// Filters are user predicates over RegisteredHealthCheck; a check is
	// included only if every filter returns true for it.
	Filters []func(RegisteredHealthCheck) bool
	// ForceFreshData bypasses each runner's cache and executes synchronously
	// on the requesting goroutine.
	ForceFreshData bool
}

// ReadinessStatusRequest returns the request used by GetReadinessStatus.
func ReadinessStatusRequest() CreateReportRequest {
	return CreateReportRequest{Axes: []Axis{NotReady}}
}

// LivenessStatusRequest returns the request used by GetLivenessStatus.
func LivenessStatusRequest() CreateReportRequest {
	return CreateReportRequest{Axes: []Axis{RequiresReboot}}
}

// CriticalStatusRequest returns the request used by GetCriticalStatus.
func CriticalStatusRequest() CreateReportRequest {
	return CreateReportRequest{Axes: []Axis{CriticalWakePeopleUp}}
}

func (reg *Registry) shouldIncludeCheck(req CreateReportRequest, name string, registered RegisteredHealthCheck) bool {
	for _, filter := range req.Filters {
		if !filter(registered) {
			return false
		}
	}
	for _, excluded := range req.ExcludeChecks {
		if excluded == name {
			return false
		}
	}
	if len(req.Axes) == 0 {
		return true
	}
	declared := newAxisSet(registered.DeclaredAxes...)
	return declared.intersects(newAxisSet(req.Axes...))
}

// CreateReport assembles a ReportDTO from every registered check that
// matches req's filters. Returns ErrNotRunning unless StartHealthChecks has
// been called.
func (reg *Registry) CreateReport(req CreateReportRequest) (ReportDTO, error) {
	reg.mu.RLock()
	if reg.state != stateRunning {
		reg.mu.RUnlock()
		return ReportDTO{}, ErrNotRunning
	}
	entries := make(map[string]*runnerEntry, len(reg.runners))
	for name, e := range reg.runners {
		entries[name] = e
	}
	reg.mu.RUnlock()

	now := reg.clock.Now()
	var checks []HealthCheckDTO
	aggregated := make(map[Axis]bool)
	aggregatedSpecified := make(map[Axis]bool)

	for name, entry := range entries {
		registered := RegisteredHealthCheck{Metadata: entry.instance.Metadata(), DeclaredAxes: entry.instance.DeclaredAxes()}
		if !reg.shouldIncludeCheck(req, name, registered) {
			continue
		}
		result := entry.runner.GetStatus(req.ForceFreshData)
		dto := healthCheckResultToDTO(name, registered.DeclaredAxes, result, now)
		checks = append(checks, dto)

		for _, a := range dto.Axes.Specified {
			aggregatedSpecified[a] = false
		}
		for _, a := range dto.Axes.Activated {
			aggregated[a] = true
		}
	}

	report := ReportDTO{
		Version:      ReportDTOVersion,
		HealthChecks: checks,
		Axes:         axesDTO(aggregatedSpecified, aggregated),
		Synchronous:  req.ForceFreshData,
	}
	report.Ready = !aggregated[NotReady]
	report.Live = !aggregated[RequiresReboot]
	report.CriticalFault = aggregated[CriticalWakePeopleUp]
	if reg.serviceInfo != nil {
		report.Service = reg.serviceInfo.ServiceInfo()
	}
	return report, nil
}

// GetStartupStatus reports only checks declaring NotReady, forcing fresh
// execution, excluding any check a prior startup-probe call already found
// ready. Once a check is found ready by this probe it is never queried by
// it again (startup is a one-way gate; use GetReadinessStatus thereafter).
func (reg *Registry) GetStartupStatus() (ReportDTO, error) {
	reg.finishedStartupMu.Lock()
	exclude := make([]string, 0, len(reg.finishedStartup))
	for name := range reg.finishedStartup {
		exclude = append(exclude, name)
	}
	reg.finishedStartupMu.Unlock()

	req := CreateReportRequest{
		Axes:           []Axis{NotReady},
		ExcludeChecks:  exclude,
		ForceFreshData: true,
	}
	report, err := reg.CreateReport(req)
	if err != nil {
		return report, err
	}

	reg.finishedStartupMu.Lock()
	for _, check := range report.HealthChecks {
		if !axisActivated(check.Axes.Activated, NotReady) {
			reg.finishedStartup[check.Name] = true
		}
	}
	reg.finishedStartupMu.Unlock()

	return report, nil
}

// GetReadinessStatus reports only checks declaring NotReady.
func (reg *Registry) GetReadinessStatus() (ReportDTO, error) {
	return reg.CreateReport(ReadinessStatusRequest())
}

// GetLivenessStatus reports only checks declaring RequiresReboot.
func (reg *Registry) GetLivenessStatus() (ReportDTO, error) {
	return reg.CreateReport(LivenessStatusRequest())
}

// GetCriticalStatus reports only checks declaring CriticalWakePeopleUp.
func (reg *Registry) GetCriticalStatus() (ReportDTO, error) {
	return reg.CreateReport(CriticalStatusRequest())
}

func axisActivated(activated []Axis, target Axis) bool {
	for _, a := range activated {
		if a == target {
			return true
		}
	}
	return false
}

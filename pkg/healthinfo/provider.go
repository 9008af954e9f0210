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

// Package healthinfo supplies the "service" section attached to every
// health report: host, process, memory and project facts, gathered the way
// pkg/fxapp's app-info code gathers its own ID/ReleaseID/instance metadata,
// adapted here to the health report's ServiceInfoDTO shape.
package healthinfo

import (
	"net"
	"os"
	"os/user"
	"runtime"
	"time"

	"github.com/storebrand/healthcheck/pkg/health"
)

// Project identifies the running service/project, supplied by the caller at
// construction since the engine has no way to discover it on its own.
type Project struct {
	Name    string
	Version string
}

// Property is one arbitrary, user-supplied service property included in
// every report's service section, such as a git commit SHA or build ID.
type Property struct {
	Name        string
	DisplayName string
	Value       string
}

// Provider is the production health.ServiceInfoProvider: it gathers facts
// that don't change across the process lifetime once (hostname, primary
// outbound address, running user, CPU count) and re-samples the facts that do
// (Go runtime memory stats) on every call.
type Provider struct {
	project      Project
	properties   []Property
	hostname     string
	primaryAddr  string
	runningUser  string
	startedAt    time.Time
	propertyFunc []func() Property
}

// New constructs a Provider. additionalProperties are invoked fresh on every
// ServiceInfo call, on the report-requesting goroutine, so they should be
// cheap (e.g. reading an already-computed build-info string, not a network
// call).
func New(project Project, properties []Property, additionalProperties ...func() Property) *Provider {
	return &Provider{
		project:      project,
		properties:   properties,
		hostname:     lookupHostname(),
		primaryAddr:  lookupPrimaryAddress(),
		runningUser:  lookupRunningUser(),
		startedAt:    time.Now(),
		propertyFunc: additionalProperties,
	}
}

func lookupHostname() string {
	if h, err := os.Hostname(); err == nil {
		return h
	}
	return "unknown"
}

// lookupPrimaryAddress determines the host's outbound-facing address by
// dialing UDP against a public address; no packet is actually sent, since UDP
// "connect" only resolves a route locally.
func lookupPrimaryAddress() string {
	conn, err := net.Dial("udp", "203.0.113.1:80")
	if err != nil {
		return ""
	}
	defer conn.Close()
	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		return ""
	}
	return addr.IP.String()
}

func lookupRunningUser() string {
	u, err := user.Current()
	if err != nil {
		return "unknown"
	}
	return u.Username
}

// ServiceInfo implements health.ServiceInfoProvider.
func (p *Provider) ServiceInfo() health.ServiceInfoDTO {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	now := time.Now()
	heapAllocated := int64(mem.HeapSys)
	heapUsed := int64(mem.HeapAlloc)

	props := make([]health.PropertyDTO, 0, len(p.properties)+len(p.propertyFunc))
	for _, prop := range p.properties {
		props = append(props, health.PropertyDTO{Name: prop.Name, DisplayName: prop.DisplayName, Value: prop.Value})
	}
	for _, fn := range p.propertyFunc {
		prop := fn()
		props = append(props, health.PropertyDTO{Name: prop.Name, DisplayName: prop.DisplayName, Value: prop.Value})
	}

	return health.ServiceInfoDTO{
		Host: health.HostDTO{
			Name:           p.hostname,
			PrimaryAddress: p.primaryAddr,
		},
		Project: health.ProjectDTO{
			Name:    p.project.Name,
			Version: p.project.Version,
		},
		CPUs:            runtime.NumCPU(),
		OperatingSystem: runtime.GOOS,
		RunningUser:     p.runningUser,
		Memory: health.MemoryDTO{
			// SystemTotal is left zero and SystemFree nil: Go's runtime, unlike the
			// JVM, exposes no portable OS-level memory figures without an
			// OS-specific dependency that is not grounded anywhere in the
			// reference corpus (see DESIGN.md).
			HeapAllocated: heapAllocated,
			HeapUsed:      heapUsed,
		},
		RunningSince: p.startedAt,
		TimeNow:      now,
		Properties:   props,
	}
}

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
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// registryState is the registry's lifecycle: Initialising, Running, Stopped,
// and Shutdown, a Stopped state from which StartHealthChecks is refused.
type registryState int

const (
	stateInitialising registryState = iota
	stateRunning
	stateStopped
	stateShutdown
)

// shutdownGracePeriod bounds how long Shutdown waits for in-flight observer
// calls to drain before the publish queue is abandoned.
const shutdownGracePeriod = 800 * time.Millisecond

// observerQueueSize is generous: back-pressure on registration/execution is
// undesirable, so the publish queue would rather buffer than block runners.
const observerQueueSize = 4096

// HealthCheckObserver is notified whenever any registered check's status
// changes structurally.
type HealthCheckObserver func(report HealthCheckDTO)

// RegisteredHealthCheck is a snapshot of one registered check's metadata and
// declared axes, returned by GetRegisteredHealthChecks.
type RegisteredHealthCheck struct {
	Metadata     CheckMetadata
	DeclaredAxes []Axis
}

// Subscription is returned by SubscribeToStatusChanges. Calling Unsubscribe
// more than once is a no-op. This is a deliberate re-design: the source this
// module is modelled on has no unsubscribe surface at all.
type Subscription interface {
	Unsubscribe()
}

type subscription struct {
	registry *Registry
	observer HealthCheckObserver
	once     sync.Once
}

func (s *subscription) Unsubscribe() {
	s.once.Do(func() {
		s.registry.removeObserver(s)
	})
}

type publishedChange struct {
	name    string
	result  *CheckResult
	declared []Axis
}

// Registry is the keyed mapping of check name to CheckRunner: it owns
// registration, start/stop/shutdown lifecycle, report assembly, the
// specialised probe views, and observer fan-out.
type Registry struct {
	serviceInfo ServiceInfoProvider
	logger      zerolog.Logger
	clock       Clock

	mu      sync.RWMutex
	state   registryState
	runners map[string]*runnerEntry

	finishedStartupMu sync.Mutex
	finishedStartup   map[string]bool

	observersMu sync.Mutex
	observers   []*subscription

	publishCh chan publishedChange
	workerDone chan struct{}
}

type runnerEntry struct {
	instance *CheckInstance
	runner   *CheckRunner
}

// ServiceInfoProvider supplies the report's "service" section. It is an
// external collaborator (see SPEC_FULL.md, "Service-info collaborator");
// pkg/healthinfo provides the production implementation.
type ServiceInfoProvider interface {
	ServiceInfo() ServiceInfoDTO
}

// NewRegistry constructs a Registry in the Initialising state. clock may be
// nil, in which case the system clock is used. logger is used as given; no
// default is substituted for it.
func NewRegistry(serviceInfo ServiceInfoProvider, logger zerolog.Logger, clock Clock) *Registry {
	if clock == nil {
		clock = SystemClock
	}
	return &Registry{
		serviceInfo:     serviceInfo,
		logger:          logger,
		clock:           clock,
		runners:         make(map[string]*runnerEntry),
		finishedStartup: make(map[string]bool),
		publishCh:       make(chan publishedChange, observerQueueSize),
	}
}

// RegisterCheck builds a CheckInstance from buildFn, commits it, and
// registers it under metadata.Name. If the registry is already Running, the
// new check is started immediately. Returns ErrDuplicate if the name is
// already registered.
func (reg *Registry) RegisterCheck(metadata CheckMetadata, buildFn func(spec *CheckSpecification)) error {
	instance := NewCheckInstance(metadata, reg.clock)
	spec := instance.NewSpecification()
	buildFn(spec)
	if err := spec.Commit(); err != nil {
		return err
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()

	if _, exists := reg.runners[metadata.Name]; exists {
		return ErrDuplicate
	}

	runner := NewCheckRunner(instance, reg.logger, reg.clock, reg.publish)
	reg.runners[metadata.Name] = &runnerEntry{instance: instance, runner: runner}

	if reg.state == stateRunning {
		runner.Start()
	}
	return nil
}

// StartHealthChecks transitions the registry to Running and starts every
// registered runner. Returns ErrAlreadyShutdown if Shutdown was previously
// called.
func (reg *Registry) StartHealthChecks() error {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if reg.state == stateShutdown {
		return ErrAlreadyShutdown
	}
	if reg.state == stateRunning {
		return nil
	}

	reg.state = stateRunning
	if reg.workerDone == nil {
		reg.workerDone = make(chan struct{})
		go reg.runObserverWorker()
	}
	for _, entry := range reg.runners {
		entry.runner.Start()
	}
	return nil
}

// StopHealthChecks halts every runner but leaves registrations intact;
// StartHealthChecks may be called again unless Shutdown has been called.
func (reg *Registry) StopHealthChecks() {
	reg.mu.Lock()
	if reg.state != stateRunning {
		reg.mu.Unlock()
		return
	}
	reg.state = stateStopped
	entries := reg.snapshotEntries()
	reg.mu.Unlock()

	for _, entry := range entries {
		entry.runner.Stop()
	}
}

// Shutdown stops every runner and permanently disables StartHealthChecks.
// Observers are given shutdownGracePeriod to drain in-flight notifications.
func (reg *Registry) Shutdown() {
	reg.mu.Lock()
	if reg.state == stateShutdown {
		reg.mu.Unlock()
		return
	}
	wasRunning := reg.state == stateRunning
	reg.state = stateShutdown
	entries := reg.snapshotEntries()
	workerDone := reg.workerDone
	reg.mu.Unlock()

	for _, entry := range entries {
		entry.runner.Stop()
	}

	if wasRunning && workerDone != nil {
		close(reg.publishCh)
		select {
		case <-workerDone:
		case <-time.After(shutdownGracePeriod):
		}
	}
}

func (reg *Registry) snapshotEntries() []*runnerEntry {
	entries := make([]*runnerEntry, 0, len(reg.runners))
	for _, e := range reg.runners {
		entries = append(entries, e)
	}
	return entries
}

// TriggerUpdateForHealthCheck requests an out-of-band refresh of the named
// check. Returns ErrNoSuchCheck if no such check is registered.
func (reg *Registry) TriggerUpdateForHealthCheck(name string) error {
	reg.mu.RLock()
	entry, ok := reg.runners[name]
	reg.mu.RUnlock()
	if !ok {
		return ErrNoSuchCheck
	}
	entry.runner.RequestUpdate()
	return nil
}

// SubscribeToStatusChanges registers observer and returns a Subscription
// whose Unsubscribe removes it.
func (reg *Registry) SubscribeToStatusChanges(observer HealthCheckObserver) Subscription {
	sub := &subscription{registry: reg, observer: observer}
	reg.observersMu.Lock()
	reg.observers = append(reg.observers, sub)
	reg.observersMu.Unlock()
	return sub
}

func (reg *Registry) removeObserver(target *subscription) {
	reg.observersMu.Lock()
	defer reg.observersMu.Unlock()
	for i, s := range reg.observers {
		if s == target {
			reg.observers = append(reg.observers[:i], reg.observers[i+1:]...)
			return
		}
	}
}

// publish is the CheckRunner publish callback: it enqueues the change onto
// the registry's observer queue without blocking the runner.
func (reg *Registry) publish(name string, result *CheckResult, changed bool) {
	if !changed {
		return
	}
	reg.mu.RLock()
	entry, ok := reg.runners[name]
	state := reg.state
	reg.mu.RUnlock()
	if !ok || state == stateShutdown {
		return
	}
	change := publishedChange{name: name, result: result, declared: entry.instance.DeclaredAxes()}
	select {
	case reg.publishCh <- change:
	default:
		reg.logger.Warn().Str("check", name).Msg("health check observer queue is full; dropping notification")
	}
}

func (reg *Registry) runObserverWorker() {
	defer close(reg.workerDone)
	for change := range reg.publishCh {
		dto := healthCheckResultToDTO(change.name, change.declared, change.result, reg.clock.Now())
		reg.observersMu.Lock()
		observers := make([]*subscription, len(reg.observers))
		copy(observers, reg.observers)
		reg.observersMu.Unlock()
		for _, sub := range observers {
			reg.notifyObserver(sub, dto)
		}
	}
}

func (reg *Registry) notifyObserver(sub *subscription, dto HealthCheckDTO) {
	defer func() {
		if rec := recover(); rec != nil {
			reg.logger.Error().Interface("panic", rec).Msg("health check observer panicked")
		}
	}()
	sub.observer(dto)
}

// GetRegisteredHealthChecks returns a snapshot of every registered check's
// metadata and declared axes.
func (reg *Registry) GetRegisteredHealthChecks() []RegisteredHealthCheck {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	out := make([]RegisteredHealthCheck, 0, len(reg.runners))
	for _, entry := range reg.runners {
		out = append(out, RegisteredHealthCheck{
			Metadata:     entry.instance.Metadata(),
			DeclaredAxes: entry.instance.DeclaredAxes(),
		})
	}
	return out
}

// ExecuteTransientCheck builds and executes a specification once, off-
// registry: it is never stored, scheduled, or schedulable, and leaves no
// goroutine running after it returns. This replaces the reflection-based
// "run one check from outside its package" test helper noted in
// SPEC_FULL.md §9.
func ExecuteTransientCheck(metadata CheckMetadata, buildFn func(spec *CheckSpecification), clock Clock) (*CheckResult, error) {
	instance := NewCheckInstance(metadata, clock)
	spec := instance.NewSpecification()
	buildFn(spec)
	if err := spec.Commit(); err != nil {
		return nil, err
	}
	return instance.Execute(), nil
}

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
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/storebrand/healthcheck/pkg/eventlog"
)

// checkNotOkEvent is the event type ID used to log a not-ok result, following
// the teacher's event-dict logging idiom (see pkg/eventlog).
const checkNotOkEvent eventlog.Event = "health.check.not_ok"

// Future is a one-shot, cancellable handle to the result of a future
// execution, returned by CheckRunner.RefreshStatus.
type Future struct {
	done   chan struct{}
	result *CheckResult
	err    error
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

func (f *Future) resolve(r *CheckResult) {
	f.result = r
	close(f.done)
}

func (f *Future) reject(err error) {
	f.err = err
	close(f.done)
}

// Wait blocks until the future resolves or ctx is done, whichever comes
// first. A ctx deadline elapsing yields ErrTimeout; the underlying refresh is
// unaffected by abandoning the wait.
func (f *Future) Wait(ctx context.Context) (*CheckResult, error) {
	select {
	case <-f.done:
		return f.result, f.err
	case <-ctx.Done():
		return nil, ErrTimeout
	}
}

// CheckRunner is the per-check scheduler: a dedicated worker goroutine that
// repeatedly executes a CheckInstance, caches the latest CheckResult, and
// notifies a registry-supplied publish function when the structural status
// changes.
type CheckRunner struct {
	instance    *CheckInstance
	logger      zerolog.Logger
	notOkLogger eventlog.Logger
	clock       Clock
	publish     func(name string, result *CheckResult, changed bool)
	startedAt   time.Time

	// mu guards lifecycle flags, the pending-refresh queue, and the
	// condition variable used to wake the worker from sleep.
	mu              sync.Mutex
	cond            *sync.Cond
	shouldRun       bool
	isRunning       bool
	updateRequested bool
	pending         []*Future
	workerDone      chan struct{}

	// resultMu guards lastResult and serializes change detection with
	// publication, so observers see transitions in the order they occurred.
	resultMu   sync.Mutex
	lastResult *CheckResult

	firstResult     chan struct{}
	firstResultOnce sync.Once
}

// NewCheckRunner constructs a runner for instance. publish is invoked
// (synchronously, under the runner's result lock) whenever a structural
// change is detected; it should enqueue, not block.
func NewCheckRunner(instance *CheckInstance, logger zerolog.Logger, clock Clock, publish func(name string, result *CheckResult, changed bool)) *CheckRunner {
	if clock == nil {
		clock = SystemClock
	}
	r := &CheckRunner{
		instance:    instance,
		logger:      logger,
		notOkLogger: checkNotOkEvent.NewLogger(&logger, zerolog.WarnLevel),
		clock:       clock,
		publish:     publish,
		startedAt:   clock.Now(),
		firstResult: make(chan struct{}),
	}
	r.cond = sync.NewCond(&r.mu)
	return r
}

// Start launches the worker goroutine if it is not already running.
func (r *CheckRunner) Start() {
	r.mu.Lock()
	if r.isRunning {
		r.mu.Unlock()
		return
	}
	r.shouldRun = true
	r.isRunning = true
	r.workerDone = make(chan struct{})
	r.mu.Unlock()

	go r.run()
}

// Stop halts the worker and cancels any outstanding refresh futures with
// ErrInterrupted. It blocks until the worker goroutine has exited.
func (r *CheckRunner) Stop() {
	r.mu.Lock()
	if !r.isRunning {
		r.mu.Unlock()
		return
	}
	r.shouldRun = false
	done := r.workerDone
	r.cond.Broadcast()
	r.mu.Unlock()

	<-done

	r.mu.Lock()
	r.isRunning = false
	r.mu.Unlock()

	r.rejectPending(ErrInterrupted)
}

// RequestUpdate guarantees at least one more Execute after this call
// returns, unless the runner is stopped before that execution begins.
func (r *CheckRunner) RequestUpdate() {
	r.mu.Lock()
	r.updateRequested = true
	r.cond.Broadcast()
	r.mu.Unlock()
}

// RefreshStatus enqueues a future resolved by the next completed execution
// and wakes the worker.
func (r *CheckRunner) RefreshStatus() *Future {
	f := newFuture()
	r.mu.Lock()
	if !r.shouldRun {
		r.mu.Unlock()
		f.reject(ErrInterrupted)
		return f
	}
	r.pending = append(r.pending, f)
	r.updateRequested = true
	r.cond.Broadcast()
	r.mu.Unlock()
	return f
}

// UpdateStatusAndWait is a convenience combining RefreshStatus with a bounded
// wait governed by ctx.
func (r *CheckRunner) UpdateStatusAndWait(ctx context.Context) (*CheckResult, error) {
	return r.RefreshStatus().Wait(ctx)
}

// GetStatus returns the check's current status. Synchronous checks, and any
// call with forceFresh set, execute on the caller's goroutine. Otherwise the
// cached result is returned, or, if no result has ever completed, the caller
// waits (bounded) for the first one — see slowStartupResult.
func (r *CheckRunner) GetStatus(forceFresh bool) *CheckResult {
	if r.instance.Metadata().Sync || forceFresh {
		return r.executeAndCache()
	}

	r.resultMu.Lock()
	result := r.lastResult
	r.resultMu.Unlock()
	if result != nil {
		return result
	}

	return r.waitForFirstResult()
}

func (r *CheckRunner) executeAndCache() *CheckResult {
	res := r.instance.Execute()
	r.updateResult(res)
	return res
}

// updateResult swaps in a freshly computed result, detects whether it
// differs structurally from the prior one, and — iff changed — publishes
// while still holding the result lock, so per-runner publication order
// matches the order of state transitions.
func (r *CheckRunner) updateResult(res *CheckResult) {
	r.resultMu.Lock()
	prior := r.lastResult
	changed := prior == nil || !IsEqual(res, prior)
	r.lastResult = res
	if changed && r.publish != nil {
		r.publish(r.instance.Metadata().Name, res, changed)
	}
	r.resultMu.Unlock()

	r.firstResultOnce.Do(func() { close(r.firstResult) })
}

func (r *CheckRunner) waitForFirstResult() *CheckResult {
	timeout := r.instance.Metadata().expectedMaximumRunTime() + 2*time.Second
	select {
	case <-r.firstResult:
		r.resultMu.Lock()
		defer r.resultMu.Unlock()
		return r.lastResult
	case <-time.After(timeout):
		return r.slowStartupResult()
	}
}

// slowStartupResult is the synthetic result returned when an async check's
// first execution has not completed within expectedMaximumRunTime + 2s.
func (r *CheckRunner) slowStartupResult() *CheckResult {
	md := r.instance.Metadata()
	declared := r.instance.DeclaredAxes()
	declaredSet := newAxisSet(declared...)

	parts := []StatusPart{InfoPart{Text: "health check has not completed its first run yet"}}

	if declaredSet[NotReady] {
		parts = append(parts, WithAxesPart{
			Description: "check has not completed its first run",
			AxisMap:     map[Axis]bool{NotReady: true},
		})
	}

	assumeWorstAfter := 2 * (md.interval() + md.expectedMaximumRunTime())
	if r.clock.Now().Sub(r.startedAt) > assumeWorstAfter {
		axisMap := make(map[Axis]bool, len(declared))
		for _, a := range declared {
			axisMap[a] = true
		}
		parts = append(parts, WithAxesPart{
			Description: "assuming worst: async check has not reported in over twice its expected cycle time",
			AxisMap:     expandAxisSet(axisMap),
		})
	}

	now := r.clock.Now()
	return newCheckResult(md, parts, "", false, now, now)
}

func (r *CheckRunner) run() {
	defer close(r.workerDone)
	for {
		r.mu.Lock()
		if !r.shouldRun {
			r.mu.Unlock()
			return
		}
		r.updateRequested = false
		r.mu.Unlock()

		result := r.safeExecute()

		r.mu.Lock()
		runAgainImmediately := r.updateRequested
		running := r.shouldRun
		r.mu.Unlock()
		if !running {
			return
		}
		if runAgainImmediately {
			continue
		}

		r.sleep(r.sleepDuration(result))

		r.mu.Lock()
		running = r.shouldRun
		r.mu.Unlock()
		if !running {
			return
		}
	}
}

// safeExecute runs one worker iteration, catching any unexpected failure
// (distinct from a user-code panic inside Execute, which CheckInstance
// already converts into a well-formed result) so the worker goroutine never
// dies. Pending refresh futures are rejected when this happens.
func (r *CheckRunner) safeExecute() (result *CheckResult) {
	defer func() {
		if rec := recover(); rec != nil {
			err := panicToError(rec)
			r.logger.Error().Err(err).Str("check", r.instance.Metadata().Name).Msg("health check runner iteration failed unexpectedly")
			r.rejectPending(ErrExecutionFailure)
		}
	}()

	res := r.instance.Execute()
	r.updateResult(res)

	if !res.Ok {
		r.notOkLogger(res, "health check is not ok", r.instance.Metadata().Name)
	}

	r.resolvePending(res)
	return res
}

func (r *CheckRunner) sleepDuration(result *CheckResult) time.Duration {
	md := r.instance.Metadata()
	if result == nil || !result.Ok {
		return md.intervalWhenNotOk()
	}
	return md.interval()
}

// sleep blocks the worker until d elapses, RequestUpdate/RefreshStatus sets
// updateRequested, or Stop clears shouldRun — whichever comes first.
func (r *CheckRunner) sleep(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	timedOut := false
	timer := time.AfterFunc(d, func() {
		r.mu.Lock()
		timedOut = true
		r.cond.Broadcast()
		r.mu.Unlock()
	})
	defer timer.Stop()

	for r.shouldRun && !r.updateRequested && !timedOut {
		r.cond.Wait()
	}
}

func (r *CheckRunner) resolvePending(result *CheckResult) {
	r.mu.Lock()
	pending := r.pending
	r.pending = nil
	r.mu.Unlock()
	for _, f := range pending {
		f.resolve(result)
	}
}

func (r *CheckRunner) rejectPending(err error) {
	r.mu.Lock()
	pending := r.pending
	r.pending = nil
	r.mu.Unlock()
	for _, f := range pending {
		f.reject(err)
	}
}

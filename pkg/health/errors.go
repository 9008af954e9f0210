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

import "github.com/pkg/errors"

// package errors returned at the registry/runner boundary.
var (
	// ErrDuplicate is returned by RegisterCheck when a check with the same
	// name is already registered.
	ErrDuplicate = errors.New("health check is already registered with this name")

	// ErrNoSuchCheck is returned by operations that target a check by name
	// when no such check is registered.
	ErrNoSuchCheck = errors.New("no health check is registered with this name")

	// ErrNotRunning is returned by CreateReport (and its probe convenience
	// methods) before StartHealthChecks has been called.
	ErrNotRunning = errors.New("health check registry is not running")

	// ErrAlreadyShutdown is returned by StartHealthChecks once Shutdown has
	// been called; shutdown is permanent.
	ErrAlreadyShutdown = errors.New("health check registry has been shut down")

	// ErrExecutionFailure wraps an unexpected failure inside a runner's
	// worker iteration; it is used to reject pending refresh futures for
	// that iteration.
	ErrExecutionFailure = errors.New("health check execution failed unexpectedly")

	// ErrInterrupted is returned by UpdateStatusAndWait when the runner is
	// stopped or shut down while a refresh future is still pending.
	ErrInterrupted = errors.New("health check runner was stopped before the refresh completed")

	// ErrTimeout is returned by UpdateStatusAndWait when its context
	// deadline elapses before the refresh resolves.
	ErrTimeout = errors.New("timed out waiting for health check refresh")
)

// InvalidSpecificationError is returned by CheckSpecification.Commit when one
// or more steps violate a validation rule (see SPEC_FULL.md §4.2). Multiple
// violations are accumulated via multierr and surfaced together.
type InvalidSpecificationError struct {
	Reason error
}

func (e *InvalidSpecificationError) Error() string {
	return "invalid health check specification: " + e.Reason.Error()
}

func (e *InvalidSpecificationError) Unwrap() error {
	return e.Reason
}

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

/*
Package health implements an in-process health-reporting engine.

Application code registers checks against a Registry with CheckMetadata and a
function that builds a CheckSpecification. Each check runs on its own
CheckRunner: a dedicated worker goroutine that executes the check on an
interval (faster while not-ok), caches the latest CheckResult, and notifies
subscribed observers only when the result changes structurally.

Checks signal faults along Axes - readiness, liveness, degradation,
criticality, and a handful of others - rather than a single red/yellow/green
status. A report aggregates axis activation across every check and exposes
specialised views for startup, readiness, liveness, and critical-fault
probing.
*/
package health

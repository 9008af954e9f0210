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

import "time"

// Clock is the engine's sole source of wall-clock and monotonic time. No
// example in the reference corpus wires a third-party clock-abstraction
// library, so this is a minimal hand-rolled interface, kept deliberately
// small so tests can substitute a fake.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

// SystemClock is the production Clock, backed by time.Now.
var SystemClock Clock = systemClock{}

func (systemClock) Now() time.Time { return time.Now() }

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

// Default interval/timing values, substituted whenever a CheckMetadata field
// is left at its zero value or set to a non-positive number.
const (
	DefaultIntervalInSeconds               = 600
	DefaultIntervalWhenNotOkInSeconds      = 120
	DefaultExpectedMaximumRunTimeInSeconds = 4
)

// CheckMetadata is the immutable descriptor registered alongside a check's
// specification. Name is the registry key and must be unique.
type CheckMetadata struct {
	Name        string
	Description string
	Type        string
	OnBehalfOf  string

	// Sync, if true, makes the check always execute on the caller's
	// goroutine when its status is requested, bypassing the cache.
	Sync bool

	IntervalInSeconds               int
	IntervalWhenNotOkInSeconds      int
	ExpectedMaximumRunTimeInSeconds int
}

// WithName returns a copy of m with Name replaced, matching the source's
// "clone with a different name" convenience for deriving checks from a
// template descriptor.
func (m CheckMetadata) WithName(name string) CheckMetadata {
	m.Name = name
	return m
}

func (m CheckMetadata) normalized() CheckMetadata {
	if m.IntervalInSeconds <= 0 {
		m.IntervalInSeconds = DefaultIntervalInSeconds
	}
	if m.IntervalWhenNotOkInSeconds <= 0 {
		m.IntervalWhenNotOkInSeconds = DefaultIntervalWhenNotOkInSeconds
	}
	if m.IntervalWhenNotOkInSeconds > m.IntervalInSeconds {
		m.IntervalWhenNotOkInSeconds = m.IntervalInSeconds
	}
	if m.ExpectedMaximumRunTimeInSeconds <= 0 {
		m.ExpectedMaximumRunTimeInSeconds = DefaultExpectedMaximumRunTimeInSeconds
	}
	return m
}

func (m CheckMetadata) interval() time.Duration {
	return time.Duration(m.IntervalInSeconds) * time.Second
}

func (m CheckMetadata) intervalWhenNotOk() time.Duration {
	return time.Duration(m.IntervalWhenNotOkInSeconds) * time.Second
}

func (m CheckMetadata) expectedMaximumRunTime() time.Duration {
	return time.Duration(m.ExpectedMaximumRunTimeInSeconds) * time.Second
}

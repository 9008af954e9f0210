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

	pkgerrors "github.com/pkg/errors"
	"go.uber.org/multierr"
)

// SharedContext is a key-value map shared across every step of one execution
// of a CheckSpecification, letting an earlier step (e.g. DynamicText) hand
// data to a later one (e.g. Check).
type SharedContext struct {
	mu     sync.Mutex
	values map[string]interface{}
}

func newSharedContext() *SharedContext {
	return &SharedContext{values: make(map[string]interface{})}
}

// Put stores val under name, visible to every later step in this execution.
func (c *SharedContext) Put(name string, val interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[name] = val
}

// Get retrieves a value previously stored with Put.
func (c *SharedContext) Get(name string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.values[name]
	return v, ok
}

const structuredDataKey = "_structuredData"

// step is one entry of an (un)committed CheckSpecification.
type step interface {
	run(ctx *SharedContext) []StatusPart
	declaredAxes() axisSet
}

type staticTextStep struct{ line string }

func (s staticTextStep) run(*SharedContext) []StatusPart { return []StatusPart{InfoPart{Text: s.line}} }
func (staticTextStep) declaredAxes() axisSet              { return nil }

type dynamicTextStep struct{ fn func(*SharedContext) string }

func (s dynamicTextStep) run(ctx *SharedContext) []StatusPart {
	return []StatusPart{InfoPart{Text: s.fn(ctx)}}
}
func (dynamicTextStep) declaredAxes() axisSet { return nil }

type linkStep struct{ displayText, url string }

func (s linkStep) run(*SharedContext) []StatusPart {
	return []StatusPart{LinkPart{DisplayText: s.displayText, URL: s.url}}
}
func (linkStep) declaredAxes() axisSet { return nil }

type structuredDataStep struct{ fn func(*SharedContext) string }

func (s structuredDataStep) run(ctx *SharedContext) []StatusPart {
	ctx.Put(structuredDataKey, s.fn(ctx))
	return nil
}
func (structuredDataStep) declaredAxes() axisSet { return nil }

type checkStep struct {
	responsible []Responsible
	axes        []Axis
	fn          func(ctx *CheckContext) *CheckResultBuilder
}

func (s checkStep) declaredAxes() axisSet { return newAxisSet(s.axes...) }

func (s checkStep) run(ctx *SharedContext) []StatusPart {
	cc := &CheckContext{shared: ctx, responsible: s.responsible, declared: s.declaredAxes()}
	s.fn(cc) // terminators append to cc.parts as a side effect; return value is for fluent chaining only
	return cc.parts
}

// CheckSpecification is the builder consumed by user code to declare a
// check's steps. Steps accumulate in an uncommitted buffer; Commit validates
// and atomically swaps them into the owning CheckInstance, clearing the
// buffer.
type CheckSpecification struct {
	instance    *CheckInstance
	uncommitted []step
}

func newCheckSpecification(instance *CheckInstance) *CheckSpecification {
	return &CheckSpecification{instance: instance}
}

// StaticText appends an always-present informational line.
func (s *CheckSpecification) StaticText(line string) *CheckSpecification {
	s.uncommitted = append(s.uncommitted, staticTextStep{line})
	return s
}

// DynamicText appends a line computed from the shared context at run time.
func (s *CheckSpecification) DynamicText(fn func(ctx *SharedContext) string) *CheckSpecification {
	s.uncommitted = append(s.uncommitted, dynamicTextStep{fn})
	return s
}

// Link appends a navigational link to the result.
func (s *CheckSpecification) Link(displayText, url string) *CheckSpecification {
	s.uncommitted = append(s.uncommitted, linkStep{displayText, url})
	return s
}

// StructuredData registers the function used to compute the result's
// structured-data string. Only one may be active per specification; a later
// call overwrites an earlier one.
func (s *CheckSpecification) StructuredData(fn func(ctx *SharedContext) string) *CheckSpecification {
	s.uncommitted = append(s.uncommitted, structuredDataStep{fn})
	return s
}

// Check appends a conditional check step. axes lists every axis this step
// may ever activate; responsible lists the teams to notify if it does.
func (s *CheckSpecification) Check(responsible []Responsible, axes []Axis, fn func(ctx *CheckContext) *CheckResultBuilder) *CheckSpecification {
	s.uncommitted = append(s.uncommitted, checkStep{responsible, axes, fn})
	return s
}

// Commit validates the uncommitted steps and, if valid, atomically replaces
// the owning CheckInstance's committed specification with them. On failure
// the instance's prior committed specification (if any) is left untouched.
func (s *CheckSpecification) Commit() error {
	if err := s.validate(); err != nil {
		return &InvalidSpecificationError{Reason: err}
	}
	steps := s.uncommitted
	declared := axisSet{}
	for _, st := range steps {
		declared = declared.union(st.declaredAxes())
	}
	s.instance.commit(steps, declared)
	s.uncommitted = nil
	return nil
}

func (s *CheckSpecification) validate() error {
	var err error
	for _, st := range s.uncommitted {
		cs, isCheck := st.(checkStep)
		if !isCheck {
			continue
		}
		if len(cs.axes) == 0 {
			err = multierr.Append(err, pkgerrors.New("check step must declare at least one axis"))
		}
		for _, a := range cs.axes {
			if a.IsSystem() {
				err = multierr.Append(err, pkgerrors.Errorf("check step must not declare system axis %s", a))
			}
		}
	}
	return err
}

// CheckContext is passed to a Check step's function. Its helpers append
// additional status parts (text, links, recorded exceptions) alongside the
// part produced by the terminator (OK / Fault / FaultConditionally).
type CheckContext struct {
	shared      *SharedContext
	responsible []Responsible
	declared    axisSet
	parts       []StatusPart
}

// Text appends an informational line.
func (c *CheckContext) Text(s string) *CheckContext {
	c.parts = append(c.parts, InfoPart{Text: s})
	return c
}

// Link appends a navigational link.
func (c *CheckContext) Link(displayText, url string) *CheckContext {
	c.parts = append(c.parts, LinkPart{DisplayText: displayText, URL: url})
	return c
}

// Exception records a handled error without marking the check crashed; use
// this for errors the check body caught and decided not to propagate as a
// fault axis, but still wants visible in the report.
func (c *CheckContext) Exception(description string, err error) *CheckContext {
	c.parts = append(c.parts, WithThrowablePart{Description: description, Err: err, Unhandled: false})
	return c
}

// Put stores a value in the shared context for later steps.
func (c *CheckContext) Put(name string, val interface{}) {
	c.shared.Put(name, val)
}

// Get retrieves a value from the shared context.
func (c *CheckContext) Get(name string) (interface{}, bool) {
	return c.shared.Get(name)
}

// FaultOption customises a Fault/FaultConditionally call's affected-entity or
// static-compare-string fields, used to stabilise change detection across
// flapping descriptions.
type FaultOption func(*faultOptions)

type faultOptions struct {
	entities         []EntityRef
	compareString    string
	hasEntities      bool
	hasCompareString bool
}

// WithEntities marks the fault as affecting the given entities; affected-
// entity sets are compared order-insensitively during change detection.
func WithEntities(entities ...EntityRef) FaultOption {
	return func(o *faultOptions) {
		o.entities = entities
		o.hasEntities = true
	}
}

// WithCompareString gives the fault an explicit stable key for change
// detection, for use when the description text itself is not stable (e.g. it
// embeds a timestamp).
func WithCompareString(s string) FaultOption {
	return func(o *faultOptions) {
		o.compareString = s
		o.hasCompareString = true
	}
}

// OK terminates the step reporting no fault: every declared axis is left
// inactive.
func (c *CheckContext) OK(description string) *CheckResultBuilder {
	return c.terminate(description, false, faultOptions{})
}

// Fault terminates the step reporting a fault: every axis the step declared
// is activated (subject to the degraded-lattice cascade), unless the body
// subsequently calls TurnOffAxes on the returned builder.
func (c *CheckContext) Fault(description string, opts ...FaultOption) *CheckResultBuilder {
	var fo faultOptions
	for _, opt := range opts {
		opt(&fo)
	}
	return c.terminate(description, true, fo)
}

// FaultConditionally calls Fault if cond is true, OK otherwise.
func (c *CheckContext) FaultConditionally(cond bool, description string, opts ...FaultOption) *CheckResultBuilder {
	if cond {
		return c.Fault(description, opts...)
	}
	return c.OK(description)
}

func (c *CheckContext) terminate(description string, activate bool, fo faultOptions) *CheckResultBuilder {
	axisMap := make(map[Axis]bool, len(c.declared))
	for a := range c.declared {
		axisMap[a] = activate
	}
	if activate {
		axisMap = expandAxisSet(axisMap)
	}
	part := WithAxesPart{
		ResponsibleTeams: c.responsible,
		Description:      description,
		AxisMap:           axisMap,
	}
	if fo.hasEntities {
		part.AffectedEntities = fo.entities
		part.hasEntities = true
	}
	if fo.hasCompareString {
		part.StaticCompareString = fo.compareString
		part.hasCompareString = true
	}
	c.parts = append(c.parts, part)
	return &CheckResultBuilder{ctx: c, partIndex: len(c.parts) - 1}
}

// CheckResultBuilder is returned by a terminator for fluent chaining: the
// body may turn off axes the declared-but-not-observed invariant says were
// never actually triggered, and may attach further text/link/exception
// parts.
type CheckResultBuilder struct {
	ctx       *CheckContext
	partIndex int
}

// TurnOffAxes deactivates the given axes on this step's WithAxesPart.
// Activation is monotonic downward only: this never turns an axis on.
func (b *CheckResultBuilder) TurnOffAxes(axes ...Axis) *CheckResultBuilder {
	part := b.ctx.parts[b.partIndex].(WithAxesPart)
	for _, a := range axes {
		part.AxisMap[a] = false
	}
	b.ctx.parts[b.partIndex] = part
	return b
}

// Text appends an informational line after this step's result.
func (b *CheckResultBuilder) Text(s string) *CheckResultBuilder {
	b.ctx.Text(s)
	return b
}

// Link appends a navigational link after this step's result.
func (b *CheckResultBuilder) Link(displayText, url string) *CheckResultBuilder {
	b.ctx.Link(displayText, url)
	return b
}

// Exception records a handled error after this step's result.
func (b *CheckResultBuilder) Exception(description string, err error) *CheckResultBuilder {
	b.ctx.Exception(description, err)
	return b
}

/*
 * Copyright 2026 CloudWeGo Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package props tracks pipeline-wide IR invariants between passes. Passes
// declare how they interact with each property; the manager folds those
// interactions into the set of currently established properties and can
// simulate a whole pipeline up front to reject unsatisfiable orderings
// before any pass runs.
package props

import (
	"fmt"
	"sort"
	"strings"
)

// Property names one invariant tracked between passes.
type Property string

// Interaction describes how one pass treats one property.
type Interaction struct {
	Requires        bool
	Establishes     bool
	Preserves       bool
	RequiresFinally bool
}

// Interactions is a pass's declared effect on every property it touches.
// Properties without an entry are preserved, unless they are negative.
type Interactions map[Property]Interaction

// Validate panics when a record would destroy a property its own pass
// requires. owner names the pass for the message.
func (self Interactions) Validate(owner string) {
	for _, p := range sortedProps(self) {
		rec := self[p]
		if rec.Requires && rec.Establishes && !rec.Preserves {
			panic(fmt.Sprintf("%s: interaction for %q requires and establishes without preserving", owner, p))
		}
	}
}

// Definition declares one property known to the pipeline.
type Definition struct {
	Name     Property
	Negative bool // must not hold at the end; dropped when a pass leaves it unmentioned
	Initial  bool // established before the first pass
	Final    bool // must hold after the last pass
}

// Manager owns the property definitions and the currently established set.
type Manager struct {
	defs        map[Property]Definition
	established map[Property]bool
}

// NewManager builds a manager over the given definitions, or over
// DefaultDefinitions when none are given.
func NewManager(defs ...Definition) *Manager {
	if len(defs) == 0 {
		defs = DefaultDefinitions()
	}
	m := &Manager{defs: make(map[Property]Definition, len(defs))}
	for _, d := range defs {
		if _, ok := m.defs[d.Name]; ok {
			panic(fmt.Sprintf("property %q defined twice", d.Name))
		}
		m.defs[d.Name] = d
	}
	m.Reset()
	return m
}

// Reset restores the established set to the initial properties.
func (self *Manager) Reset() {
	self.established = make(map[Property]bool)
	for p, d := range self.defs {
		if d.Initial {
			self.established[p] = true
		}
	}
}

func (self *Manager) IsEstablished(p Property) bool { return self.established[p] }
func (self *Manager) IsNegative(p Property) bool    { return self.defs[p].Negative }

// Established returns the currently established properties sorted by name.
func (self *Manager) Established() []Property {
	return sortedSet(self.established)
}

// Apply folds one pass's interactions into the established set: mentioned
// properties survive only when preserved, unmentioned negative ones drop,
// then everything the pass establishes is added.
func (self *Manager) Apply(ia Interactions) {
	self.established = apply(self.established, ia, self.defs)
}

func apply(cur map[Property]bool, ia Interactions, defs map[Property]Definition) map[Property]bool {
	next := make(map[Property]bool, len(cur))
	for p := range cur {
		rec, ok := ia[p]
		switch {
		case !ok:
			if !defs[p].Negative {
				next[p] = true
			}
		case rec.Preserves:
			next[p] = true
		}
	}
	for p, rec := range ia {
		if rec.Establishes {
			next[p] = true
		}
	}
	return next
}

// Stage is one pipeline step for simulation: a pass name plus its declared
// interactions.
type Stage struct {
	Name         string
	Interactions Interactions
}

// VerifyError collects every violation a pipeline simulation found.
type VerifyError struct {
	Violations []string
}

func (self *VerifyError) Error() string {
	return "property verification failed:\n\t" + strings.Join(self.Violations, "\n\t")
}

// Verify simulates the pipeline over the initial set without touching the
// live established set. It reports passes whose requirements would not be
// met, final requirements left unestablished, and negative properties still
// standing at the end.
func (self *Manager) Verify(stages []Stage) error {
	sim := make(map[Property]bool)
	for p, d := range self.defs {
		if d.Initial {
			sim[p] = true
		}
	}

	bad := []string(nil)
	finally := make(map[Property][]string)
	for p, d := range self.defs {
		if d.Final {
			finally[p] = append(finally[p], "the pipeline")
		}
	}

	for _, st := range stages {
		for _, p := range sortedProps(st.Interactions) {
			rec := st.Interactions[p]
			if _, ok := self.defs[p]; !ok {
				bad = append(bad, fmt.Sprintf("pass %s references unknown property %q", st.Name, p))
				continue
			}
			if rec.Requires && !sim[p] {
				bad = append(bad, fmt.Sprintf("pass %s requires property %q, which is not established", st.Name, p))
			}
			if rec.RequiresFinally {
				finally[p] = append(finally[p], fmt.Sprintf("pass %s", st.Name))
			}
		}
		sim = apply(sim, st.Interactions, self.defs)
	}

	for _, p := range sortedKeys(finally) {
		if !sim[p] {
			bad = append(bad, fmt.Sprintf("property %q must hold at the end, required by %s", p, strings.Join(finally[p], ", ")))
		}
	}
	for _, p := range sortedSet(sim) {
		if self.defs[p].Negative {
			bad = append(bad, fmt.Sprintf("negative property %q is still established at the end", p))
		}
	}

	if len(bad) > 0 {
		return &VerifyError{Violations: bad}
	}
	return nil
}

func sortedProps(ia Interactions) []Property {
	ret := make([]Property, 0, len(ia))
	for p := range ia {
		ret = append(ret, p)
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i] < ret[j] })
	return ret
}

func sortedSet(set map[Property]bool) []Property {
	ret := make([]Property, 0, len(set))
	for p := range set {
		ret = append(ret, p)
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i] < ret[j] })
	return ret
}

func sortedKeys(m map[Property][]string) []Property {
	ret := make([]Property, 0, len(m))
	for p := range m {
		ret = append(ret, p)
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i] < ret[j] })
	return ret
}

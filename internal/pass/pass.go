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

// Package pass drives the optimization pipeline: an ordered list of passes
// over a shared store list, with per-pass configuration, declared property
// interactions verified up front, checkers between passes, and a metrics
// table later passes and the final report can read.
package pass

import (
	"fmt"

	"github.com/cloudwego/rdx/internal/conf"
	"github.com/cloudwego/rdx/internal/ir"
	"github.com/cloudwego/rdx/internal/props"
)

// Pass is one unit of pipeline work. Concrete passes are values created
// once, registered, and handed to the manager in configured order; the
// manager does not know their concrete types.
type Pass interface {
	conf.Configurable

	// Name identifies the pass in config, logs and metrics.
	Name() string

	// PropertyInteractions declares how the pass treats each pipeline
	// property it touches; untouched properties are preserved.
	PropertyInteractions() props.Interactions

	// RunPass does the work, mutating stores in place. Unrecoverable states
	// panic with a formatted message; everything else reports through
	// metrics.
	RunPass(stores []*ir.DexStore, cfg *conf.GlobalConfig, mgr *Manager)
}

// Evaluator is implemented by passes that want a look at the program before
// the pipeline begins, e.g. to count how many times they appear in the
// configured list.
type Evaluator interface {
	EvalPass(stores []*ir.DexStore, cfg *conf.GlobalConfig, mgr *Manager)
}

// Documented is implemented by passes carrying a configuration docstring.
type Documented interface {
	ConfigDoc() string
}

// Checker guards one pipeline property. The manager runs every registered
// checker after every pass; established tells the checker whether its
// property is in the established set at that point, so checkers for
// negative properties can verify exactly when theirs is absent.
type Checker interface {
	Property() props.Property
	Check(stores []*ir.DexStore, cfg *conf.GlobalConfig, mgr *Manager, established bool) error
}

// Registry is the set of known passes, looked up by name when the
// configured pass list is instantiated.
type Registry struct {
	passes map[string]Pass
	names  []string
}

func NewRegistry(passes ...Pass) *Registry {
	r := &Registry{passes: make(map[string]Pass, len(passes))}
	for _, p := range passes {
		r.Register(p)
	}
	return r
}

// Register adds a pass and validates its declared property interactions.
// Registering two passes under one name is a programming error.
func (self *Registry) Register(p Pass) {
	name := p.Name()
	if _, ok := self.passes[name]; ok {
		panic(fmt.Sprintf("pass %q registered twice", name))
	}
	p.PropertyInteractions().Validate(name)
	self.passes[name] = p
	self.names = append(self.names, name)
}

func (self *Registry) Lookup(name string) (Pass, bool) {
	p, ok := self.passes[name]
	return p, ok
}

// Names lists the registered passes in registration order.
func (self *Registry) Names() []string {
	return append([]string(nil), self.names...)
}

// Select resolves the configured pass order into pass values. A name may
// repeat; an unknown name is a configuration error.
func (self *Registry) Select(names []string) ([]Pass, error) {
	out := make([]Pass, 0, len(names))
	for _, n := range names {
		p, ok := self.passes[n]
		if !ok {
			return nil, ConfigError{Pass: n, Reason: fmt.Errorf("unknown pass")}
		}
		out = append(out, p)
	}
	return out, nil
}

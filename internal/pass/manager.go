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

package pass

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/cloudwego/rdx/internal/conf"
	"github.com/cloudwego/rdx/internal/ir"
	"github.com/cloudwego/rdx/internal/opts"
	"github.com/cloudwego/rdx/internal/props"
)

// Manager owns what the pipeline shares: the store list, the global config,
// the property state, and the metrics table. Only the driver loop is
// single-threaded; everything a pass does inside RunPass may parallelize up
// to Workers.
type Manager struct {
	stores   []*ir.DexStore
	cfg      *conf.GlobalConfig
	props    *props.Manager
	metrics  *Metrics
	res      conf.Resolver
	workers  int
	checkers []Checker
	current  string
}

func NewManager(stores []*ir.DexStore, cfg *conf.GlobalConfig) *Manager {
	if cfg == nil {
		cfg, _ = conf.ParseGlobal(nil)
	}
	return &Manager{
		stores:  stores,
		cfg:     cfg,
		props:   props.NewManager(),
		metrics: NewMetrics(),
		workers: opts.DefaultParallelism,
	}
}

func (self *Manager) Stores() []*ir.DexStore     { return self.stores }
func (self *Manager) Config() *conf.GlobalConfig { return self.cfg }
func (self *Manager) Props() *props.Manager      { return self.props }
func (self *Manager) Metrics() *Metrics          { return self.metrics }
func (self *Manager) Resolver() conf.Resolver    { return self.res }
func (self *Manager) Workers() int               { return self.workers }

// Current names the pass being run or evaluated, or "" between passes.
func (self *Manager) Current() string { return self.current }

// SetResolver injects the reference resolver pass options bind against.
func (self *Manager) SetResolver(res conf.Resolver) {
	self.res = res
}

// SetWorkers bounds the parallelism passes may use.
func (self *Manager) SetWorkers(n int) {
	if n < 1 {
		n = 1
	}
	self.workers = n
}

// RegisterChecker adds a property checker; the manager runs it after every
// pass.
func (self *Manager) RegisterChecker(c Checker) {
	self.checkers = append(self.checkers, c)
}

// IncrMetric adds v to a counter of the running pass. Safe to call from any
// worker inside the pass.
func (self *Manager) IncrMetric(counter string, v int64) {
	self.metrics.Incr(self.owner(), counter, v)
}

// SetMetric overwrites a counter of the running pass.
func (self *Manager) SetMetric(counter string, v int64) {
	self.metrics.Set(self.owner(), counter, v)
}

// Metric reads any pass's counter, so later passes can act on what earlier
// ones reported.
func (self *Manager) Metric(pass, counter string) (int64, bool) {
	return self.metrics.Get(pass, counter)
}

func (self *Manager) owner() string {
	if self.current == "" {
		panic("metric reported outside a running pass")
	}
	return self.current
}

/* a pass listed twice runs twice; the later instances report as "Name#2",
   "Name#3", so their metrics stay apart */
func displayNames(passes []Pass) []string {
	names := make([]string, len(passes))
	seen := make(map[string]int, len(passes))
	for i, p := range passes {
		n := p.Name()
		seen[n]++
		if k := seen[n]; k > 1 {
			n = fmt.Sprintf("%s#%d", n, k)
		}
		names[i] = n
	}
	return names
}

// Verify binds every pass's options and replays the declared property
// interactions without running anything, so an unsound pipeline is
// rejected before it can touch the program.
func (self *Manager) Verify(passes []Pass) error {
	parsed := make(map[Pass]bool, len(passes))
	for _, p := range passes {
		if parsed[p] {
			continue
		}
		parsed[p] = true
		if err := conf.Parse(p, p.Name(), self.cfg.Pass(p.Name()), self.res); err != nil {
			return ConfigError{Pass: p.Name(), Reason: err}
		}
	}

	names := displayNames(passes)
	stages := make([]props.Stage, len(passes))
	for i, p := range passes {
		stages[i] = props.Stage{Name: names[i], Interactions: p.PropertyInteractions()}
	}
	if err := self.props.Verify(stages); err != nil {
		return SoundnessError{Report: err}
	}
	return nil
}

// Run drives the pipeline: bind every pass's options, verify the declared
// property interactions, give evaluating passes their pre-pipeline look,
// then run the passes in order, folding interactions and consulting every
// checker after each one. The first failure stops the pipeline; metrics
// reported up to that point stay readable.
func (self *Manager) Run(passes []Pass) error {
	if err := self.Verify(passes); err != nil {
		return err
	}

	names := displayNames(passes)
	for i, p := range passes {
		if ev, ok := p.(Evaluator); ok {
			self.current = names[i]
			ev.EvalPass(self.stores, self.cfg, self)
		}
	}
	self.current = ""

	self.props.Reset()
	for i, p := range passes {
		self.current = names[i]
		log.Infof("running pass %d/%d %s", i+1, len(passes), names[i])
		start := time.Now()
		p.RunPass(self.stores, self.cfg, self)
		self.props.Apply(p.PropertyInteractions())
		if err := self.runCheckers(names[i]); err != nil {
			self.current = ""
			return err
		}
		self.logMetrics(names[i])
		log.Infof("pass %s finished in %v", names[i], time.Since(start))
	}
	self.current = ""
	return nil
}

func (self *Manager) runCheckers(after string) error {
	for _, c := range self.checkers {
		established := self.props.IsEstablished(c.Property())
		if err := c.Check(self.stores, self.cfg, self, established); err != nil {
			return InvariantError{Pass: after, Property: c.Property(), Reason: err}
		}
	}
	return nil
}

func (self *Manager) logMetrics(pass string) {
	n := 0
	self.metrics.RangePass(pass, func(counter string, v int64) {
		log.Debugf("metric %s.%s = %d", pass, counter, v)
		n++
	})
	if n > 0 {
		log.Infof("pass %s reported %d metrics", pass, n)
	}
}

// ReflectAll produces the schema tree of every registered pass in
// registration order, the ground truth for configuration documentation.
func ReflectAll(reg *Registry) ([]*conf.Schema, error) {
	names := reg.Names()
	out := make([]*conf.Schema, 0, len(names))
	for _, name := range names {
		p, _ := reg.Lookup(name)
		doc := ""
		if d, ok := p.(Documented); ok {
			doc = d.ConfigDoc()
		}
		s, err := conf.Reflect(p, name, doc)
		if err != nil {
			return nil, fmt.Errorf("reflecting %s: %w", name, err)
		}
		out = append(out, s)
	}
	return out, nil
}

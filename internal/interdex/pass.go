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

package interdex

import (
	"fmt"

	"github.com/cloudwego/rdx/internal/conf"
	"github.com/cloudwego/rdx/internal/ident"
	"github.com/cloudwego/rdx/internal/ir"
	"github.com/cloudwego/rdx/internal/pass"
	"github.com/cloudwego/rdx/internal/props"
)

// PassName is how the grouping pass appears in config, logs and metrics.
const PassName = "InterDexPass"

// ColdstartKey is the global config key holding the coldstart class listing.
const ColdstartKey = "coldstart_classes"

/* reserved-slot metrics are published under these counters so later
 * splitting passes can budget around them without a config dependency. */
const (
	MetricReservedMrefs = "reserved_mrefs"
	MetricReservedFrefs = "reserved_frefs"
	MetricReservedTrefs = "reserved_trefs"
)

type _InterDexPass struct {
	mode          string
	inferringMode string
	reservedMrefs uint
	reservedFrefs uint
	reservedTrefs uint
}

// NewPass creates the grouping pass. Every class in every store is a
// candidate; the coldstart listing comes from the global config.
func NewPass() pass.Pass {
	return &_InterDexPass{}
}

func (self *_InterDexPass) Name() string { return PassName }

func (self *_InterDexPass) ConfigDoc() string {
	return "orders candidate types into coldstart groups and reserves dex reference space"
}

func (self *_InterDexPass) BindConfig(b *conf.Binder) {
	b.BindString("mode", "full", &self.mode,
		"grouping mode: disabled, non-hot-set, non-ordered-set or full")
	b.BindString("inferring_mode", "all-instructions", &self.inferringMode,
		"class-load scan: all-instructions or hot-blocks")
	b.BindUint("reserved_mrefs", 0, &self.reservedMrefs,
		"method ref slots kept free in every dex unit")
	b.BindUint("reserved_frefs", 0, &self.reservedFrefs,
		"field ref slots kept free in every dex unit")
	b.BindUint("reserved_trefs", 0, &self.reservedTrefs,
		"type ref slots kept free in every dex unit")
	if _, err := ParseMode(self.mode); err != nil {
		b.Fail("mode", err)
	}
	if _, err := ParseInferringMode(self.inferringMode); err != nil {
		b.Fail("inferring_mode", err)
	}
}

func (self *_InterDexPass) PropertyInteractions() props.Interactions {
	return props.Interactions{
		props.DexLimitsObeyed: {Establishes: true},
	}
}

func (self *_InterDexPass) RunPass(stores []*ir.DexStore, cfg *conf.GlobalConfig, mgr *pass.Manager) {
	mode, _ := ParseMode(self.mode)
	inferring, _ := ParseInferringMode(self.inferringMode)

	var listing []string
	if cfg != nil {
		listing, _ = cfg.GetStringList(ColdstartKey)
	}
	cold := ParseColdstart(listing)

	var (
		scope      []*ir.DexClass
		candidates []*ident.Type
	)
	for _, st := range stores {
		for _, cls := range st.Classes() {
			scope = append(scope, cls)
			candidates = append(candidates, cls.Type())
		}
	}

	g := BuildGrouping(candidates, scope, cold, Options{
		Mode:      mode,
		Inferring: inferring,
		Workers:   mgr.Workers(),
	})

	mgr.SetMetric("groups", int64(g.NumGroups()))
	for i := 0; i < g.NumGroups(); i++ {
		mgr.SetMetric(fmt.Sprintf("group_%02d_types", i), int64(len(g.Group(i))))
	}
	mgr.SetMetric(MetricReservedMrefs, int64(self.reservedMrefs))
	mgr.SetMetric(MetricReservedFrefs, int64(self.reservedFrefs))
	mgr.SetMetric(MetricReservedTrefs, int64(self.reservedTrefs))
}

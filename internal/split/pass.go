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

package split

import (
	"sort"
	"sync"

	"github.com/cloudwego/rdx/internal/conf"
	"github.com/cloudwego/rdx/internal/ident"
	"github.com/cloudwego/rdx/internal/interdex"
	"github.com/cloudwego/rdx/internal/ir"
	"github.com/cloudwego/rdx/internal/pass"
	"github.com/cloudwego/rdx/internal/props"
)

const PassName = "MethodSplitPass"

type _MethodSplitPass struct {
	ctx              *ident.Context
	splitBlockSize   uint
	minOriginalSize  uint
	minHotSize       uint
	minHotColdSize   uint
	minColdSize      uint
	maxLiveIn        uint
	maxOverheadRatio float64
	maxIteration     uint
	infix            string
	drawDir          string
}

/* the pass needs an identifier context of its own because derived names and
 * protos do not exist anywhere in the input. */
func NewPass(ctx *ident.Context) pass.Pass {
	return &_MethodSplitPass{ctx: ctx}
}

func (self *_MethodSplitPass) Name() string { return PassName }

func (self *_MethodSplitPass) ConfigDoc() string {
	return "extracts cold regions of oversized methods into private static siblings"
}

func (self *_MethodSplitPass) BindConfig(b *conf.Binder) {
	b.BindUint("split_block_size", 4, &self.splitBlockSize, "pre-split blocks above this many code units")
	b.BindUint("min_original_size", 10, &self.minOriginalSize, "methods below this many code units stay whole")
	b.BindUint("min_hot_split_size", 8, &self.minHotSize, "minimum closure size when the entry block is hot")
	b.BindUint("min_hot_cold_split_size", 8, &self.minHotColdSize, "minimum closure size when only jump sources are hot")
	b.BindUint("min_cold_split_size", 4, &self.minColdSize, "minimum closure size on fully cold paths")
	b.BindUint("max_live_in", 8, &self.maxLiveIn, "closures needing more parameters than this stay inline")
	b.BindFloat("max_overhead_ratio", 0.5, &self.maxOverheadRatio, "call overhead allowed relative to the method size")
	b.BindUint("max_iteration", 50, &self.maxIteration, "reduction rounds per method")
	b.BindString("name_infix", "", &self.infix, "extra token between kind and index in derived names")
	b.BindString("debug_draw_dir", "", &self.drawDir, "dump each method's reduced graph as svg into this directory")
}

func (self *_MethodSplitPass) PropertyInteractions() props.Interactions {
	return props.Interactions{
		props.DexLimitsObeyed: {Preserves: true},
	}
}

func (self *_MethodSplitPass) RunPass(stores []*ir.DexStore, cfg *conf.GlobalConfig, mgr *pass.Manager) {
	sp := NewSplitter(self.ctx, Config{
		SplitBlockSize:   int(self.splitBlockSize),
		MinOriginalSize:  int(self.minOriginalSize),
		MinHotSize:       int(self.minHotSize),
		MinHotColdSize:   int(self.minHotColdSize),
		MinColdSize:      int(self.minColdSize),
		MaxLiveIn:        int(self.maxLiveIn),
		MaxOverheadRatio: self.maxOverheadRatio,
		MaxIteration:     int(self.maxIteration),
		Infix:            self.infix,
		DrawDir:          self.drawDir,
	})
	mrefs, trefs := self.limits(mgr)

	var st Stats
	for _, store := range stores {
		for i := 0; i < store.NumDexen(); i++ {
			self.splitDex(sp, store.Dex(i), mrefs, trefs, &st, mgr.Workers())
		}
	}

	mgr.SetMetric("closures", st.Closures)
	mgr.SetMetric("hot", st.Hot)
	mgr.SetMetric("hot_cold", st.HotCold)
	mgr.SetMetric("cold", st.Cold)
	mgr.SetMetric("methods", st.Methods)
	mgr.SetMetric("rollbacks", st.Rollbacks)
	mgr.SetMetric("limit_aborts", st.LimitAborts)
}

/* reference space reserved by the interdex pass shrinks the per-dex budget;
 * without those metrics the full dex capacity stands. */
func (self *_MethodSplitPass) limits(mgr *pass.Manager) (int, int) {
	mrefs, trefs := ir.MaxRefsPerDex, ir.MaxRefsPerDex
	if v, ok := mgr.Metric(interdex.PassName, interdex.MetricReservedMrefs); ok {
		mrefs -= int(v)
	}
	if v, ok := mgr.Metric(interdex.PassName, interdex.MetricReservedTrefs); ok {
		trefs -= int(v)
	}
	return mrefs, trefs
}

/* splitDex scans for oversized methods in parallel, then splits them one at
 * a time in method-ref order: class surgery and the shared budget want a
 * single writer, and the order keeps derived names reproducible. */
func (self *_MethodSplitPass) splitDex(sp *Splitter, dex []*ir.DexClass, mrefs, trefs int, st *Stats, workers int) {
	var mu sync.Mutex
	var eligible []*ir.DexMethod
	ir.WalkCodeParallel(dex, workers, func(m *ir.DexMethod, code *ir.IRCode) {
		if code.CodeUnits() >= int(self.minOriginalSize) {
			mu.Lock()
			eligible = append(eligible, m)
			mu.Unlock()
		}
	})
	sort.Slice(eligible, func(i, j int) bool {
		return eligible[i].String() < eligible[j].String()
	})

	budget := NewBudget(dex, mrefs, trefs)
	for _, m := range eligible {
		if _, aborted := sp.SplitMethod(m, budget, st); aborted {
			break
		}
	}
}

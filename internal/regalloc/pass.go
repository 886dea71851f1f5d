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

package regalloc

import (
	"sync/atomic"

	"github.com/cloudwego/rdx/internal/conf"
	"github.com/cloudwego/rdx/internal/ir"
	"github.com/cloudwego/rdx/internal/pass"
	"github.com/cloudwego/rdx/internal/props"
)

// PassName is the config and metrics key of the register allocation pass.
const PassName = "RegAllocPass"

type _RegAllocPass struct {
	drawDir string
}

// NewPass returns the register allocation pass.
func NewPass() pass.Pass {
	return new(_RegAllocPass)
}

func (self *_RegAllocPass) Name() string { return PassName }

func (self *_RegAllocPass) ConfigDoc() string {
	return "compacts method register frames with a linear scan over live ranges"
}

func (self *_RegAllocPass) BindConfig(b *conf.Binder) {
	b.BindString("debug_draw_dir", "", &self.drawDir, "dump each method's live ranges as svg into this directory")
}

func (self *_RegAllocPass) PropertyInteractions() props.Interactions {
	return props.Interactions{
		props.DexLimitsObeyed: {Preserves: true},
	}
}

/* methods are independent frames, so the walk runs parallel and only the
 * counters are shared. */
func (self *_RegAllocPass) RunPass(stores []*ir.DexStore, cfg *conf.GlobalConfig, mgr *pass.Manager) {
	al := &Allocator{DrawDir: self.drawDir}
	var methods, in, out, conflicts int64
	for _, store := range stores {
		for i := 0; i < store.NumDexen(); i++ {
			ir.WalkCodeParallel(store.Dex(i), mgr.Workers(), func(m *ir.DexMethod, code *ir.IRCode) {
				res := al.Allocate(m)
				atomic.AddInt64(&methods, 1)
				atomic.AddInt64(&in, int64(res.In))
				atomic.AddInt64(&out, int64(res.Out))
				atomic.AddInt64(&conflicts, int64(res.Conflicts))
			})
		}
	}
	mgr.SetMetric("methods", methods)
	mgr.SetMetric("regs_in", in)
	mgr.SetMetric("regs_out", out)
	mgr.SetMetric("cast_conflicts", conflicts)
}

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

package check

import (
	"github.com/cloudwego/rdx/internal/conf"
	"github.com/cloudwego/rdx/internal/ident"
	"github.com/cloudwego/rdx/internal/ir"
	"github.com/cloudwego/rdx/internal/pass"
	"github.com/cloudwego/rdx/internal/props"
)

// InjectionIdInstructions verifies no injection-id instruction survives once
// every pass that owes the lowering has paid up.
type InjectionIdInstructions struct{}

func (self InjectionIdInstructions) Property() props.Property {
	return props.NeedsInjectionIdLowering
}

func (self InjectionIdInstructions) Check(stores []*ir.DexStore, cfg *conf.GlobalConfig, mgr *pass.Manager, established bool) error {
	if established {
		return nil
	}
	col := newCollector()
	ir.WalkCodeParallel(ir.BuildScope(stores), mgr.Workers(), func(m *ir.DexMethod, code *ir.IRCode) {
		code.WalkInsns(func(insn *ir.IRInstruction) {
			if insn.Op() == ir.OpInjectionID {
				col.report(Violation{
					Method: m.String(),
					Insn:   insn.String(),
					Reason: "injection-id was never lowered",
				})
			}
		})
	})
	return col.err()
}

// NoSpuriousGetClassCalls verifies every Object.getClass invocation feeds a
// move-result, i.e. nobody calls it purely for the implicit null check after
// the pass that rewrites those into explicit forms ran.
type NoSpuriousGetClassCalls struct{}

func (self NoSpuriousGetClassCalls) Property() props.Property {
	return props.NoSpuriousGetClassCalls
}

func (self NoSpuriousGetClassCalls) Check(stores []*ir.DexStore, cfg *conf.GlobalConfig, mgr *pass.Manager, established bool) error {
	if !established {
		return nil
	}
	col := newCollector()
	ir.WalkCodeParallel(ir.BuildScope(stores), mgr.Workers(), func(m *ir.DexMethod, code *ir.IRCode) {
		self.checkCode(col, m, code)
	})
	return col.err()
}

func (self NoSpuriousGetClassCalls) checkCode(col *_Collector, m *ir.DexMethod, code *ir.IRCode) {
	flag := func(insn *ir.IRInstruction) {
		col.report(Violation{
			Method: m.String(),
			Insn:   insn.String(),
			Reason: "getClass result is unused",
		})
	}
	if cfg := code.CFG(); cfg != nil {
		for _, b := range cfg.Blocks() {
			insns := b.Insns()
			for i, insn := range insns {
				if !isGetClassCall(insn) {
					continue
				}
				var next *ir.IRInstruction
				if i+1 < len(insns) {
					next = insns[i+1]
				} else if t := b.GotoTarget(); t != nil {
					next = t.FirstInsn()
				}
				if next == nil || !next.Op().IsMoveResult() {
					flag(insn)
				}
			}
		}
		return
	}
	insns := []*ir.IRInstruction(nil)
	code.WalkInsns(func(insn *ir.IRInstruction) { insns = append(insns, insn) })
	for i, insn := range insns {
		if !isGetClassCall(insn) {
			continue
		}
		if i+1 >= len(insns) || !insns[i+1].Op().IsMoveResult() {
			flag(insn)
		}
	}
}

func isGetClassCall(insn *ir.IRInstruction) bool {
	if !insn.Op().IsInvoke() {
		return false
	}
	return isGetClass(insn.MethodRef())
}

func isGetClass(ref *ident.MethodRef) bool {
	return ref != nil &&
		ref.Name().String() == "getClass" &&
		ref.Proto().String() == "()Ljava/lang/Class;"
}

// HasSourceBlocks verifies every method body carries at least one source
// block once the instrumentation pass claims to have inserted them.
type HasSourceBlocks struct{}

func (self HasSourceBlocks) Property() props.Property {
	return props.HasSourceBlocks
}

func (self HasSourceBlocks) Check(stores []*ir.DexStore, cfg *conf.GlobalConfig, mgr *pass.Manager, established bool) error {
	if !established {
		return nil
	}
	col := newCollector()
	ir.WalkCodeParallel(ir.BuildScope(stores), mgr.Workers(), func(m *ir.DexMethod, code *ir.IRCode) {
		found := false
		code.WalkItems(func(it ir.MethodItem) {
			if _, ok := it.(*ir.SourceBlock); ok {
				found = true
			}
		})
		if !found {
			col.report(Violation{
				Method: m.String(),
				Reason: "method body carries no source blocks",
			})
		}
	})
	return col.err()
}

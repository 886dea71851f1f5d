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
	"fmt"

	"github.com/cloudwego/rdx/internal/conf"
	"github.com/cloudwego/rdx/internal/ir"
	"github.com/cloudwego/rdx/internal/pass"
	"github.com/cloudwego/rdx/internal/props"
)

// NoResolvablePureRefs verifies that after reference rebinding ran, no
// instruction still names a class that merely inherits the member: such a
// pure reference resolves somewhere up the hierarchy and should have been
// rewritten to point at the definition. References resolving to external
// definitions are exempt, those may legitimately stay as written for older
// platform levels.
type NoResolvablePureRefs struct{}

func (self NoResolvablePureRefs) Property() props.Property {
	return props.NoResolvablePureRefs
}

func (self NoResolvablePureRefs) Check(stores []*ir.DexStore, cfg *conf.GlobalConfig, mgr *pass.Manager, established bool) error {
	if !established {
		return nil
	}
	scope := ir.BuildScope(stores)
	idx := ir.NewClassIndex(scope)
	col := newCollector()
	ir.WalkCodeParallel(scope, mgr.Workers(), func(m *ir.DexMethod, code *ir.IRCode) {
		code.WalkInsns(func(insn *ir.IRInstruction) {
			switch {
			case insn.Op().HasMethodRef():
				ref := insn.MethodRef()
				def := idx.ResolveMethod(ref)
				if def != nil && !def.IsExternal() && def.Ref() != ref {
					col.report(Violation{
						Method: m.String(),
						Insn:   insn.String(),
						Reason: fmt.Sprintf("pure reference resolves to %s but was not rebound", def),
					})
				}
			case insn.Op().HasFieldRef():
				ref := insn.FieldRef()
				def := idx.ResolveField(ref)
				if def != nil && !def.IsExternal() && def.Ref() != ref {
					col.report(Violation{
						Method: m.String(),
						Insn:   insn.String(),
						Reason: fmt.Sprintf("pure reference resolves to %s but was not rebound", def),
					})
				}
			}
		})
	})
	return col.err()
}

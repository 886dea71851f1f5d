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
	"strings"

	"github.com/cloudwego/rdx/internal/conf"
	"github.com/cloudwego/rdx/internal/ir"
	"github.com/cloudwego/rdx/internal/pass"
	"github.com/cloudwego/rdx/internal/props"
)

// Accessibility verifies that no instruction names a definition it may not
// touch under Java visibility rules. It stands down while a pass still owes
// the publicizing rewrite.
type Accessibility struct{}

func (self Accessibility) Property() props.Property {
	return props.NeedsEverythingPublic
}

func (self Accessibility) Check(stores []*ir.DexStore, cfg *conf.GlobalConfig, mgr *pass.Manager, established bool) error {
	if established {
		return nil
	}
	scope := ir.BuildScope(stores)
	idx := ir.NewClassIndex(scope)
	col := newCollector()
	ir.WalkCodeParallel(scope, mgr.Workers(), func(m *ir.DexMethod, code *ir.IRCode) {
		from := m.Class()
		code.WalkInsns(func(insn *ir.IRInstruction) {
			switch {
			case insn.Op().HasMethodRef():
				def := idx.ResolveMethod(insn.MethodRef())
				if def == nil || def.IsExternal() {
					return
				}
				self.checkMember(col, idx, m, insn, def.Class(), def.Access(), "method "+def.String())
			case insn.Op().HasFieldRef():
				def := idx.ResolveField(insn.FieldRef())
				if def == nil || def.IsExternal() {
					return
				}
				self.checkMember(col, idx, m, insn, def.Class(), def.Access(), "field "+def.String())
			case insn.Op().HasTypeRef():
				cls := idx.Get(insn.TypeRef())
				if cls == nil || cls.IsExternal() {
					return
				}
				if !classAccessible(from, cls) {
					col.report(Violation{
						Method: m.String(),
						Insn:   insn.String(),
						Reason: fmt.Sprintf("class %s is not accessible", cls),
					})
				}
			}
		})
	})
	return col.err()
}

func (self Accessibility) checkMember(col *_Collector, idx *ir.ClassIndex, m *ir.DexMethod, insn *ir.IRInstruction, owner *ir.DexClass, acc ir.Access, what string) {
	from := m.Class()
	if !classAccessible(from, owner) {
		col.report(Violation{
			Method: m.String(),
			Insn:   insn.String(),
			Reason: fmt.Sprintf("class %s is not accessible", owner),
		})
		return
	}
	if !memberAccessible(idx, from, owner, acc) {
		col.report(Violation{
			Method: m.String(),
			Insn:   insn.String(),
			Reason: fmt.Sprintf("%s %s is not accessible", visibility(acc), what),
		})
	}
}

func memberAccessible(idx *ir.ClassIndex, from, owner *ir.DexClass, acc ir.Access) bool {
	switch {
	case acc.IsPublic():
		return true
	case acc.IsPrivate():
		return from == owner
	case acc.IsProtected():
		return samePackage(from, owner) || idx.IsSubclass(from.Type(), owner.Type())
	default:
		return samePackage(from, owner)
	}
}

func classAccessible(from, target *ir.DexClass) bool {
	return target.Access().IsPublic() || samePackage(from, target)
}

func samePackage(a, b *ir.DexClass) bool {
	return packageOf(a.Type().String()) == packageOf(b.Type().String())
}

/* the part of "Lcom/foo/Bar;" before the last '/', "" for the default
 * package */
func packageOf(desc string) string {
	i := strings.LastIndexByte(desc, '/')
	if i < 0 {
		return ""
	}
	return desc[1:i]
}

func visibility(acc ir.Access) string {
	switch {
	case acc.IsPrivate():
		return "private"
	case acc.IsProtected():
		return "protected"
	case acc.IsPublic():
		return "public"
	default:
		return "package-private"
	}
}

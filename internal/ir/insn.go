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

package ir

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cloudwego/rdx/internal/ident"
)

// Reg is a virtual register number. Wide values occupy two consecutive
// numbers, addressed by the lower one.
type Reg uint32

func (self Reg) String() string {
	return "v" + strconv.FormatUint(uint64(self), 10)
}

// IRInstruction is a single instruction: opcode, source registers, an
// optional destination register, and at most one payload. Branch targets are
// represented as label ids while the code is in flat form; once a CFG is
// built they live on the edges instead.
type IRInstruction struct {
	op      Op
	dest    Reg
	srcs    []Reg
	lit     int64
	str     *ident.String
	typ     *ident.Type
	field   *ident.FieldRef
	method  *ident.MethodRef
	target  int
	keys    []int64
	targets []int
}

func NewInsn(op Op) *IRInstruction {
	return &IRInstruction{op: op, target: -1}
}

func (self *IRInstruction) item() {}

func (self *IRInstruction) Op() Op { return self.op }

func (self *IRInstruction) SetSrcs(srcs ...Reg) *IRInstruction {
	if n := self.op.SrcCount(); n >= 0 && n != len(srcs) {
		panic(fmt.Sprintf("%s takes %d sources, got %d", self.op, n, len(srcs)))
	}
	self.srcs = srcs
	return self
}

func (self *IRInstruction) SetDest(r Reg) *IRInstruction {
	if !self.op.HasDest() {
		panic(fmt.Sprintf("%s has no destination register", self.op))
	}
	self.dest = r
	return self
}

func (self *IRInstruction) SetLiteral(v int64) *IRInstruction {
	self.lit = v
	return self
}

func (self *IRInstruction) SetString(s *ident.String) *IRInstruction {
	self.str = s
	return self
}

func (self *IRInstruction) SetType(t *ident.Type) *IRInstruction {
	self.typ = t
	return self
}

func (self *IRInstruction) SetField(f *ident.FieldRef) *IRInstruction {
	self.field = f
	return self
}

func (self *IRInstruction) SetMethod(m *ident.MethodRef) *IRInstruction {
	self.method = m
	return self
}

// SetTarget records the flat-form label id of a goto or conditional branch.
func (self *IRInstruction) SetTarget(label int) *IRInstruction {
	self.target = label
	return self
}

// SetCases records the flat-form switch table as parallel key and label-id
// slices.
func (self *IRInstruction) SetCases(keys []int64, labels []int) *IRInstruction {
	if len(keys) != len(labels) {
		panic("switch keys and labels differ in length")
	}
	self.keys = keys
	self.targets = labels
	return self
}

func (self *IRInstruction) Srcs() []Reg    { return self.srcs }
func (self *IRInstruction) Src(i int) Reg  { return self.srcs[i] }
func (self *IRInstruction) SrcCount() int  { return len(self.srcs) }
func (self *IRInstruction) HasDest() bool  { return self.op.HasDest() }
func (self *IRInstruction) Dest() Reg      { return self.dest }
func (self *IRInstruction) Literal() int64 { return self.lit }
func (self *IRInstruction) Target() int    { return self.target }
func (self *IRInstruction) Keys() []int64  { return self.keys }
func (self *IRInstruction) Targets() []int { return self.targets }

func (self *IRInstruction) Str() *ident.String          { return self.str }
func (self *IRInstruction) TypeRef() *ident.Type        { return self.typ }
func (self *IRInstruction) FieldRef() *ident.FieldRef   { return self.field }
func (self *IRInstruction) MethodRef() *ident.MethodRef { return self.method }

// DestIsWide reports whether the destination occupies a register pair.
func (self *IRInstruction) DestIsWide() bool {
	return self.op.HasDest() && self.op.DestKind() == KindWide
}

// SrcKind classifies source operand i, consulting the method signature for
// invokes.
func (self *IRInstruction) SrcKind(i int) RegKind {
	if !self.op.IsInvoke() {
		return self.op.info().skind[i]
	}
	if self.op != OpInvokeStatic {
		if i == 0 {
			return KindObject
		}
		i--
	}
	args := self.method.Proto().Args()
	if i >= len(args) {
		panic(fmt.Sprintf("source %d out of range for %s", i, self.method))
	}
	return typeKind(args[i])
}

// SrcIsWide reports whether source operand i names a register pair.
func (self *IRInstruction) SrcIsWide(i int) bool {
	return self.SrcKind(i) == KindWide
}

func typeKind(t *ident.Type) RegKind {
	switch {
	case t.Wide():
		return KindWide
	case t.Object():
		return KindObject
	default:
		return KindNormal
	}
}

// Clone returns a deep copy. Labels and switch tables are copied as-is; the
// caller remaps them when cloning across methods.
func (self *IRInstruction) Clone() *IRInstruction {
	ret := new(IRInstruction)
	*ret = *self
	ret.srcs = append([]Reg(nil), self.srcs...)
	ret.keys = append([]int64(nil), self.keys...)
	ret.targets = append([]int(nil), self.targets...)
	return ret
}

func (self *IRInstruction) String() string {
	buf := new(strings.Builder)
	buf.WriteString(self.op.String())
	if self.op.HasDest() {
		buf.WriteString(" " + self.dest.String())
	}
	if self.op.IsInvoke() {
		buf.WriteString(" {" + formatRegs(self.srcs) + "}")
	} else {
		for _, r := range self.srcs {
			buf.WriteString(" " + r.String())
		}
	}
	switch {
	case self.op.HasLiteral():
		buf.WriteString(" #" + strconv.FormatInt(self.lit, 10))
	case self.op.HasStringRef() && self.str != nil:
		buf.WriteString(" " + strconv.Quote(self.str.String()))
	case self.op.HasTypeRef() && self.typ != nil:
		buf.WriteString(" " + self.typ.String())
	case self.op.HasFieldRef() && self.field != nil:
		buf.WriteString(" " + self.field.String())
	case self.op.HasMethodRef() && self.method != nil:
		buf.WriteString(" " + self.method.String())
	}
	if self.op == OpSwitch && len(self.keys) != 0 {
		buf.WriteString(" {")
		for i, k := range self.keys {
			if i != 0 {
				buf.WriteString(", ")
			}
			fmt.Fprintf(buf, "#%d -> :%d", k, self.targets[i])
		}
		buf.WriteString("}")
	} else if self.target >= 0 && (self.op.IsGoto() || self.op.IsConditionalBranch()) {
		fmt.Fprintf(buf, " :%d", self.target)
	}
	return buf.String()
}

func formatRegs(regs []Reg) string {
	nb := make([]string, len(regs))
	for i, r := range regs {
		nb[i] = r.String()
	}
	return strings.Join(nb, ", ")
}

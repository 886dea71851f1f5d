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
	"strings"
)

// IRCode is a method body. It is either a flat ordered item list or, after
// BuildCFG, a control-flow graph; the two forms are exclusive and Linearize
// converts back.
type IRCode struct {
	items []MethodItem
	regs  uint32
	cfg   *ControlFlowGraph
}

func NewCode(regs uint32, items ...MethodItem) *IRCode {
	return &IRCode{regs: regs, items: items}
}

// NewCodeFromCFG wraps an already-built graph as a method body in CFG form.
func NewCodeFromCFG(cfg *ControlFlowGraph) *IRCode {
	return &IRCode{regs: cfg.RegistersSize(), cfg: cfg}
}

func (self *IRCode) Push(items ...MethodItem) {
	if self.cfg != nil {
		panic("cannot push items while the CFG is built")
	}
	self.items = append(self.items, items...)
}

// Items returns the flat item list. It is only valid while no CFG is built.
func (self *IRCode) Items() []MethodItem {
	if self.cfg != nil {
		panic("code is in CFG form")
	}
	return self.items
}

func (self *IRCode) CFG() *ControlFlowGraph { return self.cfg }
func (self *IRCode) CFGBuilt() bool         { return self.cfg != nil }

func (self *IRCode) RegistersSize() uint32 {
	if self.cfg != nil {
		return self.cfg.RegistersSize()
	}
	return self.regs
}

func (self *IRCode) SetRegistersSize(n uint32) {
	if self.cfg != nil {
		self.cfg.SetRegistersSize(n)
	} else {
		self.regs = n
	}
}

// CodeUnits is the lowered size of the body in 16-bit units.
func (self *IRCode) CodeUnits() int {
	ret := 0
	if self.cfg != nil {
		for _, b := range self.cfg.Blocks() {
			ret += b.CodeUnits() // switch case counts live on the edges here
		}
		return ret
	}
	for _, it := range self.items {
		if insn, ok := it.(*IRInstruction); ok {
			ret += insnUnits(insn)
		}
	}
	return ret
}

func insnUnits(insn *IRInstruction) int {
	n := insn.Op().UnitSize()
	if insn.Op() == OpSwitch {
		n += 2 * len(insn.Keys())
	}
	return n
}

// WalkInsns visits every instruction in either form: flat order, or block id
// order when a CFG is built.
func (self *IRCode) WalkInsns(fn func(*IRInstruction)) {
	if self.cfg == nil {
		for _, it := range self.items {
			if insn, ok := it.(*IRInstruction); ok {
				fn(insn)
			}
		}
		return
	}
	for _, b := range self.cfg.Blocks() {
		for _, it := range b.items {
			if insn, ok := it.(*IRInstruction); ok {
				fn(insn)
			}
		}
	}
}

// WalkItems visits every method item the same way WalkInsns does.
func (self *IRCode) WalkItems(fn func(MethodItem)) {
	if self.cfg == nil {
		for _, it := range self.items {
			fn(it)
		}
		return
	}
	for _, b := range self.cfg.Blocks() {
		for _, it := range b.items {
			fn(it)
		}
	}
}

// ParamLoads returns the leading load-param instructions.
func (self *IRCode) ParamLoads() []*IRInstruction {
	ret := []*IRInstruction(nil)
	self.WalkInsns(func(insn *IRInstruction) {
		if insn.Op().IsLoadParam() {
			ret = append(ret, insn)
		}
	})
	return ret
}

// Snapshot captures the body as an independent flat copy. The CFG, if built,
// is left untouched.
func (self *IRCode) Snapshot() *IRCode {
	if self.cfg != nil {
		return &IRCode{items: self.cfg.linearize(), regs: self.cfg.RegistersSize()}
	}
	return &IRCode{items: copyItems(self.items), regs: self.regs}
}

// Restore replaces the body with the snapshot's flat form, dropping any
// built CFG. The snapshot stays valid for further restores.
func (self *IRCode) Restore(snap *IRCode) {
	self.items = copyItems(snap.items)
	self.regs = snap.regs
	self.cfg = nil
}

func (self *IRCode) String() string {
	if self.cfg != nil {
		return self.cfg.String()
	}
	nb := make([]string, 0, len(self.items))
	for _, it := range self.items {
		nb = append(nb, it.String())
	}
	return strings.Join(nb, "\n")
}

/* copyItems deep-copies a flat item list, preserving the identity structure
 * of catch chains and try markers. */
func copyItems(items []MethodItem) []MethodItem {
	catches := make(map[*CatchMarker]*CatchMarker)
	ret := make([]MethodItem, 0, len(items))
	for _, it := range items {
		switch v := it.(type) {
		case *IRInstruction:
			ret = append(ret, v.Clone())
		case *Label:
			ret = append(ret, &Label{ID: v.ID})
		case *TryMarker:
			ret = append(ret, &TryMarker{Kind: v.Kind, Catch: copyCatch(v.Catch, catches)})
		case *CatchMarker:
			ret = append(ret, copyCatch(v, catches))
		case *DebugPosition:
			ret = append(ret, &DebugPosition{File: v.File, Line: v.Line})
		case *SourceBlock:
			ret = append(ret, v.Clone(false))
		default:
			panic("unreachable")
		}
	}
	return ret
}

func copyCatch(c *CatchMarker, seen map[*CatchMarker]*CatchMarker) *CatchMarker {
	if c == nil {
		return nil
	}
	if dup, ok := seen[c]; ok {
		return dup
	}
	dup := &CatchMarker{Type: c.Type}
	seen[c] = dup
	dup.Next = copyCatch(c.Next, seen)
	return dup
}

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
)

// BuildCFG parses the flat item list into a control-flow graph. Basic blocks
// open at every branch target, at try/catch boundaries, after terminators,
// after every throwing instruction inside a try region (keeping its
// move-result-pseudo attached), and at backward debug-position jumps. Labels
// and try markers are absorbed into blocks and edges; Linearize synthesizes
// them back. Calling BuildCFG again returns the existing graph.
func (self *IRCode) BuildCFG() *ControlFlowGraph {
	if self.cfg != nil {
		return self.cfg
	}
	bd := &_CfgBuilder{
		g:       &ControlFlowGraph{regs: self.regs},
		labels:  make(map[int]*Block),
		catches: make(map[*CatchMarker]*Block),
		regions: make(map[*Block]*CatchMarker),
	}
	bd.scan(self.items)
	bd.connect()
	bd.g.entry = bd.order[0]
	self.cfg = bd.g
	self.items = nil
	return self.cfg
}

// Linearize converts the graph form back into the flat form and drops the
// graph. Branch-target labels come out canonicalized.
func (self *IRCode) Linearize() {
	if self.cfg == nil {
		return
	}
	self.items = self.cfg.linearize()
	self.regs = self.cfg.RegistersSize()
	self.cfg = nil
}

type _CfgBuilder struct {
	g       *ControlFlowGraph
	cur     *Block
	fresh   bool
	order   []*Block
	labels  map[int]*Block
	catches map[*CatchMarker]*Block
	regions map[*Block]*CatchMarker
	chain   *CatchMarker
	split   bool
	lastPos *DebugPosition
}

func (self *_CfgBuilder) block() *Block {
	if self.cur == nil {
		self.cur = self.g.CreateBlock()
		self.regions[self.cur] = self.chain
		self.order = append(self.order, self.cur)
		self.fresh = true
	}
	return self.cur
}

/* boundary ends the current block; the next item opens a new one */
func (self *_CfgBuilder) boundary() {
	if self.cur != nil && self.fresh {
		self.regions[self.cur] = self.chain
		return
	}
	self.cur = nil
	self.split = false
}

func (self *_CfgBuilder) emit(it MethodItem) {
	b := self.block()
	b.items = append(b.items, it)
	self.fresh = false
}

func (self *_CfgBuilder) scan(items []MethodItem) {
	for _, it := range items {
		switch v := it.(type) {
		case *Label:
			self.boundary()
			self.labels[v.ID] = self.block()
		case *TryMarker:
			if v.Kind == TryStart {
				self.chain = v.Catch
			} else {
				self.chain = nil
			}
			self.boundary()
		case *CatchMarker:
			self.boundary()
			self.catches[v] = self.block()
		case *DebugPosition:
			if p := self.lastPos; p != nil && (p.File != v.File || v.Line < p.Line) {
				self.boundary()
			}
			self.lastPos = v
			self.emit(v)
		case *IRInstruction:
			self.scanInsn(v)
		default:
			self.emit(it)
		}
	}
	if len(self.order) == 0 {
		self.block() // an empty body still gets its entry block
	}
}

func (self *_CfgBuilder) scanInsn(insn *IRInstruction) {
	if self.split && !insn.Op().IsMoveResultAny() {
		self.boundary()
	}
	self.emit(insn)
	switch {
	case insn.Op().IsTerminator():
		self.boundary()
	case self.chain != nil && insn.Op().CanThrow():
		self.split = true
	case insn.Op().IsMoveResultAny():
		/* keep the pair together, then split below it */
	default:
		self.split = false
	}
}

func (self *_CfgBuilder) target(label int) *Block {
	b := self.labels[label]
	if b == nil {
		panic(fmt.Sprintf("branch to undefined label :%d", label))
	}
	return b
}

func (self *_CfgBuilder) connect() {
	for i, b := range self.order {
		self.connectTerminator(i, b)
		self.connectThrows(b)
	}
}

func (self *_CfgBuilder) connectTerminator(i int, b *Block) {
	term := b.Terminator()
	if term == nil {
		if i+1 < len(self.order) {
			self.g.AddEdge(b, self.order[i+1], EdgeGoto)
		}
		return
	}
	switch op := term.Op(); {
	case op.IsGoto():
		self.g.AddEdge(b, self.target(term.target), EdgeGoto)
		term.target = -1
	case op.IsConditionalBranch():
		self.g.AddEdge(b, self.target(term.target), EdgeBranch)
		term.target = -1
		if i+1 >= len(self.order) {
			panic("conditional branch at the end of the method")
		}
		self.g.AddEdge(b, self.order[i+1], EdgeGoto)
	case op.IsSwitch():
		for j, key := range term.keys {
			self.g.AddCaseEdge(b, self.target(term.targets[j]), key)
		}
		term.keys = nil
		term.targets = nil
		if i+1 >= len(self.order) {
			panic("switch at the end of the method")
		}
		self.g.AddEdge(b, self.order[i+1], EdgeGoto)
	}
}

func (self *_CfgBuilder) connectThrows(b *Block) {
	chain := self.regions[b]
	if chain == nil || !blockMayThrow(b) {
		return
	}
	idx := 0
	for c := chain; c != nil; c = c.Next {
		h := self.catches[c]
		if h == nil {
			panic("try region references a missing catch handler")
		}
		self.g.AddThrowEdge(b, h, c.Type, idx)
		idx++
	}
}

func blockMayThrow(b *Block) bool {
	for _, it := range b.items {
		if insn, ok := it.(*IRInstruction); ok && insn.Op().CanThrow() {
			return true
		}
	}
	return false
}

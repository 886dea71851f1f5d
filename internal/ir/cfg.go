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
	"strings"

	"github.com/cloudwego/rdx/internal/ident"
	"github.com/oleiade/lane"
)

// ControlFlowGraph is the editable graph form of a method body.
type ControlFlowGraph struct {
	slots []*Block // indexed by block id, nil after removal
	entry *Block
	exit  *Block // ghost, managed by EnsureExit
	regs  uint32
}

func (self *ControlFlowGraph) Entry() *Block { return self.entry }

// SetEntry redirects the graph's entry, e.g. after grafting a new prologue
// block in front of an existing one.
func (self *ControlFlowGraph) SetEntry(b *Block) { self.entry = b }

// Exit returns the ghost exit block, or nil before EnsureExit.
func (self *ControlFlowGraph) Exit() *Block { return self.exit }

// Blocks returns the live blocks in id order, ghost excluded.
func (self *ControlFlowGraph) Blocks() []*Block {
	ret := make([]*Block, 0, len(self.slots))
	for _, b := range self.slots {
		if b != nil && !b.ghost {
			ret = append(ret, b)
		}
	}
	return ret
}

func (self *ControlFlowGraph) NumBlocks() int { return len(self.Blocks()) }

func (self *ControlFlowGraph) GetBlock(id int) *Block {
	if id < 0 || id >= len(self.slots) {
		return nil
	}
	return self.slots[id]
}

func (self *ControlFlowGraph) RegistersSize() uint32     { return self.regs }
func (self *ControlFlowGraph) SetRegistersSize(n uint32) { self.regs = n }

// AllocTemp reserves a fresh virtual register.
func (self *ControlFlowGraph) AllocTemp() Reg {
	r := Reg(self.regs)
	self.regs++
	return r
}

// AllocWideTemp reserves a fresh register pair and returns the low register.
func (self *ControlFlowGraph) AllocWideTemp() Reg {
	r := Reg(self.regs)
	self.regs += 2
	return r
}

// CreateBlock appends an empty block with the next free id.
func (self *ControlFlowGraph) CreateBlock() *Block {
	b := &Block{id: len(self.slots), owner: self}
	self.slots = append(self.slots, b)
	return b
}

func (self *ControlFlowGraph) createGhost() *Block {
	b := self.CreateBlock()
	b.ghost = true
	return b
}

// AddEdge links src to tgt with a plain edge of the given kind.
func (self *ControlFlowGraph) AddEdge(src, tgt *Block, kind EdgeKind) *Edge {
	e := &Edge{src: src, tgt: tgt, kind: kind}
	src.succs = append(src.succs, e)
	tgt.preds = append(tgt.preds, e)
	return e
}

// AddCaseEdge links a switch block to one of its case targets.
func (self *ControlFlowGraph) AddCaseEdge(src, tgt *Block, key int64) *Edge {
	e := self.AddEdge(src, tgt, EdgeBranch)
	e.caseKey = &key
	return e
}

// AddThrowEdge links a throwing block to a catch handler. Index is the
// handler's position in the catch chain; catchType nil means catch-all.
func (self *ControlFlowGraph) AddThrowEdge(src, tgt *Block, catchType *ident.Type, index int) *Edge {
	e := self.AddEdge(src, tgt, EdgeThrow)
	e.catchType = catchType
	e.throwIndex = index
	return e
}

// DeleteEdge unlinks e from both endpoints.
func (self *ControlFlowGraph) DeleteEdge(e *Edge) {
	e.src.succs = removeEdge(e.src.succs, e)
	e.tgt.preds = removeEdge(e.tgt.preds, e)
}

// DeleteSuccEdgeIf removes every successor edge of b matching pred.
func (self *ControlFlowGraph) DeleteSuccEdgeIf(b *Block, pred func(*Edge) bool) {
	for _, e := range append([]*Edge(nil), b.succs...) {
		if pred(e) {
			self.DeleteEdge(e)
		}
	}
}

// RemoveBlock unlinks every edge of b and frees its id.
func (self *ControlFlowGraph) RemoveBlock(b *Block) {
	if b == self.entry {
		panic("cannot remove the entry block")
	}
	for _, e := range append([]*Edge(nil), b.succs...) {
		self.DeleteEdge(e)
	}
	for _, e := range append([]*Edge(nil), b.preds...) {
		self.DeleteEdge(e)
	}
	self.slots[b.id] = nil
	if self.exit == b {
		self.exit = nil
	}
}

func removeEdge(edges []*Edge, e *Edge) []*Edge {
	for i, v := range edges {
		if v == e {
			return append(edges[:i], edges[i+1:]...)
		}
	}
	return edges
}

// EnsureExit (re)builds the ghost exit block: every block without successors
// gains a ghost edge to it, and so does one representative of every strongly
// connected component that never escapes, so backward analyses reach loops
// that do not terminate.
func (self *ControlFlowGraph) EnsureExit() *Block {
	if self.exit != nil {
		self.RemoveBlock(self.exit)
	}
	exits := []*Block(nil)
	for _, b := range self.Blocks() {
		if len(b.succs) == 0 {
			exits = append(exits, b)
		}
	}
	for _, scc := range self.SCCs() {
		if sccEscapes(scc) {
			continue
		}
		rep := scc[0]
		for _, b := range scc {
			if b.id < rep.id {
				rep = b
			}
		}
		if len(rep.succs) != 0 {
			exits = append(exits, rep)
		}
	}
	ghost := self.createGhost()
	for _, b := range exits {
		self.AddEdge(b, ghost, EdgeGhost)
	}
	self.exit = ghost
	return ghost
}

func sccEscapes(scc []*Block) bool {
	inside := make(map[*Block]bool, len(scc))
	for _, b := range scc {
		inside[b] = true
	}
	for _, b := range scc {
		for _, e := range b.succs {
			if e.kind != EdgeGhost && !inside[e.tgt] {
				return true
			}
		}
	}
	return false
}

// ReachableBlocks returns the blocks reachable from the entry.
func (self *ControlFlowGraph) ReachableBlocks() []*Block {
	seen := make(map[*Block]bool)
	stack := lane.NewStack()
	stack.Push(self.entry)
	for !stack.Empty() {
		b := stack.Pop().(*Block)
		if seen[b] || b.ghost {
			continue
		}
		seen[b] = true
		for _, e := range b.succs {
			if !seen[e.tgt] {
				stack.Push(e.tgt)
			}
		}
	}
	ret := []*Block(nil)
	for _, b := range self.Blocks() {
		if seen[b] {
			ret = append(ret, b)
		}
	}
	return ret
}

// Validate panics when one of the structural invariants is broken: the entry
// has predecessors, a reachable block has none, a terminator misses its
// edges, or a move-result-pseudo is detached from its producer.
func (self *ControlFlowGraph) Validate() {
	if len(self.entry.preds) != 0 {
		panic("entry block has predecessors")
	}
	for _, b := range self.ReachableBlocks() {
		if b != self.entry && len(b.preds) == 0 {
			panic(fmt.Sprintf("reachable block B%d has no predecessors", b.id))
		}
		self.validateTerminator(b)
		validatePseudoPairs(b)
	}
}

func (self *ControlFlowGraph) validateTerminator(b *Block) {
	term := b.Terminator()
	branches := len(b.BranchEdges())
	hasGoto := b.GotoEdge() != nil
	switch {
	case term == nil:
		if !hasGoto && len(b.succs) != 0 {
			panic(fmt.Sprintf("block B%d falls through without a goto edge", b.id))
		}
	case term.Op().IsConditionalBranch():
		if branches != 1 || !hasGoto {
			panic(fmt.Sprintf("conditional block B%d needs a taken and a fallthrough edge", b.id))
		}
	case term.Op().IsSwitch():
		if !hasGoto {
			panic(fmt.Sprintf("switch block B%d has no fallthrough edge", b.id))
		}
	case term.Op().IsGoto():
		if !hasGoto {
			panic(fmt.Sprintf("goto block B%d has no goto edge", b.id))
		}
	}
}

func validatePseudoPairs(b *Block) {
	insns := b.Insns()
	for i, insn := range insns {
		if insn.Op().HasMoveResultPseudo() {
			if i+1 >= len(insns) || !insns[i+1].Op().IsMoveResultPseudo() {
				panic(fmt.Sprintf("%s in B%d lacks its move-result-pseudo", insn, b.id))
			}
		}
		if insn.Op().IsMoveResultPseudo() {
			if i == 0 || !insns[i-1].Op().HasMoveResultPseudo() {
				panic(fmt.Sprintf("%s in B%d is detached from its producer", insn, b.id))
			}
		}
	}
}

func (self *ControlFlowGraph) String() string {
	nb := []string(nil)
	for _, b := range self.Blocks() {
		nb = append(nb, b.String())
	}
	return strings.Join(nb, "\n")
}

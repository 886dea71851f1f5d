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
	"sort"
	"strings"

	"github.com/cloudwego/rdx/internal/ident"
)

// EdgeKind distinguishes the control transfers between blocks.
type EdgeKind uint8

const (
	EdgeGoto   EdgeKind = iota // fallthrough, goto, branch-not-taken, switch default
	EdgeBranch                 // branch-taken, or a switch case when CaseKey is set
	EdgeThrow                  // to a catch handler
	EdgeGhost                  // to the ghost exit block
)

func (self EdgeKind) String() string {
	switch self {
	case EdgeGoto:
		return "goto"
	case EdgeBranch:
		return "branch"
	case EdgeThrow:
		return "throw"
	case EdgeGhost:
		return "ghost"
	default:
		panic("unreachable")
	}
}

// Edge is a directed, typed edge between two blocks.
type Edge struct {
	src        *Block
	tgt        *Block
	kind       EdgeKind
	caseKey    *int64
	catchType  *ident.Type
	throwIndex int
}

func (self *Edge) Src() *Block            { return self.src }
func (self *Edge) Tgt() *Block            { return self.tgt }
func (self *Edge) Kind() EdgeKind         { return self.kind }
func (self *Edge) CaseKey() *int64        { return self.caseKey }
func (self *Edge) CatchType() *ident.Type { return self.catchType }
func (self *Edge) ThrowIndex() int        { return self.throwIndex }

func (self *Edge) String() string {
	switch {
	case self.kind == EdgeBranch && self.caseKey != nil:
		return fmt.Sprintf("B%d -case %d-> B%d", self.src.id, *self.caseKey, self.tgt.id)
	case self.kind == EdgeThrow && self.catchType != nil:
		return fmt.Sprintf("B%d -throw %s-> B%d", self.src.id, self.catchType.Name(), self.tgt.id)
	default:
		return fmt.Sprintf("B%d -%s-> B%d", self.src.id, self.kind, self.tgt.id)
	}
}

// Block is a basic block. Ids are assigned in flat order when the graph is
// built, and Linearize emits blocks in id order, which is what makes the
// build/linearize round trip stable.
type Block struct {
	id    int
	ghost bool
	items []MethodItem
	preds []*Edge
	succs []*Edge
	owner *ControlFlowGraph
}

func (self *Block) ID() int             { return self.id }
func (self *Block) Items() []MethodItem { return self.items }
func (self *Block) Preds() []*Edge      { return self.preds }
func (self *Block) Succs() []*Edge      { return self.succs }

func (self *Block) Insns() []*IRInstruction {
	ret := []*IRInstruction(nil)
	for _, it := range self.items {
		if insn, ok := it.(*IRInstruction); ok {
			ret = append(ret, insn)
		}
	}
	return ret
}

func (self *Block) FirstInsn() *IRInstruction {
	for _, it := range self.items {
		if insn, ok := it.(*IRInstruction); ok {
			return insn
		}
	}
	return nil
}

func (self *Block) LastInsn() *IRInstruction {
	for i := len(self.items) - 1; i >= 0; i-- {
		if insn, ok := self.items[i].(*IRInstruction); ok {
			return insn
		}
	}
	return nil
}

// Terminator returns the last instruction if it always ends the block.
func (self *Block) Terminator() *IRInstruction {
	if insn := self.LastInsn(); insn != nil && insn.Op().IsTerminator() {
		return insn
	}
	return nil
}

func (self *Block) PushBack(items ...MethodItem)  { self.items = append(self.items, items...) }
func (self *Block) PushFront(items ...MethodItem) { self.items = append(items, self.items...) }
func (self *Block) SetItems(items ...MethodItem)  { self.items = items }

func (self *Block) insertAt(i int, items ...MethodItem) {
	self.items = append(self.items[:i], append(append([]MethodItem(nil), items...), self.items[i:]...)...)
}

func (self *Block) removeAt(i int) {
	self.items = append(self.items[:i], self.items[i+1:]...)
}

// GotoEdge returns the unconditional successor edge, if any.
func (self *Block) GotoEdge() *Edge {
	for _, e := range self.succs {
		if e.kind == EdgeGoto {
			return e
		}
	}
	return nil
}

// GotoTarget returns the unconditional successor block, if any.
func (self *Block) GotoTarget() *Block {
	if e := self.GotoEdge(); e != nil {
		return e.tgt
	}
	return nil
}

// BranchEdges returns the branch-taken and switch-case successor edges, in
// case-key order for switches.
func (self *Block) BranchEdges() []*Edge {
	ret := []*Edge(nil)
	for _, e := range self.succs {
		if e.kind == EdgeBranch {
			ret = append(ret, e)
		}
	}
	sort.SliceStable(ret, func(i, j int) bool {
		a, b := ret[i].caseKey, ret[j].caseKey
		if a == nil || b == nil {
			return a == nil && b != nil
		}
		return *a < *b
	})
	return ret
}

// ThrowEdges returns the exception edges ordered by handler priority.
func (self *Block) ThrowEdges() []*Edge {
	ret := []*Edge(nil)
	for _, e := range self.succs {
		if e.kind == EdgeThrow {
			ret = append(ret, e)
		}
	}
	sort.SliceStable(ret, func(i, j int) bool { return ret[i].throwIndex < ret[j].throwIndex })
	return ret
}

// SuccBlocks returns the distinct successor blocks, ghost excluded.
func (self *Block) SuccBlocks() []*Block {
	seen := make(map[*Block]bool, len(self.succs))
	ret := []*Block(nil)
	for _, e := range self.succs {
		if e.kind != EdgeGhost && !seen[e.tgt] {
			seen[e.tgt] = true
			ret = append(ret, e.tgt)
		}
	}
	return ret
}

// PredBlocks returns the distinct predecessor blocks.
func (self *Block) PredBlocks() []*Block {
	seen := make(map[*Block]bool, len(self.preds))
	ret := []*Block(nil)
	for _, e := range self.preds {
		if !seen[e.src] {
			seen[e.src] = true
			ret = append(ret, e.src)
		}
	}
	return ret
}

// CodeUnits is the lowered size of the block's instructions.
func (self *Block) CodeUnits() int {
	ret := 0
	for _, it := range self.items {
		if insn, ok := it.(*IRInstruction); ok {
			if insn.Op() == OpSwitch {
				ret += insn.Op().UnitSize() + 2*len(self.BranchEdges())
			} else {
				ret += insn.Op().UnitSize()
			}
		}
	}
	return ret
}

// FirstSourceBlock returns the first profile annotation in the block.
func (self *Block) FirstSourceBlock() *SourceBlock {
	for _, it := range self.items {
		if sb, ok := it.(*SourceBlock); ok {
			return sb
		}
	}
	return nil
}

// Hot reports whether any source block in the block saw a positive hit.
func (self *Block) Hot() bool {
	for _, it := range self.items {
		if sb, ok := it.(*SourceBlock); ok && sb.Hot() {
			return true
		}
	}
	return false
}

// IsCatchHandler reports whether the block is entered by a throw edge.
func (self *Block) IsCatchHandler() bool {
	for _, e := range self.preds {
		if e.kind == EdgeThrow {
			return true
		}
	}
	return false
}

func (self *Block) String() string {
	buf := new(strings.Builder)
	fmt.Fprintf(buf, "B%d:", self.id)
	for _, it := range self.items {
		buf.WriteString("\n  " + it.String())
	}
	for _, e := range self.succs {
		buf.WriteString("\n  -> " + e.String())
	}
	return buf.String()
}

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

// Package split extracts cold regions of large methods into private static
// siblings. It collapses each method's CFG into a DAG of reduced blocks,
// enumerates single-entry closures over that DAG, ranks them with a
// sharing-aware aggregator and rewrites the winners behind launchpad
// invokes, rolling back whenever a DEX reference budget would overflow.
package split

import (
	"sort"

	"github.com/cloudwego/rdx/internal/ir"
)

// PreSplit cuts straight runs of code into blocks of at most maxUnits code
// units so closures can start mid-run. Blocks with throw edges are left
// alone, and a cut never separates an instruction from its move-result
// companion.
func PreSplit(cfg *ir.ControlFlowGraph, maxUnits int) {
	if maxUnits <= 0 {
		return
	}
	for _, b := range cfg.Blocks() {
		for {
			at := cutPoint(b, maxUnits)
			if at < 0 {
				break
			}
			b = cfg.SplitBlock(b, at)
		}
	}
}

/* cutPoint returns the item index to cut after, or -1 when the block fits.
 * The cut lands right before the first instruction that would push the
 * running size past the budget. */
func cutPoint(b *ir.Block, maxUnits int) int {
	if len(b.ThrowEdges()) != 0 {
		return -1
	}
	units := 0
	for i, it := range b.Items() {
		insn, ok := it.(*ir.IRInstruction)
		if !ok {
			continue
		}
		n := insnUnits(insn)
		if units > 0 && units+n > maxUnits && !insn.Op().IsMoveResultAny() {
			return i - 1
		}
		units += n
	}
	return -1
}

func insnUnits(insn *ir.IRInstruction) int {
	n := insn.Op().UnitSize()
	if insn.Op() == ir.OpSwitch {
		n += 2 * len(insn.Keys())
	}
	return n
}

// ReducedBlock is one strongly connected component of a method CFG.
type ReducedBlock struct {
	id     int
	blocks []*ir.Block
	size   int
	hot    bool
	preds  []*ReducedBlock
	succs  []*ReducedBlock
}

func (self *ReducedBlock) ID() int                { return self.id }
func (self *ReducedBlock) Blocks() []*ir.Block    { return self.blocks }
func (self *ReducedBlock) Size() int              { return self.size }
func (self *ReducedBlock) Hot() bool              { return self.hot }
func (self *ReducedBlock) Preds() []*ReducedBlock { return self.preds }
func (self *ReducedBlock) Succs() []*ReducedBlock { return self.succs }

// ReducedCFG is the component DAG of one method. Reduced block ids follow
// the deterministic component order, so two reductions of the same graph
// are identical.
type ReducedCFG struct {
	cfg    *ir.ControlFlowGraph
	blocks []*ReducedBlock
	of     map[*ir.Block]*ReducedBlock
	dom    ir.DominatorTree
	hasDom bool
}

// Reduce collapses the CFG's strongly connected components into a DAG of
// reduced blocks carrying combined size and hotness.
func Reduce(cfg *ir.ControlFlowGraph) *ReducedCFG {
	self := &ReducedCFG{cfg: cfg, of: make(map[*ir.Block]*ReducedBlock)}
	for i, comp := range cfg.SCCs() {
		rb := &ReducedBlock{id: i, blocks: comp}
		for _, b := range comp {
			rb.size += b.CodeUnits()
			if b.Hot() {
				rb.hot = true
			}
			self.of[b] = rb
		}
		self.blocks = append(self.blocks, rb)
	}
	seen := make(map[[2]int]bool)
	for _, rb := range self.blocks {
		for _, b := range rb.blocks {
			for _, e := range b.Succs() {
				if e.Kind() == ir.EdgeGhost {
					continue
				}
				tgt := self.of[e.Tgt()]
				if tgt == rb || seen[[2]int{rb.id, tgt.id}] {
					continue
				}
				seen[[2]int{rb.id, tgt.id}] = true
				rb.succs = append(rb.succs, tgt)
				tgt.preds = append(tgt.preds, rb)
			}
		}
	}
	for _, rb := range self.blocks {
		sortReduced(rb.preds)
		sortReduced(rb.succs)
	}
	return self
}

func sortReduced(rbs []*ReducedBlock) {
	sort.Slice(rbs, func(i, j int) bool { return rbs[i].id < rbs[j].id })
}

// Blocks returns the reduced blocks in component order.
func (self *ReducedCFG) Blocks() []*ReducedBlock { return self.blocks }

// Entry returns the reduced block holding the CFG entry.
func (self *ReducedCFG) Entry() *ReducedBlock { return self.of[self.cfg.Entry()] }

// Of maps an original block to its component.
func (self *ReducedCFG) Of(b *ir.Block) *ReducedBlock { return self.of[b] }

func (self *ReducedCFG) dominators() ir.DominatorTree {
	if !self.hasDom {
		self.dom = self.cfg.BuildDominatorTree()
		self.hasDom = true
	}
	return self.dom
}

/* descendants collects rb and every reduced block reachable from it. */
func descendants(rb *ReducedBlock, into map[*ReducedBlock]bool) {
	if into[rb] {
		return
	}
	into[rb] = true
	for _, s := range rb.succs {
		descendants(s, into)
	}
}

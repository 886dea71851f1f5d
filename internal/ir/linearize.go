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

/* _CatchChain is one distinct ordered handler signature, reified back into
 * linked CatchMarker items at linearization. */
type _CatchChain struct {
	head     *CatchMarker
	markers  []*CatchMarker
	handlers []*Block
}

// linearize emits the blocks in id order as a fresh flat item list. Every
// emitted object is newly allocated, so the result is independent of the
// graph. Goto instructions are kept where the block still ends in one and
// synthesized where an unconditional edge cannot fall through; labels are
// renumbered in emission order; try regions are re-established around
// maximal runs of blocks sharing a handler chain.
func (self *ControlFlowGraph) linearize() []MethodItem {
	blocks := self.Blocks()
	pos := make(map[*Block]int, len(blocks))
	for i, b := range blocks {
		pos[b] = i
	}
	isNext := func(src, tgt *Block) bool {
		i := pos[src]
		return i+1 < len(blocks) && blocks[i+1] == tgt
	}

	/* decide which blocks end in an explicit goto instruction */
	explicit := make(map[*Block]bool)
	for _, b := range blocks {
		e := b.GotoEdge()
		if e == nil {
			continue
		}
		if t := b.Terminator(); t != nil && t.Op().IsGoto() {
			explicit[b] = true
		} else if !isNext(b, e.tgt) {
			explicit[b] = true
		}
	}

	/* canonical label numbering, in emission order of the labeled blocks */
	need := make(map[*Block]bool)
	for _, b := range blocks {
		for _, e := range b.succs {
			if e.kind == EdgeBranch || (e.kind == EdgeGoto && explicit[b]) {
				need[e.tgt] = true
			}
		}
	}
	labels := make(map[*Block]int)
	for _, b := range blocks {
		if need[b] {
			labels[b] = len(labels)
		}
	}
	labelOf := func(b *Block) int {
		l, ok := labels[b]
		if !ok {
			panic(fmt.Sprintf("block B%d was never assigned a label", b.id))
		}
		return l
	}

	/* reify handler chains, one per distinct throw signature */
	chains := make(map[string]*_CatchChain)
	sigOf := make(map[*Block]*_CatchChain)
	marksAt := make(map[*Block][]*CatchMarker)
	for _, b := range blocks {
		tes := b.ThrowEdges()
		if len(tes) == 0 {
			continue
		}
		key := ""
		for _, e := range tes {
			if e.catchType != nil {
				key += e.catchType.String()
			}
			key += fmt.Sprintf("@%d;", e.tgt.id)
		}
		ci := chains[key]
		if ci == nil {
			ci = new(_CatchChain)
			prev := (*CatchMarker)(nil)
			for _, e := range tes {
				m := &CatchMarker{Type: e.catchType}
				if prev == nil {
					ci.head = m
				} else {
					prev.Next = m
				}
				prev = m
				ci.markers = append(ci.markers, m)
				ci.handlers = append(ci.handlers, e.tgt)
				marksAt[e.tgt] = append(marksAt[e.tgt], m)
			}
			chains[key] = ci
		}
		sigOf[b] = ci
	}

	/* emit */
	items := []MethodItem(nil)
	open := (*_CatchChain)(nil)
	for _, b := range blocks {
		sig := sigOf[b]
		if open != nil && (b.IsCatchHandler() || (sig != nil && sig != open)) {
			items = append(items, &TryMarker{Kind: TryEnd, Catch: open.head})
			open = nil
		}
		for _, m := range marksAt[b] {
			items = append(items, m)
		}
		if need[b] {
			items = append(items, &Label{ID: labelOf(b)})
		}
		if sig != nil && open == nil {
			items = append(items, &TryMarker{Kind: TryStart, Catch: sig.head})
			open = sig
		}
		items = self.emitBlock(items, b, explicit[b], labelOf)
	}
	if open != nil {
		items = append(items, &TryMarker{Kind: TryEnd, Catch: open.head})
	}
	return items
}

func (self *ControlFlowGraph) emitBlock(items []MethodItem, b *Block, explicit bool, labelOf func(*Block) int) []MethodItem {
	last := b.LastInsn()
	for _, it := range b.items {
		switch v := it.(type) {
		case *IRInstruction:
			c := v.Clone()
			if v == last {
				self.fixTerminator(b, c, labelOf)
			}
			items = append(items, c)
		case *DebugPosition:
			items = append(items, &DebugPosition{File: v.File, Line: v.Line})
		case *SourceBlock:
			items = append(items, v.Clone(false))
		default:
			panic(fmt.Sprintf("stale %T inside block B%d", it, b.id))
		}
	}
	if explicit && (last == nil || !last.Op().IsGoto()) {
		items = append(items, NewInsn(OpGoto).SetTarget(labelOf(b.GotoTarget())))
	}
	return items
}

func (self *ControlFlowGraph) fixTerminator(b *Block, c *IRInstruction, labelOf func(*Block) int) {
	switch {
	case c.Op().IsGoto():
		tgt := b.GotoTarget()
		if tgt == nil {
			panic(fmt.Sprintf("goto block B%d lost its edge", b.id))
		}
		c.target = labelOf(tgt)
	case c.Op().IsConditionalBranch():
		be := b.BranchEdges()
		if len(be) != 1 {
			panic(fmt.Sprintf("conditional block B%d has %d taken edges", b.id, len(be)))
		}
		c.target = labelOf(be[0].tgt)
	case c.Op().IsSwitch():
		be := b.BranchEdges() // already in case-key order
		c.keys = make([]int64, len(be))
		c.targets = make([]int, len(be))
		for i, e := range be {
			c.keys[i] = *e.caseKey
			c.targets[i] = labelOf(e.tgt)
		}
	}
}

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

// Mutation buffers item-level edits against a CFG so callers can keep
// iterating the blocks they are rewriting. Edits are anchored to the item
// they modify and take effect all at once on Flush.
type Mutation struct {
	cfg *ControlFlowGraph
	ops map[MethodItem]*_ItemOps
}

type _ItemOps struct {
	before   []MethodItem
	after    []MethodItem
	repl     []MethodItem
	replaced bool
	removed  bool
}

func (self *ControlFlowGraph) NewMutation() *Mutation {
	return &Mutation{cfg: self, ops: make(map[MethodItem]*_ItemOps)}
}

func (self *Mutation) at(anchor MethodItem) *_ItemOps {
	ops := self.ops[anchor]
	if ops == nil {
		ops = new(_ItemOps)
		self.ops[anchor] = ops
	}
	return ops
}

// InsertBefore schedules items to appear immediately before the anchor.
func (self *Mutation) InsertBefore(anchor MethodItem, items ...MethodItem) {
	ops := self.at(anchor)
	ops.before = append(ops.before, items...)
}

// InsertAfter schedules items to appear immediately after the anchor.
func (self *Mutation) InsertAfter(anchor MethodItem, items ...MethodItem) {
	ops := self.at(anchor)
	ops.after = append(ops.after, items...)
}

// Replace schedules the anchor to be substituted by items.
func (self *Mutation) Replace(anchor MethodItem, items ...MethodItem) {
	ops := self.at(anchor)
	if ops.removed {
		panic("anchor already scheduled for removal")
	}
	ops.repl = items
	ops.replaced = true
}

// Remove schedules the anchor's removal.
func (self *Mutation) Remove(anchor MethodItem) {
	ops := self.at(anchor)
	if ops.replaced {
		panic("anchor already scheduled for replacement")
	}
	ops.removed = true
}

// Flush applies every buffered edit in one pass over the blocks and resets
// the buffer.
func (self *Mutation) Flush() {
	if len(self.ops) == 0 {
		return
	}
	for _, b := range self.cfg.Blocks() {
		self.flushBlock(b)
	}
	self.ops = make(map[MethodItem]*_ItemOps)
}

func (self *Mutation) flushBlock(b *Block) {
	touched := false
	for _, it := range b.items {
		if _, ok := self.ops[it]; ok {
			touched = true
			break
		}
	}
	if !touched {
		return
	}
	items := make([]MethodItem, 0, len(b.items))
	for _, it := range b.items {
		ops := self.ops[it]
		if ops == nil {
			items = append(items, it)
			continue
		}
		items = append(items, ops.before...)
		switch {
		case ops.replaced:
			items = append(items, ops.repl...)
		case ops.removed:
			// dropped
		default:
			items = append(items, it)
		}
		items = append(items, ops.after...)
	}
	b.items = items
}

// SplitBlock cuts b in two after the item at index at. The new block takes
// the remaining items and every outgoing edge; the halves are joined by a
// goto edge. Callers must not cut between an instruction and its
// move-result companion.
func (self *ControlFlowGraph) SplitBlock(b *Block, at int) *Block {
	if at < 0 || at >= len(b.items)-1 {
		panic("split point outside the block")
	}
	nb := self.CreateBlock()
	nb.items = append(nb.items, b.items[at+1:]...)
	b.items = b.items[:at+1]
	for _, e := range b.succs {
		e.src = nb
	}
	nb.succs = b.succs
	b.succs = nil
	self.AddEdge(b, nb, EdgeGoto)
	return nb
}

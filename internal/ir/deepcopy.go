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

// DeepCopy duplicates the graph with every block, instruction and edge,
// exception edges included. Block ids are preserved. The ghost exit is not
// carried over; the copy recomputes it on demand. The returned map links
// each source block to its copy.
func (self *ControlFlowGraph) DeepCopy() (*ControlFlowGraph, map[*Block]*Block) {
	ret := &ControlFlowGraph{regs: self.regs}
	m := make(map[*Block]*Block, len(self.slots))

	ret.slots = make([]*Block, len(self.slots))
	for i, b := range self.slots {
		if b == nil || b.ghost {
			continue
		}
		nb := &Block{id: b.id, owner: ret, items: copyItems(b.items)}
		ret.slots[i] = nb
		m[b] = nb
	}
	for _, b := range self.slots {
		if b == nil || b.ghost {
			continue
		}
		for _, e := range b.succs {
			if e.kind == EdgeGhost {
				continue
			}
			ne := ret.AddEdge(m[e.src], m[e.tgt], e.kind)
			if e.caseKey != nil {
				key := *e.caseKey
				ne.caseKey = &key
			}
			ne.catchType = e.catchType
			ne.throwIndex = e.throwIndex
		}
	}
	ret.entry = m[self.entry]
	return ret, m
}

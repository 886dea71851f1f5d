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

package mflow

import (
	"sort"

	"github.com/cloudwego/rdx/internal/ir"
)

// prune drops candidate nodes whose operand constraints cannot be met, and
// keeps going until the remaining graph is self-consistent. Starting from
// the full candidate set makes the removed set minimal.
func (self *_Analysis) prune() {
	for changed := true; changed; {
		changed = false
		for _, loc := range self.reach {
			for _, insn := range self.order[loc] {
				n := _Node{loc: loc, insn: insn}
				if self.viable[n] && !self.satisfied(n) {
					delete(self.viable, n)
					changed = true
				}
			}
		}
	}
}

func (self *_Analysis) satisfied(n _Node) bool {
	for i := 0; i < n.insn.SrcCount(); i++ {
		c := self.flow.locs[n.loc].constraintFor(i)
		if c == nil {
			continue
		}
		evs := self.events[_NodeSrc{loc: n.loc, insn: n.insn, op: i}]
		hits := 0
		for _, ev := range evs {
			if ev.matched && self.viable[_Node{loc: c.other, insn: ev.producer}] {
				hits++
			}
		}
		switch c.flags.quant() {
		case Forall:
			if hits != len(evs) {
				return false
			}
		case Unique:
			if len(evs) != 1 || hits != 1 {
				return false
			}
		default:
			if hits == 0 {
				return false
			}
		}
	}
	return true
}

// Matches is the immutable result of evaluating a flow against one CFG.
type Matches struct {
	flow  *Flow
	insns map[int][]*ir.IRInstruction
	srcs  map[_NodeSrc][]*ir.IRInstruction
}

/* only nodes reachable from a surviving root node along matching edges count
 * as results; a stray candidate that nothing demanded is not a match */
func (self *_Analysis) matches() *Matches {
	reached := make(map[_Node]bool)
	stack := []_Node(nil)
	for _, insn := range self.order[self.root] {
		if n := (_Node{loc: self.root, insn: insn}); self.viable[n] {
			reached[n] = true
			stack = append(stack, n)
		}
	}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for i := 0; i < n.insn.SrcCount(); i++ {
			c := self.flow.locs[n.loc].constraintFor(i)
			if c == nil {
				continue
			}
			for _, ev := range self.events[_NodeSrc{loc: n.loc, insn: n.insn, op: i}] {
				p := _Node{loc: c.other, insn: ev.producer}
				if ev.matched && self.viable[p] && !reached[p] {
					reached[p] = true
					stack = append(stack, p)
				}
			}
		}
	}

	ret := &Matches{
		flow:  self.flow,
		insns: make(map[int][]*ir.IRInstruction, len(self.reach)),
		srcs:  make(map[_NodeSrc][]*ir.IRInstruction),
	}
	for _, loc := range self.reach {
		for _, insn := range self.order[loc] {
			if reached[_Node{loc: loc, insn: insn}] {
				ret.insns[loc] = append(ret.insns[loc], insn)
			}
		}
	}
	for key, evs := range self.events {
		if !reached[_Node{loc: key.loc, insn: key.insn}] {
			continue
		}
		c := self.flow.locs[key.loc].constraintFor(key.op)
		list := []*ir.IRInstruction(nil)
		for _, ev := range evs {
			if ev.matched && reached[_Node{loc: c.other, insn: ev.producer}] {
				list = append(list, ev.producer)
			}
		}
		if len(list) > 0 {
			sort.Slice(list, func(i, j int) bool { return self.pos[list[i]] < self.pos[list[j]] })
			ret.srcs[key] = list
		}
	}
	return ret
}

// Matching returns the instructions matched at loc, in code order. The
// returned slice is shared with the snapshot and must not be mutated.
func (self *Matches) Matching(loc Location) []*ir.IRInstruction {
	self.check(loc)
	return self.insns[loc.idx]
}

// MatchingSrc returns the producers matched for operand i of insn, given
// that insn itself matched at loc. Operands without a constraint have no
// producers.
func (self *Matches) MatchingSrc(loc Location, insn *ir.IRInstruction, i int) []*ir.IRInstruction {
	self.check(loc)
	return self.srcs[_NodeSrc{loc: loc.idx, insn: insn, op: i}]
}

func (self *Matches) check(loc Location) {
	if loc.flow != self.flow {
		panic("location belongs to a different flow")
	}
}

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
	"github.com/cloudwego/rdx/internal/fixpoint"
	"github.com/cloudwego/rdx/internal/ir"
)

/* obligations wait on the register that must supply them; _ResultReg parks
 * the ones that chased a move-result and wait on its primary instruction */
const _ResultReg = -1

// _Obligation says "operand op of insn, matched at location loc, still needs
// its producer". It travels backwards until a definition discharges it.
type _Obligation struct {
	loc  int
	insn *ir.IRInstruction
	op   int
}

type _ObSet map[_Obligation]struct{}

type _ObState map[int]_ObSet

func (self _ObState) clone() _ObState {
	ret := make(_ObState, len(self))
	for reg, obs := range self {
		cp := make(_ObSet, len(obs))
		for o := range obs {
			cp[o] = struct{}{}
		}
		ret[reg] = cp
	}
	return ret
}

func (self _ObState) leq(other _ObState) bool {
	for reg, obs := range self {
		have := other[reg]
		for o := range obs {
			if _, ok := have[o]; !ok {
				return false
			}
		}
	}
	return true
}

func attach(st _ObState, reg int, o _Obligation) {
	obs := st[reg]
	if obs == nil {
		obs = make(_ObSet, 1)
		st[reg] = obs
	}
	obs[o] = struct{}{}
}

type _ObligationDomain struct {
	a *_Analysis
}

func (self *_ObligationDomain) Bottom() fixpoint.State {
	return _ObState(nil)
}

func (self *_ObligationDomain) Join(a, b fixpoint.State) fixpoint.State {
	ret := a.(_ObState).clone()
	for reg, obs := range b.(_ObState) {
		for o := range obs {
			attach(ret, reg, o)
		}
	}
	return ret
}

/* the obligation lattice is finite, joining converges on its own */
func (self *_ObligationDomain) Widen(a, b fixpoint.State) fixpoint.State {
	return self.Join(a, b)
}

func (self *_ObligationDomain) Leq(a, b fixpoint.State) bool {
	return a.(_ObState).leq(b.(_ObState))
}

/* the engine walks the reversed graph, so the incoming state holds the
 * obligations demanded below the block and the result holds the ones it
 * passes on to its predecessors */
func (self *_ObligationDomain) Transfer(node int, in fixpoint.State) fixpoint.State {
	st := in.(_ObState).clone()
	insns := self.a.cfg.GetBlock(node).Insns()
	for i := len(insns) - 1; i >= 0; i-- {
		self.a.stepBack(st, insns[i], nil)
	}
	return st
}

type _Node struct {
	loc  int
	insn *ir.IRInstruction
}

type _NodeSrc struct {
	loc  int
	insn *ir.IRInstruction
	op   int
}

type _Event struct {
	producer *ir.IRInstruction
	matched  bool
}

type _Analysis struct {
	flow *Flow
	cfg  *ir.ControlFlowGraph
	root int

	reach  []int // locations the root depends on, in discovery order
	cand   map[int]map[*ir.IRInstruction]bool
	order  map[int][]*ir.IRInstruction // per location, in code order
	pos    map[*ir.IRInstruction]int
	events map[_NodeSrc][]_Event
	viable map[_Node]bool
}

func newAnalysis(flow *Flow, cfg *ir.ControlFlowGraph, root int) *_Analysis {
	return &_Analysis{
		flow:   flow,
		cfg:    cfg,
		root:   root,
		cand:   make(map[int]map[*ir.IRInstruction]bool),
		order:  make(map[int][]*ir.IRInstruction),
		pos:    make(map[*ir.IRInstruction]int),
		events: make(map[_NodeSrc][]_Event),
		viable: make(map[_Node]bool),
	}
}

func (self *_Analysis) run() {
	self.discover()
	self.scan()
	self.analyze()
	self.prune()
}

/* only locations reachable from the root through constraints take part */
func (self *_Analysis) discover() {
	seen := map[int]bool{self.root: true}
	self.reach = append(self.reach, self.root)
	for i := 0; i < len(self.reach); i++ {
		for _, c := range self.flow.locs[self.reach[i]].cons {
			if !seen[c.other] {
				seen[c.other] = true
				self.reach = append(self.reach, c.other)
			}
		}
	}
}

/* candidate nodes are every (location, instruction) pair whose predicate
 * holds, collected in code order so the results come out deterministic */
func (self *_Analysis) scan() {
	for _, loc := range self.reach {
		self.cand[loc] = make(map[*ir.IRInstruction]bool)
	}
	n := 0
	for _, b := range self.cfg.Blocks() {
		for _, insn := range b.Insns() {
			self.pos[insn] = n
			n++
			for _, loc := range self.reach {
				if self.flow.locs[loc].pred(insn) {
					self.cand[loc][insn] = true
					self.order[loc] = append(self.order[loc], insn)
					self.viable[_Node{loc: loc, insn: insn}] = true
				}
			}
		}
	}
}

// analyze runs the instruction-constraint analysis to a fixpoint, then
// replays each block once against its settled state, recording which
// definition discharges which obligation.
func (self *_Analysis) analyze() {
	exit := self.cfg.EnsureExit()
	g := fixpoint.Reverse(ir.FixpointGraph(self.cfg), exit.ID())
	eng := fixpoint.New(g, &_ObligationDomain{a: self})
	eng.Run(_ObState(nil))

	for _, b := range self.cfg.Blocks() {
		st := eng.EntryState(b.ID()).(_ObState).clone()
		insns := b.Insns()
		for i := len(insns) - 1; i >= 0; i-- {
			self.stepBack(st, insns[i], self.record)
		}
	}
}

/* one backward step: definitions discharge or forward the obligations parked
 * on them, then a candidate instruction parks fresh obligations on every
 * register it reads under a constraint */
func (self *_Analysis) stepBack(st _ObState, insn *ir.IRInstruction, sink func(_Obligation, *ir.IRInstruction, bool)) {
	if insn.HasDest() {
		self.resolve(st, int(insn.Dest()), insn, sink)
		if insn.DestIsWide() {
			self.resolve(st, int(insn.Dest())+1, insn, sink)
		}
	}
	if insn.Op().HasMoveResult() || insn.Op().HasMoveResultPseudo() {
		self.resolve(st, _ResultReg, insn, sink)
	}
	for _, loc := range self.reach {
		if !self.cand[loc][insn] {
			continue
		}
		for i := 0; i < insn.SrcCount(); i++ {
			if self.flow.locs[loc].constraintFor(i) != nil {
				attach(st, int(insn.Src(i)), _Obligation{loc: loc, insn: insn, op: i})
			}
		}
	}
}

func (self *_Analysis) resolve(st _ObState, reg int, def *ir.IRInstruction, sink func(_Obligation, *ir.IRInstruction, bool)) {
	obs := st[reg]
	if obs == nil {
		return
	}
	delete(st, reg)
	for o := range obs {
		c := self.flow.locs[o.loc].constraintFor(o.op)
		switch {
		case def.Op().IsMove() && c.flags.alias() != Dest:
			attach(st, int(def.Src(0)), o)
		case def.Op().IsMoveResultAny() && c.flags.alias() == Result:
			attach(st, _ResultReg, o)
		default:
			if sink != nil {
				sink(o, def, self.cand[c.other][def])
			}
		}
	}
}

func (self *_Analysis) record(o _Obligation, producer *ir.IRInstruction, matched bool) {
	key := _NodeSrc{loc: o.loc, insn: o.insn, op: o.op}
	for _, ev := range self.events[key] {
		if ev.producer == producer {
			return
		}
	}
	self.events[key] = append(self.events[key], _Event{producer: producer, matched: matched})
}

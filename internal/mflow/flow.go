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

// Package mflow matches instructions by what they are and by where their
// operands come from. A pattern is a set of locations, each an instruction
// predicate plus constraints on individual operands; evaluating it against a
// CFG yields the sub-graph of instructions satisfying the whole pattern.
package mflow

import (
	"fmt"

	"github.com/cloudwego/rdx/internal/ir"
)

// Predicate tests one instruction in isolation.
type Predicate func(*ir.IRInstruction) bool

// Flags adjust one operand constraint: the alias bits pick how far the
// analysis chases producers, the quantifier bits pick how many of the
// reaching producers have to satisfy the constraint. The zero value is
// Dest | Exists.
type Flags uint8

const (
	Dest   Flags = 0      // the operand register is written by the producer itself
	Alias  Flags = 1      // additionally chase the register through move chains
	Result Flags = 2      // additionally skip move-results onto their primary instruction
	Exists Flags = 0 << 2 // at least one reaching producer must match
	Forall Flags = 1 << 2 // every reaching producer must match, vacuously true without any
	Unique Flags = 2 << 2 // exactly one producer may reach the operand, and it must match

	_AliasMask Flags = 0x03
	_QuantMask Flags = 0x0c
)

func (self Flags) alias() Flags { return self & _AliasMask }
func (self Flags) quant() Flags { return self & _QuantMask }

// Flow is a pattern under construction. Locations are registered on it and
// stay bound to it; evaluation does not consume the flow, so one pattern can
// be matched against any number of CFGs.
type Flow struct {
	locs []_Location
}

// Location names one instruction constraint within a flow.
type Location struct {
	flow *Flow
	idx  int
}

type _Constraint struct {
	op    int // exact operand index, or -1 when ranged
	lb    int // first operand covered when ranged
	other int // location the producer has to match
	flags Flags
}

type _Location struct {
	pred Predicate
	cons []_Constraint
}

func NewFlow() *Flow {
	return new(Flow)
}

// Insn registers an instruction constraint and returns its location token.
func (self *Flow) Insn(pred Predicate) Location {
	if pred == nil {
		panic("nil instruction predicate")
	}
	self.locs = append(self.locs, _Location{pred: pred})
	return Location{flow: self, idx: len(self.locs) - 1}
}

// Src constrains operand i to be supplied by an instruction matching other.
func (self Location) Src(i int, other Location, flags Flags) Location {
	if i < 0 {
		panic(fmt.Sprintf("negative operand index %d", i))
	}
	self.addConstraint(_Constraint{op: i, other: other.idx, flags: flags}, other)
	return self
}

// SrcsFrom constrains every operand with index lb or higher. An individual
// Src on an operand, or a narrower range, takes precedence.
func (self Location) SrcsFrom(lb int, other Location, flags Flags) Location {
	if lb < 0 {
		panic(fmt.Sprintf("negative operand index %d", lb))
	}
	self.addConstraint(_Constraint{op: -1, lb: lb, other: other.idx, flags: flags}, other)
	return self
}

func (self Location) addConstraint(c _Constraint, other Location) {
	if other.flow != self.flow {
		panic("location belongs to a different flow")
	}
	loc := &self.flow.locs[self.idx]
	loc.cons = append(loc.cons, c)
}

/* src beats srcs_from, a narrower range beats a broader one, and the
 * earliest registered constraint wins remaining ties */
func (self *_Location) constraintFor(i int) *_Constraint {
	for k := range self.cons {
		if c := &self.cons[k]; c.op == i {
			return c
		}
	}
	ret := (*_Constraint)(nil)
	for k := range self.cons {
		c := &self.cons[k]
		if c.op < 0 && c.lb <= i && (ret == nil || c.lb > ret.lb) {
			ret = c
		}
	}
	return ret
}

// Find evaluates the pattern rooted at root against cfg and returns an
// immutable snapshot of the matching sub-graph.
func (self *Flow) Find(cfg *ir.ControlFlowGraph, root Location) *Matches {
	if root.flow != self {
		panic("root location belongs to a different flow")
	}
	a := newAnalysis(self, cfg, root.idx)
	a.run()
	return a.matches()
}

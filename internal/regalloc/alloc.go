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

// Package regalloc compacts method register frames. Registers are renumbered
// with a linear scan over live ranges, so frames inflated by temporaries and
// splitting shrink back to the registers actually alive at the same time.
package regalloc

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/cloudwego/rdx/internal/ir"
)

type _LivePoint struct {
	b int
	i int
}

func (self _LivePoint) String() string {
	return fmt.Sprintf("%d:%d", self.b, self.i)
}

func (self _LivePoint) isPriorTo(other _LivePoint) bool {
	return self.b < other.b || (self.b == other.b && self.i < other.i)
}

/* a register's usage positions in block serialization order, extended to
 * block boundaries wherever liveness crosses them. Wide ranges claim the
 * register pair. */
type _LiveRange struct {
	p    []_LivePoint
	wide bool
}

func (self *_LiveRange) first() _LivePoint { return self.p[0] }
func (self *_LiveRange) last() _LivePoint  { return self.p[len(self.p)-1] }

// Result reports one method's allocation.
type Result struct {
	In        uint32 // frame size before
	Out       uint32 // frame size after
	Conflicts int    // check-cast pairs kept apart for a catch handler
}

// Allocator reassigns the registers of method bodies.
type Allocator struct {
	DrawDir string // when set, dump each method's live ranges as svg here
}

// Allocate renumbers every register in m's body to the smallest frame the
// live ranges admit and updates the registers size. The body is left in CFG
// form.
func (self *Allocator) Allocate(m *ir.DexMethod) Result {
	code := m.Code()
	if !code.CFGBuilt() {
		code.BuildCFG()
	}
	cfg := code.CFG()
	in := cfg.RegistersSize()

	live := ir.AnalyzeLiveness(cfg)
	blocks := cfg.Blocks()
	ranges := buildRanges(blocks, live)
	conflicts, ncf := castConflicts(blocks, live)
	if self.DrawDir != "" {
		drawLiveRanges(filepath.Join(self.DrawDir, drawName(m)), blocks, ranges)
	}

	regmap, frame := scanRanges(ranges, conflicts)
	rewrite(blocks, regmap)
	cfg.SetRegistersSize(uint32(frame))
	return Result{In: in, Out: uint32(frame), Conflicts: ncf}
}

/* buildRanges marks every operand position, then stretches each range
 * across the block boundaries its register is live over. Only registers
 * that appear as operands get a range: the high half of a wide pair rides
 * on its low register. */
func buildRanges(blocks []*ir.Block, live *ir.LivenessAnalysis) map[ir.Reg]*_LiveRange {
	regs := make(map[ir.Reg]*_LiveRange)
	mark := func(r ir.Reg, wide bool, b, i int) {
		lr, ok := regs[r]
		if !ok {
			lr = new(_LiveRange)
			regs[r] = lr
		}
		lr.p = append(lr.p, _LivePoint{b, i})
		lr.wide = lr.wide || wide
	}

	for b, bb := range blocks {
		for i, insn := range bb.Insns() {
			for j := 0; j < insn.SrcCount(); j++ {
				mark(insn.Src(j), insn.SrcIsWide(j), b, i)
			}
			if insn.HasDest() {
				mark(insn.Dest(), insn.DestIsWide(), b, i)
			}
		}
	}

	for b, bb := range blocks {
		in, out := live.LiveIn(bb), live.LiveOut(bb)
		n := len(bb.Insns())
		for r, lr := range regs {
			if in.Has(int(r)) {
				lr.p = append(lr.p, _LivePoint{b, -1})
			}
			if out.Has(int(r)) {
				lr.p = append(lr.p, _LivePoint{b, n})
			}
		}
	}

	for _, lr := range regs {
		sort.Slice(lr.p, func(i, j int) bool { return lr.p[i].isPriorTo(lr.p[j]) })
	}
	return regs
}

/* castConflicts pins down the check-cast rule: the pseudo result may not
 * land on the cast source's register when the source is live into one of
 * the block's catch handlers, even if the two ranges never overlap. */
func castConflicts(blocks []*ir.Block, live *ir.LivenessAnalysis) (map[ir.Reg][]ir.Reg, int) {
	ret := make(map[ir.Reg][]ir.Reg)
	n := 0
	for _, b := range blocks {
		insns := b.Insns()
		for i, insn := range insns {
			if insn.Op() != ir.OpCheckCast || i+1 >= len(insns) {
				continue
			}
			mrp := insns[i+1]
			if mrp.Op() != ir.OpMoveResultPseudoObject {
				continue
			}
			src, dst := insn.Src(0), mrp.Dest()
			if src == dst {
				continue
			}
			for _, e := range b.ThrowEdges() {
				if live.LiveIn(e.Tgt()).Has(int(src)) {
					ret[src] = append(ret[src], dst)
					ret[dst] = append(ret[dst], src)
					n++
					break
				}
			}
		}
	}
	return ret, n
}

/* scanRanges is the linear scan proper: ranges sorted by starting point,
 * an active set sorted by end point, expired slots returned to a sorted
 * free list so the lowest numbers are reused first. There is no spilling,
 * the frame simply grows when nothing fits. */
func scanRanges(regs map[ir.Reg]*_LiveRange, conflicts map[ir.Reg][]ir.Reg) (map[ir.Reg]int, int) {
	ranges := make([]ir.Reg, 0, len(regs))
	for r := range regs {
		ranges = append(ranges, r)
	}
	sort.Slice(ranges, func(i, j int) bool {
		pi, pj := regs[ranges[i]].first(), regs[ranges[j]].first()
		if pi == pj {
			return ranges[i] < ranges[j]
		}
		return pi.isPriorTo(pj)
	})

	next := 0
	free := []int(nil)
	active := []ir.Reg(nil)
	regmap := make(map[ir.Reg]int, len(regs))

	/* assignments persist past expiry here: the cast rule is about final
	 * slot identity, not range overlap */
	forbidden := func(r ir.Reg, s int) bool {
		for _, q := range conflicts[r] {
			if qs, ok := regmap[q]; ok && (s == qs || (regs[q].wide && s == qs+1)) {
				return true
			}
		}
		return false
	}

	addActive := func(r ir.Reg) {
		end := regs[r].last()
		pos := sort.Search(len(active), func(i int) bool { return !regs[active[i]].last().isPriorTo(end) })
		active = append(active, 0)
		copy(active[pos+1:], active[pos:])
		active[pos] = r
	}

	expire := func(r ir.Reg) {
		for len(active) > 0 && regs[active[0]].last().isPriorTo(regs[r].first()) {
			s := regmap[active[0]]
			free = insertSorted(free, s)
			if regs[active[0]].wide {
				free = insertSorted(free, s+1)
			}
			active = active[1:]
		}
	}

	place := func(r ir.Reg) int {
		if regs[r].wide {
			for i := 0; i+1 < len(free); i++ {
				if free[i+1] == free[i]+1 && !forbidden(r, free[i]) && !forbidden(r, free[i]+1) {
					s := free[i]
					free = append(free[:i], free[i+2:]...)
					return s
				}
			}
			/* a lone free slot at the frame top pairs with one fresh slot */
			if n := len(free); n > 0 && free[n-1] == next-1 && !forbidden(r, next-1) {
				s := next - 1
				free = free[:n-1]
				next++
				return s
			}
			s := next
			next += 2
			return s
		}
		for i, s := range free {
			if !forbidden(r, s) {
				free = append(free[:i], free[i+1:]...)
				return s
			}
		}
		s := next
		next++
		return s
	}

	for _, r := range ranges {
		expire(r)
		regmap[r] = place(r)
		addActive(r)
	}
	return regmap, next
}

func rewrite(blocks []*ir.Block, regmap map[ir.Reg]int) {
	for _, b := range blocks {
		for _, insn := range b.Insns() {
			if n := insn.SrcCount(); n > 0 {
				srcs := make([]ir.Reg, n)
				for i := 0; i < n; i++ {
					srcs[i] = ir.Reg(regmap[insn.Src(i)])
				}
				insn.SetSrcs(srcs...)
			}
			if insn.HasDest() {
				insn.SetDest(ir.Reg(regmap[insn.Dest()]))
			}
		}
	}
}

func insertSorted(xs []int, v int) []int {
	pos := sort.SearchInts(xs, v)
	xs = append(xs, 0)
	copy(xs[pos+1:], xs[pos:])
	xs[pos] = v
	return xs
}

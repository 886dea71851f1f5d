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

package split

import (
	"fmt"
	"path/filepath"

	"golang.org/x/tools/container/intsets"

	"github.com/cloudwego/rdx/internal/ident"
	"github.com/cloudwego/rdx/internal/ir"
)

// Kind classifies a splittable closure by the heat of its entry block and
// of the blocks that jump to it.
type Kind uint8

const (
	KindHot Kind = iota
	KindHotCold
	KindCold
)

func (self Kind) String() string {
	switch self {
	case KindHot:
		return "hot"
	case KindHotCold:
		return "hot_cold"
	case KindCold:
		return "cold"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(self))
	}
}

// Config holds the splitter thresholds, all in code units unless noted.
type Config struct {
	SplitBlockSize   int     // pre-split blocks above this size
	MinOriginalSize  int     // methods below this stay whole
	MinHotSize       int     // minimum closure size with a hot entry
	MinHotColdSize   int     // minimum size for a cold entry on a hot path
	MinColdSize      int     // minimum size on fully cold paths
	MaxLiveIn        int     // parameter budget per extracted method
	MaxOverheadRatio float64 // stub units allowed relative to the method size
	MaxIteration     int     // reduction rounds per method
	Infix            string  // extra token in derived names
	DrawDir          string  // when set, dump each round's reduced graph here
}

// Stats accumulates splitting outcomes for the pass metrics.
type Stats struct {
	Closures    int64
	Hot         int64
	HotCold     int64
	Cold        int64
	Methods     int64
	Rollbacks   int64
	LimitAborts int64
}

func (self *Stats) tally(k Kind) {
	switch k {
	case KindHot:
		self.Hot++
	case KindHotCold:
		self.HotCold++
	default:
		self.Cold++
	}
}

// Budget tracks how many method and type references the enclosing dex may
// still hold. Counts are recomputed from scratch on every check, so splits
// applied earlier in the same dex are always reflected.
type Budget struct {
	dex   []*ir.DexClass
	mrefs int
	trefs int
}

func NewBudget(dex []*ir.DexClass, mrefs, trefs int) *Budget {
	return &Budget{dex: dex, mrefs: mrefs, trefs: trefs}
}

/* a dex already at the method-ref limit cannot take the one reference every
 * split adds, so splitting stops for the whole dex. */
func (self *Budget) Exhausted() bool {
	return ir.MethodRefCount(self.dex) >= self.mrefs
}

func (self *Budget) Fits() bool {
	return ir.MethodRefCount(self.dex) <= self.mrefs && ir.TypeRefCount(self.dex) <= self.trefs
}

// Splitter extracts qualifying closures of oversized methods into private
// static siblings on the declaring class.
type Splitter struct {
	ctx *ident.Context
	cfg Config
	obj *ident.Type
	i32 *ident.Type
	i64 *ident.Type
}

func NewSplitter(ctx *ident.Context, cfg Config) *Splitter {
	return &Splitter{
		ctx: ctx,
		cfg: cfg,
		obj: ctx.MakeType("Ljava/lang/Object;"),
		i32: ctx.MakeType("I"),
		i64: ctx.MakeType("J"),
	}
}

// SplitMethod reworks one method body, extracting the top-ranked closure per
// round until the method shrinks below the size threshold, nothing profitable
// remains, or the round budget runs out. It returns the methods it created
// and whether the enclosing dex hit its reference limit.
func (self *Splitter) SplitMethod(m *ir.DexMethod, budget *Budget, st *Stats) ([]*ir.DexMethod, bool) {
	code := m.Code()
	if code == nil || code.CodeUnits() < self.cfg.MinOriginalSize {
		return nil, false
	}
	if !code.CFGBuilt() {
		code.BuildCFG()
	}
	cfg := code.CFG()
	PreSplit(cfg, self.cfg.SplitBlockSize)

	var out []*ir.DexMethod
	state := &_SplitState{done: make(map[*ir.Block]bool)}
	for state.round = 0; state.round < self.cfg.MaxIteration; state.round++ {
		if code.CodeUnits() < self.cfg.MinOriginalSize {
			break
		}
		nm, aborted := self.splitOnce(m, cfg, budget, st, state)
		if aborted {
			return out, true
		}
		if nm == nil {
			break
		}
		out = append(out, nm)
		st.Methods++
	}
	return out, false
}

/* per-method splitting state: the name counter, the round number and the
 * launchpads already left behind. */
type _SplitState struct {
	counter int
	round   int
	done    map[*ir.Block]bool
}

/* splitOnce runs one reduce-score-extract round over the current graph. */
func (self *Splitter) splitOnce(m *ir.DexMethod, cfg *ir.ControlFlowGraph, budget *Budget, st *Stats, state *_SplitState) (*ir.DexMethod, bool) {
	units := m.Code().CodeUnits()
	rtype := m.Proto().ReturnType()
	live := ir.AnalyzeLiveness(cfg)
	rcfg := Reduce(cfg)
	if self.cfg.DrawDir != "" {
		DrawReduced(filepath.Join(self.cfg.DrawDir, drawName(m, state.round)), rcfg)
	}

	agg := NewAggregator()
	cands := make(map[*Closure]*_Candidate)
	for _, c := range rcfg.Closures() {
		/* a launchpad left by an earlier round must not extract itself. */
		if state.done[c.Target()] {
			continue
		}
		cand := self.score(c, live, rtype, units)
		if cand == nil {
			continue
		}
		cands[c] = cand
		agg.Insert(c, c.Components())
		st.Closures++
	}

	/* the original body is not touched until the budget admits the
	 * candidate, so a failed attempt unwinds with RemoveMethod alone. */
	for agg.Len() > 0 {
		c := agg.Front()
		if budget.Exhausted() {
			st.LimitAborts++
			return nil, true
		}
		nm := self.build(m, cfg, cands[c], &state.counter)
		m.Class().AddMethod(nm)
		if !budget.Fits() {
			m.Class().RemoveMethod(nm)
			st.Rollbacks++
			agg.Erase(c)
			continue
		}
		self.launchpad(cfg, cands[c], nm.Ref())
		state.done[c.Target()] = true
		st.tally(cands[c].kind)
		return nm, false
	}
	return nil, false
}

type _Candidate struct {
	closure *Closure
	kind    Kind
	params  []_Param
}

type _Param struct {
	reg  ir.Reg
	kind ir.RegKind
}

/* score decides whether a closure is worth extracting, returning nil when
 * any threshold says no. */
func (self *Splitter) score(c *Closure, live *ir.LivenessAnalysis, rtype *ident.Type, units int) *_Candidate {
	kind := classify(c)
	if c.Size() < self.minSize(kind) {
		return nil
	}
	in := live.LiveIn(c.Target())
	params := inferParams(c, in)
	if len(params) > self.cfg.MaxLiveIn {
		return nil
	}
	if uninitEscapes(c, in) {
		return nil
	}
	overhead := ir.OpInvokeStatic.UnitSize() + len(params)
	if !rtype.Void() {
		overhead += ir.OpMoveResult.UnitSize()
	}
	if float64(overhead) > self.cfg.MaxOverheadRatio*float64(units) {
		return nil
	}
	return &_Candidate{closure: c, kind: kind, params: params}
}

func (self *Splitter) minSize(k Kind) int {
	switch k {
	case KindHot:
		return self.cfg.MinHotSize
	case KindHotCold:
		return self.cfg.MinHotColdSize
	default:
		return self.cfg.MinColdSize
	}
}

/* classify reads heat off the source blocks: a hot entry makes a hot
 * closure, a cold entry jumped to from a hot block sits in between. */
func classify(c *Closure) Kind {
	if c.Target().Hot() {
		return KindHot
	}
	for _, s := range c.Srcs() {
		if s.Hot() {
			return KindHotCold
		}
	}
	return KindCold
}

/* inferParams orders the live-in registers ascending and types each by its
 * first use inside the region; the high half of a wide pair folds into its
 * low register. */
func inferParams(c *Closure, in *intsets.Sparse) []_Param {
	kinds := make(map[ir.Reg]ir.RegKind)
	for _, rb := range c.Components() {
		for _, b := range rb.Blocks() {
			for _, insn := range b.Insns() {
				for i := 0; i < insn.SrcCount(); i++ {
					r := insn.Src(i)
					if _, ok := kinds[r]; !ok {
						kinds[r] = insn.SrcKind(i)
					}
				}
			}
		}
	}
	regs := in.AppendTo(nil)
	params := make([]_Param, 0, len(regs))
	for i := 0; i < len(regs); i++ {
		r := ir.Reg(regs[i])
		k, ok := kinds[r]
		if !ok {
			k = ir.KindNormal
		}
		params = append(params, _Param{reg: r, kind: k})
		if k == ir.KindWide && i+1 < len(regs) && regs[i+1] == regs[i]+1 {
			i++
		}
	}
	return params
}

/* uninitEscapes reports whether a register may carry an object whose
 * constructor has not run yet at the jump into the region. The scan is
 * block-local: a new-instance result stays uninitialized until an
 * invoke-direct <init> on the same register. */
func uninitEscapes(c *Closure, in *intsets.Sparse) bool {
	for _, src := range c.Srcs() {
		pending := false
		uninit := make(map[ir.Reg]bool)
		for _, insn := range src.Insns() {
			switch {
			case insn.Op() == ir.OpNewInstance:
				pending = true
			case insn.Op().IsMoveResultPseudo() && pending:
				uninit[insn.Dest()] = true
				pending = false
			case insn.Op() == ir.OpInvokeDirect && insn.MethodRef().Name().String() == "<init>" && insn.SrcCount() > 0:
				delete(uninit, insn.Src(0))
			case insn.Op().HasDest():
				delete(uninit, insn.Dest())
			}
		}
		for r := range uninit {
			if in.Has(int(r)) {
				return true
			}
		}
	}
	return false
}

/* build assembles the extracted method: a deep copy of the whole graph,
 * trimmed to the closure, behind a fresh entry that reloads the live-in
 * registers from parameters. */
func (self *Splitter) build(m *ir.DexMethod, cfg *ir.ControlFlowGraph, cand *_Candidate, counter *int) *ir.DexMethod {
	c := cand.closure
	ncfg, bm := cfg.DeepCopy()

	keep := make(map[*ir.Block]bool)
	for _, rb := range c.Components() {
		for _, b := range rb.Blocks() {
			keep[bm[b]] = true
		}
	}
	entry := ncfg.CreateBlock()
	for _, p := range cand.params {
		entry.PushBack(loadParam(p))
	}
	ncfg.AddEdge(entry, bm[c.Target()], ir.EdgeGoto)
	ncfg.SetEntry(entry)

	var drop []*ir.Block
	for _, b := range ncfg.Blocks() {
		if b != entry && !keep[b] {
			drop = append(drop, b)
		}
	}
	for _, b := range drop {
		ncfg.RemoveBlock(b)
	}

	name, proto := self.signature(m, cand, counter)
	ref := self.ctx.MakeMethodRef(m.Class().Type(), self.ctx.MakeString(name), proto)
	nm := ir.NewMethod(ref, ir.AccPrivate|ir.AccStatic)
	nm.SetCode(ir.NewCodeFromCFG(ncfg))
	return nm
}

func loadParam(p _Param) *ir.IRInstruction {
	switch p.kind {
	case ir.KindWide:
		return ir.NewInsn(ir.OpLoadParamWide).SetDest(p.reg)
	case ir.KindObject:
		return ir.NewInsn(ir.OpLoadParamObject).SetDest(p.reg)
	default:
		return ir.NewInsn(ir.OpLoadParam).SetDest(p.reg)
	}
}

/* signature derives the sibling's name and proto; the index bumps until the
 * name is free on the class. */
func (self *Splitter) signature(m *ir.DexMethod, cand *_Candidate, counter *int) (string, *ident.Proto) {
	args := make([]*ident.Type, 0, len(cand.params))
	for _, p := range cand.params {
		switch p.kind {
		case ir.KindWide:
			args = append(args, self.i64)
		case ir.KindObject:
			args = append(args, self.obj)
		default:
			args = append(args, self.i32)
		}
	}
	proto := self.ctx.MakeProto(m.Proto().ReturnType(), args...)
	for {
		name := fmt.Sprintf("%s$split$%s%s%d", m.Name(), cand.kind, self.cfg.Infix, *counter)
		*counter++
		if m.Class().FindMethod(name, proto) == nil {
			return name, proto
		}
	}
}

/* launchpad rewrites the original target into a stub that calls the new
 * method and returns its result. Every edge into the region keeps its
 * destination; everything downstream of the call is gone. */
func (self *Splitter) launchpad(cfg *ir.ControlFlowGraph, cand *_Candidate, ref *ident.MethodRef) {
	c := cand.closure
	tgt := c.Target()
	for _, rb := range c.Components() {
		for _, b := range rb.Blocks() {
			if b != tgt {
				cfg.RemoveBlock(b)
			}
		}
	}
	for _, e := range append([]*ir.Edge(nil), tgt.Succs()...) {
		cfg.DeleteEdge(e)
	}

	var items []ir.MethodItem
	if sb := tgt.FirstSourceBlock(); sb != nil {
		/* the stub keeps a source block so profiles stay attached; a fresh
		 * one when the region was not hot at the entry. */
		items = append(items, sb.Clone(cand.kind != KindHot))
	}
	args := make([]ir.Reg, 0, len(cand.params))
	for _, p := range cand.params {
		args = append(args, p.reg)
	}
	invoke := ir.NewInsn(ir.OpInvokeStatic).SetMethod(ref).SetSrcs(args...)

	rtype := ref.Proto().ReturnType()
	switch {
	case rtype.Void():
		items = append(items, invoke, ir.NewInsn(ir.OpReturnVoid))
	case rtype.Wide():
		tmp := cfg.AllocWideTemp()
		items = append(items, invoke,
			ir.NewInsn(ir.OpMoveResultWide).SetDest(tmp),
			ir.NewInsn(ir.OpReturnWide).SetSrcs(tmp))
	case rtype.Object():
		tmp := cfg.AllocTemp()
		items = append(items, invoke,
			ir.NewInsn(ir.OpMoveResultObject).SetDest(tmp),
			ir.NewInsn(ir.OpReturnObject).SetSrcs(tmp))
	default:
		tmp := cfg.AllocTemp()
		items = append(items, invoke,
			ir.NewInsn(ir.OpMoveResult).SetDest(tmp),
			ir.NewInsn(ir.OpReturn).SetSrcs(tmp))
	}
	tgt.SetItems(items...)
}

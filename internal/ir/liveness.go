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
	"golang.org/x/tools/container/intsets"

	"github.com/cloudwego/rdx/internal/fixpoint"
)

// _CfgGraph adapts a CFG to the fixpoint graph shape: nodes are block ids,
// the ghost exit included. Edges are flattened once at construction.
type _CfgGraph struct {
	entry int
	nodes []int
	succs map[int][]int
	preds map[int][]int
}

func newCfgGraph(cfg *ControlFlowGraph) *_CfgGraph {
	g := &_CfgGraph{
		entry: cfg.entry.id,
		succs: make(map[int][]int),
		preds: make(map[int][]int),
	}
	for _, b := range cfg.slots {
		if b == nil {
			continue
		}
		g.nodes = append(g.nodes, b.id)
		g.succs[b.id] = edgeBlockIDs(b.succs, func(e *Edge) *Block { return e.tgt })
		g.preds[b.id] = edgeBlockIDs(b.preds, func(e *Edge) *Block { return e.src })
	}
	return g
}

func edgeBlockIDs(edges []*Edge, end func(*Edge) *Block) []int {
	seen := make(map[int]bool, len(edges))
	ret := []int(nil)
	for _, e := range edges {
		if id := end(e).id; !seen[id] {
			seen[id] = true
			ret = append(ret, id)
		}
	}
	return ret
}

func (self *_CfgGraph) Entry() int           { return self.entry }
func (self *_CfgGraph) Nodes() []int         { return self.nodes }
func (self *_CfgGraph) Succs(node int) []int { return self.succs[node] }
func (self *_CfgGraph) Preds(node int) []int { return self.preds[node] }

// FixpointGraph adapts the CFG to the fixpoint engine's graph interface.
// Analyses that walk backwards wrap it in fixpoint.Reverse.
func FixpointGraph(cfg *ControlFlowGraph) fixpoint.Graph {
	return newCfgGraph(cfg)
}

type _LivenessDomain struct {
	cfg *ControlFlowGraph
}

func (self *_LivenessDomain) Bottom() fixpoint.State {
	return new(intsets.Sparse)
}

func (self *_LivenessDomain) Join(a, b fixpoint.State) fixpoint.State {
	ret := new(intsets.Sparse)
	ret.Copy(a.(*intsets.Sparse))
	ret.UnionWith(b.(*intsets.Sparse))
	return ret
}

func (self *_LivenessDomain) Widen(a, b fixpoint.State) fixpoint.State {
	return self.Join(a, b)
}

func (self *_LivenessDomain) Leq(a, b fixpoint.State) bool {
	return a.(*intsets.Sparse).SubsetOf(b.(*intsets.Sparse))
}

/* the engine walks the reversed graph, so the incoming state is the block's
 * live-out and the transfer result is its live-in */
func (self *_LivenessDomain) Transfer(node int, in fixpoint.State) fixpoint.State {
	live := new(intsets.Sparse)
	live.Copy(in.(*intsets.Sparse))
	insns := self.cfg.GetBlock(node).Insns()
	for i := len(insns) - 1; i >= 0; i-- {
		LivenessStep(live, insns[i])
	}
	return live
}

// LivenessStep updates a live register set backwards across one instruction:
// the destination dies, then the sources become live. Wide values cover
// their register pair.
func LivenessStep(live *intsets.Sparse, insn *IRInstruction) {
	if insn.HasDest() {
		live.Remove(int(insn.Dest()))
		if insn.DestIsWide() {
			live.Remove(int(insn.Dest()) + 1)
		}
	}
	for i := 0; i < insn.SrcCount(); i++ {
		live.Insert(int(insn.Src(i)))
		if insn.SrcIsWide(i) {
			live.Insert(int(insn.Src(i)) + 1)
		}
	}
}

// LivenessAnalysis holds the per-block result of a backward liveness run.
type LivenessAnalysis struct {
	cfg *ControlFlowGraph
	eng *fixpoint.Engine
}

// AnalyzeLiveness runs backward liveness over the CFG. The ghost exit is
// rebuilt first, so registers stay visible through loops that never return.
func AnalyzeLiveness(cfg *ControlFlowGraph) *LivenessAnalysis {
	exit := cfg.EnsureExit()
	g := fixpoint.Reverse(newCfgGraph(cfg), exit.ID())
	eng := fixpoint.New(g, &_LivenessDomain{cfg: cfg})
	eng.Run(new(intsets.Sparse))
	return &LivenessAnalysis{cfg: cfg, eng: eng}
}

// LiveIn is the register set live on entry to b. The returned set is shared
// with the analysis and must not be mutated.
func (self *LivenessAnalysis) LiveIn(b *Block) *intsets.Sparse {
	return self.eng.ExitState(b.id).(*intsets.Sparse)
}

// LiveOut is the register set live after the last instruction of b.
func (self *LivenessAnalysis) LiveOut(b *Block) *intsets.Sparse {
	return self.eng.EntryState(b.id).(*intsets.Sparse)
}

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
	"sort"

	"github.com/oleiade/lane"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// SCCs partitions the live blocks into strongly connected components and
// returns them in a deterministic topological order: components only follow
// components that can reach them, and ties resolve to the smallest member
// id. Members are sorted by id. Ghost edges are ignored.
func (self *ControlFlowGraph) SCCs() [][]*Block {
	blocks := self.Blocks()
	if len(blocks) == 0 {
		return nil
	}

	/* mirror the graph for Tarjan; self edges do not change membership and
	 * gonum rejects them */
	g := simple.NewDirectedGraph()
	for _, b := range blocks {
		g.AddNode(simple.Node(b.id))
	}
	for _, b := range blocks {
		for _, e := range b.succs {
			if e.kind == EdgeGhost || e.tgt.ghost || e.tgt == b {
				continue
			}
			g.SetEdge(simple.Edge{F: simple.Node(b.id), T: simple.Node(e.tgt.id)})
		}
	}

	/* collect components, normalizing member order */
	comps := [][]*Block(nil)
	compOf := make(map[int]int, len(blocks))
	for _, scc := range topo.TarjanSCC(g) {
		nb := make([]*Block, 0, len(scc))
		for _, n := range scc {
			nb = append(nb, self.slots[int(n.ID())])
		}
		sort.Slice(nb, func(i, j int) bool { return nb[i].id < nb[j].id })
		for _, b := range nb {
			compOf[b.id] = len(comps)
		}
		comps = append(comps, nb)
	}

	/* deterministic Kahn ordering over the component DAG */
	indeg := make([]int, len(comps))
	succs := make([][]int, len(comps))
	seen := make(map[[2]int]bool)
	for _, b := range blocks {
		for _, e := range b.succs {
			if e.kind == EdgeGhost || e.tgt.ghost {
				continue
			}
			u, v := compOf[b.id], compOf[e.tgt.id]
			if u == v || seen[[2]int{u, v}] {
				continue
			}
			seen[[2]int{u, v}] = true
			succs[u] = append(succs[u], v)
			indeg[v]++
		}
	}
	ready := lane.NewPQueue(lane.MINPQ)
	for i, d := range indeg {
		if d == 0 {
			ready.Push(i, comps[i][0].id)
		}
	}
	ret := make([][]*Block, 0, len(comps))
	for ready.Size() != 0 {
		v, _ := ready.Pop()
		i := v.(int)
		ret = append(ret, comps[i])
		for _, j := range succs[i] {
			if indeg[j]--; indeg[j] == 0 {
				ready.Push(j, comps[j][0].id)
			}
		}
	}
	if len(ret) != len(comps) {
		panic("component graph is cyclic")
	}
	return ret
}

// HasSelfLoop reports whether b branches straight back to itself.
func (self *Block) HasSelfLoop() bool {
	for _, e := range self.succs {
		if e.tgt == self {
			return true
		}
	}
	return false
}

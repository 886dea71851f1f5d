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

package fixpoint

import (
	"sort"

	"github.com/oleiade/lane"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

type _WpoKind uint8

const (
	_WpoPlain _WpoKind = iota
	_WpoHead
	_WpoExit
)

// _WpoNode is one scheduling slot: a graph node (plain or head), or the
// synthetic exit that closes a component. A node fires when all its
// scheduling predecessors have fired.
type _WpoNode struct {
	kind   _WpoKind
	node   int   // graph node; for an exit, its component's head node
	exit   int   // head only: wpo index of the matching exit
	head   int   // exit only: wpo index of the matching head
	succs  []int // scheduling successors, wpo indices
	npreds int32
}

// _WPO is the weak partial ordering of a graph: every graph node appears
// once as a plain or head slot, and every strongly connected component adds
// one exit slot created right after its members, so a component always
// occupies the contiguous index range [head, exit].
type _WPO struct {
	nodes []_WpoNode
	of    map[int]int   // graph node -> its plain/head wpo index
	chain map[int][]int // graph node -> head indices of enclosing components, outermost first
}

type _WpoBuilder struct {
	g     Graph
	wpo   *_WPO
	loops map[int]bool
	edges map[[2]int]bool
}

func newWPO(g Graph) *_WPO {
	self := &_WpoBuilder{
		g:     g,
		wpo:   &_WPO{of: make(map[int]int), chain: make(map[int][]int)},
		loops: make(map[int]bool),
		edges: make(map[[2]int]bool),
	}
	nodes := g.Nodes()
	for _, u := range nodes {
		for _, v := range g.Succs(u) {
			if u == v {
				self.loops[u] = true
			}
		}
	}
	self.decompose(nodes, nil)
	self.connect()
	return self.wpo
}

func (self *_WpoBuilder) addNode(kind _WpoKind, node int, chain []int) int {
	idx := len(self.wpo.nodes)
	self.wpo.nodes = append(self.wpo.nodes, _WpoNode{kind: kind, node: node, exit: -1, head: -1})
	if kind != _WpoExit {
		self.wpo.of[node] = idx
		self.wpo.chain[node] = chain
	}
	return idx
}

/* decompose recursively turns a node set into wpo slots: trivial components
 * become plain slots, every other component becomes head slots followed by
 * its decomposed body and a closing exit slot. */
func (self *_WpoBuilder) decompose(set []int, chain []int) {
	for _, scc := range self.sccs(set) {
		if len(scc) == 1 && !self.loops[scc[0]] {
			self.addNode(_WpoPlain, scc[0], chain)
			continue
		}
		head := self.chooseHead(scc)
		hidx := len(self.wpo.nodes)
		hchain := append(append([]int(nil), chain...), hidx)
		self.addNode(_WpoHead, head, hchain)
		body := make([]int, 0, len(scc)-1)
		for _, v := range scc {
			if v != head {
				body = append(body, v)
			}
		}
		self.decompose(body, hchain)
		eidx := self.addNode(_WpoExit, head, nil)
		self.wpo.nodes[hidx].exit = eidx
		self.wpo.nodes[eidx].head = hidx
	}
}

/* sccs computes the strongly connected components of the subgraph induced
 * by set, members ascending, components ordered deterministically by a
 * smallest-member-first topological pass over the component DAG. */
func (self *_WpoBuilder) sccs(set []int) [][]int {
	if len(set) == 0 {
		return nil
	}
	in := make(map[int]bool, len(set))
	for _, v := range set {
		in[v] = true
	}
	g := simple.NewDirectedGraph()
	for _, v := range set {
		g.AddNode(simple.Node(v))
	}
	for _, u := range set {
		for _, v := range self.g.Succs(u) {
			if u != v && in[v] && g.Edge(int64(u), int64(v)) == nil {
				g.SetEdge(simple.Edge{F: simple.Node(u), T: simple.Node(v)})
			}
		}
	}
	comps := topo.TarjanSCC(g)
	members := make([][]int, len(comps))
	compOf := make(map[int]int, len(set))
	for i, comp := range comps {
		ms := make([]int, 0, len(comp))
		for _, n := range comp {
			ms = append(ms, int(n.ID()))
			compOf[int(n.ID())] = i
		}
		sort.Ints(ms)
		members[i] = ms
	}
	adj := make([][]int, len(comps))
	indeg := make([]int, len(comps))
	seen := make(map[[2]int]bool)
	for _, u := range set {
		for _, v := range self.g.Succs(u) {
			if u == v || !in[v] {
				continue
			}
			a, b := compOf[u], compOf[v]
			if a != b && !seen[[2]int{a, b}] {
				seen[[2]int{a, b}] = true
				adj[a] = append(adj[a], b)
				indeg[b]++
			}
		}
	}
	pq := lane.NewPQueue(lane.MINPQ)
	for i, d := range indeg {
		if d == 0 {
			pq.Push(i, members[i][0])
		}
	}
	ret := make([][]int, 0, len(comps))
	for pq.Size() > 0 {
		v, _ := pq.Pop()
		i := v.(int)
		ret = append(ret, members[i])
		for _, w := range adj[i] {
			if indeg[w]--; indeg[w] == 0 {
				pq.Push(w, members[w][0])
			}
		}
	}
	if len(ret) != len(comps) {
		panic("component graph is cyclic")
	}
	return ret
}

/* chooseHead picks the component entry: the graph entry if it is a member,
 * otherwise the smallest member with a predecessor outside the component,
 * otherwise the smallest member. */
func (self *_WpoBuilder) chooseHead(scc []int) int {
	in := make(map[int]bool, len(scc))
	for _, v := range scc {
		in[v] = true
	}
	if in[self.g.Entry()] {
		return self.g.Entry()
	}
	for _, v := range scc {
		for _, p := range self.g.Preds(v) {
			if !in[p] {
				return v
			}
		}
	}
	return scc[0]
}

/* connect adds the scheduling edges: every non-back graph edge lifted to
 * the component tree, then sink-to-exit edges that close each component.
 * Exits come after their members in index order, so the sink pass closes
 * inner components before the components containing them. */
func (self *_WpoBuilder) connect() {
	for _, u := range self.g.Nodes() {
		for _, v := range self.g.Succs(u) {
			if !self.isBackEdge(u, v) {
				x, y := self.lift(u, v)
				self.addEdge(x, y)
			}
		}
	}
	for eidx := range self.wpo.nodes {
		if self.wpo.nodes[eidx].kind != _WpoExit {
			continue
		}
		hidx := self.wpo.nodes[eidx].head
		for m := hidx; m < eidx; m++ {
			if !self.hasSuccIn(m, hidx, eidx) {
				self.addEdge(m, eidx)
			}
		}
	}
}

// isBackEdge reports whether v heads a component that contains u.
func (self *_WpoBuilder) isBackEdge(u, v int) bool {
	vidx := self.wpo.of[v]
	if self.wpo.nodes[vidx].kind != _WpoHead {
		return false
	}
	for _, h := range self.wpo.chain[u] {
		if h == vidx {
			return true
		}
	}
	return false
}

/* lift maps a graph edge to its scheduling endpoints: the source is the
 * exit of the outermost component containing u but not v (or u itself),
 * the target is the head of the outermost component containing v but not u
 * (or v itself). Routing through exits is what keeps every value a node
 * reads fixed before it fires. */
func (self *_WpoBuilder) lift(u, v int) (int, int) {
	cu, cv := self.wpo.chain[u], self.wpo.chain[v]
	l := 0
	for l < len(cu) && l < len(cv) && cu[l] == cv[l] {
		l++
	}
	x := self.wpo.of[u]
	if l < len(cu) {
		x = self.wpo.nodes[cu[l]].exit
	}
	y := self.wpo.of[v]
	if l < len(cv) {
		y = cv[l]
	}
	return x, y
}

func (self *_WpoBuilder) addEdge(x, y int) {
	if x == y || self.edges[[2]int{x, y}] {
		return
	}
	self.edges[[2]int{x, y}] = true
	self.wpo.nodes[x].succs = append(self.wpo.nodes[x].succs, y)
	self.wpo.nodes[y].npreds++
}

func (self *_WpoBuilder) hasSuccIn(m, lo, hi int) bool {
	for _, s := range self.wpo.nodes[m].succs {
		if lo <= s && s < hi {
			return true
		}
	}
	return false
}

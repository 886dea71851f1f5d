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

/** This is an implementation of the Lengauer-Tarjan algorithm described in
 *  https://doi.org/10.1145%2F357062.357071
 */

package ir

type _LtNode struct {
	semi     int
	node     *Block
	dom      *_LtNode
	label    *_LtNode
	parent   *_LtNode
	ancestor *_LtNode
	pred     []*_LtNode
	bucket   map[*_LtNode]struct{}
}

type _LengauerTarjan struct {
	nodes  []*_LtNode
	vertex map[int]int
}

func newLengauerTarjan() *_LengauerTarjan {
	return &_LengauerTarjan{
		vertex: make(map[int]int),
	}
}

func (self *_LengauerTarjan) dfs(bb *Block) {
	i := len(self.nodes)
	self.vertex[bb.id] = i

	/* create a new node */
	p := &_LtNode{
		semi:   i,
		node:   bb,
		bucket: make(map[*_LtNode]struct{}),
	}

	/* add to node list */
	p.label = p
	self.nodes = append(self.nodes, p)

	/* traverse the successors, ghost edges excluded */
	for _, e := range bb.succs {
		if e.kind == EdgeGhost {
			continue
		}
		w := e.tgt
		idx, ok := self.vertex[w.id]

		/* not visited yet */
		if !ok {
			self.dfs(w)
			idx = self.vertex[w.id]
			self.nodes[idx].parent = p
		}

		/* add predecessors */
		q := self.nodes[idx]
		q.pred = append(q.pred, p)
	}
}

func (self *_LengauerTarjan) eval(p *_LtNode) *_LtNode {
	if p.ancestor == nil {
		return p
	} else {
		self.compress(p)
		return p.label
	}
}

func (self *_LengauerTarjan) link(p *_LtNode, q *_LtNode) {
	q.ancestor = p
}

func (self *_LengauerTarjan) compress(p *_LtNode) {
	if p.ancestor.ancestor != nil {
		self.compress(p.ancestor)
		if p.label.semi > p.ancestor.label.semi {
			p.label = p.ancestor.label
		}
		p.ancestor = p.ancestor.ancestor
	}
}

// DominatorTree is the immediate-dominator relation of a CFG, keyed by
// block id. Unreachable blocks do not appear.
type DominatorTree struct {
	Root        *Block
	DominatedBy map[int]*Block
	DominatorOf map[int][]*Block
}

func minInt(a int, b int) int {
	if a < b {
		return a
	} else {
		return b
	}
}

// BuildDominatorTree computes the dominator tree rooted at the entry block.
func (self *ControlFlowGraph) BuildDominatorTree() DominatorTree {
	domby := make(map[int]*Block)
	domof := make(map[int][]*Block)

	/* Step 1: Carry out a depth-first search of the problem graph. Number the vertices
	 * from 1 to n as they are reached during the search. Initialize the variables used
	 * in succeeding steps. */
	lt := newLengauerTarjan()
	lt.dfs(self.entry)

	/* perform Step 2 and Step 3 simultaneously */
	for i := len(lt.nodes) - 1; i > 0; i-- {
		p := lt.nodes[i]
		q := (*_LtNode)(nil)

		/* Step 2: Compute the semidominators of all vertices by applying Theorem 4.
		 * Carry out the computation vertex by vertex in decreasing order by number. */
		for _, v := range p.pred {
			q = lt.eval(v)
			p.semi = minInt(p.semi, q.semi)
		}

		/* link the ancestor */
		lt.link(p.parent, p)
		lt.nodes[p.semi].bucket[p] = struct{}{}

		/* Step 3: Implicitly define the immediate dominator of each vertex by applying Corollary 1 */
		for v := range p.parent.bucket {
			if q = lt.eval(v); q.semi < v.semi {
				v.dom = q
			} else {
				v.dom = p.parent
			}
		}

		/* clear the bucket */
		for v := range p.parent.bucket {
			delete(p.parent.bucket, v)
		}
	}

	/* Step 4: Explicitly define the immediate dominator of each vertex, carrying out the
	 * computation vertex by vertex in increasing order by number. */
	for _, p := range lt.nodes[1:] {
		if p.dom.node.id != lt.nodes[p.semi].node.id {
			p.dom = p.dom.dom
		}
	}

	/* map the dominator relations */
	for _, p := range lt.nodes[1:] {
		domby[p.node.id] = p.dom.node
		domof[p.dom.node.id] = append(domof[p.dom.node.id], p.node)
	}

	/* construct the dominator tree */
	return DominatorTree{
		Root:        self.entry,
		DominatorOf: domof,
		DominatedBy: domby,
	}
}

// ImmediateDominator returns the parent of b in the tree, nil for the root.
func (self DominatorTree) ImmediateDominator(b *Block) *Block {
	return self.DominatedBy[b.id]
}

// Dominates reports whether every path from the root to b passes through a.
func (self DominatorTree) Dominates(a, b *Block) bool {
	for n := b; n != nil; n = self.DominatedBy[n.id] {
		if n == a {
			return true
		}
	}
	return false
}

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
	"sort"

	"github.com/cloudwego/rdx/internal/ir"
)

// Closure is a single-entry region of the reduced DAG rooted at one
// component. Control enters only through target and leaves only by
// returning, which is what makes the region extractable into its own
// method.
type Closure struct {
	root       *ReducedBlock
	target     *ir.Block
	components []*ReducedBlock
	srcs       []*ir.Block
	size       int
}

func (self *Closure) Root() *ReducedBlock         { return self.root }
func (self *Closure) Target() *ir.Block           { return self.target }
func (self *Closure) Components() []*ReducedBlock { return self.components }
func (self *Closure) Srcs() []*ir.Block           { return self.srcs }
func (self *Closure) Size() int                   { return self.size }

// Closures enumerates every extractable closure, in reduced block order.
func (self *ReducedCFG) Closures() []*Closure {
	ret := []*Closure(nil)
	for _, rb := range self.blocks {
		if c := self.ClosureOf(rb); c != nil {
			ret = append(ret, c)
		}
	}
	return ret
}

// ClosureOf builds the closure rooted at rb: rb's transitive successors
// minus everything a sibling of rb also reaches. It returns nil when rb has
// no external entry, when the region's entry block is ambiguous, or when
// control can leave the region other than by returning.
func (self *ReducedCFG) ClosureOf(rb *ReducedBlock) *Closure {
	if len(rb.preds) == 0 {
		return nil
	}

	comps := make(map[*ReducedBlock]bool)
	descendants(rb, comps)
	for _, p := range rb.preds {
		for _, sib := range p.succs {
			if sib == rb {
				continue
			}
			shared := make(map[*ReducedBlock]bool)
			descendants(sib, shared)
			for s := range shared {
				delete(comps, s)
			}
		}
	}
	comps[rb] = true

	target := self.entryBlock(rb, comps)
	if target == nil {
		return nil
	}

	/* the region must be closed: no entries besides target, no exits at
	 * all. Blocks that leave it end in a return and have no successors. */
	inside := func(b *ir.Block) bool { return comps[self.of[b]] }
	srcs := []*ir.Block(nil)
	seen := make(map[*ir.Block]bool)
	size := 0
	for c := range comps {
		size += c.size
		for _, b := range c.blocks {
			for _, e := range b.Preds() {
				if e.Kind() == ir.EdgeGhost || inside(e.Src()) {
					continue
				}
				if b != target {
					return nil
				}
				if !seen[e.Src()] {
					seen[e.Src()] = true
					srcs = append(srcs, e.Src())
				}
			}
			for _, e := range b.Succs() {
				if e.Kind() != ir.EdgeGhost && !inside(e.Tgt()) {
					return nil
				}
			}
		}
	}

	ordered := make([]*ReducedBlock, 0, len(comps))
	for c := range comps {
		ordered = append(ordered, c)
	}
	sortReduced(ordered)
	sort.Slice(srcs, func(i, j int) bool { return srcs[i].ID() < srcs[j].ID() })
	return &Closure{root: rb, target: target, components: ordered, srcs: srcs, size: size}
}

/* entryBlock finds the unique original block through which control enters
 * rb from outside the region; with several heads, the one dominating the
 * others wins. */
func (self *ReducedCFG) entryBlock(rb *ReducedBlock, comps map[*ReducedBlock]bool) *ir.Block {
	heads := []*ir.Block(nil)
	for _, b := range rb.blocks {
		for _, e := range b.Preds() {
			if e.Kind() != ir.EdgeGhost && !comps[self.of[e.Src()]] {
				heads = append(heads, b)
				break
			}
		}
	}
	switch len(heads) {
	case 0:
		return nil
	case 1:
		return heads[0]
	}
	dom := self.dominators()
	for _, h := range heads {
		ruler := true
		for _, other := range heads {
			if !dom.Dominates(h, other) {
				ruler = false
				break
			}
		}
		if ruler {
			return h
		}
	}
	return nil
}

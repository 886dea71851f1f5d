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
	"container/heap"
)

/* component frequencies saturate here: sharing with ten other closures or
 * with a hundred weighs the same. */
const maxFrequency = 11

const (
	priorityBits = 40
	breakerBits  = 24
)

// ClosureAggregator ranks pending closures by how much of their code is
// already paid for: critical components shared with erased closures count
// in full, components shared with exactly one other pending closure count
// next, and widely shared components mostly weigh the priority down. Ties
// go to the latest insertion.
type ClosureAggregator struct {
	heap    _AggHeap
	entries map[*Closure]*_AggEntry
	comps   map[*ReducedBlock]*_AggComp
	nonce   uint32
}

type _AggEntry struct {
	closure  *Closure
	critical []*ReducedBlock
	applied  int64
	buckets  [maxFrequency + 1]int64
	nonce    uint32
	index    int
}

type _AggComp struct {
	size    int64
	refs    map[*_AggEntry]bool
	applied bool
}

func NewAggregator() *ClosureAggregator {
	return &ClosureAggregator{
		entries: make(map[*Closure]*_AggEntry),
		comps:   make(map[*ReducedBlock]*_AggComp),
	}
}

// Len returns the number of pending closures.
func (self *ClosureAggregator) Len() int { return len(self.entries) }

// Insert adds a closure with the subset of its components that should steer
// the ranking. Inserting the same closure twice panics.
func (self *ClosureAggregator) Insert(c *Closure, critical []*ReducedBlock) {
	if _, ok := self.entries[c]; ok {
		panic("closure inserted twice")
	}
	e := &_AggEntry{closure: c, critical: critical, nonce: self.nonce}
	self.nonce++
	for _, rb := range critical {
		comp := self.comps[rb]
		if comp == nil {
			comp = &_AggComp{size: int64(rb.Size()), refs: make(map[*_AggEntry]bool)}
			self.comps[rb] = comp
		}
		old := len(comp.refs)
		comp.refs[e] = true
		for r := range comp.refs {
			if r == e {
				continue
			}
			r.buckets[bkt(old)] -= comp.size
			r.buckets[bkt(old+1)] += comp.size
		}
		e.buckets[bkt(old+1)] += comp.size
		if comp.applied {
			e.applied += comp.size
		}
	}
	self.entries[c] = e
	self.heap = append(self.heap, e)
	e.index = len(self.heap) - 1
	heap.Init(&self.heap)
}

// Front returns the top-ranked closure without removing it, or nil when the
// aggregator is empty.
func (self *ClosureAggregator) Front() *Closure {
	if len(self.heap) == 0 {
		return nil
	}
	return self.heap[0].closure
}

// Erase removes a closure and reprices everything that shared components
// with it: survivors see those components' frequencies drop and, the first
// time a component joins the erased set, gain its size as applied code.
func (self *ClosureAggregator) Erase(c *Closure) {
	e := self.entries[c]
	if e == nil {
		return
	}
	delete(self.entries, c)
	heap.Remove(&self.heap, e.index)
	for _, rb := range e.critical {
		comp := self.comps[rb]
		delete(comp.refs, e)
		old := len(comp.refs) + 1
		for r := range comp.refs {
			r.buckets[bkt(old)] -= comp.size
			r.buckets[bkt(old-1)] += comp.size
			if !comp.applied {
				r.applied += comp.size
			}
		}
		comp.applied = true
	}
	heap.Init(&self.heap)
}

func bkt(freq int) int {
	if freq > maxFrequency {
		return maxFrequency
	}
	return freq
}

/* priority packs the rank into one word: 40 bits of value, 24 bits of
 * tie-breaker preferring the latest insertion. */
func (self *_AggEntry) priority() uint64 {
	den := int64(1)
	for k := 2; k <= maxFrequency; k++ {
		den += self.buckets[k] / int64(k)
	}
	top := uint64((self.applied+self.buckets[2])<<20) / uint64(den)
	if top >= 1<<priorityBits {
		top = 1<<priorityBits - 1
	}
	return top<<breakerBits | uint64(self.nonce)&(1<<breakerBits-1)
}

type _AggHeap []*_AggEntry

func (self _AggHeap) Len() int            { return len(self) }
func (self _AggHeap) Less(i, j int) bool  { return self[i].priority() > self[j].priority() }
func (self *_AggHeap) Push(x interface{}) { panic("push through Insert") }
func (self *_AggHeap) Pop() interface{} {
	old := *self
	e := old[len(old)-1]
	*self = old[:len(old)-1]
	return e
}

func (self _AggHeap) Swap(i, j int) {
	self[i], self[j] = self[j], self[i]
	self[i].index = i
	self[j].index = j
}

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
	"sync"
	"sync/atomic"

	"github.com/bytedance/gopkg/util/gopool"
	"github.com/oleiade/lane"
)

// Engine drives a domain to fixpoint over a graph. Entry states are always
// recomputed by folding predecessor exit states in the graph's predecessor
// order, never incrementally, which is what makes sequential and parallel
// runs agree bit for bit.
type Engine struct {
	g        Graph
	dom      Domain
	wpo      *_WPO
	idx      map[int]int
	in       []State
	out      []State
	fired    []bool
	pend     []State // widened head entries, by wpo index
	hasPend  []bool
	headIter []int // unstable rounds so far, by wpo exit index
}

func New(g Graph, dom Domain) *Engine {
	self := &Engine{g: g, dom: dom, wpo: newWPO(g)}
	nodes := g.Nodes()
	self.idx = make(map[int]int, len(nodes))
	for i, v := range nodes {
		self.idx[v] = i
	}
	return self
}

// Run iterates to fixpoint on the calling goroutine. init is the state
// flowing into the graph entry.
func (self *Engine) Run(init State) {
	self.reset()
	counters := self.freshCounters()
	queue := lane.NewDeque()
	for i := range self.wpo.nodes {
		if counters[i] == 0 {
			queue.Append(i)
		}
	}
	for !queue.Empty() {
		widx := queue.Shift().(int)
		self.fire(widx, init, counters, func(n int) { queue.Append(n) })
	}
}

// RunParallel iterates to the same fixpoint Run reaches, scheduling ready
// nodes across up to workers goroutines. A panic in a transfer function is
// re-raised on the caller.
func (self *Engine) RunParallel(init State, workers int) {
	if workers <= 1 {
		self.Run(init)
		return
	}
	self.reset()
	counters := self.freshCounters()
	pool := gopool.NewPool("rdx.fixpoint", int32(workers), gopool.NewConfig())
	var (
		wg      sync.WaitGroup
		once    sync.Once
		failure interface{}
	)
	var spawn func(int)
	spawn = func(widx int) {
		wg.Add(1)
		pool.Go(func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					once.Do(func() { failure = r })
				}
			}()
			self.fire(widx, init, counters, spawn)
		})
	}
	for i := range self.wpo.nodes {
		if counters[i] == 0 {
			spawn(i)
		}
	}
	wg.Wait()
	if failure != nil {
		panic(failure)
	}
}

// EntryState is the input state of the node after the last run.
func (self *Engine) EntryState(node int) State {
	if slot, ok := self.idx[node]; ok && self.fired[slot] {
		return self.in[slot]
	}
	return self.dom.Bottom()
}

// ExitState is the post-transfer state of the node after the last run.
func (self *Engine) ExitState(node int) State {
	if slot, ok := self.idx[node]; ok && self.fired[slot] {
		return self.out[slot]
	}
	return self.dom.Bottom()
}

func (self *Engine) reset() {
	n := len(self.idx)
	self.in = make([]State, n)
	self.out = make([]State, n)
	self.fired = make([]bool, n)
	self.pend = make([]State, len(self.wpo.nodes))
	self.hasPend = make([]bool, len(self.wpo.nodes))
	self.headIter = make([]int, len(self.wpo.nodes))
}

func (self *Engine) freshCounters() []int32 {
	counters := make([]int32, len(self.wpo.nodes))
	for i := range self.wpo.nodes {
		counters[i] = self.wpo.nodes[i].npreds
	}
	return counters
}

func (self *Engine) fire(widx int, init State, counters []int32, enqueue func(int)) {
	n := &self.wpo.nodes[widx]
	if n.kind == _WpoExit {
		self.fireExit(widx, init, counters, enqueue)
		return
	}
	var in State
	if self.hasPend[widx] {
		in = self.pend[widx]
		self.hasPend[widx] = false
	} else {
		in = self.joinPreds(n.node, init)
	}
	slot := self.idx[n.node]
	self.in[slot] = in
	self.out[slot] = self.dom.Transfer(n.node, in)
	self.fired[slot] = true
	for _, s := range n.succs {
		if atomic.AddInt32(&counters[s], -1) == 0 {
			enqueue(s)
		}
	}
}

/* fireExit closes one round of a component: if the head entry stabilized,
 * rearm the component counters for a potential outer re-entry and release
 * the exit's successors; otherwise extrapolate the head entry, rearm, and
 * run the component again from its head. */
func (self *Engine) fireExit(widx int, init State, counters []int32, enqueue func(int)) {
	n := &self.wpo.nodes[widx]
	hidx := n.head
	head := self.wpo.nodes[hidx].node
	slot := self.idx[head]
	next := self.joinPreds(head, init)
	if self.dom.Leq(next, self.in[slot]) {
		self.headIter[widx] = 0
		self.rearm(hidx, widx, counters)
		for _, s := range n.succs {
			if atomic.AddInt32(&counters[s], -1) == 0 {
				enqueue(s)
			}
		}
		return
	}
	iter := self.headIter[widx]
	self.headIter[widx] = iter + 1
	self.pend[hidx] = self.extrapolate(head, iter, self.in[slot], next)
	self.hasPend[hidx] = true
	self.rearm(hidx, widx, counters)
	enqueue(hidx)
}

func (self *Engine) rearm(hidx, eidx int, counters []int32) {
	for m := hidx; m <= eidx; m++ {
		atomic.StoreInt32(&counters[m], self.wpo.nodes[m].npreds)
	}
}

func (self *Engine) extrapolate(head, iter int, cur, next State) State {
	if ex, ok := self.dom.(Extrapolator); ok {
		return ex.Extrapolate(head, iter, cur, next)
	}
	if iter == 0 {
		return self.dom.Join(cur, next)
	}
	return self.dom.Widen(cur, next)
}

/* joinPreds recomputes a node's entry from scratch: bottom, the init state
 * for the graph entry, then every fired predecessor folded in predecessor
 * order. */
func (self *Engine) joinPreds(node int, init State) State {
	in := self.dom.Bottom()
	if node == self.g.Entry() {
		in = self.dom.Join(in, init)
	}
	for _, p := range self.g.Preds(node) {
		if slot, ok := self.idx[p]; ok && self.fired[slot] {
			in = self.dom.Join(in, self.out[slot])
		}
	}
	return in
}

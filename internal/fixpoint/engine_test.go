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
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

type testGraph struct {
	entry int
	nodes []int
	succs map[int][]int
	preds map[int][]int
}

func (self *testGraph) Entry() int        { return self.entry }
func (self *testGraph) Nodes() []int      { return self.nodes }
func (self *testGraph) Succs(n int) []int { return self.succs[n] }
func (self *testGraph) Preds(n int) []int { return self.preds[n] }

func graphOf(entry int, nodes []int, edges [][2]int) *testGraph {
	g := &testGraph{
		entry: entry,
		nodes: nodes,
		succs: make(map[int][]int),
		preds: make(map[int][]int),
	}
	for _, e := range edges {
		g.succs[e[0]] = append(g.succs[e[0]], e[1])
		g.preds[e[1]] = append(g.preds[e[1]], e[0])
	}
	return g
}

const boundTop = 1 << 30

/* _BoundDomain tracks an integer upper bound: -1 is bottom, join is max, and
 * widening jumps straight to boundTop. Nodes listed in bump increment the
 * bound, so loops around them never stabilize without widening. */
type _BoundDomain struct {
	bump      map[int]bool
	panics    map[int]bool
	transfers int64
}

func (self *_BoundDomain) Bottom() State { return -1 }

func (self *_BoundDomain) Join(a, b State) State {
	if a.(int) > b.(int) {
		return a
	}
	return b
}

func (self *_BoundDomain) Widen(a, b State) State {
	if b.(int) > a.(int) {
		return boundTop
	}
	return a
}

func (self *_BoundDomain) Leq(a, b State) bool {
	return a.(int) <= b.(int)
}

func (self *_BoundDomain) Transfer(node int, in State) State {
	atomic.AddInt64(&self.transfers, 1)
	if self.panics[node] {
		panic("transfer failed")
	}
	v := in.(int)
	if !self.bump[node] || v < 0 {
		return v
	}
	if v >= boundTop {
		return boundTop
	}
	return v + 1
}

func TestEngine_Acyclic(t *testing.T) {
	g := graphOf(0, []int{0, 1, 2}, [][2]int{{0, 1}, {1, 2}})
	dom := &_BoundDomain{bump: map[int]bool{1: true}}
	eng := New(g, dom)
	eng.Run(7)

	require.Equal(t, 7, eng.EntryState(0))
	require.Equal(t, 7, eng.ExitState(0))
	require.Equal(t, 8, eng.ExitState(1))
	require.Equal(t, 8, eng.EntryState(2))
	require.EqualValues(t, 3, dom.transfers, "acyclic nodes fire exactly once")
	require.Equal(t, -1, eng.EntryState(42), "unknown nodes read as bottom")
}

func TestEngine_LoopWidens(t *testing.T) {
	g := graphOf(0, []int{0, 1, 2, 3}, [][2]int{{0, 1}, {1, 2}, {2, 1}, {1, 3}})
	dom := &_BoundDomain{bump: map[int]bool{2: true}}
	eng := New(g, dom)
	eng.Run(0)

	require.Equal(t, 0, eng.ExitState(0))
	require.Equal(t, boundTop, eng.EntryState(1))
	require.Equal(t, boundTop, eng.ExitState(2))
	require.Equal(t, boundTop, eng.EntryState(3))
}

func TestEngine_EntryInsideLoop(t *testing.T) {
	g := graphOf(0, []int{0, 1, 2}, [][2]int{{0, 1}, {1, 0}, {1, 2}})
	dom := &_BoundDomain{bump: map[int]bool{1: true}}
	eng := New(g, dom)
	eng.Run(0)

	require.Equal(t, boundTop, eng.EntryState(0), "the initial state keeps flowing into the looping entry")
	require.Equal(t, boundTop, eng.ExitState(1))
	require.Equal(t, boundTop, eng.EntryState(2))
}

func TestEngine_ParallelMatchesSequential(t *testing.T) {
	/* an inner loop {2,3} nested in an outer loop {1,2,3} */
	g := graphOf(0, []int{0, 1, 2, 3, 4}, [][2]int{
		{0, 1}, {1, 2}, {2, 3}, {3, 2}, {3, 1}, {1, 4},
	})
	dom := &_BoundDomain{bump: map[int]bool{3: true}}
	seq := New(g, dom)
	seq.Run(0)
	require.Equal(t, boundTop, seq.EntryState(4))

	for workers := 2; workers <= 8; workers *= 2 {
		par := New(g, dom)
		par.RunParallel(0, workers)
		for _, n := range g.nodes {
			require.Equal(t, seq.EntryState(n), par.EntryState(n), "entry state of node %d with %d workers", n, workers)
			require.Equal(t, seq.ExitState(n), par.ExitState(n), "exit state of node %d with %d workers", n, workers)
		}
	}
}

func TestEngine_RunIsRepeatable(t *testing.T) {
	g := graphOf(0, []int{0, 1, 2, 3}, [][2]int{{0, 1}, {1, 2}, {2, 1}, {1, 3}})
	dom := &_BoundDomain{bump: map[int]bool{2: true}}
	eng := New(g, dom)
	eng.Run(0)
	first := eng.EntryState(3)
	eng.Run(0)
	require.Equal(t, first, eng.EntryState(3))
}

func TestEngine_PanicPropagates(t *testing.T) {
	g := graphOf(0, []int{0, 1, 2}, [][2]int{{0, 1}, {1, 2}})
	dom := &_BoundDomain{panics: map[int]bool{1: true}}
	require.PanicsWithValue(t, "transfer failed", func() { New(g, dom).Run(0) })
	require.PanicsWithValue(t, "transfer failed", func() { New(g, dom).RunParallel(0, 4) })
}

/* _JumpDomain extrapolates straight to the top bound on the first unstable
 * exit instead of joining and widening over several rounds. */
type _JumpDomain struct {
	_BoundDomain
	jumps int
}

func (self *_JumpDomain) Extrapolate(head, iteration int, current, next State) State {
	self.jumps++
	return boundTop
}

func TestEngine_ExtrapolatorHook(t *testing.T) {
	g := graphOf(0, []int{0, 1, 2, 3}, [][2]int{{0, 1}, {1, 2}, {2, 1}, {1, 3}})
	dom := &_JumpDomain{_BoundDomain: _BoundDomain{bump: map[int]bool{2: true}}}
	eng := New(g, dom)
	eng.Run(0)

	require.Equal(t, 1, dom.jumps, "one unstable round, one extrapolation")
	require.Equal(t, boundTop, eng.EntryState(3))
}

func TestReverse(t *testing.T) {
	g := graphOf(0, []int{0, 1, 2}, [][2]int{{0, 1}, {1, 2}})
	r := Reverse(g, 2)

	require.Equal(t, 2, r.Entry())
	require.Equal(t, g.Nodes(), r.Nodes())
	require.Equal(t, []int{1}, r.Succs(2))
	require.Equal(t, []int{2}, r.Preds(1))
	require.Empty(t, r.Succs(0))
	require.Empty(t, r.Preds(2))
}

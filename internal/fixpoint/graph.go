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

// Package fixpoint is a monotonic abstract-interpretation iterator over a
// directed graph. Blocks are scheduled by a weak partial ordering of the
// graph's strongly connected components, which makes the parallel engine
// produce results bit-identical to the sequential one.
package fixpoint

// Graph is the shape the engine iterates over. Node ids are arbitrary ints;
// Nodes, Succs and Preds must return stable, deterministic orders, since the
// engine folds predecessor states in exactly the order Preds gives them.
type Graph interface {
	Entry() int
	Nodes() []int
	Succs(node int) []int
	Preds(node int) []int
}

type _Reverse struct {
	g    Graph
	exit int
}

// Reverse adapts a graph for backward analyses: entry becomes the given exit
// node and the edge directions swap. The exit must already be a node of g,
// reachable backwards from everywhere, which EnsureExit-style ghost nodes
// provide.
func Reverse(g Graph, exit int) Graph {
	return &_Reverse{g: g, exit: exit}
}

func (self *_Reverse) Entry() int           { return self.exit }
func (self *_Reverse) Nodes() []int         { return self.g.Nodes() }
func (self *_Reverse) Succs(node int) []int { return self.g.Preds(node) }
func (self *_Reverse) Preds(node int) []int { return self.g.Succs(node) }

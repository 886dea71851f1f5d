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

// State is one element of an abstract domain. The engine treats states as
// opaque immutable values: Transfer and Join must return fresh states rather
// than mutate their arguments, because a state may be read concurrently by
// several successors.
type State = interface{}

// Domain supplies the lattice operations and the per-node transfer function.
// Termination is the domain's responsibility: Widen must enforce an
// ascending chain condition, the engine has no iteration bound.
type Domain interface {
	Bottom() State
	Join(a, b State) State
	Widen(a, b State) State
	Leq(a, b State) bool
	Transfer(node int, in State) State
}

// Extrapolator optionally overrides the default policy at component heads,
// which joins on the first unstable round and widens on every later one.
// iteration is 0 on the first unstable round.
type Extrapolator interface {
	Extrapolate(head int, iteration int, current, next State) State
}

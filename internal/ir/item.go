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
	"fmt"
	"strings"

	"github.com/cloudwego/rdx/internal/ident"
)

// MethodItem is one entry of a method body: an instruction, a branch-target
// label, a try-region boundary, a catch-handler marker, a debug position, or
// a source block. Labels and try markers only exist while the code is in
// flat form; building a CFG absorbs them into blocks and edges.
type MethodItem interface {
	fmt.Stringer
	item()
}

// Label marks a branch target in flat code.
type Label struct {
	ID int
}

func (self *Label) item()          {}
func (self *Label) String() string { return fmt.Sprintf(":%d", self.ID) }

type TryKind uint8

const (
	TryStart TryKind = iota
	TryEnd
)

// TryMarker bounds a try region. Both the start and end marker reference the
// first catch of the handler chain.
type TryMarker struct {
	Kind  TryKind
	Catch *CatchMarker
}

func (self *TryMarker) item() {}

func (self *TryMarker) String() string {
	if self.Kind == TryStart {
		return "try-start"
	}
	return "try-end"
}

// CatchMarker starts a catch handler. Type is nil for a catch-all; Next
// chains to the handler tried when this one's type does not match.
type CatchMarker struct {
	Type *ident.Type
	Next *CatchMarker
}

func (self *CatchMarker) item() {}

func (self *CatchMarker) String() string {
	if self.Type == nil {
		return "catch-all"
	}
	return "catch " + self.Type.String()
}

// DebugPosition ties the following instructions to a source line.
type DebugPosition struct {
	File *ident.String
	Line uint32
}

func (self *DebugPosition) item() {}

func (self *DebugPosition) String() string {
	file := "?"
	if self.File != nil {
		file = self.File.String()
	}
	return fmt.Sprintf(".pos %s:%d", file, self.Line)
}

// Val is one profile interaction's hotness reading: how often the block was
// hit and in what fraction of profiles it appeared.
type Val struct {
	Hit    float32
	Appear float32
}

// SourceBlock carries per-interaction profile weights for the region of code
// that follows it. ID is unique within the method it was instrumented in.
type SourceBlock struct {
	Method *ident.MethodRef
	ID     uint32
	Vals   []Val
}

func (self *SourceBlock) item() {}

// Hot reports whether any interaction recorded a positive hit count.
func (self *SourceBlock) Hot() bool {
	for _, v := range self.Vals {
		if v.Hit > 0 {
			return true
		}
	}
	return false
}

// Clone duplicates the source block. When fresh is true the weight vector is
// replaced with all-zero Vals of the same arity.
func (self *SourceBlock) Clone(fresh bool) *SourceBlock {
	ret := &SourceBlock{Method: self.Method, ID: self.ID}
	ret.Vals = make([]Val, len(self.Vals))
	if !fresh {
		copy(ret.Vals, self.Vals)
	}
	return ret
}

func (self *SourceBlock) String() string {
	buf := new(strings.Builder)
	fmt.Fprintf(buf, ".src-block %d", self.ID)
	if self.Method != nil {
		fmt.Fprintf(buf, " %s", self.Method)
	}
	for _, v := range self.Vals {
		fmt.Fprintf(buf, " (%g:%g)", v.Hit, v.Appear)
	}
	return buf.String()
}

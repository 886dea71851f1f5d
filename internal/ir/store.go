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

	"github.com/cloudwego/rdx/internal/ident"
)

// RootStoreName is the store every application starts from.
const RootStoreName = "classes"

// MaxRefsPerDex is the hard format limit on each of a dex unit's reference
// tables (method, field, type): indices are 16 bits wide.
const MaxRefsPerDex = 1 << 16

// DexStore is a named sequence of dex units, each unit an ordered class list.
// Class order inside a unit and unit order inside a store are meaningful and
// must survive the pipeline.
type DexStore struct {
	name  string
	dexen [][]*DexClass
}

func NewStore(name string) *DexStore {
	return &DexStore{name: name}
}

func (self *DexStore) Name() string          { return self.name }
func (self *DexStore) NumDexen() int         { return len(self.dexen) }
func (self *DexStore) Dexen() [][]*DexClass  { return self.dexen }
func (self *DexStore) Dex(i int) []*DexClass { return self.dexen[i] }
func (self *DexStore) IsRoot() bool          { return self.name == RootStoreName }

// AddDex appends one dex unit and returns its index. Classes get tagged with
// their location inside the store.
func (self *DexStore) AddDex(classes []*DexClass) int {
	idx := len(self.dexen)
	for _, cls := range classes {
		cls.SetLocation(fmt.Sprintf("%s/%02d", self.name, idx))
	}
	self.dexen = append(self.dexen, classes)
	return idx
}

func (self *DexStore) SetDex(i int, classes []*DexClass) {
	for _, cls := range classes {
		cls.SetLocation(fmt.Sprintf("%s/%02d", self.name, i))
	}
	self.dexen[i] = classes
}

// Classes flattens the store's units into one ordered list.
func (self *DexStore) Classes() []*DexClass {
	ret := []*DexClass(nil)
	for _, dex := range self.dexen {
		ret = append(ret, dex...)
	}
	return ret
}

// BuildScope flattens a store list into the ordered class scope passes
// operate on.
func BuildScope(stores []*DexStore) []*DexClass {
	ret := []*DexClass(nil)
	for _, store := range stores {
		ret = append(ret, store.Classes()...)
	}
	return ret
}

// MethodRefCount counts the distinct method references a dex unit would
// carry: declared methods plus every method an instruction names.
func MethodRefCount(classes []*DexClass) int {
	seen := make(map[*ident.MethodRef]bool)
	for _, cls := range classes {
		for _, m := range cls.AllMethods() {
			seen[m.Ref()] = true
			if m.Code() == nil {
				continue
			}
			m.Code().WalkInsns(func(insn *IRInstruction) {
				if ref := insn.MethodRef(); ref != nil {
					seen[ref] = true
				}
			})
		}
	}
	return len(seen)
}

// FieldRefCount counts the distinct field references a dex unit would carry.
func FieldRefCount(classes []*DexClass) int {
	seen := make(map[*ident.FieldRef]bool)
	for _, cls := range classes {
		for _, f := range cls.AllFields() {
			seen[f.Ref()] = true
		}
		for _, m := range cls.AllMethods() {
			if m.Code() == nil {
				continue
			}
			m.Code().WalkInsns(func(insn *IRInstruction) {
				if ref := insn.FieldRef(); ref != nil {
					seen[ref] = true
				}
			})
		}
	}
	return len(seen)
}

// TypeRefCount counts the distinct type references a dex unit would carry:
// class hierarchy slots, member signatures, instruction payloads and catch
// types.
func TypeRefCount(classes []*DexClass) int {
	seen := make(map[*ident.Type]bool)
	add := func(t *ident.Type) {
		if t != nil {
			seen[t] = true
		}
	}
	addProto := func(p *ident.Proto) {
		add(p.ReturnType())
		for _, t := range p.Args() {
			add(t)
		}
	}
	for _, cls := range classes {
		add(cls.Type())
		add(cls.SuperType())
		for _, t := range cls.Interfaces() {
			add(t)
		}
		for _, f := range cls.AllFields() {
			add(f.Type())
		}
		for _, m := range cls.AllMethods() {
			addProto(m.Proto())
			if m.Code() == nil {
				continue
			}
			m.Code().WalkInsns(func(insn *IRInstruction) {
				if t := insn.TypeRef(); t != nil {
					add(t)
				}
				if ref := insn.FieldRef(); ref != nil {
					add(ref.Class())
					add(ref.Type())
				}
				if ref := insn.MethodRef(); ref != nil {
					add(ref.Class())
					addProto(ref.Proto())
				}
			})
			walkCatchTypes(m.Code(), add)
		}
	}
	return len(seen)
}

func walkCatchTypes(code *IRCode, add func(*ident.Type)) {
	if code.CFGBuilt() {
		for _, b := range code.CFG().Blocks() {
			for _, e := range b.Succs() {
				if e.Kind() == EdgeThrow {
					add(e.CatchType())
				}
			}
		}
		return
	}
	code.WalkItems(func(it MethodItem) {
		if c, ok := it.(*CatchMarker); ok {
			add(c.Type)
		}
	})
}

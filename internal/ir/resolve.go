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

// ClassIndex maps interned types to their definitions and answers hierarchy
// queries. It is built once per scope and safe for concurrent reads.
type ClassIndex struct {
	byType map[*ident.Type]*DexClass
}

func NewClassIndex(scope []*DexClass) *ClassIndex {
	idx := &ClassIndex{byType: make(map[*ident.Type]*DexClass, len(scope))}
	for _, cls := range scope {
		if dup, ok := idx.byType[cls.Type()]; ok && dup != cls {
			panic(fmt.Sprintf("duplicate class definition %s", cls.Type().Name()))
		}
		idx.byType[cls.Type()] = cls
	}
	return idx
}

// Get returns the definition of t, or nil if t is undefined, an array, or a
// primitive.
func (self *ClassIndex) Get(t *ident.Type) *DexClass {
	if t == nil {
		return nil
	}
	return self.byType[t]
}

// ResolveMethod finds the definition a method reference binds to: the
// referenced class first, then the superclass chain, then the transitive
// interfaces for default methods. Returns nil when nothing in the scope
// defines it.
func (self *ClassIndex) ResolveMethod(ref *ident.MethodRef) *DexMethod {
	name := ref.Name().String()
	proto := ref.Proto()
	for cls := self.Get(ref.Class()); cls != nil; cls = self.Get(cls.SuperType()) {
		if m := cls.FindMethod(name, proto); m != nil {
			return m
		}
	}
	seen := make(map[*ident.Type]bool)
	queue := []*ident.Type(nil)
	for cls := self.Get(ref.Class()); cls != nil; cls = self.Get(cls.SuperType()) {
		queue = append(queue, cls.Interfaces()...)
	}
	for len(queue) > 0 {
		t := queue[0]
		queue = queue[1:]
		if seen[t] {
			continue
		}
		seen[t] = true
		icls := self.Get(t)
		if icls == nil {
			continue
		}
		if m := icls.FindMethod(name, proto); m != nil {
			return m
		}
		queue = append(queue, icls.Interfaces()...)
	}
	return nil
}

// ResolveField finds the definition a field reference binds to, searching
// the referenced class, its interfaces, then the superclass, in that order.
func (self *ClassIndex) ResolveField(ref *ident.FieldRef) *DexField {
	seen := make(map[*ident.Type]bool)
	return self.findField(ref.Class(), ref.Name().String(), ref.Type(), seen)
}

func (self *ClassIndex) findField(t *ident.Type, name string, typ *ident.Type, seen map[*ident.Type]bool) *DexField {
	if t == nil || seen[t] {
		return nil
	}
	seen[t] = true
	cls := self.Get(t)
	if cls == nil {
		return nil
	}
	if f := cls.FindField(name, typ); f != nil {
		return f
	}
	for _, it := range cls.Interfaces() {
		if f := self.findField(it, name, typ, seen); f != nil {
			return f
		}
	}
	return self.findField(cls.SuperType(), name, typ, seen)
}

// IsSubclass reports whether sub equals sup or has it on its superclass
// chain.
func (self *ClassIndex) IsSubclass(sub, sup *ident.Type) bool {
	for t := sub; t != nil; {
		if t == sup {
			return true
		}
		cls := self.Get(t)
		if cls == nil {
			return false
		}
		t = cls.SuperType()
	}
	return false
}

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

// DexField is a field definition or, when external, a field known only by
// reference.
type DexField struct {
	ref          *ident.FieldRef
	access       Access
	cls          *DexClass
	rstate       ReferencedState
	deobfuscated string
	external     bool
}

func NewField(ref *ident.FieldRef, access Access) *DexField {
	return &DexField{ref: ref, access: access}
}

func NewExternalField(ref *ident.FieldRef, access Access) *DexField {
	return &DexField{ref: ref, access: access, external: true}
}

func (self *DexField) Ref() *ident.FieldRef     { return self.ref }
func (self *DexField) Name() string             { return self.ref.Name().String() }
func (self *DexField) Type() *ident.Type        { return self.ref.Type() }
func (self *DexField) Access() Access           { return self.access }
func (self *DexField) Class() *DexClass         { return self.cls }
func (self *DexField) Rstate() *ReferencedState { return &self.rstate }
func (self *DexField) IsExternal() bool         { return self.external }
func (self *DexField) String() string           { return self.ref.String() }

// DeobfuscatedName is the pre-rename name when one was recorded, otherwise
// the current one.
func (self *DexField) DeobfuscatedName() string {
	if self.deobfuscated != "" {
		return self.deobfuscated
	}
	return self.ref.String()
}

// Rename points the field at a new reference. The first rename records the
// original name so diagnostics stay readable.
func (self *DexField) Rename(ctx *ident.Context, name *ident.String) {
	if self.deobfuscated == "" {
		self.deobfuscated = self.ref.String()
	}
	self.ref = ctx.MakeFieldRef(self.ref.Class(), name, self.ref.Type())
}

// DexMethod is a method definition or, when external, a method known only by
// reference. External methods never carry code.
type DexMethod struct {
	ref          *ident.MethodRef
	access       Access
	cls          *DexClass
	code         *IRCode
	rstate       ReferencedState
	deobfuscated string
	external     bool
}

func NewMethod(ref *ident.MethodRef, access Access) *DexMethod {
	return &DexMethod{ref: ref, access: access}
}

func NewExternalMethod(ref *ident.MethodRef, access Access) *DexMethod {
	return &DexMethod{ref: ref, access: access, external: true}
}

func (self *DexMethod) Ref() *ident.MethodRef    { return self.ref }
func (self *DexMethod) Name() string             { return self.ref.Name().String() }
func (self *DexMethod) Proto() *ident.Proto      { return self.ref.Proto() }
func (self *DexMethod) Access() Access           { return self.access }
func (self *DexMethod) Class() *DexClass         { return self.cls }
func (self *DexMethod) Code() *IRCode            { return self.code }
func (self *DexMethod) Rstate() *ReferencedState { return &self.rstate }
func (self *DexMethod) IsExternal() bool         { return self.external }
func (self *DexMethod) String() string           { return self.ref.String() }

func (self *DexMethod) IsConstructor() bool {
	return self.Name() == "<init>" || self.Name() == "<clinit>"
}

// SetCode attaches a body. External methods are immutable by definition.
func (self *DexMethod) SetCode(code *IRCode) {
	if self.external {
		panic(fmt.Sprintf("method %s is external and cannot carry code", self.ref))
	}
	self.code = code
}

func (self *DexMethod) ReleaseCode() *IRCode {
	code := self.code
	self.code = nil
	return code
}

func (self *DexMethod) DeobfuscatedName() string {
	if self.deobfuscated != "" {
		return self.deobfuscated
	}
	return self.ref.String()
}

func (self *DexMethod) Rename(ctx *ident.Context, name *ident.String) {
	if self.deobfuscated == "" {
		self.deobfuscated = self.ref.String()
	}
	self.ref = ctx.MakeMethodRef(self.ref.Class(), name, self.ref.Proto())
}

// DexClass is one class definition: its hierarchy links, its members split
// the way the container format splits them, and its referenced state.
type DexClass struct {
	typ          *ident.Type
	super        *ident.Type
	ifaces       []*ident.Type
	access       Access
	sfields      []*DexField
	ifields      []*DexField
	dmethods     []*DexMethod
	vmethods     []*DexMethod
	rstate       ReferencedState
	deobfuscated string
	location     string
	external     bool
}

func NewClass(typ *ident.Type, super *ident.Type, access Access) *DexClass {
	return &DexClass{typ: typ, super: super, access: access}
}

func NewExternalClass(typ *ident.Type, super *ident.Type, access Access) *DexClass {
	return &DexClass{typ: typ, super: super, access: access, external: true}
}

func (self *DexClass) Type() *ident.Type         { return self.typ }
func (self *DexClass) SuperType() *ident.Type    { return self.super }
func (self *DexClass) Interfaces() []*ident.Type { return self.ifaces }
func (self *DexClass) Access() Access            { return self.access }
func (self *DexClass) Rstate() *ReferencedState  { return &self.rstate }
func (self *DexClass) IsExternal() bool          { return self.external }
func (self *DexClass) Location() string          { return self.location }
func (self *DexClass) SetLocation(loc string)    { self.location = loc }
func (self *DexClass) String() string            { return self.typ.String() }

func (self *DexClass) AddInterface(t *ident.Type) {
	self.ifaces = append(self.ifaces, t)
}

// AddMethod files the method under the direct or virtual table and claims
// ownership. A method belongs to at most one class at a time.
func (self *DexClass) AddMethod(m *DexMethod) {
	if m.cls != nil {
		panic(fmt.Sprintf("method %s already belongs to %s", m, m.cls))
	}
	m.cls = self
	if m.access.IsStatic() || m.access.IsPrivate() || m.IsConstructor() {
		self.dmethods = append(self.dmethods, m)
	} else {
		self.vmethods = append(self.vmethods, m)
	}
}

func (self *DexClass) RemoveMethod(m *DexMethod) {
	if m.cls != self {
		panic(fmt.Sprintf("method %s does not belong to %s", m, self))
	}
	m.cls = nil
	self.dmethods = removeMethod(self.dmethods, m)
	self.vmethods = removeMethod(self.vmethods, m)
}

func removeMethod(ms []*DexMethod, m *DexMethod) []*DexMethod {
	for i, v := range ms {
		if v == m {
			return append(ms[:i], ms[i+1:]...)
		}
	}
	return ms
}

// AddField files the field under the static or instance table by its access
// flags.
func (self *DexClass) AddField(f *DexField) {
	if f.cls != nil {
		panic(fmt.Sprintf("field %s already belongs to %s", f, f.cls))
	}
	f.cls = self
	if f.access.IsStatic() {
		self.sfields = append(self.sfields, f)
	} else {
		self.ifields = append(self.ifields, f)
	}
}

func (self *DexClass) DirectMethods() []*DexMethod  { return self.dmethods }
func (self *DexClass) VirtualMethods() []*DexMethod { return self.vmethods }
func (self *DexClass) StaticFields() []*DexField    { return self.sfields }
func (self *DexClass) InstanceFields() []*DexField  { return self.ifields }

// AllMethods lists direct methods first, then virtual ones, both in
// insertion order.
func (self *DexClass) AllMethods() []*DexMethod {
	ret := make([]*DexMethod, 0, len(self.dmethods)+len(self.vmethods))
	ret = append(ret, self.dmethods...)
	return append(ret, self.vmethods...)
}

func (self *DexClass) AllFields() []*DexField {
	ret := make([]*DexField, 0, len(self.sfields)+len(self.ifields))
	ret = append(ret, self.sfields...)
	return append(ret, self.ifields...)
}

func (self *DexClass) FindDirectMethod(name string, proto *ident.Proto) *DexMethod {
	return findMethod(self.dmethods, name, proto)
}

func (self *DexClass) FindVirtualMethod(name string, proto *ident.Proto) *DexMethod {
	return findMethod(self.vmethods, name, proto)
}

func (self *DexClass) FindMethod(name string, proto *ident.Proto) *DexMethod {
	if m := findMethod(self.dmethods, name, proto); m != nil {
		return m
	}
	return findMethod(self.vmethods, name, proto)
}

func findMethod(ms []*DexMethod, name string, proto *ident.Proto) *DexMethod {
	for _, m := range ms {
		if m.Name() == name && m.Proto() == proto {
			return m
		}
	}
	return nil
}

func (self *DexClass) FindField(name string, typ *ident.Type) *DexField {
	for _, f := range self.sfields {
		if f.Name() == name && f.Type() == typ {
			return f
		}
	}
	for _, f := range self.ifields {
		if f.Name() == name && f.Type() == typ {
			return f
		}
	}
	return nil
}

// Clinit returns the class initializer method if one exists.
func (self *DexClass) Clinit() *DexMethod {
	for _, m := range self.dmethods {
		if m.Name() == "<clinit>" {
			return m
		}
	}
	return nil
}

func (self *DexClass) DeobfuscatedName() string {
	if self.deobfuscated != "" {
		return self.deobfuscated
	}
	return self.typ.String()
}

// Rename moves the class to a new type. Member references keep their old
// class component; callers rename members separately when they need to.
func (self *DexClass) Rename(newType *ident.Type) {
	if self.deobfuscated == "" {
		self.deobfuscated = self.typ.String()
	}
	self.typ = newType
}

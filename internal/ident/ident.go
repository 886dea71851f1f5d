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

package ident

import (
	"strings"
)

// String is an interned string. Two equal texts intern to the same
// *String for the lifetime of the owning Context, so handles compare by
// pointer identity.
type String struct {
	s string
}

func (self *String) String() string {
	return self.s
}

// Type is an interned type descriptor in DEX form, e.g. "Lfoo/Bar;",
// "I", "[J".
type Type struct {
	name *String
}

func (self *Type) Name() *String {
	return self.name
}

func (self *Type) String() string {
	return self.name.s
}

// Primitive reports whether the descriptor denotes a primitive type.
func (self *Type) Primitive() bool {
	switch self.name.s {
	case "V", "Z", "B", "S", "C", "I", "J", "F", "D":
		return true
	default:
		return false
	}
}

// Wide reports whether values of the type occupy a register pair.
func (self *Type) Wide() bool {
	return self.name.s == "J" || self.name.s == "D"
}

// Object reports whether the type is a reference type (class or array).
func (self *Type) Object() bool {
	return strings.HasPrefix(self.name.s, "L") || strings.HasPrefix(self.name.s, "[")
}

// Void reports whether the type is the void pseudo-type.
func (self *Type) Void() bool {
	return self.name.s == "V"
}

// SimpleName returns the class name without package or descriptor
// decoration, for diagnostics.
func (self *Type) SimpleName() string {
	s := self.name.s
	if !strings.HasPrefix(s, "L") || !strings.HasSuffix(s, ";") {
		return s
	}
	s = s[1 : len(s)-1]
	if i := strings.LastIndexByte(s, '/'); i >= 0 {
		s = s[i+1:]
	}
	return s
}

// JavaName renders the descriptor in source form, e.g.
// "Lfoo/Bar;" -> "foo.Bar", used by diagnostics and the meta writers.
func (self *Type) JavaName() string {
	s := self.name.s
	if strings.HasPrefix(s, "L") && strings.HasSuffix(s, ";") {
		return strings.ReplaceAll(s[1:len(s)-1], "/", ".")
	}
	return s
}

// Proto is an interned method prototype: a return type plus an ordered
// parameter list.
type Proto struct {
	rtype *Type
	args  []*Type
	repr  string
}

func (self *Proto) ReturnType() *Type {
	return self.rtype
}

func (self *Proto) Args() []*Type {
	return self.args
}

func (self *Proto) String() string {
	return self.repr
}

// FieldRef is an interned reference to a field: owner type, name and
// field type. It may or may not resolve to a definition.
type FieldRef struct {
	cls  *Type
	name *String
	typ  *Type
	repr string
}

func (self *FieldRef) Class() *Type {
	return self.cls
}

func (self *FieldRef) Name() *String {
	return self.name
}

func (self *FieldRef) Type() *Type {
	return self.typ
}

func (self *FieldRef) String() string {
	return self.repr
}

// MethodRef is an interned reference to a method: owner type, name and
// prototype. It may or may not resolve to a definition.
type MethodRef struct {
	cls   *Type
	name  *String
	proto *Proto
	repr  string
}

func (self *MethodRef) Class() *Type {
	return self.cls
}

func (self *MethodRef) Name() *String {
	return self.name
}

func (self *MethodRef) Proto() *Proto {
	return self.proto
}

func (self *MethodRef) String() string {
	return self.repr
}

func protoRepr(rtype *Type, args []*Type) string {
	var sb strings.Builder
	sb.WriteByte('(')
	for _, a := range args {
		sb.WriteString(a.String())
	}
	sb.WriteByte(')')
	sb.WriteString(rtype.String())
	return sb.String()
}

func fieldRepr(cls *Type, name *String, typ *Type) string {
	return cls.String() + "." + name.String() + ":" + typ.String()
}

func methodRepr(cls *Type, name *String, proto *Proto) string {
	return cls.String() + "." + name.String() + ":" + proto.String()
}

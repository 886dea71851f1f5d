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
	"github.com/bytedance/gopkg/collection/skipmap"
)

// Context is the process-wide interner. Make* methods are idempotent and
// safe for concurrent use: callers racing on the same textual form observe
// the same handle and no double allocation. Handles live until the Context
// itself is dropped; there is no mid-run deallocation.
//
// The keep-reason recording switch lives here rather than in a hidden
// global so that every pass receives it through its signature.
type Context struct {
	strings *skipmap.StringMap
	types   *skipmap.StringMap
	protos  *skipmap.StringMap
	fields  *skipmap.StringMap
	methods *skipmap.StringMap

	recordKeepReasons bool
}

func NewContext() *Context {
	return &Context{
		strings: skipmap.NewString(),
		types:   skipmap.NewString(),
		protos:  skipmap.NewString(),
		fields:  skipmap.NewString(),
		methods: skipmap.NewString(),
	}
}

// SetRecordKeepReasons flips the process-global keep-reason switch. It must
// be called before the pipeline starts; the flag is read-only afterwards.
func (self *Context) SetRecordKeepReasons(v bool) {
	self.recordKeepReasons = v
}

func (self *Context) RecordKeepReasons() bool {
	return self.recordKeepReasons
}

// MakeString interns s and returns its unique handle.
func (self *Context) MakeString(s string) *String {
	v, _ := self.strings.LoadOrStoreLazy(s, func() interface{} {
		return &String{s: s}
	})
	return v.(*String)
}

// GetString returns the handle for s if it was interned before.
func (self *Context) GetString(s string) (*String, bool) {
	v, ok := self.strings.Load(s)
	if !ok {
		return nil, false
	}
	return v.(*String), true
}

// MakeType interns the type named by descriptor desc.
func (self *Context) MakeType(desc string) *Type {
	v, _ := self.types.LoadOrStoreLazy(desc, func() interface{} {
		return &Type{name: self.MakeString(desc)}
	})
	return v.(*Type)
}

func (self *Context) GetType(desc string) (*Type, bool) {
	v, ok := self.types.Load(desc)
	if !ok {
		return nil, false
	}
	return v.(*Type), true
}

// MakeProto interns the prototype with the given return type and argument
// list. The canonical form is the DEX method descriptor, e.g. "(IJ)V".
func (self *Context) MakeProto(rtype *Type, args ...*Type) *Proto {
	repr := protoRepr(rtype, args)
	v, _ := self.protos.LoadOrStoreLazy(repr, func() interface{} {
		dup := make([]*Type, len(args))
		copy(dup, args)
		return &Proto{rtype: rtype, args: dup, repr: repr}
	})
	return v.(*Proto)
}

func (self *Context) GetProto(repr string) (*Proto, bool) {
	v, ok := self.protos.Load(repr)
	if !ok {
		return nil, false
	}
	return v.(*Proto), true
}

// MakeFieldRef interns the (owner, name, type) field reference.
func (self *Context) MakeFieldRef(cls *Type, name *String, typ *Type) *FieldRef {
	repr := fieldRepr(cls, name, typ)
	v, _ := self.fields.LoadOrStoreLazy(repr, func() interface{} {
		return &FieldRef{cls: cls, name: name, typ: typ, repr: repr}
	})
	return v.(*FieldRef)
}

func (self *Context) GetFieldRef(repr string) (*FieldRef, bool) {
	v, ok := self.fields.Load(repr)
	if !ok {
		return nil, false
	}
	return v.(*FieldRef), true
}

// MakeMethodRef interns the (owner, name, proto) method reference.
func (self *Context) MakeMethodRef(cls *Type, name *String, proto *Proto) *MethodRef {
	repr := methodRepr(cls, name, proto)
	v, _ := self.methods.LoadOrStoreLazy(repr, func() interface{} {
		return &MethodRef{cls: cls, name: name, proto: proto, repr: repr}
	})
	return v.(*MethodRef)
}

func (self *Context) GetMethodRef(repr string) (*MethodRef, bool) {
	v, ok := self.methods.Load(repr)
	if !ok {
		return nil, false
	}
	return v.(*MethodRef), true
}

// Counts returns the number of interned identifiers per kind, in the order
// strings, types, protos, fields, methods. Used by metrics and tests.
func (self *Context) Counts() (int, int, int, int, int) {
	return self.strings.Len(), self.types.Len(), self.protos.Len(), self.fields.Len(), self.methods.Len()
}

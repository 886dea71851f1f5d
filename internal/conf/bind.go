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

package conf

import (
	"encoding/json"

	"github.com/cloudwego/rdx/internal/ident"
)

// BindInt binds a signed integer option. An absent key assigns def; a
// value that is not an integral JSON number is a configuration error.
func (self *Binder) BindInt(name string, def int, dst *int, doc string, flags ...Flags) {
	fl, ok := self.prep(name, doc, TagInteger, 0, flags)
	if !ok {
		return
	}
	switch raw, p := self.value(name, fl); p {
	case _Absent:
		*dst = def
	case _Null:
		*dst = 0
	default:
		var v int
		if self.decode(name, raw, &v) {
			*dst = v
		}
	}
}

// BindUint binds an unsigned integer option; negative values are rejected.
func (self *Binder) BindUint(name string, def uint, dst *uint, doc string, flags ...Flags) {
	fl, ok := self.prep(name, doc, TagUnsigned, 0, flags)
	if !ok {
		return
	}
	switch raw, p := self.value(name, fl); p {
	case _Absent:
		*dst = def
	case _Null:
		*dst = 0
	default:
		var v uint
		if self.decode(name, raw, &v) {
			*dst = v
		}
	}
}

// BindInt64 binds a 64-bit signed integer option.
func (self *Binder) BindInt64(name string, def int64, dst *int64, doc string, flags ...Flags) {
	fl, ok := self.prep(name, doc, TagLong, 0, flags)
	if !ok {
		return
	}
	switch raw, p := self.value(name, fl); p {
	case _Absent:
		*dst = def
	case _Null:
		*dst = 0
	default:
		var v int64
		if self.decode(name, raw, &v) {
			*dst = v
		}
	}
}

// BindUint64 binds a 64-bit unsigned integer option.
func (self *Binder) BindUint64(name string, def uint64, dst *uint64, doc string, flags ...Flags) {
	fl, ok := self.prep(name, doc, TagUnsignedLong, 0, flags)
	if !ok {
		return
	}
	switch raw, p := self.value(name, fl); p {
	case _Absent:
		*dst = def
	case _Null:
		*dst = 0
	default:
		var v uint64
		if self.decode(name, raw, &v) {
			*dst = v
		}
	}
}

// BindBool binds a boolean option.
func (self *Binder) BindBool(name string, def bool, dst *bool, doc string, flags ...Flags) {
	fl, ok := self.prep(name, doc, TagBool, 0, flags)
	if !ok {
		return
	}
	switch raw, p := self.value(name, fl); p {
	case _Absent:
		*dst = def
	case _Null:
		*dst = false
	default:
		var v bool
		if self.decode(name, raw, &v) {
			*dst = v
		}
	}
}

// BindFloat binds a floating point option.
func (self *Binder) BindFloat(name string, def float64, dst *float64, doc string, flags ...Flags) {
	fl, ok := self.prep(name, doc, TagFloat, 0, flags)
	if !ok {
		return
	}
	switch raw, p := self.value(name, fl); p {
	case _Absent:
		*dst = def
	case _Null:
		*dst = 0
	default:
		var v float64
		if self.decode(name, raw, &v) {
			*dst = v
		}
	}
}

// BindString binds a string option.
func (self *Binder) BindString(name string, def string, dst *string, doc string, flags ...Flags) {
	fl, ok := self.prep(name, doc, TagString, 0, flags)
	if !ok {
		return
	}
	switch raw, p := self.value(name, fl); p {
	case _Absent:
		*dst = def
	case _Null:
		*dst = ""
	default:
		var v string
		if self.decode(name, raw, &v) {
			*dst = v
		}
	}
}

// BindJSON binds an option as its raw JSON value, for passes that decode a
// non-standard shape themselves. The bytes are copied out of the input.
func (self *Binder) BindJSON(name string, def json.RawMessage, dst *json.RawMessage, doc string, flags ...Flags) {
	fl, ok := self.prep(name, doc, TagJSONValue, 0, flags)
	if !ok {
		return
	}
	switch raw, p := self.value(name, fl); p {
	case _Absent:
		*dst = append(json.RawMessage(nil), def...)
	case _Null:
		*dst = nil
	default:
		if !json.Valid(raw) {
			self.fail("option %s: invalid JSON value", self.at(name))
			return
		}
		*dst = append(json.RawMessage(nil), raw...)
	}
}

// BindStringList binds an ordered list of strings.
func (self *Binder) BindStringList(name string, def []string, dst *[]string, doc string, flags ...Flags) {
	fl, ok := self.prep(name, doc, TagStringList, 0, flags)
	if !ok {
		return
	}
	switch raw, p := self.value(name, fl); p {
	case _Absent:
		*dst = append([]string(nil), def...)
	case _Null:
		*dst = nil
	default:
		var v []string
		if self.decode(name, raw, &v) {
			*dst = v
		}
	}
}

// BindStringSet binds a set of strings; the input remains a JSON array and
// duplicate entries collapse.
func (self *Binder) BindStringSet(name string, def []string, dst *map[string]bool, doc string, flags ...Flags) {
	fl, ok := self.prep(name, doc, TagStringSet, 0, flags)
	if !ok {
		return
	}
	switch raw, p := self.value(name, fl); p {
	case _Absent:
		*dst = stringSet(def)
	case _Null:
		*dst = nil
	default:
		var v []string
		if self.decode(name, raw, &v) {
			*dst = stringSet(v)
		}
	}
}

// BindTypeList binds a list of type references written as descriptors,
// e.g. "Lcom/foo/Bar;". A reference nothing in the program interned is
// dropped, warned about, or fatal per the unresolvable flags; a malformed
// descriptor is always a configuration error.
func (self *Binder) BindTypeList(name string, def []*ident.Type, dst *[]*ident.Type, doc string, flags ...Flags) {
	fl, ok := self.prep(name, doc, TagTypeList, _RefFlags, flags)
	if !ok {
		return
	}
	switch raw, p := self.value(name, fl); p {
	case _Absent:
		*dst = append([]*ident.Type(nil), def...)
	case _Null:
		*dst = nil
	default:
		var names []string
		if !self.decode(name, raw, &names) {
			return
		}
		out := make([]*ident.Type, 0, len(names))
		for _, s := range names {
			if t := self.resolveType(name, s, fl); t != nil {
				out = append(out, t)
			} else if self.failed() {
				return
			}
		}
		*dst = out
	}
}

// BindTypeSet binds a set of type references; membership is by interned
// handle.
func (self *Binder) BindTypeSet(name string, def []*ident.Type, dst *map[*ident.Type]bool, doc string, flags ...Flags) {
	fl, ok := self.prep(name, doc, TagTypeSet, _RefFlags, flags)
	if !ok {
		return
	}
	switch raw, p := self.value(name, fl); p {
	case _Absent:
		*dst = typeSet(def)
	case _Null:
		*dst = nil
	default:
		var names []string
		if !self.decode(name, raw, &names) {
			return
		}
		out := make(map[*ident.Type]bool, len(names))
		for _, s := range names {
			if t := self.resolveType(name, s, fl); t != nil {
				out[t] = true
			} else if self.failed() {
				return
			}
		}
		*dst = out
	}
}

// BindMethodList binds a list of method references written as
// "Lcls;.name:(args)ret". Unresolvable references follow the unresolvable
// flags; resolvable references without a definition in scope follow the
// not-def flags and are kept when neither is set.
func (self *Binder) BindMethodList(name string, def []*ident.MethodRef, dst *[]*ident.MethodRef, doc string, flags ...Flags) {
	fl, ok := self.prep(name, doc, TagMethodList, _RefFlags|_DefFlags, flags)
	if !ok {
		return
	}
	switch raw, p := self.value(name, fl); p {
	case _Absent:
		*dst = append([]*ident.MethodRef(nil), def...)
	case _Null:
		*dst = nil
	default:
		var names []string
		if !self.decode(name, raw, &names) {
			return
		}
		out := make([]*ident.MethodRef, 0, len(names))
		for _, s := range names {
			if m := self.resolveMethod(name, s, fl); m != nil {
				out = append(out, m)
			} else if self.failed() {
				return
			}
		}
		*dst = out
	}
}

// BindMethodSet binds a set of method references; membership is by interned
// handle.
func (self *Binder) BindMethodSet(name string, def []*ident.MethodRef, dst *map[*ident.MethodRef]bool, doc string, flags ...Flags) {
	fl, ok := self.prep(name, doc, TagMethodSet, _RefFlags|_DefFlags, flags)
	if !ok {
		return
	}
	switch raw, p := self.value(name, fl); p {
	case _Absent:
		*dst = methodSet(def)
	case _Null:
		*dst = nil
	default:
		var names []string
		if !self.decode(name, raw, &names) {
			return
		}
		out := make(map[*ident.MethodRef]bool, len(names))
		for _, s := range names {
			if m := self.resolveMethod(name, s, fl); m != nil {
				out[m] = true
			} else if self.failed() {
				return
			}
		}
		*dst = out
	}
}

// BindStringListMap binds a map from string keys to lists of strings.
func (self *Binder) BindStringListMap(name string, def map[string][]string, dst *map[string][]string, doc string, flags ...Flags) {
	fl, ok := self.prep(name, doc, TagStringListMap, 0, flags)
	if !ok {
		return
	}
	switch raw, p := self.value(name, fl); p {
	case _Absent:
		*dst = copyStringListMap(def)
	case _Null:
		*dst = nil
	default:
		var v map[string][]string
		if self.decode(name, raw, &v) {
			*dst = v
		}
	}
}

// BindComposite binds a nested configurable under name: the option value is
// a JSON object parsed by c's own BindConfig, and in reflect mode c's schema
// nests inside this one. An absent key still runs c's binds so its defaults
// land.
func (self *Binder) BindComposite(name string, c Configurable, doc string) {
	if self.failed() {
		return
	}
	if !self.parse {
		s := &Schema{Name: name, Doc: doc}
		child := &Binder{path: self.at(name), params: &s.Params, err: self.err}
		c.BindConfig(child)
		self.declare(name, doc, TagComposite, s)
		return
	}
	child := &Binder{parse: true, path: self.at(name), res: self.res, err: self.err}
	if raw, ok := self.vals[name]; ok && !isNull(raw) {
		if err := json.Unmarshal(raw, &child.vals); err != nil {
			self.fail("option %s is not a JSON object: %v", self.at(name), err)
			return
		}
	}
	c.BindConfig(child)
	if !self.failed() && child.after != nil {
		child.after()
	}
}

func stringSet(ss []string) map[string]bool {
	if ss == nil {
		return nil
	}
	m := make(map[string]bool, len(ss))
	for _, s := range ss {
		m[s] = true
	}
	return m
}

func typeSet(ts []*ident.Type) map[*ident.Type]bool {
	if ts == nil {
		return nil
	}
	m := make(map[*ident.Type]bool, len(ts))
	for _, t := range ts {
		m[t] = true
	}
	return m
}

func methodSet(ms []*ident.MethodRef) map[*ident.MethodRef]bool {
	if ms == nil {
		return nil
	}
	m := make(map[*ident.MethodRef]bool, len(ms))
	for _, v := range ms {
		m[v] = true
	}
	return m
}

func copyStringListMap(m map[string][]string) map[string][]string {
	if m == nil {
		return nil
	}
	out := make(map[string][]string, len(m))
	for k, v := range m {
		out[k] = append([]string(nil), v...)
	}
	return out
}

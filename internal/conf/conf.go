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

// Package conf implements the declarative option binder passes describe
// themselves with. A pass's BindConfig serves two modes through the same
// calls: in parse mode every bound option is read from the pass's JSON
// config object into its destination, in reflect mode the calls produce a
// schema of the pass's options and assign nothing.
package conf

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Configurable is anything with declaratively bound options. Passes are the
// primary implementors; composite options are Configurables themselves.
type Configurable interface {
	BindConfig(b *Binder)
}

// Flags adjust how a single binding treats its JSON value.
type Flags int

const (
	// ErrorIfUnresolvable makes an unresolvable type or method reference a
	// configuration error instead of a silently dropped entry.
	ErrorIfUnresolvable Flags = 1 << iota

	// WarnIfUnresolvable logs unresolvable references before dropping them.
	WarnIfUnresolvable

	// ErrorIfNotDef makes a method reference without a concrete definition
	// in scope a configuration error.
	ErrorIfNotDef

	// WarnIfNotDef logs method references without a definition before
	// dropping them.
	WarnIfNotDef

	// DistinguishNull assigns the zero value on an explicit JSON null where
	// the default says otherwise; without it null reads like an absent key.
	DistinguishNull
)

const (
	_RefFlags = ErrorIfUnresolvable | WarnIfUnresolvable
	_DefFlags = ErrorIfNotDef | WarnIfNotDef
)

/* how the input mentions one option */
type _Presence int

const (
	_Absent _Presence = iota
	_Null
	_Present
)

// Binder carries the state of one BindConfig run. Parse and Reflect
// construct it; BindConfig implementations only call its methods.
type Binder struct {
	parse  bool
	path   string
	vals   map[string]json.RawMessage
	res    Resolver
	params *[]Param
	after  func()
	err    *error
}

// Parse runs c's BindConfig in parse mode against raw, which must be a JSON
// object, null or empty. Every destination receives either its option value
// or the bound default. The first failure stops the remaining binds and is
// returned; the after-configuration hook runs only on success.
func Parse(c Configurable, name string, raw json.RawMessage, res Resolver) error {
	var err error
	b := &Binder{parse: true, path: name, res: res, err: &err}
	if len(raw) != 0 && !isNull(raw) {
		if uerr := json.Unmarshal(raw, &b.vals); uerr != nil {
			return fmt.Errorf("config for %s is not a JSON object: %w", name, uerr)
		}
	}
	c.BindConfig(b)
	if err != nil {
		return err
	}
	if b.after != nil {
		b.after()
	}
	return nil
}

// Reflect runs c's BindConfig in reflect mode and returns the schema tree
// rooted at name. No option value is read and no destination is assigned.
func Reflect(c Configurable, name string, doc string) (*Schema, error) {
	var err error
	s := &Schema{Name: name, Doc: doc}
	b := &Binder{path: name, params: &s.Params, err: &err}
	c.BindConfig(b)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// AfterConfiguration schedules fn to run once after this configurable's
// parse completes. Registering a second hook in the same BindConfig is a
// configuration error.
func (self *Binder) AfterConfiguration(fn func()) {
	if fn == nil {
		self.fail("configurable %s registered a nil after-configuration hook", self.path)
		return
	}
	if self.after != nil {
		self.fail("configurable %s registered two after-configuration hooks", self.path)
		return
	}
	self.after = fn
}

// Fail records a custom validation failure for the named option, for
// constraints the typed binds cannot express (enumerations, cross-option
// rules). It only fires while parsing; reflection sees defaults, which are
// valid by construction.
func (self *Binder) Fail(name string, err error) {
	if self.parse && err != nil {
		self.fail("option %s: %v", self.at(name), err)
	}
}

/* record the first failure; later binds become no-ops */
func (self *Binder) fail(format string, args ...interface{}) {
	if *self.err == nil {
		*self.err = fmt.Errorf(format, args...)
	}
}

func (self *Binder) failed() bool {
	return *self.err != nil
}

/* full option path for diagnostics, e.g. "MethodSplittingPass.limits.max_mrefs" */
func (self *Binder) at(name string) string {
	if self.path == "" {
		return name
	}
	return self.path + "." + name
}

func (self *Binder) declare(name, doc, tag string, nested *Schema) {
	if self.params != nil {
		kind := KindPrimitive
		if nested != nil {
			kind = KindComposite
		}
		*self.params = append(*self.params, Param{Name: name, Doc: doc, Type: tag, Kind: kind, Nested: nested})
	}
}

/* prep folds and validates the flags, records the schema entry, and reports
 * whether the caller should go on to read a value */
func (self *Binder) prep(name, doc, tag string, allowed Flags, flags []Flags) (Flags, bool) {
	if self.failed() {
		return 0, false
	}
	fl := Flags(0)
	for _, f := range flags {
		fl |= f
	}
	self.declare(name, doc, tag, nil)
	if bad := fl &^ (allowed | DistinguishNull); bad != 0 {
		self.fail("option %s: flags %#x do not apply to a %s option", self.at(name), int(bad), tag)
		return 0, false
	}
	if fl&ErrorIfUnresolvable != 0 && fl&WarnIfUnresolvable != 0 {
		self.fail("option %s: cannot both error and warn on unresolvable references", self.at(name))
		return 0, false
	}
	if fl&ErrorIfNotDef != 0 && fl&WarnIfNotDef != 0 {
		self.fail("option %s: cannot both error and warn on undefined methods", self.at(name))
		return 0, false
	}
	if !self.parse {
		return 0, false
	}
	return fl, true
}

func (self *Binder) value(name string, fl Flags) (json.RawMessage, _Presence) {
	raw, ok := self.vals[name]
	if !ok {
		return nil, _Absent
	}
	if isNull(raw) {
		if fl&DistinguishNull != 0 {
			return nil, _Null
		}
		return nil, _Absent
	}
	return raw, _Present
}

func (self *Binder) decode(name string, raw json.RawMessage, dst interface{}) bool {
	if err := json.Unmarshal(raw, dst); err != nil {
		self.fail("option %s: %v", self.at(name), err)
		return false
	}
	return true
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

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
	"strings"
)

// Access is the access-flag bitset carried by classes, fields and methods,
// using the DEX encoding.
type Access uint32

const (
	AccPublic Access = 1 << iota
	AccPrivate
	AccProtected
	AccStatic
	AccFinal
	AccSynchronized
	AccVolatile  // bridge, on methods
	AccTransient // varargs, on methods
	AccNative
	AccInterface
	AccAbstract
	AccStrict
	AccSynthetic
	AccAnnotation
	AccEnum
	_
	AccConstructor
	AccDeclaredSynchronized
)

var _AccNames = [...]string{
	"public",
	"private",
	"protected",
	"static",
	"final",
	"synchronized",
	"volatile",
	"transient",
	"native",
	"interface",
	"abstract",
	"strict",
	"synthetic",
	"annotation",
	"enum",
	"",
	"constructor",
	"declared-synchronized",
}

func (self Access) Has(f Access) bool   { return self&f != 0 }
func (self Access) IsPublic() bool      { return self.Has(AccPublic) }
func (self Access) IsPrivate() bool     { return self.Has(AccPrivate) }
func (self Access) IsProtected() bool   { return self.Has(AccProtected) }
func (self Access) IsStatic() bool      { return self.Has(AccStatic) }
func (self Access) IsFinal() bool       { return self.Has(AccFinal) }
func (self Access) IsNative() bool      { return self.Has(AccNative) }
func (self Access) IsInterface() bool   { return self.Has(AccInterface) }
func (self Access) IsAbstract() bool    { return self.Has(AccAbstract) }
func (self Access) IsSynthetic() bool   { return self.Has(AccSynthetic) }
func (self Access) IsConstructor() bool { return self.Has(AccConstructor) }

func (self Access) String() string {
	nb := []string(nil)
	for i, name := range _AccNames {
		if name != "" && self.Has(1<<uint(i)) {
			nb = append(nb, name)
		}
	}
	return strings.Join(nb, " ")
}

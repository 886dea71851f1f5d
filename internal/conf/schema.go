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

/* type tags, spelled the way the config documentation spells them */
const (
	TagInteger       = "integer"
	TagUnsigned      = "unsigned"
	TagLong          = "long"
	TagUnsignedLong  = "unsigned-long"
	TagBool          = "bool"
	TagFloat         = "float"
	TagString        = "string"
	TagJSONValue     = "json-value"
	TagStringList    = "list-of-string"
	TagStringSet     = "set-of-string"
	TagTypeList      = "list-of-type-reference"
	TagTypeSet       = "set-of-type-reference"
	TagMethodList    = "list-of-method-reference"
	TagMethodSet     = "set-of-method-reference"
	TagStringListMap = "map-of-string-to-list-of-string"
	TagComposite     = "composite"
)

const (
	KindPrimitive = "primitive"
	KindComposite = "composite"
)

// Schema is the reflected option tree of one configurable, in bind order.
type Schema struct {
	Name   string  `json:"name"`
	Doc    string  `json:"doc,omitempty"`
	Params []Param `json:"params"`
}

// Param is one reflected option: its type tag, its kind, its docstring, and
// for composites the nested schema.
type Param struct {
	Name   string  `json:"name"`
	Doc    string  `json:"doc,omitempty"`
	Type   string  `json:"type"`
	Kind   string  `json:"kind"`
	Nested *Schema `json:"schema,omitempty"`
}

// Find returns the named param, for tools that post-process schemas.
func (self *Schema) Find(name string) (Param, bool) {
	for _, p := range self.Params {
		if p.Name == name {
			return p, true
		}
	}
	return Param{}, false
}

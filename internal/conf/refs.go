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
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/cloudwego/rdx/internal/ident"
	"github.com/cloudwego/rdx/internal/ir"
)

// Resolver answers reference lookups for type and method options. Lookups
// never intern: a name nothing in the loaded program mentions stays
// unresolved, which is exactly what the unresolvable flags act on.
type Resolver interface {
	// ResolveType looks up an interned type by its descriptor.
	ResolveType(desc string) (*ident.Type, bool)

	// ResolveMethod looks up an interned method reference by its canonical
	// descriptor "Lcls;.name:(args)ret". def reports whether the scope holds
	// a concrete definition for it.
	ResolveMethod(desc string) (ref *ident.MethodRef, def bool, ok bool)
}

// ScopeResolver resolves reference options against the interner and an
// optional class index. Without an index every method reference counts as
// undefined.
type ScopeResolver struct {
	ctx *ident.Context
	idx *ir.ClassIndex
}

func NewScopeResolver(ctx *ident.Context, idx *ir.ClassIndex) *ScopeResolver {
	return &ScopeResolver{ctx: ctx, idx: idx}
}

func (self *ScopeResolver) ResolveType(desc string) (*ident.Type, bool) {
	return self.ctx.GetType(desc)
}

func (self *ScopeResolver) ResolveMethod(desc string) (*ident.MethodRef, bool, bool) {
	ref, ok := self.ctx.GetMethodRef(desc)
	if !ok {
		return nil, false, false
	}
	if self.idx == nil {
		return ref, false, true
	}
	cls := self.idx.Get(ref.Class())
	def := cls != nil && cls.FindMethod(ref.Name().String(), ref.Proto()) != nil
	return ref, def, true
}

func (self *Binder) resolveType(name, desc string, fl Flags) *ident.Type {
	if !validType(desc) {
		self.fail("option %s: malformed type descriptor %q", self.at(name), desc)
		return nil
	}
	if self.res == nil {
		self.fail("option %s: no resolver available for reference options", self.at(name))
		return nil
	}
	if t, ok := self.res.ResolveType(desc); ok {
		return t
	}
	if fl&ErrorIfUnresolvable != 0 {
		self.fail("option %s: unresolvable type %s", self.at(name), desc)
	} else if fl&WarnIfUnresolvable != 0 {
		log.Warnf("option %s: dropping unresolvable type %s", self.at(name), desc)
	}
	return nil
}

func (self *Binder) resolveMethod(name, desc string, fl Flags) *ident.MethodRef {
	if !validMethod(desc) {
		self.fail("option %s: malformed method reference %q", self.at(name), desc)
		return nil
	}
	if self.res == nil {
		self.fail("option %s: no resolver available for reference options", self.at(name))
		return nil
	}
	ref, def, ok := self.res.ResolveMethod(desc)
	if !ok {
		if fl&ErrorIfUnresolvable != 0 {
			self.fail("option %s: unresolvable method %s", self.at(name), desc)
		} else if fl&WarnIfUnresolvable != 0 {
			log.Warnf("option %s: dropping unresolvable method %s", self.at(name), desc)
		}
		return nil
	}
	if !def {
		if fl&ErrorIfNotDef != 0 {
			self.fail("option %s: method %s has no definition in scope", self.at(name), desc)
			return nil
		}
		if fl&WarnIfNotDef != 0 {
			log.Warnf("option %s: dropping method %s without a definition", self.at(name), desc)
			return nil
		}
	}
	return ref
}

/* scanType consumes one type descriptor at s[*i:], rejecting arrays of void */
func scanType(s string, i *int) bool {
	p := *i
	for *i < len(s) && s[*i] == '[' {
		*i++
	}
	if *i >= len(s) {
		return false
	}
	switch s[*i] {
	case 'Z', 'B', 'S', 'C', 'I', 'J', 'F', 'D':
		*i++
		return true
	case 'V':
		*i++
		return *i == p+1
	case 'L':
		j := strings.IndexByte(s[*i:], ';')
		if j < 2 {
			return false
		}
		*i += j + 1
		return true
	default:
		return false
	}
}

func validType(s string) bool {
	i := 0
	return scanType(s, &i) && i == len(s)
}

/* validMethod checks the canonical "Lcls;.name:(args)ret" form: a reference
 * owner, a member name free of separators, and a well-formed prototype */
func validMethod(s string) bool {
	d := strings.IndexByte(s, '.')
	if d < 0 {
		return false
	}
	c := strings.IndexByte(s[d:], ':')
	if c < 0 {
		return false
	}
	cls, name, proto := s[:d], s[d+1:d+c], s[d+c+1:]
	if !validType(cls) || (cls[0] != 'L' && cls[0] != '[') {
		return false
	}
	if name == "" || strings.ContainsAny(name, ".:;/") {
		return false
	}
	return validProto(proto)
}

func validProto(s string) bool {
	if len(s) == 0 || s[0] != '(' {
		return false
	}
	i := 1
	for i < len(s) && s[i] != ')' {
		p := i
		if !scanType(s, &i) || s[p] == 'V' {
			return false
		}
	}
	if i >= len(s) {
		return false
	}
	i++
	return scanType(s, &i) && i == len(s)
}

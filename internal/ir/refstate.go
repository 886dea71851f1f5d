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
	"sort"
	"sync"
	"sync/atomic"

	"github.com/cloudwego/rdx/internal/ident"
)

// KeepReasonKind says why a definition must survive the pipeline.
type KeepReasonKind uint8

const (
	KeepRule KeepReasonKind = iota // matched a keep rule
	ReflectionRef                  // referenced reflectively
	ResourceRef                    // referenced from resources
	ManifestRef                    // named in the manifest
	NativeRef                      // bound from native code
)

func (self KeepReasonKind) String() string {
	switch self {
	case KeepRule:
		return "keep-rule"
	case ReflectionRef:
		return "reflection"
	case ResourceRef:
		return "resource"
	case ManifestRef:
		return "manifest"
	case NativeRef:
		return "native"
	default:
		panic("unreachable")
	}
}

// KeepReason is one recorded justification for keeping a definition.
type KeepReason struct {
	Kind   KeepReasonKind
	Detail string
}

func (self KeepReason) String() string {
	if self.Detail == "" {
		return self.Kind.String()
	}
	return self.Kind.String() + ": " + self.Detail
}

const (
	stateKeep uint32 = 1 << iota
	stateByString
	stateByResources
	stateAllowShrink
	stateAllowObfuscate
)

// ReferencedState records, per class, method or field, why it must be kept
// and what the keep allows. The flag bits and the reference counter are
// atomic; the keep-reason set is guarded by a mutex and only populated when
// the context-wide record-keep-reasons switch was set before the run.
type ReferencedState struct {
	bits    uint32
	refs    int64
	mu      sync.Mutex
	reasons map[KeepReason]struct{}
}

func (self *ReferencedState) setBit(mask uint32) {
	for {
		old := atomic.LoadUint32(&self.bits)
		if old&mask == mask || atomic.CompareAndSwapUint32(&self.bits, old, old|mask) {
			return
		}
	}
}

func (self *ReferencedState) hasBit(mask uint32) bool {
	return atomic.LoadUint32(&self.bits)&mask != 0
}

// SetKeep marks the definition as kept. The reason is only retained when ctx
// records keep reasons.
func (self *ReferencedState) SetKeep(ctx *ident.Context, r KeepReason) {
	self.setBit(stateKeep)
	if !ctx.RecordKeepReasons() {
		return
	}
	self.mu.Lock()
	if self.reasons == nil {
		self.reasons = make(map[KeepReason]struct{})
	}
	self.reasons[r] = struct{}{}
	self.mu.Unlock()
}

func (self *ReferencedState) Keep() bool { return self.hasBit(stateKeep) }

func (self *ReferencedState) SetByString()      { self.setBit(stateByString) }
func (self *ReferencedState) ByString() bool    { return self.hasBit(stateByString) }
func (self *ReferencedState) SetByResources()   { self.setBit(stateByResources) }
func (self *ReferencedState) ByResources() bool { return self.hasBit(stateByResources) }

func (self *ReferencedState) SetAllowShrink()      { self.setBit(stateAllowShrink) }
func (self *ReferencedState) AllowShrink() bool    { return self.hasBit(stateAllowShrink) }
func (self *ReferencedState) SetAllowObfuscate()   { self.setBit(stateAllowObfuscate) }
func (self *ReferencedState) AllowObfuscate() bool { return self.hasBit(stateAllowObfuscate) }

// IncRef counts one more reference to the definition.
func (self *ReferencedState) IncRef() { atomic.AddInt64(&self.refs, 1) }

func (self *ReferencedState) RefCount() int64 { return atomic.LoadInt64(&self.refs) }

// CanDelete reports whether passes may drop the definition.
func (self *ReferencedState) CanDelete() bool {
	if self.ByResources() {
		return false
	}
	return !self.Keep() || self.AllowShrink()
}

// CanRename reports whether passes may rename the definition.
func (self *ReferencedState) CanRename() bool {
	if self.ByString() {
		return false
	}
	return !self.Keep() || self.AllowObfuscate()
}

// KeepReasons returns the recorded reasons in a stable order.
func (self *ReferencedState) KeepReasons() []KeepReason {
	self.mu.Lock()
	ret := make([]KeepReason, 0, len(self.reasons))
	for r := range self.reasons {
		ret = append(ret, r)
	}
	self.mu.Unlock()
	sort.Slice(ret, func(i, j int) bool {
		if ret[i].Kind != ret[j].Kind {
			return ret[i].Kind < ret[j].Kind
		}
		return ret[i].Detail < ret[j].Detail
	})
	return ret
}

// Pack serializes the flag bits and a saturated reference count into the
// 3-byte form used by irmeta.bin.
func (self *ReferencedState) Pack() [3]byte {
	bits := atomic.LoadUint32(&self.bits)
	refs := self.RefCount()
	if refs > 0xffff {
		refs = 0xffff
	}
	return [3]byte{byte(bits), byte(refs), byte(refs >> 8)}
}

// Unpack restores the flag bits and reference count from the packed form.
func (self *ReferencedState) Unpack(raw [3]byte) {
	atomic.StoreUint32(&self.bits, uint32(raw[0]))
	atomic.StoreInt64(&self.refs, int64(raw[1])|int64(raw[2])<<8)
}

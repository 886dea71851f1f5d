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

package pass

import (
	"sync/atomic"

	"github.com/bytedance/gopkg/collection/skipmap"
)

// Metrics is the pass → counter → value table. Counters appear on first
// touch and update atomically, so the tasks inside a pass can report from
// any worker, and later passes can read what earlier ones wrote.
type Metrics struct {
	passes *skipmap.StringMap
}

func NewMetrics() *Metrics {
	return &Metrics{passes: skipmap.NewString()}
}

func (self *Metrics) slot(pass, counter string) *int64 {
	b, _ := self.passes.LoadOrStoreLazy(pass, func() interface{} {
		return skipmap.NewString()
	})
	v, _ := b.(*skipmap.StringMap).LoadOrStoreLazy(counter, func() interface{} {
		return new(int64)
	})
	return v.(*int64)
}

// Incr adds v to the counter.
func (self *Metrics) Incr(pass, counter string, v int64) {
	atomic.AddInt64(self.slot(pass, counter), v)
}

// Set overwrites the counter.
func (self *Metrics) Set(pass, counter string, v int64) {
	atomic.StoreInt64(self.slot(pass, counter), v)
}

// Get reads one counter; ok is false when it was never touched.
func (self *Metrics) Get(pass, counter string) (int64, bool) {
	b, ok := self.passes.Load(pass)
	if !ok {
		return 0, false
	}
	v, ok := b.(*skipmap.StringMap).Load(counter)
	if !ok {
		return 0, false
	}
	return atomic.LoadInt64(v.(*int64)), true
}

// RangePass visits one pass's counters in name order.
func (self *Metrics) RangePass(pass string, fn func(counter string, v int64)) {
	b, ok := self.passes.Load(pass)
	if !ok {
		return
	}
	b.(*skipmap.StringMap).Range(func(counter string, value interface{}) bool {
		fn(counter, atomic.LoadInt64(value.(*int64)))
		return true
	})
}

// Flatten renders the table with "<pass>.<counter>" keys, the shape of the
// metrics report file.
func (self *Metrics) Flatten() map[string]int64 {
	out := make(map[string]int64)
	self.passes.Range(func(pass string, value interface{}) bool {
		value.(*skipmap.StringMap).Range(func(counter string, slot interface{}) bool {
			out[pass+"."+counter] = atomic.LoadInt64(slot.(*int64))
			return true
		})
		return true
	})
	return out
}

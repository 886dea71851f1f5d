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

// Package check houses the concrete pipeline checkers. Each one guards a
// single property: positive checkers verify the program once the property
// is established, negative checkers verify the debt is actually gone once
// no pass owes it anymore.
//
// Checkers walk classes and methods in parallel and collect violations in
// a concurrent set, so the one they report is the smallest under string
// order no matter how the walk interleaved.
package check

import (
	"errors"
	"fmt"

	"github.com/bytedance/gopkg/collection/skipset"

	"github.com/cloudwego/rdx/internal/pass"
)

// Violation pinpoints one offending site: the class or method it lives in,
// the instruction when one is involved, and the reason it is wrong.
type Violation struct {
	Class  string
	Method string
	Insn   string
	Reason string
}

func (self Violation) Error() string {
	loc := self.Class
	if self.Method != "" {
		loc = self.Method
	}
	if self.Insn != "" {
		return fmt.Sprintf("%s: instruction '%s': %s", loc, self.Insn, self.Reason)
	}
	return fmt.Sprintf("%s: %s", loc, self.Reason)
}

// All returns one instance of every checker, in the order the pipeline
// consults them.
func All() []pass.Checker {
	return []pass.Checker{
		Accessibility{},
		InjectionIdInstructions{},
		NoResolvablePureRefs{},
		NoSpuriousGetClassCalls{},
		HasSourceBlocks{},
		DexLimitsObeyed{},
	}
}

type _Collector struct {
	violations *skipset.StringSet
}

func newCollector() *_Collector {
	return &_Collector{violations: skipset.NewString()}
}

func (self *_Collector) report(v Violation) {
	self.violations.Add(v.Error())
}

func (self *_Collector) err() error {
	n := self.violations.Len()
	if n == 0 {
		return nil
	}
	first := ""
	self.violations.Range(func(s string) bool {
		first = s
		return false
	})
	if n > 1 {
		return fmt.Errorf("%s (and %d more)", first, n-1)
	}
	return errors.New(first)
}

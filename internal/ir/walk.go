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
	"sync"

	"github.com/bytedance/gopkg/util/gopool"
)

/* forEachClassParallel fans the scope out over a bounded worker pool, one
 * task per class. A panic in any task is re-raised on the caller after all
 * tasks drained, so failures keep their meaning instead of dying inside a
 * pool worker. */
func forEachClassParallel(scope []*DexClass, workers int, fn func(*DexClass)) {
	if workers <= 1 || len(scope) <= 1 {
		for _, cls := range scope {
			fn(cls)
		}
		return
	}
	var (
		wg      sync.WaitGroup
		once    sync.Once
		failure interface{}
	)
	pool := gopool.NewPool("rdx.walk", int32(workers), gopool.NewConfig())
	wg.Add(len(scope))
	for _, cls := range scope {
		c := cls
		pool.Go(func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					once.Do(func() { failure = r })
				}
			}()
			fn(c)
		})
	}
	wg.Wait()
	if failure != nil {
		panic(failure)
	}
}

// WalkClassesParallel visits every class in the scope on up to workers
// goroutines. Visit order is unspecified; fn must be safe to run
// concurrently against distinct classes.
func WalkClassesParallel(scope []*DexClass, workers int, fn func(*DexClass)) {
	forEachClassParallel(scope, workers, fn)
}

// WalkMethodsParallel visits every method of every class in the scope.
// Classes are distributed over workers; methods of one class are visited
// sequentially in declaration order.
func WalkMethodsParallel(scope []*DexClass, workers int, fn func(*DexMethod)) {
	forEachClassParallel(scope, workers, func(cls *DexClass) {
		for _, m := range cls.AllMethods() {
			fn(m)
		}
	})
}

// WalkCodeParallel visits every method that carries a body.
func WalkCodeParallel(scope []*DexClass, workers int, fn func(*DexMethod, *IRCode)) {
	WalkMethodsParallel(scope, workers, func(m *DexMethod) {
		if code := m.Code(); code != nil {
			fn(m, code)
		}
	})
}

// WalkClasses visits every class in scope order on the calling goroutine.
func WalkClasses(scope []*DexClass, fn func(*DexClass)) {
	for _, cls := range scope {
		fn(cls)
	}
}

// WalkMethods visits every method in deterministic scope order.
func WalkMethods(scope []*DexClass, fn func(*DexMethod)) {
	for _, cls := range scope {
		for _, m := range cls.AllMethods() {
			fn(m)
		}
	}
}

// WalkCode visits every method body in deterministic scope order.
func WalkCode(scope []*DexClass, fn func(*DexMethod, *IRCode)) {
	WalkMethods(scope, func(m *DexMethod) {
		if code := m.Code(); code != nil {
			fn(m, code)
		}
	})
}

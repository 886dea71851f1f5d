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
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMetrics_Basics(t *testing.T) {
	m := NewMetrics()
	_, ok := m.Get("Splitter", "closures")
	require.False(t, ok)

	m.Incr("Splitter", "closures", 3)
	m.Incr("Splitter", "closures", 4)
	m.Set("Splitter", "rollbacks", 1)
	m.Set("Splitter", "rollbacks", 2)
	m.Incr("InterDex", "reserved_mrefs", 10)

	v, ok := m.Get("Splitter", "closures")
	require.True(t, ok)
	require.Equal(t, int64(7), v)
	v, ok = m.Get("Splitter", "rollbacks")
	require.True(t, ok)
	require.Equal(t, int64(2), v)

	require.Equal(t, map[string]int64{
		"Splitter.closures":       7,
		"Splitter.rollbacks":      2,
		"InterDex.reserved_mrefs": 10,
	}, m.Flatten())
}

func TestMetrics_RangeOrder(t *testing.T) {
	m := NewMetrics()
	m.Incr("P", "zeta", 1)
	m.Incr("P", "alpha", 2)
	m.Incr("P", "mid", 3)

	var names []string
	m.RangePass("P", func(counter string, v int64) {
		names = append(names, counter)
	})
	require.Equal(t, []string{"alpha", "mid", "zeta"}, names)

	m.RangePass("Missing", func(string, int64) { t.Fatal("no counters expected") })
}

func TestMetrics_ConcurrentIncr(t *testing.T) {
	m := NewMetrics()
	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m.Incr("P", "hits", 1)
			}
		}()
	}
	wg.Wait()

	v, ok := m.Get("P", "hits")
	require.True(t, ok)
	require.Equal(t, int64(6400), v)
}

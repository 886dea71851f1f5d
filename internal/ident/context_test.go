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

package ident

import (
	"sync"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/require"
)

func TestInterning_Identity(t *testing.T) {
	ctx := NewContext()
	t1 := ctx.MakeType("Lfoo/Bar;")
	t2 := ctx.MakeType("Lfoo/Bar;")
	require.True(t, t1 == t2, "equal descriptors must intern to the same handle")

	s1 := ctx.MakeString("hello")
	s2 := ctx.MakeString("hello")
	require.True(t, s1 == s2)

	p1 := ctx.MakeProto(ctx.MakeType("V"), ctx.MakeType("I"), ctx.MakeType("J"))
	p2 := ctx.MakeProto(ctx.MakeType("V"), ctx.MakeType("I"), ctx.MakeType("J"))
	require.True(t, p1 == p2)
	require.Equal(t, "(IJ)V", p1.String())

	f1 := ctx.MakeFieldRef(t1, ctx.MakeString("count"), ctx.MakeType("I"))
	f2 := ctx.MakeFieldRef(t1, ctx.MakeString("count"), ctx.MakeType("I"))
	require.True(t, f1 == f2)
	require.Equal(t, "Lfoo/Bar;.count:I", f1.String())

	m1 := ctx.MakeMethodRef(t1, ctx.MakeString("run"), p1)
	m2 := ctx.MakeMethodRef(t1, ctx.MakeString("run"), p1)
	require.True(t, m1 == m2)
	require.Equal(t, "Lfoo/Bar;.run:(IJ)V", m1.String())
}

func TestInterning_Lookup(t *testing.T) {
	ctx := NewContext()
	_, ok := ctx.GetType("Lmissing;")
	require.False(t, ok)

	made := ctx.MakeType("Lpresent;")
	got, ok := ctx.GetType("Lpresent;")
	require.True(t, ok)
	require.True(t, made == got)
}

func TestInterning_Concurrent(t *testing.T) {
	const workers = 16
	const names = 256

	f := gofakeit.New(42)
	descs := make([]string, names)
	for i := range descs {
		descs[i] = "Lgen/" + f.LetterN(12) + ";"
	}

	ctx := NewContext()
	out := make([][]*Type, workers)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			out[w] = make([]*Type, names)
			for i, d := range descs {
				out[w][i] = ctx.MakeType(d)
			}
		}(w)
	}
	wg.Wait()

	for w := 1; w < workers; w++ {
		for i := range descs {
			require.True(t, out[0][i] == out[w][i], "worker %d disagrees on %q", w, descs[i])
		}
	}

	_, nt, _, _, _ := ctx.Counts()
	require.LessOrEqual(t, nt, names, "no double allocation under contention")
}

func TestTypeClassification(t *testing.T) {
	ctx := NewContext()
	require.True(t, ctx.MakeType("I").Primitive())
	require.True(t, ctx.MakeType("J").Wide())
	require.True(t, ctx.MakeType("D").Wide())
	require.False(t, ctx.MakeType("I").Wide())
	require.True(t, ctx.MakeType("Lfoo/Bar;").Object())
	require.True(t, ctx.MakeType("[I").Object())
	require.True(t, ctx.MakeType("V").Void())
	require.Equal(t, "Bar", ctx.MakeType("Lfoo/Bar;").SimpleName())
	require.Equal(t, "foo.Bar", ctx.MakeType("Lfoo/Bar;").JavaName())
}

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
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/cloudwego/rdx/internal/ident"
	"github.com/stretchr/testify/require"
)

func newScopeClass(ctx *ident.Context, name string) *DexClass {
	return NewClass(ctx.MakeType(name), ctx.MakeType("Ljava/lang/Object;"), AccPublic)
}

func TestStore_Layout(t *testing.T) {
	ctx := ident.NewContext()
	a := newScopeClass(ctx, "Lapp/A;")
	b := newScopeClass(ctx, "Lapp/B;")
	c := newScopeClass(ctx, "Lapp/C;")

	store := NewStore(RootStoreName)
	require.True(t, store.IsRoot())
	require.Equal(t, 0, store.AddDex([]*DexClass{a, b}))
	require.Equal(t, 1, store.AddDex([]*DexClass{c}))
	require.Equal(t, 2, store.NumDexen())
	require.Equal(t, "classes/00", a.Location())
	require.Equal(t, "classes/00", b.Location())
	require.Equal(t, "classes/01", c.Location())
	require.Equal(t, []*DexClass{a, b, c}, store.Classes())
	require.Equal(t, []*DexClass{c}, store.Dex(1))

	d := newScopeClass(ctx, "Lfeature/D;")
	aux := NewStore("feature-search")
	aux.AddDex([]*DexClass{d})
	require.False(t, aux.IsRoot())
	require.Equal(t, "feature-search/00", d.Location())
	require.Equal(t, []*DexClass{a, b, c, d}, BuildScope([]*DexStore{store, aux}))

	store.SetDex(1, []*DexClass{c, d})
	require.Equal(t, "classes/01", d.Location())
}

func TestRefCounts(t *testing.T) {
	ctx := ident.NewContext()
	cls := newScopeClass(ctx, "Lapp/A;")
	intT := ctx.MakeType("I")
	void := ctx.MakeProto(ctx.MakeType("V"))

	fref := ctx.MakeFieldRef(cls.Type(), ctx.MakeString("n"), intT)
	cls.AddField(NewField(fref, AccPublic|AccStatic))

	run := NewMethod(ctx.MakeMethodRef(cls.Type(), ctx.MakeString("run"), void), AccPublic|AccStatic)
	cls.AddMethod(run)
	other := ctx.MakeMethodRef(ctx.MakeType("Lapp/B;"), ctx.MakeString("bar"), void)
	run.SetCode(NewCode(1,
		NewInsn(OpSget).SetField(fref),
		NewInsn(OpMoveResultPseudo).SetDest(0),
		NewInsn(OpInvokeStatic).SetMethod(other),
		NewInsn(OpReturnVoid),
	))

	classes := []*DexClass{cls}
	require.Equal(t, 2, MethodRefCount(classes), "the declared method and the invoked one")
	require.Equal(t, 1, FieldRefCount(classes), "declared and referenced share one interned ref")
	/* Lapp/A; Ljava/lang/Object; I V Lapp/B; */
	require.Equal(t, 5, TypeRefCount(classes))

	/* catch types count as type references in either form */
	exc := ctx.MakeType("Ljava/lang/Exception;")
	catch := &CatchMarker{Type: exc}
	guard := NewMethod(ctx.MakeMethodRef(cls.Type(), ctx.MakeString("guard"), void), AccPublic)
	cls.AddMethod(guard)
	guard.SetCode(NewCode(1,
		NewInsn(OpLoadParamObject).SetDest(0),
		&TryMarker{Kind: TryStart, Catch: catch},
		NewInsn(OpMonitorEnter).SetSrcs(0),
		NewInsn(OpReturnVoid),
		&TryMarker{Kind: TryEnd, Catch: catch},
		catch,
		NewInsn(OpReturnVoid),
	))
	require.Equal(t, 6, TypeRefCount(classes))
	guard.Code().BuildCFG()
	require.Equal(t, 6, TypeRefCount(classes))
}

func TestWalk_ParallelMatchesSequential(t *testing.T) {
	ctx := ident.NewContext()
	void := ctx.MakeProto(ctx.MakeType("V"))
	scope := make([]*DexClass, 0, 64)
	for i := 0; i < 64; i++ {
		cls := newScopeClass(ctx, fmt.Sprintf("Lgen/C%03d;", i))
		run := NewMethod(ctx.MakeMethodRef(cls.Type(), ctx.MakeString("run"), void), AccPublic|AccStatic)
		run.SetCode(NewCode(1, NewInsn(OpReturnVoid)))
		cls.AddMethod(run)
		cls.AddMethod(NewMethod(ctx.MakeMethodRef(cls.Type(), ctx.MakeString("helper"), void), AccPublic))
		scope = append(scope, cls)
	}

	want := make(map[string]int)
	WalkMethods(scope, func(m *DexMethod) { want[m.String()]++ })
	require.Len(t, want, 128)

	var mu sync.Mutex
	got := make(map[string]int)
	WalkMethodsParallel(scope, 8, func(m *DexMethod) {
		mu.Lock()
		got[m.String()]++
		mu.Unlock()
	})
	require.Equal(t, want, got)

	var bodies int64
	WalkCodeParallel(scope, 8, func(m *DexMethod, code *IRCode) {
		atomic.AddInt64(&bodies, 1)
	})
	require.EqualValues(t, 64, bodies, "methods without a body are skipped")

	var classes int64
	WalkClassesParallel(scope, 8, func(cls *DexClass) {
		atomic.AddInt64(&classes, 1)
	})
	require.EqualValues(t, 64, classes)
}

func TestWalk_PanicPropagates(t *testing.T) {
	ctx := ident.NewContext()
	scope := make([]*DexClass, 0, 32)
	for i := 0; i < 32; i++ {
		scope = append(scope, newScopeClass(ctx, fmt.Sprintf("Lgen/P%02d;", i)))
	}
	require.PanicsWithValue(t, "boom", func() {
		WalkClassesParallel(scope, 4, func(cls *DexClass) {
			if cls == scope[17] {
				panic("boom")
			}
		})
	})
}

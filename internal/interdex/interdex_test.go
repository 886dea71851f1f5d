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

package interdex

import (
	"testing"

	"github.com/cloudwego/rdx/internal/conf"
	"github.com/cloudwego/rdx/internal/ident"
	"github.com/cloudwego/rdx/internal/ir"
	"github.com/cloudwego/rdx/internal/pass"
	"github.com/stretchr/testify/require"
)

type _Scene struct {
	ctx  *ident.Context
	obj  *ident.Type
	void *ident.Proto
}

func newScene() *_Scene {
	ctx := ident.NewContext()
	return &_Scene{
		ctx:  ctx,
		obj:  ctx.MakeType("Ljava/lang/Object;"),
		void: ctx.MakeProto(ctx.MakeType("V")),
	}
}

func (self *_Scene) class(desc string) *ir.DexClass {
	return ir.NewClass(self.ctx.MakeType(desc), self.obj, ir.AccPublic)
}

func (self *_Scene) method(cls *ir.DexClass, name string, items ...ir.MethodItem) *ir.DexMethod {
	m := ir.NewMethod(self.ctx.MakeMethodRef(cls.Type(), self.ctx.MakeString(name), self.void), ir.AccPublic)
	cls.AddMethod(m)
	if len(items) > 0 {
		m.SetCode(ir.NewCode(4, items...))
	}
	return m
}

func (self *_Scene) types(classes ...*ir.DexClass) []*ident.Type {
	out := make([]*ident.Type, 0, len(classes))
	for _, cls := range classes {
		out = append(out, cls.Type())
	}
	return out
}

func descriptors(ts []*ident.Type) []string {
	out := make([]string, 0, len(ts))
	for _, t := range ts {
		out = append(out, t.String())
	}
	return out
}

func TestParseColdstart(t *testing.T) {
	cold := ParseColdstart([]string{
		"Lapp/Main;",
		"Lapp/Splash;",
		"LDexEndMarker0;",
		"Lapp/Feed;",
		"Lapp/Main;",
		"LDexEndMarker1;",
		"Lapp/Settings;",
	})
	require.Equal(t, 3, cold.NumOrdered())
	require.Equal(t, 4, cold.NumGroups())
	require.Equal(t, 3, cold.Leftover())

	g, ok := cold.GroupOf("Lapp/Main;")
	require.True(t, ok)
	require.Equal(t, 0, g)

	/* a repeated listing keeps its hotter position */
	g, _ = cold.GroupOf("Lapp/Feed;")
	require.Equal(t, 1, g)
	g, _ = cold.GroupOf("Lapp/Settings;")
	require.Equal(t, 2, g)

	_, ok = cold.GroupOf("Lapp/Nowhere;")
	require.False(t, ok)
	_, ok = cold.GroupOf("LDexEndMarker0;")
	require.False(t, ok)

	empty := ParseColdstart(nil)
	require.Equal(t, 1, empty.NumOrdered())
	require.Equal(t, 2, empty.NumGroups())
}

func TestModeStrings(t *testing.T) {
	for _, m := range []Mode{ModeDisabled, ModeNonHotSet, ModeNonOrderedSet, ModeFull} {
		parsed, err := ParseMode(m.String())
		require.NoError(t, err)
		require.Equal(t, m, parsed)
	}
	_, err := ParseMode("sideways")
	require.ErrorContains(t, err, `unknown interdex mode "sideways"`)

	for _, im := range []InferringMode{InferAllInstructions, InferHotBlocks} {
		parsed, err := ParseInferringMode(im.String())
		require.NoError(t, err)
		require.Equal(t, im, parsed)
	}
	_, err = ParseInferringMode("guess")
	require.ErrorContains(t, err, `unknown inferring mode "guess"`)
}

/* the shared grouping scene:
 *
 *   coldstart: Main | marker | Feed, Widget     (2 ordered groups)
 *   Main.boot  news Widget, calls Util.boot     (group-0 observer)
 *   Feed.load  reads Cache.data                 (group-1 observer)
 *   Attic      unlisted and never loaded        (leftover, group 2)
 *
 * Widget is listed in group 1 but loaded from group 0, so the load wins. */
func groupingScene(t *testing.T) (*_Scene, []*ir.DexClass, *Coldstart) {
	t.Helper()
	s := newScene()

	widget := s.class("Lapp/Widget;")
	util := s.class("Lapp/Util;")
	cache := s.class("Lapp/Cache;")
	attic := s.class("Lapp/Attic;")

	main := s.class("Lapp/Main;")
	boot := s.ctx.MakeMethodRef(util.Type(), s.ctx.MakeString("boot"), s.void)
	s.method(main, "boot",
		ir.NewInsn(ir.OpNewInstance).SetType(widget.Type()),
		ir.NewInsn(ir.OpMoveResultPseudoObject).SetDest(0),
		ir.NewInsn(ir.OpInvokeStatic).SetMethod(boot),
		ir.NewInsn(ir.OpReturnVoid))

	feed := s.class("Lapp/Feed;")
	data := s.ctx.MakeFieldRef(cache.Type(), s.ctx.MakeString("data"), s.obj)
	s.method(feed, "load",
		ir.NewInsn(ir.OpSgetObject).SetField(data),
		ir.NewInsn(ir.OpMoveResultPseudoObject).SetDest(0),
		ir.NewInsn(ir.OpReturnVoid))

	cold := ParseColdstart([]string{
		"Lapp/Main;",
		"LDexEndMarker0;",
		"Lapp/Feed;",
		"Lapp/Widget;",
	})
	scope := []*ir.DexClass{widget, util, cache, attic, main, feed}
	return s, scope, cold
}

func TestBuildGrouping_Full(t *testing.T) {
	s, scope, cold := groupingScene(t)
	g := BuildGrouping(s.types(scope...), scope, cold, Options{Mode: ModeFull})

	require.Equal(t, 3, g.NumGroups())
	require.Equal(t, 6, g.Len())

	for desc, want := range map[string]int{
		"Lapp/Main;":   0,
		"Lapp/Widget;": 0,
		"Lapp/Util;":   0,
		"Lapp/Feed;":   1,
		"Lapp/Cache;":  1,
		"Lapp/Attic;":  2,
	} {
		got, ok := g.GroupOf(s.ctx.MakeType(desc))
		require.True(t, ok, desc)
		require.Equal(t, want, got, desc)
	}

	require.Equal(t, []string{"Lapp/Main;", "Lapp/Util;", "Lapp/Widget;"}, descriptors(g.Group(0)))
	require.Equal(t, []string{"Lapp/Cache;", "Lapp/Feed;"}, descriptors(g.Group(1)))
	require.Equal(t, []string{"Lapp/Attic;"}, descriptors(g.Group(2)))
}

func TestBuildGrouping_Modes(t *testing.T) {
	s, scope, cold := groupingScene(t)
	candidates := s.types(scope...)

	g := BuildGrouping(candidates, scope, cold, Options{Mode: ModeNonHotSet})
	require.Equal(t, 3, g.NumGroups())
	require.Equal(t, 3, g.Len())
	require.Empty(t, g.Group(0))
	_, ok := g.GroupOf(s.ctx.MakeType("Lapp/Widget;"))
	require.False(t, ok)
	got, ok := g.GroupOf(s.ctx.MakeType("Lapp/Cache;"))
	require.True(t, ok)
	require.Equal(t, 1, got)

	g = BuildGrouping(candidates, scope, cold, Options{Mode: ModeNonOrderedSet})
	require.Equal(t, 3, g.NumGroups())
	require.Equal(t, 1, g.Len())
	require.Empty(t, g.Group(1))
	require.Equal(t, []string{"Lapp/Attic;"}, descriptors(g.Group(2)))

	g = BuildGrouping(candidates, scope, cold, Options{Mode: ModeDisabled})
	require.Equal(t, 1, g.NumGroups())
	require.Equal(t, 6, g.Len())
	require.Equal(t, []string{
		"Lapp/Attic;", "Lapp/Cache;", "Lapp/Feed;",
		"Lapp/Main;", "Lapp/Util;", "Lapp/Widget;",
	}, descriptors(g.Group(0)))
	got, ok = g.GroupOf(s.ctx.MakeType("Lapp/Attic;"))
	require.True(t, ok)
	require.Equal(t, 0, got)
}

func TestBuildGrouping_HotBlocksFlat(t *testing.T) {
	s := newScene()
	pre := s.class("Lapp/Pre;")
	chill := s.class("Lapp/Chill;")
	eager := s.class("Lapp/Eager;")

	main := s.class("Lapp/Main;")
	warm := s.ctx.MakeMethodRef(pre.Type(), s.ctx.MakeString("warm"), s.void)
	s.method(main, "boot",
		/* before the first source block: no profile, never hot */
		ir.NewInsn(ir.OpInvokeStatic).SetMethod(warm),
		&ir.SourceBlock{ID: 0, Vals: []ir.Val{{Hit: 0, Appear: 1}}},
		ir.NewInsn(ir.OpNewInstance).SetType(chill.Type()),
		ir.NewInsn(ir.OpMoveResultPseudoObject).SetDest(0),
		&ir.SourceBlock{ID: 1, Vals: []ir.Val{{Hit: 3, Appear: 1}}},
		ir.NewInsn(ir.OpNewInstance).SetType(eager.Type()),
		ir.NewInsn(ir.OpMoveResultPseudoObject).SetDest(0),
		ir.NewInsn(ir.OpReturnVoid))

	scope := []*ir.DexClass{pre, chill, eager, main}
	candidates := s.types(pre, chill, eager)
	cold := ParseColdstart([]string{"Lapp/Main;"})

	g := BuildGrouping(candidates, scope, cold, Options{Mode: ModeFull, Inferring: InferAllInstructions})
	for _, c := range candidates {
		got, ok := g.GroupOf(c)
		require.True(t, ok)
		require.Equal(t, 0, got, c.String())
	}

	g = BuildGrouping(candidates, scope, cold, Options{Mode: ModeFull, Inferring: InferHotBlocks})
	got, _ := g.GroupOf(eager.Type())
	require.Equal(t, 0, got)
	got, _ = g.GroupOf(pre.Type())
	require.Equal(t, cold.Leftover(), got)
	got, _ = g.GroupOf(chill.Type())
	require.Equal(t, cold.Leftover(), got)
}

func TestBuildGrouping_HotBlocksCFG(t *testing.T) {
	s := newScene()
	chill := s.class("Lapp/Chill;")
	eager := s.class("Lapp/Eager;")

	main := s.class("Lapp/Main;")
	m := s.method(main, "boot",
		&ir.SourceBlock{ID: 0, Vals: []ir.Val{{Hit: 1, Appear: 1}}},
		ir.NewInsn(ir.OpConst).SetDest(0).SetLiteral(0),
		ir.NewInsn(ir.OpIfEqz).SetSrcs(0).SetTarget(0),
		&ir.SourceBlock{ID: 1, Vals: []ir.Val{{Hit: 0, Appear: 1}}},
		ir.NewInsn(ir.OpNewInstance).SetType(chill.Type()),
		ir.NewInsn(ir.OpMoveResultPseudoObject).SetDest(1),
		ir.NewInsn(ir.OpGoto).SetTarget(1),
		&ir.Label{ID: 0},
		&ir.SourceBlock{ID: 2, Vals: []ir.Val{{Hit: 4, Appear: 1}}},
		ir.NewInsn(ir.OpNewInstance).SetType(eager.Type()),
		ir.NewInsn(ir.OpMoveResultPseudoObject).SetDest(1),
		&ir.Label{ID: 1},
		ir.NewInsn(ir.OpReturnVoid))
	m.Code().BuildCFG()

	scope := []*ir.DexClass{chill, eager, main}
	candidates := s.types(chill, eager)
	cold := ParseColdstart([]string{"Lapp/Main;"})

	g := BuildGrouping(candidates, scope, cold, Options{Mode: ModeFull, Inferring: InferHotBlocks})
	got, _ := g.GroupOf(eager.Type())
	require.Equal(t, 0, got)
	got, _ = g.GroupOf(chill.Type())
	require.Equal(t, cold.Leftover(), got)

	g = BuildGrouping(candidates, scope, cold, Options{Mode: ModeFull, Inferring: InferAllInstructions})
	got, _ = g.GroupOf(chill.Type())
	require.Equal(t, 0, got)
}

func TestInterDexPass_Metrics(t *testing.T) {
	s := newScene()
	widget := s.class("Lapp/Widget;")
	main := s.class("Lapp/Main;")
	s.method(main, "boot",
		ir.NewInsn(ir.OpNewInstance).SetType(widget.Type()),
		ir.NewInsn(ir.OpMoveResultPseudoObject).SetDest(0),
		ir.NewInsn(ir.OpReturnVoid))
	attic := s.class("Lapp/Attic;")

	st := ir.NewStore(ir.RootStoreName)
	st.AddDex([]*ir.DexClass{main, widget, attic})
	stores := []*ir.DexStore{st}

	g, err := conf.ParseGlobal([]byte(`{
		"coldstart_classes": ["Lapp/Main;", "LDexEndMarker0;"],
		"InterDexPass": {"mode": "full", "reserved_mrefs": 16, "reserved_trefs": 8}
	}`))
	require.NoError(t, err)

	mgr := pass.NewManager(stores, g)
	require.NoError(t, mgr.Run([]pass.Pass{NewPass()}))

	for counter, want := range map[string]int64{
		"groups":         3,
		"group_00_types": 2,
		"group_01_types": 0,
		"group_02_types": 1,
		"reserved_mrefs": 16,
		"reserved_frefs": 0,
		"reserved_trefs": 8,
	} {
		got, ok := mgr.Metric(PassName, counter)
		require.True(t, ok, counter)
		require.Equal(t, want, got, counter)
	}
}

func TestInterDexPass_RerunIdentical(t *testing.T) {
	s := newScene()
	widget := s.class("Lapp/Widget;")
	main := s.class("Lapp/Main;")
	s.method(main, "boot",
		ir.NewInsn(ir.OpNewInstance).SetType(widget.Type()),
		ir.NewInsn(ir.OpMoveResultPseudoObject).SetDest(0),
		ir.NewInsn(ir.OpReturnVoid))

	st := ir.NewStore(ir.RootStoreName)
	st.AddDex([]*ir.DexClass{main, widget})
	stores := []*ir.DexStore{st}

	g, err := conf.ParseGlobal([]byte(`{
		"coldstart_classes": ["Lapp/Main;", "LDexEndMarker0;"],
		"InterDexPass": {"mode": "full"}
	}`))
	require.NoError(t, err)

	/* the pass only observes, so a second run over the same stores must
	 * report the same numbers */
	run := func() map[string]int64 {
		mgr := pass.NewManager(stores, g)
		require.NoError(t, mgr.Run([]pass.Pass{NewPass()}))
		return mgr.Metrics().Flatten()
	}
	require.Equal(t, run(), run())

	/* listed twice in one pipeline: the occurrences report apart but match */
	mgr := pass.NewManager(stores, g)
	p := NewPass()
	require.NoError(t, mgr.Run([]pass.Pass{p, p}))
	first, second := map[string]int64{}, map[string]int64{}
	mgr.Metrics().RangePass(PassName, func(c string, v int64) { first[c] = v })
	mgr.Metrics().RangePass(PassName+"#2", func(c string, v int64) { second[c] = v })
	require.NotEmpty(t, first)
	require.Equal(t, first, second)
}

func TestInterDexPass_BadMode(t *testing.T) {
	g, err := conf.ParseGlobal([]byte(`{"InterDexPass": {"mode": "sideways"}}`))
	require.NoError(t, err)

	mgr := pass.NewManager(nil, g)
	err = mgr.Run([]pass.Pass{NewPass()})
	var ce pass.ConfigError
	require.ErrorAs(t, err, &ce)
	require.Equal(t, PassName, ce.Pass)
	require.ErrorContains(t, err, `option InterDexPass.mode: unknown interdex mode "sideways"`)
}

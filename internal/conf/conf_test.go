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
	"encoding/json"
	"fmt"
	"testing"

	"github.com/cloudwego/rdx/internal/ident"
	"github.com/cloudwego/rdx/internal/ir"
	"github.com/stretchr/testify/require"
)

type _Limits struct {
	maxCount  int
	hardStop  bool
	afterRuns int
}

func (self *_Limits) BindConfig(b *Binder) {
	b.BindInt("max_count", 10, &self.maxCount, "upper bound on clusters")
	b.BindBool("hard_stop", false, &self.hardStop, "stop at the bound instead of trimming")
	b.AfterConfiguration(func() { self.afterRuns++ })
}

type _AllOptions struct {
	enabled   bool
	depth     int
	budget    uint
	window    int64
	span      uint64
	ratio     float64
	label     string
	extra     json.RawMessage
	names     []string
	tags      map[string]bool
	routes    map[string][]string
	limits    _Limits
	afterRuns int
}

func (self *_AllOptions) BindConfig(b *Binder) {
	b.BindBool("enabled", true, &self.enabled, "turn the pass on")
	b.BindInt("depth", 3, &self.depth, "search depth")
	b.BindUint("budget", 16, &self.budget, "split budget")
	b.BindInt64("window", -1, &self.window, "profiling window")
	b.BindUint64("span", 1, &self.span, "")
	b.BindFloat("ratio", 0.5, &self.ratio, "max overhead ratio")
	b.BindString("label", "cold", &self.label, "name infix")
	b.BindJSON("extra", nil, &self.extra, "free-form payload")
	b.BindStringList("names", []string{"a"}, &self.names, "")
	b.BindStringSet("tags", nil, &self.tags, "")
	b.BindStringListMap("routes", nil, &self.routes, "")
	b.BindComposite("limits", &self.limits, "nested limits")
	b.AfterConfiguration(func() { self.afterRuns++ })
}

func TestParse_AllOptionTypes(t *testing.T) {
	input := json.RawMessage(`{
		"enabled": false,
		"depth": 7,
		"budget": 32,
		"window": -9,
		"span": 18446744073709551615,
		"ratio": 0.25,
		"label": "hot",
		"extra": {"k": [1, 2]},
		"names": ["x", "y", "x"],
		"tags": ["x", "y", "x"],
		"routes": {"a": ["b", "c"]},
		"limits": {"max_count": 3}
	}`)
	var opts _AllOptions
	require.NoError(t, Parse(&opts, "TestPass", input, nil))
	require.False(t, opts.enabled)
	require.Equal(t, 7, opts.depth)
	require.Equal(t, uint(32), opts.budget)
	require.Equal(t, int64(-9), opts.window)
	require.Equal(t, uint64(18446744073709551615), opts.span)
	require.Equal(t, 0.25, opts.ratio)
	require.Equal(t, "hot", opts.label)
	require.JSONEq(t, `{"k": [1, 2]}`, string(opts.extra))
	require.Equal(t, []string{"x", "y", "x"}, opts.names)
	require.Equal(t, map[string]bool{"x": true, "y": true}, opts.tags)
	require.Equal(t, map[string][]string{"a": {"b", "c"}}, opts.routes)
	require.Equal(t, 3, opts.limits.maxCount)
	require.False(t, opts.limits.hardStop)
	require.Equal(t, 1, opts.afterRuns)
	require.Equal(t, 1, opts.limits.afterRuns)
}

func TestParse_DefaultsOnAbsent(t *testing.T) {
	for _, raw := range []json.RawMessage{nil, json.RawMessage(`{}`), json.RawMessage(`null`)} {
		var opts _AllOptions
		require.NoError(t, Parse(&opts, "TestPass", raw, nil))
		require.True(t, opts.enabled)
		require.Equal(t, 3, opts.depth)
		require.Equal(t, uint(16), opts.budget)
		require.Equal(t, int64(-1), opts.window)
		require.Equal(t, uint64(1), opts.span)
		require.Equal(t, 0.5, opts.ratio)
		require.Equal(t, "cold", opts.label)
		require.Nil(t, opts.extra)
		require.Equal(t, []string{"a"}, opts.names)
		require.Nil(t, opts.tags)
		require.Nil(t, opts.routes)
		require.Equal(t, 10, opts.limits.maxCount)
		require.Equal(t, 1, opts.afterRuns)
		require.Equal(t, 1, opts.limits.afterRuns)
	}
}

type _NullOptions struct {
	plain  string
	marked string
}

func (self *_NullOptions) BindConfig(b *Binder) {
	b.BindString("plain", "fallback", &self.plain, "")
	b.BindString("marked", "fallback", &self.marked, "", DistinguishNull)
}

func TestParse_NullVersusAbsent(t *testing.T) {
	var opts _NullOptions
	require.NoError(t, Parse(&opts, "TestPass", json.RawMessage(`{"plain": null, "marked": null}`), nil))
	require.Equal(t, "fallback", opts.plain)
	require.Equal(t, "", opts.marked)

	opts = _NullOptions{}
	require.NoError(t, Parse(&opts, "TestPass", json.RawMessage(`{}`), nil))
	require.Equal(t, "fallback", opts.plain)
	require.Equal(t, "fallback", opts.marked)
}

func TestParse_BadValue(t *testing.T) {
	var opts _AllOptions
	err := Parse(&opts, "TestPass", json.RawMessage(`{"depth": "deep"}`), nil)
	require.ErrorContains(t, err, "TestPass.depth")

	err = Parse(&opts, "TestPass", json.RawMessage(`{"budget": -1}`), nil)
	require.ErrorContains(t, err, "TestPass.budget")

	err = Parse(&opts, "TestPass", json.RawMessage(`[1, 2]`), nil)
	require.ErrorContains(t, err, "not a JSON object")

	err = Parse(&opts, "TestPass", json.RawMessage(`{"limits": {"max_count": "many"}}`), nil)
	require.ErrorContains(t, err, "TestPass.limits.max_count")
}

/* the scope: Lcom/foo/Bar; defines run()V, mentions gone(I)V without
 * defining it, and nothing mentions Lno/Where; at all */
func testScope(t *testing.T) Resolver {
	t.Helper()
	ctx := ident.NewContext()
	bar := ctx.MakeType("Lcom/foo/Bar;")
	obj := ctx.MakeType("Ljava/lang/Object;")
	vv := ctx.MakeProto(ctx.MakeType("V"))
	iv := ctx.MakeProto(ctx.MakeType("V"), ctx.MakeType("I"))
	run := ctx.MakeMethodRef(bar, ctx.MakeString("run"), vv)
	ctx.MakeMethodRef(bar, ctx.MakeString("gone"), iv)

	cls := ir.NewClass(bar, obj, ir.AccPublic)
	cls.AddMethod(ir.NewMethod(run, ir.AccPublic|ir.AccStatic))
	return NewScopeResolver(ctx, ir.NewClassIndex([]*ir.DexClass{cls}))
}

type _RefOptions struct {
	typeFlags   Flags
	methodFlags Flags
	types       []*ident.Type
	typeSet     map[*ident.Type]bool
	methods     []*ident.MethodRef
	methodSet   map[*ident.MethodRef]bool
}

func (self *_RefOptions) BindConfig(b *Binder) {
	b.BindTypeList("types", nil, &self.types, "", self.typeFlags)
	b.BindTypeSet("type_set", nil, &self.typeSet, "", self.typeFlags)
	b.BindMethodList("methods", nil, &self.methods, "", self.methodFlags)
	b.BindMethodSet("method_set", nil, &self.methodSet, "", self.methodFlags)
}

func TestParse_TypeReferences(t *testing.T) {
	res := testScope(t)

	input := json.RawMessage(`{"types": ["Lcom/foo/Bar;", "Lno/Where;"], "type_set": ["Lcom/foo/Bar;", "Lcom/foo/Bar;"]}`)
	for _, fl := range []Flags{0, WarnIfUnresolvable} {
		opts := _RefOptions{typeFlags: fl}
		require.NoError(t, Parse(&opts, "TestPass", input, res))
		require.Len(t, opts.types, 1)
		require.Equal(t, "Lcom/foo/Bar;", opts.types[0].String())
		require.Len(t, opts.typeSet, 1)
	}

	opts := _RefOptions{typeFlags: ErrorIfUnresolvable}
	err := Parse(&opts, "TestPass", input, res)
	require.ErrorContains(t, err, "unresolvable type Lno/Where;")

	opts = _RefOptions{}
	err = Parse(&opts, "TestPass", json.RawMessage(`{"types": ["Lbroken"]}`), res)
	require.ErrorContains(t, err, `malformed type descriptor "Lbroken"`)
}

func TestParse_MethodReferences(t *testing.T) {
	res := testScope(t)
	input := json.RawMessage(`{"methods": ["Lcom/foo/Bar;.run:()V", "Lcom/foo/Bar;.gone:(I)V"]}`)

	/* without def flags a resolvable reference stays, defined or not */
	opts := _RefOptions{}
	require.NoError(t, Parse(&opts, "TestPass", input, res))
	require.Len(t, opts.methods, 2)
	require.Equal(t, "Lcom/foo/Bar;.run:()V", opts.methods[0].String())

	opts = _RefOptions{methodFlags: WarnIfNotDef}
	require.NoError(t, Parse(&opts, "TestPass", input, res))
	require.Len(t, opts.methods, 1)
	require.Equal(t, "Lcom/foo/Bar;.run:()V", opts.methods[0].String())

	opts = _RefOptions{methodFlags: ErrorIfNotDef}
	err := Parse(&opts, "TestPass", input, res)
	require.ErrorContains(t, err, "Lcom/foo/Bar;.gone:(I)V has no definition")

	/* never interned anywhere */
	ghost := json.RawMessage(`{"methods": ["Lcom/foo/Bar;.never:()V"]}`)
	opts = _RefOptions{}
	require.NoError(t, Parse(&opts, "TestPass", ghost, res))
	require.Empty(t, opts.methods)

	opts = _RefOptions{methodFlags: ErrorIfUnresolvable}
	err = Parse(&opts, "TestPass", ghost, res)
	require.ErrorContains(t, err, "unresolvable method")

	opts = _RefOptions{}
	err = Parse(&opts, "TestPass", json.RawMessage(`{"methods": ["Lcom/foo/Bar;run()V"]}`), res)
	require.ErrorContains(t, err, "malformed method reference")
}

type _BadFlagOptions struct {
	kind  int
	label string
	types []*ident.Type
}

func (self *_BadFlagOptions) BindConfig(b *Binder) {
	switch self.kind {
	case 0:
		b.BindTypeList("types", nil, &self.types, "", ErrorIfUnresolvable|WarnIfUnresolvable)
	case 1:
		b.BindTypeList("types", nil, &self.types, "", ErrorIfNotDef)
	default:
		b.BindString("label", "", &self.label, "", WarnIfUnresolvable)
	}
}

func TestParse_FlagMisuse(t *testing.T) {
	err := Parse(&_BadFlagOptions{kind: 0}, "TestPass", nil, nil)
	require.ErrorContains(t, err, "cannot both error and warn on unresolvable references")

	err = Parse(&_BadFlagOptions{kind: 1}, "TestPass", nil, nil)
	require.ErrorContains(t, err, "do not apply to a list-of-type-reference option")

	err = Parse(&_BadFlagOptions{kind: 2}, "TestPass", nil, nil)
	require.ErrorContains(t, err, "do not apply to a string option")

	/* bind-time validation fires in reflect mode too */
	_, err = Reflect(&_BadFlagOptions{kind: 0}, "TestPass", "")
	require.ErrorContains(t, err, "cannot both error and warn")
}

type _GreedyHooks struct{ runs int }

func (self *_GreedyHooks) BindConfig(b *Binder) {
	b.AfterConfiguration(func() { self.runs++ })
	b.AfterConfiguration(func() { self.runs++ })
}

type _FailingHook struct {
	depth int
	runs  int
}

func (self *_FailingHook) BindConfig(b *Binder) {
	b.BindInt("depth", 0, &self.depth, "")
	b.AfterConfiguration(func() { self.runs++ })
}

func TestParse_AfterConfiguration(t *testing.T) {
	hooks := &_GreedyHooks{}
	err := Parse(hooks, "TestPass", nil, nil)
	require.ErrorContains(t, err, "two after-configuration hooks")
	require.Zero(t, hooks.runs)

	/* the hook only runs when the whole parse succeeded */
	failing := &_FailingHook{}
	err = Parse(failing, "TestPass", json.RawMessage(`{"depth": "no"}`), nil)
	require.Error(t, err)
	require.Zero(t, failing.runs)

	failing = &_FailingHook{}
	require.NoError(t, Parse(failing, "TestPass", json.RawMessage(`{"depth": 2}`), nil))
	require.Equal(t, 1, failing.runs)
	require.Equal(t, 2, failing.depth)
}

type _EnumOptions struct {
	mode string
}

func (self *_EnumOptions) BindConfig(b *Binder) {
	b.BindString("mode", "off", &self.mode, "one of off, eager, full")
	switch self.mode {
	case "off", "eager", "full":
	default:
		b.Fail("mode", fmt.Errorf("unknown mode %q", self.mode))
	}
}

func TestParse_CustomValidation(t *testing.T) {
	opts := &_EnumOptions{}
	require.NoError(t, Parse(opts, "TestPass", json.RawMessage(`{"mode": "eager"}`), nil))
	require.Equal(t, "eager", opts.mode)

	err := Parse(&_EnumOptions{}, "TestPass", json.RawMessage(`{"mode": "sideways"}`), nil)
	require.ErrorContains(t, err, `option TestPass.mode: unknown mode "sideways"`)

	/* reflection never sees parsed values, so the validation stays quiet */
	s, err := Reflect(&_EnumOptions{}, "TestPass", "")
	require.NoError(t, err)
	mode, ok := s.Find("mode")
	require.True(t, ok)
	require.Equal(t, TagString, mode.Type)
}

func TestReflect_SchemaTree(t *testing.T) {
	s, err := Reflect(&_AllOptions{}, "TestPass", "exercise every option type")
	require.NoError(t, err)
	require.Equal(t, "TestPass", s.Name)
	require.Equal(t, "exercise every option type", s.Doc)
	require.Len(t, s.Params, 12)

	/* bind order is schema order */
	require.Equal(t, "enabled", s.Params[0].Name)
	require.Equal(t, TagBool, s.Params[0].Type)
	require.Equal(t, KindPrimitive, s.Params[0].Kind)
	require.Equal(t, "turn the pass on", s.Params[0].Doc)

	depth, ok := s.Find("depth")
	require.True(t, ok)
	require.Equal(t, TagInteger, depth.Type)
	span, _ := s.Find("span")
	require.Equal(t, TagUnsignedLong, span.Type)
	extra, _ := s.Find("extra")
	require.Equal(t, TagJSONValue, extra.Type)
	routes, _ := s.Find("routes")
	require.Equal(t, TagStringListMap, routes.Type)

	limits, ok := s.Find("limits")
	require.True(t, ok)
	require.Equal(t, KindComposite, limits.Kind)
	require.Equal(t, TagComposite, limits.Type)
	require.NotNil(t, limits.Nested)
	require.Equal(t, "limits", limits.Nested.Name)
	require.Len(t, limits.Nested.Params, 2)
	require.Equal(t, "max_count", limits.Nested.Params[0].Name)

	refs, err := Reflect(&_RefOptions{}, "RefPass", "")
	require.NoError(t, err)
	tl, _ := refs.Find("types")
	require.Equal(t, TagTypeList, tl.Type)
	ms, _ := refs.Find("method_set")
	require.Equal(t, TagMethodSet, ms.Type)
}

func TestDescriptorScanning(t *testing.T) {
	for _, s := range []string{"I", "V", "[J", "[[Lfoo/Bar;", "Lcom/foo/Bar$1;"} {
		require.True(t, validType(s), s)
	}
	for _, s := range []string{"", "X", "[V", "L;", "Lfoo", "Lfoo/Bar;I", "II"} {
		require.False(t, validType(s), s)
	}
	for _, s := range []string{
		"Lcom/foo/Bar;.run:()V",
		"Lcom/foo/Bar;.f$0:([IJLjava/lang/String;)[B",
		"[J.clone:()Ljava/lang/Object;",
	} {
		require.True(t, validMethod(s), s)
	}
	for _, s := range []string{
		"Lcom/foo/Bar;run()V",
		"Lcom/foo/Bar;.:()V",
		"Lcom/foo/Bar;.run:()",
		"Lcom/foo/Bar;.run:(V)V",
		"I.run:()V",
		"Lcom/foo/Bar;.a.b:()V",
	} {
		require.False(t, validMethod(s), s)
	}
}

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

package rdx

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cloudwego/rdx/internal/conf"
	"github.com/cloudwego/rdx/internal/ident"
	"github.com/cloudwego/rdx/internal/ir"
	"github.com/cloudwego/rdx/internal/meta"
	"github.com/cloudwego/rdx/internal/mflow"
	"github.com/cloudwego/rdx/internal/pass"
	"github.com/cloudwego/rdx/internal/props"
)

/* one class with a method long enough for the splitter to take its tail */
func buildProgram(ctx *ident.Context) (*ir.DexStore, *ir.DexClass) {
	obj := ctx.MakeType("Ljava/lang/Object;")
	i32 := ctx.MakeType("I")
	cls := ir.NewClass(ctx.MakeType("Lapp/Main;"), obj, ir.AccPublic)

	items := []ir.MethodItem{ir.NewInsn(ir.OpLoadParam).SetDest(0)}
	for i := 0; i < 5; i++ {
		items = append(items, ir.NewInsn(ir.OpAddInt).SetDest(0).SetSrcs(0, 0))
	}
	items = append(items, ir.NewInsn(ir.OpReturn).SetSrcs(0))

	m := ir.NewMethod(ctx.MakeMethodRef(cls.Type(), ctx.MakeString("run"), ctx.MakeProto(i32, i32)), ir.AccPublic|ir.AccStatic)
	cls.AddMethod(m)
	m.SetCode(ir.NewCode(1, items...))

	st := ir.NewStore(ir.RootStoreName)
	st.AddDex([]*ir.DexClass{cls})
	return st, cls
}

const pipelineConfig = `{
	"redex": {"passes": ["MethodSplitPass", "RegAllocPass"]},
	"MethodSplitPass": {"split_block_size": 4, "min_original_size": 10, "min_cold_split_size": 4}
}`

func TestRun_Pipeline(t *testing.T) {
	ctx := ident.NewContext()
	st, cls := buildProgram(ctx)

	dir := t.TempDir()
	metrics := filepath.Join(dir, "metrics.json")
	draws := filepath.Join(dir, "draw")
	require.NoError(t, os.Mkdir(draws, 0o755))

	err := Run(Inputs{
		Context:    ctx,
		Stores:     []*ir.DexStore{st},
		ConfigJSON: []byte(pipelineConfig),
	}, WithMetricsPath(metrics), WithMetaDir(dir), WithDebugDrawDir(draws), WithParallelism(2))
	require.NoError(t, err)

	/* the splitter extracted the cold tail */
	i32 := ctx.MakeType("I")
	cold := cls.FindDirectMethod("run$split$cold0", ctx.MakeProto(i32, i32))
	require.NotNil(t, cold)

	data, rerr := os.ReadFile(metrics)
	require.NoError(t, rerr)
	var m map[string]int64
	require.NoError(t, json.Unmarshal(data, &m))
	require.Equal(t, int64(1), m["MethodSplitPass.methods"])
	require.Equal(t, int64(1), m["MethodSplitPass.cold"])
	require.Equal(t, int64(2), m["RegAllocPass.methods"])
	require.LessOrEqual(t, m["RegAllocPass.regs_out"], m["RegAllocPass.regs_in"])

	blob, lerr := meta.Load(dir)
	require.NoError(t, lerr)
	require.Len(t, blob.Classes, 1)
	require.Equal(t, "Lapp/Main;", blob.Classes[0].Name)

	/* both drawing passes honored the injected directory */
	svgs, derr := os.ReadDir(draws)
	require.NoError(t, derr)
	require.NotEmpty(t, svgs)
}

func TestRun_EmptyPipeline(t *testing.T) {
	ctx := ident.NewContext()
	st, _ := buildProgram(ctx)
	metrics := filepath.Join(t.TempDir(), "metrics.json")

	err := Run(Inputs{Context: ctx, Stores: []*ir.DexStore{st}}, WithMetricsPath(metrics))
	require.NoError(t, err)

	data, rerr := os.ReadFile(metrics)
	require.NoError(t, rerr)
	require.Equal(t, "{}\n", string(data))
}

func TestRun_ConfigErrors(t *testing.T) {
	ctx := ident.NewContext()
	st, _ := buildProgram(ctx)
	in := Inputs{Context: ctx, Stores: []*ir.DexStore{st}}

	in.ConfigJSON = []byte(`{]`)
	var ce ConfigError
	require.ErrorAs(t, Run(in), &ce)
	require.Equal(t, "redex", ce.Pass)

	in.ConfigJSON = []byte(`{"redex": {"passes": ["NopePass"]}}`)
	require.ErrorAs(t, Run(in), &ce)
	require.Equal(t, "NopePass", ce.Pass)
}

type _BoomPass struct{}

func (self _BoomPass) Name() string                             { return "BoomPass" }
func (self _BoomPass) BindConfig(*conf.Binder)                  {}
func (self _BoomPass) PropertyInteractions() props.Interactions { return nil }

func (self _BoomPass) RunPass([]*ir.DexStore, *conf.GlobalConfig, *pass.Manager) {
	panic("kaboom")
}

func TestRun_PanicBecomesInternalError(t *testing.T) {
	ctx := ident.NewContext()
	st, _ := buildProgram(ctx)
	metrics := filepath.Join(t.TempDir(), "metrics.json")

	err := Run(Inputs{
		Context:    ctx,
		Stores:     []*ir.DexStore{st},
		ConfigJSON: []byte(`{"redex": {"passes": ["BoomPass"]}}`),
		Registry:   NewRegistry(_BoomPass{}),
	}, WithMetricsPath(metrics))

	var ie InternalError
	require.ErrorAs(t, err, &ie)
	require.Equal(t, "BoomPass", ie.Pass)
	require.Equal(t, "kaboom", ie.Cause)

	/* the report still lands on the failing path */
	_, serr := os.Stat(metrics)
	require.NoError(t, serr)
}

func TestVerify(t *testing.T) {
	/* verification binds options and simulates the property flow, but runs
	   nothing, so even a pass that panics on RunPass passes */
	in := Inputs{
		ConfigJSON: []byte(`{"redex": {"passes": ["BoomPass"]}}`),
		Registry:   NewRegistry(_BoomPass{}),
	}
	require.NoError(t, Verify(in))

	in.ConfigJSON = []byte(`{"redex": {"passes": ["NopePass"]}}`)
	var ce ConfigError
	require.ErrorAs(t, Verify(in), &ce)
	require.Equal(t, "NopePass", ce.Pass)
}

func TestReflectConfig(t *testing.T) {
	buf, err := ReflectConfig(DefaultRegistry(ident.NewContext()))
	require.NoError(t, err)

	var schemas []conf.Schema
	require.NoError(t, json.Unmarshal(buf, &schemas))

	names := make([]string, len(schemas))
	for i, s := range schemas {
		names[i] = s.Name
	}
	require.Equal(t, []string{"InterDexPass", "MethodSplitPass", "RegAllocPass"}, names)

	p, ok := schemas[1].Find("split_block_size")
	require.True(t, ok)
	require.Equal(t, conf.TagUnsigned, p.Type)
	require.Equal(t, conf.KindPrimitive, p.Kind)
}

/* counts adds whose value reaches a return, through the flow DSL */
type _FlowCountPass struct{}

func (self _FlowCountPass) Name() string                             { return "FlowCountPass" }
func (self _FlowCountPass) BindConfig(*conf.Binder)                  {}
func (self _FlowCountPass) PropertyInteractions() props.Interactions { return nil }

func (self _FlowCountPass) RunPass(stores []*ir.DexStore, _ *conf.GlobalConfig, mgr *pass.Manager) {
	ir.WalkCodeParallel(ir.BuildScope(stores), mgr.Workers(), func(_ *ir.DexMethod, code *ir.IRCode) {
		flow := mflow.NewFlow()
		add := flow.Insn(func(insn *ir.IRInstruction) bool { return insn.Op() == ir.OpAddInt })
		ret := flow.Insn(func(insn *ir.IRInstruction) bool { return insn.Op() == ir.OpReturn }).
			Src(0, add, mflow.Dest|mflow.Exists)
		mgr.IncrMetric("returned_adds", int64(len(flow.Find(code.BuildCFG(), ret).Matching(add))))
	})
}

func TestRun_FlowPass(t *testing.T) {
	/* an analysis pass drives the flow DSL over pipeline-owned code; only
	   the last add reaches the return, the four it shadows do not */
	ctx := ident.NewContext()
	st, _ := buildProgram(ctx)
	metrics := filepath.Join(t.TempDir(), "metrics.json")

	err := Run(Inputs{
		Context:    ctx,
		Stores:     []*ir.DexStore{st},
		ConfigJSON: []byte(`{"redex": {"passes": ["FlowCountPass"]}}`),
		Registry:   NewRegistry(_FlowCountPass{}),
	}, WithMetricsPath(metrics))
	require.NoError(t, err)

	data, rerr := os.ReadFile(metrics)
	require.NoError(t, rerr)
	var m map[string]int64
	require.NoError(t, json.Unmarshal(data, &m))
	require.Equal(t, int64(1), m["FlowCountPass.returned_adds"])
}

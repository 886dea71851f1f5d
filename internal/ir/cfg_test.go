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
	"strings"
	"testing"

	"github.com/cloudwego/rdx/internal/ident"
	"github.com/stretchr/testify/require"
)

/* roundTrip asserts that building the CFG and linearizing it again
 * reproduces the flat form byte for byte. Inputs must already use the
 * canonical label numbering. */
func roundTrip(t *testing.T, code *IRCode) {
	t.Helper()
	want := code.String()
	code.BuildCFG().Validate()
	code.Linearize()
	require.Equal(t, want, code.String())
}

func TestRoundTrip_Loop(t *testing.T) {
	code := NewCode(2,
		NewInsn(OpConst).SetDest(0).SetLiteral(0),
		NewInsn(OpConst).SetDest(1).SetLiteral(1),
		&Label{ID: 0},
		NewInsn(OpAddInt).SetDest(0).SetSrcs(0, 1),
		NewInsn(OpGoto).SetTarget(0),
	)
	roundTrip(t, code)
}

func TestRoundTrip_Conditional(t *testing.T) {
	code := NewCode(2,
		NewInsn(OpConst).SetDest(0).SetLiteral(0),
		NewInsn(OpIfEqz).SetSrcs(0).SetTarget(0),
		NewInsn(OpConst).SetDest(1).SetLiteral(1),
		NewInsn(OpGoto).SetTarget(1),
		&Label{ID: 0},
		NewInsn(OpConst).SetDest(1).SetLiteral(2),
		&Label{ID: 1},
		NewInsn(OpReturnVoid),
	)
	roundTrip(t, code)
}

func TestRoundTrip_Switch(t *testing.T) {
	code := NewCode(2,
		NewInsn(OpConst).SetDest(0).SetLiteral(1),
		NewInsn(OpSwitch).SetSrcs(0).SetCases([]int64{1, 2}, []int{0, 1}),
		NewInsn(OpConst).SetDest(1).SetLiteral(99),
		NewInsn(OpReturnVoid),
		&Label{ID: 0},
		NewInsn(OpConst).SetDest(1).SetLiteral(10),
		NewInsn(OpReturnVoid),
		&Label{ID: 1},
		NewInsn(OpConst).SetDest(1).SetLiteral(20),
		NewInsn(OpReturnVoid),
	)
	roundTrip(t, code)
}

func TestRoundTrip_TryCatch(t *testing.T) {
	ctx := ident.NewContext()
	exc := ctx.MakeType("Ljava/lang/Exception;")
	catch := &CatchMarker{Type: exc}
	code := NewCode(3,
		NewInsn(OpLoadParamObject).SetDest(1),
		&TryMarker{Kind: TryStart, Catch: catch},
		NewInsn(OpCheckCast).SetSrcs(1).SetType(exc),
		NewInsn(OpMoveResultPseudoObject).SetDest(2),
		NewInsn(OpReturnObject).SetSrcs(2),
		&TryMarker{Kind: TryEnd, Catch: catch},
		catch,
		NewInsn(OpReturnObject).SetSrcs(1),
	)
	roundTrip(t, code)
}

func TestRoundTrip_ExplicitGotoToNext(t *testing.T) {
	code := NewCode(1,
		NewInsn(OpConst).SetDest(0).SetLiteral(0),
		NewInsn(OpGoto).SetTarget(0),
		&Label{ID: 0},
		NewInsn(OpReturnVoid),
	)
	roundTrip(t, code)
}

func TestLinearize_CanonicalizesLabels(t *testing.T) {
	code := NewCode(2,
		NewInsn(OpConst).SetDest(0).SetLiteral(0),
		NewInsn(OpIfEqz).SetSrcs(0).SetTarget(7),
		NewInsn(OpConst).SetDest(1).SetLiteral(1),
		NewInsn(OpGoto).SetTarget(3),
		&Label{ID: 7},
		NewInsn(OpConst).SetDest(1).SetLiteral(2),
		&Label{ID: 3},
		NewInsn(OpReturnVoid),
	)
	code.BuildCFG()
	code.Linearize()
	require.Equal(t, strings.Join([]string{
		"const v0 #0",
		"if-eqz v0 :0",
		"const v1 #1",
		"goto :1",
		":0",
		"const v1 #2",
		":1",
		"return-void",
	}, "\n"), code.String())
}

func TestLinearize_DropsUnreferencedLabels(t *testing.T) {
	code := NewCode(1,
		NewInsn(OpConst).SetDest(0).SetLiteral(0),
		&Label{ID: 5},
		NewInsn(OpReturnVoid),
	)
	code.BuildCFG()
	code.Linearize()
	require.Equal(t, "const v0 #0\nreturn-void", code.String())
}

func TestBuildCFG_Structure(t *testing.T) {
	ctx := ident.NewContext()
	exc := ctx.MakeType("Ljava/lang/Exception;")
	catch := &CatchMarker{Type: exc}
	code := NewCode(3,
		NewInsn(OpLoadParamObject).SetDest(1),
		&TryMarker{Kind: TryStart, Catch: catch},
		NewInsn(OpCheckCast).SetSrcs(1).SetType(exc),
		NewInsn(OpMoveResultPseudoObject).SetDest(2),
		NewInsn(OpReturnObject).SetSrcs(2),
		&TryMarker{Kind: TryEnd, Catch: catch},
		catch,
		NewInsn(OpReturnObject).SetSrcs(1),
	)
	cfg := code.BuildCFG()
	require.Equal(t, 4, cfg.NumBlocks())
	require.Same(t, cfg.GetBlock(0), cfg.Entry())

	cast := cfg.GetBlock(1)
	require.Len(t, cast.Insns(), 2, "check-cast keeps its move-result-pseudo attached")
	tes := cast.ThrowEdges()
	require.Len(t, tes, 1)
	require.Equal(t, 3, tes[0].Tgt().ID())
	require.Same(t, exc, tes[0].CatchType())
	require.True(t, cfg.GetBlock(3).IsCatchHandler())
	require.False(t, cast.IsCatchHandler())
}

func TestBuildCFG_Idempotent(t *testing.T) {
	code := NewCode(1, NewInsn(OpReturnVoid))
	first := code.BuildCFG()
	require.Same(t, first, code.BuildCFG())
	require.True(t, code.CFGBuilt())
	require.Panics(t, func() { code.Items() })
}

func TestBuildCFG_UndefinedLabel(t *testing.T) {
	code := NewCode(1, NewInsn(OpGoto).SetTarget(9))
	require.Panics(t, func() { code.BuildCFG() })
}

func TestBuildCFG_BranchAtMethodEnd(t *testing.T) {
	code := NewCode(1,
		NewInsn(OpConst).SetDest(0).SetLiteral(0),
		&Label{ID: 0},
		NewInsn(OpIfEqz).SetSrcs(0).SetTarget(0),
	)
	require.Panics(t, func() { code.BuildCFG() })
}

func TestCodeUnits_BothForms(t *testing.T) {
	code := NewCode(2,
		NewInsn(OpConst).SetDest(0).SetLiteral(1),
		NewInsn(OpSwitch).SetSrcs(0).SetCases([]int64{1, 2}, []int{0, 1}),
		NewInsn(OpConst).SetDest(1).SetLiteral(99),
		NewInsn(OpReturnVoid),
		&Label{ID: 0},
		NewInsn(OpConst).SetDest(1).SetLiteral(10),
		NewInsn(OpReturnVoid),
		&Label{ID: 1},
		NewInsn(OpConst).SetDest(1).SetLiteral(20),
		NewInsn(OpReturnVoid),
	)
	require.Equal(t, 18, code.CodeUnits())
	code.BuildCFG()
	require.Equal(t, 18, code.CodeUnits(), "switch case units survive the move onto edges")
	code.Linearize()
	require.Equal(t, 18, code.CodeUnits())
}

func TestEnsureExit_ReturnBlocks(t *testing.T) {
	code := NewCode(2,
		NewInsn(OpConst).SetDest(0).SetLiteral(1),
		NewInsn(OpSwitch).SetSrcs(0).SetCases([]int64{1, 2}, []int{0, 1}),
		NewInsn(OpReturnVoid),
		&Label{ID: 0},
		NewInsn(OpReturnVoid),
		&Label{ID: 1},
		NewInsn(OpReturnVoid),
	)
	cfg := code.BuildCFG()
	exit := cfg.EnsureExit()
	require.Len(t, exit.Preds(), 3)
	for _, e := range exit.Preds() {
		require.Equal(t, EdgeGhost, e.Kind())
	}
	require.Equal(t, 4, cfg.NumBlocks(), "the ghost exit is not a real block")
}

func TestEnsureExit_InfiniteLoop(t *testing.T) {
	code := NewCode(2,
		NewInsn(OpConst).SetDest(0).SetLiteral(0),
		NewInsn(OpConst).SetDest(1).SetLiteral(1),
		&Label{ID: 0},
		NewInsn(OpAddInt).SetDest(0).SetSrcs(0, 1),
		NewInsn(OpGoto).SetTarget(0),
	)
	cfg := code.BuildCFG()
	exit := cfg.EnsureExit()
	require.Len(t, exit.Preds(), 1, "a loop that never escapes still reaches the exit")
	require.Equal(t, 1, exit.Preds()[0].Src().ID())

	/* rebuilding replaces the ghost instead of stacking a second one */
	again := cfg.EnsureExit()
	require.Len(t, again.Preds(), 1)
	require.Same(t, again, cfg.Exit())
}

func TestSCCs_DeterministicOrder(t *testing.T) {
	code := NewCode(1,
		NewInsn(OpConst).SetDest(0).SetLiteral(0),
		&Label{ID: 0},
		NewInsn(OpAddInt).SetDest(0).SetSrcs(0, 0),
		&Label{ID: 9},
		NewInsn(OpSubInt).SetDest(0).SetSrcs(0, 0),
		NewInsn(OpIfEqz).SetSrcs(0).SetTarget(0),
		NewInsn(OpReturnVoid),
	)
	cfg := code.BuildCFG()
	ids := func(scc []*Block) []int {
		ret := make([]int, 0, len(scc))
		for _, b := range scc {
			ret = append(ret, b.ID())
		}
		return ret
	}
	sccs := cfg.SCCs()
	require.Len(t, sccs, 3)
	require.Equal(t, []int{0}, ids(sccs[0]))
	require.Equal(t, []int{1, 2}, ids(sccs[1]))
	require.Equal(t, []int{3}, ids(sccs[2]))
	require.Equal(t, sccs, cfg.SCCs(), "repeated runs agree exactly")
}

func TestHasSelfLoop(t *testing.T) {
	code := NewCode(2,
		NewInsn(OpConst).SetDest(0).SetLiteral(0),
		&Label{ID: 0},
		NewInsn(OpAddInt).SetDest(0).SetSrcs(0, 0),
		NewInsn(OpGoto).SetTarget(0),
	)
	cfg := code.BuildCFG()
	require.False(t, cfg.GetBlock(0).HasSelfLoop())
	require.True(t, cfg.GetBlock(1).HasSelfLoop())
}

func TestReachableBlocks(t *testing.T) {
	code := NewCode(1,
		NewInsn(OpReturnVoid),
		NewInsn(OpConst).SetDest(0).SetLiteral(0),
		NewInsn(OpReturnVoid),
	)
	cfg := code.BuildCFG()
	require.Equal(t, 2, cfg.NumBlocks())
	reach := cfg.ReachableBlocks()
	require.Len(t, reach, 1)
	require.Same(t, cfg.Entry(), reach[0])
	cfg.Validate()
}

func TestBranchEdges_CaseKeyOrder(t *testing.T) {
	code := NewCode(1,
		NewInsn(OpConst).SetDest(0).SetLiteral(0),
		NewInsn(OpSwitch).SetSrcs(0).SetCases([]int64{30, -5, 12}, []int{0, 1, 2}),
		NewInsn(OpReturnVoid),
		&Label{ID: 0},
		NewInsn(OpReturnVoid),
		&Label{ID: 1},
		NewInsn(OpReturnVoid),
		&Label{ID: 2},
		NewInsn(OpReturnVoid),
	)
	cfg := code.BuildCFG()
	be := cfg.Entry().BranchEdges()
	require.Len(t, be, 3)
	require.Equal(t, int64(-5), *be[0].CaseKey())
	require.Equal(t, int64(12), *be[1].CaseKey())
	require.Equal(t, int64(30), *be[2].CaseKey())
}

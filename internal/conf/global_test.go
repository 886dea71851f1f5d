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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGlobalConfig(t *testing.T) {
	g, err := ParseGlobal([]byte(`{
		"redex": {"passes": ["MethodSplittingPass", "InterDexPass"]},
		"MethodSplittingPass": {"split_block_size": 4},
		"apk_dir": "/tmp/unpacked",
		"coldstart_classes": ["list0.txt", "list1.txt"]
	}`))
	require.NoError(t, err)

	passes, err := g.Passes()
	require.NoError(t, err)
	require.Equal(t, []string{"MethodSplittingPass", "InterDexPass"}, passes)

	require.JSONEq(t, `{"split_block_size": 4}`, string(g.Pass("MethodSplittingPass")))
	require.Nil(t, g.Pass("InterDexPass"))

	dir, ok := g.GetString("apk_dir")
	require.True(t, ok)
	require.Equal(t, "/tmp/unpacked", dir)

	lists, ok := g.GetStringList("coldstart_classes")
	require.True(t, ok)
	require.Equal(t, []string{"list0.txt", "list1.txt"}, lists)

	_, ok = g.GetString("missing")
	require.False(t, ok)
	_, ok = g.GetString("coldstart_classes")
	require.False(t, ok)
}

func TestGlobalConfig_Degenerate(t *testing.T) {
	g, err := ParseGlobal(nil)
	require.NoError(t, err)
	passes, err := g.Passes()
	require.NoError(t, err)
	require.Empty(t, passes)
	require.Nil(t, g.Pass("Anything"))

	_, err = ParseGlobal([]byte(`"just a string"`))
	require.ErrorContains(t, err, "not a JSON object")

	g, err = ParseGlobal([]byte(`{"redex": {"passes": "not-a-list"}}`))
	require.NoError(t, err)
	_, err = g.Passes()
	require.ErrorContains(t, err, "config key redex")
}

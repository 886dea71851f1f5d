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

package meta

import (
	"encoding/binary"
	"encoding/json"
	"hash/crc32"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cloudwego/rdx/internal/ident"
	"github.com/cloudwego/rdx/internal/ir"
)

/* two classes: Lapp/K; carries marked members, Lapp/Zero; is all-default */
func buildScope(ctx *ident.Context) []*ir.DexClass {
	obj := ctx.MakeType("Ljava/lang/Object;")
	i32 := ctx.MakeType("I")

	k := ir.NewClass(ctx.MakeType("Lapp/K;"), obj, ir.AccPublic)
	k.AddField(ir.NewField(ctx.MakeFieldRef(k.Type(), ctx.MakeString("k"), i32), ir.AccPublic|ir.AccStatic))
	k.AddMethod(ir.NewMethod(ctx.MakeMethodRef(k.Type(), ctx.MakeString("run"), ctx.MakeProto(i32, i32)), ir.AccPublic|ir.AccStatic))
	k.AddMethod(ir.NewMethod(ctx.MakeMethodRef(k.Type(), ctx.MakeString("vrun"), ctx.MakeProto(i32)), ir.AccPublic))

	zero := ir.NewClass(ctx.MakeType("Lapp/Zero;"), obj, ir.AccPublic)
	return []*ir.DexClass{k, zero}
}

func TestMetaRoundTrip(t *testing.T) {
	ctx := ident.NewContext()
	scope := buildScope(ctx)
	k := scope[0]

	k.Rstate().SetKeep(ctx, ir.KeepReason{Kind: ir.KeepRule})
	k.Rstate().IncRef()
	k.Rstate().IncRef()
	k.AllFields()[0].Rstate().SetByString()
	run := k.FindDirectMethod("run", ctx.MakeProto(ctx.MakeType("I"), ctx.MakeType("I")))
	run.Rstate().SetByResources()
	run.Rstate().IncRef()

	blob := EncodeMeta(scope)
	require.Equal(t, magic, string(blob[:8]))
	require.Equal(t, uint32(len(blob)), binary.LittleEndian.Uint32(blob[offFileSize:]))
	require.Equal(t, blob, EncodeMeta(scope))

	m, err := DecodeMeta(blob)
	require.NoError(t, err)
	require.Equal(t, &Meta{Classes: []ClassMeta{
		{
			Name:    "Lapp/K;",
			State:   [3]byte{0x01, 0x02, 0x00},
			Fields:  []MemberMeta{{Name: "Lapp/K;.k:I", State: [3]byte{0x02, 0x00, 0x00}}},
			Methods: []MemberMeta{{Name: "Lapp/K;.run:(I)I", State: [3]byte{0x04, 0x01, 0x00}}},
		},
		{Name: "Lapp/Zero;", State: [3]byte{}},
	}}, m)

	/* the all-default virtual method was not written */
	require.Len(t, m.Classes[0].Methods, 1)

	fresh := buildScope(ident.NewContext())
	require.Equal(t, 4, m.Apply(fresh))
	fk := fresh[0]
	require.True(t, fk.Rstate().Keep())
	require.Equal(t, int64(2), fk.Rstate().RefCount())
	require.True(t, fk.AllFields()[0].Rstate().ByString())
	require.False(t, fk.AllFields()[0].Rstate().CanRename())
	fr := fk.AllMethods()[0]
	require.True(t, fr.Rstate().ByResources())
	require.Equal(t, int64(1), fr.Rstate().RefCount())
	require.True(t, fresh[1].Rstate().CanDelete())
}

func TestMetaRefCountSaturates(t *testing.T) {
	ctx := ident.NewContext()
	scope := buildScope(ctx)
	for i := 0; i <= 0x10000; i++ {
		scope[0].Rstate().IncRef()
	}

	m, err := DecodeMeta(EncodeMeta(scope))
	require.NoError(t, err)
	require.Equal(t, [3]byte{0x00, 0xff, 0xff}, m.Classes[0].State)

	fresh := buildScope(ident.NewContext())
	m.Apply(fresh)
	require.Equal(t, int64(0xffff), fresh[0].Rstate().RefCount())
}

/* forge wraps an arbitrary payload in a self-consistent header */
func forge(payload []byte) []byte {
	buf := make([]byte, headerSize+len(payload))
	copy(buf, magic)
	copy(buf[headerSize:], payload)
	binary.LittleEndian.PutUint32(buf[offChecksum:], crc32.ChecksumIEEE(payload))
	binary.LittleEndian.PutUint32(buf[offFileSize:], uint32(len(buf)))
	binary.LittleEndian.PutUint32(buf[offClsSize:], uint32(len(payload)))
	return buf
}

func TestDecodeMetaErrors(t *testing.T) {
	blob := EncodeMeta(buildScope(ident.NewContext()))

	badMagic := append([]byte(nil), blob...)
	badMagic[0] ^= 1

	badSum := append([]byte(nil), blob...)
	badSum[len(badSum)-1] ^= 1

	badClsSize := append([]byte(nil), blob...)
	binary.LittleEndian.PutUint32(badClsSize[offClsSize:], 7)

	for _, tc := range []struct {
		name   string
		data   []byte
		reason string
	}{
		{"empty", nil, "truncated header"},
		{"magic", badMagic, "bad magic"},
		{"truncated", blob[:len(blob)-1], "file size mismatch"},
		{"classes size", badClsSize, "classes size mismatch"},
		{"checksum", badSum, "checksum mismatch"},
		{"orphan member", forge([]byte{tagField, 1, 'a', 0, 0, 0, 0}), "member entry before any class"},
		{"unknown tag", forge([]byte{0x07, 1, 'a', 0, 0, 0, 0}), "unknown entry tag 0x7"},
		{"empty name", forge([]byte{tagClass, 0}), "empty string"},
		{"cut string", forge([]byte{tagClass, 5, 'a'}), "truncated string"},
		{"no terminator", forge([]byte{tagClass, 1, 'a', 'b', 0, 0, 0}), "string missing terminator"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeMeta(tc.data)
			var fe FormatError
			require.ErrorAs(t, err, &fe)
			require.Equal(t, tc.reason, fe.Reason)
		})
	}
}

func TestMetaSaveLoad(t *testing.T) {
	ctx := ident.NewContext()
	scope := buildScope(ctx)
	scope[0].Rstate().SetAllowObfuscate()

	dir := t.TempDir()
	require.NoError(t, Save(dir, scope))

	m, err := Load(dir)
	require.NoError(t, err)
	require.Equal(t, [3]byte{0x10, 0x00, 0x00}, m.Classes[0].State)

	_, err = Load(filepath.Join(dir, "nope"))
	require.Error(t, err)
}

func TestWriteResidToName(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, WriteResidToName(dir, map[uint32]string{
		0x7f020003: "app:string/title",
		0x7f010001: "app:layout/main",
	}))

	data, err := os.ReadFile(filepath.Join(dir, ResidToNameFile))
	require.NoError(t, err)
	require.Equal(t, `{
  "0x7f010001": "app:layout/main",
  "0x7f020003": "app:string/title"
}
`, string(data))
}

func TestWriteResidMapping(t *testing.T) {
	dir := t.TempDir()
	rows := []ResidMapping{
		{OldID: 0x7f020001, NewID: 0x7f010002, Name: "app:string/title"},
		{OldID: 0x7f010001, NewID: 0x7f010001, Name: "app:layout/main"},
	}
	require.NoError(t, WriteResidMapping(dir, "optres", rows))

	data, err := os.ReadFile(filepath.Join(dir, "redex-resid-optres-mapping.json"))
	require.NoError(t, err)

	var got []ResidMapping
	require.NoError(t, json.Unmarshal(data, &got))
	require.Equal(t, []ResidMapping{rows[1], rows[0]}, got)

	/* the input slice order is untouched */
	require.Equal(t, uint32(0x7f020001), rows[0].OldID)
}

func TestWriteResourceMapping(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, WriteResourceMapping(dir, map[string]string{
		"res/layout/main.xml": "r/a.xml",
	}))

	data, err := os.ReadFile(filepath.Join(dir, ResourceMappingFile))
	require.NoError(t, err)
	require.Equal(t, `{
  "res/layout/main.xml": "r/a.xml"
}
`, string(data))
}

func TestWriteThrowingClasses(t *testing.T) {
	ctx := ident.NewContext()
	obj := ctx.MakeType("Ljava/lang/Object;")
	zz := ir.NewClass(ctx.MakeType("Lzz/Z;"), obj, ir.AccPublic)
	aa := ir.NewClass(ctx.MakeType("Laa/A;"), obj, ir.AccPublic)

	dir := t.TempDir()
	require.NoError(t, WriteThrowingClasses(dir, []*ir.DexClass{zz, aa}))

	data, err := os.ReadFile(filepath.Join(dir, ThrowingClassesFile))
	require.NoError(t, err)
	require.Equal(t, "Laa/A;\nLzz/Z;\n", string(data))
}

func TestWriteMetrics(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "metrics.json")
	require.NoError(t, WriteMetrics(path, map[string]int64{
		"MethodSplitPass.methods": 3,
		"InterDexPass.groups":     2,
	}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, `{
  "InterDexPass.groups": 2,
  "MethodSplitPass.methods": 3
}
`, string(data))
}

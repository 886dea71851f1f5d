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
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cloudwego/rdx/internal/ir"
)

const (
	ResidToNameFile     = "resid_to_name.json"
	ResourceMappingFile = "resource-mapping.txt"
	ThrowingClassesFile = "redex-unconditionally-throwing-classes.txt"
)

// ResidMappingFile names the remap file a pass writes after renumbering
// resource ids.
func ResidMappingFile(tag string) string {
	return fmt.Sprintf("redex-resid-%s-mapping.json", tag)
}

// ResidMapping is one row of a resource id remap.
type ResidMapping struct {
	OldID uint32 `json:"old_id"`
	NewID uint32 `json:"new_id"`
	Name  string `json:"name"`
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// WriteResidToName dumps the resource id to resource name table. Keys are
// the ids in 0x%08x form, which keeps the JSON sorted numerically.
func WriteResidToName(dir string, names map[uint32]string) error {
	out := make(map[string]string, len(names))
	for id, name := range names {
		out[fmt.Sprintf("0x%08x", id)] = name
	}
	return writeJSON(filepath.Join(dir, ResidToNameFile), out)
}

// WriteResidMapping dumps one pass's resource id remap, ordered by old id.
func WriteResidMapping(dir, tag string, rows []ResidMapping) error {
	sorted := make([]ResidMapping, len(rows))
	copy(sorted, rows)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].OldID < sorted[j].OldID })
	return writeJSON(filepath.Join(dir, ResidMappingFile(tag)), sorted)
}

// WriteResourceMapping dumps the pre- to post-obfuscation resource path map.
func WriteResourceMapping(dir string, paths map[string]string) error {
	return writeJSON(filepath.Join(dir, ResourceMappingFile), paths)
}

// WriteThrowingClasses dumps the deobfuscated names of classes proven to
// always throw, one per line, sorted.
func WriteThrowingClasses(dir string, classes []*ir.DexClass) error {
	names := make([]string, len(classes))
	for i, cls := range classes {
		names[i] = cls.DeobfuscatedName()
	}
	sort.Strings(names)
	var sb strings.Builder
	for _, name := range names {
		sb.WriteString(name)
		sb.WriteByte('\n')
	}
	return os.WriteFile(filepath.Join(dir, ThrowingClassesFile), []byte(sb.String()), 0o644)
}

// WriteMetrics dumps the flattened pass metrics, keyed "<pass>.<counter>".
// Map keys serialize sorted, so two identical runs produce identical bytes.
func WriteMetrics(path string, metrics map[string]int64) error {
	return writeJSON(path, metrics)
}

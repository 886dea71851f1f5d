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

package check

import (
	"fmt"

	"github.com/cloudwego/rdx/internal/conf"
	"github.com/cloudwego/rdx/internal/ir"
	"github.com/cloudwego/rdx/internal/pass"
	"github.com/cloudwego/rdx/internal/props"
)

// DexLimitsObeyed verifies every dex unit's reference tables fit the 16-bit
// index space the format gives them.
type DexLimitsObeyed struct{}

func (self DexLimitsObeyed) Property() props.Property {
	return props.DexLimitsObeyed
}

func (self DexLimitsObeyed) Check(stores []*ir.DexStore, cfg *conf.GlobalConfig, mgr *pass.Manager, established bool) error {
	if !established {
		return nil
	}
	col := newCollector()
	for _, store := range stores {
		for i, dex := range store.Dexen() {
			loc := fmt.Sprintf("%s/%02d", store.Name(), i)
			self.checkTable(col, loc, "method", ir.MethodRefCount(dex))
			self.checkTable(col, loc, "field", ir.FieldRefCount(dex))
			self.checkTable(col, loc, "type", ir.TypeRefCount(dex))
		}
	}
	return col.err()
}

func (self DexLimitsObeyed) checkTable(col *_Collector, loc, kind string, n int) {
	if n > ir.MaxRefsPerDex {
		col.report(Violation{
			Class:  loc,
			Reason: fmt.Sprintf("%d %s refs exceed the limit of %d", n, kind, ir.MaxRefsPerDex),
		})
	}
}

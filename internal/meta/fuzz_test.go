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
	"errors"
	"testing"

	"github.com/cloudwego/rdx/internal/ident"
)

/* the decoder's contract under arbitrary bytes: no panic, every rejection
 * is a FormatError, every acceptance yields named classes */
func FuzzDecodeMeta(f *testing.F) {
	blob := EncodeMeta(buildScope(ident.NewContext()))
	f.Add(blob)
	f.Add(blob[:len(blob)-1])
	f.Add(blob[:headerSize])
	f.Add([]byte{})
	f.Add(forge([]byte{tagClass, 1, 'a', 0, 0, 0, 0}))
	f.Add(forge([]byte{tagField, 1, 'a', 0, 0, 0, 0}))

	f.Fuzz(func(t *testing.T, data []byte) {
		m, err := DecodeMeta(data)
		if err != nil {
			var fe FormatError
			if !errors.As(err, &fe) {
				t.Fatalf("rejection is not a FormatError: %v", err)
			}
			return
		}
		for _, c := range m.Classes {
			if c.Name == "" {
				t.Fatal("accepted a class without a name")
			}
		}
	})
}

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
	"fmt"

	"github.com/cloudwego/rdx/internal/pass"
)

// The pipeline error taxonomy, as surfaced by Run. Configuration and
// soundness errors are reported before any pass mutates the program;
// invariant errors name the checker and the offending site.
type (
	ConfigError    = pass.ConfigError
	SoundnessError = pass.SoundnessError
	InvariantError = pass.InvariantError
	LimitError     = pass.LimitError
)

// InternalError wraps a panic raised inside a pass: an IR invariant was
// violated mid-flight. The program state is not trustworthy afterwards.
type InternalError struct {
	Pass  string
	Cause interface{}
}

func (self InternalError) Error() string {
	if self.Pass == "" {
		return fmt.Sprintf("InternalError: %v", self.Cause)
	}
	return fmt.Sprintf("InternalError(%s): %v", self.Pass, self.Cause)
}

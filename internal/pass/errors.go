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

package pass

import (
	"fmt"

	"github.com/cloudwego/rdx/internal/props"
)

// ConfigError occurs when a pass's options cannot be bound: malformed JSON,
// an unresolvable required reference, a bad flag combination, or a pass
// name the registry does not know.
type ConfigError struct {
	Pass   string
	Reason error
}

func (self ConfigError) Error() string {
	return fmt.Sprintf("ConfigError(%s): %v", self.Pass, self.Reason)
}

func (self ConfigError) Unwrap() error {
	return self.Reason
}

// SoundnessError occurs when the configured pipeline's declared property
// interactions do not verify; the report lists every violation found.
type SoundnessError struct {
	Report error
}

func (self SoundnessError) Error() string {
	return fmt.Sprintf("SoundnessError: %v", self.Report)
}

func (self SoundnessError) Unwrap() error {
	return self.Report
}

// InvariantError occurs when a checker finds the program in a state the
// established properties forbid after a pass ran.
type InvariantError struct {
	Pass     string
	Property props.Property
	Reason   error
}

func (self InvariantError) Error() string {
	return fmt.Sprintf("InvariantError(%s after %s): %v", self.Property, self.Pass, self.Reason)
}

func (self InvariantError) Unwrap() error {
	return self.Reason
}

// LimitError reports a DEX reference budget overflow. Passes that can roll
// back recover from it locally and record a metric; it never aborts the
// pipeline by itself.
type LimitError struct {
	Dex   string
	Kind  string
	Count int
	Limit int
}

func (self LimitError) Error() string {
	return fmt.Sprintf("LimitError(%s): %d %s refs exceed the limit of %d", self.Dex, self.Count, self.Kind, self.Limit)
}

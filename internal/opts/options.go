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

package opts

// Options carries the process-wide switches of a pipeline run. They are
// resolved once, before the first pass executes, and are read-only from
// then on.
type Options struct {
	Parallelism       int
	RecordKeepReasons bool
	Verbose           bool
	MetaDir           string
	MetricsPath       string
	DebugDrawDir      string
}

func (self *Options) Workers() int {
	if self.Parallelism > 0 {
		return self.Parallelism
	}
	return DefaultParallelism
}

func GetDefaultOptions() Options {
	return Options{
		Parallelism: DefaultParallelism,
	}
}

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
	"github.com/cloudwego/rdx/internal/opts"
)

// Option is the property setter function for opts.Options.
type Option func(*opts.Options)

// WithParallelism bounds how many workers a pass may use. Values below 1
// fall back to the default, which is the machine's logical core count.
func WithParallelism(n int) Option {
	return func(self *opts.Options) {
		self.Parallelism = n
	}
}

// WithRecordKeepReasons makes every keep decision retain its justification.
// The switch is process-global and frozen before the first pass runs, so
// diagnostics can explain any kept definition at the cost of extra memory.
func WithRecordKeepReasons(v bool) Option {
	return func(self *opts.Options) {
		self.RecordKeepReasons = v
	}
}

// WithVerboseLogging raises the log level to debug for the whole run.
func WithVerboseLogging(v bool) Option {
	return func(self *opts.Options) {
		self.Verbose = v
	}
}

// WithMetaDir makes the run persist its meta artifacts, irmeta.bin among
// them, into dir. The directory must exist.
func WithMetaDir(dir string) Option {
	return func(self *opts.Options) {
		self.MetaDir = dir
	}
}

// WithMetricsPath makes the run write the flattened metrics report to path.
// The report is written on failure too, covering every pass that finished.
func WithMetricsPath(path string) Option {
	return func(self *opts.Options) {
		self.MetricsPath = path
	}
}

// WithDebugDrawDir points the drawing passes at a directory for their SVG
// dumps. Explicit per-pass debug_draw_dir options in the config win.
func WithDebugDrawDir(dir string) Option {
	return func(self *opts.Options) {
		self.DebugDrawDir = dir
	}
}

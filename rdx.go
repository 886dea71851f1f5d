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

// Package rdx runs an ahead-of-time DEX optimization pipeline: an ordered
// list of passes over the loaded program, configured by a single JSON
// object, verified for soundness up front and checked for invariants after
// every pass. The DEX loader and writer are not part of this module;
// embedders hand over loaded stores and serialize them back afterwards.
package rdx

import (
	"encoding/json"

	log "github.com/sirupsen/logrus"

	"github.com/cloudwego/rdx/internal/check"
	"github.com/cloudwego/rdx/internal/conf"
	"github.com/cloudwego/rdx/internal/ident"
	"github.com/cloudwego/rdx/internal/interdex"
	"github.com/cloudwego/rdx/internal/ir"
	"github.com/cloudwego/rdx/internal/meta"
	"github.com/cloudwego/rdx/internal/opts"
	"github.com/cloudwego/rdx/internal/pass"
	"github.com/cloudwego/rdx/internal/regalloc"
	"github.com/cloudwego/rdx/internal/split"
)

// Registry is the set of passes a run can name in "redex.passes".
type Registry = pass.Registry

// Pass is the unit of pipeline work; see DefaultRegistry for the built-in
// ones.
type Pass = pass.Pass

// NewRegistry builds a registry from explicit passes, for embedders mixing
// their own into the pipeline.
func NewRegistry(passes ...Pass) *Registry {
	return pass.NewRegistry(passes...)
}

// DefaultRegistry returns the built-in passes. The interner must be the one
// the program was loaded with, since passes derive new names through it.
func DefaultRegistry(ctx *ident.Context) *Registry {
	return NewRegistry(
		interdex.NewPass(),
		split.NewPass(ctx),
		regalloc.NewPass(),
	)
}

// Inputs names what a run consumes. The stores hold the loaded program,
// root store first; the config is the top-level JSON object with the
// "redex.passes" order and one section per pass.
type Inputs struct {
	Context    *ident.Context // the interner the stores were loaded with
	Stores     []*ir.DexStore // root store first, dependency modules after
	ConfigJSON []byte         // the top-level JSON config object
	Classpath  []string       // classpath jar paths, for diagnostics
	ApkDir     string         // unpacked APK directory, for diagnostics
	Registry   *Registry      // nil selects DefaultRegistry
}

/* passes that honor the process-wide debug draw directory */
var drawingPasses = []string{split.PassName, regalloc.PassName}

// Run executes the configured pipeline over the inputs. Configuration and
// soundness problems surface before any pass mutates the program; a panic
// inside a pass comes back as an InternalError naming it. The metrics
// report, when requested, is written on every path, so a failed run still
// shows everything the finished passes did.
func Run(in Inputs, options ...Option) (err error) {
	o := opts.GetDefaultOptions()
	for _, fn := range options {
		fn(&o)
	}
	if o.Verbose {
		log.SetLevel(log.DebugLevel)
	}
	if in.Context == nil {
		in.Context = ident.NewContext()
	}
	in.Context.SetRecordKeepReasons(o.RecordKeepReasons)
	log.Debugf("run over %d stores, %d classpath jars, apk dir %q",
		len(in.Stores), len(in.Classpath), in.ApkDir)

	cfg, err := conf.ParseGlobal(in.ConfigJSON)
	if err != nil {
		return ConfigError{Pass: "redex", Reason: err}
	}
	if o.DebugDrawDir != "" {
		for _, name := range drawingPasses {
			if err := cfg.SetDefault(name, "debug_draw_dir", o.DebugDrawDir); err != nil {
				return ConfigError{Pass: name, Reason: err}
			}
		}
	}
	mgr, selected, err := assemble(in, cfg)
	if err != nil {
		return err
	}
	mgr.SetWorkers(o.Workers())
	for _, c := range check.All() {
		mgr.RegisterChecker(c)
	}

	defer func() {
		if r := recover(); r != nil {
			err = InternalError{Pass: mgr.Current(), Cause: r}
		}
		if o.MetricsPath != "" {
			if werr := meta.WriteMetrics(o.MetricsPath, mgr.Metrics().Flatten()); werr != nil {
				log.Errorf("metrics report not written: %v", werr)
			}
		}
		if err != nil {
			log.Errorf("pipeline failed: %v", err)
		}
	}()

	if err = mgr.Run(selected); err != nil {
		return err
	}
	ns, nt, np, nf, nm := in.Context.Counts()
	log.Debugf("interner: %d strings, %d types, %d protos, %d fields, %d methods",
		ns, nt, np, nf, nm)
	if o.MetaDir != "" {
		if err = meta.Save(o.MetaDir, ir.BuildScope(in.Stores)); err != nil {
			return err
		}
	}
	return nil
}

// Verify binds every selected pass's options and verifies the pipeline's
// declared property interactions without running it, so front-ends can vet
// a config before committing to a run.
func Verify(in Inputs, options ...Option) error {
	o := opts.GetDefaultOptions()
	for _, fn := range options {
		fn(&o)
	}
	if o.Verbose {
		log.SetLevel(log.DebugLevel)
	}
	if in.Context == nil {
		in.Context = ident.NewContext()
	}
	cfg, err := conf.ParseGlobal(in.ConfigJSON)
	if err != nil {
		return ConfigError{Pass: "redex", Reason: err}
	}
	mgr, selected, err := assemble(in, cfg)
	if err != nil {
		return err
	}
	return mgr.Verify(selected)
}

// ReflectConfig renders the registry's configuration schema tree as
// indented JSON, one object per pass in registration order.
func ReflectConfig(reg *Registry) ([]byte, error) {
	schemas, err := pass.ReflectAll(reg)
	if err != nil {
		return nil, err
	}
	buf, err := json.MarshalIndent(schemas, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(buf, '\n'), nil
}

/* shared between Run and Verify: pass order, registry selection, manager */
func assemble(in Inputs, cfg *conf.GlobalConfig) (*pass.Manager, []Pass, error) {
	names, err := cfg.Passes()
	if err != nil {
		return nil, nil, ConfigError{Pass: "redex", Reason: err}
	}
	reg := in.Registry
	if reg == nil {
		reg = DefaultRegistry(in.Context)
	}
	selected, err := reg.Select(names)
	if err != nil {
		return nil, nil, err
	}
	mgr := pass.NewManager(in.Stores, cfg)
	mgr.SetResolver(conf.NewScopeResolver(in.Context, ir.NewClassIndex(ir.BuildScope(in.Stores))))
	return mgr, selected, nil
}

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

// Command rdx drives the optimization pipeline from a JSON config: it lists
// the built-in passes, dumps their option schemas, verifies a pipeline's
// soundness, or runs it. Loading DEX input is the embedder's job, so a run
// here operates over an empty program.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	log "github.com/sirupsen/logrus"

	"github.com/cloudwego/rdx"
	"github.com/cloudwego/rdx/internal/ident"
	"github.com/cloudwego/rdx/internal/ir"
)

func main() {
	var (
		configPath    = flag.String("config", "", "Pipeline config JSON file.")
		listPasses    = flag.Bool("list-passes", false, "Print the registered pass names and exit.")
		reflectConfig = flag.Bool("reflect-config", false, "Print every pass's option schema as JSON and exit.")
		verifyOnly    = flag.Bool("verify", false, "Bind options and verify pipeline soundness without running it.")
		parallelism   = flag.Int("j", 0, "Worker parallelism; 0 picks the machine default.")
		metaDir       = flag.String("meta", "", "Directory for persisted pipeline state (irmeta.bin and friends).")
		metricsPath   = flag.String("metrics", "", "File the metrics report is written to.")
		drawDir       = flag.String("draw", "", "Directory for per-pass SVG debug drawings.")
		verbose       = flag.Bool("v", false, "Prints debug messages.")
	)
	flag.Parse()

	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "15:04:05",
	})
	if *verbose {
		log.SetLevel(log.DebugLevel)
	}

	ctx := ident.NewContext()
	reg := rdx.DefaultRegistry(ctx)

	if *listPasses {
		for _, name := range reg.Names() {
			fmt.Println(name)
		}
		return
	}
	if *reflectConfig {
		buf, err := rdx.ReflectConfig(reg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to reflect configs: %v\n", err)
			os.Exit(1)
		}
		os.Stdout.Write(buf)
		return
	}

	var cfgJSON []byte
	if *configPath != "" {
		var err error
		cfgJSON, err = os.ReadFile(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to read config: %v\n", err)
			os.Exit(1)
		}
	}

	in := rdx.Inputs{
		Context:    ctx,
		Stores:     []*ir.DexStore{ir.NewStore(ir.RootStoreName)},
		ConfigJSON: cfgJSON,
		Registry:   reg,
	}

	if *verifyOnly {
		if err := rdx.Verify(in); err != nil {
			color.Red("pipeline rejected: %v", err)
			os.Exit(1)
		}
		color.Green("pipeline verified")
		return
	}

	start := time.Now()
	err := rdx.Run(in,
		rdx.WithParallelism(*parallelism),
		rdx.WithVerboseLogging(*verbose),
		rdx.WithMetaDir(*metaDir),
		rdx.WithMetricsPath(*metricsPath),
		rdx.WithDebugDrawDir(*drawDir),
	)
	if err != nil {
		color.Red("pipeline failed after %s: %v", formatDuration(time.Since(start)), err)
		os.Exit(1)
	}
	color.Green("pipeline finished in %s", formatDuration(time.Since(start)))
}

func formatDuration(d time.Duration) string {
	switch {
	case d >= time.Minute:
		return fmt.Sprintf("%.2fmin", d.Minutes())
	case d >= time.Second:
		return fmt.Sprintf("%.2fs", d.Seconds())
	default:
		return fmt.Sprintf("%.1fms", float64(d.Nanoseconds())/1000000.0)
	}
}

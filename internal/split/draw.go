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

package split

import (
	"fmt"
	"os"
	"strings"

	svg "github.com/ajstarks/svgo"

	"github.com/cloudwego/rdx/internal/ir"
)

// DrawReduced renders the reduced graph as an SVG, one row per component
// with its size and member blocks, edges drawn as rails on the right. Hot
// components are marked in red.
func DrawReduced(fn string, rcfg *ReducedCFG) {
	rows := rcfg.Blocks()
	idx := make(map[*ReducedBlock]int, len(rows))
	maxw := 0
	text := make([]string, len(rows))
	for i, rb := range rows {
		nb := make([]string, 0, len(rb.Blocks()))
		for _, b := range rb.Blocks() {
			nb = append(nb, fmt.Sprintf("b%d", b.ID()))
		}
		idx[rb] = i
		text[i] = fmt.Sprintf("%4du  %s", rb.Size(), strings.Join(nb, " "))
		if len(text[i]) > maxw {
			maxw = len(text[i])
		}
	}
	nedges := 0
	for _, rb := range rows {
		nedges += len(rb.Succs())
	}
	texw := maxw*9 + 120
	fp, err := os.OpenFile(fn, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		panic(err)
	}
	p := svg.New(fp)
	p.Start(texw+nedges*10+100, len(rows)*24+100)
	if _, err = fp.WriteString(`<rect width="100%" height="100%" fill="white" />` + "\n"); err != nil {
		panic(err)
	}
	for i, rb := range rows {
		style := "fill:gray;font-size:16px;font-family:monospace"
		if rb.Hot() {
			style = "fill:crimson;font-size:16px;font-family:monospace"
		}
		p.Text(16, 100+i*24, fmt.Sprintf("rb_%d", rb.ID()), style)
		p.Text(120, 100+i*24, text[i], "fill:black;font-size:16px;font-family:monospace")
		p.Line(10, 84+i*24, texw+5, 84+i*24, "stroke:lightgray")
	}
	rail := texw + 20
	for _, rb := range rows {
		for _, s := range rb.Succs() {
			y1 := 95 + idx[rb]*24
			y2 := 95 + idx[s]*24
			p.Line(texw+10, y1, rail, y1, "stroke:lightgray")
			p.Line(rail, y1, rail, y2, "stroke:gray")
			p.Line(rail, y2, texw+10, y2, "stroke:gray")
			rail += 10
		}
	}
	p.End()
	if err = fp.Close(); err != nil {
		panic(err)
	}
}

/* drawName flattens a method reference into a usable file name. */
func drawName(m *ir.DexMethod, round int) string {
	s := strings.Map(func(r rune) rune {
		switch r {
		case '/', ';', ':', '(', ')', '[', '<', '>', '.', ' ':
			return '_'
		default:
			return r
		}
	}, m.String())
	return fmt.Sprintf("%s_%d.svg", strings.TrimPrefix(s, "L"), round)
}

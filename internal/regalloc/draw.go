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

package regalloc

import (
	"fmt"
	"os"
	"sort"
	"strings"

	svg "github.com/ajstarks/svgo"

	"github.com/cloudwego/rdx/internal/ir"
)

/* drawLiveRanges renders the method as an SVG, one row per instruction and
 * one column per register: a vertical bar spans the live range, white
 * circles are definitions, black circles are uses. */
func drawLiveRanges(fn string, blocks []*ir.Block, lr map[ir.Reg]*_LiveRange) {
	maxi := 0
	leni := 0
	for _, b := range blocks {
		leni += len(b.Insns()) + 1
		for _, insn := range b.Insns() {
			if s := insn.String(); len(s) > maxi {
				maxi = len(s)
			}
		}
	}

	maxw := 0
	regs := make([]ir.Reg, 0, len(lr))
	for r := range lr {
		regs = append(regs, r)
		if s := fmt.Sprintf("v%d", r); len(s) > maxw {
			maxw = len(s)
		}
	}
	sort.Slice(regs, func(i, j int) bool { return regs[i] < regs[j] })
	sort.SliceStable(regs, func(i, j int) bool {
		return lr[regs[i]].first().isPriorTo(lr[regs[j]].first())
	})

	insw := maxi*9 + 120
	regw := (maxw+1)*8 + 16

	fp, err := os.OpenFile(fn, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		panic(err)
	}
	p := svg.New(fp)
	p.Start(len(regs)*regw+insw+100, (leni+1)*24+100)
	if _, err = fp.WriteString(`<rect width="100%" height="100%" fill="white" />` + "\n"); err != nil {
		panic(err)
	}

	bbi := 0
	insi := make(map[_LivePoint]int)
	for b, bb := range blocks {
		insi[_LivePoint{b, -1}] = 95 + bbi*24
		p.Text(16, 100+bbi*24, fmt.Sprintf("b%d", bb.ID()), "fill:gray;font-size:16px;font-family:monospace")
		p.Line(10, 84+bbi*24, insw+5, 84+bbi*24, "stroke:lightgray")
		bbi++
		for i, insn := range bb.Insns() {
			h := 95 + bbi*24
			insi[_LivePoint{b, i}] = h
			p.Text(insw, 100+bbi*24, insn.String(), "fill:black;font-size:16px;font-family:monospace;text-anchor:end")
			p.Line(insw+10, h, len(regs)*regw+insw+50, h, "stroke:gray")
			bbi++
		}
		/* live-out marks land on the next header row */
		insi[_LivePoint{b, len(bb.Insns())}] = 95 + bbi*24
	}

	for i, r := range regs {
		x := insw + i*regw + 50
		rr := lr[r]
		p.Text(x, 70, fmt.Sprintf("v%d", r), "fill:black;font-size:16px;font-family:monospace;text-anchor:middle")
		p.Line(x, insi[rr.first()], x, insi[rr.last()], "stroke:black;stroke-width:3")
		for _, pt := range rr.p {
			if pt.i < 0 || pt.i >= len(blocks[pt.b].Insns()) {
				continue
			}
			insn := blocks[pt.b].Insns()[pt.i]
			if insn.HasDest() && insn.Dest() == r {
				p.Circle(x, insi[pt], 4, "fill:white;stroke:black;stroke-width:2")
			} else {
				p.Circle(x, insi[pt], 4, "fill:black;stroke:black;stroke-width:2")
			}
		}
	}
	p.End()
	if err = fp.Close(); err != nil {
		panic(err)
	}
}

func drawName(m *ir.DexMethod) string {
	s := strings.Map(func(r rune) rune {
		switch r {
		case '/', ';', ':', '(', ')', '[', '<', '>', '.', ' ':
			return '_'
		default:
			return r
		}
	}, m.String())
	return strings.TrimPrefix(s, "L") + ".svg"
}

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

// Package interdex partitions candidate types into ordered groups derived
// from a coldstart class profile. Group 0 is the hot group; the last group
// collects everything never observed during coldstart. Later grouping-aware
// passes consult the result to keep their rewrites cross-dex safe.
package interdex

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/cloudwego/rdx/internal/ident"
	"github.com/cloudwego/rdx/internal/ir"
)

// Mode selects which groups a grouping exposes.
type Mode uint8

const (
	// ModeDisabled turns inference off: one group holding every candidate.
	ModeDisabled Mode = iota

	// ModeNonHotSet drops candidates whose class-loads fall in group 0.
	ModeNonHotSet

	// ModeNonOrderedSet keeps only the trailing never-loaded group.
	ModeNonOrderedSet

	// ModeFull partitions candidates across all groups.
	ModeFull
)

var modeNames = map[Mode]string{
	ModeDisabled:      "disabled",
	ModeNonHotSet:     "non-hot-set",
	ModeNonOrderedSet: "non-ordered-set",
	ModeFull:          "full",
}

func (self Mode) String() string {
	if s, ok := modeNames[self]; ok {
		return s
	}
	return fmt.Sprintf("Mode(%d)", uint8(self))
}

// ParseMode maps a config string onto a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "disabled":
		return ModeDisabled, nil
	case "non-hot-set":
		return ModeNonHotSet, nil
	case "non-ordered-set":
		return ModeNonOrderedSet, nil
	case "full":
		return ModeFull, nil
	}
	return ModeDisabled, fmt.Errorf("unknown interdex mode %q", s)
}

// InferringMode selects which instructions count as class-load observations.
type InferringMode uint8

const (
	// InferAllInstructions observes class-loads anywhere in a method body.
	InferAllInstructions InferringMode = iota

	// InferHotBlocks observes only inside basic blocks whose source-block
	// profile has a positive hit count.
	InferHotBlocks
)

func (self InferringMode) String() string {
	if self == InferHotBlocks {
		return "hot-blocks"
	}
	return "all-instructions"
}

// ParseInferringMode maps a config string onto an InferringMode.
func ParseInferringMode(s string) (InferringMode, error) {
	switch s {
	case "all-instructions":
		return InferAllInstructions, nil
	case "hot-blocks":
		return InferHotBlocks, nil
	}
	return InferAllInstructions, fmt.Errorf("unknown inferring mode %q", s)
}

/* end markers are synthetic list entries, not real classes; everything
 * between two markers (or before the first) forms one ordered group. */
const endMarkerPrefix = "LDexEndMarker"

// Coldstart is a parsed coldstart-classes profile: a partial order of class
// descriptors split into groups by end markers, hottest group first.
type Coldstart struct {
	listed  map[string]int
	ordered int
}

// ParseColdstart splits a coldstart listing into ordered groups. A class
// listed twice keeps its first (hotter) position. The listing always yields
// at least one ordered group, even when empty.
func ParseColdstart(classes []string) *Coldstart {
	self := &Coldstart{listed: make(map[string]int, len(classes))}
	group := 0
	for _, desc := range classes {
		if strings.HasPrefix(desc, endMarkerPrefix) {
			group++
			continue
		}
		if _, ok := self.listed[desc]; !ok {
			self.listed[desc] = group
		}
	}
	self.ordered = group + 1
	return self
}

// NumOrdered returns how many groups the listing itself defines.
func (self *Coldstart) NumOrdered() int { return self.ordered }

// NumGroups returns the ordered group count plus the trailing group for
// types the profile never mentions.
func (self *Coldstart) NumGroups() int { return self.ordered + 1 }

// Leftover returns the index of the trailing never-listed group.
func (self *Coldstart) Leftover() int { return self.ordered }

// GroupOf returns the listed group of a descriptor, or false when the
// profile does not mention it.
func (self *Coldstart) GroupOf(desc string) (int, bool) {
	g, ok := self.listed[desc]
	return g, ok
}

// Options controls how a grouping is built.
type Options struct {
	Mode      Mode
	Inferring InferringMode
	Workers   int
}

// Grouping is the result of partitioning candidates: a stable mapping from
// type to group index. Group indices match the coldstart listing even in
// modes that drop candidates, so two groupings built from the same profile
// agree on what any shared index means.
type Grouping struct {
	byType map[*ident.Type]int
	groups [][]*ident.Type
}

// NumGroups returns the number of group slots, dropped ones included.
func (self *Grouping) NumGroups() int { return len(self.groups) }

// Group returns the candidates placed in group i, sorted by descriptor.
func (self *Grouping) Group(i int) []*ident.Type { return self.groups[i] }

// GroupOf returns a candidate's group, or false when the mode dropped it
// (or it never was a candidate).
func (self *Grouping) GroupOf(t *ident.Type) (int, bool) {
	g, ok := self.byType[t]
	return g, ok
}

// Len returns how many candidates the grouping kept.
func (self *Grouping) Len() int { return len(self.byType) }

// BuildGrouping partitions the candidate types into coldstart groups. A
// candidate starts from its own listing (or the leftover group), then every
// class-load observed in a listed scope class pulls it forward to that
// observer's group; hotter always wins. The scan runs one task per scope
// class and is deterministic: observation order does not matter because the
// merge takes a minimum.
func BuildGrouping(candidates []*ident.Type, scope []*ir.DexClass, cold *Coldstart, opt Options) *Grouping {
	if cold == nil {
		cold = ParseColdstart(nil)
	}
	if opt.Mode == ModeDisabled {
		return singleGroup(candidates)
	}

	leftover := cold.Leftover()
	assigned := make(map[*ident.Type]int, len(candidates))
	for _, t := range candidates {
		g := leftover
		if n, ok := cold.GroupOf(t.String()); ok {
			g = n
		}
		assigned[t] = g
	}

	/* only listed classes can pull a candidate out of its seeded group:
	 * an observation from the leftover group is never hotter. */
	var observers []*ir.DexClass
	for _, cls := range scope {
		if _, ok := cold.GroupOf(cls.Type().String()); ok {
			observers = append(observers, cls)
		}
	}

	var mu sync.Mutex
	ir.WalkCodeParallel(observers, opt.Workers, func(m *ir.DexMethod, code *ir.IRCode) {
		g, ok := cold.GroupOf(m.Class().Type().String())
		if !ok {
			return
		}
		seen := make(map[*ident.Type]bool)
		observeCode(code, opt.Inferring, seen)
		if len(seen) == 0 {
			return
		}
		mu.Lock()
		for t := range seen {
			if cur, ok := assigned[t]; ok && g < cur {
				assigned[t] = g
			}
		}
		mu.Unlock()
	})

	groups := make([][]*ident.Type, cold.NumGroups())
	byType := make(map[*ident.Type]int, len(assigned))
	for t, g := range assigned {
		switch opt.Mode {
		case ModeNonHotSet:
			if g == 0 {
				continue
			}
		case ModeNonOrderedSet:
			if g != leftover {
				continue
			}
		}
		byType[t] = g
		groups[g] = append(groups[g], t)
	}
	for _, g := range groups {
		sortTypes(g)
	}
	return &Grouping{byType: byType, groups: groups}
}

func singleGroup(candidates []*ident.Type) *Grouping {
	byType := make(map[*ident.Type]int, len(candidates))
	all := make([]*ident.Type, 0, len(candidates))
	for _, t := range candidates {
		if _, ok := byType[t]; ok {
			continue
		}
		byType[t] = 0
		all = append(all, t)
	}
	sortTypes(all)
	return &Grouping{byType: byType, groups: [][]*ident.Type{all}}
}

func sortTypes(ts []*ident.Type) {
	sort.Slice(ts, func(i, j int) bool { return ts[i].String() < ts[j].String() })
}

func observeCode(code *ir.IRCode, inferring InferringMode, seen map[*ident.Type]bool) {
	if inferring != InferHotBlocks {
		code.WalkInsns(func(insn *ir.IRInstruction) {
			if t := loadedType(insn); t != nil {
				seen[t] = true
			}
		})
		return
	}
	if code.CFGBuilt() {
		for _, b := range code.CFG().Blocks() {
			if !b.Hot() {
				continue
			}
			for _, insn := range b.Insns() {
				if t := loadedType(insn); t != nil {
					seen[t] = true
				}
			}
		}
		return
	}
	/* flat form: the most recent source block governs hotness, and code
	 * before the first one has no profile, so it cannot count as hot. */
	hot := false
	code.WalkItems(func(it ir.MethodItem) {
		switch v := it.(type) {
		case *ir.SourceBlock:
			hot = v.Hot()
		case *ir.IRInstruction:
			if !hot {
				return
			}
			if t := loadedType(v); t != nil {
				seen[t] = true
			}
		}
	})
}

/* loadedType returns the class an instruction makes the runtime load, or
 * nil when executing it cannot trigger a class load. */
func loadedType(insn *ir.IRInstruction) *ident.Type {
	switch insn.Op() {
	case ir.OpNewInstance, ir.OpConstClass, ir.OpInitClass:
		return insn.TypeRef()
	case ir.OpInvokeStatic:
		return insn.MethodRef().Class()
	case ir.OpSget, ir.OpSgetWide, ir.OpSgetObject,
		ir.OpSput, ir.OpSputWide, ir.OpSputObject:
		return insn.FieldRef().Class()
	}
	return nil
}

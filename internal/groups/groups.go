// Copyright (C) 2026 parabench contributors.
// All rights reserved. This file is part of parabench.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package groups resolves the static group definitions collected by the
// (external) parser into concrete blocks scoped to a communicator, and
// tracks the stack of currently-active communicators within `group { ... }`
// scopes.
package groups

import (
	"fmt"
	"sort"

	"github.com/ClusterCockpit/parabench/internal/ast"
	"github.com/ClusterCockpit/parabench/internal/fabric"
)

// Tag orders group definitions for resolution: SINGLE < DISJOINT < NONE.
type Tag int

const (
	Single Tag = iota
	Disjoint
	None
)

func parseTag(s string) (Tag, error) {
	switch s {
	case "single":
		return Single, nil
	case "disjoint":
		return Disjoint, nil
	case "none":
		return None, nil
	default:
		return 0, fmt.Errorf("unknown group tag %q", s)
	}
}

// Definition is the parser-produced group definition (input only).
type Definition struct {
	Name   string
	Tag    Tag
	Subtag int
}

// Block is the resolved form of a group, looked up by name while the
// interpreter runs.
type Block struct {
	Name   string
	Member bool
	Size   int
	Comm   fabric.Communicator
}

// FromAST converts the parser's raw definitions, applying CLI `-g
// NAME[:SIZE]` overrides (sizeOverrides) over the parser-declared size,
// which defaults to 0.
func FromAST(defs []ast.GroupDef, sizeOverrides map[string]int) ([]Definition, map[string]int, error) {
	out := make([]Definition, 0, len(defs))
	sizes := make(map[string]int, len(defs))
	for _, d := range defs {
		tag, err := parseTag(d.Tag)
		if err != nil {
			return nil, nil, fmt.Errorf("group %q: %w", d.Name, err)
		}
		out = append(out, Definition{Name: d.Name, Tag: tag, Subtag: d.Subtag})
		size := d.Size
		// a `-g NAME` flag with no `:SIZE` suffix arrives as -1: the name
		// was given but no size, so the parser-declared size stands.
		if override, ok := sizeOverrides[d.Name]; ok && override >= 0 {
			size = override
		}
		sizes[d.Name] = size
	}
	return out, sizes, nil
}

// Resolve packs group definitions into contiguous rank ranges using a
// sliding lower_bound/min_rank window: SINGLE groups stack back-to-back
// and advance min_rank; a DISJOINT group restarts from min_rank when its
// subtag differs from the previous group's and otherwise continues right
// after the previous group; NONE groups always restart from min_rank.
// worldSize is the total process count; fab creates the communicators.
func Resolve(defs []Definition, sizes map[string]int, worldSize int, fab fabric.Fabric, warn func(string)) (map[string]*Block, error) {
	sorted := make([]Definition, len(defs))
	copy(sorted, defs)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Tag != sorted[j].Tag {
			return sorted[i].Tag < sorted[j].Tag
		}
		return sorted[i].Subtag < sorted[j].Subtag
	})

	blocks := make(map[string]*Block, len(sorted)+1)

	world, err := fab.NewCommunicator(allRanks(worldSize))
	if err != nil {
		return nil, err
	}
	blocks["world"] = &Block{Name: "world", Member: true, Size: worldSize, Comm: world}

	lowerBound := 0
	minRank := 0
	haveLastSubtag := false
	lastSubtag := 0

	rank := fab.Rank()

	for _, d := range sorted {
		size := sizes[d.Name]

		switch d.Tag {
		case Single:
			// packs from rank 0 upward; lower_bound/min_rank both advance.
		case Disjoint:
			if !haveLastSubtag || lastSubtag != d.Subtag {
				lowerBound = minRank
			}
		case None:
			lowerBound = minRank
		}

		start := lowerBound
		end := start + size

		if start >= worldSize {
			if warn != nil {
				warn(fmt.Sprintf("group %q: starting point %d is past world size %d, skipped", d.Name, start, worldSize))
			}
			blocks[d.Name] = &Block{Name: d.Name, Member: false, Size: 0, Comm: fabric.Communicator{}}
			continue
		}
		if end > worldSize {
			if warn != nil {
				warn(fmt.Sprintf("group %q: mapping %d..%d truncated to world size %d", d.Name, start, end, worldSize))
			}
			end = worldSize
		}

		members := make([]int, 0, end-start)
		for r := start; r < end; r++ {
			members = append(members, r)
		}

		member := rank >= start && rank < end
		var comm fabric.Communicator
		if member {
			comm, err = fab.NewCommunicator(members)
			if err != nil {
				return nil, err
			}
		} else {
			comm = fabric.SelfCommunicator(rank)
		}

		blocks[d.Name] = &Block{Name: d.Name, Member: member, Size: len(members), Comm: comm}

		if d.Tag == Single {
			lowerBound += size
			minRank += size
		} else {
			lowerBound = end
		}

		haveLastSubtag = true
		lastSubtag = d.Subtag
	}

	return blocks, nil
}

func allRanks(n int) []int {
	r := make([]int, n)
	for i := range r {
		r[i] = i
	}
	return r
}

// Stack tracks the currently-active communicator within nested `group { }`
// scopes. An empty stack means the active communicator is world.
type Stack struct {
	frames []fabric.Communicator
	world  fabric.Communicator
}

func NewStack(world fabric.Communicator) *Stack {
	return &Stack{world: world}
}

func (s *Stack) Push(c fabric.Communicator) { s.frames = append(s.frames, c) }

func (s *Stack) Pop() {
	s.frames = s.frames[:len(s.frames)-1]
}

// Active returns the communicator `master`/`barrier`/collective I/O should
// use: the top of the stack, or world if empty.
func (s *Stack) Active() fabric.Communicator {
	if len(s.frames) == 0 {
		return s.world
	}
	return s.frames[len(s.frames)-1]
}

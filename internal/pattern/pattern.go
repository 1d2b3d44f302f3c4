// Copyright (C) 2026 parabench contributors.
// All rights reserved. This file is part of parabench.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package pattern implements named access-pattern descriptors for
// collective I/O: contiguous or strided, with an iteration count, element
// size, and a level (0..3) selecting the Rothberg-Nitzberg I/O variant
// that pfread/pfwrite/pread/pwrite dispatch to.
package pattern

import "fmt"

// Type is the pattern's declared shape (P0..P3). It is carried in the
// Descriptor; whether an access is contiguous or strided, collective or
// not, is decided by the Level alone.
type Type int

const (
	P0 Type = iota
	P1
	P2
	P3
)

func (t Type) String() string {
	switch t {
	case P0:
		return "P0"
	case P1:
		return "P1"
	case P2:
		return "P2"
	case P3:
		return "P3"
	default:
		return "unknown"
	}
}

func parseType(s string) (Type, error) {
	switch s {
	case "p0":
		return P0, nil
	case "p1":
		return P1, nil
	case "p2":
		return P2, nil
	case "p3":
		return P3, nil
	default:
		return 0, fmt.Errorf("unknown pattern type %q", s)
	}
}

// Level selects which of the four pfread/pfwrite/pread/pwrite variants a
// pattern dispatches to.
type Level int

const (
	LevelNonCollectiveContiguous Level = iota
	LevelCollectiveContiguous
	LevelNonCollectiveStrided
	LevelCollectiveStrided
)

func (l Level) Collective() bool {
	return l == LevelCollectiveContiguous || l == LevelCollectiveStrided
}

func (l Level) Strided() bool {
	return l == LevelNonCollectiveStrided || l == LevelCollectiveStrided
}

func ParseLevel(n int) (Level, error) {
	if n < 0 || n > 3 {
		return 0, fmt.Errorf("pattern level %d out of range [0,3]", n)
	}
	return Level(n), nil
}

// Datatype describes the strided subarray view a rank uses for
// non-contiguous access, built by Build from the group size and the
// caller's rank within that group.
type Datatype struct {
	GroupSize int
	GroupRank int
	ElemBytes int64
	Count     int64
	// Stride is the byte distance between successive elements belonging
	// to this rank in a round-robin decomposition across GroupSize ranks.
	Stride int64
}

// Offset returns the byte offset of the i'th element (0-indexed) this
// rank owns under the strided decomposition.
func (d Datatype) Offset(i int64) int64 {
	return int64(d.GroupRank)*d.ElemBytes + i*d.Stride
}

// Descriptor is the resolved form of a named pattern.
type Descriptor struct {
	Name       string
	Type       Type
	Iterations int64
	ElemBytes  int64
	Level      Level
	Datatype   Datatype
}

// TotalBytes is the iter*elem*1 buffer size the spec's strided/contiguous
// dispatch uses uniformly for level 0..3.
func (d Descriptor) TotalBytes() int64 {
	return d.Iterations * d.ElemBytes
}

// Map is the name -> Descriptor table Build returns. A pattern's datatype
// depends on the group size and this rank's position within it, so a Map
// is only valid for the communicator it was built against.
type Map map[string]Descriptor

// Build resolves every raw pattern definition against one communicator:
// groupSize is its size and groupRank this rank's position in it, and
// every Descriptor's Datatype is built from those two values. The
// interpreter calls it at each dispatch with the active communicator.
func Build(defs []RawDef, groupSize, groupRank int) (Map, error) {
	m := make(Map, len(defs))
	for _, d := range defs {
		typ, err := parseType(d.Type)
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %w", d.Name, err)
		}
		level, err := ParseLevel(d.Level)
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %w", d.Name, err)
		}
		m[d.Name] = Descriptor{
			Name:       d.Name,
			Type:       typ,
			Iterations: d.Iterations,
			ElemBytes:  d.ElementBytes,
			Level:      level,
			Datatype: Datatype{
				GroupSize: groupSize,
				GroupRank: groupRank,
				ElemBytes: d.ElementBytes,
				Count:     d.Iterations,
				Stride:    int64(groupSize) * d.ElementBytes,
			},
		}
	}
	return m, nil
}

// RawDef mirrors ast.PatternDef without internal/pattern depending on
// internal/ast, keeping the conversion explicit at the call site
// (internal/interp).
type RawDef struct {
	Name         string
	Type         string
	Iterations   int64
	ElementBytes int64
	Level        int
}

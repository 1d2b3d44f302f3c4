// Copyright (C) 2026 parabench contributors.
// All rights reserved. This file is part of parabench.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ast

import (
	"encoding/json"
	"fmt"
)

// rawExpr/rawNode mirror the wire JSON format documented by
// schemas/program.schema.json.
type rawExpr struct {
	Kind  string          `json:"kind"`
	Op    string          `json:"op,omitempty"`
	Value json.RawMessage `json:"value,omitempty"`
	Name  string          `json:"name,omitempty"`
	Left  *rawExpr        `json:"left,omitempty"`
	Right *rawExpr        `json:"right,omitempty"`
}

type rawNode struct {
	Kind     string    `json:"kind"`
	Label    string    `json:"label,omitempty"`
	Line     int       `json:"line,omitempty"`
	Params   []rawExpr `json:"params,omitempty"`
	Children []rawNode `json:"children,omitempty"`
}

// GroupDef is the parser-produced group definition input to group
// resolution. Kept here rather than in internal/groups so decoding the
// document stays dependency-free; see internal/groups.FromAST for the
// conversion.
type GroupDef struct {
	Name   string `json:"name"`
	Tag    string `json:"tag"` // "single" | "disjoint" | "none"
	Subtag int    `json:"subtag"`
	Size   int    `json:"size"`
}

// PatternDef is the parser-produced named access-pattern descriptor input
// that drives collective I/O dispatch.
type PatternDef struct {
	Name         string `json:"name"`
	Type         string `json:"type"` // "p0".."p3"
	Iterations   int64  `json:"iterations"`
	ElementBytes int64  `json:"elementBytes"`
	Level        int    `json:"level"`
}

// Document is the fully decoded top-level PPL-AST document: the statement
// tree plus the group and pattern definitions collected by the (external)
// parser.
type Document struct {
	Tree     *Tree
	Groups   []GroupDef
	Patterns []PatternDef
}

type rawDocument struct {
	Groups   []GroupDef   `json:"groups,omitempty"`
	Patterns []PatternDef `json:"patterns,omitempty"`
	Program  rawNode      `json:"program"`
}

var opNames = map[string]Op{
	"+": Add, "-": Sub, "*": Mul, "/": Div, "^": Pow, "!": Fac, "%": Mod,
	"&": BAnd, "|": BOr, "==": Eq, "<": Lt, "<=": Leq, ">": Gt, ">=": Geq,
}

var stmtNames = func() map[string]Kind {
	m := make(map[string]Kind, len(kindNames))
	for k, v := range kindNames {
		m[v] = k
	}
	return m
}()

func (r *rawExpr) build() (*Expr, error) {
	if r == nil {
		return nil, nil
	}
	switch r.Kind {
	case "constint":
		var v int64
		if err := json.Unmarshal(r.Value, &v); err != nil {
			return nil, fmt.Errorf("constint: %w", err)
		}
		return NewConstInt(v), nil
	case "conststring":
		var v string
		if err := json.Unmarshal(r.Value, &v); err != nil {
			return nil, fmt.Errorf("conststring: %w", err)
		}
		return NewConstString(v), nil
	case "variable":
		if r.Name == "" {
			return nil, fmt.Errorf("variable expression missing name")
		}
		return NewVariable(r.Name), nil
	case "unaryint":
		op, ok := opNames[r.Op]
		if !ok {
			return nil, fmt.Errorf("unaryint: unknown operator %q", r.Op)
		}
		var v int64
		if err := json.Unmarshal(r.Value, &v); err != nil {
			return nil, fmt.Errorf("unaryint: %w", err)
		}
		return NewUnaryInt(op, v), nil
	case "richint", "richstring":
		op, ok := opNames[r.Op]
		if !ok {
			return nil, fmt.Errorf("%s: unknown operator %q", r.Kind, r.Op)
		}
		l, err := r.Left.build()
		if err != nil {
			return nil, err
		}
		rr, err := r.Right.build()
		if err != nil {
			return nil, err
		}
		if r.Kind == "richint" {
			return NewRichInt(op, l, rr), nil
		}
		return NewRichString(op, l, rr), nil
	default:
		return nil, fmt.Errorf("unknown expression kind %q", r.Kind)
	}
}

// flatten reserves n's slot first so the root of the whole document always
// lands at index 0, then fills in descendants depth-first, recording each
// child's index in n's slot once known.
func flatten(n rawNode, nodes *[]Node) (int, error) {
	kind, ok := stmtNames[n.Kind]
	if !ok {
		return 0, fmt.Errorf("unknown statement kind %q", n.Kind)
	}

	idx := len(*nodes)
	*nodes = append(*nodes, Node{Kind: kind, Label: n.Label, Line: n.Line})

	params := make([]*Expr, 0, len(n.Params))
	for i := range n.Params {
		e, err := n.Params[i].build()
		if err != nil {
			return 0, fmt.Errorf("line %d (%s) param %d: %w", n.Line, n.Kind, i, err)
		}
		params = append(params, e)
	}

	childIdx := make([]int, 0, len(n.Children))
	for _, c := range n.Children {
		ci, err := flatten(c, nodes)
		if err != nil {
			return 0, err
		}
		childIdx = append(childIdx, ci)
	}

	(*nodes)[idx].Params = params
	(*nodes)[idx].Children = childIdx
	return idx, nil
}

// Decode validates raw PPL-AST JSON against the embedded schema and builds
// the arena-indexed Tree, plus the group and pattern definition lists.
func Decode(raw []byte) (*Document, error) {
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("decode AST json: %w", err)
	}
	if err := Validate(generic); err != nil {
		return nil, err
	}

	var doc rawDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode AST json: %w", err)
	}

	nodes := make([]Node, 0, 64)
	idx, err := flatten(doc.Program, &nodes)
	if err != nil {
		return nil, err
	}
	return &Document{
		Tree:     &Tree{Nodes: nodes, Root: idx},
		Groups:   doc.Groups,
		Patterns: doc.Patterns,
	}, nil
}

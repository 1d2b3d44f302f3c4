// Copyright (C) 2026 parabench contributors.
// All rights reserved. This file is part of parabench.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package value implements the tagged variable values of the PPL engine:
// a process-local store mapping names to Int, String or Handle payloads.
package value

import "fmt"

// Tag identifies which payload of a Value is populated.
type Tag int

const (
	Int Tag = iota
	String
	Handle
	// Bool is reserved: the evaluator's comparison path never produces it
	// (see expr.EvalBool), but the tag exists because the source format does.
	Bool
)

func (t Tag) String() string {
	switch t {
	case Int:
		return "int"
	case String:
		return "string"
	case Handle:
		return "handle"
	case Bool:
		return "bool"
	default:
		return "unknown"
	}
}

// HandleID is an opaque reference to an open file handle, owned by the
// interpreter's handle table (internal/interp).
type HandleID uint64

// Value is the sum type Int | String | Handle. Only one payload field is
// meaningful, selected by Tag.
type Value struct {
	Tag    Tag
	Int    int64
	Str    string
	Handle HandleID
}

func NewInt(i int64) Value       { return Value{Tag: Int, Int: i} }
func NewString(s string) Value   { return Value{Tag: String, Str: s} }
func NewHandle(h HandleID) Value { return Value{Tag: Handle, Handle: h} }

func (v Value) String() string {
	switch v.Tag {
	case Int:
		return fmt.Sprintf("%d", v.Int)
	case String:
		return v.Str
	case Handle:
		return fmt.Sprintf("<handle %d>", v.Handle)
	default:
		return "<bool>"
	}
}

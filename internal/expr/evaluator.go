// Copyright (C) 2026 parabench contributors.
// All rights reserved. This file is part of parabench.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package expr

import (
	"strconv"
	"strings"

	"github.com/ClusterCockpit/parabench/internal/ast"
	"github.com/ClusterCockpit/parabench/internal/value"
)

// Evaluator is a pure tree walker over ast.Expr nodes. It depends only on
// the variable store and an Env for the dynamic sources
// ($rank/$rand/$crand/$env) — it never mutates interpreter state.
type Evaluator struct {
	store *value.Store
	env   Env
}

func New(store *value.Store, env Env) *Evaluator {
	return &Evaluator{store: store, env: env}
}

// EvalInt evaluates e as an integer, applying the string->int coercion
// quirk where parse failure yields 0 with status Ok.
func (ev *Evaluator) EvalInt(e *ast.Expr) (int64, Status) {
	if e == nil {
		return 0, InvalidExpression
	}

	switch e.Kind {
	case ast.ConstInt:
		return e.IntVal, Ok

	case ast.ConstString:
		return parseLeadingInt(e.StrVal), Ok

	case ast.Variable:
		return ev.lookupInt(e.VarName)

	case ast.UnaryInt:
		return applyUnary(e.Op, e.IntVal)

	case ast.RichInt:
		l, st := ev.EvalInt(e.Left)
		if st != Ok {
			return 0, st
		}
		r, st := ev.EvalInt(e.Right)
		if st != Ok {
			return 0, st
		}
		return applyBinary(e.Op, l, r)

	case ast.RichString:
		// Reserved: no operator populates this for int context.
		return 0, InvalidOperator

	default:
		return 0, InvalidExpression
	}
}

func (ev *Evaluator) lookupInt(name string) (int64, Status) {
	if v, ok := ev.store.Lookup(name); ok {
		switch v.Tag {
		case value.Int:
			return v.Int, Ok
		case value.String:
			return parseLeadingInt(v.Str), Ok
		default:
			return 0, InvalidVariable
		}
	}
	if iv, ok, st := ev.internalInt(name); ok {
		return iv, st
	}
	return 0, InvalidVariable
}

// internalInt recognizes $rank/$rand/$crand by substring containment on
// names beginning with '$', so e.g. `$foorank` matches `rank`. This is a
// deliberately preserved quirk, not a bug; see DESIGN.md before tightening
// it. crand is checked before rand since "crand" contains "rand" as a
// substring.
func (ev *Evaluator) internalInt(name string) (int64, bool, Status) {
	if len(name) == 0 || name[0] != '$' {
		return 0, false, Ok
	}
	switch {
	case strings.Contains(name, "rank"):
		return int64(ev.env.Rank()), true, Ok
	case strings.Contains(name, "crand"):
		v, err := ev.env.CRand()
		if err != nil {
			return 0, true, EvalFailed
		}
		return int64(v), true, Ok
	case strings.Contains(name, "rand"):
		return int64(ev.env.Rand()), true, Ok
	default:
		return 0, true, InvalidVariable
	}
}

// EvalString evaluates e as a string; integer results are decimal
// formatted.
func (ev *Evaluator) EvalString(e *ast.Expr) (string, Status) {
	if e == nil {
		return "", InvalidExpression
	}

	switch e.Kind {
	case ast.ConstString:
		return e.StrVal, Ok

	case ast.ConstInt:
		return strconv.FormatInt(e.IntVal, 10), Ok

	case ast.Variable:
		return ev.lookupString(e.VarName)

	case ast.UnaryInt:
		v, st := applyUnary(e.Op, e.IntVal)
		if st != Ok {
			return "", st
		}
		return strconv.FormatInt(v, 10), Ok

	case ast.RichInt:
		v, st := ev.EvalInt(e)
		if st != Ok {
			return "", st
		}
		return strconv.FormatInt(v, 10), Ok

	case ast.RichString:
		// Reserved: no string operator is wired.
		return "", InvalidOperator

	default:
		return "", InvalidExpression
	}
}

func (ev *Evaluator) lookupString(name string) (string, Status) {
	if v, ok := ev.store.Lookup(name); ok {
		switch v.Tag {
		case value.String:
			return v.Str, Ok
		case value.Int:
			return strconv.FormatInt(v.Int, 10), Ok
		default:
			return "", InvalidVariable
		}
	}
	if iv, ok, st := ev.internalInt(name); ok {
		if st != Ok {
			return "", st
		}
		return strconv.FormatInt(iv, 10), Ok
	}
	return "", InvalidVariable
}

// EvalHandle evaluates e as a file-handle-tagged variable reference.
func (ev *Evaluator) EvalHandle(e *ast.Expr) (value.HandleID, Status) {
	if e == nil || e.Kind != ast.Variable {
		return 0, InvalidExpression
	}
	v, ok := ev.store.Lookup(e.VarName)
	if !ok || v.Tag != value.Handle {
		return 0, InvalidVariable
	}
	return v.Handle, Ok
}

// EvalBool is declared for completeness but never wired to an operator —
// it always fails.
func (ev *Evaluator) EvalBool(e *ast.Expr) (bool, Status) {
	return false, EvalFailed
}

// parseLeadingInt parses in base 10 with leading whitespace allowed and
// trailing garbage ignored; failure yields 0 with status Ok rather than an
// error.
func parseLeadingInt(s string) int64 {
	s = strings.TrimLeft(s, " \t\n\r")
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	start := i
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == start {
		return 0
	}
	n, err := strconv.ParseInt(s[:i], 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func applyUnary(op ast.Op, v int64) (int64, Status) {
	switch op {
	case ast.Fac:
		if v < 0 {
			return 0, Ok
		}
		var result int64 = 1
		for i := int64(2); i <= v; i++ {
			result *= i
		}
		return result, Ok
	default:
		return 0, InvalidOperator
	}
}

func applyBinary(op ast.Op, l, r int64) (int64, Status) {
	switch op {
	case ast.Add:
		return l + r, Ok
	case ast.Sub:
		return l - r, Ok
	case ast.Mul:
		return l * r, Ok
	case ast.Div:
		if r == 0 {
			return 0, DivisionByZero
		}
		return l / r, Ok
	case ast.Mod:
		if r == 0 {
			return 0, DivisionByZero
		}
		return l % r, Ok
	case ast.Pow:
		if r < 0 {
			return 0, Ok
		}
		var result int64 = 1
		base := l
		for exp := r; exp > 0; exp-- {
			result *= base
		}
		return result, Ok
	case ast.BAnd:
		return l & r, Ok
	case ast.BOr:
		return l | r, Ok
	default:
		return 0, InvalidOperator
	}
}

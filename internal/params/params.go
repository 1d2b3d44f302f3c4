// Copyright (C) 2026 parabench contributors.
// All rights reserved. This file is part of parabench.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package params implements the index-addressed parameter-list accessors
// statement nodes carry, wrapping the expression evaluator with bounds
// checking and optional defaults.
package params

import (
	"github.com/ClusterCockpit/parabench/internal/ast"
	"github.com/ClusterCockpit/parabench/internal/expr"
	"github.com/ClusterCockpit/parabench/internal/value"
)

// List is the immutable, ordered sequence of expression roots attached to
// a statement node.
type List struct {
	exprs []*ast.Expr
	ev    *expr.Evaluator
}

func New(ev *expr.Evaluator, exprs []*ast.Expr) *List {
	return &List{exprs: exprs, ev: ev}
}

func (l *List) Len() int { return len(l.exprs) }

// Raw returns the unevaluated expression at i, or nil if out of range.
func (l *List) Raw(i int) *ast.Expr {
	if i < 0 || i >= len(l.exprs) {
		return nil
	}
	return l.exprs[i]
}

func (l *List) Int(i int) (int64, expr.Status) {
	if i >= len(l.exprs) {
		return 0, expr.InvalidExpression
	}
	return l.ev.EvalInt(l.exprs[i])
}

func (l *List) IntOr(i int, def int64) (int64, expr.Status) {
	if i >= len(l.exprs) {
		return def, expr.Ok
	}
	return l.ev.EvalInt(l.exprs[i])
}

func (l *List) String(i int) (string, expr.Status) {
	if i >= len(l.exprs) {
		return "", expr.InvalidExpression
	}
	return l.ev.EvalString(l.exprs[i])
}

func (l *List) StringOr(i int, def string) (string, expr.Status) {
	if i >= len(l.exprs) {
		return def, expr.Ok
	}
	return l.ev.EvalString(l.exprs[i])
}

func (l *List) Handle(i int) (value.HandleID, expr.Status) {
	if i >= len(l.exprs) {
		return 0, expr.InvalidExpression
	}
	return l.ev.EvalHandle(l.exprs[i])
}

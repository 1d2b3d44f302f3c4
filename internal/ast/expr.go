// Copyright (C) 2026 parabench contributors.
// All rights reserved. This file is part of parabench.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package ast holds the parsed representation of a PPL program: expression
// trees and the statement tree they are attached to. Parabench never parses
// PPL source itself — the grammar, lexer and parser live outside this
// module — it accepts an already-produced AST, encoded as JSON, and
// decodes+validates it here.
package ast

// Op is the expression operator code.
type Op int

const (
	NOP Op = iota
	Add
	Sub
	Mul
	Div
	Pow
	Fac // unary
	Mod
	BAnd
	BOr
	// Comparison operators are part of the wire format but are never wired
	// into EvalInt/EvalString; see internal/expr.EvalBool.
	Eq
	Lt
	Leq
	Gt
	Geq
)

// ExprKind selects which fields of Expr are meaningful.
type ExprKind int

const (
	ConstInt ExprKind = iota
	ConstString
	Variable
	UnaryInt
	RichInt
	RichString
)

// Expr is one node of an expression tree, exclusively owned by the
// params.List that holds it as a root. There is no parent pointer; trees
// are torn down by the garbage collector once their owning List is dropped.
type Expr struct {
	Kind ExprKind

	IntVal int64
	StrVal string

	VarName string

	Op    Op
	Left  *Expr
	Right *Expr
}

func NewConstInt(v int64) *Expr       { return &Expr{Kind: ConstInt, IntVal: v} }
func NewConstString(v string) *Expr   { return &Expr{Kind: ConstString, StrVal: v} }
func NewVariable(name string) *Expr   { return &Expr{Kind: Variable, VarName: name} }
func NewUnaryInt(op Op, v int64) *Expr { return &Expr{Kind: UnaryInt, Op: op, IntVal: v} }
func NewRichInt(op Op, l, r *Expr) *Expr {
	return &Expr{Kind: RichInt, Op: op, Left: l, Right: r}
}
func NewRichString(op Op, l, r *Expr) *Expr {
	return &Expr{Kind: RichString, Op: op, Left: l, Right: r}
}

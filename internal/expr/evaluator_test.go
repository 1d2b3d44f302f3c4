// Copyright (C) 2026 parabench contributors.
// All rights reserved. This file is part of parabench.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package expr

import (
	"errors"
	"testing"

	"github.com/ClusterCockpit/parabench/internal/ast"
	"github.com/ClusterCockpit/parabench/internal/value"
)

// fakeEnv is a deterministic stand-in for internal/interp's rank/random
// sources, so evaluator tests never depend on the interpreter package.
type fakeEnv struct {
	rank     int
	rand     uint32
	crand    uint32
	crandErr error
	environ  map[string]string
}

func (e *fakeEnv) Rank() int    { return e.rank }
func (e *fakeEnv) Rand() uint32 { return e.rand }
func (e *fakeEnv) CRand() (uint32, error) {
	if e.crandErr != nil {
		return 0, e.crandErr
	}
	return e.crand, nil
}
func (e *fakeEnv) Getenv(name string) (string, bool) {
	v, ok := e.environ[name]
	return v, ok
}

func newEval(t *testing.T) (*Evaluator, *value.Store, *fakeEnv) {
	t.Helper()
	store := value.NewStore()
	env := &fakeEnv{rank: 3, rand: 99, crand: 7, environ: map[string]string{"HOME": "/root"}}
	return New(store, env), store, env
}

func TestEvalIntArithmetic(t *testing.T) {
	cases := []struct {
		name string
		e    *ast.Expr
		want int64
	}{
		{"add", ast.NewRichInt(ast.Add, ast.NewConstInt(2), ast.NewConstInt(3)), 5},
		{"sub", ast.NewRichInt(ast.Sub, ast.NewConstInt(5), ast.NewConstInt(3)), 2},
		{"mul", ast.NewRichInt(ast.Mul, ast.NewConstInt(4), ast.NewConstInt(3)), 12},
		{"pow", ast.NewRichInt(ast.Pow, ast.NewConstInt(2), ast.NewConstInt(10)), 1024},
		{"band", ast.NewRichInt(ast.BAnd, ast.NewConstInt(6), ast.NewConstInt(3)), 2},
		{"bor", ast.NewRichInt(ast.BOr, ast.NewConstInt(6), ast.NewConstInt(1)), 7},
		{"fac", ast.NewUnaryInt(ast.Fac, 5), 120},
	}
	ev, _, _ := newEval(t)
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, st := ev.EvalInt(c.e)
			if st != Ok {
				t.Fatalf("status = %s, want Ok", st)
			}
			if got != c.want {
				t.Fatalf("got %d, want %d", got, c.want)
			}
		})
	}
}

func TestEvalIntDivisionByZero(t *testing.T) {
	ev, _, _ := newEval(t)
	for _, op := range []ast.Op{ast.Div, ast.Mod} {
		_, st := ev.EvalInt(ast.NewRichInt(op, ast.NewConstInt(1), ast.NewConstInt(0)))
		if st != DivisionByZero {
			t.Fatalf("op %v: status = %s, want DivisionByZero", op, st)
		}
	}
}

func TestEvalIntUnknownVariable(t *testing.T) {
	ev, _, _ := newEval(t)
	_, st := ev.EvalInt(ast.NewVariable("nope"))
	if st != InvalidVariable {
		t.Fatalf("status = %s, want InvalidVariable", st)
	}
}

func TestEvalIntUnknownOperator(t *testing.T) {
	ev, _, _ := newEval(t)
	_, st := ev.EvalInt(ast.NewRichInt(ast.Eq, ast.NewConstInt(1), ast.NewConstInt(1)))
	if st != InvalidOperator {
		t.Fatalf("status = %s, want InvalidOperator", st)
	}
}

func TestEvalIntInternalVariableSubstringMatch(t *testing.T) {
	ev, _, env := newEval(t)

	// $rank matches directly.
	got, st := ev.EvalInt(ast.NewVariable("$rank"))
	if st != Ok || got != int64(env.rank) {
		t.Fatalf("$rank: got %d/%s, want %d/Ok", got, st, env.rank)
	}

	// $foorank matches on substring containment, a deliberately preserved quirk.
	got, st = ev.EvalInt(ast.NewVariable("$foorank"))
	if st != Ok || got != int64(env.rank) {
		t.Fatalf("$foorank: got %d/%s, want %d/Ok", got, st, env.rank)
	}

	// crand is checked before rand so it isn't shadowed by the "rand" substring.
	got, st = ev.EvalInt(ast.NewVariable("$crand"))
	if st != Ok || got != int64(env.crand) {
		t.Fatalf("$crand: got %d/%s, want %d/Ok", got, st, env.crand)
	}

	got, st = ev.EvalInt(ast.NewVariable("$rand"))
	if st != Ok || got != int64(env.rand) {
		t.Fatalf("$rand: got %d/%s, want %d/Ok", got, st, env.rand)
	}
}

func TestEvalIntCRandFailure(t *testing.T) {
	store := value.NewStore()
	env := &fakeEnv{crandErr: errors.New("no communicator")}
	ev := New(store, env)

	_, st := ev.EvalInt(ast.NewVariable("$crand"))
	if st != EvalFailed {
		t.Fatalf("status = %s, want EvalFailed", st)
	}
}

func TestEvalIntStringCoercion(t *testing.T) {
	ev, store, _ := newEval(t)
	store.Set("n", value.NewString("  42 trailing garbage"))

	got, st := ev.EvalInt(ast.NewVariable("n"))
	if st != Ok || got != 42 {
		t.Fatalf("got %d/%s, want 42/Ok", got, st)
	}

	store.Set("junk", value.NewString("not a number"))
	got, st = ev.EvalInt(ast.NewVariable("junk"))
	if st != Ok || got != 0 {
		t.Fatalf("got %d/%s, want 0/Ok (parse failure yields 0, not an error)", got, st)
	}
}

func TestEvalStringFormatsInt(t *testing.T) {
	ev, _, _ := newEval(t)
	got, st := ev.EvalString(ast.NewConstInt(123))
	if st != Ok || got != "123" {
		t.Fatalf("got %q/%s, want 123/Ok", got, st)
	}
}

func TestEvalHandle(t *testing.T) {
	ev, store, _ := newEval(t)
	store.Set("fh", value.NewHandle(5))

	h, st := ev.EvalHandle(ast.NewVariable("fh"))
	if st != Ok || h != 5 {
		t.Fatalf("got %d/%s, want 5/Ok", h, st)
	}

	store.Set("notAHandle", value.NewInt(1))
	_, st = ev.EvalHandle(ast.NewVariable("notAHandle"))
	if st != InvalidVariable {
		t.Fatalf("status = %s, want InvalidVariable", st)
	}
}

func TestEvalBoolAlwaysFails(t *testing.T) {
	ev, _, _ := newEval(t)
	ok, st := ev.EvalBool(ast.NewConstInt(1))
	if ok || st != EvalFailed {
		t.Fatalf("got %v/%s, want false/EvalFailed", ok, st)
	}
}

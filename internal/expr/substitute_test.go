// Copyright (C) 2026 parabench contributors.
// All rights reserved. This file is part of parabench.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package expr

import (
	"testing"

	"github.com/ClusterCockpit/parabench/internal/value"
)

func TestSubstitutePlainVariable(t *testing.T) {
	ev, store, _ := newEval(t)
	store.Set("name", value.NewString("world"))

	got, st := ev.Substitute("hello $name!")
	if st != Ok {
		t.Fatalf("status = %s, want Ok", st)
	}
	if got != "hello world!" {
		t.Fatalf("got %q", got)
	}
}

func TestSubstituteInternalVariables(t *testing.T) {
	ev, _, env := newEval(t)

	got, st := ev.Substitute("rank=$$rank")
	if st != Ok || got != "rank=3" {
		t.Fatalf("got %q/%s", got, st)
	}
	_ = env
}

func TestSubstituteEnv(t *testing.T) {
	ev, _, _ := newEval(t)

	got, st := ev.Substitute("home=$$env(HOME)")
	if st != Ok || got != "home=/root" {
		t.Fatalf("got %q/%s", got, st)
	}

	_, st = ev.Substitute("$$env(NOPE_NOT_SET)")
	if st != InvalidVariable {
		t.Fatalf("status = %s, want InvalidVariable", st)
	}
}

func TestSubstituteEscapedDollar(t *testing.T) {
	ev, _, _ := newEval(t)
	got, st := ev.Substitute(`price: \$5`)
	if st != Ok || got != "price: $5" {
		t.Fatalf("got %q/%s", got, st)
	}
}

func TestSubstituteRecursiveExpansion(t *testing.T) {
	ev, store, _ := newEval(t)
	store.Set("inner", value.NewString("$rank-suffix"))
	store.Set("rank", value.NewInt(9))

	got, st := ev.Substitute("$inner")
	if st != Ok {
		t.Fatalf("status = %s, want Ok", st)
	}
	if got != "9-suffix" {
		t.Fatalf("got %q, want 9-suffix (expansion should be re-scanned for further $ refs)", got)
	}
}

func TestSubstituteUnknownVariableIsFatal(t *testing.T) {
	ev, _, _ := newEval(t)
	_, st := ev.Substitute("$doesNotExist")
	if st != InvalidVariable {
		t.Fatalf("status = %s, want InvalidVariable", st)
	}
}

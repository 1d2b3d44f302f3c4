// Copyright (C) 2026 parabench contributors.
// All rights reserved. This file is part of parabench.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package interp

import (
	"fmt"
	"os"

	"github.com/ClusterCockpit/parabench/internal/ast"
	"github.com/ClusterCockpit/parabench/internal/expr"
	"github.com/ClusterCockpit/parabench/internal/value"
)

// applyDefines walks the whole tree for `define(name, default)` statements
// and binds each one in the store before execution starts, per spec.md §4.5
// and §6: the script's own default is lowest priority, a `PARABENCH_<KEY>`
// environment variable overrides it, and a CLI `KEY=VALUE` positional
// argument overrides both. `define` is never executed as part of normal
// tree walking (see execNode's KindDefine case); it is entirely consumed
// here, once, up front.
func (in *Interp) applyDefines(overrides map[string]string) error {
	for i := range in.doc.Tree.Nodes {
		n := &in.doc.Tree.Nodes[i]
		if n.Kind != ast.KindDefine {
			continue
		}
		if err := in.applyOneDefine(n, overrides); err != nil {
			return err
		}
	}
	return nil
}

func (in *Interp) applyOneDefine(n *ast.Node, overrides map[string]string) error {
	pl := in.list(n)
	name, st0 := pl.String(0)
	if err := checkStatus(n, st0); err != nil {
		return err
	}

	if raw, ok := overrides[name]; ok {
		in.store.Set(name, coerceOverride(raw))
		return nil
	}
	if envVal, ok := os.LookupEnv("PARABENCH_" + name); ok {
		in.store.Set(name, coerceOverride(envVal))
		return nil
	}

	if len(n.Params) < 2 {
		return fatalf(n, "define %q: missing default value", name)
	}
	isInt, ok := classifyVarKind(n.Params[1], in.store)
	if !ok {
		return fatalf(n, "define %q: unsupported default expression", name)
	}
	if isInt {
		v, st := pl.Int(1)
		if err := checkStatus(n, st); err != nil {
			return err
		}
		in.store.Set(name, value.NewInt(v))
		return nil
	}
	raw, st := pl.String(1)
	if err := checkStatus(n, st); err != nil {
		return err
	}
	substituted, sst := in.ev.Substitute(raw)
	if sst != expr.Ok {
		return fmt.Errorf("define %q: substituting default: status=%v", name, sst)
	}
	in.store.Set(name, value.NewString(substituted))
	return nil
}

// coerceOverride mirrors the evaluator's string->int coercion quirk: a
// CLI/env override that parses cleanly as a decimal integer is bound as
// Int (so `repeat i COUNT { ... }` keeps working after an override),
// otherwise it is bound as String.
func coerceOverride(raw string) value.Value {
	var n int64
	if _, err := fmt.Sscanf(raw, "%d", &n); err == nil && fmt.Sprintf("%d", n) == raw {
		return value.NewInt(n)
	}
	return value.NewString(raw)
}

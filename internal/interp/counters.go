// Copyright (C) 2026 parabench contributors.
// All rights reserved. This file is part of parabench.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package interp

import "github.com/ClusterCockpit/parabench/internal/ast"

// Counters tallies per-statement-kind success/failure counts. Only the
// POSIX and collective I/O kinds are ever touched; control-flow and timing
// statements either succeed or abort the whole run.
type Counters struct {
	succeed map[ast.Kind]int64
	fail    map[ast.Kind]int64
}

func NewCounters() *Counters {
	return &Counters{succeed: make(map[ast.Kind]int64), fail: make(map[ast.Kind]int64)}
}

func (c *Counters) Succeed(k ast.Kind) { c.succeed[k]++ }
func (c *Counters) Fail(k ast.Kind)    { c.fail[k]++ }

func (c *Counters) Get(k ast.Kind) (succeed, fail int64) {
	return c.succeed[k], c.fail[k]
}

// Kinds returns every kind that recorded at least one outcome, for reporting.
func (c *Counters) Kinds() []ast.Kind {
	seen := make(map[ast.Kind]bool)
	for k := range c.succeed {
		seen[k] = true
	}
	for k := range c.fail {
		seen[k] = true
	}
	out := make([]ast.Kind, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	return out
}

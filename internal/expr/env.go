// Copyright (C) 2026 parabench contributors.
// All rights reserved. This file is part of parabench.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package expr

// Env supplies the dynamic sources the evaluator needs but does not own:
// this rank's ordinal, a fresh per-call random draw, a collective random
// draw broadcast from the active communicator's master, and process
// environment lookups for `$$env(VAR)`.
//
// Env is implemented by internal/interp so the evaluator never imports the
// group stack or the messaging fabric directly.
type Env interface {
	Rank() int
	Rand() uint32
	CRand() (uint32, error)
	Getenv(name string) (string, bool)
}

// Copyright (C) 2026 parabench contributors.
// All rights reserved. This file is part of parabench.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package value

// Store is the process-local variable store. It is strictly single-threaded:
// the interpreter never touches it from more than one goroutine, so no
// locking is required.
type Store struct {
	vars map[string]Value
}

func NewStore() *Store {
	return &Store{vars: make(map[string]Value)}
}

// Lookup returns the value bound to name and whether it exists.
func (s *Store) Lookup(name string) (Value, bool) {
	v, ok := s.vars[name]
	return v, ok
}

// Set replaces any prior entry for name. The previous payload (if any) is
// simply dropped — Go's GC does the releasing that the source's manual
// free() calls had to do explicitly.
func (s *Store) Set(name string, v Value) {
	s.vars[name] = v
}

// Destroy removes name from the store; a no-op if it was never bound.
func (s *Store) Destroy(name string) {
	delete(s.vars, name)
}

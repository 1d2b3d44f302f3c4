// Copyright (C) 2026 parabench contributors.
// All rights reserved. This file is part of parabench.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package interp

import (
	"github.com/ClusterCockpit/parabench/internal/iobackend"
	"github.com/ClusterCockpit/parabench/internal/value"
)

// handleTable maps the value store's opaque HandleID to the backend's own
// Handle, so the interpreter never leaks backend types into value.Value.
type handleTable struct {
	next value.HandleID
	byID map[value.HandleID]iobackend.Handle
}

func newHandleTable() *handleTable {
	return &handleTable{byID: make(map[value.HandleID]iobackend.Handle)}
}

func (t *handleTable) Bind(h iobackend.Handle) value.HandleID {
	t.next++
	id := t.next
	t.byID[id] = h
	return id
}

func (t *handleTable) Get(id value.HandleID) (iobackend.Handle, bool) {
	h, ok := t.byID[id]
	return h, ok
}

func (t *handleTable) Release(id value.HandleID) {
	delete(t.byID, id)
}

// Copyright (C) 2026 parabench contributors.
// All rights reserved. This file is part of parabench.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package interp

import (
	"github.com/ClusterCockpit/parabench/internal/ast"
	"github.com/ClusterCockpit/parabench/internal/fabric"
	"github.com/ClusterCockpit/parabench/internal/pattern"
	"github.com/ClusterCockpit/parabench/internal/value"
)

// resolvePattern rebuilds the named pattern's Descriptor against comm's
// current size/rank: the same pattern dispatched from inside different
// group scopes gets a different Datatype, so it cannot be resolved once up
// front the way groups are.
func (in *Interp) resolvePattern(name string, comm fabric.Communicator) (pattern.Descriptor, bool) {
	raw, ok := in.rawPatterns[name]
	if !ok {
		return pattern.Descriptor{}, false
	}
	m, err := pattern.Build([]pattern.RawDef{raw}, comm.Size(), comm.LocalRank())
	if err != nil {
		return pattern.Descriptor{}, false
	}
	return m[name], true
}

func (in *Interp) execCollective(n *ast.Node) error {
	switch n.Kind {
	case ast.KindPFOpen:
		return in.execPFOpen(n)
	case ast.KindPFClose:
		return in.execPFClose(n)
	case ast.KindPFWrite:
		return in.execPFTransfer(n, true)
	case ast.KindPFRead:
		return in.execPFTransfer(n, false)
	case ast.KindPWrite:
		return in.execPTransfer(n, true)
	case ast.KindPRead:
		return in.execPTransfer(n, false)
	case ast.KindPDelete:
		return in.execPDelete(n)
	default:
		return fatalf(n, "execCollective: unhandled kind")
	}
}

func (in *Interp) execPFOpen(n *ast.Node) error {
	pl := in.list(n)
	fhname, st0 := pl.String(0)
	// mode (param 2) is part of the statement's wire format, but
	// Backend.PFOpen takes no mode, so it is not passed on (Posix.PFOpen
	// always creates or truncates the file). It is still evaluated so a
	// malformed mode parameter aborts the run.
	_, st2 := pl.String(2)
	if err := checkStatus(n, st0, st2); err != nil {
		return err
	}
	path, err := in.substitutedPath(n, 1)
	if err != nil {
		return err
	}

	comm := in.groupStack.Active()
	h, ct, ioErr := in.backend.PFOpen(path, comm)
	in.log.DumpCoreTime(ct)
	if ioErr == nil {
		id := in.handles.Bind(h)
		in.store.Set(fhname, value.NewHandle(id))
		in.cleanup.AddFile(path)
		in.counters.Succeed(ast.KindPFOpen)
	} else {
		in.counters.Fail(ast.KindPFOpen)
	}
	return nil
}

func (in *Interp) execPFClose(n *ast.Node) error {
	pl := in.list(n)
	id, st := pl.Handle(0)
	if err := checkStatus(n, st); err != nil {
		return err
	}

	h, ok := in.handles.Get(id)
	if !ok {
		in.counters.Fail(ast.KindPFClose)
		return nil
	}

	comm := in.groupStack.Active()
	ct, ioErr := in.backend.PFClose(h, comm)
	in.log.DumpCoreTime(ct)
	if ioErr == nil {
		in.handles.Release(id)
		in.store.Destroy(n.Params[0].VarName)
		in.counters.Succeed(ast.KindPFClose)
	} else {
		in.counters.Fail(ast.KindPFClose)
	}
	return nil
}

// execPFTransfer handles pfwrite/pfread: file handle (param 0) plus a
// pattern name (param 1). An unresolvable pattern name is a fatal
// configuration error, not an I/O failure: it means the script names a
// pattern that was never defined, which no retry or backend could fix.
func (in *Interp) execPFTransfer(n *ast.Node, write bool) error {
	pl := in.list(n)
	id, st0 := pl.Handle(0)
	pname, st1 := pl.String(1)
	if err := checkStatus(n, st0, st1); err != nil {
		return err
	}

	h, ok := in.handles.Get(id)
	if !ok {
		return fatalf(n, "file handle not found")
	}

	comm := in.groupStack.Active()
	dt, ok := in.resolvePattern(pname, comm)
	if !ok {
		return fatalf(n, "invalid pattern parameter %q", pname)
	}

	var k ast.Kind
	var ioErr error
	if write {
		k = ast.KindPFWrite
		var ct, err = in.backend.PFWrite(h, dt, comm)
		in.log.DumpCoreTime(ct)
		ioErr = err
	} else {
		k = ast.KindPFRead
		var ct, err = in.backend.PFRead(h, dt, comm)
		in.log.DumpCoreTime(ct)
		ioErr = err
	}
	in.recordOutcome(k, ioErr)
	return nil
}

// execPTransfer handles pwrite/pread: a path (param 0, templated) plus a
// pattern name (param 1); each call opens/creates its own handle, since
// unlike pfwrite/pfread there is no fopen counterpart for these.
func (in *Interp) execPTransfer(n *ast.Node, write bool) error {
	pl := in.list(n)
	pname, st1 := pl.String(1)
	if err := checkStatus(n, st1); err != nil {
		return err
	}
	path, err := in.substitutedPath(n, 0)
	if err != nil {
		return err
	}

	comm := in.groupStack.Active()
	dt, ok := in.resolvePattern(pname, comm)
	if !ok {
		return fatalf(n, "invalid pattern parameter %q", pname)
	}

	var k ast.Kind
	var ioErr error
	if write {
		k = ast.KindPWrite
		var ct, werr = in.backend.PWrite(path, dt, comm)
		in.log.DumpCoreTime(ct)
		ioErr = werr
		if ioErr == nil {
			in.cleanup.AddFile(path)
		}
	} else {
		k = ast.KindPRead
		var ct, rerr = in.backend.PRead(path, dt, comm)
		in.log.DumpCoreTime(ct)
		ioErr = rerr
	}
	in.recordOutcome(k, ioErr)
	return nil
}

func (in *Interp) execPDelete(n *ast.Node) error {
	path, err := in.substitutedPath(n, 0)
	if err != nil {
		return err
	}
	comm := in.groupStack.Active()
	ct, ioErr := in.backend.PDelete(path, comm)
	in.log.DumpCoreTime(ct)
	if ioErr == nil {
		in.cleanup.RemoveFile(path)
	}
	in.recordOutcome(ast.KindPDelete, ioErr)
	return nil
}

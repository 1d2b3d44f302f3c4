// Copyright (C) 2026 parabench contributors.
// All rights reserved. This file is part of parabench.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package interp

import (
	"io"

	"github.com/ClusterCockpit/parabench/internal/ast"
	"github.com/ClusterCockpit/parabench/internal/expr"
	"github.com/ClusterCockpit/parabench/internal/iobackend"
	"github.com/ClusterCockpit/parabench/internal/value"
)

// execPosix dispatches the non-collective file and handle statements. An
// I/O failure only moves a per-kind counter; a malformed parameter or an
// unresolvable handle aborts the run.
func (in *Interp) execPosix(n *ast.Node) error {
	switch n.Kind {
	case ast.KindFCreat:
		return in.execFCreat(n)
	case ast.KindFOpen:
		return in.execFOpen(n)
	case ast.KindFClose:
		return in.execFClose(n)
	case ast.KindFRead:
		return in.execFRead(n)
	case ast.KindFWrite:
		return in.execFWrite(n)
	case ast.KindFSeek:
		return in.execFSeek(n)
	case ast.KindFSync:
		return in.execFSync(n)
	case ast.KindWrite:
		return in.execWrite(n)
	case ast.KindAppend:
		return in.execAppend(n)
	case ast.KindRead:
		return in.execRead(n)
	case ast.KindLookup:
		return in.execLookup(n)
	case ast.KindDelete:
		return in.execDelete(n)
	case ast.KindMkdir:
		return in.execMkdir(n)
	case ast.KindRmdir:
		return in.execRmdir(n)
	case ast.KindCreate:
		return in.execCreate(n)
	case ast.KindStat:
		return in.execStat(n)
	case ast.KindRename:
		return in.execRename(n)
	default:
		return fatalf(n, "execPosix: unhandled kind")
	}
}

// substitutedPath evaluates param i as a string and runs it through
// template substitution, the "fname" the original builds before every
// path-taking statement.
func (in *Interp) substitutedPath(n *ast.Node, i int) (string, error) {
	pl := in.list(n)
	raw, st := pl.String(i)
	if err := checkStatus(n, st); err != nil {
		return "", err
	}
	path, sst := in.ev.Substitute(raw)
	if sst != expr.Ok {
		return "", fatalf(n, "malicious statement parameters (status=%s)", sst)
	}
	return path, nil
}

func (in *Interp) execFCreat(n *ast.Node) error {
	pl := in.list(n)
	fhname, st0 := pl.String(0)
	if err := checkStatus(n, st0); err != nil {
		return err
	}
	path, err := in.substitutedPath(n, 1)
	if err != nil {
		return err
	}

	h, ct, ioErr := in.backend.FCreat(path, 0o666)
	in.log.DumpCoreTime(ct)
	if ioErr == nil {
		id := in.handles.Bind(h)
		in.store.Set(fhname, value.NewHandle(id))
		in.cleanup.AddFile(path)
		in.counters.Succeed(ast.KindFCreat)
	} else {
		in.counters.Fail(ast.KindFCreat)
	}
	return nil
}

func (in *Interp) execFOpen(n *ast.Node) error {
	pl := in.list(n)
	fhname, st0 := pl.String(0)
	flags, st2 := pl.Int(2)
	if err := checkStatus(n, st0, st2); err != nil {
		return err
	}
	path, err := in.substitutedPath(n, 1)
	if err != nil {
		return err
	}

	h, ct, ioErr := in.backend.FOpen(path, int(flags))
	in.log.DumpCoreTime(ct)
	if ioErr == nil {
		id := in.handles.Bind(h)
		in.store.Set(fhname, value.NewHandle(id))
		in.counters.Succeed(ast.KindFOpen)
	} else {
		in.counters.Fail(ast.KindFOpen)
	}
	return nil
}

func (in *Interp) execFClose(n *ast.Node) error {
	pl := in.list(n)
	id, st := pl.Handle(0)
	if err := checkStatus(n, st); err != nil {
		return err
	}
	h, ok := in.handles.Get(id)
	if !ok {
		return fatalf(n, "file handle not found")
	}

	ct, ioErr := in.backend.FClose(h)
	in.log.DumpCoreTime(ct)
	if ioErr == nil {
		in.handles.Release(id)
		in.store.Destroy(n.Params[0].VarName)
		in.counters.Succeed(ast.KindFClose)
	} else {
		in.counters.Fail(ast.KindFClose)
	}
	return nil
}

func (in *Interp) execFRead(n *ast.Node) error {
	pl := in.list(n)
	id, st0 := pl.Handle(0)
	size, st1 := pl.IntOr(1, iobackend.ReadAll)
	offset, st2 := pl.IntOr(2, iobackend.Current)
	if err := checkStatus(n, st0, st1, st2); err != nil {
		return err
	}
	h, ok := in.handles.Get(id)
	if !ok {
		return fatalf(n, "file handle not found")
	}

	ct, ioErr := in.backend.FRead(h, size, offset)
	in.log.DumpCoreTime(ct)
	in.recordOutcome(ast.KindFRead, ioErr)
	return nil
}

func (in *Interp) execFWrite(n *ast.Node) error {
	pl := in.list(n)
	id, st0 := pl.Handle(0)
	size, st1 := pl.Int(1)
	offset, st2 := pl.IntOr(2, iobackend.Current)
	if err := checkStatus(n, st0, st1, st2); err != nil {
		return err
	}
	h, ok := in.handles.Get(id)
	if !ok {
		return fatalf(n, "file handle not found")
	}

	ct, ioErr := in.backend.FWrite(h, size, offset)
	in.log.DumpCoreTime(ct)
	in.recordOutcome(ast.KindFWrite, ioErr)
	return nil
}

func (in *Interp) execFSeek(n *ast.Node) error {
	pl := in.list(n)
	id, st0 := pl.Handle(0)
	offset, st1 := pl.Int(1)
	whence, st2 := pl.IntOr(2, int64(io.SeekStart))
	if err := checkStatus(n, st0, st1, st2); err != nil {
		return err
	}
	h, ok := in.handles.Get(id)
	if !ok {
		return fatalf(n, "file handle not found")
	}

	ct, ioErr := in.backend.FSeek(h, offset, int(whence))
	in.log.DumpCoreTime(ct)
	in.recordOutcome(ast.KindFSeek, ioErr)
	return nil
}

func (in *Interp) execFSync(n *ast.Node) error {
	pl := in.list(n)
	id, st := pl.Handle(0)
	if err := checkStatus(n, st); err != nil {
		return err
	}
	h, ok := in.handles.Get(id)
	if !ok {
		return fatalf(n, "file handle not found")
	}

	ct, ioErr := in.backend.FSync(h)
	in.log.DumpCoreTime(ct)
	in.recordOutcome(ast.KindFSync, ioErr)
	return nil
}

func (in *Interp) execWrite(n *ast.Node) error {
	pl := in.list(n)
	size, st1 := pl.Int(1)
	offset, st2 := pl.IntOr(2, 0)
	if err := checkStatus(n, st1, st2); err != nil {
		return err
	}
	path, err := in.substitutedPath(n, 0)
	if err != nil {
		return err
	}

	existed, _, _ := in.backend.Lookup(path)
	ct, ioErr := in.backend.Write(path, size, offset)
	in.log.DumpCoreTime(ct)
	if ioErr == nil && !existed {
		in.cleanup.AddFile(path)
	}
	in.recordOutcome(ast.KindWrite, ioErr)
	return nil
}

func (in *Interp) execAppend(n *ast.Node) error {
	pl := in.list(n)
	size, st1 := pl.Int(1)
	if err := checkStatus(n, st1); err != nil {
		return err
	}
	path, err := in.substitutedPath(n, 0)
	if err != nil {
		return err
	}

	existed, _, _ := in.backend.Lookup(path)
	ct, ioErr := in.backend.Append(path, size)
	in.log.DumpCoreTime(ct)
	if ioErr == nil && !existed {
		in.cleanup.AddFile(path)
	}
	in.recordOutcome(ast.KindAppend, ioErr)
	return nil
}

func (in *Interp) execRead(n *ast.Node) error {
	pl := in.list(n)
	size, st1 := pl.IntOr(1, iobackend.ReadAll)
	offset, st2 := pl.IntOr(2, 0)
	if err := checkStatus(n, st1, st2); err != nil {
		return err
	}
	path, err := in.substitutedPath(n, 0)
	if err != nil {
		return err
	}

	ct, ioErr := in.backend.Read(path, size, offset)
	in.log.DumpCoreTime(ct)
	in.recordOutcome(ast.KindRead, ioErr)
	return nil
}

func (in *Interp) execLookup(n *ast.Node) error {
	path, err := in.substitutedPath(n, 0)
	if err != nil {
		return err
	}
	_, ct, ioErr := in.backend.Lookup(path)
	in.log.DumpCoreTime(ct)
	in.recordOutcome(ast.KindLookup, ioErr)
	return nil
}

func (in *Interp) execDelete(n *ast.Node) error {
	path, err := in.substitutedPath(n, 0)
	if err != nil {
		return err
	}
	ct, ioErr := in.backend.Delete(path)
	in.log.DumpCoreTime(ct)
	if ioErr == nil {
		in.cleanup.RemoveFile(path)
	}
	in.recordOutcome(ast.KindDelete, ioErr)
	return nil
}

func (in *Interp) execMkdir(n *ast.Node) error {
	path, err := in.substitutedPath(n, 0)
	if err != nil {
		return err
	}
	ct, ioErr := in.backend.Mkdir(path)
	in.log.DumpCoreTime(ct)
	if ioErr == nil {
		in.cleanup.AddDir(path)
	}
	in.recordOutcome(ast.KindMkdir, ioErr)
	return nil
}

func (in *Interp) execRmdir(n *ast.Node) error {
	path, err := in.substitutedPath(n, 0)
	if err != nil {
		return err
	}
	ct, ioErr := in.backend.Rmdir(path)
	in.log.DumpCoreTime(ct)
	if ioErr == nil {
		in.cleanup.RemoveDir(path)
	}
	in.recordOutcome(ast.KindRmdir, ioErr)
	return nil
}

func (in *Interp) execCreate(n *ast.Node) error {
	path, err := in.substitutedPath(n, 0)
	if err != nil {
		return err
	}
	ct, ioErr := in.backend.Create(path)
	in.log.DumpCoreTime(ct)
	if ioErr == nil {
		in.cleanup.AddFile(path)
	}
	in.recordOutcome(ast.KindCreate, ioErr)
	return nil
}

func (in *Interp) execStat(n *ast.Node) error {
	path, err := in.substitutedPath(n, 0)
	if err != nil {
		return err
	}
	_, ct, ioErr := in.backend.Stat(path)
	in.log.DumpCoreTime(ct)
	in.recordOutcome(ast.KindStat, ioErr)
	return nil
}

func (in *Interp) execRename(n *ast.Node) error {
	pl := in.list(n)
	oldRaw, st0 := pl.String(0)
	newRaw, st1 := pl.String(1)
	if err := checkStatus(n, st0, st1); err != nil {
		return err
	}
	oldPath, sst := in.ev.Substitute(oldRaw)
	if sst != expr.Ok {
		return fatalf(n, "malicious statement parameters (status=%s)", sst)
	}
	newPath, sst := in.ev.Substitute(newRaw)
	if sst != expr.Ok {
		return fatalf(n, "malicious statement parameters (status=%s)", sst)
	}

	ct, ioErr := in.backend.Rename(oldPath, newPath)
	in.log.DumpCoreTime(ct)
	if ioErr == nil {
		in.cleanup.RenameFile(oldPath, newPath)
	}
	in.recordOutcome(ast.KindRename, ioErr)
	return nil
}

func (in *Interp) recordOutcome(k ast.Kind, err error) {
	if err == nil {
		in.counters.Succeed(k)
	} else {
		in.counters.Fail(k)
	}
}


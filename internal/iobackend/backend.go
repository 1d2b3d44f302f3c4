// Copyright (C) 2026 parabench contributors.
// All rights reserved. This file is part of parabench.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package iobackend defines the pluggable file-system primitive interface
// the statement interpreter drives: POSIX-style calls plus their
// collective, pattern-driven counterparts. Segregating it from the
// interpreter lets the same script run against the default local-disk
// backend or against a different storage target without touching
// dispatch logic.
package iobackend

import (
	"os"

	"github.com/ClusterCockpit/parabench/internal/fabric"
	"github.com/ClusterCockpit/parabench/internal/pattern"
	"github.com/ClusterCockpit/parabench/internal/timing"
)

// Current and ReadAll are the sentinel values the interpreter passes
// through for "default" parameters: Current for fread/fwrite's missing
// offset (transfer at the handle's current position), ReadAll for fread's
// missing size (read to the end of the file).
const (
	Current = -1
	ReadAll = -1
)

// Handle is an opaque per-backend file reference. The interpreter stores
// it boxed inside a value.Value tagged Handle; it never inspects the
// concrete type.
type Handle any

// Backend is the full set of POSIX and collective I/O primitives a
// pattern-driven benchmark script can invoke. Every method returns a
// timing.CoreTime observation on success; I/O failures are reported via
// error and are not fatal to the interpreter (only evaluation errors are).
type Backend interface {
	Info() string

	FCreat(path string, mode os.FileMode) (Handle, timing.CoreTime, error)
	FOpen(path string, flags int) (Handle, timing.CoreTime, error)
	FClose(h Handle) (timing.CoreTime, error)
	FRead(h Handle, size int64, offset int64) (timing.CoreTime, error)
	FWrite(h Handle, size int64, offset int64) (timing.CoreTime, error)
	FSeek(h Handle, offset int64, whence int) (timing.CoreTime, error)
	FSync(h Handle) (timing.CoreTime, error)

	Write(path string, size int64, offset int64) (timing.CoreTime, error)
	Append(path string, size int64) (timing.CoreTime, error)
	Read(path string, size int64, offset int64) (timing.CoreTime, error)
	Lookup(path string) (bool, timing.CoreTime, error)
	Delete(path string) (timing.CoreTime, error)
	Mkdir(path string) (timing.CoreTime, error)
	Rmdir(path string) (timing.CoreTime, error)
	Create(path string) (timing.CoreTime, error)
	Stat(path string) (os.FileInfo, timing.CoreTime, error)
	Rename(oldPath, newPath string) (timing.CoreTime, error)

	PFOpen(path string, comm fabric.Communicator) (Handle, timing.CoreTime, error)
	PFClose(h Handle, comm fabric.Communicator) (timing.CoreTime, error)
	PFRead(h Handle, dt pattern.Descriptor, comm fabric.Communicator) (timing.CoreTime, error)
	PFWrite(h Handle, dt pattern.Descriptor, comm fabric.Communicator) (timing.CoreTime, error)
	PRead(path string, dt pattern.Descriptor, comm fabric.Communicator) (timing.CoreTime, error)
	PWrite(path string, dt pattern.Descriptor, comm fabric.Communicator) (timing.CoreTime, error)
	PDelete(path string, comm fabric.Communicator) (timing.CoreTime, error)
}

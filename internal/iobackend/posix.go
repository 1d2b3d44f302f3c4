// Copyright (C) 2026 parabench contributors.
// All rights reserved. This file is part of parabench.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package iobackend

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ClusterCockpit/parabench/internal/fabric"
	"github.com/ClusterCockpit/parabench/internal/pattern"
	"github.com/ClusterCockpit/parabench/internal/timing"
)

// posixHandle wraps the *os.File a POSIX or pattern fopen call produced,
// plus a zero-filled scratch buffer sized for this handle's largest
// observed transfer so repeated reads/writes do not reallocate.
type posixHandle struct {
	f   *os.File
	buf []byte
}

func (h *posixHandle) bufOfSize(n int64) []byte {
	if int64(len(h.buf)) < n {
		h.buf = make([]byte, n)
	}
	return h.buf[:n]
}

// Posix is the default Backend: every statement maps to a real local
// filesystem call. Collective variants are not backed by an actual
// parallel I/O library (none is wired into this module; see DESIGN.md) —
// they perform the same local operation as their non-collective sibling.
// PFOpen (after a successful open), PFClose and PDelete synchronize with a
// barrier; pattern transfers add a barrier before and after the I/O only
// for the collective levels (1 and 3). Barrier waits are not part of the
// returned CoreTime.
type Posix struct{}

func New() *Posix { return &Posix{} }

func (p *Posix) Info() string { return "posix (local filesystem)" }

func timed(bytes int64, fn func() error) (timing.CoreTime, error) {
	start := time.Now()
	err := fn()
	elapsed := time.Since(start).Seconds()
	if err != nil {
		return timing.CoreTime{Seconds: elapsed, Bytes: 0}, err
	}
	return timing.CoreTime{Seconds: elapsed, Bytes: bytes}, nil
}

func asPosixHandle(h Handle) (*posixHandle, error) {
	ph, ok := h.(*posixHandle)
	if !ok || ph == nil {
		return nil, fmt.Errorf("iobackend: invalid handle")
	}
	return ph, nil
}

func (p *Posix) FCreat(path string, mode os.FileMode) (Handle, timing.CoreTime, error) {
	var f *os.File
	ct, err := timed(0, func() error {
		var err error
		f, err = os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_TRUNC, mode)
		return err
	})
	if err != nil {
		return nil, ct, err
	}
	return &posixHandle{f: f}, ct, nil
}

func (p *Posix) FOpen(path string, flags int) (Handle, timing.CoreTime, error) {
	var f *os.File
	ct, err := timed(0, func() error {
		var err error
		f, err = os.OpenFile(path, flags, 0)
		return err
	})
	if err != nil {
		return nil, ct, err
	}
	return &posixHandle{f: f}, ct, nil
}

func (p *Posix) FClose(h Handle) (timing.CoreTime, error) {
	ph, err := asPosixHandle(h)
	if err != nil {
		return timing.CoreTime{}, err
	}
	return timed(0, ph.f.Close)
}

func (p *Posix) FRead(h Handle, size int64, offset int64) (timing.CoreTime, error) {
	ph, err := asPosixHandle(h)
	if err != nil {
		return timing.CoreTime{}, err
	}
	if offset != Current {
		if _, err := ph.f.Seek(offset, io.SeekStart); err != nil {
			return timing.CoreTime{}, err
		}
	}
	if size == ReadAll {
		cur, err := ph.f.Seek(0, io.SeekCurrent)
		if err != nil {
			return timing.CoreTime{}, err
		}
		info, err := ph.f.Stat()
		if err != nil {
			return timing.CoreTime{}, err
		}
		size = info.Size() - cur
		if size < 0 {
			size = 0
		}
	}
	buf := ph.bufOfSize(size)
	var n int
	ct, err := timed(0, func() error {
		var err error
		n, err = io.ReadFull(ph.f, buf)
		if err == io.ErrUnexpectedEOF || err == io.EOF {
			err = nil
		}
		return err
	})
	ct.Bytes = int64(n)
	return ct, err
}

func (p *Posix) FWrite(h Handle, size int64, offset int64) (timing.CoreTime, error) {
	ph, err := asPosixHandle(h)
	if err != nil {
		return timing.CoreTime{}, err
	}
	if offset != Current {
		if _, err := ph.f.Seek(offset, io.SeekStart); err != nil {
			return timing.CoreTime{}, err
		}
	}
	buf := ph.bufOfSize(size)
	clear(buf)
	return timed(size, func() error {
		_, err := ph.f.Write(buf)
		return err
	})
}

func (p *Posix) FSeek(h Handle, offset int64, whence int) (timing.CoreTime, error) {
	ph, err := asPosixHandle(h)
	if err != nil {
		return timing.CoreTime{}, err
	}
	return timed(0, func() error {
		_, err := ph.f.Seek(offset, whence)
		return err
	})
}

func (p *Posix) FSync(h Handle) (timing.CoreTime, error) {
	ph, err := asPosixHandle(h)
	if err != nil {
		return timing.CoreTime{}, err
	}
	return timed(0, ph.f.Sync)
}

func (p *Posix) Write(path string, size int64, offset int64) (timing.CoreTime, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o666)
	if err != nil {
		return timing.CoreTime{}, err
	}
	defer f.Close()
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return timing.CoreTime{}, err
	}
	buf := make([]byte, size)
	return timed(size, func() error {
		_, err := f.Write(buf)
		return err
	})
}

func (p *Posix) Append(path string, size int64) (timing.CoreTime, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
	if err != nil {
		return timing.CoreTime{}, err
	}
	defer f.Close()
	buf := make([]byte, size)
	return timed(size, func() error {
		_, err := f.Write(buf)
		return err
	})
}

func (p *Posix) Read(path string, size int64, offset int64) (timing.CoreTime, error) {
	f, err := os.Open(path)
	if err != nil {
		return timing.CoreTime{}, err
	}
	defer f.Close()
	if offset != Current {
		if _, err := f.Seek(offset, io.SeekStart); err != nil {
			return timing.CoreTime{}, err
		}
	}
	if size == ReadAll {
		info, err := f.Stat()
		if err != nil {
			return timing.CoreTime{}, err
		}
		size = info.Size()
	}
	buf := make([]byte, size)
	var n int
	ct, err := timed(0, func() error {
		var err error
		n, err = io.ReadFull(f, buf)
		if err == io.ErrUnexpectedEOF || err == io.EOF {
			err = nil
		}
		return err
	})
	ct.Bytes = int64(n)
	return ct, err
}

func (p *Posix) Lookup(path string) (bool, timing.CoreTime, error) {
	var exists bool
	ct, err := timed(0, func() error {
		_, statErr := os.Stat(path)
		exists = statErr == nil
		if os.IsNotExist(statErr) {
			return nil
		}
		return statErr
	})
	return exists, ct, err
}

func (p *Posix) Delete(path string) (timing.CoreTime, error) {
	return timed(0, func() error { return os.Remove(path) })
}

func (p *Posix) Mkdir(path string) (timing.CoreTime, error) {
	return timed(0, func() error { return os.Mkdir(path, 0o777) })
}

func (p *Posix) Rmdir(path string) (timing.CoreTime, error) {
	return timed(0, func() error { return os.Remove(path) })
}

func (p *Posix) Create(path string) (timing.CoreTime, error) {
	return timed(0, func() error {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o666)
		if err != nil {
			return err
		}
		return f.Close()
	})
}

func (p *Posix) Stat(path string) (os.FileInfo, timing.CoreTime, error) {
	var info os.FileInfo
	ct, err := timed(0, func() error {
		var err error
		info, err = os.Stat(path)
		return err
	})
	return info, ct, err
}

func (p *Posix) Rename(oldPath, newPath string) (timing.CoreTime, error) {
	return timed(0, func() error { return os.Rename(oldPath, newPath) })
}

// --- Collective / pattern-driven ---
//
// PFOpen opens the shared file view; non-member ranks never reach here
// since the interpreter only dispatches collective I/O within an active
// communicator.

func (p *Posix) PFOpen(path string, comm fabric.Communicator) (Handle, timing.CoreTime, error) {
	h, ct, err := p.FCreat(path, 0o666)
	if err == nil {
		if berr := comm.Barrier(); berr != nil {
			return h, ct, berr
		}
	}
	return h, ct, err
}

func (p *Posix) PFClose(h Handle, comm fabric.Communicator) (timing.CoreTime, error) {
	if err := comm.Barrier(); err != nil {
		return timing.CoreTime{}, err
	}
	return p.FClose(h)
}

// patternOffset computes the file offset at which this rank's first
// element starts: contiguous (level 0/1) ranks get disjoint iter*elem-sized
// regions back to back by group rank; strided (level 2/3) ranks start one
// elem apart, at their first slot of the round-robin layout.
func patternOffset(dt pattern.Descriptor, contiguous bool) int64 {
	if contiguous {
		return int64(dt.Datatype.GroupRank) * dt.TotalBytes()
	}
	return dt.Datatype.Offset(0)
}

func (p *Posix) pfTransfer(h Handle, dt pattern.Descriptor, comm fabric.Communicator, write bool) (timing.CoreTime, error) {
	ph, err := asPosixHandle(h)
	if err != nil {
		return timing.CoreTime{}, err
	}
	if dt.Level.Collective() {
		if err := comm.Barrier(); err != nil {
			return timing.CoreTime{}, err
		}
	}

	total := dt.TotalBytes()
	var ct timing.CoreTime

	if !dt.Level.Strided() {
		// level 0/1: iterated single-element contiguous calls.
		base := patternOffset(dt, true)
		var sum timing.CoreTime
		for i := int64(0); i < dt.Iterations; i++ {
			offset := base + i*dt.ElemBytes
			var c timing.CoreTime
			var err error
			if write {
				c, err = p.FWrite(ph, dt.ElemBytes, offset)
			} else {
				c, err = p.FRead(ph, dt.ElemBytes, offset)
			}
			if err != nil {
				return sum, err
			}
			sum.Seconds += c.Seconds
			sum.Bytes += c.Bytes
		}
		ct = sum
	} else {
		// level 2/3: one transfer of iter*elem bytes as a single
		// contiguous run starting at this rank's first strided offset
		// (Datatype.Offset(0)). The bytes between this rank's strided
		// elements are not skipped, so the runs of different group ranks
		// overlap.
		offset := dt.Datatype.Offset(0)
		var err error
		if write {
			ct, err = p.FWrite(ph, total, offset)
		} else {
			ct, err = p.FRead(ph, total, offset)
		}
		if err != nil {
			return ct, err
		}
	}

	if dt.Level.Collective() {
		if err := comm.Barrier(); err != nil {
			return ct, err
		}
	}
	return ct, nil
}

func (p *Posix) PFRead(h Handle, dt pattern.Descriptor, comm fabric.Communicator) (timing.CoreTime, error) {
	return p.pfTransfer(h, dt, comm, false)
}

func (p *Posix) PFWrite(h Handle, dt pattern.Descriptor, comm fabric.Communicator) (timing.CoreTime, error) {
	return p.pfTransfer(h, dt, comm, true)
}

func (p *Posix) PRead(path string, dt pattern.Descriptor, comm fabric.Communicator) (timing.CoreTime, error) {
	h, _, err := p.FOpen(path, os.O_RDONLY)
	if err != nil {
		return timing.CoreTime{}, err
	}
	defer func() {
		ph, _ := asPosixHandle(h)
		if ph != nil {
			ph.f.Close()
		}
	}()
	return p.pfTransfer(h, dt, comm, false)
}

func (p *Posix) PWrite(path string, dt pattern.Descriptor, comm fabric.Communicator) (timing.CoreTime, error) {
	h, _, err := p.FCreat(path, 0o666)
	if err != nil {
		return timing.CoreTime{}, err
	}
	defer func() {
		ph, _ := asPosixHandle(h)
		if ph != nil {
			ph.f.Close()
		}
	}()
	return p.pfTransfer(h, dt, comm, true)
}

func (p *Posix) PDelete(path string, comm fabric.Communicator) (timing.CoreTime, error) {
	if comm.LocalRank() > 0 {
		// only the communicator's rank 0 unlinks; everyone else just
		// waits so the path is gone before anyone proceeds.
		if err := comm.Barrier(); err != nil {
			return timing.CoreTime{}, err
		}
		return timing.CoreTime{}, nil
	}
	ct, err := p.Delete(path)
	if berr := comm.Barrier(); berr != nil {
		return ct, berr
	}
	return ct, err
}

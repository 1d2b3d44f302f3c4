// Copyright (C) 2026 parabench contributors.
// All rights reserved. This file is part of parabench.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package interp

import (
	"time"

	"github.com/ClusterCockpit/parabench/internal/ast"
	"github.com/ClusterCockpit/parabench/internal/expr"
)

func (in *Interp) execSleep(n *ast.Node) error {
	if in.agileMode {
		return nil
	}
	pl := in.list(n)
	micros, st := pl.Int(0)
	if err := checkStatus(n, st); err != nil {
		return err
	}
	time.Sleep(time.Duration(micros) * time.Microsecond)
	return nil
}

// execTime times the wall-clock duration of the region's children and
// records it under the region's (possibly templated) label, substituted
// after the children have run so interpolated variables reflect their
// post-region values, exactly as the label the children themselves would
// see if they printed it.
func (in *Interp) execTime(n *ast.Node) error {
	start := time.Now()
	if err := in.execChildren(n); err != nil {
		return err
	}
	elapsed := time.Since(start).Seconds()

	label, st := in.ev.Substitute(n.Label)
	if st != expr.Ok {
		return fatalf(n, "malicious statement parameters (status=%s)", st)
	}
	in.log.RecordTime(label, elapsed)
	return nil
}

// execCTime substitutes the region's label before running its children
// (unlike execTime, which substitutes after) since the label identifies
// the region as it is entered, not as it is left.
func (in *Interp) execCTime(n *ast.Node) error {
	label, st := in.ev.Substitute(n.Label)
	if st != expr.Ok {
		return fatalf(n, "malicious statement parameters (status=%s)", st)
	}
	in.log.PushCTime(label)
	err := in.execChildren(n)
	in.log.PopCTime()
	return err
}

func (in *Interp) execGroup(n *ast.Node) error {
	block, ok := in.groupBlocks[n.Label]
	if !ok {
		return fatalf(n, "group %q doesn't exist", n.Label)
	}
	if !block.Member {
		return nil
	}
	in.groupStack.Push(block.Comm)
	err := in.execChildren(n)
	in.groupStack.Pop()
	return err
}

func (in *Interp) execMaster(n *ast.Node) error {
	comm := in.groupStack.Active()
	if comm.LocalRank() != 0 {
		return nil
	}
	return in.execChildren(n)
}

func (in *Interp) execBarrier(n *ast.Node) error {
	pl := in.list(n)

	comm := in.groupStack.Active()
	if pl.Len() > 0 {
		name, st := pl.String(0)
		if err := checkStatus(n, st); err != nil {
			return err
		}
		block, ok := in.groupBlocks[name]
		if !ok {
			return fatalf(n, "group %q doesn't exist", name)
		}
		comm = block.Comm
	}

	if err := comm.Barrier(); err != nil {
		return fatalf(n, "barrier failed: %v", err)
	}
	return nil
}

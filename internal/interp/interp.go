// Copyright (C) 2026 parabench contributors.
// All rights reserved. This file is part of parabench.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package interp walks a decoded program tree and executes it: variable
// binding, control flow, timing regions, group/collective scoping, and the
// POSIX and pattern-driven I/O statements, dispatched against a pluggable
// iobackend.Backend.
package interp

import (
	"encoding/binary"
	"fmt"
	"io"
	"math/rand"
	"os"

	"github.com/ClusterCockpit/parabench/internal/ast"
	"github.com/ClusterCockpit/parabench/internal/expr"
	"github.com/ClusterCockpit/parabench/internal/fabric"
	"github.com/ClusterCockpit/parabench/internal/groups"
	"github.com/ClusterCockpit/parabench/internal/iobackend"
	"github.com/ClusterCockpit/parabench/internal/params"
	"github.com/ClusterCockpit/parabench/internal/pattern"
	"github.com/ClusterCockpit/parabench/internal/timing"
	"github.com/ClusterCockpit/parabench/internal/value"
)

// Config is everything the interpreter needs from the outside world to
// execute one program: the resolved fabric for this rank, the backend to
// drive I/O through, and the handful of CLI-controlled knobs.
type Config struct {
	Fabric  fabric.Fabric
	Backend iobackend.Backend

	// GroupSizeOverrides mirrors `-g NAME[:SIZE]`.
	GroupSizeOverrides map[string]int

	// ParamOverrides mirrors the CLI's positional `KEY=VALUE` arguments,
	// which outrank both the script's `define` default and any
	// `PARABENCH_<KEY>` environment variable (spec.md §6).
	ParamOverrides map[string]string

	AgileMode bool // `-a`: skip sleep statements
	ParseOnly bool // `-d`: walk the tree but skip I/O primitives
	Seed      int64

	Out  io.Writer
	Warn func(string)
}

// Interp holds all per-run interpreter state. It is single-threaded: one
// Interp instance drives exactly one rank's execution.
type Interp struct {
	doc *ast.Document

	store *value.Store
	log   *timing.Log
	ev    *expr.Evaluator

	fab     fabric.Fabric
	backend iobackend.Backend

	groupBlocks map[string]*groups.Block
	groupStack  *groups.Stack

	rawPatterns map[string]pattern.RawDef

	handles  *handleTable
	counters *Counters
	cleanup  *cleanup

	agileMode bool
	parseOnly bool

	out  io.Writer
	warn func(string)

	rng *rand.Rand
}

// New builds an Interp ready to run doc. Group definitions are resolved
// immediately (every rank must agree on the same blocks before any
// statement executes), and named patterns are recorded for lazy,
// per-dispatch resolution against whatever communicator is active when a
// pfread/pfwrite/pread/pwrite statement actually runs.
func New(doc *ast.Document, cfg Config) (*Interp, error) {
	defs, sizes, err := groups.FromAST(doc.Groups, cfg.GroupSizeOverrides)
	if err != nil {
		return nil, fmt.Errorf("interp: resolving group definitions: %w", err)
	}
	blocks, err := groups.Resolve(defs, sizes, cfg.Fabric.WorldSize(), cfg.Fabric, cfg.Warn)
	if err != nil {
		return nil, fmt.Errorf("interp: resolving groups: %w", err)
	}

	rawPatterns := make(map[string]pattern.RawDef, len(doc.Patterns))
	for _, p := range doc.Patterns {
		rawPatterns[p.Name] = pattern.RawDef{
			Name: p.Name, Type: p.Type, Iterations: p.Iterations,
			ElementBytes: p.ElementBytes, Level: p.Level,
		}
	}

	out := cfg.Out
	if out == nil {
		out = os.Stdout
	}
	warn := cfg.Warn
	if warn == nil {
		warn = func(string) {}
	}

	in := &Interp{
		doc:         doc,
		store:       value.NewStore(),
		log:         timing.NewLog(cfg.Fabric.Rank()),
		fab:         cfg.Fabric,
		backend:     cfg.Backend,
		groupBlocks: blocks,
		groupStack:  groups.NewStack(blocks["world"].Comm),
		rawPatterns: rawPatterns,
		handles:     newHandleTable(),
		counters:    NewCounters(),
		cleanup:     newCleanup(),
		agileMode:   cfg.AgileMode,
		parseOnly:   cfg.ParseOnly,
		out:         out,
		warn:        warn,
		rng:         rand.New(rand.NewSource(cfg.Seed)),
	}
	in.ev = expr.New(in.store, in)

	if err := in.applyDefines(cfg.ParamOverrides); err != nil {
		return nil, err
	}
	return in, nil
}

func (in *Interp) Log() *timing.Log       { return in.log }
func (in *Interp) Counters() *Counters    { return in.counters }
func (in *Interp) CleanupFiles() []string { return in.cleanup.Files() }
func (in *Interp) CleanupDirs() []string  { return in.cleanup.Dirs() }

// --- expr.Env ---

func (in *Interp) Rank() int { return in.fab.Rank() }

func (in *Interp) Rand() uint32 { return in.rng.Uint32() }

// CRand draws once on the active communicator's local rank 0 and
// broadcasts the result, so every member of the currently active group
// (or world, outside any group scope) observes the same value.
func (in *Interp) CRand() (uint32, error) {
	comm := in.groupStack.Active()
	var buf [4]byte
	if comm.LocalRank() <= 0 {
		binary.BigEndian.PutUint32(buf[:], in.rng.Uint32())
	}
	out, err := comm.Broadcast(0, buf[:])
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(out), nil
}

func (in *Interp) Getenv(name string) (string, bool) {
	return os.LookupEnv(name)
}

// --- execution ---

// Run executes the program's root node to completion. A non-nil error is
// always fatal: malformed statement parameters, an unresolvable pattern, or
// a transport failure all abort the whole run rather than being recorded
// and continued past, matching how a configuration error is treated versus
// an ordinary I/O failure (the latter only moves a per-kind counter).
func (in *Interp) Run() error {
	return in.execNode(in.doc.Tree.Root)
}

func (in *Interp) node(i int) *ast.Node { return in.doc.Tree.Node(i) }

func (in *Interp) list(n *ast.Node) *params.List { return params.New(in.ev, n.Params) }

func (in *Interp) execChildren(n *ast.Node) error {
	for _, c := range n.Children {
		if err := in.execNode(c); err != nil {
			return err
		}
	}
	return nil
}

func fatalf(n *ast.Node, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	return fmt.Errorf("line %d (%s): %s", n.Line, n.Kind, msg)
}

func checkStatus(n *ast.Node, statuses ...expr.Status) error {
	for _, st := range statuses {
		if st != expr.Ok {
			return fatalf(n, "malicious statement parameters (status=%s)", st)
		}
	}
	return nil
}

func (in *Interp) execNode(idx int) error {
	n := in.node(idx)

	// Mirrors -d (parse-only, spec.md §6): every control-flow, timing and
	// group statement still executes so the tree is fully walked and
	// timed, but POSIX/collective I/O primitives are skipped entirely
	// rather than touching the backend.
	if in.parseOnly && n.Kind.IsIOPrimitive() {
		return nil
	}

	switch n.Kind {
	case ast.KindAssign:
		return in.execAssign(n)
	case ast.KindRepeat:
		return in.execRepeat(n)
	case ast.KindBlock:
		return in.execChildren(n)
	case ast.KindPrint:
		return in.execPrint(n)
	case ast.KindSleep:
		return in.execSleep(n)
	case ast.KindDefine:
		return nil // definitions are consumed once, up front, by New.
	case ast.KindTime:
		return in.execTime(n)
	case ast.KindCTime:
		return in.execCTime(n)
	case ast.KindGroup:
		return in.execGroup(n)
	case ast.KindMaster:
		return in.execMaster(n)
	case ast.KindBarrier:
		return in.execBarrier(n)

	case ast.KindFCreat, ast.KindFOpen, ast.KindFClose, ast.KindFRead, ast.KindFWrite,
		ast.KindFSeek, ast.KindFSync, ast.KindWrite, ast.KindAppend, ast.KindRead,
		ast.KindLookup, ast.KindDelete, ast.KindMkdir, ast.KindRmdir, ast.KindCreate,
		ast.KindStat, ast.KindRename:
		return in.execPosix(n)

	case ast.KindPFOpen, ast.KindPFClose, ast.KindPFRead, ast.KindPFWrite,
		ast.KindPRead, ast.KindPWrite, ast.KindPDelete:
		return in.execCollective(n)

	default:
		return fatalf(n, "invalid statement kind %d", n.Kind)
	}
}

func classifyVarKind(e *ast.Expr, store *value.Store) (isInt bool, ok bool) {
	switch e.Kind {
	case ast.ConstInt, ast.UnaryInt, ast.RichInt:
		return true, true
	case ast.ConstString, ast.RichString:
		return false, true
	case ast.Variable:
		v, found := store.Lookup(e.VarName)
		if !found {
			return false, false
		}
		switch v.Tag {
		case value.Int:
			return true, true
		case value.String:
			return false, true
		default:
			return false, false
		}
	default:
		return false, false
	}
}

func (in *Interp) execAssign(n *ast.Node) error {
	pl := in.list(n)
	name, st0 := pl.String(0)
	if err := checkStatus(n, st0); err != nil {
		return err
	}

	rhs := n.Params[1]
	isInt, ok := classifyVarKind(rhs, in.store)
	if !ok {
		return fatalf(n, "expression type not supported in assign statement")
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
		return fatalf(n, "malicious statement parameters (status=%s)", sst)
	}
	in.store.Set(name, value.NewString(substituted))
	return nil
}

func (in *Interp) execRepeat(n *ast.Node) error {
	pl := in.list(n)
	name, st0 := pl.String(0)
	count, st1 := pl.Int(1)
	if err := checkStatus(n, st0, st1); err != nil {
		return err
	}
	if count < 0 {
		return fatalf(n, "negative repeat count %d", count)
	}
	for i := int64(0); i < count; i++ {
		in.store.Set(name, value.NewInt(i))
		if err := in.execChildren(n); err != nil {
			return err
		}
	}
	in.store.Destroy(name)
	return nil
}

func (in *Interp) execPrint(n *ast.Node) error {
	pl := in.list(n)
	parts := make([]string, 0, pl.Len())
	for i := 0; i < pl.Len(); i++ {
		s, st := pl.String(i)
		if st != expr.Ok {
			return fatalf(n, "error evaluating print parameter %d (status=%s)", i, st)
		}
		parts = append(parts, s)
	}
	joined := ""
	for i, p := range parts {
		if i > 0 {
			joined += " "
		}
		joined += p
	}
	text, st := in.ev.Substitute(joined)
	if st != expr.Ok {
		return fatalf(n, "malicious statement parameters (status=%s)", st)
	}
	fmt.Fprintf(in.out, "[%d] %s\n", in.Rank(), text)
	return nil
}

// Copyright (C) 2026 parabench contributors.
// All rights reserved. This file is part of parabench.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package interp

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ClusterCockpit/parabench/internal/ast"
	"github.com/ClusterCockpit/parabench/internal/fabric"
	"github.com/ClusterCockpit/parabench/internal/iobackend"
)

// nodes is a small arena builder for tests: append builds a Node in place
// and returns its index, mirroring how ast.Decode's flatten walks a parsed
// program, except driven directly instead of through JSON.
type nodes struct {
	list []ast.Node
}

func (b *nodes) add(n ast.Node) int {
	idx := len(b.list)
	b.list = append(b.list, n)
	return idx
}

func block(b *nodes, children ...int) ast.Node {
	return ast.Node{Kind: ast.KindBlock, Children: children}
}

// doc appends root as the final node and points Tree.Root at it; tests
// build bottom-up (children before parents), unlike ast.Decode's flatten
// which reserves each node's slot before recursing into its children —
// Run() only ever follows Root and Children indices, so the node order in
// the arena itself doesn't matter.
func doc(root ast.Node, b *nodes, groups []ast.GroupDef, patterns []ast.PatternDef) *ast.Document {
	idx := b.add(root)
	return &ast.Document{
		Tree:     &ast.Tree{Nodes: b.list, Root: idx},
		Groups:   groups,
		Patterns: patterns,
	}
}

func newTestInterp(t *testing.T, d *ast.Document, out *bytes.Buffer) *Interp {
	t.Helper()
	fabs := fabric.NewLocalFabric(1)
	cfg := Config{
		Fabric:  fabs[0],
		Backend: iobackend.New(),
		Seed:    1,
		Out:     out,
	}
	in, err := New(d, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return in
}

// Scenario 1: assign then print reflects the assigned value, substituted
// into the print template.
func TestScenarioAssignAndPrint(t *testing.T) {
	b := &nodes{}
	assign := b.add(ast.Node{Kind: ast.KindAssign, Params: []*ast.Expr{
		ast.NewConstString("x"), ast.NewConstInt(41),
	}})
	print := b.add(ast.Node{Kind: ast.KindPrint, Params: []*ast.Expr{
		ast.NewConstString("value=$x"),
	}})
	root := block(b, assign, print)

	var out bytes.Buffer
	d := doc(root, b, nil, nil)
	in := newTestInterp(t, d, &out)

	if err := in.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := out.String(); got != "[0] value=41\n" {
		t.Fatalf("got %q", got)
	}
}

// Scenario 2: repeat wraps a write statement, each iteration writing to a
// distinct path built from the loop variable.
func TestScenarioRepeatAndWrite(t *testing.T) {
	dir := t.TempDir()

	b := &nodes{}
	write := b.add(ast.Node{Kind: ast.KindWrite, Params: []*ast.Expr{
		ast.NewConstString(filepath.Join(dir, "file-$i")),
		ast.NewConstInt(16),
	}})
	repeat := b.add(ast.Node{Kind: ast.KindRepeat, Params: []*ast.Expr{
		ast.NewConstString("i"), ast.NewConstInt(3),
	}, Children: []int{write}})
	root := block(b, repeat)

	var out bytes.Buffer
	d := doc(root, b, nil, nil)
	in := newTestInterp(t, d, &out)

	if err := in.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}

	for i := 0; i < 3; i++ {
		path := filepath.Join(dir, "file-"+itoa(i))
		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("stat %s: %v", path, err)
		}
		if info.Size() != 16 {
			t.Fatalf("%s size = %d, want 16", path, info.Size())
		}
	}

	succeed, fail := in.Counters().Get(ast.KindWrite)
	if succeed != 3 || fail != 0 {
		t.Fatalf("write counters = %d/%d, want 3/0", succeed, fail)
	}

	// the loop variable is destroyed once the loop exits.
	if _, ok := in.store.Lookup("i"); ok {
		t.Fatal("expected loop variable i to be destroyed after repeat")
	}
}

func itoa(i int) string {
	return string(rune('0' + i))
}

// Scenario 3: a ctime region nested inside a repeated write accumulates
// bytes/calls across every iteration.
func TestScenarioCTimeAroundRepeatedWrite(t *testing.T) {
	dir := t.TempDir()

	b := &nodes{}
	write := b.add(ast.Node{Kind: ast.KindWrite, Params: []*ast.Expr{
		ast.NewConstString(filepath.Join(dir, "f-$i")),
		ast.NewConstInt(100),
	}})
	repeat := b.add(ast.Node{Kind: ast.KindRepeat, Params: []*ast.Expr{
		ast.NewConstString("i"), ast.NewConstInt(4),
	}, Children: []int{write}})
	ctime := b.add(ast.Node{Kind: ast.KindCTime, Label: "writes", Children: []int{repeat}})
	root := block(b, ctime)

	var out bytes.Buffer
	d := doc(root, b, nil, nil)
	in := newTestInterp(t, d, &out)

	if err := in.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}

	events := in.Log().CoreTimeEvents()
	if len(events) != 1 {
		t.Fatalf("got %d core-time events, want 1", len(events))
	}
	e := events[0]
	if e.Label != "writes" {
		t.Fatalf("label = %q, want writes", e.Label)
	}
	if e.NumCalls != 4 {
		t.Fatalf("num calls = %d, want 4", e.NumCalls)
	}
	if e.Accumulated.Bytes != 400 {
		t.Fatalf("accumulated bytes = %d, want 400", e.Accumulated.Bytes)
	}
}

// Scenario 4: a single-member group gates a pfwrite; outside the group
// scope, collective dispatch is unreachable for a non-member, and the
// emitted file reflects the pattern's total byte count.
func TestScenarioGroupAndPFWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "shared")

	b := &nodes{}
	pfopen := b.add(ast.Node{Kind: ast.KindPFOpen, Params: []*ast.Expr{
		ast.NewConstString("fh"), ast.NewConstString(path), ast.NewConstString("w"),
	}})
	pfwrite := b.add(ast.Node{Kind: ast.KindPFWrite, Params: []*ast.Expr{
		ast.NewVariable("fh"), ast.NewConstString("pat"),
	}})
	pfclose := b.add(ast.Node{Kind: ast.KindPFClose, Params: []*ast.Expr{
		ast.NewVariable("fh"),
	}})
	group := b.add(ast.Node{Kind: ast.KindGroup, Label: "g1", Children: []int{pfopen, pfwrite, pfclose}})
	root := block(b, group)

	groups := []ast.GroupDef{{Name: "g1", Tag: "single", Size: 1}}
	patterns := []ast.PatternDef{{Name: "pat", Type: "p0", Iterations: 4, ElementBytes: 8, Level: 0}}

	var out bytes.Buffer
	d := doc(root, b, groups, patterns)
	in := newTestInterp(t, d, &out)

	if err := in.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Size() != 4*8 {
		t.Fatalf("size = %d, want %d", info.Size(), 4*8)
	}
	succeed, fail := in.Counters().Get(ast.KindPFWrite)
	if succeed != 1 || fail != 0 {
		t.Fatalf("pfwrite counters = %d/%d, want 1/0", succeed, fail)
	}
}

// Scenario 5: master restricts its children to local rank 0 of the active
// communicator; in a world of size 1 every rank is local rank 0, so the
// print always runs, but the gate itself must not error.
func TestScenarioMasterAndPrint(t *testing.T) {
	b := &nodes{}
	print := b.add(ast.Node{Kind: ast.KindPrint, Params: []*ast.Expr{
		ast.NewConstString("only master")},
	})
	master := b.add(ast.Node{Kind: ast.KindMaster, Children: []int{print}})
	root := block(b, master)

	var out bytes.Buffer
	d := doc(root, b, nil, nil)
	in := newTestInterp(t, d, &out)

	if err := in.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(out.String(), "only master") {
		t.Fatalf("got %q, want master's print to have run", out.String())
	}
}

// Scenario 6: an assign statement dividing by zero aborts the whole run
// with a fatal, line-numbered error rather than being recorded as an I/O
// failure.
func TestScenarioDivisionByZeroAborts(t *testing.T) {
	b := &nodes{}
	assign := b.add(ast.Node{Kind: ast.KindAssign, Line: 7, Params: []*ast.Expr{
		ast.NewConstString("x"),
		ast.NewRichInt(ast.Div, ast.NewConstInt(1), ast.NewConstInt(0)),
	}})
	root := block(b, assign)

	var out bytes.Buffer
	d := doc(root, b, nil, nil)
	in := newTestInterp(t, d, &out)

	err := in.Run()
	if err == nil {
		t.Fatal("expected an error for division by zero")
	}
	if !strings.Contains(err.Error(), "line 7") {
		t.Fatalf("error %q should carry the offending line number", err.Error())
	}

	if _, ok := in.store.Lookup("x"); ok {
		t.Fatal("x should never have been bound: the assign aborted before Set")
	}
}

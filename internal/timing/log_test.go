// Copyright (C) 2026 parabench contributors.
// All rights reserved. This file is part of parabench.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package timing

import "testing"

func TestRecordTimeAssignsSequentialIDs(t *testing.T) {
	l := NewLog(2)
	l.RecordTime("a", 1.5)
	l.RecordTime("b", 2.5)

	events := l.TimeEvents()
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].ID != 0 || events[1].ID != 1 {
		t.Fatalf("ids = %d, %d; want 0, 1", events[0].ID, events[1].ID)
	}
	if events[0].Rank != 2 || events[1].Rank != 2 {
		t.Fatalf("expected rank 2 on both events")
	}
	if events[0].Label != "a" || events[0].Seconds != 1.5 {
		t.Fatalf("got %+v", events[0])
	}
}

func TestCTimeNesting(t *testing.T) {
	l := NewLog(0)

	l.PushCTime("outer")
	if l.OpenCTimeDepth() != 1 {
		t.Fatalf("depth = %d, want 1", l.OpenCTimeDepth())
	}

	l.PushCTime("inner")
	if l.OpenCTimeDepth() != 2 {
		t.Fatalf("depth = %d, want 2", l.OpenCTimeDepth())
	}

	// A dump while two regions are open folds into both, innermost and
	// outermost alike.
	l.DumpCoreTime(CoreTime{Seconds: 1, Bytes: 1024})

	cur, ok := l.CurrentCoreTime()
	if !ok {
		t.Fatal("expected an open ctime region")
	}
	if cur.Label != "inner" || cur.Accumulated.Bytes != 1024 {
		t.Fatalf("got %+v", cur)
	}

	inner := l.PopCTime()
	if inner.Label != "inner" || inner.NumCalls != 1 {
		t.Fatalf("got %+v", inner)
	}
	if l.OpenCTimeDepth() != 1 {
		t.Fatalf("depth after pop = %d, want 1", l.OpenCTimeDepth())
	}

	l.DumpCoreTime(CoreTime{Seconds: 2, Bytes: 2048})
	outer := l.PopCTime()
	if outer.Label != "outer" {
		t.Fatalf("got %+v", outer)
	}
	// outer saw both dumps: 1024 bytes from the first (while inner was also
	// open) plus 2048 bytes from the second (after inner closed).
	if outer.Accumulated.Bytes != 1024+2048 {
		t.Fatalf("outer accumulated bytes = %d, want %d", outer.Accumulated.Bytes, 1024+2048)
	}
	if outer.NumCalls != 2 {
		t.Fatalf("outer num calls = %d, want 2", outer.NumCalls)
	}

	if l.OpenCTimeDepth() != 0 {
		t.Fatalf("depth after popping all = %d, want 0", l.OpenCTimeDepth())
	}
	if _, ok := l.CurrentCoreTime(); ok {
		t.Fatal("expected no open ctime region")
	}

	events := l.CoreTimeEvents()
	if len(events) != 2 {
		t.Fatalf("got %d core-time events, want 2", len(events))
	}
}

func TestCoreTimeEventMinMaxThroughput(t *testing.T) {
	l := NewLog(0)
	l.PushCTime("region")

	// Slow call: 1 byte/sec.
	l.DumpCoreTime(CoreTime{Seconds: 1, Bytes: 1})
	// Fast call: 1000 bytes/sec.
	l.DumpCoreTime(CoreTime{Seconds: 1, Bytes: 1000})
	// Middling call.
	l.DumpCoreTime(CoreTime{Seconds: 1, Bytes: 500})

	e := l.PopCTime()
	if got := e.MinCore.Throughput(); got != 1 {
		t.Fatalf("min throughput = %v, want 1", got)
	}
	if got := e.MaxCore.Throughput(); got != 1000 {
		t.Fatalf("max throughput = %v, want 1000", got)
	}
	if e.NumCalls != 3 {
		t.Fatalf("num calls = %d, want 3", e.NumCalls)
	}
	if e.MinCallTime != 1 || e.MaxCallTime != 1 {
		t.Fatalf("got min/max call time %v/%v, want 1/1", e.MinCallTime, e.MaxCallTime)
	}
}

func TestCoreTimeThroughputZeroSeconds(t *testing.T) {
	ct := CoreTime{Seconds: 0, Bytes: 1000}
	if got := ct.Throughput(); got != 0 {
		t.Fatalf("throughput with zero seconds = %v, want 0", got)
	}
}

func TestFormatThroughputIECUnits(t *testing.T) {
	cases := []struct {
		bps  float64
		want string
	}{
		{0, "0.00 B/s"},
		{1024, "1.00 KiB/s"},
		{1024 * 1024, "1.00 MiB/s"},
		{1024 * 1024 * 1024, "1.00 GiB/s"},
		{1536, "1.50 KiB/s"},
	}
	for _, c := range cases {
		if got := FormatThroughput(c.bps); got != c.want {
			t.Errorf("FormatThroughput(%v) = %q, want %q", c.bps, got, c.want)
		}
	}
}

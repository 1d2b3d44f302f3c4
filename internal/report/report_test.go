// Copyright (C) 2026 parabench contributors.
// All rights reserved. This file is part of parabench.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package report

import (
	"bytes"
	"encoding/xml"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ClusterCockpit/parabench/internal/aggregate"
	"github.com/ClusterCockpit/parabench/internal/ast"
	"github.com/ClusterCockpit/parabench/internal/timing"
)

func sampleResult() *aggregate.Result {
	return &aggregate.Result{
		TimeEvents: []timing.TimeEvent{
			{Rank: 1, ID: 0, Label: "phase1", Seconds: 1.5},
			{Rank: 0, ID: 0, Label: "phase1", Seconds: 2.0},
		},
		CoreTimeEvents: []timing.CoreTimeEvent{
			{
				Rank: 0, ID: 0, Label: "writes",
				Accumulated: timing.CoreTime{Seconds: 2, Bytes: 2048},
				MinCore:     timing.CoreTime{Seconds: 1, Bytes: 512},
				MaxCore:     timing.CoreTime{Seconds: 1, Bytes: 1536},
				NumCalls:    2,
				MinCallTime: 0.5,
				MaxCallTime: 1.5,
			},
		},
		Counters: map[ast.Kind]struct{ Succeed, Fail int64 }{
			ast.KindWrite: {Succeed: 3, Fail: 1},
		},
	}
}

func TestWriteTimeReportSortsByRankThenID(t *testing.T) {
	var buf bytes.Buffer
	WriteTimeReport(&buf, sampleResult())

	out := buf.String()
	rank0 := strings.Index(out, "0     0   phase1")
	rank1 := strings.Index(out, "1     0   phase1")
	if rank0 < 0 || rank1 < 0 || rank0 > rank1 {
		t.Fatalf("expected rank 0's row before rank 1's row, got:\n%s", out)
	}
}

func TestWriteCoreTimeReportIncludesThroughput(t *testing.T) {
	var buf bytes.Buffer
	WriteCoreTimeReport(&buf, sampleResult())

	out := buf.String()
	assert.Contains(t, out, "writes")
	assert.Contains(t, out, "KiB/s")
}

func TestWriteCommandReport(t *testing.T) {
	var buf bytes.Buffer
	WriteCommandReport(&buf, sampleResult())

	assert.Contains(t, buf.String(), "write      3           1")
}

func TestBuildXMLRoundTrips(t *testing.T) {
	res := sampleResult()
	data := BuildXML(res, "2026-07-31", "12:00:00", 2)

	var parsed xmlReport
	require.NoError(t, xml.Unmarshal(data, &parsed))
	assert.Equal(t, "2026-07-31", parsed.Date)
	assert.Equal(t, 2, parsed.Size)

	require.Len(t, parsed.Lists, 2)
	require.Equal(t, "CoreTime", parsed.Lists[0].Type)
	require.Len(t, parsed.Lists[0].Events, 1)
	require.Equal(t, "Time", parsed.Lists[1].Type)
	require.Len(t, parsed.Lists[1].Events, 2)

	ct := parsed.Lists[0].Events[0]
	require.NotNil(t, ct.Throughput)
	assert.InDelta(t, 1024.0, ct.Throughput.Avg, 1e-9)
	assert.InDelta(t, 512.0, ct.Throughput.Min, 1e-9)
	assert.InDelta(t, 1536.0, ct.Throughput.Max, 1e-9)
	require.NotNil(t, ct.Calltime)
	assert.InDelta(t, 1.0, ct.Calltime.Avg, 1e-9)
	assert.InDelta(t, 0.5, ct.Calltime.Min, 1e-9)
	assert.InDelta(t, 1.5, ct.Calltime.Max, 1e-9)
	require.NotNil(t, ct.Requests)
	assert.Equal(t, int64(2), ct.Requests.Num)
	assert.InDelta(t, 2.0, ct.Requests.Time, 1e-9)
	assert.InDelta(t, 1.0, ct.Requests.IOops, 1e-9)

	wt := parsed.Lists[1].Events[0]
	require.NotNil(t, wt.Walltime)
	assert.InDelta(t, 1.5, wt.Walltime.Value, 1e-9)
}

func TestWriteXMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "results.xml")
	require.NoError(t, WriteXMLFile(path, sampleResult(), "2026-07-31", "00:00:00", 1))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), xml.Header))
}

func TestWriteTimeSeriesFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, WriteTimeSeriesFiles(dir, sampleResult()))

	data, err := os.ReadFile(filepath.Join(dir, "time_phase1.txt"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "1;0;1.500000000", lines[0])
	assert.Equal(t, "0;0;2.000000000", lines[1])
}

func TestWriteCoreTimeSeriesFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, WriteCoreTimeSeriesFiles(dir, sampleResult()))

	data, err := os.ReadFile(filepath.Join(dir, "ctime_writes.txt"))
	require.NoError(t, err)
	line := strings.TrimSpace(string(data))
	assert.Equal(t, "0, 0, 1024.000000, 512.000000, 1536.000000, 1.000000000, 0.500000000, 1.500000000", line)
}

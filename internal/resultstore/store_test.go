// Copyright (C) 2026 parabench contributors.
// All rights reserved. This file is part of parabench.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package resultstore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ClusterCockpit/parabench/internal/aggregate"
	"github.com/ClusterCockpit/parabench/internal/ast"
	"github.com/ClusterCockpit/parabench/internal/timing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "parabench.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveAndRecent(t *testing.T) {
	s := openTestStore(t)

	run := &Run{
		ScriptPath: "bench.ppl",
		StartedAt:  1753900000,
		FinishedAt: 1753900060,
		WorldSize:  4,
	}
	res := &aggregate.Result{
		TimeEvents: []timing.TimeEvent{
			{Rank: 0, ID: 0, Label: "all", Seconds: 60},
		},
		CoreTimeEvents: []timing.CoreTimeEvent{
			{
				Rank: 0, ID: 0, Label: "io",
				Accumulated: timing.CoreTime{Seconds: 10, Bytes: 1 << 20},
				NumCalls:    16,
			},
		},
		Counters: map[ast.Kind]struct{ Succeed, Fail int64 }{
			ast.KindWrite: {Succeed: 16, Fail: 0},
		},
	}

	require.NoError(t, s.Save(run, res))
	assert.NotZero(t, run.ID)

	runs, err := s.Recent(10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "bench.ppl", runs[0].ScriptPath)
	assert.Equal(t, 4, runs[0].WorldSize)
}

func TestRunByIDAndCounters(t *testing.T) {
	s := openTestStore(t)

	run := &Run{ScriptPath: "x.ppl", StartedAt: 1, FinishedAt: 2, WorldSize: 1, OK: true}
	res := &aggregate.Result{
		Counters: map[ast.Kind]struct{ Succeed, Fail int64 }{
			ast.KindMkdir: {Succeed: 2, Fail: 1},
			ast.KindRead:  {Succeed: 5, Fail: 0},
		},
	}
	require.NoError(t, s.Save(run, res))

	got, err := s.RunByID(run.ID)
	require.NoError(t, err)
	assert.Equal(t, "x.ppl", got.ScriptPath)
	assert.True(t, got.OK)

	counters, err := s.CountersForRun(run.ID)
	require.NoError(t, err)
	require.Len(t, counters, 2)
	// ordered by kind name: mkdir < read
	assert.Equal(t, CounterRow{Kind: "mkdir", Succeed: 2, Fail: 1}, counters[0])
	assert.Equal(t, CounterRow{Kind: "read", Succeed: 5, Fail: 0}, counters[1])
}

func TestRunByIDUnknown(t *testing.T) {
	s := openTestStore(t)
	_, err := s.RunByID(999)
	assert.Error(t, err)
}

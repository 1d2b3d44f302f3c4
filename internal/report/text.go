// Copyright (C) 2026 parabench contributors.
// All rights reserved. This file is part of parabench.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package report renders the aggregated result (internal/aggregate.Result)
// as the human-readable "Time Report" / "Core Time Report" / "Command
// Report" text spec.md §4.9 describes, plus the structured XML artifact
// and per-label CSV exports.
package report

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/ClusterCockpit/parabench/internal/aggregate"
	"github.com/ClusterCockpit/parabench/internal/ast"
	"github.com/ClusterCockpit/parabench/internal/timing"
)

func sortedByRankThenID[T any](items []T, rank func(T) int, id func(T) int) []T {
	out := append([]T(nil), items...)
	sort.SliceStable(out, func(i, j int) bool {
		if rank(out[i]) != rank(out[j]) {
			return rank(out[i]) < rank(out[j])
		}
		return id(out[i]) < id(out[j])
	})
	return out
}

// WriteTimeReport renders "Time Report", sorted by rank then event id.
func WriteTimeReport(w io.Writer, res *aggregate.Result) {
	fmt.Fprintln(w, "Time Report")
	tw := tabwriter.NewWriter(w, 0, 2, 2, ' ', 0)
	fmt.Fprintln(tw, "Rank\tID\tLabel\tSeconds")
	for _, e := range sortedByRankThenID(res.TimeEvents,
		func(e timing.TimeEvent) int { return e.Rank },
		func(e timing.TimeEvent) int { return e.ID }) {
		fmt.Fprintf(tw, "%d\t%d\t%s\t%.6f\n", e.Rank, e.ID, e.Label, e.Seconds)
	}
	tw.Flush()
}

// WriteCoreTimeReport renders "Core Time Report" with avg/min/max
// throughput, avg/min/max call time, IOops and totals.
func WriteCoreTimeReport(w io.Writer, res *aggregate.Result) {
	fmt.Fprintln(w, "Core Time Report")
	tw := tabwriter.NewWriter(w, 0, 2, 2, ' ', 0)
	fmt.Fprintln(tw, "Rank\tID\tLabel\tAvgTP\tMinTP\tMaxTP\tAvgTime\tMinTime\tMaxTime\tIOops\tTotalBytes")
	for _, e := range sortedByRankThenID(res.CoreTimeEvents,
		func(e timing.CoreTimeEvent) int { return e.Rank },
		func(e timing.CoreTimeEvent) int { return e.ID }) {
		var avgTime float64
		if e.NumCalls > 0 {
			avgTime = e.Accumulated.Seconds / float64(e.NumCalls)
		}
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%s\t%s\t%.6f\t%.6f\t%.6f\t%d\t%d\n",
			e.Rank, e.ID, e.Label,
			timing.FormatThroughput(e.Accumulated.Throughput()),
			timing.FormatThroughput(e.MinCore.Throughput()),
			timing.FormatThroughput(e.MaxCore.Throughput()),
			avgTime, e.MinCallTime, e.MaxCallTime,
			e.NumCalls, e.Accumulated.Bytes)
	}
	tw.Flush()
}

// WriteCommandReport renders per-kind success/failure counts.
func WriteCommandReport(w io.Writer, res *aggregate.Result) {
	fmt.Fprintln(w, "Command Report")
	kinds := make([]ast.Kind, 0, len(res.Counters))
	for k := range res.Counters {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })

	tw := tabwriter.NewWriter(w, 0, 2, 2, ' ', 0)
	fmt.Fprintln(tw, "Statement\tSuccessful\tFailed")
	for _, k := range kinds {
		c := res.Counters[k]
		fmt.Fprintf(tw, "%s\t%d\t%d\n", k, c.Succeed, c.Fail)
	}
	tw.Flush()
}

// WriteAll renders all three text reports in spec.md §4.9's order.
func WriteAll(w io.Writer, res *aggregate.Result) {
	WriteTimeReport(w, res)
	fmt.Fprintln(w)
	WriteCoreTimeReport(w, res)
	fmt.Fprintln(w)
	WriteCommandReport(w, res)
}

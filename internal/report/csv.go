// Copyright (C) 2026 parabench contributors.
// All rights reserved. This file is part of parabench.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ClusterCockpit/parabench/internal/aggregate"
)

// WriteTimeSeriesFiles writes one time_<label>.txt per distinct time-event
// label into dir, each row "rank;id;seconds" (spec.md §4.9's per-label
// export format).
func WriteTimeSeriesFiles(dir string, res *aggregate.Result) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("report: creating %q: %w", dir, err)
	}
	byLabel := make(map[string][]string)
	order := make([]string, 0)
	for _, e := range res.TimeEvents {
		if _, ok := byLabel[e.Label]; !ok {
			order = append(order, e.Label)
		}
		byLabel[e.Label] = append(byLabel[e.Label],
			fmt.Sprintf("%d;%d;%.9f\n", e.Rank, e.ID, e.Seconds))
	}
	for _, label := range order {
		path := filepath.Join(dir, "time_"+label+".txt")
		if err := os.WriteFile(path, []byte(strings.Join(byLabel[label], "")), 0o644); err != nil {
			return fmt.Errorf("report: writing %q: %w", path, err)
		}
	}
	return nil
}

// WriteCoreTimeSeriesFiles writes one ctime_<label>.txt per distinct
// core-time label into dir, each row
// "rank, id, avgTP, minTP, maxTP, avgTime, minTime, maxTime".
func WriteCoreTimeSeriesFiles(dir string, res *aggregate.Result) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("report: creating %q: %w", dir, err)
	}
	byLabel := make(map[string][]string)
	order := make([]string, 0)
	for _, e := range res.CoreTimeEvents {
		if _, ok := byLabel[e.Label]; !ok {
			order = append(order, e.Label)
		}
		byLabel[e.Label] = append(byLabel[e.Label],
			fmt.Sprintf("%d, %d, %.6f, %.6f, %.6f, %.9f, %.9f, %.9f\n",
				e.Rank, e.ID,
				e.Accumulated.Throughput(), e.MinCore.Throughput(), e.MaxCore.Throughput(),
				avgCallTime(e), e.MinCallTime, e.MaxCallTime))
	}
	for _, label := range order {
		path := filepath.Join(dir, "ctime_"+label+".txt")
		if err := os.WriteFile(path, []byte(strings.Join(byLabel[label], "")), 0o644); err != nil {
			return fmt.Errorf("report: writing %q: %w", path, err)
		}
	}
	return nil
}

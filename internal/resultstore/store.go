// Copyright (C) 2026 parabench contributors.
// All rights reserved. This file is part of parabench.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package resultstore

import (
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/ClusterCockpit/parabench/internal/aggregate"
	"github.com/jmoiron/sqlx"
)

// Run is the row persisted for one benchmark execution; ID is populated by
// Save once the insert completes.
type Run struct {
	ID         int64
	ScriptPath string
	StartedAt  int64 // unix seconds
	FinishedAt int64
	WorldSize  int
	AgileMode  bool
	ParseOnly  bool
	OK         bool
	Error      string
}

// Save writes run, then its aggregated result (time events, core-time
// events, command counters), inside one transaction — either the whole
// run's history lands, or none of it does.
func (s *Store) Save(run *Run, res *aggregate.Result) error {
	tx, err := s.db.Beginx()
	if err != nil {
		return fmt.Errorf("resultstore: begin tx: %w", err)
	}
	defer tx.Rollback()

	insertRun := sq.Insert("run").
		Columns("script_path", "started_at", "finished_at", "world_size", "agile_mode", "parse_only", "ok", "error").
		Values(run.ScriptPath, run.StartedAt, run.FinishedAt, run.WorldSize, run.AgileMode, run.ParseOnly, run.OK, run.Error)

	sqlStr, args, err := insertRun.ToSql()
	if err != nil {
		return fmt.Errorf("resultstore: building run insert: %w", err)
	}
	result, err := tx.Exec(sqlStr, args...)
	if err != nil {
		return fmt.Errorf("resultstore: inserting run: %w", err)
	}
	runID, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("resultstore: reading run id: %w", err)
	}
	run.ID = runID

	if res != nil {
		if err := insertTimeEvents(tx, runID, res); err != nil {
			return err
		}
		if err := insertCoreTimeEvents(tx, runID, res); err != nil {
			return err
		}
		if err := insertCounters(tx, runID, res); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func insertTimeEvents(tx *sqlx.Tx, runID int64, res *aggregate.Result) error {
	if len(res.TimeEvents) == 0 {
		return nil
	}
	ins := sq.Insert("time_event").Columns("run_id", "rank", "event_id", "label", "seconds")
	for _, e := range res.TimeEvents {
		ins = ins.Values(runID, e.Rank, e.ID, e.Label, e.Seconds)
	}
	sqlStr, args, err := ins.ToSql()
	if err != nil {
		return fmt.Errorf("resultstore: building time_event insert: %w", err)
	}
	if _, err := tx.Exec(sqlStr, args...); err != nil {
		return fmt.Errorf("resultstore: inserting time events: %w", err)
	}
	return nil
}

func insertCoreTimeEvents(tx *sqlx.Tx, runID int64, res *aggregate.Result) error {
	if len(res.CoreTimeEvents) == 0 {
		return nil
	}
	ins := sq.Insert("core_time_event").Columns(
		"run_id", "rank", "event_id", "label", "bytes", "seconds",
		"min_throughput", "max_throughput", "num_calls", "min_call_time", "max_call_time")
	for _, e := range res.CoreTimeEvents {
		ins = ins.Values(runID, e.Rank, e.ID, e.Label, e.Accumulated.Bytes, e.Accumulated.Seconds,
			e.MinCore.Throughput(), e.MaxCore.Throughput(), e.NumCalls, e.MinCallTime, e.MaxCallTime)
	}
	sqlStr, args, err := ins.ToSql()
	if err != nil {
		return fmt.Errorf("resultstore: building core_time_event insert: %w", err)
	}
	if _, err := tx.Exec(sqlStr, args...); err != nil {
		return fmt.Errorf("resultstore: inserting core-time events: %w", err)
	}
	return nil
}

func insertCounters(tx *sqlx.Tx, runID int64, res *aggregate.Result) error {
	if len(res.Counters) == 0 {
		return nil
	}
	ins := sq.Insert("command_counter").Columns("run_id", "kind", "succeed", "fail")
	for kind, c := range res.Counters {
		ins = ins.Values(runID, kind.String(), c.Succeed, c.Fail)
	}
	sqlStr, args, err := ins.ToSql()
	if err != nil {
		return fmt.Errorf("resultstore: building command_counter insert: %w", err)
	}
	if _, err := tx.Exec(sqlStr, args...); err != nil {
		return fmt.Errorf("resultstore: inserting command counters: %w", err)
	}
	return nil
}

var runColumns = []string{
	"id", "script_path", "started_at", "finished_at", "world_size", "agile_mode", "parse_only", "ok", "error",
}

// RunByID returns one run row, or sql.ErrNoRows wrapped if id is unknown.
func (s *Store) RunByID(id int64) (*Run, error) {
	query, args, err := sq.Select(runColumns...).
		From("run").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("resultstore: building run query: %w", err)
	}

	var r Run
	row := s.db.QueryRow(query, args...)
	if err := row.Scan(&r.ID, &r.ScriptPath, &r.StartedAt, &r.FinishedAt, &r.WorldSize, &r.AgileMode, &r.ParseOnly, &r.OK, &r.Error); err != nil {
		return nil, fmt.Errorf("resultstore: run %d: %w", id, err)
	}
	return &r, nil
}

// CounterRow is one command-counter row of a stored run.
type CounterRow struct {
	Kind    string
	Succeed int64
	Fail    int64
}

// CountersForRun returns the stored per-kind counters of one run, ordered
// by kind name.
func (s *Store) CountersForRun(runID int64) ([]CounterRow, error) {
	query, args, err := sq.Select("kind", "succeed", "fail").
		From("command_counter").
		Where(sq.Eq{"run_id": runID}).
		OrderBy("kind").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("resultstore: building counters query: %w", err)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("resultstore: querying counters: %w", err)
	}
	defer rows.Close()

	var out []CounterRow
	for rows.Next() {
		var c CounterRow
		if err := rows.Scan(&c.Kind, &c.Succeed, &c.Fail); err != nil {
			return nil, fmt.Errorf("resultstore: scanning counter row: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Recent returns the last limit runs, most recent first.
func (s *Store) Recent(limit int) ([]Run, error) {
	query, args, err := sq.Select(runColumns...).
		From("run").
		OrderBy("id DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("resultstore: building recent-runs query: %w", err)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("resultstore: querying recent runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.ScriptPath, &r.StartedAt, &r.FinishedAt, &r.WorldSize, &r.AgileMode, &r.ParseOnly, &r.OK, &r.Error); err != nil {
			return nil, fmt.Errorf("resultstore: scanning run row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Copyright (C) 2026 parabench contributors.
// All rights reserved. This file is part of parabench.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package progress runs an optional rank-0 heartbeat: a gocron job that
// periodically logs the throughput of whatever `ctime` region is currently
// open and updates the prometheus gauges Metrics exposes, rate-limited so
// a tight inner loop's frequent core-time updates can't flood the log.
// Grounded on the teacher's internal/taskManager (the gocron.Scheduler +
// single named job pattern) and internal/metricdata's prometheus client
// usage, generalized from metric consumer to metric producer.
package progress

import (
	"fmt"
	"time"

	cclog "github.com/ClusterCockpit/cc-lib/v2/ccLogger"
	"github.com/ClusterCockpit/parabench/internal/timing"
	"github.com/go-co-op/gocron/v2"
	"golang.org/x/time/rate"
)

// Heartbeat drives the periodic progress report. Only rank 0 should
// construct and Start one: it is the single "how is the run going" signal
// for the whole world, not a per-rank log spammer.
type Heartbeat struct {
	sched   gocron.Scheduler
	limiter *rate.Limiter
	log     *timing.Log
	metrics *Metrics
	rank    int
}

// New builds a Heartbeat firing at most once per interval (also the token
// bucket's refill rate, so a caller that forces an extra tick under load
// can't exceed it either).
func New(rank int, interval time.Duration, log *timing.Log, metrics *Metrics) (*Heartbeat, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("progress: creating scheduler: %w", err)
	}
	return &Heartbeat{
		sched:   sched,
		limiter: rate.NewLimiter(rate.Every(interval), 1),
		log:     log,
		metrics: metrics,
		rank:    rank,
	}, nil
}

// Start registers and starts the heartbeat job at interval. It is a no-op
// for any rank other than 0.
func (h *Heartbeat) Start(interval time.Duration) error {
	if h.rank != 0 {
		return nil
	}
	_, err := h.sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(h.tick),
	)
	if err != nil {
		return fmt.Errorf("progress: registering heartbeat job: %w", err)
	}
	h.sched.Start()
	return nil
}

// Shutdown stops the scheduler. Safe to call even if Start was a no-op.
func (h *Heartbeat) Shutdown() error {
	if h.sched == nil {
		return nil
	}
	return h.sched.Shutdown()
}

func (h *Heartbeat) tick() {
	if !h.limiter.Allow() {
		return
	}
	ct, ok := h.log.CurrentCoreTime()
	if !ok {
		cclog.Debugf("progress: no ctime region open")
		if h.metrics != nil {
			h.metrics.SetIdle()
		}
		return
	}
	tp := ct.Accumulated.Throughput()
	cclog.Infof("progress: %s: %s (%d calls)", ct.Label, timing.FormatThroughput(tp), ct.NumCalls)
	if h.metrics != nil {
		h.metrics.Observe(ct.Label, tp, ct.NumCalls)
	}
}

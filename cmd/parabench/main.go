// Copyright (C) 2026 parabench contributors.
// All rights reserved. This file is part of parabench.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Command parabench parses and runs a PPL benchmark script: it resolves a
// fabric (either an in-process goroutine simulation of -world-size ranks,
// or a single real rank joined to a shared NATS server), drives one
// internal/interp.Interp per rank to completion, gathers the results onto
// rank 0, and emits the text/XML/CSV reports plus an optional sqlite run
// history entry.
package main

import (
	"bytes"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	cclog "github.com/ClusterCockpit/cc-lib/v2/ccLogger"
	"github.com/ClusterCockpit/parabench/internal/aggregate"
	"github.com/ClusterCockpit/parabench/internal/ast"
	"github.com/ClusterCockpit/parabench/internal/config"
	"github.com/ClusterCockpit/parabench/internal/fabric"
	"github.com/ClusterCockpit/parabench/internal/interp"
	"github.com/ClusterCockpit/parabench/internal/iobackend"
	"github.com/ClusterCockpit/parabench/internal/progress"
	"github.com/ClusterCockpit/parabench/internal/report"
	"github.com/ClusterCockpit/parabench/internal/resultstore"
	"github.com/google/gops/agent"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
)

const version = "parabench 1.0.0"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(argv []string) int {
	flags, err := parseArgs(argv)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	if flags.version {
		fmt.Println(version)
		return 0
	}

	if flags.gops {
		if err := agent.Listen(agent.Options{}); err != nil {
			cclog.Errorf("gops/agent.Listen failed: %s", err.Error())
		}
	}

	if err := config.Init(flags.configFile); err != nil {
		cclog.Errorf("%s", err.Error())
		return 1
	}

	// CLI flags outrank the config file; an unset flag falls back to it.
	if flags.statusAddr == "" {
		flags.statusAddr = config.Keys.StatusAddr
	}
	if flags.natsURL == "" {
		flags.natsURL = config.Keys.NATSURL
	}

	if flags.listRuns || flags.showRun != 0 {
		return queryRunHistory(flags)
	}

	src, err := os.ReadFile(flags.scriptPath)
	if err != nil {
		cclog.Errorf("reading script %q: %s", flags.scriptPath, err.Error())
		return 1
	}
	doc, err := ast.Decode(src)
	if err != nil {
		cclog.Errorf("decoding %q: %s", flags.scriptPath, err.Error())
		return 1
	}

	groupSizes, err := flags.groupSizes.parsed()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	var metrics *progress.Metrics
	if flags.statusAddr != "" {
		reg := prometheus.NewRegistry()
		metrics = progress.NewMetrics(reg)
		srv := startStatusServer(flags.statusAddr, reg, statusInfo{
			WorldSize: flags.worldSize, Script: flags.scriptPath,
		})
		defer srv.Close()
	}

	if flags.natsURL != "" {
		return runSingleRank(flags, doc, groupSizes, metrics)
	}
	return runLocalWorld(flags, doc, groupSizes, metrics)
}

// runLocalWorld simulates flags.worldSize ranks as goroutines in this one
// OS process, the default mode for a laptop-scale or CI benchmark run.
// Every rank goroutine runs its interpreter to completion and enters the
// collective aggregation; rank 0's gathered result feeds the reports. A
// fatal error on any rank exits the whole process immediately, since the
// remaining ranks may already be blocked in a barrier the failed rank
// will never reach (the MPI_Abort-style teardown spec.md §5 describes).
func runLocalWorld(flags *cliFlags, doc *ast.Document, groupSizes map[string]int, metrics *progress.Metrics) int {
	fabrics := fabric.NewLocalFabric(flags.worldSize)

	var (
		wg        sync.WaitGroup
		masterRes *aggregate.Result
	)

	for i := 0; i < flags.worldSize; i++ {
		wg.Add(1)
		go func(fab *fabric.Local) {
			defer wg.Done()
			res, exitErr := runOneRank(flags, doc, groupSizes, fab, metrics)
			if exitErr != nil {
				cclog.Fatalf("run aborted: %s", exitErr.Error())
			}
			if fab.Rank() == 0 {
				masterRes = res
			}
		}(fabrics[i])
	}
	wg.Wait()

	return emitReports(flags, masterRes, flags.worldSize)
}

// runSingleRank joins a shared NATS server as exactly one rank (for a real
// multi-process, possibly multi-host, run).
func runSingleRank(flags *cliFlags, doc *ast.Document, groupSizes map[string]int, metrics *progress.Metrics) int {
	conn, err := nats.Connect(flags.natsURL)
	if err != nil {
		cclog.Errorf("connecting to nats %q: %s", flags.natsURL, err.Error())
		return 1
	}
	defer conn.Close()

	fab := fabric.NewNATSFabric(conn, flags.rank, flags.worldSize, runIDFromScript(flags.scriptPath))
	res, err := runOneRank(flags, doc, groupSizes, fab, metrics)
	if err != nil {
		cclog.Errorf("run aborted: %s", err.Error())
		return 1
	}
	if flags.rank != 0 {
		return 0
	}
	return emitReports(flags, res, flags.worldSize)
}

func runIDFromScript(path string) string {
	return fmt.Sprintf("run-%s", path)
}

// runOneRank builds and executes one rank's interpreter instance, then
// enters the collective aggregation every rank must participate in. The
// returned Result is non-nil only on the world's master rank; errors here
// are always fatal per spec.md §7.
func runOneRank(flags *cliFlags, doc *ast.Document, groupSizes map[string]int, fab fabric.Fabric, metrics *progress.Metrics) (*aggregate.Result, error) {
	// -w: rank 0 blocks for SIGUSR1, then the world barrier releases the
	// other ranks, which have been parked in it since startup.
	if flags.wait {
		if fab.Rank() == 0 {
			waitForSIGUSR1()
		}
		world, err := fab.NewCommunicator(allRanks(fab.WorldSize()))
		if err != nil {
			return nil, fmt.Errorf("building world communicator for delayed start: %w", err)
		}
		if err := world.Barrier(); err != nil {
			return nil, fmt.Errorf("delayed-start barrier: %w", err)
		}
	}

	var out bytes.Buffer
	cfg := interp.Config{
		Fabric:             fab,
		Backend:            iobackend.New(),
		GroupSizeOverrides: groupSizes,
		ParamOverrides:     flags.params,
		AgileMode:          flags.agile,
		ParseOnly:          flags.parseOnly,
		Seed:               int64(fab.Rank()) + 1,
		Out:                &out,
		Warn: func(msg string) {
			if fab.Rank() == 0 {
				cclog.Warnf("%s", msg)
			}
		},
	}

	in, err := interp.New(doc, cfg)
	if err != nil {
		return nil, err
	}

	var hb *progress.Heartbeat
	if fab.Rank() == 0 {
		interval := config.ProgressInterval()
		hb, err = progress.New(0, interval, in.Log(), metrics)
		if err == nil {
			_ = hb.Start(interval)
		}
	}

	runErr := in.Run()

	if hb != nil {
		_ = hb.Shutdown()
	}
	if _, err := os.Stdout.Write(out.Bytes()); err != nil {
		cclog.Warnf("writing stdout: %s", err.Error())
	}
	if runErr != nil {
		return nil, runErr
	}

	world, err := fab.NewCommunicator(allRanks(fab.WorldSize()))
	if err != nil {
		return nil, fmt.Errorf("building world communicator for aggregation: %w", err)
	}
	res, err := aggregate.Gather(world, in)
	if err != nil {
		return nil, fmt.Errorf("aggregating results: %w", err)
	}

	// Each rank removes the files it created itself; paths are often
	// templated per rank, so no other rank knows them.
	if flags.cleanup {
		for _, f := range in.CleanupFiles() {
			if err := os.Remove(f); err != nil && !os.IsNotExist(err) {
				cclog.Warnf("cleanup: removing %q: %s", f, err.Error())
			}
		}
		for _, d := range in.CleanupDirs() {
			if err := os.RemoveAll(d); err != nil {
				cclog.Warnf("cleanup: removing %q: %s", d, err.Error())
			}
		}
	}
	return res, nil
}

func waitForSIGUSR1() {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGUSR1)
	cclog.Infof("rank 0: waiting for SIGUSR1 before starting")
	<-sigs
	signal.Stop(sigs)
}

// emitReports writes every configured report from the master's gathered
// result: text to stdout, XML and CSV series to disk, and a run-history
// row into the result store.
func emitReports(flags *cliFlags, res *aggregate.Result, worldSize int) int {
	if res == nil {
		cclog.Errorf("master rank produced no aggregated result")
		return 1
	}

	writeXML := flags.writeXML || flags.silent
	if !flags.silent {
		report.WriteAll(os.Stdout, res)
	}
	if writeXML {
		now := time.Now()
		if err := report.WriteXMLFile(config.Keys.XMLPath, res, now.Format("2006-01-02"), now.Format("15:04:05"), worldSize); err != nil {
			cclog.Errorf("writing xml report: %s", err.Error())
		}
	}
	if err := report.WriteTimeSeriesFiles(config.Keys.TimeSeriesDir, res); err != nil {
		cclog.Errorf("writing time series: %s", err.Error())
	}
	if err := report.WriteCoreTimeSeriesFiles(config.Keys.CoreTimeSeriesDir, res); err != nil {
		cclog.Errorf("writing core time series: %s", err.Error())
	}

	if store, err := resultstore.Open(config.Keys.DBPath); err != nil {
		cclog.Warnf("opening result store: %s", err.Error())
	} else {
		defer store.Close()
		now := time.Now().Unix()
		runRow := &resultstore.Run{
			ScriptPath: flags.scriptPath,
			StartedAt:  now,
			FinishedAt: now,
			WorldSize:  worldSize,
			AgileMode:  flags.agile,
			ParseOnly:  flags.parseOnly,
			OK:         true,
		}
		if err := store.Save(runRow, res); err != nil {
			cclog.Warnf("saving run to result store: %s", err.Error())
		}
	}

	return 0
}

// queryRunHistory serves -list-runs and -show-run against the result
// store without executing any script.
func queryRunHistory(flags *cliFlags) int {
	store, err := resultstore.Open(config.Keys.DBPath)
	if err != nil {
		cclog.Errorf("opening result store: %s", err.Error())
		return 1
	}
	defer store.Close()

	if flags.listRuns {
		runs, err := store.Recent(20)
		if err != nil {
			cclog.Errorf("listing runs: %s", err.Error())
			return 1
		}
		for _, r := range runs {
			fmt.Printf("%d\t%s\t%s\tworld=%d\tok=%v\n",
				r.ID, time.Unix(r.StartedAt, 0).Format(time.RFC3339), r.ScriptPath, r.WorldSize, r.OK)
		}
		return 0
	}

	r, err := store.RunByID(flags.showRun)
	if err != nil {
		cclog.Errorf("loading run %d: %s", flags.showRun, err.Error())
		return 1
	}
	fmt.Printf("run %d: %s started=%s world=%d agile=%v parse-only=%v ok=%v\n",
		r.ID, r.ScriptPath, time.Unix(r.StartedAt, 0).Format(time.RFC3339),
		r.WorldSize, r.AgileMode, r.ParseOnly, r.OK)
	counters, err := store.CountersForRun(r.ID)
	if err != nil {
		cclog.Errorf("loading counters for run %d: %s", r.ID, err.Error())
		return 1
	}
	for _, c := range counters {
		fmt.Printf("  %s: %d successful / %d failed\n", c.Kind, c.Succeed, c.Fail)
	}
	return 0
}

func allRanks(n int) []int {
	r := make([]int, n)
	for i := range r {
		r[i] = i
	}
	return r
}

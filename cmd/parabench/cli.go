// Copyright (C) 2026 parabench contributors.
// All rights reserved. This file is part of parabench.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"flag"
	"fmt"
	"strings"
)

// cliFlags mirrors spec.md §6's flag surface plus the additional knobs the
// expanded spec's domain stack needs (multi-rank driving, config file,
// status server, gops). Repeated `-g NAME[:SIZE]` flags are collected by
// groupSizeFlags through the FlagSet; the PPL script path and `KEY=VALUE`
// overrides are positional and read from the arguments left after it.
type cliFlags struct {
	version   bool
	writeXML  bool
	silent    bool
	cleanup   bool
	parseOnly bool
	agile     bool
	wait      bool

	groupSizes groupSizeFlags

	configFile string
	worldSize  int
	rank       int
	natsURL    string
	statusAddr string
	gops       bool

	listRuns bool
	showRun  int64

	scriptPath string
	params     map[string]string
}

// groupSizeFlags accumulates repeated `-g NAME[:SIZE]` flags.
type groupSizeFlags struct {
	raw []string
}

func (g *groupSizeFlags) String() string { return strings.Join(g.raw, ",") }

func (g *groupSizeFlags) Set(v string) error {
	g.raw = append(g.raw, v)
	return nil
}

// parsed returns the NAME->SIZE map; a flag with no `:SIZE` suffix is
// recorded with size -1, left for the caller to decide a default.
func (g *groupSizeFlags) parsed() (map[string]int, error) {
	out := make(map[string]int, len(g.raw))
	for _, raw := range g.raw {
		name := raw
		size := -1
		if i := strings.IndexByte(raw, ':'); i >= 0 {
			name = raw[:i]
			var err error
			if _, err = fmt.Sscanf(raw[i+1:], "%d", &size); err != nil {
				return nil, fmt.Errorf("invalid -g value %q: %w", raw, err)
			}
		}
		out[name] = size
	}
	return out, nil
}

// parseArgs parses os.Args[1:]-style argv into cliFlags. The first
// positional argument is the script path, whatever it contains; every
// positional argument after it must be a KEY=VALUE override, and any
// other one is an error (spec.md §6).
func parseArgs(argv []string) (*cliFlags, error) {
	fs := flag.NewFlagSet("parabench", flag.ContinueOnError)

	f := &cliFlags{params: make(map[string]string)}
	fs.BoolVar(&f.version, "v", false, "print version and exit")
	fs.BoolVar(&f.writeXML, "e", false, "write XML results")
	fs.BoolVar(&f.silent, "s", false, "silent: implies -e, suppresses text reports")
	fs.BoolVar(&f.cleanup, "c", false, "remove files/directories created during the run on exit")
	fs.BoolVar(&f.parseOnly, "d", false, "parse-only: perform control flow but skip I/O primitives")
	fs.BoolVar(&f.agile, "a", false, "agile: skip sleep statements")
	fs.BoolVar(&f.wait, "w", false, "wait for SIGUSR1 on rank 0 before starting")
	fs.Var(&f.groupSizes, "g", "set group size, NAME[:SIZE] (repeatable)")
	fs.StringVar(&f.configFile, "config", "", "JSON config file overriding internal/config.Keys defaults")
	fs.IntVar(&f.worldSize, "world-size", 1, "number of simulated ranks to run in-process via fabric.Local (ignored with -nats-url)")
	fs.IntVar(&f.rank, "rank", 0, "this process's rank when driven via -nats-url")
	fs.StringVar(&f.natsURL, "nats-url", "", "connect to this NATS server and run as a single real rank instead of simulating -world-size ranks locally")
	fs.StringVar(&f.statusAddr, "status-addr", "", "optional address for the /metrics and /status HTTP server")
	fs.BoolVar(&f.gops, "gops", false, "listen via github.com/google/gops/agent (for debugging)")
	fs.BoolVar(&f.listRuns, "list-runs", false, "list recent runs from the result store and exit")
	fs.Int64Var(&f.showRun, "show-run", 0, "show one stored run's summary by id and exit")

	if err := fs.Parse(argv); err != nil {
		return nil, err
	}

	rest := fs.Args()
	for _, arg := range rest {
		if i := strings.IndexByte(arg, '='); i > 0 && f.scriptPath != "" {
			f.params[arg[:i]] = arg[i+1:]
			continue
		}
		if f.scriptPath == "" {
			f.scriptPath = arg
			continue
		}
		if i := strings.IndexByte(arg, '='); i > 0 {
			f.params[arg[:i]] = arg[i+1:]
		} else {
			return nil, fmt.Errorf("unexpected positional argument %q (expected KEY=VALUE)", arg)
		}
	}

	if !f.version && !f.listRuns && f.showRun == 0 && f.scriptPath == "" {
		return nil, fmt.Errorf("missing PPL script path")
	}
	return f, nil
}

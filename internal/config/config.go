// Copyright (C) 2026 parabench contributors.
// All rights reserved. This file is part of parabench.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package config holds the package-level Keys struct that layers a JSON
// config file over built-in defaults, the way internal/config/config.go
// does for the teacher: a struct literal of defaults, optionally
// overridden by an on-disk JSON document (strict: unknown fields are a
// hard error) before the CLI flags in cmd/parabench apply their own,
// higher-priority overrides.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Keys is the process-wide configuration, populated by Init before any
// other subsystem starts. Unlike the PPL script's own `define` parameters
// (internal/interp's applyDefines, layered name by name), these are
// benchmark-run settings: where results are written, how the optional
// progress/status subsystem behaves, and how to reach a shared NATS server
// when ranks run as separate OS processes.
var Keys = struct {
	TimeSeriesDir     string `json:"time-series-dir"`
	CoreTimeSeriesDir string `json:"core-time-series-dir"`
	XMLPath           string `json:"xml-path"`
	DBPath            string `json:"db-path"`
	ProgressInterval  string `json:"progress-interval"`
	StatusAddr        string `json:"status-addr"`
	NATSURL           string `json:"nats-url"`
}{
	TimeSeriesDir:     "./results",
	CoreTimeSeriesDir: "./results_ct",
	XMLPath:           "./results.xml",
	DBPath:            "./results/parabench.db",
	ProgressInterval:  "5s",
	StatusAddr:        "",
	NATSURL:           "",
}

// Init loads flagConfigFile over the built-in defaults. A missing file is
// not an error — parabench runs fine with only its defaults and CLI flags
// — but a malformed one is fatal, matching the teacher's
// `internal/config.Init` decode-strictness.
func Init(flagConfigFile string) error {
	if flagConfigFile == "" {
		return nil
	}
	raw, err := os.ReadFile(flagConfigFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("config: reading %q: %w", flagConfigFile, err)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&Keys); err != nil {
		return fmt.Errorf("config: decoding %q: %w", flagConfigFile, err)
	}
	return nil
}

// ProgressInterval parses Keys.ProgressInterval, falling back to 5s for an
// empty or malformed value rather than failing the whole run over a
// cosmetic setting.
func ProgressInterval() time.Duration {
	d, err := time.ParseDuration(Keys.ProgressInterval)
	if err != nil || d <= 0 {
		return 5 * time.Second
	}
	return d
}

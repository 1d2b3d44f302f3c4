// Copyright (C) 2026 parabench contributors.
// All rights reserved. This file is part of parabench.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestInitOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"xml-path": "/tmp/other.xml"}`), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	prev := Keys.XMLPath
	defer func() { Keys.XMLPath = prev }()

	if err := Init(path); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if Keys.XMLPath != "/tmp/other.xml" {
		t.Fatalf("XMLPath = %q, want /tmp/other.xml", Keys.XMLPath)
	}
	// untouched keys keep their defaults
	if Keys.CoreTimeSeriesDir != "./results_ct" {
		t.Fatalf("CoreTimeSeriesDir = %q, want default", Keys.CoreTimeSeriesDir)
	}
}

func TestInitRejectsUnknownFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"no-such-key": 1}`), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := Init(path); err == nil {
		t.Fatal("expected an error for an unknown config key")
	}
}

func TestInitMissingFileIsFine(t *testing.T) {
	if err := Init(filepath.Join(t.TempDir(), "nope.json")); err != nil {
		t.Fatalf("Init with a missing file: %v", err)
	}
	if err := Init(""); err != nil {
		t.Fatalf("Init with no file: %v", err)
	}
}

func TestProgressIntervalFallback(t *testing.T) {
	prev := Keys.ProgressInterval
	defer func() { Keys.ProgressInterval = prev }()

	Keys.ProgressInterval = "250ms"
	if got := ProgressInterval(); got != 250*time.Millisecond {
		t.Fatalf("got %v, want 250ms", got)
	}

	Keys.ProgressInterval = "not a duration"
	if got := ProgressInterval(); got != 5*time.Second {
		t.Fatalf("got %v, want the 5s fallback", got)
	}
}

// Copyright (C) 2026 parabench contributors.
// All rights reserved. This file is part of parabench.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package resultstore persists one row per benchmark run (plus its time
// events, core-time events and command counters) into a sqlite3 database,
// so successive `parabench` invocations accumulate a queryable run
// history next to the per-run text/XML/CSV reports internal/report
// produces. Grounded on the teacher's internal/repository package: the
// same sqlx+sqlhooks registration dance, the same golang-migrate+iofs
// embedded-migration pattern, squirrel for query building.
package resultstore

import (
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	cclog "github.com/ClusterCockpit/cc-lib/v2/ccLogger"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	mattnsqlite3 "github.com/mattn/go-sqlite3"
	"github.com/qustavo/sqlhooks/v2"
)

//go:embed migrations/sqlite3/*.sql
var migrationFiles embed.FS

var registerOnce sync.Once

// Store wraps the run-history database connection.
type Store struct {
	db *sqlx.DB
}

// Open creates path's parent directory if needed, registers the
// hook-wrapped sqlite3 driver exactly once per process (sql.Register
// panics on a duplicate name), runs migrations up to the latest version,
// and returns a ready Store.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("resultstore: creating %q: %w", dir, err)
		}
	}

	registerOnce.Do(func() {
		sql.Register("sqlite3WithHooks", sqlhooks.Wrap(&mattnsqlite3.SQLiteDriver{}, &hooks{}))
	})

	db, err := sqlx.Open("sqlite3WithHooks", fmt.Sprintf("%s?_foreign_keys=on", path))
	if err != nil {
		return nil, fmt.Errorf("resultstore: opening %q: %w", path, err)
	}
	// sqlite3 does not support concurrent writers; one connection avoids
	// lock-contention errors under -busy_timeout-less defaults.
	db.SetMaxOpenConns(1)

	if err := migrateUp(db.DB); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func migrateUp(db *sql.DB) error {
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("resultstore: migration driver: %w", err)
	}
	src, err := iofs.New(migrationFiles, "migrations/sqlite3")
	if err != nil {
		return fmt.Errorf("resultstore: migration source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("resultstore: migrate.New: %w", err)
	}
	// Sqlite.Close() closes the *sql.DB it was given via WithInstance,
	// which is the same connection Store keeps using afterwards — do
	// not close m here.

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("resultstore: migrating up: %w", err)
	}
	cclog.Debugf("resultstore: migrations applied")
	return nil
}

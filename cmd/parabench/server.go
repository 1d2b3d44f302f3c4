// Copyright (C) 2026 parabench contributors.
// All rights reserved. This file is part of parabench.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	cclog "github.com/ClusterCockpit/cc-lib/v2/ccLogger"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// statusInfo is the JSON body served at /status: a coarse run snapshot,
// not a replacement for the text/XML reports written at the end of a run.
type statusInfo struct {
	Rank      int    `json:"rank"`
	WorldSize int    `json:"world_size"`
	Script    string `json:"script"`
}

// startStatusServer mounts /metrics (promhttp) and /status on addr and
// serves them in the background. Grounded on cmd/cc-backend/main.go's
// mux.NewRouter + gorilla/handlers middleware chain, trimmed to the two
// routes parabench actually needs.
func startStatusServer(addr string, reg *prometheus.Registry, info statusInfo) *http.Server {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	r.HandleFunc("/status", func(rw http.ResponseWriter, req *http.Request) {
		rw.Header().Set("Content-Type", "application/json")
		json.NewEncoder(rw).Encode(info)
	})

	r.Use(handlers.RecoveryHandler(handlers.PrintRecoveryStack(true)))
	logged := handlers.CustomLoggingHandler(io.Discard, r, func(_ io.Writer, p handlers.LogFormatterParams) {
		cclog.Debugf("%s %s (%d, %dms)", p.Request.Method, p.URL.RequestURI(),
			p.StatusCode, time.Since(p.TimeStamp).Milliseconds())
	})

	srv := &http.Server{
		Addr:         addr,
		Handler:      logged,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			cclog.Errorf("status server: %s", err.Error())
		}
	}()
	return srv
}

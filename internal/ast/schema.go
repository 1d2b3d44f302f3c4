// Copyright (C) 2026 parabench contributors.
// All rights reserved. This file is part of parabench.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ast

import (
	"embed"
	"fmt"
	"io"
	"net/url"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// An embedded JSON Schema compiled once and reused to validate the
// externally-produced AST document before it is decoded, rather than
// discovering malformed input mid-interpretation.

//go:embed schemas/*
var schemaFiles embed.FS

func loadSchemaFile(s string) (io.ReadCloser, error) {
	u, err := url.Parse(s)
	if err != nil {
		return nil, err
	}
	return schemaFiles.Open(u.Host + u.Path)
}

var (
	schemaOnce    sync.Once
	programSchema *jsonschema.Schema
	schemaErr     error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		jsonschema.Loaders["embedfs"] = loadSchemaFile
		programSchema, schemaErr = jsonschema.Compile("embedfs://schemas/program.schema.json")
	})
	return programSchema, schemaErr
}

// Validate checks raw (a decoded JSON document, as produced by the external
// PPL parser) against the embedded program schema.
func Validate(raw any) error {
	s, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("compile AST schema: %w", err)
	}
	if err := s.Validate(raw); err != nil {
		return fmt.Errorf("AST document failed validation: %w", err)
	}
	return nil
}

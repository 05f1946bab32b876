// Airlake - Air Quality Extraction and Analytics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airlake

package database

import (
	"bytes"
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"text/template"
	"time"

	"github.com/tomtom215/airlake/internal/logging"
)

// schemaScriptsTable records schema scripts applied to this file.
const schemaScriptsTable = `
CREATE TABLE IF NOT EXISTS main.schema_scripts (
	name       VARCHAR   PRIMARY KEY,
	checksum   VARCHAR   NOT NULL,
	applied_at TIMESTAMP NOT NULL
);
`

// Script is one SQL file read from a script directory.
type Script struct {
	Name     string
	Body     string
	Checksum string
}

// ScriptParams are the template values available to every script.
type ScriptParams struct {
	RawSchema          string
	PresentationSchema string
}

// ScriptParams returns the template values for this database.
func (db *DB) ScriptParams() ScriptParams {
	return ScriptParams{
		RawSchema:          db.cfg.RawSchema,
		PresentationSchema: db.cfg.PresentationSchema,
	}
}

// ReadScripts returns every *.sql file at the root of fsys, sorted by name.
func ReadScripts(fsys fs.FS) ([]Script, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to list scripts: %w", err)
	}

	var scripts []Script
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != ".sql" {
			continue
		}
		body, err := fs.ReadFile(fsys, e.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to read script %s: %w", e.Name(), err)
		}
		sum := sha256.Sum256(body)
		scripts = append(scripts, Script{
			Name:     e.Name(),
			Body:     string(body),
			Checksum: hex.EncodeToString(sum[:]),
		})
	}
	sort.Slice(scripts, func(i, j int) bool { return scripts[i].Name < scripts[j].Name })
	return scripts, nil
}

// RenderScript executes a script body as a text/template with params.
// Unknown fields are an error so that typos fail before reaching DuckDB.
func RenderScript(s Script, params ScriptParams) (string, error) {
	tmpl, err := template.New(s.Name).Option("missingkey=error").Parse(s.Body)
	if err != nil {
		return "", fmt.Errorf("parse template: %w", err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, params); err != nil {
		return "", fmt.Errorf("render template: %w", err)
	}
	return buf.String(), nil
}

// ExecScript renders s and runs it as one batch inside a transaction.
// Any error is returned as a *ScriptError for phase.
func (db *DB) ExecScript(ctx context.Context, phase string, s Script) error {
	return db.execScript(ctx, phase, s, nil)
}

// execScript runs s in a transaction; after, when set, runs in the same
// transaction once the script succeeded.
func (db *DB) execScript(ctx context.Context, phase string, s Script, after func(*sql.Tx) error) error {
	rendered, err := RenderScript(s, db.ScriptParams())
	if err != nil {
		return &ScriptError{Phase: phase, Script: s.Name, Err: err}
	}
	if strings.TrimSpace(rendered) == "" {
		return nil
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return &ScriptError{Phase: phase, Script: s.Name, Err: fmt.Errorf("begin transaction: %w", err)}
	}
	if _, err := tx.ExecContext(ctx, rendered); err != nil {
		_ = tx.Rollback()
		return &ScriptError{Phase: phase, Script: s.Name, Err: err}
	}
	if after != nil {
		if err := after(tx); err != nil {
			_ = tx.Rollback()
			return &ScriptError{Phase: phase, Script: s.Name, Err: err}
		}
	}
	if err := tx.Commit(); err != nil {
		return &ScriptError{Phase: phase, Script: s.Name, Err: fmt.Errorf("commit: %w", err)}
	}
	return nil
}

// ApplySchema runs the schema scripts in fsys in filename order and records
// each one in main.schema_scripts. Scripts already in the ledger are skipped.
// It returns the number of scripts executed.
func (db *DB) ApplySchema(ctx context.Context, fsys fs.FS) (int, error) {
	scripts, err := ReadScripts(fsys)
	if err != nil {
		return 0, &ScriptError{Phase: "schema", Script: ".", Err: err}
	}

	if _, err := db.conn.ExecContext(ctx, schemaScriptsTable); err != nil {
		return 0, &ScriptError{Phase: "schema", Script: "schema_scripts", Err: err}
	}
	applied, err := db.appliedScripts(ctx)
	if err != nil {
		return 0, err
	}

	executed := 0
	for _, s := range scripts {
		if sum, ok := applied[s.Name]; ok {
			if sum != s.Checksum {
				logging.Warn().
					Str("script", s.Name).
					Str("recorded", sum[:12]).
					Str("current", s.Checksum[:12]).
					Msg("Schema script changed since it was applied; not re-running")
			}
			continue
		}

		start := time.Now()
		err := db.execScript(ctx, "schema", s, func(tx *sql.Tx) error {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO main.schema_scripts (name, checksum, applied_at) VALUES (?, ?, ?)`,
				s.Name, s.Checksum, time.Now().UTC())
			return err
		})
		if err != nil {
			return executed, err
		}
		executed++
		logging.Debug().Str("script", s.Name).Dur("took", time.Since(start)).Msg("Schema script applied")
	}
	return executed, nil
}

// appliedScripts returns name -> checksum for every recorded script.
func (db *DB) appliedScripts(ctx context.Context) (map[string]string, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT name, checksum FROM main.schema_scripts`)
	if err != nil {
		return nil, fmt.Errorf("failed to query applied scripts: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]string)
	for rows.Next() {
		var name, sum string
		if err := rows.Scan(&name, &sum); err != nil {
			return nil, fmt.Errorf("failed to scan applied script: %w", err)
		}
		applied[name] = sum
	}
	return applied, rows.Err()
}

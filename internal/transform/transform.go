// Airlake - Air Quality Extraction and Analytics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airlake

// Package transform builds the presentation layer by running SQL scripts
// against the database in dependency order.
//
// Scripts are named NNN_name.sql. The numeric prefix gives the default
// order; a "-- depends: a, b" line in the leading comment block adds
// explicit edges. Scripts use CREATE OR REPLACE so a rerun is a no-op on
// unchanged data.
package transform

import (
	"context"
	"errors"
	"io/fs"
	"time"

	"github.com/tomtom215/airlake/internal/database"
	"github.com/tomtom215/airlake/internal/logging"
	"github.com/tomtom215/airlake/internal/metrics"
)

// ScriptError reports the transform script that failed.
type ScriptError = database.ScriptError

// ScriptRunner executes one rendered script. *database.DB implements it.
type ScriptRunner interface {
	ExecScript(ctx context.Context, phase string, s database.Script) error
}

// StepResult records one executed step.
type StepResult struct {
	Name     string        `json:"name"`
	Script   string        `json:"script"`
	Duration time.Duration `json:"duration"`
}

// Result lists the steps executed, in order.
type Result struct {
	Executed []StepResult `json:"executed"`
}

// Transformer runs transform scripts.
type Transformer struct {
	runner ScriptRunner
}

// New returns a Transformer executing against runner.
func New(runner ScriptRunner) *Transformer {
	return &Transformer{runner: runner}
}

// Plan loads and orders the scripts in fsys without executing anything.
func Plan(fsys fs.FS) ([]Step, error) {
	steps, err := Load(fsys)
	if err != nil {
		return nil, err
	}
	return Order(steps)
}

// Transform runs every script in fsys in dependency order. Ordering
// problems are reported before any script runs. The first failing script
// stops the sequence with a *ScriptError; the partial Result is returned.
func (t *Transformer) Transform(ctx context.Context, fsys fs.FS) (*Result, error) {
	steps, err := Plan(fsys)
	if err != nil {
		return nil, err
	}

	log := logging.Ctx(ctx)
	log.Info().Int("steps", len(steps)).Msg("Transform started")

	result := &Result{Executed: make([]StepResult, 0, len(steps))}
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		start := time.Now()
		err := t.runner.ExecScript(ctx, "transform", step.Script)
		took := time.Since(start)
		metrics.RecordTransformStep(step.Name, took, err)
		if err != nil {
			var scriptErr *ScriptError
			if !errors.As(err, &scriptErr) {
				err = &ScriptError{Phase: "transform", Script: step.Script.Name, Err: err}
			}
			log.Error().Err(err).Str("step", step.Name).Msg("Transform step failed")
			return result, err
		}

		result.Executed = append(result.Executed, StepResult{
			Name:     step.Name,
			Script:   step.Script.Name,
			Duration: took,
		})
		log.Debug().Str("step", step.Name).Dur("took", took).Msg("Transform step done")
	}

	log.Info().Int("steps", len(result.Executed)).Msg("Transform finished")
	return result, nil
}

// Airlake - Air Quality Extraction and Analytics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airlake

// Package extract pulls monthly archive objects for a set of locations from
// an object store and appends their rows to the raw table.
//
// Fetches run on a bounded worker pool; parsed rows flow through a channel
// to a single writer goroutine because the embedded database accepts one
// writer at a time. Missing objects are skips, everything else that goes
// wrong with a single object is a failure, and neither stops the run.
package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/airlake/internal/config"
	"github.com/tomtom215/airlake/internal/logging"
	"github.com/tomtom215/airlake/internal/metrics"
	"github.com/tomtom215/airlake/internal/models"
	"github.com/tomtom215/airlake/internal/objectstore"
)

// ReadingSink receives configured locations and parsed rows.
// *database.DB implements it.
type ReadingSink interface {
	UpsertLocations(ctx context.Context, locations []models.Location) error
	AppendReadings(ctx context.Context, rows []models.RawReading) (int, error)
}

// Options configure an Extractor. Zero values fall back to defaults.
type Options struct {
	Retry        RetryPolicy
	PathTemplate string
	Workers      int
	BatchSize    int

	// Clock stamps IngestedAt and the report; time.Now when nil.
	Clock func() time.Time
}

// OptionsFromConfig converts the extract section of the configuration.
func OptionsFromConfig(cfg *config.ExtractConfig) Options {
	return Options{
		Retry:        RetryPolicyFromConfig(cfg.Retry),
		PathTemplate: cfg.PathTemplate,
		Workers:      cfg.Workers,
		BatchSize:    cfg.BatchSize,
	}
}

// Extractor runs extraction passes. It is safe to reuse across runs but
// not to run concurrently against the same sink.
type Extractor struct {
	store     objectstore.Store
	sink      ReadingSink
	retry     RetryPolicy
	paths     *PathTemplate
	workers   int
	batchSize int
	clock     func() time.Time
}

// New builds an Extractor reading from store and writing to sink.
func New(store objectstore.Store, sink ReadingSink, opts Options) (*Extractor, error) {
	if store == nil || sink == nil {
		return nil, errors.New("extractor needs a store and a sink")
	}
	tmplText := opts.PathTemplate
	if tmplText == "" {
		tmplText = config.DefaultPathTemplate
	}
	paths, err := NewPathTemplate(tmplText)
	if err != nil {
		return nil, err
	}

	e := &Extractor{
		store:     store,
		sink:      sink,
		retry:     opts.Retry,
		paths:     paths,
		workers:   opts.Workers,
		batchSize: opts.BatchSize,
		clock:     opts.Clock,
	}
	if e.retry.MaxAttempts < 1 {
		e.retry.MaxAttempts = 1
	}
	if e.workers < 1 {
		e.workers = 1
	}
	if e.batchSize < 1 {
		e.batchSize = 5000
	}
	if e.clock == nil {
		e.clock = time.Now
	}
	return e, nil
}

// Plan validates the inputs and returns the tasks Extract would run.
func (e *Extractor) Plan(locations []models.Location, dr models.DateRange) ([]Task, error) {
	if err := config.ValidateLocations(locations); err != nil {
		return nil, err
	}
	if err := dr.Validate(); err != nil {
		return nil, &config.ValidationError{Field: "extract.start", Err: err}
	}
	return Plan(locations, dr, e.paths)
}

// batch is one parsed object on its way to the writer.
type batch struct {
	task Task
	rows []models.RawReading
}

// Extract fetches every (location, month) object in dr and appends the
// rows. The returned error is non-nil only for invalid input, a failing
// sink, or a canceled context; the report is returned in every case where
// the run started.
func (e *Extractor) Extract(ctx context.Context, locations []models.Location, dr models.DateRange) (*Report, error) {
	tasks, err := e.Plan(locations, dr)
	if err != nil {
		return nil, err
	}

	report := &Report{
		RunID:     logging.GenerateRunID(),
		StartedAt: e.clock().UTC(),
		Locations: len(locations),
		Months:    dr.Len(),
		Attempted: len(tasks),
	}
	ctx = logging.ContextWithRunID(ctx, report.RunID)
	log := logging.Ctx(ctx)
	start := time.Now()

	log.Info().
		Int("locations", len(locations)).
		Str("range", dr.String()).
		Int("tasks", len(tasks)).
		Int("workers", e.workers).
		Msg("Extraction started")

	if err := e.sink.UpsertLocations(ctx, locations); err != nil {
		return report, fmt.Errorf("failed to record locations: %w", err)
	}

	rec := newRecorder(report)
	known := models.NewLocationSet(locations)

	runCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	batches := make(chan batch, e.workers)
	writerDone := make(chan error, 1)
	go func() {
		writerDone <- e.write(runCtx, batches, rec, known, cancel)
	}()

	g, gctx := errgroup.WithContext(runCtx)
	g.SetLimit(e.workers)
	for _, task := range tasks {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			return e.runTask(gctx, task, batches, rec)
		})
	}
	_ = g.Wait() // workers only return context errors, surfaced below
	close(batches)
	writeErr := <-writerDone

	if runCtx.Err() != nil {
		reason := "aborted: " + context.Cause(runCtx).Error()
		if n := rec.abortUnsettled(tasks, reason); n > 0 {
			metrics.ExtractTasks.WithLabelValues(metrics.OutcomeFailed).Add(float64(n))
			log.Warn().Int("tasks", n).Msg("Unfinished tasks recorded as aborted")
		}
	}

	report.FinishedAt = e.clock().UTC()
	sortProblems(report.Skipped)
	sortProblems(report.Failed)
	metrics.ExtractRunDuration.Observe(time.Since(start).Seconds())

	switch {
	case ctx.Err() != nil:
		report.Canceled = true
		log.Warn().Object("report", report).Msg("Extraction canceled")
		return report, ctx.Err()
	case writeErr != nil:
		log.Error().Err(writeErr).Object("report", report).Msg("Extraction aborted by write failure")
		return report, writeErr
	}

	log.Info().Object("report", report).Msg("Extraction finished")
	return report, nil
}

// runTask fetches and parses one object and hands the rows to the writer.
// Per-object problems are recorded; only context errors are returned.
func (e *Extractor) runTask(ctx context.Context, task Task, out chan<- batch, rec *recorder) error {
	log := logging.Ctx(ctx).With().
		Int64("location_id", task.Location.ID).
		Str("month", task.Month.String()).
		Logger()

	var rows []models.RawReading
	attempts := 0
	err := e.retry.retry(ctx,
		func() error {
			attempts++
			var fetchErr error
			rows, fetchErr = e.fetch(ctx, task)
			return fetchErr
		},
		func(err error, wait time.Duration) {
			rec.retried()
			metrics.FetchRetries.Inc()
			log.Debug().Err(err).Dur("wait", wait).Msg("Retrying fetch")
		},
	)

	problem := TaskProblem{
		LocationID: task.Location.ID,
		Month:      task.Month,
		Path:       task.Path,
		Attempts:   attempts,
	}
	switch {
	case err == nil:
	case ctx.Err() != nil:
		return ctx.Err()
	case errors.Is(err, objectstore.ErrNotFound):
		problem.Reason = "not found"
		rec.skip(problem)
		metrics.RecordTask(metrics.OutcomeSkipped)
		log.Debug().Str("path", task.Path).Msg("Object not found, skipping")
		return nil
	default:
		problem.Reason = err.Error()
		rec.fail(problem)
		metrics.RecordTask(metrics.OutcomeFailed)
		log.Warn().Err(err).Int("attempts", attempts).Str("path", task.Path).Msg("Object failed")
		return nil
	}

	select {
	case out <- batch{task: task, rows: rows}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// fetch downloads and parses one object.
func (e *Extractor) fetch(ctx context.Context, task Task) ([]models.RawReading, error) {
	body, err := e.store.Fetch(ctx, task.Path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = body.Close() }()

	rows, err := Parse(body, task, e.clock())
	// A body cut off mid-stream is worth another attempt.
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, &objectstore.TransientError{Path: task.Path, Err: err}
	}
	return rows, err
}

// write appends batches in chunks of batchSize. A sink error cancels the
// run; the remaining batches are drained and dropped.
func (e *Extractor) write(ctx context.Context, in <-chan batch, rec *recorder, known models.LocationSet, cancel context.CancelCauseFunc) error {
	var writeErr error
	for b := range in {
		if writeErr != nil {
			continue
		}

		var inserted int64
		for start := 0; start < len(b.rows); start += e.batchSize {
			end := min(start+e.batchSize, len(b.rows))
			n, err := e.sink.AppendReadings(ctx, b.rows[start:end])
			inserted += int64(n)
			if err != nil {
				writeErr = fmt.Errorf("failed to write rows for %s: %w", b.task.Path, err)
				break
			}
		}
		if writeErr != nil {
			rec.fail(TaskProblem{
				LocationID: b.task.Location.ID,
				Month:      b.task.Month,
				Path:       b.task.Path,
				Reason:     writeErr.Error(),
			})
			metrics.RecordTask(metrics.OutcomeFailed)
			cancel(writeErr)
			continue
		}

		var anomalous int64
		for i := range b.rows {
			if !known.Contains(b.rows[i].LocationID) {
				anomalous++
			}
		}
		if anomalous > 0 {
			logging.Ctx(ctx).Warn().
				Str("path", b.task.Path).
				Int64("rows", anomalous).
				Msg("Object contains rows for unconfigured locations")
		}

		rec.loaded(b.task, inserted, anomalous)
		metrics.RecordTask(metrics.OutcomeLoaded)
		metrics.ExtractRowsInserted.Add(float64(inserted))
		metrics.ExtractAnomalousRows.Add(float64(anomalous))
	}
	return writeErr
}

func sortProblems(p []TaskProblem) {
	sort.Slice(p, func(i, j int) bool {
		if p[i].Month != p[j].Month {
			return p[i].Month.Before(p[j].Month)
		}
		return p[i].LocationID < p[j].LocationID
	})
}

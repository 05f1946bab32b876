// Airlake - Air Quality Extraction and Analytics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airlake

package extract

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/airlake/internal/models"
)

// TaskProblem is a skipped or failed object.
type TaskProblem struct {
	LocationID int64        `json:"location_id"`
	Month      models.Month `json:"month"`
	Path       string       `json:"path"`
	Reason     string       `json:"reason"`
	Attempts   int          `json:"attempts"`
}

// Report summarizes one extraction run. Skips are missing objects; failures
// are objects that could not be fetched, parsed or written.
type Report struct {
	RunID         string        `json:"run_id"`
	StartedAt     time.Time     `json:"started_at"`
	FinishedAt    time.Time     `json:"finished_at"`
	Locations     int           `json:"locations"`
	Months        int           `json:"months"`
	Attempted     int           `json:"attempted"`
	Loaded        int           `json:"loaded"`
	RowsInserted  int64         `json:"rows_inserted"`
	AnomalousRows int64         `json:"anomalous_rows"`
	Retries       int           `json:"retries"`
	Skipped       []TaskProblem `json:"skipped,omitempty"`
	Failed        []TaskProblem `json:"failed,omitempty"`
	Canceled      bool          `json:"canceled,omitempty"`
}

// SkippedCount returns the number of missing objects.
func (r *Report) SkippedCount() int {
	return len(r.Skipped)
}

// FailedCount returns the number of objects that failed.
func (r *Report) FailedCount() int {
	return len(r.Failed)
}

// Duration returns the wall time of the run.
func (r *Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// MarshalZerologObject lets the report be logged with Object().
func (r *Report) MarshalZerologObject(e *zerolog.Event) {
	e.Str("run_id", r.RunID).
		Int("attempted", r.Attempted).
		Int("loaded", r.Loaded).
		Int("skipped", r.SkippedCount()).
		Int("failed", r.FailedCount()).
		Int64("rows_inserted", r.RowsInserted).
		Int64("anomalous_rows", r.AnomalousRows).
		Int("retries", r.Retries).
		Dur("duration", r.Duration())
}

// taskKey identifies one planned object.
type taskKey struct {
	locationID int64
	month      models.Month
}

// recorder guards the report while workers and the writer update it. It
// also tracks which tasks reached an outcome so an interrupted run can
// account for the rest.
type recorder struct {
	mu      sync.Mutex
	report  *Report
	settled map[taskKey]struct{}
}

func newRecorder(report *Report) *recorder {
	return &recorder{report: report, settled: make(map[taskKey]struct{}, report.Attempted)}
}

func (rec *recorder) settle(locationID int64, month models.Month) {
	rec.settled[taskKey{locationID: locationID, month: month}] = struct{}{}
}

func (rec *recorder) skip(p TaskProblem) {
	rec.mu.Lock()
	rec.report.Skipped = append(rec.report.Skipped, p)
	rec.settle(p.LocationID, p.Month)
	rec.mu.Unlock()
}

func (rec *recorder) fail(p TaskProblem) {
	rec.mu.Lock()
	rec.report.Failed = append(rec.report.Failed, p)
	rec.settle(p.LocationID, p.Month)
	rec.mu.Unlock()
}

func (rec *recorder) retried() {
	rec.mu.Lock()
	rec.report.Retries++
	rec.mu.Unlock()
}

func (rec *recorder) loaded(task Task, rows, anomalous int64) {
	rec.mu.Lock()
	rec.report.Loaded++
	rec.report.RowsInserted += rows
	rec.report.AnomalousRows += anomalous
	rec.settle(task.Location.ID, task.Month)
	rec.mu.Unlock()
}

// abortUnsettled records every task without an outcome as failed with
// reason, so Attempted always equals Loaded + Skipped + Failed. It returns
// the number of tasks recorded.
func (rec *recorder) abortUnsettled(tasks []Task, reason string) int {
	rec.mu.Lock()
	defer rec.mu.Unlock()

	n := 0
	for _, task := range tasks {
		if _, ok := rec.settled[taskKey{locationID: task.Location.ID, month: task.Month}]; ok {
			continue
		}
		rec.report.Failed = append(rec.report.Failed, TaskProblem{
			LocationID: task.Location.ID,
			Month:      task.Month,
			Path:       task.Path,
			Reason:     reason,
		})
		n++
	}
	return n
}

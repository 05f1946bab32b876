// Airlake - Air Quality Extraction and Analytics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airlake

// Package query builds parameterized WHERE clauses for the presentation views.
package query

import (
	"strings"
	"time"
)

// WhereBuilder collects AND-ed conditions and their arguments.
//
//	wb := query.NewWhereBuilder()
//	wb.AddInt64In("location_id", ids).AddTimeRange("datetime", start, end)
//	where, args := wb.Build()
//	// location_id IN (?, ?) AND datetime >= ? AND datetime < ?
type WhereBuilder struct {
	clauses []string
	args    []interface{}
}

// NewWhereBuilder returns an empty builder.
func NewWhereBuilder() *WhereBuilder {
	return &WhereBuilder{}
}

// AddClause adds a raw condition with its arguments.
func (wb *WhereBuilder) AddClause(clause string, args ...interface{}) *WhereBuilder {
	wb.clauses = append(wb.clauses, clause)
	wb.args = append(wb.args, args...)
	return wb
}

// AddInt64In adds "column IN (...)". An empty list adds nothing.
func (wb *WhereBuilder) AddInt64In(column string, values []int64) *WhereBuilder {
	if len(values) == 0 {
		return wb
	}
	args := make([]interface{}, len(values))
	for i, v := range values {
		args[i] = v
	}
	return wb.addIn(column, args)
}

// AddStringIn adds "column IN (...)". An empty list adds nothing.
func (wb *WhereBuilder) AddStringIn(column string, values []string) *WhereBuilder {
	if len(values) == 0 {
		return wb
	}
	args := make([]interface{}, len(values))
	for i, v := range values {
		args[i] = v
	}
	return wb.addIn(column, args)
}

func (wb *WhereBuilder) addIn(column string, args []interface{}) *WhereBuilder {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(args)), ", ")
	return wb.AddClause(column+" IN ("+placeholders+")", args...)
}

// AddTimeRange adds "column >= start" and "column < end". Zero bounds are
// skipped, so a zero range matches everything.
func (wb *WhereBuilder) AddTimeRange(column string, start, end time.Time) *WhereBuilder {
	if !start.IsZero() {
		wb.AddClause(column+" >= ?", start.UTC())
	}
	if !end.IsZero() {
		wb.AddClause(column+" < ?", end.UTC())
	}
	return wb
}

// Build joins the conditions with AND. It returns "1=1" when empty so the
// result can always follow WHERE.
func (wb *WhereBuilder) Build() (string, []interface{}) {
	if len(wb.clauses) == 0 {
		return "1=1", []interface{}{}
	}
	return strings.Join(wb.clauses, " AND "), wb.args
}

// Count returns the number of conditions.
func (wb *WhereBuilder) Count() int {
	return len(wb.clauses)
}

// Airlake - Air Quality Extraction and Analytics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airlake

package models

import "time"

// APIResponse is the envelope of every query API response.
//
//	{"status":"success","data":[...],"metadata":{"timestamp":"...","query_time_ms":4,"count":20}}
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata describes how a response was produced.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
	Count       int       `json:"count,omitempty"`
}

// APIError carries a machine-readable code and a message.
// Codes: VALIDATION_ERROR, DATABASE_ERROR, NOT_FOUND, RATE_LIMIT_EXCEEDED.
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// HealthStatus is returned by the health endpoints.
type HealthStatus struct {
	Status       string  `json:"status"`
	Database     string  `json:"database,omitempty"`
	UptimeSecs   float64 `json:"uptime_seconds"`
	RawReadings  int64   `json:"raw_readings,omitempty"`
	ViewsReady   bool    `json:"views_ready"`
	DatabasePath string  `json:"database_path,omitempty"`
}

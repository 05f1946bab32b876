// Airlake - Air Quality Extraction and Analytics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airlake

package models

import "time"

// RawReading is one row of raw.air_quality: a single measurement of one
// parameter by one sensor at one instant. Raw rows are append-only and may
// repeat across extraction runs; the presentation layer removes duplicates.
type RawReading struct {
	LocationID   int64     `json:"location_id"`
	SensorID     int64     `json:"sensor_id"`
	LocationName string    `json:"location"`
	Datetime     time.Time `json:"datetime"`
	Latitude     float64   `json:"lat"`
	Longitude    float64   `json:"lon"`
	Parameter    string    `json:"parameter"`
	Units        string    `json:"units"`
	Value        float64   `json:"value"`
	Month        string    `json:"month"`
	Year         int       `json:"year"`
	IngestedAt   time.Time `json:"ingested_at"`
}

// Reading is a row of presentation.readings_deduplicated.
type Reading struct {
	LocationID    int64     `json:"location_id"`
	SensorID      int64     `json:"sensor_id"`
	LocationName  string    `json:"location"`
	Datetime      time.Time `json:"datetime"`
	Latitude      float64   `json:"lat"`
	Longitude     float64   `json:"lon"`
	Parameter     string    `json:"parameter"`
	Units         string    `json:"units"`
	Value         float64   `json:"value"`
	KnownLocation bool      `json:"known_location"`
}

// LatestValue is the most recent reading per (location, parameter).
type LatestValue struct {
	LocationID   int64     `json:"location_id"`
	LocationName string    `json:"location"`
	Parameter    string    `json:"parameter"`
	Units        string    `json:"units"`
	Value        float64   `json:"value"`
	Datetime     time.Time `json:"datetime"`
}

// DailyAggregate summarizes one (location, parameter, day).
type DailyAggregate struct {
	LocationID   int64     `json:"location_id"`
	LocationName string    `json:"location"`
	Parameter    string    `json:"parameter"`
	Units        string    `json:"units"`
	Day          time.Time `json:"day"`
	Mean         float64   `json:"mean"`
	Min          float64   `json:"min"`
	Max          float64   `json:"max"`
	Count        int64     `json:"count"`
}

// LocationAnomaly reports raw rows whose location_id is not configured.
type LocationAnomaly struct {
	LocationID int64     `json:"location_id"`
	SensorID   int64     `json:"sensor_id"`
	Rows       int64     `json:"rows"`
	FirstSeen  time.Time `json:"first_seen"`
	LastSeen   time.Time `json:"last_seen"`
}

// RecordCounts holds table and view sizes for status output.
type RecordCounts struct {
	RawReadings          int64 `json:"raw_readings"`
	Locations            int64 `json:"locations"`
	DeduplicatedReadings int64 `json:"deduplicated_readings"`
}

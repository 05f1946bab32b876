// Airlake - Air Quality Extraction and Analytics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airlake

package models

import "fmt"

// Location is a physical monitoring site from the operator's location list.
// One location may host several sensors, each reporting several parameters.
// Locations are immutable for the duration of a run.
type Location struct {
	ID        int64   `json:"id" koanf:"id" validate:"required,gt=0"`
	Name      string  `json:"name" koanf:"name" validate:"required"`
	Latitude  float64 `json:"latitude" koanf:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `json:"longitude" koanf:"longitude" validate:"gte=-180,lte=180"`
}

// String returns "name (id)".
func (l Location) String() string {
	return fmt.Sprintf("%s (%d)", l.Name, l.ID)
}

// LocationSet indexes locations by ID.
type LocationSet map[int64]Location

// NewLocationSet builds a set from a list. Later duplicates overwrite earlier
// ones; validation rejects duplicates before this is reached.
func NewLocationSet(locations []Location) LocationSet {
	set := make(LocationSet, len(locations))
	for _, l := range locations {
		set[l.ID] = l
	}
	return set
}

// Contains reports whether id is a configured location.
func (s LocationSet) Contains(id int64) bool {
	_, ok := s[id]
	return ok
}

// Airlake - Air Quality Extraction and Analytics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airlake

package config

import (
	"fmt"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/tomtom215/airlake/internal/models"
	"github.com/tomtom215/airlake/internal/validation"
)

// LoadLocations reads the operator's location list from a YAML file:
//
//	locations:
//	  - id: 2178
//	    name: Del Norte
//	    latitude: 35.1353
//	    longitude: -106.5847
//
// The list is validated before it is returned.
func LoadLocations(path string) ([]models.Location, error) {
	if path == "" {
		return nil, invalid("extract.locations_file", "LOCATIONS_FILE is required")
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load locations file %s: %w", path, err)
	}

	var locations []models.Location
	if err := k.Unmarshal("locations", &locations); err != nil {
		return nil, fmt.Errorf("failed to decode locations in %s: %w", path, err)
	}

	if err := ValidateLocations(locations); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return locations, nil
}

// ValidateLocations checks every location and rejects an empty list or
// duplicate IDs.
func ValidateLocations(locations []models.Location) error {
	if len(locations) == 0 {
		return invalid("locations", "at least one location is required")
	}
	seen := make(map[int64]int, len(locations))
	for i := range locations {
		l := &locations[i]
		if err := validation.Struct(l); err != nil {
			return &ValidationError{Field: fmt.Sprintf("locations[%d]", i), Err: err}
		}
		if prev, dup := seen[l.ID]; dup {
			return invalid(fmt.Sprintf("locations[%d].id", i), "duplicate location id %d (also at index %d)", l.ID, prev)
		}
		seen[l.ID] = i
	}
	return nil
}

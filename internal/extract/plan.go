// Airlake - Air Quality Extraction and Analytics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airlake

package extract

import (
	"github.com/tomtom215/airlake/internal/models"
)

// Task is one (location, month) object to fetch.
type Task struct {
	Location models.Location
	Month    models.Month
	Path     string
}

// Plan enumerates every location for every month in dr, month-major so that
// a run progresses through time. Paths are deterministic for a given
// template, location and month.
func Plan(locations []models.Location, dr models.DateRange, paths *PathTemplate) ([]Task, error) {
	months := dr.Months()
	tasks := make([]Task, 0, len(locations)*len(months))
	for _, m := range months {
		for _, loc := range locations {
			p, err := paths.Render(loc, m)
			if err != nil {
				return nil, err
			}
			tasks = append(tasks, Task{Location: loc, Month: m, Path: p})
		}
	}
	return tasks, nil
}

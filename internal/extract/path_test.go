// Airlake - Air Quality Extraction and Analytics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airlake

package extract

import (
	"testing"
	"time"

	"github.com/tomtom215/airlake/internal/config"
	"github.com/tomtom215/airlake/internal/models"
)

func TestPathTemplate_Default(t *testing.T) {
	p, err := NewPathTemplate(config.DefaultPathTemplate)
	if err != nil {
		t.Fatalf("NewPathTemplate: %v", err)
	}
	got, err := p.Render(locA, models.Month{Year: 2024, Month: time.March})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	want := "records/csv.gz/locationid=2178/year=2024/month=03/location-2178-202403.csv.gz"
	if got != want {
		t.Errorf("Render = %q, want %q", got, want)
	}
}

func TestPathTemplate_Errors(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		parseErr bool
	}{
		{"empty", "  ", true},
		{"unclosed action", "records/{{.LocationID", true},
		{"unknown field", "records/{{.Station}}.csv", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewPathTemplate(tt.text)
			if tt.parseErr {
				if err == nil {
					t.Fatal("expected parse error")
				}
				return
			}
			if err != nil {
				t.Fatalf("NewPathTemplate: %v", err)
			}
			if _, err := p.Render(locA, models.Month{Year: 2024, Month: time.January}); err == nil {
				t.Error("expected render error")
			}
		})
	}
}

func TestPlan(t *testing.T) {
	p, err := NewPathTemplate("{{.LocationID}}/{{.Year}}-{{.MonthPadded}}")
	if err != nil {
		t.Fatal(err)
	}
	dr := mustRange(t, "2023-11", "2024-02")

	tasks, err := Plan([]models.Location{locA, locB}, dr, p)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(tasks) != 2*4 {
		t.Fatalf("len(tasks) = %d, want 8", len(tasks))
	}

	want := []string{
		"2178/2023-11", "8118/2023-11",
		"2178/2023-12", "8118/2023-12",
		"2178/2024-01", "8118/2024-01",
		"2178/2024-02", "8118/2024-02",
	}
	for i, task := range tasks {
		if task.Path != want[i] {
			t.Errorf("tasks[%d].Path = %q, want %q", i, task.Path, want[i])
		}
	}

	again, err := Plan([]models.Location{locA, locB}, dr, p)
	if err != nil {
		t.Fatal(err)
	}
	for i := range tasks {
		if tasks[i] != again[i] {
			t.Errorf("plan is not deterministic at %d", i)
		}
	}
}

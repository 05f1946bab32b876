// Airlake - Air Quality Extraction and Analytics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airlake

package transform

import (
	"errors"
	"reflect"
	"testing"
	"testing/fstest"

	"github.com/tomtom215/airlake/scripts"
)

func mapFS(files map[string]string) fstest.MapFS {
	fsys := fstest.MapFS{}
	for name, body := range files {
		fsys[name] = &fstest.MapFile{Data: []byte(body)}
	}
	return fsys
}

func stepNames(steps []Step) []string {
	names := make([]string, len(steps))
	for i, s := range steps {
		names[i] = s.Name
	}
	return names
}

func TestPlan_Order(t *testing.T) {
	tests := []struct {
		name  string
		files map[string]string
		want  []string
	}{
		{
			name: "filename order without directives",
			files: map[string]string{
				"010_c.sql": "SELECT 3;",
				"001_a.sql": "SELECT 1;",
				"002_b.sql": "SELECT 2;",
			},
			want: []string{"a", "b", "c"},
		},
		{
			name: "dependency overrides filename order",
			files: map[string]string{
				"001_report.sql": "-- depends: base\nSELECT 1;",
				"002_base.sql":   "SELECT 2;",
			},
			want: []string{"base", "report"},
		},
		{
			name: "diamond breaks ties by filename",
			files: map[string]string{
				"001_top.sql":    "-- depends: left, right\nSELECT 1;",
				"002_right.sql":  "-- depends: bottom\nSELECT 1;",
				"003_left.sql":   "-- depends: bottom\nSELECT 1;",
				"004_bottom.sql": "SELECT 1;",
				"005_other.sql":  "SELECT 1;",
			},
			want: []string{"bottom", "right", "left", "top", "other"},
		},
		{
			name: "directive after leading comments",
			files: map[string]string{
				"001_b.sql": "-- builds b\n\n-- depends: a\nSELECT 1;",
				"002_a.sql": "SELECT 1;\n-- depends: b",
			},
			want: []string{"a", "b"},
		},
		{
			name:  "non-sql files ignored",
			files: map[string]string{"001_a.sql": "SELECT 1;", "README.md": "notes"},
			want:  []string{"a"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			steps, err := Plan(mapFS(tt.files))
			if err != nil {
				t.Fatalf("Plan: %v", err)
			}
			if got := stepNames(steps); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("order = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPlan_Errors(t *testing.T) {
	tests := []struct {
		name  string
		files map[string]string
		want  error
	}{
		{"cycle", map[string]string{
			"001_a.sql": "-- depends: c\nSELECT 1;",
			"002_b.sql": "-- depends: a\nSELECT 1;",
			"003_c.sql": "-- depends: b\nSELECT 1;",
		}, ErrCycle},
		{"self dependency", map[string]string{"001_a.sql": "-- depends: a\nSELECT 1;"}, ErrCycle},
		{"unknown dependency", map[string]string{"001_a.sql": "-- depends: missing\nSELECT 1;"}, ErrUnknownDependency},
		{"no numeric prefix", map[string]string{"views.sql": "SELECT 1;"}, ErrInvalidScriptName},
		{"uppercase name", map[string]string{"001_Views.sql": "SELECT 1;"}, ErrInvalidScriptName},
		{"duplicate step", map[string]string{"001_a.sql": "SELECT 1;", "002_a.sql": "SELECT 2;"}, ErrDuplicateStep},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Plan(mapFS(tt.files))
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestParseDepends(t *testing.T) {
	got := parseDepends("-- depends: a, b ,c\n-- depends: d\nSELECT 1;")
	want := []string{"a", "b", "c", "d"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("parseDepends = %v, want %v", got, want)
	}
	if deps := parseDepends("SELECT 1;"); deps != nil {
		t.Errorf("expected no deps, got %v", deps)
	}
}

func TestPlan_BuiltinScripts(t *testing.T) {
	steps, err := Plan(scripts.Transform())
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	want := []string{"readings_deduplicated", "latest_param_values", "daily_air_quality_stats", "location_anomalies"}
	if got := stepNames(steps); !reflect.DeepEqual(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}
}

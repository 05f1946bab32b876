// Airlake - Air Quality Extraction and Analytics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airlake

package extract

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/tomtom215/airlake/internal/models"
)

// PathTemplate renders the object path for a (location, month) pair.
//
// Available fields: .LocationID, .LocationName, .Year, .Month (1-12) and
// .MonthPadded ("01"-"12").
type PathTemplate struct {
	tmpl *template.Template
}

type pathData struct {
	LocationID   int64
	LocationName string
	Year         int
	Month        int
	MonthPadded  string
}

// NewPathTemplate parses text. Unknown fields fail at render time.
func NewPathTemplate(text string) (*PathTemplate, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("path template is empty")
	}
	tmpl, err := template.New("path").Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("invalid path template: %w", err)
	}
	return &PathTemplate{tmpl: tmpl}, nil
}

// Render returns the object path for loc and month.
func (p *PathTemplate) Render(loc models.Location, month models.Month) (string, error) {
	var sb strings.Builder
	err := p.tmpl.Execute(&sb, pathData{
		LocationID:   loc.ID,
		LocationName: loc.Name,
		Year:         month.Year,
		Month:        int(month.Month),
		MonthPadded:  fmt.Sprintf("%02d", int(month.Month)),
	})
	if err != nil {
		return "", fmt.Errorf("failed to render path for %s %s: %w", loc, month, err)
	}
	return sb.String(), nil
}

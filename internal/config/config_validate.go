// Airlake - Air Quality Extraction and Analytics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airlake

package config

import (
	"errors"
	"fmt"
	"strings"
	"text/template"

	"github.com/tomtom215/airlake/internal/logging"
	"github.com/tomtom215/airlake/internal/models"
	"github.com/tomtom215/airlake/internal/validation"
)

// ValidationError is a configuration error. It is always fatal and is
// reported before any I/O takes place.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func invalid(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Err: fmt.Errorf(format, args...)}
}

// Validate checks struct tag rules first, then cross-field rules per section.
func (c *Config) Validate() error {
	if err := validation.Struct(c); err != nil {
		return &ValidationError{Field: "config", Err: err}
	}
	if err := c.validateSource(); err != nil {
		return err
	}
	if err := c.validateExtract(); err != nil {
		return err
	}
	return c.validateLogging()
}

// validateSource requires the location of the archive for the selected kind.
func (c *Config) validateSource() error {
	switch c.Source.Kind {
	case "http":
		if c.Source.BaseURL == "" {
			return invalid("source.base_url", "SOURCE_BASE_URL is required when SOURCE_KIND=http")
		}
		if err := validateHTTPURL(c.Source.BaseURL, "SOURCE_BASE_URL"); err != nil {
			return &ValidationError{Field: "source.base_url", Err: err}
		}
	case "dir":
		if c.Source.Root == "" {
			return invalid("source.root", "SOURCE_ROOT is required when SOURCE_KIND=dir")
		}
	}
	return nil
}

// validateExtract checks the date bounds, the retry schedule and the path template.
func (c *Config) validateExtract() error {
	e := c.Extract
	if (e.Start == "") != (e.End == "") {
		return invalid("extract.start", "EXTRACT_START and EXTRACT_END must be set together")
	}
	if e.Start != "" {
		if _, err := e.DateRange(); err != nil {
			return &ValidationError{Field: "extract.start", Err: err}
		}
	}

	if e.Retry.MaxInterval > 0 && e.Retry.MaxInterval < e.Retry.InitialInterval {
		return invalid("extract.retry.max_interval", "RETRY_MAX_INTERVAL (%s) is shorter than RETRY_INITIAL_INTERVAL (%s)",
			e.Retry.MaxInterval, e.Retry.InitialInterval)
	}

	if _, err := template.New("path").Option("missingkey=error").Parse(e.PathTemplate); err != nil {
		return &ValidationError{Field: "extract.path_template", Err: err}
	}
	if !strings.Contains(e.PathTemplate, ".LocationID") {
		return invalid("extract.path_template", "EXTRACT_PATH_TEMPLATE must reference {{.LocationID}}")
	}
	return nil
}

// validateLogging checks LOG_LEVEL.
func (c *Config) validateLogging() error {
	if c.Logging.Level != "" && !logging.ValidLevel(c.Logging.Level) {
		return invalid("logging.level", "LOG_LEVEL must be one of trace, debug, info, warn, error; got %q", c.Logging.Level)
	}
	return nil
}

// DateRange parses Start and End. Both must be set.
func (e ExtractConfig) DateRange() (models.DateRange, error) {
	if e.Start == "" || e.End == "" {
		return models.DateRange{}, errors.New("start and end months are required")
	}
	return models.ParseDateRange(e.Start, e.End)
}

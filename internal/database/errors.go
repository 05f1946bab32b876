// Airlake - Air Quality Extraction and Analytics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airlake

package database

import (
	"fmt"
	"io"

	"github.com/tomtom215/airlake/internal/logging"
)

// ScriptError reports a SQL script that failed. Phase is "schema" for
// database creation and "transform" for presentation builds.
type ScriptError struct {
	Phase  string
	Script string
	Err    error
}

func (e *ScriptError) Error() string {
	return fmt.Sprintf("%s script %s failed: %v", e.Phase, e.Script, e.Err)
}

func (e *ScriptError) Unwrap() error {
	return e.Err
}

// closeWithLog closes a resource and logs a failure instead of returning it.
func closeWithLog(closer io.Closer, resourceType string) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		logging.Warn().Str("type", resourceType).Err(err).Msg("Failed to close resource")
	}
}

// closeQuietly closes a resource on an error path where the close error is
// not actionable.
func closeQuietly(closer io.Closer) {
	if closer != nil {
		_ = closer.Close()
	}
}

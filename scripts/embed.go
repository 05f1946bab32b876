// Airlake - Air Quality Extraction and Analytics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airlake

// Package scripts embeds the built-in SQL scripts. Schema scripts build the
// raw layer; transform scripts build the presentation views over it.
//
// Scripts are text/template documents rendered with the schema names from
// the database configuration ({{.RawSchema}}, {{.PresentationSchema}}).
package scripts

import (
	"embed"
	"io/fs"
	"os"
)

//go:embed schema/*.sql transform/*.sql
var files embed.FS

// Schema returns the built-in schema scripts.
func Schema() fs.FS {
	return mustSub("schema")
}

// Transform returns the built-in presentation scripts.
func Transform() fs.FS {
	return mustSub("transform")
}

// Dir returns the scripts in dir on disk, or fallback when dir is empty.
func Dir(dir string, fallback fs.FS) fs.FS {
	if dir == "" {
		return fallback
	}
	return os.DirFS(dir)
}

func mustSub(dir string) fs.FS {
	sub, err := fs.Sub(files, dir)
	if err != nil {
		panic(err) // only reachable if the embed pattern above changes
	}
	return sub
}

// Copyright 2025 3 Leaps, LLC
// Licensed under the Apache License, Version 2.0

package output

import (
	"encoding/json"
	"io"

	"github.com/3leaps/taintsentry/internal/types"
)

// JSONFormatter formats reports as JSON.
//
// A run over a single file is written as that file's result object (or its
// {error, file} object). Runs over several files are wrapped in
// {run_id, files[], summary}. Set Batch to always use the wrapped shape.
type JSONFormatter struct {
	Indent bool
	Batch  bool
}

// NewJSONFormatter creates a new JSON formatter.
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{Indent: true}
}

// Format writes a JSON report.
func (f *JSONFormatter) Format(w io.Writer, report *types.Report) error {
	encoder := json.NewEncoder(w)
	if f.Indent {
		encoder.SetIndent("", "  ")
	}
	if !f.Batch && len(report.Files) == 1 {
		return encoder.Encode(report.Files[0])
	}
	return encoder.Encode(report)
}

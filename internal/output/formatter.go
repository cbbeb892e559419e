// Package output provides formatters for taintsentry analysis reports.
//
// Copyright 2025 3 Leaps, LLC
// Licensed under the Apache License, Version 2.0

package output

import (
	"fmt"
	"io"

	"github.com/3leaps/taintsentry/internal/types"
)

// Formatter formats a report for output.
type Formatter interface {
	Format(w io.Writer, report *types.Report) error
}

// Format names an output format.
type Format string

const (
	FormatText  Format = "text"
	FormatJSON  Format = "json"
	FormatSARIF Format = "sarif"
)

// Options configure formatter construction.
type Options struct {
	// Color enables ANSI colors in text output.
	Color bool
}

// New returns the formatter for the named format.
func New(format string, opts Options) (Formatter, error) {
	switch Format(format) {
	case FormatText, "":
		return NewTextFormatter(opts.Color), nil
	case FormatJSON:
		return NewJSONFormatter(), nil
	case FormatSARIF:
		return NewSARIFFormatter(), nil
	default:
		return nil, fmt.Errorf("unknown output format %q (want text, json or sarif)", format)
	}
}

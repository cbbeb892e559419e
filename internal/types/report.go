// Copyright 2025 3 Leaps, LLC
// Licensed under the Apache License, Version 2.0

package types

import (
	"encoding/json"
)

// FileResult is the outcome for one file of a run: a result or an error,
// never both.
type FileResult struct {
	Result *Result
	Err    *AnalysisError
}

// Path returns the file the entry refers to.
func (fr FileResult) Path() string {
	if fr.Err != nil {
		return fr.Err.File
	}
	if fr.Result != nil {
		return fr.Result.File
	}
	return ""
}

// MarshalJSON encodes the entry as either the result or the error object.
func (fr FileResult) MarshalJSON() ([]byte, error) {
	if fr.Err != nil {
		return json.Marshal(fr.Err)
	}
	return json.Marshal(fr.Result)
}

// Report is the output of a batch run over one or more files.
type Report struct {
	// RunID identifies this run.
	RunID string `json:"run_id"`

	// ToolVersion is the taintsentry version that produced the report.
	ToolVersion string `json:"tool_version,omitempty"`

	// Files holds one entry per input file, in input order.
	Files []FileResult `json:"files"`

	// Summary counts findings across all files.
	Summary Summary `json:"summary"`

	// Errors counts files that failed analysis.
	Errors int `json:"errors"`

	// Skipped lists files left out of the run, such as oversize files.
	Skipped []string `json:"skipped,omitempty"`
}

// NewReport creates an empty report.
func NewReport(runID, version string) *Report {
	return &Report{
		RunID:       runID,
		ToolVersion: version,
		Files:       []FileResult{},
	}
}

// AddResult appends a successful file result.
func (r *Report) AddResult(res *Result) {
	r.Files = append(r.Files, FileResult{Result: res})
	r.Summary.Merge(res.Summary)
}

// AddError appends a failed file.
func (r *Report) AddError(err *AnalysisError) {
	r.Files = append(r.Files, FileResult{Err: err})
	r.Errors++
}

// AddSkipped records a file that was not analyzed.
func (r *Report) AddSkipped(path string) {
	r.Skipped = append(r.Skipped, path)
}

// TotalFindings counts findings across all files.
func (r *Report) TotalFindings() int {
	n := 0
	for _, fr := range r.Files {
		if fr.Result != nil {
			n += fr.Result.TotalFindings
		}
	}
	return n
}

// MaxSeverity returns the most severe finding across all files.
func (r *Report) MaxSeverity() Severity {
	var best Severity
	for _, fr := range r.Files {
		if fr.Result == nil {
			continue
		}
		if s := fr.Result.MaxSeverity(); s.Rank() > best.Rank() {
			best = s
		}
	}
	return best
}

// OnlyHeuristic reports whether every finding in the run came from the
// heuristic engine. It is false when there are no findings.
func (r *Report) OnlyHeuristic() bool {
	seen := false
	for _, fr := range r.Files {
		if fr.Result == nil {
			continue
		}
		for _, f := range fr.Result.Findings {
			if f.Confidence != ConfidenceHeuristic {
				return false
			}
			seen = true
		}
	}
	return seen
}

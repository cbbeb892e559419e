// Package types defines core types for taintsentry.
//
// Copyright 2025 3 Leaps, LLC
// Licensed under the Apache License, Version 2.0

package types

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Severity levels for findings, aligned with exit codes.
type Severity string

const (
	SeverityCritical Severity = "critical" // Exit code 3
	SeverityHigh     Severity = "high"     // Exit code 2
	SeverityMedium   Severity = "medium"   // Exit code 2
	SeverityLow      Severity = "low"      // Exit code 1
)

// Rank orders severities from least (0) to most severe.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// Engine identifies which backend produced a result.
type Engine string

const (
	EngineAST       Engine = "ast"       // Precise syntax-tree walk
	EngineHeuristic Engine = "heuristic" // Line-based text matching
)

// Confidence marks how a finding was derived.
type Confidence string

const (
	ConfidencePrecise   Confidence = "precise"
	ConfidenceHeuristic Confidence = "heuristic"
)

// Language is a normalized language tag.
type Language string

const (
	LanguagePython     Language = "python"
	LanguageShell      Language = "shell"
	LanguageJavaScript Language = "javascript"
	LanguageTypeScript Language = "typescript"
	LanguagePHP        Language = "php"
	LanguageRuby       Language = "ruby"
	LanguageUnknown    Language = "unknown"
)

// GlobalScope is reported as the enclosing function for top-level code.
const GlobalScope = "global"

// FunctionName is the enclosing function of a finding.
// The empty value encodes as JSON null (no scope information).
type FunctionName string

// MarshalJSON implements json.Marshaler.
func (f FunctionName) MarshalJSON() ([]byte, error) {
	if f == "" {
		return []byte("null"), nil
	}
	return json.Marshal(string(f))
}

// Finding represents a single tainted flow into a sink.
type Finding struct {
	// Kind is the vulnerability category.
	Kind VulnerabilityKind `json:"type"`

	// Severity indicates the risk level.
	Severity Severity `json:"severity"`

	// Line is the 1-based line number of the sink call.
	Line int `json:"line"`

	// Column is the 1-based column of the sink call, or 0 when the engine
	// only knows the line.
	Column int `json:"column,omitempty"`

	// Function is the enclosing function, "global" at top level,
	// or empty when the engine has no scope information.
	Function FunctionName `json:"function"`

	// TaintedVars lists the tainted variables reaching the sink, sorted.
	TaintedVars []string `json:"tainted_vars"`

	// Sink is the matched sink signature.
	Sink string `json:"sink"`

	// Message is a human-readable description.
	Message string `json:"message"`

	// Recommendation suggests remediation.
	Recommendation string `json:"recommendation"`

	// Code is the raw source line (heuristic findings only).
	Code string `json:"code,omitempty"`

	// Confidence tells precise findings apart from heuristic ones.
	Confidence Confidence `json:"confidence"`
}

// Summary counts findings by severity.
type Summary struct {
	Critical int `json:"critical"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
	Low      int `json:"low"`
}

// Add counts one finding of the given severity.
func (s *Summary) Add(sev Severity) {
	switch sev {
	case SeverityCritical:
		s.Critical++
	case SeverityHigh:
		s.High++
	case SeverityMedium:
		s.Medium++
	case SeverityLow:
		s.Low++
	}
}

// Merge adds the counts of other into s.
func (s *Summary) Merge(other Summary) {
	s.Critical += other.Critical
	s.High += other.High
	s.Medium += other.Medium
	s.Low += other.Low
}

// Result is the analysis output for one source unit.
type Result struct {
	// File is the path hint of the analyzed unit.
	File string `json:"file"`

	// Language is the resolved language.
	Language Language `json:"language"`

	// Engine is the backend that produced the findings.
	Engine Engine `json:"engine"`

	// TaintedVariables is the final tainted set, sorted.
	TaintedVariables []string `json:"tainted_variables"`

	// Findings lists detected flows in discovery order.
	Findings []Finding `json:"issues"`

	// TotalFindings is len(Findings).
	TotalFindings int `json:"total_issues"`

	// Summary counts findings by severity.
	Summary Summary `json:"-"`

	// seenFindingKeys prevents the same finding being reported twice.
	seenFindingKeys map[string]struct{}
}

// NewResult creates an empty result for the given unit.
func NewResult(file string, lang Language, engine Engine) *Result {
	return &Result{
		File:             file,
		Language:         lang,
		Engine:           engine,
		TaintedVariables: []string{},
		Findings:         []Finding{},
		seenFindingKeys:  make(map[string]struct{}),
	}
}

// AddFinding adds a finding and updates the totals.
func (r *Result) AddFinding(f Finding) {
	if r.seenFindingKeys == nil {
		r.seenFindingKeys = make(map[string]struct{})
	}

	key := fmt.Sprintf("%s|%s|%d:%d|%v", f.Kind, f.Sink, f.Line, f.Column, f.TaintedVars)
	if _, ok := r.seenFindingKeys[key]; ok {
		return
	}

	r.seenFindingKeys[key] = struct{}{}
	r.Findings = append(r.Findings, f)
	r.TotalFindings = len(r.Findings)
	r.Summary.Add(f.Severity)
}

// SetTainted records the final tainted set in sorted order.
func (r *Result) SetTainted(names []string) {
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)
	if sorted == nil {
		sorted = []string{}
	}
	r.TaintedVariables = sorted
}

// MaxSeverity returns the most severe finding severity, or "" when clean.
func (r *Result) MaxSeverity() Severity {
	var best Severity
	for _, f := range r.Findings {
		if f.Severity.Rank() > best.Rank() {
			best = f.Severity
		}
	}
	return best
}

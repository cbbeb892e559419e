// Copyright 2025 3 Leaps, LLC
// Licensed under the Apache License, Version 2.0

package types

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrorCode classifies an analysis failure.
type ErrorCode string

const (
	CodeUnsupportedLanguage ErrorCode = "unsupported-language"
	CodeParseError          ErrorCode = "parse-error"
	CodeEmptyInput          ErrorCode = "empty-input"
	CodeInternal            ErrorCode = "internal-error"
)

// Sentinels for errors.Is against an *AnalysisError.
var (
	ErrUnsupportedLanguage = errors.New("unsupported language")
	ErrParse               = errors.New("parse error")
	ErrEmptyInput          = errors.New("empty input")
	ErrInternal            = errors.New("internal error")
)

// AnalysisError is the terminal error for one analyzed unit.
// No findings are produced for a unit that fails.
type AnalysisError struct {
	Code   ErrorCode
	File   string
	Line   int
	Column int
	Detail string
}

func (e *AnalysisError) Error() string {
	switch {
	case e.Code == CodeParseError && e.Line > 0:
		return fmt.Sprintf("%s: syntax error at line %d, column %d: %s", e.File, e.Line, e.Column, e.Detail)
	case e.Detail != "":
		return fmt.Sprintf("%s: %s: %s", e.File, e.Code, e.Detail)
	default:
		return fmt.Sprintf("%s: %s", e.File, e.Code)
	}
}

// Is matches the package sentinels by code.
func (e *AnalysisError) Is(target error) bool {
	switch target {
	case ErrUnsupportedLanguage:
		return e.Code == CodeUnsupportedLanguage
	case ErrParse:
		return e.Code == CodeParseError
	case ErrEmptyInput:
		return e.Code == CodeEmptyInput
	case ErrInternal:
		return e.Code == CodeInternal
	}
	return false
}

// MarshalJSON encodes the error in the report shape {"error": ..., "file": ...}.
func (e *AnalysisError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Error string    `json:"error"`
		Code  ErrorCode `json:"code"`
		File  string    `json:"file"`
		Line  int       `json:"line,omitempty"`
		Col   int       `json:"column,omitempty"`
	}{
		Error: e.Error(),
		Code:  e.Code,
		File:  e.File,
		Line:  e.Line,
		Col:   e.Column,
	})
}

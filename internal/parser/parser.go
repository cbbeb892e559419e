// Package parser lowers source text into the ir syntax tree.
//
// Python is parsed with tree-sitter and shell with mvdan/sh. Both front ends
// fail closed: a syntax error returns a *ParseError and no tree.
//
// Copyright 2025 3 Leaps, LLC
// Licensed under the Apache License, Version 2.0

package parser

import (
	"fmt"
	"math"
)

// ParseError represents a parsing error with location information.
type ParseError struct {
	Line    int
	Column  int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d, column %d: %s", e.Line, e.Column, e.Message)
}

func uintToInt(u uint) int {
	if u > uint(math.MaxInt) {
		return math.MaxInt
	}
	return int(u)
}

// Copyright 2025 3 Leaps, LLC
// Licensed under the Apache License, Version 2.0

package analyzer

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/3leaps/taintsentry/internal/ir"
	"github.com/3leaps/taintsentry/internal/parser"
	"github.com/3leaps/taintsentry/internal/taint"
	"github.com/3leaps/taintsentry/internal/types"
)

// PreciseAnalyzer parses a unit into a syntax tree and walks it with the
// taint engine. A syntax error fails the unit; there is no fallback to the
// heuristic scanner.
type PreciseAnalyzer struct {
	dialect parser.Dialect
	logger  *zap.Logger
}

// NewPreciseAnalyzer creates a precise analyzer. dialect applies to shell
// units only.
func NewPreciseAnalyzer(dialect parser.Dialect, logger *zap.Logger) *PreciseAnalyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PreciseAnalyzer{dialect: dialect, logger: logger}
}

// Name returns the analyzer identifier.
func (a *PreciseAnalyzer) Name() string {
	return "precise-ast"
}

// Engine returns types.EngineAST.
func (a *PreciseAnalyzer) Engine() types.Engine {
	return types.EngineAST
}

// Languages lists the languages with a parser front end.
func (a *PreciseAnalyzer) Languages() []types.Language {
	return []types.Language{types.LanguagePython, types.LanguageShell}
}

// Analyze parses and walks the unit.
func (a *PreciseAnalyzer) Analyze(ctx context.Context, unit Unit) (*taint.Report, error) {
	file, err := a.parse(ctx, unit)
	if err != nil {
		a.logger.Debug("parse failed",
			zap.String("file", unit.Filename),
			zap.Error(err))
		return nil, err
	}

	return taint.NewWalker(unit.Catalog, a.logger).Walk(file), nil
}

func (a *PreciseAnalyzer) parse(ctx context.Context, unit Unit) (*ir.File, error) {
	switch unit.Language {
	case types.LanguagePython:
		return parser.ParsePython(ctx, unit.Content)
	case types.LanguageShell:
		return parser.ParseShell(unit.Content, unit.Filename, a.dialect)
	default:
		return nil, &types.AnalysisError{
			Code:   types.CodeUnsupportedLanguage,
			File:   unit.Filename,
			Detail: fmt.Sprintf("no parser for %q", unit.Language),
		}
	}
}

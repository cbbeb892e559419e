// Package analyzer provides the core analysis engine for taintsentry.
//
// Copyright 2025 3 Leaps, LLC
// Licensed under the Apache License, Version 2.0

package analyzer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"runtime/debug"

	"go.uber.org/zap"

	"github.com/3leaps/taintsentry/internal/catalog"
	"github.com/3leaps/taintsentry/internal/parser"
	"github.com/3leaps/taintsentry/internal/taint"
	"github.com/3leaps/taintsentry/internal/types"
)

// Unit is one source text to analyze.
type Unit struct {
	Content  []byte
	Filename string
	Language types.Language
	Catalog  *catalog.Catalog
}

// Analyzer is the interface for taint analysis backends.
type Analyzer interface {
	// Analyze runs one pass over the unit.
	Analyze(ctx context.Context, unit Unit) (*taint.Report, error)

	// Name returns the analyzer's identifier.
	Name() string

	// Engine tags results produced by this analyzer.
	Engine() types.Engine

	// Languages lists the languages the analyzer handles.
	Languages() []types.Language
}

// Options configures the analysis engine.
type Options struct {
	// Catalogs overrides the builtin catalogs per language.
	Catalogs catalog.Set

	// ShellDialect forces a shell dialect. Default detects it from the shebang.
	ShellDialect parser.Dialect

	// Logger receives debug output. Nil disables logging.
	Logger *zap.Logger
}

// Engine resolves the language of a unit and dispatches it to the analyzer
// registered for that language. An Engine holds only read-only state after
// construction and is safe for concurrent use.
type Engine struct {
	analyzers map[types.Language]Analyzer
	opts      Options
	logger    *zap.Logger
}

// NewEngine creates an engine with the precise (python, shell) and heuristic
// (javascript, typescript, php, ruby) analyzers registered.
func NewEngine(opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	e := &Engine{
		analyzers: make(map[types.Language]Analyzer),
		opts:      opts,
		logger:    logger.Named("analyzer"),
	}
	e.RegisterAnalyzer(NewPreciseAnalyzer(opts.ShellDialect, logger))
	e.RegisterAnalyzer(NewHeuristicAnalyzer(logger))
	return e
}

// RegisterAnalyzer adds an analyzer to the engine, replacing any analyzer
// previously registered for the same languages.
func (e *Engine) RegisterAnalyzer(a Analyzer) {
	for _, lang := range a.Languages() {
		e.analyzers[lang] = a
	}
}

// Supports reports whether a language has a registered analyzer.
func (e *Engine) Supports(lang types.Language) bool {
	_, ok := e.analyzers[lang]
	return ok
}

// AnalyzeReader reads all of r and analyzes it.
func (e *Engine) AnalyzeReader(ctx context.Context, r io.Reader, path string, lang types.Language) (*types.Result, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, &types.AnalysisError{
			Code:   types.CodeInternal,
			File:   path,
			Detail: "failed to read input: " + err.Error(),
		}
	}
	return e.Analyze(ctx, content, path, lang)
}

// Analyze analyzes one source unit. path is a hint used for language
// detection and reporting; lang, when not empty, overrides detection.
//
// Every returned error is a *types.AnalysisError, and no findings are
// returned alongside one.
func (e *Engine) Analyze(ctx context.Context, content []byte, path string, lang types.Language) (result *types.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("analyzer panic",
				zap.String("file", path),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()))
			result = nil
			err = &types.AnalysisError{
				Code:   types.CodeInternal,
				File:   path,
				Detail: fmt.Sprint(r),
			}
		}
	}()

	if len(bytes.TrimSpace(content)) == 0 {
		return nil, &types.AnalysisError{Code: types.CodeEmptyInput, File: path}
	}

	resolved := ResolveLanguage(string(lang), path, content)
	a, ok := e.analyzers[resolved]
	if !ok {
		detail := "cannot determine language"
		if lang != "" {
			detail = fmt.Sprintf("no analyzer for language %q", lang)
		} else if resolved != types.LanguageUnknown {
			detail = fmt.Sprintf("no analyzer for language %q", resolved)
		}
		return nil, &types.AnalysisError{Code: types.CodeUnsupportedLanguage, File: path, Detail: detail}
	}

	cat := e.opts.Catalogs.Lookup(resolved)
	if cat == nil {
		return nil, &types.AnalysisError{
			Code:   types.CodeUnsupportedLanguage,
			File:   path,
			Detail: fmt.Sprintf("no catalog for language %q", resolved),
		}
	}

	rep, err := a.Analyze(ctx, Unit{
		Content:  content,
		Filename: path,
		Language: resolved,
		Catalog:  cat,
	})
	if err != nil {
		return nil, e.wrapError(path, err)
	}

	result = types.NewResult(path, resolved, a.Engine())
	for _, f := range rep.Findings {
		result.AddFinding(f)
	}
	result.SetTainted(rep.Tainted)

	e.logger.Debug("analyzed",
		zap.String("file", path),
		zap.String("language", string(resolved)),
		zap.String("analyzer", a.Name()),
		zap.Int("findings", result.TotalFindings))

	return result, nil
}

func (e *Engine) wrapError(path string, err error) *types.AnalysisError {
	var ae *types.AnalysisError
	if errors.As(err, &ae) {
		return ae
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &types.AnalysisError{Code: types.CodeInternal, File: path, Detail: "analysis interrupted: " + err.Error()}
	}

	var pe *parser.ParseError
	if errors.As(err, &pe) {
		return &types.AnalysisError{
			Code:   types.CodeParseError,
			File:   path,
			Line:   pe.Line,
			Column: pe.Column,
			Detail: pe.Message,
		}
	}

	return &types.AnalysisError{Code: types.CodeInternal, File: path, Detail: err.Error()}
}

// Package scan runs the analysis engine over files and directory trees.
//
// Copyright 2025 3 Leaps, LLC
// Licensed under the Apache License, Version 2.0

package scan

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/3leaps/taintsentry/internal/analyzer"
	"github.com/3leaps/taintsentry/internal/types"
)

// StdinPath names standard input in a path list.
const StdinPath = "-"

// Options configure a Scanner.
type Options struct {
	// Workers bounds the number of files analyzed at once.
	Workers int

	// Timeout bounds the whole run. Zero means no limit.
	Timeout time.Duration

	// Exclude lists directory or file base names to skip while walking.
	// Glob patterns are allowed ("*.min.js").
	Exclude []string

	// MaxFileSize skips larger files. Zero means no limit.
	MaxFileSize int64

	// Language forces the language of every file.
	Language types.Language

	// Version is recorded in the report.
	Version string

	// Stdin is read when a path is "-". Defaults to os.Stdin.
	Stdin io.Reader

	Logger *zap.Logger
}

// Scanner analyzes batches of files with a shared engine.
type Scanner struct {
	engine *analyzer.Engine
	opts   Options
	logger *zap.Logger
}

// New creates a Scanner.
func New(engine *analyzer.Engine, opts Options) *Scanner {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scanner{engine: engine, opts: opts, logger: logger.Named("scan")}
}

// Collect expands paths into the list of files to analyze. Files named
// explicitly are always included. Inside directories, only files whose
// language can be told from the extension or a shebang are included.
func (s *Scanner) Collect(paths []string) ([]string, error) {
	var files []string
	seen := make(map[string]struct{})
	add := func(p string) {
		if _, ok := seen[p]; ok {
			return
		}
		seen[p] = struct{}{}
		files = append(files, p)
	}

	for _, root := range paths {
		if root == StdinPath {
			add(root)
			continue
		}

		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("cannot access %s: %w", root, err)
		}
		if !info.IsDir() {
			add(root)
			continue
		}

		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				s.logger.Warn("skipping unreadable path", zap.String("path", path), zap.Error(err))
				if d != nil && d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			if path != root && s.excluded(d.Name()) {
				if d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			if d.IsDir() || !d.Type().IsRegular() {
				return nil
			}
			if s.candidate(path) {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", root, err)
		}
	}

	return files, nil
}

func (s *Scanner) excluded(name string) bool {
	for _, pattern := range s.opts.Exclude {
		if pattern == name {
			return true
		}
		if ok, err := filepath.Match(pattern, name); err == nil && ok {
			return true
		}
	}
	return false
}

// candidate reports whether a file found while walking should be analyzed.
func (s *Scanner) candidate(path string) bool {
	if s.opts.Language != "" {
		return true
	}
	if analyzer.ExtensionLanguage(path) != types.LanguageUnknown {
		return true
	}
	if filepath.Ext(path) != "" {
		return false
	}
	return s.hasShebang(path)
}

func (s *Scanner) hasShebang(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer func() { _ = f.Close() }()

	line, err := bufio.NewReader(io.LimitReader(f, 256)).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false
	}
	return analyzer.ResolveLanguage("", path, []byte(line)) != types.LanguageUnknown
}

// Run analyzes every file under paths and returns the batch report. Entries
// keep input order. Per-file failures are recorded in the report; the error
// return is reserved for failures of the run itself.
func (s *Scanner) Run(ctx context.Context, paths []string) (*types.Report, error) {
	files, err := s.Collect(paths)
	if err != nil {
		return nil, err
	}

	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	report := types.NewReport(uuid.NewString(), s.opts.Version)
	logger := s.logger.With(zap.String("run_id", report.RunID))
	logger.Debug("scan started", zap.Int("files", len(files)), zap.Int("workers", s.opts.Workers))

	entries := make([]types.FileResult, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)

	for i, path := range files {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			entries[i] = s.analyzeFile(gctx, path)
			return nil
		})
	}

	// Workers never return errors; a cancelled run shows up through ctx.
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		logger.Warn("scan interrupted", zap.Error(err))
		return nil, fmt.Errorf("scan interrupted: %w", err)
	}

	for i, entry := range entries {
		switch {
		case entry.Err != nil:
			report.AddError(entry.Err)
		case entry.Result != nil:
			report.AddResult(entry.Result)
		default:
			report.AddSkipped(files[i])
		}
	}

	logger.Debug("scan finished",
		zap.Int("files", len(report.Files)),
		zap.Int("errors", report.Errors),
		zap.Int("findings", report.TotalFindings()))

	return report, nil
}

// analyzeFile returns a zero FileResult for files skipped by size.
func (s *Scanner) analyzeFile(ctx context.Context, path string) types.FileResult {
	if path == StdinPath {
		res, err := s.engine.AnalyzeReader(ctx, s.opts.Stdin, "<stdin>", s.opts.Language)
		return fileResult(res, err)
	}

	if s.opts.MaxFileSize > 0 {
		info, err := os.Stat(path)
		if err != nil {
			return types.FileResult{Err: readError(path, err)}
		}
		if info.Size() > s.opts.MaxFileSize {
			s.logger.Warn("skipping oversize file",
				zap.String("file", path),
				zap.Int64("size", info.Size()),
				zap.Int64("limit", s.opts.MaxFileSize))
			return types.FileResult{}
		}
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return types.FileResult{Err: readError(path, err)}
	}

	res, err := s.engine.Analyze(ctx, content, filepath.ToSlash(path), s.opts.Language)
	return fileResult(res, err)
}

func fileResult(res *types.Result, err error) types.FileResult {
	if err == nil {
		return types.FileResult{Result: res}
	}
	var ae *types.AnalysisError
	if errors.As(err, &ae) {
		return types.FileResult{Err: ae}
	}
	return types.FileResult{Err: &types.AnalysisError{Code: types.CodeInternal, Detail: err.Error()}}
}

func readError(path string, err error) *types.AnalysisError {
	return &types.AnalysisError{
		Code:   types.CodeInternal,
		File:   path,
		Detail: "failed to read file: " + err.Error(),
	}
}

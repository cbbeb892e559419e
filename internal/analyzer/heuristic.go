// Copyright 2025 3 Leaps, LLC
// Licensed under the Apache License, Version 2.0

package analyzer

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/3leaps/taintsentry/internal/catalog"
	"github.com/3leaps/taintsentry/internal/taint"
	"github.com/3leaps/taintsentry/internal/types"
)

// HeuristicAnalyzer performs line-based taint detection for languages
// without a parser front end.
//
// Pass 1 taints the variable on the left of any assignment line that
// mentions a source signature. Pass 2 reports every line that mentions both
// a sink signature and a tainted variable name. Matching is by substring, so
// results carry heuristic confidence.
type HeuristicAnalyzer struct {
	logger *zap.Logger
}

// NewHeuristicAnalyzer creates a heuristic analyzer.
func NewHeuristicAnalyzer(logger *zap.Logger) *HeuristicAnalyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HeuristicAnalyzer{logger: logger.Named("heuristic")}
}

// Name returns the analyzer identifier.
func (a *HeuristicAnalyzer) Name() string {
	return "heuristic-lines"
}

// Engine returns types.EngineHeuristic.
func (a *HeuristicAnalyzer) Engine() types.Engine {
	return types.EngineHeuristic
}

// Languages lists the languages handled by line matching.
func (a *HeuristicAnalyzer) Languages() []types.Language {
	return []types.Language{
		types.LanguageJavaScript,
		types.LanguageTypeScript,
		types.LanguagePHP,
		types.LanguageRuby,
	}
}

var assignTarget = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.]*$`)

// Analyze runs both passes over the unit.
func (a *HeuristicAnalyzer) Analyze(ctx context.Context, unit Unit) (*taint.Report, error) {
	lines := splitLines(unit.Content)
	sources := unit.Catalog.Sources()
	sinks := unit.Catalog.Sinks()

	tainted := make(map[string]struct{})
	for _, line := range lines {
		if isCommentLine(line) {
			continue
		}
		target, ok := assignedName(line)
		if !ok {
			continue
		}
		for _, src := range sources {
			if strings.Contains(line, src) {
				tainted[target] = struct{}{}
				break
			}
		}
	}

	names := make([]string, 0, len(tainted))
	for name := range tainted {
		names = append(names, name)
	}
	sort.Strings(names)

	findings := []types.Finding{}
	for i, line := range lines {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if isCommentLine(line) {
			continue
		}
		for _, sink := range lineSinks(line, sinks) {
			for _, name := range names {
				if !strings.Contains(line, name) {
					continue
				}
				findings = append(findings, types.Finding{
					Kind:           sink.Kind,
					Severity:       sink.Kind.Severity(),
					Line:           i + 1,
					TaintedVars:    []string{name},
					Sink:           sink.Name,
					Message:        fmt.Sprintf("Tainted variable %q flows to dangerous sink %s", name, sink.Name),
					Recommendation: sink.Remediation(),
					Code:           strings.TrimSpace(line),
					Confidence:     types.ConfidenceHeuristic,
				})
			}
		}
	}

	a.logger.Debug("scan complete",
		zap.String("file", unit.Filename),
		zap.Int("lines", len(lines)),
		zap.Int("tainted", len(names)),
		zap.Int("findings", len(findings)))

	return &taint.Report{Findings: findings, Tainted: names}, nil
}

// assignedName returns the identifier directly left of the first
// assignment "=" on the line. Comparisons and arrows are not assignments.
func assignedName(line string) (string, bool) {
	idx := -1
	for i := 0; i < len(line); i++ {
		if line[i] != '=' {
			continue
		}
		if i+1 < len(line) && (line[i+1] == '=' || line[i+1] == '>' || line[i+1] == '~') {
			return "", false
		}
		if i > 0 && strings.IndexByte("!<>=", line[i-1]) >= 0 {
			return "", false
		}
		idx = i
		break
	}
	if idx <= 0 {
		return "", false
	}

	// Compound assignment (+=, .=, ||=) still binds the left operand.
	left := line[:idx]
	// Drop a type annotation (const x: string = ...).
	if colon := strings.IndexByte(left, ':'); colon > 0 {
		left = left[:colon]
	}
	left = strings.TrimRight(left, " \t+-*/%.|&?^")
	fields := strings.Fields(left)
	if len(fields) == 0 {
		return "", false
	}

	name := fields[len(fields)-1]
	name = strings.TrimLeft(name, "$@")
	name = strings.TrimSuffix(name, ":")
	if !assignTarget.MatchString(name) {
		return "", false
	}
	return name, true
}

// lineSinks returns the sinks that occur on line. A sink is dropped when
// every one of its occurrences overlaps a longer sink of the same kind, so
// shell_exec( does not also report exec(.
func lineSinks(line string, sinks []catalog.SinkSignature) []catalog.SinkSignature {
	type span struct{ start, end int }
	found := make([][]span, len(sinks))
	for i, sink := range sinks {
		for off := 0; off < len(line); {
			idx := strings.Index(line[off:], sink.Name)
			if idx < 0 {
				break
			}
			start := off + idx
			found[i] = append(found[i], span{start, start + len(sink.Name)})
			off = start + 1
		}
	}

	var out []catalog.SinkSignature
	for i, sink := range sinks {
		if len(found[i]) == 0 {
			continue
		}
		shadowed := true
		for _, sp := range found[i] {
			covered := false
			for j, other := range sinks {
				if j == i || other.Kind != sink.Kind || len(other.Name) <= len(sink.Name) {
					continue
				}
				for _, o := range found[j] {
					if o.start < sp.end && sp.start < o.end {
						covered = true
						break
					}
				}
				if covered {
					break
				}
			}
			if !covered {
				shadowed = false
				break
			}
		}
		if !shadowed {
			out = append(out, sink)
		}
	}
	return out
}

func isCommentLine(line string) bool {
	trimmed := strings.TrimSpace(line)
	return strings.HasPrefix(trimmed, "//") ||
		strings.HasPrefix(trimmed, "#") ||
		strings.HasPrefix(trimmed, "/*") ||
		strings.HasPrefix(trimmed, "*")
}

func splitLines(content []byte) []string {
	var lines []string
	sc := bufio.NewScanner(bytes.NewReader(content))
	sc.Buffer(make([]byte, 0, 64*1024), len(content)+1)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	return lines
}

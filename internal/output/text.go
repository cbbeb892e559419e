// Copyright 2025 3 Leaps, LLC
// Licensed under the Apache License, Version 2.0

package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/gookit/color"

	"github.com/3leaps/taintsentry/internal/types"
)

var (
	criticalTheme = color.New(color.FgLightWhite, color.BgRed, color.OpBold)
	highTheme     = color.New(color.FgLightWhite, color.BgRed)
	mediumTheme   = color.New(color.FgBlack, color.BgYellow)
	lowTheme      = color.New(color.FgWhite, color.BgBlack)
)

// TextFormatter formats reports as human-readable text.
type TextFormatter struct {
	Color bool
}

// NewTextFormatter creates a new text formatter.
func NewTextFormatter(enableColor bool) *TextFormatter {
	return &TextFormatter{Color: enableColor}
}

// Format writes a human-readable text report.
func (f *TextFormatter) Format(w io.Writer, report *types.Report) error {
	var err error
	writef := func(format string, args ...any) {
		if err != nil {
			return
		}
		_, err = fmt.Fprintf(w, format, args...)
	}
	writeln := func(args ...any) {
		if err != nil {
			return
		}
		_, err = fmt.Fprintln(w, args...)
	}

	writef("taintsentry analysis: %s\n", f.verdict(report))
	writef("─────────────────────────────────────────\n")
	if report.RunID != "" {
		writef("Run: %s\n", report.RunID)
	}
	writef("Files: %d (%d failed)\n", len(report.Files), report.Errors)
	writef("Summary: %d critical, %d high, %d medium, %d low\n",
		report.Summary.Critical, report.Summary.High, report.Summary.Medium, report.Summary.Low)
	writeln()

	for _, fr := range report.Files {
		if fr.Err != nil {
			writef("%s\n", fr.Err.File)
			writef("   %s\n", f.danger(fr.Err.Error()))
			writeln()
			continue
		}

		res := fr.Result
		writef("%s (%s, %s engine)\n", res.File, res.Language, res.Engine)
		if len(res.TaintedVariables) > 0 {
			writef("   Tainted: %s\n", strings.Join(res.TaintedVariables, ", "))
		}
		if len(res.Findings) == 0 {
			writeln("   No issues found.")
			writeln()
			continue
		}

		for i, finding := range res.Findings {
			writef("%d. [%s] %s (%s)\n",
				i+1,
				f.severity(finding.Severity),
				finding.Message,
				finding.Kind)

			writef("   Location: line %d", finding.Line)
			if finding.Column > 0 {
				writef(", column %d", finding.Column)
			}
			if finding.Function != "" {
				writef(", in %s", finding.Function)
			}
			writeln()

			if finding.Confidence == types.ConfidenceHeuristic {
				writeln("   Confidence: heuristic")
			}

			if finding.Code != "" {
				code := finding.Code
				if len(code) > 80 {
					code = code[:77] + "..."
				}
				writef("   Code: %s\n", code)
			}

			if finding.Recommendation != "" {
				wrapped := wrapText("Recommendation: "+finding.Recommendation, 70)
				for _, line := range wrapped {
					writef("   %s\n", line)
				}
			}

			writeln()
		}
	}

	return err
}

func (f *TextFormatter) verdict(report *types.Report) string {
	switch {
	case report.Errors > 0 && report.TotalFindings() == 0:
		return f.danger("ERROR")
	case report.TotalFindings() == 0:
		return f.success("CLEAN")
	default:
		return f.severity(report.MaxSeverity())
	}
}

func (f *TextFormatter) severity(s types.Severity) string {
	label := severityIcon(s)
	if !f.Color {
		return label
	}
	switch s {
	case types.SeverityCritical:
		return criticalTheme.Sprint(label)
	case types.SeverityHigh:
		return highTheme.Sprint(label)
	case types.SeverityMedium:
		return mediumTheme.Sprint(label)
	default:
		return lowTheme.Sprint(label)
	}
}

func (f *TextFormatter) danger(s string) string {
	if !f.Color {
		return s
	}
	return color.Danger.Render(s)
}

func (f *TextFormatter) success(s string) string {
	if !f.Color {
		return s
	}
	return color.Success.Render(s)
}

func severityIcon(s types.Severity) string {
	switch s {
	case types.SeverityCritical:
		return "CRITICAL"
	case types.SeverityHigh:
		return "HIGH"
	case types.SeverityMedium:
		return "MEDIUM"
	case types.SeverityLow:
		return "LOW"
	default:
		return string(s)
	}
}

func wrapText(text string, width int) []string {
	if len(text) <= width {
		return []string{text}
	}

	var lines []string
	words := strings.Fields(text)
	var current strings.Builder

	for _, word := range words {
		if current.Len()+len(word)+1 > width {
			if current.Len() > 0 {
				lines = append(lines, current.String())
				current.Reset()
			}
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(word)
	}

	if current.Len() > 0 {
		lines = append(lines, current.String())
	}

	return lines
}

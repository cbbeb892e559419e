// Copyright 2025 3 Leaps, LLC
// Licensed under the Apache License, Version 2.0

package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/3leaps/taintsentry/internal/types"
)

// SARIF output types per SARIF 2.1.0 spec
// https://docs.oasis-open.org/sarif/sarif/v2.1.0/sarif-v2.1.0.html

type sarifLog struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool              sarifTool         `json:"tool"`
	Results           []sarifResult     `json:"results"`
	Invocations       []sarifInvocation `json:"invocations,omitempty"`
	AutomationDetails *sarifAutomation  `json:"automationDetails,omitempty"`
}

type sarifAutomation struct {
	GUID string `json:"guid"`
}

type sarifInvocation struct {
	ExecutionSuccessful        bool                `json:"executionSuccessful"`
	ToolExecutionNotifications []sarifNotification `json:"toolExecutionNotifications,omitempty"`
}

type sarifNotification struct {
	Level     string          `json:"level"`
	Message   sarifMessage    `json:"message"`
	Locations []sarifLocation `json:"locations,omitempty"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name            string      `json:"name"`
	Version         string      `json:"version"`
	InformationURI  string      `json:"informationUri"`
	Rules           []sarifRule `json:"rules,omitempty"`
	SemanticVersion string      `json:"semanticVersion,omitempty"`
}

type sarifRule struct {
	ID               string          `json:"id"`
	Name             string          `json:"name,omitempty"`
	ShortDescription sarifMessage    `json:"shortDescription,omitempty"`
	FullDescription  sarifMessage    `json:"fullDescription,omitempty"`
	Help             sarifMessage    `json:"help,omitempty"`
	DefaultConfig    sarifRuleConfig `json:"defaultConfiguration,omitempty"`
	Properties       sarifRuleProps  `json:"properties,omitempty"`
}

type sarifRuleProps struct {
	Tags             []string `json:"tags,omitempty"`
	SecuritySeverity string   `json:"security-severity,omitempty"`
}

type sarifRuleConfig struct {
	Level string `json:"level"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifResult struct {
	RuleID     string            `json:"ruleId"`
	RuleIndex  int               `json:"ruleIndex"`
	Level      string            `json:"level"`
	Message    sarifMessage      `json:"message"`
	Locations  []sarifLocation   `json:"locations,omitempty"`
	Properties map[string]string `json:"properties,omitempty"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
	Region           *sarifRegion          `json:"region,omitempty"`
}

type sarifArtifactLocation struct {
	URI string `json:"uri"`
}

type sarifRegion struct {
	StartLine   int `json:"startLine,omitempty"`
	StartColumn int `json:"startColumn,omitempty"`
}

// SARIFFormatter formats reports in SARIF format.
type SARIFFormatter struct{}

// NewSARIFFormatter creates a new SARIF formatter.
func NewSARIFFormatter() *SARIFFormatter {
	return &SARIFFormatter{}
}

// Format writes a SARIF report. Each vulnerability kind is one rule; files
// that failed analysis become tool execution notifications.
func (f *SARIFFormatter) Format(w io.Writer, report *types.Report) error {
	run := sarifRun{
		Tool: sarifTool{
			Driver: sarifDriver{
				Name:            "taintsentry",
				Version:         report.ToolVersion,
				InformationURI:  "https://github.com/3leaps/taintsentry",
				SemanticVersion: report.ToolVersion,
				Rules:           sarifRules(),
			},
		},
		Results:     f.convertFindings(report),
		Invocations: []sarifInvocation{f.invocation(report)},
	}
	if report.RunID != "" {
		run.AutomationDetails = &sarifAutomation{GUID: report.RunID}
	}

	log := sarifLog{
		Schema:  "https://raw.githubusercontent.com/oasis-tcs/sarif-spec/master/Schemata/sarif-schema-2.1.0.json",
		Version: "2.1.0",
		Runs:    []sarifRun{run},
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(log)
}

func sarifRules() []sarifRule {
	kinds := types.Kinds()
	rules := make([]sarifRule, 0, len(kinds))
	for _, k := range kinds {
		rules = append(rules, sarifRule{
			ID:               string(k),
			Name:             ruleName(k),
			ShortDescription: sarifMessage{Text: k.Title()},
			FullDescription:  sarifMessage{Text: fmt.Sprintf("Untrusted input reaches a %s sink (CWE-%s).", k.Title(), k.CWE())},
			Help:             sarifMessage{Text: k.Remediation()},
			DefaultConfig:    sarifRuleConfig{Level: severityToLevel(k.Severity())},
			Properties: sarifRuleProps{
				Tags:             []string{"security", "CWE-" + k.CWE()},
				SecuritySeverity: securitySeverity(k.Severity()),
			},
		})
	}
	return rules
}

// ruleName turns "sql-injection" into "SqlInjection".
func ruleName(k types.VulnerabilityKind) string {
	var b strings.Builder
	for _, part := range strings.Split(string(k), "-") {
		if part == "" {
			continue
		}
		b.WriteString(strings.ToUpper(part[:1]))
		b.WriteString(part[1:])
	}
	return b.String()
}

func ruleIndex(k types.VulnerabilityKind) int {
	for i, known := range types.Kinds() {
		if known == k {
			return i
		}
	}
	return -1
}

func (f *SARIFFormatter) convertFindings(report *types.Report) []sarifResult {
	results := make([]sarifResult, 0, report.TotalFindings())

	for _, fr := range report.Files {
		if fr.Result == nil {
			continue
		}
		for _, finding := range fr.Result.Findings {
			result := sarifResult{
				RuleID:    string(finding.Kind),
				RuleIndex: ruleIndex(finding.Kind),
				Level:     severityToLevel(finding.Severity),
				Message:   sarifMessage{Text: finding.Message},
				Properties: map[string]string{
					"sink":       finding.Sink,
					"confidence": string(finding.Confidence),
				},
			}
			if finding.Function != "" {
				result.Properties["function"] = string(finding.Function)
			}

			if fr.Result.File != "" && finding.Line > 0 {
				result.Locations = []sarifLocation{location(fr.Result.File, finding.Line, finding.Column)}
			}

			results = append(results, result)
		}
	}

	return results
}

func (f *SARIFFormatter) invocation(report *types.Report) sarifInvocation {
	inv := sarifInvocation{ExecutionSuccessful: report.Errors == 0}
	for _, fr := range report.Files {
		if fr.Err == nil {
			continue
		}
		n := sarifNotification{
			Level:   "error",
			Message: sarifMessage{Text: fr.Err.Error()},
		}
		if fr.Err.File != "" {
			n.Locations = []sarifLocation{location(fr.Err.File, fr.Err.Line, fr.Err.Column)}
		}
		inv.ToolExecutionNotifications = append(inv.ToolExecutionNotifications, n)
	}
	return inv
}

func location(file string, line, column int) sarifLocation {
	loc := sarifLocation{
		PhysicalLocation: sarifPhysicalLocation{
			ArtifactLocation: sarifArtifactLocation{URI: file},
		},
	}
	if line > 0 {
		loc.PhysicalLocation.Region = &sarifRegion{StartLine: line, StartColumn: column}
	}
	return loc
}

func severityToLevel(s types.Severity) string {
	switch s {
	case types.SeverityCritical, types.SeverityHigh:
		return "error"
	case types.SeverityMedium:
		return "warning"
	case types.SeverityLow:
		return "note"
	default:
		return "none"
	}
}

// securitySeverity maps to the numeric scale code scanning platforms use.
func securitySeverity(s types.Severity) string {
	switch s {
	case types.SeverityCritical:
		return "9.5"
	case types.SeverityHigh:
		return "8.0"
	case types.SeverityMedium:
		return "5.5"
	case types.SeverityLow:
		return "3.0"
	default:
		return ""
	}
}

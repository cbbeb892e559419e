// Copyright 2025 3 Leaps, LLC
// Licensed under the Apache License, Version 2.0

package types

// VulnerabilityKind classifies the impact of a tainted sink.
type VulnerabilityKind string

const (
	KindCodeInjection    VulnerabilityKind = "code-injection"
	KindCommandInjection VulnerabilityKind = "command-injection"
	KindSQLInjection     VulnerabilityKind = "sql-injection"
	KindDeserialization  VulnerabilityKind = "deserialization"
	KindPathTraversal    VulnerabilityKind = "path-traversal"
	KindXSS              VulnerabilityKind = "xss"
	KindSSRF             VulnerabilityKind = "ssrf"
)

type kindInfo struct {
	severity    Severity
	cwe         string
	title       string
	remediation string
}

// kinds is the closed set of vulnerability kinds. Every kind has exactly one
// remediation text, shared by all sinks of that kind.
var kinds = map[VulnerabilityKind]kindInfo{
	KindCodeInjection: {
		severity:    SeverityCritical,
		cwe:         "94",
		title:       "Code injection",
		remediation: "Avoid eval/exec with user input. Use safer alternatives like ast.literal_eval() or configuration files.",
	},
	KindCommandInjection: {
		severity:    SeverityCritical,
		cwe:         "78",
		title:       "OS command injection",
		remediation: "Use subprocess with list arguments instead of shell=True. Validate and sanitize all inputs.",
	},
	KindSQLInjection: {
		severity:    SeverityCritical,
		cwe:         "89",
		title:       "SQL injection",
		remediation: "Use parameterized queries or ORM methods. Never concatenate SQL with user input.",
	},
	KindDeserialization: {
		severity:    SeverityCritical,
		cwe:         "502",
		title:       "Deserialization of untrusted data",
		remediation: "Avoid pickle/yaml.load with untrusted data. Use JSON or validate input strictly.",
	},
	KindPathTraversal: {
		severity:    SeverityHigh,
		cwe:         "22",
		title:       "Path traversal",
		remediation: "Validate file paths, use os.path.join() and check if path is within allowed directory.",
	},
	KindXSS: {
		severity:    SeverityHigh,
		cwe:         "79",
		title:       "Cross-site scripting",
		remediation: "Encode output for its HTML context and prefer textContent over innerHTML. Sanitize any markup built from user input.",
	},
	KindSSRF: {
		severity:    SeverityHigh,
		cwe:         "918",
		title:       "Server-side request forgery",
		remediation: "Validate outbound URLs against an allow-list of hosts and schemes before issuing the request.",
	},
}

// Kinds returns all known vulnerability kinds in a stable order.
func Kinds() []VulnerabilityKind {
	return []VulnerabilityKind{
		KindCodeInjection,
		KindCommandInjection,
		KindSQLInjection,
		KindDeserialization,
		KindPathTraversal,
		KindXSS,
		KindSSRF,
	}
}

// Valid reports whether k is one of the known kinds.
func (k VulnerabilityKind) Valid() bool {
	_, ok := kinds[k]
	return ok
}

// Remediation returns the fixed remediation text for k.
func (k VulnerabilityKind) Remediation() string {
	return kinds[k].remediation
}

// Severity returns the default severity for k.
func (k VulnerabilityKind) Severity() Severity {
	return kinds[k].severity
}

// CWE returns the CWE identifier for k (e.g. "78").
func (k VulnerabilityKind) CWE() string {
	return kinds[k].cwe
}

// Title returns a short human-readable name for k.
func (k VulnerabilityKind) Title() string {
	return kinds[k].title
}

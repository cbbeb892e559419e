// Copyright 2025 3 Leaps, LLC
// Licensed under the Apache License, Version 2.0

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/3leaps/taintsentry/internal/config"
	"github.com/3leaps/taintsentry/internal/types"
)

func TestNewRootCmd(t *testing.T) {
	cmd := NewRootCmd()

	if cmd == nil {
		t.Fatal("expected non-nil command")
	}
	if cmd.Use != "taintsentry [flags] [path...]" {
		t.Errorf("unexpected Use: %s", cmd.Use)
	}
	if !cmd.SilenceUsage || !cmd.SilenceErrors {
		t.Error("expected usage and errors to be silenced")
	}
}

func TestNewRootCmd_Subcommands(t *testing.T) {
	cmd := NewRootCmd()

	found := map[string]bool{}
	for _, sub := range cmd.Commands() {
		found[sub.Name()] = true
	}
	for _, name := range []string{"version", "catalog"} {
		if !found[name] {
			t.Errorf("expected %s subcommand", name)
		}
	}
}

func TestNewRootCmd_Flags(t *testing.T) {
	cmd := NewRootCmd()

	local := []string{
		"format", "output", "quiet", "no-color", "batch-json",
		"language", "shell-dialect", "catalog", "catalog-pubkey", "strict",
		"workers", "timeout", "exclude",
	}
	for _, name := range local {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("expected flag --%s", name)
		}
	}

	persistent := []string{"config", "log-level", "version", "version-extended"}
	for _, name := range persistent {
		if cmd.PersistentFlags().Lookup(name) == nil {
			t.Errorf("expected persistent flag --%s", name)
		}
	}

	shorthands := map[string]string{"f": "format", "o": "output", "q": "quiet", "l": "language", "w": "workers", "c": "config"}
	for short, long := range shorthands {
		f := cmd.Flags().ShorthandLookup(short)
		if f == nil {
			f = cmd.PersistentFlags().ShorthandLookup(short)
		}
		if f == nil || f.Name != long {
			t.Errorf("-%s should map to --%s", short, long)
		}
	}
}

func TestNewRootCmd_FlagDefaults(t *testing.T) {
	cmd := NewRootCmd()

	defaults := map[string]string{
		"format":        "text",
		"workers":       "4",
		"timeout":       "5m0s",
		"shell-dialect": "auto",
		"strict":        "false",
	}
	for name, want := range defaults {
		if got := cmd.Flags().Lookup(name).DefValue; got != want {
			t.Errorf("--%s default = %q, want %q", name, got, want)
		}
	}
}

func TestPrintVersionTo(t *testing.T) {
	var buf bytes.Buffer
	if err := printVersionTo(&buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "taintsentry ") {
		t.Errorf("unexpected version output: %q", buf.String())
	}
}

func TestPrintExtendedVersionTo(t *testing.T) {
	oldCommit, oldBuild := GitCommit, BuildTime
	GitCommit, BuildTime = "deadbeef", "now"
	t.Cleanup(func() { GitCommit, BuildTime = oldCommit, oldBuild })

	var buf bytes.Buffer
	if err := printExtendedVersionTo(&buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Commit:", "deadbeef", "Built:", "now", "Go:", "OS/Arch:"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output, got: %q", want, out)
		}
	}
}

func TestExitCodeFor(t *testing.T) {
	precise := func(sev types.Severity) *types.Result {
		r := types.NewResult("a.py", types.LanguagePython, types.EngineAST)
		r.AddFinding(types.Finding{Kind: types.KindXSS, Severity: sev, Line: 1, Sink: "s", Confidence: types.ConfidencePrecise})
		return r
	}
	heuristic := func(sev types.Severity) *types.Result {
		r := types.NewResult("a.js", types.LanguageJavaScript, types.EngineHeuristic)
		r.AddFinding(types.Finding{Kind: types.KindCodeInjection, Severity: sev, Line: 1, Sink: "eval(", Confidence: types.ConfidenceHeuristic})
		return r
	}
	clean := types.NewResult("c.py", types.LanguagePython, types.EngineAST)
	failure := &types.AnalysisError{Code: types.CodeParseError, File: "bad.py"}

	tests := []struct {
		name    string
		results []*types.Result
		errs    []*types.AnalysisError
		strict  bool
		want    int
	}{
		{"clean", []*types.Result{clean}, nil, false, ExitCodeClean},
		{"critical", []*types.Result{precise(types.SeverityCritical)}, nil, false, ExitCodeCritical},
		{"high", []*types.Result{precise(types.SeverityHigh)}, nil, false, ExitCodeHigh},
		{"medium", []*types.Result{precise(types.SeverityMedium)}, nil, false, ExitCodeHigh},
		{"low", []*types.Result{precise(types.SeverityLow)}, nil, false, ExitCodeHeuristic},
		{"heuristic only", []*types.Result{heuristic(types.SeverityCritical)}, nil, false, ExitCodeHeuristic},
		{"heuristic strict", []*types.Result{heuristic(types.SeverityCritical)}, nil, true, ExitCodeCritical},
		{"mixed engines", []*types.Result{heuristic(types.SeverityCritical), precise(types.SeverityHigh)}, nil, false, ExitCodeCritical},
		{"partial failure", []*types.Result{clean}, []*types.AnalysisError{failure}, false, ExitCodeClean},
		{"partial failure strict", []*types.Result{clean}, []*types.AnalysisError{failure}, true, ExitCodeError},
		{"all failed", nil, []*types.AnalysisError{failure}, false, ExitCodeError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := types.NewReport("", "")
			for _, r := range tt.results {
				report.AddResult(r)
			}
			for _, e := range tt.errs {
				report.AddError(e)
			}
			if got := exitCodeFor(report, tt.strict); got != tt.want {
				t.Errorf("exitCodeFor() = %d, want %d", got, tt.want)
			}
		})
	}
}

func testRunConfig(t *testing.T, paths []string, format string) (runConfig, *bytes.Buffer) {
	t.Helper()
	cfg := config.NewDefaultConfig()
	cfg.Output.Format = format
	cfg.Output.Color = false

	var out bytes.Buffer
	return runConfig{
		paths:  paths,
		stdin:  strings.NewReader(""),
		output: &out,
		cfg:    cfg,
		logger: zaptest.NewLogger(t),
	}, &out
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestRunAnalysisCore_CleanScript_JSON(t *testing.T) {
	path := writeFile(t, "ok.sh", "#!/bin/bash\necho hello\n")
	rc, out := testRunConfig(t, []string{path}, "json")

	exitCode, err := runAnalysisCore(context.Background(), rc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exitCode != ExitCodeClean {
		t.Fatalf("expected exitCode 0, got %d", exitCode)
	}

	var parsed map[string]interface{}
	if err := json.Unmarshal(out.Bytes(), &parsed); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, out.String())
	}
	if parsed["total_issues"] != float64(0) {
		t.Errorf("expected total_issues=0, got %v", parsed["total_issues"])
	}
}

func TestRunAnalysisCore_VulnerableScript_Quiet(t *testing.T) {
	path := writeFile(t, "run.py", "import os\ncmd = input()\nos.system(cmd)\n")
	rc, out := testRunConfig(t, []string{path}, "text")
	rc.quiet = true

	exitCode, err := runAnalysisCore(context.Background(), rc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exitCode != ExitCodeCritical {
		t.Fatalf("expected exitCode 3, got %d", exitCode)
	}
	if out.Len() != 0 {
		t.Fatalf("expected no output in quiet mode, got: %q", out.String())
	}
}

func TestRunAnalysisCore_UnknownLanguage(t *testing.T) {
	path := writeFile(t, "x.py", "x = 1\n")
	rc, _ := testRunConfig(t, []string{path}, "text")
	rc.cfg.Scan.Language = "cobol"

	exitCode, err := runAnalysisCore(context.Background(), rc)
	if err == nil {
		t.Fatal("expected error for unknown language")
	}
	if exitCode != ExitCodeError {
		t.Errorf("expected exitCode 4, got %d", exitCode)
	}
}

func TestRunAnalysisCore_CustomCatalog(t *testing.T) {
	catalogPath := writeFile(t, "catalog.yaml", `catalogs:
  - language: python
    extend: true
    sources: ["queue.pop"]
    sinks:
      - name: "renderer.raw"
        kind: xss
`)
	src := writeFile(t, "worker.py", "job = queue.pop()\nrenderer.raw(job)\n")

	rc, out := testRunConfig(t, []string{src}, "json")
	rc.cfg.Catalog.Path = catalogPath

	exitCode, err := runAnalysisCore(context.Background(), rc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exitCode != ExitCodeHigh {
		t.Errorf("expected exitCode 2, got %d\n%s", exitCode, out.String())
	}
	if !strings.Contains(out.String(), `"type": "xss"`) {
		t.Errorf("expected xss finding, got: %s", out.String())
	}
}

func TestRunAnalysisCore_UnsignedCatalogRejected(t *testing.T) {
	catalogPath := writeFile(t, "catalog.yaml", "catalogs:\n  - language: python\n    sources: [a]\n    sinks: []\n")
	src := writeFile(t, "a.py", "x = 1\n")

	rc, _ := testRunConfig(t, []string{src}, "json")
	rc.cfg.Catalog.Path = catalogPath
	rc.cfg.Catalog.Pubkey = "RWQf6LRCGA9i53mlYecO4IzT51TGPpvWucNSCh1CBM0QTaLn73Y7GFO3"

	exitCode, err := runAnalysisCore(context.Background(), rc)
	if err == nil {
		t.Fatal("expected error for unsigned catalog")
	}
	if exitCode != ExitCodeError {
		t.Errorf("expected exitCode 4, got %d", exitCode)
	}
}

func TestRootCmd_AnalyzeFromCmdStdin(t *testing.T) {
	cmd := NewRootCmd()

	var out bytes.Buffer
	var errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader("#!/bin/bash\ntarget=\"$1\"\nrm -rf \"$target\"\n"))
	cmd.SetArgs([]string{"--format", "json", "--language", "shell"})

	err := cmd.Execute()
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected ExitError, got %T: %v", err, err)
	}
	if exitErr.Code != ExitCodeHigh {
		t.Fatalf("expected exit code 2, got %d\n%s", exitErr.Code, out.String())
	}
	if !strings.Contains(out.String(), `"path-traversal"`) {
		t.Fatalf("expected path-traversal finding, got: %q", out.String())
	}
}

func TestRootCmd_AnalyzeFiles_Text(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "app.rb"), []byte("expr = params[:expr]\neval(expr)\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--no-color", dir})

	err := cmd.Execute()
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected ExitError, got %T: %v", err, err)
	}
	if exitErr.Code != ExitCodeHeuristic {
		t.Errorf("expected exit code 1, got %d", exitErr.Code)
	}
	if !strings.Contains(out.String(), "Confidence: heuristic") {
		t.Errorf("expected heuristic finding in text output, got: %q", out.String())
	}
}

func TestRootCmd_OutputFile(t *testing.T) {
	src := writeFile(t, "ok.py", "x = 1\n")
	dest := filepath.Join(t.TempDir(), "report.sarif")

	cmd := NewRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"-f", "sarif", "-o", dest, src})

	err := cmd.Execute()
	var exitErr *ExitError
	if !errors.As(err, &exitErr) || exitErr.Code != ExitCodeClean {
		t.Fatalf("expected clean exit, got %v", err)
	}

	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if !strings.Contains(string(data), `"version": "2.1.0"`) {
		t.Errorf("expected SARIF report, got: %s", data)
	}
}

func TestRootCmd_BadConfigFile(t *testing.T) {
	cmd := NewRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader("x = 1\n"))
	cmd.SetArgs([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml")})

	err := cmd.Execute()
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		t.Fatalf("expected a plain error, got exit %d", exitErr.Code)
	}
}

func TestRootCmd_VersionFlag_PrintsToErr(t *testing.T) {
	cmd := NewRootCmd()

	var out bytes.Buffer
	var errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs([]string{"--version"})

	err := cmd.Execute()
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected ExitError, got %T: %v", err, err)
	}
	if exitErr.Code != 0 {
		t.Fatalf("expected exit code 0, got %d", exitErr.Code)
	}
	if out.Len() != 0 {
		t.Fatalf("expected no stdout for version flag, got: %q", out.String())
	}
	if !strings.Contains(errOut.String(), "taintsentry") {
		t.Fatalf("expected version on stderr, got: %q", errOut.String())
	}
}

func TestCatalogShowCmd(t *testing.T) {
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"catalog", "show", "py"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"catalogs:", "language: python", "name: os.system", "kind: command-injection"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("expected %q in output:\n%s", want, out.String())
		}
	}
	if strings.Contains(out.String(), "language: shell") {
		t.Error("expected only the python catalog")
	}
}

func TestCatalogVerifyCmd(t *testing.T) {
	good := writeFile(t, "good.yaml", "catalogs:\n  - language: ruby\n    sources: [\"params[\"]\n    sinks:\n      - name: \"eval(\"\n        kind: code-injection\n")
	bad := writeFile(t, "bad.yaml", "catalogs:\n  - language: cobol\n    sources: [x]\n    sinks: []\n")

	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"catalog", "verify", good})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out.String(), "OK") || !strings.Contains(out.String(), "1 sources, 1 sinks") {
		t.Errorf("unexpected verify output: %q", out.String())
	}

	cmd = NewRootCmd()
	var errOut bytes.Buffer
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&errOut)
	cmd.SetArgs([]string{"catalog", "verify", bad})
	err := cmd.Execute()
	var exitErr *ExitError
	if !errors.As(err, &exitErr) || exitErr.Code != ExitCodeError {
		t.Fatalf("expected exit 4, got %v", err)
	}
	if !strings.Contains(errOut.String(), "FAILED") {
		t.Errorf("expected FAILED on stderr, got: %q", errOut.String())
	}
}

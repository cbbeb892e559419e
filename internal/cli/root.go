// Package cli provides the command-line interface for taintsentry.
//
// Copyright 2025 3 Leaps, LLC
// Licensed under the Apache License, Version 2.0

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/3leaps/taintsentry/internal/analyzer"
	"github.com/3leaps/taintsentry/internal/catalog"
	"github.com/3leaps/taintsentry/internal/config"
	"github.com/3leaps/taintsentry/internal/observability"
	"github.com/3leaps/taintsentry/internal/output"
	"github.com/3leaps/taintsentry/internal/parser"
	"github.com/3leaps/taintsentry/internal/scan"
	"github.com/3leaps/taintsentry/internal/types"
)

// Build-time variables (injected via ldflags)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// Exit codes.
const (
	ExitCodeClean     = 0 // No findings
	ExitCodeHeuristic = 1 // Only heuristic or low-severity findings
	ExitCodeHigh      = 2 // High or medium findings
	ExitCodeCritical  = 3 // Critical findings
	ExitCodeError     = 4 // Tool failure
)

// CLI flags
var (
	formatFlag    string
	outputFile    string
	languageFlag  string
	dialectFlag   string
	catalogFlag   string
	pubkeyFlag    string
	workersFlag   int
	timeoutFlag   time.Duration
	excludeFlag   []string
	strictFlag    bool
	quietFlag     bool
	noColorFlag   bool
	configFlag    string
	logLevelFlag  string
	batchJSONFlag bool
)

// CLI flags for version
var (
	versionFlag         bool
	versionExtendedFlag bool
)

// ExitError signals an intentional process exit with a specific code.
// The caller (main) is responsible for turning this into os.Exit.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit %d", e.Code)
}

func resetFlags() {
	formatFlag = "text"
	outputFile = ""
	languageFlag = ""
	dialectFlag = "auto"
	catalogFlag = ""
	pubkeyFlag = ""
	workersFlag = 4
	timeoutFlag = 5 * time.Minute
	excludeFlag = nil
	strictFlag = false
	quietFlag = false
	noColorFlag = false
	configFlag = ""
	logLevelFlag = "warn"
	batchJSONFlag = false

	versionFlag = false
	versionExtendedFlag = false
}

func isTerminal(v any) bool {
	f, ok := v.(*os.File)
	if !ok {
		return false
	}
	stat, err := f.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// NewRootCmd creates the root command for taintsentry.
func NewRootCmd() *cobra.Command {
	resetFlags()

	rootCmd := &cobra.Command{
		Use:   "taintsentry [flags] [path...]",
		Short: "Static taint analysis for scripts and web handlers",
		Long: `taintsentry - follow untrusted input to dangerous sinks.

taintsentry tracks data from untrusted sources (user input, request
parameters, command-line arguments) through assignments and reports every
call that hands it to a dangerous sink: eval, shell commands, SQL execution,
deserializers, file paths, HTML output and outbound requests.

Python and shell are analyzed on a syntax tree. JavaScript, TypeScript, PHP
and Ruby are scanned line by line and reported with heuristic confidence.

Examples:
  taintsentry app.py                       # Analyze a file
  taintsentry src/ scripts/                # Analyze directory trees
  cat handler.js | taintsentry -l js       # Analyze from stdin
  taintsentry --format sarif src/ > out.sarif
  taintsentry --catalog sinks.yaml --catalog-pubkey key.pub src/

Exit codes:
  0  no findings
  1  heuristic-only or low-severity findings
  2  high or medium findings
  3  critical findings
  4  tool error`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if versionExtendedFlag {
				if err := printExtendedVersionTo(cmd.ErrOrStderr()); err != nil {
					return err
				}
				return &ExitError{Code: ExitCodeClean}
			}
			if versionFlag {
				if err := printVersionTo(cmd.ErrOrStderr()); err != nil {
					return err
				}
				return &ExitError{Code: ExitCodeClean}
			}
			return nil
		},
		RunE: runAnalysis,
	}

	// Output flags
	rootCmd.Flags().StringVarP(&formatFlag, "format", "f", "text", "Output format: text, json, sarif")
	rootCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")
	rootCmd.Flags().BoolVarP(&quietFlag, "quiet", "q", false, "Quiet mode (no output, just exit code)")
	rootCmd.Flags().BoolVar(&noColorFlag, "no-color", false, "Disable colored text output")
	rootCmd.Flags().BoolVar(&batchJSONFlag, "batch-json", false, "Always wrap JSON output in the batch envelope")

	// Analysis flags
	rootCmd.Flags().StringVarP(&languageFlag, "language", "l", "", "Force the language of every input (python, shell, js, ts, php, ruby)")
	rootCmd.Flags().StringVar(&dialectFlag, "shell-dialect", "auto", "Shell dialect: auto, bash, posix, mksh, bats")
	rootCmd.Flags().StringVar(&catalogFlag, "catalog", "", "Custom source/sink catalog file (YAML)")
	rootCmd.Flags().StringVar(&pubkeyFlag, "catalog-pubkey", "", "Minisign public key (or .pub file) the catalog must be signed with")
	rootCmd.Flags().BoolVar(&strictFlag, "strict", false, "Treat heuristic findings and per-file errors as failures")

	// Scan flags
	rootCmd.Flags().IntVarP(&workersFlag, "workers", "w", 4, "Number of files analyzed in parallel")
	rootCmd.Flags().DurationVar(&timeoutFlag, "timeout", 5*time.Minute, "Abort the run after this long (0 disables)")
	rootCmd.Flags().StringSliceVar(&excludeFlag, "exclude", nil, "Directory or file names to skip (glob patterns allowed)")

	// Ambient flags
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Config file (default: ./.taintsentry.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "warn", "Diagnostic log level (debug, info, warn, error)")

	// Version flags (on root command for --version convention)
	rootCmd.PersistentFlags().BoolVar(&versionFlag, "version", false, "Print version and exit")
	rootCmd.PersistentFlags().BoolVar(&versionExtendedFlag, "version-extended", false, "Print extended version info and exit")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newCatalogCmd())

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	var extended bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  "Print version information. Use --extended for full build details.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if extended {
				return printExtendedVersionTo(cmd.ErrOrStderr())
			}
			return printVersionTo(cmd.ErrOrStderr())
		},
	}

	cmd.Flags().BoolVarP(&extended, "extended", "e", false, "Show extended version information")

	return cmd
}

// printVersionTo outputs the version to the provided writer.
func printVersionTo(w io.Writer) error {
	_, err := fmt.Fprintf(w, "taintsentry %s\n", Version)
	return err
}

// printExtendedVersionTo outputs full build and runtime details to the provided writer.
func printExtendedVersionTo(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "taintsentry %s\n", Version); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "  Commit:    %s\n", GitCommit); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "  Built:     %s\n", BuildTime); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "  Go:        %s\n", runtime.Version()); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "  OS/Arch:   %s/%s\n", runtime.GOOS, runtime.GOARCH)
	return err
}

// loadConfig merges the config file, TAINTSENTRY_* variables and any flags
// set on the command line, in increasing order of precedence.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	v := viper.New()

	bindings := map[string]string{
		"output.format":      "format",
		"output.path":        "output",
		"scan.language":      "language",
		"scan.shell_dialect": "shell-dialect",
		"scan.workers":       "workers",
		"scan.timeout":       "timeout",
		"scan.exclude":       "exclude",
		"catalog.path":       "catalog",
		"catalog.pubkey":     "catalog-pubkey",
		"logger.level":       "log-level",
	}
	for key, name := range bindings {
		flag := cmd.Flags().Lookup(name)
		if flag == nil || !flag.Changed {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return nil, fmt.Errorf("bind flag %s: %w", name, err)
		}
	}

	cfg, err := config.Load(v, configFlag)
	if err != nil {
		return nil, err
	}
	if noColorFlag {
		cfg.Output.Color = false
	}
	return cfg, nil
}

// loadCatalogs reads the custom catalog named in cfg, if any. A pubkey that
// names a readable file is replaced by the file contents.
func loadCatalogs(cfg config.CatalogConfig) (catalog.Set, error) {
	if cfg.Path == "" {
		return nil, nil
	}

	pubkey := cfg.Pubkey
	if pubkey != "" {
		// #nosec G304 -- key path is provided by the user.
		if data, err := os.ReadFile(pubkey); err == nil {
			pubkey = string(data)
		}
	}

	set, err := catalog.LoadVerifiedFile(cfg.Path, pubkey)
	if err != nil {
		return nil, fmt.Errorf("load catalog %s: %w", cfg.Path, err)
	}
	return set, nil
}

type runConfig struct {
	paths   []string
	stdin   io.Reader
	output  io.Writer
	cfg     *config.Config
	logger  *zap.Logger
	strict  bool
	quiet   bool
	batched bool
}

func runAnalysisCore(ctx context.Context, rc runConfig) (exitCode int, err error) {
	catalogs, err := loadCatalogs(rc.cfg.Catalog)
	if err != nil {
		return ExitCodeError, err
	}

	dialect, err := parser.ParseDialect(rc.cfg.Scan.ShellDialect)
	if err != nil {
		return ExitCodeError, err
	}

	var lang types.Language
	if rc.cfg.Scan.Language != "" {
		lang = analyzer.ParseLanguage(rc.cfg.Scan.Language)
		if lang == types.LanguageUnknown {
			return ExitCodeError, fmt.Errorf("unknown language %q", rc.cfg.Scan.Language)
		}
	}

	engine := analyzer.NewEngine(analyzer.Options{
		Catalogs:     catalogs,
		ShellDialect: dialect,
		Logger:       rc.logger,
	})

	scanner := scan.New(engine, scan.Options{
		Workers:     rc.cfg.Scan.Workers,
		Timeout:     rc.cfg.Scan.Timeout,
		Exclude:     rc.cfg.Scan.Exclude,
		MaxFileSize: rc.cfg.Scan.MaxFileSize,
		Language:    lang,
		Version:     Version,
		Stdin:       rc.stdin,
		Logger:      rc.logger,
	})

	report, err := scanner.Run(ctx, rc.paths)
	if err != nil {
		return ExitCodeError, err
	}

	exitCode = exitCodeFor(report, rc.strict)
	if rc.quiet {
		return exitCode, nil
	}

	if err := writeOutput(rc.output, report, rc.cfg.Output, rc.batched); err != nil {
		return ExitCodeError, err
	}

	return exitCode, nil
}

// exitCodeFor maps a report to the process exit code. Without strict,
// per-file errors only fail the run when no file could be analyzed, and
// heuristic-only findings exit 1 whatever their severity.
func exitCodeFor(report *types.Report, strict bool) int {
	if report.Errors > 0 && (strict || report.Errors == len(report.Files)) {
		return ExitCodeError
	}

	if report.TotalFindings() == 0 {
		return ExitCodeClean
	}
	if !strict && report.OnlyHeuristic() {
		return ExitCodeHeuristic
	}

	switch report.MaxSeverity() {
	case types.SeverityCritical:
		return ExitCodeCritical
	case types.SeverityHigh, types.SeverityMedium:
		return ExitCodeHigh
	default:
		return ExitCodeHeuristic
	}
}

func runAnalysis(cmd *cobra.Command, args []string) (err error) {
	paths := args
	if len(paths) == 0 {
		if isTerminal(cmd.InOrStdin()) {
			// No stdin data, show help
			return cmd.Help()
		}
		paths = []string{scan.StdinPath}
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := observability.NewCLILogger(cfg.Logger)
	defer observability.Sync(logger)

	rc := runConfig{
		paths:   paths,
		stdin:   cmd.InOrStdin(),
		output:  io.Discard,
		cfg:     cfg,
		logger:  logger,
		strict:  strictFlag,
		quiet:   quietFlag,
		batched: batchJSONFlag,
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if !quietFlag {
		out := cmd.OutOrStdout()
		if cfg.Output.Path != "" {
			// #nosec G304 -- output file path is user-controlled by design.
			f, err := os.Create(cfg.Output.Path)
			if err != nil {
				return fmt.Errorf("failed to create output file: %w", err)
			}
			defer func() {
				if cerr := f.Close(); cerr != nil && err == nil {
					err = fmt.Errorf("failed to close %s: %w", cfg.Output.Path, cerr)
				}
			}()
			out = f
		}
		if !isTerminal(out) {
			cfg.Output.Color = false
		}
		rc.output = out
	}

	exitCode, err := runAnalysisCore(ctx, rc)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	return &ExitError{Code: exitCode}
}

func writeOutput(w io.Writer, report *types.Report, cfg config.OutputConfig, batched bool) error {
	formatter, err := output.New(cfg.Format, output.Options{Color: cfg.Color})
	if err != nil {
		return err
	}
	if jf, ok := formatter.(*output.JSONFormatter); ok {
		jf.Batch = batched
	}
	return formatter.Format(w, report)
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

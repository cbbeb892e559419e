// Copyright 2025 3 Leaps, LLC
// Licensed under the Apache License, Version 2.0

package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/3leaps/taintsentry/internal/analyzer"
	"github.com/3leaps/taintsentry/internal/catalog"
	"github.com/3leaps/taintsentry/internal/config"
	"github.com/3leaps/taintsentry/internal/types"
)

var catalogLanguages = []types.Language{
	types.LanguagePython,
	types.LanguageShell,
	types.LanguageJavaScript,
	types.LanguageTypeScript,
	types.LanguagePHP,
	types.LanguageRuby,
}

func newCatalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect and verify source/sink catalogs",
	}
	cmd.AddCommand(newCatalogShowCmd())
	cmd.AddCommand(newCatalogVerifyCmd())
	return cmd
}

func newCatalogShowCmd() *cobra.Command {
	var path, pubkey string

	cmd := &cobra.Command{
		Use:   "show [language...]",
		Short: "Print the effective catalogs as YAML",
		Long: `Print the effective catalogs as YAML, in the same format --catalog reads.

Without --catalog the builtin catalogs are shown. With --catalog, languages
the file defines are replaced or extended as the file says.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			set, err := loadCatalogs(config.CatalogConfig{Path: path, Pubkey: pubkey})
			if err != nil {
				return err
			}

			langs := catalogLanguages
			if len(args) > 0 {
				langs = nil
				for _, arg := range args {
					lang := analyzer.ParseLanguage(arg)
					if lang == types.LanguageUnknown {
						return fmt.Errorf("unknown language %q", arg)
					}
					langs = append(langs, lang)
				}
			}

			var file catalog.File
			for _, lang := range langs {
				if c := set.Lookup(lang); c != nil {
					file.Catalogs = append(file.Catalogs, c.Spec())
				}
			}

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(file); err != nil {
				return fmt.Errorf("encode catalogs: %w", err)
			}
			return enc.Close()
		},
	}

	cmd.Flags().StringVar(&path, "catalog", "", "Custom catalog file to apply")
	cmd.Flags().StringVar(&pubkey, "catalog-pubkey", "", "Minisign public key (or .pub file) for --catalog")

	return cmd
}

func newCatalogVerifyCmd() *cobra.Command {
	var pubkey string

	cmd := &cobra.Command{
		Use:   "verify <file>",
		Short: "Check a catalog file's signature and contents",
		Long: `Check that a catalog file parses and, with --pubkey, that its detached
minisign signature (<file>.minisig) verifies.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			set, err := loadCatalogs(config.CatalogConfig{Path: args[0], Pubkey: pubkey})
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "FAILED: %v\n", err)
				return &ExitError{Code: ExitCodeError}
			}

			status := "OK"
			if pubkey != "" {
				status = "OK (signature verified)"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", args[0], status)
			for _, lang := range catalogLanguages {
				c, ok := set[lang]
				if !ok {
					continue
				}
				spec := c.Spec()
				fmt.Fprintf(cmd.OutOrStdout(), "  %-10s %d sources, %d sinks\n", lang, len(spec.Sources), len(spec.Sinks))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&pubkey, "pubkey", "", "Minisign public key (or .pub file)")

	return cmd
}

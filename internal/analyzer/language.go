// Copyright 2025 3 Leaps, LLC
// Licensed under the Apache License, Version 2.0

package analyzer

import (
	"path/filepath"
	"strings"

	"github.com/3leaps/taintsentry/internal/parser"
	"github.com/3leaps/taintsentry/internal/types"
)

var languageAliases = map[string]types.Language{
	"python":     types.LanguagePython,
	"py":         types.LanguagePython,
	"python3":    types.LanguagePython,
	"shell":      types.LanguageShell,
	"sh":         types.LanguageShell,
	"bash":       types.LanguageShell,
	"dash":       types.LanguageShell,
	"ksh":        types.LanguageShell,
	"mksh":       types.LanguageShell,
	"zsh":        types.LanguageShell,
	"bats":       types.LanguageShell,
	"javascript": types.LanguageJavaScript,
	"js":         types.LanguageJavaScript,
	"node":       types.LanguageJavaScript,
	"nodejs":     types.LanguageJavaScript,
	"typescript": types.LanguageTypeScript,
	"ts":         types.LanguageTypeScript,
	"ts-node":    types.LanguageTypeScript,
	"deno":       types.LanguageTypeScript,
	"php":        types.LanguagePHP,
	"ruby":       types.LanguageRuby,
	"rb":         types.LanguageRuby,
}

var extensionLanguages = map[string]types.Language{
	".py":    types.LanguagePython,
	".pyw":   types.LanguagePython,
	".sh":    types.LanguageShell,
	".bash":  types.LanguageShell,
	".ksh":   types.LanguageShell,
	".zsh":   types.LanguageShell,
	".bats":  types.LanguageShell,
	".js":    types.LanguageJavaScript,
	".mjs":   types.LanguageJavaScript,
	".cjs":   types.LanguageJavaScript,
	".jsx":   types.LanguageJavaScript,
	".ts":    types.LanguageTypeScript,
	".tsx":   types.LanguageTypeScript,
	".mts":   types.LanguageTypeScript,
	".cts":   types.LanguageTypeScript,
	".php":   types.LanguagePHP,
	".phtml": types.LanguagePHP,
	".rb":    types.LanguageRuby,
	".rake":  types.LanguageRuby,
}

// ParseLanguage normalizes a language tag or alias ("py", "bash", "js").
func ParseLanguage(tag string) types.Language {
	if lang, ok := languageAliases[strings.ToLower(strings.TrimSpace(tag))]; ok {
		return lang
	}
	return types.LanguageUnknown
}

// ExtensionLanguage returns the language implied by the file extension of
// path, or unknown.
func ExtensionLanguage(path string) types.Language {
	if lang, ok := extensionLanguages[strings.ToLower(filepath.Ext(path))]; ok {
		return lang
	}
	return types.LanguageUnknown
}

// ResolveLanguage picks the language of a unit: an explicit tag wins, then
// the file extension, then the shebang line. An explicit tag that is not
// recognized resolves to unknown rather than falling through.
func ResolveLanguage(tag, path string, content []byte) types.Language {
	if tag != "" {
		return ParseLanguage(tag)
	}

	if lang := ExtensionLanguage(path); lang != types.LanguageUnknown {
		return lang
	}

	// A path with an extension we do not know is not sniffed.
	if filepath.Ext(path) != "" {
		return types.LanguageUnknown
	}

	return shebangLanguage(content)
}

func shebangLanguage(content []byte) types.Language {
	interp := parser.ShebangInterpreter(content)
	if interp == "" {
		return types.LanguageUnknown
	}

	// python3.12 -> python
	interp = strings.TrimRight(interp, "0123456789.")
	return ParseLanguage(interp)
}

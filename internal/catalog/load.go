// Copyright 2025 3 Leaps, LLC
// Licensed under the Apache License, Version 2.0

package catalog

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/3leaps/taintsentry/internal/types"
)

const (
	// maxCatalogSize is the maximum allowed catalog file size (1MB).
	maxCatalogSize = 1 * 1024 * 1024

	// Limits on a single catalog file.
	maxCatalogs      = 16
	maxSources       = 512
	maxSinks         = 512
	maxTaintedParams = 64
	maxSignatureLen  = 256
)

// File is the on-disk catalog format.
type File struct {
	Catalogs []Spec `yaml:"catalogs"`
}

// Set holds one catalog per language.
type Set map[types.Language]*Catalog

// Lookup returns the catalog for lang, falling back to the builtin.
func (s Set) Lookup(lang types.Language) *Catalog {
	if c, ok := s[lang]; ok {
		return c
	}
	return Builtin(lang)
}

var controlChars = regexp.MustCompile(`[\x00-\x1f\x7f]`)

// LoadFile reads a catalog file from path.
func LoadFile(path string) (Set, error) {
	data, err := readLimited(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes and validates catalog file contents. Entries with extend set
// are merged into the builtin catalog for their language; the rest replace it.
func Parse(data []byte) (Set, error) {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	var file File
	if err := decoder.Decode(&file); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("catalog file is empty")
		}
		return nil, fmt.Errorf("failed to parse catalog file: %w", err)
	}

	if len(file.Catalogs) == 0 {
		return nil, fmt.Errorf("catalog file declares no catalogs")
	}
	if len(file.Catalogs) > maxCatalogs {
		return nil, fmt.Errorf("too many catalogs: %d (max: %d)", len(file.Catalogs), maxCatalogs)
	}

	set := make(Set, len(file.Catalogs))
	for i, spec := range file.Catalogs {
		if _, dup := set[spec.Language]; dup {
			return nil, fmt.Errorf("catalog[%d]: duplicate language %q", i, spec.Language)
		}

		var (
			c   *Catalog
			err error
		)
		if spec.Extend {
			base := Builtin(spec.Language)
			if base == nil {
				return nil, fmt.Errorf("catalog[%d]: no builtin catalog to extend for %q", i, spec.Language)
			}
			c, err = base.Merge(spec)
		} else {
			c, err = New(spec)
		}
		if err != nil {
			return nil, fmt.Errorf("catalog[%d]: %w", i, err)
		}
		set[spec.Language] = c
	}

	return set, nil
}

func readLimited(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat catalog file: %w", err)
	}
	if info.Size() > maxCatalogSize {
		return nil, fmt.Errorf("catalog file size (%d bytes) exceeds maximum allowed size (%d bytes)", info.Size(), maxCatalogSize)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxCatalogSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	return data, nil
}

func validateSpec(spec *Spec) error {
	switch spec.Language {
	case types.LanguagePython, types.LanguageShell, types.LanguageJavaScript,
		types.LanguageTypeScript, types.LanguagePHP, types.LanguageRuby:
	case "":
		return fmt.Errorf("language is required")
	default:
		return fmt.Errorf("unknown language %q", spec.Language)
	}

	if len(spec.Sources) > maxSources {
		return fmt.Errorf("too many sources: %d (max: %d)", len(spec.Sources), maxSources)
	}
	if len(spec.Sinks) > maxSinks {
		return fmt.Errorf("too many sinks: %d (max: %d)", len(spec.Sinks), maxSinks)
	}
	if len(spec.TaintedParams) > maxTaintedParams {
		return fmt.Errorf("too many tainted params: %d (max: %d)", len(spec.TaintedParams), maxTaintedParams)
	}

	for i, s := range spec.Sources {
		if err := validateSignature(s); err != nil {
			return fmt.Errorf("source[%d]: %w", i, err)
		}
	}

	for i, sink := range spec.Sinks {
		if err := validateSignature(sink.Name); err != nil {
			return fmt.Errorf("sink[%d]: %w", i, err)
		}
		if !sink.Kind.Valid() {
			return fmt.Errorf("sink[%d] (%s): unknown kind %q", i, sink.Name, sink.Kind)
		}
	}

	for i, p := range spec.TaintedParams {
		if err := validateSignature(p); err != nil {
			return fmt.Errorf("tainted_params[%d]: %w", i, err)
		}
	}

	return nil
}

func validateSignature(s string) error {
	if s == "" {
		return fmt.Errorf("signature cannot be empty")
	}
	if len(s) > maxSignatureLen {
		return fmt.Errorf("signature too long: %d characters (max: %d)", len(s), maxSignatureLen)
	}
	if controlChars.MatchString(s) {
		return fmt.Errorf("signature %q contains control characters", s)
	}
	return nil
}

// Package catalog provides the source and sink registries used by the taint engines.
//
// Copyright 2025 3 Leaps, LLC
// Licensed under the Apache License, Version 2.0

package catalog

import (
	"fmt"
	"sort"
	"strings"

	"github.com/3leaps/taintsentry/internal/types"
)

// SinkSignature maps a dangerous call (or, for heuristic catalogs, a text
// fragment) to the vulnerability it enables.
type SinkSignature struct {
	// Name is the normalized dotted call name (e.g., "subprocess.run").
	Name string `yaml:"name"`

	// Kind is the vulnerability category.
	Kind types.VulnerabilityKind `yaml:"kind"`
}

// Remediation returns the remediation text shared by all sinks of the same kind.
func (s SinkSignature) Remediation() string {
	return s.Kind.Remediation()
}

// Spec is the serializable form of a catalog.
type Spec struct {
	// Language is the language tag the catalog applies to.
	Language types.Language `yaml:"language"`

	// Extend merges the entries into the builtin catalog for Language
	// instead of replacing it.
	Extend bool `yaml:"extend,omitempty"`

	// Sources are dotted names that introduce untrusted data.
	Sources []string `yaml:"sources"`

	// Sinks are dangerous calls.
	Sinks []SinkSignature `yaml:"sinks"`

	// TaintedParams are substrings that mark a function parameter as
	// carrying untrusted data.
	TaintedParams []string `yaml:"tainted_params,omitempty"`
}

// Catalog is an immutable source/sink registry.
// It is safe for concurrent use.
type Catalog struct {
	language      types.Language
	sources       []string
	sinks         map[string]types.VulnerabilityKind
	sinkOrder     []string
	taintedParams []string
}

// New validates spec and builds a catalog from a private copy of it.
func New(spec Spec) (*Catalog, error) {
	if err := validateSpec(&spec); err != nil {
		return nil, err
	}

	c := &Catalog{
		language:      spec.Language,
		sinks:         make(map[string]types.VulnerabilityKind, len(spec.Sinks)),
		sinkOrder:     make([]string, 0, len(spec.Sinks)),
		taintedParams: make([]string, 0, len(spec.TaintedParams)),
	}

	seenSources := make(map[string]struct{}, len(spec.Sources))
	for _, s := range spec.Sources {
		if _, ok := seenSources[s]; ok {
			continue
		}
		seenSources[s] = struct{}{}
		c.sources = append(c.sources, s)
	}

	for _, sink := range spec.Sinks {
		if existing, ok := c.sinks[sink.Name]; ok {
			if existing != sink.Kind {
				return nil, fmt.Errorf("sink %q mapped to both %s and %s", sink.Name, existing, sink.Kind)
			}
			continue
		}
		c.sinks[sink.Name] = sink.Kind
		c.sinkOrder = append(c.sinkOrder, sink.Name)
	}

	for _, p := range spec.TaintedParams {
		c.taintedParams = append(c.taintedParams, strings.ToLower(p))
	}

	return c, nil
}

// MustNew is like New but panics on an invalid spec. Intended for builtins.
func MustNew(spec Spec) *Catalog {
	c, err := New(spec)
	if err != nil {
		panic(fmt.Sprintf("catalog: invalid builtin %s: %v", spec.Language, err))
	}
	return c
}

// Language returns the language the catalog was built for.
func (c *Catalog) Language() types.Language {
	return c.language
}

// IsSource reports whether name is a taint source. A source matches exactly
// or as a dotted prefix: "request.args" matches "request.args.get".
func (c *Catalog) IsSource(name string) bool {
	if name == "" {
		return false
	}
	for _, s := range c.sources {
		if name == s || strings.HasPrefix(name, s+".") {
			return true
		}
	}
	return false
}

// SinkInfo returns the sink signature for an exact dotted call name.
func (c *Catalog) SinkInfo(name string) (SinkSignature, bool) {
	kind, ok := c.sinks[name]
	if !ok {
		return SinkSignature{}, false
	}
	return SinkSignature{Name: name, Kind: kind}, true
}

// TaintedParam reports whether a parameter name looks like it carries user data.
func (c *Catalog) TaintedParam(name string) bool {
	lower := strings.ToLower(name)
	for _, kw := range c.taintedParams {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// Sources returns a copy of the source signatures in declaration order.
func (c *Catalog) Sources() []string {
	return append([]string(nil), c.sources...)
}

// Sinks returns a copy of the sink signatures in declaration order.
func (c *Catalog) Sinks() []SinkSignature {
	out := make([]SinkSignature, 0, len(c.sinkOrder))
	for _, name := range c.sinkOrder {
		out = append(out, SinkSignature{Name: name, Kind: c.sinks[name]})
	}
	return out
}

// Spec returns the serializable form of the catalog.
func (c *Catalog) Spec() Spec {
	return Spec{
		Language:      c.language,
		Sources:       c.Sources(),
		Sinks:         c.Sinks(),
		TaintedParams: append([]string(nil), c.taintedParams...),
	}
}

// Merge returns a new catalog holding the entries of c followed by those of extra.
func (c *Catalog) Merge(extra Spec) (*Catalog, error) {
	base := c.Spec()
	base.Sources = append(base.Sources, extra.Sources...)
	base.Sinks = append(base.Sinks, extra.Sinks...)
	base.TaintedParams = append(base.TaintedParams, extra.TaintedParams...)
	return New(base)
}

// Kinds returns the distinct vulnerability kinds the catalog can report, sorted.
func (c *Catalog) Kinds() []types.VulnerabilityKind {
	seen := make(map[types.VulnerabilityKind]struct{})
	for _, k := range c.sinks {
		seen[k] = struct{}{}
	}
	out := make([]types.VulnerabilityKind, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

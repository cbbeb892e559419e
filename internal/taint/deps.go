// Package taint implements intraprocedural taint propagation over the ir
// syntax tree.
//
// A single top-to-bottom pass tracks which identifiers hold untrusted data
// and reports every call to a catalog sink whose positional arguments read a
// tainted identifier. There is no fixed-point iteration: a variable tainted
// late in a loop body does not retroactively taint earlier statements.
//
// Copyright 2025 3 Leaps, LLC
// Licensed under the Apache License, Version 2.0

package taint

import (
	"fmt"

	"github.com/3leaps/taintsentry/internal/ir"
)

// Dependencies returns the set of identifiers whose values can flow into e.
//
// Call callees and keyword arguments are not dependencies, nor is the index
// of a subscript. Attributes, literals, positional parameters and unmodeled
// constructs contribute nothing.
func Dependencies(e ir.Expr) map[string]struct{} {
	deps := make(map[string]struct{})
	collectDeps(e, deps)
	return deps
}

func collectDeps(e ir.Expr, deps map[string]struct{}) {
	switch n := e.(type) {
	case nil:
	case *ir.Name:
		deps[n.Ident] = struct{}{}
	case *ir.Call:
		for _, a := range n.Args {
			collectDeps(a, deps)
		}
	case *ir.BinaryOp:
		collectDeps(n.Left, deps)
		collectDeps(n.Right, deps)
	case *ir.Interpolation:
		for _, p := range n.Parts {
			collectDeps(p, deps)
		}
	case *ir.Subscript:
		collectDeps(n.Value, deps)
	case *ir.Attribute, *ir.Literal, *ir.Positional, *ir.Opaque:
	default:
		panic(fmt.Sprintf("taint.Dependencies: unexpected expression %T", e))
	}
}

// IsSourceExpr reports whether e, or any part it is composed from by
// concatenation or interpolation, names a taint source.
func IsSourceExpr(e ir.Expr, isSource func(string) bool) bool {
	if isSource(ir.SourceName(e)) {
		return true
	}
	switch n := e.(type) {
	case *ir.BinaryOp:
		return IsSourceExpr(n.Left, isSource) || IsSourceExpr(n.Right, isSource)
	case *ir.Interpolation:
		for _, p := range n.Parts {
			if IsSourceExpr(p, isSource) {
				return true
			}
		}
	}
	return false
}

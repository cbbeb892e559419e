// Copyright 2025 3 Leaps, LLC
// Licensed under the Apache License, Version 2.0

package ir

// DottedName flattens a callee expression into a dotted path
// (os.system, cursor.execute). It returns "" for anything that is not a
// chain of names and attributes. An attribute on an unnamed base keeps only
// the attribute ("x".format -> "format").
func DottedName(e Expr) string {
	switch n := e.(type) {
	case *Name:
		return n.Ident
	case *Attribute:
		base := DottedName(n.Value)
		if base == "" {
			return n.Attr
		}
		return base + "." + n.Attr
	default:
		return ""
	}
}

// SourceName returns the name used to match e against taint sources:
// the callee of a call, the path of an attribute, the base of a subscript,
// or the $-prefixed parameter of a positional reference.
func SourceName(e Expr) string {
	switch n := e.(type) {
	case *Call:
		return DottedName(n.Func)
	case *Attribute:
		return DottedName(n)
	case *Subscript:
		return SourceName(n.Value)
	case *Positional:
		return "$" + n.Param
	default:
		return ""
	}
}

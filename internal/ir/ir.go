// Package ir defines the language-neutral syntax tree the taint engine walks.
//
// Front ends in internal/parser lower a concrete parse tree into these nodes.
// The node set is closed: Expr and Stmt carry unexported marker methods, so
// only this package can add kinds, and consumers switch over the full set.
//
// Copyright 2025 3 Leaps, LLC
// Licensed under the Apache License, Version 2.0

package ir

import "github.com/3leaps/taintsentry/internal/types"

// Pos is a 1-based source position.
type Pos struct {
	Line   int
	Column int
}

// Node is any syntax tree node.
type Node interface {
	node()
}

// Expr is an expression node.
type Expr interface {
	Node
	expr()
}

// Stmt is a statement node.
type Stmt interface {
	Node
	stmt()
}

// File is a lowered source unit.
type File struct {
	Language types.Language
	Body     []Stmt
}

// Expressions.

// Name is a variable reference.
type Name struct {
	Ident string
	Pos   Pos
}

// Attribute is a member access (value.attr).
type Attribute struct {
	Value Expr
	Attr  string
}

// Call is a function or command invocation.
type Call struct {
	Func Expr
	// Args are the positional arguments.
	Args []Expr
	// Keywords holds keyword argument values; walked but never a data dependency.
	Keywords []Expr
	Pos      Pos
}

// BinaryOp is an arithmetic, concatenation or boolean operator.
type BinaryOp struct {
	Op    string
	Left  Expr
	Right Expr
}

// Interpolation is a string built from embedded expressions
// (f-string, template literal, double-quoted shell word).
type Interpolation struct {
	Parts []Expr
}

// Subscript is an index or slice access (value[index]).
type Subscript struct {
	Value Expr
	Index Expr
}

// Literal is a constant.
type Literal struct {
	Text string
}

// Positional is a shell positional or special parameter ($1, $@, $*).
type Positional struct {
	Param string
	Pos   Pos
}

// Opaque is any construct the engine does not model. It reads no tracked
// variables, but its children are still walked for nested calls.
type Opaque struct {
	Kind     string
	Children []Expr
}

func (*Name) node()          {}
func (*Attribute) node()     {}
func (*Call) node()          {}
func (*BinaryOp) node()      {}
func (*Interpolation) node() {}
func (*Subscript) node()     {}
func (*Literal) node()       {}
func (*Positional) node()    {}
func (*Opaque) node()        {}

func (*Name) expr()          {}
func (*Attribute) expr()     {}
func (*Call) expr()          {}
func (*BinaryOp) expr()      {}
func (*Interpolation) expr() {}
func (*Subscript) expr()     {}
func (*Literal) expr()       {}
func (*Positional) expr()    {}
func (*Opaque) expr()        {}

// Statements.

// FuncDef is a function definition.
type FuncDef struct {
	Name   string
	Params []string
	// Defaults holds parameter default values and decorators.
	Defaults []Expr
	Body     []Stmt
	Pos      Pos
}

// Assign binds the value to every identifier target.
type Assign struct {
	Targets []string
	// Complex holds non-identifier targets (attributes, subscripts, tuples).
	Complex []Expr
	Value   Expr
	// Augmented marks compound assignment (x += y).
	Augmented bool
	Pos       Pos
}

// ExprStmt is an expression evaluated for its effect.
type ExprStmt struct {
	X Expr
}

// Block is any compound statement (if, loop, with, try, class, pipeline).
type Block struct {
	Kind  string
	Exprs []Expr
	Body  []Stmt
}

func (*FuncDef) node()  {}
func (*Assign) node()   {}
func (*ExprStmt) node() {}
func (*Block) node()    {}

func (*FuncDef) stmt()  {}
func (*Assign) stmt()   {}
func (*ExprStmt) stmt() {}
func (*Block) stmt()    {}

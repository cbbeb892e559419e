// Copyright 2025 3 Leaps, LLC
// Licensed under the Apache License, Version 2.0

package parser

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/3leaps/taintsentry/internal/ir"
	"github.com/3leaps/taintsentry/internal/types"
)

// ParsePython parses Python source with tree-sitter and lowers it into an
// ir.File. Any ERROR or MISSING node in the tree, or a Python 2 print or
// exec statement, is reported as a *ParseError at the first such node.
func ParsePython(ctx context.Context, content []byte) (*ir.File, error) {
	p := sitter.NewParser()
	defer p.Close()
	p.SetLanguage(python.GetLanguage())

	tree, err := p.ParseCtx(ctx, nil, content)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("tree-sitter parse: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return nil, firstSyntaxError(root)
	}
	if pe := legacyStatement(root); pe != nil {
		return nil, pe
	}

	l := &pyLowerer{src: content}
	return &ir.File{
		Language: types.LanguagePython,
		Body:     l.stmts(root),
	}, nil
}

// The grammar still accepts Python 2 print and exec statements; a Python 3
// compiler does not.
var legacyStatements = map[string]string{
	"print_statement": "Missing parentheses in call to 'print'",
	"exec_statement":  "Missing parentheses in call to 'exec'",
}

func legacyStatement(n *sitter.Node) *ParseError {
	if msg, ok := legacyStatements[n.Type()]; ok {
		return &ParseError{
			Line:    int(n.StartPoint().Row) + 1,
			Column:  int(n.StartPoint().Column) + 1,
			Message: msg,
		}
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if pe := legacyStatement(n.NamedChild(i)); pe != nil {
			return pe
		}
	}
	return nil
}

func firstSyntaxError(n *sitter.Node) *ParseError {
	if n.IsMissing() {
		return &ParseError{
			Line:    int(n.StartPoint().Row) + 1,
			Column:  int(n.StartPoint().Column) + 1,
			Message: fmt.Sprintf("missing %q", n.Type()),
		}
	}
	if n.Type() == "ERROR" {
		return &ParseError{
			Line:    int(n.StartPoint().Row) + 1,
			Column:  int(n.StartPoint().Column) + 1,
			Message: "invalid syntax",
		}
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child == nil || !child.HasError() && !child.IsMissing() {
			continue
		}
		if pe := firstSyntaxError(child); pe != nil {
			return pe
		}
	}
	// HasError was set but no ERROR/MISSING node was found below n.
	return &ParseError{
		Line:    int(n.StartPoint().Row) + 1,
		Column:  int(n.StartPoint().Column) + 1,
		Message: "invalid syntax",
	}
}

type pyLowerer struct {
	src []byte
}

func (l *pyLowerer) pos(n *sitter.Node) ir.Pos {
	p := n.StartPoint()
	return ir.Pos{Line: int(p.Row) + 1, Column: int(p.Column) + 1}
}

func (l *pyLowerer) text(n *sitter.Node) string {
	return n.Content(l.src)
}

func namedChildren(n *sitter.Node) []*sitter.Node {
	out := make([]*sitter.Node, 0, n.NamedChildCount())
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if c := n.NamedChild(i); c != nil && c.Type() != "comment" {
			out = append(out, c)
		}
	}
	return out
}

// stmts lowers the statements of a module or block.
func (l *pyLowerer) stmts(n *sitter.Node) []ir.Stmt {
	var out []ir.Stmt
	for _, c := range namedChildren(n) {
		out = append(out, l.stmt(c)...)
	}
	return out
}

func isStatementNode(t string) bool {
	return t == "block" ||
		strings.HasSuffix(t, "_statement") ||
		strings.HasSuffix(t, "_clause") ||
		strings.HasSuffix(t, "_definition")
}

func (l *pyLowerer) stmt(n *sitter.Node) []ir.Stmt {
	switch n.Type() {
	case "expression_statement":
		var out []ir.Stmt
		for _, c := range namedChildren(n) {
			switch c.Type() {
			case "assignment", "augmented_assignment":
				out = append(out, l.assignment(c))
			default:
				out = append(out, &ir.ExprStmt{X: l.expr(c)})
			}
		}
		return out

	case "function_definition":
		return []ir.Stmt{l.funcDef(n, nil)}

	case "decorated_definition":
		var decorators []ir.Expr
		for _, c := range namedChildren(n) {
			if c.Type() == "decorator" {
				for _, d := range namedChildren(c) {
					decorators = append(decorators, l.expr(d))
				}
			}
		}
		def := n.ChildByFieldName("definition")
		if def == nil {
			return []ir.Stmt{&ir.Block{Kind: "decorated_definition", Exprs: decorators}}
		}
		if def.Type() == "function_definition" {
			return []ir.Stmt{l.funcDef(def, decorators)}
		}
		blk := &ir.Block{Kind: "decorated_definition", Exprs: decorators}
		blk.Body = l.stmt(def)
		return []ir.Stmt{blk}

	case "for_statement":
		blk := &ir.Block{Kind: "for"}
		left := n.ChildByFieldName("left")
		right := n.ChildByFieldName("right")
		if right != nil {
			loop := &ir.Assign{Value: l.expr(right), Pos: l.pos(n)}
			if left != nil && left.Type() == "identifier" {
				loop.Targets = []string{l.text(left)}
			} else if left != nil {
				loop.Complex = []ir.Expr{l.expr(left)}
			}
			blk.Body = append(blk.Body, loop)
		}
		for _, field := range []string{"body", "alternative"} {
			if c := n.ChildByFieldName(field); c != nil {
				blk.Body = append(blk.Body, l.stmt(c)...)
			}
		}
		return []ir.Stmt{blk}

	case "block":
		return l.stmts(n)

	default:
		return []ir.Stmt{l.block(n)}
	}
}

// block lowers any other compound or simple statement generically: nested
// statements become the body, everything else is walked as an expression.
func (l *pyLowerer) block(n *sitter.Node) *ir.Block {
	blk := &ir.Block{Kind: n.Type()}
	for _, c := range namedChildren(n) {
		if isStatementNode(c.Type()) || c.Type() == "expression_statement" || c.Type() == "decorated_definition" {
			blk.Body = append(blk.Body, l.stmt(c)...)
			continue
		}
		// The name of a class is not an expression.
		if n.Type() == "class_definition" && c.Type() == "identifier" {
			continue
		}
		blk.Exprs = append(blk.Exprs, l.expr(c))
	}
	return blk
}

func (l *pyLowerer) funcDef(n *sitter.Node, decorators []ir.Expr) *ir.FuncDef {
	fd := &ir.FuncDef{Pos: l.pos(n), Defaults: decorators}
	if name := n.ChildByFieldName("name"); name != nil {
		fd.Name = l.text(name)
	}

	if params := n.ChildByFieldName("parameters"); params != nil {
		for _, p := range namedChildren(params) {
			name, def := l.param(p)
			if name != "" {
				fd.Params = append(fd.Params, name)
			}
			if def != nil {
				fd.Defaults = append(fd.Defaults, def)
			}
		}
	}

	if body := n.ChildByFieldName("body"); body != nil {
		fd.Body = l.stmts(body)
	}
	return fd
}

// param returns the bound name of a parameter node and its default value.
func (l *pyLowerer) param(p *sitter.Node) (string, ir.Expr) {
	switch p.Type() {
	case "identifier":
		return l.text(p), nil
	case "typed_parameter", "list_splat_pattern", "dictionary_splat_pattern":
		for _, c := range namedChildren(p) {
			if c.Type() == "identifier" {
				return l.text(c), nil
			}
			if c.Type() == "list_splat_pattern" || c.Type() == "dictionary_splat_pattern" {
				return l.param(c)
			}
		}
		return "", nil
	case "default_parameter", "typed_default_parameter":
		var name string
		if nn := p.ChildByFieldName("name"); nn != nil {
			name = l.text(nn)
		}
		var def ir.Expr
		if v := p.ChildByFieldName("value"); v != nil {
			def = l.expr(v)
		}
		return name, def
	default:
		// Separators (/ and *) bind nothing.
		return "", nil
	}
}

// assignment flattens chained assignment (a = b = value) into one Assign.
func (l *pyLowerer) assignment(n *sitter.Node) ir.Stmt {
	as := &ir.Assign{Pos: l.pos(n), Augmented: n.Type() == "augmented_assignment"}

	cur := n
	for {
		if left := cur.ChildByFieldName("left"); left != nil {
			if left.Type() == "identifier" {
				as.Targets = append(as.Targets, l.text(left))
			} else {
				as.Complex = append(as.Complex, l.expr(left))
			}
		}
		right := cur.ChildByFieldName("right")
		if right == nil {
			// Bare annotation (x: int) binds nothing.
			return &ir.Block{Kind: "annotation", Exprs: as.Complex}
		}
		if right.Type() == "assignment" {
			cur = right
			continue
		}
		as.Value = l.expr(right)
		return as
	}
}

func (l *pyLowerer) expr(n *sitter.Node) ir.Expr {
	switch n.Type() {
	case "identifier":
		return &ir.Name{Ident: l.text(n), Pos: l.pos(n)}

	case "attribute":
		attr := &ir.Attribute{Value: &ir.Literal{}}
		if obj := n.ChildByFieldName("object"); obj != nil {
			attr.Value = l.expr(obj)
		}
		if a := n.ChildByFieldName("attribute"); a != nil {
			attr.Attr = l.text(a)
		}
		return attr

	case "call":
		call := &ir.Call{Pos: l.pos(n), Func: &ir.Literal{}}
		if fn := n.ChildByFieldName("function"); fn != nil {
			call.Func = l.expr(fn)
		}
		args := n.ChildByFieldName("arguments")
		if args == nil {
			return call
		}
		if args.Type() != "argument_list" {
			call.Args = append(call.Args, l.expr(args))
			return call
		}
		for _, a := range namedChildren(args) {
			if a.Type() == "keyword_argument" {
				if v := a.ChildByFieldName("value"); v != nil {
					call.Keywords = append(call.Keywords, l.expr(v))
				}
				continue
			}
			call.Args = append(call.Args, l.expr(a))
		}
		return call

	case "binary_operator", "boolean_operator":
		op := &ir.BinaryOp{Left: &ir.Literal{}, Right: &ir.Literal{}}
		if left := n.ChildByFieldName("left"); left != nil {
			op.Left = l.expr(left)
		}
		if right := n.ChildByFieldName("right"); right != nil {
			op.Right = l.expr(right)
		}
		if o := n.ChildByFieldName("operator"); o != nil {
			op.Op = l.text(o)
		}
		return op

	case "conditional_expression":
		// a if cond else b: either branch may be the value.
		kids := namedChildren(n)
		if len(kids) >= 3 {
			return &ir.BinaryOp{Op: "if", Left: l.expr(kids[0]), Right: l.expr(kids[2])}
		}
		return l.opaque(n)

	case "string":
		interp := &ir.Interpolation{}
		for _, c := range namedChildren(n) {
			if c.Type() != "interpolation" {
				continue
			}
			inner := c.ChildByFieldName("expression")
			if inner == nil {
				if kids := namedChildren(c); len(kids) > 0 {
					inner = kids[0]
				}
			}
			if inner != nil {
				interp.Parts = append(interp.Parts, l.expr(inner))
			}
		}
		if len(interp.Parts) == 0 {
			return &ir.Literal{Text: l.text(n)}
		}
		return interp

	case "concatenated_string":
		interp := &ir.Interpolation{}
		for _, c := range namedChildren(n) {
			interp.Parts = append(interp.Parts, l.expr(c))
		}
		return interp

	case "subscript":
		sub := &ir.Subscript{Value: &ir.Literal{}, Index: &ir.Literal{}}
		if v := n.ChildByFieldName("value"); v != nil {
			sub.Value = l.expr(v)
		}
		if idx := n.ChildByFieldName("subscript"); idx != nil {
			sub.Index = l.expr(idx)
		}
		return sub

	case "parenthesized_expression":
		if kids := namedChildren(n); len(kids) == 1 {
			return l.expr(kids[0])
		}
		return l.opaque(n)

	case "integer", "float", "true", "false", "none":
		return &ir.Literal{Text: l.text(n)}

	default:
		return l.opaque(n)
	}
}

func (l *pyLowerer) opaque(n *sitter.Node) ir.Expr {
	op := &ir.Opaque{Kind: n.Type()}
	for _, c := range namedChildren(n) {
		op.Children = append(op.Children, l.expr(c))
	}
	return op
}

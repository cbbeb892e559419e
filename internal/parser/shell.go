// Copyright 2025 3 Leaps, LLC
// Licensed under the Apache License, Version 2.0

package parser

import (
	"bytes"
	"fmt"
	"strings"

	"mvdan.cc/sh/v3/syntax"

	"github.com/3leaps/taintsentry/internal/ir"
	"github.com/3leaps/taintsentry/internal/types"
)

// Dialect represents a shell dialect.
type Dialect int

const (
	// DialectAuto attempts to detect the dialect from shebang.
	DialectAuto Dialect = iota
	// DialectBash is GNU Bash.
	DialectBash
	// DialectPOSIX is POSIX sh.
	DialectPOSIX
	// DialectMirBSDKorn is MirBSD Korn shell.
	DialectMirBSDKorn
	// DialectBats is Bash Automated Testing System.
	DialectBats
)

// String returns the dialect name.
func (d Dialect) String() string {
	switch d {
	case DialectBash:
		return "bash"
	case DialectPOSIX:
		return "posix"
	case DialectMirBSDKorn:
		return "mksh"
	case DialectBats:
		return "bats"
	default:
		return "auto"
	}
}

// ParseDialect maps a dialect name to a Dialect. The empty string is auto.
func ParseDialect(name string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "auto":
		return DialectAuto, nil
	case "bash":
		return DialectBash, nil
	case "posix", "sh":
		return DialectPOSIX, nil
	case "mksh":
		return DialectMirBSDKorn, nil
	case "bats":
		return DialectBats, nil
	default:
		return DialectAuto, fmt.Errorf("unknown shell dialect %q", name)
	}
}

func posOf(p syntax.Pos) ir.Pos {
	return ir.Pos{Line: uintToInt(p.Line()), Column: uintToInt(p.Col())}
}

// ParseShell parses a shell script and lowers it into an ir.File.
// With DialectAuto the dialect is detected from the shebang, falling back
// to Bash (most permissive).
func ParseShell(content []byte, filename string, dialect Dialect) (*ir.File, error) {
	if dialect == DialectAuto {
		dialect = DetectDialect(content)
	}

	var variant syntax.LangVariant
	switch dialect {
	case DialectPOSIX:
		variant = syntax.LangPOSIX
	case DialectMirBSDKorn:
		variant = syntax.LangMirBSDKorn
	case DialectBats:
		variant = syntax.LangBats
	default:
		variant = syntax.LangBash
	}

	p := syntax.NewParser(syntax.Variant(variant))
	file, err := p.Parse(bytes.NewReader(content), filename)
	if err != nil {
		if parseErr, ok := err.(syntax.ParseError); ok {
			return nil, &ParseError{
				Line:    uintToInt(parseErr.Pos.Line()),
				Column:  uintToInt(parseErr.Pos.Col()),
				Message: parseErr.Text,
			}
		}
		return nil, &ParseError{Line: 1, Column: 1, Message: err.Error()}
	}

	return &ir.File{
		Language: types.LanguageShell,
		Body:     lowerShellStmts(file.Stmts),
	}, nil
}

// DetectDialect attempts to detect the shell dialect from a shebang line.
func DetectDialect(content []byte) Dialect {
	switch ShebangInterpreter(content) {
	case "bash":
		return DialectBash
	case "sh", "dash":
		return DialectPOSIX
	case "ksh", "mksh":
		return DialectMirBSDKorn
	case "bats":
		return DialectBats
	default:
		return DialectAuto
	}
}

// ShebangInterpreter returns the interpreter basename named by a shebang
// line ("bash" for "#!/usr/bin/env bash"), or "" when there is none.
func ShebangInterpreter(content []byte) string {
	idx := bytes.IndexByte(content, '\n')
	firstLine := content
	if idx >= 0 {
		firstLine = content[:idx]
	}

	line := strings.TrimSpace(string(firstLine))
	if !strings.HasPrefix(line, "#!") {
		return ""
	}

	shebang := strings.TrimSpace(strings.TrimPrefix(line, "#!"))
	fields := strings.Fields(shebang)
	if len(fields) == 0 {
		return ""
	}

	// Handle "#!/usr/bin/env bash" style, including "env -S".
	interp := fields[0]
	if strings.HasSuffix(interp, "/env") || interp == "env" {
		interp = ""
		for _, f := range fields[1:] {
			if !strings.HasPrefix(f, "-") {
				interp = f
				break
			}
		}
	}

	parts := strings.Split(interp, "/")
	return parts[len(parts)-1]
}

func lowerShellStmts(stmts []*syntax.Stmt) []ir.Stmt {
	var out []ir.Stmt
	for _, s := range stmts {
		out = append(out, lowerShellStmt(s)...)
	}
	return out
}

func lowerShellStmt(s *syntax.Stmt) []ir.Stmt {
	if s == nil || s.Cmd == nil {
		return nil
	}

	switch c := s.Cmd.(type) {
	case *syntax.CallExpr:
		return lowerCallExpr(c)

	case *syntax.DeclClause:
		// local, export, declare, readonly, typeset
		var out []ir.Stmt
		for _, a := range c.Args {
			if st := lowerAssign(a); st != nil {
				out = append(out, st)
			}
		}
		return out

	case *syntax.FuncDecl:
		fd := &ir.FuncDef{Pos: posOf(c.Pos())}
		if c.Name != nil {
			fd.Name = c.Name.Value
		}
		fd.Body = lowerShellStmt(c.Body)
		return []ir.Stmt{fd}

	case *syntax.IfClause:
		blk := &ir.Block{Kind: "if"}
		for clause := c; clause != nil; clause = clause.Else {
			blk.Body = append(blk.Body, lowerShellStmts(clause.Cond)...)
			blk.Body = append(blk.Body, lowerShellStmts(clause.Then)...)
		}
		return []ir.Stmt{blk}

	case *syntax.WhileClause:
		blk := &ir.Block{Kind: "while"}
		blk.Body = append(lowerShellStmts(c.Cond), lowerShellStmts(c.Do)...)
		return []ir.Stmt{blk}

	case *syntax.ForClause:
		blk := &ir.Block{Kind: "for"}
		if iter, ok := c.Loop.(*syntax.WordIter); ok && iter.Name != nil {
			items := &ir.Interpolation{}
			for _, w := range iter.Items {
				items.Parts = append(items.Parts, lowerWord(w))
			}
			if len(iter.Items) == 0 {
				// "for x; do" iterates over "$@".
				items.Parts = append(items.Parts, &ir.Positional{Param: "@", Pos: posOf(iter.Name.Pos())})
			}
			blk.Body = append(blk.Body, &ir.Assign{
				Targets: []string{iter.Name.Value},
				Value:   items,
				Pos:     posOf(iter.Name.Pos()),
			})
		}
		blk.Body = append(blk.Body, lowerShellStmts(c.Do)...)
		return []ir.Stmt{blk}

	case *syntax.CaseClause:
		blk := &ir.Block{Kind: "case"}
		if c.Word != nil {
			blk.Exprs = append(blk.Exprs, lowerWord(c.Word))
		}
		for _, item := range c.Items {
			blk.Body = append(blk.Body, lowerShellStmts(item.Stmts)...)
		}
		return []ir.Stmt{blk}

	case *syntax.Block:
		return []ir.Stmt{&ir.Block{Kind: "group", Body: lowerShellStmts(c.Stmts)}}

	case *syntax.Subshell:
		return []ir.Stmt{&ir.Block{Kind: "subshell", Body: lowerShellStmts(c.Stmts)}}

	case *syntax.BinaryCmd:
		kind := "list"
		if c.Op == syntax.Pipe || c.Op == syntax.PipeAll {
			kind = "pipeline"
		}
		blk := &ir.Block{Kind: kind}
		blk.Body = append(lowerShellStmt(c.X), lowerShellStmt(c.Y)...)
		return []ir.Stmt{blk}

	case *syntax.TimeClause:
		return lowerShellStmt(c.Stmt)

	case *syntax.CoprocClause:
		return lowerShellStmt(c.Stmt)

	default:
		// Arithmetic, test and let clauses carry no tracked command calls.
		return []ir.Stmt{&ir.Block{Kind: "shell"}}
	}
}

func lowerAssign(a *syntax.Assign) ir.Stmt {
	if a == nil || a.Name == nil || a.Naked {
		return nil
	}

	var value ir.Expr = &ir.Literal{}
	switch {
	case a.Value != nil:
		value = lowerWord(a.Value)
	case a.Array != nil:
		elems := &ir.Interpolation{}
		for _, e := range a.Array.Elems {
			if e.Value != nil {
				elems.Parts = append(elems.Parts, lowerWord(e.Value))
			}
		}
		value = elems
	}

	return &ir.Assign{
		Targets:   []string{a.Name.Value},
		Value:     value,
		Augmented: a.Append,
		Pos:       posOf(a.Pos()),
	}
}

// readValueFlags are read options that consume the following argument.
var readValueFlags = map[string]bool{
	"-p": true, "-t": true, "-d": true, "-n": true, "-N": true, "-u": true, "-i": true,
}

func lowerCallExpr(c *syntax.CallExpr) []ir.Stmt {
	var out []ir.Stmt
	for _, a := range c.Assigns {
		if st := lowerAssign(a); st != nil {
			out = append(out, st)
		}
	}
	if len(c.Args) == 0 {
		return out
	}

	pos := posOf(c.Pos())
	name := literalWord(c.Args[0])

	// read binds its operands to data taken from stdin.
	if name == "read" {
		var targets []string
		skip := false
		for _, w := range c.Args[1:] {
			arg := literalWord(w)
			switch {
			case skip:
				skip = false
			case readValueFlags[arg]:
				skip = true
			case arg == "" || strings.HasPrefix(arg, "-"):
			default:
				targets = append(targets, arg)
			}
		}
		if len(targets) == 0 {
			targets = []string{"REPLY"}
		}
		return append(out, &ir.Assign{
			Targets: targets,
			Value:   &ir.Call{Func: &ir.Name{Ident: "read", Pos: pos}, Pos: pos},
			Pos:     pos,
		})
	}

	call := &ir.Call{Pos: pos}
	if name != "" {
		call.Func = &ir.Name{Ident: name, Pos: pos}
	} else {
		call.Func = lowerWord(c.Args[0])
	}
	for _, w := range c.Args[1:] {
		call.Args = append(call.Args, lowerWord(w))
	}

	return append(out, &ir.ExprStmt{X: call})
}

// literalWord returns the word's value when it is made only of literal and
// quoted-literal parts, or "" otherwise.
func literalWord(w *syntax.Word) string {
	if w == nil {
		return ""
	}
	return w.Lit()
}

// lowerWord lowers one shell word. A word that is a single expansion, with
// or without double quotes, lowers to that expansion.
func lowerWord(w *syntax.Word) ir.Expr {
	if w == nil || len(w.Parts) == 0 {
		return &ir.Literal{}
	}
	if len(w.Parts) == 1 {
		if dq, ok := w.Parts[0].(*syntax.DblQuoted); ok && len(dq.Parts) == 1 {
			if _, isLit := dq.Parts[0].(*syntax.Lit); !isLit {
				return lowerWordPart(dq.Parts[0])
			}
		}
		return lowerWordPart(w.Parts[0])
	}

	interp := &ir.Interpolation{}
	for _, part := range w.Parts {
		interp.Parts = append(interp.Parts, lowerWordPart(part))
	}
	return interp
}

func lowerWordPart(part syntax.WordPart) ir.Expr {
	switch p := part.(type) {
	case *syntax.Lit:
		return &ir.Literal{Text: p.Value}

	case *syntax.SglQuoted:
		return &ir.Literal{Text: p.Value}

	case *syntax.DblQuoted:
		interp := &ir.Interpolation{}
		for _, qp := range p.Parts {
			interp.Parts = append(interp.Parts, lowerWordPart(qp))
		}
		return interp

	case *syntax.ParamExp:
		return lowerParamExp(p)

	case *syntax.CmdSubst:
		return lowerCmdSubst(p.Stmts)

	case *syntax.ProcSubst:
		return lowerCmdSubst(p.Stmts)

	default:
		// Arithmetic expansion, brace expansion, extended globs.
		return &ir.Opaque{Kind: "shell-expansion"}
	}
}

func isPositional(param string) bool {
	if param == "@" || param == "*" {
		return true
	}
	if param == "" || param == "0" {
		return false
	}
	for _, r := range param {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func lowerParamExp(p *syntax.ParamExp) ir.Expr {
	if p.Param == nil {
		return &ir.Opaque{Kind: "param"}
	}

	pos := posOf(p.Pos())
	var ref ir.Expr
	if isPositional(p.Param.Value) {
		ref = &ir.Positional{Param: p.Param.Value, Pos: pos}
	} else {
		ref = &ir.Name{Ident: p.Param.Value, Pos: pos}
	}

	// ${x:-fallback} and friends may yield the fallback word.
	if p.Exp != nil && p.Exp.Word != nil {
		return &ir.Interpolation{Parts: []ir.Expr{ref, lowerWord(p.Exp.Word)}}
	}
	return ref
}

// lowerCmdSubst lowers $(...) into the calls it runs. A single command is a
// plain call; several (pipelines, lists) are chained with "|".
func lowerCmdSubst(stmts []*syntax.Stmt) ir.Expr {
	var calls []ir.Expr
	var collect func(s *syntax.Stmt)
	collect = func(s *syntax.Stmt) {
		if s == nil {
			return
		}
		switch c := s.Cmd.(type) {
		case *syntax.CallExpr:
			for _, st := range lowerCallExpr(c) {
				switch n := st.(type) {
				case *ir.ExprStmt:
					calls = append(calls, n.X)
				case *ir.Assign:
					calls = append(calls, n.Value)
				}
			}
		case *syntax.BinaryCmd:
			collect(c.X)
			collect(c.Y)
		case *syntax.Subshell:
			for _, inner := range c.Stmts {
				collect(inner)
			}
		case *syntax.Block:
			for _, inner := range c.Stmts {
				collect(inner)
			}
		}
	}
	for _, s := range stmts {
		collect(s)
	}

	if len(calls) == 0 {
		return &ir.Opaque{Kind: "command-substitution"}
	}
	expr := calls[0]
	for _, next := range calls[1:] {
		expr = &ir.BinaryOp{Op: "|", Left: expr, Right: next}
	}
	return expr
}

// Copyright 2025 3 Leaps, LLC
// Licensed under the Apache License, Version 2.0

package taint

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/3leaps/taintsentry/internal/catalog"
	"github.com/3leaps/taintsentry/internal/ir"
	"github.com/3leaps/taintsentry/internal/types"
)

// Report is the outcome of one walk.
type Report struct {
	// Findings in discovery order.
	Findings []types.Finding

	// Tainted is the final tainted set, sorted.
	Tainted []string
}

// Walker runs the precise engine over a lowered file.
type Walker struct {
	catalog *catalog.Catalog
	logger  *zap.Logger

	state    *State
	findings []types.Finding
}

// NewWalker creates a walker bound to one catalog.
func NewWalker(cat *catalog.Catalog, logger *zap.Logger) *Walker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Walker{
		catalog: cat,
		logger:  logger.Named("taint"),
	}
}

// Walk analyzes file in a single depth-first, top-to-bottom pass.
// Each call starts from an empty state.
func (w *Walker) Walk(file *ir.File) *Report {
	w.state = NewState()
	w.findings = nil

	for _, s := range file.Body {
		w.stmt(s)
	}

	if w.state.Depth() != 0 {
		panic("taint: unbalanced function stack")
	}

	w.logger.Debug("walk complete",
		zap.String("language", string(file.Language)),
		zap.Int("tainted", w.state.Len()),
		zap.Int("findings", len(w.findings)))

	findings := w.findings
	if findings == nil {
		findings = []types.Finding{}
	}
	return &Report{
		Findings: findings,
		Tainted:  w.state.Snapshot(),
	}
}

func (w *Walker) stmt(s ir.Stmt) {
	switch n := s.(type) {
	case *ir.FuncDef:
		for _, d := range n.Defaults {
			w.expr(d)
		}

		name := n.Name
		if name == "" {
			name = "<anonymous>"
		}
		w.state.Push(name)
		for _, p := range n.Params {
			if w.catalog.TaintedParam(p) {
				w.state.Taint(p)
				w.logger.Debug("tainted parameter",
					zap.String("function", w.state.Function()),
					zap.String("param", p))
			}
		}
		for _, b := range n.Body {
			w.stmt(b)
		}
		w.state.Pop()

	case *ir.Assign:
		w.assign(n)

	case *ir.ExprStmt:
		w.expr(n.X)

	case *ir.Block:
		for _, e := range n.Exprs {
			w.expr(e)
		}
		for _, b := range n.Body {
			w.stmt(b)
		}

	default:
		panic(fmt.Sprintf("taint: unexpected statement %T", s))
	}
}

func (w *Walker) assign(n *ir.Assign) {
	// The value is evaluated before its targets are bound.
	w.expr(n.Value)
	for _, c := range n.Complex {
		w.expr(c)
	}

	if len(n.Targets) == 0 || n.Value == nil {
		return
	}

	fromSource := IsSourceExpr(n.Value, w.catalog.IsSource)
	fromDeps := len(w.state.Intersect(Dependencies(n.Value))) > 0
	if !fromSource && !fromDeps {
		return
	}

	for _, t := range n.Targets {
		w.state.Taint(t)
	}
	w.logger.Debug("tainted assignment",
		zap.Strings("targets", n.Targets),
		zap.Int("line", n.Pos.Line),
		zap.Bool("source", fromSource))
}

func (w *Walker) expr(e ir.Expr) {
	switch n := e.(type) {
	case nil:
	case *ir.Call:
		w.checkSink(n)
		w.expr(n.Func)
		for _, a := range n.Args {
			w.expr(a)
		}
		for _, k := range n.Keywords {
			w.expr(k)
		}
	case *ir.Attribute:
		w.expr(n.Value)
	case *ir.BinaryOp:
		w.expr(n.Left)
		w.expr(n.Right)
	case *ir.Interpolation:
		for _, p := range n.Parts {
			w.expr(p)
		}
	case *ir.Subscript:
		w.expr(n.Value)
		w.expr(n.Index)
	case *ir.Opaque:
		for _, c := range n.Children {
			w.expr(c)
		}
	case *ir.Name, *ir.Literal, *ir.Positional:
	default:
		panic(fmt.Sprintf("taint: unexpected expression %T", e))
	}
}

// checkSink emits one finding per sink call that receives tainted data in
// any positional argument.
func (w *Walker) checkSink(call *ir.Call) {
	sink, ok := w.catalog.SinkInfo(ir.DottedName(call.Func))
	if !ok {
		return
	}

	seen := make(map[string]struct{})
	var vars []string
	for _, a := range call.Args {
		for _, v := range w.state.Intersect(Dependencies(a)) {
			if _, dup := seen[v]; dup {
				continue
			}
			seen[v] = struct{}{}
			vars = append(vars, v)
		}
	}
	if len(vars) == 0 {
		return
	}
	sort.Strings(vars)

	w.findings = append(w.findings, types.Finding{
		Kind:           sink.Kind,
		Severity:       sink.Kind.Severity(),
		Line:           call.Pos.Line,
		Column:         call.Pos.Column,
		Function:       types.FunctionName(w.state.Function()),
		TaintedVars:    vars,
		Sink:           sink.Name,
		Message:        fmt.Sprintf("Tainted data from %s flows to dangerous sink %s()", strings.Join(vars, ", "), sink.Name),
		Recommendation: sink.Remediation(),
		Confidence:     types.ConfidencePrecise,
	})
}

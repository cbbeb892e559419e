// Copyright 2025 3 Leaps, LLC
// Licensed under the Apache License, Version 2.0

package taint

import (
	"sort"

	"github.com/3leaps/taintsentry/internal/types"
)

// State is the per-file taint state. The tainted set only grows; the
// function stack is balanced by Push/Pop pairs. A State is owned by one
// walker and is not safe for concurrent use.
type State struct {
	tainted map[string]struct{}
	stack   []string
}

// NewState returns an empty state.
func NewState() *State {
	return &State{tainted: make(map[string]struct{})}
}

// Taint marks name as tainted.
func (s *State) Taint(name string) {
	if name == "" {
		return
	}
	s.tainted[name] = struct{}{}
}

// IsTainted reports whether name is tainted.
func (s *State) IsTainted(name string) bool {
	_, ok := s.tainted[name]
	return ok
}

// Intersect returns the tainted members of deps, sorted.
func (s *State) Intersect(deps map[string]struct{}) []string {
	var out []string
	for d := range deps {
		if s.IsTainted(d) {
			out = append(out, d)
		}
	}
	sort.Strings(out)
	return out
}

// Snapshot returns the tainted set, sorted.
func (s *State) Snapshot() []string {
	out := make([]string, 0, len(s.tainted))
	for name := range s.tainted {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of tainted identifiers.
func (s *State) Len() int {
	return len(s.tainted)
}

// Push enters a function scope.
func (s *State) Push(name string) {
	s.stack = append(s.stack, name)
}

// Pop leaves the innermost function scope.
func (s *State) Pop() {
	if len(s.stack) == 0 {
		panic("taint: Pop on empty function stack")
	}
	s.stack = s.stack[:len(s.stack)-1]
}

// Depth returns the number of enclosing functions.
func (s *State) Depth() int {
	return len(s.stack)
}

// Function returns the innermost enclosing function, or "global" at top level.
func (s *State) Function() string {
	if len(s.stack) == 0 {
		return types.GlobalScope
	}
	return s.stack[len(s.stack)-1]
}

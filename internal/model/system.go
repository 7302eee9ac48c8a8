// Package model holds the plain-data description of a kernel system: the
// ordered symbol lists and the equations built over them. It mirrors the
// shape of the HCL input but carries no HCL types, so every other package
// can consume a System without touching the loader.
package model

import (
	"fmt"

	"github.com/vk/kerngen/internal/expr"
)

// Equation pairs a derivative left-hand side with its defining expression.
// Only the textual/indexed backends consume equations as such; native
// lowering works from the right-hand sides directly.
type Equation struct {
	Lhs expr.Derivative
	Rhs expr.Node
}

// System is one ordered kernel definition. Variable and parameter order is
// significant: the indexed numbering pass resolves symbols to positions in
// these exact lists.
type System struct {
	Name       string
	Variables  []string
	Parameters []string
	// IndepVar is the independent variable name, conventionally time.
	IndepVar string
	Equations []Equation
}

// Validate checks structural well-formedness before any generation work.
func (s *System) Validate() error {
	if len(s.Variables) == 0 {
		return fmt.Errorf("system %q declares no variables", s.Name)
	}
	seen := make(map[string]string, len(s.Variables)+len(s.Parameters)+1)
	for _, v := range s.Variables {
		if prev, ok := seen[v]; ok {
			return fmt.Errorf("system %q: symbol %q declared as both %s and variable", s.Name, v, prev)
		}
		seen[v] = "variable"
	}
	for _, p := range s.Parameters {
		if prev, ok := seen[p]; ok {
			return fmt.Errorf("system %q: symbol %q declared as both %s and parameter", s.Name, p, prev)
		}
		seen[p] = "parameter"
	}
	if s.IndepVar != "" {
		if prev, ok := seen[s.IndepVar]; ok {
			return fmt.Errorf("system %q: independent variable %q already declared as %s", s.Name, s.IndepVar, prev)
		}
	}
	for i, eq := range s.Equations {
		if seen[eq.Lhs.Of] != "variable" {
			return fmt.Errorf("system %q: equation %d differentiates %q, which is not a declared variable", s.Name, i, eq.Lhs.Of)
		}
		if eq.Rhs == nil {
			return fmt.Errorf("system %q: equation %d has no right-hand side", s.Name, i)
		}
	}
	return nil
}

// RHS returns the equation right-hand sides in declaration order.
func (s *System) RHS() []expr.Node {
	out := make([]expr.Node, len(s.Equations))
	for i, eq := range s.Equations {
		out[i] = eq.Rhs
	}
	return out
}

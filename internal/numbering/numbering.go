// Package numbering implements the indexed symbol-resolution pass used by
// the textual backends. C, Stan and MATLAB functions have no named locals
// for the system symbols, so every reference must be rewritten to a flat
// array access: derivatives into the derivative array, state variables into
// the state array, parameters into the parameter array.
//
// Resolution cost is a linear scan per symbol reference. Systems this
// generator targets are small; the pass is deliberately not optimized.
package numbering

import (
	"fmt"

	"github.com/vk/kerngen/internal/expr"
)

// ErrUnresolved is wrapped by every symbol-resolution failure. Any
// occurrence aborts the whole generation; no partial text is returned.
var ErrUnresolved = fmt.Errorf("numbering: unresolved symbol")

// Table fixes the symbol lists and the target array names for one pass.
type Table struct {
	Variables  []string
	Parameters []string
	// IndepVar, when non-empty, resolves to the bare independent-variable
	// parameter rather than an array slot. IndepName, when set, renames it
	// in the lowered form (targets name this parameter themselves).
	IndepVar  string
	IndepName string

	// Array names the lowered slots address.
	DerivArray string
	StateArray string
	ParamArray string
}

// index returns the position of name via first-match linear scan.
func index(list []string, name string) int {
	for i, s := range list {
		if s == name {
			return i
		}
	}
	return -1
}

// Lower rewrites every symbol reference in n to a flat array slot.
// Derivative(v) resolves against the variable list only; a bare variable
// reference searches the variable list first and the parameter list second.
// A symbol absent from both lists is fatal.
func (t Table) Lower(n expr.Node) (expr.Node, error) {
	switch e := n.(type) {
	case expr.Constant:
		return e, nil
	case expr.Derivative:
		i := index(t.Variables, e.Of)
		if i < 0 {
			return nil, fmt.Errorf("%w: d%s has no declared variable %q", ErrUnresolved, e.Of, e.Of)
		}
		return expr.Slot{Array: t.DerivArray, Index: i}, nil
	case expr.Variable:
		return t.lowerSymbol(e.Name)
	case expr.Param:
		return t.lowerSymbol(e.Name)
	case expr.Call:
		args := make([]expr.Node, len(e.Args))
		for i, a := range e.Args {
			lowered, err := t.Lower(a)
			if err != nil {
				return nil, err
			}
			args[i] = lowered
		}
		return expr.Call{Op: e.Op, Args: args}, nil
	case expr.Slot:
		return e, nil
	case expr.Local:
		return nil, fmt.Errorf("numbering: named binding %q in an indexed lowering", e.Name)
	default:
		return nil, fmt.Errorf("numbering: unknown node kind %T", n)
	}
}

func (t Table) lowerSymbol(name string) (expr.Node, error) {
	if t.IndepVar != "" && name == t.IndepVar {
		rendered := t.IndepName
		if rendered == "" {
			rendered = t.IndepVar
		}
		return expr.Local{Name: rendered}, nil
	}
	if i := index(t.Variables, name); i >= 0 {
		return expr.Slot{Array: t.StateArray, Index: i}, nil
	}
	if i := index(t.Parameters, name); i >= 0 {
		return expr.Slot{Array: t.ParamArray, Index: i}, nil
	}
	return nil, fmt.Errorf("%w: %q is neither a variable nor a parameter", ErrUnresolved, name)
}

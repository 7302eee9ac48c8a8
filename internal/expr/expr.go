// Package expr defines the symbolic expression tree the generator consumes.
//
// The node set is a closed union: a lowering or evaluation type switch over
// Node covers every kind, and adding a kind is a compile-visible change to
// every switch carrying a default-internal-error arm. Nodes are immutable
// and owned by the caller; the generator only reads them.
//
// Variable, Param and Derivative are the caller-facing symbol kinds. Local
// and Slot exist only in lowered trees: Local references a named binding
// produced by the argument binder, Slot references a flat array position
// produced by the indexed numbering pass.
package expr

import (
	"fmt"
	"strconv"
	"strings"
)

// Node is one element of a symbolic expression tree.
type Node interface {
	// String renders the node in the default notation (0-based slots).
	String() string
	node()
}

// Constant is a numeric literal leaf.
type Constant struct {
	Value float64
}

// Variable is a reference to a state variable by name.
type Variable struct {
	Name string
}

// Param is a reference to a parameter by name.
type Param struct {
	Name string
}

// Derivative marks the time derivative of the named state variable. It only
// appears on equation left-hand sides and inside trees lowered by the
// numbering pass; native lowering never receives one as a call argument.
type Derivative struct {
	Of string
}

// Call applies a named operator to ordered children. Arity and order are
// preserved exactly through lowering; no reassociation happens here.
type Call struct {
	Op   string
	Args []Node
}

// Local references a named binding introduced by the argument binder.
// Lowered trees only.
type Local struct {
	Name string
}

// Slot references position Index of the named flat array. Lowered trees
// only; the index is stored 0-based and rebased by each renderer.
type Slot struct {
	Array string
	Index int
}

func (Constant) node()   {}
func (Variable) node()   {}
func (Param) node()      {}
func (Derivative) node() {}
func (Call) node()       {}
func (Local) node()      {}
func (Slot) node()       {}

func (c Constant) String() string   { return FormatFloat(c.Value) }
func (v Variable) String() string   { return v.Name }
func (p Param) String() string      { return p.Name }
func (d Derivative) String() string { return "d" + d.Of }
func (l Local) String() string      { return l.Name }
func (s Slot) String() string       { return fmt.Sprintf("%s[%d]", s.Array, s.Index) }

func (c Call) String() string {
	r := Renderer{}
	return r.Render(c)
}

// C builds a call node.
func C(op string, args ...Node) Call { return Call{Op: op, Args: args} }

// Num builds a constant node.
func Num(v float64) Constant { return Constant{Value: v} }

// IsZeroLiteral reports whether n is syntactically the constant zero. This
// is a pure literal check used by skip-zero assembly; it deliberately does
// not detect symbolically-zero expressions like x-x.
func IsZeroLiteral(n Node) bool {
	c, ok := n.(Constant)
	return ok && c.Value == 0
}

// FormatFloat renders a float the shortest way that round-trips, with a
// trailing ".0" for integral values so generated C/Stan sources keep
// floating-point semantics.
func FormatFloat(v float64) string {
	s := strconv.FormatFloat(v, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

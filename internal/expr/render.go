package expr

import (
	"fmt"
	"strings"
)

// Renderer turns lowered nodes into source text. The zero value renders
// 0-based slot accesses and applies no conversion.
type Renderer struct {
	// IndexBase offsets every Slot index (0 for C-style targets, 1 for
	// Stan- and MATLAB-style targets).
	IndexBase int
	// Convert, when set, is applied to each node before it is rendered.
	// It is the caller-supplied conversion hook for constants and calls;
	// returning the node unchanged is always valid.
	Convert func(Node) Node
}

// Operator precedence, higher binds tighter. Anything not listed renders as
// a plain function call and never needs parenthesizing.
const (
	precAdd = iota + 1
	precMul
	precUnary
	precPow
)

func binaryPrec(op string) (int, bool) {
	switch op {
	case "+", "-":
		return precAdd, true
	case "*", "/":
		return precMul, true
	case "^":
		return precPow, true
	}
	return 0, false
}

// Render produces the textual form of a lowered node.
func (r Renderer) Render(n Node) string {
	return r.render(n, 0)
}

func (r Renderer) render(n Node, outerPrec int) string {
	if r.Convert != nil {
		n = r.Convert(n)
	}

	switch e := n.(type) {
	case Constant:
		return FormatFloat(e.Value)
	case Local:
		return e.Name
	case Slot:
		return fmt.Sprintf("%s[%d]", e.Array, e.Index+r.IndexBase)
	case Variable:
		return e.Name
	case Param:
		return e.Name
	case Derivative:
		return "d" + e.Of
	case Call:
		return r.renderCall(e, outerPrec)
	default:
		panic(fmt.Sprintf("expr: unknown node kind %T", n))
	}
}

func (r Renderer) renderCall(c Call, outerPrec int) string {
	// Unary minus.
	if c.Op == "-" && len(c.Args) == 1 {
		s := "-" + r.render(c.Args[0], precUnary)
		if outerPrec > precUnary {
			return "(" + s + ")"
		}
		return s
	}

	if prec, ok := binaryPrec(c.Op); ok && len(c.Args) == 2 {
		// "-" and "/" are left-associative, "^" is right-associative; the
		// right child of a non-associative op needs one extra level.
		rightPrec := prec + 1
		leftPrec := prec
		if c.Op == "^" {
			leftPrec, rightPrec = prec+1, prec
		}
		s := r.render(c.Args[0], leftPrec) + " " + c.Op + " " + r.render(c.Args[1], rightPrec)
		if outerPrec > prec {
			return "(" + s + ")"
		}
		return s
	}

	args := make([]string, len(c.Args))
	for i, a := range c.Args {
		args[i] = r.render(a, 0)
	}
	return c.Op + "(" + strings.Join(args, ", ") + ")"
}

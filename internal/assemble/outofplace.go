package assemble

import (
	"fmt"
	"strings"

	"github.com/vk/kerngen/internal/expr"
	"github.com/vk/kerngen/internal/shape"
)

// Construction is the single shape-appropriate construction an out-of-place
// kernel produces: every lowered element plus the descriptor needed to
// build the container around them. Out-of-place generation is always
// serial.
type Construction struct {
	Desc shape.Descriptor
	// Elems holds every structural element with its lowered expression, in
	// the same element order in-place assembly uses.
	Elems []shape.Element
}

// OutOfPlace lowers every element of the classified container into a
// construction. Skip-zero does not apply here: a constructed container has
// no prior values to preserve.
func OutOfPlace(v any, d shape.Descriptor, lower LowerFunc) (*Construction, error) {
	if lower == nil {
		lower = IdentityLower
	}
	elems, err := shape.Elements(v, d)
	if err != nil {
		return nil, err
	}
	out := make([]shape.Element, len(elems))
	for i, el := range elems {
		rhs, err := lower(el.Expr)
		if err != nil {
			return nil, fmt.Errorf("assemble: lowering element %v: %w", el.Path, err)
		}
		out[i] = shape.Element{Path: el.Path, Expr: rhs}
	}
	return &Construction{Desc: d, Elems: out}, nil
}

// Eval allocates a fresh container and fills every element. Sparse
// containers reuse the input's structural pattern (column pointers and row
// indices) and receive only newly computed stored values.
func (c *Construction) Eval(env expr.Env) (shape.Writable, error) {
	out, err := shape.NewContainer(c.Desc)
	if err != nil {
		return nil, err
	}
	for _, el := range c.Elems {
		v, err := expr.Eval(el.Expr, env)
		if err != nil {
			return nil, err
		}
		if err := out.Set(el.Path, v); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Render produces the construction expression as source text: a grouped
// tuple for multi-scalar outputs, a vector literal, a row-of-rows matrix
// literal, a reshape of a flat literal for rank above two, or a sparse
// constructor reusing the input pattern.
func (c *Construction) Render(r expr.Renderer) string {
	switch c.Desc.Kind {
	case shape.Scalar:
		if len(c.Elems) == 1 {
			return r.Render(c.Elems[0].Expr)
		}
		return "(" + c.join(r, 0, len(c.Elems)) + ")"

	case shape.Vector:
		return "[" + c.join(r, 0, len(c.Elems)) + "]"

	case shape.Matrix:
		rows := make([]string, c.Desc.Rows)
		for i := 0; i < c.Desc.Rows; i++ {
			rows[i] = "[" + c.join(r, i*c.Desc.Cols, (i+1)*c.Desc.Cols) + "]"
		}
		return "[" + strings.Join(rows, ", ") + "]"

	case shape.NDArray:
		dims := make([]string, len(c.Desc.Dims))
		for i, d := range c.Desc.Dims {
			dims[i] = fmt.Sprintf("%d", d)
		}
		return fmt.Sprintf("reshape([%s], [%s])", c.join(r, 0, len(c.Elems)), strings.Join(dims, ", "))

	case shape.Sparse:
		return fmt.Sprintf("sparse(%s, %s, [%s], %d, %d)",
			intList(c.Desc.ColPtr), intList(c.Desc.RowIdx),
			c.join(r, 0, len(c.Elems)), c.Desc.Rows, c.Desc.Cols)

	default:
		// Nested kinds render as a literal of per-element constructions.
		parts := make([]string, len(c.Desc.Inner))
		at := 0
		for i, in := range c.Desc.Inner {
			n := in.Count()
			sub := &Construction{Desc: in, Elems: stripOuter(c.Elems[at : at+n])}
			parts[i] = sub.Render(r)
			at += n
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
}

func (c *Construction) join(r expr.Renderer, from, to int) string {
	parts := make([]string, 0, to-from)
	for _, el := range c.Elems[from:to] {
		parts = append(parts, r.Render(el.Expr))
	}
	return strings.Join(parts, ", ")
}

func stripOuter(elems []shape.Element) []shape.Element {
	out := make([]shape.Element, len(elems))
	for i, el := range elems {
		out[i] = shape.Element{Path: el.Path[1:], Expr: el.Expr}
	}
	return out
}

func intList(xs []int) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = fmt.Sprintf("%d", x)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

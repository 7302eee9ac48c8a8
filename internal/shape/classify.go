package shape

import (
	"fmt"

	"github.com/vk/kerngen/internal/expr"
)

// Classify determines the output container category for a value. The
// precedence is fixed and first-match-wins: doubly nested sparse, doubly
// nested matrix, nested sparse, nested matrix, sparse, then the flat dense
// kinds. Nested classification requires every element of the outer
// container to satisfy the inner predicate; a mixed container falls through
// to the next category and, if nothing matches, silently degrades to flat
// Vector handling. That degradation is a documented limitation, not an
// error: assembly will reject non-expression elements later.
func Classify(v any) Descriptor {
	if elems, ok := outerElems(v); ok {
		if d, ok := classifyDoublyNested(elems); ok {
			return d
		}
		if d, ok := classifyNested(elems); ok {
			return d
		}
		return Descriptor{Kind: Vector, Len: len(elems)}
	}

	switch t := v.(type) {
	case *ExprSparse:
		return Descriptor{Kind: Sparse, Rows: t.Rows, Cols: t.Cols, ColPtr: t.ColPtr, RowIdx: t.RowIdx}
	case *ExprMatrix:
		return Descriptor{Kind: Matrix, Rows: t.Rows, Cols: t.Cols}
	case *ExprND:
		return Descriptor{Kind: NDArray, Dims: t.Dims}
	case []expr.Node:
		return Descriptor{Kind: Vector, Len: len(t)}
	case expr.Node:
		return Descriptor{Kind: Scalar}
	}
	return Descriptor{Kind: Scalar}
}

// outerElems normalizes the container forms that can hold non-scalar
// elements into a []any for uniform inspection. A []expr.Node is already a
// flat vector and is deliberately not treated as an outer container.
func outerElems(v any) ([]any, bool) {
	switch t := v.(type) {
	case []any:
		return t, true
	case []*ExprMatrix:
		out := make([]any, len(t))
		for i, m := range t {
			out[i] = m
		}
		return out, true
	case []*ExprSparse:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out, true
	case [][]*ExprMatrix:
		out := make([]any, len(t))
		for i, inner := range t {
			out[i] = inner
		}
		return out, true
	case [][]*ExprSparse:
		out := make([]any, len(t))
		for i, inner := range t {
			out[i] = inner
		}
		return out, true
	case [][]any:
		out := make([]any, len(t))
		for i, inner := range t {
			out[i] = inner
		}
		return out, true
	}
	return nil, false
}

func sparseDesc(s *ExprSparse) Descriptor {
	return Descriptor{Kind: Sparse, Rows: s.Rows, Cols: s.Cols, ColPtr: s.ColPtr, RowIdx: s.RowIdx}
}

func matrixDesc(m *ExprMatrix) Descriptor {
	return Descriptor{Kind: Matrix, Rows: m.Rows, Cols: m.Cols}
}

// classifyDoublyNested matches arrays of arrays whose innermost elements
// are all sparse (checked first) or all dense matrices.
func classifyDoublyNested(elems []any) (Descriptor, bool) {
	if len(elems) == 0 {
		return Descriptor{}, false
	}
	inners := make([][]any, len(elems))
	for i, e := range elems {
		inner, ok := outerElems(e)
		if !ok {
			return Descriptor{}, false
		}
		inners[i] = inner
	}

	for _, want := range []Kind{NestedNestedSparse, NestedNestedMatrix} {
		match := true
		outerDescs := make([]Descriptor, len(inners))
		for i, inner := range inners {
			d, ok := classifyNested(inner)
			if !ok {
				match = false
				break
			}
			if want == NestedNestedSparse && d.Kind != NestedSparse {
				match = false
				break
			}
			if want == NestedNestedMatrix && d.Kind != NestedMatrix {
				match = false
				break
			}
			outerDescs[i] = d
		}
		if match {
			return Descriptor{Kind: want, Len: len(elems), Inner: outerDescs}, true
		}
	}
	return Descriptor{}, false
}

// classifyNested matches arrays whose elements are all sparse (checked
// first) or all dense matrices.
func classifyNested(elems []any) (Descriptor, bool) {
	if len(elems) == 0 {
		return Descriptor{}, false
	}

	allSparse := true
	for _, e := range elems {
		if _, ok := e.(*ExprSparse); !ok {
			allSparse = false
			break
		}
	}
	if allSparse {
		inner := make([]Descriptor, len(elems))
		for i, e := range elems {
			inner[i] = sparseDesc(e.(*ExprSparse))
		}
		return Descriptor{Kind: NestedSparse, Len: len(elems), Inner: inner}, true
	}

	allMatrix := true
	for _, e := range elems {
		if _, ok := e.(*ExprMatrix); !ok {
			allMatrix = false
			break
		}
	}
	if allMatrix {
		inner := make([]Descriptor, len(elems))
		for i, e := range elems {
			inner[i] = matrixDesc(e.(*ExprMatrix))
		}
		return Descriptor{Kind: NestedMatrix, Len: len(elems), Inner: inner}, true
	}
	return Descriptor{}, false
}

// Element is one structural output element: its index path and the
// expression that produces it.
type Element struct {
	Path []int
	Expr expr.Node
}

// Elements enumerates the container's structural elements in statement
// order: row-major for dense matrices, flat for N-dim arrays, stored-value
// order for sparse, outer-then-inner for the nested kinds.
func Elements(v any, d Descriptor) ([]Element, error) {
	switch d.Kind {
	case Scalar:
		n, ok := v.(expr.Node)
		if !ok {
			return nil, fmt.Errorf("shape: scalar output is %T, not an expression", v)
		}
		return []Element{{Path: []int{}, Expr: n}}, nil

	case Vector:
		return vectorElements(v)

	case Matrix:
		m := v.(*ExprMatrix)
		out := make([]Element, 0, m.Rows*m.Cols)
		for i := 0; i < m.Rows; i++ {
			for j := 0; j < m.Cols; j++ {
				out = append(out, Element{Path: []int{i, j}, Expr: m.At(i, j)})
			}
		}
		return out, nil

	case NDArray:
		nd := v.(*ExprND)
		out := make([]Element, len(nd.Elems))
		for k, e := range nd.Elems {
			out[k] = Element{Path: []int{k}, Expr: e}
		}
		return out, nil

	case Sparse:
		s := v.(*ExprSparse)
		out := make([]Element, len(s.Nz))
		for k, e := range s.Nz {
			out[k] = Element{Path: []int{k}, Expr: e}
		}
		return out, nil

	case NestedMatrix, NestedSparse, NestedNestedMatrix, NestedNestedSparse:
		elems, _ := outerElems(v)
		var out []Element
		for o, e := range elems {
			sub, err := Elements(e, d.Inner[o])
			if err != nil {
				return nil, err
			}
			for _, el := range sub {
				out = append(out, Element{Path: append([]int{o}, el.Path...), Expr: el.Expr})
			}
		}
		return out, nil
	}
	return nil, fmt.Errorf("shape: unhandled kind %s", d.Kind)
}

func vectorElements(v any) ([]Element, error) {
	switch t := v.(type) {
	case []expr.Node:
		out := make([]Element, len(t))
		for i, e := range t {
			out[i] = Element{Path: []int{i}, Expr: e}
		}
		return out, nil
	case []any:
		out := make([]Element, len(t))
		for i, e := range t {
			n, ok := e.(expr.Node)
			if !ok {
				return nil, fmt.Errorf("shape: element %d of flat output is %T, not an expression", i, e)
			}
			out[i] = Element{Path: []int{i}, Expr: n}
		}
		return out, nil
	case expr.Node:
		return []Element{{Path: []int{0}, Expr: t}}, nil
	default:
		// Mixed nested containers that degraded to Vector handling land
		// here; their elements are not expressions and cannot be lowered.
		elems, ok := outerElems(v)
		if !ok {
			return nil, fmt.Errorf("shape: cannot enumerate %T as a vector", v)
		}
		out := make([]Element, len(elems))
		for i, e := range elems {
			n, ok := e.(expr.Node)
			if !ok {
				return nil, fmt.Errorf("shape: element %d of flat output is %T, not an expression", i, e)
			}
			out[i] = Element{Path: []int{i}, Expr: n}
		}
		return out, nil
	}
}

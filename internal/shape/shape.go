// Package shape classifies output containers and defines the container
// types both sides of the generator share: expression-valued containers on
// the input side and numeric containers the in-place kernels write into.
//
// Classification happens exactly once per build, producing a single
// Descriptor every downstream stage consumes; no stage re-tests container
// predicates.
package shape

import (
	"fmt"

	"github.com/vk/kerngen/internal/expr"
)

// Kind is the classified container category.
type Kind int

const (
	Scalar Kind = iota
	Vector
	Matrix
	NDArray
	Sparse
	// NestedMatrix is an array whose every element is a dense matrix.
	NestedMatrix
	// NestedSparse is an array whose every element is a sparse matrix.
	NestedSparse
	// NestedNestedMatrix is an array of arrays of dense matrices.
	NestedNestedMatrix
	// NestedNestedSparse is an array of arrays of sparse matrices.
	NestedNestedSparse
)

func (k Kind) String() string {
	switch k {
	case Scalar:
		return "scalar"
	case Vector:
		return "vector"
	case Matrix:
		return "matrix"
	case NDArray:
		return "ndarray"
	case Sparse:
		return "sparse"
	case NestedMatrix:
		return "array-of-matrices"
	case NestedSparse:
		return "array-of-sparse"
	case NestedNestedMatrix:
		return "array-of-arrays-of-matrices"
	case NestedNestedSparse:
		return "array-of-arrays-of-sparse"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ExprMatrix is a dense row-major matrix of expressions.
type ExprMatrix struct {
	Rows, Cols int
	Elems      []expr.Node
}

// At returns the element at row i, column j.
func (m *ExprMatrix) At(i, j int) expr.Node { return m.Elems[i*m.Cols+j] }

// ExprND is a dense expression array of arbitrary rank, flat row-major.
type ExprND struct {
	Dims  []int
	Elems []expr.Node
}

// ExprSparse is a sparse expression matrix in compressed-sparse-column
// form: ColPtr has Cols+1 entries, RowIdx and Nz hold one entry per stored
// value in column order.
type ExprSparse struct {
	Rows, Cols int
	ColPtr     []int
	RowIdx     []int
	Nz         []expr.Node
}

// NNZ returns the stored-value count.
func (s *ExprSparse) NNZ() int { return len(s.Nz) }

// Descriptor is the single classification result consumed by assembly,
// parallelization and the backends.
type Descriptor struct {
	Kind Kind

	// Len is the element count for Vector and the outer length for the
	// nested kinds.
	Len int

	Rows, Cols int
	Dims       []int

	// Sparse structure, aliased from the input container so out-of-place
	// construction can reuse the exact pattern.
	ColPtr []int
	RowIdx []int

	// Inner carries one descriptor per outer element for the nested kinds
	// (and, one level down, per inner element for the doubly nested ones).
	Inner []Descriptor
}

// Count returns the number of structural elements the descriptor requires
// one statement for (stored nonzeros for sparse kinds).
func (d Descriptor) Count() int {
	switch d.Kind {
	case Scalar:
		return 1
	case Vector:
		return d.Len
	case Matrix:
		return d.Rows * d.Cols
	case NDArray:
		n := 1
		for _, dim := range d.Dims {
			n *= dim
		}
		return n
	case Sparse:
		return len(d.RowIdx)
	case NestedMatrix, NestedSparse, NestedNestedMatrix, NestedNestedSparse:
		n := 0
		for _, in := range d.Inner {
			n += in.Count()
		}
		return n
	}
	return 0
}

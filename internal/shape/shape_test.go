package shape

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/kerngen/internal/expr"
)

func mat2x2() *ExprMatrix {
	return &ExprMatrix{Rows: 2, Cols: 2, Elems: []expr.Node{
		expr.Num(1), expr.Num(2),
		expr.Num(3), expr.Num(4),
	}}
}

func sparse2x2() *ExprSparse {
	// [ 1 . ; . 2 ]
	return &ExprSparse{
		Rows: 2, Cols: 2,
		ColPtr: []int{0, 1, 2},
		RowIdx: []int{0, 1},
		Nz:     []expr.Node{expr.Num(1), expr.Num(2)},
	}
}

func TestClassify_FlatKinds(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Scalar, Classify(expr.Num(1)).Kind)

	d := Classify([]expr.Node{expr.Num(1), expr.Num(2), expr.Num(3)})
	assert.Equal(t, Vector, d.Kind)
	assert.Equal(t, 3, d.Len)

	d = Classify(mat2x2())
	assert.Equal(t, Matrix, d.Kind)
	assert.Equal(t, 2, d.Rows)
	assert.Equal(t, 2, d.Cols)

	d = Classify(&ExprND{Dims: []int{2, 3, 4}, Elems: make([]expr.Node, 24)})
	assert.Equal(t, NDArray, d.Kind)
	assert.Equal(t, []int{2, 3, 4}, d.Dims)
	assert.Equal(t, 24, d.Count())
}

func TestClassify_SparseSharesPattern(t *testing.T) {
	t.Parallel()

	s := sparse2x2()
	d := Classify(s)

	require.Equal(t, Sparse, d.Kind)
	assert.Equal(t, 2, d.Count())
	// The descriptor aliases the input structure rather than copying it.
	assert.Same(t, &s.ColPtr[0], &d.ColPtr[0])
	assert.Same(t, &s.RowIdx[0], &d.RowIdx[0])
}

func TestClassify_NestedPrecedence(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		v    any
		want Kind
	}{
		{"array of matrices", []*ExprMatrix{mat2x2(), mat2x2()}, NestedMatrix},
		{"array of sparse", []*ExprSparse{sparse2x2()}, NestedSparse},
		{"array of arrays of matrices", [][]*ExprMatrix{{mat2x2()}, {mat2x2()}}, NestedNestedMatrix},
		{"array of arrays of sparse", [][]*ExprSparse{{sparse2x2()}}, NestedNestedSparse},
		{"untyped homogeneous sparse wins over matrix check", []any{sparse2x2(), sparse2x2()}, NestedSparse},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, Classify(tc.v).Kind)
		})
	}
}

func TestClassify_MixedNestDegradesToVector(t *testing.T) {
	t.Parallel()

	// One sparse and one dense element: no nested predicate holds, so the
	// container degrades to flat Vector handling.
	d := Classify([]any{sparse2x2(), mat2x2()})
	assert.Equal(t, Vector, d.Kind)
	assert.Equal(t, 2, d.Len)

	// Enumeration then rejects the non-expression elements.
	_, err := Elements([]any{sparse2x2(), mat2x2()}, d)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not an expression")
}

func TestElements_Order(t *testing.T) {
	t.Parallel()

	m := mat2x2()
	elems, err := Elements(m, Classify(m))
	require.NoError(t, err)
	require.Len(t, elems, 4)

	// Row-major: (0,0) (0,1) (1,0) (1,1).
	assert.Equal(t, []int{0, 0}, elems[0].Path)
	assert.Equal(t, []int{0, 1}, elems[1].Path)
	assert.Equal(t, []int{1, 0}, elems[2].Path)
	assert.Equal(t, []int{1, 1}, elems[3].Path)
	assert.Equal(t, expr.Num(2), elems[1].Expr)
}

func TestElements_SparseNonzeroSlots(t *testing.T) {
	t.Parallel()

	s := sparse2x2()
	elems, err := Elements(s, Classify(s))
	require.NoError(t, err)
	require.Len(t, elems, 2)

	assert.Equal(t, []int{0}, elems[0].Path)
	assert.Equal(t, []int{1}, elems[1].Path)
}

func TestElements_NestedPrependsOuterIndex(t *testing.T) {
	t.Parallel()

	v := []*ExprMatrix{mat2x2(), mat2x2()}
	d := Classify(v)

	elems, err := Elements(v, d)
	require.NoError(t, err)
	require.Len(t, elems, 8)

	assert.Equal(t, []int{0, 0, 0}, elems[0].Path)
	assert.Equal(t, []int{1, 1, 1}, elems[7].Path)
}

func TestNewContainer_CopiesSparsePattern(t *testing.T) {
	t.Parallel()

	s := sparse2x2()
	d := Classify(s)

	c, err := NewContainer(d)
	require.NoError(t, err)
	csc, ok := c.(*CSC)
	require.True(t, ok)

	// The numeric container gets its own structural arrays.
	assert.Equal(t, s.ColPtr, csc.ColPtr)
	assert.NotSame(t, &s.ColPtr[0], &csc.ColPtr[0])
	assert.Len(t, csc.Nz, 2)
}

func TestWritables_SetAndAt(t *testing.T) {
	t.Parallel()

	t.Run("scalar uses empty path", func(t *testing.T) {
		t.Parallel()
		v := make(Vec, 1)
		require.NoError(t, v.Set([]int{}, 7))
		got, err := v.At([]int{})
		require.NoError(t, err)
		assert.Equal(t, 7.0, got)
	})

	t.Run("vector bounds", func(t *testing.T) {
		t.Parallel()
		v := make(Vec, 2)
		require.NoError(t, v.Set([]int{1}, 3))
		require.Error(t, v.Set([]int{2}, 3))
	})

	t.Run("dense matrix", func(t *testing.T) {
		t.Parallel()
		m := NewDense(2, 3)
		require.NoError(t, m.Set([]int{1, 2}, 5))
		got, err := m.At([]int{1, 2})
		require.NoError(t, err)
		assert.Equal(t, 5.0, got)
		require.Error(t, m.Set([]int{2, 0}, 1))
	})

	t.Run("nested routes by outer index", func(t *testing.T) {
		t.Parallel()
		n := Nested{NewDense(2, 2), NewDense(2, 2)}
		require.NoError(t, n.Set([]int{1, 0, 1}, 9))
		got, err := n.At([]int{1, 0, 1})
		require.NoError(t, err)
		assert.Equal(t, 9.0, got)
		require.Error(t, n.Set([]int{2, 0, 0}, 1))
	})
}

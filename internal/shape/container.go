package shape

import "fmt"

// Writable is a numeric output container an in-place kernel writes into,
// addressed by the same index paths assembly produced.
type Writable interface {
	// Set stores v at the given index path.
	Set(path []int, v float64) error
	// At reads the value at the given index path.
	At(path []int) (float64, error)
}

// Vec is a flat numeric vector. Scalar outputs use a length-1 Vec.
type Vec []float64

func (v Vec) Set(path []int, x float64) error {
	i, err := v.check(path)
	if err != nil {
		return err
	}
	v[i] = x
	return nil
}

func (v Vec) At(path []int) (float64, error) {
	i, err := v.check(path)
	if err != nil {
		return 0, err
	}
	return v[i], nil
}

func (v Vec) check(path []int) (int, error) {
	// A scalar statement carries an empty path and addresses slot 0.
	if len(path) == 0 {
		if len(v) == 0 {
			return 0, fmt.Errorf("shape: scalar write into empty vector")
		}
		return 0, nil
	}
	if len(path) != 1 {
		return 0, fmt.Errorf("shape: vector path has %d indices", len(path))
	}
	if path[0] < 0 || path[0] >= len(v) {
		return 0, fmt.Errorf("shape: vector index %d out of range [0,%d)", path[0], len(v))
	}
	return path[0], nil
}

// Dense is a row-major dense matrix.
type Dense struct {
	Rows, Cols int
	Data       []float64
}

// NewDense allocates a zeroed Rows×Cols matrix.
func NewDense(rows, cols int) *Dense {
	return &Dense{Rows: rows, Cols: cols, Data: make([]float64, rows*cols)}
}

func (d *Dense) index(path []int) (int, error) {
	if len(path) != 2 {
		return 0, fmt.Errorf("shape: matrix path has %d indices", len(path))
	}
	i, j := path[0], path[1]
	if i < 0 || i >= d.Rows || j < 0 || j >= d.Cols {
		return 0, fmt.Errorf("shape: matrix index (%d,%d) out of range %dx%d", i, j, d.Rows, d.Cols)
	}
	return i*d.Cols + j, nil
}

func (d *Dense) Set(path []int, v float64) error {
	k, err := d.index(path)
	if err != nil {
		return err
	}
	d.Data[k] = v
	return nil
}

func (d *Dense) At(path []int) (float64, error) {
	k, err := d.index(path)
	if err != nil {
		return 0, err
	}
	return d.Data[k], nil
}

// NDData is a dense array of arbitrary rank addressed by flat index.
type NDData struct {
	Dims []int
	Data []float64
}

// NewNDData allocates a zeroed array with the given dimensions.
func NewNDData(dims []int) *NDData {
	n := 1
	for _, d := range dims {
		n *= d
	}
	return &NDData{Dims: append([]int(nil), dims...), Data: make([]float64, n)}
}

func (a *NDData) check(path []int) (int, error) {
	if len(path) != 1 {
		return 0, fmt.Errorf("shape: ndarray path has %d indices, want flat", len(path))
	}
	if path[0] < 0 || path[0] >= len(a.Data) {
		return 0, fmt.Errorf("shape: flat index %d out of range [0,%d)", path[0], len(a.Data))
	}
	return path[0], nil
}

func (a *NDData) Set(path []int, v float64) error {
	k, err := a.check(path)
	if err != nil {
		return err
	}
	a.Data[k] = v
	return nil
}

func (a *NDData) At(path []int) (float64, error) {
	k, err := a.check(path)
	if err != nil {
		return 0, err
	}
	return a.Data[k], nil
}

// CSC is a compressed-sparse-column numeric matrix. In-place statements
// address stored values by nonzero slot.
type CSC struct {
	Rows, Cols int
	ColPtr     []int
	RowIdx     []int
	Nz         []float64
}

func (c *CSC) check(path []int) (int, error) {
	if len(path) != 1 {
		return 0, fmt.Errorf("shape: sparse path has %d indices, want nonzero slot", len(path))
	}
	if path[0] < 0 || path[0] >= len(c.Nz) {
		return 0, fmt.Errorf("shape: nonzero slot %d out of range [0,%d)", path[0], len(c.Nz))
	}
	return path[0], nil
}

func (c *CSC) Set(path []int, v float64) error {
	k, err := c.check(path)
	if err != nil {
		return err
	}
	c.Nz[k] = v
	return nil
}

func (c *CSC) At(path []int) (float64, error) {
	k, err := c.check(path)
	if err != nil {
		return 0, err
	}
	return c.Nz[k], nil
}

// Nested is an ordered container of inner writables, used for arrays of
// matrices, arrays of sparse matrices, and the doubly nested forms (whose
// elements are themselves Nested).
type Nested []Writable

func (n Nested) Set(path []int, v float64) error {
	if len(path) < 2 {
		return fmt.Errorf("shape: nested path has %d indices", len(path))
	}
	o := path[0]
	if o < 0 || o >= len(n) {
		return fmt.Errorf("shape: outer index %d out of range [0,%d)", o, len(n))
	}
	return n[o].Set(path[1:], v)
}

func (n Nested) At(path []int) (float64, error) {
	if len(path) < 2 {
		return 0, fmt.Errorf("shape: nested path has %d indices", len(path))
	}
	o := path[0]
	if o < 0 || o >= len(n) {
		return 0, fmt.Errorf("shape: outer index %d out of range [0,%d)", o, len(n))
	}
	return n[o].At(path[1:])
}

// NewContainer allocates a zeroed numeric container matching the
// descriptor. Sparse containers copy the descriptor's structural arrays so
// the input pattern is never aliased by kernel output.
func NewContainer(d Descriptor) (Writable, error) {
	switch d.Kind {
	case Scalar:
		return make(Vec, 1), nil
	case Vector:
		return make(Vec, d.Len), nil
	case Matrix:
		return NewDense(d.Rows, d.Cols), nil
	case NDArray:
		return NewNDData(d.Dims), nil
	case Sparse:
		return &CSC{
			Rows:   d.Rows,
			Cols:   d.Cols,
			ColPtr: append([]int(nil), d.ColPtr...),
			RowIdx: append([]int(nil), d.RowIdx...),
			Nz:     make([]float64, len(d.RowIdx)),
		}, nil
	case NestedMatrix, NestedSparse, NestedNestedMatrix, NestedNestedSparse:
		out := make(Nested, len(d.Inner))
		for i, in := range d.Inner {
			c, err := NewContainer(in)
			if err != nil {
				return nil, err
			}
			out[i] = c
		}
		return out, nil
	}
	return nil, fmt.Errorf("shape: cannot allocate container for kind %s", d.Kind)
}

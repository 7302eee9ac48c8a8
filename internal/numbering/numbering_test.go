package numbering

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/kerngen/internal/expr"
)

func table() Table {
	return Table{
		Variables:  []string{"u1", "u2"},
		Parameters: []string{"p1"},
		IndepVar:   "t",
		DerivArray: "du",
		StateArray: "u",
		ParamArray: "p",
	}
}

func TestTable_Lower(t *testing.T) {
	t.Parallel()

	tbl := table()

	// du2 = u1 * p1 - t
	in := expr.C("-",
		expr.C("*", expr.Variable{Name: "u1"}, expr.Param{Name: "p1"}),
		expr.Variable{Name: "t"},
	)

	got, err := tbl.Lower(in)
	require.NoError(t, err)
	assert.Equal(t, "u[0] * p[0] - t", expr.Renderer{}.Render(got))

	lhs, err := tbl.Lower(expr.Derivative{Of: "u2"})
	require.NoError(t, err)
	assert.Equal(t, expr.Slot{Array: "du", Index: 1}, lhs)
}

func TestTable_VariablesShadowParameters(t *testing.T) {
	t.Parallel()

	// A name declared in both lists resolves as a variable: the variable
	// list is searched first.
	tbl := Table{
		Variables:  []string{"x"},
		Parameters: []string{"x"},
		StateArray: "u",
		ParamArray: "p",
	}

	got, err := tbl.Lower(expr.Variable{Name: "x"})
	require.NoError(t, err)
	assert.Equal(t, expr.Slot{Array: "u", Index: 0}, got)
}

func TestTable_IndepVarRename(t *testing.T) {
	t.Parallel()

	tbl := table()
	tbl.IndepName = "independent_variable"

	got, err := tbl.Lower(expr.Variable{Name: "t"})
	require.NoError(t, err)
	assert.Equal(t, expr.Local{Name: "independent_variable"}, got)
}

func TestTable_UnresolvedSymbol(t *testing.T) {
	t.Parallel()

	tbl := table()

	_, err := tbl.Lower(expr.Variable{Name: "nope"})
	require.ErrorIs(t, err, ErrUnresolved)

	// A failure anywhere in the tree aborts the whole lowering.
	_, err = tbl.Lower(expr.C("+", expr.Variable{Name: "u1"}, expr.Variable{Name: "nope"}))
	require.ErrorIs(t, err, ErrUnresolved)
}

func TestTable_DerivativeOfParameterIsFatal(t *testing.T) {
	t.Parallel()

	tbl := table()

	// Derivatives resolve against the variable list only.
	_, err := tbl.Lower(expr.Derivative{Of: "p1"})
	require.ErrorIs(t, err, ErrUnresolved)
}

func TestTable_RejectsNamedBindings(t *testing.T) {
	t.Parallel()

	tbl := table()

	_, err := tbl.Lower(expr.Local{Name: "kg_1"})
	require.Error(t, err)
}

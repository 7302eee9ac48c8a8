package backend

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/kerngen/internal/assemble"
	"github.com/vk/kerngen/internal/binder"
	"github.com/vk/kerngen/internal/expr"
	"github.com/vk/kerngen/internal/kernel"
	"github.com/vk/kerngen/internal/model"
	"github.com/vk/kerngen/internal/shape"
)

// decaySystem is du1 = -u1, du2 = u1 - u2.
func decaySystem() *model.System {
	return &model.System{
		Name:      "decay",
		Variables: []string{"u1", "u2"},
		IndepVar:  "t",
		Equations: []model.Equation{
			{Lhs: expr.Derivative{Of: "u1"}, Rhs: expr.C("-", expr.Variable{Name: "u1"})},
			{Lhs: expr.Derivative{Of: "u2"}, Rhs: expr.C("-", expr.Variable{Name: "u1"}, expr.Variable{Name: "u2"})},
		},
	}
}

func TestCSource_Render(t *testing.T) {
	t.Parallel()

	got, err := CSource{}.Render(Input{Sys: decaySystem(), FuncName: "decay"})
	require.NoError(t, err)

	assert.Contains(t, got, "void decay(double* derivative, double* state, double* parameter, double independent_variable) {")
	// C indexes from 0.
	assert.Contains(t, got, "derivative[0] = -state[0];")
	assert.Contains(t, got, "derivative[1] = state[0] - state[1];")
	assert.True(t, strings.HasSuffix(got, "}\n"))
}

func TestStanSource_Render(t *testing.T) {
	t.Parallel()

	got, err := StanSource{}.Render(Input{Sys: decaySystem(), FuncName: "decay"})
	require.NoError(t, err)

	assert.Contains(t, got, "real[] decay(real t, real[] internal_var___u, real[] internal_var___p) {")
	assert.Contains(t, got, "real internal_var___du[2];")
	// Stan indexes from 1.
	assert.Contains(t, got, "internal_var___du[1] = -internal_var___u[1];")
	assert.Contains(t, got, "internal_var___du[2] = internal_var___u[1] - internal_var___u[2];")
	assert.Contains(t, got, "return internal_var___du;")
}

func TestMatlabSource_Render(t *testing.T) {
	t.Parallel()

	got, err := MatlabSource{}.Render(Input{Sys: decaySystem(), FuncName: "decay"})
	require.NoError(t, err)

	// Indexing is 1-based and parenthesized; no brackets survive inside
	// the element expressions.
	assert.Equal(t, "decay = @(t,internal_var___u,internal_var___p) [-internal_var___u(1); internal_var___u(1) - internal_var___u(2)];\n", got)
}

func TestTextualBackends_UnresolvedSymbolAbortsRendering(t *testing.T) {
	t.Parallel()

	sys := decaySystem()
	sys.Equations[1].Rhs = expr.Variable{Name: "ghost"}

	for _, b := range []Backend{CSource{}, StanSource{}, MatlabSource{}} {
		got, err := b.Render(Input{Sys: sys, FuncName: "decay"})
		require.Error(t, err, b.Name())
		assert.Empty(t, got, "no partial text on failure")
	}
}

func TestRetainLineInfo(t *testing.T) {
	t.Parallel()

	got, err := CSource{}.Render(Input{Sys: decaySystem(), FuncName: "decay", RetainLineInfo: true})
	require.NoError(t, err)
	assert.Contains(t, got, "/* eq 0 */")
	assert.Contains(t, got, "/* eq 1 */")
}

func TestHeaderWrapper(t *testing.T) {
	t.Parallel()

	wrapper := func(body string, args []string, inPlace bool) string {
		return fmt.Sprintf("WRAP(%s|%v)\n%s", strings.Join(args, ","), inPlace, body)
	}

	got, err := CSource{}.Render(Input{Sys: decaySystem(), FuncName: "decay", Wrapper: wrapper})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(got, "WRAP(derivative,state,parameter,independent_variable|true)"))
	assert.NotContains(t, got, "void decay")
}

func TestConvertHookReachesRendering(t *testing.T) {
	t.Parallel()

	// Rewrite every constant to a call, the way an embedder swaps numeric
	// types.
	convert := func(n expr.Node) expr.Node {
		if c, ok := n.(expr.Constant); ok {
			return expr.C("promote", expr.Local{Name: expr.FormatFloat(c.Value)})
		}
		return n
	}

	sys := decaySystem()
	sys.Equations[0].Rhs = expr.C("*", expr.Num(3), expr.Variable{Name: "u1"})

	got, err := CSource{}.Render(Input{Sys: sys, FuncName: "decay", Convert: convert})
	require.NoError(t, err)
	assert.Contains(t, got, "promote(3.0) * state[0]")
}

func TestNative_RenderInPlace(t *testing.T) {
	t.Parallel()

	bd := binder.New()
	bindings, err := bd.Bind(binder.Container("state", "u1", "u2"))
	require.NoError(t, err)

	prog := &kernel.Program{
		Bindings: bindings,
		Statements: []assemble.Statement{
			{Path: []int{0}, RHS: expr.C("-", expr.Local{Name: "kg_1"})},
			{Path: []int{1}, RHS: expr.C("-", expr.Local{Name: "kg_1"}, expr.Local{Name: "kg_2"})},
		},
		Desc: shape.Descriptor{Kind: shape.Vector, Len: 2},
	}

	got, err := Native{}.Render(Input{
		FuncName: "decay",
		Program:  prog,
		ArgNames: []string{"state"},
		InPlace:  true,
	})
	require.NoError(t, err)

	assert.Contains(t, got, "func decay(out, state) {")
	assert.Contains(t, got, "kg_1 := state[0]")
	assert.Contains(t, got, "kg_2 := state[1]")
	assert.Contains(t, got, "out[0] = -kg_1")
	assert.Contains(t, got, "out[1] = kg_1 - kg_2")
}

func TestNative_RenderOutOfPlace(t *testing.T) {
	t.Parallel()

	prog := &kernel.Program{
		Construction: &assemble.Construction{
			Desc: shape.Descriptor{Kind: shape.Vector, Len: 2},
			Elems: []shape.Element{
				{Path: []int{0}, Expr: expr.Num(1)},
				{Path: []int{1}, Expr: expr.Num(2)},
			},
		},
		Desc: shape.Descriptor{Kind: shape.Vector, Len: 2},
	}

	got, err := Native{}.Render(Input{FuncName: "decay", Program: prog, ArgNames: []string{"state"}})
	require.NoError(t, err)

	assert.Contains(t, got, "func decay(state) {")
	assert.Contains(t, got, "return [1.0, 2.0]")
}

func TestNative_SparsePathAddressing(t *testing.T) {
	t.Parallel()

	prog := &kernel.Program{
		Statements: []assemble.Statement{
			{Path: []int{1}, RHS: expr.Num(4)},
		},
		Desc: shape.Descriptor{Kind: shape.Sparse, Rows: 2, Cols: 2, RowIdx: []int{0, 1}},
	}

	got, err := Native{}.Render(Input{FuncName: "k", Program: prog, InPlace: true})
	require.NoError(t, err)
	assert.Contains(t, got, "out.nzval[1] = 4.0")
}

func TestNative_RequiresProgram(t *testing.T) {
	t.Parallel()

	_, err := Native{}.Render(Input{FuncName: "k"})
	require.Error(t, err)
}

package generation_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vk/kerngen/internal/app"
	"github.com/vk/kerngen/internal/testutil"
)

const lotkaHCL = `
system "lotka" {
  time       = "t"
  variables  = ["x", "y"]
  parameters = ["a", "b"]

  equation "x" { rhs = a*x - b*x*y }
  equation "y" { rhs = -y + x*y }
}
`

func TestGeneration_CTarget(t *testing.T) {
	t.Parallel()

	result := testutil.RunGenerationTest(t, lotkaHCL, app.Config{Target: "c"})

	testutil.AssertGenerated(t, result, "void lotka(double* derivative, double* state, double* parameter, double independent_variable)")
	testutil.AssertGenerated(t, result, "derivative[0] = parameter[0] * state[0] - parameter[1] * state[0] * state[1];")
	testutil.AssertGenerated(t, result, "derivative[1] = -state[1] + state[0] * state[1];")
}

func TestGeneration_StanTarget(t *testing.T) {
	t.Parallel()

	result := testutil.RunGenerationTest(t, lotkaHCL, app.Config{Target: "stan"})

	testutil.AssertGenerated(t, result, "real[] lotka(real t, real[] internal_var___u, real[] internal_var___p)")
	testutil.AssertGenerated(t, result, "internal_var___du[1] =")
	testutil.AssertGenerated(t, result, "internal_var___u[1]")
}

func TestGeneration_MatlabTarget(t *testing.T) {
	t.Parallel()

	result := testutil.RunGenerationTest(t, lotkaHCL, app.Config{Target: "matlab"})

	testutil.AssertGenerated(t, result, "lotka = @(t,internal_var___u,internal_var___p)")
	testutil.AssertGenerated(t, result, "internal_var___u(1)")
	require.NotContains(t, result.Stdout, "internal_var___u[", "matlab output must not contain bracket indexing")
}

func TestGeneration_NativeTarget(t *testing.T) {
	t.Parallel()

	result := testutil.RunGenerationTest(t, lotkaHCL, app.Config{Target: "native"})

	testutil.AssertGenerated(t, result, "func lotka(out, state, parameter, t)")
	testutil.AssertGenerated(t, result, "kg_1 := state[0]")
	testutil.AssertGenerated(t, result, "out[0] =")
}

func TestGeneration_CustomFunctionName(t *testing.T) {
	t.Parallel()

	result := testutil.RunGenerationTest(t, lotkaHCL, app.Config{Target: "c", FuncName: "predator_prey"})

	testutil.AssertGenerated(t, result, "void predator_prey(")
}

func TestGeneration_LineInfoComments(t *testing.T) {
	t.Parallel()

	result := testutil.RunGenerationTest(t, lotkaHCL, app.Config{Target: "c", RetainLineInfo: true})

	testutil.AssertGenerated(t, result, "/* eq 0 */")
	testutil.AssertGenerated(t, result, "/* eq 1 */")
}

func TestGeneration_UnknownSymbolFailsWithDeclaredList(t *testing.T) {
	t.Parallel()

	badHCL := `
system "bad" {
  variables = ["x"]
  equation "x" { rhs = x + ghost }
}
`
	result := testutil.RunGenerationTest(t, badHCL, app.Config{Target: "c"})

	require.Error(t, result.Err)
	require.Contains(t, result.Err.Error(), `unknown symbol "ghost"`)
	require.Empty(t, result.Stdout, "no partial artifact on failure")
}

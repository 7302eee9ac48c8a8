package backend

import (
	"fmt"

	"github.com/vk/kerngen/internal/expr"
)

// CSource renders a C function computing the derivative array in place.
// Indexing is 0-based as C requires.
type CSource struct{}

// Name implements Backend.
func (CSource) Name() string { return "c" }

// Render implements Backend.
func (CSource) Render(in Input) (string, error) {
	t := table(in.Sys, "derivative", "state", "parameter", "independent_variable")
	eqs, err := lowerEquations(in.Sys, t)
	if err != nil {
		return "", err
	}

	r := expr.Renderer{IndexBase: 0, Convert: in.Convert}
	lines := make([]string, len(eqs))
	for i, eq := range eqs {
		lines[i] = fmt.Sprintf("%s = %s;%s", r.Render(eq[0]), r.Render(eq[1]), lineComment(in, "c", i))
	}

	body := indent(lines, "  ")
	args := []string{"derivative", "state", "parameter", "independent_variable"}
	if in.Wrapper != nil {
		return in.Wrapper(body, args, true), nil
	}
	return fmt.Sprintf("void %s(double* derivative, double* state, double* parameter, double independent_variable) {\n%s}\n",
		in.FuncName, body), nil
}

package backend

import (
	"fmt"

	"github.com/vk/kerngen/internal/expr"
)

// StanSource renders a Stan function returning the derivative array.
// Stan indexes from 1, so slots are rebased.
type StanSource struct{}

// Name implements Backend.
func (StanSource) Name() string { return "stan" }

// Render implements Backend.
func (StanSource) Render(in Input) (string, error) {
	t := table(in.Sys, "internal_var___du", "internal_var___u", "internal_var___p", "t")
	eqs, err := lowerEquations(in.Sys, t)
	if err != nil {
		return "", err
	}

	r := expr.Renderer{IndexBase: 1, Convert: in.Convert}
	lines := make([]string, 0, len(eqs)+2)
	lines = append(lines, fmt.Sprintf("real internal_var___du[%d];", len(in.Sys.Variables)))
	for i, eq := range eqs {
		lines = append(lines, fmt.Sprintf("%s = %s;%s", r.Render(eq[0]), r.Render(eq[1]), lineComment(in, "stan", i)))
	}
	lines = append(lines, "return internal_var___du;")

	body := indent(lines, "  ")
	args := []string{"t", "internal_var___u", "internal_var___p"}
	if in.Wrapper != nil {
		return in.Wrapper(body, args, false), nil
	}
	return fmt.Sprintf("real[] %s(real t, real[] internal_var___u, real[] internal_var___p) {\n%s}\n",
		in.FuncName, body), nil
}

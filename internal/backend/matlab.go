package backend

import (
	"fmt"
	"strings"

	"github.com/vk/kerngen/internal/expr"
)

// MatlabSource renders a single anonymous-function expression over the
// concatenated right-hand sides. MATLAB indexes from 1 and uses parentheses
// for indexing, so the rendered right-hand sides are post-processed by a
// plain bracket-to-parenthesis substitution. The substitution is textual,
// not shape- or symbol-aware: a user-chosen name containing a literal
// bracket character would be corrupted. Systems loaded from HCL cannot
// produce such names; programmatic callers must not either.
type MatlabSource struct{}

// Name implements Backend.
func (MatlabSource) Name() string { return "matlab" }

// Render implements Backend.
func (MatlabSource) Render(in Input) (string, error) {
	t := table(in.Sys, "internal_var___du", "internal_var___u", "internal_var___p", "t")
	eqs, err := lowerEquations(in.Sys, t)
	if err != nil {
		return "", err
	}

	r := expr.Renderer{IndexBase: 1, Convert: in.Convert}
	rhss := make([]string, len(eqs))
	for i, eq := range eqs {
		rhss[i] = r.Render(eq[1])
	}

	body := strings.Join(rhss, "; ")
	body = strings.ReplaceAll(body, "[", "(")
	body = strings.ReplaceAll(body, "]", ")")

	args := []string{"t", "internal_var___u", "internal_var___p"}
	if in.Wrapper != nil {
		return in.Wrapper(body, args, false), nil
	}
	return fmt.Sprintf("%s = @(t,internal_var___u,internal_var___p) [%s];\n", in.FuncName, body), nil
}

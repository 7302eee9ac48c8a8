package backend

import (
	"fmt"
	"strings"

	"github.com/vk/kerngen/internal/expr"
	"github.com/vk/kerngen/internal/shape"
)

// Native renders the binder-based closure as source text. In compiled mode
// the same program goes to the kernel construction facility instead; this
// backend is the inspectable textual form.
type Native struct{}

// Name implements Backend.
func (Native) Name() string { return "native" }

// Render implements Backend.
func (Native) Render(in Input) (string, error) {
	if in.Program == nil {
		return "", fmt.Errorf("backend: native rendering needs an assembled program")
	}
	p := in.Program

	var lines []string
	for _, b := range p.Bindings {
		lines = append(lines, b.Name+" := "+b.Source)
	}
	r := expr.Renderer{Convert: in.Convert}

	args := append([]string(nil), in.ArgNames...)
	if in.InPlace {
		for i, st := range p.Statements {
			lines = append(lines, fmt.Sprintf("out%s = %s%s",
				pathSuffix(p.Desc, st.Path), r.Render(st.RHS), lineComment(in, "go", i)))
		}
		args = append([]string{"out"}, args...)
	} else {
		lines = append(lines, "return "+p.Construction.Render(r))
	}

	body := indent(lines, "\t")
	if in.Wrapper != nil {
		return in.Wrapper(body, args, in.InPlace), nil
	}
	return fmt.Sprintf("func %s(%s) {\n%s}\n", in.FuncName, strings.Join(args, ", "), body), nil
}

// pathSuffix renders a statement's index path in the addressing form the
// classified shape dictates: flat, 2D, nested, or nonzero-slot for sparse.
func pathSuffix(d shape.Descriptor, path []int) string {
	switch d.Kind {
	case shape.Scalar:
		return "[0]"
	case shape.Vector, shape.NDArray:
		return fmt.Sprintf("[%d]", path[0])
	case shape.Matrix:
		return fmt.Sprintf("[%d][%d]", path[0], path[1])
	case shape.Sparse:
		return fmt.Sprintf(".nzval[%d]", path[0])
	case shape.NestedMatrix:
		return fmt.Sprintf("[%d][%d][%d]", path[0], path[1], path[2])
	case shape.NestedSparse:
		return fmt.Sprintf("[%d].nzval[%d]", path[0], path[1])
	case shape.NestedNestedMatrix:
		return fmt.Sprintf("[%d][%d][%d][%d]", path[0], path[1], path[2], path[3])
	case shape.NestedNestedSparse:
		return fmt.Sprintf("[%d][%d].nzval[%d]", path[0], path[1], path[2])
	}
	parts := make([]string, len(path))
	for i, p := range path {
		parts[i] = fmt.Sprintf("[%d]", p)
	}
	return strings.Join(parts, "")
}

// Package backend wraps assembled kernel bodies with target-specific
// signatures and renders the final artifacts.
//
// The textual backends (C, Stan, MATLAB) resolve symbols through the
// indexed numbering pass, since those targets have no named locals for the
// system symbols. The native backend renders the binder-based form.
package backend

import (
	"fmt"
	"strings"

	"github.com/vk/kerngen/internal/expr"
	"github.com/vk/kerngen/internal/kernel"
	"github.com/vk/kerngen/internal/model"
	"github.com/vk/kerngen/internal/numbering"
)

// HeaderWrapper replaces a backend's default signature wrapping. It
// receives the rendered body, the call-argument names in order, and
// whether the kernel is in-place.
type HeaderWrapper func(body string, args []string, inPlace bool) string

// Input carries everything a backend needs to render one artifact.
type Input struct {
	Sys      *model.System
	FuncName string

	// Convert is the caller's node-conversion hook, applied during
	// rendering of constants and calls.
	Convert func(expr.Node) expr.Node
	// RetainLineInfo appends an equation-origin comment to each statement.
	RetainLineInfo bool
	// Wrapper, when set, replaces the backend's default header wrapping.
	Wrapper HeaderWrapper

	// Program is the assembled native body; only the native backend reads
	// it.
	Program *kernel.Program
	// ArgNames are the native call-parameter names in order, excluding the
	// output container.
	ArgNames []string
	// InPlace selects which native form to render.
	InPlace bool
}

// Backend renders one target artifact.
type Backend interface {
	Name() string
	Render(in Input) (string, error)
}

// table builds the numbering pass for a textual target.
func table(sys *model.System, deriv, state, param, indepName string) numbering.Table {
	return numbering.Table{
		Variables:  sys.Variables,
		Parameters: sys.Parameters,
		IndepVar:   sys.IndepVar,
		IndepName:  indepName,
		DerivArray: deriv,
		StateArray: state,
		ParamArray: param,
	}
}

// lowerEquations runs the numbering pass over every equation, returning
// (lhs, rhs) lowered pairs in declaration order. Any unresolved symbol
// aborts the whole rendering with no partial text.
func lowerEquations(sys *model.System, t numbering.Table) ([][2]expr.Node, error) {
	out := make([][2]expr.Node, len(sys.Equations))
	for i, eq := range sys.Equations {
		lhs, err := t.Lower(eq.Lhs)
		if err != nil {
			return nil, fmt.Errorf("backend: equation %d: %w", i, err)
		}
		rhs, err := t.Lower(eq.Rhs)
		if err != nil {
			return nil, fmt.Errorf("backend: equation %d: %w", i, err)
		}
		out[i] = [2]expr.Node{lhs, rhs}
	}
	return out, nil
}

func lineComment(in Input, style string, i int) string {
	if !in.RetainLineInfo {
		return ""
	}
	switch style {
	case "c":
		return fmt.Sprintf(" /* eq %d */", i)
	case "matlab":
		return fmt.Sprintf(" %% eq %d", i)
	default:
		return fmt.Sprintf(" // eq %d", i)
	}
}

func indent(lines []string, by string) string {
	var sb strings.Builder
	for _, l := range lines {
		sb.WriteString(by)
		sb.WriteString(l)
		sb.WriteString("\n")
	}
	return sb.String()
}

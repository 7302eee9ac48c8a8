// Package hclload reads kernel system definitions from HCL files.
//
// A definition looks like:
//
//	system "lotka" {
//	  time       = "t"
//	  variables  = ["x", "y"]
//	  parameters = ["a", "b"]
//
//	  equation "x" { rhs = a*x - b*x*y }
//	  equation "y" { rhs = -y + x*y }
//	}
//
// Equation right-hand sides are ordinary HCL expressions; the loader
// translates the hclsyntax tree into the generator's expression nodes.
// Because HCL identifiers cannot contain bracket characters, symbols loaded
// here are always safe for the MATLAB backend's textual rewrite.
package hclload

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/kerngen/internal/binder"
	"github.com/vk/kerngen/internal/expr"
	"github.com/vk/kerngen/internal/model"
)

// LoadFile parses one .kernel.hcl file and returns the system it defines.
func LoadFile(path string) (*model.System, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("hclload: %w", err)
	}
	return Load(src, path)
}

// Load parses a system definition from source bytes. filename is used for
// diagnostics only.
func Load(src []byte, filename string) (*model.System, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("hclload: %w", diags)
	}

	content, diags := file.Body.Content(&hcl.BodySchema{
		Blocks: []hcl.BlockHeaderSchema{{Type: "system", LabelNames: []string{"name"}}},
	})
	if diags.HasErrors() {
		return nil, fmt.Errorf("hclload: %w", diags)
	}
	if len(content.Blocks) != 1 {
		return nil, fmt.Errorf("hclload: %s defines %d system blocks, want exactly 1", filename, len(content.Blocks))
	}
	return loadSystem(content.Blocks[0])
}

func loadSystem(block *hcl.Block) (*model.System, error) {
	sys := &model.System{Name: block.Labels[0]}

	content, diags := block.Body.Content(&hcl.BodySchema{
		Attributes: []hcl.AttributeSchema{
			{Name: "variables", Required: true},
			{Name: "parameters"},
			{Name: "time"},
		},
		Blocks: []hcl.BlockHeaderSchema{{Type: "equation", LabelNames: []string{"variable"}}},
	})
	if diags.HasErrors() {
		return nil, fmt.Errorf("hclload: system %q: %w", sys.Name, diags)
	}

	var err error
	if sys.Variables, err = stringList(content.Attributes["variables"]); err != nil {
		return nil, fmt.Errorf("hclload: system %q: %w", sys.Name, err)
	}
	if attr, ok := content.Attributes["parameters"]; ok {
		if sys.Parameters, err = stringList(attr); err != nil {
			return nil, fmt.Errorf("hclload: system %q: %w", sys.Name, err)
		}
	}
	if attr, ok := content.Attributes["time"]; ok {
		v, diags := attr.Expr.Value(nil)
		if diags.HasErrors() || v.Type() != cty.String {
			return nil, fmt.Errorf("hclload: system %q: time must be a string", sys.Name)
		}
		sys.IndepVar = v.AsString()
	}

	for _, s := range append(append([]string{}, sys.Variables...), sys.Parameters...) {
		if binder.IsReserved(s) {
			return nil, fmt.Errorf("hclload: system %q: symbol %q uses the reserved prefix %q",
				sys.Name, s, binder.ReservedPrefix)
		}
	}

	tr := translator{sys: sys}
	for _, eb := range content.Blocks {
		eq, err := tr.equation(eb)
		if err != nil {
			return nil, err
		}
		sys.Equations = append(sys.Equations, eq)
	}

	if err := sys.Validate(); err != nil {
		return nil, err
	}
	return sys, nil
}

func stringList(attr *hcl.Attribute) ([]string, error) {
	v, diags := attr.Expr.Value(nil)
	if diags.HasErrors() {
		return nil, fmt.Errorf("%s: %w", attr.Name, diags)
	}
	if !v.Type().IsTupleType() && !v.Type().IsListType() {
		return nil, fmt.Errorf("%s must be a list of strings", attr.Name)
	}
	var out []string
	for it := v.ElementIterator(); it.Next(); {
		_, ev := it.Element()
		if ev.Type() != cty.String {
			return nil, fmt.Errorf("%s must be a list of strings", attr.Name)
		}
		out = append(out, ev.AsString())
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s is empty", attr.Name)
	}
	return out, nil
}

type translator struct {
	sys *model.System
}

func (t translator) equation(block *hcl.Block) (model.Equation, error) {
	variable := block.Labels[0]
	content, diags := block.Body.Content(&hcl.BodySchema{
		Attributes: []hcl.AttributeSchema{{Name: "rhs", Required: true}},
	})
	if diags.HasErrors() {
		return model.Equation{}, fmt.Errorf("hclload: equation %q: %w", variable, diags)
	}

	syn, ok := content.Attributes["rhs"].Expr.(hclsyntax.Expression)
	if !ok {
		return model.Equation{}, fmt.Errorf("hclload: equation %q: rhs is not native syntax", variable)
	}
	rhs, err := t.node(syn)
	if err != nil {
		return model.Equation{}, fmt.Errorf("hclload: equation %q: %w", variable, err)
	}
	return model.Equation{Lhs: expr.Derivative{Of: variable}, Rhs: rhs}, nil
}

// node translates one hclsyntax expression into a generator node.
func (t translator) node(e hclsyntax.Expression) (expr.Node, error) {
	switch ex := e.(type) {
	case *hclsyntax.LiteralValueExpr:
		return t.constant(ex.Val)

	case *hclsyntax.ScopeTraversalExpr:
		if len(ex.Traversal) != 1 {
			return nil, fmt.Errorf("indexed reference %q is not a plain symbol", traversalName(ex.Traversal))
		}
		return t.symbol(ex.Traversal.RootName())

	case *hclsyntax.ParenthesesExpr:
		return t.node(ex.Expression)

	case *hclsyntax.UnaryOpExpr:
		if ex.Op != hclsyntax.OpNegate {
			return nil, fmt.Errorf("unsupported unary operator")
		}
		val, err := t.node(ex.Val)
		if err != nil {
			return nil, err
		}
		return expr.C("-", val), nil

	case *hclsyntax.BinaryOpExpr:
		op, err := binaryOp(ex.Op)
		if err != nil {
			return nil, err
		}
		lhs, err := t.node(ex.LHS)
		if err != nil {
			return nil, err
		}
		rhs, err := t.node(ex.RHS)
		if err != nil {
			return nil, err
		}
		return expr.C(op, lhs, rhs), nil

	case *hclsyntax.FunctionCallExpr:
		args := make([]expr.Node, len(ex.Args))
		for i, a := range ex.Args {
			n, err := t.node(a)
			if err != nil {
				return nil, err
			}
			args[i] = n
		}
		return expr.C(ex.Name, args...), nil
	}
	return nil, fmt.Errorf("unsupported expression at %s", e.Range().String())
}

func (t translator) constant(v cty.Value) (expr.Node, error) {
	if v.Type() != cty.Number {
		return nil, fmt.Errorf("literal %s is not numeric", v.Type().FriendlyName())
	}
	f, _ := v.AsBigFloat().Float64()
	return expr.Num(f), nil
}

// symbol resolves a bare identifier against the declared lists; variables
// shadow nothing because declarations are disjoint by validation.
func (t translator) symbol(name string) (expr.Node, error) {
	for _, v := range t.sys.Variables {
		if v == name {
			return expr.Variable{Name: name}, nil
		}
	}
	for _, p := range t.sys.Parameters {
		if p == name {
			return expr.Param{Name: name}, nil
		}
	}
	if name == t.sys.IndepVar && name != "" {
		return expr.Variable{Name: name}, nil
	}

	known := append(append([]string{}, t.sys.Variables...), t.sys.Parameters...)
	if t.sys.IndepVar != "" {
		known = append(known, t.sys.IndepVar)
	}
	sort.Strings(known)
	return nil, fmt.Errorf("unknown symbol %q (declared symbols: %s)", name, strings.Join(known, ", "))
}

func binaryOp(op *hclsyntax.Operation) (string, error) {
	switch op {
	case hclsyntax.OpAdd:
		return "+", nil
	case hclsyntax.OpSubtract:
		return "-", nil
	case hclsyntax.OpMultiply:
		return "*", nil
	case hclsyntax.OpDivide:
		return "/", nil
	}
	return "", fmt.Errorf("unsupported binary operator")
}

func traversalName(tr hcl.Traversal) string {
	return tr.RootName()
}

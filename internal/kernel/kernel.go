// Package kernel is the construction facility that turns an assembled body
// into an invocable unit, and the hook surface for rebuilding a unit from a
// transformed body.
//
// The round-trip is strictly two-phase: a Unit's Body() hands out the
// intermediate representation as a deep copy, the embedder applies a pure
// IR→IR transform, and Rebuild produces a new unit from the transformed
// body with otherwise-identical signature metadata. Units are never mutated
// in place, so anything the transform does not touch survives losslessly.
package kernel

import (
	"context"
	"fmt"

	"github.com/vk/kerngen/internal/assemble"
	"github.com/vk/kerngen/internal/binder"
	"github.com/vk/kerngen/internal/ctxlog"
	"github.com/vk/kerngen/internal/expr"
	"github.com/vk/kerngen/internal/parallel"
	"github.com/vk/kerngen/internal/shape"
)

// Program is the intermediate representation of a kernel body: the binding
// prologue plus either an in-place statement list or an out-of-place
// construction.
type Program struct {
	Bindings   []binder.Binding
	Statements []assemble.Statement
	// Construction is set instead of Statements for out-of-place bodies.
	Construction *assemble.Construction
	Desc         shape.Descriptor
	Strategy     parallel.Strategy
	// BoundsChecked makes in-place invocation verify every statement path
	// against the caller's container before any write happens.
	BoundsChecked bool
}

// Clone deep-copies the program. Transforms receive and return clones; a
// transform therefore cannot reach back into the unit it was extracted
// from.
func (p Program) Clone() Program {
	out := p
	out.Bindings = append([]binder.Binding(nil), p.Bindings...)
	out.Statements = make([]assemble.Statement, len(p.Statements))
	for i, st := range p.Statements {
		out.Statements[i] = assemble.Statement{
			Path: append([]int(nil), st.Path...),
			RHS:  st.RHS,
		}
	}
	if p.Construction != nil {
		c := *p.Construction
		c.Elems = append([]shape.Element(nil), p.Construction.Elems...)
		out.Construction = &c
	}
	return out
}

// Transform is a pure IR→IR rewrite supplied by the embedder, typically a
// registered-function injection pass.
type Transform func(Program) Program

// Signature is the unit metadata that survives a rebuild unchanged.
type Signature struct {
	Name    string
	Args    []string
	InPlace bool
}

// Args are the actual call parameters of an invocation: containers by
// argument name plus scalar extras (the independent variable).
type Args struct {
	Arrays  map[string][]float64
	Scalars map[string]float64
}

// Unit is an invocable compiled kernel.
type Unit struct {
	sig    Signature
	prog   Program
	collab parallel.Collaborators
}

// New constructs a unit from a program. Collaborators are bound at
// construction time; strategies that need an absent collaborator fail here
// rather than at first invocation.
func New(sig Signature, prog Program, collab parallel.Collaborators) (*Unit, error) {
	if err := collab.Validate(prog.Strategy); err != nil {
		return nil, err
	}
	if sig.InPlace && prog.Construction != nil {
		return nil, fmt.Errorf("kernel: in-place unit with out-of-place body")
	}
	if !sig.InPlace && prog.Construction == nil {
		return nil, fmt.Errorf("kernel: out-of-place unit without construction")
	}
	return &Unit{sig: sig, prog: prog.Clone(), collab: collab}, nil
}

// Signature returns the unit's call metadata.
func (u *Unit) Signature() Signature { return u.sig }

// Body extracts the unit's intermediate representation.
func (u *Unit) Body() Program { return u.prog.Clone() }

// Rebuild constructs a new unit from a transformed body, keeping the
// original's signature metadata and collaborators.
func Rebuild(u *Unit, body Program) (*Unit, error) {
	return New(u.sig, body, u.collab)
}

// env materializes the binding prologue against the call arguments.
func (u *Unit) env(args Args) (expr.MapEnv, error) {
	locals := make(map[string]float64, len(u.prog.Bindings))
	for _, b := range u.prog.Bindings {
		if b.Index < 0 {
			v, ok := args.Scalars[b.Array]
			if !ok {
				return expr.MapEnv{}, fmt.Errorf("kernel: missing scalar argument %q", b.Array)
			}
			locals[b.Name] = v
			continue
		}
		arr, ok := args.Arrays[b.Array]
		if !ok {
			return expr.MapEnv{}, fmt.Errorf("kernel: missing container argument %q", b.Array)
		}
		if b.Index >= len(arr) {
			return expr.MapEnv{}, fmt.Errorf("kernel: argument %q has %d elements, binding needs index %d",
				b.Array, len(arr), b.Index)
		}
		locals[b.Name] = arr[b.Index]
	}
	return expr.MapEnv{Locals: locals, Arrays: args.Arrays}, nil
}

// RunInPlace executes the statement list into the caller-supplied
// container under the program's strategy. With skip-zero assembly the
// untouched slots keep their pre-call values.
func (u *Unit) RunInPlace(ctx context.Context, out shape.Writable, args Args) error {
	if !u.sig.InPlace {
		return fmt.Errorf("kernel: %s is an out-of-place kernel", u.sig.Name)
	}
	env, err := u.env(args)
	if err != nil {
		return err
	}
	if u.prog.BoundsChecked {
		for _, st := range u.prog.Statements {
			if _, err := out.At(st.Path); err != nil {
				return fmt.Errorf("kernel: bounds check: %w", err)
			}
		}
	}
	ctxlog.FromContext(ctx).Debug("Invoking in-place kernel.",
		"name", u.sig.Name, "statements", len(u.prog.Statements), "strategy", u.prog.Strategy.Kind.String())
	return parallel.Run(ctx, u.prog.Statements, out, env, u.prog.Strategy, u.collab)
}

// RunOutOfPlace constructs and returns a fresh container. Out-of-place
// execution is always serial regardless of the program's strategy.
func (u *Unit) RunOutOfPlace(ctx context.Context, args Args) (shape.Writable, error) {
	if u.sig.InPlace {
		return nil, fmt.Errorf("kernel: %s is an in-place kernel", u.sig.Name)
	}
	env, err := u.env(args)
	if err != nil {
		return nil, err
	}
	ctxlog.FromContext(ctx).Debug("Invoking out-of-place kernel.",
		"name", u.sig.Name, "elements", len(u.prog.Construction.Elems))
	return u.prog.Construction.Eval(env)
}

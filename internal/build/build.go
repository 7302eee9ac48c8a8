package build

import (
	"context"
	"fmt"

	"github.com/vk/kerngen/internal/assemble"
	"github.com/vk/kerngen/internal/backend"
	"github.com/vk/kerngen/internal/binder"
	"github.com/vk/kerngen/internal/ctxlog"
	"github.com/vk/kerngen/internal/kernel"
	"github.com/vk/kerngen/internal/model"
	"github.com/vk/kerngen/internal/parallel"
	"github.com/vk/kerngen/internal/shape"
)

// Result is one finished generation. Textual targets and expression-mode
// native builds fill the source fields; compiled-mode native builds fill
// the unit fields. The engine never returns a partially built artifact: on
// any error the whole Result is nil.
type Result struct {
	Desc shape.Descriptor

	// Source is the rendered artifact for textual targets, and the
	// in-place closure source for expression-mode native builds.
	Source string
	// OutOfPlaceSource is the out-of-place closure source for
	// expression-mode native builds.
	OutOfPlaceSource string

	// InPlace and OutOfPlace are the invocable units of a compiled-mode
	// native build.
	InPlace    *kernel.Unit
	OutOfPlace *kernel.Unit
}

// Build generates one artifact for the system. output is the expression
// container to generate for; nil defaults to the system's equation
// right-hand sides as a flat vector.
func Build(ctx context.Context, sys *model.System, output any, opts Options) (*Result, error) {
	logger := ctxlog.FromContext(ctx)

	if err := sys.Validate(); err != nil {
		return nil, err
	}
	for _, s := range append(append([]string{}, sys.Variables...), sys.Parameters...) {
		if binder.IsReserved(s) {
			return nil, fmt.Errorf("build: symbol %q uses the reserved prefix %q", s, binder.ReservedPrefix)
		}
	}

	strategy := opts.Parallel
	if opts.LegacyParallel != nil {
		strategy = parallel.FromLegacyBool(ctx, *opts.LegacyParallel)
	}

	// Collaborator presence is checked before any lowering work begins.
	collab := parallel.Collaborators{Scheduler: opts.Scheduler, Pool: opts.Pool}
	if opts.Target == TargetNative && opts.Mode == ModeCompiled {
		if err := collab.Validate(strategy); err != nil {
			return nil, err
		}
	}

	name := opts.FuncName
	if name == "" {
		name = sys.Name
	}
	if name == "" {
		name = "generated_kernel"
	}

	if output == nil {
		output = sys.RHS()
	}

	// Single classification step; every downstream stage consumes this tag.
	desc := shape.Classify(output)
	logger.Debug("Classified output shape.", "kind", desc.Kind.String(), "elements", desc.Count())

	switch opts.Target {
	case TargetC, TargetStan, TargetMatlab:
		return renderTextual(ctx, sys, name, opts, desc)
	case TargetNative:
		return buildNative(ctx, sys, output, name, opts, strategy, collab, desc)
	}
	return nil, fmt.Errorf("build: unknown target %v", opts.Target)
}

func renderTextual(ctx context.Context, sys *model.System, name string, opts Options, desc shape.Descriptor) (*Result, error) {
	var b backend.Backend
	switch opts.Target {
	case TargetC:
		b = backend.CSource{}
	case TargetStan:
		b = backend.StanSource{}
	case TargetMatlab:
		b = backend.MatlabSource{}
	}

	src, err := b.Render(backend.Input{
		Sys:            sys,
		FuncName:       name,
		Convert:        opts.Convert,
		RetainLineInfo: opts.RetainLineInfo,
		Wrapper:        opts.HeaderWrapper,
	})
	if err != nil {
		return nil, err
	}
	ctxlog.FromContext(ctx).Info("Rendered textual kernel.", "target", b.Name(), "name", name)
	return &Result{Desc: desc, Source: src}, nil
}

func buildNative(ctx context.Context, sys *model.System, output any, name string, opts Options,
	strategy parallel.Strategy, collab parallel.Collaborators, desc shape.Descriptor) (*Result, error) {
	logger := ctxlog.FromContext(ctx)

	// One fresh binder per build: binding names are unique within this
	// call and never shared across invocations.
	bd := binder.New()
	args := []binder.Argument{binder.Container("state", sys.Variables...)}
	argNames := []string{"state"}
	if len(sys.Parameters) > 0 {
		args = append(args, binder.Container("parameter", sys.Parameters...))
		argNames = append(argNames, "parameter")
	}
	if sys.IndepVar != "" {
		args = append(args, binder.Scalar(sys.IndepVar))
		argNames = append(argNames, sys.IndepVar)
	}
	bindings, err := bd.Bind(args...)
	if err != nil {
		return nil, err
	}

	stmts, err := assemble.InPlace(output, desc, assemble.InPlaceOptions{
		Lower:    bd.Lower,
		SkipZero: opts.SkipZero,
		Remap:    opts.OutputIndexRemap,
	})
	if err != nil {
		return nil, err
	}
	cons, err := assemble.OutOfPlace(output, desc, bd.Lower)
	if err != nil {
		return nil, err
	}
	logger.Debug("Assembled native body.", "bindings", len(bindings), "statements", len(stmts))

	inProg := kernel.Program{
		Bindings:      bindings,
		Statements:    stmts,
		Desc:          desc,
		Strategy:      strategy,
		BoundsChecked: opts.BoundsChecked,
	}
	outProg := kernel.Program{
		Bindings:     bindings,
		Construction: cons,
		Desc:         desc,
		// Out-of-place generation is always serial.
		Strategy: parallel.Serial(),
	}

	if opts.Mode == ModeExpression {
		nb := backend.Native{}
		inSrc, err := nb.Render(backend.Input{
			Sys: sys, FuncName: name, Convert: opts.Convert, RetainLineInfo: opts.RetainLineInfo,
			Wrapper: opts.HeaderWrapper, Program: &inProg, ArgNames: argNames, InPlace: true,
		})
		if err != nil {
			return nil, err
		}
		outSrc, err := nb.Render(backend.Input{
			Sys: sys, FuncName: name, Convert: opts.Convert, RetainLineInfo: opts.RetainLineInfo,
			Wrapper: opts.HeaderWrapper, Program: &outProg, ArgNames: argNames, InPlace: false,
		})
		if err != nil {
			return nil, err
		}
		logger.Info("Rendered native kernel source.", "name", name)
		return &Result{Desc: desc, Source: inSrc, OutOfPlaceSource: outSrc}, nil
	}

	// Compiled mode: construct each unit, extract its body, run the
	// registered injection transform, and rebuild. The round-trip is
	// lossless for anything the transform leaves alone.
	inUnit, err := kernel.New(kernel.Signature{Name: name, Args: append([]string{"out"}, argNames...), InPlace: true}, inProg, collab)
	if err != nil {
		return nil, err
	}
	outUnit, err := kernel.New(kernel.Signature{Name: name, Args: argNames, InPlace: false}, outProg, collab)
	if err != nil {
		return nil, err
	}
	if opts.Transform != nil {
		inUnit, err = kernel.Rebuild(inUnit, opts.Transform(inUnit.Body()))
		if err != nil {
			return nil, err
		}
		outUnit, err = kernel.Rebuild(outUnit, opts.Transform(outUnit.Body()))
		if err != nil {
			return nil, err
		}
	}
	logger.Info("Compiled native kernel.", "name", name, "strategy", strategy.Kind.String())
	return &Result{Desc: desc, InPlace: inUnit, OutOfPlace: outUnit}, nil
}

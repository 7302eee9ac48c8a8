package build

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/kerngen/internal/distributed"
	"github.com/vk/kerngen/internal/expr"
	"github.com/vk/kerngen/internal/kernel"
	"github.com/vk/kerngen/internal/model"
	"github.com/vk/kerngen/internal/parallel"
	"github.com/vk/kerngen/internal/shape"
	"github.com/vk/kerngen/internal/taskgraph"
)

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

func TestBuild_ScalarIdentityKernel(t *testing.T) {
	t.Parallel()

	sys := &model.System{
		Name:      "ident",
		Variables: []string{"x"},
		Equations: []model.Equation{
			{Lhs: expr.Derivative{Of: "x"}, Rhs: expr.Variable{Name: "x"}},
		},
	}

	res, err := Build(context.Background(), sys, expr.Node(expr.Variable{Name: "x"}), Options{
		Target: TargetNative,
		Mode:   ModeCompiled,
	})
	require.NoError(t, err)
	require.Equal(t, shape.Scalar, res.Desc.Kind)

	out := make(shape.Vec, 1)
	args := kernel.Args{Arrays: map[string][]float64{"state": {42}}}
	require.NoError(t, res.InPlace.RunInPlace(context.Background(), out, args))
	assert.Equal(t, 42.0, out[0], "the identity kernel returns its input unchanged")
}

func TestBuild_NativeCompiledDecay(t *testing.T) {
	t.Parallel()

	res, err := Build(context.Background(), decaySystem(), nil, Options{
		Target: TargetNative,
		Mode:   ModeCompiled,
	})
	require.NoError(t, err)
	require.NotNil(t, res.InPlace)
	require.NotNil(t, res.OutOfPlace)

	args := kernel.Args{
		Arrays:  map[string][]float64{"state": {2, 5}},
		Scalars: map[string]float64{"t": 0},
	}

	out := make(shape.Vec, 2)
	require.NoError(t, res.InPlace.RunInPlace(context.Background(), out, args))
	assert.Equal(t, []float64{-2, -3}, []float64(out))

	constructed, err := res.OutOfPlace.RunOutOfPlace(context.Background(), args)
	require.NoError(t, err)
	assert.Equal(t, shape.Vec{-2, -3}, constructed)
}

func TestBuild_NativeExpressionSource(t *testing.T) {
	t.Parallel()

	res, err := Build(context.Background(), decaySystem(), nil, Options{
		Target: TargetNative,
		Mode:   ModeExpression,
	})
	require.NoError(t, err)

	assert.Contains(t, res.Source, "func decay(out, state, t) {")
	assert.Contains(t, res.Source, "kg_1 := state[0]")
	assert.Contains(t, res.Source, "out[0] = -kg_1")
	assert.Contains(t, res.OutOfPlaceSource, "return [-kg_")
	assert.Nil(t, res.InPlace)
}

func TestBuild_SkipZeroPreservesSentinels(t *testing.T) {
	t.Parallel()

	sys := &model.System{
		Name:      "mask",
		Variables: []string{"u1", "u2"},
		Equations: []model.Equation{
			{Lhs: expr.Derivative{Of: "u1"}, Rhs: expr.Num(0)},
			{Lhs: expr.Derivative{Of: "u2"}, Rhs: expr.Variable{Name: "u1"}},
		},
	}

	res, err := Build(context.Background(), sys, nil, Options{
		Target:   TargetNative,
		Mode:     ModeCompiled,
		SkipZero: true,
	})
	require.NoError(t, err)

	// Pre-seed the container with sentinels; the elided zero statement
	// must leave slot 0 untouched.
	out := shape.Vec{99, 99}
	args := kernel.Args{Arrays: map[string][]float64{"state": {7, 8}}}
	require.NoError(t, res.InPlace.RunInPlace(context.Background(), out, args))
	assert.Equal(t, []float64{99, 7}, []float64(out))
}

func TestBuild_TextualTargets(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		target Target
		want   string
	}{
		{TargetC, "derivative[0] = -state[0];"},
		{TargetStan, "internal_var___du[1] = -internal_var___u[1];"},
		{TargetMatlab, "-internal_var___u(1)"},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.target.String(), func(t *testing.T) {
			t.Parallel()

			res, err := Build(context.Background(), decaySystem(), nil, Options{Target: tc.target})
			require.NoError(t, err)
			assert.Contains(t, res.Source, tc.want)
			assert.Nil(t, res.InPlace, "textual targets produce source only")
		})
	}
}

func TestBuild_TransformInjection(t *testing.T) {
	t.Parallel()

	// The injection pass rewrites every statement to double its value.
	transform := func(p kernel.Program) kernel.Program {
		for i := range p.Statements {
			p.Statements[i].RHS = expr.C("*", expr.Num(2), p.Statements[i].RHS)
		}
		if p.Construction != nil {
			for i := range p.Construction.Elems {
				p.Construction.Elems[i].Expr = expr.C("*", expr.Num(2), p.Construction.Elems[i].Expr)
			}
		}
		return p
	}

	res, err := Build(context.Background(), decaySystem(), nil, Options{
		Target:    TargetNative,
		Mode:      ModeCompiled,
		Transform: transform,
	})
	require.NoError(t, err)

	args := kernel.Args{
		Arrays:  map[string][]float64{"state": {2, 5}},
		Scalars: map[string]float64{"t": 0},
	}
	out := make(shape.Vec, 2)
	require.NoError(t, res.InPlace.RunInPlace(context.Background(), out, args))
	assert.Equal(t, []float64{-4, -6}, []float64(out))
}

func TestBuild_LegacyParallelFlag(t *testing.T) {
	t.Parallel()

	for _, flag := range []bool{true, false} {
		flag := flag

		res, err := Build(context.Background(), decaySystem(), nil, Options{
			Target:         TargetNative,
			Mode:           ModeCompiled,
			LegacyParallel: &flag,
			// Ignored when the legacy flag is set.
			Parallel: parallel.TaskGraph(),
		})
		require.NoError(t, err)

		out := make(shape.Vec, 2)
		args := kernel.Args{
			Arrays:  map[string][]float64{"state": {2, 5}},
			Scalars: map[string]float64{"t": 0},
		}
		require.NoError(t, res.InPlace.RunInPlace(context.Background(), out, args))
		assert.Equal(t, []float64{-2, -3}, []float64(out))
	}
}

func TestBuild_TaskGraphWithoutScheduler(t *testing.T) {
	t.Parallel()

	_, err := Build(context.Background(), decaySystem(), nil, Options{
		Target:   TargetNative,
		Mode:     ModeCompiled,
		Parallel: parallel.TaskGraph(),
	})
	require.ErrorIs(t, err, taskgraph.ErrUnavailable)
}

func TestBuild_DistributedStrategy(t *testing.T) {
	t.Parallel()

	res, err := Build(context.Background(), decaySystem(), nil, Options{
		Target:   TargetNative,
		Mode:     ModeCompiled,
		Parallel: parallel.Distributed(2),
		Pool:     distributed.NewLocalPool(2),
	})
	require.NoError(t, err)

	out := make(shape.Vec, 2)
	args := kernel.Args{
		Arrays:  map[string][]float64{"state": {2, 5}},
		Scalars: map[string]float64{"t": 0},
	}
	require.NoError(t, res.InPlace.RunInPlace(context.Background(), out, args))
	assert.Equal(t, []float64{-2, -3}, []float64(out))
}

func TestBuild_ReservedPrefixSymbolIsRejected(t *testing.T) {
	t.Parallel()

	sys := decaySystem()
	sys.Variables = append(sys.Variables, "kg_9")

	_, err := Build(context.Background(), sys, nil, Options{Target: TargetNative})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reserved prefix")
}

func TestBuild_OutputIndexRemap(t *testing.T) {
	t.Parallel()

	res, err := Build(context.Background(), decaySystem(), nil, Options{
		Target: TargetNative,
		Mode:   ModeCompiled,
		OutputIndexRemap: func(path []int) []int {
			// Reverse the two slots.
			return []int{1 - path[0]}
		},
	})
	require.NoError(t, err)

	out := make(shape.Vec, 2)
	args := kernel.Args{
		Arrays:  map[string][]float64{"state": {2, 5}},
		Scalars: map[string]float64{"t": 0},
	}
	require.NoError(t, res.InPlace.RunInPlace(context.Background(), out, args))
	assert.Equal(t, []float64{-3, -2}, []float64(out))
}

func TestBuild_FuncNameDefaulting(t *testing.T) {
	t.Parallel()

	res, err := Build(context.Background(), decaySystem(), nil, Options{Target: TargetNative, Mode: ModeExpression})
	require.NoError(t, err)
	assert.Contains(t, res.Source, "func decay(")

	sys := decaySystem()
	sys.Name = ""
	res, err = Build(context.Background(), sys, nil, Options{Target: TargetNative, Mode: ModeExpression})
	require.NoError(t, err)
	assert.Contains(t, res.Source, "func generated_kernel(")

	res, err = Build(context.Background(), decaySystem(), nil, Options{Target: TargetNative, Mode: ModeExpression, FuncName: "custom"})
	require.NoError(t, err)
	assert.Contains(t, res.Source, "func custom(")
}

func TestBuild_InvalidSystem(t *testing.T) {
	t.Parallel()

	sys := decaySystem()
	sys.Variables = nil

	_, err := Build(context.Background(), sys, nil, Options{Target: TargetNative})
	require.Error(t, err)
}

func TestParseTarget(t *testing.T) {
	t.Parallel()

	for s, want := range map[string]Target{
		"native": TargetNative,
		"":       TargetNative,
		"c":      TargetC,
		"stan":   TargetStan,
		"matlab": TargetMatlab,
	} {
		got, err := ParseTarget(s)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseTarget("fortran")
	require.Error(t, err)
}

// Package build orchestrates a full generation: classify the output shape
// once, lower every element, assemble, apply the parallel strategy, and
// hand the result to the selected target backend. All state is local to
// one Build call; nothing persists between invocations.
package build

import (
	"fmt"

	"github.com/vk/kerngen/internal/backend"
	"github.com/vk/kerngen/internal/distributed"
	"github.com/vk/kerngen/internal/expr"
	"github.com/vk/kerngen/internal/kernel"
	"github.com/vk/kerngen/internal/parallel"
	"github.com/vk/kerngen/internal/taskgraph"
)

// Target selects the output artifact kind.
type Target int

const (
	// TargetNative produces a native kernel: source text in expression
	// mode, an invocable unit in compiled mode.
	TargetNative Target = iota
	TargetC
	TargetStan
	TargetMatlab
)

func (t Target) String() string {
	switch t {
	case TargetNative:
		return "native"
	case TargetC:
		return "c"
	case TargetStan:
		return "stan"
	case TargetMatlab:
		return "matlab"
	}
	return "unknown"
}

// ParseTarget maps a configuration string to a Target.
func ParseTarget(s string) (Target, error) {
	switch s {
	case "native", "":
		return TargetNative, nil
	case "c":
		return TargetC, nil
	case "stan":
		return TargetStan, nil
	case "matlab":
		return TargetMatlab, nil
	}
	return 0, fmt.Errorf("build: unknown target %q", s)
}

// Mode selects how a native kernel is returned.
type Mode int

const (
	// ModeExpression returns the kernel as source text.
	ModeExpression Mode = iota
	// ModeCompiled returns an invocable unit built by the kernel facility.
	ModeCompiled
)

// Options is the structured build configuration.
type Options struct {
	// FuncName names the generated function. Empty defaults to the system
	// name, then to "generated_kernel".
	FuncName string

	Target Target
	Mode   Mode

	// Convert is applied to each node during rendering.
	Convert func(expr.Node) expr.Node

	// SkipZero elides statements whose lowered right-hand side is the
	// literal zero (in-place assembly only).
	SkipZero bool

	// OutputIndexRemap optionally rewrites statement index paths.
	OutputIndexRemap func([]int) []int

	// BoundsChecked makes compiled in-place units validate every statement
	// path against the caller's container before writing.
	BoundsChecked bool

	// RetainLineInfo annotates rendered statements with their equation
	// origin.
	RetainLineInfo bool

	// HeaderWrapper replaces the target's default signature wrapping.
	HeaderWrapper backend.HeaderWrapper

	// Parallel is the execution strategy for the compiled in-place kernel.
	Parallel parallel.Strategy

	// LegacyParallel is the deprecated boolean flag. When set it overrides
	// Parallel: true means threaded across all available workers, false
	// means serial. Using it logs a deprecation notice.
	LegacyParallel *bool

	// Transform is the registered injection pass applied to compiled
	// bodies between extraction and rebuild.
	Transform kernel.Transform

	// Scheduler is the task-graph collaborator; required for the
	// task-graph strategy, checked before any lowering work.
	Scheduler taskgraph.Scheduler

	// Pool is the distributed collaborator; required for the distributed
	// strategy.
	Pool distributed.Pool
}

package app

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/vk/kerngen/internal/build"
	"github.com/vk/kerngen/internal/ctxlog"
	"github.com/vk/kerngen/internal/distributed"
	"github.com/vk/kerngen/internal/kernel"
	"github.com/vk/kerngen/internal/parallel"
	"github.com/vk/kerngen/internal/shape"
	"github.com/vk/kerngen/internal/taskgraph"
)

// Run executes the generation described by the configuration.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	opts, err := a.buildOptions(ctx)
	if err != nil {
		return err
	}

	if a.config.Exec != "" {
		return a.execKernel(ctx, opts)
	}

	result, err := build.Build(ctx, a.sys, nil, opts)
	if err != nil {
		return fmt.Errorf("generation failed: %w", err)
	}

	if a.config.OutputPath != "" {
		if err := os.WriteFile(a.config.OutputPath, []byte(result.Source), 0o644); err != nil {
			return fmt.Errorf("failed to write artifact: %w", err)
		}
		a.logger.Info("Artifact written.", "path", a.config.OutputPath, "target", a.config.Target)
		return nil
	}
	fmt.Fprint(a.outW, result.Source)
	return nil
}

func (a *App) buildOptions(ctx context.Context) (build.Options, error) {
	target, err := build.ParseTarget(a.config.Target)
	if err != nil {
		return build.Options{}, err
	}

	opts := build.Options{
		FuncName:       a.config.FuncName,
		Target:         target,
		SkipZero:       a.config.SkipZero,
		BoundsChecked:  a.config.BoundsChecked,
		RetainLineInfo: a.config.RetainLineInfo,
	}

	switch a.config.Parallel {
	case "serial":
		opts.Parallel = parallel.Serial()
	case "threaded":
		opts.Parallel = parallel.Threaded(a.config.Workers)
	case "distributed":
		opts.Parallel = parallel.Distributed(a.config.Workers)
		if a.config.WorkersURL != "" {
			pool, err := distributed.NewSocketIOPool(distributed.SocketIOConfig{
				URL:     a.config.WorkersURL,
				Workers: a.config.Workers,
			})
			if err != nil {
				return build.Options{}, err
			}
			opts.Pool = pool
		} else {
			opts.Pool = distributed.NewLocalPool(a.config.Workers)
		}
	case "taskgraph":
		opts.Parallel = parallel.TaskGraph()
		opts.Scheduler = taskgraph.NewPool(a.config.Workers)
	}
	ctxlog.FromContext(ctx).Debug("Build options assembled.", "target", a.config.Target, "parallel", a.config.Parallel)
	return opts, nil
}

// execKernel compiles the native in-place kernel and evaluates it once at
// the state vector given on the command line.
func (a *App) execKernel(ctx context.Context, opts build.Options) error {
	state, err := parseStateVector(a.config.Exec)
	if err != nil {
		return err
	}
	if len(state) != len(a.sys.Variables) {
		return fmt.Errorf("state vector has %d entries, system has %d variables", len(state), len(a.sys.Variables))
	}
	if len(a.sys.Parameters) > 0 {
		return fmt.Errorf("exec mode does not accept parameterized systems yet")
	}

	opts.Target = build.TargetNative
	opts.Mode = build.ModeCompiled
	result, err := build.Build(ctx, a.sys, nil, opts)
	if err != nil {
		return fmt.Errorf("generation failed: %w", err)
	}

	out := make(shape.Vec, len(a.sys.Variables))
	args := kernel.Args{Arrays: map[string][]float64{"state": state}}
	if a.sys.IndepVar != "" {
		args.Scalars = map[string]float64{a.sys.IndepVar: 0}
	}
	if err := result.InPlace.RunInPlace(ctx, out, args); err != nil {
		return fmt.Errorf("kernel invocation failed: %w", err)
	}

	a.logger.Info("Kernel evaluated.", "state", state, "derivative", []float64(out))
	fmt.Fprintf(a.outW, "%v\n", []float64(out))
	return nil
}

func parseStateVector(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	out := make([]float64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid state vector entry %q", p)
		}
		out[i] = v
	}
	return out, nil
}

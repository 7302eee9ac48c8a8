// Package app wires the CLI configuration to the generator: it loads the
// system definition, assembles build options (including the parallel
// collaborators the chosen strategy needs), runs the build, and writes the
// artifact.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/vk/kerngen/internal/ctxlog"
	"github.com/vk/kerngen/internal/hclload"
	"github.com/vk/kerngen/internal/model"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW   io.Writer
	errW   io.Writer
	logger *slog.Logger
	config *Config
	sys    *model.System
}

// NewApp constructs a fully initialized App with its own isolated logger
// and the system definition already loaded and validated.
func NewApp(outW, errW io.Writer, cfg *Config) (*App, error) {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, errW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	sys, err := hclload.LoadFile(cfg.SystemPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load system definition: %w", err)
	}
	ctxlog.FromContext(ctx).Debug("System definition loaded.",
		"system", sys.Name, "variables", len(sys.Variables), "parameters", len(sys.Parameters), "equations", len(sys.Equations))

	return &App{outW: outW, errW: errW, logger: logger, config: cfg, sys: sys}, nil
}

// System returns the loaded system definition. This is primarily for testing.
func (a *App) System() *model.System {
	return a.sys
}

package app

import (
	"errors"
	"fmt"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	SystemPath string // .kernel.hcl file
	OutputPath string // artifact destination, empty for stdout

	Target   string // native, c, stan, matlab
	FuncName string

	Parallel   string // serial, threaded, distributed, taskgraph
	Workers    int
	WorkersURL string // socket.io endpoint for the distributed strategy

	SkipZero       bool
	BoundsChecked  bool
	RetainLineInfo bool

	// Exec, when non-empty, is a comma-separated state vector: the app
	// compiles the native in-place kernel and evaluates it once.
	Exec string

	LogFormat string
	LogLevel  string
}

// NewConfig validates a Config and returns it.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.SystemPath == "" {
		return nil, errors.New("SystemPath is a required configuration field and cannot be empty")
	}
	switch cfg.Target {
	case "native", "c", "stan", "matlab":
	default:
		return nil, fmt.Errorf("invalid target %q", cfg.Target)
	}
	switch cfg.Parallel {
	case "serial", "threaded", "distributed", "taskgraph":
	default:
		return nil, fmt.Errorf("invalid parallel strategy %q", cfg.Parallel)
	}
	if cfg.Parallel == "distributed" && cfg.Exec != "" && cfg.WorkersURL == "" && cfg.Workers < 1 {
		return nil, errors.New("distributed strategy needs a worker count or a workers URL")
	}
	return &cfg, nil
}

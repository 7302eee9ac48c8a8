package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/vk/kerngen/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("kerngen", flag.ContinueOnError)
	flagSet.SetOutput(output)

	// Custom usage/help text function
	flagSet.Usage = func() {
		fmt.Fprint(output, `
Kerngen - A multi-target kernel generator for symbolic equation systems.

Usage:
  kerngen [options] [SYSTEM_PATH]

Arguments:
  SYSTEM_PATH
    Path to a .kernel.hcl system definition file.

Options:
`)
		flagSet.PrintDefaults()
	}

	fileFlag := flagSet.String("f", "", "Path to the system definition file (shorthand for the positional argument).")
	outFlag := flagSet.String("o", "", "Write the generated artifact to this path instead of stdout.")
	targetFlag := flagSet.String("target", "native", "Generation target. Options: 'native', 'c', 'stan', 'matlab'.")
	nameFlag := flagSet.String("name", "", "Function name for the generated kernel. Defaults to the system name.")
	parallelFlag := flagSet.String("parallel", "serial", "Execution strategy. Options: 'serial', 'threaded', 'distributed', 'taskgraph'.")
	workersFlag := flagSet.Int("workers", 4, "Number of workers for the threaded, distributed and taskgraph strategies.")
	workersURLFlag := flagSet.String("workers-url", "", "Socket.IO endpoint of a remote worker pool for the distributed strategy.")
	skipZeroFlag := flagSet.Bool("skip-zero", false, "Elide assignments whose right-hand side is the literal zero.")
	boundsFlag := flagSet.Bool("bounds-checked", false, "Verify output container bounds before running the kernel.")
	lineInfoFlag := flagSet.Bool("line-info", false, "Annotate generated statements with equation line comments.")
	execFlag := flagSet.String("exec", "", "Comma-separated state vector. Compiles the native kernel and evaluates it once.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	path := ""
	if *fileFlag != "" {
		path = *fileFlag
	} else if flagSet.NArg() > 0 {
		path = flagSet.Arg(0)
	}
	slog.Debug("System path determined.", "path", path)

	if path == "" {
		slog.Debug("No system path provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(app.Config{
		SystemPath:     path,
		OutputPath:     *outFlag,
		Target:         strings.ToLower(*targetFlag),
		FuncName:       *nameFlag,
		Parallel:       strings.ToLower(*parallelFlag),
		Workers:        *workersFlag,
		WorkersURL:     *workersURLFlag,
		SkipZero:       *skipZeroFlag,
		BoundsChecked:  *boundsFlag,
		RetainLineInfo: *lineInfoFlag,
		Exec:           *execFlag,
		LogFormat:      logFormat,
		LogLevel:       logLevel,
	})

	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}

// Package testutil provides the shared harness for end-to-end generation
// tests: write a system definition to disk, run the application against
// it, and capture logs and output for assertions.
package testutil

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vk/kerngen/internal/app"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// HarnessResult holds the outcomes of a generation test run.
type HarnessResult struct {
	Stdout    string
	LogOutput string
	Err       error
	App       *app.App
}

// RunGenerationTest writes the system definition to a temporary file, runs
// the application with the given configuration, and captures everything a
// test needs to assert on. The SystemPath, LogFormat and LogLevel fields of
// cfg are managed by the harness.
func RunGenerationTest(t *testing.T, systemHCL string, cfg app.Config) *HarnessResult {
	t.Helper()
	return RunGenerationTestWithContext(context.Background(), t, systemHCL, cfg)
}

// RunGenerationTestWithContext is RunGenerationTest with a caller-supplied
// context.
func RunGenerationTestWithContext(ctx context.Context, t *testing.T, systemHCL string, cfg app.Config) *HarnessResult {
	t.Helper()

	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "system.kernel.hcl")
	require.NoError(t, os.WriteFile(path, []byte(systemHCL), 0600))

	cfg.SystemPath = path
	cfg.LogFormat = "text"
	cfg.LogLevel = "debug"
	if cfg.Target == "" {
		cfg.Target = "native"
	}
	if cfg.Parallel == "" {
		cfg.Parallel = "serial"
	}

	validated, err := app.NewConfig(cfg)
	require.NoError(t, err)

	stdout := &bytes.Buffer{}
	logBuf := &SafeBuffer{}

	a, err := app.NewApp(stdout, logBuf, validated)
	if err != nil {
		return &HarnessResult{LogOutput: logBuf.String(), Err: err}
	}

	runErr := a.Run(ctx)
	return &HarnessResult{
		Stdout:    stdout.String(),
		LogOutput: logBuf.String(),
		Err:       runErr,
		App:       a,
	}
}

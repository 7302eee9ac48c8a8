package testutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// AssertGenerated checks that the run succeeded and the artifact contains
// the expected fragment.
func AssertGenerated(t *testing.T, result *HarnessResult, fragment string) {
	t.Helper()

	require.NoError(t, result.Err, "generation should succeed; logs:\n%s", result.LogOutput)
	require.True(t,
		strings.Contains(result.Stdout, fragment),
		"expected fragment %q was not found in the generated artifact:\n%s", fragment, result.Stdout,
	)
}

// AssertLogged checks that the captured log output contains the fragment.
func AssertLogged(t *testing.T, result *HarnessResult, fragment string) {
	t.Helper()

	require.True(t,
		strings.Contains(result.LogOutput, fragment),
		"expected log fragment %q was not found in logs:\n%s", fragment, result.LogOutput,
	)
}

package subshell

import (
	"bytes"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/braedencu/ps4sh/core/types"
)

// helperProcessEnvVar switches the test binary itself into acting as the
// re-exec'd subshell bootstrap, the standard Go idiom for exercising
// exec.Command against a real child process without building a separate
// fixture binary.
const helperProcessEnvVar = "PS4SH_SUBSHELL_HELPER"

func TestMain(m *testing.M) {
	if os.Getenv(helperProcessEnvVar) == "1" {
		runHelperProcess()
		return
	}
	os.Exit(m.Run())
}

func runHelperProcess() {
	snap, err := Bootstrap()
	if err != nil {
		fmt.Fprintf(os.Stderr, "helper: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("cwd=%s argv=%v status=%d dirstack=%v\n", snap.Cwd, snap.Node.Argv, snap.StatusVar, snap.DirStack)
	os.Exit(0)
}

func TestRunLocalSpawnsBootstrapChild(t *testing.T) {
	require.NoError(t, os.Setenv(helperProcessEnvVar, "1"))
	t.Cleanup(func() { _ = os.Unsetenv(helperProcessEnvVar) })

	self, err := os.Executable()
	require.NoError(t, err)

	node := types.Node{Kind: types.Simple, Argv: []string{"echo", "hi"}}
	var stdout bytes.Buffer
	cwd := t.TempDir()
	status := RunLocal(t.Context(), self, node, map[string]string{"FOO": "bar"}, cwd, []string{"/a", "/b"}, 0, Streams{Stdout: &stdout, Stderr: &stdout})

	assert.EqualValues(t, 0, status)
	assert.Contains(t, stdout.String(), "cwd="+cwd)
	assert.Contains(t, stdout.String(), "[echo hi]")
	assert.Contains(t, stdout.String(), "dirstack=[/a /b]")
}

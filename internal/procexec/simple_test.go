package procexec

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/braedencu/ps4sh/core/types"
	"github.com/braedencu/ps4sh/internal/dirstack"
)

func TestRunSimpleBuiltinRunsInProcess(t *testing.T) {
	start, err := os.Getwd()
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.Chdir(start) })

	dir := t.TempDir()
	var stack dirstack.Stack
	node := &types.Node{Kind: types.Simple, Argv: []string{"cd", dir}}
	status := RunSimple(node, map[string]string{}, &stack, Streams{Stdout: discard(), Stderr: discard()})
	assert.EqualValues(t, 0, status)
}

func TestRunSimpleExternalCommand(t *testing.T) {
	var stack dirstack.Stack
	var stdout bytes.Buffer
	node := &types.Node{Kind: types.Simple, Argv: []string{"echo", "hi"}}
	status := RunSimple(node, map[string]string{"PATH": os.Getenv("PATH")}, &stack, Streams{Stdout: &stdout, Stderr: discard()})
	assert.EqualValues(t, 0, status)
	assert.Equal(t, "hi\n", stdout.String())
}

func TestRunSimpleLocalsOverlayDoesNotMutateEnv(t *testing.T) {
	var stack dirstack.Stack
	var stdout bytes.Buffer
	env := map[string]string{"PATH": os.Getenv("PATH")}
	node := &types.Node{
		Kind:   types.Simple,
		Argv:   []string{"sh", "-c", "printf %s \"$GREETING\""},
		Locals: map[string]string{"GREETING": "hello"},
	}
	status := RunSimple(node, env, &stack, Streams{Stdout: &stdout, Stderr: discard()})
	assert.EqualValues(t, 0, status)
	assert.Equal(t, "hello", stdout.String())
	_, present := env["GREETING"]
	assert.False(t, present, "locals must never leak into the Interpreter's own env snapshot")
}

func TestRunSimpleCommandNotFound(t *testing.T) {
	var stack dirstack.Stack
	var stderr bytes.Buffer
	node := &types.Node{Kind: types.Simple, Argv: []string{"no_such_cmd_xyz"}}
	status := RunSimple(node, map[string]string{"PATH": os.Getenv("PATH")}, &stack, Streams{Stdout: discard(), Stderr: &stderr})
	assert.NotEqualValues(t, 0, status)
	assert.NotEmpty(t, stderr.String())
}

func TestRunSimpleNonZeroExit(t *testing.T) {
	var stack dirstack.Stack
	node := &types.Node{Kind: types.Simple, Argv: []string{"sh", "-c", "exit 7"}}
	status := RunSimple(node, map[string]string{"PATH": os.Getenv("PATH")}, &stack, Streams{Stdout: discard(), Stderr: discard()})
	assert.EqualValues(t, 7, status)
}

func discard() *bytes.Buffer { return &bytes.Buffer{} }

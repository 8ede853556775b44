package interp

import (
	"bytes"
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/braedencu/ps4sh/core/types"
)

func discard() *bytes.Buffer { return &bytes.Buffer{} }

func simpleEnv() map[string]string {
	return map[string]string{"PATH": os.Getenv("PATH")}
}

func simple(argv ...string) types.Node {
	return types.Node{Kind: types.Simple, Argv: argv}
}

func TestInterpretSimpleCommand(t *testing.T) {
	i := New(simpleEnv(), "/bin/ps4sh")
	var stdout bytes.Buffer

	status := i.Interpret(context.Background(), simple("echo", "hi"), Streams{Stdout: &stdout, Stderr: discard()})
	assert.Equal(t, 0, status)
	assert.Equal(t, "hi\n", stdout.String())
}

func TestInterpretAndShortCircuits(t *testing.T) {
	i := New(simpleEnv(), "/bin/ps4sh")
	var stdout bytes.Buffer

	tree := types.Node{
		Kind:  types.SepAnd,
		Left:  &types.Node{Kind: types.Simple, Argv: []string{"sh", "-c", "exit 1"}},
		Right: &types.Node{Kind: types.Simple, Argv: []string{"echo", "unreached"}},
	}
	status := i.Interpret(context.Background(), tree, Streams{Stdout: &stdout, Stderr: discard()})
	assert.Equal(t, 1, status)
	assert.Empty(t, stdout.String(), "right side of && must not run when left fails")
}

func TestInterpretOrRunsRightOnFailure(t *testing.T) {
	i := New(simpleEnv(), "/bin/ps4sh")
	var stdout bytes.Buffer

	tree := types.Node{
		Kind:  types.SepOr,
		Left:  &types.Node{Kind: types.Simple, Argv: []string{"sh", "-c", "exit 1"}},
		Right: &types.Node{Kind: types.Simple, Argv: []string{"echo", "fallback"}},
	}
	status := i.Interpret(context.Background(), tree, Streams{Stdout: &stdout, Stderr: discard()})
	assert.Equal(t, 0, status)
	assert.Equal(t, "fallback\n", stdout.String())
}

func TestInterpretSeqResultIsRightStatus(t *testing.T) {
	i := New(simpleEnv(), "/bin/ps4sh")

	tree := types.Node{
		Kind:  types.SepEnd,
		Left:  &types.Node{Kind: types.Simple, Argv: []string{"sh", "-c", "exit 9"}},
		Right: &types.Node{Kind: types.Simple, Argv: []string{"sh", "-c", "exit 3"}},
	}
	status := i.Interpret(context.Background(), tree, Streams{Stdout: discard(), Stderr: discard()})
	assert.Equal(t, 3, status)
}

func TestInterpretSeqWithNilRightReturnsLeft(t *testing.T) {
	i := New(simpleEnv(), "/bin/ps4sh")

	tree := types.Node{Kind: types.SepEnd, Left: &types.Node{Kind: types.Simple, Argv: []string{"sh", "-c", "exit 7"}}}
	status := i.Interpret(context.Background(), tree, Streams{Stdout: discard(), Stderr: discard()})
	assert.Equal(t, 7, status)
}

func TestInterpretPipeline(t *testing.T) {
	i := New(simpleEnv(), "/bin/ps4sh")
	var stdout bytes.Buffer

	tree := types.Node{
		Kind:  types.Pipe,
		Left:  &types.Node{Kind: types.Simple, Argv: []string{"echo", "hello world"}},
		Right: &types.Node{Kind: types.Simple, Argv: []string{"wc", "-w"}},
	}
	status := i.Interpret(context.Background(), tree, Streams{Stdout: &stdout, Stderr: discard()})
	assert.Equal(t, 0, status)
	assert.Equal(t, "2\n", stdout.String())
}

func TestInterpretBackgroundReportsAndContinues(t *testing.T) {
	i := New(simpleEnv(), "/bin/ps4sh")
	var stdout, stderr bytes.Buffer

	tree := types.Node{
		Kind:  types.SepBg,
		Left:  &types.Node{Kind: types.Simple, Argv: []string{"sh", "-c", "exit 0"}},
		Right: &types.Node{Kind: types.Simple, Argv: []string{"echo", "foreground"}},
	}
	status := i.Interpret(context.Background(), tree, Streams{Stdout: &stdout, Stderr: &stderr})
	assert.Equal(t, 0, status)
	assert.Equal(t, "foreground\n", stdout.String())
	assert.Contains(t, stderr.String(), "Backgrounded:")
}

func TestInterpretStatusVisibleToNextChild(t *testing.T) {
	i := New(simpleEnv(), "/bin/ps4sh")
	var stdout bytes.Buffer

	tree := types.Node{
		Kind:  types.SepEnd,
		Left:  &types.Node{Kind: types.Simple, Argv: []string{"sh", "-c", "exit 5"}},
		Right: &types.Node{Kind: types.Simple, Argv: []string{"printenv", "?"}},
	}
	status := i.Interpret(context.Background(), tree, Streams{Stdout: &stdout, Stderr: discard()})
	assert.Equal(t, 0, status)
	assert.Equal(t, "5\n", stdout.String())
}

func TestInterpretLocalsDoNotLeakToSubsequentSimpleNode(t *testing.T) {
	i := New(simpleEnv(), "/bin/ps4sh")
	var stdout bytes.Buffer

	tree := types.Node{
		Kind: types.SepEnd,
		Left: &types.Node{
			Kind:   types.Simple,
			Argv:   []string{"sh", "-c", "true"},
			Locals: map[string]string{"GREETING": "hi"},
		},
		Right: &types.Node{Kind: types.Simple, Argv: []string{"sh", "-c", "echo \"[$GREETING]\""}},
	}
	status := i.Interpret(context.Background(), tree, Streams{Stdout: &stdout, Stderr: discard()})
	assert.Equal(t, 0, status)
	assert.Equal(t, "[]\n", stdout.String())
	_, exported := i.env["GREETING"]
	assert.False(t, exported, "a Simple node's locals must never be merged into the Interpreter's own environment snapshot")
}

func TestSplitUserHost(t *testing.T) {
	user, host := splitUserHost("deploy@example.com")
	assert.Equal(t, "deploy", user)
	assert.Equal(t, "example.com", host)

	user, host = splitUserHost("example.com")
	assert.Equal(t, "", user)
	assert.Equal(t, "example.com", host)
}

func TestSplitHostPort(t *testing.T) {
	host, port := splitHostPort("example.com:2222")
	assert.Equal(t, "example.com", host)
	assert.Equal(t, 2222, port)

	host, port = splitHostPort("example.com")
	assert.Equal(t, "example.com", host)
	assert.Equal(t, 0, port)
}

func TestCloseClearsSessionCache(t *testing.T) {
	i := New(simpleEnv(), "/bin/ps4sh")
	require.NoError(t, i.Close())
	assert.Empty(t, i.sessions)
}

package procexec

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/braedencu/ps4sh/core/types"
	"github.com/braedencu/ps4sh/internal/dirstack"
)

func pipe(left, right *types.Node) *types.Node {
	return &types.Node{Kind: types.Pipe, Left: left, Right: right}
}

func simpleNode(argv ...string) *types.Node {
	return &types.Node{Kind: types.Simple, Argv: argv}
}

func TestRunPipelineTwoStages(t *testing.T) {
	var stack dirstack.Stack
	var stdout bytes.Buffer

	tree := pipe(simpleNode("echo", "hello world"), simpleNode("wc", "-w"))
	env := map[string]string{"PATH": os.Getenv("PATH")}

	status := RunPipeline(tree, env, &stack, Streams{Stdout: &stdout, Stderr: discard()}, StartStage)
	assert.EqualValues(t, 0, status)
	assert.Equal(t, "2\n", stdout.String())
}

func TestRunPipelineThreeStagesFlattenOrder(t *testing.T) {
	var stack dirstack.Stack
	var stdout bytes.Buffer

	tree := pipe(pipe(simpleNode("printf", "b\na\nc\n"), simpleNode("sort")), simpleNode("head", "-n", "1"))
	env := map[string]string{"PATH": os.Getenv("PATH")}

	status := RunPipeline(tree, env, &stack, Streams{Stdout: &stdout, Stderr: discard()}, StartStage)
	assert.EqualValues(t, 0, status)
	assert.Equal(t, "a\n", stdout.String())
}

func TestRunPipelineStatusIsRightmostStage(t *testing.T) {
	var stack dirstack.Stack
	env := map[string]string{"PATH": os.Getenv("PATH")}

	tree := pipe(simpleNode("sh", "-c", "exit 9"), simpleNode("sh", "-c", "exit 3"))
	status := RunPipeline(tree, env, &stack, Streams{Stdout: discard(), Stderr: discard()}, StartStage)
	assert.EqualValues(t, 3, status, "pipeline status must be the last stage's, not the first failing one (no pipefail)")
}

func TestFlattenLeftAssociative(t *testing.T) {
	a, b, c := simpleNode("a"), simpleNode("b"), simpleNode("c")
	tree := pipe(pipe(a, b), c)
	got := flatten(tree)
	assert.Equal(t, []*types.Node{a, b, c}, got)
}

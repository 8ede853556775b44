// Package procexec implements the simple-command executor (SPEC_FULL.md
// §4.2, component C4) and the pipeline executor (§4.3, component C5).
package procexec

import (
	"errors"
	"fmt"
	"io"
	"os/exec"
	"syscall"

	"github.com/braedencu/ps4sh/core/types"
	"github.com/braedencu/ps4sh/internal/builtin"
	"github.com/braedencu/ps4sh/internal/dirstack"
	"github.com/braedencu/ps4sh/internal/redirect"
)

// Streams are the default stdio an executed node inherits absent a
// redirection.
type Streams struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// envAdapter lets builtin.Dispatch read HOME out of a map[string]string
// environment snapshot.
type envAdapter map[string]string

func (e envAdapter) Getenv(name string) string { return e[name] }

// RunSimple executes a Simple node: built-ins run in-process (C2); anything
// else becomes a child process via exec.Cmd. env is the Interpreter's
// current environment snapshot, overlaid with node.Locals for the spawned
// child only — env itself is never mutated (SPEC_FULL.md §4.2 step 2).
func RunSimple(node *types.Node, env map[string]string, stack *dirstack.Stack, streams Streams) types.Status {
	stage, err := StartStage(node, env, stack, streams)
	if err != nil {
		return types.ClampErrno(errnoOf(err))
	}
	return stage.wait()
}

// buildCmd applies redirections and the locals overlay to produce an
// exec.Cmd ready to Start, per SPEC_FULL.md §4.2 step 3.
func buildCmd(node *types.Node, env map[string]string, streams Streams) (*exec.Cmd, redirect.Release, error) {
	files, release, err := redirect.Apply(node)
	if err != nil {
		return nil, nil, err
	}

	cmd := exec.Command(node.Argv[0], node.Argv[1:]...)
	cmd.Env = overlayEnv(env, node.Locals)

	cmd.Stdin = streams.Stdin
	cmd.Stdout = streams.Stdout
	cmd.Stderr = streams.Stderr
	if files.Stdin != nil {
		cmd.Stdin = files.Stdin
	}
	if files.Stdout != nil {
		cmd.Stdout = files.Stdout
	}
	if files.Stderr != nil {
		cmd.Stderr = files.Stderr
	}

	return cmd, release, nil
}

// overlayEnv merges locals onto a copy of env, formatted as NAME=VALUE
// pairs for exec.Cmd.Env. env itself is never mutated.
func overlayEnv(env, locals map[string]string) []string {
	merged := make(map[string]string, len(env)+len(locals))
	for k, v := range env {
		merged[k] = v
	}
	for k, v := range locals {
		merged[k] = v
	}
	out := make([]string, 0, len(merged))
	for k, v := range merged {
		out = append(out, k+"="+v)
	}
	return out
}

// reportStartFailure writes the exec-failure diagnostic, appending a "did
// you mean" suggestion when argv[0] is close to a recognized builtin
// (SPEC_FULL.md §4.7/E8, domain-stack extension).
func reportStartFailure(node *types.Node, stderr io.Writer, err error) {
	msg := fmt.Sprintf("%s: %v", node.Argv[0], err)
	if suggestion, ok := builtin.Suggest(node.Argv[0]); ok {
		msg += fmt.Sprintf(", did you mean '%s'?", suggestion)
	}
	fmt.Fprintln(stderr, msg)
}

// errnoOf extracts the underlying errno from a start failure, falling back
// to 1 when none is present (SPEC_FULL.md §4.2 step 3).
func errnoOf(err error) int {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return int(errno)
	}
	var execErr *exec.Error
	if errors.As(err, &execErr) {
		return 2 // ENOENT-equivalent: execvp-style "file not found"
	}
	return 1
}

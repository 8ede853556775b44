package subshell

import (
	"context"
	"fmt"
	"strings"

	"github.com/braedencu/ps4sh/core/types"
	"github.com/braedencu/ps4sh/internal/dirstack"
	"github.com/braedencu/ps4sh/internal/remote"
)

// remoteInterpreter re-implements the control-flow composer (C6) and
// simple-command executor (C4) against a remote.Session instead of
// os/exec, per SPEC_FULL.md §4.5.1: every Simple node inside a remote
// subshell runs via the session's Run, and cd/pushd/popd mutate only the
// session's own notion of its working directory.
type remoteInterpreter struct {
	sess  remote.Session
	stack dirstack.Stack
}

// RunRemote interprets node (the `left` of a Subcmd whose Host selected
// sess) entirely against sess, returning the interpreted status. A cd
// performed by node changes only sess's working directory, never the
// local Interpreter's, and that change stays in sess after RunRemote
// returns. The pushd/popd directory stack is discarded when RunRemote
// returns.
func RunRemote(ctx context.Context, sess remote.Session, node types.Node, streams Streams) types.Status {
	ri := &remoteInterpreter{sess: sess}
	return ri.interpret(ctx, &node, streams)
}

func (ri *remoteInterpreter) interpret(ctx context.Context, node *types.Node, streams Streams) types.Status {
	switch node.Kind {
	case types.Simple:
		return ri.runSimple(ctx, node, streams)
	case types.Pipe:
		return ri.runPipe(ctx, node, streams)
	case types.SepAnd:
		left := ri.interpret(ctx, node.Left, streams)
		if left != 0 {
			return left
		}
		return ri.interpret(ctx, node.Right, streams)
	case types.SepOr:
		left := ri.interpret(ctx, node.Left, streams)
		if left == 0 {
			return left
		}
		return ri.interpret(ctx, node.Right, streams)
	case types.SepEnd:
		left := ri.interpret(ctx, node.Left, streams)
		if node.Right != nil {
			return ri.interpret(ctx, node.Right, streams)
		}
		return left
	case types.SepBg:
		go ri.interpret(context.Background(), node.Left, streams)
		fmt.Fprintln(streams.Stderr, "Backgrounded: (remote)")
		if node.Right != nil {
			return ri.interpret(ctx, node.Right, streams)
		}
		return 0
	case types.Subcmd:
		saved := ri.stack.Snapshot()
		status := ri.interpret(ctx, node.Left, streams)
		ri.stack = dirstack.FromSnapshot(saved)
		return status
	default:
		fmt.Fprintf(streams.Stderr, "subshell: unknown node kind on remote host\n")
		return 1
	}
}

// runSimple dispatches cd/pushd/popd against the session's own cwd/stack;
// anything else runs via sess.Run, per SPEC_FULL.md §4.5.1.
func (ri *remoteInterpreter) runSimple(ctx context.Context, node *types.Node, streams Streams) types.Status {
	if len(node.Argv) == 0 {
		return 1
	}

	switch node.Argv[0] {
	case "cd":
		return ri.remoteCd(ctx, node.Argv, streams)
	case "pushd":
		return ri.remotePushd(ctx, node.Argv, streams)
	case "popd":
		return ri.remotePopd(ctx, streams)
	}

	res, err := ri.sess.Run(ctx, node.Argv, remote.RunOpts{
		Stdin: streams.Stdin, Stdout: streams.Stdout, Stderr: streams.Stderr,
		Env: node.Locals,
	})
	if err != nil {
		fmt.Fprintf(streams.Stderr, "%s: %v\n", node.Argv[0], err)
		return types.ClampErrno(1)
	}
	return res.Status
}

func (ri *remoteInterpreter) remoteCd(ctx context.Context, argv []string, streams Streams) types.Status {
	if len(argv) != 2 {
		fmt.Fprintln(streams.Stderr, "cd: too many arguments")
		return 1
	}
	if err := ri.sess.Chdir(ctx, argv[1]); err != nil {
		fmt.Fprintf(streams.Stderr, "cd: %s: %v\n", argv[1], err)
		return types.ClampErrno(1)
	}
	return 0
}

func (ri *remoteInterpreter) remotePushd(ctx context.Context, argv []string, streams Streams) types.Status {
	if len(argv) != 2 {
		fmt.Fprintln(streams.Stderr, "pushd: exactly one argument required")
		return 1
	}
	prev, err := ri.sess.Getwd(ctx)
	if err != nil {
		fmt.Fprintf(streams.Stderr, "pushd: %v\n", err)
		return types.ClampErrno(1)
	}
	if err := ri.sess.Chdir(ctx, argv[1]); err != nil {
		fmt.Fprintf(streams.Stderr, "pushd: %s: %v\n", argv[1], err)
		return types.ClampErrno(1)
	}
	ri.stack.Push(prev)
	fmt.Fprintln(streams.Stdout, ri.stack.Render())
	return 0
}

func (ri *remoteInterpreter) remotePopd(ctx context.Context, streams Streams) types.Status {
	if ri.stack.Empty() {
		fmt.Fprintln(streams.Stderr, "popd: directory stack empty")
		return 1
	}
	dir, _ := ri.stack.Pop()
	if err := ri.sess.Chdir(ctx, dir); err != nil {
		fmt.Fprintf(streams.Stderr, "popd: %s: %v\n", dir, err)
		return types.ClampErrno(1)
	}
	fmt.Fprintln(streams.Stdout, ri.stack.Render())
	return 0
}

// runPipe compiles a left-associative Pipe chain of Simple stages into a
// single shell-quoted command line joined by "|" and runs it as one
// remote command, delegating real pipe plumbing to the remote shell
// itself — a deliberate simplification versus the local pipeline
// executor's os.Pipe wiring, since a single SSH session has no cheap way
// to wire N independent remote processes together directly.
func (ri *remoteInterpreter) runPipe(ctx context.Context, node *types.Node, streams Streams) types.Status {
	stages, ok := flattenSimplePipe(node)
	if !ok {
		fmt.Fprintln(streams.Stderr, "subshell: remote pipelines support only simple commands")
		return 1
	}

	parts := make([]string, len(stages))
	for i, stage := range stages {
		parts[i] = shellEscapeArgv(stage.Argv)
	}
	cmdline := strings.Join(parts, " | ")

	res, err := ri.sess.Run(ctx, []string{"sh", "-c", cmdline}, remote.RunOpts{
		Stdin: streams.Stdin, Stdout: streams.Stdout, Stderr: streams.Stderr,
	})
	if err != nil {
		fmt.Fprintf(streams.Stderr, "subshell: remote pipeline: %v\n", err)
		return types.ClampErrno(1)
	}
	return res.Status
}

func flattenSimplePipe(node *types.Node) ([]*types.Node, bool) {
	var stages []*types.Node
	for node.Kind == types.Pipe {
		if node.Right.Kind != types.Simple {
			return nil, false
		}
		stages = append([]*types.Node{node.Right}, stages...)
		node = node.Left
	}
	if node.Kind != types.Simple {
		return nil, false
	}
	stages = append([]*types.Node{node}, stages...)
	return stages, true
}

func shellEscapeArgv(argv []string) string {
	parts := make([]string, len(argv))
	for i, a := range argv {
		parts[i] = "'" + strings.ReplaceAll(a, "'", `'\''`) + "'"
	}
	return strings.Join(parts, " ")
}

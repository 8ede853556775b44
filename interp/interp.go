// Package interp implements the tree interpreter (SPEC_FULL.md §4.1), the
// top-level component that wires the directory stack (C1), status tracker
// (C8), zombie reaper (C9), simple-command and pipeline executors (C4/C5),
// control-flow composer (C6), and subshell executor (C7) into a single
// Interpret(ctx, node) entry point.
package interp

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/braedencu/ps4sh/core/types"
	"github.com/braedencu/ps4sh/internal/dirstack"
	"github.com/braedencu/ps4sh/internal/procexec"
	"github.com/braedencu/ps4sh/internal/reaper"
	"github.com/braedencu/ps4sh/internal/redirect"
	"github.com/braedencu/ps4sh/internal/remote"
	"github.com/braedencu/ps4sh/internal/status"
	"github.com/braedencu/ps4sh/internal/subshell"
	"github.com/braedencu/ps4sh/internal/trace"
)

// Streams are the stdio handles a top-level Interpret call inherits from
// its caller (SPEC_FULL.md §6 "Standard streams").
type Streams struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// backgroundCap bounds how many concurrently outstanding background
// children a single Interpreter's reaper buffers without a registering
// goroutine blocking on send; see reaper.New.
const backgroundCap = 64

// Interpreter owns every piece of state a command tree can observe or
// mutate: the environment snapshot, the directory stack, the last-status
// tracker, the background-child reaper, and a cache of open SSH sessions
// for remote subshells. A zero Interpreter is not ready to use; construct
// one with New.
type Interpreter struct {
	// mu guards env, stack, and sessions against the concurrent goroutine
	// SepBg starts to interpret a backgrounded node — every other
	// consumer of the Interpreter runs on the single goroutine driving
	// the top-level Interpret call, per SPEC_FULL.md §5, but a
	// backgrounded subtree is a second, detached goroutine that can
	// observe or mutate the same state concurrently with its parent.
	mu sync.Mutex

	env      map[string]string
	stack    dirstack.Stack
	tracker  status.Tracker
	reaper   *reaper.Reaper
	sessions map[string]*remote.SSHSession
	selfPath string

	recorder *trace.Recorder
}

// New constructs an Interpreter seeded with env (copied; never aliased)
// and selfPath, the path to the current binary used to realize local
// subshells via re-exec (SPEC_FULL.md §4.5.2). Pass the result of
// os.Executable() for selfPath in production; tests may substitute any
// path to a binary that understands subshell.BootstrapFlag.
func New(env map[string]string, selfPath string) *Interpreter {
	cp := make(map[string]string, len(env))
	for k, v := range env {
		cp[k] = v
	}
	return &Interpreter{
		env:      cp,
		reaper:   reaper.New(backgroundCap),
		sessions: make(map[string]*remote.SSHSession),
		selfPath: selfPath,
	}
}

// RestoreDirStack replaces the Interpreter's directory stack with the
// given bottom-to-top entries. Used by cmd/ps4sh's bootstrap path to
// rehydrate a re-exec'd subshell child from its decoded snapshot
// (SPEC_FULL.md §4.5.2) before the child's own Interpret call begins.
func (i *Interpreter) RestoreDirStack(entries []string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.stack = dirstack.FromSnapshot(entries)
}

// RestoreStatus seeds the Interpreter's "?" tracker from a decoded
// subshell snapshot, so the child's first simple command sees the same
// status the parent observed just before spawning the subshell.
func (i *Interpreter) RestoreStatus(s types.Status) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.tracker.Set(s)
}

// SetRecorder attaches an optional telemetry/debug recorder (domain-stack
// extension, SPEC_FULL.md §6 "optional trace/telemetry export"). A nil
// recorder (the default) costs nothing beyond a nil check per call.
func (i *Interpreter) SetRecorder(r *trace.Recorder) {
	i.recorder = r
}

// Close releases every cached remote session. Callers should invoke this
// once the Interpreter is no longer needed (SPEC_FULL.md §9's note that
// the SSH connection cache is Interpreter-held and must be torn down with
// it).
func (i *Interpreter) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	var firstErr error
	for host, sess := range i.sessions {
		if err := sess.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("interp: close session to %s: %w", host, err)
		}
	}
	i.sessions = make(map[string]*remote.SSHSession)
	return firstErr
}

// Interpret is the engine's sole entry point (SPEC_FULL.md §6): drain the
// reaper non-blocking, interpret node to completion, and return its
// status as a plain int for the caller's read-eval loop or exit code.
func (i *Interpreter) Interpret(ctx context.Context, node types.Node, streams Streams) int {
	i.reaper.Drain(streams.Stderr)

	start := time.Now()
	i.recorder.Event("enter_interpret", node.Kind, "")

	s := i.interpretNode(ctx, &node, streams)

	i.recorder.Timing(node.Kind, time.Since(start), s)
	return int(s)
}

// interpretNode dispatches on node.Kind and records the resulting status
// in the tracker before returning it, per §4.1's "record ? at every node"
// post-step — every recursive call, not only the top-level one, so the
// outermost write observed by a subsequently spawned sibling is always
// the last one computed.
func (i *Interpreter) interpretNode(ctx context.Context, node *types.Node, streams Streams) types.Status {
	var s types.Status
	switch node.Kind {
	case types.Simple:
		s = i.runSimple(node, streams)
	case types.Pipe:
		s = i.runPipeline(node, streams)
	case types.SepAnd:
		s = i.runAnd(ctx, node, streams)
	case types.SepOr:
		s = i.runOr(ctx, node, streams)
	case types.SepEnd:
		s = i.runSeq(ctx, node, streams)
	case types.SepBg:
		s = i.runBackground(ctx, node, streams)
	case types.Subcmd:
		s = i.runSubshell(ctx, node, streams)
	default:
		fmt.Fprintf(streams.Stderr, "interp: unknown node kind %v\n", node.Kind)
		s = 1
	}

	i.mu.Lock()
	i.tracker.Set(s)
	i.mu.Unlock()
	return s
}

// currentEnv returns the environment snapshot a freshly spawned child or
// subshell should see: the Interpreter's own snapshot overlaid with "?"
// in decimal form (SPEC_FULL.md §4.8). locals are merged downstream by
// procexec/subshell, never here.
func (i *Interpreter) currentEnv() map[string]string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.tracker.Overlay(i.env)
}

func (i *Interpreter) runSimple(node *types.Node, streams Streams) types.Status {
	i.recorder.Event("spawn", node.Kind, fmt.Sprint(node.Argv))
	return procexec.RunSimple(node, i.currentEnv(), i.lockedStack(), toProcStreams(streams))
}

func (i *Interpreter) runPipeline(node *types.Node, streams Streams) types.Status {
	return procexec.RunPipeline(node, i.currentEnv(), i.lockedStack(), toProcStreams(streams), procexec.StartStage)
}

// lockedStack returns a pointer to the Interpreter's directory stack.
// Callers (procexec's builtin dispatch, specifically) mutate *through*
// this pointer for cd/pushd/popd; the Interpreter's own mutex does not
// protect those in-place mutations against a concurrent backgrounded
// goroutine, mirroring the concurrency model's acceptance that a
// backgrounded subtree racing a directory-stack mutation is a caller
// error (backgrounding a cd/pushd/popd is unusual and not given
// synchronization beyond what the OS gives the processes themselves).
func (i *Interpreter) lockedStack() *dirstack.Stack {
	return &i.stack
}

func (i *Interpreter) runAnd(ctx context.Context, node *types.Node, streams Streams) types.Status {
	left := i.interpretNode(ctx, node.Left, streams)
	if left != 0 {
		return left
	}
	return i.interpretNode(ctx, node.Right, streams)
}

func (i *Interpreter) runOr(ctx context.Context, node *types.Node, streams Streams) types.Status {
	left := i.interpretNode(ctx, node.Left, streams)
	if left == 0 {
		return left
	}
	return i.interpretNode(ctx, node.Right, streams)
}

func (i *Interpreter) runSeq(ctx context.Context, node *types.Node, streams Streams) types.Status {
	left := i.interpretNode(ctx, node.Left, streams)
	if node.Right == nil {
		return left
	}
	return i.interpretNode(ctx, node.Right, streams)
}

// runBackground starts node.Left asynchronously, reports the backgrounded
// pid, and — without waiting on it — proceeds to node.Right if present
// (SPEC_FULL.md §4.4).
func (i *Interpreter) runBackground(ctx context.Context, node *types.Node, streams Streams) types.Status {
	pid := i.startBackground(node.Left, streams)
	fmt.Fprintf(streams.Stderr, "Backgrounded: %d\n", pid)

	if node.Right != nil {
		return i.interpretNode(ctx, node.Right, streams)
	}
	return 0
}

// startBackground starts node without waiting on it and returns the pid to
// report. A Simple node (the common case `sleep 1 &` exercises, §4.4 E6)
// is started directly and its *exec.Cmd handed to the reaper (C9), so the
// real child pid is known synchronously and its completion is reclaimed
// asynchronously. A compound node (pipeline, subshell, or further
// composition) has no single pid to report — the reaper only ever
// registers one *exec.Cmd at a time — so it instead runs to completion on
// its own detached goroutine (its lifetime is not tied to the caller's
// ctx) and is reported as pid 0.
func (i *Interpreter) startBackground(node *types.Node, streams Streams) int {
	if node.Kind != types.Simple {
		go func() {
			i.interpretNode(context.Background(), node, streams)
		}()
		return 0
	}

	stage, err := procexec.StartStage(node, i.currentEnv(), i.lockedStack(), toProcStreams(streams))
	if err != nil {
		return 0
	}
	cmd := stage.Cmd()
	if cmd == nil {
		// A backgrounded built-in already ran to completion in-process;
		// nothing to hand to the reaper.
		return 0
	}
	i.reaper.Register(cmd)
	return cmd.Process.Pid
}

// runSubshell realizes a Subcmd node: local re-exec when Host is empty
// (§4.5.2), or a cached/fresh SSH session when Host is set (§4.5.1).
func (i *Interpreter) runSubshell(ctx context.Context, node *types.Node, streams Streams) types.Status {
	if node.Host == "" {
		return i.runLocalSubshell(ctx, node, streams)
	}
	return i.runRemoteSubshell(ctx, node, streams)
}

func (i *Interpreter) runLocalSubshell(ctx context.Context, node *types.Node, streams Streams) types.Status {
	i.mu.Lock()
	env := i.tracker.Overlay(i.env)
	dirStack := i.stack.Snapshot()
	statusVar := i.tracker.Get()
	i.mu.Unlock()

	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(streams.Stderr, "subshell: %v\n", err)
		return types.ClampErrno(1)
	}

	for k, v := range node.Locals {
		env[k] = v
	}

	files, release, err := redirect.Apply(node)
	if err != nil {
		fmt.Fprintf(streams.Stderr, "subshell: %v\n", err)
		return types.ClampErrno(1)
	}
	defer release()
	if files.Stdin != nil {
		streams.Stdin = files.Stdin
	}
	if files.Stdout != nil {
		streams.Stdout = files.Stdout
	}
	if files.Stderr != nil {
		streams.Stderr = files.Stderr
	}

	return subshell.RunLocal(ctx, i.selfPath, *node.Left, env, cwd, dirStack, statusVar, subshell.Streams(streams))
}

func (i *Interpreter) runRemoteSubshell(ctx context.Context, node *types.Node, streams Streams) types.Status {
	sess, err := i.sessionFor(ctx, node.Host)
	if err != nil {
		fmt.Fprintf(streams.Stderr, "subshell: %s: %v\n", node.Host, err)
		return types.ClampErrno(1)
	}
	return subshell.RunRemote(ctx, sess, *node.Left, subshell.Streams(streams))
}

// toProcStreams adapts interp.Streams to procexec.Streams; both are
// structurally the same triple, kept as distinct types so each package
// depends only on the stdio shape it needs.
func toProcStreams(s Streams) procexec.Streams {
	return procexec.Streams{Stdin: s.Stdin, Stdout: s.Stdout, Stderr: s.Stderr}
}

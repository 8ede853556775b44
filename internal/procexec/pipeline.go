package procexec

import (
	"os"
	"os/exec"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/braedencu/ps4sh/core/types"
	"github.com/braedencu/ps4sh/internal/builtin"
	"github.com/braedencu/ps4sh/internal/dirstack"
)

// StageRunner starts a single pipeline stage and returns a handle to wait
// on, without blocking on the child's completion. Production code uses
// StartStage (backed by builtin.Dispatch / exec.Cmd); tests may substitute
// a fake.
type StageRunner func(node *types.Node, env map[string]string, stack *dirstack.Stack, streams Streams) (*startedStage, error)

// startedStage is either an already-complete built-in result or a running
// external command awaiting Wait.
type startedStage struct {
	cmd    *exec.Cmd
	status types.Status
}

func (s *startedStage) wait() types.Status {
	if s.cmd == nil {
		return s.status
	}
	return types.FromWaitError(s.cmd.Wait())
}

// Cmd returns the stage's running external command, or nil when the stage
// was a built-in that already ran to completion in-process. Callers that
// need to hand a background stage off to the reaper (C9) instead of
// waiting on it synchronously use this to get at the underlying pid.
func (s *startedStage) Cmd() *exec.Cmd { return s.cmd }

// StartStage runs the C2 built-in dispatcher first; on a miss it builds and
// starts an exec.Cmd (redirections + locals overlay via buildCmd) and
// returns immediately after Start, per SPEC_FULL.md §4.2/§4.3.
func StartStage(node *types.Node, env map[string]string, stack *dirstack.Stack, streams Streams) (*startedStage, error) {
	if res := builtin.Dispatch(envAdapter(env), stack, node.Argv, streams.Stdout, streams.Stderr); res.IsBuiltin() {
		return &startedStage{status: res.Status()}, nil
	}

	cmd, release, err := buildCmd(node, env, streams)
	if err != nil {
		reportStartFailure(node, streams.Stderr, err)
		return nil, err
	}
	defer release()

	if err := cmd.Start(); err != nil {
		reportStartFailure(node, streams.Stderr, err)
		return nil, err
	}
	return &startedStage{cmd: cmd}, nil
}

// RunPipeline executes a left-associative chain of Pipe nodes (SPEC_FULL.md
// §4.3, component C5): N-1 OS pipes wire N stages, started concurrently
// under an errgroup, with rightmost-stage status semantics (no pipefail).
// A stage that fails to start does not cancel the other stages; they see
// EOF or a closed pipe once its pipe ends are closed.
func RunPipeline(node *types.Node, env map[string]string, stack *dirstack.Stack, streams Streams, runStage StageRunner) types.Status {
	stages := flatten(node)
	n := len(stages)

	pipes := make([]*pipePair, n-1)
	for i := range pipes {
		r, w, err := os.Pipe()
		if err != nil {
			closePipes(pipes)
			return types.ClampErrno(1)
		}
		pipes[i] = &pipePair{r: r, w: w}
	}

	statuses := make([]types.Status, n)
	var g errgroup.Group

	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			s := streams
			if i > 0 {
				s.Stdin = pipes[i-1].r
			}
			if i < n-1 {
				s.Stdout = pipes[i].w
			}

			stage, err := runStage(stages[i], env, stack, s)

			// Close the parent's copies of the pipe ends this stage uses
			// (its stdin read end and stdout write end) the instant its own
			// child has started or failed to start — so EOF propagates
			// without waiting for every stage to exit, and no end is closed
			// before the stage that uses it has been started.
			if i > 0 {
				pipes[i-1].closeRead()
			}
			if i < n-1 {
				pipes[i].closeWrite()
			}

			if err != nil {
				statuses[i] = types.ClampErrno(1)
				return err
			}
			statuses[i] = stage.wait()
			return nil
		})
	}

	_ = g.Wait()

	return statuses[n-1]
}

// flatten turns a left-associative chain of Pipe nodes into an ordered
// slice of stages, per SPEC_FULL.md §4.3's "parsing is left-associative
// for pipes" note.
func flatten(node *types.Node) []*types.Node {
	var stages []*types.Node
	for node.Kind == types.Pipe {
		stages = append([]*types.Node{node.Right}, stages...)
		node = node.Left
	}
	stages = append([]*types.Node{node}, stages...)
	return stages
}

// pipePair is one os.Pipe between adjacent stages, with sync.Once-guarded
// closes so either unwind path (normal completion or early pipe-creation
// failure) can close it safely exactly once, per SPEC_FULL.md §4.3 step 3.
type pipePair struct {
	r, w      *os.File
	closeROnc sync.Once
	closeWOnc sync.Once
}

func (p *pipePair) closeRead()  { p.closeROnc.Do(func() { _ = p.r.Close() }) }
func (p *pipePair) closeWrite() { p.closeWOnc.Do(func() { _ = p.w.Close() }) }

func closePipes(pipes []*pipePair) {
	for _, p := range pipes {
		if p == nil {
			continue
		}
		p.closeRead()
		p.closeWrite()
	}
}

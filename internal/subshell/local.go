package subshell

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/braedencu/ps4sh/core/types"
	"github.com/braedencu/ps4sh/internal/trace"
)

// BootstrapFlag, when present as the re-exec'd binary's sole argument,
// tells cmd/ps4sh's main() to skip its normal CLI parsing and instead
// decode a subshell snapshot from SnapshotFD (SPEC_FULL.md §4.5.2).
const BootstrapFlag = "--ps4sh-subshell-bootstrap"

// SnapshotFD is the file descriptor the snapshot arrives on in the
// re-exec'd child. ExtraFiles[0] always lands at fd 3 in the child
// regardless of the parent's own descriptor table, per os/exec's
// contract.
const SnapshotFD = 3

// RunLocal realizes a local subshell (no Host) by re-exec'ing selfPath
// with the hidden bootstrap flag, handing it a CBOR-encoded snapshot of
// node, env, cwd, the directory stack, and the current status variable
// over an extra pipe fd. The re-exec'd process gets true OS-level
// isolation of cwd/env/fds for free — exactly the isolation guarantee
// SPEC_FULL.md §4.5 step 5 requires — without needing cgo or a raw
// fork().
func RunLocal(ctx context.Context, selfPath string, node types.Node, env map[string]string, cwd string, dirStack []string, statusVar types.Status, streams Streams) types.Status {
	snap := trace.Snapshot{
		Node:      node,
		Env:       env,
		Cwd:       cwd,
		DirStack:  dirStack,
		StatusVar: statusVar,
	}
	data, err := trace.EncodeSnapshot(snap)
	if err != nil {
		fmt.Fprintf(streams.Stderr, "subshell: %v\n", err)
		return types.ClampErrno(1)
	}

	r, w, err := os.Pipe()
	if err != nil {
		fmt.Fprintf(streams.Stderr, "subshell: %v\n", err)
		return types.ClampErrno(1)
	}

	cmd := exec.CommandContext(ctx, selfPath, BootstrapFlag)
	cmd.Dir = cwd
	cmd.Stdin = streams.Stdin
	cmd.Stdout = streams.Stdout
	cmd.Stderr = streams.Stderr
	cmd.ExtraFiles = []*os.File{r}

	if err := cmd.Start(); err != nil {
		_ = r.Close()
		_ = w.Close()
		fmt.Fprintf(streams.Stderr, "subshell: %v\n", err)
		return types.ClampErrno(1)
	}
	_ = r.Close() // the child has its own dup at fd 3

	go func() {
		_, _ = w.Write(data)
		_ = w.Close()
	}()

	return types.FromWaitError(cmd.Wait())
}

// Bootstrap decodes the snapshot handed to a re-exec'd subshell child on
// SnapshotFD. Called exactly once, at the very top of cmd/ps4sh's main(),
// before any normal CLI parsing, whenever os.Args[1] == BootstrapFlag.
func Bootstrap() (trace.Snapshot, error) {
	f := os.NewFile(uintptr(SnapshotFD), "ps4sh-subshell-snapshot")
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return trace.Snapshot{}, fmt.Errorf("subshell: read snapshot: %w", err)
	}
	return trace.DecodeSnapshot(data)
}

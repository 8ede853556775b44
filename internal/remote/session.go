// Package remote implements the session abstraction behind remote subshells
// (SPEC_FULL.md §4.5.1, domain-stack extension): a Subcmd node whose Host is
// non-empty is interpreted against an SSH session instead of forking a local
// child, so cd/pushd/popd inside it mutate only that session's notion of its
// remote working directory.
package remote

import (
	"context"
	"io"

	"github.com/braedencu/ps4sh/core/types"
)

// Session is an execution context a remote Subcmd node's tree runs
// against. SSHSession is the only realization: a local Subcmd (Host
// empty) never goes through this interface at all — interp.runLocalSubshell
// realizes it instead by re-exec'ing the current binary with a snapshot
// of env/cwd/dirstack (subshell.RunLocal), since that gives the child a
// real OS-level process boundary that an in-memory session type cannot.
type Session interface {
	// Run executes argv with the given I/O and environment overlay,
	// returning the command's exit status per §3.4.
	Run(ctx context.Context, argv []string, opts RunOpts) (Result, error)

	// Put writes data to path on the session's filesystem, for realizing
	// output redirections and here-documents remotely.
	Put(ctx context.Context, data []byte, path string) error

	// Get reads path from the session's filesystem, for realizing input
	// redirections remotely.
	Get(ctx context.Context, path string) ([]byte, error)

	// Chdir changes the session's working directory — for a remote
	// session this is purely session-local state, never the host
	// Interpreter's cwd.
	Chdir(ctx context.Context, dir string) error

	// Getwd returns the session's current working directory.
	Getwd(ctx context.Context) (string, error)

	// Close releases any resources the session holds (e.g. the
	// underlying SSH connection).
	Close() error
}

// RunOpts configures a single Run call.
type RunOpts struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	// Env overlays additional environment variables onto the session's
	// own (locals from a Simple node), without mutating the session.
	Env map[string]string
}

// Result is the outcome of a Run call.
type Result struct {
	Status types.Status
}

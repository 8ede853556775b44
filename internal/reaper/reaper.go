// Package reaper implements the zombie reaper (SPEC_FULL.md §4.9, component
// C9): non-blocking reclamation of completed background children, each
// reported with a "Completed: <pid> (<status>)" line on stderr.
package reaper

import (
	"fmt"
	"io"
	"os/exec"

	"github.com/braedencu/ps4sh/core/types"
)

// entry is a completed background child awaiting drain.
type entry struct {
	pid    int
	status types.Status
}

// Reaper tracks in-flight background children. Construct one with New: the
// zero value has no completion channel, so its Register goroutines block
// forever and Drain never reports anything. A Reaper must not be copied
// after first use.
type Reaper struct {
	done chan entry
}

// New returns a Reaper sized for up to capacity concurrently outstanding
// background children without a registering goroutine ever blocking on
// send (the channel is a buffer, not a bound on total children started
// over the Reaper's lifetime).
func New(capacity int) *Reaper {
	if capacity < 1 {
		capacity = 1
	}
	return &Reaper{done: make(chan entry, capacity)}
}

// Register starts a goroutine that waits on cmd and posts its outcome to
// the reaper's completion channel, per SPEC_FULL.md §4.9's "completion
// channel populated by the goroutine that calls Wait on it". Register
// returns immediately; it never blocks on cmd's completion.
func (r *Reaper) Register(cmd *exec.Cmd) {
	pid := cmd.Process.Pid
	go func() {
		err := cmd.Wait()
		r.done <- entry{pid: pid, status: types.FromWaitError(err)}
	}()
}

// Drain non-blockingly reclaims every background child that has completed
// since the last Drain, emitting "Completed: <pid> (<status>)\n" to stderr
// for each. Per SPEC_FULL.md §4.9, this must be called at the top of each
// top-level Interpret call and never during recursion.
func (r *Reaper) Drain(stderr io.Writer) {
	for {
		select {
		case e := <-r.done:
			fmt.Fprintf(stderr, "Completed: %d (%d)\n", e.pid, e.status)
		default:
			return
		}
	}
}

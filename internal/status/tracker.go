// Package status implements the last-exit-status tracker (SPEC_FULL.md
// §3.3, §4.8, component C8). The status is kept as an Interpreter-owned
// field rather than a literal "?" entry in the process environment (the
// design note in SPEC_FULL.md §9 accepts this as behaviorally
// indistinguishable) and is synthesized into "?" only in the environment
// snapshot handed to a freshly spawned child.
package status

import (
	"strconv"

	"github.com/braedencu/ps4sh/core/types"
)

// VarName is the conventional shell name for the last-status variable.
const VarName = "?"

// Tracker holds the last observed exit status.
type Tracker struct {
	last types.Status
}

// Set records s as the most recently observed status.
func (t *Tracker) Set(s types.Status) {
	t.last = s
}

// Get returns the most recently recorded status (0 before anything runs).
func (t *Tracker) Get() types.Status {
	return t.last
}

// Overlay returns a copy of env with "?" set to the tracker's current
// status in decimal form, for handing to a spawned child's environment.
func (t *Tracker) Overlay(env map[string]string) map[string]string {
	out := make(map[string]string, len(env)+1)
	for k, v := range env {
		out[k] = v
	}
	out[VarName] = strconv.Itoa(int(t.last))
	return out
}

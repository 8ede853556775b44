// Package dirstack implements the directory stack backing pushd/popd
// (SPEC_FULL.md §3.2, component C1). A Stack is a plain value owned by the
// Interpreter — never a package-level global — so tests stay hermetic and
// multiple interpreters can coexist in one process.
package dirstack

import "strings"

// Stack is an ordered, last-in-first-out sequence of absolute-path strings.
// The zero value is an empty stack ready to use.
type Stack struct {
	entries []string
}

// Push appends dir to the top of the stack.
func (s *Stack) Push(dir string) {
	s.entries = append(s.entries, dir)
}

// Pop removes and returns the top entry. ok is false if the stack was empty.
func (s *Stack) Pop() (dir string, ok bool) {
	if len(s.entries) == 0 {
		return "", false
	}
	top := len(s.entries) - 1
	dir = s.entries[top]
	s.entries = s.entries[:top]
	return dir, true
}

// Empty reports whether the stack has no entries.
func (s *Stack) Empty() bool {
	return len(s.entries) == 0
}

// Len returns the number of entries currently on the stack.
func (s *Stack) Len() int {
	return len(s.entries)
}

// Entries returns the stack contents top-to-bottom (most recently pushed
// first), as used when rendering the pushd/popd status line. The returned
// slice is a copy; mutating it does not affect the Stack.
func (s *Stack) Entries() []string {
	rev := make([]string, len(s.entries))
	for i := range s.entries {
		rev[i] = s.entries[len(s.entries)-1-i]
	}
	return rev
}

// Render joins the stack contents top-to-bottom with spaces, matching the
// pushd/popd stdout line format from SPEC_FULL.md §4.7. An empty stack
// renders as the empty string.
func (s *Stack) Render() string {
	return strings.Join(s.Entries(), " ")
}

// Snapshot returns a defensive copy of the raw bottom-to-top entries, for
// subshell isolation snapshots (SPEC_FULL.md §4.5).
func (s *Stack) Snapshot() []string {
	out := make([]string, len(s.entries))
	copy(out, s.entries)
	return out
}

// FromSnapshot rebuilds a Stack from a bottom-to-top entry slice, as
// produced by Snapshot.
func FromSnapshot(entries []string) Stack {
	out := Stack{entries: make([]string, len(entries))}
	copy(out.entries, entries)
	return out
}

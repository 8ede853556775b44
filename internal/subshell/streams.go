// Package subshell implements the subshell executor (SPEC_FULL.md §4.5,
// component C7): local subshells via re-exec of the current binary with a
// CBOR-encoded snapshot (§4.5.2), and remote subshells via an SSH session
// (§4.5.1, domain-stack extension).
package subshell

import "io"

// Streams are the stdio handles a subshell's process (local re-exec child
// or remote command) inherits.
type Streams struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Package trace implements binary (de)serialization for the two CBOR uses
// named in SPEC_FULL.md's DOMAIN STACK table: the re-exec subshell
// snapshot of §4.5.2, and the optional execution-trace/telemetry export of
// §6 "No persisted state... writes only when explicitly requested".
package trace

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/braedencu/ps4sh/core/types"
)

// Snapshot is everything a re-exec'd subshell child needs to reconstruct
// its starting state, per SPEC_FULL.md §4.5.2: the sub-tree to interpret,
// the subshell's copy of the environment (already overlaid with its
// locals), its working directory, and its directory stack.
type Snapshot struct {
	Node      types.Node
	Env       map[string]string
	Cwd       string
	DirStack  []string
	StatusVar types.Status
}

// EncodeSnapshot serializes s for transport over the hidden extra pipe fd
// the parent passes to the re-exec'd child (ExtraFiles).
func EncodeSnapshot(s Snapshot) ([]byte, error) {
	data, err := cbor.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("trace: encode subshell snapshot: %w", err)
	}
	return data, nil
}

// DecodeSnapshot is the child-side counterpart of EncodeSnapshot, invoked
// by the hidden bootstrap path in cmd/ps4sh's main().
func DecodeSnapshot(data []byte) (Snapshot, error) {
	var s Snapshot
	if err := cbor.Unmarshal(data, &s); err != nil {
		return Snapshot{}, fmt.Errorf("trace: decode subshell snapshot: %w", err)
	}
	return s, nil
}

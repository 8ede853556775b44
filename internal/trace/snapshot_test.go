package trace

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/braedencu/ps4sh/core/types"
)

func TestSnapshotRoundTrip(t *testing.T) {
	s := Snapshot{
		Node:      types.Node{Kind: types.Simple, Argv: []string{"echo", "hi"}},
		Env:       map[string]string{"PATH": "/bin"},
		Cwd:       "/home/u",
		DirStack:  []string{"/tmp", "/home/u"},
		StatusVar: 0,
	}

	data, err := EncodeSnapshot(s)
	require.NoError(t, err)

	got, err := DecodeSnapshot(data)
	require.NoError(t, err)
	if diff := cmp.Diff(s, got); diff != "" {
		t.Errorf("snapshot round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeSnapshotRejectsGarbage(t *testing.T) {
	_, err := DecodeSnapshot([]byte{0xff, 0xfe, 0xfd})
	assert.Error(t, err)
}

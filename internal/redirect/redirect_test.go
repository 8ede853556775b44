package redirect

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/braedencu/ps4sh/core/types"
)

func TestApplyNoRedirections(t *testing.T) {
	n := &types.Node{Kind: types.Simple, Argv: []string{"true"}}
	files, release, err := Apply(n)
	require.NoError(t, err)
	defer release()

	assert.Nil(t, files.Stdin)
	assert.Nil(t, files.Stdout)
	assert.Nil(t, files.Stderr)
}

func TestApplyRedirOutTruncates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")
	require.NoError(t, os.WriteFile(path, []byte("stale"), 0o644))

	n := &types.Node{Kind: types.Simple, Argv: []string{"x"}, ToType: types.RedOut, ToFile: path}
	files, release, err := Apply(n)
	require.NoError(t, err)
	require.NotNil(t, files.Stdout)

	_, _ = files.Stdout.WriteString("fresh")
	release()

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "fresh", string(got))
}

func TestApplyRedirOutAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")
	require.NoError(t, os.WriteFile(path, []byte("a"), 0o644))

	n := &types.Node{Kind: types.Simple, Argv: []string{"x"}, ToType: types.RedOutApp, ToFile: path}
	files, release, err := Apply(n)
	require.NoError(t, err)

	_, _ = files.Stdout.WriteString("b")
	release()

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "ab", string(got))
}

func TestApplyRedirOutErrSharesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "both.txt")
	n := &types.Node{Kind: types.Simple, Argv: []string{"x"}, ToType: types.RedOutErr, ToFile: path}
	files, release, err := Apply(n)
	require.NoError(t, err)
	defer release()

	assert.Same(t, files.Stdout, files.Stderr)
}

func TestApplyRedirInReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	n := &types.Node{Kind: types.Simple, Argv: []string{"x"}, FromType: types.RedIn, FromFile: path}
	files, release, err := Apply(n)
	require.NoError(t, err)
	defer release()

	got, err := io.ReadAll(files.Stdin)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))
}

func TestApplyRedirInMissingFileErrors(t *testing.T) {
	n := &types.Node{Kind: types.Simple, Argv: []string{"x"}, FromType: types.RedIn, FromFile: "/no/such/file"}
	_, _, err := Apply(n)
	assert.Error(t, err)
}

func TestHereDocSmallBodyViaPipe(t *testing.T) {
	body := "small body\n"
	n := &types.Node{Kind: types.Simple, Argv: []string{"x"}, FromType: types.RedInHere, FromFile: body}
	files, release, err := Apply(n)
	require.NoError(t, err)
	defer release()

	got, err := io.ReadAll(files.Stdin)
	require.NoError(t, err)
	assert.Equal(t, body, string(got))
}

func TestHereDocLargeBodyViaTempFile(t *testing.T) {
	body := strings.Repeat("x", herePipeThreshold+1)
	n := &types.Node{Kind: types.Simple, Argv: []string{"x"}, FromType: types.RedInHere, FromFile: body}
	files, release, err := Apply(n)
	require.NoError(t, err)
	defer release()

	got, err := io.ReadAll(files.Stdin)
	require.NoError(t, err)
	assert.Equal(t, body, string(got))
}

func TestApplyErrorsOnSecondStageFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	n := &types.Node{
		Kind: types.Simple, Argv: []string{"x"},
		FromType: types.RedIn, FromFile: path,
		ToType: types.RedOut, ToFile: "/no/such/dir/out.txt",
	}
	_, _, err := Apply(n)
	assert.Error(t, err)
}

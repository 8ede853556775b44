// Package redirect implements the redirection applier (SPEC_FULL.md §4.6,
// component C3). It turns a Node's From/To fields into concrete *os.File
// values suitable for assignment to an exec.Cmd's Stdin/Stdout/Stderr —
// the Go equivalent of the distilled spec's post-fork dup2 sequence.
package redirect

import (
	"fmt"
	"io"
	"os"

	"github.com/braedencu/ps4sh/core/types"
)

// herePipeThreshold is the body size below which a here-document may be
// spooled through an os.Pipe instead of a temp file, per SPEC_FULL.md §4.6.
// Chosen comfortably under the typical OS pipe buffer capacity (64KiB on
// Linux) so the synchronous fill-then-close below never blocks.
const herePipeThreshold = 32 * 1024

// Files holds the descriptors to assign to a child's Stdin/Stdout/Stderr.
// A nil field means "inherit the Interpreter's own stream" (os/exec leaves
// the corresponding Cmd field unset).
type Files struct {
	Stdin  *os.File
	Stdout *os.File
	Stderr *os.File
}

// Release wraps every release call from a scoped-acquisition point so any
// early return closes everything acquired so far (SPEC_FULL.md §5
// "Descriptor hygiene").
type Release func()

// Apply opens the files named by node's redirections and returns them for
// assignment to an exec.Cmd, plus a Release to close the Interpreter's own
// copies after the child has the descriptors it needs (os/exec dup()s them
// into the child at Start time, so the parent's copies are safe to close
// once Start returns). Order is input then output, per SPEC_FULL.md §4.6.
func Apply(node *types.Node) (Files, Release, error) {
	var opened []*os.File
	release := func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}

	var files Files

	switch node.FromType {
	case types.NoFrom:
		// inherit
	case types.RedIn:
		f, err := os.Open(node.FromFile)
		if err != nil {
			release()
			return Files{}, nil, fmt.Errorf("redirect: open %s for input: %w", node.FromFile, err)
		}
		opened = append(opened, f)
		files.Stdin = f
	case types.RedInHere:
		f, err := hereDocFile(node.FromFile)
		if err != nil {
			release()
			return Files{}, nil, fmt.Errorf("redirect: spool here-document: %w", err)
		}
		opened = append(opened, f)
		files.Stdin = f
	}

	switch node.ToType {
	case types.NoTo:
		// inherit
	case types.RedOut:
		f, err := os.OpenFile(node.ToFile, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o666)
		if err != nil {
			release()
			return Files{}, nil, fmt.Errorf("redirect: open %s for output: %w", node.ToFile, err)
		}
		opened = append(opened, f)
		files.Stdout = f
	case types.RedOutApp:
		f, err := os.OpenFile(node.ToFile, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o666)
		if err != nil {
			release()
			return Files{}, nil, fmt.Errorf("redirect: open %s for append: %w", node.ToFile, err)
		}
		opened = append(opened, f)
		files.Stdout = f
	case types.RedOutErr:
		f, err := os.OpenFile(node.ToFile, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o666)
		if err != nil {
			release()
			return Files{}, nil, fmt.Errorf("redirect: open %s for output: %w", node.ToFile, err)
		}
		opened = append(opened, f)
		files.Stdout = f
		files.Stderr = f
	}

	return files, release, nil
}

// hereDocFile realizes a here-document body as a readable *os.File, per the
// pipe-vs-temp-file rule in SPEC_FULL.md §4.6.
func hereDocFile(body string) (*os.File, error) {
	if len(body) <= herePipeThreshold {
		return hereDocViaPipe(body)
	}
	return hereDocViaTempFile(body)
}

// hereDocViaPipe fills an os.Pipe's write end synchronously before the
// child ever sees the read end, then closes the write end so the child
// observes EOF after the body. Safe only because body is known to fit
// within the pipe buffer (herePipeThreshold), so the Write below cannot
// block.
func hereDocViaPipe(body string) (*os.File, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, err
	}
	if _, err := io.WriteString(w, body); err != nil {
		_ = r.Close()
		_ = w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		_ = r.Close()
		return nil, err
	}
	return r, nil
}

// hereDocViaTempFile spools body into a temp file, then unlinks it
// immediately — the open file descriptor keeps the data alive for the
// child even though no path remains on disk, per SPEC_FULL.md §4.6/§6.
func hereDocViaTempFile(body string) (*os.File, error) {
	f, err := os.CreateTemp("", "ps4sh-heredoc-*")
	if err != nil {
		return nil, err
	}
	name := f.Name()
	defer os.Remove(name)

	if _, err := io.WriteString(f, body); err != nil {
		_ = f.Close()
		return nil, err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		_ = f.Close()
		return nil, err
	}
	return f, nil
}

// Package builtin implements the built-in dispatcher (SPEC_FULL.md §4.7,
// component C2): cd, pushd, and popd, each executed in the Interpreter's own
// process so their side effects (cwd, directory stack) are visible to it.
package builtin

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"syscall"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/braedencu/ps4sh/core/types"
	"github.com/braedencu/ps4sh/internal/dirstack"
)

// Names lists every recognized built-in, used both for dispatch and for
// Suggest's fuzzy "did you mean" matching.
var Names = []string{"cd", "pushd", "popd"}

// Result is the three-valued outcome of a dispatch attempt, replacing the
// distilled spec's overloaded sentinel integer with a type-safe tagged
// value (SPEC_FULL.md §9).
type Result struct {
	handled bool
	status  types.Status
}

// NotBuiltin is the sentinel result meaning argv[0] is not a recognized
// built-in; the caller should fall through to exec.
var NotBuiltin = Result{handled: false}

// Handled wraps a built-in's own exit status.
func Handled(s types.Status) Result {
	return Result{handled: true, status: s}
}

// IsBuiltin reports whether Dispatch actually ran a built-in.
func (r Result) IsBuiltin() bool { return r.handled }

// Status returns the built-in's exit status. Only meaningful when
// IsBuiltin() is true.
func (r Result) Status() types.Status { return r.status }

// Env is the minimal environment surface a built-in needs: reading HOME.
// The Interpreter supplies a view over its own environment snapshot; cwd
// changes go straight to the process via os.Chdir.
type Env interface {
	Getenv(name string) string
}

// Dispatch recognizes argv[0] as cd/pushd/popd and executes it in-process
// against cwd and stack, writing status lines to stdout and diagnostics to
// stderr per SPEC_FULL.md §4.7. It returns NotBuiltin when argv[0] is not
// one of Names.
func Dispatch(env Env, stack *dirstack.Stack, argv []string, stdout, stderr io.Writer) Result {
	if len(argv) == 0 {
		return NotBuiltin
	}
	switch argv[0] {
	case "cd":
		return dispatchCd(env, argv, stderr)
	case "pushd":
		return dispatchPushd(stack, argv, stdout, stderr)
	case "popd":
		return dispatchPopd(stack, stdout, stderr)
	default:
		return NotBuiltin
	}
}

func dispatchCd(env Env, argv []string, stderr io.Writer) Result {
	var target string
	switch len(argv) {
	case 1:
		target = env.Getenv("HOME")
		if target == "" {
			fmt.Fprintln(stderr, "cd: HOME not set")
			return Handled(1)
		}
	case 2:
		target = argv[1]
	default:
		fmt.Fprintln(stderr, "cd: too many arguments")
		return Handled(1)
	}

	if err := os.Chdir(target); err != nil {
		fmt.Fprintf(stderr, "cd: %s: %v\n", target, err)
		return Handled(types.ClampErrno(errnoOf(err)))
	}
	return Handled(0)
}

func dispatchPushd(stack *dirstack.Stack, argv []string, stdout, stderr io.Writer) Result {
	if len(argv) != 2 {
		fmt.Fprintln(stderr, "pushd: exactly one argument required")
		return Handled(1)
	}
	dir := argv[1]

	prev, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(stderr, "pushd: %v\n", err)
		return Handled(types.ClampErrno(errnoOf(err)))
	}

	if err := os.Chdir(dir); err != nil {
		fmt.Fprintf(stderr, "pushd: %s: %v\n", dir, err)
		return Handled(types.ClampErrno(errnoOf(err)))
	}

	stack.Push(prev)
	printDirLine(stdout, stack)
	return Handled(0)
}

func dispatchPopd(stack *dirstack.Stack, stdout, stderr io.Writer) Result {
	if stack.Empty() {
		fmt.Fprintln(stderr, "popd: directory stack empty")
		return Handled(1)
	}

	dir, _ := stack.Pop()
	if err := os.Chdir(dir); err != nil {
		fmt.Fprintf(stderr, "popd: %s: %v\n", dir, err)
		return Handled(types.ClampErrno(errnoOf(err)))
	}

	printDirLine(stdout, stack)
	return Handled(0)
}

// printDirLine prints the new cwd followed by the remaining stack entries,
// space-separated, per SPEC_FULL.md §4.7.
func printDirLine(stdout io.Writer, stack *dirstack.Stack) {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "?"
	}
	if rest := stack.Render(); rest != "" {
		fmt.Fprintf(stdout, "%s %s\n", cwd, rest)
	} else {
		fmt.Fprintf(stdout, "%s\n", cwd)
	}
}

// Suggest returns the closest built-in name to an unrecognized command, for
// the "did you mean" diagnostic in SPEC_FULL.md §4.7/E8. ok is false when
// name is not close enough to any built-in to be worth suggesting.
func Suggest(name string) (suggestion string, ok bool) {
	ranks := fuzzy.RankFindNormalizedFold(name, Names)
	if len(ranks) == 0 {
		return "", false
	}
	sort.Sort(ranks)
	best := ranks[0]
	// Only suggest when the typo is small relative to the candidate's
	// length, so wildly unrelated commands ("npm", "docker") never trigger
	// a nonsensical suggestion like "cd".
	if best.Distance > (len(best.Target)+1)/2 {
		return "", false
	}
	return best.Target, true
}

// errnoOf extracts the underlying errno from a wrapped os/syscall error,
// falling back to 1 (a generic usage-error status) when none is found.
func errnoOf(err error) int {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return int(errno)
	}
	return 1
}

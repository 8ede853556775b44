// Command ps4sh is the minimal entry point named in SPEC_FULL.md §1's
// "Out of scope (external collaborators)" note: it reads an
// already-parsed command tree (as JSON, YAML, or CBOR) and runs it
// through the engine, so the engine is independently runnable and
// testable end-to-end without an interactive line editor.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/braedencu/ps4sh/core/types"
	"github.com/braedencu/ps4sh/internal/docschema"
	"github.com/braedencu/ps4sh/internal/subshell"
	"github.com/braedencu/ps4sh/internal/trace"
	"github.com/braedencu/ps4sh/interp"
)

var (
	debugFlag     bool
	telemetryFlag bool
	formatFlag    string
	traceOutFlag  string
)

func main() {
	// The hidden bootstrap path for a re-exec'd local subshell child
	// (§4.5.2) bypasses normal CLI parsing entirely: os.Args[1] is the
	// sentinel subshell.BootstrapFlag, never a document path.
	if len(os.Args) > 1 && os.Args[1] == subshell.BootstrapFlag {
		os.Exit(runBootstrap())
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "ps4sh <document>",
	Short: "Run a parsed command tree document",
	Long: `ps4sh reads a command-tree document (JSON, YAML, or CBOR, validated
against the engine's Node schema) and interprets it, so the execution
engine is runnable and testable independently of an interactive shell
front-end.`,
	Args: cobra.ExactArgs(1),
	RunE: runDocument,
}

func init() {
	rootCmd.Flags().BoolVar(&debugFlag, "debug", false, "emit per-node debug trace events to stderr")
	rootCmd.Flags().BoolVar(&telemetryFlag, "telemetry", false, "collect per-node timing telemetry")
	rootCmd.Flags().StringVar(&formatFlag, "format", "auto", "document format: json, yaml, cbor, or auto (infer from extension)")
	rootCmd.Flags().StringVar(&traceOutFlag, "trace-output", "", "write the CBOR-encoded execution trace/telemetry result to this path")
}

// runBootstrap decodes the snapshot handed to a re-exec'd subshell child
// and interprets it, returning the process exit status.
func runBootstrap() int {
	snap, err := subshell.Bootstrap()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ps4sh: %v\n", err)
		return 1
	}

	self, err := os.Executable()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ps4sh: %v\n", err)
		return 1
	}

	i := interp.New(snap.Env, self)
	defer i.Close()
	i.RestoreDirStack(snap.DirStack)
	i.RestoreStatus(snap.StatusVar)

	return i.Interpret(context.Background(), snap.Node, interp.Streams{
		Stdin: os.Stdin, Stdout: os.Stdout, Stderr: os.Stderr,
	})
}

func runDocument(cmd *cobra.Command, args []string) error {
	logger := zap.NewNop()
	if debugFlag {
		l, err := zap.NewDevelopment()
		if err != nil {
			return fmt.Errorf("ps4sh: build logger: %w", err)
		}
		logger = l
		defer func() { _ = logger.Sync() }()
	}

	validator := docschema.New(docschema.DefaultConfig())
	node, err := loadDocument(args[0], documentFormat(formatFlag), validator)
	if err != nil {
		return err
	}

	self, err := os.Executable()
	if err != nil {
		return fmt.Errorf("ps4sh: %w", err)
	}

	i := interp.New(osEnvMap(), self)
	defer i.Close()

	debugLevel := trace.DebugOff
	if debugFlag {
		debugLevel = trace.DebugNodes
	}
	telemetryLevel := trace.TelemetryOff
	if telemetryFlag {
		telemetryLevel = trace.TelemetryTiming
	}
	recorder := trace.NewRecorder(debugLevel, telemetryLevel, logger)
	i.SetRecorder(recorder)

	start := time.Now()
	status := i.Interpret(context.Background(), *node, interp.Streams{
		Stdin: os.Stdin, Stdout: os.Stdout, Stderr: os.Stderr,
	})

	if traceOutFlag != "" {
		result := recorder.Result(types.Status(status), time.Since(start))
		data, err := trace.EncodeExecutionResult(result)
		if err != nil {
			return fmt.Errorf("ps4sh: %w", err)
		}
		if err := os.WriteFile(traceOutFlag, data, 0o644); err != nil {
			return fmt.Errorf("ps4sh: write trace output: %w", err)
		}
	}

	os.Exit(status)
	return nil
}

// osEnvMap snapshots the process environment into the map[string]string
// shape the Interpreter's own environment snapshot uses.
func osEnvMap() map[string]string {
	env := os.Environ()
	out := make(map[string]string, len(env))
	for _, kv := range env {
		if idx := strings.IndexByte(kv, '='); idx > 0 {
			out[kv[:idx]] = kv[idx+1:]
		}
	}
	return out
}

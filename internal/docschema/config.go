// Package docschema validates an incoming serialized command-tree document
// (the external parser's JSON/YAML output, per SPEC_FULL.md §6) against a
// JSON Schema describing the Node contract of §3, before the engine ever
// decodes it into core/types.Node values — the one place this repository
// validates untrusted input.
package docschema

// Config controls validation security and behavior, grounded on the
// teacher's core/types.ValidationConfig.
type Config struct {
	// MaxDocumentSize bounds the raw document size in bytes, rejecting
	// oversized input before it is even parsed as JSON.
	MaxDocumentSize int
	// MaxDepth bounds the tree's Left/Right nesting depth, guarding
	// against stack-exhausting adversarial input.
	MaxDepth int
	// AllowRemoteRef controls whether the schema compiler may resolve
	// $ref URLs outside the embedded schema itself. This engine embeds
	// a single fixed schema with no external refs, so the secure
	// default is false.
	AllowRemoteRef bool
}

// DefaultConfig returns secure defaults: a 1MiB document ceiling, a
// nesting depth of 256 (generous for any hand-typed or generated tree
// document, but bounded), and no remote $ref resolution.
func DefaultConfig() Config {
	return Config{
		MaxDocumentSize: 1024 * 1024,
		MaxDepth:        256,
		AllowRemoteRef:  false,
	}
}

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"gopkg.in/yaml.v3"

	"github.com/braedencu/ps4sh/core/types"
	"github.com/braedencu/ps4sh/internal/docschema"
)

// wireNode is the external, string-tagged wire shape of core/types.Node
// (SPEC_FULL.md §3.1): the parser this repository consumes emits Kind,
// FromType, and ToType as readable names, not the small integers
// core/types.Node uses internally, so decoding goes through this type and
// toNode converts it.
type wireNode struct {
	Kind     string            `json:"kind" yaml:"kind" cbor:"kind"`
	Argv     []string          `json:"argv,omitempty" yaml:"argv,omitempty" cbor:"argv,omitempty"`
	Locals   map[string]string `json:"locals,omitempty" yaml:"locals,omitempty" cbor:"locals,omitempty"`
	FromType string            `json:"fromType,omitempty" yaml:"fromType,omitempty" cbor:"fromType,omitempty"`
	FromFile string            `json:"fromFile,omitempty" yaml:"fromFile,omitempty" cbor:"fromFile,omitempty"`
	ToType   string            `json:"toType,omitempty" yaml:"toType,omitempty" cbor:"toType,omitempty"`
	ToFile   string            `json:"toFile,omitempty" yaml:"toFile,omitempty" cbor:"toFile,omitempty"`
	Host     string            `json:"host,omitempty" yaml:"host,omitempty" cbor:"host,omitempty"`
	Left     *wireNode         `json:"left,omitempty" yaml:"left,omitempty" cbor:"left,omitempty"`
	Right    *wireNode         `json:"right,omitempty" yaml:"right,omitempty" cbor:"right,omitempty"`
}

var kindNames = map[string]types.Kind{
	"Simple": types.Simple, "Pipe": types.Pipe, "SepAnd": types.SepAnd,
	"SepOr": types.SepOr, "SepEnd": types.SepEnd, "SepBg": types.SepBg,
	"Subcmd": types.Subcmd,
}

var fromTypeNames = map[string]types.FromType{
	"": types.NoFrom, "NoFrom": types.NoFrom, "RedIn": types.RedIn, "RedInHere": types.RedInHere,
}

var toTypeNames = map[string]types.ToType{
	"": types.NoTo, "NoTo": types.NoTo, "RedOut": types.RedOut,
	"RedOutApp": types.RedOutApp, "RedOutErr": types.RedOutErr,
}

// toNode converts a decoded wireNode into the types.Node the engine
// consumes, rejecting any Kind/FromType/ToType name the schema itself
// did not already constrain (defense in depth: a caller might construct
// a wireNode without going through docschema validation first).
func (w *wireNode) toNode() (*types.Node, error) {
	if w == nil {
		return nil, nil
	}
	kind, ok := kindNames[w.Kind]
	if !ok {
		return nil, fmt.Errorf("document: unknown node kind %q", w.Kind)
	}
	from, ok := fromTypeNames[w.FromType]
	if !ok {
		return nil, fmt.Errorf("document: unknown fromType %q", w.FromType)
	}
	to, ok := toTypeNames[w.ToType]
	if !ok {
		return nil, fmt.Errorf("document: unknown toType %q", w.ToType)
	}

	left, err := w.Left.toNode()
	if err != nil {
		return nil, err
	}
	right, err := w.Right.toNode()
	if err != nil {
		return nil, err
	}

	node := &types.Node{
		Kind:     kind,
		Argv:     w.Argv,
		Locals:   w.Locals,
		FromType: from,
		FromFile: w.FromFile,
		ToType:   to,
		ToFile:   w.ToFile,
		Host:     w.Host,
		Left:     left,
		Right:    right,
	}
	if err := node.Validate(); err != nil {
		return nil, fmt.Errorf("document: %w", err)
	}
	return node, nil
}

// documentFormat identifies how to decode a tree document, selected by
// the --format flag or inferred from the file extension.
type documentFormat string

const (
	formatJSON documentFormat = "json"
	formatYAML documentFormat = "yaml"
	formatCBOR documentFormat = "cbor"
)

// inferFormat guesses a format from path's extension when --format is
// left at its default "auto".
func inferFormat(path string) documentFormat {
	switch {
	case strings.HasSuffix(path, ".yaml"), strings.HasSuffix(path, ".yml"):
		return formatYAML
	case strings.HasSuffix(path, ".cbor"):
		return formatCBOR
	default:
		return formatJSON
	}
}

// loadDocument reads path, validates it against the Node schema (C3's
// sibling concern: this is the one place the engine validates untrusted
// input, per the DOMAIN STACK table), and decodes it into a types.Node
// ready for Interpret.
func loadDocument(path string, format documentFormat, validator *docschema.Validator) (*types.Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("document: read %s: %w", path, err)
	}
	if format == "" || format == "auto" {
		format = inferFormat(path)
	}

	var wire wireNode
	switch format {
	case formatJSON:
		if err := validator.Validate(data); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, &wire); err != nil {
			return nil, fmt.Errorf("document: invalid JSON: %w", err)
		}
	case formatYAML:
		var generic any
		if err := yaml.Unmarshal(data, &generic); err != nil {
			return nil, fmt.Errorf("document: invalid YAML: %w", err)
		}
		if err := validator.ValidateValue(jsonSafe(generic)); err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, &wire); err != nil {
			return nil, fmt.Errorf("document: invalid YAML: %w", err)
		}
	case formatCBOR:
		var generic any
		if err := cbor.Unmarshal(data, &generic); err != nil {
			return nil, fmt.Errorf("document: invalid CBOR: %w", err)
		}
		if err := validator.ValidateValue(jsonSafe(generic)); err != nil {
			return nil, err
		}
		if err := cbor.Unmarshal(data, &wire); err != nil {
			return nil, fmt.Errorf("document: invalid CBOR: %w", err)
		}
	default:
		return nil, fmt.Errorf("document: unknown format %q", format)
	}

	return wire.toNode()
}

// jsonSafe recursively converts the map[any]any/[]any shapes that YAML
// and CBOR decoders produce into the map[string]any/[]any shapes the
// jsonschema validator (and encoding/json) expect, since neither source
// format guarantees string-keyed maps the way JSON does.
func jsonSafe(v any) any {
	switch val := v.(type) {
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, vv := range val {
			out[fmt.Sprint(k)] = jsonSafe(vv)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, vv := range val {
			out[k] = jsonSafe(vv)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, vv := range val {
			out[i] = jsonSafe(vv)
		}
		return out
	default:
		return val
	}
}

package docschema

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Validator checks an incoming tree document against the embedded Node
// schema, grounded on the teacher's core/types.Validator: schema
// compilation is security-controlled the same way (a locked-down
// LoadURL blocking remote/unapproved schemes) and cached since the
// schema never changes across calls within a process.
type Validator struct {
	config Config

	once    sync.Once
	schema  *jsonschema.Schema
	initErr error
}

// New returns a Validator using cfg. A zero Config is invalid; callers
// should start from DefaultConfig().
func New(cfg Config) *Validator {
	return &Validator{config: cfg}
}

// Validate checks that data (a JSON-encoded tree document) conforms to
// the Node schema, enforcing MaxDocumentSize before even attempting to
// parse it.
func (v *Validator) Validate(data []byte) error {
	if v.config.MaxDocumentSize > 0 && len(data) > v.config.MaxDocumentSize {
		return fmt.Errorf("docschema: document too large: %d bytes (max %d)", len(data), v.config.MaxDocumentSize)
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("docschema: invalid JSON: %w", err)
	}
	return v.ValidateValue(doc)
}

// ValidateValue checks an already-decoded document (e.g. from YAML or
// CBOR, both of which decode to the same generic map/slice/scalar shape
// JSON does) against the Node schema, without a JSON round-trip. Callers
// decoding a non-JSON wire format should still size-check the raw bytes
// themselves before decoding, since MaxDocumentSize cannot be enforced
// here.
func (v *Validator) ValidateValue(doc any) error {
	schema, err := v.compiled()
	if err != nil {
		return fmt.Errorf("docschema: schema compilation failed: %w", err)
	}

	if depth := maxDepth(doc, 0); v.config.MaxDepth > 0 && depth > v.config.MaxDepth {
		return fmt.Errorf("docschema: document nesting depth %d exceeds max %d", depth, v.config.MaxDepth)
	}

	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("docschema: %w", err)
	}
	return nil
}

// compiled lazily compiles and caches the embedded Node schema.
func (v *Validator) compiled() (*jsonschema.Schema, error) {
	v.once.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		compiler.LoadURL = v.secureLoader()

		if err := compiler.AddResource("schema://ps4sh-node.json", strings.NewReader(nodeSchemaJSON)); err != nil {
			v.initErr = err
			return
		}
		schema, err := compiler.Compile("schema://ps4sh-node.json")
		if err != nil {
			v.initErr = err
			return
		}
		v.schema = schema
	})
	return v.schema, v.initErr
}

// secureLoader blocks every $ref resolution outside the single embedded
// schema resource, since this engine never needs remote or filesystem
// schema fragments.
func (v *Validator) secureLoader() func(string) (io.ReadCloser, error) {
	return func(url string) (io.ReadCloser, error) {
		if !v.config.AllowRemoteRef {
			return nil, fmt.Errorf("docschema: external $ref not allowed: %s", url)
		}
		return jsonschema.LoadURL(url)
	}
}

// maxDepth walks a decoded JSON document's Left/Right nesting to bound
// recursion depth before validation, guarding against a pathologically
// deep tree exhausting the validator's own recursion.
func maxDepth(v any, depth int) int {
	obj, ok := v.(map[string]any)
	if !ok {
		return depth
	}
	max := depth
	for _, key := range []string{"left", "right"} {
		if child, ok := obj[key]; ok {
			if d := maxDepth(child, depth+1); d > max {
				max = d
			}
		}
	}
	return max
}

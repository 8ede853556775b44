package docschema

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateAcceptsSimpleNode(t *testing.T) {
	v := New(DefaultConfig())
	doc := `{"kind": "Simple", "argv": ["echo", "hi"]}`
	assert.NoError(t, v.Validate([]byte(doc)))
}

func TestValidateAcceptsNestedPipe(t *testing.T) {
	v := New(DefaultConfig())
	doc := `{
		"kind": "Pipe",
		"left": {"kind": "Simple", "argv": ["cat", "f"]},
		"right": {"kind": "Simple", "argv": ["wc", "-l"]}
	}`
	assert.NoError(t, v.Validate([]byte(doc)))
}

func TestValidateValueAcceptsDecodedMap(t *testing.T) {
	v := New(DefaultConfig())
	doc := map[string]any{
		"kind": "Simple",
		"argv": []any{"echo", "hi"},
	}
	assert.NoError(t, v.ValidateValue(doc))
}

func TestValidateValueRejectsUnknownKind(t *testing.T) {
	v := New(DefaultConfig())
	assert.Error(t, v.ValidateValue(map[string]any{"kind": "Bogus"}))
}

func TestValidateRejectsUnknownKind(t *testing.T) {
	v := New(DefaultConfig())
	doc := `{"kind": "Bogus"}`
	assert.Error(t, v.Validate([]byte(doc)))
}

func TestValidateRejectsMissingKind(t *testing.T) {
	v := New(DefaultConfig())
	doc := `{"argv": ["echo"]}`
	assert.Error(t, v.Validate([]byte(doc)))
}

func TestValidateRejectsUnknownField(t *testing.T) {
	v := New(DefaultConfig())
	doc := `{"kind": "Simple", "argv": ["echo"], "bogusField": 1}`
	assert.Error(t, v.Validate([]byte(doc)))
}

func TestValidateRejectsOversizedDocument(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxDocumentSize = 10
	v := New(cfg)
	assert.Error(t, v.Validate([]byte(`{"kind": "Simple"}`)))
}

func TestValidateRejectsExcessiveDepth(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxDepth = 2
	v := New(cfg)

	doc := `{"kind":"SepEnd","left":{"kind":"SepEnd","left":{"kind":"SepEnd","left":{"kind":"Simple","argv":["x"]}}}}`
	err := v.Validate([]byte(doc))
	assert.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "depth"))
}

func TestValidateRejectsInvalidJSON(t *testing.T) {
	v := New(DefaultConfig())
	assert.Error(t, v.Validate([]byte("not json")))
}

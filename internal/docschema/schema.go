package docschema

// nodeSchemaJSON describes the wire shape of core/types.Node (SPEC_FULL.md
// §3.1), recursive via Left/Right, for JSON- or YAML-decoded tree
// documents arriving from the external parser.
const nodeSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$id": "schema://ps4sh-node.json",
  "type": "object",
  "required": ["kind"],
  "properties": {
    "kind": {
      "type": "string",
      "enum": ["Simple", "Pipe", "SepAnd", "SepOr", "SepEnd", "SepBg", "Subcmd"]
    },
    "argv": {
      "type": "array",
      "items": { "type": "string" }
    },
    "locals": {
      "type": "object",
      "additionalProperties": { "type": "string" }
    },
    "fromType": {
      "type": "string",
      "enum": ["NoFrom", "RedIn", "RedInHere"]
    },
    "fromFile": { "type": "string" },
    "toType": {
      "type": "string",
      "enum": ["NoTo", "RedOut", "RedOutApp", "RedOutErr"]
    },
    "toFile": { "type": "string" },
    "host": { "type": "string" },
    "left": { "$ref": "schema://ps4sh-node.json" },
    "right": { "$ref": "schema://ps4sh-node.json" }
  },
  "additionalProperties": false
}`

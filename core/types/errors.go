package types

import "errors"

var (
	errNilNode      = errors.New("types: nil node")
	errEmptyArgv    = errors.New("types: Simple node must have argc >= 1")
	errMissingChild = errors.New("types: node is missing a required child")
	errUnknownKind  = errors.New("types: unknown node kind")
)
